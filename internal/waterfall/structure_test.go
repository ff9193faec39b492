package waterfall

import (
	"testing"

	"github.com/shopspring/decimal"
)

func validTranches() []Tranche {
	return []Tranche{
		{TrancheID: "senior", StakeholderID: "senior_lender", PriorityRank: 1, RecoupmentTarget: decimal.NewFromInt(100), ParticipationMode: Capped},
		{TrancheID: "backend", StakeholderID: "equity", PriorityRank: 2, ParticipationMode: UncappedProRata, ParticipationRate: 0.5},
	}
}

func TestNewStructure_SortsByPriority(t *testing.T) {
	tranches := []Tranche{
		{TrancheID: "backend", StakeholderID: "equity", PriorityRank: 3, ParticipationMode: UncappedProRata, ParticipationRate: 0.5},
		{TrancheID: "mezz", StakeholderID: "mezz_lender", PriorityRank: 2, RecoupmentTarget: decimal.NewFromInt(50), ParticipationMode: Capped},
		{TrancheID: "senior", StakeholderID: "senior_lender", PriorityRank: 1, RecoupmentTarget: decimal.NewFromInt(100), ParticipationMode: Capped},
	}
	s, err := NewStructure("sorted", tranches)
	if err != nil {
		t.Fatalf("new structure: %v", err)
	}
	want := []string{"senior", "mezz", "backend"}
	for i, id := range want {
		if s.Tranches[i].TrancheID != id {
			t.Fatalf("tranche %d = %q want %q", i, s.Tranches[i].TrancheID, id)
		}
	}
}

func TestNewStructure_Rejects(t *testing.T) {
	cases := []struct {
		name     string
		tranches []Tranche
	}{
		{"empty", nil},
		{"empty tranche id", []Tranche{
			{TrancheID: "", StakeholderID: "a", PriorityRank: 1, ParticipationMode: Capped},
		}},
		{"empty stakeholder id", []Tranche{
			{TrancheID: "t1", StakeholderID: "", PriorityRank: 1, ParticipationMode: Capped},
		}},
		{"duplicate tranche id", []Tranche{
			{TrancheID: "t1", StakeholderID: "a", PriorityRank: 1, ParticipationMode: Capped},
			{TrancheID: "t1", StakeholderID: "b", PriorityRank: 2, ParticipationMode: Capped},
		}},
		{"duplicate priority rank", []Tranche{
			{TrancheID: "t1", StakeholderID: "a", PriorityRank: 1, ParticipationMode: Capped},
			{TrancheID: "t2", StakeholderID: "b", PriorityRank: 1, ParticipationMode: Capped},
		}},
		{"negative target", []Tranche{
			{TrancheID: "t1", StakeholderID: "a", PriorityRank: 1, RecoupmentTarget: decimal.NewFromInt(-5), ParticipationMode: Capped},
		}},
		{"rate above one", []Tranche{
			{TrancheID: "t1", StakeholderID: "a", PriorityRank: 1, ParticipationMode: UncappedProRata, ParticipationRate: 1.5},
		}},
		{"rates sum above one", []Tranche{
			{TrancheID: "t1", StakeholderID: "a", PriorityRank: 1, ParticipationMode: UncappedProRata, ParticipationRate: 0.8},
			{TrancheID: "t2", StakeholderID: "b", PriorityRank: 2, ParticipationMode: UncappedProRata, ParticipationRate: 0.8},
		}},
		{"unknown mode", []Tranche{
			{TrancheID: "t1", StakeholderID: "a", PriorityRank: 1, ParticipationMode: "corridor"},
		}},
		{"capped below uncapped", []Tranche{
			{TrancheID: "backend", StakeholderID: "equity", PriorityRank: 1, ParticipationMode: UncappedProRata, ParticipationRate: 0.5},
			{TrancheID: "senior", StakeholderID: "senior_lender", PriorityRank: 2, RecoupmentTarget: decimal.NewFromInt(100), ParticipationMode: Capped},
		}},
	}
	for _, tc := range cases {
		if _, err := NewStructure(tc.name, tc.tranches); err == nil {
			t.Fatalf("%s: want error", tc.name)
		}
	}
}

func TestNewStructure_AcceptsRatesSummingToOne(t *testing.T) {
	tranches := []Tranche{
		{TrancheID: "equity", StakeholderID: "equity", PriorityRank: 1, ParticipationMode: UncappedProRata, ParticipationRate: 0.8},
		{TrancheID: "talent", StakeholderID: "talent", PriorityRank: 2, ParticipationMode: UncappedProRata, ParticipationRate: 0.2},
	}
	if _, err := NewStructure("full backend", tranches); err != nil {
		t.Fatalf("new structure: %v", err)
	}
}

func TestNewStructure_Valid(t *testing.T) {
	s, err := NewStructure("valid", validTranches())
	if err != nil {
		t.Fatalf("new structure: %v", err)
	}
	if len(s.capped()) != 1 || len(s.uncapped()) != 1 {
		t.Fatalf("capped=%d uncapped=%d want 1/1", len(s.capped()), len(s.uncapped()))
	}
}
