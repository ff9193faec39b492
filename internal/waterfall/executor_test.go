package waterfall

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"

	"filmstack/internal/revenue"
)

func dec(v float64) decimal.Decimal { return decimal.NewFromFloat(v) }

func twoPeriodProjection(p1, p2 float64) *revenue.Projection {
	return &revenue.Projection{
		Strategy: revenue.StreamingOnly,
		Total:    dec(p1 + p2),
		Windows: []revenue.Window{
			{Label: "streaming", PeriodIndex: 1, Amount: dec(p1)},
			{Label: "streaming", PeriodIndex: 2, Amount: dec(p2)},
		},
	}
}

func testStructure(t *testing.T) *Structure {
	t.Helper()
	s, err := NewStructure("test", []Tranche{
		{TrancheID: "senior", StakeholderID: "senior_lender", PriorityRank: 1, RecoupmentTarget: dec(120), ParticipationMode: Capped},
		{TrancheID: "mezz", StakeholderID: "mezz_lender", PriorityRank: 2, RecoupmentTarget: dec(50), ParticipationMode: Capped},
		{TrancheID: "equity_backend", StakeholderID: "equity", PriorityRank: 3, ParticipationMode: UncappedProRata, ParticipationRate: 0.5},
		{TrancheID: "talent", StakeholderID: "talent_pool", PriorityRank: 4, ParticipationMode: UncappedProRata, ParticipationRate: 0.2},
	})
	if err != nil {
		t.Fatalf("new structure: %v", err)
	}
	return s
}

func TestExecute_FullBackendNeverOverdraws(t *testing.T) {
	// Backend shares covering the whole residual distribute exactly the
	// period's cash, never more.
	s, err := NewStructure("full backend", []Tranche{
		{TrancheID: "equity_backend", StakeholderID: "equity", PriorityRank: 1, ParticipationMode: UncappedProRata, ParticipationRate: 0.8},
		{TrancheID: "talent", StakeholderID: "talent_pool", PriorityRank: 2, ParticipationMode: UncappedProRata, ParticipationRate: 0.2},
	})
	if err != nil {
		t.Fatalf("new structure: %v", err)
	}
	tl, err := Execute(twoPeriodProjection(100, 100), s, Options{})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	for _, p := range tl.Periods {
		allocated := decimal.Zero
		for _, amt := range p.Allocations {
			allocated = allocated.Add(amt)
		}
		if allocated.GreaterThan(p.Available) {
			t.Fatalf("period %d allocated %s of %s available", p.PeriodIndex, allocated.String(), p.Available.String())
		}
		if !p.Allocations["equity_backend"].Equal(dec(80)) || !p.Allocations["talent"].Equal(dec(20)) {
			t.Fatalf("period %d equity=%s talent=%s want 80/20", p.PeriodIndex,
				p.Allocations["equity_backend"].String(), p.Allocations["talent"].String())
		}
	}
}

func TestExecute_PriorityOrderAndProRata(t *testing.T) {
	tl, err := Execute(twoPeriodProjection(100, 100), testStructure(t), Options{})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	// Period 1 is fully consumed by the senior tranche.
	p1 := tl.Periods[0]
	if !p1.Allocations["senior"].Equal(dec(100)) {
		t.Fatalf("p1 senior=%s want=100", p1.Allocations["senior"].String())
	}
	if _, ok := p1.Allocations["mezz"]; ok {
		t.Fatalf("mezz paid before senior satisfied")
	}
	// Period 2: senior tops up to 120, mezz fills, backend splits the 30 residual.
	p2 := tl.Periods[1]
	if !p2.Allocations["senior"].Equal(dec(20)) {
		t.Fatalf("p2 senior=%s want=20", p2.Allocations["senior"].String())
	}
	if !p2.Allocations["mezz"].Equal(dec(50)) {
		t.Fatalf("p2 mezz=%s want=50", p2.Allocations["mezz"].String())
	}
	if !p2.Allocations["equity_backend"].Equal(dec(15)) {
		t.Fatalf("p2 equity=%s want=15", p2.Allocations["equity_backend"].String())
	}
	if !p2.Allocations["talent"].Equal(dec(6)) {
		t.Fatalf("p2 talent=%s want=6", p2.Allocations["talent"].String())
	}
	if !tl.Cumulative["senior"].Equal(dec(120)) {
		t.Fatalf("cumulative senior=%s want=120", tl.Cumulative["senior"].String())
	}
}

func TestExecute_NeverOverDistributes(t *testing.T) {
	tl, err := Execute(twoPeriodProjection(100, 100), testStructure(t), Options{})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	for _, p := range tl.Periods {
		allocated := decimal.Zero
		for _, amt := range p.Allocations {
			if amt.IsNegative() {
				t.Fatalf("period %d has negative allocation", p.PeriodIndex)
			}
			allocated = allocated.Add(amt)
		}
		if allocated.GreaterThan(p.Available) {
			t.Fatalf("period %d allocated %s of %s available", p.PeriodIndex, allocated.String(), p.Available.String())
		}
	}
}

func TestExecute_DistributableShare(t *testing.T) {
	tl, err := Execute(twoPeriodProjection(100, 100), testStructure(t), Options{DistributableShare: 0.7})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !tl.Periods[0].Available.Equal(dec(70)) {
		t.Fatalf("available=%s want=70 with 30%% fee off the top", tl.Periods[0].Available.String())
	}
}

func TestExecute_ZeroTargetSkippedWithoutConsuming(t *testing.T) {
	s, err := NewStructure("zero", []Tranche{
		{TrancheID: "zero", StakeholderID: "a", PriorityRank: 1, RecoupmentTarget: decimal.Zero, ParticipationMode: Capped},
		{TrancheID: "next", StakeholderID: "b", PriorityRank: 2, RecoupmentTarget: dec(80), ParticipationMode: Capped},
	})
	if err != nil {
		t.Fatalf("new structure: %v", err)
	}
	tl, err := Execute(twoPeriodProjection(50, 50), s, Options{})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !tl.Cumulative["zero"].IsZero() {
		t.Fatalf("zero-target tranche received %s", tl.Cumulative["zero"].String())
	}
	if !tl.Cumulative["next"].Equal(dec(80)) {
		t.Fatalf("next tranche=%s want=80", tl.Cumulative["next"].String())
	}
}

func TestExecute_LeftoverPolicy(t *testing.T) {
	s, err := NewStructure("backend_only", []Tranche{
		{TrancheID: "backend", StakeholderID: "equity", PriorityRank: 1, ParticipationMode: UncappedProRata, ParticipationRate: 0.5},
	})
	if err != nil {
		t.Fatalf("new structure: %v", err)
	}

	lost, err := Execute(twoPeriodProjection(100, 100), s, Options{})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	// Each period the backend takes half and the rest goes to the studio.
	if !lost.Cumulative["backend"].Equal(dec(100)) {
		t.Fatalf("lose policy backend=%s want=100", lost.Cumulative["backend"].String())
	}

	carried, err := Execute(twoPeriodProjection(100, 100), s, Options{CarryForward: true})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	// Period 1 leaves 50, which rolls into period 2: 50 + 0.5*150 = 125.
	if !carried.Cumulative["backend"].Equal(dec(125)) {
		t.Fatalf("carry-forward backend=%s want=125", carried.Cumulative["backend"].String())
	}
}

func TestExecute_NilInputs(t *testing.T) {
	if _, err := Execute(nil, testStructure(t), Options{}); err == nil {
		t.Fatalf("want error for nil projection")
	}
	if _, err := Execute(twoPeriodProjection(1, 1), nil, Options{}); err == nil {
		t.Fatalf("want error for nil structure")
	}
}

func TestTimeline_ReceivedGroupsByStakeholder(t *testing.T) {
	s, err := NewStructure("split", []Tranche{
		{TrancheID: "equity_recoupment", StakeholderID: "equity", PriorityRank: 1, RecoupmentTarget: dec(60), ParticipationMode: Capped},
		{TrancheID: "equity_backend", StakeholderID: "equity", PriorityRank: 2, ParticipationMode: UncappedProRata, ParticipationRate: 1.0},
	})
	if err != nil {
		t.Fatalf("new structure: %v", err)
	}
	tl, err := Execute(twoPeriodProjection(50, 50), s, Options{})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	// 60 recoupment plus the remaining 40 at full participation.
	if !tl.Received(s, "equity").Equal(dec(100)) {
		t.Fatalf("received=%s want=100", tl.Received(s, "equity").String())
	}

	flows := tl.CashFlows(s, "equity", dec(60))
	if len(flows) != 3 {
		t.Fatalf("flows len=%d want=3", len(flows))
	}
	if flows[0] != -60 {
		t.Fatalf("flows[0]=%f want=-60", flows[0])
	}
	if math.Abs(flows[1]-50) > 1e-9 || math.Abs(flows[2]-50) > 1e-9 {
		t.Fatalf("flows=%v want [_, 50, 50]", flows)
	}
}

func TestBuildReturns(t *testing.T) {
	s := testStructure(t)
	tl, err := Execute(twoPeriodProjection(100, 100), s, Options{})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	invested := map[string]decimal.Decimal{
		"senior_lender": dec(100),
		"mezz_lender":   dec(40),
		"equity":        dec(60),
	}
	returns := BuildReturns(tl, s, invested)
	if len(returns) != 4 {
		t.Fatalf("returns=%d want=4", len(returns))
	}
	byID := map[string]StakeholderReturn{}
	for _, r := range returns {
		byID[r.StakeholderID] = r
	}

	senior := byID["senior_lender"]
	if !senior.Recouped {
		t.Fatalf("senior received %s on %s invested, want recouped", senior.Received.String(), senior.Invested.String())
	}
	if senior.IRR == nil {
		t.Fatalf("senior irr=nil want a value")
	}
	if math.Abs(senior.CashOnCash-1.2) > 1e-9 {
		t.Fatalf("senior cash-on-cash=%f want=1.2", senior.CashOnCash)
	}

	eq := byID["equity"]
	if eq.Recouped {
		t.Fatalf("equity received %s on %s invested, want not recouped", eq.Received.String(), eq.Invested.String())
	}
	if !eq.Profit.Equal(dec(-45)) {
		t.Fatalf("equity profit=%s want=-45", eq.Profit.String())
	}

	talent := byID["talent_pool"]
	if talent.IRR != nil {
		t.Fatalf("talent pool has no investment, irr should be nil")
	}
	if talent.Recouped {
		t.Fatalf("zero-investment stakeholder cannot recoup")
	}
}
