package waterfall

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

type ParticipationMode string

const (
	// Capped tranches recoup up to a fixed target in priority order.
	Capped ParticipationMode = "capped"
	// UncappedProRata tranches share residual cash by participation rate
	// after every capped tranche is satisfied. They always rank last.
	UncappedProRata ParticipationMode = "uncapped_prorata"
)

// Tranche is one priority level in a recoupment waterfall. TrancheID keys the
// distribution timeline; StakeholderID groups tranches belonging to the same
// investor (a stakeholder may hold both a capped recoupment tranche and an
// uncapped backend tranche).
type Tranche struct {
	TrancheID         string            `json:"tranche_id"`
	StakeholderID     string            `json:"stakeholder_id"`
	PriorityRank      int               `json:"priority_rank"`
	RecoupmentTarget  decimal.Decimal   `json:"recoupment_target"`
	ParticipationMode ParticipationMode `json:"participation_mode"`
	ParticipationRate float64           `json:"participation_rate,omitempty"`
}

// Structure is a validated, priority-ordered waterfall. Build with
// NewStructure; the tranche slice is sorted by priority rank on construction
// and never mutated afterwards.
type Structure struct {
	Name     string    `json:"name"`
	Tranches []Tranche `json:"tranches"`
}

// NewStructure validates and orders the tranches. Malformed structures are
// rejected here, before any execution: duplicate priority ranks, duplicate
// tranche IDs, negative targets, uncapped tranches ranked ahead of capped
// ones, uncapped rates outside [0,1], or uncapped rates summing above 1
// (which would distribute more than a period's residual).
func NewStructure(name string, tranches []Tranche) (*Structure, error) {
	if len(tranches) == 0 {
		return nil, fmt.Errorf("waterfall: structure %q has no tranches", name)
	}
	ranks := map[int]string{}
	ids := map[string]bool{}
	for i, tr := range tranches {
		if tr.TrancheID == "" {
			return nil, fmt.Errorf("waterfall: tranche %d has empty tranche_id", i)
		}
		if tr.StakeholderID == "" {
			return nil, fmt.Errorf("waterfall: tranche %q has empty stakeholder_id", tr.TrancheID)
		}
		if ids[tr.TrancheID] {
			return nil, fmt.Errorf("waterfall: duplicate tranche_id %q", tr.TrancheID)
		}
		ids[tr.TrancheID] = true
		if prev, ok := ranks[tr.PriorityRank]; ok {
			return nil, fmt.Errorf("waterfall: tranches %q and %q share priority rank %d", prev, tr.TrancheID, tr.PriorityRank)
		}
		ranks[tr.PriorityRank] = tr.TrancheID
		switch tr.ParticipationMode {
		case Capped:
			if tr.RecoupmentTarget.IsNegative() {
				return nil, fmt.Errorf("waterfall: tranche %q has negative recoupment target %s", tr.TrancheID, tr.RecoupmentTarget.String())
			}
		case UncappedProRata:
			if tr.ParticipationRate < 0 || tr.ParticipationRate > 1 {
				return nil, fmt.Errorf("waterfall: tranche %q participation rate %v outside [0,1]", tr.TrancheID, tr.ParticipationRate)
			}
		default:
			return nil, fmt.Errorf("waterfall: tranche %q has unknown participation mode %q", tr.TrancheID, tr.ParticipationMode)
		}
	}

	ordered := append([]Tranche(nil), tranches...)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].PriorityRank < ordered[j].PriorityRank })

	// Backend participation must sit strictly below every capped tranche, and
	// the backend shares together may claim at most the whole residual.
	seenUncapped := false
	rateSum := 0.0
	for _, tr := range ordered {
		if tr.ParticipationMode == UncappedProRata {
			seenUncapped = true
			rateSum += tr.ParticipationRate
			continue
		}
		if seenUncapped {
			return nil, fmt.Errorf("waterfall: capped tranche %q ranks below an uncapped tranche", tr.TrancheID)
		}
	}
	if rateSum > 1+1e-9 {
		return nil, fmt.Errorf("waterfall: uncapped participation rates sum to %v, above 1", rateSum)
	}

	return &Structure{Name: name, Tranches: ordered}, nil
}

func (s *Structure) capped() []Tranche {
	out := make([]Tranche, 0, len(s.Tranches))
	for _, tr := range s.Tranches {
		if tr.ParticipationMode == Capped {
			out = append(out, tr)
		}
	}
	return out
}

func (s *Structure) uncapped() []Tranche {
	out := make([]Tranche, 0, 2)
	for _, tr := range s.Tranches {
		if tr.ParticipationMode == UncappedProRata {
			out = append(out, tr)
		}
	}
	return out
}
