package waterfall

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"filmstack/internal/revenue"
)

// Options tune the execution policy without touching the structure itself.
type Options struct {
	// DistributableShare is the fraction of each period's gross revenue that
	// enters the waterfall (the remainder is distribution fees and expenses
	// taken off the top). Zero means 1.0, i.e. everything distributes.
	DistributableShare float64
	// CarryForward controls what happens to cash left after the backend
	// tranches in a period. The default (false) loses it: each period's
	// unallocated residual belongs to the studio and does not roll into the
	// next quarter. True rolls leftovers forward instead.
	CarryForward bool
}

func (o Options) share() decimal.Decimal {
	if o.DistributableShare <= 0 || o.DistributableShare > 1 {
		return decimal.NewFromInt(1)
	}
	return decimal.NewFromFloat(o.DistributableShare)
}

// PeriodDistribution is one quarter's snapshot: the cash that entered the
// waterfall and what each tranche drew from it.
type PeriodDistribution struct {
	PeriodIndex int                        `json:"period_index"`
	Available   decimal.Decimal            `json:"available"`
	Allocations map[string]decimal.Decimal `json:"distributions"`
}

// Timeline is the full execution result in period order, plus cumulative
// balances per tranche.
type Timeline struct {
	Periods    []PeriodDistribution       `json:"periods"`
	Cumulative map[string]decimal.Decimal `json:"cumulative"`
	LastPeriod int                        `json:"last_period"`
}

// Execute walks the projection period by period, filling capped tranches in
// priority order and sharing any residual pro-rata among the backend
// tranches. Periods must be processed in order: a tranche's fill at period N
// depends on its cumulative balance from periods 1..N-1.
func Execute(projection *revenue.Projection, structure *Structure, opts Options) (*Timeline, error) {
	if projection == nil {
		return nil, fmt.Errorf("waterfall: nil projection")
	}
	if structure == nil {
		return nil, fmt.Errorf("waterfall: nil structure")
	}

	amounts, last := projection.PeriodAmounts()
	periods := make([]int, 0, len(amounts))
	for p := range amounts {
		periods = append(periods, p)
	}
	sort.Ints(periods)

	capped := structure.capped()
	uncapped := structure.uncapped()
	share := opts.share()

	tl := &Timeline{
		Periods:    make([]PeriodDistribution, 0, len(periods)),
		Cumulative: make(map[string]decimal.Decimal, len(structure.Tranches)),
		LastPeriod: last,
	}
	for _, tr := range structure.Tranches {
		tl.Cumulative[tr.TrancheID] = decimal.Zero
	}

	carried := decimal.Zero
	for _, period := range periods {
		available := amounts[period].Mul(share)
		if opts.CarryForward {
			available = available.Add(carried)
			carried = decimal.Zero
		}
		snap := PeriodDistribution{
			PeriodIndex: period,
			Available:   available,
			Allocations: map[string]decimal.Decimal{},
		}

		for _, tr := range capped {
			if available.IsZero() {
				break
			}
			// A zero target is already satisfied; skip without consuming cash.
			remaining := tr.RecoupmentTarget.Sub(tl.Cumulative[tr.TrancheID])
			if remaining.LessThanOrEqual(decimal.Zero) {
				continue
			}
			fill := decimal.Min(available, remaining)
			available = available.Sub(fill)
			tl.Cumulative[tr.TrancheID] = tl.Cumulative[tr.TrancheID].Add(fill)
			snap.Allocations[tr.TrancheID] = snap.Allocations[tr.TrancheID].Add(fill)
		}

		if available.GreaterThan(decimal.Zero) && len(uncapped) > 0 {
			residual := available
			for _, tr := range uncapped {
				// Each cut is a share of the residual snapshot, never more than
				// what is still on the table.
				cut := decimal.Min(residual.Mul(decimal.NewFromFloat(tr.ParticipationRate)), available)
				if cut.LessThanOrEqual(decimal.Zero) {
					continue
				}
				available = available.Sub(cut)
				tl.Cumulative[tr.TrancheID] = tl.Cumulative[tr.TrancheID].Add(cut)
				snap.Allocations[tr.TrancheID] = snap.Allocations[tr.TrancheID].Add(cut)
			}
		}

		// Whatever is left is the studio residual: untracked under the
		// default policy, rolled into the next quarter under carry-forward.
		if opts.CarryForward {
			carried = available
		}

		tl.Periods = append(tl.Periods, snap)
	}

	return tl, nil
}

// Received returns the cumulative amount distributed to a stakeholder across
// all of its tranches.
func (t *Timeline) Received(structure *Structure, stakeholderID string) decimal.Decimal {
	total := decimal.Zero
	for _, tr := range structure.Tranches {
		if tr.StakeholderID == stakeholderID {
			total = total.Add(t.Cumulative[tr.TrancheID])
		}
	}
	return total
}

// CashFlows builds a stakeholder's signed per-period series: the investment
// as an outflow at period 0, distributions as inflows at each quarter.
func (t *Timeline) CashFlows(structure *Structure, stakeholderID string, invested decimal.Decimal) []float64 {
	flows := make([]float64, t.LastPeriod+1)
	inv, _ := invested.Float64()
	flows[0] = -inv
	for _, p := range t.Periods {
		for _, tr := range structure.Tranches {
			if tr.StakeholderID != stakeholderID {
				continue
			}
			if amt, ok := p.Allocations[tr.TrancheID]; ok {
				f, _ := amt.Float64()
				flows[p.PeriodIndex] += f
			}
		}
	}
	return flows
}
