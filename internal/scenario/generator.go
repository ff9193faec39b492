package scenario

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/shopspring/decimal"

	"filmstack/internal/capital"
)

// Template names a capital-stack shape: target percentage ranges per
// instrument type. Equity is never listed in a template; it is the plug line
// that absorbs whatever the other instruments leave uncovered, including
// cent-level rounding residue.
type Template string

const (
	DebtHeavy    Template = "debt_heavy"
	EquityHeavy  Template = "equity_heavy"
	Balanced     Template = "balanced"
	TaxOptimized Template = "tax_optimized"
	LowRisk      Template = "low_risk"
)

type typeRange struct {
	instrumentType capital.InstrumentType
	min, max       float64
}

var templateRanges = map[Template][]typeRange{
	DebtHeavy: {
		{capital.SeniorDebt, 40, 50},
		{capital.GapFinancing, 8, 15},
		{capital.MezzanineDebt, 10, 18},
		{capital.TaxIncentive, 5, 12},
	},
	EquityHeavy: {
		{capital.SeniorDebt, 10, 20},
		{capital.TaxIncentive, 5, 10},
		{capital.Grant, 0, 5},
	},
	Balanced: {
		{capital.SeniorDebt, 30, 40},
		{capital.GapFinancing, 0, 10},
		{capital.MezzanineDebt, 5, 15},
		{capital.TaxIncentive, 10, 20},
		{capital.Presales, 0, 13},
	},
	TaxOptimized: {
		{capital.TaxIncentive, 25, 35},
		{capital.SeniorDebt, 20, 30},
		{capital.Presales, 5, 15},
	},
	LowRisk: {
		{capital.Presales, 20, 30},
		{capital.TaxIncentive, 20, 30},
		{capital.Grant, 0, 8},
		{capital.SeniorDebt, 10, 20},
	},
}

// minEquityPct keeps the plug line meaningful: non-equity allocations are
// scaled down if they would squeeze equity below this share.
const minEquityPct = 5.0

// Default financing costs and waterfall priorities per instrument type.
var defaultCostRates = map[capital.InstrumentType]float64{
	capital.SeniorDebt:    0.10,
	capital.GapFinancing:  0.15,
	capital.MezzanineDebt: 0.18,
	capital.Presales:      0.10,
	capital.Equity:        0.20,
	capital.TaxIncentive:  0,
	capital.Grant:         0,
}

var defaultPriorities = map[capital.InstrumentType]int{
	capital.SeniorDebt:    1,
	capital.GapFinancing:  2,
	capital.MezzanineDebt: 3,
	capital.Presales:      4,
	capital.Equity:        5,
	capital.TaxIncentive:  6,
	capital.Grant:         7,
}

// defaultEquityParticipation is the equity backend share of residual cash.
const defaultEquityParticipation = 0.5

// Templates lists the known templates in a stable order.
func Templates() []Template {
	out := make([]Template, 0, len(templateRanges))
	for t := range templateRanges {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// DefaultCostRate returns the assumed financing cost for an instrument type.
func DefaultCostRate(t capital.InstrumentType) float64 {
	return defaultCostRates[t]
}

// Generate produces candidate capital stacks for one template. The first
// candidate uses the template's midpoint percentages; additional candidates
// jitter within each type's allowed range. Deterministic for a given seed.
func Generate(projectBudget decimal.Decimal, template Template, numScenarios int, seed int64) ([]*capital.Stack, error) {
	if projectBudget.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("scenario: project budget must be positive, got %s", projectBudget.String())
	}
	if numScenarios <= 0 {
		return nil, fmt.Errorf("scenario: num scenarios must be positive, got %d", numScenarios)
	}
	ranges, ok := templateRanges[template]
	if !ok {
		return nil, fmt.Errorf("scenario: unknown template %q", template)
	}

	rng := rand.New(rand.NewSource(seed))
	out := make([]*capital.Stack, 0, numScenarios)
	for i := 0; i < numScenarios; i++ {
		pcts := make([]float64, len(ranges))
		for j, r := range ranges {
			if i == 0 {
				pcts[j] = (r.min + r.max) / 2
			} else {
				pcts[j] = r.min + rng.Float64()*(r.max-r.min)
			}
		}
		stack, err := buildStack(projectBudget, ranges, pcts)
		if err != nil {
			return nil, err
		}
		out = append(out, stack)
	}
	return out, nil
}

func buildStack(budget decimal.Decimal, ranges []typeRange, pcts []float64) (*capital.Stack, error) {
	total := 0.0
	for _, p := range pcts {
		total += p
	}
	// Keep room for the equity plug.
	if total > 100-minEquityPct {
		scale := (100 - minEquityPct) / total
		for j := range pcts {
			pcts[j] *= scale
		}
	}

	instruments := make([]capital.Instrument, 0, len(ranges)+1)
	allocated := decimal.Zero
	for j, r := range ranges {
		amount := budget.Mul(decimal.NewFromFloat(pcts[j])).Div(decimal.NewFromInt(100)).Round(2)
		if amount.IsZero() {
			continue
		}
		allocated = allocated.Add(amount)
		instruments = append(instruments, newInstrument(r.instrumentType, amount))
	}

	// Equity takes the remainder, so the stack sums to budget exactly.
	equityAmount := budget.Sub(allocated)
	equity := newInstrument(capital.Equity, equityAmount)
	participation := defaultEquityParticipation
	equity.ParticipationRate = &participation
	instruments = append(instruments, equity)

	sort.SliceStable(instruments, func(a, b int) bool {
		return instruments[a].PriorityRank < instruments[b].PriorityRank
	})
	return capital.NewStack(budget, instruments)
}

func newInstrument(t capital.InstrumentType, amount decimal.Decimal) capital.Instrument {
	cost := defaultCostRates[t]
	return capital.Instrument{
		Type:         t,
		Amount:       amount,
		PriorityRank: defaultPriorities[t],
		CostRate:     &cost,
	}
}
