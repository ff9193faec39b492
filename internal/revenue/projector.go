package revenue

import (
	"fmt"
	"math"
	"sort"

	"github.com/shopspring/decimal"
)

// ReleaseStrategy selects the decay curve mapping ultimate revenue onto
// exploitation windows and quarterly periods.
type ReleaseStrategy string

const (
	WideTheatrical ReleaseStrategy = "wide_theatrical"
	Platform       ReleaseStrategy = "platform"
	DayAndDate     ReleaseStrategy = "day_and_date"
	StreamingOnly  ReleaseStrategy = "streaming_only"
)

// Window is one projected revenue slice: the named exploitation window's
// share that lands in a single quarter.
type Window struct {
	Label       string          `json:"window_label"`
	PeriodIndex int             `json:"period_index"`
	Amount      decimal.Decimal `json:"amount"`
}

// Projection is the deterministic revenue timeline for one release strategy.
// Windows are ordered by period index ascending, ties kept in curve
// declaration order.
type Projection struct {
	Strategy ReleaseStrategy `json:"release_strategy"`
	Total    decimal.Decimal `json:"total_ultimate_revenue"`
	Windows  []Window        `json:"windows"`
}

type curvePoint struct {
	window string
	period int
	pct    float64
}

// Each strategy's curve is a percentage-of-ultimate per (window, quarter)
// pair. Percentages must sum to 100 within looseTolerance.
var curves = map[ReleaseStrategy][]curvePoint{
	WideTheatrical: {
		{"theatrical", 1, 25.0},
		{"theatrical", 2, 15.0},
		{"home_video", 3, 12.0},
		{"home_video", 4, 8.0},
		{"streaming", 4, 10.0},
		{"streaming", 5, 10.0},
		{"streaming", 6, 10.0},
		{"ancillary", 7, 5.0},
		{"ancillary", 8, 5.0},
	},
	Platform: {
		{"theatrical", 1, 8.0},
		{"theatrical", 2, 12.0},
		{"theatrical", 3, 10.0},
		{"home_video", 4, 10.0},
		{"home_video", 5, 10.0},
		{"streaming", 5, 12.0},
		{"streaming", 6, 12.0},
		{"streaming", 7, 10.0},
		{"ancillary", 8, 8.0},
		{"ancillary", 9, 8.0},
	},
	DayAndDate: {
		{"theatrical", 1, 18.0},
		{"streaming", 1, 22.0},
		{"streaming", 2, 20.0},
		{"streaming", 3, 14.0},
		{"home_video", 4, 10.0},
		{"home_video", 5, 6.0},
		{"ancillary", 6, 5.0},
		{"ancillary", 7, 5.0},
	},
	StreamingOnly: {
		{"streaming", 1, 35.0},
		{"streaming", 2, 25.0},
		{"streaming", 3, 15.0},
		{"streaming", 4, 10.0},
		{"ancillary", 5, 8.0},
		{"ancillary", 6, 7.0},
	},
}

const looseTolerance = 0.01

// Strategies lists the known release strategies in a stable order.
func Strategies() []ReleaseStrategy {
	out := make([]ReleaseStrategy, 0, len(curves))
	for s := range curves {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Project maps a total ultimate revenue figure onto the strategy's decay
// curve. It is a pure function: same inputs, same projection. The last slice
// absorbs cent-level rounding so window amounts sum to the total exactly.
func Project(total decimal.Decimal, strategy ReleaseStrategy) (*Projection, error) {
	if total.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("revenue: total ultimate revenue must be positive, got %s", total.String())
	}
	curve, ok := curves[strategy]
	if !ok {
		return nil, fmt.Errorf("revenue: unknown release strategy %q", strategy)
	}
	pctSum := 0.0
	for _, p := range curve {
		pctSum += p.pct
	}
	if math.Abs(pctSum-100.0) > looseTolerance {
		return nil, fmt.Errorf("revenue: %s curve percentages sum to %.4f, want 100", strategy, pctSum)
	}

	windows := make([]Window, 0, len(curve))
	allocated := decimal.Zero
	for i, p := range curve {
		var amt decimal.Decimal
		if i == len(curve)-1 {
			amt = total.Sub(allocated)
		} else {
			amt = total.Mul(decimal.NewFromFloat(p.pct)).Div(decimal.NewFromInt(100)).Round(2)
		}
		allocated = allocated.Add(amt)
		windows = append(windows, Window{Label: p.window, PeriodIndex: p.period, Amount: amt})
	}

	// Curves are declared period-ascending already; the stable sort keeps
	// declaration order for slices sharing a quarter.
	sort.SliceStable(windows, func(i, j int) bool { return windows[i].PeriodIndex < windows[j].PeriodIndex })

	return &Projection{Strategy: strategy, Total: total, Windows: windows}, nil
}

// PeriodAmounts collapses the projection into per-quarter totals keyed by
// period index, plus the highest period index present.
func (p *Projection) PeriodAmounts() (map[int]decimal.Decimal, int) {
	out := make(map[int]decimal.Decimal, len(p.Windows))
	last := 0
	for _, w := range p.Windows {
		out[w.PeriodIndex] = out[w.PeriodIndex].Add(w.Amount)
		if w.PeriodIndex > last {
			last = w.PeriodIndex
		}
	}
	return out, last
}
