package scenario

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"filmstack/internal/capital"
	"filmstack/internal/incentive"
	"filmstack/internal/montecarlo"
	"filmstack/internal/revenue"
	"filmstack/internal/waterfall"
)

// ObjectiveWeights steer the optimization score. Weights need not sum to 1;
// they are normalized internally. All-zero weights fall back to equal parts.
type ObjectiveWeights struct {
	EquityIRR           float64 `json:"equity_irr"`
	CostOfCapital       float64 `json:"cost_of_capital"`
	TaxIncentiveCapture float64 `json:"tax_incentive_capture"`
	RiskMinimization    float64 `json:"risk_minimization"`
}

// Constraints are the hard bounds a scenario is validated against.
// Violations are recorded, never fatal: invalid scenarios still get metrics
// so they can be compared and explained.
type Constraints struct {
	MaxDebtToEquity float64
	MinEquityPct    float64
}

func DefaultConstraints() Constraints {
	return Constraints{MaxDebtToEquity: 2.0, MinEquityPct: 0.10}
}

// Bounds are the fixed reference points used to normalize raw metrics onto a
// 0-100 scale.
type Bounds struct {
	// IRRRef: a quarterly equity IRR at or above this scores 100.
	IRRRef float64
	// CostRef: a blended cost of capital at or above this scores 0.
	CostRef float64
	// TaxRef: a tax incentive rate at or above this scores 100.
	TaxRef float64
	// RiskSpreadRef: a P10-P90 IRR spread at or above this maps to risk 100.
	RiskSpreadRef float64
}

func DefaultBounds() Bounds {
	return Bounds{IRRRef: 0.40, CostRef: 0.20, TaxRef: 0.30, RiskSpreadRef: 0.60}
}

// strategicBlendWeight fixes the financial/strategic split at 70/30 when an
// external strategic score is supplied. Product decision, not derived.
const strategicBlendWeight = 0.7

// Metrics is the §6 metrics block of a scored scenario. EquityIRR is the
// per-quarter rate; nil when equity never produces a defined IRR.
type Metrics struct {
	EquityIRR               *float64        `json:"equity_irr"`
	CostOfCapital           float64         `json:"cost_of_capital"`
	TaxIncentiveRate        float64         `json:"tax_incentive_rate"`
	RiskScore               *float64        `json:"risk_score,omitempty"`
	DebtCoverageRatio       float64         `json:"debt_coverage_ratio"`
	ProbabilityOfRecoupment *float64        `json:"probability_of_recoupment,omitempty"`
	TotalDebt               decimal.Decimal `json:"total_debt"`
	TotalEquity             decimal.Decimal `json:"total_equity"`
	DebtToEquityRatio       float64         `json:"debt_to_equity_ratio"`
}

// Scenario is a scored candidate. Read-only downstream of the evaluator.
type Scenario struct {
	Template          Template                      `json:"template"`
	Stack             *capital.Stack                `json:"capital_structure"`
	Metrics           Metrics                       `json:"metrics"`
	Returns           []waterfall.StakeholderReturn `json:"stakeholder_returns"`
	MonteCarlo        *montecarlo.Result            `json:"monte_carlo,omitempty"`
	Strengths         []string                      `json:"strengths"`
	Weaknesses        []string                      `json:"weaknesses"`
	ValidationPassed  bool                          `json:"validation_passed"`
	ValidationErrors  []string                      `json:"validation_errors"`
	OptimizationScore float64                       `json:"optimization_score"`
}

type Evaluator struct {
	Constraints Constraints
	Bounds      Bounds
	Incentives  incentive.Lookup
	Simulator   *montecarlo.Simulator
	Logger      *zap.Logger
}

// EvaluateParams carries the per-candidate inputs.
type EvaluateParams struct {
	Template      Template
	Stack         *capital.Stack
	Structure     *waterfall.Structure
	TotalRevenue  decimal.Decimal
	Strategy      revenue.ReleaseStrategy
	Options       waterfall.Options
	Weights       ObjectiveWeights
	RunMonteCarlo bool
	MonteCarlo    montecarlo.Config
	Jurisdiction  string
	// StrategicScore is an external 0-100 strategic/ownership score; when
	// present the final score is 0.7*financial + 0.3*strategic.
	StrategicScore *float64
}

// Evaluate validates, executes the baseline waterfall, optionally wraps it in
// Monte Carlo trials, and produces a scored Scenario. Constraint violations
// do not short-circuit: metrics are still computed so invalid candidates can
// be ranked and explained.
func (e *Evaluator) Evaluate(ctx context.Context, p EvaluateParams) (*Scenario, error) {
	if p.Stack == nil {
		return nil, fmt.Errorf("scenario: nil capital stack")
	}
	structure := p.Structure
	if structure == nil {
		var err error
		structure, err = DefaultWaterfall(p.Stack)
		if err != nil {
			return nil, err
		}
	}

	sc := &Scenario{
		Template:         p.Template,
		Stack:            p.Stack,
		ValidationPassed: true,
		Strengths:        []string{},
		Weaknesses:       []string{},
		ValidationErrors: []string{},
	}
	sc.Metrics.TotalDebt = p.Stack.TotalDebt()
	sc.Metrics.TotalEquity = p.Stack.TotalEquity()
	sc.Metrics.DebtToEquityRatio = p.Stack.DebtToEquityRatio()

	e.validate(ctx, p, sc)

	proj, err := revenue.Project(p.TotalRevenue, p.Strategy)
	if err != nil {
		return nil, err
	}
	tl, err := waterfall.Execute(proj, structure, p.Options)
	if err != nil {
		return nil, err
	}
	invested := InvestedByStakeholder(p.Stack)
	sc.Returns = waterfall.BuildReturns(tl, structure, invested)

	e.baselineMetrics(p, structure, tl, sc)

	if p.RunMonteCarlo && e.Simulator != nil {
		mc, err := e.Simulator.Simulate(ctx, montecarlo.Params{
			TotalRevenue: p.TotalRevenue,
			Strategy:     p.Strategy,
			Structure:    structure,
			Invested:     invested,
			Options:      p.Options,
			Config:       p.MonteCarlo,
		}, nil)
		if err != nil {
			return nil, err
		}
		sc.MonteCarlo = mc
		e.riskMetrics(mc, sc)
	}

	sc.OptimizationScore = e.score(p.Weights, sc.Metrics, p.StrategicScore)
	e.annotate(sc)

	if e.Logger != nil {
		e.Logger.Debug("scenario evaluated",
			zap.String("template", string(sc.Template)),
			zap.Float64("score", sc.OptimizationScore),
			zap.Bool("valid", sc.ValidationPassed),
		)
	}
	return sc, nil
}

func (e *Evaluator) validate(ctx context.Context, p EvaluateParams, sc *Scenario) {
	c := e.Constraints
	fail := func(format string, args ...any) {
		sc.ValidationPassed = false
		sc.ValidationErrors = append(sc.ValidationErrors, fmt.Sprintf(format, args...))
	}

	sum := decimal.Zero
	for _, in := range p.Stack.Instruments {
		if in.Amount.IsNegative() {
			fail("instrument %s has negative amount %s", in.Type, in.Amount.String())
		}
		sum = sum.Add(in.Amount)
	}
	if sum.Sub(p.Stack.ProjectBudget).Abs().GreaterThan(decimal.NewFromFloat(0.01)) {
		fail("instruments sum to %s, budget is %s", sum.StringFixed(2), p.Stack.ProjectBudget.StringFixed(2))
	}

	if c.MaxDebtToEquity > 0 && sc.Metrics.DebtToEquityRatio > c.MaxDebtToEquity {
		fail("debt/equity ratio %.2f exceeds maximum %.2f", sc.Metrics.DebtToEquityRatio, c.MaxDebtToEquity)
	}
	if c.MinEquityPct > 0 {
		equityPct, _ := sc.Metrics.TotalEquity.Div(p.Stack.ProjectBudget).Float64()
		if equityPct < c.MinEquityPct {
			fail("equity share %.1f%% below minimum %.1f%%", equityPct*100, c.MinEquityPct*100)
		}
	}

	// Tax incentive lines must fit within what the jurisdiction actually
	// grants for this qualified spend.
	taxAmount := p.Stack.AmountOf(capital.TaxIncentive)
	if taxAmount.GreaterThan(decimal.Zero) && e.Incentives != nil && p.Jurisdiction != "" {
		credit, err := e.Incentives.Lookup(ctx, p.Jurisdiction, p.Stack.ProjectBudget)
		if err != nil {
			fail("jurisdiction lookup failed: %v", err)
		} else if credit == nil {
			fail("jurisdiction %s grants no credit for this spend", p.Jurisdiction)
		} else if taxAmount.GreaterThan(credit.Amount) {
			fail("tax incentive %s exceeds available %s credit %s", taxAmount.StringFixed(0), credit.Jurisdiction, credit.Amount.StringFixed(0))
		}
	}
}

func (e *Evaluator) baselineMetrics(p EvaluateParams, structure *waterfall.Structure, tl *waterfall.Timeline, sc *Scenario) {
	for _, ret := range sc.Returns {
		if ret.StakeholderID == StakeholderEquity {
			sc.Metrics.EquityIRR = ret.IRR
		}
	}

	totalDebt := sc.Metrics.TotalDebt
	if totalDebt.GreaterThan(decimal.Zero) {
		recouped := decimal.Zero
		for _, id := range []string{StakeholderSeniorLender, StakeholderGapLender, StakeholderMezzanineLender} {
			recouped = recouped.Add(tl.Received(structure, id))
		}
		sc.Metrics.DebtCoverageRatio, _ = recouped.Div(totalDebt).Float64()
	}

	weighted := decimal.Zero
	for _, in := range p.Stack.Instruments {
		cost := defaultCostRates[in.Type]
		if in.CostRate != nil {
			cost = *in.CostRate
		}
		weighted = weighted.Add(in.Amount.Mul(decimal.NewFromFloat(cost)))
	}
	sc.Metrics.CostOfCapital, _ = weighted.Div(p.Stack.ProjectBudget).Float64()

	taxRate, _ := p.Stack.AmountOf(capital.TaxIncentive).Div(p.Stack.ProjectBudget).Float64()
	sc.Metrics.TaxIncentiveRate = taxRate
}

// riskMetrics derives the risk score from the dispersion of the equity IRR
// percentile band: a wider P10-P90 spread means a riskier structure.
func (e *Evaluator) riskMetrics(mc *montecarlo.Result, sc *Scenario) {
	bounds := e.bounds()
	for _, st := range mc.Stats {
		if st.StakeholderID != StakeholderEquity {
			continue
		}
		prob := st.ProbabilityOfRecoupment
		sc.Metrics.ProbabilityOfRecoupment = &prob
		risk := 100.0
		if st.P10 != nil && st.P90 != nil {
			spread := *st.P90 - *st.P10
			risk = clamp(spread/bounds.RiskSpreadRef*100, 0, 100)
		}
		sc.Metrics.RiskScore = &risk
	}
}

func (e *Evaluator) bounds() Bounds {
	b := e.Bounds
	if b.IRRRef <= 0 {
		b.IRRRef = DefaultBounds().IRRRef
	}
	if b.CostRef <= 0 {
		b.CostRef = DefaultBounds().CostRef
	}
	if b.TaxRef <= 0 {
		b.TaxRef = DefaultBounds().TaxRef
	}
	if b.RiskSpreadRef <= 0 {
		b.RiskSpreadRef = DefaultBounds().RiskSpreadRef
	}
	return b
}

// score combines normalized metric components via the objective weights,
// then blends in the external strategic score at the fixed 70/30 split.
func (e *Evaluator) score(w ObjectiveWeights, m Metrics, strategic *float64) float64 {
	bounds := e.bounds()
	if w.EquityIRR == 0 && w.CostOfCapital == 0 && w.TaxIncentiveCapture == 0 && w.RiskMinimization == 0 {
		w = ObjectiveWeights{EquityIRR: 1, CostOfCapital: 1, TaxIncentiveCapture: 1, RiskMinimization: 1}
	}

	type component struct {
		weight float64
		value  float64
	}
	components := make([]component, 0, 4)

	irr := 0.0
	if m.EquityIRR != nil {
		irr = *m.EquityIRR
	}
	components = append(components, component{w.EquityIRR, clamp(irr/bounds.IRRRef*100, 0, 100)})
	components = append(components, component{w.CostOfCapital, clamp(100-m.CostOfCapital/bounds.CostRef*100, 0, 100)})
	components = append(components, component{w.TaxIncentiveCapture, clamp(m.TaxIncentiveRate/bounds.TaxRef*100, 0, 100)})
	// Without Monte Carlo there is no risk score; the risk component drops
	// out of the normalization instead of pulling every scenario toward 50.
	if m.RiskScore != nil {
		components = append(components, component{w.RiskMinimization, 100 - *m.RiskScore})
	}

	var totalWeight, sum float64
	for _, c := range components {
		totalWeight += c.weight
		sum += c.weight * c.value
	}
	if totalWeight == 0 {
		return 0
	}
	financial := sum / totalWeight

	if strategic == nil {
		return financial
	}
	return strategicBlendWeight*financial + (1-strategicBlendWeight)*clamp(*strategic, 0, 100)
}

func (e *Evaluator) annotate(sc *Scenario) {
	m := sc.Metrics
	if m.EquityIRR != nil {
		switch {
		case *m.EquityIRR > 0.30:
			sc.Strengths = append(sc.Strengths, fmt.Sprintf("Strong equity returns (IRR %.1f%%)", *m.EquityIRR*100))
		case *m.EquityIRR < 0.10:
			sc.Weaknesses = append(sc.Weaknesses, fmt.Sprintf("Thin equity returns (IRR %.1f%%)", *m.EquityIRR*100))
		}
	} else {
		sc.Weaknesses = append(sc.Weaknesses, "Equity never recoups under the baseline projection")
	}

	switch {
	case m.DebtCoverageRatio >= 1.1:
		sc.Strengths = append(sc.Strengths, fmt.Sprintf("Debt fully covered with margin (%.2fx)", m.DebtCoverageRatio))
	case m.TotalDebt.GreaterThan(decimal.Zero) && m.DebtCoverageRatio < 1.0:
		sc.Weaknesses = append(sc.Weaknesses, fmt.Sprintf("Debt not fully recouped (%.2fx coverage)", m.DebtCoverageRatio))
	}

	if m.TaxIncentiveRate >= 0.15 {
		sc.Strengths = append(sc.Strengths, fmt.Sprintf("Significant soft money capture (%.0f%% of budget)", m.TaxIncentiveRate*100))
	}

	if m.DebtToEquityRatio > 1.5 {
		sc.Weaknesses = append(sc.Weaknesses, fmt.Sprintf("Highly leveraged structure (%.2f debt/equity)", m.DebtToEquityRatio))
	}

	if m.RiskScore != nil {
		switch {
		case *m.RiskScore > 65:
			sc.Weaknesses = append(sc.Weaknesses, fmt.Sprintf("Wide outcome dispersion (risk %.0f)", *m.RiskScore))
		case *m.RiskScore < 35:
			sc.Strengths = append(sc.Strengths, fmt.Sprintf("Narrow outcome dispersion (risk %.0f)", *m.RiskScore))
		}
	}
	if m.ProbabilityOfRecoupment != nil && *m.ProbabilityOfRecoupment >= 0.8 {
		sc.Strengths = append(sc.Strengths, fmt.Sprintf("Equity recoups in %.0f%% of simulated outcomes", *m.ProbabilityOfRecoupment*100))
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
