package scenario

import (
	"context"
	"math"
	"testing"

	"github.com/shopspring/decimal"

	"filmstack/internal/capital"
	"filmstack/internal/incentive"
	"filmstack/internal/montecarlo"
	"filmstack/internal/revenue"
	"filmstack/internal/waterfall"
)

func testEvaluator() *Evaluator {
	return &Evaluator{
		Constraints: DefaultConstraints(),
		Bounds:      DefaultBounds(),
		Incentives:  &incentive.TableLookup{Source: incentive.NewStaticSource(incentive.DefaultPolicies())},
		Simulator:   &montecarlo.Simulator{},
	}
}

func evalParams(t *testing.T) EvaluateParams {
	t.Helper()
	return EvaluateParams{
		Template:     Balanced,
		Stack:        builderStack(t),
		TotalRevenue: decimal.NewFromInt(75_000_000),
		Strategy:     revenue.WideTheatrical,
		Options:      waterfall.Options{DistributableShare: 0.7},
		Jurisdiction: "GA",
	}
}

func TestEvaluate_BaselineMetrics(t *testing.T) {
	sc, err := testEvaluator().Evaluate(context.Background(), evalParams(t))
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if !sc.ValidationPassed {
		t.Fatalf("validation failed: %v", sc.ValidationErrors)
	}
	if sc.Metrics.EquityIRR == nil {
		t.Fatalf("equity irr=nil want a value")
	}
	// A 2.5x revenue multiple project pays equity back around 30% per quarter.
	if *sc.Metrics.EquityIRR < 0.25 || *sc.Metrics.EquityIRR > 0.35 {
		t.Fatalf("equity irr=%f want in (0.25, 0.35)", *sc.Metrics.EquityIRR)
	}
	// Debt recoups principal plus cost: 16.815M over 15M of debt.
	if math.Abs(sc.Metrics.DebtCoverageRatio-1.121) > 1e-3 {
		t.Fatalf("debt coverage=%f want=1.121", sc.Metrics.DebtCoverageRatio)
	}
	if math.Abs(sc.Metrics.DebtToEquityRatio-15.0/8.5) > 1e-9 {
		t.Fatalf("d/e=%f want=%f", sc.Metrics.DebtToEquityRatio, 15.0/8.5)
	}
	if math.Abs(sc.Metrics.TaxIncentiveRate-0.15) > 1e-9 {
		t.Fatalf("tax rate=%f want=0.15", sc.Metrics.TaxIncentiveRate)
	}
	// Blended cost: (10.5*.10 + 1.5*.15 + 3*.18 + 2*.10 + 8.5*.20) / 30.
	if math.Abs(sc.Metrics.CostOfCapital-3.715/30.0) > 1e-6 {
		t.Fatalf("cost of capital=%f want=%f", sc.Metrics.CostOfCapital, 3.715/30.0)
	}
	if sc.OptimizationScore <= 0 || sc.OptimizationScore > 100 {
		t.Fatalf("score=%f outside (0,100]", sc.OptimizationScore)
	}
	if sc.Metrics.RiskScore != nil {
		t.Fatalf("risk score=%f without monte carlo, want nil", *sc.Metrics.RiskScore)
	}
}

func TestEvaluate_ReturnsCoverAllStakeholders(t *testing.T) {
	sc, err := testEvaluator().Evaluate(context.Background(), evalParams(t))
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	seen := map[string]bool{}
	for _, ret := range sc.Returns {
		seen[ret.StakeholderID] = true
	}
	for _, id := range []string{StakeholderSeniorLender, StakeholderGapLender, StakeholderMezzanineLender, StakeholderEquity, StakeholderTalentPool} {
		if !seen[id] {
			t.Fatalf("missing return row for %s", id)
		}
	}
}

func TestEvaluate_ConstraintViolationsAreNonFatal(t *testing.T) {
	stack, err := capital.NewStack(decimal.NewFromInt(10_000_000), []capital.Instrument{
		{Type: capital.SeniorDebt, Amount: decimal.NewFromInt(7_000_000)},
		{Type: capital.MezzanineDebt, Amount: decimal.NewFromInt(2_200_000)},
		{Type: capital.Equity, Amount: decimal.NewFromInt(800_000)},
	})
	if err != nil {
		t.Fatalf("new stack: %v", err)
	}
	p := evalParams(t)
	p.Stack = stack
	p.TotalRevenue = decimal.NewFromInt(25_000_000)
	p.Jurisdiction = ""

	sc, err := testEvaluator().Evaluate(context.Background(), p)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if sc.ValidationPassed {
		t.Fatalf("11.5x leverage and 8%% equity should fail validation")
	}
	if len(sc.ValidationErrors) != 2 {
		t.Fatalf("validation errors=%v want d/e and min-equity violations", sc.ValidationErrors)
	}
	// Metrics are still computed for invalid candidates.
	if sc.Metrics.TotalDebt.IsZero() || sc.OptimizationScore < 0 {
		t.Fatalf("invalid scenario lost its metrics")
	}
}

func TestEvaluate_TaxIncentiveAgainstJurisdiction(t *testing.T) {
	// 4.5M of tax credits against GA's 30% of a 30M spend (9M) passes.
	sc, err := testEvaluator().Evaluate(context.Background(), evalParams(t))
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if !sc.ValidationPassed {
		t.Fatalf("validation failed: %v", sc.ValidationErrors)
	}

	// An unknown jurisdiction grants nothing, so the same line fails.
	p := evalParams(t)
	p.Jurisdiction = "ZZ"
	sc, err = testEvaluator().Evaluate(context.Background(), p)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if sc.ValidationPassed {
		t.Fatalf("tax line should fail without a granting jurisdiction")
	}
}

func TestEvaluate_StrategicBlend(t *testing.T) {
	base, err := testEvaluator().Evaluate(context.Background(), evalParams(t))
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}

	strategic := 100.0
	p := evalParams(t)
	p.StrategicScore = &strategic
	blended, err := testEvaluator().Evaluate(context.Background(), p)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	want := 0.7*base.OptimizationScore + 0.3*100
	if math.Abs(blended.OptimizationScore-want) > 1e-9 {
		t.Fatalf("blended score=%f want=%f", blended.OptimizationScore, want)
	}
}

func TestEvaluate_WithMonteCarlo(t *testing.T) {
	seed := int64(11)
	p := evalParams(t)
	p.RunMonteCarlo = true
	p.MonteCarlo = montecarlo.Config{Iterations: 200, BatchSize: 50, Workers: 4, Seed: &seed}

	sc, err := testEvaluator().Evaluate(context.Background(), p)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if sc.MonteCarlo == nil {
		t.Fatalf("monte carlo result missing")
	}
	if sc.Metrics.RiskScore == nil {
		t.Fatalf("risk score missing after monte carlo")
	}
	if *sc.Metrics.RiskScore < 0 || *sc.Metrics.RiskScore > 100 {
		t.Fatalf("risk score=%f outside [0,100]", *sc.Metrics.RiskScore)
	}
	if sc.Metrics.ProbabilityOfRecoupment == nil {
		t.Fatalf("probability of recoupment missing after monte carlo")
	}
	if *sc.Metrics.ProbabilityOfRecoupment < 0 || *sc.Metrics.ProbabilityOfRecoupment > 1 {
		t.Fatalf("probability=%f outside [0,1]", *sc.Metrics.ProbabilityOfRecoupment)
	}
}

func TestEvaluate_NilStack(t *testing.T) {
	p := evalParams(t)
	p.Stack = nil
	if _, err := testEvaluator().Evaluate(context.Background(), p); err == nil {
		t.Fatalf("want error for nil stack")
	}
}
