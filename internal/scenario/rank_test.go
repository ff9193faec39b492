package scenario

import "testing"

func rankScenario(tpl Template, score float64, risk, prob *float64) *Scenario {
	s := &Scenario{Template: tpl, OptimizationScore: score}
	s.Metrics.RiskScore = risk
	s.Metrics.ProbabilityOfRecoupment = prob
	return s
}

func fp(v float64) *float64 { return &v }

func TestRank_ScoreDescending(t *testing.T) {
	scenarios := []*Scenario{
		rankScenario(LowRisk, 40, nil, nil),
		rankScenario(DebtHeavy, 80, nil, nil),
		rankScenario(Balanced, 60, nil, nil),
	}
	Rank(scenarios)
	want := []Template{DebtHeavy, Balanced, LowRisk}
	for i, tpl := range want {
		if scenarios[i].Template != tpl {
			t.Fatalf("position %d: got=%s want=%s", i, scenarios[i].Template, tpl)
		}
	}
}

func TestRank_TieBrokenByLowerRisk(t *testing.T) {
	scenarios := []*Scenario{
		rankScenario(DebtHeavy, 70, fp(60), nil),
		rankScenario(LowRisk, 70, fp(20), nil),
	}
	Rank(scenarios)
	if scenarios[0].Template != LowRisk {
		t.Fatalf("equal scores: got=%s first, want lower-risk %s", scenarios[0].Template, LowRisk)
	}
}

func TestRank_MissingRiskSortsAsMaximallyRisky(t *testing.T) {
	scenarios := []*Scenario{
		rankScenario(Balanced, 70, nil, nil),
		rankScenario(LowRisk, 70, fp(95), nil),
	}
	Rank(scenarios)
	if scenarios[0].Template != LowRisk {
		t.Fatalf("nil risk should lose to risk 95, got=%s first", scenarios[0].Template)
	}
}

func TestRank_TieBrokenByHigherRecoupmentProbability(t *testing.T) {
	scenarios := []*Scenario{
		rankScenario(DebtHeavy, 70, fp(40), fp(0.55)),
		rankScenario(Balanced, 70, fp(40), fp(0.90)),
		rankScenario(LowRisk, 70, fp(40), nil),
	}
	Rank(scenarios)
	want := []Template{Balanced, DebtHeavy, LowRisk}
	for i, tpl := range want {
		if scenarios[i].Template != tpl {
			t.Fatalf("position %d: got=%s want=%s", i, scenarios[i].Template, tpl)
		}
	}
}

func TestRank_StableOnFullTies(t *testing.T) {
	first := rankScenario(Balanced, 50, fp(30), fp(0.5))
	second := rankScenario(Balanced, 50, fp(30), fp(0.5))
	scenarios := []*Scenario{first, second}
	Rank(scenarios)
	if scenarios[0] != first || scenarios[1] != second {
		t.Fatalf("full ties must keep input order")
	}
}
