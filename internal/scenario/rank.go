package scenario

import "sort"

// Rank orders scenarios best-first: optimization score descending, ties
// broken by lower risk score, then by higher probability of recoupment.
// The sort is stable, so re-ranking an unchanged set is a no-op.
func Rank(scenarios []*Scenario) {
	sort.SliceStable(scenarios, func(i, j int) bool {
		a, b := scenarios[i], scenarios[j]
		if a.OptimizationScore != b.OptimizationScore {
			return a.OptimizationScore > b.OptimizationScore
		}
		ra, rb := riskOf(a), riskOf(b)
		if ra != rb {
			return ra < rb
		}
		return probOf(a) > probOf(b)
	})
}

// Scenarios without a computed risk score sort as maximally risky.
func riskOf(s *Scenario) float64 {
	if s.Metrics.RiskScore == nil {
		return 100
	}
	return *s.Metrics.RiskScore
}

func probOf(s *Scenario) float64 {
	if s.Metrics.ProbabilityOfRecoupment == nil {
		return 0
	}
	return *s.Metrics.ProbabilityOfRecoupment
}
