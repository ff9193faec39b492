// Package finmetrics computes investor return metrics from cash-flow
// timelines. Cash flows are indexed by period: index 0 is the investment
// period, subsequent indices are consecutive quarters.
package finmetrics

import (
	"math"

	"github.com/shopspring/decimal"
)

const (
	irrInitialGuess = 0.1
	irrTolerance    = 1e-6
	newtonMaxIter   = 50
	bisectMaxIter   = 100
	rateFloor       = -0.99
	rateCeiling     = 10.0
)

// NPV is the closed-form discounted sum of the series at the given rate.
func NPV(cashFlows []float64, rate float64) float64 {
	var sum float64
	for t, cf := range cashFlows {
		sum += cf / math.Pow(1.0+rate, float64(t))
	}
	return sum
}

// npvDeriv is dNPV/dr, used by the Newton step.
func npvDeriv(cashFlows []float64, rate float64) float64 {
	var sum float64
	for t, cf := range cashFlows {
		if t == 0 {
			continue
		}
		sum += -float64(t) * cf / math.Pow(1.0+rate, float64(t)+1)
	}
	return sum
}

// IRR solves for the per-period rate making NPV zero, via Newton-Raphson with
// a bisection fallback. A series with no sign change has no IRR; that is a
// normal outcome (a scenario that never recoups), so the result is nil rather
// than an error.
func IRR(cashFlows []float64) *float64 {
	if !hasSignChange(cashFlows) {
		return nil
	}

	r := irrInitialGuess
	for i := 0; i < newtonMaxIter; i++ {
		v := NPV(cashFlows, r)
		if math.Abs(v) < irrTolerance {
			return &r
		}
		d := npvDeriv(cashFlows, r)
		if math.Abs(d) < 1e-12 {
			break
		}
		next := r - v/d
		if next <= rateFloor || next >= rateCeiling || math.IsNaN(next) || math.IsInf(next, 0) {
			break
		}
		r = next
	}

	return bisectIRR(cashFlows)
}

func bisectIRR(cashFlows []float64) *float64 {
	lo, hi := rateFloor, rateCeiling
	fLo := NPV(cashFlows, lo)
	fHi := NPV(cashFlows, hi)
	if fLo == 0 {
		return &lo
	}
	if fHi == 0 {
		return &hi
	}
	if (fLo > 0) == (fHi > 0) {
		return nil
	}
	var mid float64
	for i := 0; i < bisectMaxIter; i++ {
		mid = (lo + hi) / 2
		fMid := NPV(cashFlows, mid)
		if math.Abs(fMid) < irrTolerance {
			return &mid
		}
		if (fMid > 0) == (fLo > 0) {
			lo, fLo = mid, fMid
		} else {
			hi = mid
		}
	}
	return &mid
}

func hasSignChange(cashFlows []float64) bool {
	seenNeg, seenPos := false, false
	for _, cf := range cashFlows {
		if cf < 0 {
			seenNeg = true
		}
		if cf > 0 {
			seenPos = true
		}
	}
	return seenNeg && seenPos
}

// CashOnCash is the simple received/invested multiple. Zero investment yields
// zero rather than a division error.
func CashOnCash(invested, received decimal.Decimal) float64 {
	if invested.LessThanOrEqual(decimal.Zero) {
		return 0
	}
	m, _ := received.Div(invested).Float64()
	return m
}

// Annualize converts a per-quarter rate to an annual figure by compounding.
func Annualize(quarterly float64) float64 {
	return math.Pow(1.0+quarterly, 4) - 1.0
}
