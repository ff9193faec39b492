package finmetrics

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"
)

func TestNPV_ZeroRateIsPlainSum(t *testing.T) {
	got := NPV([]float64{-100, 30, 30, 30, 30}, 0)
	if math.Abs(got-20) > 1e-9 {
		t.Fatalf("npv=%f want=20", got)
	}
}

func TestNPV_Discounting(t *testing.T) {
	// -100 now, 110 one period later at 10% discounts to exactly zero.
	got := NPV([]float64{-100, 110}, 0.10)
	if math.Abs(got) > 1e-9 {
		t.Fatalf("npv=%f want=0", got)
	}
}

func TestIRR_KnownRate(t *testing.T) {
	// 100 -> 150 over three periods: (1.5)^(1/3)-1 = 14.47%.
	irr := IRR([]float64{-100, 0, 0, 150})
	if irr == nil {
		t.Fatalf("irr=nil want a value")
	}
	want := math.Pow(1.5, 1.0/3.0) - 1.0
	if math.Abs(*irr-want) > 1e-4 {
		t.Fatalf("irr=%f want=%f", *irr, want)
	}
}

func TestIRR_NoSignChangeIsNil(t *testing.T) {
	if irr := IRR([]float64{-100, 0, 0, 0}); irr != nil {
		t.Fatalf("irr=%f want nil for total loss", *irr)
	}
	if irr := IRR([]float64{100, 50, 25}); irr != nil {
		t.Fatalf("irr=%f want nil for all-positive series", *irr)
	}
	if irr := IRR(nil); irr != nil {
		t.Fatalf("irr=%f want nil for empty series", *irr)
	}
}

func TestIRR_NegativeRate(t *testing.T) {
	// Recovering only 80 of 100 over two periods is a negative but defined rate.
	irr := IRR([]float64{-100, 40, 40})
	if irr == nil {
		t.Fatalf("irr=nil want a negative value")
	}
	if *irr >= 0 {
		t.Fatalf("irr=%f want < 0", *irr)
	}
	if v := NPV([]float64{-100, 40, 40}, *irr); math.Abs(v) > 1e-3 {
		t.Fatalf("npv at irr=%f, not a root", v)
	}
}

func TestIRR_RootIsConsistent(t *testing.T) {
	flows := []float64{-8.5, 0, 4.185, 6.1575, 4.725, 2.625, 2.625, 1.3125, 1.3125}
	irr := IRR(flows)
	if irr == nil {
		t.Fatalf("irr=nil want a value")
	}
	if v := NPV(flows, *irr); math.Abs(v) > 1e-3 {
		t.Fatalf("npv(%f)=%f, not a root", *irr, v)
	}
	if *irr < 0.25 || *irr > 0.35 {
		t.Fatalf("irr=%f want in (0.25, 0.35)", *irr)
	}
}

func TestCashOnCash(t *testing.T) {
	got := CashOnCash(decimal.NewFromInt(100), decimal.NewFromInt(250))
	if math.Abs(got-2.5) > 1e-9 {
		t.Fatalf("multiple=%f want=2.5", got)
	}
	if got := CashOnCash(decimal.Zero, decimal.NewFromInt(50)); got != 0 {
		t.Fatalf("multiple=%f want=0 for zero investment", got)
	}
}

func TestAnnualize(t *testing.T) {
	got := Annualize(0.05)
	want := math.Pow(1.05, 4) - 1
	if math.Abs(got-want) > 1e-12 {
		t.Fatalf("annualized=%f want=%f", got, want)
	}
}
