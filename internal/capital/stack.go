package capital

import (
	"fmt"

	"github.com/shopspring/decimal"
)

type InstrumentType string

const (
	SeniorDebt    InstrumentType = "senior_debt"
	GapFinancing  InstrumentType = "gap_financing"
	MezzanineDebt InstrumentType = "mezzanine_debt"
	Equity        InstrumentType = "equity"
	TaxIncentive  InstrumentType = "tax_incentive"
	Presales      InstrumentType = "presales"
	Grant         InstrumentType = "grant"
)

// debtTypes are the instrument types counted toward total debt.
var debtTypes = map[InstrumentType]bool{
	SeniorDebt:    true,
	GapFinancing:  true,
	MezzanineDebt: true,
}

// Instrument is one financing line in a capital stack. Cap, ParticipationRate
// and CostRate are optional; absent values mean "not applicable to this type".
type Instrument struct {
	Type              InstrumentType   `json:"type"`
	Amount            decimal.Decimal  `json:"amount"`
	PriorityRank      int              `json:"priority_rank"`
	Cap               *decimal.Decimal `json:"cap,omitempty"`
	ParticipationRate *float64         `json:"participation_rate,omitempty"`
	CostRate          *float64         `json:"cost_rate,omitempty"`
}

// Stack is an immutable, validated capital stack. Build one with NewStack;
// consumers read it but never mutate it.
type Stack struct {
	ProjectBudget decimal.Decimal `json:"project_budget"`
	Instruments   []Instrument    `json:"instruments"`
}

// budgetTolerance is one cent: instrument amounts must sum to the project
// budget within this bound.
var budgetTolerance = decimal.NewFromFloat(0.01)

func NewStack(projectBudget decimal.Decimal, instruments []Instrument) (*Stack, error) {
	if projectBudget.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("capital: project budget must be positive, got %s", projectBudget.String())
	}
	if len(instruments) == 0 {
		return nil, fmt.Errorf("capital: stack requires at least one instrument")
	}
	sum := decimal.Zero
	for i, in := range instruments {
		if in.Amount.IsNegative() {
			return nil, fmt.Errorf("capital: instrument %d (%s) has negative amount %s", i, in.Type, in.Amount.String())
		}
		if in.ParticipationRate != nil && (*in.ParticipationRate < 0 || *in.ParticipationRate > 1) {
			return nil, fmt.Errorf("capital: instrument %d (%s) participation rate %v outside [0,1]", i, in.Type, *in.ParticipationRate)
		}
		sum = sum.Add(in.Amount)
	}
	if sum.Sub(projectBudget).Abs().GreaterThan(budgetTolerance) {
		return nil, fmt.Errorf("capital: instrument amounts sum to %s, budget is %s", sum.String(), projectBudget.String())
	}
	out := &Stack{
		ProjectBudget: projectBudget,
		Instruments:   append([]Instrument(nil), instruments...),
	}
	return out, nil
}

func (s *Stack) TotalDebt() decimal.Decimal {
	total := decimal.Zero
	for _, in := range s.Instruments {
		if debtTypes[in.Type] {
			total = total.Add(in.Amount)
		}
	}
	return total
}

func (s *Stack) TotalEquity() decimal.Decimal {
	total := decimal.Zero
	for _, in := range s.Instruments {
		if in.Type == Equity {
			total = total.Add(in.Amount)
		}
	}
	return total
}

// DebtToEquityRatio returns 0 when the stack carries no equity; callers that
// treat zero equity as a constraint violation check TotalEquity directly.
func (s *Stack) DebtToEquityRatio() float64 {
	eq := s.TotalEquity()
	if eq.IsZero() {
		return 0
	}
	ratio, _ := s.TotalDebt().Div(eq).Float64()
	return ratio
}

func (s *Stack) AmountOf(t InstrumentType) decimal.Decimal {
	total := decimal.Zero
	for _, in := range s.Instruments {
		if in.Type == t {
			total = total.Add(in.Amount)
		}
	}
	return total
}

func (s *Stack) InstrumentOf(t InstrumentType) *Instrument {
	for i := range s.Instruments {
		if s.Instruments[i].Type == t {
			return &s.Instruments[i]
		}
	}
	return nil
}
