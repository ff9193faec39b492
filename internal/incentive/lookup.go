// Package incentive is the jurisdiction/tax-policy collaborator: given a
// jurisdiction code and the qualified spend, it answers what production
// credit the project can capture. It is a rules-table lookup, not part of
// the simulation core.
package incentive

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
)

// Policy is one jurisdiction's incentive program.
type Policy struct {
	Code              string           `json:"code"`
	Name              string           `json:"name"`
	CreditRate        float64          `json:"credit_rate"`
	CapAmount         *decimal.Decimal `json:"cap_amount,omitempty"`
	MinQualifiedSpend decimal.Decimal  `json:"min_qualified_spend"`
	Refundable        bool             `json:"refundable"`
}

// Credit is the answer to a lookup: the capturable amount and the effective
// rate it was computed at.
type Credit struct {
	Jurisdiction string          `json:"jurisdiction"`
	Rate         float64         `json:"rate"`
	Amount       decimal.Decimal `json:"amount"`
	Refundable   bool            `json:"refundable"`
}

// Lookup resolves a jurisdiction's credit for a given qualified spend.
// Unknown jurisdictions and spend below the program minimum yield (nil, nil):
// no credit, not an error.
type Lookup interface {
	Lookup(ctx context.Context, jurisdiction string, qualifiedSpend decimal.Decimal) (*Credit, error)
}

// PolicySource abstracts where policies come from; satisfied by the gorm
// repository and by StaticSource.
type PolicySource interface {
	PolicyByCode(ctx context.Context, code string) (*Policy, error)
}

type TableLookup struct {
	Source PolicySource
}

func (l *TableLookup) Lookup(ctx context.Context, jurisdiction string, qualifiedSpend decimal.Decimal) (*Credit, error) {
	code := strings.ToUpper(strings.TrimSpace(jurisdiction))
	if code == "" || l == nil || l.Source == nil {
		return nil, nil
	}
	policy, err := l.Source.PolicyByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if policy == nil {
		return nil, nil
	}
	if qualifiedSpend.LessThan(policy.MinQualifiedSpend) {
		return nil, nil
	}
	amount := qualifiedSpend.Mul(decimal.NewFromFloat(policy.CreditRate)).Round(2)
	if policy.CapAmount != nil && amount.GreaterThan(*policy.CapAmount) {
		amount = *policy.CapAmount
	}
	return &Credit{
		Jurisdiction: policy.Code,
		Rate:         policy.CreditRate,
		Amount:       amount,
		Refundable:   policy.Refundable,
	}, nil
}

// StaticSource serves a fixed in-memory policy table; used as the seed set
// and in tests.
type StaticSource struct {
	byCode map[string]Policy
}

func NewStaticSource(policies []Policy) *StaticSource {
	m := make(map[string]Policy, len(policies))
	for _, p := range policies {
		m[strings.ToUpper(p.Code)] = p
	}
	return &StaticSource{byCode: m}
}

func (s *StaticSource) PolicyByCode(_ context.Context, code string) (*Policy, error) {
	p, ok := s.byCode[strings.ToUpper(code)]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func dec(v float64) decimal.Decimal { return decimal.NewFromFloat(v) }

func decPtr(v float64) *decimal.Decimal {
	d := decimal.NewFromFloat(v)
	return &d
}

// DefaultPolicies is the seed rules table for common production jurisdictions.
func DefaultPolicies() []Policy {
	return []Policy{
		{Code: "GA", Name: "Georgia Film Tax Credit", CreditRate: 0.30, MinQualifiedSpend: dec(500_000), Refundable: false},
		{Code: "NM", Name: "New Mexico Film Production Tax Credit", CreditRate: 0.25, CapAmount: decPtr(20_000_000), MinQualifiedSpend: dec(0), Refundable: true},
		{Code: "LA", Name: "Louisiana Motion Picture Production Program", CreditRate: 0.25, CapAmount: decPtr(20_000_000), MinQualifiedSpend: dec(300_000), Refundable: false},
		{Code: "UK", Name: "UK Audio-Visual Expenditure Credit", CreditRate: 0.2552, MinQualifiedSpend: dec(0), Refundable: true},
		{Code: "IE", Name: "Ireland Section 481", CreditRate: 0.32, CapAmount: decPtr(44_000_000), MinQualifiedSpend: dec(250_000), Refundable: true},
		{Code: "ON", Name: "Ontario Production Services Tax Credit", CreditRate: 0.215, MinQualifiedSpend: dec(1_000_000), Refundable: true},
	}
}
