package waterfall

import (
	"sort"

	"github.com/shopspring/decimal"

	"filmstack/internal/finmetrics"
)

// StakeholderReturn is a derived per-stakeholder summary of one execution.
// IRR is the per-quarter rate; nil when the series never recoups enough to
// produce a sign change.
type StakeholderReturn struct {
	StakeholderID string          `json:"stakeholder_id"`
	Invested      decimal.Decimal `json:"invested"`
	Received      decimal.Decimal `json:"received"`
	Profit        decimal.Decimal `json:"profit"`
	CashOnCash    float64         `json:"cash_on_cash"`
	IRR           *float64        `json:"irr"`
	Recouped      bool            `json:"recouped"`
}

// BuildReturns computes fresh StakeholderReturn rows for every stakeholder in
// the structure. Invested amounts come from the capital stack; stakeholders
// that appear in the waterfall but put no cash in (talent pools, sales
// corridors) get zero-investment rows with no IRR.
func BuildReturns(tl *Timeline, structure *Structure, invested map[string]decimal.Decimal) []StakeholderReturn {
	ids := make([]string, 0, len(structure.Tranches))
	seen := map[string]bool{}
	for _, tr := range structure.Tranches {
		if !seen[tr.StakeholderID] {
			seen[tr.StakeholderID] = true
			ids = append(ids, tr.StakeholderID)
		}
	}
	sort.Strings(ids)

	out := make([]StakeholderReturn, 0, len(ids))
	for _, id := range ids {
		inv := invested[id]
		received := tl.Received(structure, id)
		ret := StakeholderReturn{
			StakeholderID: id,
			Invested:      inv,
			Received:      received,
			Profit:        received.Sub(inv),
			CashOnCash:    finmetrics.CashOnCash(inv, received),
			Recouped:      inv.GreaterThan(decimal.Zero) && received.GreaterThanOrEqual(inv),
		}
		if inv.GreaterThan(decimal.Zero) {
			ret.IRR = finmetrics.IRR(tl.CashFlows(structure, id, inv))
		}
		out = append(out, ret)
	}
	return out
}
