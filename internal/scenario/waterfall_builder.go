package scenario

import (
	"github.com/shopspring/decimal"

	"filmstack/internal/capital"
	"filmstack/internal/waterfall"
)

// Stakeholder IDs used by generated waterfalls.
const (
	StakeholderSeniorLender    = "senior_lender"
	StakeholderGapLender       = "gap_lender"
	StakeholderMezzanineLender = "mezzanine_lender"
	StakeholderEquity          = "equity"
	StakeholderTalentPool      = "talent_pool"
)

// equityPremium is the standard equity recoupment multiple: equity recoups
// 120% of its investment before backend participation kicks in.
const equityPremium = 1.2

// talentParticipation is the backend share reserved for talent and producer
// pools. Together with equity's share it need not reach 1.0; the rest is
// studio residual.
const talentParticipation = 0.2

var lenderByType = map[capital.InstrumentType]string{
	capital.SeniorDebt:    StakeholderSeniorLender,
	capital.GapFinancing:  StakeholderGapLender,
	capital.MezzanineDebt: StakeholderMezzanineLender,
}

// DefaultWaterfall derives a recoupment structure from a capital stack:
// debt tranches recoup principal plus financing cost in seniority order,
// equity recoups at a premium, then equity and talent split the backend.
// Soft money (tax incentives, grants) and presales fund the budget but do
// not participate in the waterfall.
func DefaultWaterfall(stack *capital.Stack) (*waterfall.Structure, error) {
	tranches := make([]waterfall.Tranche, 0, 6)
	rank := 1

	for _, t := range []capital.InstrumentType{capital.SeniorDebt, capital.GapFinancing, capital.MezzanineDebt} {
		in := stack.InstrumentOf(t)
		if in == nil || in.Amount.LessThanOrEqual(decimal.Zero) {
			continue
		}
		tranches = append(tranches, waterfall.Tranche{
			TrancheID:         string(t),
			StakeholderID:     lenderByType[t],
			PriorityRank:      rank,
			RecoupmentTarget:  recoupmentTarget(in),
			ParticipationMode: waterfall.Capped,
		})
		rank++
	}

	if eq := stack.InstrumentOf(capital.Equity); eq != nil && eq.Amount.GreaterThan(decimal.Zero) {
		tranches = append(tranches, waterfall.Tranche{
			TrancheID:         "equity_recoupment",
			StakeholderID:     StakeholderEquity,
			PriorityRank:      rank,
			RecoupmentTarget:  eq.Amount.Mul(decimal.NewFromFloat(equityPremium)).Round(2),
			ParticipationMode: waterfall.Capped,
		})
		rank++

		participation := defaultEquityParticipation
		if eq.ParticipationRate != nil {
			participation = *eq.ParticipationRate
		}
		tranches = append(tranches, waterfall.Tranche{
			TrancheID:         "equity_backend",
			StakeholderID:     StakeholderEquity,
			PriorityRank:      rank,
			ParticipationMode: waterfall.UncappedProRata,
			ParticipationRate: participation,
		})
		rank++
	}

	tranches = append(tranches, waterfall.Tranche{
		TrancheID:         "talent_pool",
		StakeholderID:     StakeholderTalentPool,
		PriorityRank:      rank,
		ParticipationMode: waterfall.UncappedProRata,
		ParticipationRate: talentParticipation,
	})

	return waterfall.NewStructure("derived", tranches)
}

// recoupmentTarget is principal grossed up by the instrument's financing
// cost: a 10M senior loan at 10% recoups 11M.
func recoupmentTarget(in *capital.Instrument) decimal.Decimal {
	cost := defaultCostRates[in.Type]
	if in.CostRate != nil {
		cost = *in.CostRate
	}
	return in.Amount.Mul(decimal.NewFromFloat(1 + cost)).Round(2)
}

// InvestedByStakeholder maps each waterfall stakeholder to the cash it put
// into the stack. Talent pools invest nothing and get a zero entry.
func InvestedByStakeholder(stack *capital.Stack) map[string]decimal.Decimal {
	out := map[string]decimal.Decimal{
		StakeholderSeniorLender:    stack.AmountOf(capital.SeniorDebt),
		StakeholderGapLender:       stack.AmountOf(capital.GapFinancing),
		StakeholderMezzanineLender: stack.AmountOf(capital.MezzanineDebt),
		StakeholderEquity:          stack.AmountOf(capital.Equity),
	}
	for id, amt := range out {
		if amt.LessThanOrEqual(decimal.Zero) {
			delete(out, id)
		}
	}
	return out
}
