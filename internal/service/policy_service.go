package service

import (
	"context"

	"go.uber.org/zap"

	"filmstack/internal/incentive"
	"filmstack/internal/models"
	"filmstack/internal/repository"
)

// RepoPolicySource adapts the repository's jurisdiction table to the
// incentive lookup. Unknown codes map to (nil, nil) like the static source.
type RepoPolicySource struct {
	Repo repository.Repository
}

func (s *RepoPolicySource) PolicyByCode(ctx context.Context, code string) (*incentive.Policy, error) {
	if s == nil || s.Repo == nil {
		return nil, nil
	}
	row, err := s.Repo.GetJurisdictionPolicyByCode(ctx, code)
	if err != nil || row == nil {
		return nil, err
	}
	return &incentive.Policy{
		Code:              row.Code,
		Name:              row.Name,
		CreditRate:        row.CreditRate,
		CapAmount:         row.CapAmount,
		MinQualifiedSpend: row.MinQualifiedSpend,
		Refundable:        row.Refundable,
	}, nil
}

// EnsureDefaultPolicies seeds the jurisdiction table with the built-in policy
// set. Existing rows win: operators may retune rates without a deploy
// clobbering them.
func EnsureDefaultPolicies(ctx context.Context, repo repository.Repository, logger *zap.Logger) error {
	if repo == nil {
		return nil
	}
	existing := map[string]bool{}
	rows, err := repo.ListJurisdictionPolicies(ctx)
	if err != nil {
		return err
	}
	for _, row := range rows {
		existing[row.Code] = true
	}
	seeded := 0
	for _, p := range incentive.DefaultPolicies() {
		if existing[p.Code] {
			continue
		}
		item := &models.JurisdictionPolicy{
			Code:              p.Code,
			Name:              p.Name,
			CreditRate:        p.CreditRate,
			CapAmount:         p.CapAmount,
			MinQualifiedSpend: p.MinQualifiedSpend,
			Refundable:        p.Refundable,
		}
		if err := repo.UpsertJurisdictionPolicy(ctx, item); err != nil {
			return err
		}
		seeded++
	}
	if seeded > 0 && logger != nil {
		logger.Info("seeded default jurisdiction policies", zap.Int("count", seeded))
	}
	return nil
}
