package service

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"filmstack/internal/capital"
	"filmstack/internal/models"
	"filmstack/internal/repository"
	"filmstack/internal/waterfall"
)

// CatalogService stores and lists the reusable building blocks: named capital
// stacks and waterfall structures. Everything is validated through the core
// constructors before it touches storage.
type CatalogService struct {
	Repo repository.Repository
}

type CreateStackRequest struct {
	Name          string               `json:"name"`
	ProjectName   string               `json:"project_name,omitempty"`
	ProjectBudget decimal.Decimal      `json:"project_budget"`
	Instruments   []capital.Instrument `json:"instruments"`
}

func (s *CatalogService) CreateStack(ctx context.Context, req CreateStackRequest) (*models.CapitalStack, error) {
	if s == nil || s.Repo == nil {
		return nil, invalidf("catalog storage unavailable")
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, invalidf("name is required")
	}
	stack, err := capital.NewStack(req.ProjectBudget, req.Instruments)
	if err != nil {
		return nil, invalidf("%v", err)
	}
	row, err := encodeStackRow(name, strings.TrimSpace(req.ProjectName), stack)
	if err != nil {
		return nil, err
	}
	if err := s.Repo.CreateCapitalStack(ctx, row); err != nil {
		return nil, err
	}
	return row, nil
}

func (s *CatalogService) GetStack(ctx context.Context, id uint64) (*models.CapitalStack, error) {
	if s == nil || s.Repo == nil {
		return nil, invalidf("catalog storage unavailable")
	}
	return s.Repo.GetCapitalStackByID(ctx, id)
}

func (s *CatalogService) ListStacks(ctx context.Context, limit, offset int) ([]models.CapitalStack, error) {
	if s == nil || s.Repo == nil {
		return nil, invalidf("catalog storage unavailable")
	}
	return s.Repo.ListCapitalStacks(ctx, limit, offset)
}

type CreateWaterfallRequest struct {
	Name     string              `json:"name"`
	Tranches []waterfall.Tranche `json:"tranches"`
}

func (s *CatalogService) CreateWaterfall(ctx context.Context, req CreateWaterfallRequest) (*models.WaterfallStructure, error) {
	if s == nil || s.Repo == nil {
		return nil, invalidf("catalog storage unavailable")
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, invalidf("name is required")
	}
	structure, err := waterfall.NewStructure(name, req.Tranches)
	if err != nil {
		return nil, invalidf("%v", err)
	}
	row, err := encodeStructureRow(structure)
	if err != nil {
		return nil, err
	}
	if err := s.Repo.CreateWaterfallStructure(ctx, row); err != nil {
		return nil, err
	}
	return row, nil
}

func (s *CatalogService) GetWaterfall(ctx context.Context, id uint64) (*models.WaterfallStructure, error) {
	if s == nil || s.Repo == nil {
		return nil, invalidf("catalog storage unavailable")
	}
	return s.Repo.GetWaterfallStructureByID(ctx, id)
}

func (s *CatalogService) ListWaterfalls(ctx context.Context, limit, offset int) ([]models.WaterfallStructure, error) {
	if s == nil || s.Repo == nil {
		return nil, invalidf("catalog storage unavailable")
	}
	return s.Repo.ListWaterfallStructures(ctx, limit, offset)
}
