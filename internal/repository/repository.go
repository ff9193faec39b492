package repository

import (
	"context"
	"time"

	"filmstack/internal/models"
)

// ListRunsParams filters simulation run listings.
type ListRunsParams struct {
	Status *string
	Limit  int
	Offset int
}

// Repository is the persistence surface consumed by the services. The
// simulation core never touches it; services load value objects through it
// and hand them to the engine.
type Repository interface {
	// Capital stacks.
	CreateCapitalStack(ctx context.Context, item *models.CapitalStack) error
	GetCapitalStackByID(ctx context.Context, id uint64) (*models.CapitalStack, error)
	ListCapitalStacks(ctx context.Context, limit, offset int) ([]models.CapitalStack, error)

	// Waterfall structures.
	CreateWaterfallStructure(ctx context.Context, item *models.WaterfallStructure) error
	GetWaterfallStructureByID(ctx context.Context, id uint64) (*models.WaterfallStructure, error)
	ListWaterfallStructures(ctx context.Context, limit, offset int) ([]models.WaterfallStructure, error)

	// Scenario batches.
	CreateScenarioBatch(ctx context.Context, batch *models.ScenarioBatch, results []models.ScenarioResult) error
	GetScenarioBatch(ctx context.Context, batchID string) (*models.ScenarioBatch, []models.ScenarioResult, error)

	// Simulation runs.
	CreateSimulationRun(ctx context.Context, item *models.SimulationRun) error
	GetSimulationRun(ctx context.Context, runID string) (*models.SimulationRun, error)
	ListSimulationRuns(ctx context.Context, params ListRunsParams) ([]models.SimulationRun, error)
	UpdateSimulationRunProgress(ctx context.Context, runID string, completed int) error
	UpdateSimulationRunStatus(ctx context.Context, runID, status string, result []byte, errMsg string) error
	DeleteSimulationRunsBefore(ctx context.Context, statuses []string, before time.Time) (int64, error)

	// Jurisdiction policies.
	UpsertJurisdictionPolicy(ctx context.Context, item *models.JurisdictionPolicy) error
	GetJurisdictionPolicyByCode(ctx context.Context, code string) (*models.JurisdictionPolicy, error)
	ListJurisdictionPolicies(ctx context.Context) ([]models.JurisdictionPolicy, error)
}
