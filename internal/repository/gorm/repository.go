package gormrepository

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"filmstack/internal/db"
	"filmstack/internal/models"
	"filmstack/internal/repository"
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// --- capital stacks ---------------------------------------------------------

func (s *Store) CreateCapitalStack(ctx context.Context, item *models.CapitalStack) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) GetCapitalStackByID(ctx context.Context, id uint64) (*models.CapitalStack, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.CapitalStack
	err := s.db.WithContext(ctx).First(&item, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListCapitalStacks(ctx context.Context, limit, offset int) ([]models.CapitalStack, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.CapitalStack
	err := s.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(normalizeLimit(limit, 100)).
		Offset(normalizeOffset(offset)).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// --- waterfall structures ---------------------------------------------------

func (s *Store) CreateWaterfallStructure(ctx context.Context, item *models.WaterfallStructure) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) GetWaterfallStructureByID(ctx context.Context, id uint64) (*models.WaterfallStructure, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.WaterfallStructure
	err := s.db.WithContext(ctx).First(&item, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListWaterfallStructures(ctx context.Context, limit, offset int) ([]models.WaterfallStructure, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.WaterfallStructure
	err := s.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(normalizeLimit(limit, 100)).
		Offset(normalizeOffset(offset)).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// --- scenario batches -------------------------------------------------------

// CreateScenarioBatch writes the batch header and its ranked results in one
// transaction so a batch is never visible half-written.
func (s *Store) CreateScenarioBatch(ctx context.Context, batch *models.ScenarioBatch, results []models.ScenarioResult) error {
	if s == nil || s.db == nil || batch == nil {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(batch).Error; err != nil {
			return err
		}
		for i := range results {
			results[i].BatchID = batch.BatchID
		}
		if len(results) > 0 {
			if err := tx.Create(&results).Error; err != nil {
				return err
			}
		}
		if len(results) > 0 {
			batch.BestScenarioID = &results[0].ID
			if err := tx.Model(batch).Update("best_scenario_id", results[0].ID).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) GetScenarioBatch(ctx context.Context, batchID string) (*models.ScenarioBatch, []models.ScenarioResult, error) {
	if s == nil || s.db == nil {
		return nil, nil, nil
	}
	var batch models.ScenarioBatch
	err := s.db.WithContext(ctx).First(&batch, "batch_id = ?", batchID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}
	var results []models.ScenarioResult
	if err := s.db.WithContext(ctx).Where("batch_id = ?", batchID).Order("rank ASC").Find(&results).Error; err != nil {
		return nil, nil, err
	}
	return &batch, results, nil
}

// --- simulation runs --------------------------------------------------------

func (s *Store) CreateSimulationRun(ctx context.Context, item *models.SimulationRun) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) GetSimulationRun(ctx context.Context, runID string) (*models.SimulationRun, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.SimulationRun
	err := s.db.WithContext(ctx).First(&item, "run_id = ?", runID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListSimulationRuns(ctx context.Context, params repository.ListRunsParams) ([]models.SimulationRun, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.SimulationRun{})
	if params.Status != nil && strings.TrimSpace(*params.Status) != "" {
		query = query.Where("status = ?", strings.TrimSpace(*params.Status))
	}
	var items []models.SimulationRun
	err := query.
		Order("created_at DESC").
		Limit(normalizeLimit(params.Limit, 100)).
		Offset(normalizeOffset(params.Offset)).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) UpdateSimulationRunProgress(ctx context.Context, runID string, completed int) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).
		Model(&models.SimulationRun{}).
		Where("run_id = ?", runID).
		Update("completed_iterations", completed).Error
}

func (s *Store) UpdateSimulationRunStatus(ctx context.Context, runID, status string, result []byte, errMsg string) error {
	if s == nil || s.db == nil {
		return nil
	}
	updates := map[string]any{
		"status": status,
		"error":  errMsg,
	}
	if len(result) > 0 {
		updates["result"] = result
	}
	switch status {
	case models.RunStatusCompleted, models.RunStatusCancelled, models.RunStatusFailed:
		now := db.NowUTC()
		updates["completed_at"] = &now
	}
	return s.db.WithContext(ctx).
		Model(&models.SimulationRun{}).
		Where("run_id = ?", runID).
		Updates(updates).Error
}

func (s *Store) DeleteSimulationRunsBefore(ctx context.Context, statuses []string, before time.Time) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	res := s.db.WithContext(ctx).
		Where("status IN ?", statuses).
		Where("created_at < ?", before).
		Delete(&models.SimulationRun{})
	return res.RowsAffected, res.Error
}

// --- jurisdiction policies --------------------------------------------------

func (s *Store) UpsertJurisdictionPolicy(ctx context.Context, item *models.JurisdictionPolicy) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "code"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"name", "credit_rate", "cap_amount", "min_qualified_spend", "refundable", "updated_at",
		}),
	}).Create(item).Error
}

func (s *Store) GetJurisdictionPolicyByCode(ctx context.Context, code string) (*models.JurisdictionPolicy, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.JurisdictionPolicy
	err := s.db.WithContext(ctx).First(&item, "code = ?", strings.ToUpper(strings.TrimSpace(code))).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListJurisdictionPolicies(ctx context.Context) ([]models.JurisdictionPolicy, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.JurisdictionPolicy
	if err := s.db.WithContext(ctx).Order("code ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func normalizeLimit(limit, fallback int) int {
	if limit <= 0 || limit > 1000 {
		return fallback
	}
	return limit
}

func normalizeOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}
