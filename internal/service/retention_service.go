package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"filmstack/internal/config"
	"filmstack/internal/db"
	"filmstack/internal/models"
	"filmstack/internal/repository"
)

// RetentionService purges finished simulation runs past the configured age.
// Pending and running rows are never touched.
type RetentionService struct {
	Repo   repository.Repository
	Config config.RetentionConfig
	Logger *zap.Logger
}

func (s *RetentionService) PurgeExpiredRuns(ctx context.Context) error {
	if s == nil || s.Repo == nil {
		return nil
	}
	maxAge := s.Config.MaxRunAge
	if maxAge <= 0 {
		maxAge = 7 * 24 * time.Hour
	}
	cutoff := db.NowUTC().Add(-maxAge)
	statuses := []string{models.RunStatusCompleted, models.RunStatusCancelled, models.RunStatusFailed}
	deleted, err := s.Repo.DeleteSimulationRunsBefore(ctx, statuses, cutoff)
	if err != nil {
		return err
	}
	if deleted > 0 && s.Logger != nil {
		s.Logger.Info("purged expired simulation runs",
			zap.Int64("deleted", deleted),
			zap.Time("cutoff", cutoff))
	}
	return nil
}
