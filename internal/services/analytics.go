package services

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/demodash/backend/internal/database"
	"github.com/demodash/backend/internal/models"
	"github.com/demodash/backend/internal/repository"
)

const trackTimeout = 5 * time.Second

// AnalyticsService persists query and prediction logs. Without a database every
// tracking call is a no-op and reads return database.ErrDatabaseDisabled.
type AnalyticsService struct {
	repoManager *repository.RepositoryManager
	logger      *logrus.Logger
}

func NewAnalyticsService(repoManager *repository.RepositoryManager, logger *logrus.Logger) *AnalyticsService {
	return &AnalyticsService{
		repoManager: repoManager,
		logger:      logger,
	}
}

func (s *AnalyticsService) Enabled() bool {
	return s.repoManager != nil
}

// TrackQuery stores a query log and bumps the filter usage counters. Meant to run in its own goroutine.
func (s *AnalyticsService) TrackQuery(log *models.QueryLog) {
	if !s.Enabled() {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), trackTimeout)
	defer cancel()

	if err := s.repoManager.QueryLog.Create(ctx, log); err != nil {
		s.logger.WithError(err).Error("Failed to track city query")
	}

	if err := s.repoManager.FilterUsage.IncrementCount(ctx, log.SpecKey); err != nil {
		s.logger.WithError(err).Error("Failed to update filter usage")
		return
	}

	if err := s.repoManager.FilterUsage.UpdateStats(ctx, log.SpecKey, float64(log.ResultCount), log.ResponseTimeMs); err != nil {
		s.logger.WithError(err).Error("Failed to update filter stats")
	}
}

// TrackPrediction stores a prediction log. Meant to run in its own goroutine.
func (s *AnalyticsService) TrackPrediction(log *models.PredictionLog) {
	if !s.Enabled() {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), trackTimeout)
	defer cancel()

	if err := s.repoManager.PredictionLog.Create(ctx, log); err != nil {
		s.logger.WithError(err).Error("Failed to track prediction")
	}
}

func (s *AnalyticsService) TopFilters(ctx context.Context, limit int) ([]models.FilterUsage, error) {
	if !s.Enabled() {
		return nil, database.ErrDatabaseDisabled
	}
	return s.repoManager.FilterUsage.GetTop(ctx, limit)
}

func (s *AnalyticsService) PredictionStats(ctx context.Context, since time.Time) (*models.PredictionStats, error) {
	if !s.Enabled() {
		return nil, database.ErrDatabaseDisabled
	}
	return s.repoManager.PredictionLog.GetStats(ctx, since)
}

func (s *AnalyticsService) RecentQueries(ctx context.Context, limit int) ([]models.QueryLog, error) {
	if !s.Enabled() {
		return nil, database.ErrDatabaseDisabled
	}
	return s.repoManager.QueryLog.GetRecent(ctx, limit)
}

func (s *AnalyticsService) RecentPredictions(ctx context.Context, limit int) ([]models.PredictionLog, error) {
	if !s.Enabled() {
		return nil, database.ErrDatabaseDisabled
	}
	return s.repoManager.PredictionLog.GetRecent(ctx, limit)
}
