package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/demodash/backend/internal/models"
)

const cityBatchSize = 1000

// CityRepositoryImpl implements CityRepository
type CityRepositoryImpl struct {
	db *gorm.DB
}

func NewCityRepository(db *gorm.DB) models.CityRepository {
	return &CityRepositoryImpl{db: db}
}

func (r *CityRepositoryImpl) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.City{}).Count(&count).Error
	return count, err
}

// FindAll returns every city in insertion order.
func (r *CityRepositoryImpl) FindAll(ctx context.Context) ([]models.City, error) {
	var cities []models.City
	err := r.db.WithContext(ctx).Order("id").Find(&cities).Error
	return cities, err
}

// ReplaceAll swaps the whole table for cities, stamping each row with source.
// The server serves one dataset, so rows of an earlier source never survive a reseed.
func (r *CityRepositoryImpl) ReplaceAll(ctx context.Context, source string, cities []models.City) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.City{}).Error; err != nil {
			return fmt.Errorf("failed to clear cities table: %w", err)
		}
		if len(cities) == 0 {
			return nil
		}
		for i := range cities {
			cities[i].Source = source
		}
		if err := tx.CreateInBatches(cities, cityBatchSize).Error; err != nil {
			return fmt.Errorf("failed to insert cities: %w", err)
		}
		return nil
	})
}

// QueryLogRepositoryImpl implements QueryLogRepository
type QueryLogRepositoryImpl struct {
	db *gorm.DB
}

func NewQueryLogRepository(db *gorm.DB) models.QueryLogRepository {
	return &QueryLogRepositoryImpl{db: db}
}

func (r *QueryLogRepositoryImpl) Create(ctx context.Context, log *models.QueryLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

func (r *QueryLogRepositoryImpl) GetRecent(ctx context.Context, limit int) ([]models.QueryLog, error) {
	var logs []models.QueryLog
	err := r.db.WithContext(ctx).Order("created_at DESC").
		Limit(limit).
		Find(&logs).Error
	return logs, err
}

// PredictionLogRepositoryImpl implements PredictionLogRepository
type PredictionLogRepositoryImpl struct {
	db *gorm.DB
}

func NewPredictionLogRepository(db *gorm.DB) models.PredictionLogRepository {
	return &PredictionLogRepositoryImpl{db: db}
}

func (r *PredictionLogRepositoryImpl) Create(ctx context.Context, log *models.PredictionLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

func (r *PredictionLogRepositoryImpl) GetRecent(ctx context.Context, limit int) ([]models.PredictionLog, error) {
	var logs []models.PredictionLog
	err := r.db.WithContext(ctx).Order("created_at DESC").
		Limit(limit).
		Find(&logs).Error
	return logs, err
}

func (r *PredictionLogRepositoryImpl) GetStats(ctx context.Context, since time.Time) (*models.PredictionStats, error) {
	var stats models.PredictionStats
	err := r.db.WithContext(ctx).Raw(`
		SELECT
			COUNT(*) AS total,
			COUNT(*) FILTER (WHERE NOT success) AS failed,
			COALESCE(AVG(survival_probability) FILTER (WHERE success), 0) AS avg_survival,
			COUNT(*) FILTER (WHERE success AND survival_probability > 0.5) AS predicted_survivors,
			COALESCE(AVG(response_time_ms), 0) AS avg_response_time_ms
		FROM prediction_logs
		WHERE created_at >= ?
	`, since).Scan(&stats).Error
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

// FilterUsageRepositoryImpl implements FilterUsageRepository
type FilterUsageRepositoryImpl struct {
	db *gorm.DB
}

func NewFilterUsageRepository(db *gorm.DB) models.FilterUsageRepository {
	return &FilterUsageRepositoryImpl{db: db}
}

func (r *FilterUsageRepositoryImpl) IncrementCount(ctx context.Context, specKey string) error {
	return r.db.WithContext(ctx).Exec(`
		INSERT INTO filter_usage (spec_key, use_count, last_used, created_at, updated_at)
		VALUES (?, 1, NOW(), NOW(), NOW())
		ON CONFLICT (spec_key)
		DO UPDATE SET
			use_count = filter_usage.use_count + 1,
			last_used = NOW(),
			updated_at = NOW()
	`, specKey).Error
}

func (r *FilterUsageRepositoryImpl) UpdateStats(ctx context.Context, specKey string, resultCount float64, responseTime int) error {
	return r.db.WithContext(ctx).Exec(`
		UPDATE filter_usage
		SET
			avg_result_count = (avg_result_count * (use_count - 1) + ?) / use_count,
			avg_response_time_ms = (avg_response_time_ms * (use_count - 1) + ?) / use_count,
			updated_at = NOW()
		WHERE spec_key = ?
	`, resultCount, responseTime, specKey).Error
}

func (r *FilterUsageRepositoryImpl) GetTop(ctx context.Context, limit int) ([]models.FilterUsage, error) {
	var usage []models.FilterUsage
	err := r.db.WithContext(ctx).Order("use_count DESC").
		Limit(limit).
		Find(&usage).Error
	return usage, err
}

// SystemHealthRepositoryImpl implements SystemHealthRepository
type SystemHealthRepositoryImpl struct {
	db *gorm.DB
}

func NewSystemHealthRepository(db *gorm.DB) models.SystemHealthRepository {
	return &SystemHealthRepositoryImpl{db: db}
}

func (r *SystemHealthRepositoryImpl) UpdateServiceHealth(serviceName, status string, responseTime int, errorMsg string) error {
	return r.db.Exec(`
		INSERT INTO system_health (service_name, status, response_time_ms, error_message, checked_at)
		VALUES (?, ?, ?, ?, NOW())
	`, serviceName, status, responseTime, errorMsg).Error
}

func (r *SystemHealthRepositoryImpl) GetAllServicesHealth() ([]models.SystemHealth, error) {
	var health []models.SystemHealth
	err := r.db.Raw(`
		SELECT DISTINCT ON (service_name) *
		FROM system_health
		ORDER BY service_name, checked_at DESC
	`).Scan(&health).Error
	return health, err
}

func (r *SystemHealthRepositoryImpl) GetUnhealthyServices() ([]models.SystemHealth, error) {
	var health []models.SystemHealth
	err := r.db.Raw(`
		SELECT DISTINCT ON (service_name) *
		FROM system_health
		WHERE status != 'healthy'
		ORDER BY service_name, checked_at DESC
	`).Scan(&health).Error
	return health, err
}

// RepositoryManager bundles all repositories
type RepositoryManager struct {
	City          models.CityRepository
	QueryLog      models.QueryLogRepository
	PredictionLog models.PredictionLogRepository
	FilterUsage   models.FilterUsageRepository
	SystemHealth  models.SystemHealthRepository
}

func NewRepositoryManager(db *gorm.DB) *RepositoryManager {
	return &RepositoryManager{
		City:          NewCityRepository(db),
		QueryLog:      NewQueryLogRepository(db),
		PredictionLog: NewPredictionLogRepository(db),
		FilterUsage:   NewFilterUsageRepository(db),
		SystemHealth:  NewSystemHealthRepository(db),
	}
}
