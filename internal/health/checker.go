package health

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/demodash/backend/internal/database"
	"github.com/demodash/backend/internal/models"
	"github.com/demodash/backend/internal/prediction"
)

const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// DatasetStatus reports whether the city dataset loaded.
type DatasetStatus interface {
	Status() (bool, error)
}

// ModelStatus reports the prediction adapter state.
type ModelStatus interface {
	Info() prediction.Info
}

// HealthChecker manages health checks for all services
type HealthChecker struct {
	dbManager  *database.Manager
	cache      database.Cache
	healthRepo models.SystemHealthRepository
	dataset    DatasetStatus
	model      ModelStatus
	logger     *logrus.Logger
	startTime  time.Time
}

// NewHealthChecker builds a checker. dbManager and healthRepo may be nil when Postgres is not configured.
func NewHealthChecker(
	dbManager *database.Manager,
	cache database.Cache,
	healthRepo models.SystemHealthRepository,
	dataset DatasetStatus,
	model ModelStatus,
	logger *logrus.Logger,
) *HealthChecker {
	return &HealthChecker{
		dbManager:  dbManager,
		cache:      cache,
		healthRepo: healthRepo,
		dataset:    dataset,
		model:      model,
		logger:     logger,
		startTime:  time.Now(),
	}
}

// ServiceHealth represents the health status of a service
type ServiceHealth struct {
	Name         string `json:"name"`
	Status       string `json:"status"`
	ResponseTime int    `json:"response_time_ms"`
	Error        string `json:"error,omitempty"`
	LastChecked  string `json:"last_checked"`
}

// OverallHealth represents the overall system health
type OverallHealth struct {
	Status   string          `json:"status"`
	Services []ServiceHealth `json:"services"`
	Uptime   string          `json:"uptime"`
}

func newServiceHealth(name string, start time.Time, status string, err error) ServiceHealth {
	sh := ServiceHealth{
		Name:         name,
		Status:       status,
		ResponseTime: int(time.Since(start).Milliseconds()),
		LastChecked:  time.Now().Format(time.RFC3339),
	}
	if err != nil {
		sh.Error = err.Error()
	}
	return sh
}

// CheckDataset is degraded until the first load and unhealthy once a load failed.
func (h *HealthChecker) CheckDataset() ServiceHealth {
	start := time.Now()
	loaded, err := h.dataset.Status()

	status := StatusHealthy
	switch {
	case err != nil:
		status = StatusUnhealthy
	case !loaded:
		status = StatusDegraded
	}
	return newServiceHealth("dataset", start, status, err)
}

func (h *HealthChecker) CheckModel() ServiceHealth {
	start := time.Now()
	info := h.model.Info()

	status := StatusHealthy
	switch info.State {
	case prediction.StateFailed:
		status = StatusUnhealthy
	case prediction.StateUnloaded:
		status = StatusDegraded
	}

	sh := newServiceHealth("model", start, status, nil)
	sh.Error = info.Error
	return sh
}

// CheckPostgreSQL checks PostgreSQL database health
func (h *HealthChecker) CheckPostgreSQL(ctx context.Context) ServiceHealth {
	start := time.Now()
	err := h.dbManager.PingDatabase(ctx)

	status := StatusHealthy
	if err != nil {
		status = StatusUnhealthy
		h.logger.WithError(err).Error("PostgreSQL health check failed")
	}
	return newServiceHealth("postgresql", start, status, err)
}

// CheckRedis checks Redis cache health
func (h *HealthChecker) CheckRedis(ctx context.Context) ServiceHealth {
	start := time.Now()
	err := h.dbManager.PingRedis(ctx)

	status := StatusHealthy
	if err != nil {
		status = StatusUnhealthy
		h.logger.WithError(err).Error("Redis health check failed")
	}
	return newServiceHealth("redis", start, status, err)
}

// CheckAll checks every configured dependency. Postgres and Redis are skipped when disabled.
func (h *HealthChecker) CheckAll(ctx context.Context) OverallHealth {
	services := []ServiceHealth{
		h.CheckDataset(),
		h.CheckModel(),
	}
	if h.dbManager.HasDatabase() {
		services = append(services, h.CheckPostgreSQL(ctx))
	}
	if h.dbManager.HasRedis() {
		services = append(services, h.CheckRedis(ctx))
	}

	return OverallHealth{
		Status:   Aggregate(services),
		Services: services,
		Uptime:   h.getUptime(),
	}
}

// Aggregate folds service statuses: any unhealthy wins, then any degraded.
func Aggregate(services []ServiceHealth) string {
	overallStatus := StatusHealthy
	for _, service := range services {
		if service.Status == StatusUnhealthy {
			return StatusUnhealthy
		}
		if service.Status == StatusDegraded {
			overallStatus = StatusDegraded
		}
	}
	return overallStatus
}

// CheckCached returns the last periodic result if one is cached
func (h *HealthChecker) CheckCached(ctx context.Context) (*OverallHealth, bool) {
	var cached OverallHealth
	found, err := h.cache.Get(ctx, database.SystemHealthKey, &cached)
	if err != nil {
		h.logger.WithError(err).Warn("Failed to read cached health status")
		// drop the undecodable entry so later reads fall back to live checks
		if delErr := h.cache.Delete(ctx, database.SystemHealthKey); delErr != nil {
			h.logger.WithError(delErr).Warn("Failed to evict cached health status")
		}
		return nil, false
	}
	if !found {
		return nil, false
	}
	cached.Uptime = h.getUptime()
	return &cached, true
}

// History returns the latest stored check per service, optionally only the
// ones that were not healthy.
func (h *HealthChecker) History(unhealthyOnly bool) ([]models.SystemHealth, error) {
	if h.healthRepo == nil {
		return nil, database.ErrDatabaseDisabled
	}
	if unhealthyOnly {
		return h.healthRepo.GetUnhealthyServices()
	}
	return h.healthRepo.GetAllServicesHealth()
}

func (h *HealthChecker) getUptime() string {
	return time.Since(h.startTime).Round(time.Second).String()
}

// PeriodicHealthCheck runs health checks periodically until ctx is done
func (h *HealthChecker) PeriodicHealthCheck(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.runOnce(ctx, interval)
		}
	}
}

func (h *HealthChecker) runOnce(ctx context.Context, interval time.Duration) {
	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	health := h.CheckAll(checkCtx)

	if err := h.cache.Set(checkCtx, database.SystemHealthKey, health, 2*interval); err != nil {
		h.logger.WithError(err).Error("Failed to cache health status")
	}

	if h.healthRepo != nil {
		for _, service := range health.Services {
			if err := h.healthRepo.UpdateServiceHealth(service.Name, service.Status, service.ResponseTime, service.Error); err != nil {
				h.logger.WithError(err).WithField("service", service.Name).Warn("Failed to record service health")
			}
		}
	}

	h.logger.WithField("status", health.Status).Debug("Periodic health check completed")
}
