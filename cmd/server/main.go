package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/demodash/backend/internal/api"
	"github.com/demodash/backend/internal/api/handlers"
	"github.com/demodash/backend/internal/cities"
	"github.com/demodash/backend/internal/config"
	"github.com/demodash/backend/internal/database"
	"github.com/demodash/backend/internal/health"
	"github.com/demodash/backend/internal/middleware"
	"github.com/demodash/backend/internal/migration"
	"github.com/demodash/backend/internal/models"
	"github.com/demodash/backend/internal/prediction"
	"github.com/demodash/backend/internal/repository"
	"github.com/demodash/backend/internal/services"
	"github.com/demodash/backend/pkg/utils"
)

func main() {
	logger := utils.GetLogger()

	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}
	if err := cfg.Validate(); err != nil {
		logger.WithError(err).Fatal("Invalid configuration")
	}
	logger.SetLevel(utils.ParseLevel(cfg.Log.Level))
	gin.SetMode(cfg.Server.Mode)

	dbManager, err := database.NewManager(&database.Config{
		DatabaseURL: cfg.Database.URL,
		RedisURL:    cfg.Redis.URL,
		LogLevel:    cfg.Log.Level,
	}, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize database manager")
	}
	defer dbManager.Close()

	var repoManager *repository.RepositoryManager
	if dbManager.HasDatabase() {
		runner := migration.NewRunner(dbManager, logger)
		if err := runner.RunMigrations(cfg.Migrations.Path); err != nil {
			logger.WithError(err).Fatal("Failed to run migrations")
		}
		repoManager = repository.NewRepositoryManager(dbManager.DB)

		verifyCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if _, err := runner.VerifySetup(verifyCtx, repoManager.City); err != nil {
			logger.WithError(err).Warn("Database verification failed")
		}
		cancel()
	}

	source, err := datasetSource(cfg, repoManager)
	if err != nil {
		logger.WithError(err).Fatal("Failed to configure dataset source")
	}

	cache := database.NewCache(dbManager, cfg.Cache.TTL, logger)
	dataset := cities.NewHandle(cities.NewLoader(logger), source)
	adapter := prediction.NewAdapter(cfg.Model.Path, logger)

	cityService := services.NewCityService(dataset, cache, cfg.Cache.TTL, logger)
	predictionService := services.NewPredictionService(adapter, logger)
	analyticsService := services.NewAnalyticsService(repoManager, logger)

	// Both flows stay up when the other one fails to load.
	warmCtx, cancelWarm := context.WithTimeout(context.Background(), time.Minute)
	if err := cityService.Warm(warmCtx); err != nil {
		logger.WithError(err).Error("City dataset failed to load; city endpoints will return 503")
	}
	cancelWarm()
	if err := predictionService.Warm(); err != nil {
		logger.WithError(err).Error("Prediction model failed to load; prediction endpoints will return 503")
	}

	checker := health.NewHealthChecker(dbManager, cache, healthRepository(repoManager), dataset, adapter, logger)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	go checker.PeriodicHealthCheck(ctx, cfg.Health.Interval)

	limiter := middleware.NewRateLimiter(cfg.RateLimit.PerMinute)
	defer limiter.Stop()

	router := api.NewRouter(api.Handlers{
		City:       handlers.NewCityHandler(cityService, analyticsService, cfg.Server.RequestTimeout, logger),
		Prediction: handlers.NewPredictionHandler(predictionService, analyticsService, cfg.Server.RequestTimeout, logger),
		Health:     handlers.NewHealthHandler(checker, logger),
		Analytics:  handlers.NewAnalyticsHandler(analyticsService, cfg.Server.RequestTimeout, logger),
	}, limiter, logger)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      api.WithCORS(router, cfg.CORS.AllowedOrigins),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.Server.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.WithFields(logrus.Fields{
			"port":    cfg.Server.Port,
			"dataset": dataset.SourceID(),
			"model":   cfg.Model.Path,
			"cache":   cache.Backend(),
		}).Info("Starting server")

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}

	logger.Info("Server exited")
}

func datasetSource(cfg *config.Config, repoManager *repository.RepositoryManager) (cities.Source, error) {
	if cfg.Dataset.Source == config.DatasetSourceDatabase {
		if repoManager == nil {
			return nil, database.ErrDatabaseDisabled
		}
		return repository.NewCitySource(repoManager.City), nil
	}
	return cities.SourceFromPath(cfg.Dataset.Path, cfg.Dataset.Sheet)
}

func healthRepository(repoManager *repository.RepositoryManager) models.SystemHealthRepository {
	if repoManager == nil {
		return nil
	}
	return repoManager.SystemHealth
}
