package services

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/demodash/backend/internal/cities"
	"github.com/demodash/backend/internal/database"
	"github.com/demodash/backend/internal/models"
	"github.com/demodash/backend/internal/query"
)

// QueryOutcome is a validated spec and its result.
type QueryOutcome struct {
	Spec             query.FilterSpec
	IgnoredCountries []string
	Result           *query.Result
	Cached           bool
}

// DatasetHandle is the loaded-or-not city dataset.
type DatasetHandle interface {
	query.StoreProvider
	Status() (bool, error)
	SourceID() string
}

type CityService struct {
	dataset  DatasetHandle
	executor *query.Executor
	cache    database.Cache
	cacheTTL time.Duration
	logger   *logrus.Logger
}

func NewCityService(
	dataset DatasetHandle,
	cache database.Cache,
	cacheTTL time.Duration,
	logger *logrus.Logger,
) *CityService {
	return &CityService{
		dataset:  dataset,
		executor: query.NewExecutor(dataset, logger),
		cache:    cache,
		cacheTTL: cacheTTL,
		logger:   logger,
	}
}

// Warm loads the dataset ahead of the first request.
func (s *CityService) Warm(ctx context.Context) error {
	_, err := s.executor.Store(ctx)
	return err
}

func (s *CityService) DatasetStatus() (bool, error) {
	return s.dataset.Status()
}

// Query validates raw inputs and runs them. Results are cached per spec key;
// cache failures are logged and never fail the query.
func (s *CityService) Query(ctx context.Context, raw query.RawInputs) (*QueryOutcome, error) {
	spec, ignored, err := s.executor.BuildSpec(ctx, raw)
	if err != nil {
		return nil, err
	}

	outcome := &QueryOutcome{Spec: spec, IgnoredCountries: ignored}
	cacheKey := s.cacheKey(database.QueryResultKey, spec.Key())

	var cached query.Result
	found, err := s.cache.Get(ctx, cacheKey, &cached)
	if err != nil {
		s.logger.WithError(err).Warn("Failed to read cached query result")
		if delErr := s.cache.Delete(ctx, cacheKey); delErr != nil {
			s.logger.WithError(delErr).Warn("Failed to evict cached query result")
		}
	}
	if found {
		s.logger.WithField("spec", spec.Key()).Debug("Query result served from cache")
		outcome.Result = &cached
		outcome.Cached = true
		return outcome, nil
	}

	result, err := s.executor.Execute(ctx, spec)
	if err != nil {
		return nil, err
	}
	outcome.Result = result

	if err := s.cache.Set(ctx, cacheKey, result, s.cacheTTL); err != nil {
		s.logger.WithError(err).Warn("Failed to cache query result")
	}

	s.logger.WithFields(logrus.Fields{
		"spec":             spec.Key(),
		"count":            result.Count,
		"total_population": result.TotalPopulation,
	}).Debug("Query executed")

	return outcome, nil
}

func (s *CityService) Countries(ctx context.Context) ([]string, error) {
	cacheKey := s.cacheKey(database.CountriesKey, "all")

	var cached []string
	if found, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && found {
		return cached, nil
	}

	store, err := s.executor.Store(ctx)
	if err != nil {
		return nil, err
	}

	countries := store.Countries()
	if err := s.cache.Set(ctx, cacheKey, countries, s.cacheTTL); err != nil {
		s.logger.WithError(err).Warn("Failed to cache country list")
	}
	return countries, nil
}

func (s *CityService) Summary(ctx context.Context) (*models.DatasetSummary, error) {
	cacheKey := s.cacheKey(database.DatasetSummaryKey, s.dataset.SourceID())

	var cached models.DatasetSummary
	if found, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && found {
		return &cached, nil
	}

	store, err := s.executor.Store(ctx)
	if err != nil {
		return nil, err
	}

	summary := summarizeStore(s.dataset.SourceID(), store)
	if err := s.cache.Set(ctx, cacheKey, summary, s.cacheTTL); err != nil {
		s.logger.WithError(err).Warn("Failed to cache dataset summary")
	}
	return summary, nil
}

func summarizeStore(source string, store *cities.Store) *models.DatasetSummary {
	min, max := store.PopulationRange()
	return &models.DatasetSummary{
		Source:        source,
		Records:       store.Len(),
		Countries:     len(store.Countries()),
		Capitals:      store.CapitalCount(),
		PopulationMin: min,
		PopulationMax: max,
	}
}

func (s *CityService) cacheKey(format, key string) string {
	return database.CacheKey(format, s.dataset.SourceID(), key)
}
