package services

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/demodash/backend/internal/cities"
	"github.com/demodash/backend/internal/database"
	"github.com/demodash/backend/internal/models"
	"github.com/demodash/backend/internal/prediction"
	"github.com/demodash/backend/internal/query"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

type failingSource struct{}

func (failingSource) ID() string { return "failing" }
func (failingSource) Load(ctx context.Context) ([]cities.City, error) {
	return nil, errors.New("worldcities.csv: permission denied")
}

func newCityService(t *testing.T, src cities.Source) *CityService {
	t.Helper()
	logger := quietLogger()
	handle := cities.NewHandle(cities.NewLoader(logger), src)
	return NewCityService(handle, database.NewMemoryCache(time.Minute, logger), time.Minute, logger)
}

func sampleSource() cities.Source {
	return &cities.StaticSource{Name: "sample", Cities: []cities.City{
		{Name: "Tokyo", Country: "Japan", IsCapital: true, Population: 37000000, Latitude: 35.68, Longitude: 139.69},
		{Name: "Lyon", Country: "France", Population: 500000, Latitude: 45.76, Longitude: 4.84},
		{Name: "Paris", Country: "France", IsCapital: true, Population: 11000000, Latitude: 48.85, Longitude: 2.35},
	}}
}

func TestCityServiceQueryCachesBySpec(t *testing.T) {
	svc := newCityService(t, sampleSource())
	min := int64(1000000)

	first, err := svc.Query(context.Background(), query.RawInputs{PopulationMin: &min, Countries: []string{"france", "Mordor"}})
	require.NoError(t, err)
	assert.False(t, first.Cached)
	assert.Equal(t, []string{"Mordor"}, first.IgnoredCountries)
	require.Equal(t, 1, first.Result.Count)
	assert.Equal(t, "Paris", first.Result.Cities[0].Name)

	second, err := svc.Query(context.Background(), query.RawInputs{PopulationMin: &min, Countries: []string{"FRANCE"}})
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Result, second.Result)

	other, err := svc.Query(context.Background(), query.RawInputs{})
	require.NoError(t, err)
	assert.False(t, other.Cached)
	assert.Equal(t, 3, other.Result.Count)
}

func TestCityServiceInvalidInput(t *testing.T) {
	svc := newCityService(t, sampleSource())
	min, max := int64(10), int64(5)

	_, err := svc.Query(context.Background(), query.RawInputs{PopulationMin: &min, PopulationMax: &max})
	var rangeErr *query.InvalidRangeError
	assert.ErrorAs(t, err, &rangeErr)
}

func TestCityServiceDataUnavailable(t *testing.T) {
	svc := newCityService(t, failingSource{})

	assert.ErrorIs(t, svc.Warm(context.Background()), query.ErrDataUnavailable)

	_, err := svc.Query(context.Background(), query.RawInputs{})
	assert.ErrorIs(t, err, query.ErrDataUnavailable)
	_, err = svc.Countries(context.Background())
	assert.ErrorIs(t, err, query.ErrDataUnavailable)
	_, err = svc.Summary(context.Background())
	assert.ErrorIs(t, err, query.ErrDataUnavailable)

	loaded, loadErr := svc.DatasetStatus()
	assert.False(t, loaded)
	assert.Error(t, loadErr)
}

func TestCityServiceSummaryAndCountries(t *testing.T) {
	svc := newCityService(t, sampleSource())

	countries, err := svc.Countries(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"France", "Japan"}, countries)

	summary, err := svc.Summary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &models.DatasetSummary{
		Source:        "static:sample",
		Records:       3,
		Countries:     2,
		Capitals:      2,
		PopulationMin: 500000,
		PopulationMax: 37000000,
	}, summary)

	cached, err := svc.Summary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, summary, cached)
}

func TestPredictionService(t *testing.T) {
	lr, err := prediction.NewLogisticRegression([]float64{-1.2, -2.6, -0.04, 0.002}, 5.0, []int{0, 1})
	require.NoError(t, err)
	adapter := prediction.NewAdapterWithClassifier(lr, prediction.Metadata{Version: "v1"}, quietLogger())
	svc := NewPredictionService(adapter, quietLogger())

	require.NoError(t, svc.Warm())

	pclass := 1
	resp, features, err := svc.Predict(context.Background(), models.PredictionRequest{PassengerClass: &pclass, Sex: "female"})
	require.NoError(t, err)

	assert.Equal(t, prediction.Features{PassengerClass: 1, Sex: prediction.SexFemale, Age: 30, Fare: 32}, features)
	assert.NotEmpty(t, resp.RequestID)
	assert.Equal(t, "Likely to Survive", resp.Verdict)
	assert.Len(t, resp.Features, 4)
	assert.Contains(t, resp.SurvivalPercent, "%")

	_, _, err = svc.Predict(context.Background(), models.PredictionRequest{Sex: "other"})
	assert.True(t, prediction.IsInvalidInput(err))

	info := svc.ModelInfo()
	assert.Equal(t, prediction.StateReady, info.Model.State)
	assert.Equal(t, "v1", info.Model.Metadata.Version)
	assert.Len(t, info.Features, 4)
}

func TestAnalyticsServiceWithoutDatabase(t *testing.T) {
	svc := NewAnalyticsService(nil, quietLogger())
	assert.False(t, svc.Enabled())

	svc.TrackQuery(&models.QueryLog{RequestID: "x"})
	svc.TrackPrediction(&models.PredictionLog{RequestID: "y"})

	_, err := svc.TopFilters(context.Background(), 5)
	assert.ErrorIs(t, err, database.ErrDatabaseDisabled)
	_, err = svc.PredictionStats(context.Background(), time.Now())
	assert.ErrorIs(t, err, database.ErrDatabaseDisabled)
}

func TestCityServiceQueryReplacesUndecodableCacheEntry(t *testing.T) {
	logger := quietLogger()
	cache := database.NewMemoryCache(time.Minute, logger)
	handle := cities.NewHandle(cities.NewLoader(logger), sampleSource())
	svc := NewCityService(handle, cache, time.Minute, logger)

	key := svc.cacheKey(database.QueryResultKey, query.Unconstrained().Key())
	require.NoError(t, cache.Set(context.Background(), key, "stale", time.Minute))

	outcome, err := svc.Query(context.Background(), query.RawInputs{})
	require.NoError(t, err)
	assert.False(t, outcome.Cached)
	assert.Equal(t, 3, outcome.Result.Count)

	again, err := svc.Query(context.Background(), query.RawInputs{})
	require.NoError(t, err)
	assert.True(t, again.Cached)
	assert.Equal(t, outcome.Result, again.Result)
}
