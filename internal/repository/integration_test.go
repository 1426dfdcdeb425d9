//go:build integration

package repository

import (
	"context"
	"io"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/demodash/backend/internal/cities"
	"github.com/demodash/backend/internal/database"
	"github.com/demodash/backend/internal/models"
)

func newIntegrationManager(t *testing.T) *RepositoryManager {
	t.Helper()

	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("DATABASE_URL not set")
	}

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	m, err := database.NewManager(&database.Config{DatabaseURL: url}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { m.Close() })
	require.NoError(t, m.Migrate())

	return NewRepositoryManager(m.DB)
}

// Reseeds the cities table of the database behind DATABASE_URL.
func TestCityRepositoryIntegration(t *testing.T) {
	repos := newIntegrationManager(t)
	ctx := context.Background()
	scraped := "integration:scrape:" + uuid.NewString()
	file := "integration:file:" + uuid.NewString()

	records := []cities.City{
		{Name: "Tokyo", Country: "Japan", IsCapital: true, Population: 37000000, Latitude: 35.68, Longitude: 139.69},
		{Name: "Seoul", Country: "Korea, South", IsCapital: true, Population: 21000000, Latitude: 37.56, Longitude: 126.99},
	}
	rows := make([]models.City, len(records))
	for i, c := range records {
		rows[i] = FromDomain(c)
	}

	require.NoError(t, repos.City.ReplaceAll(ctx, scraped, rows))
	t.Cleanup(func() { repos.City.ReplaceAll(context.Background(), file, nil) })

	loaded, err := NewCitySource(repos.City).Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, records, loaded)

	// seeding from another source replaces the table instead of merging into it
	require.NoError(t, repos.City.ReplaceAll(ctx, file, []models.City{FromDomain(records[1])}))

	all, err := repos.City.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, file, all[0].Source)

	loaded, err = NewCitySource(repos.City).Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, records[1:], loaded)
}

func TestAnalyticsRepositoriesIntegration(t *testing.T) {
	repos := newIntegrationManager(t)
	ctx := context.Background()
	key := "integration|" + uuid.NewString()

	require.NoError(t, repos.FilterUsage.IncrementCount(ctx, key))
	require.NoError(t, repos.FilterUsage.UpdateStats(ctx, key, 10, 4))
	require.NoError(t, repos.FilterUsage.IncrementCount(ctx, key))
	require.NoError(t, repos.FilterUsage.UpdateStats(ctx, key, 20, 8))

	top, err := repos.FilterUsage.GetTop(ctx, 1000)
	require.NoError(t, err)
	var found *models.FilterUsage
	for i := range top {
		if top[i].SpecKey == key {
			found = &top[i]
		}
	}
	require.NotNil(t, found)
	assert.Equal(t, 2, found.UseCount)
	assert.InDelta(t, 15.0, found.AvgResultCount, 0.01)

	since := time.Now().Add(-time.Minute)
	require.NoError(t, repos.PredictionLog.Create(ctx, &models.PredictionLog{
		RequestID:           uuid.NewString(),
		PassengerClass:      1,
		SurvivalProbability: 0.9,
		Success:             true,
	}))

	stats, err := repos.PredictionLog.GetStats(ctx, since)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, stats.Total, int64(1))
	assert.GreaterOrEqual(t, stats.PredictedSurvivors, int64(1))

	require.NoError(t, repos.SystemHealth.UpdateServiceHealth("integration", "healthy", 3, ""))
	latest, err := repos.SystemHealth.GetAllServicesHealth()
	require.NoError(t, err)
	assert.NotEmpty(t, latest)
}
