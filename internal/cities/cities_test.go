package cities

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

const worldCitiesCSV = "\xEF\xBB\xBFcity,city_ascii,lat,lng,country,capital,population\n" +
	"Tokyo,Tokyo,35.6897,139.6922,Japan,primary,37732000\n" +
	"Lyon,Lyon,45.7600,4.8400,France,admin,516092.0\n" +
	"\n" +
	"Paris,Paris,48.8567,2.3522,France,primary,11060000\n"

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestReadCSVWorldCitiesLayout(t *testing.T) {
	records, err := ReadCSV(context.Background(), "worldcities.csv", strings.NewReader(worldCitiesCSV))
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, City{Name: "Tokyo", Country: "Japan", IsCapital: true, Population: 37732000, Latitude: 35.6897, Longitude: 139.6922}, records[0])
	assert.Equal(t, int64(516092), records[1].Population)
	assert.False(t, records[1].IsCapital)
	assert.Equal(t, "Paris", records[2].Name)
}

func TestReadCSVErrors(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		row    int
		column string
	}{
		{"missing column", "name,country,capital,population,lat\nA,B,true,1,0\n", 0, ColumnLongitude},
		{"fractional population", "name,country,capital,population,lat,lng\nA,B,true,1.5,0,0\n", 1, ColumnPopulation},
		{"negative population", "name,country,capital,population,lat,lng\nA,B,true,10,0,0\nC,D,no,-4,0,0\n", 2, ColumnPopulation},
		{"text population", "name,country,capital,population,lat,lng\nA,B,true,many,0,0\n", 1, ColumnPopulation},
		{"bad capital", "name,country,capital,population,lat,lng\nA,B,maybe,1,0,0\n", 1, ColumnCapital},
		{"latitude out of range", "name,country,capital,population,lat,lng\nA,B,yes,1,91,0\n", 1, ColumnLatitude},
		{"empty name", "name,country,capital,population,lat,lng\n,B,yes,1,0,0\n", 1, ColumnName},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadCSV(context.Background(), "cities.csv", strings.NewReader(tt.input))
			require.Error(t, err)

			var loadErr *DataLoadError
			require.ErrorAs(t, err, &loadErr)
			assert.Equal(t, "cities.csv", loadErr.Source)
			assert.Equal(t, tt.row, loadErr.Row)
			assert.Equal(t, tt.column, loadErr.Column)
		})
	}
}

func TestReadCSVEmptyFile(t *testing.T) {
	_, err := ReadCSV(context.Background(), "empty.csv", strings.NewReader(""))
	assert.ErrorIs(t, err, ErrMissingHeader)
}

func TestReadCSVHeaderOnly(t *testing.T) {
	records, err := ReadCSV(context.Background(), "h.csv", strings.NewReader("name,country,capital,population,latitude,longitude\n"))
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestParseCapital(t *testing.T) {
	for _, raw := range []string{"true", "1", "Yes", "y", "primary"} {
		v, err := ParseCapital(raw)
		require.NoError(t, err, raw)
		assert.True(t, v, raw)
	}
	for _, raw := range []string{"false", "0", "no", "N", "admin", "minor", ""} {
		v, err := ParseCapital(raw)
		require.NoError(t, err, raw)
		assert.False(t, v, raw)
	}
}

func TestReadXLSX(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()

	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]interface{}{"City", "Country", "Is_Capital", "Population", "Latitude", "Longitude"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]interface{}{"Tokyo", "Japan", "true", 37000000, 35.68, 139.69}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A3", &[]interface{}{"Lyon", "France", "false", 500000, 45.76, 4.84}))

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	records, err := ReadXLSX(context.Background(), "cities.xlsx", "", buf)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "Tokyo", records[0].Name)
	assert.True(t, records[0].IsCapital)
	assert.Equal(t, int64(500000), records[1].Population)
}

func TestSourceFromPath(t *testing.T) {
	src, err := SourceFromPath("data/worldcities.csv", "")
	require.NoError(t, err)
	assert.IsType(t, &CSVSource{}, src)

	src, err = SourceFromPath("data/WorldCities.XLSX", "cities")
	require.NoError(t, err)
	assert.Equal(t, "xlsx:data/WorldCities.XLSX#cities", src.ID())

	_, err = SourceFromPath("data/worldcities.parquet", "")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestCSVSourceMissingFile(t *testing.T) {
	src := &CSVSource{Path: filepath.Join(t.TempDir(), "absent.csv")}
	_, err := src.Load(context.Background())

	var loadErr *DataLoadError
	require.ErrorAs(t, err, &loadErr)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestStore(t *testing.T) {
	store := NewStore([]City{
		{Name: "Tokyo", Country: "Japan", IsCapital: true, Population: 37000000},
		{Name: "Lyon", Country: "France", Population: 500000},
		{Name: "Paris", Country: "France", IsCapital: true, Population: 11000000},
	})

	assert.Equal(t, 3, store.Len())
	assert.Equal(t, []string{"France", "Japan"}, store.Countries())
	assert.Equal(t, 2, store.CapitalCount())

	min, max := store.PopulationRange()
	assert.Equal(t, int64(500000), min)
	assert.Equal(t, int64(37000000), max)

	country, ok := store.CanonicalCountry("  fRANCE ")
	assert.True(t, ok)
	assert.Equal(t, "France", country)

	_, ok = store.CanonicalCountry("Atlantis")
	assert.False(t, ok)

	empty := NewStore(nil)
	min, max = empty.PopulationRange()
	assert.Zero(t, min)
	assert.Zero(t, max)
	assert.Empty(t, empty.Countries())
}

type countingSource struct {
	id    string
	calls atomic.Int32
	err   error
}

func (s *countingSource) ID() string { return s.id }

func (s *countingSource) Load(ctx context.Context) ([]City, error) {
	s.calls.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	return []City{{Name: "Tokyo", Country: "Japan", Population: 1}}, nil
}

func TestLoaderMemoizesConcurrentLoads(t *testing.T) {
	loader := NewLoader(quietLogger())
	src := &countingSource{id: "counting"}

	var wg sync.WaitGroup
	stores := make([]*Store, 16)
	for i := range stores {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			store, err := loader.Load(context.Background(), src)
			assert.NoError(t, err)
			stores[i] = store
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), src.calls.Load())
	for _, store := range stores {
		assert.Same(t, stores[0], store)
	}

	loaded, err := loader.Status(src)
	assert.True(t, loaded)
	assert.NoError(t, err)
}

func TestLoaderCachesFailure(t *testing.T) {
	loader := NewLoader(quietLogger())
	boom := errors.New("disk on fire")
	src := &countingSource{id: "broken", err: boom}
	handle := NewHandle(loader, src)

	loaded, err := handle.Status()
	assert.False(t, loaded)
	assert.NoError(t, err)

	_, err = handle.Store(context.Background())
	assert.ErrorIs(t, err, boom)
	_, err = handle.Store(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, int32(1), src.calls.Load())

	loaded, err = handle.Status()
	assert.False(t, loaded)
	assert.ErrorIs(t, err, boom)
}

func TestLoaderSurvivesCancelledFirstCaller(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cities.csv")
	require.NoError(t, os.WriteFile(path, []byte(worldCitiesCSV), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	loader := NewLoader(quietLogger())
	store, err := loader.Load(ctx, &CSVSource{Path: path})
	require.NoError(t, err)
	assert.Equal(t, 3, store.Len())
}

func TestShippedDataset(t *testing.T) {
	src, err := SourceFromPath("../../data/worldcities.csv", "")
	require.NoError(t, err)

	records, err := src.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 30)

	store := NewStore(records)
	assert.Equal(t, "Tokyo", records[0].Name)
	assert.True(t, records[0].IsCapital)
	assert.Equal(t, "Korea, South", records[8].Country)
	assert.False(t, records[2].IsCapital)

	min, max := store.PopulationRange()
	assert.Equal(t, int64(5774), min)
	assert.Equal(t, int64(37732000), max)
}
