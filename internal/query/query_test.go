package query

import (
	"bytes"
	"context"
	"errors"
	"io"
	"math/rand"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/demodash/backend/internal/cities"
)

type staticProvider struct {
	store *cities.Store
	err   error
}

func (p *staticProvider) Store(ctx context.Context) (*cities.Store, error) {
	return p.store, p.err
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func sampleCities() []cities.City {
	return []cities.City{
		{Name: "Tokyo", Country: "Japan", IsCapital: true, Population: 37000000, Latitude: 35.68, Longitude: 139.69},
		{Name: "Lyon", Country: "France", IsCapital: false, Population: 500000, Latitude: 45.76, Longitude: 4.84},
		{Name: "Paris", Country: "France", IsCapital: true, Population: 11000000, Latitude: 48.85, Longitude: 2.35},
		{Name: "Osaka", Country: "Japan", IsCapital: false, Population: 19000000, Latitude: 34.69, Longitude: 135.50},
		{Name: "Nice", Country: "France", IsCapital: false, Population: 340000, Latitude: 43.70, Longitude: 7.27},
	}
}

func newExecutor(records []cities.City) *Executor {
	return NewExecutor(&staticProvider{store: cities.NewStore(records)}, quietLogger())
}

func int64Ptr(v int64) *int64 { return &v }

func TestExecuteTokyoLyonScenario(t *testing.T) {
	exec := newExecutor([]cities.City{
		{Name: "Tokyo", Country: "Japan", IsCapital: true, Population: 37000000},
		{Name: "Lyon", Country: "France", IsCapital: false, Population: 500000},
	})

	spec := Unconstrained()
	spec.PopulationMin = 1000000

	result, err := exec.Execute(context.Background(), spec)
	require.NoError(t, err)
	require.Len(t, result.Cities, 1)
	assert.Equal(t, "Tokyo", result.Cities[0].Name)
	assert.Equal(t, 1, result.Count)
	assert.Equal(t, int64(37000000), result.TotalPopulation)
}

func TestExecuteUnconstrainedReturnsEverythingInOrder(t *testing.T) {
	records := sampleCities()
	exec := newExecutor(records)

	result, err := exec.Execute(context.Background(), Unconstrained())
	require.NoError(t, err)
	assert.Equal(t, records, result.Cities)
	assert.Equal(t, len(records), result.Count)
}

func TestExecuteIsIdempotent(t *testing.T) {
	exec := newExecutor(sampleCities())
	spec := FilterSpec{PopulationMin: 400000, PopulationMax: 20000000, Capital: CapitalAny, Countries: []string{"France"}}

	first, err := exec.Execute(context.Background(), spec)
	require.NoError(t, err)
	second, err := exec.Execute(context.Background(), spec)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestPopulationBoundsAreInclusive(t *testing.T) {
	city := cities.City{Name: "Edge", Country: "X", Population: 1000}

	spec := Unconstrained()
	spec.PopulationMin = 1000
	spec.PopulationMax = 1000
	assert.True(t, Matches(city, spec))

	spec.PopulationMin = 1001
	spec.PopulationMax = Unbounded
	assert.False(t, Matches(city, spec))

	spec.PopulationMin = 0
	spec.PopulationMax = 999
	assert.False(t, Matches(city, spec))
}

func TestEmptyCountrySetIsNoConstraint(t *testing.T) {
	spec := Unconstrained()
	spec.Countries = []string{}
	assert.True(t, Matches(cities.City{Country: "Japan"}, spec))

	spec.Countries = []string{"France"}
	assert.False(t, Matches(cities.City{Country: "Japan"}, spec))
}

func TestMatchesAgreesWithOracle(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	countries := []string{"Japan", "France", "Brazil", "Kenya"}

	oracle := func(c cities.City, s FilterSpec) bool {
		inRange := s.PopulationMin <= c.Population && c.Population <= s.PopulationMax
		capitalOK := s.Capital == CapitalAny ||
			(s.Capital == CapitalOnly && c.IsCapital) ||
			(s.Capital == NonCapital && !c.IsCapital)
		countryOK := len(s.Countries) == 0
		for _, country := range s.Countries {
			if country == c.Country {
				countryOK = true
			}
		}
		return inRange && capitalOK && countryOK
	}

	capitals := []CapitalFilter{CapitalAny, CapitalOnly, NonCapital}
	for i := 0; i < 5000; i++ {
		c := cities.City{
			Name:       "c",
			Country:    countries[rng.Intn(len(countries))],
			IsCapital:  rng.Intn(2) == 0,
			Population: rng.Int63n(2000),
		}

		lo, hi := rng.Int63n(2000), rng.Int63n(2000)
		if lo > hi {
			lo, hi = hi, lo
		}
		spec := FilterSpec{PopulationMin: lo, PopulationMax: hi, Capital: capitals[rng.Intn(3)]}
		if rng.Intn(4) == 0 {
			spec.PopulationMax = Unbounded
		}
		for _, country := range countries {
			if rng.Intn(3) == 0 {
				spec.Countries = append(spec.Countries, country)
			}
		}

		require.Equal(t, oracle(c, spec), Matches(c, spec), "city %+v spec %+v", c, spec)
	}
}

func TestMatchesBounds(t *testing.T) {
	spec := Unconstrained()
	spec.Bounds = &Bounds{MinLat: 40, MinLon: 0, MaxLat: 50, MaxLon: 10}

	assert.True(t, Matches(cities.City{Latitude: 45.76, Longitude: 4.84}, spec))
	assert.True(t, Matches(cities.City{Latitude: 40, Longitude: 10}, spec))
	assert.False(t, Matches(cities.City{Latitude: 35.68, Longitude: 139.69}, spec))
}

func TestBuildSpec(t *testing.T) {
	exec := newExecutor(sampleCities())

	spec, ignored, err := exec.BuildSpec(context.Background(), RawInputs{
		PopulationMin: int64Ptr(100),
		Capital:       "Capital",
		Countries:     []string{"france, atlantis", " JAPAN", "France"},
		BBox:          "-10,-20,60,150",
	})
	require.NoError(t, err)

	assert.Equal(t, int64(100), spec.PopulationMin)
	assert.Equal(t, Unbounded, spec.PopulationMax)
	assert.Equal(t, CapitalOnly, spec.Capital)
	assert.Equal(t, []string{"France", "Japan"}, spec.Countries)
	assert.Equal(t, &Bounds{MinLat: -10, MinLon: -20, MaxLat: 60, MaxLon: 150}, spec.Bounds)
	assert.Equal(t, []string{"atlantis"}, ignored)
}

func TestBuildSpecDefaults(t *testing.T) {
	exec := newExecutor(sampleCities())

	spec, ignored, err := exec.BuildSpec(context.Background(), RawInputs{})
	require.NoError(t, err)
	assert.Equal(t, Unconstrained(), spec)
	assert.Empty(t, ignored)
}

func TestBuildSpecOnlyUnknownCountriesMeansNoConstraint(t *testing.T) {
	exec := newExecutor(sampleCities())

	spec, ignored, err := exec.BuildSpec(context.Background(), RawInputs{Countries: []string{"Narnia"}})
	require.NoError(t, err)
	assert.Empty(t, spec.Countries)
	assert.Equal(t, []string{"Narnia"}, ignored)
}

func TestBuildSpecKeepsCountryNamesWithCommas(t *testing.T) {
	exec := newExecutor([]cities.City{
		{Name: "Tokyo", Country: "Japan", IsCapital: true, Population: 37000000},
		{Name: "Seoul", Country: "Korea, South", IsCapital: true, Population: 21000000},
	})

	spec, ignored, err := exec.BuildSpec(context.Background(), RawInputs{Countries: []string{"korea, south"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"Korea, South"}, spec.Countries)
	assert.Empty(t, ignored)

	result, err := exec.Execute(context.Background(), spec)
	require.NoError(t, err)
	require.Len(t, result.Cities, 1)
	assert.Equal(t, "Seoul", result.Cities[0].Name)

	// entries unknown as a whole are still read as comma lists
	spec, ignored, err = exec.BuildSpec(context.Background(), RawInputs{Countries: []string{"Japan, Mordor", "Korea, South"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"Japan", "Korea, South"}, spec.Countries)
	assert.Equal(t, []string{"Mordor"}, ignored)
}

func TestBuildSpecRejectsInvalidInput(t *testing.T) {
	exec := newExecutor(sampleCities())

	_, _, err := exec.BuildSpec(context.Background(), RawInputs{PopulationMin: int64Ptr(500), PopulationMax: int64Ptr(100)})
	var rangeErr *InvalidRangeError
	require.ErrorAs(t, err, &rangeErr)
	assert.Equal(t, int64(500), rangeErr.Min)

	_, _, err = exec.BuildSpec(context.Background(), RawInputs{PopulationMin: int64Ptr(-1)})
	assert.ErrorAs(t, err, &rangeErr)

	var filterErr *InvalidFilterError
	_, _, err = exec.BuildSpec(context.Background(), RawInputs{Capital: "sometimes"})
	require.ErrorAs(t, err, &filterErr)
	assert.Equal(t, "capital", filterErr.Field)

	for _, bbox := range []string{"1,2,3", "a,b,c,d", "50,0,40,10", "-91,0,0,0", "0,0,0,181"} {
		_, _, err = exec.BuildSpec(context.Background(), RawInputs{BBox: bbox})
		require.ErrorAs(t, err, &filterErr, bbox)
		assert.Equal(t, "bbox", filterErr.Field)
	}
}

func TestDataUnavailable(t *testing.T) {
	loadErr := errors.New("worldcities.csv: no such file")
	exec := NewExecutor(&staticProvider{err: loadErr}, quietLogger())

	result, err := exec.Execute(context.Background(), Unconstrained())
	assert.Nil(t, result)
	assert.ErrorIs(t, err, ErrDataUnavailable)
	assert.ErrorIs(t, err, loadErr)

	_, _, err = exec.BuildSpec(context.Background(), RawInputs{})
	assert.ErrorIs(t, err, ErrDataUnavailable)
}

func TestFilterSpecKey(t *testing.T) {
	a := FilterSpec{PopulationMin: 1, PopulationMax: Unbounded, Capital: CapitalAny, Countries: []string{"Japan", "France"}}
	b := FilterSpec{PopulationMin: 1, PopulationMax: Unbounded, Capital: "", Countries: []string{"France", "Japan"}}
	assert.Equal(t, a.Key(), b.Key())
	assert.Equal(t, []string{"Japan", "France"}, a.Countries)

	b.Bounds = &Bounds{MaxLat: 1, MaxLon: 1}
	assert.NotEqual(t, a.Key(), b.Key())

	joined := FilterSpec{PopulationMax: Unbounded, Countries: []string{"A;B"}}
	split := FilterSpec{PopulationMax: Unbounded, Countries: []string{"A", "B"}}
	assert.NotEqual(t, joined.Key(), split.Key())
}

func TestSummarize(t *testing.T) {
	exec := newExecutor(sampleCities())
	result, err := exec.Execute(context.Background(), Unconstrained())
	require.NoError(t, err)

	summary := Summarize(result, 2)
	assert.Equal(t, 5, summary.Count)
	assert.Equal(t, 2, summary.CapitalCount)
	assert.Equal(t, int64(67840000), summary.TotalPopulation)
	assert.Equal(t, 13568000.0, summary.AveragePopulation)
	require.NotNil(t, summary.LargestCity)
	assert.Equal(t, "Tokyo", summary.LargestCity.Name)

	require.Len(t, summary.ByCountry, 2)
	assert.Equal(t, CountryStat{Country: "Japan", Cities: 2, Population: 56000000}, summary.ByCountry[0])
	assert.Equal(t, CountryStat{Country: "France", Cities: 3, Population: 11840000}, summary.ByCountry[1])

	require.Len(t, summary.Largest, 2)
	assert.Equal(t, "Tokyo", summary.Largest[0].Name)
	assert.Equal(t, "Osaka", summary.Largest[1].Name)

	empty := Summarize(&Result{}, 3)
	assert.Nil(t, empty.LargestCity)
	assert.Zero(t, empty.AveragePopulation)
	assert.Empty(t, empty.Largest)
}

func TestBuildTable(t *testing.T) {
	exec := newExecutor(sampleCities())
	result, err := exec.Execute(context.Background(), Unconstrained())
	require.NoError(t, err)

	table := BuildTable(result, 1, 2)
	assert.Len(t, table.Columns, 6)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, "Lyon", table.Rows[0][0])
	assert.Equal(t, "500000", table.Rows[0][2])
	assert.Equal(t, "Paris", table.Rows[1][0])
	assert.Equal(t, 5, table.Total)
	assert.Equal(t, "67,840,000", table.Summary.Values["population"])

	assert.Empty(t, BuildTable(result, 10, 5).Rows)
	assert.Len(t, BuildTable(result, 0, 0).Rows, 5)
}

func TestMapPoints(t *testing.T) {
	exec := newExecutor(sampleCities())
	result, err := exec.Execute(context.Background(), FilterSpec{PopulationMin: 0, PopulationMax: Unbounded, Capital: CapitalOnly})
	require.NoError(t, err)

	points := MapPoints(result)
	require.Len(t, points, 2)
	assert.Equal(t, MapPoint{Name: "Tokyo", Country: "Japan", Latitude: 35.68, Longitude: 139.69, Population: 37000000, IsCapital: true}, points[0])
}

func TestExportCSVReadsBack(t *testing.T) {
	records := sampleCities()
	exec := newExecutor(records)
	result, err := exec.Execute(context.Background(), Unconstrained())
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Export(&buf, ExportCSV, result))

	loaded, err := cities.ReadCSV(context.Background(), "export.csv", &buf)
	require.NoError(t, err)
	assert.Equal(t, records, loaded)
}

func TestExportXLSXReadsBack(t *testing.T) {
	records := sampleCities()
	exec := newExecutor(records)
	result, err := exec.Execute(context.Background(), Unconstrained())
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Export(&buf, ExportXLSX, result))

	loaded, err := cities.ReadXLSX(context.Background(), "export.xlsx", "", &buf)
	require.NoError(t, err)
	assert.Equal(t, records, loaded)
}

func TestExportUnknownFormat(t *testing.T) {
	err := Export(io.Discard, "parquet", &Result{})
	assert.ErrorIs(t, err, ErrUnknownExportFormat)

	_, err = ContentType("pdf")
	assert.ErrorIs(t, err, ErrUnknownExportFormat)
}

func TestFormatInt(t *testing.T) {
	assert.Equal(t, "0", FormatInt(0))
	assert.Equal(t, "999", FormatInt(999))
	assert.Equal(t, "1,000", FormatInt(1000))
	assert.Equal(t, "-37,000,000", FormatInt(-37000000))
}
