package query

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/demodash/backend/internal/cities"
)

// ErrDataUnavailable means the city dataset failed to load. It wraps the load error.
var ErrDataUnavailable = errors.New("city dataset unavailable")

type InvalidRangeError struct {
	Min    int64
	Max    int64
	Reason string
}

func (e *InvalidRangeError) Error() string {
	return fmt.Sprintf("invalid population range [%d, %d]: %s", e.Min, e.Max, e.Reason)
}

type InvalidFilterError struct {
	Field string
	Value string
	Err   error
}

func (e *InvalidFilterError) Error() string {
	return fmt.Sprintf("invalid %s %q: %v", e.Field, e.Value, e.Err)
}

func (e *InvalidFilterError) Unwrap() error {
	return e.Err
}

// StoreProvider hands out the loaded store, loading it on first use.
type StoreProvider interface {
	Store(ctx context.Context) (*cities.Store, error)
}

// RawInputs are the user supplied constraints before validation.
type RawInputs struct {
	PopulationMin *int64
	PopulationMax *int64
	Capital       string
	Countries     []string
	BBox          string
}

// Result is the outcome of one query. Cities keep store order.
type Result struct {
	Spec            FilterSpec    `json:"spec"`
	Cities          []cities.City `json:"cities"`
	Count           int           `json:"count"`
	TotalPopulation int64         `json:"total_population"`
}

type Executor struct {
	stores StoreProvider
	logger *logrus.Logger
}

func NewExecutor(stores StoreProvider, logger *logrus.Logger) *Executor {
	return &Executor{
		stores: stores,
		logger: logger,
	}
}

func (e *Executor) store(ctx context.Context) (*cities.Store, error) {
	store, err := e.stores.Store(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDataUnavailable, err)
	}
	return store, nil
}

// Store exposes the underlying store for dataset level views (countries, ranges).
func (e *Executor) Store(ctx context.Context) (*cities.Store, error) {
	return e.store(ctx)
}

// BuildSpec validates raw inputs into a FilterSpec. Country names the dataset
// does not know are left out of the spec and returned so callers can show them.
func (e *Executor) BuildSpec(ctx context.Context, raw RawInputs) (FilterSpec, []string, error) {
	store, err := e.store(ctx)
	if err != nil {
		return FilterSpec{}, nil, err
	}

	spec := Unconstrained()
	if raw.PopulationMin != nil {
		spec.PopulationMin = *raw.PopulationMin
	}
	if raw.PopulationMax != nil {
		spec.PopulationMax = *raw.PopulationMax
	}
	if spec.PopulationMin < 0 || spec.PopulationMax < 0 {
		return FilterSpec{}, nil, &InvalidRangeError{Min: spec.PopulationMin, Max: spec.PopulationMax, Reason: "population bounds must not be negative"}
	}
	if spec.PopulationMin > spec.PopulationMax {
		return FilterSpec{}, nil, &InvalidRangeError{Min: spec.PopulationMin, Max: spec.PopulationMax, Reason: "minimum exceeds maximum"}
	}

	if spec.Capital, err = ParseCapitalFilter(raw.Capital); err != nil {
		return FilterSpec{}, nil, err
	}

	var ignored []string
	seen := make(map[string]bool)
	for _, entry := range raw.Countries {
		for _, name := range countryNames(store, entry) {
			canonical, ok := store.CanonicalCountry(name)
			if !ok {
				ignored = append(ignored, name)
				continue
			}
			if !seen[canonical] {
				seen[canonical] = true
				spec.Countries = append(spec.Countries, canonical)
			}
		}
	}

	if raw.BBox != "" {
		bounds, err := ParseBBox(raw.BBox)
		if err != nil {
			return FilterSpec{}, nil, err
		}
		spec.Bounds = &bounds
	}

	if len(ignored) > 0 {
		e.logger.WithField("countries", ignored).Debug("Ignoring unknown countries in filter")
	}

	return spec, ignored, nil
}

// Execute scans the store once and returns every matching city in store order.
func (e *Executor) Execute(ctx context.Context, spec FilterSpec) (*Result, error) {
	store, err := e.store(ctx)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Spec:   spec,
		Cities: make([]cities.City, 0),
	}
	for _, c := range store.All() {
		if Matches(c, spec) {
			result.Cities = append(result.Cities, c)
			result.TotalPopulation += c.Population
		}
	}
	result.Count = len(result.Cities)

	return result, nil
}

// countryNames splits one country entry into names. An entry the store knows
// as a whole ("Korea, South") is kept intact; otherwise it is read as a comma
// separated list.
func countryNames(store *cities.Store, entry string) []string {
	entry = strings.TrimSpace(entry)
	if entry == "" {
		return nil
	}
	if _, ok := store.CanonicalCountry(entry); ok || !strings.Contains(entry, ",") {
		return []string{entry}
	}

	var names []string
	for _, name := range strings.Split(entry, ",") {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}
	return names
}

func ParseCapitalFilter(raw string) (CapitalFilter, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "any", "all":
		return CapitalAny, nil
	case "capital", "capital_only", "yes", "true":
		return CapitalOnly, nil
	case "non_capital", "non-capital", "non_capital_only", "no", "false":
		return NonCapital, nil
	default:
		return "", &InvalidFilterError{Field: "capital", Value: raw, Err: errors.New("expected any, capital or non_capital")}
	}
}

// ParseBBox parses "minLat,minLon,maxLat,maxLon".
func ParseBBox(raw string) (Bounds, error) {
	invalid := func(reason string) error {
		return &InvalidFilterError{Field: "bbox", Value: raw, Err: errors.New(reason)}
	}

	parts := strings.Split(raw, ",")
	if len(parts) != 4 {
		return Bounds{}, invalid("expected minLat,minLon,maxLat,maxLon")
	}

	values := make([]float64, 4)
	for i, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return Bounds{}, invalid("coordinates must be numbers")
		}
		values[i] = v
	}

	b := Bounds{MinLat: values[0], MinLon: values[1], MaxLat: values[2], MaxLon: values[3]}
	if b.MinLat < -90 || b.MaxLat > 90 || b.MinLon < -180 || b.MaxLon > 180 {
		return Bounds{}, invalid("coordinates out of range")
	}
	if b.MinLat > b.MaxLat || b.MinLon > b.MaxLon {
		return Bounds{}, invalid("minimum corner must not exceed maximum corner")
	}
	return b, nil
}
