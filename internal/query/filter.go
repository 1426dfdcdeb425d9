package query

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"github.com/demodash/backend/internal/cities"
)

// Unbounded is the PopulationMax of a spec with no upper population limit.
const Unbounded int64 = math.MaxInt64

type CapitalFilter string

const (
	CapitalAny  CapitalFilter = "any"
	CapitalOnly CapitalFilter = "capital"
	NonCapital  CapitalFilter = "non_capital"
)

// Bounds is a map viewport. Longitudes do not wrap across the antimeridian.
type Bounds struct {
	MinLat float64 `json:"min_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLat float64 `json:"max_lat"`
	MaxLon float64 `json:"max_lon"`
}

func (b Bounds) Contains(lat, lon float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lon >= b.MinLon && lon <= b.MaxLon
}

// FilterSpec is the set of constraints for one query. Population bounds are
// inclusive and Countries holds canonical names; an empty list places no
// restriction on country.
type FilterSpec struct {
	PopulationMin int64         `json:"population_min"`
	PopulationMax int64         `json:"population_max"`
	Capital       CapitalFilter `json:"capital"`
	Countries     []string      `json:"countries,omitempty"`
	Bounds        *Bounds       `json:"bounds,omitempty"`
}

// Unconstrained matches every record.
func Unconstrained() FilterSpec {
	return FilterSpec{
		PopulationMin: 0,
		PopulationMax: Unbounded,
		Capital:       CapitalAny,
	}
}

// Key renders the spec canonically; specs with equal keys select the same records.
func (s FilterSpec) Key() string {
	countries := make([]string, len(s.Countries))
	copy(countries, s.Countries)
	sort.Strings(countries)

	capital := s.Capital
	if capital == "" {
		capital = CapitalAny
	}

	// JSON quoting keeps names containing separators distinct
	encoded, _ := json.Marshal(countries)
	key := fmt.Sprintf("pop=%d..%d|capital=%s|countries=%s",
		s.PopulationMin, s.PopulationMax, capital, encoded)
	if s.Bounds != nil {
		key += fmt.Sprintf("|bbox=%g,%g,%g,%g", s.Bounds.MinLat, s.Bounds.MinLon, s.Bounds.MaxLat, s.Bounds.MaxLon)
	}
	return key
}

// Matches reports whether c satisfies every constraint in spec.
func Matches(c cities.City, spec FilterSpec) bool {
	if c.Population < spec.PopulationMin || c.Population > spec.PopulationMax {
		return false
	}

	switch spec.Capital {
	case CapitalOnly:
		if !c.IsCapital {
			return false
		}
	case NonCapital:
		if c.IsCapital {
			return false
		}
	}

	if len(spec.Countries) > 0 && !containsCountry(spec.Countries, c.Country) {
		return false
	}

	if spec.Bounds != nil && !spec.Bounds.Contains(c.Latitude, c.Longitude) {
		return false
	}

	return true
}

func containsCountry(countries []string, country string) bool {
	for _, candidate := range countries {
		if candidate == country {
			return true
		}
	}
	return false
}
