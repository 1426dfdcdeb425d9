package cities

import (
	"sort"
	"strings"
)

// Store is the read-only, in-memory city table.
type Store struct {
	cities    []City
	countries []string
	canonical map[string]string
	minPop    int64
	maxPop    int64
	capitals  int
}

// NewStore indexes the given records. The slice is retained, not copied.
func NewStore(records []City) *Store {
	s := &Store{
		cities:    records,
		canonical: make(map[string]string),
	}

	for i, c := range records {
		key := strings.ToLower(strings.TrimSpace(c.Country))
		if _, ok := s.canonical[key]; !ok {
			s.canonical[key] = c.Country
			s.countries = append(s.countries, c.Country)
		}
		if c.IsCapital {
			s.capitals++
		}
		if i == 0 || c.Population < s.minPop {
			s.minPop = c.Population
		}
		if i == 0 || c.Population > s.maxPop {
			s.maxPop = c.Population
		}
	}
	sort.Strings(s.countries)

	return s
}

// All returns the records in load order. Callers must not modify the slice.
func (s *Store) All() []City {
	return s.cities
}

func (s *Store) Len() int {
	return len(s.cities)
}

// Countries returns the distinct country names, sorted.
func (s *Store) Countries() []string {
	out := make([]string, len(s.countries))
	copy(out, s.countries)
	return out
}

// CanonicalCountry resolves a user supplied country name case-insensitively.
func (s *Store) CanonicalCountry(name string) (string, bool) {
	country, ok := s.canonical[strings.ToLower(strings.TrimSpace(name))]
	return country, ok
}

// PopulationRange reports the smallest and largest population. Both are zero for an empty store.
func (s *Store) PopulationRange() (int64, int64) {
	return s.minPop, s.maxPop
}

func (s *Store) CapitalCount() int {
	return s.capitals
}
