package query

import (
	"fmt"
	"math"
	"sort"

	"github.com/demodash/backend/internal/cities"
)

// CountryStat is one bar of the population-by-country chart.
type CountryStat struct {
	Country    string `json:"country"`
	Cities     int    `json:"cities"`
	Population int64  `json:"population"`
}

// Summary holds the derived statistics shown next to the map.
type Summary struct {
	Count             int           `json:"count"`
	TotalPopulation   int64         `json:"total_population"`
	CapitalCount      int           `json:"capital_count"`
	AveragePopulation float64       `json:"average_population"`
	LargestCity       *cities.City  `json:"largest_city,omitempty"`
	ByCountry         []CountryStat `json:"by_country"`
	Largest           []cities.City `json:"largest"`
}

// Summarize aggregates a result. topN bounds the Largest list; zero or less leaves it empty.
func Summarize(result *Result, topN int) Summary {
	summary := Summary{
		Count:           result.Count,
		TotalPopulation: result.TotalPopulation,
		ByCountry:       groupByCountry(result.Cities),
		Largest:         largest(result.Cities, topN),
	}

	for i, c := range result.Cities {
		if c.IsCapital {
			summary.CapitalCount++
		}
		if summary.LargestCity == nil || c.Population > summary.LargestCity.Population {
			summary.LargestCity = &result.Cities[i]
		}
	}

	if result.Count > 0 {
		summary.AveragePopulation = roundTo2(float64(result.TotalPopulation) / float64(result.Count))
	}

	return summary
}

// groupByCountry groups in first-seen order, then sorts by population desc with ties by name.
func groupByCountry(records []cities.City) []CountryStat {
	index := make(map[string]int)
	stats := make([]CountryStat, 0)

	for _, c := range records {
		i, ok := index[c.Country]
		if !ok {
			i = len(stats)
			index[c.Country] = i
			stats = append(stats, CountryStat{Country: c.Country})
		}
		stats[i].Cities++
		stats[i].Population += c.Population
	}

	sort.SliceStable(stats, func(a, b int) bool {
		if stats[a].Population != stats[b].Population {
			return stats[a].Population > stats[b].Population
		}
		return stats[a].Country < stats[b].Country
	})
	return stats
}

func largest(records []cities.City, n int) []cities.City {
	if n <= 0 || len(records) == 0 {
		return []cities.City{}
	}

	sorted := make([]cities.City, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(a, b int) bool {
		return sorted[a].Population > sorted[b].Population
	})

	if n < len(sorted) {
		sorted = sorted[:n]
	}
	return sorted
}

// FormatInt formats an integer with comma separators.
func FormatInt(n int64) string {
	if n < 0 {
		if n == math.MinInt64 {
			return fmt.Sprintf("%d", n)
		}
		return "-" + FormatInt(-n)
	}
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}
	return fmt.Sprintf("%s,%03d", FormatInt(n/1000), n%1000)
}

func roundTo2(v float64) float64 {
	return math.Round(v*100) / 100
}
