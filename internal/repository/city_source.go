package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/demodash/backend/internal/cities"
	"github.com/demodash/backend/internal/models"
)

// CitySource serves the city store from the cities table.
type CitySource struct {
	repo models.CityRepository
}

func NewCitySource(repo models.CityRepository) *CitySource {
	return &CitySource{repo: repo}
}

func (s *CitySource) ID() string {
	return "database:cities"
}

func (s *CitySource) Load(ctx context.Context) ([]cities.City, error) {
	rows, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, &cities.DataLoadError{Source: s.ID(), Err: fmt.Errorf("failed to query cities: %w", err)}
	}
	if len(rows) == 0 {
		return nil, &cities.DataLoadError{Source: s.ID(), Err: errors.New("cities table is empty; run the seeder first")}
	}

	out := make([]cities.City, 0, len(rows))
	for i, row := range rows {
		if err := row.Validate(); err != nil {
			return nil, &cities.DataLoadError{Source: s.ID(), Row: i + 1, Err: err}
		}
		out = append(out, ToDomain(row))
	}
	return out, nil
}

func ToDomain(row models.City) cities.City {
	return cities.City{
		Name:       row.Name,
		Country:    row.Country,
		IsCapital:  row.IsCapital,
		Population: row.Population,
		Latitude:   row.Latitude,
		Longitude:  row.Longitude,
	}
}

func FromDomain(c cities.City) models.City {
	return models.City{
		Name:       c.Name,
		Country:    c.Country,
		IsCapital:  c.IsCapital,
		Population: c.Population,
		Latitude:   c.Latitude,
		Longitude:  c.Longitude,
	}
}
