package seeder

import (
	"context"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/demodash/backend/internal/cities"
	"github.com/demodash/backend/internal/models"
	"github.com/demodash/backend/internal/query"
	"github.com/demodash/backend/internal/repository"
)

// Importer writes a city dataset into the cities table
type Importer struct {
	repo   models.CityRepository
	logger *logrus.Logger
}

func NewImporter(repo models.CityRepository, logger *logrus.Logger) *Importer {
	return &Importer{
		repo:   repo,
		logger: logger,
	}
}

// Import replaces the table contents with records, tagging rows with source
func (im *Importer) Import(ctx context.Context, source string, records []cities.City) error {
	rows := make([]models.City, len(records))
	for i, c := range records {
		rows[i] = repository.FromDomain(c)
	}

	if err := im.repo.ReplaceAll(ctx, source, rows); err != nil {
		return fmt.Errorf("failed to import cities from %s: %w", source, err)
	}

	im.logger.WithFields(logrus.Fields{
		"source": source,
		"cities": len(rows),
	}).Info("Cities imported")
	return nil
}

// ImportSource loads a file-backed source and imports it
func (im *Importer) ImportSource(ctx context.Context, src cities.Source) error {
	records, err := src.Load(ctx)
	if err != nil {
		return err
	}
	return im.Import(ctx, src.ID(), records)
}

// WriteDataset writes records in the loader's file layout (csv or xlsx)
func WriteDataset(w io.Writer, format string, records []cities.City) error {
	return query.Export(w, format, &query.Result{
		Spec:   query.Unconstrained(),
		Cities: records,
		Count:  len(records),
	})
}
