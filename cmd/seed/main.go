package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/demodash/backend/internal/cities"
	"github.com/demodash/backend/internal/config"
	"github.com/demodash/backend/internal/database"
	"github.com/demodash/backend/internal/migration"
	"github.com/demodash/backend/internal/repository"
	"github.com/demodash/backend/internal/seeder"
	"github.com/demodash/backend/pkg/utils"
)

// Command line flags
var (
	pageURL  = flag.String("url", "", "Page with an HTML table of cities to scrape")
	selector = flag.String("selector", "table.wikitable", "CSS selector of the table to scrape")
	file     = flag.String("file", "", "CSV or XLSX dataset to import instead of scraping")
	sheet    = flag.String("sheet", "", "Sheet to read from an XLSX file (default: first sheet)")
	out      = flag.String("out", "", "Write the dataset to this .csv or .xlsx file instead of Postgres")
	dryRun   = flag.Bool("dry-run", false, "Parse and report without writing anything")
	verbose  = flag.Bool("verbose", false, "Enable verbose logging")
	delay    = flag.Duration("delay", time.Second, "Delay between scraper requests")
	timeout  = flag.Duration("timeout", 2*time.Minute, "Overall timeout")
)

func main() {
	flag.Parse()

	logger := utils.GetLogger()
	if *verbose {
		logger.SetLevel(logrus.DebugLevel)
	}

	if (*pageURL == "") == (*file == "") {
		logger.Fatal("Exactly one of -url or -file is required")
	}

	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	source, records, err := collect(ctx, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to collect cities")
	}

	logger.WithFields(logrus.Fields{
		"source": source,
		"cities": len(records),
	}).Info("Cities collected")

	switch {
	case *dryRun:
		for i, c := range records {
			if i == 10 {
				logger.Infof("DRY RUN: ... and %d more", len(records)-10)
				break
			}
			logger.WithFields(logrus.Fields{
				"name":       c.Name,
				"country":    c.Country,
				"population": c.Population,
				"capital":    c.IsCapital,
			}).Info("DRY RUN: Would import city")
		}
	case *out != "":
		if err := writeFile(*out, records); err != nil {
			logger.WithError(err).Fatal("Failed to write dataset")
		}
		logger.WithField("path", *out).Info("Dataset written")
	default:
		if err := importToDatabase(ctx, cfg, source, records, logger); err != nil {
			logger.WithError(err).Fatal("Failed to import cities")
		}
	}

	logger.Info("Seeding completed successfully!")
}

func collect(ctx context.Context, logger *logrus.Logger) (string, []cities.City, error) {
	if *file != "" {
		src, err := cities.SourceFromPath(*file, *sheet)
		if err != nil {
			return "", nil, err
		}
		records, err := src.Load(ctx)
		return src.ID(), records, err
	}

	opts := seeder.DefaultScrapeOptions()
	opts.Delay = *delay
	rows, err := seeder.NewTableScraper(opts, logger).Scrape(ctx, *pageURL, *selector)
	if err != nil {
		return "", nil, err
	}

	source := "scrape:" + *pageURL
	records, issues, err := seeder.NewTableProcessor().Process(source, rows)
	for _, issue := range issues {
		logger.WithFields(logrus.Fields{
			"row":    issue.Row,
			"reason": issue.Reason,
		}).Warn("Skipped scraped row")
	}
	return source, records, err
}

func writeFile(path string, records []cities.City) error {
	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := seeder.WriteDataset(f, format, records); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	return f.Close()
}

func importToDatabase(ctx context.Context, cfg *config.Config, source string, records []cities.City, logger *logrus.Logger) error {
	if cfg.Database.URL == "" {
		return fmt.Errorf("%w: set DATABASE_URL or pass -out", database.ErrDatabaseDisabled)
	}

	dbManager, err := database.NewManager(&database.Config{
		DatabaseURL: cfg.Database.URL,
		LogLevel:    cfg.Log.Level,
	}, logger)
	if err != nil {
		return err
	}
	defer dbManager.Close()

	runner := migration.NewRunner(dbManager, logger)
	if err := runner.RunMigrations(cfg.Migrations.Path); err != nil {
		return err
	}

	repoManager := repository.NewRepositoryManager(dbManager.DB)
	if err := seeder.NewImporter(repoManager.City, logger).Import(ctx, source, records); err != nil {
		return err
	}

	_, err = runner.VerifySetup(ctx, repoManager.City)
	return err
}
