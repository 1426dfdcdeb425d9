package migration

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/demodash/backend/internal/database"
	"github.com/demodash/backend/internal/models"
)

type Runner struct {
	dbManager *database.Manager
	logger    *logrus.Logger
}

func NewRunner(dbManager *database.Manager, logger *logrus.Logger) *Runner {
	return &Runner{
		dbManager: dbManager,
		logger:    logger,
	}
}

// RunMigrations runs the GORM auto-migrations and then every .sql file in
// migrationsPath in name order. A missing directory only skips the SQL step.
func (r *Runner) RunMigrations(migrationsPath string) error {
	if !r.dbManager.HasDatabase() {
		return database.ErrDatabaseDisabled
	}

	r.logger.Info("Starting database migrations...")

	if err := r.dbManager.Migrate(); err != nil {
		return fmt.Errorf("GORM auto-migration failed: %w", err)
	}

	if err := r.runSQLMigrations(migrationsPath); err != nil {
		return fmt.Errorf("SQL migrations failed: %w", err)
	}

	r.logger.Info("Database migrations completed successfully")
	return nil
}

// VerifySetup reports how many cities the table holds. Zero rows is not an
// error here; the database source rejects an empty table when it loads.
func (r *Runner) VerifySetup(ctx context.Context, cities models.CityRepository) (int64, error) {
	if err := r.dbManager.PingDatabase(ctx); err != nil {
		return 0, fmt.Errorf("database not reachable: %w", err)
	}

	count, err := cities.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count cities: %w", err)
	}

	entry := r.logger.WithField("cities", count)
	if count == 0 {
		entry.Warn("Cities table is empty; run cmd/seed to import the dataset")
	} else {
		entry.Info("Database setup verified")
	}
	return count, nil
}

// SQLFiles lists the .sql files of a migrations directory in execution order
func SQLFiles(migrationsPath string) ([]string, error) {
	entries, err := os.ReadDir(migrationsPath)
	if err != nil {
		return nil, err
	}

	var sqlFiles []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			sqlFiles = append(sqlFiles, entry.Name())
		}
	}

	sort.Strings(sqlFiles)
	return sqlFiles, nil
}

func (r *Runner) runSQLMigrations(migrationsPath string) error {
	sqlFiles, err := SQLFiles(migrationsPath)
	if errors.Is(err, fs.ErrNotExist) {
		r.logger.WithField("path", migrationsPath).Debug("No migrations directory, skipping SQL migrations")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read migrations directory: %w", err)
	}

	for _, fileName := range sqlFiles {
		if err := r.runSQLFile(filepath.Join(migrationsPath, fileName)); err != nil {
			return fmt.Errorf("failed to run migration %s: %w", fileName, err)
		}
		r.logger.WithField("file", fileName).Info("Migration executed successfully")
	}

	return nil
}

func (r *Runner) runSQLFile(filePath string) error {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}

	name := filepath.Base(filePath)
	sqlContent := string(content)

	// Dollar-quoted bodies contain semicolons, so such files run as one statement.
	if strings.Contains(sqlContent, "$") {
		r.logger.WithField("file", name).Debug("Executing SQL file with dollar-quoted functions")

		if err := r.dbManager.DB.Exec(RemoveComments(sqlContent)).Error; err != nil {
			return fmt.Errorf("failed to execute %s: %w", name, err)
		}
		return nil
	}

	for i, stmt := range SplitStatements(sqlContent) {
		r.logger.WithFields(logrus.Fields{
			"file":      name,
			"statement": i + 1,
		}).Debug("Executing SQL statement")

		if err := r.dbManager.DB.Exec(stmt).Error; err != nil {
			return fmt.Errorf("failed to execute statement %d in %s: %w", i+1, name, err)
		}
	}

	return nil
}

// RemoveComments drops full-line "--" comments
func RemoveComments(sql string) string {
	var result []string
	for _, line := range strings.Split(sql, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "--") {
			continue
		}
		result = append(result, line)
	}
	return strings.Join(result, "\n")
}

// SplitStatements strips comment lines and splits on semicolons
func SplitStatements(sql string) []string {
	var cleanedLines []string
	for _, line := range strings.Split(sql, "\n") {
		line = strings.TrimSpace(line)
		if line != "" && !strings.HasPrefix(line, "--") {
			cleanedLines = append(cleanedLines, line)
		}
	}

	var result []string
	for _, stmt := range strings.Split(strings.Join(cleanedLines, " "), ";") {
		if stmt = strings.TrimSpace(stmt); stmt != "" {
			result = append(result, stmt)
		}
	}
	return result
}
