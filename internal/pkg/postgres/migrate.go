package postgres

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	// Registers the postgres database driver for golang-migrate.
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	// Registers the file:// migration source.
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// Direction selects which way migrations are applied.
type Direction string

// Migration directions.
const (
	MigrateUp   Direction = "up"
	MigrateDown Direction = "down"
)

// Migrate applies migrations from sourceURL (for example "file://migrations")
// to the database. For MigrateDown only the last migration is reverted.
func Migrate(sourceURL, databaseURL string, direction Direction) error {
	m, err := migrate.New(sourceURL, databaseURL)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	defer func() {
		srcErr, dbErr := m.Close()
		if srcErr != nil || dbErr != nil {
			slog.Warn("failed to close migrator", "source_error", srcErr, "database_error", dbErr)
		}
	}()

	switch direction {
	case MigrateUp:
		err = m.Up()
	case MigrateDown:
		err = m.Steps(-1)
	default:
		return fmt.Errorf("unknown migration direction %q", direction)
	}

	if errors.Is(err, migrate.ErrNoChange) {
		slog.Info("migrations already applied", "direction", direction)
		return nil
	}
	if err != nil {
		return fmt.Errorf("migrate %s: %w", direction, err)
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("read migration version: %w", err)
	}
	slog.Info("migrations applied", "direction", direction, "version", version, "dirty", dirty)
	return nil
}
