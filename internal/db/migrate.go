package db

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite3"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"Ystore/internal/logger"
)

// Migrate applies the migrations in dir to the database at url. direction is
// "up" or "down". Running with nothing to apply is not an error.
func Migrate(url, dir, direction string) error {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return err
	}
	m, err := migrate.New("file://"+filepath.ToSlash(abs), url)
	if err != nil {
		return fmt.Errorf("migrate init: %w", err)
	}
	defer m.Close()

	switch direction {
	case "up", "":
		err = m.Up()
	case "down":
		err = m.Down()
	default:
		return fmt.Errorf("unknown migration direction %q", direction)
	}
	if errors.Is(err, migrate.ErrNoChange) {
		logger.Info("migrate_no_change", map[string]any{"dir": dir})
		return nil
	}
	if err != nil {
		return fmt.Errorf("migrate %s: %w", direction, err)
	}
	version, dirty, _ := m.Version()
	logger.Info("migrate_done", map[string]any{"direction": direction, "version": version, "dirty": dirty})
	return nil
}

// SQLiteURL returns the migrate database URL for a SQLite file.
func SQLiteURL(path string) string {
	return "sqlite3://" + path
}
