package db

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/originpoint/backend/internal/config"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Migrate applies every pending migration using the admin role (needs
// CREATE ROLE/CREATE SCHEMA, which neither lending_app nor compliance_app
// holds). Safe to call on every boot: golang-migrate no-ops once the schema
// is current.
func Migrate(cfg *config.DatabaseConfig) error {
	source, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return fmt.Errorf("db: load migration source: %w", err)
	}

	adminDSN := DSN(cfg, cfg.AdminUser, cfg.AdminPassword)
	m, err := migrate.NewWithSourceInstance("iofs", source, adminDSN)
	if err != nil {
		return fmt.Errorf("db: init migrator: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("db: apply migrations: %w", err)
	}
	return nil
}
