// Package db owns the two role-scoped Postgres connection pools described
// in spec.md §4.1 (lending_app over public, compliance_app over hmda), the
// migration runner, and the audit-chain advisory lock helper.
package db

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/originpoint/backend/internal/config"
)

// Pool holds both role-scoped connections to the same physical database.
// Kept as two *sql.DB rather than one because Postgres enforces the
// lending_app/compliance_app schema boundary at the connection's role, not
// at the query: a single shared connection could not express "this query
// must not be able to see hmda.*" the way two separately-authenticated
// pools can.
type Pool struct {
	Lending    *sql.DB
	Compliance *sql.DB
}

// Open establishes both pools, pinging each before returning.
func Open(cfg *config.DatabaseConfig) (*Pool, error) {
	lending, err := open(cfg, cfg.LendingUser, cfg.LendingPassword)
	if err != nil {
		return nil, fmt.Errorf("db: open lending pool: %w", err)
	}

	compliance, err := open(cfg, cfg.ComplianceUser, cfg.CompliancePassword)
	if err != nil {
		lending.Close()
		return nil, fmt.Errorf("db: open compliance pool: %w", err)
	}

	return &Pool{Lending: lending, Compliance: compliance}, nil
}

func open(cfg *config.DatabaseConfig, user, password string) (*sql.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.Name, user, password, cfg.SSLMode,
	)
	conn, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	conn.SetMaxOpenConns(cfg.MaxOpenConns)
	conn.SetMaxIdleConns(cfg.MaxIdleConns)
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}

// Close closes both pools.
func (p *Pool) Close() {
	p.Lending.Close()
	p.Compliance.Close()
}

// DSN builds the migration-runner's admin connection string, which needs
// CREATE ROLE/CREATE SCHEMA privileges neither app role holds.
func DSN(cfg *config.DatabaseConfig, user, password string) string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		user, password, cfg.Host, cfg.Port, cfg.Name, cfg.SSLMode,
	)
}
