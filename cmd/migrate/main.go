// Command migrate applies the schema/role migrations in internal/db/migrations
// using the database admin role, grounded on the teacher's connection-check
// CLI shape (godotenv.Load, then one clear pass/fail outcome).
package main

import (
	"log"
	"log/slog"

	"github.com/joho/godotenv"

	"github.com/originpoint/backend/internal/config"
	"github.com/originpoint/backend/internal/db"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found, using environment variables")
	}

	cfg := config.Get()

	if err := db.Migrate(&cfg.Database); err != nil {
		log.Fatalf("migration failed: %v", err)
	}

	slog.Info("migrations applied", "database", cfg.Database.Name, "host", cfg.Database.Host)
}
