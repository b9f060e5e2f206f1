package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// Migration represents a database migration
type Migration struct {
	Version int
	Name    string
	SQL     string
}

// migrations contains all database migrations in order
var migrations = []Migration{
	{
		Version: 1,
		Name:    "initial_schema",
		SQL: `
			-- Create graphs table: one row per extraction result
			CREATE TABLE IF NOT EXISTS graphs (
				id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
				fingerprint VARCHAR(36) NOT NULL,
				original_url TEXT NOT NULL,
				final_url TEXT NOT NULL,

				-- Typed Open Graph fields (nullable: absent on the page)
				title VARCHAR(1000),
				graph_type VARCHAR(100),
				image_url TEXT,
				canonical_url TEXT,

				-- Raw ordered property mapping and locale alternates
				entries JSONB DEFAULT '[]',
				locale_alternates TEXT[] DEFAULT '{}',

				encoding VARCHAR(50) NOT NULL DEFAULT '',
				extraction_status VARCHAR(20) DEFAULT 'pending',

				fetched_at TIMESTAMP WITH TIME ZONE NOT NULL,
				created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),

				CHECK (extraction_status IN ('pending', 'processing', 'complete', 'failed'))
			);

			CREATE INDEX IF NOT EXISTS idx_graphs_fingerprint
			ON graphs(fingerprint, created_at DESC);

			CREATE INDEX IF NOT EXISTS idx_graphs_created
			ON graphs(created_at DESC);

			CREATE INDEX IF NOT EXISTS idx_graphs_status
			ON graphs(extraction_status);
		`,
	},
}

// RunMigrations applies all pending migrations in order
func RunMigrations(db *sql.DB, logger *slog.Logger) error {
	// Ensure the migrations bookkeeping table exists
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS migrations (
			version INTEGER PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			applied_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		)`); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	currentVersion, err := GetMigrationStatus(db)
	if err != nil {
		return err
	}

	applied := 0
	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		logger.Info("Applying migration",
			"version", migration.Version,
			"name", migration.Name,
		)

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("failed to begin transaction for migration %d: %w", migration.Version, err)
		}

		if _, err := tx.Exec(migration.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to apply migration %d (%s): %w", migration.Version, migration.Name, err)
		}

		if _, err := tx.Exec("INSERT INTO migrations (version, name) VALUES ($1, $2)",
			migration.Version, migration.Name); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, err)
		}

		applied++
		logger.Info("Migration applied successfully", "version", migration.Version)
	}

	if applied == 0 {
		logger.Info("No migrations to apply - database is up to date")
	} else {
		logger.Info("Database migrations completed", "applied", applied)
	}

	return nil
}

// GetMigrationStatus returns the current migration version
func GetMigrationStatus(db *sql.DB) (int, error) {
	var version int
	err := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM migrations").Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("failed to get migration status: %w", err)
	}
	return version, nil
}

// ResetDatabase drops all tables (for testing)
func ResetDatabase(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	logger.Warn("Resetting database - all data will be lost")

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	for _, table := range []string{"graphs", "migrations"} {
		if _, err := tx.Exec("DROP TABLE IF EXISTS " + table + " CASCADE"); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to drop table %s: %w", table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit reset: %w", err)
	}

	logger.Info("Database reset complete")
	return nil
}
