package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version that the application
// expects. If the database cannot be migrated to this version, it's a
// fatal error.
const ExpectedSchemaVersion = 2

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Report snapshot cache",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS fetch_counter (
					id INTEGER PRIMARY KEY CHECK (id = 1),
					seq INTEGER NOT NULL DEFAULT 0
				)`,
				`INSERT OR IGNORE INTO fetch_counter (id, seq) VALUES (1, 0)`,

				`CREATE TABLE IF NOT EXISTS report_meta (
					id INTEGER PRIMARY KEY CHECK (id = 1),
					seq INTEGER NOT NULL,
					fetched_at DATETIME NOT NULL
				)`,

				`CREATE TABLE IF NOT EXISTS cached_transactions (
					id TEXT PRIMARY KEY,
					type TEXT NOT NULL,
					account_label TEXT,
					amount TEXT NOT NULL,
					status TEXT NOT NULL,
					occurred_at DATETIME NOT NULL
				)`,
				`CREATE INDEX idx_cached_transactions_occurred ON cached_transactions(occurred_at)`,

				`CREATE TABLE IF NOT EXISTS cached_accounts (
					id TEXT PRIMARY KEY,
					name TEXT NOT NULL,
					kind TEXT NOT NULL,
					category TEXT,
					balance TEXT NOT NULL,
					limit_amount TEXT NOT NULL,
					overspend_rule TEXT,
					rollover_rule TEXT
				)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     2,
		Description: "Pending top-up queue",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS pending_topups (
					reference TEXT PRIMARY KEY,
					amount TEXT NOT NULL,
					status TEXT NOT NULL DEFAULT 'PENDING',
					created_at DATETIME NOT NULL,
					resolved_at DATETIME
				)`,
				`CREATE INDEX idx_pending_topups_status ON pending_topups(status)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
}

// Migrate applies all pending database migrations.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	var currentVersion int
	err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		tx, txErr := s.db.BeginTx(ctx, nil)
		if txErr != nil {
			return fmt.Errorf("failed to begin transaction: %w", txErr)
		}

		if upErr := migration.Up(tx); upErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, upErr)
		}

		if _, execErr := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", migration.Version)); execErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to update schema version: %w", execErr)
		}

		if commitErr := tx.Commit(); commitErr != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, commitErr)
		}

		slog.Info("Applied migration",
			"version", migration.Version,
			"description", migration.Description)
	}

	var finalVersion int
	err = s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&finalVersion)
	if err != nil {
		return fmt.Errorf("failed to verify final schema version: %w", err)
	}

	if finalVersion != ExpectedSchemaVersion {
		return fmt.Errorf("database schema version mismatch: expected %d, got %d", ExpectedSchemaVersion, finalVersion)
	}

	return nil
}
