package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// SchemaVersion is the version a fully migrated database reports.
const SchemaVersion = 1

// migrations[i] upgrades a database from version i to version i+1.
var migrations = []string{schemaV1}

const versionTable = `
CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TEXT NOT NULL
);`

const schemaV1 = `
-- One row per simulation run (inputs plus final-year headline values)
CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    label TEXT,
    created_at TEXT NOT NULL,
    seed INTEGER NOT NULL,

    -- Inputs
    years INTEGER NOT NULL,
    population INTEGER NOT NULL,
    start_automation REAL NOT NULL,
    automation_growth REAL NOT NULL,
    ubi_enabled INTEGER NOT NULL,
    ubi_amount REAL NOT NULL,
    ai_tax_rate REAL NOT NULL,

    -- Denormalized for listing without touching run_years
    final_avg_income REAL NOT NULL,
    final_stability REAL NOT NULL,
    final_gini REAL NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);

-- Per-year outputs
CREATE TABLE IF NOT EXISTS run_years (
    run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    year INTEGER NOT NULL,
    automation_rate REAL NOT NULL,
    employed INTEGER NOT NULL,
    unemployed INTEGER NOT NULL,
    ai_output REAL NOT NULL,
    tax_collected REAL NOT NULL,
    ubi_per_person REAL NOT NULL,
    avg_income REAL NOT NULL,
    stability REAL NOT NULL,
    gini REAL NOT NULL,
    PRIMARY KEY (run_id, year)
);
`

// InitSchema brings db up to SchemaVersion. Existing databases are
// integrity checked first, and a database written by a newer binary is
// refused rather than modified.
func InitSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, versionTable); err != nil {
		return fmt.Errorf("failed to create schema_version: %w", err)
	}

	current, err := schemaVersion(ctx, db)
	if err != nil {
		return err
	}
	if current > SchemaVersion {
		return fmt.Errorf("database schema v%d is newer than supported v%d", current, SchemaVersion)
	}
	if current > 0 {
		if err := ValidateIntegrity(ctx, db); err != nil {
			return fmt.Errorf("database integrity check failed: %w", err)
		}
	}

	for v := current; v < SchemaVersion; v++ {
		if err := migrate(ctx, db, v+1, migrations[v]); err != nil {
			return fmt.Errorf("failed to migrate schema to v%d: %w", v+1, err)
		}
	}
	return nil
}

// schemaVersion returns the highest applied version, 0 for an empty database.
func schemaVersion(ctx context.Context, db *sql.DB) (int, error) {
	var version int
	err := db.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_version`).Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return version, nil
}

// migrate applies ddl and records version in one transaction.
func migrate(ctx context.Context, db *sql.DB, version int, ddl string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, ddl); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO schema_version (version, applied_at) VALUES (?, datetime('now'))`, version); err != nil {
		return err
	}
	return tx.Commit()
}

// ValidateIntegrity runs PRAGMA integrity_check and PRAGMA
// foreign_key_check and reports the first problem found.
func ValidateIntegrity(ctx context.Context, db *sql.DB) error {
	var result string
	if err := db.QueryRowContext(ctx, `PRAGMA integrity_check`).Scan(&result); err != nil {
		return fmt.Errorf("failed to run integrity_check: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("integrity_check failed: %s", result)
	}

	rows, err := db.QueryContext(ctx, `PRAGMA foreign_key_check`)
	if err != nil {
		return fmt.Errorf("failed to run foreign_key_check: %w", err)
	}
	defer rows.Close()

	var violations []string
	for rows.Next() {
		var table, parent string
		var rowid sql.NullInt64
		var fkid int
		if err := rows.Scan(&table, &rowid, &parent, &fkid); err != nil {
			return fmt.Errorf("failed to scan foreign_key_check result: %w", err)
		}
		violations = append(violations, fmt.Sprintf("%s row %d references missing %s", table, rowid.Int64, parent))
	}
	if err := rows.Err(); err != nil {
		return err
	}
	if len(violations) > 0 {
		return fmt.Errorf("foreign_key_check failed: %s", strings.Join(violations, "; "))
	}
	return nil
}
