package store

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	_ "modernc.org/sqlite"
)

func openMemoryDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	// Each connection to :memory: is its own database.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestInitSchema_FreshDB(t *testing.T) {
	db := openMemoryDB(t)
	ctx := context.Background()

	if err := InitSchema(ctx, db); err != nil {
		t.Fatalf("InitSchema failed: %v", err)
	}

	runCols := getColumns(t, db, "runs")
	for _, col := range []string{"id", "seed", "ubi_amount", "final_gini"} {
		if !runCols[col] {
			t.Errorf("runs table missing column %s", col)
		}
	}
	yearCols := getColumns(t, db, "run_years")
	for _, col := range []string{"run_id", "year", "ubi_per_person", "stability"} {
		if !yearCols[col] {
			t.Errorf("run_years table missing column %s", col)
		}
	}

	version, err := schemaVersion(ctx, db)
	if err != nil {
		t.Fatalf("schemaVersion: %v", err)
	}
	if version != SchemaVersion {
		t.Errorf("schema version = %d, want %d", version, SchemaVersion)
	}
}

func TestInitSchema_Idempotent(t *testing.T) {
	db := openMemoryDB(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := InitSchema(ctx, db); err != nil {
			t.Fatalf("InitSchema pass %d failed: %v", i+1, err)
		}
	}

	var rows int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM schema_version`).Scan(&rows); err != nil {
		t.Fatalf("count schema_version: %v", err)
	}
	if rows != 1 {
		t.Errorf("schema_version has %d rows, want 1", rows)
	}
}

func TestValidateIntegrity_OrphanedYear(t *testing.T) {
	db := openMemoryDB(t)
	ctx := context.Background()

	if err := InitSchema(ctx, db); err != nil {
		t.Fatalf("InitSchema failed: %v", err)
	}
	if err := ValidateIntegrity(ctx, db); err != nil {
		t.Fatalf("ValidateIntegrity on fresh db: %v", err)
	}

	// foreign_keys is off by default on a bare connection, so the orphan sticks.
	if _, err := db.ExecContext(ctx, `
		INSERT INTO run_years (run_id, year, automation_rate, employed, unemployed,
			ai_output, tax_collected, ubi_per_person, avg_income, stability, gini)
		VALUES ('ghost', 1, 0.3, 70, 30, 1500000, 450000, 4500, 60000, 40, 0.3)`); err != nil {
		t.Fatalf("insert orphan: %v", err)
	}

	if err := ValidateIntegrity(ctx, db); err == nil {
		t.Error("expected ValidateIntegrity to report the orphaned year")
	}
	if err := InitSchema(ctx, db); err == nil {
		t.Error("expected InitSchema to refuse a database with FK violations")
	}
}

func TestInitSchema_RefusesNewerVersion(t *testing.T) {
	db := openMemoryDB(t)
	ctx := context.Background()

	if err := InitSchema(ctx, db); err != nil {
		t.Fatalf("InitSchema failed: %v", err)
	}
	if _, err := db.ExecContext(ctx,
		`INSERT INTO schema_version (version, applied_at) VALUES (?, datetime('now'))`, SchemaVersion+1); err != nil {
		t.Fatalf("insert version: %v", err)
	}

	err := InitSchema(ctx, db)
	if err == nil || !strings.Contains(err.Error(), "newer than supported") {
		t.Errorf("InitSchema on future schema = %v, want newer-version error", err)
	}
}

func TestMigrationsMatchSchemaVersion(t *testing.T) {
	if len(migrations) != SchemaVersion {
		t.Errorf("len(migrations) = %d, want SchemaVersion (%d)", len(migrations), SchemaVersion)
	}
}

// getColumns returns a map of column names for the given table.
func getColumns(t *testing.T, db *sql.DB, table string) map[string]bool {
	t.Helper()
	rows, err := db.Query("PRAGMA table_info(" + table + ")")
	if err != nil {
		t.Fatalf("PRAGMA table_info(%s): %v", table, err)
	}
	defer rows.Close()

	cols := make(map[string]bool)
	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull, pk int
		var dfltValue interface{}
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dfltValue, &pk); err != nil {
			t.Fatalf("scan: %v", err)
		}
		cols[name] = true
	}
	return cols
}
