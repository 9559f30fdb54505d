package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nvandessel/aisociety/internal/sanitize"
	"github.com/nvandessel/aisociety/internal/society"
	_ "modernc.org/sqlite" // SQLite driver
)

// SQLiteRunStore implements RunStore using SQLite for persistence.
type SQLiteRunStore struct {
	mu     sync.RWMutex
	db     *sql.DB
	dbPath string
}

// NewSQLiteRunStore opens (or creates) the database at dbPath and
// initializes its schema.
func NewSQLiteRunStore(dbPath string) (*SQLiteRunStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite works best with single writer

	if err := InitSchema(context.Background(), db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteRunStore{db: db, dbPath: dbPath}, nil
}

// Path returns the database file location.
func (s *SQLiteRunStore) Path() string {
	return s.dbPath
}

// SaveRun persists a run and all of its years in one transaction.
func (s *SQLiteRunStore) SaveRun(ctx context.Context, run *Run) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if run == nil {
		return "", fmt.Errorf("run is required")
	}
	res := run.Result
	if len(res.Years) == 0 {
		return "", fmt.Errorf("run has no simulated years")
	}
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if !sanitize.ValidRunID(run.ID) {
		return "", &society.InvalidInputError{Field: "id", Value: run.ID,
			Reason: fmt.Sprintf("must be 1-%d characters of [a-zA-Z0-9-_]", sanitize.MaxRunIDLength)}
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	run.Label = sanitize.Label(run.Label)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs WHERE id = ?`, run.ID).Scan(&exists); err != nil {
		return "", fmt.Errorf("failed to check run %s: %w", run.ID, err)
	}
	if exists > 0 {
		return "", fmt.Errorf("save run %s: %w", run.ID, ErrRunExists)
	}

	final := res.Years[len(res.Years)-1]
	p := res.Params
	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (
			id, label, created_at, seed,
			years, population, start_automation, automation_growth,
			ubi_enabled, ubi_amount, ai_tax_rate,
			final_avg_income, final_stability, final_gini
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Label, run.CreatedAt.UTC().Format(timeLayout), int64(res.Seed),
		p.Years, p.Population, p.StartAutomation, p.AutomationGrowth,
		boolToInt(p.UBIEnabled), p.UBIAmount, p.AITaxRate,
		final.AvgIncome, final.Stability, final.Gini,
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO run_years (
			run_id, year, automation_rate, employed, unemployed,
			ai_output, tax_collected, ubi_per_person,
			avg_income, stability, gini
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("failed to prepare year insert: %w", err)
	}
	defer stmt.Close()

	for _, ys := range res.Years {
		if _, err := stmt.ExecContext(ctx,
			run.ID, ys.Year, ys.AutomationRate, ys.Employed, ys.Unemployed,
			ys.AIOutput, ys.TaxCollected, ys.UBIPerPerson,
			ys.AvgIncome, ys.Stability, ys.Gini,
		); err != nil {
			return "", fmt.Errorf("failed to insert year %d: %w", ys.Year, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit run: %w", err)
	}

	return run.ID, nil
}

// GetRun loads a run and rebuilds its output series from the stored years.
func (s *SQLiteRunStore) GetRun(ctx context.Context, id string) (*Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	info, err := scanRunInfo(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get run %s: %w", id, ErrRunNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read run %s: %w", id, err)
	}

	years, err := s.loadYears(ctx, id)
	if err != nil {
		return nil, err
	}

	return buildRun(info, years), nil
}

// ListRuns returns run summaries, newest first.
func (s *SQLiteRunStore) ListRuns(ctx context.Context, limit int) ([]RunInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT ` + runColumns + ` FROM runs ORDER BY created_at DESC, id`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var infos []RunInfo
	for rows.Next() {
		info, err := scanRunInfo(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		infos = append(infos, info)
	}
	return infos, rows.Err()
}

// AllRuns returns every run with its years, oldest first.
func (s *SQLiteRunStore) AllRuns(ctx context.Context) ([]Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT `+runColumns+` FROM runs ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}

	var infos []RunInfo
	for rows.Next() {
		info, err := scanRunInfo(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		infos = append(infos, info)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	// Single connection: the runs cursor must be closed before loading years.
	runs := make([]Run, 0, len(infos))
	for _, info := range infos {
		years, err := s.loadYears(ctx, info.ID)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *buildRun(info, years))
	}
	return runs, nil
}

// DeleteRun removes a run; its years cascade.
func (s *SQLiteRunStore) DeleteRun(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete run %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete run %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("delete run %s: %w", id, ErrRunNotFound)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteRunStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// timeLayout is fixed-width so created_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const runColumns = `id, COALESCE(label, ''), created_at, seed,
	years, population, start_automation, automation_growth,
	ubi_enabled, ubi_amount, ai_tax_rate,
	final_avg_income, final_stability, final_gini`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRunInfo(row rowScanner) (RunInfo, error) {
	var (
		info      RunInfo
		createdAt string
		seed      int64
		ubi       int
	)
	err := row.Scan(
		&info.ID, &info.Label, &createdAt, &seed,
		&info.Params.Years, &info.Params.Population,
		&info.Params.StartAutomation, &info.Params.AutomationGrowth,
		&ubi, &info.Params.UBIAmount, &info.Params.AITaxRate,
		&info.FinalAvgIncome, &info.FinalStability, &info.FinalGini,
	)
	if err != nil {
		return RunInfo{}, err
	}

	info.Seed = uint64(seed)
	info.Params.UBIEnabled = ubi != 0
	info.CreatedAt, err = time.Parse(timeLayout, createdAt)
	if err != nil {
		return RunInfo{}, fmt.Errorf("parsing created_at %q: %w", createdAt, err)
	}
	return info, nil
}

// loadYears reads the per-year rows of a run. Callers hold s.mu.
func (s *SQLiteRunStore) loadYears(ctx context.Context, id string) ([]society.YearStats, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT year, automation_rate, employed, unemployed,
		       ai_output, tax_collected, ubi_per_person,
		       avg_income, stability, gini
		FROM run_years WHERE run_id = ? ORDER BY year`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load years for run %s: %w", id, err)
	}
	defer rows.Close()

	var years []society.YearStats
	for rows.Next() {
		var ys society.YearStats
		if err := rows.Scan(
			&ys.Year, &ys.AutomationRate, &ys.Employed, &ys.Unemployed,
			&ys.AIOutput, &ys.TaxCollected, &ys.UBIPerPerson,
			&ys.AvgIncome, &ys.Stability, &ys.Gini,
		); err != nil {
			return nil, fmt.Errorf("failed to scan year: %w", err)
		}
		years = append(years, ys)
	}
	return years, rows.Err()
}

func buildRun(info RunInfo, years []society.YearStats) *Run {
	res := society.Result{
		Params:    info.Params,
		Seed:      info.Seed,
		AvgIncome: make([]float64, len(years)),
		Stability: make([]float64, len(years)),
		Gini:      make([]float64, len(years)),
		Years:     years,
	}
	for i, ys := range years {
		res.AvgIncome[i] = ys.AvgIncome
		res.Stability[i] = ys.Stability
		res.Gini[i] = ys.Gini
	}
	return &Run{
		ID:        info.ID,
		Label:     info.Label,
		CreatedAt: info.CreatedAt,
		Result:    res,
	}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
