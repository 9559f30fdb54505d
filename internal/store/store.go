// Package store defines the RunStore interface for persisting simulation runs.
package store

import (
	"context"
	"errors"
	"path/filepath"
	"time"

	"github.com/nvandessel/aisociety/internal/society"
)

var (
	// ErrRunNotFound is returned when a run ID does not exist.
	ErrRunNotFound = errors.New("run not found")

	// ErrRunExists is returned when saving a run whose ID is already stored.
	ErrRunExists = errors.New("run already exists")
)

// Run is one persisted simulation: its inputs, seed and every output year.
type Run struct {
	ID        string         `json:"id"`
	Label     string         `json:"label,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	Result    society.Result `json:"result"`
}

// RunInfo is the list view of a run.
type RunInfo struct {
	ID             string         `json:"id"`
	Label          string         `json:"label,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	Seed           uint64         `json:"seed"`
	Params         society.Params `json:"params"`
	FinalAvgIncome float64        `json:"final_avg_income"`
	FinalStability float64        `json:"final_stability"`
	FinalGini      float64        `json:"final_gini"`
}

// RunStore defines the interface for storing and querying simulation runs.
type RunStore interface {
	// SaveRun persists run. An empty ID is replaced by a new UUID and a zero
	// CreatedAt by the current time. Returns the stored ID.
	SaveRun(ctx context.Context, run *Run) (string, error)

	// GetRun returns the run with id, or ErrRunNotFound.
	GetRun(ctx context.Context, id string) (*Run, error)

	// ListRuns returns up to limit runs, newest first. limit <= 0 means all.
	ListRuns(ctx context.Context, limit int) ([]RunInfo, error)

	// AllRuns returns every stored run with full detail, oldest first.
	AllRuns(ctx context.Context) ([]Run, error)

	// DeleteRun removes a run, or returns ErrRunNotFound.
	DeleteRun(ctx context.Context, id string) error

	Close() error
}

// DefaultPath returns the database location for a project root.
func DefaultPath(root string) string {
	return filepath.Join(root, ".aisoc", "aisoc.db")
}
