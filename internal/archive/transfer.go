package archive

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/nvandessel/aisociety/internal/store"
)

// ImportResult contains statistics about an import.
type ImportResult struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
}

// Export writes every run in s to path.
func Export(ctx context.Context, s store.RunStore, path string) (*Header, error) {
	runs, err := s.AllRuns(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load runs: %w", err)
	}
	return Write(path, New(runs))
}

// Import reads path and saves its runs into s. Runs whose ID already exists
// are skipped.
func Import(ctx context.Context, s store.RunStore, path string) (*ImportResult, error) {
	_, a, err := Read(path)
	if err != nil {
		return nil, err
	}

	result := &ImportResult{}
	for i := range a.Runs {
		run := a.Runs[i]
		if run.ID == "" {
			return nil, fmt.Errorf("archive run %d has no id", i)
		}
		if _, err := s.SaveRun(ctx, &run); err != nil {
			if errors.Is(err, store.ErrRunExists) {
				result.Skipped++
				continue
			}
			return nil, fmt.Errorf("failed to import run %s: %w", run.ID, err)
		}
		result.Imported++
	}
	return result, nil
}

// GeneratePath creates a timestamped archive filename in dir.
func GeneratePath(dir string) string {
	ts := time.Now().Format("20060102-150405")
	return filepath.Join(dir, fmt.Sprintf("aisoc-runs-%s.zst", ts))
}
