package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/nvandessel/aisociety/internal/config"
	"github.com/nvandessel/aisociety/internal/logging"
	"github.com/nvandessel/aisociety/internal/store"
	"github.com/nvandessel/aisociety/internal/telemetry"
	"github.com/spf13/cobra"
)

// Set by goreleaser ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "aisoc",
		Short: "AI society simulator",
		Long: `aisoc simulates a society in which AI automation displaces labor year by year.

Each run reports average income, a social stability score and the Gini
coefficient of income for every simulated year, optionally redistributing
an AI tax as universal basic income.`,
	}

	// Global flags
	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON (for agent consumption)")
	rootCmd.PersistentFlags().String("root", ".", "Project root directory")

	rootCmd.AddCommand(
		newVersionCmd(),
		newSimulateCmd(),
		newServeCmd(),
		newRunsCmd(),
		newConfigCmd(),
		newMCPServerCmd(),
	)

	return rootCmd
}

// loadConfig loads ~/.aisoc/config.yaml with environment overrides and
// rejects settings the simulator cannot run with.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// newLogger builds the operational logger. Logs go to w so stdout stays
// free for command output.
func newLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	return logging.NewLogger(cfg.Logging.Level, cfg.Logging.Format, w)
}

// setupTelemetry starts trace export when telemetry.endpoint is set. The
// returned function flushes pending spans. Setup failures are reported to w
// and leave tracing disabled.
func setupTelemetry(ctx context.Context, cfg *config.Config, w io.Writer) func() {
	shutdown, err := telemetry.Setup(ctx, telemetry.ServiceName, cfg.Telemetry.Endpoint)
	if err != nil {
		fmt.Fprintf(w, "warning: tracing disabled: %v\n", err)
	}
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		shutdown(ctx)
	}
}

// withShutdownSignals returns a context cancelled on Ctrl-C (and SIGTERM
// where it exists) or when parent is done.
func withShutdownSignals(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, shutdownSignals...)
}

// dataDir returns the per-project data directory.
func dataDir(root string) string {
	return filepath.Join(root, config.DirName)
}

// openRunStore opens the run history database for root.
func openRunStore(root string, cfg *config.Config) (*store.SQLiteRunStore, error) {
	path := cfg.Store.Path
	if path == "" {
		path = store.DefaultPath(root)
	}
	s, err := store.NewSQLiteRunStore(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open run store: %w", err)
	}
	return s, nil
}
