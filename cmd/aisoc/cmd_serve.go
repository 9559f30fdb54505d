package main

import (
	"context"
	"fmt"
	"time"

	"github.com/nvandessel/aisociety/internal/logging"
	"github.com/nvandessel/aisociety/internal/visualization"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the interactive simulator UI",
		Long: `Start a local HTTP server with the slider form, the result charts and
the JSON API (POST /api/simulate, GET /api/runs, GET /api/runs/{id}).

The server listens on server.addr from ~/.aisoc/config.yaml (default
localhost with an OS-chosen port) and stops on Ctrl-C.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			root, _ := cmd.Flags().GetString("root")
			addr, _ := cmd.Flags().GetString("addr")
			noOpen, _ := cmd.Flags().GetBool("no-open")

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}

			runStore, err := openRunStore(root, cfg)
			if err != nil {
				return err
			}
			defer runStore.Close()

			runLog := logging.NewRunLogger(dataDir(root), cfg.Logging.Level)
			defer runLog.Close()

			srv, err := visualization.NewServer(visualization.Options{
				Defaults: cfg.Defaults,
				Limits:   cfg.Server,
				Store:    runStore,
				Logger:   newLogger(cfg, cmd.ErrOrStderr()),
				RunLog:   runLog,
			})
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			shutdown := setupTelemetry(ctx, cfg, cmd.ErrOrStderr())
			defer shutdown()

			return runServer(cmd, ctx, srv, noOpen || !cfg.Server.OpenBrowser)
		},
	}

	cmd.Flags().String("addr", "", "Listen address (overrides server.addr)")
	cmd.Flags().Bool("no-open", false, "Don't open browser after starting")

	return cmd
}

// runServer starts srv and blocks until Ctrl-C or ctx is cancelled.
func runServer(cmd *cobra.Command, ctx context.Context, srv *visualization.Server, noOpen bool) error {
	srvCtx, stop := withShutdownSignals(ctx)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe(srvCtx) }()

	// Wait for server to start
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if srv.Addr() != "" {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	addr := srv.Addr()
	if addr == "" {
		select {
		case err := <-errCh:
			if err != nil {
				return fmt.Errorf("server error: %w", err)
			}
		default:
		}
		return fmt.Errorf("server failed to start")
	}

	url := "http://" + addr
	fmt.Fprintf(cmd.OutOrStdout(), "Simulator running at %s\n", url)
	fmt.Fprintf(cmd.OutOrStdout(), "Press Ctrl-C to stop.\n")

	if !noOpen {
		if err := visualization.OpenBrowser(url); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Could not open browser: %v\nOpen %s manually.\n", err, url)
		}
	}

	// Block until server exits
	if err := <-errCh; err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}
