package main

import (
	"fmt"
	"os"

	"github.com/nvandessel/aisociety/internal/logging"
	"github.com/nvandessel/aisociety/internal/mcp"
	"github.com/spf13/cobra"
)

func newMCPServerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp-server",
		Short: "Run the MCP server over stdio",
		Long: `Expose the simulator to MCP clients over stdin/stdout.

Tools:
  aisoc_simulate  Run a simulation (rates as fractions), optionally saving it
  aisoc_runs      List saved runs
  aisoc_run       Get one saved run by ID

Logs are written to stderr; stdout carries the protocol.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			root, _ := cmd.Flags().GetString("root")

			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			runLog := logging.NewRunLogger(dataDir(root), cfg.Logging.Level)
			defer runLog.Close()

			server, err := mcp.NewServer(&mcp.Config{
				Name:     "aisoc",
				Version:  version,
				Root:     root,
				Settings: cfg,
				Logger:   newLogger(cfg, os.Stderr),
				RunLog:   runLog,
			})
			if err != nil {
				return fmt.Errorf("failed to create MCP server: %w", err)
			}
			defer server.Close()

			ctx, stop := withShutdownSignals(cmd.Context())
			defer stop()

			shutdown := setupTelemetry(ctx, cfg, os.Stderr)
			defer shutdown()

			if err := server.Run(ctx); err != nil && ctx.Err() == nil {
				return fmt.Errorf("MCP server error: %w", err)
			}
			return nil
		},
	}
}
