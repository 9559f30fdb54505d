package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/nvandessel/aisociety/internal/archive"
	"github.com/nvandessel/aisociety/internal/store"
	"github.com/nvandessel/aisociety/internal/visualization"
	"github.com/spf13/cobra"
)

func newRunsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Manage saved simulation runs",
		Long: `List, inspect, delete and transfer runs saved with 'aisoc simulate --save'.

Runs are stored in <root>/.aisoc/aisoc.db. Archives are zstd-compressed
files with a SHA-256 checksum header.

Examples:
  aisoc runs list
  aisoc runs show <id> --format csv
  aisoc runs export runs.zst
  aisoc runs import runs.zst`,
	}

	cmd.AddCommand(
		newRunsListCmd(),
		newRunsShowCmd(),
		newRunsDeleteCmd(),
		newRunsExportCmd(),
		newRunsImportCmd(),
		newRunsVerifyCmd(),
	)

	return cmd
}

func newRunsListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List saved runs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			root, _ := cmd.Flags().GetString("root")
			jsonOut, _ := cmd.Flags().GetBool("json")
			limit, _ := cmd.Flags().GetInt("limit")

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			s, err := openRunStore(root, cfg)
			if err != nil {
				return err
			}
			defer s.Close()

			runs, err := s.ListRuns(cmd.Context(), limit)
			if err != nil {
				return fmt.Errorf("failed to list runs: %w", err)
			}

			out := cmd.OutOrStdout()
			if jsonOut {
				if runs == nil {
					runs = []store.RunInfo{}
				}
				return json.NewEncoder(out).Encode(map[string]interface{}{
					"runs":  runs,
					"count": len(runs),
				})
			}

			if len(runs) == 0 {
				fmt.Fprintln(out, "No saved runs. Use 'aisoc simulate --save' to record one.")
				return nil
			}

			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tCREATED\tLABEL\tYEARS\tPOPULATION\tFINAL INCOME\tSTABILITY\tGINI")
			for _, r := range runs {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\t%.1f\t%.3f\n",
					r.ID,
					humanize.Time(r.CreatedAt),
					valueOrDefault(r.Label, "-"),
					r.Params.Years,
					humanize.Comma(int64(r.Params.Population)),
					"$"+humanize.Comma(int64(math.Round(r.FinalAvgIncome))),
					r.FinalStability,
					r.FinalGini,
				)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().Int("limit", 20, "Maximum number of runs to list (0 for all)")

	return cmd
}

func newRunsShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a saved run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, _ := cmd.Flags().GetString("root")
			jsonOut, _ := cmd.Flags().GetBool("json")
			formatName, _ := cmd.Flags().GetString("format")
			output, _ := cmd.Flags().GetString("output")
			noOpen, _ := cmd.Flags().GetBool("no-open")

			format, err := visualization.ParseFormat(formatName)
			if err != nil {
				return err
			}
			if jsonOut && !cmd.Flags().Changed("format") {
				format = visualization.FormatJSON
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			s, err := openRunStore(root, cfg)
			if err != nil {
				return err
			}
			defer s.Close()

			run, err := s.GetRun(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if format == visualization.FormatTable {
				label := ""
				if run.Label != "" {
					label = fmt.Sprintf(" (%s)", run.Label)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Run %s%s, saved %s\n", run.ID, label, humanize.Time(run.CreatedAt))
			}
			return writeResult(cmd, format, &run.Result, output, noOpen)
		},
	}

	cmd.Flags().String("format", "table", "Output format: table, json, csv, or html")
	cmd.Flags().StringP("output", "o", "", "Output file path (default stdout; html defaults to a temp file)")
	cmd.Flags().Bool("no-open", false, "Don't open browser after generating HTML")

	return cmd
}

func newRunsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a saved run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, _ := cmd.Flags().GetString("root")
			jsonOut, _ := cmd.Flags().GetBool("json")

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			s, err := openRunStore(root, cfg)
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.DeleteRun(cmd.Context(), args[0]); err != nil {
				return err
			}

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]interface{}{
					"status": "deleted",
					"id":     args[0],
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted run %s\n", args[0])
			return nil
		},
	}
}

func newRunsExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export [file]",
		Short: "Export all saved runs to an archive",
		Long: `Write every saved run to a zstd-compressed archive. Without a file
argument the archive is written to <root>/.aisoc/archives/ with a
timestamped name.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, _ := cmd.Flags().GetString("root")
			jsonOut, _ := cmd.Flags().GetBool("json")

			path := archive.GeneratePath(filepath.Join(dataDir(root), "archives"))
			if len(args) == 1 {
				path = args[0]
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			s, err := openRunStore(root, cfg)
			if err != nil {
				return err
			}
			defer s.Close()

			header, err := archive.Export(cmd.Context(), s, path)
			if err != nil {
				return fmt.Errorf("export failed: %w", err)
			}

			var size int64
			if info, err := os.Stat(path); err == nil {
				size = info.Size()
			}

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]interface{}{
					"path":       path,
					"run_count":  header.RunCount,
					"checksum":   header.Checksum,
					"size_bytes": size,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d runs to %s (%s)\n", header.RunCount, path, humanize.Bytes(uint64(size)))
			return nil
		},
	}
}

func newRunsImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Import runs from an archive",
		Long:  `Verify an archive's checksum and save its runs. Runs whose ID is already stored are skipped.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, _ := cmd.Flags().GetString("root")
			jsonOut, _ := cmd.Flags().GetBool("json")

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			s, err := openRunStore(root, cfg)
			if err != nil {
				return err
			}
			defer s.Close()

			result, err := archive.Import(cmd.Context(), s, args[0])
			if err != nil {
				return fmt.Errorf("import failed: %w", err)
			}

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]interface{}{
					"file":     args[0],
					"imported": result.Imported,
					"skipped":  result.Skipped,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d runs (%d already present)\n", result.Imported, result.Skipped)
			return nil
		},
	}
}

func newRunsVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <file>",
		Short: "Verify archive integrity",
		Long: `Verify the integrity of an archive by checking its SHA-256 checksum.

Examples:
  aisoc runs verify .aisoc/archives/aisoc-runs-20260206-120000.zst`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filePath := args[0]
			jsonOut, _ := cmd.Flags().GetBool("json")
			out := cmd.OutOrStdout()

			err := archive.VerifyChecksum(filePath)
			if err != nil {
				if jsonOut {
					json.NewEncoder(out).Encode(map[string]interface{}{
						"file":     filePath,
						"valid":    false,
						"error":    err.Error(),
						"mismatch": errors.Is(err, archive.ErrChecksumMismatch),
						"message":  "Checksum verification FAILED",
					})
				} else {
					fmt.Fprintf(out, "FAILED: %v\n", err)
					fmt.Fprintf(out, "  File: %s\n", filePath)
				}
				return fmt.Errorf("checksum verification failed")
			}

			header, err := archive.ReadHeader(filePath)
			if err != nil {
				return err
			}

			if jsonOut {
				return json.NewEncoder(out).Encode(map[string]interface{}{
					"file":      filePath,
					"version":   header.Version,
					"run_count": header.RunCount,
					"valid":     true,
					"message":   "Checksum OK",
				})
			}

			fmt.Fprintf(out, "OK: checksum verified\n")
			fmt.Fprintf(out, "  File: %s\n", filePath)
			fmt.Fprintf(out, "  Runs: %d, created %s\n", header.RunCount, humanize.Time(header.CreatedAt))
			return nil
		},
	}
}
