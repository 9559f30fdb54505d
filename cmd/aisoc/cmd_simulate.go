package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/nvandessel/aisociety/internal/config"
	"github.com/nvandessel/aisociety/internal/logging"
	"github.com/nvandessel/aisociety/internal/society"
	"github.com/nvandessel/aisociety/internal/store"
	"github.com/nvandessel/aisociety/internal/telemetry"
	"github.com/nvandessel/aisociety/internal/visualization"
	"github.com/spf13/cobra"
)

func newSimulateCmd() *cobra.Command {
	defaults := society.DefaultParams()

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run the society simulation",
		Long: `Simulate the society year by year and print the average income,
stability and Gini coefficient of every year.

Rates are given in percent, as on the UI sliders. Flags that are not set
take their values from the defaults in ~/.aisoc/config.yaml.

Examples:
  aisoc simulate
  aisoc simulate --years 50 --automation-growth 4 --no-ubi
  aisoc simulate --seed 42 --format csv -o run.csv
  aisoc simulate --format html --save --label "high tax"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			root, _ := cmd.Flags().GetString("root")
			jsonOut, _ := cmd.Flags().GetBool("json")
			formatName, _ := cmd.Flags().GetString("format")
			output, _ := cmd.Flags().GetString("output")
			noOpen, _ := cmd.Flags().GetBool("no-open")
			seed, _ := cmd.Flags().GetUint64("seed")
			save, _ := cmd.Flags().GetBool("save")
			label, _ := cmd.Flags().GetString("label")

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

			p, err := paramsFromFlags(cmd, cfg.Defaults)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("ubi-amount") {
				fmt.Fprintln(cmd.ErrOrStderr(), "warning: --ubi-amount is recorded with the run but not used; UBI is the AI tax divided by the population")
			}

			logger := newLogger(cfg, cmd.ErrOrStderr())
			runLog := logging.NewRunLogger(dataDir(root), cfg.Logging.Level)
			defer runLog.Close()

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			shutdown := setupTelemetry(ctx, cfg, cmd.ErrOrStderr())
			defer shutdown()

			ctx, span := telemetry.StartSimulation(ctx, "cli", p)
			start := time.Now()
			res, err := society.Run(p, seed)
			telemetry.EndSimulation(span, res, err)
			if err != nil {
				return err
			}
			elapsed := time.Since(start)
			logger.DebugContext(ctx, "simulated", "years", p.Years, "population", p.Population, "seed", res.Seed, "elapsed", elapsed)
			runLog.LogSimulation(ctx, "cli", res, elapsed)

			if save {
				id, err := saveRun(ctx, root, cfg, res, label)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "Saved run %s\n", id)
			}

			return writeResult(cmd, format, res, output, noOpen)
		},
	}

	cmd.Flags().Int("years", defaults.Years, "Number of years to simulate")
	cmd.Flags().Int("population", defaults.Population, "Number of people in the society")
	cmd.Flags().Float64("start-automation", society.ToPercent(defaults.StartAutomation), "Automated share of labor in the first year (%)")
	cmd.Flags().Float64("automation-growth", society.ToPercent(defaults.AutomationGrowth), "Yearly growth of the automated share (percentage points)")
	cmd.Flags().Bool("ubi", defaults.UBIEnabled, "Distribute the AI tax equally as universal basic income")
	cmd.Flags().Bool("no-ubi", false, "Disable universal basic income (same as --ubi=false)")
	cmd.Flags().Float64("ubi-amount", defaults.UBIAmount, "Yearly UBI amount; recorded but not used by the model")
	cmd.Flags().Float64("ai-tax-rate", society.ToPercent(defaults.AITaxRate), "Share of AI output collected as tax (%)")
	cmd.Flags().Uint64("seed", 0, "Random seed (0 picks one and reports it)")
	cmd.Flags().String("format", "table", "Output format: table, json, csv, or html")
	cmd.Flags().StringP("output", "o", "", "Output file path (default stdout; html defaults to a temp file)")
	cmd.Flags().Bool("no-open", false, "Don't open browser after generating HTML")
	cmd.Flags().Bool("save", false, "Save the run to the run history")
	cmd.Flags().String("label", "", "Label stored with a saved run")

	return cmd
}

// paramsFromFlags overlays the flags the user set on defaults. Percent
// flags are converted to fractions.
func paramsFromFlags(cmd *cobra.Command, defaults society.Params) (society.Params, error) {
	p := defaults
	flags := cmd.Flags()

	if flags.Changed("years") {
		p.Years, _ = flags.GetInt("years")
	}
	if flags.Changed("population") {
		p.Population, _ = flags.GetInt("population")
	}
	if flags.Changed("start-automation") {
		v, _ := flags.GetFloat64("start-automation")
		p.StartAutomation = society.FromPercent(v)
	}
	if flags.Changed("automation-growth") {
		v, _ := flags.GetFloat64("automation-growth")
		p.AutomationGrowth = society.FromPercent(v)
	}
	if flags.Changed("ubi") && flags.Changed("no-ubi") {
		return society.Params{}, errors.New("--ubi and --no-ubi are mutually exclusive")
	}
	if flags.Changed("ubi") {
		p.UBIEnabled, _ = flags.GetBool("ubi")
	}
	if noUBI, _ := flags.GetBool("no-ubi"); noUBI {
		p.UBIEnabled = false
	}
	if flags.Changed("ubi-amount") {
		p.UBIAmount, _ = flags.GetFloat64("ubi-amount")
	}
	if flags.Changed("ai-tax-rate") {
		v, _ := flags.GetFloat64("ai-tax-rate")
		p.AITaxRate = society.FromPercent(v)
	}

	return p, nil
}

// writeResult renders res in format. HTML goes to a file, by default in
// the temp directory, and is opened in the browser unless noOpen is set.
func writeResult(cmd *cobra.Command, format visualization.Format, res *society.Result, output string, noOpen bool) error {
	if format == visualization.FormatHTML {
		htmlBytes, err := visualization.RenderHTML(res)
		if err != nil {
			return fmt.Errorf("render HTML: %w", err)
		}

		outPath := output
		if outPath == "" {
			outPath = filepath.Join(os.TempDir(), "aisoc-report.html")
		}
		if err := os.WriteFile(outPath, htmlBytes, 0644); err != nil {
			return fmt.Errorf("write HTML file: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Report written to %s\n", outPath)

		if !noOpen {
			if err := visualization.OpenBrowser(outPath); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "Could not open browser: %v\nOpen %s manually.\n", err, outPath)
			}
		}
		return nil
	}

	if output == "" {
		return visualization.Render(cmd.OutOrStdout(), format, res)
	}

	f, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	if err := visualization.Render(f, format, res); err != nil {
		f.Close()
		return fmt.Errorf("render %s: %w", format, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close output file: %w", err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Written to %s\n", output)
	return nil
}

// saveRun persists res to the run history of root.
func saveRun(ctx context.Context, root string, cfg *config.Config, res *society.Result, label string) (string, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	s, err := openRunStore(root, cfg)
	if err != nil {
		return "", err
	}
	defer s.Close()

	id, err := s.SaveRun(ctx, &store.Run{Label: label, Result: *res})
	if err != nil {
		return "", fmt.Errorf("failed to save run: %w", err)
	}
	return id, nil
}
