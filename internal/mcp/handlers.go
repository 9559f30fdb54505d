package mcp

import (
	"context"
	"fmt"
	"time"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/nvandessel/aisociety/internal/ratelimit"
	"github.com/nvandessel/aisociety/internal/society"
	"github.com/nvandessel/aisociety/internal/store"
	"github.com/nvandessel/aisociety/internal/telemetry"
)

// defaultRunsLimit is the number of runs aisoc_runs returns without a limit.
const defaultRunsLimit = 20

// registerTools registers all aisoc MCP tools with the server.
func (s *Server) registerTools() {
	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "aisoc_simulate",
		Description: "Simulate an AI-automated society year by year and return average income, social stability and Gini coefficient series",
	}, s.handleSimulate)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "aisoc_runs",
		Description: "List saved simulation runs, newest first",
	}, s.handleRuns)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "aisoc_run",
		Description: "Get a saved simulation run by ID with every simulated year",
	}, s.handleRun)
}

// handleSimulate runs one simulation with the supplied inputs overlaid on
// the configured defaults.
func (s *Server) handleSimulate(ctx context.Context, req *sdk.CallToolRequest, args SimulateInput) (_ *sdk.CallToolResult, _ SimulateOutput, retErr error) {
	start := time.Now()
	p := args.params(s.settings.Defaults)
	defer func() {
		s.auditTool("aisoc_simulate", start, retErr, auditParams(map[string]any{
			"years": p.Years, "population": p.Population, "seed": args.Seed,
			"save": args.Save, "label": args.Label,
		}))
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, "aisoc_simulate"); err != nil {
		return nil, SimulateOutput{}, err
	}
	if err := s.settings.Server.CheckLimits(p); err != nil {
		return nil, SimulateOutput{}, err
	}

	ctx, span := telemetry.StartSimulation(ctx, "mcp", p)
	res, err := society.Run(p, args.Seed)
	telemetry.EndSimulation(span, res, err)
	if err != nil {
		return nil, SimulateOutput{}, err
	}
	elapsed := time.Since(start)

	out := SimulateOutput{
		Params:    res.Params,
		Seed:      res.Seed,
		Summary:   res.Summary(),
		AvgIncome: res.AvgIncome,
		Stability: res.Stability,
		Gini:      res.Gini,
	}
	if args.IncludeYears {
		out.Years = res.Years
	}

	if args.Save {
		id, err := s.store.SaveRun(ctx, &store.Run{Label: args.Label, Result: *res})
		if err != nil {
			return nil, SimulateOutput{}, fmt.Errorf("failed to save run: %w", err)
		}
		out.RunID = id
	}

	out.Message = fmt.Sprintf("Simulated %d years for %d people (seed %d): average income %.0f -> %.0f, stability %.1f -> %.1f, gini %.3f -> %.3f",
		p.Years, p.Population, res.Seed,
		out.Summary.AvgIncome.First, out.Summary.AvgIncome.Final,
		out.Summary.Stability.First, out.Summary.Stability.Final,
		out.Summary.Gini.First, out.Summary.Gini.Final)
	if out.RunID != "" {
		out.Message += fmt.Sprintf(". Saved as %s", out.RunID)
	}

	s.logger.Debug("simulated", "years", p.Years, "population", p.Population, "seed", res.Seed, "elapsed", elapsed)
	s.runLog.LogSimulation(ctx, "mcp", res, elapsed)

	return nil, out, nil
}

// handleRuns lists saved runs.
func (s *Server) handleRuns(ctx context.Context, req *sdk.CallToolRequest, args RunsInput) (_ *sdk.CallToolResult, _ RunsOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("aisoc_runs", start, retErr, auditParams(map[string]any{"limit": args.Limit}))
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, "aisoc_runs"); err != nil {
		return nil, RunsOutput{}, err
	}
	if args.Limit < 0 {
		return nil, RunsOutput{}, fmt.Errorf("limit must be non-negative, got %d", args.Limit)
	}

	limit := args.Limit
	if limit == 0 {
		limit = defaultRunsLimit
	}

	runs, err := s.store.ListRuns(ctx, limit)
	if err != nil {
		return nil, RunsOutput{}, fmt.Errorf("failed to list runs: %w", err)
	}
	if runs == nil {
		runs = []store.RunInfo{}
	}

	return nil, RunsOutput{Runs: runs, Count: len(runs)}, nil
}

// handleRun returns one saved run.
func (s *Server) handleRun(ctx context.Context, req *sdk.CallToolRequest, args RunInput) (_ *sdk.CallToolResult, _ RunOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("aisoc_run", start, retErr, auditParams(map[string]any{"id": args.ID}))
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, "aisoc_run"); err != nil {
		return nil, RunOutput{}, err
	}
	if args.ID == "" {
		return nil, RunOutput{}, fmt.Errorf("id is required")
	}

	run, err := s.store.GetRun(ctx, args.ID)
	if err != nil {
		return nil, RunOutput{}, err
	}

	return nil, RunOutput{Run: *run, Summary: run.Result.Summary()}, nil
}

// params overlays the supplied fields on defaults.
func (in SimulateInput) params(defaults society.Params) society.Params {
	p := defaults
	if in.Years != nil {
		p.Years = *in.Years
	}
	if in.Population != nil {
		p.Population = *in.Population
	}
	if in.StartAutomation != nil {
		p.StartAutomation = *in.StartAutomation
	}
	if in.AutomationGrowth != nil {
		p.AutomationGrowth = *in.AutomationGrowth
	}
	if in.UBIEnabled != nil {
		p.UBIEnabled = *in.UBIEnabled
	}
	if in.UBIAmount != nil {
		p.UBIAmount = *in.UBIAmount
	}
	if in.AITaxRate != nil {
		p.AITaxRate = *in.AITaxRate
	}
	return p
}
