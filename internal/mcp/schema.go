package mcp

import (
	"github.com/nvandessel/aisociety/internal/society"
	"github.com/nvandessel/aisociety/internal/store"
)

// SimulateInput defines the input for the aisoc_simulate tool.
// Rates are fractions in [0,1]; absent fields take the configured defaults.
type SimulateInput struct {
	Years            *int     `json:"years,omitempty" jsonschema:"Number of years to simulate"`
	Population       *int     `json:"population,omitempty" jsonschema:"Number of people in the society"`
	StartAutomation  *float64 `json:"start_automation,omitempty" jsonschema:"Automated share of labor in year 0, a fraction in [0,1]"`
	AutomationGrowth *float64 `json:"automation_growth,omitempty" jsonschema:"Yearly increase of the automated share, a fraction in [0,1]"`
	UBIEnabled       *bool    `json:"ubi_enabled,omitempty" jsonschema:"Distribute AI tax revenue equally to everyone"`
	UBIAmount        *float64 `json:"ubi_amount,omitempty" jsonschema:"Recorded with the run but not used; UBI is funded by the AI tax"`
	AITaxRate        *float64 `json:"ai_tax_rate,omitempty" jsonschema:"Share of AI output collected as tax, a fraction in [0,1]"`
	Seed             uint64   `json:"seed,omitempty" jsonschema:"Random seed; 0 picks one and reports it"`
	Save             bool     `json:"save,omitempty" jsonschema:"Persist the run to the local run history"`
	Label            string   `json:"label,omitempty" jsonschema:"Label stored with a saved run"`
	IncludeYears     bool     `json:"include_years,omitempty" jsonschema:"Include the per-year detail rows"`
}

// SimulateOutput defines the output for the aisoc_simulate tool.
type SimulateOutput struct {
	RunID     string              `json:"run_id,omitempty" jsonschema:"ID of the saved run"`
	Params    society.Params      `json:"params" jsonschema:"Inputs the simulation ran with"`
	Seed      uint64              `json:"seed" jsonschema:"Seed used, for reproducing the run"`
	Summary   society.Summary     `json:"summary" jsonschema:"First, final, min, max and mean of each series"`
	AvgIncome []float64           `json:"avg_income" jsonschema:"Mean income per year"`
	Stability []float64           `json:"stability" jsonschema:"Social stability score per year"`
	Gini      []float64           `json:"gini" jsonschema:"Gini coefficient per year"`
	Years     []society.YearStats `json:"years,omitempty" jsonschema:"Per-year detail rows"`
	Message   string              `json:"message" jsonschema:"Human-readable result message"`
}

// RunsInput defines the input for the aisoc_runs tool.
type RunsInput struct {
	Limit int `json:"limit,omitempty" jsonschema:"Maximum number of runs to return (default 20)"`
}

// RunsOutput defines the output for the aisoc_runs tool.
type RunsOutput struct {
	Runs  []store.RunInfo `json:"runs" jsonschema:"Saved runs, newest first"`
	Count int             `json:"count" jsonschema:"Number of runs returned"`
}

// RunInput defines the input for the aisoc_run tool.
type RunInput struct {
	ID string `json:"id" jsonschema:"ID of the saved run"`
}

// RunOutput defines the output for the aisoc_run tool.
type RunOutput struct {
	Run     store.Run       `json:"run" jsonschema:"The saved run with every simulated year"`
	Summary society.Summary `json:"summary" jsonschema:"First, final, min, max and mean of each series"`
}
