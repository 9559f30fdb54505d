// Package visualization renders simulation results as tables, JSON, CSV and
// HTML charts, and serves them over HTTP.
package visualization

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/nvandessel/aisociety/internal/society"
)

// Format specifies the output format for result rendering.
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatCSV   Format = "csv"
	FormatHTML  Format = "html"
)

// ParseFormat validates a user-supplied format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case FormatTable, FormatJSON, FormatCSV, FormatHTML:
		return f, nil
	default:
		return "", fmt.Errorf("unknown format %q (expected table, json, csv or html)", s)
	}
}

// CSVHeader is the column order of RenderCSV.
var CSVHeader = []string{
	"year", "automation_rate", "employed", "unemployed", "ai_output",
	"tax_collected", "ubi_per_person", "avg_income", "stability", "gini",
}

// Report is the JSON shape of a rendered result.
type Report struct {
	*society.Result
	Summary society.Summary `json:"summary"`
}

// NewReport pairs a result with its summary.
func NewReport(res *society.Result) Report {
	return Report{Result: res, Summary: res.Summary()}
}

// Render writes res to w in the given format.
func Render(w io.Writer, format Format, res *society.Result) error {
	switch format {
	case FormatTable:
		return RenderTable(w, res)
	case FormatJSON:
		return RenderJSON(w, res)
	case FormatCSV:
		return RenderCSV(w, res)
	case FormatHTML:
		html, err := RenderHTML(res)
		if err != nil {
			return err
		}
		_, err = w.Write(html)
		return err
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}

// RenderJSON writes the result and its summary as indented JSON.
func RenderJSON(w io.Writer, res *society.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(NewReport(res))
}

// RenderCSV writes one row per simulated year.
func RenderCSV(w io.Writer, res *society.Result) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, y := range res.Years {
		row := []string{
			strconv.Itoa(y.Year),
			formatFloat(y.AutomationRate),
			strconv.Itoa(y.Employed),
			strconv.Itoa(y.Unemployed),
			formatFloat(y.AIOutput),
			formatFloat(y.TaxCollected),
			formatFloat(y.UBIPerPerson),
			formatFloat(y.AvgIncome),
			formatFloat(y.Stability),
			formatFloat(y.Gini),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row %d: %w", y.Year, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// RenderTable writes a human-readable summary followed by the per-year table.
func RenderTable(w io.Writer, res *society.Result) error {
	p := res.Params
	sum := res.Summary()

	ubi := "off"
	if p.UBIEnabled {
		ubi = "on"
	}
	fmt.Fprintf(w, "Simulated %d years, population %s, seed %d\n",
		p.Years, humanize.Comma(int64(p.Population)), res.Seed)
	fmt.Fprintf(w, "Automation %.0f%% +%.1f%%/yr, AI tax %.0f%%, UBI %s\n\n",
		society.ToPercent(p.StartAutomation), society.ToPercent(p.AutomationGrowth),
		society.ToPercent(p.AITaxRate), ubi)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "YEAR\tAUTOMATION\tEMPLOYED\tUNEMPLOYED\tUBI/PERSON\tAVG INCOME\tSTABILITY\tGINI\t")
	for _, y := range res.Years {
		fmt.Fprintf(tw, "%d\t%.1f%%\t%s\t%s\t%s\t%s\t%.1f\t%.3f\t\n",
			y.Year,
			society.ToPercent(y.AutomationRate),
			humanize.Comma(int64(y.Employed)),
			humanize.Comma(int64(y.Unemployed)),
			money(y.UBIPerPerson),
			money(y.AvgIncome),
			y.Stability,
			y.Gini,
		)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(w, "\nAverage income %s -> %s, stability %.1f -> %.1f, gini %.3f -> %.3f\n",
		money(sum.AvgIncome.First), money(sum.AvgIncome.Final),
		sum.Stability.First, sum.Stability.Final,
		sum.Gini.First, sum.Gini.Final)
	return nil
}

func money(v float64) string {
	return "$" + humanize.Comma(int64(math.Round(v)))
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
