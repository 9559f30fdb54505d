package visualization

import (
	"bytes"
	"fmt"
	"html/template"
	"math"
	"net/url"
	"strconv"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/nvandessel/aisociety/internal/society"
)

// formField is one slider of the interactive form. Rates are shown in percent.
type formField struct {
	Name    string
	Label   string
	Min     float64
	Max     float64
	Step    float64
	Value   float64
	Display string
}

type summaryRow struct {
	Name                          string
	First, Final, Min, Max, Mean string
}

// pageData holds data passed to the HTML template.
type pageData struct {
	Interactive bool
	Fields      []formField
	Params      society.Params
	FormSeed    uint64
	Seed        uint64
	Error       string
	HasResult   bool
	Charts      []Chart
	Rows        []summaryRow
}

var (
	pageTmpl     *template.Template
	pageTmplErr  error
	pageTmplOnce sync.Once
)

func loadPageTemplate() (*template.Template, error) {
	pageTmplOnce.Do(func() {
		tmplBytes, err := templates.ReadFile("templates/report.html.tmpl")
		if err != nil {
			pageTmplErr = fmt.Errorf("read HTML template: %w", err)
			return
		}
		pageTmpl, pageTmplErr = template.New("report").Parse(string(tmplBytes))
		if pageTmplErr != nil {
			pageTmplErr = fmt.Errorf("parse HTML template: %w", pageTmplErr)
		}
	})
	return pageTmpl, pageTmplErr
}

// RenderHTML produces a self-contained HTML report with the three charts.
func RenderHTML(res *society.Result) ([]byte, error) {
	return renderPage(newPageData(res.Params, res.Seed, res, false))
}

func renderPage(data pageData) ([]byte, error) {
	tmpl, err := loadPageTemplate()
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("execute HTML template: %w", err)
	}
	return buf.Bytes(), nil
}

func newPageData(p society.Params, seed uint64, res *society.Result, interactive bool) pageData {
	data := pageData{
		Interactive: interactive,
		Params:      p,
		FormSeed:    seed,
		Seed:        seed,
	}
	if interactive {
		data.Fields = formFields(p)
	}
	if res != nil {
		data.HasResult = true
		data.Seed = res.Seed
		data.Charts = resultCharts(res.AvgIncome, res.Stability, res.Gini)
		data.Rows = summaryRows(res.Summary())
	}
	return data
}

// formFields returns the sliders with the reference ranges, positioned at p.
func formFields(p society.Params) []formField {
	fields := []formField{
		{Name: "years", Label: "Years to Simulate", Min: 10, Max: 50, Step: 1, Value: float64(p.Years)},
		{Name: "population", Label: "Population Size", Min: 1000, Max: 20000, Step: 1000, Value: float64(p.Population)},
		{Name: "start_automation", Label: "Initial AI Automation Rate (%)", Min: 0, Max: 100, Step: 1, Value: society.ToPercent(p.StartAutomation)},
		{Name: "automation_growth", Label: "Automation Growth per Year (%)", Min: 0, Max: 10, Step: 1, Value: society.ToPercent(p.AutomationGrowth)},
		{Name: "ai_tax_rate", Label: "AI Tax Rate (%)", Min: 0, Max: 100, Step: 1, Value: society.ToPercent(p.AITaxRate)},
	}
	for i := range fields {
		fields[i].Value = math.Round(fields[i].Value*100) / 100
		fields[i].Display = strconv.FormatFloat(fields[i].Value, 'f', -1, 64)
	}
	return fields
}

func summaryRows(s society.Summary) []summaryRow {
	income := func(v float64) string { return "$" + humanize.Comma(int64(math.Round(v))) }
	score := func(v float64) string { return strconv.FormatFloat(v, 'f', 1, 64) }
	ratio := func(v float64) string { return strconv.FormatFloat(v, 'f', 3, 64) }

	row := func(name string, ss society.SeriesSummary, f func(float64) string) summaryRow {
		return summaryRow{Name: name, First: f(ss.First), Final: f(ss.Final), Min: f(ss.Min), Max: f(ss.Max), Mean: f(ss.Mean)}
	}
	return []summaryRow{
		row("Average income", s.AvgIncome, income),
		row("Stability", s.Stability, score),
		row("Gini", s.Gini, ratio),
	}
}

// ParamsFromQuery overlays form values onto defaults. Rates arrive in percent.
// Malformed values are reported as *society.InvalidInputError.
// A missing "ubi" box means UBI is off only when the form was submitted,
// which is detected by the presence of "years".
func ParamsFromQuery(defaults society.Params, q url.Values) (society.Params, uint64, error) {
	p := defaults
	var seed uint64

	intField := func(name string, dst *int) error {
		if v := q.Get(name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return &society.InvalidInputError{Field: name, Value: v, Reason: "is not an integer"}
			}
			*dst = n
		}
		return nil
	}
	percentField := func(name string, dst *float64) error {
		if v := q.Get(name); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return &society.InvalidInputError{Field: name, Value: v, Reason: "is not a number"}
			}
			*dst = society.FromPercent(f)
		}
		return nil
	}

	if err := intField("years", &p.Years); err != nil {
		return p, 0, err
	}
	if err := intField("population", &p.Population); err != nil {
		return p, 0, err
	}
	if err := percentField("start_automation", &p.StartAutomation); err != nil {
		return p, 0, err
	}
	if err := percentField("automation_growth", &p.AutomationGrowth); err != nil {
		return p, 0, err
	}
	if err := percentField("ai_tax_rate", &p.AITaxRate); err != nil {
		return p, 0, err
	}
	if v := q.Get("ubi_amount"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return p, 0, &society.InvalidInputError{Field: "ubi_amount", Value: v, Reason: "is not a number"}
		}
		p.UBIAmount = f
	}
	if q.Has("years") {
		p.UBIEnabled = q.Get("ubi") == "on"
	}
	if v := q.Get("seed"); v != "" {
		s, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return p, 0, &society.InvalidInputError{Field: "seed", Value: v, Reason: "is not a non-negative integer"}
		}
		seed = s
	}
	return p, seed, nil
}
