package visualization

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
)

// Chart geometry in SVG user units.
const (
	chartWidth     = 420.0
	chartHeight    = 240.0
	chartPadLeft   = 64.0
	chartPadRight  = 12.0
	chartPadTop    = 12.0
	chartPadBottom = 28.0
	chartTicks     = 4
)

// Chart is a single pre-computed line chart ready for the HTML template.
type Chart struct {
	ID     string
	Title  string
	Width  float64
	Height float64
	// Points is the polyline "x,y x,y ..." attribute value.
	Points string
	YTicks []Tick
	XTicks []Tick
	// Plot area bounds.
	Left, Right, Top, Bottom float64
}

// Tick is an axis label at a position along the axis.
type Tick struct {
	Pos   float64
	Label string
}

// NewChart lays out series as a line chart. fixedMin/fixedMax pin the Y range
// when non-nil; otherwise the range is padded around the data.
func NewChart(id, title string, series []float64, fixedMin, fixedMax *float64, label func(float64) string) Chart {
	c := Chart{
		ID:     id,
		Title:  title,
		Width:  chartWidth,
		Height: chartHeight,
		Left:   chartPadLeft,
		Right:  chartWidth - chartPadRight,
		Top:    chartPadTop,
		Bottom: chartHeight - chartPadBottom,
	}
	if len(series) == 0 {
		return c
	}

	lo, hi := series[0], series[0]
	for _, v := range series {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if fixedMin != nil {
		lo = *fixedMin
	}
	if fixedMax != nil {
		hi = *fixedMax
	}
	if hi-lo < 1e-9 {
		// Flat series: open a band around the value.
		pad := math.Max(math.Abs(hi)*0.05, 1)
		if fixedMin == nil {
			lo -= pad
		}
		hi += pad
	}

	x := func(i int) float64 {
		if len(series) == 1 {
			return (c.Left + c.Right) / 2
		}
		return c.Left + float64(i)*(c.Right-c.Left)/float64(len(series)-1)
	}
	y := func(v float64) float64 {
		return c.Bottom - (v-lo)/(hi-lo)*(c.Bottom-c.Top)
	}

	var b strings.Builder
	for i, v := range series {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(coord(x(i)))
		b.WriteByte(',')
		b.WriteString(coord(y(v)))
	}
	c.Points = b.String()

	for i := 0; i <= chartTicks; i++ {
		v := lo + float64(i)*(hi-lo)/chartTicks
		c.YTicks = append(c.YTicks, Tick{Pos: y(v), Label: label(v)})
	}

	step := max(1, (len(series)-1)/chartTicks)
	for i := 0; i < len(series); i += step {
		c.XTicks = append(c.XTicks, Tick{Pos: x(i), Label: strconv.Itoa(i)})
	}
	return c
}

// resultCharts builds the three standard charts for a result.
func resultCharts(avgIncome, stability, gini []float64) []Chart {
	zero, one := 0.0, 1.0
	// Stability is uncapped above, so the axis grows past 100 when needed.
	stabilityMax := 100.0
	if len(stability) > 0 {
		stabilityMax = max(stabilityMax, slices.Max(stability))
	}
	return []Chart{
		NewChart("avg-income", "Average Income Over Time", avgIncome, nil, nil, func(v float64) string {
			return "$" + humanize.Comma(int64(math.Round(v)))
		}),
		NewChart("stability", "Social Stability Over Time", stability, &zero, &stabilityMax, func(v float64) string {
			return fmt.Sprintf("%.0f", v)
		}),
		NewChart("gini", "Gini Coefficient Over Time", gini, &zero, &one, func(v float64) string {
			return fmt.Sprintf("%.2f", v)
		}),
	}
}

func coord(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64)
}
