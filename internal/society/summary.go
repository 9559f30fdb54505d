package society

// SeriesSummary condenses one output series.
type SeriesSummary struct {
	First float64 `json:"first"`
	Final float64 `json:"final"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Mean  float64 `json:"mean"`
}

// Summary condenses the three output series of a run.
type Summary struct {
	AvgIncome SeriesSummary `json:"avg_income"`
	Stability SeriesSummary `json:"stability"`
	Gini      SeriesSummary `json:"gini"`

	// FinalAutomationRate is the automation share in the last simulated year.
	FinalAutomationRate float64 `json:"final_automation_rate"`

	// FinalUnemployed is the unemployed headcount in the last simulated year.
	FinalUnemployed int `json:"final_unemployed"`
}

// Summary returns first/final/min/max/mean of each series.
func (r *Result) Summary() Summary {
	s := Summary{
		AvgIncome: summarize(r.AvgIncome),
		Stability: summarize(r.Stability),
		Gini:      summarize(r.Gini),
	}
	if n := len(r.Years); n > 0 {
		s.FinalAutomationRate = r.Years[n-1].AutomationRate
		s.FinalUnemployed = r.Years[n-1].Unemployed
	}
	return s
}

func summarize(series []float64) SeriesSummary {
	if len(series) == 0 {
		return SeriesSummary{}
	}
	s := SeriesSummary{
		First: series[0],
		Final: series[len(series)-1],
		Min:   series[0],
		Max:   series[0],
		Mean:  mean(series),
	}
	for _, v := range series[1:] {
		s.Min = min(s.Min, v)
		s.Max = max(s.Max, v)
	}
	return s
}
