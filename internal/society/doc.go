// Package society simulates, year by year, how AI automation, a tax on AI
// output and universal basic income shape a synthetic population's average
// income, a heuristic stability score and the Gini coefficient.
//
// The simulator is a pure function of its Params and an explicit random
// source. Every host (CLI, HTTP server, MCP server) collects a complete
// Params value, calls Simulate or Run once and renders the three series.
//
// Usage:
//
//	p := society.DefaultParams()
//	p.AITaxRate = society.FromPercent(45)
//	res, err := society.Run(p, 42)
//	if err != nil {
//	    return err
//	}
//	fmt.Println(res.AvgIncome[len(res.AvgIncome)-1], res.Gini[0])
//
// The model is illustrative only: wages are uniform draws and both the
// stability score and Gini readings are heuristics, not calibrated metrics.
package society
