package society

import (
	"errors"
	"math"
	"slices"
	"testing"
)

const epsilon = 1e-9

func TestValidate(t *testing.T) {
	valid := DefaultParams()

	tests := []struct {
		name    string
		mutate  func(p *Params)
		wantErr bool
		field   string
	}{
		{"defaults are valid", func(p *Params) {}, false, ""},
		{"zero years", func(p *Params) { p.Years = 0 }, true, "years"},
		{"negative years", func(p *Params) { p.Years = -3 }, true, "years"},
		{"zero population", func(p *Params) { p.Population = 0 }, true, "population"},
		{"start automation above one", func(p *Params) { p.StartAutomation = 1.5 }, true, "start_automation"},
		{"start automation negative", func(p *Params) { p.StartAutomation = -0.1 }, true, "start_automation"},
		{"growth above one", func(p *Params) { p.AutomationGrowth = 2 }, true, "automation_growth"},
		{"tax rate NaN", func(p *Params) { p.AITaxRate = math.NaN() }, true, "ai_tax_rate"},
		{"tax rate at bound", func(p *Params) { p.AITaxRate = 1 }, false, ""},
		{"negative ubi amount is not checked", func(p *Params) { p.UBIAmount = -5 }, false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := valid
			tt.mutate(&p)
			err := p.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr {
				return
			}
			if !errors.Is(err, ErrInvalidInput) {
				t.Errorf("errors.Is(err, ErrInvalidInput) = false for %v", err)
			}
			var iie *InvalidInputError
			if !errors.As(err, &iie) {
				t.Fatalf("error %v is not *InvalidInputError", err)
			}
			if iie.Field != tt.field {
				t.Errorf("Field = %q, want %q", iie.Field, tt.field)
			}
		})
	}
}

func TestSimulate_RejectsInvalidInputBeforeRunning(t *testing.T) {
	p := DefaultParams()
	p.Population = 0

	res, err := Simulate(p, NewRand(1))
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("Simulate() error = %v, want ErrInvalidInput", err)
	}
	if res != nil {
		t.Errorf("Simulate() returned partial result %+v", res)
	}
}

func TestSimulate_NilRandomSource(t *testing.T) {
	if _, err := Simulate(DefaultParams(), nil); err == nil {
		t.Fatal("Simulate(nil rng) should fail")
	}
}

func TestSimulate_SeriesLengths(t *testing.T) {
	for _, years := range []int{1, 10, 30, 50} {
		p := DefaultParams()
		p.Years = years
		p.Population = 1000

		res, err := Simulate(p, NewRand(7))
		if err != nil {
			t.Fatalf("Simulate() error = %v", err)
		}
		for name, got := range map[string]int{
			"avg_income": len(res.AvgIncome),
			"stability":  len(res.Stability),
			"gini":       len(res.Gini),
			"years":      len(res.Years),
		} {
			if got != years {
				t.Errorf("years=%d: len(%s) = %d", years, name, got)
			}
		}
	}
}

func TestSimulate_Invariants(t *testing.T) {
	scenarios := []Params{
		DefaultParams(),
		{Years: 50, Population: 3000, StartAutomation: 0.9, AutomationGrowth: 0.1, UBIEnabled: false, AITaxRate: 0},
		{Years: 20, Population: 1001, StartAutomation: 0, AutomationGrowth: 0.07, UBIEnabled: true, AITaxRate: 1},
		{Years: 12, Population: 7, StartAutomation: 0.33, AutomationGrowth: 0.05, UBIEnabled: true, AITaxRate: 0.5},
	}

	for i, p := range scenarios {
		res, err := Simulate(p, NewRand(uint64(i+1)))
		if err != nil {
			t.Fatalf("scenario %d: Simulate() error = %v", i, err)
		}

		prevRate := -1.0
		for _, ys := range res.Years {
			if ys.Employed+ys.Unemployed != p.Population {
				t.Errorf("scenario %d year %d: employed %d + unemployed %d != population %d",
					i, ys.Year, ys.Employed, ys.Unemployed, p.Population)
			}
			if ys.AutomationRate < prevRate {
				t.Errorf("scenario %d year %d: automation rate decreased %f -> %f", i, ys.Year, prevRate, ys.AutomationRate)
			}
			if ys.AutomationRate > 1.0 {
				t.Errorf("scenario %d year %d: automation rate %f exceeds 1", i, ys.Year, ys.AutomationRate)
			}
			prevRate = ys.AutomationRate

			if ys.Stability < 0 {
				t.Errorf("scenario %d year %d: stability %f < 0", i, ys.Year, ys.Stability)
			}
			if ys.Gini < 0 || ys.Gini > 1 {
				t.Errorf("scenario %d year %d: gini %f outside [0,1]", i, ys.Year, ys.Gini)
			}
			if res.AvgIncome[ys.Year] != ys.AvgIncome || res.Stability[ys.Year] != ys.Stability || res.Gini[ys.Year] != ys.Gini {
				t.Errorf("scenario %d year %d: series not aligned with year detail", i, ys.Year)
			}
		}
	}
}

func TestSimulate_AutomationCapsAtOne(t *testing.T) {
	p := Params{Years: 5, Population: 100, StartAutomation: 0.9, AutomationGrowth: 0.1, AITaxRate: 0.2}
	res, err := Simulate(p, NewRand(3))
	if err != nil {
		t.Fatalf("Simulate() error = %v", err)
	}

	if got := res.Years[0].AutomationRate; math.Abs(got-0.9) > epsilon {
		t.Errorf("year 0 automation = %f, want 0.9", got)
	}
	for _, ys := range res.Years[1:] {
		if ys.AutomationRate != 1.0 {
			t.Errorf("year %d automation = %f, want capped 1.0", ys.Year, ys.AutomationRate)
		}
		if ys.Employed != 0 {
			t.Errorf("year %d employed = %d, want 0", ys.Year, ys.Employed)
		}
	}
}

func TestSimulate_UBIDisabledLeavesUnemployedWithNothing(t *testing.T) {
	p := Params{Years: 10, Population: 500, StartAutomation: 0.5, AutomationGrowth: 0.05, UBIEnabled: false, AITaxRate: 0.8}
	res, err := Simulate(p, NewRand(11))
	if err != nil {
		t.Fatalf("Simulate() error = %v", err)
	}
	for _, ys := range res.Years {
		if ys.UBIPerPerson != 0 {
			t.Errorf("year %d: ubi per person = %f, want 0", ys.Year, ys.UBIPerPerson)
		}
		if ys.TaxCollected == 0 {
			t.Errorf("year %d: tax still collected when UBI is off, got 0", ys.Year)
		}
	}

	// With every job automated and UBI off, every income is exactly 0.
	p = Params{Years: 3, Population: 10, StartAutomation: 1, UBIEnabled: false, AITaxRate: 0.5}
	res, err = Simulate(p, NewRand(11))
	if err != nil {
		t.Fatalf("Simulate() error = %v", err)
	}
	for _, ys := range res.Years {
		if ys.AvgIncome != 0 {
			t.Errorf("year %d: avg income = %f, want 0", ys.Year, ys.AvgIncome)
		}
		if ys.Gini != 0 {
			t.Errorf("year %d: gini = %f, want 0 for all-zero incomes", ys.Year, ys.Gini)
		}
	}
}

func TestSimulate_ZeroTaxMeansNoUBI(t *testing.T) {
	for _, ubi := range []bool{true, false} {
		p := Params{Years: 8, Population: 200, StartAutomation: 0.4, AutomationGrowth: 0.05, UBIEnabled: ubi, AITaxRate: 0}
		res, err := Simulate(p, NewRand(5))
		if err != nil {
			t.Fatalf("Simulate() error = %v", err)
		}
		for _, ys := range res.Years {
			if ys.UBIPerPerson != 0 {
				t.Errorf("ubi=%v year %d: ubi per person = %f, want 0", ubi, ys.Year, ys.UBIPerPerson)
			}
		}
	}
}

func TestSimulate_FullAutomationScenario(t *testing.T) {
	p := Params{Years: 1, Population: 2, StartAutomation: 1.0, AutomationGrowth: 0, UBIEnabled: true, AITaxRate: 0.5}
	res, err := Simulate(p, NewRand(99))
	if err != nil {
		t.Fatalf("Simulate() error = %v", err)
	}

	ys := res.Years[0]
	if ys.Employed != 0 || ys.Unemployed != 2 {
		t.Errorf("employed/unemployed = %d/%d, want 0/2", ys.Employed, ys.Unemployed)
	}
	if ys.AIOutput != 100000 {
		t.Errorf("ai output = %f, want 100000", ys.AIOutput)
	}
	if ys.TaxCollected != 50000 {
		t.Errorf("tax collected = %f, want 50000", ys.TaxCollected)
	}
	if ys.UBIPerPerson != 25000 {
		t.Errorf("ubi per person = %f, want 25000", ys.UBIPerPerson)
	}
	if res.AvgIncome[0] != 25000 {
		t.Errorf("avg income = %f, want 25000", res.AvgIncome[0])
	}
	if res.Gini[0] != 0 {
		t.Errorf("gini = %f, want 0", res.Gini[0])
	}
	if res.Stability[0] != 25 {
		t.Errorf("stability = %f, want 25", res.Stability[0])
	}
}

func TestSimulate_FullEmploymentScenario(t *testing.T) {
	p := Params{Years: 1, Population: 4, StartAutomation: 0, UBIEnabled: false, AITaxRate: 0}
	res, err := Simulate(p, NewRand(2024))
	if err != nil {
		t.Fatalf("Simulate() error = %v", err)
	}

	ys := res.Years[0]
	if ys.Unemployed != 0 || ys.Employed != 4 {
		t.Errorf("employed/unemployed = %d/%d, want 4/0", ys.Employed, ys.Unemployed)
	}
	if ys.AvgIncome < MinWage || ys.AvgIncome >= MaxWage {
		t.Errorf("avg income %f outside [%d, %d)", ys.AvgIncome, MinWage, MaxWage)
	}
	if ys.AvgIncome != math.Trunc(ys.AvgIncome*4)/4 {
		t.Errorf("avg income %f is not a mean of integer wages", ys.AvgIncome)
	}
	want := math.Max(0, 100-(50000-ys.AvgIncome)/1000)
	if math.Abs(ys.Stability-want) > epsilon {
		t.Errorf("stability = %f, want %f (income term only)", ys.Stability, want)
	}
}

func TestSimulate_DeterministicWithSeed(t *testing.T) {
	p := DefaultParams()

	a, err := Simulate(p, NewRand(42))
	if err != nil {
		t.Fatalf("Simulate() error = %v", err)
	}
	b, err := Simulate(p, NewRand(42))
	if err != nil {
		t.Fatalf("Simulate() error = %v", err)
	}

	if !slices.Equal(a.AvgIncome, b.AvgIncome) || !slices.Equal(a.Stability, b.Stability) || !slices.Equal(a.Gini, b.Gini) {
		t.Error("same seed produced different series")
	}

	c, err := Simulate(p, NewRand(43))
	if err != nil {
		t.Fatalf("Simulate() error = %v", err)
	}
	if slices.Equal(a.AvgIncome, c.AvgIncome) {
		t.Error("different seeds produced identical average incomes")
	}
}

func TestSimulate_UBIAmountDoesNotAffectOutput(t *testing.T) {
	p := DefaultParams()
	q := p
	q.UBIAmount = 999999

	a, err := Simulate(p, NewRand(8))
	if err != nil {
		t.Fatalf("Simulate() error = %v", err)
	}
	b, err := Simulate(q, NewRand(8))
	if err != nil {
		t.Fatalf("Simulate() error = %v", err)
	}
	if !slices.Equal(a.AvgIncome, b.AvgIncome) || !slices.Equal(a.Gini, b.Gini) {
		t.Error("ubi_amount changed the simulation output")
	}
}

func TestRun_RecordsSeed(t *testing.T) {
	res, err := Run(DefaultParams(), 1234)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Seed != 1234 {
		t.Errorf("Seed = %d, want 1234", res.Seed)
	}

	again, err := Run(DefaultParams(), res.Seed)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !slices.Equal(res.AvgIncome, again.AvgIncome) {
		t.Error("replaying a recorded seed produced a different run")
	}

	random, err := Run(DefaultParams(), 0)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if random.Seed == 0 {
		t.Error("Run with seed 0 should record the generated seed")
	}
}

func TestGini(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   float64
	}{
		{"empty", nil, 0},
		{"single", []float64{42}, 0},
		{"perfect equality", []float64{25000, 25000, 25000}, 0},
		{"all zero", []float64{0, 0, 0}, 0},
		{"one holds everything", []float64{0, 0, 0, 1}, 0.75},
		{"linear ramp", []float64{4, 2, 3, 1}, 0.25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Gini(tt.values)
			if math.Abs(got-tt.want) > epsilon {
				t.Errorf("Gini(%v) = %f, want %f", tt.values, got, tt.want)
			}
		})
	}
}

func TestGini_DoesNotMutateInput(t *testing.T) {
	values := []float64{3, 1, 2}
	Gini(values)
	if !slices.Equal(values, []float64{3, 1, 2}) {
		t.Errorf("Gini mutated its input: %v", values)
	}
}

func TestStability(t *testing.T) {
	tests := []struct {
		name       string
		unemployed int
		population int
		avgIncome  float64
		want       float64
	}{
		{"full employment at reference income", 0, 100, 50000, 100},
		{"half unemployed, income shortfall", 50, 100, 25000, 50},
		{"floored at zero", 100, 100, 0, 0},
		{"unbounded above", 0, 1, 150000, 200},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Stability(tt.unemployed, tt.population, tt.avgIncome)
			if math.Abs(got-tt.want) > epsilon {
				t.Errorf("Stability() = %f, want %f", got, tt.want)
			}
		})
	}
}

func TestFromPercent(t *testing.T) {
	if got := FromPercent(30); math.Abs(got-0.3) > epsilon {
		t.Errorf("FromPercent(30) = %f, want 0.3", got)
	}
	if got := ToPercent(0.02); math.Abs(got-2) > epsilon {
		t.Errorf("ToPercent(0.02) = %f, want 2", got)
	}
}

func TestResult_Summary(t *testing.T) {
	res := &Result{
		AvgIncome: []float64{10, 30, 20},
		Stability: []float64{90, 80, 70},
		Gini:      []float64{0.1, 0.2, 0.3},
		Years: []YearStats{
			{Year: 0, AutomationRate: 0.3},
			{Year: 1, AutomationRate: 0.32},
			{Year: 2, AutomationRate: 0.34, Unemployed: 17},
		},
	}

	s := res.Summary()
	if s.AvgIncome.First != 10 || s.AvgIncome.Final != 20 || s.AvgIncome.Min != 10 || s.AvgIncome.Max != 30 || s.AvgIncome.Mean != 20 {
		t.Errorf("AvgIncome summary = %+v", s.AvgIncome)
	}
	if s.Stability.Max != 90 || s.Stability.Min != 70 {
		t.Errorf("Stability summary = %+v", s.Stability)
	}
	if s.FinalAutomationRate != 0.34 || s.FinalUnemployed != 17 {
		t.Errorf("final year = %f/%d, want 0.34/17", s.FinalAutomationRate, s.FinalUnemployed)
	}

	if empty := (&Result{}).Summary(); empty.Gini != (SeriesSummary{}) {
		t.Errorf("empty summary = %+v", empty)
	}
}
