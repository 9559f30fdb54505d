package society

import (
	"errors"
	"math"
	"math/rand/v2"
	"slices"
)

// Model constants.
const (
	// OutputPerAutomatedWorker is the yearly AI output attributed to each
	// automated share of one worker.
	OutputPerAutomatedWorker = 50000.0

	// MinWage and MaxWage bound the uniform wage draw [MinWage, MaxWage).
	MinWage = 25000
	MaxWage = 100000

	// ReferenceIncome is the average income at which the stability score
	// receives no income penalty.
	ReferenceIncome = 50000.0

	// UnemploymentPenalty is the stability lost at 100% unemployment.
	UnemploymentPenalty = 50.0

	// IncomePenaltyScale converts an income shortfall into stability points.
	IncomePenaltyScale = 1000.0

	// MaxStability is the score of a fully employed society at the reference income.
	MaxStability = 100.0
)

// pcgStream is the fixed PCG stream selector; only the seed varies between runs.
const pcgStream = 0x9e3779b97f4a7c15

// YearStats is the full breakdown of one simulated year.
type YearStats struct {
	Year           int     `json:"year"`
	AutomationRate float64 `json:"automation_rate"`
	Employed       int     `json:"employed"`
	Unemployed     int     `json:"unemployed"`
	AIOutput       float64 `json:"ai_output"`
	TaxCollected   float64 `json:"tax_collected"`
	UBIPerPerson   float64 `json:"ubi_per_person"`
	AvgIncome      float64 `json:"avg_income"`
	Stability      float64 `json:"stability"`
	Gini           float64 `json:"gini"`
}

// Result holds the three aligned output series of one run plus the
// per-year detail they were derived from.
type Result struct {
	Params    Params      `json:"params"`
	Seed      uint64      `json:"seed"`
	AvgIncome []float64   `json:"avg_income"`
	Stability []float64   `json:"stability"`
	Gini      []float64   `json:"gini"`
	Years     []YearStats `json:"years"`
}

// NewRand returns a deterministic PCG-backed generator for seed.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, pcgStream))
}

// RandomSeed returns a fresh non-zero seed.
func RandomSeed() uint64 {
	for {
		if s := rand.Uint64(); s != 0 {
			return s
		}
	}
}

// Run simulates p with a generator seeded from seed. A zero seed picks a
// random one; the seed actually used is recorded on the result.
func Run(p Params, seed uint64) (*Result, error) {
	if seed == 0 {
		seed = RandomSeed()
	}
	res, err := Simulate(p, NewRand(seed))
	if err != nil {
		return nil, err
	}
	res.Seed = seed
	return res, nil
}

// Simulate runs the model for p.Years years, drawing wages from rng.
// Parameters are validated before the first year; on error nothing is computed.
func Simulate(p Params, rng *rand.Rand) (*Result, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if rng == nil {
		return nil, errors.New("simulate: nil random source")
	}

	res := &Result{
		Params:    p,
		AvgIncome: make([]float64, p.Years),
		Stability: make([]float64, p.Years),
		Gini:      make([]float64, p.Years),
		Years:     make([]YearStats, p.Years),
	}

	// Scratch buffer reused across years.
	incomes := make([]float64, p.Population)

	for year := 0; year < p.Years; year++ {
		ys := simulateYear(p, year, rng, incomes)
		res.Years[year] = ys
		res.AvgIncome[year] = ys.AvgIncome
		res.Stability[year] = ys.Stability
		res.Gini[year] = ys.Gini
	}

	return res, nil
}

// simulateYear fills incomes for one year and derives its statistics.
// incomes must have length p.Population; its contents are overwritten.
func simulateYear(p Params, year int, rng *rand.Rand, incomes []float64) YearStats {
	automation := AutomationRate(p, year)
	employed := int(math.Floor(float64(p.Population) * (1 - automation)))
	unemployed := p.Population - employed

	aiOutput := OutputPerAutomatedWorker * float64(p.Population) * automation
	tax := aiOutput * p.AITaxRate

	ubi := 0.0
	if p.UBIEnabled {
		ubi = tax / float64(p.Population)
	}

	// Employed wages first, then the unemployed who live on UBI alone.
	for i := 0; i < employed; i++ {
		incomes[i] = float64(MinWage+rng.IntN(MaxWage-MinWage)) + ubi
	}
	for i := employed; i < p.Population; i++ {
		incomes[i] = ubi
	}

	avg := mean(incomes)

	slices.Sort(incomes)

	return YearStats{
		Year:           year,
		AutomationRate: automation,
		Employed:       employed,
		Unemployed:     unemployed,
		AIOutput:       aiOutput,
		TaxCollected:   tax,
		UBIPerPerson:   ubi,
		AvgIncome:      avg,
		Stability:      Stability(unemployed, p.Population, avg),
		Gini:           giniSorted(incomes),
	}
}

// AutomationRate is the automated share of labor in the given year, capped at 1.
func AutomationRate(p Params, year int) float64 {
	return math.Min(1.0, p.StartAutomation+p.AutomationGrowth*float64(year))
}

// Stability scores a year from its unemployment share and average income.
// The score is floored at 0 and is not capped above.
func Stability(unemployed, population int, avgIncome float64) float64 {
	unemploymentShare := float64(unemployed) / float64(population)
	score := MaxStability -
		unemploymentShare*UnemploymentPenalty -
		(ReferenceIncome-avgIncome)/IncomePenaltyScale
	return math.Max(0, score)
}

// Gini returns the Gini coefficient of values. The input is not modified.
// An empty slice, or one whose values sum to zero, yields 0.
func Gini(values []float64) float64 {
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	return giniSorted(sorted)
}

// giniSorted computes sum_i (2i - n - 1) * v_i / (n * sum v_i) over
// ascending values with 1-based rank i, clamped to [0,1].
func giniSorted(sorted []float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}

	var total, weighted float64
	for i, v := range sorted {
		total += v
		weighted += float64(2*(i+1)-n-1) * v
	}
	if total == 0 {
		return 0
	}

	g := weighted / (float64(n) * total)
	return math.Max(0, math.Min(1, g))
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
