package society

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidInput is the sentinel wrapped by every parameter validation failure.
var ErrInvalidInput = errors.New("invalid input")

// InvalidInputError describes which parameter was rejected and why.
type InvalidInputError struct {
	Field  string
	Value  any
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid input: %s %s (got %v)", e.Field, e.Reason, e.Value)
}

// Unwrap lets callers match with errors.Is(err, ErrInvalidInput).
func (e *InvalidInputError) Unwrap() error {
	return ErrInvalidInput
}

// Params are the inputs of one simulation run. Rates are fractions in [0,1].
type Params struct {
	// Years is the number of simulated periods.
	Years int `json:"years" yaml:"years"`

	// Population is the number of individuals drawn each year.
	Population int `json:"population" yaml:"population"`

	// StartAutomation is the automated share of labor in year 0.
	StartAutomation float64 `json:"start_automation" yaml:"start_automation"`

	// AutomationGrowth is added to the automation share every year.
	AutomationGrowth float64 `json:"automation_growth" yaml:"automation_growth"`

	// UBIEnabled redistributes the AI tax equally to every individual.
	UBIEnabled bool `json:"ubi_enabled" yaml:"ubi_enabled"`

	// UBIAmount is the flat yearly UBI figure collected by the UI. It is
	// recorded with every run but does not enter the computation: the
	// per-person transfer is always tax revenue divided by population.
	UBIAmount float64 `json:"ubi_amount" yaml:"ubi_amount"`

	// AITaxRate is the share of AI output collected as tax.
	AITaxRate float64 `json:"ai_tax_rate" yaml:"ai_tax_rate"`
}

// DefaultParams returns the reference slider defaults.
func DefaultParams() Params {
	return Params{
		Years:            30,
		Population:       5000,
		StartAutomation:  0.30,
		AutomationGrowth: 0.02,
		UBIEnabled:       true,
		UBIAmount:        10000,
		AITaxRate:        0.30,
	}
}

// FromPercent converts a percentage (as entered on a slider) to a fraction.
func FromPercent(pct float64) float64 {
	return pct / 100
}

// ToPercent converts a fraction back to a percentage.
func ToPercent(fraction float64) float64 {
	return fraction * 100
}

// Validate rejects parameters the simulator cannot run with.
// It reports the first offending field.
func (p Params) Validate() error {
	if p.Years <= 0 {
		return &InvalidInputError{Field: "years", Value: p.Years, Reason: "must be >= 1"}
	}
	if p.Population <= 0 {
		return &InvalidInputError{Field: "population", Value: p.Population, Reason: "must be >= 1"}
	}

	rates := []struct {
		field string
		value float64
	}{
		{"start_automation", p.StartAutomation},
		{"automation_growth", p.AutomationGrowth},
		{"ai_tax_rate", p.AITaxRate},
	}
	for _, r := range rates {
		if math.IsNaN(r.value) || r.value < 0 || r.value > 1 {
			return &InvalidInputError{Field: r.field, Value: r.value, Reason: "must be between 0 and 1"}
		}
	}

	return nil
}
