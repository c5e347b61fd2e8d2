package config

import (
	"fmt"

	"github.com/kilianp07/taxico2/core/factory"
	"github.com/kilianp07/taxico2/core/model"
)

// InputConfig lists the trip sources, read in order, and the factor table.
type InputConfig struct {
	Trips   []factory.ModuleConfig `json:"trips"`
	Factors FactorsConfig          `json:"factors"`
}

// FactorsConfig locates the emissions factor table. Rates, in kg CO2 per
// mile, take precedence over Path.
type FactorsConfig struct {
	Path  string             `json:"path"`
	Rates map[string]float64 `json:"rates"`
}

// Validate checks that trips and factors are configured.
func (c InputConfig) Validate() error {
	if len(c.Trips) == 0 {
		return fmt.Errorf("input.trips: at least one source is required")
	}
	for i, t := range c.Trips {
		if t.Type == "" {
			return fmt.Errorf("input.trips[%d]: type is required", i)
		}
	}
	if c.Factors.Path == "" && len(c.Factors.Rates) == 0 {
		return fmt.Errorf("input.factors: %w", model.ErrMissingFactors)
	}
	return nil
}

// StaticFactors converts Rates into a factor table.
func (c FactorsConfig) StaticFactors() model.Factors {
	out := make(model.Factors, len(c.Rates))
	for k, v := range c.Rates {
		out[model.ParseCategory(k)] = v
	}
	return out
}
