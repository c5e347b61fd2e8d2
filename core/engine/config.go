package engine

import (
	"fmt"
	"time"

	"github.com/kilianp07/taxico2/core/emissions"
)

// Config controls error policy and the optional cleaning stage.
type Config struct {
	// Strict aborts the run on the first per-record error instead of
	// skipping the record.
	Strict           bool           `json:"strict"`
	MaxErrorExamples int            `json:"max_error_examples"`
	Cleaning         CleaningConfig `json:"cleaning"`
}

// CleaningConfig enables the trip filter applied before enrichment.
type CleaningConfig struct {
	Enabled            bool    `json:"enabled"`
	MaxDistance        float64 `json:"max_distance"`
	MaxDurationSeconds int     `json:"max_duration_seconds"`
}

// SetDefaults applies default values.
func (c *Config) SetDefaults() {
	if c.MaxErrorExamples == 0 {
		c.MaxErrorExamples = 5
	}
	if c.Cleaning.MaxDistance == 0 {
		c.Cleaning.MaxDistance = 100
	}
	if c.Cleaning.MaxDurationSeconds == 0 {
		c.Cleaning.MaxDurationSeconds = 86400
	}
}

// Validate checks the configuration values.
func (c Config) Validate() error {
	if c.MaxErrorExamples < 0 {
		return fmt.Errorf("max_error_examples must be >= 0")
	}
	if c.Cleaning.MaxDistance < 0 {
		return fmt.Errorf("cleaning.max_distance must be >= 0")
	}
	if c.Cleaning.MaxDurationSeconds < 0 {
		return fmt.Errorf("cleaning.max_duration_seconds must be >= 0")
	}
	return nil
}

func (c CleaningConfig) rules() emissions.Rules {
	r := emissions.Rules{
		MaxDistance: c.MaxDistance,
		MaxDuration: time.Duration(c.MaxDurationSeconds) * time.Second,
	}
	r.SetDefaults()
	return r
}
