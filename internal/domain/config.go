package domain

import (
	"errors"
	"fmt"
	"time"
)

// AnalysisConfig carries all tunables for a batch run. It is passed by
// value into every component so per-well analysis stays side-effect free.
type AnalysisConfig struct {
	// Alpha is the significance threshold for the trend test.
	Alpha float64

	// MinObservations is the minimum series length accepted by validation.
	MinObservations int

	// MaxGap is the longest span between consecutive observations that is
	// still considered continuous. Longer spans are flagged and never
	// interpolated. Default 120 days, roughly four missed monthly readings.
	MaxGap time.Duration

	// Resample enables monthly regularization with linear interpolation
	// across sub-MaxGap gaps.
	Resample bool

	// HorizonEnd is the last forecast date. Defaults to December 2030.
	HorizonEnd time.Time

	// Models lists the model names the ensemble runs; empty means all.
	Models []string

	// Weights are per-model combination weights, renormalized over the
	// models that survive fitting. Empty means uniform; an explicit
	// zero excludes the model from the ensemble.
	Weights map[string]float64

	// ModelTimeout bounds a single model fit; zero disables the bound.
	ModelTimeout time.Duration

	// Workers bounds batch parallelism across wells.
	Workers int
}

// DefaultAnalysisConfig returns the configuration used by the batch tools.
func DefaultAnalysisConfig() AnalysisConfig {
	return AnalysisConfig{
		Alpha:           0.05,
		MinObservations: 24,
		MaxGap:          120 * 24 * time.Hour,
		Resample:        true,
		HorizonEnd:      time.Date(2030, time.December, 1, 0, 0, 0, 0, time.UTC),
		Models:          []string{ModelARIMA, ModelHoltWinters, ModelSequence},
		ModelTimeout:    30 * time.Second,
		Workers:         4,
	}
}

// Validate checks the configuration before per-well processing begins.
// This is the only failure that aborts a whole batch.
func (c AnalysisConfig) Validate() error {
	if c.Alpha <= 0 || c.Alpha >= 1 {
		return fmt.Errorf("alpha must be in (0, 1), got %v", c.Alpha)
	}
	if c.MinObservations < 4 {
		return fmt.Errorf("min observations must be at least 4, got %d", c.MinObservations)
	}
	if c.MaxGap <= 0 {
		return errors.New("max gap must be positive")
	}
	if c.HorizonEnd.IsZero() {
		return errors.New("horizon end must be set")
	}
	for name, w := range c.Weights {
		if w < 0 {
			return fmt.Errorf("weight for model %s must be non-negative, got %v", name, w)
		}
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	return nil
}

// HorizonDates builds the monthly forecast horizon from the first month
// after the last observation through HorizonEnd, inclusive.
func (c AnalysisConfig) HorizonDates(lastObservation time.Time) []time.Time {
	start := time.Date(lastObservation.Year(), lastObservation.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
	end := time.Date(c.HorizonEnd.Year(), c.HorizonEnd.Month(), 1, 0, 0, 0, 0, time.UTC)

	var dates []time.Time
	for d := start; !d.After(end); d = d.AddDate(0, 1, 0) {
		dates = append(dates, d)
	}
	return dates
}
