// Package model provides the forecasting model families used by the
// ensemble. Each variant implements the same capability interface so new
// models can be added without touching the combination logic.
package model

import (
	"context"
	"fmt"
	"time"

	"groundwater-lab/internal/domain"
)

// Model fits one forecasting family to a cleaned series and predicts
// over a horizon.
type Model interface {
	// FitAndPredict fits the model and returns predictions with a
	// prediction interval for every horizon date. Returns *FitError when
	// the series does not satisfy the model's minimum window or the fit
	// does not converge.
	FitAndPredict(ctx context.Context, series *domain.CleanedSeries, horizon []time.Time) (*domain.ForecastResult, error)

	// Name returns the model identifier used for weights and reporting.
	Name() string
}

// FitError reports a single model's failure to produce a forecast.
// The ensemble records it and excludes the model; it is never fatal.
type FitError struct {
	ModelName string
	WellID    string
	Reason    string
}

func (e *FitError) Error() string {
	return fmt.Sprintf("model %s: well %s: %s", e.ModelName, e.WellID, e.Reason)
}
