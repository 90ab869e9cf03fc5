// Package ensemble fits every configured forecast model on a cleaned
// series and blends the survivors into one combined projection.
package ensemble

import (
	"context"
	"errors"
	"time"

	"groundwater-lab/internal/domain"
	"groundwater-lab/internal/model"
)

type fitOutcome struct {
	result *domain.ForecastResult
	err    error
}

// Forecast runs each model on the series and combines the successful
// fits. A model with an explicit weight of zero is skipped entirely. A
// model failure is recorded on the result, not returned as an error;
// only parent-context cancellation aborts the ensemble. When every
// model fails or is excluded the result carries Failed=true with an
// empty combined forecast.
func Forecast(ctx context.Context, series *domain.CleanedSeries, horizon []time.Time, models []model.Model, weights map[string]float64, timeout time.Duration) (*domain.EnsembleResult, error) {
	result := &domain.EnsembleResult{
		WellID:  series.WellID,
		Horizon: horizon,
	}

	for _, m := range models {
		// An explicit zero weight excludes the model from the run.
		if w, ok := weights[m.Name()]; ok && w == 0 {
			continue
		}
		forecast, err := fitOne(ctx, m, series, horizon, timeout)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			result.Failures = append(result.Failures, domain.ModelFailure{
				ModelName: m.Name(),
				Reason:    err.Error(),
			})
			continue
		}
		result.PerModel = append(result.PerModel, forecast)
	}

	if len(result.PerModel) == 0 {
		result.Failed = true
		return result, nil
	}

	combine(result, weights)
	return result, nil
}

// fitOne runs a single model under its own deadline so a hung fit
// degrades into a recorded failure instead of stalling the well.
func fitOne(ctx context.Context, m model.Model, series *domain.CleanedSeries, horizon []time.Time, timeout time.Duration) (*domain.ForecastResult, error) {
	fitCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		fitCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	done := make(chan fitOutcome, 1)
	go func() {
		forecast, err := m.FitAndPredict(fitCtx, series, horizon)
		done <- fitOutcome{result: forecast, err: err}
	}()

	select {
	case out := <-done:
		if out.err != nil && errors.Is(out.err, context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, &model.FitError{ModelName: m.Name(), WellID: series.WellID, Reason: "fit timed out"}
		}
		return out.result, out.err
	case <-fitCtx.Done():
		// The fit goroutine is abandoned; it observes fitCtx itself.
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &model.FitError{ModelName: m.Name(), WellID: series.WellID, Reason: "fit timed out"}
	}
}

// combine fills the weighted mean and the widest per-step interval
// across the surviving models. Weights for failed models are dropped
// and the remainder renormalized; a model absent from the weight map
// contributes with weight 1.
func combine(result *domain.EnsembleResult, weights map[string]float64) {
	steps := len(result.Horizon)
	result.Combined = make([]float64, steps)
	result.Lower = make([]float64, steps)
	result.Upper = make([]float64, steps)

	var total float64
	for _, fc := range result.PerModel {
		total += modelWeight(weights, fc.ModelName)
	}

	for i := 0; i < steps; i++ {
		var sum float64
		lower := result.PerModel[0].Lower[i]
		upper := result.PerModel[0].Upper[i]
		for _, fc := range result.PerModel {
			sum += modelWeight(weights, fc.ModelName) / total * fc.Predicted[i]
			if fc.Lower[i] < lower {
				lower = fc.Lower[i]
			}
			if fc.Upper[i] > upper {
				upper = fc.Upper[i]
			}
		}
		result.Combined[i] = sum
		result.Lower[i] = lower
		result.Upper[i] = upper
	}
}

// modelWeight returns the configured weight, 1 when absent from the
// map. Zero-weight models never reach combine; they are excluded from
// the run up front.
func modelWeight(weights map[string]float64, name string) float64 {
	if w, ok := weights[name]; ok {
		return w
	}
	return 1
}
