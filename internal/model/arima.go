package model

import (
	"context"
	"fmt"
	"time"

	"groundwater-lab/internal/domain"
)

// arimaMinObservations leaves at least ten training rows after
// differencing and lag construction.
const arimaMinObservations = 16

// ARIMA is the statistical autoregressive family: an AR(p) model fit by
// least squares on the first-differenced series, forecast recursively and
// integrated back to levels.
type ARIMA struct {
	order int // autoregressive order p on the differenced series
}

// NewARIMA returns the default ARIMA model (p = 2, d = 1).
func NewARIMA() *ARIMA {
	return &ARIMA{order: 2}
}

var _ Model = (*ARIMA)(nil)

func (m *ARIMA) Name() string { return domain.ModelARIMA }

// FitAndPredict fits the AR coefficients and predicts the horizon.
func (m *ARIMA) FitAndPredict(ctx context.Context, series *domain.CleanedSeries, horizon []time.Time) (*domain.ForecastResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	values := levels(series)
	if len(values) < arimaMinObservations {
		return nil, &FitError{
			ModelName: m.Name(),
			WellID:    series.WellID,
			Reason:    fmt.Sprintf("%d observations, need %d", len(values), arimaMinObservations),
		}
	}

	// First difference removes the level trend.
	diffs := make([]float64, len(values)-1)
	for i := 1; i < len(values); i++ {
		diffs[i-1] = values[i] - values[i-1]
	}

	// A series whose differences are (near) constant makes the lag
	// columns collinear with the intercept and the normal equations
	// singular. Those series are pure drift: forecast with the mean
	// difference instead of failing the fit.
	coeffs, intercept, ok := fitAR(diffs, m.order)
	if !ok {
		coeffs = make([]float64, m.order)
		intercept = meanOf(diffs)
	}

	// One-step-ahead residuals on the training window.
	var residuals []float64
	for t := m.order; t < len(diffs); t++ {
		pred := intercept
		for k := 0; k < m.order; k++ {
			pred += coeffs[k] * diffs[t-1-k]
		}
		residuals = append(residuals, diffs[t]-pred)
	}
	sigma := residualSigma(residuals)

	// Recursive forecast of differences, integrated back to levels.
	window := append([]float64(nil), diffs...)
	level := values[len(values)-1]
	predicted := make([]float64, len(horizon))
	for i := range horizon {
		pred := intercept
		for k := 0; k < m.order; k++ {
			pred += coeffs[k] * window[len(window)-1-k]
		}
		window = append(window, pred)
		level += pred
		predicted[i] = level
	}

	if !allFinite(predicted) {
		return nil, &FitError{ModelName: m.Name(), WellID: series.WellID, Reason: "forecast diverged"}
	}

	lower, upper := intervalBounds(predicted, sigma)
	return &domain.ForecastResult{
		WellID:    series.WellID,
		ModelName: m.Name(),
		Horizon:   horizon,
		Predicted: predicted,
		Lower:     lower,
		Upper:     upper,
	}, nil
}

// fitAR solves the least-squares normal equations for an AR(p) model with
// intercept. Returns ok=false when the system is singular.
func fitAR(diffs []float64, p int) (coeffs []float64, intercept float64, ok bool) {
	rows := len(diffs) - p
	if rows < p+2 {
		return nil, 0, false
	}

	// Design matrix columns: lag 1..p, then the intercept.
	dim := p + 1
	ata := make([][]float64, dim)
	atb := make([]float64, dim)
	for i := range ata {
		ata[i] = make([]float64, dim)
	}

	for t := p; t < len(diffs); t++ {
		row := make([]float64, dim)
		for k := 0; k < p; k++ {
			row[k] = diffs[t-1-k]
		}
		row[p] = 1
		for i := 0; i < dim; i++ {
			for j := 0; j < dim; j++ {
				ata[i][j] += row[i] * row[j]
			}
			atb[i] += row[i] * diffs[t]
		}
	}

	solution, ok := solveLinearSystem(ata, atb)
	if !ok {
		return nil, 0, false
	}
	return solution[:p], solution[p], true
}
