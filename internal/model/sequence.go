package model

import (
	"context"
	"fmt"
	"math"
	"time"

	"groundwater-lab/internal/domain"
)

// Sequence is the sequence-learning family: a lag-window regressor over
// the previous year of standardized levels, trained by gradient descent
// and applied recursively over the horizon.
type Sequence struct {
	lags         int
	epochs       int
	learningRate float64
}

// NewSequence returns the default sequence model.
func NewSequence() *Sequence {
	return &Sequence{lags: 12, epochs: 200, learningRate: 0.05}
}

var _ Model = (*Sequence)(nil)

func (m *Sequence) Name() string { return domain.ModelSequence }

// FitAndPredict trains the lag regressor and rolls it forward over the
// horizon window by window.
func (m *Sequence) FitAndPredict(ctx context.Context, series *domain.CleanedSeries, horizon []time.Time) (*domain.ForecastResult, error) {
	values := levels(series)
	minObs := m.lags + 8
	if len(values) < minObs {
		return nil, &FitError{
			ModelName: m.Name(),
			WellID:    series.WellID,
			Reason:    fmt.Sprintf("%d observations, need %d", len(values), minObs),
		}
	}

	mean, scale := standardization(values)
	normalized := make([]float64, len(values))
	for i, v := range values {
		normalized[i] = (v - mean) / scale
	}

	weights, bias, err := m.train(ctx, normalized)
	if err != nil {
		return nil, err
	}
	if weights == nil {
		return nil, &FitError{ModelName: m.Name(), WellID: series.WellID, Reason: "training diverged"}
	}

	// Residuals in original units for the prediction interval.
	var residuals []float64
	for t := m.lags; t < len(normalized); t++ {
		pred := m.apply(weights, bias, normalized[t-m.lags:t])
		residuals = append(residuals, (normalized[t]-pred)*scale)
	}
	sigma := residualSigma(residuals)

	window := append([]float64(nil), normalized[len(normalized)-m.lags:]...)
	predicted := make([]float64, len(horizon))
	for h := range horizon {
		next := m.apply(weights, bias, window)
		window = append(window[1:], next)
		predicted[h] = next*scale + mean
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

// train runs full-batch gradient descent on the squared one-step error.
// Returns nil weights when the loss degenerates.
func (m *Sequence) train(ctx context.Context, normalized []float64) ([]float64, float64, error) {
	rows := len(normalized) - m.lags

	// Persistence initialization: the most recent lag predicts the next
	// value. Training departs from there.
	weights := make([]float64, m.lags)
	weights[m.lags-1] = 1
	bias := 0.0

	for epoch := 0; epoch < m.epochs; epoch++ {
		if err := ctx.Err(); err != nil {
			return nil, 0, err
		}

		grad := make([]float64, m.lags)
		gradBias := 0.0
		for t := m.lags; t < len(normalized); t++ {
			errTerm := m.apply(weights, bias, normalized[t-m.lags:t]) - normalized[t]
			for k := 0; k < m.lags; k++ {
				grad[k] += errTerm * normalized[t-m.lags+k]
			}
			gradBias += errTerm
		}

		step := m.learningRate / float64(rows)
		for k := 0; k < m.lags; k++ {
			weights[k] -= step * grad[k]
		}
		bias -= step * gradBias

		if math.IsNaN(bias) || math.IsInf(bias, 0) {
			return nil, 0, nil
		}
	}
	return weights, bias, nil
}

// apply evaluates the regressor on one lag window (oldest first).
func (m *Sequence) apply(weights []float64, bias float64, window []float64) float64 {
	out := bias
	for k, w := range weights {
		out += w * window[k]
	}
	return out
}

// standardization returns the series mean and a non-zero scale.
func standardization(values []float64) (mean, scale float64) {
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))

	var sumSq float64
	for _, v := range values {
		d := v - mean
		sumSq += d * d
	}
	scale = math.Sqrt(sumSq / float64(len(values)))
	if scale == 0 {
		scale = 1
	}
	return mean, scale
}
