package model

import (
	"context"
	"fmt"
	"time"

	"groundwater-lab/internal/domain"
)

// seasonLength is the annual cycle on a monthly grid.
const seasonLength = 12

// HoltWinters is the decomposition-based family: additive triple
// exponential smoothing with a yearly seasonal component.
type HoltWinters struct {
	alpha float64 // level smoothing
	beta  float64 // trend smoothing
	gamma float64 // seasonal smoothing
}

// NewHoltWinters returns the default smoothing configuration. The
// parameters favor a stable trend over reactive level tracking, which
// suits slow aquifer dynamics.
func NewHoltWinters() *HoltWinters {
	return &HoltWinters{alpha: 0.3, beta: 0.05, gamma: 0.2}
}

var _ Model = (*HoltWinters)(nil)

func (m *HoltWinters) Name() string { return domain.ModelHoltWinters }

// FitAndPredict smooths the series and extrapolates level + trend +
// seasonal index over the horizon.
func (m *HoltWinters) FitAndPredict(ctx context.Context, series *domain.CleanedSeries, horizon []time.Time) (*domain.ForecastResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	values := levels(series)
	if len(values) < 2*seasonLength {
		return nil, &FitError{
			ModelName: m.Name(),
			WellID:    series.WellID,
			Reason:    fmt.Sprintf("%d observations, need two full seasons (%d)", len(values), 2*seasonLength),
		}
	}

	level, trendComp, seasonal := initState(values)

	var residuals []float64
	for t := seasonLength; t < len(values); t++ {
		s := t % seasonLength
		fitted := level + trendComp + seasonal[s]
		residuals = append(residuals, values[t]-fitted)

		prevLevel := level
		level = m.alpha*(values[t]-seasonal[s]) + (1-m.alpha)*(level+trendComp)
		trendComp = m.beta*(level-prevLevel) + (1-m.beta)*trendComp
		seasonal[s] = m.gamma*(values[t]-level) + (1-m.gamma)*seasonal[s]
	}
	sigma := residualSigma(residuals)

	predicted := make([]float64, len(horizon))
	offset := len(values) % seasonLength
	for h := range horizon {
		s := (offset + h) % seasonLength
		predicted[h] = level + float64(h+1)*trendComp + seasonal[s]
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

// initState seeds level, trend and seasonal indices from the first two
// seasons.
func initState(values []float64) (level, trend float64, seasonal []float64) {
	var firstSeason, secondSeason float64
	for i := 0; i < seasonLength; i++ {
		firstSeason += values[i]
		secondSeason += values[seasonLength+i]
	}
	firstSeason /= seasonLength
	secondSeason /= seasonLength

	level = firstSeason
	trend = (secondSeason - firstSeason) / seasonLength

	seasonal = make([]float64, seasonLength)
	for i := 0; i < seasonLength; i++ {
		seasonal[i] = values[i] - firstSeason
	}
	return level, trend, seasonal
}
