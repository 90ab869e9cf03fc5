package domain

import "time"

// Forecast model name constants.
const (
	ModelARIMA       = "ARIMA"
	ModelHoltWinters = "HOLT_WINTERS"
	ModelSequence    = "SEQUENCE"
)

// ForecastResult is a single model's prediction over a horizon.
// Horizon, Predicted, Lower and Upper are parallel slices of equal length.
// Owned exclusively by the ensemble until merged into an EnsembleResult.
type ForecastResult struct {
	WellID    string
	ModelName string

	Horizon   []time.Time
	Predicted []float64
	Lower     []float64 // prediction interval lower bound
	Upper     []float64 // prediction interval upper bound
}

// ForecastPoint is one predicted level in the persisted forecast
// timeseries, keyed by (well_id, model_name, timestamp). Combined
// ensemble output is stored under the ENSEMBLE pseudo-model name.
type ForecastPoint struct {
	WellID    string
	ModelName string
	Timestamp time.Time
	Predicted float64
	Lower     float64
	Upper     float64
}

// ModelEnsemble is the pseudo-model name under which combined ensemble
// forecast points are persisted.
const ModelEnsemble = "ENSEMBLE"

// ModelFailure records one model that could not produce a forecast.
type ModelFailure struct {
	ModelName string
	Reason    string
}

// EnsembleResult combines the surviving models' forecasts for one well.
// Combined values at each horizon date are the weighted mean over models
// that produced a valid forecast; the interval is the widest union of the
// survivors' intervals. When Failed is set, no model survived and the
// numeric slices are empty.
type EnsembleResult struct {
	WellID string

	Horizon  []time.Time
	Combined []float64
	Lower    []float64
	Upper    []float64

	PerModel []*ForecastResult
	Failures []ModelFailure
	Failed   bool
}

// PredictionAt returns the combined prediction at the horizon date nearest
// to t. ok is false for failed or empty ensembles.
func (e *EnsembleResult) PredictionAt(t time.Time) (float64, bool) {
	if e == nil || e.Failed || len(e.Horizon) == 0 {
		return 0, false
	}

	best := 0
	bestDist := absDuration(e.Horizon[0].Sub(t))
	for i := 1; i < len(e.Horizon); i++ {
		d := absDuration(e.Horizon[i].Sub(t))
		if d < bestDist {
			best = i
			bestDist = d
		}
	}
	return e.Combined[best], true
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
