package model

import (
	"math"

	"groundwater-lab/internal/domain"
)

// z95 is the two-sided 95% normal quantile used for prediction intervals.
const z95 = 1.96

// levels extracts the level values of a series.
func levels(series *domain.CleanedSeries) []float64 {
	out := make([]float64, len(series.Points))
	for i, p := range series.Points {
		out[i] = p.Level
	}
	return out
}

// meanOf returns the arithmetic mean, 0 for an empty slice.
func meanOf(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// residualSigma is the sample standard deviation of fit residuals.
func residualSigma(residuals []float64) float64 {
	n := len(residuals)
	if n < 2 {
		return 0
	}
	mean := 0.0
	for _, r := range residuals {
		mean += r
	}
	mean /= float64(n)

	sumSq := 0.0
	for _, r := range residuals {
		d := r - mean
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(n-1))
}

// intervalBounds widens the prediction interval with the forecast step,
// sigma * sqrt(h) at horizon step h.
func intervalBounds(predicted []float64, sigma float64) (lower, upper []float64) {
	lower = make([]float64, len(predicted))
	upper = make([]float64, len(predicted))
	for i, p := range predicted {
		half := z95 * sigma * math.Sqrt(float64(i+1))
		lower[i] = p - half
		upper[i] = p + half
	}
	return lower, upper
}

// allFinite reports whether every value is a finite number.
func allFinite(values []float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// solveLinearSystem solves a*x = b in place via Gaussian elimination with
// partial pivoting. Returns false for a singular system. Sized for the
// small normal-equation systems the models build.
func solveLinearSystem(a [][]float64, b []float64) ([]float64, bool) {
	n := len(b)
	for col := 0; col < n; col++ {
		pivot := col
		for row := col + 1; row < n; row++ {
			if math.Abs(a[row][col]) > math.Abs(a[pivot][col]) {
				pivot = row
			}
		}
		if math.Abs(a[pivot][col]) < 1e-12 {
			return nil, false
		}
		a[col], a[pivot] = a[pivot], a[col]
		b[col], b[pivot] = b[pivot], b[col]

		for row := col + 1; row < n; row++ {
			factor := a[row][col] / a[col][col]
			for k := col; k < n; k++ {
				a[row][k] -= factor * a[col][k]
			}
			b[row] -= factor * b[col]
		}
	}

	x := make([]float64, n)
	for row := n - 1; row >= 0; row-- {
		sum := b[row]
		for k := row + 1; k < n; k++ {
			sum -= a[row][k] * x[k]
		}
		x[row] = sum / a[row][row]
	}
	return x, true
}
