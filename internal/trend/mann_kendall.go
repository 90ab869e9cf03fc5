// Package trend implements the non-parametric monotonic trend test used
// on cleaned well series: Mann-Kendall with tie-corrected variance and
// Sen's slope estimate, plus an ordinary least-squares fit for comparison.
package trend

import (
	"math"
	"sort"

	"groundwater-lab/internal/domain"
)

// minPoints is the shortest series the test accepts.
const minPoints = 4

// secondsPerYear converts pairwise slopes to m/year.
const secondsPerYear = 365.25 * 24 * 3600

// Test runs the Mann-Kendall trend test on a cleaned series.
// Classification: INCREASING when p ≤ alpha and the Sen slope is positive,
// DECREASING when p ≤ alpha and the slope is negative, NONE otherwise.
func Test(series *domain.CleanedSeries, alpha float64) (*domain.TrendResult, error) {
	points := series.Points
	n := len(points)
	if n < minPoints {
		return nil, &InsufficientDataError{WellID: series.WellID, Points: n}
	}

	s := sStatistic(points)
	variance := tieCorrectedVariance(points)
	z := zScore(s, variance)
	p := pValue(z)

	slope := senSlope(points)
	linSlope, linR2 := linearFit(points)

	direction := domain.TrendNone
	if p <= alpha {
		if slope > 0 {
			direction = domain.TrendIncreasing
		} else if slope < 0 {
			direction = domain.TrendDecreasing
		}
	}

	confidence := 1 - p
	if confidence < 0 {
		confidence = 0
	}

	return &domain.TrendResult{
		WellID:      series.WellID,
		SStatistic:  s,
		Variance:    variance,
		ZScore:      z,
		PValue:      p,
		Direction:   direction,
		SenSlope:    slope,
		Confidence:  confidence,
		LinearSlope: linSlope,
		LinearR2:    linR2,
	}, nil
}

// sStatistic sums sign(level_j - level_i) over all pairs i < j.
func sStatistic(points []domain.SeriesPoint) int64 {
	var s int64
	for i := 0; i < len(points); i++ {
		for j := i + 1; j < len(points); j++ {
			diff := points[j].Level - points[i].Level
			switch {
			case diff > 0:
				s++
			case diff < 0:
				s--
			}
		}
	}
	return s
}

// tieCorrectedVariance computes Var(S) with the tie correction term:
// [n(n-1)(2n+5) - Σ t(t-1)(2t+5)] / 18 over tie groups of size t.
func tieCorrectedVariance(points []domain.SeriesPoint) float64 {
	n := float64(len(points))
	variance := n * (n - 1) * (2*n + 5)

	ties := make(map[float64]int, len(points))
	for _, p := range points {
		ties[p.Level]++
	}
	for _, count := range ties {
		if count > 1 {
			t := float64(count)
			variance -= t * (t - 1) * (2*t + 5)
		}
	}

	return variance / 18
}

// zScore applies the continuity-corrected normal approximation.
func zScore(s int64, variance float64) float64 {
	if variance <= 0 {
		return 0
	}
	sd := math.Sqrt(variance)
	switch {
	case s > 0:
		return (float64(s) - 1) / sd
	case s < 0:
		return (float64(s) + 1) / sd
	default:
		return 0
	}
}

// pValue is the two-sided tail probability of |z| under the standard normal.
func pValue(z float64) float64 {
	return math.Erfc(math.Abs(z) / math.Sqrt2)
}

// senSlope is the median of pairwise slopes (level_j - level_i)/(t_j - t_i)
// over i < j, in m/year. Robust to outliers and gap artifacts.
func senSlope(points []domain.SeriesPoint) float64 {
	var slopes []float64
	for i := 0; i < len(points); i++ {
		for j := i + 1; j < len(points); j++ {
			dt := points[j].Timestamp.Sub(points[i].Timestamp).Seconds()
			if dt == 0 {
				continue
			}
			slopes = append(slopes, (points[j].Level-points[i].Level)/(dt/secondsPerYear))
		}
	}
	if len(slopes) == 0 {
		return 0
	}

	sort.Float64s(slopes)
	mid := len(slopes) / 2
	if len(slopes)%2 == 1 {
		return slopes[mid]
	}
	return (slopes[mid-1] + slopes[mid]) / 2
}

// linearFit returns the ordinary least-squares slope (m/year) and R²
// of level against time in years since the first observation.
func linearFit(points []domain.SeriesPoint) (slope, r2 float64) {
	n := float64(len(points))
	t0 := points[0].Timestamp

	var sumX, sumY, sumXY, sumXX float64
	for _, p := range points {
		x := p.Timestamp.Sub(t0).Seconds() / secondsPerYear
		sumX += x
		sumY += p.Level
		sumXY += x * p.Level
		sumXX += x * x
	}

	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0, 0
	}
	slope = (n*sumXY - sumX*sumY) / denom
	intercept := (sumY - slope*sumX) / n

	meanY := sumY / n
	var ssTot, ssRes float64
	for _, p := range points {
		x := p.Timestamp.Sub(t0).Seconds() / secondsPerYear
		fit := intercept + slope*x
		ssTot += (p.Level - meanY) * (p.Level - meanY)
		ssRes += (p.Level - fit) * (p.Level - fit)
	}
	if ssTot == 0 {
		return slope, 0
	}
	return slope, 1 - ssRes/ssTot
}
