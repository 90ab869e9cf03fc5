package domain

// TrendDirection classifies the monotonic trend of a series.
type TrendDirection string

const (
	TrendIncreasing TrendDirection = "INCREASING"
	TrendDecreasing TrendDirection = "DECREASING"
	TrendNone       TrendDirection = "NONE"
)

// TrendResult holds the Mann-Kendall test outcome for one well.
// Invariant: Direction is TrendNone whenever PValue > the alpha the test
// was run with, regardless of slope sign.
//
// Levels are depths below surface, so a positive slope means the water
// table is dropping.
type TrendResult struct {
	WellID string

	SStatistic int64   // Mann-Kendall S, sum of pairwise signs
	Variance   float64 // tie-corrected variance of S
	ZScore     float64 // normal approximation
	PValue     float64 // two-sided

	Direction  TrendDirection
	SenSlope   float64 // median pairwise slope, m/year
	Confidence float64 // 1 - PValue, clamped to [0,1]

	// Ordinary least-squares fit, kept alongside the non-parametric
	// estimate for comparison with legacy registry analyses.
	LinearSlope float64 // m/year
	LinearR2    float64
}
