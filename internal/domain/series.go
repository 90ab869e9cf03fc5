package domain

import "time"

// SeriesPoint is one (timestamp, level) pair of a cleaned series.
type SeriesPoint struct {
	Timestamp time.Time
	Level     float64 // meters below surface
}

// Gap marks a span between consecutive observations that exceeds the
// configured max gap. Gaps are flagged, never interpolated.
type Gap struct {
	Start time.Time // last observation before the gap
	End   time.Time // first observation after the gap
}

// CleanedSeries is a validated, ordered well time series.
// Invariants: timestamps strictly increasing, no duplicates. Produced by
// the series validator, consumed by trend testing and forecasting,
// discarded after the well record is built.
type CleanedSeries struct {
	WellID string
	Points []SeriesPoint

	// SamplingInterval is the nominal spacing after resampling,
	// zero when the series was left on its native irregular grid.
	SamplingInterval time.Duration

	Gaps []Gap
}

// Summarize computes the descriptive statistics retained on a well record.
func (s *CleanedSeries) Summarize() SeriesSummary {
	n := len(s.Points)
	if n == 0 {
		return SeriesSummary{FlaggedGaps: len(s.Gaps)}
	}

	sum := 0.0
	min := s.Points[0].Level
	max := s.Points[0].Level
	for _, p := range s.Points {
		sum += p.Level
		if p.Level < min {
			min = p.Level
		}
		if p.Level > max {
			max = p.Level
		}
	}

	return SeriesSummary{
		ObservationCount: n,
		FirstTimestamp:   s.Points[0].Timestamp,
		LastTimestamp:    s.Points[n-1].Timestamp,
		CurrentLevel:     s.Points[n-1].Level,
		MeanLevel:        sum / float64(n),
		MinLevel:         min,
		MaxLevel:         max,
		FlaggedGaps:      len(s.Gaps),
	}
}
