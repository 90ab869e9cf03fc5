// Package validation turns raw well observations into regularized,
// gap-flagged series suitable for trend testing and forecasting.
package validation

import (
	"fmt"
	"sort"
	"time"

	"groundwater-lab/internal/domain"
)

// monthlySamplingInterval is the nominal spacing reported on resampled
// series. Calendar months vary in length; the value is informational.
const monthlySamplingInterval = 30 * 24 * time.Hour

// Clean validates raw observations into a CleanedSeries.
// Steps:
//  1. Reject empty input and mixed well IDs or units
//  2. Sort by timestamp; deduplicate repeated timestamps (last report wins)
//  3. Reject series shorter than cfg.MinObservations
//  4. Flag gaps longer than cfg.MaxGap
//  5. Optionally resample to a monthly grid, interpolating linearly only
//     across gaps within cfg.MaxGap; longer gaps stay as explicit holes
//
// Clean is pure: identical input and config always yield identical output,
// and cleaning an already-clean series returns it unchanged.
func Clean(raw []domain.RawObservation, cfg domain.AnalysisConfig) (*domain.CleanedSeries, error) {
	if len(raw) == 0 {
		return nil, &DataQualityError{Reason: "empty series"}
	}

	wellID := raw[0].WellID
	unit := raw[0].Unit
	for _, o := range raw {
		if o.WellID != wellID {
			return nil, &DataQualityError{WellID: wellID, Reason: fmt.Sprintf("mixed well ids: %s and %s", wellID, o.WellID)}
		}
		if o.Unit != unit {
			return nil, &DataQualityError{WellID: wellID, Reason: fmt.Sprintf("mixed units: %s and %s", unit, o.Unit)}
		}
	}

	obs := dedupe(raw)

	if len(obs) < cfg.MinObservations {
		return nil, &DataQualityError{
			WellID: wellID,
			Reason: fmt.Sprintf("%d observations after deduplication, need %d", len(obs), cfg.MinObservations),
			Err:    ErrInsufficientObservations,
		}
	}

	series := &domain.CleanedSeries{
		WellID: wellID,
		Points: obs,
		Gaps:   detectGaps(obs, cfg.MaxGap),
	}

	if cfg.Resample {
		series = resampleMonthly(series, cfg.MaxGap)
		if len(series.Points) < cfg.MinObservations {
			return nil, &DataQualityError{
				WellID: wellID,
				Reason: fmt.Sprintf("%d points after resampling, need %d", len(series.Points), cfg.MinObservations),
				Err:    ErrInsufficientObservations,
			}
		}
	}

	return series, nil
}

// dedupe sorts observations by timestamp and collapses repeated timestamps,
// keeping the latest reported value for each. The sort is stable so the
// last occurrence in input order wins.
func dedupe(raw []domain.RawObservation) []domain.SeriesPoint {
	sorted := make([]domain.RawObservation, len(raw))
	copy(sorted, raw)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	points := make([]domain.SeriesPoint, 0, len(sorted))
	for _, o := range sorted {
		p := domain.SeriesPoint{Timestamp: o.Timestamp, Level: o.Level}
		if n := len(points); n > 0 && points[n-1].Timestamp.Equal(o.Timestamp) {
			points[n-1] = p
			continue
		}
		points = append(points, p)
	}
	return points
}

// detectGaps flags spans between consecutive points exceeding maxGap.
func detectGaps(points []domain.SeriesPoint, maxGap time.Duration) []domain.Gap {
	var gaps []domain.Gap
	for i := 1; i < len(points); i++ {
		if points[i].Timestamp.Sub(points[i-1].Timestamp) > maxGap {
			gaps = append(gaps, domain.Gap{
				Start: points[i-1].Timestamp,
				End:   points[i].Timestamp,
			})
		}
	}
	return gaps
}

// resampleMonthly projects the series onto first-of-month timestamps from
// the first to the last observation. Grid dates inside a bracket of
// observations no further apart than maxGap are linearly interpolated;
// dates inside longer gaps are omitted, leaving the gap visible.
func resampleMonthly(series *domain.CleanedSeries, maxGap time.Duration) *domain.CleanedSeries {
	points := series.Points
	first := points[0].Timestamp
	last := points[len(points)-1].Timestamp

	start := time.Date(first.Year(), first.Month(), 1, 0, 0, 0, 0, time.UTC)
	if start.Before(first) {
		start = start.AddDate(0, 1, 0)
	}

	var resampled []domain.SeriesPoint
	idx := 0
	for d := start; !d.After(last); d = d.AddDate(0, 1, 0) {
		// Advance to the bracket [idx, idx+1] containing d.
		for idx+1 < len(points) && points[idx+1].Timestamp.Before(d) {
			idx++
		}

		if points[idx].Timestamp.Equal(d) {
			resampled = append(resampled, points[idx])
			continue
		}
		if idx+1 >= len(points) {
			break
		}

		prev, next := points[idx], points[idx+1]
		if next.Timestamp.Equal(d) {
			resampled = append(resampled, next)
			continue
		}
		if next.Timestamp.Sub(prev.Timestamp) > maxGap {
			continue // hole: never interpolate across a flagged gap
		}

		span := next.Timestamp.Sub(prev.Timestamp).Seconds()
		frac := d.Sub(prev.Timestamp).Seconds() / span
		resampled = append(resampled, domain.SeriesPoint{
			Timestamp: d,
			Level:     prev.Level + frac*(next.Level-prev.Level),
		})
	}

	return &domain.CleanedSeries{
		WellID:           series.WellID,
		Points:           resampled,
		SamplingInterval: monthlySamplingInterval,
		Gaps:             detectGaps(resampled, maxGap),
	}
}
