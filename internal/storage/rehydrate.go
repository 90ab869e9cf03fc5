package storage

import (
	"context"
	"fmt"

	"groundwater-lab/internal/domain"
)

// RehydrateEnsembles reattaches combined forecast series to records
// loaded from a scalar record store. Such records carry the ensemble
// outcome flag but no series; the dense points live in the forecast
// point store under the ENSEMBLE pseudo-model. Records that already
// hold a series, or whose ensemble failed, are left untouched.
func RehydrateEnsembles(ctx context.Context, records []*domain.WellRecord, forecasts ForecastPointStore) error {
	for _, r := range records {
		e := r.Ensemble
		if e == nil || e.Failed || len(e.Horizon) > 0 {
			continue
		}

		points, err := forecasts.GetByWellID(ctx, r.Well.WellID)
		if err != nil {
			return fmt.Errorf("load forecast points for %s: %w", r.Well.WellID, err)
		}

		// GetByWellID orders by (model_name, timestamp), so the
		// ENSEMBLE slice arrives in horizon order.
		for _, p := range points {
			if p.ModelName != domain.ModelEnsemble {
				continue
			}
			e.Horizon = append(e.Horizon, p.Timestamp)
			e.Combined = append(e.Combined, p.Predicted)
			e.Lower = append(e.Lower, p.Lower)
			e.Upper = append(e.Upper, p.Upper)
		}
	}
	return nil
}
