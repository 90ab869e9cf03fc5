// Package fixtures seeds stores with deterministic synthetic wells and
// observation series for demonstration runs and tests.
package fixtures

import (
	"context"
	"math"
	"math/rand"
	"time"

	"groundwater-lab/internal/domain"
	"groundwater-lab/internal/storage"
)

// Seed fixes the random stream so repeated loads produce identical series.
const Seed = 42

// wellSpec describes one synthetic well and the shape of its series.
type wellSpec struct {
	well        domain.Well
	startLevel  float64 // m below surface at series start
	slopePerYr  float64 // positive means deepening water table
	seasonalAmp float64 // m, annual cycle amplitude
	noiseStd    float64 // m
	months      int
	gapEvery    int // drop every Nth observation, 0 for none
}

func specs() []wellSpec {
	return []wellSpec{
		{
			well: domain.Well{
				WellID: "05410007-6", Name: "Pozo La Serena Norte",
				Region: "Coquimbo", Comuna: "La Serena", SHAC: "Elqui Bajo", Cuenca: "Elqui",
				Latitude: -29.9027, Longitude: -71.2520,
			},
			startLevel: 12.5, slopePerYr: 0.45, seasonalAmp: 0.6, noiseStd: 0.08,
			months: 120,
		},
		{
			well: domain.Well{
				WellID: "05410012-2", Name: "Pozo Vicuna",
				Region: "Coquimbo", Comuna: "Vicuna", SHAC: "Elqui Medio", Cuenca: "Elqui",
				Latitude: -30.0319, Longitude: -70.7081,
			},
			startLevel: 22.0, slopePerYr: 0.80, seasonalAmp: 0.4, noiseStd: 0.12,
			months: 96, gapEvery: 17,
		},
		{
			well: domain.Well{
				WellID: "04520003-1", Name: "Pozo Ovalle Oriente",
				Region: "Coquimbo", Comuna: "Ovalle", SHAC: "Limari Alto", Cuenca: "Limari",
				Latitude: -30.6011, Longitude: -71.1994,
			},
			startLevel: 8.3, slopePerYr: 0.02, seasonalAmp: 0.9, noiseStd: 0.15,
			months: 84,
		},
		{
			well: domain.Well{
				WellID: "05710021-8", Name: "Pozo Quillota",
				Region: "Valparaiso", Comuna: "Quillota", SHAC: "Aconcagua Bajo", Cuenca: "Aconcagua",
				Latitude: -32.8794, Longitude: -71.2489,
			},
			startLevel: 15.7, slopePerYr: 0.30, seasonalAmp: 0.5, noiseStd: 0.10,
			months: 108, gapEvery: 23,
		},
		{
			well: domain.Well{
				WellID: "05710034-K", Name: "Pozo San Felipe",
				Region: "Valparaiso", Comuna: "San Felipe", SHAC: "Aconcagua Medio", Cuenca: "Aconcagua",
				Latitude: -32.7508, Longitude: -70.7253,
			},
			startLevel: 31.2, slopePerYr: -0.15, seasonalAmp: 0.3, noiseStd: 0.09,
			months: 72,
		},
		{
			well: domain.Well{
				WellID: "13110002-5", Name: "Pozo Maipo Central",
				Region: "Metropolitana", Comuna: "Buin", SHAC: "Maipo Alto", Cuenca: "Maipo",
				Latitude: -33.7325, Longitude: -70.7428,
			},
			startLevel: 45.0, slopePerYr: 1.20, seasonalAmp: 0.7, noiseStd: 0.20,
			months: 144,
		},
		// Too short to pass validation. Exercises the exclusion path.
		{
			well: domain.Well{
				WellID: "13110019-X", Name: "Pozo Talagante",
				Region: "Metropolitana", Comuna: "Talagante", SHAC: "Maipo Bajo", Cuenca: "Maipo",
				Latitude: -33.6639, Longitude: -70.9275,
			},
			startLevel: 18.0, slopePerYr: 0.5, seasonalAmp: 0.4, noiseStd: 0.10,
			months: 9,
		},
	}
}

// Load populates the well and observation stores with the synthetic
// network. Series end at the month before asOf so analysis sees recent
// data regardless of when the demo runs.
func Load(ctx context.Context, wells storage.WellStore, observations storage.ObservationStore, asOf time.Time) error {
	rng := rand.New(rand.NewSource(Seed))
	end := time.Date(asOf.Year(), asOf.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -1, 0)

	for _, spec := range specs() {
		w := spec.well
		if err := wells.Insert(ctx, &w); err != nil {
			return err
		}

		series := synthesize(rng, spec, end)
		if err := observations.InsertBulk(ctx, series); err != nil {
			return err
		}
	}
	return nil
}

// synthesize builds a monthly series ending at end: linear trend plus an
// annual sine cycle plus Gaussian noise, with optional periodic gaps.
func synthesize(rng *rand.Rand, spec wellSpec, end time.Time) []*domain.RawObservation {
	start := end.AddDate(0, -(spec.months - 1), 0)

	obs := make([]*domain.RawObservation, 0, spec.months)
	for i := 0; i < spec.months; i++ {
		if spec.gapEvery > 0 && i%spec.gapEvery == spec.gapEvery-1 {
			continue
		}
		ts := start.AddDate(0, i, 0)
		years := float64(i) / 12.0
		phase := 2 * math.Pi * float64(i%12) / 12.0
		level := spec.startLevel +
			spec.slopePerYr*years +
			spec.seasonalAmp*math.Sin(phase) +
			rng.NormFloat64()*spec.noiseStd

		obs = append(obs, &domain.RawObservation{
			WellID:    spec.well.WellID,
			Timestamp: ts,
			Level:     level,
			Unit:      "m",
		})
	}
	return obs
}
