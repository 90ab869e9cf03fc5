package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"groundwater-lab/internal/domain"
	"groundwater-lab/internal/storage"
)

func TestWellStore_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewWellStore(pool)

	wells := []*domain.Well{
		{WellID: "W-0002", Name: "Pozo Ovalle 2", Region: "Coquimbo", Comuna: "Ovalle", SHAC: "Limari Medio", Cuenca: "Limari", Latitude: -30.6011, Longitude: -71.1989},
		{WellID: "W-0001", Name: "Pozo La Serena 1", Region: "Coquimbo", Comuna: "La Serena", SHAC: "Elqui Bajo", Cuenca: "Elqui", Latitude: -29.9045, Longitude: -71.2489},
		{WellID: "W-0003", Name: "Pozo Quillota 1", Region: "Valparaiso", Comuna: "Quillota", SHAC: "Aconcagua Bajo", Cuenca: "Aconcagua", Latitude: -32.8797, Longitude: -71.2478},
	}
	for _, w := range wells {
		require.NoError(t, store.Insert(ctx, w))
	}

	// Duplicate rejected
	err := store.Insert(ctx, wells[0])
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	// Round trip
	got, err := store.GetByID(ctx, "W-0001")
	require.NoError(t, err)
	assert.Equal(t, "Elqui", got.Cuenca)
	assert.InDelta(t, -29.9045, got.Latitude, 1e-9)

	// Region filter, ordered
	coquimbo, err := store.GetByRegion(ctx, "Coquimbo")
	require.NoError(t, err)
	require.Len(t, coquimbo, 2)
	assert.Equal(t, "W-0001", coquimbo[0].WellID)
	assert.Equal(t, "W-0002", coquimbo[1].WellID)

	// Missing well
	_, err = store.GetByID(ctx, "W-9999")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestWellRecordStore_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewWellRecordStore(pool)

	// Reads join the registry, so the wells must exist first.
	wellStore := NewWellStore(pool)
	require.NoError(t, wellStore.Insert(ctx, &domain.Well{
		WellID: "W-0001", Name: "Pozo La Serena 1", Region: "Coquimbo",
		Comuna: "La Serena", SHAC: "Elqui Bajo", Cuenca: "Elqui",
	}))
	require.NoError(t, wellStore.Insert(ctx, &domain.Well{
		WellID: "W-0002", Name: "Pozo Ovalle 2", Region: "Coquimbo",
		Comuna: "Ovalle", SHAC: "Limari Medio", Cuenca: "Limari",
	}))

	analyzedAt := time.Date(2026, time.August, 1, 12, 0, 0, 0, time.UTC)
	valid := &domain.WellRecord{
		Well: domain.Well{WellID: "W-0001"},
		Summary: domain.SeriesSummary{
			ObservationCount: 120,
			FirstTimestamp:   time.Date(2015, time.January, 1, 0, 0, 0, 0, time.UTC),
			LastTimestamp:    time.Date(2025, time.December, 1, 0, 0, 0, 0, time.UTC),
			CurrentLevel:     18.4,
			MeanLevel:        15.2,
			MinLevel:         11.9,
			MaxLevel:         18.4,
			FlaggedGaps:      1,
		},
		Trend: &domain.TrendResult{
			WellID:     "W-0001",
			SStatistic: 4120,
			Variance:   196714.6,
			ZScore:     9.28,
			PValue:     1.7e-20,
			Direction:  domain.TrendIncreasing,
			SenSlope:   0.42,
			Confidence: 1,
		},
		Ensemble:   &domain.EnsembleResult{WellID: "W-0001"},
		AnalyzedAt: analyzedAt,
	}
	invalid := &domain.WellRecord{
		Well:          domain.Well{WellID: "W-0002"},
		Invalid:       true,
		InvalidReason: "insufficient observations: 7 < 24",
		Summary:       domain.SeriesSummary{ObservationCount: 7},
		AnalyzedAt:    analyzedAt,
	}

	require.NoError(t, store.Insert(ctx, valid))
	require.NoError(t, store.Insert(ctx, invalid))
	assert.ErrorIs(t, store.Insert(ctx, valid), storage.ErrDuplicateKey)

	got, err := store.GetByWellID(ctx, "W-0001")
	require.NoError(t, err)
	require.NotNil(t, got.Trend)
	assert.Equal(t, domain.TrendIncreasing, got.Trend.Direction)
	assert.InDelta(t, 0.42, got.Trend.SenSlope, 1e-9)
	assert.Equal(t, int64(4120), got.Trend.SStatistic)
	assert.True(t, got.AnalyzedAt.Equal(analyzedAt))

	// Grouping attributes come back from the registry join
	assert.Equal(t, "Coquimbo", got.Well.Region)
	assert.Equal(t, "Elqui", got.Well.Cuenca)
	assert.Equal(t, "Elqui Bajo", got.Well.SHAC)
	assert.Equal(t, "La Serena", got.Well.Comuna)

	validRecords, err := store.GetValid(ctx)
	require.NoError(t, err)
	require.Len(t, validRecords, 1)
	assert.Equal(t, "W-0001", validRecords[0].Well.WellID)

	all, err := store.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Limari", all[1].Well.Cuenca)
	assert.True(t, all[1].Invalid)
	assert.Nil(t, all[1].Trend)

	// Upsert replaces the existing record in place
	valid.Trend.SenSlope = 0.55
	valid.Summary.CurrentLevel = 19.1
	require.NoError(t, store.Upsert(ctx, valid))

	refreshed, err := store.GetByWellID(ctx, "W-0001")
	require.NoError(t, err)
	assert.InDelta(t, 0.55, refreshed.Trend.SenSlope, 1e-9)
	assert.InDelta(t, 19.1, refreshed.Summary.CurrentLevel, 1e-9)

	all, err = store.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestObservationStore_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewObservationStore(pool)

	base := time.Date(2020, time.March, 1, 0, 0, 0, 0, time.UTC)
	batch := make([]*domain.RawObservation, 0, 6)
	for i := 0; i < 6; i++ {
		batch = append(batch, &domain.RawObservation{
			WellID:    "W-0001",
			Timestamp: base.AddDate(0, i, 0),
			Level:     12.5 + 0.1*float64(i),
			Unit:      "m",
		})
	}
	require.NoError(t, store.InsertBulk(ctx, batch))

	// Re-inserting the same batch must fail and leave counts unchanged
	err := store.InsertBulk(ctx, batch)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	got, err := store.GetByWellID(ctx, "W-0001")
	require.NoError(t, err)
	require.Len(t, got, 6)
	for i := 1; i < len(got); i++ {
		assert.True(t, got[i-1].Timestamp.Before(got[i].Timestamp))
	}

	ranged, err := store.GetByTimeRange(ctx, "W-0001", base.AddDate(0, 1, 0), base.AddDate(0, 3, 0))
	require.NoError(t, err)
	assert.Len(t, ranged, 3)
}
