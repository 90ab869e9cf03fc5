package clickhouse

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"groundwater-lab/internal/domain"
	"groundwater-lab/internal/storage"
)

func TestForecastPointStore_Integration(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewForecastPointStore(conn)

	base := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	var points []*domain.ForecastPoint
	for _, model := range []string{domain.ModelARIMA, domain.ModelEnsemble} {
		for i := 0; i < 12; i++ {
			points = append(points, &domain.ForecastPoint{
				WellID:    "W-0001",
				ModelName: model,
				Timestamp: base.AddDate(0, i, 0),
				Predicted: 15 + 0.04*float64(i),
				Lower:     14 + 0.04*float64(i),
				Upper:     16 + 0.04*float64(i),
			})
		}
	}
	require.NoError(t, store.InsertBulk(ctx, points))

	got, err := store.GetByWellID(ctx, "W-0001")
	require.NoError(t, err)
	require.Len(t, got, 24)

	// Ordered by model then timestamp
	assert.Equal(t, domain.ModelARIMA, got[0].ModelName)
	assert.Equal(t, domain.ModelEnsemble, got[12].ModelName)
	for i := 1; i < 12; i++ {
		assert.True(t, got[i-1].Timestamp.Before(got[i].Timestamp))
	}
	assert.InDelta(t, 15.0, got[0].Predicted, 1e-9)

	// Intra-batch duplicate rejected
	dup := []*domain.ForecastPoint{points[0], points[0]}
	assert.ErrorIs(t, store.InsertBulk(ctx, dup), storage.ErrDuplicateKey)
}

func TestRegionSummaryStore_Integration(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewRegionSummaryStore(conn)

	generatedAt := time.Date(2026, time.August, 1, 0, 0, 0, 0, time.UTC)
	summary := &domain.RegionSummary{
		GroupLevel:         domain.LevelRegion,
		GroupKey:           "Coquimbo",
		WellCount:          20,
		DecliningCount:     19,
		FractionDeclining:  0.95,
		MeanDeclineRate:    0.38,
		ProjectedLevel2030: 21.7,
		ProjectedWellCount: 18,
		ExcludedWells:      2,
		Critical:           true,
		GeneratedAt:        generatedAt,
	}
	require.NoError(t, store.Insert(ctx, summary))
	assert.ErrorIs(t, store.Insert(ctx, summary), storage.ErrDuplicateKey)

	got, err := store.GetByLevel(ctx, domain.LevelRegion)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Coquimbo", got[0].GroupKey)
	assert.Equal(t, 19, got[0].DecliningCount)
	assert.True(t, got[0].Critical)
	assert.InDelta(t, 0.95, got[0].FractionDeclining, 1e-9)
	assert.True(t, got[0].GeneratedAt.Equal(generatedAt))

	// Upsert writes a newer version; FINAL reads keep only that one
	refreshed := *summary
	refreshed.WellCount = 22
	refreshed.GeneratedAt = generatedAt.AddDate(0, 0, 1)
	require.NoError(t, store.Upsert(ctx, &refreshed))

	got, err = store.GetByLevel(ctx, domain.LevelRegion)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 22, got[0].WellCount)
	assert.True(t, got[0].GeneratedAt.Equal(refreshed.GeneratedAt))
}
