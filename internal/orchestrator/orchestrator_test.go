// Package orchestrator provides E2E pipeline orchestration tests.
package orchestrator

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"groundwater-lab/internal/domain"
	"groundwater-lab/internal/storage/memory"
)

type testStores struct {
	wellStore          *memory.WellStore
	observationStore   *memory.ObservationStore
	wellRecordStore    *memory.WellRecordStore
	forecastPointStore *memory.ForecastPointStore
	regionSummaryStore *memory.RegionSummaryStore
}

func createTestStores() *testStores {
	return &testStores{
		wellStore:          memory.NewWellStore(),
		observationStore:   memory.NewObservationStore(),
		wellRecordStore:    memory.NewWellRecordStore(),
		forecastPointStore: memory.NewForecastPointStore(),
		regionSummaryStore: memory.NewRegionSummaryStore(),
	}
}

func newOrchestrator(stores *testStores, region string) *Orchestrator {
	return New(Options{
		WellStore:          stores.wellStore,
		ObservationStore:   stores.observationStore,
		WellRecordStore:    stores.wellRecordStore,
		ForecastPointStore: stores.forecastPointStore,
		RegionSummaryStore: stores.regionSummaryStore,
		Config:             domain.DefaultAnalysisConfig(),
		Region:             region,
	})
}

// seedWell registers a well with a deepening monthly series.
func seedWell(t *testing.T, stores *testStores, well *domain.Well, months int) {
	t.Helper()
	ctx := context.Background()

	if err := stores.wellStore.Insert(ctx, well); err != nil {
		t.Fatalf("insert well: %v", err)
	}

	rng := rand.New(rand.NewSource(42))
	start := time.Date(2019, time.January, 15, 0, 0, 0, 0, time.UTC)
	for i := 0; i < months; i++ {
		obs := &domain.RawObservation{
			WellID:    well.WellID,
			Timestamp: start.AddDate(0, i, 0),
			Level:     12 + 0.03*float64(i) + 0.05*rng.NormFloat64(),
			Unit:      "m",
		}
		if err := stores.observationStore.Insert(ctx, obs); err != nil {
			t.Fatalf("insert observation: %v", err)
		}
	}
}

func TestOrchestrator_Run_EmptyWells(t *testing.T) {
	ctx := context.Background()
	stores := createTestStores()

	result, err := newOrchestrator(stores, "").Run(ctx)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if result.WellsProcessed != 0 {
		t.Errorf("expected 0 wells, got %d", result.WellsProcessed)
	}
	if result.SummariesCreated != 0 {
		t.Errorf("expected 0 summaries, got %d", result.SummariesCreated)
	}
}

func TestOrchestrator_Run_FullPipeline(t *testing.T) {
	ctx := context.Background()
	stores := createTestStores()

	seedWell(t, stores, &domain.Well{
		WellID: "W-0001", Region: "Coquimbo", Cuenca: "Elqui", SHAC: "Elqui Bajo", Comuna: "La Serena",
	}, 72)
	seedWell(t, stores, &domain.Well{
		WellID: "W-0002", Region: "Coquimbo", Cuenca: "Elqui", SHAC: "Elqui Bajo", Comuna: "Vicuna",
	}, 60)
	// Too short, yields an invalid record
	seedWell(t, stores, &domain.Well{
		WellID: "W-0003", Region: "Coquimbo", Cuenca: "Limari", SHAC: "Limari Medio", Comuna: "Ovalle",
	}, 5)

	result, err := newOrchestrator(stores, "").Run(ctx)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if result.WellsProcessed != 3 {
		t.Errorf("WellsProcessed = %d, want 3", result.WellsProcessed)
	}
	if result.WellsInvalid != 1 {
		t.Errorf("WellsInvalid = %d, want 1", result.WellsInvalid)
	}
	if result.RecordsCreated != 3 {
		t.Errorf("RecordsCreated = %d, want 3", result.RecordsCreated)
	}
	if len(result.Errors) != 0 {
		t.Errorf("unexpected errors: %v", result.Errors)
	}

	// Region, cuenca, SHAC and comuna summaries for the valid wells:
	// 1 region + 1 cuenca + 1 shac + 2 comunas (Limari group has no valid wells)
	if result.SummariesCreated != 5 {
		t.Errorf("SummariesCreated = %d, want 5", result.SummariesCreated)
	}

	summaries, err := stores.regionSummaryStore.GetByLevel(ctx, domain.LevelRegion)
	if err != nil {
		t.Fatalf("GetByLevel: %v", err)
	}
	if len(summaries) != 1 {
		t.Fatalf("got %d region summaries, want 1", len(summaries))
	}
	if summaries[0].WellCount != 2 {
		t.Errorf("region WellCount = %d, want 2 valid wells", summaries[0].WellCount)
	}

	// Forecast points persisted for valid wells
	points, err := stores.forecastPointStore.GetByWellID(ctx, "W-0001")
	if err != nil {
		t.Fatalf("forecast points: %v", err)
	}
	if len(points) == 0 {
		t.Error("no forecast points persisted for W-0001")
	}
}

func TestOrchestrator_Run_Rerun(t *testing.T) {
	ctx := context.Background()
	stores := createTestStores()

	seedWell(t, stores, &domain.Well{WellID: "W-0001", Region: "Coquimbo", Cuenca: "Elqui"}, 72)

	orch := newOrchestrator(stores, "")
	if _, err := orch.Run(ctx); err != nil {
		t.Fatalf("first run: %v", err)
	}

	result, err := orch.Run(ctx)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if result.RecordsCreated != 0 {
		t.Errorf("rerun created %d records, want 0", result.RecordsCreated)
	}
	if result.SummariesCreated != 0 {
		t.Errorf("rerun created %d summaries, want 0", result.SummariesCreated)
	}
	if len(result.Errors) != 0 {
		t.Errorf("rerun errors: %v", result.Errors)
	}
}

// scalarRecordStore strips forecast series on reads the way the SQL
// record store does: only the ensemble outcome flag survives.
type scalarRecordStore struct {
	*memory.WellRecordStore
}

func (s *scalarRecordStore) GetAll(ctx context.Context) ([]*domain.WellRecord, error) {
	records, err := s.WellRecordStore.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	for _, r := range records {
		if r.Ensemble != nil {
			r.Ensemble = &domain.EnsembleResult{WellID: r.Well.WellID, Failed: r.Ensemble.Failed}
		}
	}
	return records, nil
}

func TestOrchestrator_Run_ScalarRecordsKeepProjections(t *testing.T) {
	ctx := context.Background()
	stores := createTestStores()

	seedWell(t, stores, &domain.Well{
		WellID: "W-0001", Region: "Coquimbo", Cuenca: "Elqui", SHAC: "Elqui Bajo", Comuna: "La Serena",
	}, 72)
	seedWell(t, stores, &domain.Well{
		WellID: "W-0002", Region: "Coquimbo", Cuenca: "Elqui", SHAC: "Elqui Bajo", Comuna: "Vicuna",
	}, 60)

	orch := New(Options{
		WellStore:          stores.wellStore,
		ObservationStore:   stores.observationStore,
		WellRecordStore:    &scalarRecordStore{stores.wellRecordStore},
		ForecastPointStore: stores.forecastPointStore,
		RegionSummaryStore: stores.regionSummaryStore,
		Config:             domain.DefaultAnalysisConfig(),
	})
	if _, err := orch.Run(ctx); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	summaries, err := stores.regionSummaryStore.GetByLevel(ctx, domain.LevelRegion)
	if err != nil {
		t.Fatalf("GetByLevel: %v", err)
	}
	if len(summaries) != 1 {
		t.Fatalf("got %d region summaries, want 1", len(summaries))
	}

	s := summaries[0]
	if s.ProjectedWellCount != 2 {
		t.Errorf("ProjectedWellCount = %d, want 2", s.ProjectedWellCount)
	}
	if s.ProjectedLevel2030 == 0 {
		t.Error("ProjectedLevel2030 = 0, want the aggregated 2030 level")
	}
	if s.ExcludedWells != 0 {
		t.Errorf("ExcludedWells = %d, want 0", s.ExcludedWells)
	}
}

func TestOrchestrator_Run_RefreshRecomputes(t *testing.T) {
	ctx := context.Background()
	stores := createTestStores()

	well := &domain.Well{WellID: "W-0001", Region: "Coquimbo", Cuenca: "Elqui", SHAC: "Elqui Bajo", Comuna: "La Serena"}
	seedWell(t, stores, well, 72)

	if _, err := newOrchestrator(stores, "").Run(ctx); err != nil {
		t.Fatalf("first run: %v", err)
	}
	before, err := stores.wellRecordStore.GetByWellID(ctx, "W-0001")
	if err != nil {
		t.Fatalf("load first record: %v", err)
	}

	// The feed keeps filling the series after the first run
	start := time.Date(2019, time.January, 15, 0, 0, 0, 0, time.UTC)
	for i := 72; i < 84; i++ {
		obs := &domain.RawObservation{
			WellID:    well.WellID,
			Timestamp: start.AddDate(0, i, 0),
			Level:     12 + 0.03*float64(i),
			Unit:      "m",
		}
		if err := stores.observationStore.Insert(ctx, obs); err != nil {
			t.Fatalf("insert observation: %v", err)
		}
	}

	refresh := New(Options{
		WellStore:          stores.wellStore,
		ObservationStore:   stores.observationStore,
		WellRecordStore:    stores.wellRecordStore,
		ForecastPointStore: stores.forecastPointStore,
		RegionSummaryStore: stores.regionSummaryStore,
		Config:             domain.DefaultAnalysisConfig(),
		Refresh:            true,
	})
	result, err := refresh.Run(ctx)
	if err != nil {
		t.Fatalf("refresh run: %v", err)
	}

	if result.RecordsCreated != 1 {
		t.Errorf("refresh created %d records, want 1", result.RecordsCreated)
	}
	if result.SummariesCreated != 4 {
		t.Errorf("refresh created %d summaries, want 4", result.SummariesCreated)
	}
	if len(result.Errors) != 0 {
		t.Errorf("refresh errors: %v", result.Errors)
	}

	after, err := stores.wellRecordStore.GetByWellID(ctx, "W-0001")
	if err != nil {
		t.Fatalf("load refreshed record: %v", err)
	}
	if !after.Summary.LastTimestamp.After(before.Summary.LastTimestamp) {
		t.Errorf("refreshed record still ends %s, want past %s",
			after.Summary.LastTimestamp, before.Summary.LastTimestamp)
	}
}

func TestOrchestrator_Run_RegionFilter(t *testing.T) {
	ctx := context.Background()
	stores := createTestStores()

	seedWell(t, stores, &domain.Well{WellID: "W-0001", Region: "Coquimbo", Cuenca: "Elqui"}, 72)
	seedWell(t, stores, &domain.Well{WellID: "W-0002", Region: "Valparaiso", Cuenca: "Aconcagua"}, 72)

	result, err := newOrchestrator(stores, "Coquimbo").Run(ctx)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.WellsProcessed != 1 {
		t.Errorf("WellsProcessed = %d, want 1 with region filter", result.WellsProcessed)
	}
}
