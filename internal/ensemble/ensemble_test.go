package ensemble

import (
	"context"
	"fmt"
	"testing"
	"time"

	"groundwater-lab/internal/domain"
	"groundwater-lab/internal/model"
)

type stubModel struct {
	name  string
	level float64
	width float64
	err   error
	delay time.Duration
}

func (s *stubModel) Name() string { return s.name }

func (s *stubModel) FitAndPredict(ctx context.Context, series *domain.CleanedSeries, horizon []time.Time) (*domain.ForecastResult, error) {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.err != nil {
		return nil, s.err
	}
	predicted := make([]float64, len(horizon))
	lower := make([]float64, len(horizon))
	upper := make([]float64, len(horizon))
	for i := range horizon {
		predicted[i] = s.level
		lower[i] = s.level - s.width
		upper[i] = s.level + s.width
	}
	return &domain.ForecastResult{
		WellID:    series.WellID,
		ModelName: s.name,
		Horizon:   horizon,
		Predicted: predicted,
		Lower:     lower,
		Upper:     upper,
	}, nil
}

func testSeries() *domain.CleanedSeries {
	return &domain.CleanedSeries{WellID: "W-1"}
}

func testHorizon(n int) []time.Time {
	start := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	horizon := make([]time.Time, n)
	for i := range horizon {
		horizon[i] = start.AddDate(0, i, 0)
	}
	return horizon
}

func TestForecastCombinesWithinModelRange(t *testing.T) {
	models := []model.Model{
		&stubModel{name: "A", level: 10, width: 1},
		&stubModel{name: "B", level: 14, width: 2},
		&stubModel{name: "C", level: 12, width: 1},
	}

	result, err := Forecast(context.Background(), testSeries(), testHorizon(6), models, nil, 0)
	if err != nil {
		t.Fatalf("Forecast: %v", err)
	}
	if result.Failed {
		t.Fatal("result marked failed with all models succeeding")
	}
	for i, c := range result.Combined {
		if c < 10 || c > 14 {
			t.Fatalf("combined[%d] = %.3f, outside per-model range [10, 14]", i, c)
		}
		if result.Lower[i] != 9 || result.Upper[i] != 16 {
			t.Fatalf("interval[%d] = [%.1f, %.1f], want union [9, 16]", i, result.Lower[i], result.Upper[i])
		}
	}
}

func TestForecastRenormalizesAfterFailure(t *testing.T) {
	models := []model.Model{
		&stubModel{name: "A", level: 10, width: 1},
		&stubModel{name: "B", level: 20, width: 1},
		&stubModel{name: "C", err: &model.FitError{ModelName: "C", WellID: "W-1", Reason: "singular system"}},
	}
	weights := map[string]float64{"A": 3, "B": 1, "C": 10}

	result, err := Forecast(context.Background(), testSeries(), testHorizon(3), models, weights, 0)
	if err != nil {
		t.Fatalf("Forecast: %v", err)
	}
	if len(result.Failures) != 1 || result.Failures[0].ModelName != "C" {
		t.Fatalf("failures = %+v, want single failure for C", result.Failures)
	}

	// (3*10 + 1*20) / 4 with C's weight dropped entirely.
	want := 12.5
	if got := result.Combined[0]; got != want {
		t.Errorf("combined[0] = %.3f, want %.3f", got, want)
	}
}

func TestForecastZeroWeightExcludesModel(t *testing.T) {
	models := []model.Model{
		&stubModel{name: "A", level: 10, width: 1},
		&stubModel{name: "B", level: 50, width: 1},
	}
	weights := map[string]float64{"B": 0}

	result, err := Forecast(context.Background(), testSeries(), testHorizon(6), models, weights, 0)
	if err != nil {
		t.Fatalf("Forecast: %v", err)
	}
	if result.Failed {
		t.Fatal("result marked failed with one model remaining")
	}
	if len(result.PerModel) != 1 || result.PerModel[0].ModelName != "A" {
		t.Fatalf("PerModel = %d entries, want only A", len(result.PerModel))
	}
	for i, c := range result.Combined {
		if c != 10 {
			t.Errorf("Combined[%d] = %v, want 10 with B excluded", i, c)
		}
	}
}

func TestForecastAllZeroWeightsFails(t *testing.T) {
	models := []model.Model{
		&stubModel{name: "A", level: 10, width: 1},
	}
	weights := map[string]float64{"A": 0}

	result, err := Forecast(context.Background(), testSeries(), testHorizon(6), models, weights, 0)
	if err != nil {
		t.Fatalf("Forecast: %v", err)
	}
	if !result.Failed {
		t.Fatal("result not marked failed with every model excluded")
	}
}

func TestForecastAllModelsFail(t *testing.T) {
	models := []model.Model{
		&stubModel{name: "A", err: fmt.Errorf("bad fit")},
		&stubModel{name: "B", err: fmt.Errorf("bad fit")},
	}

	result, err := Forecast(context.Background(), testSeries(), testHorizon(3), models, nil, 0)
	if err != nil {
		t.Fatalf("Forecast: %v", err)
	}
	if !result.Failed {
		t.Fatal("result not marked failed")
	}
	if len(result.Failures) != 2 {
		t.Fatalf("got %d failures, want 2", len(result.Failures))
	}
	if len(result.Combined) != 0 {
		t.Fatalf("combined has %d points, want none", len(result.Combined))
	}
}

func TestForecastTimeoutBecomesFailure(t *testing.T) {
	models := []model.Model{
		&stubModel{name: "SLOW", level: 10, width: 1, delay: time.Second},
		&stubModel{name: "FAST", level: 12, width: 1},
	}

	result, err := Forecast(context.Background(), testSeries(), testHorizon(3), models, nil, 20*time.Millisecond)
	if err != nil {
		t.Fatalf("Forecast: %v", err)
	}
	if len(result.Failures) != 1 || result.Failures[0].ModelName != "SLOW" {
		t.Fatalf("failures = %+v, want timeout failure for SLOW", result.Failures)
	}
	if len(result.PerModel) != 1 || result.PerModel[0].ModelName != "FAST" {
		t.Fatalf("survivors = %+v, want FAST only", result.PerModel)
	}
}

func TestForecastAbortsOnCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	models := []model.Model{&stubModel{name: "A", level: 10, width: 1, delay: time.Second}}
	if _, err := Forecast(ctx, testSeries(), testHorizon(3), models, nil, 0); err == nil {
		t.Fatal("expected cancellation error")
	}
}
