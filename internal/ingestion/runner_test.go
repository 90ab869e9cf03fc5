package ingestion

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"groundwater-lab/internal/domain"
	"groundwater-lab/internal/storage/memory"
)

type stubSource struct {
	obs []*domain.RawObservation
}

func (s *stubSource) Subscribe(ctx context.Context) (<-chan *domain.RawObservation, error) {
	ch := make(chan *domain.RawObservation, len(s.obs))
	for _, o := range s.obs {
		ch <- o
	}
	close(ch)
	return ch, nil
}

func (s *stubSource) Fetch(ctx context.Context) ([]*domain.RawObservation, error) {
	return s.obs, nil
}

func testObservations() []*domain.RawObservation {
	base := time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC)
	return []*domain.RawObservation{
		{WellID: "W-1", Timestamp: base, Level: 12.5, Unit: "m"},
		{WellID: "W-1", Timestamp: base.AddDate(0, 1, 0), Level: 12.6, Unit: "m"},
		{WellID: "W-1", Timestamp: base, Level: 12.5, Unit: "m"}, // duplicate
		{WellID: "", Timestamp: base, Level: 1, Unit: "m"},      // invalid
		{WellID: "W-2", Timestamp: base, Level: 7.1, Unit: "m"},
	}
}

func TestRunnerConsume(t *testing.T) {
	store := memory.NewObservationStore()
	runner := NewRunner(store)

	stats, err := runner.Consume(context.Background(), &stubSource{obs: testObservations()})
	if err != nil {
		t.Fatalf("Consume: %v", err)
	}

	if stats.Received != 5 {
		t.Errorf("Received = %d, want 5", stats.Received)
	}
	if stats.Inserted != 3 {
		t.Errorf("Inserted = %d, want 3", stats.Inserted)
	}
	if stats.Duplicates != 1 {
		t.Errorf("Duplicates = %d, want 1", stats.Duplicates)
	}
	if stats.Rejected != 1 {
		t.Errorf("Rejected = %d, want 1", stats.Rejected)
	}

	got, err := store.GetByWellID(context.Background(), "W-1")
	if err != nil {
		t.Fatalf("GetByWellID: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("W-1 has %d observations, want 2", len(got))
	}
}

// openSource delivers pre-buffered observations but never closes the
// channel, so only cancellation ends the run.
type openSource struct {
	ch chan *domain.RawObservation
}

func (s *openSource) Subscribe(ctx context.Context) (<-chan *domain.RawObservation, error) {
	return s.ch, nil
}

// cancelAwareStore fails inserts under a cancelled context, the way a
// database-backed store would.
type cancelAwareStore struct {
	*memory.ObservationStore
}

func (s *cancelAwareStore) Insert(ctx context.Context, o *domain.RawObservation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.ObservationStore.Insert(ctx, o)
}

func TestRunnerConsumeCommitsTailOnCancel(t *testing.T) {
	store := &cancelAwareStore{ObservationStore: memory.NewObservationStore()}
	runner := NewRunner(store)

	base := time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC)
	source := &openSource{ch: make(chan *domain.RawObservation, 3)}
	for i := 0; i < 3; i++ {
		source.ch <- &domain.RawObservation{
			WellID:    "W-1",
			Timestamp: base.AddDate(0, i, 0),
			Level:     12.5 + float64(i),
			Unit:      "m",
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	type outcome struct {
		stats *Stats
		err   error
	}
	done := make(chan outcome, 1)
	go func() {
		stats, err := runner.Consume(ctx, source)
		done <- outcome{stats, err}
	}()

	// Let the runner drain the channel into its buffer, then cancel
	// before any flush fires.
	time.Sleep(50 * time.Millisecond)
	cancel()

	res := <-done
	if res.err != nil {
		t.Fatalf("Consume: %v", res.err)
	}
	if res.stats.Inserted != 3 {
		t.Errorf("Inserted = %d, want 3", res.stats.Inserted)
	}
	if res.stats.Rejected != 0 {
		t.Errorf("Rejected = %d, want 0", res.stats.Rejected)
	}

	got, err := store.GetByWellID(context.Background(), "W-1")
	if err != nil {
		t.Fatalf("GetByWellID: %v", err)
	}
	if len(got) != 3 {
		t.Errorf("stored %d observations, want 3", len(got))
	}
}

func TestRunnerBackfill(t *testing.T) {
	store := memory.NewObservationStore()
	runner := NewRunner(store)

	stats, err := runner.Backfill(context.Background(), &stubSource{obs: testObservations()})
	if err != nil {
		t.Fatalf("Backfill: %v", err)
	}
	if stats.Inserted != 3 || stats.Duplicates != 1 || stats.Rejected != 1 {
		t.Errorf("stats = %+v, want 3 inserted, 1 duplicate, 1 rejected", stats)
	}
}

func TestCSVSourceFetch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "export.csv")
	content := "station_id,timestamp,level_m,unit\n" +
		"W-1,2024-05-01,12.5,m\n" +
		"W-1,2024-06-01 00:00:00,12.6,m\n" +
		"W-2,2024-05-01T12:30:00Z,7.1,\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	obs, err := NewCSVSource(path).Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(obs) != 3 {
		t.Fatalf("got %d observations, want 3", len(obs))
	}
	if obs[0].WellID != "W-1" || obs[0].Level != 12.5 {
		t.Errorf("first row = %+v", obs[0])
	}
	if obs[2].Unit != "m" {
		t.Errorf("empty unit not defaulted: %q", obs[2].Unit)
	}
	if obs[2].Timestamp.Hour() != 12 {
		t.Errorf("RFC3339 timestamp parsed wrong: %s", obs[2].Timestamp)
	}
}

func TestCSVSourceRejectsMalformedRow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.csv")
	content := "station_id,timestamp,level_m,unit\n" +
		"W-1,not-a-date,12.5,m\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	if _, err := NewCSVSource(path).Fetch(context.Background()); err == nil {
		t.Fatal("expected error for malformed timestamp")
	}
}

func TestParseFrame(t *testing.T) {
	obs, err := parseFrame([]byte(`{"station_id":"W-9","timestamp":"2024-05-01T10:00:00Z","level_m":14.2,"unit":"m"}`))
	if err != nil {
		t.Fatalf("parseFrame: %v", err)
	}
	if obs.WellID != "W-9" || obs.Level != 14.2 {
		t.Errorf("frame = %+v", obs)
	}

	if _, err := parseFrame([]byte(`{"timestamp":"2024-05-01T10:00:00Z"}`)); err == nil {
		t.Error("expected error for missing station_id")
	}
	if _, err := parseFrame([]byte(`not json`)); err == nil {
		t.Error("expected error for malformed JSON")
	}
}
