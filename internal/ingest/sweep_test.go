package ingest

import (
	"context"
	"testing"
	"time"

	"traintracker/internal/live"
	"traintracker/internal/models"
)

// stubFetcher maps train numbers to canned results; numbers not present
// behave as "no data"
type stubFetcher struct {
	results map[string]*live.Result
	calls   int
}

func (f *stubFetcher) FetchWithRetry(ctx context.Context, trainNo string) (*live.Result, error) {
	f.calls++
	return f.results[trainNo], nil
}

func TestSweepTallies(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, n := range []string{"12002", "12951", "99999"} {
		if err := store.UpsertTrain(ctx, models.Train{Number: n, Name: "Unknown Express"}); err != nil {
			t.Fatalf("UpsertTrain failed: %v", err)
		}
	}
	if err := store.UpsertStation(ctx, models.Station{Code: "BPL", Name: "Bhopal", Lat: 23.26, Lng: 77.41}); err != nil {
		t.Fatalf("UpsertStation failed: %v", err)
	}

	fetcher := &stubFetcher{results: map[string]*live.Result{
		"12002": {
			TrainNo:  "12002",
			Name:     "BHOPAL SHATABDI",
			Schedule: []live.ScheduleStop{{Code: "BPL", Name: "BHOPAL JN", Time: "14:05"}},
		},
		"12951": {
			TrainNo:  "12951",
			Name:     "MUMBAI RAJDHANI",
			Schedule: []live.ScheduleStop{{Code: "BPL", Name: "BHOPAL JN", Time: "02:00"}},
		},
		// 99999 has no live data
	}}

	sweeper := NewSweeper(store, fetcher, time.Millisecond)
	tally, err := sweeper.Run(ctx)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if tally.Processed != 3 || tally.Succeeded != 2 || tally.Failed != 1 {
		t.Errorf("Unexpected tally: %+v", tally)
	}
	if fetcher.calls != 3 {
		t.Errorf("Expected 3 fetches, got %d", fetcher.calls)
	}

	// Names and schedules refreshed for the successful trains
	train, err := store.GetTrain(ctx, "12002")
	if err != nil {
		t.Fatalf("GetTrain failed: %v", err)
	}
	if train.Name != "BHOPAL SHATABDI" {
		t.Errorf("Expected refreshed name, got %s", train.Name)
	}

	route, err := store.GetScheduleJoined(ctx, "12002")
	if err != nil {
		t.Fatalf("GetScheduleJoined failed: %v", err)
	}
	if len(route) != 1 || route[0].Time != "14:05" {
		t.Errorf("Unexpected refreshed schedule: %+v", route)
	}
}

func TestSweepAppliesRequestSpacing(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, n := range []string{"1", "2", "3"} {
		if err := store.UpsertTrain(ctx, models.Train{Number: n, Name: "X"}); err != nil {
			t.Fatalf("UpsertTrain failed: %v", err)
		}
	}

	fetcher := &stubFetcher{}
	delay := 30 * time.Millisecond
	sweeper := NewSweeper(store, fetcher, delay)

	start := time.Now()
	if _, err := sweeper.Run(ctx); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	elapsed := time.Since(start)

	// First request goes immediately; the two following wait the full delay
	if minimum := 2 * delay; elapsed < minimum {
		t.Errorf("Sweep finished in %v, expected at least %v of spacing", elapsed, minimum)
	}
}

func TestSweepCancellation(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, n := range []string{"1", "2", "3", "4", "5"} {
		if err := store.UpsertTrain(ctx, models.Train{Number: n, Name: "X"}); err != nil {
			t.Fatalf("UpsertTrain failed: %v", err)
		}
	}

	cancelCtx, cancel := context.WithCancel(ctx)
	cancel()

	fetcher := &stubFetcher{}
	sweeper := NewSweeper(store, fetcher, time.Hour)

	_, err := sweeper.Run(cancelCtx)
	if err == nil {
		t.Fatal("Expected context error from cancelled sweep")
	}
	// Only the first train is fetched before the delay blocks
	if fetcher.calls > 1 {
		t.Errorf("Expected at most 1 fetch before cancellation, got %d", fetcher.calls)
	}
}
