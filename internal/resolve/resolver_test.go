package resolve

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"traintracker/internal/db"
	"traintracker/internal/live"
	"traintracker/internal/models"
)

// stubFetcher returns a canned live result and counts invocations
type stubFetcher struct {
	result *live.Result
	calls  int
}

func (f *stubFetcher) Fetch(ctx context.Context, trainNo string) (*live.Result, error) {
	f.calls++
	return f.result, nil
}

func newTestStore(t *testing.T) *db.SQLiteStore {
	t.Helper()

	store, err := db.OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to open test store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	if err := store.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("Failed to ensure schema: %v", err)
	}
	return store
}

func seedLocalTrain(t *testing.T, store *db.SQLiteStore) {
	t.Helper()
	ctx := context.Background()

	stations := []models.Station{
		{Code: "NDLS", Name: "New Delhi", Lat: 28.64, Lng: 77.22},
		{Code: "BPL", Name: "Bhopal", Lat: 23.26, Lng: 77.41},
	}
	if err := store.UpsertStations(ctx, stations); err != nil {
		t.Fatalf("UpsertStations failed: %v", err)
	}
	if err := store.UpsertTrain(ctx, models.Train{Number: "12002", Name: "BHOPAL SHATABDI"}); err != nil {
		t.Fatalf("UpsertTrain failed: %v", err)
	}
	if err := store.ReplaceSchedule(ctx, "12002", []models.Stop{
		{Code: "NDLS", Name: "New Delhi", Time: "06:00"},
		{Code: "BPL", Name: "Bhopal", Time: "14:05"},
	}); err != nil {
		t.Fatalf("ReplaceSchedule failed: %v", err)
	}
}

func TestResolveLocalHit(t *testing.T) {
	store := newTestStore(t)
	seedLocalTrain(t, store)
	fetcher := &stubFetcher{}
	resolver := New(store, fetcher)

	itinerary, err := resolver.Resolve(context.Background(), "12002")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	if itinerary.Source != models.SourceLocal {
		t.Errorf("Expected source local, got %s", itinerary.Source)
	}
	if itinerary.Name != "BHOPAL SHATABDI" {
		t.Errorf("Unexpected name: %s", itinerary.Name)
	}
	if len(itinerary.Route) != 2 {
		t.Fatalf("Expected 2 stops, got %d", len(itinerary.Route))
	}
	if itinerary.Route[0].Code != "NDLS" || itinerary.Route[0].Time != "06:00" {
		t.Errorf("Unexpected first stop: %+v", itinerary.Route[0])
	}
	if itinerary.Route[1].Code != "BPL" || itinerary.Route[1].Time != "14:05" {
		t.Errorf("Unexpected second stop: %+v", itinerary.Route[1])
	}
	if fetcher.calls != 0 {
		t.Errorf("Local hit should not touch the live source, got %d calls", fetcher.calls)
	}
}

func TestResolveUnknownTrain(t *testing.T) {
	store := newTestStore(t)
	fetcher := &stubFetcher{result: nil}
	resolver := New(store, fetcher)

	_, err := resolver.Resolve(context.Background(), "99999")
	if !errors.Is(err, ErrTrainNotFound) {
		t.Fatalf("Expected ErrTrainNotFound, got %v", err)
	}
	if fetcher.calls != 1 {
		t.Errorf("Expected exactly one live fetch, got %d", fetcher.calls)
	}
}

func TestResolveLiveFallbackThenCache(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.UpsertStation(ctx, models.Station{Code: "NDLS", Name: "New Delhi", Lat: 28.64, Lng: 77.22}); err != nil {
		t.Fatalf("UpsertStation failed: %v", err)
	}

	fetcher := &stubFetcher{result: &live.Result{
		TrainNo: "99999",
		Name:    "TEST EXPRESS",
		Schedule: []live.ScheduleStop{
			{Code: "NDLS", Name: "NEW DELHI", Time: "10:00"},
		},
	}}
	resolver := New(store, fetcher)

	first, err := resolver.Resolve(ctx, "99999")
	if err != nil {
		t.Fatalf("First resolve failed: %v", err)
	}
	if first.Source != models.SourceLive {
		t.Errorf("Expected source live, got %s", first.Source)
	}
	if len(first.Route) != 1 || first.Route[0].Code != "NDLS" {
		t.Errorf("Unexpected route: %+v", first.Route)
	}

	// The live result must now be cached locally
	second, err := resolver.Resolve(ctx, "99999")
	if err != nil {
		t.Fatalf("Second resolve failed: %v", err)
	}
	if second.Source != models.SourceLocal {
		t.Errorf("Expected source local on second resolve, got %s", second.Source)
	}
	if second.Name != "TEST EXPRESS" {
		t.Errorf("Expected live name to be persisted, got %s", second.Name)
	}
	if len(second.Route) != 1 || second.Route[0].Time != "10:00" {
		t.Errorf("Unexpected cached route: %+v", second.Route)
	}
	if fetcher.calls != 1 {
		t.Errorf("Expected one live fetch across both resolves, got %d", fetcher.calls)
	}
}

func TestResolveUnplottableThenRecover(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	fetcher := &stubFetcher{result: &live.Result{
		TrainNo: "88888",
		Name:    "GHOST EXPRESS",
		Schedule: []live.ScheduleStop{
			{Code: "XYZ1", Name: "NOWHERE", Time: "01:00"},
			{Code: "XYZ2", Name: "ELSEWHERE", Time: "02:00"},
		},
	}}
	resolver := New(store, fetcher)

	_, err := resolver.Resolve(ctx, "88888")
	if !errors.Is(err, ErrNoCoordinates) {
		t.Fatalf("Expected ErrNoCoordinates, got %v", err)
	}

	// Raw stops must still be persisted so the route is recoverable
	train, err := store.GetTrain(ctx, "88888")
	if err != nil {
		t.Fatalf("GetTrain failed: %v", err)
	}
	if train == nil || train.Name != "GHOST EXPRESS" {
		t.Errorf("Expected train persisted despite unplottable route, got %+v", train)
	}

	// Enriching the station store recovers the dropped stop locally
	if err := store.UpsertStation(ctx, models.Station{Code: "XYZ1", Name: "Nowhere", Lat: 1, Lng: 2}); err != nil {
		t.Fatalf("UpsertStation failed: %v", err)
	}

	itinerary, err := resolver.Resolve(ctx, "88888")
	if err != nil {
		t.Fatalf("Resolve after enrichment failed: %v", err)
	}
	if itinerary.Source != models.SourceLocal {
		t.Errorf("Expected source local after enrichment, got %s", itinerary.Source)
	}
	if len(itinerary.Route) != 1 || itinerary.Route[0].Code != "XYZ1" {
		t.Errorf("Unexpected recovered route: %+v", itinerary.Route)
	}
	if fetcher.calls != 1 {
		t.Errorf("Expected one live fetch total, got %d", fetcher.calls)
	}
}

func TestResolveKnownTrainWithoutStopsFallsBack(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	// Train registered by bulk import, but no schedule rows yet
	if err := store.UpsertTrain(ctx, models.Train{Number: "77777", Name: "Unknown Express"}); err != nil {
		t.Fatalf("UpsertTrain failed: %v", err)
	}
	if err := store.UpsertStation(ctx, models.Station{Code: "BPL", Name: "Bhopal", Lat: 23.26, Lng: 77.41}); err != nil {
		t.Fatalf("UpsertStation failed: %v", err)
	}

	fetcher := &stubFetcher{result: &live.Result{
		TrainNo: "77777",
		Name:    "REAL EXPRESS",
		Schedule: []live.ScheduleStop{
			{Code: "BPL", Name: "BHOPAL JN", Time: "14:05"},
		},
	}}
	resolver := New(store, fetcher)

	itinerary, err := resolver.Resolve(ctx, "77777")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if itinerary.Source != models.SourceLive {
		t.Errorf("Expected live fallback for stopless train, got %s", itinerary.Source)
	}

	// Live name overrides the bulk-import placeholder
	train, err := store.GetTrain(ctx, "77777")
	if err != nil {
		t.Fatalf("GetTrain failed: %v", err)
	}
	if train == nil || train.Name != "REAL EXPRESS" {
		t.Errorf("Expected live name to override placeholder, got %+v", train)
	}
}
