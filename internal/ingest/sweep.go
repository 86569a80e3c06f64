package ingest

import (
	"context"
	"log"
	"time"

	"traintracker/internal/live"
	"traintracker/internal/models"
)

// Fetcher is the live source boundary for the refresh sweep
type Fetcher interface {
	FetchWithRetry(ctx context.Context, trainNo string) (*live.Result, error)
}

// Tally holds the running counters of a refresh sweep
type Tally struct {
	Processed int
	Succeeded int
	Failed    int
}

// Sweeper walks the live source across every train number already known
// locally, refreshing names and schedules. Requests are spaced by a fixed
// delay so the upstream enquiry site is not hammered; individual failures
// are counted and skipped, never aborting the sweep.
type Sweeper struct {
	store Store
	live  Fetcher
	delay time.Duration
}

// NewSweeper creates a refresh sweeper with the given inter-request delay
func NewSweeper(store Store, fetcher Fetcher, delay time.Duration) *Sweeper {
	return &Sweeper{store: store, live: fetcher, delay: delay}
}

// Run executes the sweep. Fetch failures and empty responses count as
// failed; storage errors are fatal and abort the run. Cancelling the
// context stops the sweep cleanly between trains.
func (s *Sweeper) Run(ctx context.Context) (Tally, error) {
	var tally Tally

	numbers, err := s.store.ListTrainNumbers(ctx)
	if err != nil {
		return tally, err
	}
	total := len(numbers)
	log.Printf("sweep: %d trains to refresh", total)

	startedAt := time.Now()
	runID, err := s.store.RecordIngestRun(ctx, "live", startedAt)
	if err != nil {
		return tally, err
	}

	ticker := time.NewTicker(s.delay)
	defer ticker.Stop()

	for i, trainNo := range numbers {
		// Fixed inter-request spacing, except before the first request.
		// Waiting on the ticker rather than sleeping keeps cancellation
		// responsive mid-delay.
		if i > 0 {
			select {
			case <-ticker.C:
			case <-ctx.Done():
				return tally, ctx.Err()
			}
		}

		result, err := s.live.FetchWithRetry(ctx, trainNo)
		tally.Processed++
		if err != nil || result == nil || len(result.Schedule) == 0 {
			tally.Failed++
			log.Printf("sweep: [%d/%d] no data for %s", i+1, total, trainNo)
			continue
		}

		if err := s.persist(ctx, result); err != nil {
			return tally, err
		}
		tally.Succeeded++
		log.Printf("sweep: [%d/%d] updated %s - %s", i+1, total, trainNo, result.Name)

		if tally.Processed%100 == 0 {
			log.Printf("sweep: progress %d/%d (%d succeeded, %d failed)",
				tally.Processed, total, tally.Succeeded, tally.Failed)
		}
	}

	if err := s.store.FinishIngestRun(ctx, runID, tally.Processed, tally.Succeeded, tally.Failed); err != nil {
		return tally, err
	}

	log.Printf("sweep: complete, %d succeeded, %d failed out of %d",
		tally.Succeeded, tally.Failed, total)
	return tally, nil
}

// persist applies the same train-name-upsert plus schedule-replace sequence
// the resolution service uses for live fallbacks
func (s *Sweeper) persist(ctx context.Context, result *live.Result) error {
	if err := s.store.UpsertTrain(ctx, models.Train{Number: result.TrainNo, Name: result.Name}); err != nil {
		return err
	}
	return s.store.ReplaceSchedule(ctx, result.TrainNo, result.Stops())
}
