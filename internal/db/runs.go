package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// RecordIngestRun creates a bookkeeping row for a bulk ingestion run and
// returns its ID. mode is "file" or "live".
func (s *SQLiteStore) RecordIngestRun(ctx context.Context, mode string, startedAt time.Time) (string, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	runID := uuid.New().String()
	_, err := s.conn.ExecContext(ctx,
		"INSERT INTO ingest_runs (run_id, mode, started_at_utc) VALUES (?, ?, ?)",
		runID, mode, startedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return "", fmt.Errorf("failed to record ingest run: %w", err)
	}
	return runID, nil
}

// FinishIngestRun stamps the run's completion time and final tallies
func (s *SQLiteStore) FinishIngestRun(ctx context.Context, runID string, processed, succeeded, failed int) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	_, err := s.conn.ExecContext(ctx, `
		UPDATE ingest_runs
		SET finished_at_utc = ?, processed = ?, succeeded = ?, failed = ?
		WHERE run_id = ?`,
		time.Now().UTC().Format(time.RFC3339), processed, succeeded, failed, runID,
	)
	if err != nil {
		return fmt.Errorf("failed to finish ingest run %s: %w", runID, err)
	}
	return nil
}
