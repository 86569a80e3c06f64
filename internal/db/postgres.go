package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"traintracker/internal/models"
)

// PostgresStore is the Postgres-backed store, selected when DATABASE_URL is
// set. It implements the same operations as SQLiteStore; Postgres handles
// writer concurrency itself, so there is no write mutex here.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// OpenPostgres creates a Postgres connection pool and verifies connectivity
func OpenPostgres(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

// Close closes the connection pool
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// Ping verifies the database connection is alive
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// EnsureSchema creates tables and indexes if they don't exist
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS trains (
			number TEXT PRIMARY KEY,
			name   TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS stations (
			code TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			lat  DOUBLE PRECISION NOT NULL,
			lng  DOUBLE PRECISION NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS schedule (
			train_no     TEXT    NOT NULL,
			station_code TEXT    NOT NULL,
			time         TEXT    NOT NULL,
			stop_order   INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS ingest_runs (
			run_id          TEXT PRIMARY KEY,
			mode            TEXT NOT NULL,
			started_at_utc  TEXT NOT NULL,
			finished_at_utc TEXT,
			processed       INTEGER NOT NULL DEFAULT 0,
			succeeded       INTEGER NOT NULL DEFAULT 0,
			failed          INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_trains_name ON trains(name)`,
		`CREATE INDEX IF NOT EXISTS idx_schedule_train ON schedule(train_no)`,
	}
	for _, stmt := range statements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

// GetStation returns the station with the given code, or nil if absent
func (s *PostgresStore) GetStation(ctx context.Context, code string) (*models.Station, error) {
	var st models.Station
	err := s.pool.QueryRow(ctx,
		"SELECT code, name, lat, lng FROM stations WHERE code = $1", code,
	).Scan(&st.Code, &st.Name, &st.Lat, &st.Lng)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query station %s: %w", code, err)
	}
	return &st, nil
}

// UpsertStation inserts or replaces a station. Last writer wins.
func (s *PostgresStore) UpsertStation(ctx context.Context, st models.Station) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO stations (code, name, lat, lng) VALUES ($1, $2, $3, $4)
		ON CONFLICT (code) DO UPDATE SET
			name = excluded.name,
			lat = excluded.lat,
			lng = excluded.lng`,
		st.Code, st.Name, st.Lat, st.Lng,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert station %s: %w", st.Code, err)
	}
	return nil
}

// UpsertStations inserts or replaces a batch of stations in one transaction
func (s *PostgresStore) UpsertStations(ctx context.Context, stations []models.Station) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, st := range stations {
		_, err := tx.Exec(ctx, `
			INSERT INTO stations (code, name, lat, lng) VALUES ($1, $2, $3, $4)
			ON CONFLICT (code) DO UPDATE SET
				name = excluded.name,
				lat = excluded.lat,
				lng = excluded.lng`,
			st.Code, st.Name, st.Lat, st.Lng,
		)
		if err != nil {
			return fmt.Errorf("failed to upsert station %s: %w", st.Code, err)
		}
	}

	return tx.Commit(ctx)
}

// GetTrain returns the train with the given number, or nil if absent
func (s *PostgresStore) GetTrain(ctx context.Context, number string) (*models.Train, error) {
	var t models.Train
	err := s.pool.QueryRow(ctx,
		"SELECT number, name FROM trains WHERE number = $1", number,
	).Scan(&t.Number, &t.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query train %s: %w", number, err)
	}
	return &t, nil
}

// UpsertTrain inserts or replaces a train
func (s *PostgresStore) UpsertTrain(ctx context.Context, t models.Train) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO trains (number, name) VALUES ($1, $2)
		ON CONFLICT (number) DO UPDATE SET name = excluded.name`,
		t.Number, t.Name,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert train %s: %w", t.Number, err)
	}
	return nil
}

// SearchTrains returns trains whose number or name contains the query,
// case-insensitively, up to limit entries
func (s *PostgresStore) SearchTrains(ctx context.Context, query string, limit int) ([]models.Train, error) {
	if len(query) < 2 {
		return []models.Train{}, nil
	}

	pattern := "%" + query + "%"
	rows, err := s.pool.Query(ctx,
		"SELECT number, name FROM trains WHERE number ILIKE $1 OR name ILIKE $1 LIMIT $2",
		pattern, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search trains: %w", err)
	}
	defer rows.Close()

	trains := []models.Train{}
	for rows.Next() {
		var t models.Train
		if err := rows.Scan(&t.Number, &t.Name); err != nil {
			return nil, fmt.Errorf("failed to scan train row: %w", err)
		}
		trains = append(trains, t)
	}
	return trains, rows.Err()
}

// ListTrainNumbers returns every distinct train number, ordered by number
func (s *PostgresStore) ListTrainNumbers(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT DISTINCT number FROM trains ORDER BY number")
	if err != nil {
		return nil, fmt.Errorf("failed to list train numbers: %w", err)
	}
	defer rows.Close()

	var numbers []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("failed to scan train number: %w", err)
		}
		numbers = append(numbers, n)
	}
	return numbers, rows.Err()
}

// GetScheduleJoined returns the train's stops joined against stations,
// ordered by stop position
func (s *PostgresStore) GetScheduleJoined(ctx context.Context, trainNo string) ([]models.RouteStop, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT st.code, st.name, st.lat, st.lng, sch.time
		FROM schedule sch
		JOIN stations st ON sch.station_code = st.code
		WHERE sch.train_no = $1
		ORDER BY sch.stop_order ASC
	`, trainNo)
	if err != nil {
		return nil, fmt.Errorf("failed to query schedule for %s: %w", trainNo, err)
	}
	defer rows.Close()

	var route []models.RouteStop
	for rows.Next() {
		var r models.RouteStop
		if err := rows.Scan(&r.Code, &r.Name, &r.Lat, &r.Lng, &r.Time); err != nil {
			return nil, fmt.Errorf("failed to scan schedule row: %w", err)
		}
		route = append(route, r)
	}
	return route, rows.Err()
}

// ReplaceSchedule atomically swaps the train's stored stops for the given
// ordered set within one transaction
func (s *PostgresStore) ReplaceSchedule(ctx context.Context, trainNo string, stops []models.Stop) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		"DELETE FROM schedule WHERE train_no = $1", trainNo); err != nil {
		return fmt.Errorf("failed to delete schedule for %s: %w", trainNo, err)
	}

	for i, stop := range stops {
		_, err := tx.Exec(ctx,
			"INSERT INTO schedule (train_no, station_code, time, stop_order) VALUES ($1, $2, $3, $4)",
			trainNo, stop.Code, stop.Time, i,
		)
		if err != nil {
			return fmt.Errorf("failed to insert stop %s for %s: %w", stop.Code, trainNo, err)
		}
	}

	return tx.Commit(ctx)
}

// ImportSchedule bulk-loads trains and schedule rows in a single
// all-or-nothing transaction
func (s *PostgresStore) ImportSchedule(ctx context.Context, trains []models.Train, rows []models.ScheduleRow) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, t := range trains {
		_, err := tx.Exec(ctx, `
			INSERT INTO trains (number, name) VALUES ($1, $2)
			ON CONFLICT (number) DO NOTHING`,
			t.Number, t.Name,
		)
		if err != nil {
			return fmt.Errorf("failed to insert train %s: %w", t.Number, err)
		}
	}

	for _, r := range rows {
		_, err := tx.Exec(ctx,
			"INSERT INTO schedule (train_no, station_code, time, stop_order) VALUES ($1, $2, $3, $4)",
			r.TrainNo, r.StationCode, r.Time, r.StopOrder,
		)
		if err != nil {
			return fmt.Errorf("failed to insert stop %s for %s: %w", r.StationCode, r.TrainNo, err)
		}
	}

	return tx.Commit(ctx)
}

// RecordIngestRun creates a bookkeeping row for a bulk ingestion run
func (s *PostgresStore) RecordIngestRun(ctx context.Context, mode string, startedAt time.Time) (string, error) {
	runID := uuid.New().String()
	_, err := s.pool.Exec(ctx,
		"INSERT INTO ingest_runs (run_id, mode, started_at_utc) VALUES ($1, $2, $3)",
		runID, mode, startedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return "", fmt.Errorf("failed to record ingest run: %w", err)
	}
	return runID, nil
}

// FinishIngestRun stamps the run's completion time and final tallies
func (s *PostgresStore) FinishIngestRun(ctx context.Context, runID string, processed, succeeded, failed int) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE ingest_runs
		SET finished_at_utc = $1, processed = $2, succeeded = $3, failed = $4
		WHERE run_id = $5`,
		time.Now().UTC().Format(time.RFC3339), processed, succeeded, failed, runID,
	)
	if err != nil {
		return fmt.Errorf("failed to finish ingest run %s: %w", runID, err)
	}
	return nil
}
