package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"traintracker/internal/models"
)

// GetTrain returns the train with the given number, or nil if absent
func (s *SQLiteStore) GetTrain(ctx context.Context, number string) (*models.Train, error) {
	var t models.Train
	err := s.conn.QueryRowContext(ctx,
		"SELECT number, name FROM trains WHERE number = ?", number,
	).Scan(&t.Number, &t.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query train %s: %w", number, err)
	}
	return &t, nil
}

// UpsertTrain inserts or replaces a train. A live-fetched name overwrites
// bulk-import placeholders like "Unknown Express".
func (s *SQLiteStore) UpsertTrain(ctx context.Context, t models.Train) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	_, err := s.conn.ExecContext(ctx,
		"INSERT OR REPLACE INTO trains (number, name) VALUES (?, ?)",
		t.Number, t.Name,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert train %s: %w", t.Number, err)
	}
	return nil
}

// SearchTrains returns trains whose number or name contains the query,
// case-insensitively, up to limit entries. Queries shorter than two
// characters return an empty result without hitting the database, so a
// trivial input can never trigger a full table scan.
func (s *SQLiteStore) SearchTrains(ctx context.Context, query string, limit int) ([]models.Train, error) {
	if len(query) < 2 {
		return []models.Train{}, nil
	}

	pattern := "%" + query + "%"
	rows, err := s.conn.QueryContext(ctx,
		"SELECT number, name FROM trains WHERE number LIKE ? OR name LIKE ? LIMIT ?",
		pattern, pattern, limit,
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

// ListTrainNumbers returns every distinct train number in the registry,
// ordered by number. Used by the bulk refresh sweep.
func (s *SQLiteStore) ListTrainNumbers(ctx context.Context) ([]string, error) {
	rows, err := s.conn.QueryContext(ctx,
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
