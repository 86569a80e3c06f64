package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"traintracker/internal/models"
)

// GetStation returns the station with the given code, or nil if absent
func (s *SQLiteStore) GetStation(ctx context.Context, code string) (*models.Station, error) {
	var st models.Station
	err := s.conn.QueryRowContext(ctx,
		"SELECT code, name, lat, lng FROM stations WHERE code = ?", code,
	).Scan(&st.Code, &st.Name, &st.Lat, &st.Lng)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query station %s: %w", code, err)
	}
	return &st, nil
}

// UpsertStation inserts or replaces a station. Last writer wins.
func (s *SQLiteStore) UpsertStation(ctx context.Context, st models.Station) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	_, err := s.conn.ExecContext(ctx,
		"INSERT OR REPLACE INTO stations (code, name, lat, lng) VALUES (?, ?, ?, ?)",
		st.Code, st.Name, st.Lat, st.Lng,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert station %s: %w", st.Code, err)
	}
	return nil
}

// UpsertStations inserts or replaces a batch of stations in one transaction
func (s *SQLiteStore) UpsertStations(ctx context.Context, stations []models.Station) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		"INSERT OR REPLACE INTO stations (code, name, lat, lng) VALUES (?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare station statement: %w", err)
	}
	defer stmt.Close()

	for _, st := range stations {
		if _, err := stmt.ExecContext(ctx, st.Code, st.Name, st.Lat, st.Lng); err != nil {
			return fmt.Errorf("failed to upsert station %s: %w", st.Code, err)
		}
	}

	return tx.Commit()
}
