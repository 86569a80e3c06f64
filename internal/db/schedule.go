package db

import (
	"context"
	"fmt"

	"traintracker/internal/models"
)

// GetScheduleJoined returns the train's stops joined against the stations
// table, ordered by stop position. Stops whose station code is unknown have
// no coordinates to plot and are excluded by the inner join.
func (s *SQLiteStore) GetScheduleJoined(ctx context.Context, trainNo string) ([]models.RouteStop, error) {
	rows, err := s.conn.QueryContext(ctx, `
		SELECT st.code, st.name, st.lat, st.lng, sch.time
		FROM schedule sch
		JOIN stations st ON sch.station_code = st.code
		WHERE sch.train_no = ?
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
// ordered set, assigning stop_order from slice position. Delete and insert
// run in one transaction so a concurrent reader never observes a
// half-replaced schedule.
func (s *SQLiteStore) ReplaceSchedule(ctx context.Context, trainNo string, stops []models.Stop) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM schedule WHERE train_no = ?", trainNo); err != nil {
		return fmt.Errorf("failed to delete schedule for %s: %w", trainNo, err)
	}

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO schedule (train_no, station_code, time, stop_order) VALUES (?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare schedule statement: %w", err)
	}
	defer stmt.Close()

	for i, stop := range stops {
		if _, err := stmt.ExecContext(ctx, trainNo, stop.Code, stop.Time, i); err != nil {
			return fmt.Errorf("failed to insert stop %s for %s: %w", stop.Code, trainNo, err)
		}
	}

	return tx.Commit()
}

// ImportSchedule bulk-loads trains and schedule rows in a single
// all-or-nothing transaction. Existing trains are left alone (first
// sighting wins for bulk data; live fetches overwrite names later),
// existing schedule rows for the imported trains are not touched.
func (s *SQLiteStore) ImportSchedule(ctx context.Context, trains []models.Train, rows []models.ScheduleRow) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	trainStmt, err := tx.PrepareContext(ctx,
		"INSERT OR IGNORE INTO trains (number, name) VALUES (?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare train statement: %w", err)
	}
	defer trainStmt.Close()

	for _, t := range trains {
		if _, err := trainStmt.ExecContext(ctx, t.Number, t.Name); err != nil {
			return fmt.Errorf("failed to insert train %s: %w", t.Number, err)
		}
	}

	rowStmt, err := tx.PrepareContext(ctx,
		"INSERT INTO schedule (train_no, station_code, time, stop_order) VALUES (?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare schedule statement: %w", err)
	}
	defer rowStmt.Close()

	for _, r := range rows {
		if _, err := rowStmt.ExecContext(ctx, r.TrainNo, r.StationCode, r.Time, r.StopOrder); err != nil {
			return fmt.Errorf("failed to insert stop %s for %s: %w", r.StationCode, r.TrainNo, err)
		}
	}

	return tx.Commit()
}
