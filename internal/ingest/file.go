// Package ingest populates the station, train and schedule stores, either
// from bulk source files or by sweeping the live enquiry source over every
// known train number.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"traintracker/internal/models"
)

// defaultTrainName is the placeholder for bulk-imported trains whose source
// row carries no name. A later live fetch overwrites it.
const defaultTrainName = "Unknown Express"

// Store is the subset of store operations bulk ingestion needs
type Store interface {
	UpsertStations(ctx context.Context, stations []models.Station) error
	ImportSchedule(ctx context.Context, trains []models.Train, rows []models.ScheduleRow) error
	ListTrainNumbers(ctx context.Context) ([]string, error)
	UpsertTrain(ctx context.Context, t models.Train) error
	ReplaceSchedule(ctx context.Context, trainNo string, stops []models.Stop) error
	RecordIngestRun(ctx context.Context, mode string, startedAt time.Time) (string, error)
	FinishIngestRun(ctx context.Context, runID string, processed, succeeded, failed int) error
}

// stationCollection matches the GeoJSON FeatureCollection layout of the
// bulk station file
type stationCollection struct {
	Features []stationFeature `json:"features"`
}

type stationFeature struct {
	Properties struct {
		Code string `json:"code"`
		Name string `json:"name"`
	} `json:"properties"`
	Geometry *struct {
		Coordinates []float64 `json:"coordinates"` // [lng, lat]
	} `json:"geometry"`
}

// stopRecord matches one entry of the flat bulk schedule listing
type stopRecord struct {
	TrainNumber string `json:"train_number"`
	TrainName   string `json:"train_name"`
	StationCode string `json:"station_code"`
	Arrival     string `json:"arrival"`
	Departure   string `json:"departure"`
	StopNumber  *int   `json:"stop_number"`
}

// ImportStations loads a GeoJSON station file into the station store in one
// transaction. Features without a code or geometry have nothing to plot and
// are skipped. Returns the number of stations imported.
func ImportStations(ctx context.Context, store Store, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read station file: %w", err)
	}

	var collection stationCollection
	if err := json.Unmarshal(data, &collection); err != nil {
		return 0, fmt.Errorf("failed to parse station file: %w", err)
	}

	stations := make([]models.Station, 0, len(collection.Features))
	for _, f := range collection.Features {
		if f.Properties.Code == "" || f.Geometry == nil || len(f.Geometry.Coordinates) < 2 {
			continue
		}
		stations = append(stations, models.Station{
			Code: f.Properties.Code,
			Name: f.Properties.Name,
			Lat:  f.Geometry.Coordinates[1],
			Lng:  f.Geometry.Coordinates[0],
		})
	}

	if err := store.UpsertStations(ctx, stations); err != nil {
		return 0, err
	}
	return len(stations), nil
}

// ImportSchedules loads a flat schedule listing into the train registry and
// schedule store as a single all-or-nothing transaction. Returns the number
// of trains and stops imported.
func ImportSchedules(ctx context.Context, store Store, path string) (int, int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read schedule file: %w", err)
	}

	var records []stopRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return 0, 0, fmt.Errorf("failed to parse schedule file: %w", err)
	}

	var trains []models.Train
	rows := make([]models.ScheduleRow, 0, len(records))
	seen := make(map[string]bool)
	counts := make(map[string]int) // Running stop count per train

	for _, rec := range records {
		if rec.TrainNumber == "" || rec.StationCode == "" {
			continue
		}

		if !seen[rec.TrainNumber] {
			name := rec.TrainName
			if name == "" {
				name = defaultTrainName
			}
			trains = append(trains, models.Train{Number: rec.TrainNumber, Name: name})
			seen[rec.TrainNumber] = true
		}

		// An explicit stop_number wins over the running count; each logical
		// stop is inserted exactly once either way.
		order := counts[rec.TrainNumber]
		if rec.StopNumber != nil {
			order = *rec.StopNumber
		}
		counts[rec.TrainNumber]++

		rows = append(rows, models.ScheduleRow{
			TrainNo:     rec.TrainNumber,
			StationCode: rec.StationCode,
			Time:        normalizeTime(rec.Departure, rec.Arrival),
			StopOrder:   order,
		})
	}

	if err := store.ImportSchedule(ctx, trains, rows); err != nil {
		return 0, 0, err
	}

	log.Printf("ingest: imported %d trains, %d stops from %s", len(trains), len(rows), path)
	return len(trains), len(rows), nil
}

// normalizeTime picks departure over arrival, maps the source's "None" and
// empty placeholders to "00:00", and truncates "HH:MM:SS" to "HH:MM"
func normalizeTime(departure, arrival string) string {
	t := departure
	if t == "None" || t == "" {
		t = arrival
	}
	if t == "None" || t == "" {
		t = "00:00"
	}
	if len(t) > 5 {
		t = t[:5]
	}
	return strings.TrimSpace(t)
}
