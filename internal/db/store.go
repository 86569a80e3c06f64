package db

import (
	"context"
	"time"

	"traintracker/internal/models"
)

// Store is the full set of operations the resolution service, the HTTP
// layer and the bulk ingestion tool need from a backing database.
// Satisfied by both SQLiteStore and PostgresStore.
type Store interface {
	Close() error
	Ping(ctx context.Context) error
	EnsureSchema(ctx context.Context) error

	GetStation(ctx context.Context, code string) (*models.Station, error)
	UpsertStation(ctx context.Context, st models.Station) error
	UpsertStations(ctx context.Context, stations []models.Station) error

	GetTrain(ctx context.Context, number string) (*models.Train, error)
	UpsertTrain(ctx context.Context, t models.Train) error
	SearchTrains(ctx context.Context, query string, limit int) ([]models.Train, error)
	ListTrainNumbers(ctx context.Context) ([]string, error)

	GetScheduleJoined(ctx context.Context, trainNo string) ([]models.RouteStop, error)
	ReplaceSchedule(ctx context.Context, trainNo string, stops []models.Stop) error
	ImportSchedule(ctx context.Context, trains []models.Train, rows []models.ScheduleRow) error

	RecordIngestRun(ctx context.Context, mode string, startedAt time.Time) (string, error)
	FinishIngestRun(ctx context.Context, runID string, processed, succeeded, failed int) error
}
