// Package resolve turns a train number into a plottable itinerary,
// preferring the local store and falling back to the live enquiry source.
package resolve

import (
	"context"
	"errors"
	"fmt"
	"log"

	"traintracker/internal/live"
	"traintracker/internal/models"
)

var (
	// ErrTrainNotFound means neither the local store nor the live source
	// has any data for the requested number
	ErrTrainNotFound = errors.New("train not found")

	// ErrNoCoordinates means the live source knows the train but none of
	// its stations are geo-located, so the route cannot be plotted
	ErrNoCoordinates = errors.New("no coordinates found for stations")
)

// Store is the subset of store operations the resolver needs
type Store interface {
	GetTrain(ctx context.Context, number string) (*models.Train, error)
	UpsertTrain(ctx context.Context, t models.Train) error
	GetStation(ctx context.Context, code string) (*models.Station, error)
	GetScheduleJoined(ctx context.Context, trainNo string) ([]models.RouteStop, error)
	ReplaceSchedule(ctx context.Context, trainNo string, stops []models.Stop) error
}

// Fetcher is the live source boundary
type Fetcher interface {
	Fetch(ctx context.Context, trainNo string) (*live.Result, error)
}

// Resolver resolves train numbers against the store with live fallback
type Resolver struct {
	store Store
	live  Fetcher
}

// New creates a resolver over the given store and live source
func New(store Store, fetcher Fetcher) *Resolver {
	return &Resolver{store: store, live: fetcher}
}

// Resolve returns the joined, ordered, geo-located itinerary for a train.
// Local data wins when it joins to at least one located station; otherwise
// the live source is consulted and any result is persisted before returning,
// so the next lookup is served locally.
func (r *Resolver) Resolve(ctx context.Context, trainNo string) (*models.Itinerary, error) {
	train, err := r.store.GetTrain(ctx, trainNo)
	if err != nil {
		return nil, err
	}

	if train != nil {
		route, err := r.store.GetScheduleJoined(ctx, trainNo)
		if err != nil {
			return nil, err
		}
		if len(route) > 0 {
			return &models.Itinerary{
				TrainNo: train.Number,
				Name:    train.Name,
				Source:  models.SourceLocal,
				Route:   route,
			}, nil
		}
	}

	// Train unknown locally, or known with no plottable stops
	log.Printf("resolve: fetching %s from live source", trainNo)
	result, err := r.live.Fetch(ctx, trainNo)
	if err != nil {
		return nil, fmt.Errorf("live fetch for %s: %w", trainNo, err)
	}
	if result == nil {
		return nil, ErrTrainNotFound
	}

	// Geo-enrich: stops at unknown stations cannot be plotted and are
	// dropped from the route, but never block the rest of it
	route := make([]models.RouteStop, 0, len(result.Schedule))
	for _, stop := range result.Schedule {
		station, err := r.store.GetStation(ctx, stop.Code)
		if err != nil {
			return nil, err
		}
		if station == nil {
			continue
		}
		route = append(route, models.RouteStop{
			Code: stop.Code,
			Name: stop.Name,
			Time: stop.Time,
			Lat:  station.Lat,
			Lng:  station.Lng,
		})
	}

	// Persist the raw, unfiltered stops: once the station store gains the
	// missing codes, a later resolve recovers the dropped stops from the
	// local join without another live fetch.
	if err := r.persist(ctx, result); err != nil {
		return nil, err
	}

	if len(route) == 0 {
		return nil, ErrNoCoordinates
	}

	return &models.Itinerary{
		TrainNo: trainNo,
		Name:    result.Name,
		Source:  models.SourceLive,
		Route:   route,
	}, nil
}

func (r *Resolver) persist(ctx context.Context, result *live.Result) error {
	// A caller abandoning the request must not tear the write in half:
	// once persistence starts it runs to completion.
	ctx = context.WithoutCancel(ctx)

	if err := r.store.UpsertTrain(ctx, models.Train{Number: result.TrainNo, Name: result.Name}); err != nil {
		return err
	}
	return r.store.ReplaceSchedule(ctx, result.TrainNo, result.Stops())
}
