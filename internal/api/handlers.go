package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"traintracker/internal/models"
	"traintracker/internal/resolve"
)

const (
	defaultSearchLimit = 10
	maxSearchLimit     = 50
)

// Resolver resolves a train number to a plottable itinerary
type Resolver interface {
	Resolve(ctx context.Context, trainNo string) (*models.Itinerary, error)
}

// Searcher runs free-text train searches against the registry
type Searcher interface {
	SearchTrains(ctx context.Context, query string, limit int) ([]models.Train, error)
}

// TrainHandler handles HTTP requests for train search and resolution
type TrainHandler struct {
	resolver Resolver
	searcher Searcher
}

// NewTrainHandler creates a new handler over the given resolver and store
func NewTrainHandler(resolver Resolver, searcher Searcher) *TrainHandler {
	return &TrainHandler{resolver: resolver, searcher: searcher}
}

// ErrorResponse is the JSON error response structure
type ErrorResponse struct {
	Error string `json:"error"`
}

// Search handles GET /api/trains?q=&limit=
// Queries shorter than two characters return an empty list.
func (h *TrainHandler) Search(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query().Get("q")

	limit := defaultSearchLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}

	trains, err := h.searcher.SearchTrains(ctx, query, limit)
	if err != nil {
		log.Printf("api: search %q failed: %v", query, err)
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "Search failed"})
		return
	}

	writeJSON(w, http.StatusOK, trains)
}

// GetTrain handles GET /api/train/{trainNo}
// Responds 404 for unknown trains and for trains whose stations all lack
// coordinates; the two cases carry distinct error bodies.
func (h *TrainHandler) GetTrain(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	trainNo := chi.URLParam(r, "trainNo")

	if !isTrainNumber(trainNo) {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Invalid train number"})
		return
	}

	itinerary, err := h.resolver.Resolve(ctx, trainNo)
	if err != nil {
		switch {
		case errors.Is(err, resolve.ErrTrainNotFound):
			writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "Train not found"})
		case errors.Is(err, resolve.ErrNoCoordinates):
			writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "No coordinates found for stations"})
		default:
			log.Printf("api: resolve %s failed: %v", trainNo, err)
			writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "Failed to resolve train"})
		}
		return
	}

	writeJSON(w, http.StatusOK, itinerary)
}

// Pinger checks storage connectivity
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler reports service and database health
type HealthHandler struct {
	store Pinger
}

// NewHealthHandler creates a new health handler over the given store
func NewHealthHandler(store Pinger) *HealthHandler {
	return &HealthHandler{store: store}
}

// Health handles GET /health with a database connectivity check
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status":   "error",
			"database": "disconnected",
			"error":    err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":   "ok",
		"database": "connected",
	})
}

// isTrainNumber reports whether s is a non-empty string of digits
func isTrainNumber(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
