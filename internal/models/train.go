package models

// Train represents a scheduled service from the trains table
type Train struct {
	Number string `json:"number"` // Train number, e.g. "12002"
	Name   string `json:"name"`   // Display name, e.g. "BHOPAL SHATABDI"
}

// Stop is a single raw schedule stop as stored in the schedule table or
// returned by the live source, before any geo-enrichment.
type Stop struct {
	Code string `json:"code"` // Station code
	Name string `json:"name"` // Station name as reported by the source
	Time string `json:"time"` // Display time, "HH:MM" ("00:00" when unknown)
}

// RouteStop is a geo-enriched schedule stop, ready for plotting
type RouteStop struct {
	Code string  `json:"code"`
	Name string  `json:"name"`
	Time string  `json:"time"`
	Lat  float64 `json:"lat"`
	Lng  float64 `json:"lng"`
}

// ScheduleRow is one schedule table row as written by the bulk importer,
// with an explicit stop order instead of slice-position ordering.
type ScheduleRow struct {
	TrainNo     string
	StationCode string
	Time        string
	StopOrder   int
}

// Itinerary source values
const (
	SourceLocal = "local"
	SourceLive  = "live"
)

// Itinerary is the fully resolved, time-ordered, geo-located schedule
// for a train, as returned by the resolution service.
type Itinerary struct {
	TrainNo string      `json:"trainNo"`
	Name    string      `json:"name"`
	Source  string      `json:"source"` // "local" or "live"
	Route   []RouteStop `json:"route"`
}
