package models

// Station represents a geo-located station from the stations table.
// Stations without known coordinates are never stored, so Lat/Lng are
// always meaningful on a loaded Station.
type Station struct {
	Code string  `json:"code"` // Short station code, e.g. "NDLS"
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lng  float64 `json:"lng"`
}
