package domain

import "time"

// RawObservation is a single reported groundwater level measurement.
// Corresponds to observations table in PostgreSQL. Immutable, sourced
// externally (DGA monitoring network exports or the live feed).
type RawObservation struct {
	WellID    string    // monitoring station code
	Timestamp time.Time // measurement time (UTC)
	Level     float64   // water level depth in meters below surface
	Unit      string    // measurement unit, "m" for all known sources
}
