package domain

import "time"

// Well represents a registered piezometric monitoring well.
// Corresponds to wells table in PostgreSQL. Spatial attributes come from
// an external registry join, not from this pipeline.
type Well struct {
	WellID    string  // PRIMARY KEY, station code
	Name      string  // station name
	Region    string  // administrative region
	Comuna    string  // municipality
	SHAC      string  // hydrogeological sub-basin (Sector Hidrogeológico de Aprovechamiento Común)
	Cuenca    string  // surface basin
	Latitude  float64 // WGS84
	Longitude float64 // WGS84
}

// WellRecord is the complete per-well analysis result.
// One record per well; refresh runs replace it as the series grows.
// Corresponds to well_records table in PostgreSQL.
type WellRecord struct {
	Well Well

	// Invalid marks wells that failed series validation. Invalid records
	// carry no trend or ensemble data and are excluded from aggregation.
	Invalid       bool
	InvalidReason string

	Summary  SeriesSummary
	Trend    *TrendResult
	Ensemble *EnsembleResult

	AnalyzedAt time.Time
}

// SeriesSummary holds descriptive statistics of a cleaned series,
// retained on the record after the series itself is discarded.
type SeriesSummary struct {
	ObservationCount int
	FirstTimestamp   time.Time
	LastTimestamp    time.Time
	CurrentLevel     float64 // last observed level (m)
	MeanLevel        float64
	MinLevel         float64
	MaxLevel         float64
	FlaggedGaps      int
}
