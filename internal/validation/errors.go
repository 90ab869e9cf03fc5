package validation

import (
	"errors"
	"fmt"
)

// ErrInsufficientObservations marks a series too short to analyze.
var ErrInsufficientObservations = errors.New("insufficient observations")

// DataQualityError reports a series that failed validation. The analyzer
// converts it into an invalid well record; it never aborts a batch.
type DataQualityError struct {
	WellID string
	Reason string
	Err    error // optional sentinel, e.g. ErrInsufficientObservations
}

func (e *DataQualityError) Error() string {
	return fmt.Sprintf("data quality: well %s: %s", e.WellID, e.Reason)
}

func (e *DataQualityError) Unwrap() error {
	return e.Err
}
