package trend

import "fmt"

// InsufficientDataError reports a series too short for the trend test.
type InsufficientDataError struct {
	WellID string
	Points int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("trend test: well %s: %d points, need at least %d", e.WellID, e.Points, minPoints)
}
