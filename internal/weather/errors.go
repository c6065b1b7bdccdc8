package weather

import (
	"errors"
	"fmt"
)

// ErrNoTables is returned by Reload when the source produced no locations.
var ErrNoTables = errors.New("source returned no feature tables")

// InsufficientDataError is returned when a location has no labelled history
// to fall back on. It is never a transient failure.
type InsufficientDataError struct {
	Location string
	Records  int
}

func (e *InsufficientDataError) Error() string {
	if e.Records == 0 {
		return fmt.Sprintf("insufficient data for %q: no history", e.Location)
	}
	return fmt.Sprintf("insufficient data for %q: %d records but no rain-tomorrow labels", e.Location, e.Records)
}

// IsInsufficientData reports whether err wraps an *InsufficientDataError.
func IsInsufficientData(err error) bool {
	var target *InsufficientDataError
	return errors.As(err, &target)
}
