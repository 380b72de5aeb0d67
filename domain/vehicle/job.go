// Package vehicle defines the per-vehicle jobs read from the vehicle config file.
package vehicle

import "fmt"

// DefaultConfigFile is the config file used when none is given.
const DefaultConfigFile = "vehicle_logs.conf"

// Job is one vehicle and the date range whose logs should be retrieved.
// Dates are carried verbatim; they are never parsed as calendar dates.
type Job struct {
	// Name is the vehicle identifier used to search for and match the vehicle
	Name string

	// StartDate is the start of the range as written in the config file
	StartDate string

	// EndDate is the end of the range as written in the config file
	EndDate string
}

// String returns "name (start - end)".
func (j Job) String() string {
	return fmt.Sprintf("%s (%s - %s)", j.Name, j.StartDate, j.EndDate)
}

// ParseWarning describes a config line that was skipped.
type ParseWarning struct {
	Line   int
	Text   string
	Reason string
}

func (w ParseWarning) Error() string {
	return fmt.Sprintf("line %d: %s: %q", w.Line, w.Reason, w.Text)
}
