// Package run defines the record kept for each scraper run.
package run

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrRunNotFound is returned when a run record does not exist.
var ErrRunNotFound = errors.New("run not found")

// Mode names how a run retrieved logs.
type Mode string

const (
	// ModeSingle logs in and walks one vehicle through the UI.
	ModeSingle Mode = "single"
	// ModeBatch walks every configured vehicle through the UI.
	ModeBatch Mode = "batch"
	// ModeFetch downloads log links over HTTP with the session cookies.
	ModeFetch Mode = "fetch"
)

// SavedFile describes a log file written to disk.
type SavedFile struct {
	Filename  string
	Path      string
	URL       string
	SizeBytes int64
}

// VehicleOutcome is the result of one navigation cycle.
type VehicleOutcome struct {
	Name      string
	StartDate string
	EndDate   string

	// Completed is true when every navigation step was reached
	Completed bool

	// StoppedAt is the last navigation step reached
	StoppedAt string

	// Error describes why the cycle stopped early, if it did
	Error string
}

// Record is the ledger entry for one run.
type Record struct {
	ID         string
	Mode       Mode
	StartedAt  time.Time
	FinishedAt time.Time
	LoggedIn   bool
	Vehicles   []VehicleOutcome
	Files      []SavedFile
	Error      string

	// Screenshots lists checkpoint images taken during the run, best effort
	Screenshots []string
}

// NewRecord starts a record with a fresh ID.
func NewRecord(mode Mode, now time.Time) *Record {
	return &Record{
		ID:        uuid.NewString(),
		Mode:      mode,
		StartedAt: now,
	}
}

// Duration returns how long the run took, or zero if it has not finished.
func (r *Record) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// CompletedVehicles counts the vehicles whose navigation reached the end.
func (r *Record) CompletedVehicles() int {
	n := 0
	for _, v := range r.Vehicles {
		if v.Completed {
			n++
		}
	}
	return n
}

// TotalBytes sums the sizes of all saved files.
func (r *Record) TotalBytes() int64 {
	var total int64
	for _, f := range r.Files {
		total += f.SizeBytes
	}
	return total
}
