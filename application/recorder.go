package application

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"ulogscraper-go/core/event"
	"ulogscraper-go/core/eventbus"
	"ulogscraper-go/core/state"
	"ulogscraper-go/domain/run"
	"ulogscraper-go/domain/vehicle"
)

// Recorder builds the ledger entry of a run and saves it when the run
// finishes. Outcomes arrive through its Ledger methods; the bus only
// contributes screenshot paths, which may be missing when events are dropped.
type Recorder struct {
	repo     run.Repository
	eventBus eventbus.EventBus
	logger   *slog.Logger
	now      func() time.Time

	mu     sync.Mutex
	record *run.Record
	subID  string
}

// NewRecorder creates a recorder for a run of the given mode and subscribes it to bus.
// The bus may be nil.
func NewRecorder(bus eventbus.EventBus, repo run.Repository, mode run.Mode, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}

	r := &Recorder{
		repo:     repo,
		eventBus: bus,
		logger:   logger,
		now:      time.Now,
	}
	r.record = run.NewRecord(mode, r.now())
	if bus != nil {
		r.subID = bus.Subscribe(r.handleEvent)
	}
	return r
}

// ID returns the ID of the run being recorded.
func (r *Recorder) ID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.record.ID
}

// Snapshot returns a copy of the record as built so far.
func (r *Recorder) Snapshot() run.Record {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec := *r.record
	rec.Vehicles = append([]run.VehicleOutcome(nil), r.record.Vehicles...)
	rec.Files = append([]run.SavedFile(nil), r.record.Files...)
	rec.Screenshots = append([]string(nil), r.record.Screenshots...)
	return rec
}

// LoginSucceeded marks the run as signed in.
func (r *Recorder) LoginSucceeded() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record.LoggedIn = true
}

// VehicleStarted opens an outcome for job.
func (r *Recorder) VehicleStarted(job vehicle.Job) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record.Vehicles = append(r.record.Vehicles, run.VehicleOutcome{
		Name:      job.Name,
		StartDate: job.StartDate,
		EndDate:   job.EndDate,
	})
}

// VehicleFinished closes the latest outcome for name, opening one if none was started.
func (r *Recorder) VehicleFinished(name string, completed bool, stoppedAt state.NavStep, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec := r.record
	idx := -1
	for i := len(rec.Vehicles) - 1; i >= 0; i-- {
		if rec.Vehicles[i].Name == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		rec.Vehicles = append(rec.Vehicles, run.VehicleOutcome{Name: name})
		idx = len(rec.Vehicles) - 1
	}
	v := &rec.Vehicles[idx]
	v.Completed = completed
	v.StoppedAt = stoppedAt.String()
	if err != nil {
		v.Error = err.Error()
	}
}

// FilesSaved appends downloaded files to the record.
func (r *Recorder) FilesSaved(files []run.SavedFile) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record.Files = append(r.record.Files, files...)
}

func (r *Recorder) handleEvent(e event.Event) {
	ev, ok := e.(*event.ScreenshotSaved)
	if !ok {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record.Screenshots = append(r.record.Screenshots, ev.Path)
}

// Finish stops listening, stamps the record with the end time and runErr,
// and saves it. Events still queued on the bus are only seen if the bus was
// closed before Finish is called.
func (r *Recorder) Finish(ctx context.Context, runErr error) (*run.Record, error) {
	if r.eventBus != nil && r.subID != "" {
		r.eventBus.Unsubscribe(r.subID)
	}

	r.mu.Lock()
	r.record.FinishedAt = r.now()
	if runErr != nil {
		r.record.Error = runErr.Error()
	}
	r.mu.Unlock()

	rec := r.Snapshot()
	if r.repo == nil {
		return &rec, nil
	}
	if err := r.repo.Save(ctx, &rec); err != nil {
		return &rec, fmt.Errorf("failed to save run record: %w", err)
	}

	r.logger.Info("Run recorded",
		"run_id", rec.ID,
		"mode", rec.Mode,
		"vehicles", len(rec.Vehicles),
		"completed", rec.CompletedVehicles(),
		"files", len(rec.Files),
		"bytes", rec.TotalBytes(),
		"duration", rec.Duration().Round(time.Second))
	return &rec, nil
}
