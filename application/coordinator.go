// Package application orchestrates a run: login, the per-vehicle
// navigation loop and log retrieval over one browser session.
package application

import (
	"context"
	"fmt"
	"log/slog"

	"ulogscraper-go/application/session"
	"ulogscraper-go/core/event"
	"ulogscraper-go/core/eventbus"
	"ulogscraper-go/core/state"
	"ulogscraper-go/domain/credential"
	"ulogscraper-go/domain/run"
	"ulogscraper-go/domain/vehicle"
)

// Session is the lifecycle part of a browser session.
type Session interface {
	ID() string
	Start(ctx context.Context) error
	Close(ctx context.Context, keepOpen bool) error
}

// Authenticator signs the session in.
type Authenticator interface {
	Login(ctx context.Context, creds credential.Credentials) (bool, error)
}

// Navigator walks the vehicle pages.
type Navigator interface {
	NavigateAndDownload(ctx context.Context, target session.Target) (*state.NavigationState, error)
	OpenVehicles(ctx context.Context, name string) (*state.NavigationState, error)
	Search(ctx context.Context, nav *state.NavigationState, query string) error
	ResumeFrom(ctx context.Context, nav *state.NavigationState, target session.Target) error
}

// LogFetcher downloads log files over HTTP.
type LogFetcher interface {
	FetchLogs(ctx context.Context) ([]run.SavedFile, error)
}

// Ledger receives the outcomes a run record is built from. Calls are made
// synchronously, in run order.
type Ledger interface {
	LoginSucceeded()
	VehicleStarted(job vehicle.Job)
	VehicleFinished(name string, completed bool, stoppedAt state.NavStep, err error)
	FilesSaved(files []run.SavedFile)
}

// Coordinator drives one session through the steps of a run.
type Coordinator struct {
	// Components
	session   Session
	auth      Authenticator
	navigator Navigator
	retriever LogFetcher

	// Dependencies
	eventBus eventbus.EventBus
	ledger   Ledger
	logger   *slog.Logger

	flightMatch string
}

// CoordinatorConfig holds configuration for the Coordinator.
type CoordinatorConfig struct {
	Session       Session
	Authenticator Authenticator
	Navigator     Navigator
	Retriever     LogFetcher
	EventBus      eventbus.EventBus
	Ledger        Ledger
	Logger        *slog.Logger

	// FlightMatch must appear in the flight row of every vehicle.
	FlightMatch string
}

// NewCoordinator creates a new coordinator.
func NewCoordinator(cfg *CoordinatorConfig) *Coordinator {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Coordinator{
		session:     cfg.Session,
		auth:        cfg.Authenticator,
		navigator:   cfg.Navigator,
		retriever:   cfg.Retriever,
		eventBus:    cfg.EventBus,
		ledger:      cfg.Ledger,
		logger:      cfg.Logger,
		flightMatch: cfg.FlightMatch,
	}
}

// Login starts the browser and signs in. Any error is fatal to the run.
func (c *Coordinator) Login(ctx context.Context, creds credential.Credentials) error {
	if err := c.session.Start(ctx); err != nil {
		return err
	}

	ok, err := c.auth.Login(ctx, creds)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}
	if !ok {
		return fmt.Errorf("login failed")
	}
	if c.ledger != nil {
		c.ledger.LoginSucceeded()
	}
	return nil
}

// Navigate runs the full traversal for a single vehicle. The returned error
// describes an early stop; it is informational and never fatal.
func (c *Coordinator) Navigate(ctx context.Context, job vehicle.Job, target session.Target) (*state.NavigationState, error) {
	c.started(job, 1, 1)

	nav, err := c.guard(job.Name, func() (*state.NavigationState, error) {
		return c.navigator.NavigateAndDownload(ctx, target)
	})

	c.finish(job, nav, err)
	return nav, err
}

// ProcessAll walks every job through the vehicle pages, strictly in order.
// A failing job never stops the loop, so every job gets exactly one cycle.
// Cancellation of ctx is checked between jobs; the remaining jobs are then
// skipped. It returns the number of jobs whose traversal completed.
func (c *Coordinator) ProcessAll(ctx context.Context, jobs []vehicle.Job) int {
	total := len(jobs)
	completed := 0

	c.logger.Info("Processing vehicles", "count", total)
	for i, job := range jobs {
		if err := ctx.Err(); err != nil {
			c.logger.Warn("Batch interrupted", "processed", i, "remaining", total-i, "error", err)
			break
		}

		c.logger.Info("Processing vehicle", "index", i+1, "total", total, "vehicle", job.Name,
			"start_date", job.StartDate, "end_date", job.EndDate)
		c.started(job, i+1, total)

		nav, err := c.guard(job.Name, func() (*state.NavigationState, error) {
			return c.processVehicle(ctx, job)
		})

		if c.finish(job, nav, err) {
			completed++
		}
	}

	c.logger.Info("All vehicles processed", "completed", completed, "total", total)
	return completed
}

// processVehicle opens the vehicles list, searches for the job's vehicle and
// runs the remaining steps with the vehicle name as the link text to match.
func (c *Coordinator) processVehicle(ctx context.Context, job vehicle.Job) (*state.NavigationState, error) {
	nav, err := c.navigator.OpenVehicles(ctx, job.Name)
	if err != nil {
		return nav, err
	}
	if err := c.navigator.Search(ctx, nav, job.Name); err != nil {
		return nav, err
	}

	target := session.Target{Query: job.Name, Match: job.Name, Flight: c.flightMatch}
	return nav, c.navigator.ResumeFrom(ctx, nav, target)
}

// FetchLogs downloads the log files linked from the logs page.
func (c *Coordinator) FetchLogs(ctx context.Context) ([]run.SavedFile, error) {
	files, err := c.retriever.FetchLogs(ctx)
	if c.ledger != nil && len(files) > 0 {
		c.ledger.FilesSaved(files)
	}
	if err != nil {
		return files, fmt.Errorf("log retrieval failed: %w", err)
	}
	c.logger.Info("Log retrieval finished", "files", len(files))
	return files, nil
}

// Close ends the session, leaving the browser open when keepOpen is set.
func (c *Coordinator) Close(ctx context.Context, keepOpen bool) error {
	return c.session.Close(ctx, keepOpen)
}

// guard runs fn, turning a panic into an error so one vehicle cannot abort the batch.
func (c *Coordinator) guard(name string, fn func() (*state.NavigationState, error)) (nav *state.NavigationState, err error) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("Vehicle processing panicked", "vehicle", name, "panic", r)
			err = fmt.Errorf("panic while processing %s: %v", name, r)
		}
	}()
	return fn()
}

// finish logs and publishes the outcome of one job and reports whether it completed.
func (c *Coordinator) finish(job vehicle.Job, nav *state.NavigationState, err error) bool {
	completed := err == nil && nav != nil && nav.Completed()
	stoppedAt := state.StepNone
	if nav != nil {
		stoppedAt = nav.Step
	}

	switch {
	case completed:
		c.logger.Info("Vehicle processed", "vehicle", job.Name, "path", nav.Path())
	case err != nil:
		c.logger.Error("Error processing vehicle", "vehicle", job.Name, "step", stoppedAt, "error", err)
	default:
		c.logger.Warn("Vehicle navigation incomplete", "vehicle", job.Name, "step", stoppedAt)
	}

	if c.ledger != nil {
		c.ledger.VehicleFinished(job.Name, completed, stoppedAt, err)
	}
	c.publish(event.NewVehicleFinished(c.sessionID(), job.Name, completed, stoppedAt, err))
	return completed
}

func (c *Coordinator) started(job vehicle.Job, index, total int) {
	if c.ledger != nil {
		c.ledger.VehicleStarted(job)
	}
	c.publish(event.NewVehicleStarted(c.sessionID(), index, total, job.Name, job.StartDate, job.EndDate))
}

func (c *Coordinator) sessionID() string {
	if c.session == nil {
		return ""
	}
	return c.session.ID()
}

func (c *Coordinator) publish(e event.Event) {
	if c.eventBus != nil {
		c.eventBus.Publish(e)
	}
}
