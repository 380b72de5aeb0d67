package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ulogscraper-go/core/event"
	"ulogscraper-go/core/state"
	"ulogscraper-go/domain/locator"
	"ulogscraper-go/infrastructure/browser"
)

// Navigation flow and its controls in the locator catalogue.
const (
	FlowNavigation       = "navigation"
	ControlSearchInput   = "search_input"
	ControlVehicleLink   = "vehicle_link"
	ControlAllFlights    = "all_flights"
	ControlFlightEntry   = "flight_entry"
	ControlLogsTab       = "logs_tab"
	ControlViewAnalytics = "view_analytics"
	ControlDownloadLog   = "download_log"
)

// NavigationControls lists the controls the navigation flow requires.
var NavigationControls = []string{
	ControlSearchInput,
	ControlVehicleLink,
	ControlAllFlights,
	ControlFlightEntry,
	ControlLogsTab,
	ControlViewAnalytics,
	ControlDownloadLog,
}

// VehiclesPath is the vehicles listing page of the dashboard.
const VehiclesPath = "/vehicles"

// Target names what a traversal searches for and clicks on.
type Target struct {
	// Query is typed into the vehicles search box.
	Query string
	// Match must appear in the text of the vehicle link.
	Match string
	// Flight must appear in the text of the flight row.
	Flight string
}

func (t Target) vars() map[string]string {
	return map[string]string{
		locator.VarQuery:  t.Query,
		locator.VarTarget: t.Match,
		locator.VarFlight: t.Flight,
	}
}

// clickStep is one "find a control and click it" page of the traversal.
type clickStep struct {
	step       state.NavStep
	control    string
	screenshot string
	// before is waited after the page is ready and before probing
	before func(Timings) time.Duration
	// after is waited after the click
	after func(Timings) time.Duration
}

var clickSteps = []clickStep{
	{
		step:       state.StepVehicleDetails,
		control:    ControlVehicleLink,
		screenshot: "vehicle_details",
		before:     func(t Timings) time.Duration { return t.Settle },
		after:      func(t Timings) time.Duration { return t.Settle },
	},
	{
		step:       state.StepFlightList,
		control:    ControlAllFlights,
		screenshot: "all_flights",
		before:     func(t Timings) time.Duration { return t.Settle },
		after:      func(t Timings) time.Duration { return t.Settle },
	},
	{
		step:       state.StepFlightDetails,
		control:    ControlFlightEntry,
		screenshot: "flight_details",
		before:     func(t Timings) time.Duration { return t.Content },
		after:      func(t Timings) time.Duration { return t.Settle },
	},
	{
		step:       state.StepLogsTab,
		control:    ControlLogsTab,
		screenshot: "logs_tab",
		before:     func(t Timings) time.Duration { return t.Settle },
		after:      func(t Timings) time.Duration { return t.Settle },
	},
	{
		step:       state.StepAnalytics,
		control:    ControlViewAnalytics,
		screenshot: "analytics",
		before:     func(t Timings) time.Duration { return t.Settle },
		after:      func(t Timings) time.Duration { return t.Settle },
	},
	{
		step:       state.StepDownload,
		control:    ControlDownloadLog,
		screenshot: "download",
		before:     func(t Timings) time.Duration { return t.Settle },
		after:      func(t Timings) time.Duration { return t.Download },
	},
}

// Navigator walks from the vehicles list to the log download of one vehicle.
//
// Every method returns the state reached, which is never nil. The error
// explains an early stop: *ElementNotFoundError when a control was missing,
// *NavigationError for any other failure, or the context error. A stop ends
// the traversal without affecting the session, so callers log it and move
// on to the next vehicle.
type Navigator struct {
	session *Session
}

// NewNavigator creates a navigator for s.
func NewNavigator(s *Session) *Navigator {
	return &Navigator{session: s}
}

// NavigateAndDownload runs the whole traversal for target.
func (n *Navigator) NavigateAndDownload(ctx context.Context, target Target) (*state.NavigationState, error) {
	nav, err := n.OpenVehicles(ctx, target.Match)
	if err != nil {
		return nav, err
	}
	if err := n.Search(ctx, nav, target.Query); err != nil {
		return nav, err
	}
	return nav, n.ResumeFrom(ctx, nav, target)
}

// OpenVehicles starts a traversal for name by loading the vehicles listing.
func (n *Navigator) OpenVehicles(ctx context.Context, name string) (*state.NavigationState, error) {
	nav := state.NewNavigationState(name)
	return nav, n.openVehicles(ctx, nav)
}

func (n *Navigator) openVehicles(ctx context.Context, nav *state.NavigationState) error {
	s := n.session
	if began := s.beginNavigation(); began {
		defer s.endNavigation()
	}
	s.SetNavigation(nav)

	ctrl := s.browserCtrl
	step := state.StepVehiclesList

	s.logger.Info("Opening vehicles page", "target", nav.Target)
	if err := ctrl.Navigate(ctx, s.URL(VehiclesPath)); err != nil {
		return n.fail(ctx, nav, step, err)
	}
	if err := n.loaded(ctx, s.timings.Settle); err != nil {
		return n.fail(ctx, nav, step, err)
	}
	return n.reached(ctx, nav, step, "vehicles_page")
}

// Search types query into the vehicles search box and submits it.
// A missing search box is not an error: the traversal continues over the
// unfiltered list and the search step is not recorded.
func (n *Navigator) Search(ctx context.Context, nav *state.NavigationState, query string) error {
	s := n.session
	if began := s.beginNavigation(); began {
		defer s.endNavigation()
	}
	if nav.Stopped() {
		return fmt.Errorf("navigation for %s already stopped: %s", nav.Target, nav.StopReason)
	}

	ctrl := s.browserCtrl
	step := state.StepSearch

	control, err := s.Control(FlowNavigation, ControlSearchInput)
	if err != nil {
		return n.fail(ctx, nav, step, err)
	}
	control = control.Expand(map[string]string{locator.VarQuery: query})

	m, err := ctrl.Find(ctx, control)
	if err != nil {
		if IsElementNotFound(err) {
			s.logger.Warn("Search input not found, continuing with full vehicle list", "target", nav.Target)
			return nil
		}
		return n.fail(ctx, nav, step, err)
	}

	if err := ctrl.Type(ctx, m.Element, query); err != nil {
		return n.fail(ctx, nav, step, err)
	}
	if err := ctrl.Settle(ctx, s.timings.Search); err != nil {
		return n.fail(ctx, nav, step, err)
	}
	if err := m.Element.Submit(ctx); err != nil {
		return n.fail(ctx, nav, step, err)
	}
	s.logger.Info("Searched vehicles", "query", query, "locator", m.Candidate.String())

	if err := n.loaded(ctx, s.timings.Settle); err != nil {
		return n.fail(ctx, nav, step, err)
	}
	return n.reached(ctx, nav, step, "search_results")
}

// ResumeFrom runs the remaining click steps of nav, from the vehicle link to
// the log download. A traversal that has not opened the vehicles listing yet
// opens it first.
func (n *Navigator) ResumeFrom(ctx context.Context, nav *state.NavigationState, target Target) error {
	s := n.session
	if nav.Stopped() {
		return fmt.Errorf("navigation for %s already stopped: %s", nav.Target, nav.StopReason)
	}
	if nav.Step == state.StepNone {
		if err := n.openVehicles(ctx, nav); err != nil {
			return err
		}
	}

	if began := s.beginNavigation(); began {
		defer s.endNavigation()
	}
	s.SetNavigation(nav)

	vars := target.vars()
	for _, cs := range clickSteps {
		if cs.step <= nav.Step {
			continue
		}
		if err := n.click(ctx, nav, cs, vars); err != nil {
			return err
		}
	}

	if nav.Completed() {
		s.logger.Info("Navigation complete", "target", nav.Target, "path", nav.Path())
	}
	return nil
}

func (n *Navigator) click(ctx context.Context, nav *state.NavigationState, cs clickStep, vars map[string]string) error {
	s := n.session
	ctrl := s.browserCtrl

	control, err := s.Control(FlowNavigation, cs.control)
	if err != nil {
		return n.fail(ctx, nav, cs.step, err)
	}
	control = control.Expand(vars)

	if err := ctrl.Settle(ctx, cs.before(s.timings)); err != nil {
		return n.fail(ctx, nav, cs.step, err)
	}

	m, err := ctrl.Find(ctx, control)
	if err != nil {
		return n.fail(ctx, nav, cs.step, err)
	}

	el := m.Element
	if control.ClickChild != "" {
		children, err := el.FindElements(ctx, browser.ByCSS, control.ClickChild)
		if err == nil && len(children) > 0 {
			el = children[0]
		}
	}
	if err := el.Click(ctx); err != nil {
		return n.fail(ctx, nav, cs.step, fmt.Errorf("click %s: %w", control.DisplayName(), err))
	}
	s.logger.Info("Clicked control", "control", control.DisplayName(), "locator", m.Candidate.String())

	if err := n.loaded(ctx, cs.after(s.timings)); err != nil {
		return n.fail(ctx, nav, cs.step, err)
	}
	return n.reached(ctx, nav, cs.step, cs.screenshot)
}

// loaded waits for the page to finish loading and then settles for d.
// A page that never reports ready is logged and tolerated.
func (n *Navigator) loaded(ctx context.Context, d time.Duration) error {
	s := n.session
	if err := s.browserCtrl.WaitReady(ctx, s.timings.PageTimeout); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.logger.Warn("Page did not report ready", "error", err)
	}
	return s.browserCtrl.Settle(ctx, d)
}

func (n *Navigator) reached(ctx context.Context, nav *state.NavigationState, step state.NavStep, screenshot string) error {
	s := n.session
	pageURL, err := s.browserCtrl.CurrentURL(ctx)
	if err != nil {
		s.logger.Debug("Failed to read current URL", "error", err)
	}
	if err := nav.Advance(step, pageURL); err != nil {
		return n.fail(ctx, nav, step, err)
	}

	s.Screenshot(ctx, checkpointName(nav, screenshot))
	s.publishEvent(event.NewStepReached(s.id, nav.Target, step, pageURL))
	s.logger.Info("Step reached", "target", nav.Target, "step", step, "url", pageURL)
	return nil
}

// fail stops the traversal at step and returns the error describing why.
func (n *Navigator) fail(ctx context.Context, nav *state.NavigationState, step state.NavStep, err error) error {
	s := n.session

	switch {
	case IsElementNotFound(err):
		s.logger.Warn("Stopping navigation", "target", nav.Target, "step", step, "reason", err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		s.logger.Warn("Navigation interrupted", "target", nav.Target, "step", step, "error", err)
	default:
		err = &NavigationError{Step: step, Cause: err}
		s.logger.Error("Navigation error", "target", nav.Target, "error", err)
		s.Screenshot(ctx, checkpointName(nav, "navigation_error"))
	}

	nav.Stop(err.Error())
	s.publishEvent(event.NewNavigationStopped(s.id, nav.Target, nav.Step, nav.StopReason))
	return err
}

// checkpointName prefixes a screenshot name with the vehicle being visited.
func checkpointName(nav *state.NavigationState, name string) string {
	if nav.Target == "" {
		return name
	}
	return nav.Target + "_" + name
}
