// Package session drives one authenticated browser session: login,
// page traversal and log retrieval against the dashboard.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"ulogscraper-go/core/event"
	"ulogscraper-go/core/eventbus"
	"ulogscraper-go/core/state"
	"ulogscraper-go/domain/locator"
	"ulogscraper-go/infrastructure/browser"
)

// SentinelFile is written to the log directory when the browser is left open.
const SentinelFile = "browser_open.txt"

// Session owns the browser of a run and its state machine.
// A process has at most one session, used by one goroutine at a time.
type Session struct {
	// Identity
	id string

	// State
	state   state.SessionState
	nav     *state.NavigationState
	stateMu sync.RWMutex

	// Components
	browserCtrl *BrowserController
	screenCap   *ScreenCapture

	// Dependencies
	driver   browser.Driver
	eventBus eventbus.EventBus
	locators *locator.Registry
	logger   *slog.Logger

	baseURL string
	logDir  string
	timings Timings
	now     func() time.Time
}

// Config holds configuration for creating a new Session.
type Config struct {
	ID          string
	Driver      browser.Driver
	EventBus    eventbus.EventBus
	Locators    *locator.Registry
	Logger      *slog.Logger
	BaseURL     string
	LogDir      string
	Screenshots bool
	Timings     Timings
}

// New creates a new Session.
func New(cfg *Config) *Session {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.LogDir == "" {
		cfg.LogDir = "logs"
	}

	logger := cfg.Logger.With("session_id", cfg.ID)
	s := &Session{
		id:       cfg.ID,
		state:    state.StateIdle,
		driver:   cfg.Driver,
		eventBus: cfg.EventBus,
		locators: cfg.Locators,
		logger:   logger,
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		logDir:   cfg.LogDir,
		timings:  cfg.Timings,
		now:      time.Now,
	}

	s.browserCtrl = NewBrowserController(s.driver, s.logger)
	s.screenCap = NewScreenCapture(s.driver, s.logDir, cfg.Screenshots, s.logger)

	return s
}

// ID returns the session ID.
func (s *Session) ID() string {
	return s.id
}

// State returns the current session state.
func (s *Session) State() state.SessionState {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.state
}

// Navigation returns the last traversal recorded with SetNavigation.
func (s *Session) Navigation() *state.NavigationState {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.nav
}

// SetNavigation records the traversal that the sentinel file reports on close.
func (s *Session) SetNavigation(nav *state.NavigationState) {
	s.stateMu.Lock()
	s.nav = nav
	s.stateMu.Unlock()
}

// Logger returns the session-scoped logger.
func (s *Session) Logger() *slog.Logger {
	return s.logger
}

// Timings returns the waits used by the session's flows.
func (s *Session) Timings() Timings {
	return s.timings
}

// LogDir returns the directory for screenshots, the sentinel and downloads.
func (s *Session) LogDir() string {
	return s.logDir
}

// URL joins the dashboard base URL and path.
func (s *Session) URL(path string) string {
	return s.baseURL + "/" + strings.TrimLeft(path, "/")
}

// Host returns the host name of the dashboard.
func (s *Session) Host() string {
	u, err := url.Parse(s.baseURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

// Control looks up a control of the locator catalogue.
func (s *Session) Control(flow, name string) (locator.Control, error) {
	if s.locators == nil {
		return locator.Control{}, fmt.Errorf("no locator catalogue configured")
	}
	return s.locators.Control(flow, name)
}

// Start launches the browser and moves the session to LoggingIn.
func (s *Session) Start(ctx context.Context) error {
	if err := s.transitionTo(state.StateStarting); err != nil {
		return err
	}

	if err := s.driver.Start(ctx); err != nil {
		_ = s.transitionTo(state.StateStopped)
		return fmt.Errorf("failed to start browser: %w", err)
	}

	if err := s.transitionTo(state.StateLoggingIn); err != nil {
		return err
	}
	s.logger.Info("Browser started")
	return nil
}

// CookieMap returns the browser cookies as a name to value mapping.
func (s *Session) CookieMap(ctx context.Context) (map[string]string, error) {
	cookies, err := s.browserCtrl.GetCookies(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get cookies: %w", err)
	}
	return browser.CookieMap(cookies), nil
}

// Screenshot saves a checkpoint screenshot named name. Failures are logged only.
func (s *Session) Screenshot(ctx context.Context, name string) {
	if current := s.State(); !current.CanAcceptOperations() {
		s.logger.Debug("Skipping screenshot, browser not in use", "name", name, "state", current)
		return
	}
	if path := s.screenCap.Checkpoint(ctx, name); path != "" {
		s.publishEvent(event.NewScreenshotSaved(s.id, name, path))
	}
}

// SentinelPath returns the file written when the browser is left open.
func (s *Session) SentinelPath() string {
	return filepath.Join(s.logDir, SentinelFile)
}

// Close ends the session. With keepOpen the browser is left running for
// manual inspection: a sentinel file records where it was left and the
// session detaches instead of stopping the browser.
func (s *Session) Close(ctx context.Context, keepOpen bool) error {
	current := s.State()
	if !current.IsActive() {
		return nil
	}

	if keepOpen && current.CanTransitionTo(state.StateDetached) {
		return s.detach(ctx)
	}
	if keepOpen {
		s.logger.Warn("Browser cannot be kept open in current state, closing it", "state", current)
	}

	if err := s.transitionTo(state.StateStopping); err != nil {
		return err
	}
	stopErr := s.driver.Stop()
	if stopErr != nil {
		s.logger.Error("Failed to stop browser", "error", stopErr)
	}
	_ = s.transitionTo(state.StateStopped)
	s.publishEvent(event.NewSessionClosed(s.id, false, ""))
	return stopErr
}

func (s *Session) detach(ctx context.Context) error {
	pageURL, err := s.browserCtrl.CurrentURL(ctx)
	if err != nil {
		s.logger.Warn("Failed to read current URL", "error", err)
	}

	if err := s.writeSentinel(pageURL); err != nil {
		s.logger.Error("Failed to write sentinel file", "error", err)
	}

	if err := s.driver.Detach(); err != nil {
		return fmt.Errorf("failed to detach from browser: %w", err)
	}
	if err := s.transitionTo(state.StateDetached); err != nil {
		return err
	}

	s.publishEvent(event.NewSessionClosed(s.id, true, pageURL))
	s.logger.Info("Browser left open for manual inspection", "url", pageURL, "sentinel", s.SentinelPath())
	return nil
}

func (s *Session) writeSentinel(pageURL string) error {
	if err := os.MkdirAll(s.logDir, 0755); err != nil {
		return err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Browser remains open with session at: %s\n", pageURL)
	if nav := s.Navigation(); nav != nil && len(nav.Trail) > 0 {
		fmt.Fprintf(&b, "Navigation for %s: %s\n", nav.Target, nav.Path())
		if nav.Stopped() {
			fmt.Fprintf(&b, "Stopped: %s\n", nav.StopReason)
		}
	}
	fmt.Fprintf(&b, "Left open at: %s\n", s.now().Format(time.RFC3339))
	b.WriteString("Close the browser manually when finished examining.\n")

	return os.WriteFile(s.SentinelPath(), []byte(b.String()), 0644)
}

// State transition helpers

func (s *Session) transitionTo(newState state.SessionState) error {
	s.stateMu.Lock()
	oldState := s.state

	if !oldState.CanTransitionTo(newState) {
		s.stateMu.Unlock()
		return state.NewTransitionError(oldState, newState, "invalid transition")
	}

	s.state = newState
	s.stateMu.Unlock()

	s.publishEvent(event.NewSessionStateChanged(s.id, oldState, newState))
	s.logger.Debug("State changed", "from", oldState, "to", newState)

	return nil
}

// beginNavigation moves the session into Navigating when it can navigate.
// It reports whether a matching endNavigation is needed.
func (s *Session) beginNavigation() bool {
	current := s.State()
	if !current.CanNavigate() {
		if current != state.StateNavigating {
			s.logger.Debug("Navigating outside of Ready state", "state", current)
		}
		return false
	}
	if err := s.transitionTo(state.StateNavigating); err != nil {
		s.logger.Debug("Navigation state change failed", "error", err)
		return false
	}
	return true
}

func (s *Session) endNavigation() {
	if s.State() == state.StateNavigating {
		_ = s.transitionTo(state.StateReady)
	}
}

func (s *Session) publishEvent(e event.Event) {
	if s.eventBus != nil {
		s.eventBus.Publish(e)
	}
}
