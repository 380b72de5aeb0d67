package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"ulogscraper-go/application"
	"ulogscraper-go/application/session"
	"ulogscraper-go/core/eventbus"
	"ulogscraper-go/core/state"
	"ulogscraper-go/domain/credential"
	"ulogscraper-go/domain/locator"
	"ulogscraper-go/domain/run"
	"ulogscraper-go/infrastructure/browser"
	"ulogscraper-go/infrastructure/httpfetch"
	"ulogscraper-go/infrastructure/logging"
	"ulogscraper-go/infrastructure/repository"
	"ulogscraper-go/infrastructure/settings"
	"ulogscraper-go/resources"
)

// RunsDir holds the YAML run ledger inside the log directory when no MongoDB is configured.
const RunsDir = "runs"

// shutdownTimeout bounds closing the browser and saving the run record.
const shutdownTimeout = 30 * time.Second

// app is everything one run needs, wired from the settings.
type app struct {
	settings *settings.Settings
	logger   *slog.Logger
	closeLog func() error

	eventBus  eventbus.EventBus
	session   *session.Session
	auth      *session.Authenticator
	navigator *session.Navigator
	retriever *session.Retriever
	coord     *application.Coordinator
	recorder  *application.Recorder

	repo  run.Repository
	mongo *repository.MongoDB
}

func loadSettings() (*settings.Settings, error) {
	s, err := settings.Load(v, settingsFile)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func setupLogging(s *settings.Settings) (*slog.Logger, func() error, error) {
	level, err := logging.ParseLevel(s.Logging.Level)
	if err != nil {
		return nil, nil, err
	}

	cfg := logging.DefaultConfig()
	cfg.Level = level
	cfg.Dir = s.LogDir
	cfg.MaxSizeMB = s.Logging.MaxSizeMB
	cfg.MaxBackups = s.Logging.MaxBackups
	cfg.MaxAgeDays = s.Logging.MaxAgeDays
	return logging.Setup(cfg)
}

func loadLocators() (*locator.Registry, error) {
	registry := locator.NewRegistry()
	if err := locator.NewLoader(registry).LoadFromFS(resources.LocatorFiles); err != nil {
		return nil, fmt.Errorf("failed to load locators: %w", err)
	}
	if err := registry.Require(session.FlowLogin, session.LoginControls...); err != nil {
		return nil, err
	}
	if err := registry.Require(session.FlowNavigation, session.NavigationControls...); err != nil {
		return nil, err
	}
	return registry, nil
}

// openRepository connects to MongoDB when a URI is configured and falls back
// to YAML files under <log_dir>/runs otherwise.
func openRepository(ctx context.Context, s *settings.Settings, logger *slog.Logger) (run.Repository, *repository.MongoDB, error) {
	if s.Mongo.URI == "" {
		return repository.NewFileRunRepository(filepath.Join(s.LogDir, RunsDir), logger), nil, nil
	}

	cfg := repository.DefaultMongoDBConfig()
	cfg.URI = s.Mongo.URI
	if s.Mongo.Database != "" {
		cfg.Database = s.Mongo.Database
	}
	db, err := repository.NewMongoDB(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	if err := db.EnsureIndexes(ctx); err != nil {
		logger.Warn("Run history index unavailable", "error", err)
	}
	return repository.NewMongoRunRepository(db, logger), db, nil
}

func newDriver(s *settings.Settings) browser.Driver {
	cfg := browser.DefaultDriverConfig()
	cfg.Headless = s.Headless
	cfg.DownloadDir = filepath.Join(s.LogDir, session.DownloadDir)
	cfg.KeepAlive = s.KeepBrowserOpen
	return browser.NewChromeDPDriver(cfg)
}

// newApp wires the components of a run of the given mode.
func newApp(ctx context.Context, mode run.Mode) (*app, error) {
	s, err := loadSettings()
	if err != nil {
		return nil, err
	}

	logger, closeLog, err := setupLogging(s)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logging: %w", err)
	}
	a := &app{settings: s, logger: logger, closeLog: closeLog}

	registry, err := loadLocators()
	if err != nil {
		a.shutdownLog()
		return nil, err
	}
	logger.Info("Locators loaded", "flows", registry.Count())

	repo, db, err := openRepository(ctx, s, logger)
	if err != nil {
		a.shutdownLog()
		return nil, err
	}
	a.repo, a.mongo = repo, db

	a.eventBus = eventbus.NewWithLogger(100, logger)
	a.recorder = application.NewRecorder(a.eventBus, a.repo, mode, logger)

	a.session = session.New(&session.Config{
		ID:          uuid.NewString()[:8],
		Driver:      newDriver(s),
		EventBus:    a.eventBus,
		Locators:    registry,
		Logger:      logger.With("run_id", a.recorder.ID()),
		BaseURL:     s.BaseURL,
		LogDir:      s.LogDir,
		Screenshots: s.Screenshots,
		Timings:     session.TimingsFromSettings(s),
	})

	fetcher := httpfetch.NewClient(httpfetch.ClientConfig{
		Timeout:      s.Fetch.Timeout,
		AllowedHosts: s.Fetch.AllowedHosts,
	})
	limiter := rate.NewLimiter(rate.Limit(s.Fetch.RatePerSecond), 1)

	a.auth = session.NewAuthenticator(a.session)
	a.navigator = session.NewNavigator(a.session)
	a.retriever = session.NewRetriever(a.session, fetcher, limiter)
	a.coord = application.NewCoordinator(&application.CoordinatorConfig{
		Session:       a.session,
		Authenticator: a.auth,
		Navigator:     a.navigator,
		Retriever:     a.retriever,
		EventBus:      a.eventBus,
		Ledger:        a.recorder,
		Logger:        logger,
		FlightMatch:   s.FlightMatch,
	})

	logger.Info("Starting ulogscraper",
		"mode", mode,
		"run_id", a.recorder.ID(),
		"base_url", s.BaseURL,
		"headless", s.Headless,
		"log_dir", s.LogDir)
	return a, nil
}

// close ends the session, records the run and releases everything newApp opened.
func (a *app) close(runErr error) error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := a.coord.Close(ctx, a.settings.KeepBrowserOpen); err != nil {
		a.logger.Error("Failed to close browser session", "error", err)
	}
	if a.session.State() == state.StateDetached {
		a.logger.Info("Browser left open", "sentinel", a.session.SentinelPath())
	}

	a.eventBus.Close()
	_, saveErr := a.recorder.Finish(ctx, runErr)
	if saveErr != nil {
		a.logger.Error("Failed to record run", "error", saveErr)
	}

	if a.mongo != nil {
		if err := a.mongo.Close(ctx); err != nil {
			a.logger.Warn("Failed to close MongoDB", "error", err)
		}
	}

	if runErr != nil {
		a.logger.Error("Run failed", "error", runErr)
	} else {
		a.logger.Info("Run complete")
	}
	a.shutdownLog()
	return runErr
}

func (a *app) shutdownLog() {
	if a.closeLog != nil {
		_ = a.closeLog()
	}
}

// credentials resolves the login from flags and the environment.
func credentials() (credential.Credentials, error) {
	return credential.Resolve(username, password, nil)
}

// signalContext is cancelled on Ctrl-C or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// withApp resolves credentials, wires an app, runs fn and always tears the app down.
func withApp(parent context.Context, mode run.Mode, fn func(ctx context.Context, a *app, creds credential.Credentials) error) error {
	creds, err := credentials()
	if err != nil {
		return err
	}

	ctx, stop := signalContext(parent)
	defer stop()

	a, err := newApp(ctx, mode)
	if err != nil {
		return err
	}
	return a.close(fn(ctx, a, creds))
}
