// Package settings loads runtime settings from an optional YAML file, the
// environment (ULOG_ prefix) and command-line flags.
package settings

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to setting keys when read from the environment,
// e.g. ULOG_HEADLESS or ULOG_TIMEOUTS_LOGIN.
const EnvPrefix = "ULOG"

// DefaultFile is the settings file looked up in the working directory.
const DefaultFile = "ulogscraper.yaml"

// Settings holds every tunable of a run.
type Settings struct {
	BaseURL         string `mapstructure:"base_url" validate:"required,url"`
	Headless        bool   `mapstructure:"headless"`
	LogDir          string `mapstructure:"log_dir" validate:"required"`
	Screenshots     bool   `mapstructure:"screenshots"`
	KeepBrowserOpen bool   `mapstructure:"keep_browser_open"`

	// VehicleQuery is typed into the vehicles search box in single-vehicle runs.
	VehicleQuery string `mapstructure:"vehicle_query" validate:"required"`
	// VehicleMatch must appear in the vehicle link text.
	VehicleMatch string `mapstructure:"vehicle_match" validate:"required"`
	// FlightMatch must appear in the flight row text.
	FlightMatch string `mapstructure:"flight_match" validate:"required"`

	Timeouts Timeouts        `mapstructure:"timeouts"`
	Delays   Delays          `mapstructure:"delays"`
	Fetch    FetchSettings   `mapstructure:"fetch"`
	Mongo    MongoSettings   `mapstructure:"mongo"`
	Logging  LoggingSettings `mapstructure:"logging"`
}

// Timeouts bound the condition-based waits.
type Timeouts struct {
	Login    time.Duration `mapstructure:"login" validate:"gt=0"`
	Page     time.Duration `mapstructure:"page" validate:"gt=0"`
	Password time.Duration `mapstructure:"password" validate:"gte=0"`
}

// Delays are fixed settle pauses where the page offers no readiness signal.
type Delays struct {
	Settle   time.Duration `mapstructure:"settle" validate:"gte=0"`
	Content  time.Duration `mapstructure:"content" validate:"gte=0"`
	Form     time.Duration `mapstructure:"form" validate:"gte=0"`
	Search   time.Duration `mapstructure:"search" validate:"gte=0"`
	Download time.Duration `mapstructure:"download" validate:"gte=0"`
	Logs     time.Duration `mapstructure:"logs" validate:"gte=0"`
}

// FetchSettings configure the HTTP log retrieval.
type FetchSettings struct {
	Timeout       time.Duration `mapstructure:"timeout" validate:"gt=0"`
	RatePerSecond float64       `mapstructure:"rate_per_second" validate:"gt=0"`
	AllowedHosts  []string      `mapstructure:"allowed_hosts"`
}

// MongoSettings enable the MongoDB run ledger when URI is set.
type MongoSettings struct {
	URI      string `mapstructure:"uri"`
	Database string `mapstructure:"database"`
}

// LoggingSettings configure the log file.
type LoggingSettings struct {
	Level      string `mapstructure:"level" validate:"omitempty,oneof=debug info warn error DEBUG INFO WARN ERROR"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" validate:"gte=0"`
	MaxBackups int    `mapstructure:"max_backups" validate:"gte=0"`
	MaxAgeDays int    `mapstructure:"max_age_days" validate:"gte=0"`
}

var validate = validator.New()

// New returns a viper instance with defaults and environment binding applied.
// Callers bind flags to it before calling Load.
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// SetDefaults registers the default value of every key.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("base_url", "https://suite.auterion.com")
	v.SetDefault("headless", false)
	v.SetDefault("log_dir", "logs")
	v.SetDefault("screenshots", true)
	v.SetDefault("keep_browser_open", false)
	v.SetDefault("vehicle_query", "dv21")
	v.SetDefault("vehicle_match", "DV21")
	v.SetDefault("flight_match", "MXNT")

	v.SetDefault("timeouts.login", 180*time.Second)
	v.SetDefault("timeouts.page", 30*time.Second)
	v.SetDefault("timeouts.password", 5*time.Second)

	v.SetDefault("delays.settle", 5*time.Second)
	v.SetDefault("delays.content", 8*time.Second)
	v.SetDefault("delays.form", 3*time.Second)
	v.SetDefault("delays.search", 1*time.Second)
	v.SetDefault("delays.download", 5*time.Second)
	v.SetDefault("delays.logs", 3*time.Second)

	v.SetDefault("fetch.timeout", 60*time.Second)
	v.SetDefault("fetch.rate_per_second", 2.0)
	v.SetDefault("fetch.allowed_hosts", []string{"suite.auterion.com"})

	v.SetDefault("mongo.uri", "")
	v.SetDefault("mongo.database", "ulogscraper")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.max_size_mb", 50)
	v.SetDefault("logging.max_backups", 10)
	v.SetDefault("logging.max_age_days", 14)
}

// Load reads the settings file, if any, and decodes v into Settings.
// An explicitly named file must exist; the default file is optional.
func Load(v *viper.Viper, file string) (*Settings, error) {
	if file != "" {
		path, err := homedir.Expand(file)
		if err != nil {
			return nil, fmt.Errorf("invalid settings path %s: %w", file, err)
		}
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading settings file: %w", err)
		}
	} else {
		v.AddConfigPath(".")
		v.SetConfigName(strings.TrimSuffix(DefaultFile, ".yaml"))
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("error reading settings file: %w", err)
			}
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("failed to decode settings: %w", err)
	}

	logDir, err := homedir.Expand(s.LogDir)
	if err != nil {
		return nil, fmt.Errorf("invalid log_dir %s: %w", s.LogDir, err)
	}
	s.LogDir = logDir
	s.BaseURL = strings.TrimRight(s.BaseURL, "/")

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks field constraints.
func (s *Settings) Validate() error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}
	return nil
}
