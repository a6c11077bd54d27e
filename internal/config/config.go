package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config holds the settings shared by alarm-clockd and alarmctl.
type Config struct {
	// ServerAddress is the gRPC address the daemon listens on and the CLI dials.
	ServerAddress string `yaml:"server_addr" toml:"server_addr"`
	// MetricsAddress is the HTTP address serving /metrics; empty disables it.
	MetricsAddress string `yaml:"metrics_addr" toml:"metrics_addr"`
	// Timeout is the duration for RPC calls made by the CLI.
	Timeout Duration `yaml:"timeout" toml:"timeout"`
	// Locale selects the notification language, for example "en" or "ru".
	Locale string `yaml:"locale" toml:"locale"`
	// DesktopNotifications shows notifications with the OS notification tool.
	DesktopNotifications bool `yaml:"desktop_notifications" toml:"desktop_notifications"`
	// AllowMultipleInstances disables the single running daemon guard.
	AllowMultipleInstances bool `yaml:"allow_multiple_instances" toml:"allow_multiple_instances"`
	// Log configures the global logger.
	Log LogConfig `yaml:"log" toml:"log"`
	// Store selects and configures the alarm store.
	Store StoreConfig `yaml:"store" toml:"store"`
	// Ringing configures ring episodes.
	Ringing RingingConfig `yaml:"ringing" toml:"ringing"`
	// Snooze holds defaults applied to alarms saved without snooze settings.
	Snooze SnoozeConfig `yaml:"snooze" toml:"snooze"`
	// Retry bounds retries of store and scheduler calls.
	Retry RetryConfig `yaml:"retry" toml:"retry"`
	// NATS configures trigger ingest and notification publishing.
	NATS NATSConfig `yaml:"nats" toml:"nats"`
}

// LogConfig configures logging.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level" toml:"level"`
	// Format is console or json.
	Format string `yaml:"format" toml:"format"`
}

// StoreConfig configures the alarm store backend.
type StoreConfig struct {
	// Driver is memory, sqlite or nats.
	Driver string `yaml:"driver" toml:"driver"`
	// DSN is the sqlite database path.
	DSN string `yaml:"dsn" toml:"dsn"`
	// Bucket is the JetStream key-value bucket for the nats driver.
	Bucket string `yaml:"bucket" toml:"bucket"`
}

// RingingConfig configures ring episodes and the ringing resource.
type RingingConfig struct {
	// Timeout is how long an alarm rings before it is missed.
	Timeout Duration `yaml:"timeout" toml:"timeout"`
	// UpcomingWindow is how far ahead an upcoming notification is shown.
	UpcomingWindow Duration `yaml:"upcoming_window" toml:"upcoming_window"`
	// Audio enables sound playback through the system audio device.
	Audio bool `yaml:"audio" toml:"audio"`
	// SoundsDir is where relative sound paths are resolved.
	SoundsDir string `yaml:"sounds_dir" toml:"sounds_dir"`
	// ExactSchedulingDisabled simulates a revoked exact scheduling capability.
	ExactSchedulingDisabled bool `yaml:"exact_scheduling_disabled" toml:"exact_scheduling_disabled"`
	// UndoLimit is how many deleted alarms can be restored.
	UndoLimit int `yaml:"undo_limit" toml:"undo_limit"`
}

// SnoozeConfig holds default snooze settings.
type SnoozeConfig struct {
	// IntervalMinutes is the default snooze interval.
	IntervalMinutes int `yaml:"interval_minutes" toml:"interval_minutes"`
	// MaxCount is the default number of snoozes per ring episode.
	MaxCount int `yaml:"max_count" toml:"max_count"`
}

// RetryConfig bounds retries inside transitions.
type RetryConfig struct {
	// MaxRetries is the number of retries after the first failure.
	MaxRetries int `yaml:"max_retries" toml:"max_retries"`
	// Initial is the first retry delay.
	Initial Duration `yaml:"initial" toml:"initial"`
	// Max caps the retry delay.
	Max Duration `yaml:"max" toml:"max"`
}

// NATSConfig configures the optional NATS integration.
type NATSConfig struct {
	// URL is the server list; empty disables NATS.
	URL string `yaml:"url" toml:"url"`
	// TriggerSubject receives externally delivered triggers.
	TriggerSubject string `yaml:"trigger_subject" toml:"trigger_subject"`
	// NotificationSubject receives rendered notifications.
	NotificationSubject string `yaml:"notification_subject" toml:"notification_subject"`
}

// Store drivers.
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
	DriverNATS   = "nats"
)

const (
	// DefaultConfigFilename is the default filename for settings.
	DefaultConfigFilename = "alarm-clock-settings.yaml"

	// DefaultDatabaseFilename is the default sqlite database path.
	DefaultDatabaseFilename = "alarm-clock.db"

	// DefaultTimeout is the default duration for RPC calls.
	DefaultTimeout = 5 * time.Second

	// DefaultRingTimeout is how long an alarm rings before it is missed.
	DefaultRingTimeout = 10 * time.Minute

	// DefaultUpcomingWindow is how far ahead an upcoming notification is shown.
	DefaultUpcomingWindow = 30 * time.Minute

	// DefaultSnoozeInterval is the default snooze interval in minutes.
	DefaultSnoozeInterval = 5

	// DefaultSnoozeCount is the default snooze limit.
	DefaultSnoozeCount = 3

	// DefaultUndoLimit is how many deleted alarms are kept for undo.
	DefaultUndoLimit = 20

	// DefaultBucket is the default JetStream key-value bucket.
	DefaultBucket = "alarm_clock_alarms"

	// DefaultTriggerSubject is the default subject for external triggers.
	DefaultTriggerSubject = "alarmclock.triggers"

	// DefaultNotificationSubject is the default subject for notifications.
	DefaultNotificationSubject = "alarmclock.notifications"

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600

	defaultRetries      = 3
	defaultRetryInitial = 200 * time.Millisecond
	defaultRetryMax     = 2 * time.Second
	defaultLocale       = "en"
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errServerSocketRequired is returned when server address is missing.
	errServerSocketRequired = errors.New("server address must be provided")
	// errUnknownDriver is returned for unsupported store drivers.
	errUnknownDriver = errors.New("unknown store driver")
	// errNATSRequired is returned when the nats store is selected without a URL.
	errNATSRequired = errors.New("nats url is required by the nats store driver")
)

// Load reads configuration from the provided path, applies environment
// overrides and validates essential fields.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	cfg, err := Parse(path, contents)
	if err != nil {
		return nil, err
	}

	ApplyEnv(cfg)

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Parse decodes settings, picking TOML or YAML by file extension.
func Parse(path string, contents []byte) (*Config, error) {
	var cfg Config

	if isTOML(path) {
		if err := toml.Unmarshal(contents, &cfg); err != nil {
			return nil, fmt.Errorf("unmarshal toml settings: %w", err)
		}

		return &cfg, nil
	}

	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	return &cfg, nil
}

// Save writes settings to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	var (
		data []byte
		err  error
	)

	if isTOML(path) {
		data, err = toml.Marshal(cfg)
	} else {
		data, err = yaml.Marshal(cfg)
	}

	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks the provided settings for required fields and fills defaults.
//
//nolint:cyclop // A flat list of defaults reads better than helpers.
func Validate(settings *Config) error {
	if settings == nil {
		return errConfigIsNotSet
	}

	if settings.ServerAddress == "" {
		return errServerSocketRequired
	}

	if _, err := net.ResolveTCPAddr("tcp", settings.ServerAddress); err != nil {
		return fmt.Errorf("invalid server socket: %w", err)
	}

	if settings.Timeout <= 0 {
		settings.Timeout = Duration(DefaultTimeout)
	}

	if settings.Locale == "" {
		settings.Locale = defaultLocale
	}

	if settings.Log.Level == "" {
		settings.Log.Level = "info"
	}

	if settings.Ringing.Timeout <= 0 {
		settings.Ringing.Timeout = Duration(DefaultRingTimeout)
	}

	if settings.Ringing.UpcomingWindow <= 0 {
		settings.Ringing.UpcomingWindow = Duration(DefaultUpcomingWindow)
	}

	if settings.Ringing.UndoLimit <= 0 {
		settings.Ringing.UndoLimit = DefaultUndoLimit
	}

	if settings.Snooze.IntervalMinutes <= 0 {
		settings.Snooze.IntervalMinutes = DefaultSnoozeInterval
	}

	if settings.Snooze.MaxCount <= 0 {
		settings.Snooze.MaxCount = DefaultSnoozeCount
	}

	if settings.Retry.MaxRetries <= 0 {
		settings.Retry.MaxRetries = defaultRetries
	}

	if settings.Retry.Initial <= 0 {
		settings.Retry.Initial = Duration(defaultRetryInitial)
	}

	if settings.Retry.Max <= 0 {
		settings.Retry.Max = Duration(defaultRetryMax)
	}

	if settings.NATS.TriggerSubject == "" {
		settings.NATS.TriggerSubject = DefaultTriggerSubject
	}

	if settings.NATS.NotificationSubject == "" {
		settings.NATS.NotificationSubject = DefaultNotificationSubject
	}

	return validateStore(settings)
}

func validateStore(settings *Config) error {
	store := &settings.Store

	store.Driver = strings.ToLower(strings.TrimSpace(store.Driver))
	if store.Driver == "" {
		store.Driver = DriverSQLite
	}

	switch store.Driver {
	case DriverMemory:
	case DriverSQLite:
		if store.DSN == "" {
			store.DSN = DefaultDatabaseFilename
		}
	case DriverNATS:
		if settings.NATS.URL == "" {
			return errNATSRequired
		}

		if store.Bucket == "" {
			store.Bucket = DefaultBucket
		}
	default:
		return fmt.Errorf("%w: %q", errUnknownDriver, store.Driver)
	}

	return nil
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}
