package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Environment variables that override file settings.
const (
	EnvServerAddress  = "ALARM_CLOCK_SERVER_ADDR"
	EnvMetricsAddress = "ALARM_CLOCK_METRICS_ADDR"
	EnvLogLevel       = "ALARM_CLOCK_LOG_LEVEL"
	EnvLogFormat      = "ALARM_CLOCK_LOG_FORMAT"
	EnvStoreDriver    = "ALARM_CLOCK_STORE_DRIVER"
	EnvStoreDSN       = "ALARM_CLOCK_STORE_DSN"
	EnvNATSURL        = "ALARM_CLOCK_NATS_URL"
	EnvLocale         = "ALARM_CLOCK_LOCALE"
	EnvAudio          = "ALARM_CLOCK_AUDIO"
)

// LoadEnvFiles seeds the process environment from .env files.
// Missing files are ignored and existing variables are never overwritten.
func LoadEnvFiles(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env", ".env.local"}
	}

	for _, path := range paths {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}

	return nil
}

// ApplyEnv overrides settings with ALARM_CLOCK_* variables.
func ApplyEnv(cfg *Config) {
	overrides := map[string]*string{
		EnvServerAddress:  &cfg.ServerAddress,
		EnvMetricsAddress: &cfg.MetricsAddress,
		EnvLogLevel:       &cfg.Log.Level,
		EnvLogFormat:      &cfg.Log.Format,
		EnvStoreDriver:    &cfg.Store.Driver,
		EnvStoreDSN:       &cfg.Store.DSN,
		EnvNATSURL:        &cfg.NATS.URL,
		EnvLocale:         &cfg.Locale,
	}

	for key, target := range overrides {
		if value, ok := os.LookupEnv(key); ok {
			*target = value
		}
	}

	if value, ok := os.LookupEnv(EnvAudio); ok {
		if enabled, err := strconv.ParseBool(value); err == nil {
			cfg.Ringing.Audio = enabled
		}
	}
}
