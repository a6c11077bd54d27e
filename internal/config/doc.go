// Package config defines daemon and CLI settings and provides helpers to
// load, validate, save and watch them.
//
// Settings are read from YAML (or TOML when the file has a .toml extension),
// then overridden by ALARM_CLOCK_* environment variables, optionally seeded
// from .env files.
package config
