// Package config loads uniguide settings from the config file, UNIGUIDE_*
// environment variables and the OS keyring.
package config

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

type Config struct {
	Remote  RemoteConfig
	Storage StorageConfig
	Log     LogConfig
	Chat    ChatConfig
}

type RemoteConfig struct {
	BaseURL string
	Timeout time.Duration
	Retries int
	// Token is the bearer token. It never comes from the config file.
	Token string
}

type StorageConfig struct {
	DataDir string
}

type LogConfig struct {
	Level string
}

type ChatConfig struct {
	Greeting string
}

func defaults() Config {
	return Config{
		Remote: RemoteConfig{
			BaseURL: "http://localhost:8000",
			Timeout: 30 * time.Second,
			Retries: 1,
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the YAML file at
// $XDG_CONFIG_HOME/uniguide/config.yaml, then applies UNIGUIDE_* environment
// overrides. The remote token comes from UNIGUIDE_REMOTE_TOKEN or, failing
// that, the OS keyring.
func Load() (Config, error) {
	b, err := newFileBackend(FilePath())
	if err != nil {
		return Config{}, err
	}
	return loadWith(b, keyringSecrets{})
}

func loadWith(b ConfigBackend, sec SecretStore) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	if cfg.Remote.Token == "" {
		tok, err := sec.Get(tokenKey)
		switch {
		case err == nil:
			cfg.Remote.Token = tok
		case errors.Is(err, ErrNoSecret):
		default:
			slog.Debug("keyring unavailable", "error", err)
		}
	}

	return cfg, nil
}

// LogLevel maps the configured level name to a slog.Level. Unknown names
// fall back to info.
func (c Config) LogLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// FilePath returns the location of the config file.
func FilePath() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			dir = filepath.Join(home, ".config")
		} else {
			dir = "."
		}
	}
	return filepath.Join(dir, "uniguide", "config.yaml")
}

func defaultDataDir() string {
	dir := os.Getenv("XDG_DATA_HOME")
	if dir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			dir = filepath.Join(home, ".local", "share")
		} else {
			return "uniguide-data"
		}
	}
	return filepath.Join(dir, "uniguide")
}
