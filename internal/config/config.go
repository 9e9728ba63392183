// SPDX-License-Identifier: MIT

// Package config loads runtime configuration with ENV > file > defaults
// precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/renameio/v2"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig classifies configuration validation failures.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds all runtime settings for the hsparc core.
type Config struct {
	DataDir      string `yaml:"data_dir"`       // app home; store.db and studies/ live here
	LogLevel     string `yaml:"log_level"`      // zerolog level string
	SampleRateHz int    `yaml:"sample_rate_hz"` // default export time-series rate
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		DataDir:      defaultDataDir(),
		LogLevel:     "info",
		SampleRateHz: 30,
	}
}

// defaultDataDir resolves the stable per-user app home.
func defaultDataDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "share", "hsparc")
	}
	return filepath.Join(os.TempDir(), "hsparc")
}

// ResolveDataDirFromEnv resolves the data directory from supported environment keys.
func ResolveDataDirFromEnv() string {
	if v := strings.TrimSpace(os.Getenv("HSPARC_DATA_DIR")); v != "" {
		return v
	}
	if v := strings.TrimSpace(os.Getenv("HSPARC_DATA")); v != "" {
		return v
	}
	return ""
}

// Load builds the effective configuration. Precedence: ENV > file > defaults.
// The file is optional; a missing path is not an error, a malformed one is.
func Load(path string) (Config, error) {
	cfg := Defaults()

	if path != "" {
		data, err := os.ReadFile(path) // #nosec G304 -- operator-chosen path
		switch {
		case errors.Is(err, os.ErrNotExist):
			// fall through to env + defaults
		case err != nil:
			return Config{}, fmt.Errorf("read config: %w", err)
		default:
			dec := yaml.NewDecoder(strings.NewReader(string(data)))
			dec.KnownFields(true)
			if err := dec.Decode(&cfg); err != nil {
				return Config{}, fmt.Errorf("%w: parse %s: %v", ErrInvalidConfig, path, err)
			}
		}
	}

	if v := ResolveDataDirFromEnv(); v != "" {
		cfg.DataDir = v
	}
	if v := strings.TrimSpace(os.Getenv("HSPARC_LOG_LEVEL")); v != "" {
		cfg.LogLevel = v
	}
	if v := strings.TrimSpace(os.Getenv("HSPARC_SAMPLE_RATE_HZ")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("%w: HSPARC_SAMPLE_RATE_HZ=%q", ErrInvalidConfig, v)
		}
		cfg.SampleRateHz = n
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("%w: data_dir must not be empty", ErrInvalidConfig)
	}
	switch c.SampleRateHz {
	case 1, 5, 10, 20, 30, 60:
	default:
		return fmt.Errorf("%w: sample_rate_hz %d not in {1,5,10,20,30,60}", ErrInvalidConfig, c.SampleRateHz)
	}
	return nil
}

// Save writes the configuration atomically to path.
func (c Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	if err := renameio.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// StorePath returns the sqlite database location under the data dir.
func (c Config) StorePath() string {
	return filepath.Join(c.DataDir, "store.db")
}

// StudyDir returns the root directory owned by a study.
func (c Config) StudyDir(studyID string) string {
	return filepath.Join(c.DataDir, "studies", studyID)
}

// MediaDir returns the media directory for a recording inside a study.
func (c Config) MediaDir(studyID, recordingID string) string {
	return filepath.Join(c.StudyDir(studyID), "media", recordingID)
}

// InstructionsDir returns the observer-instructions directory for a study.
func (c Config) InstructionsDir(studyID string) string {
	return filepath.Join(c.StudyDir(studyID), "instructions")
}
