// Package config loads the leaplook project configuration.
//
// Values are layered with koanf, lowest to highest precedence: built-in
// defaults, leaplook.yaml (or leaplook.yml), LEAPLOOK_ environment
// variables, then explicitly set command-line flags.
package config

import (
	"log/slog"
	"strings"
	"time"

	"github.com/leapstack-labs/leaplook/pkg/core"
)

// Config holds the full configuration of a run.
type Config struct {
	Source       core.SourceConfig    `koanf:"source"`
	Cookbook     string               `koanf:"cookbook" validate:"required"`
	Lexicon      string               `koanf:"lexicon"`
	OutputDir    string               `koanf:"output_dir" validate:"required"`
	Dialect      string               `koanf:"dialect"`
	Concurrency  int                  `koanf:"concurrency" validate:"min=1,max=256"`
	FetchTimeout time.Duration        `koanf:"fetch_timeout" validate:"gt=0"`
	LogLevel     string               `koanf:"log_level" validate:"oneof=debug info warn error"`
	Verbose      bool                 `koanf:"verbose"`
	OutputFormat string               `koanf:"output" validate:"oneof=auto text markdown json"`
	Datasets     []core.DatasetConfig `koanf:"datasets" validate:"required,min=1,dive"`

	// ProjectRoot is the directory relative paths are resolved against.
	ProjectRoot string `koanf:"-"`
	// File is the config file that was loaded, empty when none was found.
	File string `koanf:"-"`
}

// Level returns the slog level for the configured log level. Verbose
// forces debug.
func (c *Config) Level() slog.Level {
	if c.Verbose {
		return slog.LevelDebug
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Dataset returns the dataset configured for project and dataset ids.
func (c *Config) Dataset(projectID, datasetID string) (*core.DatasetConfig, bool) {
	for i := range c.Datasets {
		ds := &c.Datasets[i]
		if ds.ProjectID == projectID && ds.DatasetID == datasetID {
			return ds, true
		}
	}
	return nil, false
}
