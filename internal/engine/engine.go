// Package engine runs the generation pipeline over every configured table.
// It fetches schemas concurrently from a warehouse source, then normalizes,
// enriches, splits and serializes each table independently.
package engine

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/leapstack-labs/leaplook/internal/lookml"
	"github.com/leapstack-labs/leaplook/internal/mixer"
	"github.com/leapstack-labs/leaplook/internal/recipe"
	"github.com/leapstack-labs/leaplook/internal/typemap"
	"github.com/leapstack-labs/leaplook/internal/warehouse"
	"github.com/leapstack-labs/leaplook/pkg/core"
)

// Default limits, used when the config leaves them unset.
const (
	DefaultConcurrency  = 8
	DefaultFetchTimeout = 10 * time.Second
)

// Engine orchestrates generation runs.
type Engine struct {
	source       warehouse.Source
	ownsSource   bool
	dialect      *typemap.Dialect
	mixer        *mixer.Mixer
	writer       *lookml.Writer
	datasets     []core.DatasetConfig
	concurrency  int
	fetchTimeout time.Duration
	logger       *slog.Logger
}

// Config holds engine configuration.
type Config struct {
	// CookbookPath is the recipe file. Required.
	CookbookPath string
	// LexiconPath is the optional field-name override file.
	LexiconPath string
	// OutputDir receives the generated LookML.
	OutputDir string
	// Dialect selects the type mapper; empty uses the source's dialect.
	Dialect string
	// Concurrency bounds simultaneous schema fetches.
	Concurrency int
	// FetchTimeout bounds each schema fetch.
	FetchTimeout time.Duration
	Datasets     []core.DatasetConfig

	// SourceConfig opens the warehouse source when Source is nil.
	SourceConfig core.SourceConfig
	// Source is an already open source. The engine does not close it.
	Source warehouse.Source

	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
}

// New loads the recipe inputs, opens the source and creates an engine.
// Recipe and dialect problems are returned as *core.ConfigError.
func New(cfg Config) (*Engine, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	cookbook, err := recipe.LoadCookbook(cfg.CookbookPath)
	if err != nil {
		return nil, err
	}
	var lexicon recipe.Lexicon
	if cfg.LexiconPath != "" {
		if lexicon, err = recipe.LoadLexicon(cfg.LexiconPath); err != nil {
			return nil, err
		}
	}
	m, err := mixer.New(cookbook, lexicon, logger)
	if err != nil {
		return nil, core.NewConfigError(cfg.CookbookPath, err)
	}
	logger.Debug("loaded recipes", "cookbook", cfg.CookbookPath, "recipes", len(cookbook.Recipes), "lexicon_entries", len(lexicon))

	e := &Engine{
		source:       cfg.Source,
		mixer:        m,
		writer:       lookml.NewWriter(cfg.OutputDir, logger),
		datasets:     cfg.Datasets,
		concurrency:  cfg.Concurrency,
		fetchTimeout: cfg.FetchTimeout,
		logger:       logger,
	}
	if e.concurrency <= 0 {
		e.concurrency = DefaultConcurrency
	}
	if e.fetchTimeout <= 0 {
		e.fetchTimeout = DefaultFetchTimeout
	}

	if e.source == nil {
		src, err := warehouse.Open(cfg.SourceConfig, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to open source: %w", err)
		}
		e.source = src
		e.ownsSource = true
	}

	dialectName := cfg.Dialect
	if dialectName == "" {
		dialectName = e.source.Dialect()
	}
	if e.dialect, err = typemap.Lookup(dialectName); err != nil {
		_ = e.Close()
		return nil, core.NewConfigError("", err)
	}
	return e, nil
}

// Source returns the warehouse source the engine reads from.
func (e *Engine) Source() warehouse.Source {
	return e.source
}

// Close releases the source if the engine opened it.
func (e *Engine) Close() error {
	if e.ownsSource && e.source != nil {
		err := e.source.Close()
		e.source = nil
		return err
	}
	return nil
}
