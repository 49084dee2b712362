package commands

import (
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/leaplook/internal/cli/output"
	"github.com/leapstack-labs/leaplook/internal/config"
	"github.com/leapstack-labs/leaplook/internal/engine"
	"github.com/spf13/cobra"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Engine   *engine.Engine
	Renderer *output.Renderer
}

// NewCommandContext creates a CommandContext with engine and renderer.
// Returns the context and a cleanup function that must be called (typically via defer).
func NewCommandContext(cmd *cobra.Command) (*CommandContext, func(), error) {
	cmdCtx, err := NewCommandContextWithoutEngine(cmd)
	if err != nil {
		return nil, nil, err
	}

	eng, err := createEngine(cmdCtx.Cfg, cmdCtx.Logger)
	if err != nil {
		return nil, nil, err
	}
	cmdCtx.Engine = eng

	cleanup := func() {
		_ = eng.Close()
	}
	return cmdCtx, cleanup, nil
}

// NewCommandContextWithoutEngine creates a CommandContext without an engine.
// Useful for commands that don't read the warehouse.
func NewCommandContextWithoutEngine(cmd *cobra.Command) (*CommandContext, error) {
	cfg, ok := config.FromContext(cmd.Context())
	if !ok {
		return nil, fmt.Errorf("configuration not loaded")
	}
	mode := output.Mode(cfg.OutputFormat)
	return &CommandContext{
		Cfg:      cfg,
		Logger:   config.GetLogger(cmd.Context()),
		Renderer: output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode),
	}, nil
}

// createEngine creates an engine from the loaded configuration.
func createEngine(cfg *config.Config, logger *slog.Logger) (*engine.Engine, error) {
	return engine.New(engine.Config{
		CookbookPath: cfg.Cookbook,
		LexiconPath:  cfg.Lexicon,
		OutputDir:    cfg.OutputDir,
		Dialect:      cfg.Dialect,
		Concurrency:  cfg.Concurrency,
		FetchTimeout: cfg.FetchTimeout,
		Datasets:     cfg.Datasets,
		SourceConfig: cfg.Source,
		Logger:       logger,
	})
}
