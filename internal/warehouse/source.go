// Package warehouse fetches raw table schemas from the systems that hold
// them: the BigQuery REST API, exported BigQuery table JSON on disk, and
// DuckDB databases.
//
// Sources register themselves by name from init functions, so a project's
// source.type selects one without the engine knowing the concrete types.
package warehouse

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/leapstack-labs/leaplook/pkg/core"
)

// Lookup failures that degrade a single table or dataset to an empty result.
var (
	ErrTableNotFound   = errors.New("table not found")
	ErrDatasetNotFound = errors.New("dataset not found")
)

// Source delivers raw schemas for the tables of a dataset.
type Source interface {
	// Dialect names the type-mapper dialect of the schemas this source returns.
	Dialect() string

	// ListTables returns the table names of a dataset, sorted.
	ListTables(ctx context.Context, project, dataset string) ([]string, error)

	// FetchTable returns one table's schema. A missing table yields an
	// error wrapping ErrTableNotFound.
	FetchTable(ctx context.Context, ref core.TableRef) (*core.RawTable, error)

	// Close releases the source's connections.
	Close() error
}

// Factory opens a source from its configuration.
type Factory func(cfg core.SourceConfig, logger *slog.Logger) (Source, error)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Factory)
)

// Register adds a source factory to the registry.
// Called by source implementations in their init() functions.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = factory
}

// Get retrieves a source factory by name.
func Get(name string) (Factory, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	f, ok := registry[name]
	return f, ok
}

// Open creates a source based on config type.
// A nil logger discards output.
func Open(cfg core.SourceConfig, logger *slog.Logger) (Source, error) {
	if cfg.Type == "" {
		return nil, fmt.Errorf("source type not specified")
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	factory, ok := Get(cfg.Type)
	if !ok {
		return nil, &UnknownSourceError{
			Type:      cfg.Type,
			Available: List(),
		}
	}
	return factory(cfg, logger.With(slog.String("source", cfg.Type)))
}

// List returns all registered source names (sorted).
func List() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsRegistered checks if a source type is registered.
func IsRegistered(name string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := registry[name]
	return ok
}

// UnknownSourceError is returned when an unknown source type is requested.
type UnknownSourceError struct {
	Type      string
	Available []string
}

func (e *UnknownSourceError) Error() string {
	return fmt.Sprintf("unknown source type %q\nAvailable sources: %v\nHint: Check your source.type in leaplook.yaml", e.Type, e.Available)
}

func notFound(ref core.TableRef) error {
	return fmt.Errorf("%s: %w", ref, ErrTableNotFound)
}
