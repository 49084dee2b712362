// Package typemap maps warehouse source types to LookML dimension types.
//
// Each warehouse dialect registers itself from an init function; lookups are
// case-insensitive and ignore type parameters such as DECIMAL(18,2).
package typemap

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/leapstack-labs/leaplook/pkg/core"
)

// Dialect describes how one warehouse names its types and tables.
type Dialect struct {
	Name string
	// Types maps upper-cased base type names to dimension types.
	Types map[string]core.LookerType
	// QuoteTable renders a fully qualified table reference.
	QuoteTable func(core.TableRef) string
}

// Map resolves a source type for this dialect.
func (d *Dialect) Map(sourceType string) (core.LookerType, error) {
	t, ok := d.Types[BaseType(sourceType)]
	if !ok {
		return "", &core.UnknownTypeError{Dialect: d.Name, SourceType: sourceType}
	}
	return t, nil
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]*Dialect)
)

// Register adds a dialect to the registry.
// Called by dialect definitions in their init() functions.
func Register(d *Dialect) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[d.Name] = d
}

// Get retrieves a dialect by name.
func Get(name string) (*Dialect, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	d, ok := registry[name]
	return d, ok
}

// Lookup returns the dialect or an UnknownDialectError.
func Lookup(name string) (*Dialect, error) {
	d, ok := Get(name)
	if !ok {
		return nil, &UnknownDialectError{Name: name, Available: List()}
	}
	return d, nil
}

// List returns all registered dialect names (sorted).
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

// IsRegistered checks if a dialect is registered.
func IsRegistered(name string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := registry[name]
	return ok
}

// BaseType upper-cases a source type and strips its parameters.
func BaseType(sourceType string) string {
	t := strings.ToUpper(strings.TrimSpace(sourceType))
	if i := strings.IndexAny(t, "(<"); i >= 0 {
		t = strings.TrimSpace(t[:i])
	}
	return t
}

// UnknownDialectError is returned when an unregistered dialect is requested.
type UnknownDialectError struct {
	Name      string
	Available []string
}

func (e *UnknownDialectError) Error() string {
	return fmt.Sprintf("unknown dialect %q\nAvailable dialects: %v\nHint: Check dialect or source.type in leaplook.yaml", e.Name, e.Available)
}
