package core

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel configuration errors.
var (
	ErrEmptyCookbook = errors.New("cookbook contains no recipes")
	ErrEmptyFilter   = errors.New("recipe filter must specify at least one criterion")
)

// SchemaError reports a malformed table schema. It aborts that table only.
type SchemaError struct {
	Table string
	Path  string
	Msg   string
}

func (e *SchemaError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("schema %s: %s", e.Table, e.Msg)
	}
	return fmt.Sprintf("schema %s: field %s: %s", e.Table, e.Path, e.Msg)
}

// UnknownTypeError is returned when a source type has no mapping in a dialect.
type UnknownTypeError struct {
	Dialect    string
	SourceType string
	Path       string
}

func (e *UnknownTypeError) Error() string {
	msg := fmt.Sprintf("unknown %s type %q", e.Dialect, e.SourceType)
	if e.Path != "" {
		msg = fmt.Sprintf("field %s: %s", e.Path, msg)
	}
	return msg
}

// ConfigError reports invalid configuration. It aborts the whole run.
type ConfigError struct {
	Source string
	Err    error
}

func (e *ConfigError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("invalid configuration: %v", e.Err)
	}
	return fmt.Sprintf("invalid configuration in %s: %v", e.Source, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// NewConfigError wraps err as a ConfigError attributed to source.
func NewConfigError(source string, err error) *ConfigError {
	return &ConfigError{Source: source, Err: err}
}

// InvalidMeasureError reports a measure whose attributes do not fit its type.
type InvalidMeasureError struct {
	Path    string
	Measure string
	Type    MeasureType
	Reason  string
}

func (e *InvalidMeasureError) Error() string {
	return fmt.Sprintf("field %s: invalid %s measure %q: %s", e.Path, e.Type, e.Measure, e.Reason)
}

// TemplateError reports a placeholder that could not be resolved.
// It is recorded as a warning and never aborts.
type TemplateError struct {
	Path        string
	Attr        string
	Placeholder string
	Cause       error
}

func (e *TemplateError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "field %s: %s: unresolved placeholder %q", e.Path, e.Attr, e.Placeholder)
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}
	return b.String()
}

func (e *TemplateError) Unwrap() error { return e.Cause }

// IsConfigError reports whether err aborts the whole run.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}
