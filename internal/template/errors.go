package template

import "fmt"

// Error is the base interface for all template errors.
type Error interface {
	error
	Position() Position
}

// baseError provides common error functionality.
type baseError struct {
	pos Position
	msg string
}

func (e *baseError) Position() Position { return e.pos }
func (e *baseError) Error() string {
	if e.pos.File != "" {
		return fmt.Sprintf("%s:%d:%d: %s", e.pos.File, e.pos.Line, e.pos.Column, e.msg)
	}
	return fmt.Sprintf("%d:%d: %s", e.pos.Line, e.pos.Column, e.msg)
}

// LexError represents an error during lexical analysis.
type LexError struct {
	baseError
}

// NewLexError creates a new lexer error.
func NewLexError(pos Position, msg string) *LexError {
	return &LexError{baseError: baseError{pos: pos, msg: msg}}
}

// RenderError reports a placeholder that was left literal.
type RenderError struct {
	baseError
	Placeholder string // Placeholder as it appears in the output
	Cause       error  // Underlying Starlark error, if any
}

// NewRenderError creates a new render error.
func NewRenderError(pos Position, placeholder, msg string) *RenderError {
	return &RenderError{baseError: baseError{pos: pos, msg: msg}, Placeholder: placeholder}
}

// WrapRenderError wraps an underlying error as a render error.
func WrapRenderError(pos Position, placeholder, msg string, cause error) *RenderError {
	return &RenderError{
		baseError:   baseError{pos: pos, msg: msg},
		Placeholder: placeholder,
		Cause:       cause,
	}
}

func (e *RenderError) Error() string {
	base := e.baseError.Error()
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", base, e.Cause)
	}
	return base
}

func (e *RenderError) Unwrap() error {
	return e.Cause
}
