package starlark

import (
	"fmt"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// ExecutionContext holds the globals for evaluating the expressions of one
// attribute record. It is immutable after construction and safe for
// concurrent use.
type ExecutionContext struct {
	globals starlark.StringDict
}

// NewExecutionContext builds a context from attribute variables.
func NewExecutionContext(vars map[string]any) (*ExecutionContext, error) {
	globals, err := Predeclared(vars)
	if err != nil {
		return nil, err
	}
	globals.Freeze()
	return &ExecutionContext{globals: globals}, nil
}

// Globals returns the globals dictionary for Starlark execution.
func (ctx *ExecutionContext) Globals() starlark.StringDict {
	return ctx.globals
}

// Resolvable reports whether every free identifier of expr is bound in the
// context or the Starlark universe. A parse failure is returned as an error.
func (ctx *ExecutionContext) Resolvable(expr string) (bool, error) {
	names, err := FreeNames(expr)
	if err != nil {
		return false, err
	}
	for _, name := range names {
		if _, ok := ctx.globals[name]; ok {
			continue
		}
		if _, ok := starlark.Universe[name]; ok {
			continue
		}
		return false, nil
	}
	return true, nil
}

// EvalExpr evaluates a single Starlark expression and returns the result.
func (ctx *ExecutionContext) EvalExpr(expr string, filename string, line int) (starlark.Value, error) {
	thread := threads.Get(filename)
	defer threads.Put(thread)

	result, err := starlark.Eval(thread, filename, expr, ctx.globals) //nolint:staticcheck // SA1019: will migrate to EvalOptions later
	if err != nil {
		return nil, &EvalError{
			File:    filename,
			Line:    line,
			Expr:    expr,
			Message: err.Error(),
		}
	}
	return result, nil
}

// EvalExprString evaluates a Starlark expression and returns the string result.
func (ctx *ExecutionContext) EvalExprString(expr string, filename string, line int) (string, error) {
	result, err := ctx.EvalExpr(expr, filename, line)
	if err != nil {
		return "", err
	}
	return ToText(result), nil
}

// FreeNames returns the identifiers expr reads without binding them itself,
// in order of first use. Attribute names after a dot are not free.
func FreeNames(expr string) ([]string, error) {
	e, err := syntax.ParseExpr("expr", expr, 0)
	if err != nil {
		return nil, err
	}

	bound := make(map[string]bool)
	seen := make(map[string]bool)
	var names []string

	var visit func(n syntax.Node) bool
	visit = func(n syntax.Node) bool {
		switch n := n.(type) {
		case *syntax.DotExpr:
			syntax.Walk(n.X, visit)
			return false
		case *syntax.CallExpr:
			syntax.Walk(n.Fn, visit)
			for _, arg := range n.Args {
				if kw, ok := arg.(*syntax.BinaryExpr); ok && kw.Op == syntax.EQ {
					syntax.Walk(kw.Y, visit)
					continue
				}
				syntax.Walk(arg, visit)
			}
			return false
		case *syntax.ForClause:
			bindIdents(n.Vars, bound)
		case *syntax.LambdaExpr:
			for _, p := range n.Params {
				bindIdents(p, bound)
			}
		case *syntax.Ident:
			if !seen[n.Name] {
				seen[n.Name] = true
				names = append(names, n.Name)
			}
		}
		return true
	}
	syntax.Walk(e, visit)

	free := names[:0]
	for _, name := range names {
		if !bound[name] {
			free = append(free, name)
		}
	}
	return free, nil
}

func bindIdents(e syntax.Expr, bound map[string]bool) {
	syntax.Walk(e, func(n syntax.Node) bool {
		if id, ok := n.(*syntax.Ident); ok {
			bound[id.Name] = true
		}
		return true
	})
}

// EvalError represents an error during Starlark expression evaluation.
type EvalError struct {
	File    string
	Line    int
	Expr    string
	Message string
}

func (e *EvalError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: error evaluating %q: %s", e.File, e.Line, e.Expr, e.Message)
	}
	return fmt.Sprintf("%s: error evaluating %q: %s", e.File, e.Expr, e.Message)
}
