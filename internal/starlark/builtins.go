package starlark

import (
	"fmt"

	"github.com/leapstack-labs/leaplook/pkg/core"
	"go.starlark.net/starlark"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Builtins are the helper functions available to every expression in
// addition to the Starlark universe.
var Builtins = starlark.StringDict{
	"safe_name":    starlark.NewBuiltin("safe_name", stringFunc(core.SafeName)),
	"textual_name": starlark.NewBuiltin("textual_name", stringFunc(core.TextualName)),
	"title":        starlark.NewBuiltin("title", stringFunc(Title)),
	"coalesce":     starlark.NewBuiltin("coalesce", coalesce),
}

// Title title-cases a dotted or snake_case name: "address.zip_code" becomes
// "Address Zip Code".
func Title(s string) string {
	words := core.TextualName(s)
	b := []byte(words)
	for i, c := range b {
		if c == '_' {
			b[i] = ' '
		}
	}
	return cases.Title(language.English).String(string(b))
}

func stringFunc(fn func(string) string) func(*starlark.Thread, *starlark.Builtin, starlark.Tuple, []starlark.Tuple) (starlark.Value, error) {
	return func(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		var s string
		if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &s); err != nil {
			return nil, err
		}
		return starlark.String(fn(s)), nil
	}
}

// coalesce returns its first argument that is neither None nor empty.
func coalesce(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if len(kwargs) > 0 {
		return nil, fmt.Errorf("%s: unexpected keyword arguments", b.Name())
	}
	for _, v := range args {
		if v == starlark.None {
			continue
		}
		if s, ok := v.(starlark.String); ok && s == "" {
			continue
		}
		return v, nil
	}
	return starlark.None, nil
}

// Predeclared returns the globals for expression evaluation: the helper
// builtins plus one global per context variable. Variables shadow builtins.
func Predeclared(vars map[string]any) (starlark.StringDict, error) {
	globals := make(starlark.StringDict, len(Builtins)+len(vars))
	for name, fn := range Builtins {
		globals[name] = fn
	}
	for name, v := range vars {
		sv, err := GoToStarlark(v)
		if err != nil {
			return nil, err
		}
		globals[name] = sv
	}
	return globals, nil
}
