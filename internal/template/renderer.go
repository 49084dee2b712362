package template

import (
	"strings"

	starctx "github.com/leapstack-labs/leaplook/internal/starlark"
)

// Context is the attribute context placeholders resolve against. A key
// present with a nil or empty value is known but has no value.
type Context map[string]any

// Renderer renders templated attributes against one context.
type Renderer struct {
	ctx  Context
	exec *starctx.ExecutionContext
}

// NewRenderer builds a renderer for ctx.
func NewRenderer(ctx Context) (*Renderer, error) {
	exec, err := starctx.NewExecutionContext(ctx)
	if err != nil {
		return nil, err
	}
	return &Renderer{ctx: ctx, exec: exec}, nil
}

// Render resolves references and expressions in input. Placeholders that
// cannot be resolved are left literal and reported. The attr name is used
// as the error file name.
func (r *Renderer) Render(input, attr string) (string, []*RenderError) {
	return r.render(input, attr, true)
}

// RenderRefs resolves only ${ident} references; {{ }} is passed through.
// Used for attributes holding Liquid markup.
func (r *Renderer) RenderRefs(input, attr string) (string, []*RenderError) {
	return r.render(input, attr, false)
}

func (r *Renderer) render(input, attr string, exprs bool) (string, []*RenderError) {
	if !strings.Contains(input, "${") && !strings.Contains(input, "{{") {
		return input, nil
	}

	tmpl, err := Parse(input, attr)
	if err != nil {
		pos := Position{File: attr}
		if te, ok := err.(Error); ok {
			pos = te.Position()
		}
		return input, []*RenderError{WrapRenderError(pos, input, "malformed placeholder", err)}
	}

	var (
		b    strings.Builder
		errs []*RenderError
	)
	for _, n := range tmpl.Nodes {
		switch n := n.(type) {
		case *TextNode:
			b.WriteString(n.Text)

		case *RefNode:
			out, rerr := r.ref(n)
			b.WriteString(out)
			if rerr != nil {
				errs = append(errs, rerr)
			}

		case *ExprNode:
			literal := "{{ " + n.Expr + " }}"
			if !exprs {
				b.WriteString(literal)
				continue
			}
			out, rerr := r.expr(n, literal)
			b.WriteString(out)
			if rerr != nil {
				errs = append(errs, rerr)
			}
		}
	}
	return b.String(), errs
}

// ref rewrites ${key} to ${value} for context keys. Identifiers outside the
// context (TABLE, other fields) are left as LookML references.
func (r *Renderer) ref(n *RefNode) (string, *RenderError) {
	v, known := r.ctx[n.Ident]
	if !known {
		return n.Literal(), nil
	}
	if s, ok := text(v); ok {
		return "${" + s + "}", nil
	}
	return n.Literal(), NewRenderError(n.Pos(), n.Literal(), "attribute "+n.Ident+" has no value")
}

// expr evaluates a Starlark expression. Expressions naming identifiers
// outside the context are not ours to render and stay literal silently.
func (r *Renderer) expr(n *ExprNode, literal string) (string, *RenderError) {
	ok, err := r.exec.Resolvable(n.Expr)
	if err != nil {
		return literal, WrapRenderError(n.Pos(), literal, "invalid expression", err)
	}
	if !ok {
		return literal, nil
	}

	out, err := r.exec.EvalExprString(n.Expr, n.Pos().File, n.Pos().Line)
	if err != nil {
		return literal, WrapRenderError(n.Pos(), literal, "evaluation failed", err)
	}
	return out, nil
}

func text(v any) (string, bool) {
	switch v := v.(type) {
	case string:
		return v, v != ""
	case *string:
		if v == nil {
			return "", false
		}
		return *v, *v != ""
	}
	return "", false
}
