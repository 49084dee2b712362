// Package template renders the placeholders in generated LookML attributes.
//
// Two forms are recognized: ${ident} is a LookML reference that is rewritten
// when ident names a context attribute, and {{ expr }} is a Starlark
// expression evaluated against the context. Everything else is passed
// through unchanged.
package template

// Position tracks source location for error reporting.
type Position struct {
	File   string
	Line   int
	Column int
}

// Node is the interface for all template AST nodes.
type Node interface {
	Pos() Position
	node() // marker method to restrict implementation
}

// nodeBase provides common Position handling for all nodes.
type nodeBase struct {
	pos Position
}

func (n *nodeBase) Pos() Position { return n.pos }
func (n *nodeBase) node()         {}

// TextNode represents literal text (passed through unchanged).
type TextNode struct {
	nodeBase
	Text string
}

// ExprNode represents a {{ expr }} expression.
// The Expr field contains the Starlark expression source (without delimiters).
type ExprNode struct {
	nodeBase
	Expr string
}

// RefNode represents a ${ident} reference. Ident has all whitespace removed.
type RefNode struct {
	nodeBase
	Ident string
}

// Literal returns the reference in canonical form.
func (r *RefNode) Literal() string {
	return "${" + r.Ident + "}"
}

// Template represents a complete parsed template.
type Template struct {
	Nodes []Node
	File  string // Attribute the template was read from
}
