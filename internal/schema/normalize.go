// Package schema turns raw warehouse schemas into canonical field trees.
//
// Normalize maps types, synthesizes element children for scalar arrays and
// computes SQL references. Flatten then inlines non-repeated records into
// dotted leaf fields, leaving repeated structures as nesting boundaries.
package schema

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/leaplook/internal/typemap"
	"github.com/leapstack-labs/leaplook/pkg/core"
)

// TableRef is the SQL placeholder for the enclosing row or unnested alias.
const TableRef = "${TABLE}"

// parentContext is the snapshot of a parent copied onto each child.
type parentContext struct {
	name       string
	mode       core.Mode
	sourceType string
	depth      int
	path       string
}

type normalizer struct {
	dialect   *typemap.Dialect
	table     string
	clustered map[string]bool
}

// Normalize converts a raw table into a canonical field tree.
// Any malformed field fails the whole table.
func Normalize(raw *core.RawTable, dialect *typemap.Dialect) (*core.Table, error) {
	n := &normalizer{
		dialect:   dialect,
		table:     raw.Ref.Table,
		clustered: make(map[string]bool, len(raw.Clustering)),
	}
	for _, c := range raw.Clustering {
		n.clustered[c] = true
	}

	table := &core.Table{
		Ref:          raw.Ref,
		Name:         raw.Ref.Table,
		SQLTableName: dialect.QuoteTable(raw.Ref),
		Description:  raw.Description,
		Clustering:   append([]string(nil), raw.Clustering...),
		Fields:       make([]*core.Field, 0, len(raw.Fields)),
	}

	root := parentContext{depth: -1}
	for i := range raw.Fields {
		f, err := n.field(&raw.Fields[i], i, root)
		if err != nil {
			return nil, err
		}
		table.Fields = append(table.Fields, f)
	}
	return table, nil
}

func (n *normalizer) field(raw *core.RawField, order int, parent parentContext) (*core.Field, error) {
	path := raw.Name
	if parent.path != "" {
		path = parent.path + "." + raw.Name
	}
	if strings.TrimSpace(raw.Name) == "" {
		return nil, &core.SchemaError{Table: n.table, Path: parent.path, Msg: "field has no name"}
	}

	semantic, err := n.dialect.Map(raw.Type)
	if err != nil {
		return nil, &core.UnknownTypeError{Dialect: n.dialect.Name, SourceType: raw.Type, Path: path}
	}

	mode := raw.Mode.Normalized()
	children := raw.Fields
	isRecord := core.IsRecordType(typemap.BaseType(raw.Type))
	switch {
	case isRecord && len(children) == 0:
		return nil, &core.SchemaError{Table: n.table, Path: path, Msg: "record has no fields"}
	case !isRecord && len(children) > 0:
		return nil, &core.SchemaError{Table: n.table, Path: path, Msg: fmt.Sprintf("%s field has nested fields", raw.Type)}
	}

	depth := parent.depth + 1
	f := &core.Field{
		Name:             raw.Name,
		Type:             semantic,
		SourceType:       typemap.BaseType(raw.Type),
		Mode:             mode,
		Description:      raw.Description,
		Order:            order,
		Depth:            depth,
		ParentName:       parent.name,
		ParentMode:       parent.mode,
		ParentSourceType: parent.sourceType,
		IsClustered:      depth == 0 && n.clustered[raw.Name],
		IsNested:         depth > 0,
		TableName:        n.table,
		SQL:              referenceSQL(raw.Name, parent),
	}

	self := parentContext{
		name:       f.Name,
		mode:       mode,
		sourceType: f.SourceType,
		depth:      depth,
		path:       path,
	}

	// A scalar array gains one element child so arrays and repeated records
	// share the same shape downstream.
	if mode.IsRepeated() && len(children) == 0 {
		self.sourceType = core.SourceTypeArray
		element := core.RawField{Name: raw.Name, Type: raw.Type, Mode: core.ModeNullable}
		child, err := n.field(&element, 0, self)
		if err != nil {
			return nil, err
		}
		child.Synthetic = true
		f.Children = []*core.Field{child}
		return f, nil
	}

	for i := range children {
		child, err := n.field(&children[i], i, self)
		if err != nil {
			return nil, err
		}
		f.Children = append(f.Children, child)
	}
	return f, nil
}

// referenceSQL builds the reference of a field relative to its enclosing row.
func referenceSQL(name string, parent parentContext) string {
	if parent.mode.IsRepeated() && parent.sourceType == core.SourceTypeArray {
		return TableRef
	}
	return TableRef + "." + name
}
