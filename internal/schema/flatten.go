package schema

import (
	"github.com/leapstack-labs/leaplook/pkg/core"
)

// Flatten inlines non-repeated records into dotted fields. Repeated
// boundaries are kept and their own child lists flattened independently.
// The input table is not modified. Flatten is idempotent.
func Flatten(t *core.Table) *core.Table {
	out := *t
	out.Clustering = append([]string(nil), t.Clustering...)
	out.Fields = flattenList(t.Fields, t.Name, "")
	return &out
}

// flattenList flattens one boundary's field list. subTable is empty at the
// table root.
func flattenList(fields []*core.Field, table, subTable string) []*core.Field {
	var flat []*core.Field
	for _, f := range fields {
		flat = append(flat, inline(f, "")...)
	}

	for i, f := range flat {
		f.Order = i
		f.TableName = table
		f.SubTableName = subTable
		if f.IsBoundary() {
			base := subTable
			if base == "" {
				base = table
			}
			f.Children = flattenList(f.Children, table, base+"__"+core.SafeName(f.Name))
		}
	}
	return flat
}

// inline returns f itself, or its members renamed under prefix when f is an
// inlineable record. Recursion covers records nested in records.
func inline(f *core.Field, prefix string) []*core.Field {
	name := f.Name
	if prefix != "" {
		name = prefix + "." + f.Name
	}

	if !f.IsInlineable() {
		c := shallowCopy(f)
		if prefix != "" {
			c.Name = name
			c.SQL = TableRef + "." + name
		}
		return []*core.Field{c}
	}

	var members []*core.Field
	for _, child := range f.Children {
		members = append(members, inline(child, name)...)
	}
	return members
}

// shallowCopy copies a field and its child slice, leaving the children shared
// until flattenList replaces them.
func shallowCopy(f *core.Field) *core.Field {
	c := *f
	c.Tags = append([]string(nil), f.Tags...)
	c.Children = append([]*core.Field(nil), f.Children...)
	return &c
}
