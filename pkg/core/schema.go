package core

import "fmt"

// =============================================================================
// Raw schema (as delivered by a warehouse source)
// =============================================================================

// Mode is the nullability mode of a warehouse column.
type Mode string

// Column modes.
const (
	ModeNullable Mode = "NULLABLE"
	ModeRequired Mode = "REQUIRED"
	ModeRepeated Mode = "REPEATED"
)

// Normalized returns the mode with the empty value treated as NULLABLE.
func (m Mode) Normalized() Mode {
	if m == "" {
		return ModeNullable
	}
	return m
}

// IsRepeated reports whether the column is an array.
func (m Mode) IsRepeated() bool {
	return m == ModeRepeated
}

// Source types with structural meaning.
const (
	SourceTypeRecord = "RECORD"
	SourceTypeStruct = "STRUCT"
	SourceTypeArray  = "ARRAY"
)

// IsRecordType reports whether a source type carries child fields.
func IsRecordType(sourceType string) bool {
	return sourceType == SourceTypeRecord || sourceType == SourceTypeStruct
}

// RawField is a column exactly as received from a schema source.
type RawField struct {
	Name        string     `json:"name" yaml:"name"`
	Type        string     `json:"type" yaml:"type"`
	Mode        Mode       `json:"mode,omitempty" yaml:"mode,omitempty"`
	Description string     `json:"description,omitempty" yaml:"description,omitempty"`
	Fields      []RawField `json:"fields,omitempty" yaml:"fields,omitempty"`
}

// TableRef identifies a table in a warehouse.
type TableRef struct {
	Project string `json:"projectId" yaml:"project_id"`
	Dataset string `json:"datasetId" yaml:"dataset_id"`
	Table   string `json:"tableId" yaml:"table_id"`
}

// String returns the dotted project.dataset.table form.
func (r TableRef) String() string {
	if r.Project == "" {
		return fmt.Sprintf("%s.%s", r.Dataset, r.Table)
	}
	return fmt.Sprintf("%s.%s.%s", r.Project, r.Dataset, r.Table)
}

// RawTable is one table schema as received from a schema source.
type RawTable struct {
	Ref         TableRef
	Description string
	Labels      map[string]string
	Clustering  []string
	Fields      []RawField
}

// =============================================================================
// Canonical schema (produced by normalization)
// =============================================================================

// Field is a normalized column. Parent attributes are snapshots copied at
// normalization time, not live references.
type Field struct {
	Name        string
	Type        LookerType
	SourceType  string
	Mode        Mode
	Description string

	Order int
	Depth int

	ParentName       string
	ParentMode       Mode
	ParentSourceType string

	IsClustered bool
	IsNested    bool
	// Synthetic marks the element child generated for a scalar array.
	Synthetic bool

	TableName    string
	SubTableName string
	SQL          string

	// Tags are accumulated by recipes during mixing; sources never set them.
	Tags []string

	Children []*Field
}

// IsBoundary reports whether the field starts a repeated structure.
func (f *Field) IsBoundary() bool {
	return f.Mode.IsRepeated() && len(f.Children) > 0
}

// IsInlineable reports whether the flattener replaces the field with its children.
func (f *Field) IsInlineable() bool {
	return !f.Mode.IsRepeated() && IsRecordType(f.SourceType) && len(f.Children) > 0
}

// Count returns the number of fields in the subtree rooted at f, including f.
func (f *Field) Count() int {
	n := 1
	for _, c := range f.Children {
		n += c.Count()
	}
	return n
}

// Table is a normalized table schema.
type Table struct {
	Ref          TableRef
	Name         string
	SQLTableName string
	Description  string
	Clustering   []string
	Fields       []*Field
}

// Walk visits every field in depth-first order, stopping early when fn returns false.
func (t *Table) Walk(fn func(*Field) bool) {
	var walk func([]*Field) bool
	walk = func(fields []*Field) bool {
		for _, f := range fields {
			if !fn(f) {
				return false
			}
			if !walk(f.Children) {
				return false
			}
		}
		return true
	}
	walk(t.Fields)
}
