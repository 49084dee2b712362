// Package mixer applies cookbook recipes to canonical fields, producing the
// enriched dimension tree of a table.
//
// Per field, matching recipes are combined with the last-wins policy, then
// merged under the column's own attributes with the first-wins policy, so an
// explicit column value beats any recipe while later recipes beat earlier
// ones. Measures and variants inherit from the dimension that declares them.
package mixer

import (
	"log/slog"

	"github.com/leapstack-labs/leaplook/internal/attrs"
	"github.com/leapstack-labs/leaplook/internal/recipe"
	"github.com/leapstack-labs/leaplook/pkg/core"
	"github.com/samber/lo"
)

// Mixer holds the recipe inputs shared by every table of a run.
// It is safe for concurrent use.
type Mixer struct {
	cookbook *recipe.Cookbook
	lexicon  recipe.Lexicon
	logger   *slog.Logger
}

// Result is the outcome of enriching one field.
type Result struct {
	Base     core.Dimension
	Variants []core.Dimension
	// Warnings are recoverable problems such as unresolved placeholders.
	Warnings []error
}

// New creates a mixer. The cookbook must hold at least one recipe.
func New(cookbook *recipe.Cookbook, lexicon recipe.Lexicon, logger *slog.Logger) (*Mixer, error) {
	if cookbook == nil || len(cookbook.Recipes) == 0 {
		return nil, core.ErrEmptyCookbook
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Mixer{cookbook: cookbook, lexicon: lexicon, logger: logger}, nil
}

// Apply enriches a single field. Children are not visited; see Mixturize.
// A field that matches nothing, or any field of an unstyled dataset, is
// wrapped with its canonical attributes unchanged.
func (m *Mixer) Apply(field *core.Field, ds *core.DatasetConfig) (Result, error) {
	if ds.Unstyled {
		return Result{Base: identity(field)}, nil
	}

	sel := recipe.Selection{Apply: ds.ApplyRecipe, Exclude: ds.ExcludeRecipe}
	names, payloads := m.cookbook.Match(field, sel, m.lexicon)
	if len(payloads) == 0 {
		return Result{Base: identity(field)}, nil
	}
	m.logger.Debug("recipes matched",
		slog.String("table", field.TableName),
		slog.String("field", field.Name),
		slog.Any("recipes", names))

	mixture := attrs.Combine(attrs.Last, payloads...)
	combined := attrs.Combine(attrs.First, columnAttrs(field), mixture)
	if combined.Type == nil {
		combined.Type = attrs.String(string(field.Type))
	}

	b := &builder{path: field.Name, strip: ds.VariantNameStrip}
	base := b.dimension(combined, nil)
	base.Path = field.Name
	base.Repeated = field.IsBoundary()
	base.Depth = field.Depth

	var err error
	if base.Measures, err = b.measures(&base, combined.Measures); err != nil {
		return Result{}, err
	}
	variants, err := b.variants(&base, combined.Variants)
	if err != nil {
		return Result{}, err
	}
	return Result{Base: base, Variants: variants, Warnings: b.warnings}, nil
}

// columnAttrs are the attributes a column contributes explicitly.
func columnAttrs(f *core.Field) attrs.Dimension {
	return attrs.Dimension{
		Name:        attrs.String(f.Name),
		SQL:         attrs.NonEmpty(f.SQL),
		Description: attrs.NonEmpty(f.Description),
		Tags:        append([]string(nil), f.Tags...),
	}
}

// identity wraps a canonical field without enrichment.
func identity(f *core.Field) core.Dimension {
	return core.Dimension{
		Name:        f.Name,
		Type:        f.Type,
		SQL:         f.SQL,
		Description: f.Description,
		Tags:        append([]string(nil), f.Tags...),
		Path:        f.Name,
		Repeated:    f.IsBoundary(),
		Depth:       f.Depth,
	}
}

// Mixture is the enriched field tree of one table.
type Mixture struct {
	Name         string
	SQLTableName string
	Description  string
	Fields       []core.Dimension
	Warnings     []error
}

// Mixturize enriches every field of a flattened table. Each child's base
// dimension and variants become its parent's Fields; variants always sit
// next to the dimension that generated them. Any field error fails the
// whole table.
func (m *Mixer) Mixturize(table *core.Table, ds *core.DatasetConfig) (*Mixture, error) {
	if len(table.Fields) == 0 {
		return nil, &core.SchemaError{Table: table.Name, Msg: "table has no fields"}
	}

	out := &Mixture{
		Name:         table.Name,
		SQLTableName: table.SQLTableName,
		Description:  table.Description,
	}
	for _, f := range table.Fields {
		dims, err := m.applyTree(f, ds, &out.Warnings)
		if err != nil {
			return nil, err
		}
		out.Fields = append(out.Fields, dims...)
	}
	return out, nil
}

func (m *Mixer) applyTree(f *core.Field, ds *core.DatasetConfig, warnings *[]error) ([]core.Dimension, error) {
	if len(f.Children) == 0 && len(ds.FieldTypes) > 0 && !lo.Contains(ds.FieldTypes, string(f.Type)) {
		return nil, nil
	}

	res, err := m.Apply(f, ds)
	if err != nil {
		return nil, err
	}
	*warnings = append(*warnings, res.Warnings...)

	for _, child := range f.Children {
		dims, err := m.applyTree(child, ds, warnings)
		if err != nil {
			return nil, err
		}
		res.Base.Fields = append(res.Base.Fields, dims...)
	}
	return append([]core.Dimension{res.Base}, res.Variants...), nil
}
