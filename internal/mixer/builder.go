package mixer

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/leaplook/internal/attrs"
	"github.com/leapstack-labs/leaplook/pkg/core"
	"github.com/samber/lo"
)

// inherited are the attributes pushed down to measures and variants as
// parent_* template variables. Any of them still unset on the child after
// its own defaults takes the parent's value.
var inherited = []string{
	"name", "sql", "type", "group_label", "description",
	"tags", "value_format_name", "label", "hidden",
}

// builder turns combined attribute records into dimensions and measures for
// one field, collecting warnings along the way.
type builder struct {
	path     string
	strip    string
	warnings []error
}

// dimension renders a combined record. parent is nil for the base dimension.
func (b *builder) dimension(d attrs.Dimension, parent *core.Dimension) core.Dimension {
	out := core.Dimension{
		Name:            attrs.Value(d.Name),
		Type:            core.LookerType(attrs.Value(d.Type)),
		Label:           attrs.Value(d.Label),
		Description:     attrs.Value(d.Description),
		GroupLabel:      attrs.Value(d.GroupLabel),
		GroupItemLabel:  attrs.Value(d.GroupItemLabel),
		SQL:             attrs.Value(d.SQL),
		HTML:            attrs.Value(d.HTML),
		ValueFormatName: attrs.Value(d.ValueFormatName),
		OrderByField:    attrs.Value(d.OrderByField),
		CanFilter:       attrs.Value(d.CanFilter),

		Hidden:        d.Hidden,
		ConvertTZ:     d.ConvertTZ,
		Suggestable:   d.Suggestable,
		CaseSensitive: d.CaseSensitive,
		AllowFill:     d.AllowFill,

		Tags:                 d.Tags,
		Timeframes:           b.timeframes(d.Timeframes),
		RequiredAccessGrants: d.RequiredAccessGrants,
		Suffix:               attrs.Value(d.Suffix),
	}
	out.ValueFormatName = b.valueFormat(out.ValueFormatName)

	ctx := dimensionContext(&out)
	if parent != nil {
		inherit(ctx, dimensionContext(parent))
	}
	r := b.renderer(ctx)
	if r == nil {
		return out
	}
	out.SQL = b.render(r, "sql", out.SQL)
	out.Label = b.render(r, "label", out.Label)
	out.Description = b.render(r, "description", out.Description)
	out.GroupLabel = b.render(r, "group_label", out.GroupLabel)
	out.GroupItemLabel = b.render(r, "group_item_label", out.GroupItemLabel)
	out.HTML = b.renderRefs(r, "html", out.HTML)
	return out
}

// measures builds the measures declared on parent.
func (b *builder) measures(parent *core.Dimension, ms []attrs.Measure) ([]core.Measure, error) {
	out := make([]core.Measure, 0, len(ms))
	for _, m := range ms {
		measure, err := b.measure(parent, m)
		if err != nil {
			return nil, err
		}
		out = append(out, measure)
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}

func (b *builder) measure(parent *core.Dimension, m attrs.Measure) (core.Measure, error) {
	if m.Type == nil {
		return core.Measure{}, &core.InvalidMeasureError{Path: b.path, Reason: "missing type"}
	}
	typ := core.MeasureType(*m.Type)
	name := fmt.Sprintf("m_%s_%s", typ, core.SafeName(parent.Name))
	if err := validateMeasure(b.path, name, typ, m); err != nil {
		return core.Measure{}, err
	}

	out := core.Measure{
		Name:            name,
		Type:            typ,
		SQL:             attrs.Value(m.SQL),
		Label:           attrs.Value(m.Label),
		Description:     attrs.Value(m.Description),
		GroupLabel:      attrs.Value(m.GroupLabel),
		HTML:            attrs.Value(m.HTML),
		ValueFormatName: attrs.Value(m.ValueFormatName),
		SQLDistinctKey:  attrs.Value(m.SQLDistinctKey),

		Hidden:      m.Hidden,
		Approximate: m.Approximate,

		ApproximateThreshold: m.ApproximateThreshold,
		Precision:            m.Precision,
		Percentile:           m.Percentile,

		Tags:                 lo.Union(m.Tags, parent.Tags),
		RequiredAccessGrants: m.RequiredAccessGrants,
	}
	for _, f := range m.Filters {
		out.Filters = append(out.Filters, core.MeasureFilter{Dimension: f.Dimension, Expression: f.Expression})
	}

	if out.SQL == "" {
		out.SQL = "${parent_name}"
	}
	if out.GroupLabel == "" {
		out.GroupLabel = parent.GroupLabel
	}
	if out.Description == "" {
		out.Description = defaultDescription(string(typ), parent)
	}
	if out.Label == "" {
		out.Label = parent.Label
	}
	if out.ValueFormatName == "" {
		out.ValueFormatName = parent.ValueFormatName
	}
	if out.Hidden == nil && parent.Hidden != nil {
		out.Hidden = attrs.Bool(*parent.Hidden)
	}
	out.ValueFormatName = b.valueFormat(out.ValueFormatName)
	if len(out.Tags) == 0 {
		out.Tags = nil
	}

	ctx := measureContext(&out)
	inherit(ctx, dimensionContext(parent))
	r := b.renderer(ctx)
	if r == nil {
		return out, nil
	}
	out.SQL = b.render(r, "sql", out.SQL)
	out.Label = b.render(r, "label", out.Label)
	out.Description = b.render(r, "description", out.Description)
	out.GroupLabel = b.render(r, "group_label", out.GroupLabel)
	out.HTML = b.renderRefs(r, "html", out.HTML)
	return out, nil
}

// variants builds the variants declared on parent, nested variants
// following their own parent depth-first in one flat list.
func (b *builder) variants(parent *core.Dimension, vs []attrs.Dimension) ([]core.Dimension, error) {
	var out []core.Dimension
	for _, v := range vs {
		variant := b.prepareVariant(parent, v)
		dim := b.dimension(variant, parent)
		dim.IsVariant = true
		dim.Path = parent.Path
		dim.Depth = parent.Depth

		var err error
		if dim.Measures, err = b.measures(&dim, variant.Measures); err != nil {
			return nil, err
		}
		out = append(out, dim)

		nested, err := b.variants(&dim, variant.Variants)
		if err != nil {
			return nil, err
		}
		out = append(out, nested...)
	}
	return out, nil
}

// prepareVariant fills in the defaults a variant takes from its parent.
func (b *builder) prepareVariant(parent *core.Dimension, v attrs.Dimension) attrs.Dimension {
	v = attrs.Clone(v)
	suffix := attrs.Value(v.Suffix)

	name := fmt.Sprintf("d_%s_%s", core.SafeName(parent.Name), suffix)
	if b.strip != "" {
		name = strings.ReplaceAll(name, b.strip, "")
	}
	v.Name = attrs.String(name)

	if v.Type == nil {
		v.Type = attrs.String(string(parent.Type))
	}
	sql := attrs.Value(v.SQL)
	if sql == "" {
		sql = "${parent_name}"
	}
	v.SQL = attrs.String(strings.ReplaceAll(sql, "$x", "${parent_name}"))

	if v.GroupLabel == nil {
		v.GroupLabel = attrs.NonEmpty(parent.GroupLabel)
	}
	if v.Description == nil {
		v.Description = attrs.String(defaultDescription("derived "+suffix, parent))
	}
	if v.Label == nil {
		v.Label = attrs.NonEmpty(parent.Label)
	}
	if v.ValueFormatName == nil {
		v.ValueFormatName = attrs.NonEmpty(parent.ValueFormatName)
	}
	if v.Hidden == nil && parent.Hidden != nil {
		v.Hidden = attrs.Bool(*parent.Hidden)
	}
	v.Tags = lo.Union(v.Tags, parent.Tags)
	if len(v.Tags) == 0 {
		v.Tags = nil
	}
	return v
}

// defaultDescription is "{what} of {parent}", followed by the parent's own
// description when it has one.
func defaultDescription(what string, parent *core.Dimension) string {
	desc := what + " of " + parent.Name
	if parent.Description != "" {
		desc += " : " + parent.Description
	}
	return desc
}

func validateMeasure(path, name string, typ core.MeasureType, m attrs.Measure) error {
	fail := func(reason string) error {
		return &core.InvalidMeasureError{Path: path, Measure: name, Type: typ, Reason: reason}
	}
	switch {
	case !typ.Valid():
		return fail("unknown measure type")
	case (m.Approximate != nil || m.ApproximateThreshold != nil || m.SQLDistinctKey != nil) && !typ.IsDistinct():
		return fail("approximate, approximate_threshold and sql_distinct_key can only be used with distinct measures")
	case m.Percentile != nil && !typ.IsPercentile():
		return fail("percentile can only be used with percentile measures")
	case m.Precision != nil && !typ.AcceptsPrecision():
		return fail("precision can only be used with average or sum measures")
	}
	return nil
}

func (b *builder) valueFormat(name string) string {
	if name == "" || core.IsValueFormatName(name) {
		return name
	}
	b.warnings = append(b.warnings, fmt.Errorf("field %s: unknown value_format_name %q dropped", b.path, name))
	return ""
}

func (b *builder) timeframes(tfs []string) []string {
	valid := lo.Filter(tfs, func(tf string, _ int) bool { return core.IsTimeframe(tf) })
	if invalid, _ := lo.Difference(tfs, valid); len(invalid) > 0 {
		b.warnings = append(b.warnings, fmt.Errorf("field %s: invalid timeframes %v dropped", b.path, invalid))
	}
	if len(valid) == 0 {
		return nil
	}
	return valid
}
