// Package lookml serializes split views and explores to LookML text and
// writes them as project files.
//
// Serialization prunes every empty value: unset strings, nil flags and
// empty lists never appear in the output.
package lookml

import (
	"github.com/leapstack-labs/leaplook/pkg/core"
)

// Options controls serialization.
type Options struct {
	IncludeDescriptions bool
}

// OptionsFor returns the serialization options of a dataset.
func OptionsFor(ds *core.DatasetConfig) Options {
	return Options{IncludeDescriptions: ds.DescriptionsEnabled()}
}

// Views renders views to LookML, one block per view in order.
func Views(views []core.View, opts Options) string {
	p := newPrinter()
	for i := range views {
		writeView(p, &views[i], opts)
	}
	return p.String()
}

// Explore renders an explore to LookML.
func Explore(e *core.Explore) string {
	p := newPrinter()
	p.open("explore", e.Name)
	p.bare("extension", e.Extension)
	if e.ViewName != e.Name {
		p.bare("view_name", e.ViewName)
	}
	for _, j := range e.Joins {
		p.open("join", j.Name)
		p.quoted("view_label", j.ViewLabel)
		p.sql("sql", j.SQL)
		p.bare("type", j.Type)
		p.bare("relationship", j.Relationship)
		p.bareList("required_joins", j.RequiredJoins)
		p.close()
	}
	p.close()
	return p.String()
}

func writeView(p *printer, v *core.View, opts Options) {
	p.open("view", v.Name)
	header := p.output.Len()
	p.sql("sql_table_name", v.SQLTableName)
	if opts.IncludeDescriptions {
		p.quoted("description", v.Description)
	}
	p.pendingBlank = p.output.Len() > header

	for i := range v.Dimensions {
		writeDimension(p, &v.Dimensions[i], opts)
	}
	for i := range v.Measures {
		writeMeasure(p, &v.Measures[i], opts)
	}
	p.close()
}

func writeDimension(p *printer, d *core.Dimension, opts Options) {
	kind := "dimension"
	if d.Type == core.TypeTime {
		kind = "dimension_group"
	}
	p.open(kind, d.Name)
	p.bare("type", string(d.Type))
	p.sql("sql", d.SQL)
	p.quoted("label", d.Label)
	if opts.IncludeDescriptions {
		p.quoted("description", d.Description)
	}
	p.quoted("group_label", d.GroupLabel)
	p.quoted("group_item_label", d.GroupItemLabel)
	p.yesno("hidden", d.Hidden)
	p.sql("html", d.HTML)
	p.bare("value_format_name", d.ValueFormatName)
	p.bareList("timeframes", d.Timeframes)
	p.yesno("convert_tz", d.ConvertTZ)
	p.bare("can_filter", d.CanFilter)
	p.bare("order_by_field", d.OrderByField)
	p.yesno("suggestable", d.Suggestable)
	p.yesno("case_sensitive", d.CaseSensitive)
	p.yesno("allow_fill", d.AllowFill)
	p.quotedList("tags", d.Tags)
	p.bareList("required_access_grants", d.RequiredAccessGrants)
	p.close()
}

func writeMeasure(p *printer, m *core.Measure, opts Options) {
	p.open("measure", m.Name)
	p.bare("type", string(m.Type))
	if m.Type != core.MeasureCount {
		p.sql("sql", m.SQL)
	}
	p.quoted("label", m.Label)
	if opts.IncludeDescriptions {
		p.quoted("description", m.Description)
	}
	p.quoted("group_label", m.GroupLabel)
	p.yesno("hidden", m.Hidden)
	p.sql("html", m.HTML)
	p.bare("value_format_name", m.ValueFormatName)
	p.sql("sql_distinct_key", m.SQLDistinctKey)
	p.yesno("approximate", m.Approximate)
	p.integer("approximate_threshold", m.ApproximateThreshold)
	p.integer("precision", m.Precision)
	p.integer("percentile", m.Percentile)
	if len(m.Filters) > 0 {
		filters := make([]string, len(m.Filters))
		for i, f := range m.Filters {
			filters[i] = f.Dimension + ": " + quote(f.Expression)
		}
		p.bareList("filters", filters)
	}
	p.quotedList("tags", m.Tags)
	p.bareList("required_access_grants", m.RequiredAccessGrants)
	p.close()
}
