package mixer

import (
	"github.com/leapstack-labs/leaplook/internal/template"
	"github.com/leapstack-labs/leaplook/pkg/core"
)

func dimensionContext(d *core.Dimension) template.Context {
	return template.Context{
		"name":              core.SafeName(d.Name),
		"type":              string(d.Type),
		"sql":               d.SQL,
		"label":             d.Label,
		"description":       d.Description,
		"group_label":       d.GroupLabel,
		"group_item_label":  d.GroupItemLabel,
		"value_format_name": d.ValueFormatName,
		"suffix":            d.Suffix,
		"tags":              d.Tags,
		"hidden":            boolValue(d.Hidden),
	}
}

func measureContext(m *core.Measure) template.Context {
	return template.Context{
		"name":              m.Name,
		"type":              string(m.Type),
		"sql":               m.SQL,
		"label":             m.Label,
		"description":       m.Description,
		"group_label":       m.GroupLabel,
		"value_format_name": m.ValueFormatName,
		"tags":              m.Tags,
		"hidden":            boolValue(m.Hidden),
	}
}

// inherit adds the parent's pushed-down attributes to ctx as parent_*.
func inherit(ctx, parent template.Context) {
	for _, key := range inherited {
		ctx["parent_"+key] = parent[key]
	}
}

func boolValue(b *bool) any {
	if b == nil {
		return nil
	}
	return *b
}

func (b *builder) renderer(ctx template.Context) *template.Renderer {
	r, err := template.NewRenderer(ctx)
	if err != nil {
		b.warnings = append(b.warnings, &core.TemplateError{Path: b.path, Attr: "context", Cause: err})
		return nil
	}
	return r
}

func (b *builder) render(r *template.Renderer, attr, value string) string {
	out, errs := r.Render(value, attr)
	b.record(attr, errs)
	return out
}

func (b *builder) renderRefs(r *template.Renderer, attr, value string) string {
	out, errs := r.RenderRefs(value, attr)
	b.record(attr, errs)
	return out
}

func (b *builder) record(attr string, errs []*template.RenderError) {
	for _, e := range errs {
		b.warnings = append(b.warnings, &core.TemplateError{
			Path:        b.path,
			Attr:        attr,
			Placeholder: e.Placeholder,
			Cause:       e,
		})
	}
}
