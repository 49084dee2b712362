package mixer

import (
	"errors"
	"testing"

	"github.com/leapstack-labs/leaplook/internal/attrs"
	"github.com/leapstack-labs/leaplook/internal/recipe"
	"github.com/leapstack-labs/leaplook/internal/schema"
	"github.com/leapstack-labs/leaplook/internal/testutil"
	"github.com/leapstack-labs/leaplook/internal/typemap"
	"github.com/leapstack-labs/leaplook/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const cookbookYAML = `
recipes:
  - name: booleans
    filters:
      regex_include: "^is_"
    dimension:
      type: yesno
  - name: scores
    filters:
      fields_include: [score]
    dimension:
      label: Score
      group_label: KPIs
      value_format_name: decimal_2
      tags: [kpi]
      measures:
        - type: average
          sql: "safe_divide(${parent_name}, 100)"
        - type: count_distinct
      variants:
        - suffix: pct
          sql: "$x / 100"
          variants:
            - suffix: rounded
              sql: "ROUND(${parent_name})"
  - name: late
    filters:
      fields_include: [score]
    dimension:
      label: Final Score
`

func newMixer(t *testing.T, yaml string, lex recipe.Lexicon) *Mixer {
	t.Helper()
	cb, err := recipe.ParseCookbook([]byte(yaml), "cookbook.yml")
	require.NoError(t, err)
	m, err := New(cb, lex, testutil.NewTestLogger(t))
	require.NoError(t, err)
	return m
}

func field(name string, typ core.LookerType, source string) *core.Field {
	return &core.Field{
		Name:       name,
		Type:       typ,
		SourceType: source,
		Mode:       core.ModeNullable,
		SQL:        "${TABLE}." + name,
		TableName:  "users",
	}
}

func TestNew_EmptyCookbook(t *testing.T) {
	_, err := New(&recipe.Cookbook{}, nil, nil)
	assert.ErrorIs(t, err, core.ErrEmptyCookbook)

	_, err = New(nil, nil, nil)
	assert.ErrorIs(t, err, core.ErrEmptyCookbook)
}

func TestApply_RegexScenario(t *testing.T) {
	m := newMixer(t, cookbookYAML, nil)
	ds := &core.DatasetConfig{}

	res, err := m.Apply(field("is_active", core.TypeYesNo, "BOOL"), ds)
	require.NoError(t, err)
	assert.Equal(t, core.TypeYesNo, res.Base.Type)

	res, err = m.Apply(field("active_count", core.TypeNumber, "INT64"), ds)
	require.NoError(t, err)
	assert.Equal(t, core.TypeNumber, res.Base.Type, "unmatched field keeps its mapped type")
}

func TestApply_RecipeTypeOverridesMappedType(t *testing.T) {
	m := newMixer(t, cookbookYAML, nil)
	res, err := m.Apply(field("is_legacy", core.TypeString, "STRING"), &core.DatasetConfig{})
	require.NoError(t, err)
	assert.Equal(t, core.TypeYesNo, res.Base.Type)
}

func TestApply_ZeroMatchIdentity(t *testing.T) {
	m := newMixer(t, cookbookYAML, nil)
	f := field("country", core.TypeString, "STRING")
	f.Description = "ISO country"

	res, err := m.Apply(f, &core.DatasetConfig{})
	require.NoError(t, err)
	assert.Empty(t, res.Variants)
	assert.Empty(t, res.Base.Measures)
	assert.Empty(t, res.Warnings)
	assert.Equal(t, core.Dimension{
		Name:        "country",
		Type:        core.TypeString,
		SQL:         "${TABLE}.country",
		Description: "ISO country",
		Path:        "country",
	}, res.Base)
}

func TestApply_Unstyled(t *testing.T) {
	m := newMixer(t, cookbookYAML, nil)
	res, err := m.Apply(field("is_active", core.TypeString, "STRING"), &core.DatasetConfig{Unstyled: true})
	require.NoError(t, err)
	assert.Equal(t, core.TypeString, res.Base.Type)
	assert.Empty(t, res.Variants)
}

func TestApply_MeasureScenario(t *testing.T) {
	m := newMixer(t, cookbookYAML, nil)
	res, err := m.Apply(field("score", core.TypeNumber, "FLOAT64"), &core.DatasetConfig{})
	require.NoError(t, err)
	assert.Empty(t, res.Warnings)

	base := res.Base
	assert.Equal(t, "Final Score", base.Label, "later recipes win")
	assert.Equal(t, "${TABLE}.score", base.SQL, "column sql beats recipes")
	require.Len(t, base.Measures, 2)

	avg := base.Measures[0]
	assert.Equal(t, "m_average_score", avg.Name)
	assert.Equal(t, core.MeasureAverage, avg.Type)
	assert.Equal(t, "safe_divide(${score}, 100)", avg.SQL)
	assert.Equal(t, "KPIs", avg.GroupLabel)
	assert.Equal(t, "average of score", avg.Description)
	assert.Equal(t, "Final Score", avg.Label)
	assert.Equal(t, "decimal_2", avg.ValueFormatName)
	assert.Equal(t, []string{"kpi"}, avg.Tags)

	distinct := base.Measures[1]
	assert.Equal(t, "m_count_distinct_score", distinct.Name)
	assert.Equal(t, "${score}", distinct.SQL)
	assert.Equal(t, "decimal_2", distinct.ValueFormatName)
}

func TestApply_Variants(t *testing.T) {
	m := newMixer(t, cookbookYAML, nil)
	f := field("score", core.TypeNumber, "FLOAT64")
	f.Description = "Exam score"

	res, err := m.Apply(f, &core.DatasetConfig{})
	require.NoError(t, err)
	require.Len(t, res.Variants, 2, "nested variants are flattened depth-first")

	pct := res.Variants[0]
	assert.True(t, pct.IsVariant)
	assert.Equal(t, "d_score_pct", pct.Name)
	assert.Equal(t, "${score} / 100", pct.SQL)
	assert.Equal(t, core.TypeNumber, pct.Type)
	assert.Equal(t, "derived pct of score : Exam score", pct.Description)
	assert.Equal(t, "Final Score", pct.Label)
	assert.Equal(t, "KPIs", pct.GroupLabel)
	assert.Equal(t, "score", pct.Path)

	rounded := res.Variants[1]
	assert.Equal(t, "d_d_score_pct_rounded", rounded.Name)
	assert.Equal(t, "ROUND(${d_score_pct})", rounded.SQL)
}

func TestApply_ChildrenInheritUnsetParentAttributes(t *testing.T) {
	yaml := `
recipes:
  - name: r
    filters: {fields_include: [score]}
    dimension:
      label: Score
      hidden: true
      value_format_name: usd
      measures:
        - type: sum
        - type: max
          label: Top Score
          hidden: false
          value_format_name: decimal_0
      variants:
        - suffix: pct
          sql: "$x / 100"
        - suffix: visible
          hidden: false
`
	m := newMixer(t, yaml, nil)
	res, err := m.Apply(field("score", core.TypeNumber, "FLOAT64"), &core.DatasetConfig{})
	require.NoError(t, err)
	require.NotNil(t, res.Base.Hidden)
	assert.True(t, *res.Base.Hidden)

	require.Len(t, res.Base.Measures, 2)
	sum := res.Base.Measures[0]
	require.NotNil(t, sum.Hidden)
	assert.True(t, *sum.Hidden)
	assert.Equal(t, "Score", sum.Label)
	assert.Equal(t, "usd", sum.ValueFormatName)

	top := res.Base.Measures[1]
	require.NotNil(t, top.Hidden)
	assert.False(t, *top.Hidden, "explicit values are kept")
	assert.Equal(t, "Top Score", top.Label)
	assert.Equal(t, "decimal_0", top.ValueFormatName)

	require.Len(t, res.Variants, 2)
	pct := res.Variants[0]
	require.NotNil(t, pct.Hidden)
	assert.True(t, *pct.Hidden)
	assert.Equal(t, "Score", pct.Label)
	assert.Equal(t, "usd", pct.ValueFormatName)

	visible := res.Variants[1]
	require.NotNil(t, visible.Hidden)
	assert.False(t, *visible.Hidden)
}

func TestApply_VariantNameStrip(t *testing.T) {
	m := newMixer(t, cookbookYAML, nil)
	res, err := m.Apply(field("score", core.TypeNumber, "FLOAT64"), &core.DatasetConfig{VariantNameStrip: "d_"})
	require.NoError(t, err)
	assert.Equal(t, "score_pct", res.Variants[0].Name)
}

func TestApply_RecipeSelection(t *testing.T) {
	m := newMixer(t, cookbookYAML, recipe.Lexicon{"score": {Label: attrs.String("Lexicon Score")}})
	f := field("score", core.TypeNumber, "FLOAT64")

	res, err := m.Apply(f, &core.DatasetConfig{})
	require.NoError(t, err)
	assert.Equal(t, "Lexicon Score", res.Base.Label, "lexicon has the highest precedence")

	res, err = m.Apply(f, &core.DatasetConfig{ApplyRecipe: []string{"scores"}})
	require.NoError(t, err)
	assert.Equal(t, "Score", res.Base.Label, "allow-list disables the lexicon")

	res, err = m.Apply(f, &core.DatasetConfig{ExcludeRecipe: []string{"scores", "late"}})
	require.NoError(t, err)
	assert.Equal(t, "Lexicon Score", res.Base.Label)
	assert.Empty(t, res.Base.Measures)
}

func TestApply_InvalidMeasures(t *testing.T) {
	tests := []struct {
		name    string
		measure string
	}{
		{"precision on count", "{type: count, precision: 2}"},
		{"percentile on sum", "{type: sum, percentile: 90}"},
		{"approximate on average", "{type: average, approximate: true}"},
		{"distinct key on max", "{type: max, sql_distinct_key: id}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			yaml := "recipes:\n  - name: r\n    filters: {fields_include: [score]}\n    dimension:\n      measures: [" + tt.measure + "]\n"
			m := newMixer(t, yaml, nil)

			_, err := m.Apply(field("score", core.TypeNumber, "FLOAT64"), &core.DatasetConfig{})
			var mErr *core.InvalidMeasureError
			require.True(t, errors.As(err, &mErr), "got %v", err)
			assert.Equal(t, "score", mErr.Path)
		})
	}
}

func TestApply_ValidMeasureAttributes(t *testing.T) {
	yaml := `
recipes:
  - name: r
    filters: {fields_include: [score]}
    dimension:
      measures:
        - {type: sum, precision: 2}
        - {type: percentile, percentile: 90}
        - {type: count_distinct, approximate: true, sql_distinct_key: "${TABLE}.id"}
        - type: count
          filters:
            - {filter_dimension: status, filter_expression: done}
`
	m := newMixer(t, yaml, nil)
	res, err := m.Apply(field("score", core.TypeNumber, "FLOAT64"), &core.DatasetConfig{})
	require.NoError(t, err)
	require.Len(t, res.Base.Measures, 4)
	assert.Equal(t, 2, *res.Base.Measures[0].Precision)
	assert.Equal(t, "${TABLE}.id", res.Base.Measures[2].SQLDistinctKey)
	assert.Equal(t, []core.MeasureFilter{{Dimension: "status", Expression: "done"}}, res.Base.Measures[3].Filters)
}

func TestApply_TemplateWarnings(t *testing.T) {
	yaml := `
recipes:
  - name: r
    filters: {fields_include: [score]}
    dimension:
      description: "{{ title(name) }} ({{ type }})"
      html: "{{ value }} ${name}"
      measures:
        - type: sum
          label: "${parent_label}"
`
	m := newMixer(t, yaml, nil)
	res, err := m.Apply(field("score", core.TypeNumber, "FLOAT64"), &core.DatasetConfig{})
	require.NoError(t, err)

	assert.Equal(t, "Score (number)", res.Base.Description)
	assert.Equal(t, "{{ value }} ${score}", res.Base.HTML, "html keeps liquid expressions")
	assert.Equal(t, "${parent_label}", res.Base.Measures[0].Label, "unresolved placeholder stays literal")

	require.Len(t, res.Warnings, 1)
	var tErr *core.TemplateError
	require.ErrorAs(t, res.Warnings[0], &tErr)
	assert.Equal(t, "score", tErr.Path)
	assert.Equal(t, "label", tErr.Attr)
	assert.Equal(t, "${parent_label}", tErr.Placeholder)
}

func TestApply_DropsUnknownFormatsAndTimeframes(t *testing.T) {
	yaml := `
recipes:
  - name: r
    filters: {types: [time]}
    dimension:
      value_format_name: money
      timeframes: [date, week, fortnight]
`
	m := newMixer(t, yaml, nil)
	res, err := m.Apply(field("created_at", core.TypeTime, "TIMESTAMP"), &core.DatasetConfig{})
	require.NoError(t, err)
	assert.Empty(t, res.Base.ValueFormatName)
	assert.Equal(t, []string{"date", "week"}, res.Base.Timeframes)
	assert.Len(t, res.Warnings, 2)
}

func ordersTable(t *testing.T) *core.Table {
	t.Helper()
	raw := &core.RawTable{
		Ref: core.TableRef{Project: "p", Dataset: "shop", Table: "orders"},
		Fields: []core.RawField{
			{Name: "id", Type: "STRING", Mode: core.ModeRequired},
			{Name: "score", Type: "FLOAT64"},
			{Name: "customer", Type: "RECORD", Fields: []core.RawField{
				{Name: "is_vip", Type: "BOOL"},
			}},
			{Name: "items", Type: "RECORD", Mode: core.ModeRepeated, Fields: []core.RawField{
				{Name: "sku", Type: "STRING"},
				{Name: "tags", Type: "STRING", Mode: core.ModeRepeated},
			}},
		},
	}
	dialect, err := typemap.Lookup(typemap.BigQuery)
	require.NoError(t, err)
	table, err := schema.Normalize(raw, dialect)
	require.NoError(t, err)
	return schema.Flatten(table)
}

func TestMixturize(t *testing.T) {
	m := newMixer(t, cookbookYAML, nil)
	mix, err := m.Mixturize(ordersTable(t), &core.DatasetConfig{})
	require.NoError(t, err)

	assert.Equal(t, "orders", mix.Name)
	assert.Equal(t, "`p.shop.orders`", mix.SQLTableName)

	var names []string
	for _, d := range mix.Fields {
		names = append(names, d.Name)
	}
	assert.Equal(t, []string{"id", "score", "d_score_pct", "d_d_score_pct_rounded", "customer.is_vip", "items"}, names)

	vip := mix.Fields[4]
	assert.Equal(t, core.TypeYesNo, vip.Type)
	assert.Equal(t, "${TABLE}.customer.is_vip", vip.SQL)

	items := mix.Fields[5]
	assert.True(t, items.Repeated)
	require.Len(t, items.Fields, 2)
	assert.Equal(t, "sku", items.Fields[0].Name)
	tags := items.Fields[1]
	assert.True(t, tags.Repeated)
	require.Len(t, tags.Fields, 1)
	assert.Equal(t, "${TABLE}", tags.Fields[0].SQL)
}

func TestMixturize_FieldTypes(t *testing.T) {
	m := newMixer(t, cookbookYAML, nil)
	mix, err := m.Mixturize(ordersTable(t), &core.DatasetConfig{FieldTypes: []string{"number"}})
	require.NoError(t, err)

	require.Len(t, mix.Fields, 4, "score, its variants and the items boundary")
	assert.Equal(t, "score", mix.Fields[0].Name)
	items := mix.Fields[3]
	assert.Equal(t, "items", items.Name)
	assert.Len(t, items.Fields, 1, "the tags boundary is kept, its leaves are not")
	assert.Empty(t, items.Fields[0].Fields)
}

func TestMixturize_Errors(t *testing.T) {
	m := newMixer(t, cookbookYAML, nil)

	_, err := m.Mixturize(&core.Table{Name: "empty"}, &core.DatasetConfig{})
	var sErr *core.SchemaError
	assert.ErrorAs(t, err, &sErr)

	bad := newMixer(t, "recipes:\n  - name: r\n    filters: {fields_include: [sku]}\n    dimension:\n      measures: [{type: count, precision: 1}]\n", nil)
	_, err = bad.Mixturize(ordersTable(t), &core.DatasetConfig{})
	var mErr *core.InvalidMeasureError
	require.ErrorAs(t, err, &mErr)
	assert.Equal(t, "sku", mErr.Path)
}

func TestMixturize_DoesNotMutateInput(t *testing.T) {
	m := newMixer(t, cookbookYAML, nil)
	table := ordersTable(t)
	before := table.Fields[1].Tags

	_, err := m.Mixturize(table, &core.DatasetConfig{})
	require.NoError(t, err)
	assert.Equal(t, before, table.Fields[1].Tags)
}
