package recipe

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/leapstack-labs/leaplook/internal/attrs"
	"github.com/leapstack-labs/leaplook/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func compiled(t *testing.T, f Filter) *Filter {
	t.Helper()
	require.NoError(t, f.Compile())
	return &f
}

func TestFilter_Matches(t *testing.T) {
	isActive := &core.Field{Name: "is_active", Type: core.TypeYesNo, SourceType: "BOOL", TableName: "users"}
	address := &core.Field{Name: "address.city", Type: core.TypeString, SourceType: "STRING", Depth: 1, IsNested: true, Order: 2, TableName: "users"}
	clustered := &core.Field{Name: "id", Type: core.TypeString, SourceType: "STRING", IsClustered: true, TableName: "orders"}
	tagged := &core.Field{Name: "score", Type: core.TypeNumber, SourceType: "FLOAT64", Tags: []string{"kpi"}, TableName: "users"}

	tests := []struct {
		name   string
		filter Filter
		field  *core.Field
		want   bool
	}{
		{"regex include matches", Filter{RegexInclude: "^is_"}, isActive, true},
		{"regex include misses", Filter{RegexInclude: "^is_"}, address, false},
		{"regex on dotted name", Filter{RegexInclude: `^address\.`}, address, true},
		{"regex exclude", Filter{Types: StringList{"string"}, RegexExclude: "city$"}, address, false},
		{"types", Filter{Types: StringList{"yesno"}}, isActive, true},
		{"singular type alias", Filter{Type: StringList{"number"}}, tagged, true},
		{"db types", Filter{DBTypes: StringList{"BOOL"}}, isActive, true},
		{"db types miss", Filter{DBTypes: StringList{"INT64"}}, isActive, false},
		{"fields include", Filter{FieldsInclude: []string{"is_active"}}, isActive, true},
		{"fields exclude", Filter{Types: StringList{"yesno"}, FieldsExclude: []string{"is_active"}}, isActive, false},
		{"field order", Filter{FieldOrder: []int{2}}, address, true},
		{"is nested true", Filter{IsNested: attrs.Bool(true)}, address, true},
		{"is nested false constrains", Filter{IsNested: attrs.Bool(false)}, address, false},
		{"depth", Filter{Depth: []int{0}}, address, false},
		{"table include", Filter{TableRegexInclude: "^ord"}, clustered, true},
		{"table exclude", Filter{TableRegexExclude: "^ord"}, clustered, false},
		{"is clustered", Filter{IsClustered: attrs.Bool(true)}, clustered, true},
		{"is clustered false", Filter{IsClustered: attrs.Bool(true)}, isActive, false},
		{"tags", Filter{Tags: []string{"kpi", "other"}}, tagged, true},
		{"tags miss", Filter{Tags: []string{"pii"}}, tagged, false},
		{"conjunction", Filter{Types: StringList{"yesno"}, RegexInclude: "^is_", Depth: []int{0}}, isActive, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := compiled(t, tt.filter)
			assert.Equal(t, tt.want, f.Matches(tt.field))
		})
	}
}

func TestFilter_CompileRejects(t *testing.T) {
	tests := []struct {
		name   string
		filter Filter
	}{
		{"include exclude overlap", Filter{FieldsInclude: []string{"a"}, FieldsExclude: []string{"a"}}},
		{"same regex", Filter{RegexInclude: "x", RegexExclude: "x"}},
		{"nested contradicts depth", Filter{IsNested: attrs.Bool(false), Depth: []int{1, 2}}},
		{"unknown type", Filter{Types: StringList{"float"}}},
		{"bad regex", Filter{RegexInclude: "("}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := tt.filter
			assert.Error(t, f.Compile())
		})
	}

	var empty Filter
	assert.ErrorIs(t, empty.Compile(), core.ErrEmptyFilter)
}

func TestFilter_MatchesBeforeCompilePanics(t *testing.T) {
	f := Filter{RegexInclude: "x"}
	assert.Panics(t, func() { f.Matches(&core.Field{Name: "x"}) })
}

func TestStringList_UnmarshalYAML(t *testing.T) {
	var v struct {
		A StringList `yaml:"a"`
		B StringList `yaml:"b"`
	}
	require.NoError(t, yaml.Unmarshal([]byte("a: number\nb: [yesno, string]\n"), &v))
	assert.Equal(t, StringList{"number"}, v.A)
	assert.Equal(t, StringList{"yesno", "string"}, v.B)

	err := yaml.Unmarshal([]byte("a: {x: 1}\n"), &v)
	assert.Error(t, err)
}

const cookbookYAML = `
recipes:
  - name: booleans
    filters:
      regex_include: "^is_"
    dimension:
      type: yesno
      tags: [flag]
  - name: scores
    filters:
      types: number
      fields_include: [score]
    dimension:
      value_format_name: decimal_2
      measures:
        - type: average
          sql: "safe_divide(${score}, 100)"
      variants:
        - suffix: pct
          sql: "$x / 100"
  - name: tagged
    filters:
      tags: [flag]
`

func TestParseCookbook(t *testing.T) {
	cb, err := ParseCookbook([]byte(cookbookYAML), "cookbook.yml")
	require.NoError(t, err)
	assert.Equal(t, []string{"booleans", "scores", "tagged"}, cb.Names())

	scores := cb.Recipes[1]
	require.NotNil(t, scores.Dimension)
	require.Len(t, scores.Dimension.Measures, 1)
	assert.Equal(t, "average", *scores.Dimension.Measures[0].Type)
	assert.Equal(t, "pct", *scores.Dimension.Variants[0].Suffix)
	assert.Nil(t, cb.Recipes[2].Dimension)
}

func TestParseCookbook_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		is   error
	}{
		{"empty document", "", core.ErrEmptyCookbook},
		{"no recipes", "recipes: []\n", core.ErrEmptyCookbook},
		{"empty filter", "recipes:\n  - name: a\n    filters: {}\n", core.ErrEmptyFilter},
		{"missing name", "recipes:\n  - filters: {regex_include: x}\n", nil},
		{"missing filters", "recipes:\n  - name: a\n", nil},
		{"duplicate names", "recipes:\n  - name: a\n    filters: {depth: [0]}\n  - name: a\n    filters: {depth: [1]}\n", nil},
		{"unknown key", "recipes:\n  - name: a\n    filters: {colour: red}\n", nil},
		{"measure name", "recipes:\n  - name: a\n    filters: {depth: [0]}\n    dimension:\n      measures: [{type: sum, name: total}]\n", nil},
		{"bad measure type", "recipes:\n  - name: a\n    filters: {depth: [0]}\n    dimension:\n      measures: [{type: mean}]\n", nil},
		{"variant without suffix", "recipes:\n  - name: a\n    filters: {depth: [0]}\n    dimension:\n      variants: [{sql: x}]\n", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCookbook([]byte(tt.yaml), "cookbook.yml")
			require.Error(t, err)
			assert.True(t, core.IsConfigError(err), "got %T", err)
			if tt.is != nil {
				assert.ErrorIs(t, err, tt.is)
			}
		})
	}
}

func TestLoadCookbook_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "loader_recipe.yml")
	require.NoError(t, os.WriteFile(path, []byte(cookbookYAML), 0o600))

	cb, err := LoadCookbook(path)
	require.NoError(t, err)
	assert.Len(t, cb.Recipes, 3)

	_, err = LoadCookbook(filepath.Join(t.TempDir(), "missing.yml"))
	var ce *core.ConfigError
	require.True(t, errors.As(err, &ce))
	assert.Contains(t, ce.Source, "missing.yml")
}

func TestLexicon(t *testing.T) {
	lex, err := ParseLexicon([]byte("score:\n  label: Final Score\n  hidden: true\n"), "lexicon.yml")
	require.NoError(t, err)
	assert.Equal(t, "Final Score", *lex["score"].Label)

	none, err := LoadLexicon("")
	require.NoError(t, err)
	assert.Nil(t, none)

	_, err = ParseLexicon([]byte("score:\n  type: float\n"), "lexicon.yml")
	assert.True(t, core.IsConfigError(err))
}

func TestCookbook_Match(t *testing.T) {
	cb, err := ParseCookbook([]byte(cookbookYAML), "cookbook.yml")
	require.NoError(t, err)
	lex := Lexicon{"is_active": {Label: attrs.String("Active?")}}
	field := &core.Field{Name: "is_active", Type: core.TypeYesNo, TableName: "users"}

	names, payloads := cb.Match(field, Selection{}, lex)
	assert.Equal(t, []string{"booleans"}, names, "recipe tags do not feed later tag filters")
	require.Len(t, payloads, 2, "recipe payload then lexicon entry")
	assert.Equal(t, "yesno", *payloads[0].Type)
	assert.Equal(t, "Active?", *payloads[1].Label)
	assert.Empty(t, field.Tags, "field is not modified")

	names, payloads = cb.Match(field, Selection{Apply: []string{"scores"}}, lex)
	assert.Empty(t, names)
	assert.Empty(t, payloads, "allow-list suppresses the lexicon")

	names, _ = cb.Match(field, Selection{Exclude: []string{"booleans"}}, nil)
	assert.Empty(t, names)

	field.Tags = []string{"flag"}
	names, _ = cb.Match(field, Selection{Exclude: []string{"booleans"}}, nil)
	assert.Equal(t, []string{"tagged"}, names)
}
