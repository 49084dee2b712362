package recipe

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/leapstack-labs/leaplook/pkg/core"
	"github.com/samber/lo"
	"gopkg.in/yaml.v3"
)

// StringList accepts either a single string or a list of strings.
type StringList []string

// UnmarshalYAML implements custom YAML unmarshaling for StringList.
func (s *StringList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var str string
		if err := node.Decode(&str); err != nil {
			return err
		}
		if str != "" {
			*s = StringList{str}
		} else {
			*s = StringList{}
		}
		return nil

	case yaml.SequenceNode:
		var arr []string
		if err := node.Decode(&arr); err != nil {
			return err
		}
		*s = arr
		return nil

	default:
		return fmt.Errorf("expected string or array, got %v", node.Kind)
	}
}

// Filter selects the fields a recipe applies to. Every set criterion must
// hold; unset criteria do not constrain.
type Filter struct {
	Types             StringList `yaml:"types"`
	Type              StringList `yaml:"type"`
	DBTypes           StringList `yaml:"db_types"`
	RegexInclude      string     `yaml:"regex_include"`
	RegexExclude      string     `yaml:"regex_exclude"`
	Tags              []string   `yaml:"tags"`
	FieldsInclude     []string   `yaml:"fields_include"`
	FieldsExclude     []string   `yaml:"fields_exclude"`
	FieldOrder        []int      `yaml:"field_order"`
	IsNested          *bool      `yaml:"is_nested"`
	Depth             []int      `yaml:"depth"`
	TableRegexInclude string     `yaml:"table_regex_include"`
	TableRegexExclude string     `yaml:"table_regex_exclude"`
	IsClustered       *bool      `yaml:"is_clustered"`

	include, exclude           *regexp.Regexp
	tableInclude, tableExclude *regexp.Regexp
	compiled                   bool
}

// IsEmpty reports whether no criterion is set.
func (f *Filter) IsEmpty() bool {
	return len(f.Types) == 0 && len(f.Type) == 0 && len(f.DBTypes) == 0 &&
		f.RegexInclude == "" && f.RegexExclude == "" && len(f.Tags) == 0 &&
		len(f.FieldsInclude) == 0 && len(f.FieldsExclude) == 0 && len(f.FieldOrder) == 0 &&
		f.IsNested == nil && len(f.Depth) == 0 &&
		f.TableRegexInclude == "" && f.TableRegexExclude == "" && f.IsClustered == nil
}

// Compile validates the filter and compiles its patterns. It must be called
// before Matches.
func (f *Filter) Compile() error {
	if f.IsEmpty() {
		return core.ErrEmptyFilter
	}

	f.Types = lo.Uniq(append(f.Types, f.Type...))
	f.Type = nil

	if both := lo.Intersect(f.FieldsInclude, f.FieldsExclude); len(both) > 0 {
		return fmt.Errorf("fields %v are both included and excluded", both)
	}
	if f.RegexInclude != "" && f.RegexInclude == f.RegexExclude {
		return fmt.Errorf("regex %q is both included and excluded", f.RegexInclude)
	}
	if f.IsNested != nil && len(f.Depth) > 0 {
		nested := *f.IsNested
		if !lo.SomeBy(f.Depth, func(d int) bool { return (d > 0) == nested }) {
			return fmt.Errorf("is_nested: %t contradicts depth %v", nested, f.Depth)
		}
	}
	for _, t := range f.Types {
		if !core.LookerType(t).Valid() {
			return fmt.Errorf("unknown dimension type %q", t)
		}
	}

	var errs []error
	compile := func(name, expr string) *regexp.Regexp {
		if expr == "" {
			return nil
		}
		re, err := regexp.Compile(expr)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
		return re
	}
	f.include = compile("regex_include", f.RegexInclude)
	f.exclude = compile("regex_exclude", f.RegexExclude)
	f.tableInclude = compile("table_regex_include", f.TableRegexInclude)
	f.tableExclude = compile("table_regex_exclude", f.TableRegexExclude)
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	f.compiled = true
	return nil
}

// Matches reports whether the filter applies to field.
func (f *Filter) Matches(field *core.Field) bool {
	if !f.compiled {
		panic("recipe: Filter.Matches called before Compile")
	}

	switch {
	case len(f.Types) > 0 && !lo.Contains(f.Types, string(field.Type)):
		return false
	case len(f.DBTypes) > 0 && !lo.Contains(f.DBTypes, field.SourceType):
		return false
	case f.include != nil && !f.include.MatchString(field.Name):
		return false
	case f.exclude != nil && f.exclude.MatchString(field.Name):
		return false
	case len(f.Tags) > 0 && !lo.Some(field.Tags, f.Tags):
		return false
	case len(f.FieldsInclude) > 0 && !lo.Contains(f.FieldsInclude, field.Name):
		return false
	case len(f.FieldsExclude) > 0 && lo.Contains(f.FieldsExclude, field.Name):
		return false
	case len(f.FieldOrder) > 0 && !lo.Contains(f.FieldOrder, field.Order):
		return false
	case f.IsNested != nil && field.IsNested != *f.IsNested:
		return false
	case len(f.Depth) > 0 && !lo.Contains(f.Depth, field.Depth):
		return false
	case f.tableInclude != nil && (field.TableName == "" || !f.tableInclude.MatchString(field.TableName)):
		return false
	case f.tableExclude != nil && (field.TableName == "" || f.tableExclude.MatchString(field.TableName)):
		return false
	case f.IsClustered != nil && field.IsClustered != *f.IsClustered:
		return false
	}
	return true
}
