// Package attrs holds the optional-field attribute records that recipes,
// lexicon entries and columns contribute to an enriched dimension, and the
// generic combiner that merges them.
//
// Scalars are pointers and lists are slices: a nil pointer or an empty slice
// means "absent" and never overwrites a present value.
package attrs

// Dimension is the attribute payload of a dimension. A Dimension with a
// Suffix is a variant.
type Dimension struct {
	Name            *string `yaml:"name"`
	Type            *string `yaml:"type"`
	Label           *string `yaml:"label"`
	Description     *string `yaml:"description"`
	GroupLabel      *string `yaml:"group_label"`
	GroupItemLabel  *string `yaml:"group_item_label"`
	SQL             *string `yaml:"sql"`
	HTML            *string `yaml:"html"`
	ValueFormatName *string `yaml:"value_format_name"`
	OrderByField    *string `yaml:"order_by_field"`
	CanFilter       *string `yaml:"can_filter"`
	Suffix          *string `yaml:"suffix"`

	Hidden        *bool `yaml:"hidden"`
	ConvertTZ     *bool `yaml:"convert_tz"`
	Suggestable   *bool `yaml:"suggestable"`
	CaseSensitive *bool `yaml:"case_sensitive"`
	AllowFill     *bool `yaml:"allow_fill"`

	Tags                 []string `yaml:"tags"`
	Timeframes           []string `yaml:"timeframes"`
	RequiredAccessGrants []string `yaml:"required_access_grants"`

	Measures []Measure   `yaml:"measures"`
	Variants []Dimension `yaml:"variants"`
}

// Measure is the attribute payload of a measure.
type Measure struct {
	Type            *string `yaml:"type"`
	SQL             *string `yaml:"sql"`
	Label           *string `yaml:"label"`
	Description     *string `yaml:"description"`
	GroupLabel      *string `yaml:"group_label"`
	HTML            *string `yaml:"html"`
	ValueFormatName *string `yaml:"value_format_name"`
	SQLDistinctKey  *string `yaml:"sql_distinct_key"`

	Hidden      *bool `yaml:"hidden"`
	Approximate *bool `yaml:"approximate"`

	ApproximateThreshold *int `yaml:"approximate_threshold"`
	Precision            *int `yaml:"precision"`
	Percentile           *int `yaml:"percentile"`

	Tags                 []string        `yaml:"tags"`
	RequiredAccessGrants []string        `yaml:"required_access_grants"`
	Filters              []MeasureFilter `yaml:"filters"`
}

// MeasureFilter is a filtered-measure condition.
type MeasureFilter struct {
	Dimension  string `yaml:"filter_dimension"`
	Expression string `yaml:"filter_expression"`
}

// String returns a pointer to s.
func String(s string) *string { return &s }

// Bool returns a pointer to b.
func Bool(b bool) *bool { return &b }

// Int returns a pointer to i.
func Int(i int) *int { return &i }

// Value returns the pointed-to value or the zero value.
func Value[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}

// NonEmpty returns a pointer to s, or nil when s is empty.
func NonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
