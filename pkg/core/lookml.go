package core

import "strings"

// =============================================================================
// LookML vocabulary
// =============================================================================

// LookerType is the presentation type of a dimension.
type LookerType string

// Dimension types.
const (
	TypeBin      LookerType = "bin"
	TypeDate     LookerType = "date"
	TypeDateTime LookerType = "date_time"
	TypeDistance LookerType = "distance"
	TypeDuration LookerType = "duration"
	TypeLocation LookerType = "location"
	TypeNumber   LookerType = "number"
	TypeString   LookerType = "string"
	TypeTier     LookerType = "tier"
	TypeTime     LookerType = "time"
	TypeYesNo    LookerType = "yesno"
	TypeZipcode  LookerType = "zipcode"
)

var lookerTypes = map[LookerType]bool{
	TypeBin: true, TypeDate: true, TypeDateTime: true, TypeDistance: true,
	TypeDuration: true, TypeLocation: true, TypeNumber: true, TypeString: true,
	TypeTier: true, TypeTime: true, TypeYesNo: true, TypeZipcode: true,
}

// Valid reports whether t is a known dimension type.
func (t LookerType) Valid() bool {
	return lookerTypes[t]
}

// MeasureType is the aggregation type of a measure.
type MeasureType string

// Measure types.
const (
	MeasureAverage            MeasureType = "average"
	MeasureAverageDistinct    MeasureType = "average_distinct"
	MeasureCount              MeasureType = "count"
	MeasureCountDistinct      MeasureType = "count_distinct"
	MeasureDate               MeasureType = "date"
	MeasureList               MeasureType = "list"
	MeasureMax                MeasureType = "max"
	MeasureMedian             MeasureType = "median"
	MeasureMedianDistinct     MeasureType = "median_distinct"
	MeasureMin                MeasureType = "min"
	MeasureNumber             MeasureType = "number"
	MeasurePercentile         MeasureType = "percentile"
	MeasurePercentileDistinct MeasureType = "percentile_distinct"
	MeasureRunningTotal       MeasureType = "running_total"
	MeasureString             MeasureType = "string"
	MeasureSum                MeasureType = "sum"
	MeasureSumDistinct        MeasureType = "sum_distinct"
	MeasureYesNo              MeasureType = "yesno"
	MeasurePeriodOverPeriod   MeasureType = "period_over_period"
)

var measureTypes = map[MeasureType]bool{
	MeasureAverage: true, MeasureAverageDistinct: true, MeasureCount: true,
	MeasureCountDistinct: true, MeasureDate: true, MeasureList: true, MeasureMax: true,
	MeasureMedian: true, MeasureMedianDistinct: true, MeasureMin: true, MeasureNumber: true,
	MeasurePercentile: true, MeasurePercentileDistinct: true, MeasureRunningTotal: true,
	MeasureString: true, MeasureSum: true, MeasureSumDistinct: true, MeasureYesNo: true,
	MeasurePeriodOverPeriod: true,
}

// Valid reports whether t is a known measure type.
func (t MeasureType) Valid() bool {
	return measureTypes[t]
}

// IsDistinct reports whether the measure deduplicates on a distinct key.
func (t MeasureType) IsDistinct() bool {
	return t == MeasureCountDistinct || t == MeasureSumDistinct
}

// IsPercentile reports whether the measure accepts a percentile.
func (t MeasureType) IsPercentile() bool {
	return strings.HasPrefix(string(t), string(MeasurePercentile))
}

// AcceptsPrecision reports whether the measure accepts a precision.
func (t MeasureType) AcceptsPrecision() bool {
	return t == MeasureAverage || t == MeasureSum
}

var valueFormatNames = map[string]bool{
	"decimal_0": true, "decimal_1": true, "decimal_2": true, "decimal_3": true, "decimal_4": true,
	"usd_0": true, "usd": true, "gbp_0": true, "gbp": true, "eur_0": true, "eur": true,
	"id": true, "percent_0": true, "percent_1": true, "percent_2": true, "percent_3": true,
	"percent_4": true,
}

// IsValueFormatName reports whether name is a built-in LookML value format.
func IsValueFormatName(name string) bool {
	return valueFormatNames[name]
}

var timeframes = map[string]bool{
	"raw": true, "time": true, "time_of_day": true, "hour": true, "hour_of_day": true,
	"minute": true, "second": true, "millisecond": true, "microsecond": true,
	"date": true, "week": true, "day_of_week": true, "day_of_week_index": true,
	"day_of_month": true, "day_of_year": true, "week_of_year": true, "month": true,
	"month_num": true, "month_name": true, "quarter": true, "quarter_of_year": true,
	"fiscal_month_num": true, "fiscal_quarter": true, "fiscal_quarter_of_year": true,
	"fiscal_year": true, "year": true,
}

// IsTimeframe reports whether name is a LookML dimension group timeframe.
func IsTimeframe(name string) bool {
	return timeframes[name]
}

// =============================================================================
// Enriched tree
// =============================================================================

// Dimension is an enriched field. Base dimensions mirror the canonical tree
// through Fields; variants are derived siblings with a Suffix.
type Dimension struct {
	Name            string
	Type            LookerType
	Label           string
	Description     string
	GroupLabel      string
	GroupItemLabel  string
	SQL             string
	HTML            string
	ValueFormatName string
	OrderByField    string
	CanFilter       string

	Hidden        *bool
	ConvertTZ     *bool
	Suggestable   *bool
	CaseSensitive *bool
	AllowFill     *bool

	Tags                 []string
	Timeframes           []string
	RequiredAccessGrants []string

	Suffix    string
	IsVariant bool

	Measures []Measure
	Fields   []Dimension

	// Path is the dotted canonical path of the generating field.
	Path string
	// Repeated marks a repeated-structure boundary.
	Repeated bool
	Depth    int
}

// MeasureFilter restricts the rows a measure aggregates.
type MeasureFilter struct {
	Dimension  string
	Expression string
}

// Measure is an aggregation attached to a dimension.
type Measure struct {
	Name            string
	Type            MeasureType
	SQL             string
	Label           string
	Description     string
	GroupLabel      string
	HTML            string
	ValueFormatName string
	SQLDistinctKey  string

	Hidden      *bool
	Approximate *bool

	ApproximateThreshold *int
	Precision            *int
	Percentile           *int

	Tags                 []string
	RequiredAccessGrants []string
	Filters              []MeasureFilter
}

// View is a flat LookML view: one per table and one per repeated boundary.
type View struct {
	Name         string
	SQLTableName string
	Description  string
	Dimensions   []Dimension
	Measures     []Measure
	// Parent is the name of the view this one is unnested from.
	Parent string
	Depth  int
}

// Join re-assembles a repeated boundary view with its parent.
type Join struct {
	Name          string
	ViewLabel     string
	SQL           string
	Type          string
	Relationship  string
	RequiredJoins []string
	Depth         int
}

// Join types and relationships emitted for unnest joins.
const (
	JoinLeftOuter     = "left_outer"
	RelationOneToMany = "one_to_many"
	ExtensionRequired = "required"
)

// Explore joins every view of one table back together.
type Explore struct {
	Name      string
	ViewName  string
	Extension string
	Joins     []Join
}
