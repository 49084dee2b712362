package core

// SourceConfig selects and configures the schema source.
type SourceConfig struct {
	Type string `koanf:"type" validate:"required,oneof=bigquery files duckdb"` // bigquery, files, duckdb

	// Path is the schema directory (files) or database file (duckdb).
	Path string `koanf:"path"`

	// Token is a bearer token for the BigQuery REST API.
	Token string `koanf:"token"`

	// Endpoint overrides the BigQuery API base URL.
	Endpoint string `koanf:"endpoint"`
}

// DatasetConfig holds the per-dataset generation options.
type DatasetConfig struct {
	ProjectID string   `koanf:"project_id" validate:"required"`
	DatasetID string   `koanf:"dataset_id" validate:"required"`
	Tables    []string `koanf:"tables"`

	PrefixViews string `koanf:"prefix_views"`
	SuffixViews string `koanf:"suffix_views"`
	PrefixFiles string `koanf:"prefix_files"`
	SuffixFiles string `koanf:"suffix_files"`

	// Table name filters, applied before any schema is fetched.
	RegexInclude string `koanf:"regex_include"`
	RegexExclude string `koanf:"regex_exclude"`

	// Explore controls join generation (default: true).
	Explore              *bool `koanf:"explore"`
	Unstyled             bool  `koanf:"unstyled"`
	ExploresAsExtensions bool  `koanf:"explores_as_extensions"`
	// IncludeDescriptions controls description output (default: true).
	IncludeDescriptions *bool `koanf:"include_descriptions"`

	ApplyRecipe   []string `koanf:"apply_recipe"`
	ExcludeRecipe []string `koanf:"exclude_recipe"`
	FieldTypes    []string `koanf:"field_types" validate:"dive,oneof=bin date date_time distance duration location number string tier time yesno zipcode"`

	// VariantNameStrip is removed from generated variant names.
	VariantNameStrip string `koanf:"variant_name_strip"`
}

// ExploreEnabled reports whether an explore is generated for the dataset.
func (d *DatasetConfig) ExploreEnabled() bool {
	return d.Explore == nil || *d.Explore
}

// DescriptionsEnabled reports whether descriptions are written to LookML.
func (d *DatasetConfig) DescriptionsEnabled() bool {
	return d.IncludeDescriptions == nil || *d.IncludeDescriptions
}

// Name returns the dotted project.dataset name.
func (d *DatasetConfig) Name() string {
	return d.ProjectID + "." + d.DatasetID
}
