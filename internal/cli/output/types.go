package output

// GenerateOutput is the JSON result of the generate command.
type GenerateOutput struct {
	RunID      string          `json:"run_id"`
	DryRun     bool            `json:"dry_run"`
	DurationMS int64           `json:"duration_ms"`
	Summary    GenerateSummary `json:"summary"`
	Tables     []TableOutput   `json:"tables"`
}

// GenerateSummary counts table outcomes.
type GenerateSummary struct {
	Generated int `json:"generated"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
	Warnings  int `json:"warnings"`
}

// TableOutput is the outcome of one table.
type TableOutput struct {
	Table    string   `json:"table"`
	Status   string   `json:"status"`
	Views    int      `json:"views"`
	Files    []string `json:"files,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
	Reason   string   `json:"reason,omitempty"`
	Error    string   `json:"error,omitempty"`
}

// InspectOutput is the JSON result of the inspect command.
type InspectOutput struct {
	Table    string       `json:"table"`
	Views    []ViewOutput `json:"views"`
	Explore  string       `json:"explore,omitempty"`
	Joins    []JoinOutput `json:"joins,omitempty"`
	Warnings []string     `json:"warnings,omitempty"`
}

// ViewOutput describes one generated view.
type ViewOutput struct {
	Name         string        `json:"name"`
	SQLTableName string        `json:"sql_table_name,omitempty"`
	Dimensions   []FieldOutput `json:"dimensions"`
	Measures     []FieldOutput `json:"measures"`
}

// FieldOutput describes a dimension or measure.
type FieldOutput struct {
	Name   string `json:"name"`
	Type   string `json:"type"`
	Label  string `json:"label,omitempty"`
	SQL    string `json:"sql,omitempty"`
	Hidden bool   `json:"hidden,omitempty"`
}

// JoinOutput describes one explore join.
type JoinOutput struct {
	Name          string   `json:"name"`
	SQL           string   `json:"sql"`
	Relationship  string   `json:"relationship"`
	RequiredJoins []string `json:"required_joins,omitempty"`
}

// ValidateOutput is the JSON result of the validate command.
type ValidateOutput struct {
	Valid          bool     `json:"valid"`
	ConfigFile     string   `json:"config_file,omitempty"`
	Source         string   `json:"source,omitempty"`
	Dialect        string   `json:"dialect,omitempty"`
	Cookbook       string   `json:"cookbook,omitempty"`
	Recipes        []string `json:"recipes,omitempty"`
	LexiconEntries int      `json:"lexicon_entries"`
	Datasets       []string `json:"datasets,omitempty"`
	Errors         []string `json:"errors,omitempty"`
}
