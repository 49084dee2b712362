package config

import "time"

// Default configuration values.
const (
	DefaultCookbook     = "loader_recipe.yml"
	DefaultOutputDir    = "output"
	DefaultConcurrency  = 8
	DefaultFetchTimeout = 10 * time.Second
	DefaultLogLevel     = "info"
	DefaultOutput       = "auto"
)

// defaults is the lowest configuration layer.
func defaults() map[string]any {
	return map[string]any{
		"cookbook":      DefaultCookbook,
		"output_dir":    DefaultOutputDir,
		"concurrency":   DefaultConcurrency,
		"fetch_timeout": DefaultFetchTimeout.String(),
		"log_level":     DefaultLogLevel,
		"verbose":       false,
		"output":        DefaultOutput,
	}
}

// DefaultDialectForSource returns the type-mapper dialect matching a source
// type. JSON schema files are BigQuery table resources.
func DefaultDialectForSource(sourceType string) string {
	switch sourceType {
	case "duckdb":
		return "duckdb"
	default:
		return "bigquery"
	}
}
