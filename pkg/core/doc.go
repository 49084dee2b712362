// Package core defines the shared language of the leaplook system.
//
// This package contains:
//   - Schema entities (RawField, RawTable, Field, Table)
//   - Enriched LookML entities (Dimension, Measure, View, Join, Explore)
//   - Configuration types (DatasetConfig, SourceConfig)
//   - The error taxonomy shared by every pipeline stage
//
// The Golden Rule: pkg/core imports ONLY stdlib.
// All other packages depend on core, not the reverse.
package core
