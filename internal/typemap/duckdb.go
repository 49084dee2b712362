package typemap

import (
	"strings"

	"github.com/leapstack-labs/leaplook/pkg/core"
)

// DuckDB is the dialect name for DuckDB.
const DuckDB = "duckdb"

func init() {
	types := map[string]core.LookerType{
		"STRUCT": core.TypeString,
		"MAP":    core.TypeString,
		"LIST":   core.TypeString,
		"UNION":  core.TypeString,
		// normalized struct/list names so DuckDB schemas share the structural vocabulary
		"RECORD": core.TypeString,
		"ARRAY":  core.TypeString,
	}
	for _, t := range []string{
		"TINYINT", "SMALLINT", "INTEGER", "INT", "BIGINT", "HUGEINT", "UTINYINT",
		"USMALLINT", "UINTEGER", "UBIGINT", "UHUGEINT", "FLOAT", "REAL", "DOUBLE",
		"DECIMAL", "NUMERIC",
	} {
		types[t] = core.TypeNumber
	}
	for _, t := range []string{
		"VARCHAR", "TEXT", "STRING", "CHAR", "BPCHAR", "BLOB", "UUID", "JSON",
		"INTERVAL", "TIME", "ENUM", "BIT",
	} {
		types[t] = core.TypeString
	}
	for _, t := range []string{
		"TIMESTAMP", "TIMESTAMPTZ", "TIMESTAMP WITH TIME ZONE", "TIMESTAMP_S",
		"TIMESTAMP_MS", "TIMESTAMP_NS", "DATETIME",
	} {
		types[t] = core.TypeTime
	}
	types["BOOLEAN"] = core.TypeYesNo
	types["BOOL"] = core.TypeYesNo
	types["DATE"] = core.TypeDate

	Register(&Dialect{
		Name:  DuckDB,
		Types: types,
		QuoteTable: func(ref core.TableRef) string {
			parts := []string{ref.Dataset, ref.Table}
			if ref.Project != "" {
				parts = append([]string{ref.Project}, parts...)
			}
			for i, p := range parts {
				parts[i] = `"` + strings.ReplaceAll(p, `"`, `""`) + `"`
			}
			return strings.Join(parts, ".")
		},
	})
}
