package typemap

import (
	"fmt"

	"github.com/leapstack-labs/leaplook/pkg/core"
)

// BigQuery is the dialect name for Google BigQuery.
const BigQuery = "bigquery"

func init() {
	Register(&Dialect{
		Name: BigQuery,
		Types: map[string]core.LookerType{
			"INTEGER":    core.TypeNumber,
			"INT64":      core.TypeNumber,
			"FLOAT":      core.TypeNumber,
			"FLOAT64":    core.TypeNumber,
			"NUMERIC":    core.TypeNumber,
			"BIGNUMERIC": core.TypeNumber,
			"DECIMAL":    core.TypeNumber,
			"BIGDECIMAL": core.TypeNumber,
			"STRING":     core.TypeString,
			"BYTES":      core.TypeString,
			"JSON":       core.TypeString,
			"TIME":       core.TypeString,
			"INTERVAL":   core.TypeString,
			"RANGE":      core.TypeString,
			"GEOGRAPHY":  core.TypeString,
			"BOOLEAN":    core.TypeYesNo,
			"BOOL":       core.TypeYesNo,
			"TIMESTAMP":  core.TypeTime,
			"DATETIME":   core.TypeTime,
			"DATE":       core.TypeDate,
			"RECORD":     core.TypeString,
			"STRUCT":     core.TypeString,
			"ARRAY":      core.TypeString,
		},
		QuoteTable: func(ref core.TableRef) string {
			return fmt.Sprintf("`%s`", ref.String())
		},
	})
}
