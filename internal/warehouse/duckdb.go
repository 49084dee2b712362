package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/leaplook/internal/typemap"
	"github.com/leapstack-labs/leaplook/pkg/core"

	_ "github.com/marcboeker/go-duckdb" // duckdb driver
)

const listTablesQuery = `
	SELECT table_name
	FROM information_schema.tables
	WHERE table_catalog = ? AND table_schema = ?
	ORDER BY table_name
`

const columnsQuery = `
	SELECT
		column_name,
		data_type,
		is_nullable,
		COALESCE(column_comment, '')
	FROM information_schema.columns
	WHERE table_catalog = ? AND table_schema = ? AND table_name = ?
	ORDER BY ordinal_position
`

func init() {
	Register("duckdb", func(cfg core.SourceConfig, logger *slog.Logger) (Source, error) {
		return OpenDuckDB(context.Background(), cfg.Path, logger)
	})
}

// DuckDB reads table schemas from a DuckDB database's information_schema.
// The project of a table reference is the database catalog and the dataset
// is the schema.
type DuckDB struct {
	db     *sql.DB
	logger *slog.Logger
}

// OpenDuckDB opens a database file. Use ":memory:" or an empty path for an
// in-memory database.
func OpenDuckDB(ctx context.Context, path string, logger *slog.Logger) (*DuckDB, error) {
	if path == "" {
		path = ":memory:"
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open duckdb connection: %w", err)
	}

	// Test the connection
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping duckdb: %w", err)
	}
	return NewDuckDB(db, logger), nil
}

// NewDuckDB wraps an open database handle.
func NewDuckDB(db *sql.DB, logger *slog.Logger) *DuckDB {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &DuckDB{db: db, logger: logger}
}

// Dialect implements Source.
func (d *DuckDB) Dialect() string { return typemap.DuckDB }

// Close implements Source.
func (d *DuckDB) Close() error {
	if d.db == nil {
		return nil
	}
	d.logger.Debug("closing database connection")
	return d.db.Close()
}

// ListTables implements Source.
func (d *DuckDB) ListTables(ctx context.Context, project, dataset string) ([]string, error) {
	rows, err := d.db.QueryContext(ctx, listTablesQuery, project, dataset)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan table name: %w", err)
		}
		tables = append(tables, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tables: %w", err)
	}
	if len(tables) == 0 {
		return nil, fmt.Errorf("%s.%s: %w", project, dataset, ErrDatasetNotFound)
	}
	return tables, nil
}

// FetchTable implements Source. Nested column types are parsed from their
// DuckDB spelling into RECORD and REPEATED fields.
func (d *DuckDB) FetchTable(ctx context.Context, ref core.TableRef) (*core.RawTable, error) {
	rows, err := d.db.QueryContext(ctx, columnsQuery, ref.Project, ref.Dataset, ref.Table)
	if err != nil {
		return nil, fmt.Errorf("failed to query column metadata: %w", err)
	}
	defer func() { _ = rows.Close() }()

	table := &core.RawTable{Ref: ref}
	for rows.Next() {
		var name, dataType, nullable, comment string
		if err := rows.Scan(&name, &dataType, &nullable, &comment); err != nil {
			return nil, fmt.Errorf("failed to scan column metadata: %w", err)
		}
		field, err := ParseDuckDBType(name, dataType)
		if err != nil {
			return nil, &core.SchemaError{Table: ref.Table, Path: name, Msg: err.Error()}
		}
		if nullable == "NO" && field.Mode == "" {
			field.Mode = core.ModeRequired
		}
		field.Description = comment
		table.Fields = append(table.Fields, field)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating column metadata: %w", err)
	}

	if len(table.Fields) == 0 {
		return nil, notFound(ref)
	}
	return table, nil
}
