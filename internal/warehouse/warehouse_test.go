package warehouse

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/leapstack-labs/leaplook/internal/testutil"
	"github.com/leapstack-labs/leaplook/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ordersJSON = `{
  "kind": "bigquery#table",
  "tableReference": {"projectId": "p", "datasetId": "shop", "tableId": "orders"},
  "description": "All orders",
  "labels": {"team": "sales"},
  "clustering": {"fields": ["id"]},
  "schema": {
    "fields": [
      {"name": "id", "type": "STRING", "mode": "REQUIRED"},
      {"name": "items", "type": "RECORD", "mode": "REPEATED", "fields": [
        {"name": "sku", "type": "STRING", "description": "Stock unit"},
        {"name": "tags", "type": "STRING", "mode": "REPEATED"}
      ]}
    ]
  }
}`

func TestParseTable(t *testing.T) {
	table, err := ParseTable([]byte(ordersJSON), core.TableRef{})
	require.NoError(t, err)

	assert.Equal(t, core.TableRef{Project: "p", Dataset: "shop", Table: "orders"}, table.Ref)
	assert.Equal(t, "All orders", table.Description)
	assert.Equal(t, map[string]string{"team": "sales"}, table.Labels)
	assert.Equal(t, []string{"id"}, table.Clustering)

	require.Len(t, table.Fields, 2)
	assert.Equal(t, core.RawField{Name: "id", Type: "STRING", Mode: core.ModeRequired}, table.Fields[0])
	items := table.Fields[1]
	assert.Equal(t, core.ModeRepeated, items.Mode)
	require.Len(t, items.Fields, 2)
	assert.Equal(t, "Stock unit", items.Fields[0].Description)
	assert.Equal(t, core.ModeRepeated, items.Fields[1].Mode)
}

func TestParseTable_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"invalid json", `{"schema":`},
		{"no table id", `{"schema": {"fields": []}}`},
		{"no schema", `{"tableReference": {"tableId": "t"}}`},
		{"field not an object", `{"tableReference": {"tableId": "t"}, "schema": {"fields": ["id"]}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseTable([]byte(tt.data), core.TableRef{})
			assert.Error(t, err)
		})
	}

	table, err := ParseTable([]byte(`{"schema": {"fields": []}}`), core.TableRef{Project: "p", Dataset: "d", Table: "t"})
	require.NoError(t, err, "reference falls back to the requested table")
	assert.Equal(t, "t", table.Ref.Table)
}

func newBigQueryServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/projects/p/datasets/shop/tables/orders", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer secret" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error": "unauthorized"}`))
			return
		}
		_, _ = w.Write([]byte(ordersJSON))
	})
	mux.HandleFunc("/projects/p/datasets/shop/tables", func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("pageToken") {
		case "":
			_, _ = w.Write([]byte(`{"tables": [{"tableReference": {"tableId": "orders"}}], "nextPageToken": "2"}`))
		case "2":
			_, _ = w.Write([]byte(`{"tables": [{"tableReference": {"tableId": "customers"}}]}`))
		}
	})
	mux.HandleFunc("/projects/p/datasets/slow/tables/t", func(_ http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestBigQuery_FetchTable(t *testing.T) {
	srv := newBigQueryServer(t)
	ctx := context.Background()
	bq := NewBigQuery(srv.URL, "secret", srv.Client(), testutil.NewTestLogger(t))

	table, err := bq.FetchTable(ctx, core.TableRef{Project: "p", Dataset: "shop", Table: "orders"})
	require.NoError(t, err)
	assert.Equal(t, "orders", table.Ref.Table)
	assert.Len(t, table.Fields, 2)

	_, err = bq.FetchTable(ctx, core.TableRef{Project: "p", Dataset: "shop", Table: "missing"})
	assert.ErrorIs(t, err, ErrTableNotFound)

	anon := NewBigQuery(srv.URL, "", srv.Client(), nil)
	_, err = anon.FetchTable(ctx, core.TableRef{Project: "p", Dataset: "shop", Table: "orders"})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.NotErrorIs(t, err, ErrTableNotFound)
}

func TestBigQuery_FetchTable_Timeout(t *testing.T) {
	srv := newBigQueryServer(t)
	bq := NewBigQuery(srv.URL, "", srv.Client(), nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := bq.FetchTable(ctx, core.TableRef{Project: "p", Dataset: "slow", Table: "t"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestBigQuery_ListTables(t *testing.T) {
	srv := newBigQueryServer(t)
	bq := NewBigQuery(srv.URL+"/", "", srv.Client(), nil)

	tables, err := bq.ListTables(context.Background(), "p", "shop")
	require.NoError(t, err)
	assert.Equal(t, []string{"customers", "orders"}, tables)

	_, err = bq.ListTables(context.Background(), "p", "nope")
	assert.ErrorIs(t, err, ErrDatasetNotFound)
}

func TestFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "p.shop.orders.json"), []byte(ordersJSON), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "p.shop.events.json"), []byte(`{"schema": {"fields": [{"name": "at", "type": "TIMESTAMP"}]}}`), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "p.other.x.json"), []byte(`{}`), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte(`hi`), 0o600))

	src, err := NewFiles(dir, testutil.NewTestLogger(t))
	require.NoError(t, err)
	ctx := context.Background()

	tables, err := src.ListTables(ctx, "p", "shop")
	require.NoError(t, err)
	assert.Equal(t, []string{"events", "orders"}, tables)

	events, err := src.FetchTable(ctx, core.TableRef{Project: "p", Dataset: "shop", Table: "events"})
	require.NoError(t, err)
	assert.Equal(t, core.TableRef{Project: "p", Dataset: "shop", Table: "events"}, events.Ref)
	assert.Equal(t, "TIMESTAMP", events.Fields[0].Type)

	_, err = src.FetchTable(ctx, core.TableRef{Project: "p", Dataset: "shop", Table: "missing"})
	assert.ErrorIs(t, err, ErrTableNotFound)

	_, err = NewFiles(filepath.Join(dir, "nope"), nil)
	assert.Error(t, err)
	_, err = NewFiles("", nil)
	assert.Error(t, err)
}

func TestParseDuckDBType(t *testing.T) {
	tests := []struct {
		name     string
		dataType string
		want     core.RawField
	}{
		{
			name:     "scalar",
			dataType: "DECIMAL(18,3)",
			want:     core.RawField{Name: "c", Type: "DECIMAL(18,3)"},
		},
		{
			name:     "list",
			dataType: "VARCHAR[]",
			want:     core.RawField{Name: "c", Type: "VARCHAR", Mode: core.ModeRepeated},
		},
		{
			name:     "fixed array",
			dataType: "INTEGER[3]",
			want:     core.RawField{Name: "c", Type: "INTEGER", Mode: core.ModeRepeated},
		},
		{
			name:     "map stays scalar",
			dataType: "MAP(VARCHAR, INTEGER[])",
			want:     core.RawField{Name: "c", Type: "MAP(VARCHAR, INTEGER[])"},
		},
		{
			name:     "struct",
			dataType: `STRUCT(a INTEGER, "b c" VARCHAR[], d DECIMAL(10,2))`,
			want: core.RawField{Name: "c", Type: "STRUCT", Fields: []core.RawField{
				{Name: "a", Type: "INTEGER"},
				{Name: "b c", Type: "VARCHAR", Mode: core.ModeRepeated},
				{Name: "d", Type: "DECIMAL(10,2)"},
			}},
		},
		{
			name:     "list of structs",
			dataType: "STRUCT(sku VARCHAR, tags VARCHAR[])[]",
			want: core.RawField{Name: "c", Type: "STRUCT", Mode: core.ModeRepeated, Fields: []core.RawField{
				{Name: "sku", Type: "VARCHAR"},
				{Name: "tags", Type: "VARCHAR", Mode: core.ModeRepeated},
			}},
		},
		{
			name:     "list of lists collapses",
			dataType: "INTEGER[][]",
			want:     core.RawField{Name: "c", Type: "INTEGER", Mode: core.ModeRepeated},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDuckDBType("c", tt.dataType)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	for _, bad := range []string{"", "INTEGER]", "STRUCT(a)", "STRUCT()", `STRUCT("a INTEGER)`} {
		_, err := ParseDuckDBType("c", bad)
		assert.Error(t, err, bad)
	}
}

func TestDuckDB_FetchTable(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	src := NewDuckDB(db, testutil.NewTestLogger(t))
	ref := core.TableRef{Project: "warehouse", Dataset: "main", Table: "orders"}

	mock.ExpectQuery("FROM information_schema.columns").
		WithArgs("warehouse", "main", "orders").
		WillReturnRows(sqlmock.NewRows([]string{"column_name", "data_type", "is_nullable", "column_comment"}).
			AddRow("id", "VARCHAR", "NO", "Order id").
			AddRow("items", "STRUCT(sku VARCHAR, tags VARCHAR[])[]", "YES", ""))

	table, err := src.FetchTable(context.Background(), ref)
	require.NoError(t, err)
	assert.Equal(t, ref, table.Ref)
	require.Len(t, table.Fields, 2)
	assert.Equal(t, core.RawField{Name: "id", Type: "VARCHAR", Mode: core.ModeRequired, Description: "Order id"}, table.Fields[0])
	assert.Equal(t, core.ModeRepeated, table.Fields[1].Mode)
	assert.Len(t, table.Fields[1].Fields, 2)

	mock.ExpectQuery("FROM information_schema.columns").
		WithArgs("warehouse", "main", "missing").
		WillReturnRows(sqlmock.NewRows([]string{"column_name", "data_type", "is_nullable", "column_comment"}))
	_, err = src.FetchTable(context.Background(), core.TableRef{Project: "warehouse", Dataset: "main", Table: "missing"})
	assert.ErrorIs(t, err, ErrTableNotFound)

	mock.ExpectQuery("FROM information_schema.columns").
		WillReturnRows(sqlmock.NewRows([]string{"column_name", "data_type", "is_nullable", "column_comment"}).
			AddRow("broken", "STRUCT(a)", "YES", ""))
	_, err = src.FetchTable(context.Background(), ref)
	var sErr *core.SchemaError
	assert.ErrorAs(t, err, &sErr)

	mock.ExpectClose()
	require.NoError(t, src.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDuckDB_ListTables(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	src := NewDuckDB(db, nil)

	mock.ExpectQuery("FROM information_schema.tables").
		WithArgs("warehouse", "main").
		WillReturnRows(sqlmock.NewRows([]string{"table_name"}).AddRow("customers").AddRow("orders"))
	tables, err := src.ListTables(context.Background(), "warehouse", "main")
	require.NoError(t, err)
	assert.Equal(t, []string{"customers", "orders"}, tables)

	mock.ExpectQuery("FROM information_schema.tables").
		WillReturnRows(sqlmock.NewRows([]string{"table_name"}))
	_, err = src.ListTables(context.Background(), "warehouse", "empty")
	assert.ErrorIs(t, err, ErrDatasetNotFound)

	mock.ExpectQuery("FROM information_schema.tables").WillReturnError(assert.AnError)
	_, err = src.ListTables(context.Background(), "warehouse", "main")
	assert.ErrorIs(t, err, assert.AnError)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDuckDB_InMemory(t *testing.T) {
	ctx := context.Background()
	src, err := OpenDuckDB(ctx, ":memory:", nil)
	require.NoError(t, err)
	defer func() { _ = src.Close() }()

	_, err = src.db.ExecContext(ctx, `CREATE TABLE orders (id VARCHAR NOT NULL, items STRUCT(sku VARCHAR, qty INTEGER)[])`)
	require.NoError(t, err)

	tables, err := src.ListTables(ctx, "memory", "main")
	require.NoError(t, err)
	assert.Equal(t, []string{"orders"}, tables)

	table, err := src.FetchTable(ctx, core.TableRef{Project: "memory", Dataset: "main", Table: "orders"})
	require.NoError(t, err)
	require.Len(t, table.Fields, 2)
	assert.Equal(t, core.ModeRequired, table.Fields[0].Mode)
	assert.Equal(t, core.ModeRepeated, table.Fields[1].Mode)
	assert.Equal(t, []string{"sku", "qty"}, []string{table.Fields[1].Fields[0].Name, table.Fields[1].Fields[1].Name})
}

func TestRegistry(t *testing.T) {
	assert.Equal(t, []string{"bigquery", "duckdb", "files"}, List())
	assert.True(t, IsRegistered("files"))

	_, err := Open(core.SourceConfig{Type: "snowflake"}, nil)
	var unknown *UnknownSourceError
	require.ErrorAs(t, err, &unknown)
	assert.Contains(t, unknown.Error(), "bigquery")

	_, err = Open(core.SourceConfig{}, nil)
	assert.Error(t, err)

	src, err := Open(core.SourceConfig{Type: "files", Path: t.TempDir()}, nil)
	require.NoError(t, err)
	assert.Equal(t, "bigquery", src.Dialect())
}
