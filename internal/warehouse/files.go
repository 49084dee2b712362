package warehouse

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/leapstack-labs/leaplook/internal/typemap"
	"github.com/leapstack-labs/leaplook/pkg/core"
)

func init() {
	Register("files", func(cfg core.SourceConfig, logger *slog.Logger) (Source, error) {
		return NewFiles(cfg.Path, logger)
	})
}

// Files reads BigQuery table resources exported as JSON, one file per
// table named <project>.<dataset>.<table>.json.
type Files struct {
	dir    string
	logger *slog.Logger
}

// NewFiles creates a source over dir, which must exist.
func NewFiles(dir string, logger *slog.Logger) (*Files, error) {
	if dir == "" {
		return nil, fmt.Errorf("files source requires source.path")
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("schema directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("schema directory %s is not a directory", dir)
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Files{dir: dir, logger: logger}, nil
}

// Dialect implements Source.
func (f *Files) Dialect() string { return typemap.BigQuery }

// Close implements Source.
func (f *Files) Close() error { return nil }

// Path returns the schema file of a table.
func (f *Files) Path(ref core.TableRef) string {
	return filepath.Join(f.dir, fmt.Sprintf("%s.%s.%s.json", ref.Project, ref.Dataset, ref.Table))
}

// FetchTable implements Source.
func (f *Files) FetchTable(ctx context.Context, ref core.TableRef) (*core.RawTable, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := f.Path(ref)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, notFound(ref)
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	f.logger.Debug("read schema file", slog.String("path", path))

	table, err := ParseTable(data, ref)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return table, nil
}

// ListTables implements Source.
func (f *Files) ListTables(ctx context.Context, project, dataset string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	prefix := project + "." + dataset + "."
	matches, err := filepath.Glob(filepath.Join(f.dir, globEscape(prefix)+"*.json"))
	if err != nil {
		return nil, err
	}

	tables := make([]string, 0, len(matches))
	for _, m := range matches {
		name := strings.TrimSuffix(strings.TrimPrefix(filepath.Base(m), prefix), ".json")
		if name != "" && !strings.Contains(name, ".") {
			tables = append(tables, name)
		}
	}
	sort.Strings(tables)
	return tables, nil
}

// Watched returns the directory holding the schema files.
func (f *Files) Watched() string { return f.dir }

func globEscape(s string) string {
	r := strings.NewReplacer(`*`, `\*`, `?`, `\?`, `[`, `\[`, `\`, `\\`)
	return r.Replace(s)
}
