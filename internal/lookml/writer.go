package lookml

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/leapstack-labs/leaplook/pkg/core"
)

// File is one generated LookML file, relative to the output directory.
type File struct {
	Path    string
	Content string
}

// Files renders the output of one table: a view file holding every view and,
// when present, an explore file. Both live under a directory named after the
// dataset and take the dataset's file affixes.
func Files(table string, views []core.View, explore *core.Explore, ds *core.DatasetConfig) []File {
	base := filepath.Join(ds.DatasetID, ds.PrefixFiles+table+ds.SuffixFiles)
	files := []File{{
		Path:    base + ".view.lkml",
		Content: Views(views, OptionsFor(ds)),
	}}
	if explore != nil {
		files = append(files, File{
			Path:    base + ".explore.lkml",
			Content: Explore(explore),
		})
	}
	return files
}

// Writer writes generated files below a directory.
type Writer struct {
	dir    string
	logger *slog.Logger
}

// NewWriter creates a writer rooted at dir.
func NewWriter(dir string, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Writer{dir: dir, logger: logger}
}

// Write writes files and returns their full paths.
func (w *Writer) Write(files []File) ([]string, error) {
	paths := make([]string, 0, len(files))
	for _, f := range files {
		path := filepath.Join(w.dir, f.Path)
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return paths, fmt.Errorf("failed to create output directory: %w", err)
		}
		if err := os.WriteFile(path, []byte(f.Content), 0o600); err != nil {
			return paths, fmt.Errorf("failed to write %s: %w", path, err)
		}
		w.logger.Debug("wrote file", slog.String("path", path), slog.Int("bytes", len(f.Content)))
		paths = append(paths, path)
	}
	return paths, nil
}
