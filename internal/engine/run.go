package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/leapstack-labs/leaplook/internal/lookml"
	"github.com/leapstack-labs/leaplook/internal/schema"
	"github.com/leapstack-labs/leaplook/internal/splitter"
	"github.com/leapstack-labs/leaplook/internal/warehouse"
	"github.com/leapstack-labs/leaplook/pkg/core"
	"golang.org/x/sync/errgroup"
)

// Options controls a run.
type Options struct {
	// DryRun generates everything but writes no files.
	DryRun bool
	// Tables restricts the run. Entries match a table name, dataset.table
	// or project.dataset.table.
	Tables []string
}

// job is one table to generate.
type job struct {
	ref core.TableRef
	ds  *core.DatasetConfig
}

// Run generates LookML for every selected table. Tables are fetched and
// processed concurrently; a failing table never stops the others. The
// returned error is reserved for configuration problems and cancellation,
// per-table failures are in the report.
func (e *Engine) Run(ctx context.Context, opts Options) (*Report, error) {
	report := &Report{
		RunID:     uuid.New().String(),
		StartedAt: time.Now(),
		DryRun:    opts.DryRun,
	}
	logger := e.logger.With("run_id", report.RunID)
	logger.Info("starting run", "datasets", len(e.datasets), "dry_run", opts.DryRun)

	jobs, err := e.discover(ctx, logger, opts, report)
	if err != nil {
		return report, err
	}
	logger.Debug("tables selected", "count", len(jobs))

	results := make([]TableResult, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for i, j := range jobs {
		g.Go(func() error {
			results[i] = e.generate(gctx, logger, j)
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return report, err
	}

	for i := range results {
		r := &results[i]
		if r.Status == StatusGenerated && !opts.DryRun {
			paths, err := e.writer.Write(r.Files)
			r.Paths = paths
			if err != nil {
				r.Status = StatusFailed
				r.Err = err
				logger.Error("table failed", "table", r.Ref.String(), "error", err)
			}
		}
		report.Tables = append(report.Tables, *r)
	}

	report.Duration = time.Since(report.StartedAt)
	generated, skipped, failed := report.Counts()
	logger.Info("run completed",
		"generated", generated,
		"skipped", skipped,
		"failed", failed,
		"warnings", report.Warnings(),
		"duration_ms", report.Duration.Milliseconds())
	return report, nil
}

// Inspect runs the pipeline for one table without writing anything. Unlike
// Run, a missing table is an error.
func (e *Engine) Inspect(ctx context.Context, ref core.TableRef) (*TableResult, error) {
	fctx, cancel := context.WithTimeout(ctx, e.fetchTimeout)
	defer cancel()

	start := time.Now()
	raw, err := e.source.FetchTable(fctx, ref)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", ref, err)
	}
	res := &TableResult{Ref: ref, Status: StatusGenerated}
	if err := e.build(raw, e.dataset(ref), res); err != nil {
		return nil, err
	}
	res.Duration = time.Since(start)
	return res, nil
}

// discover resolves the tables of every dataset, listing the dataset when
// no tables are configured, and applies the name filters.
func (e *Engine) discover(ctx context.Context, logger *slog.Logger, opts Options, report *Report) ([]job, error) {
	var jobs []job
	for i := range e.datasets {
		ds := &e.datasets[i]
		include, exclude, err := compileFilters(ds)
		if err != nil {
			return nil, core.NewConfigError(ds.Name(), err)
		}

		tables := ds.Tables
		if len(tables) == 0 {
			lctx, cancel := context.WithTimeout(ctx, e.fetchTimeout)
			tables, err = e.source.ListTables(lctx, ds.ProjectID, ds.DatasetID)
			cancel()
			if err != nil {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				ref := core.TableRef{Project: ds.ProjectID, Dataset: ds.DatasetID}
				if degraded(err) {
					logger.Warn("dataset skipped", "dataset", ds.Name(), "error", err)
					report.Tables = append(report.Tables, TableResult{Ref: ref, Status: StatusSkipped, Reason: err.Error()})
				} else {
					logger.Error("dataset failed", "dataset", ds.Name(), "error", err)
					report.Tables = append(report.Tables, TableResult{Ref: ref, Status: StatusFailed, Err: fmt.Errorf("failed to list tables: %w", err)})
				}
				continue
			}
			logger.Debug("listed tables", "dataset", ds.Name(), "count", len(tables))
		}

		for _, name := range tables {
			ref := core.TableRef{Project: ds.ProjectID, Dataset: ds.DatasetID, Table: name}
			if (include != nil && !include.MatchString(name)) || (exclude != nil && exclude.MatchString(name)) {
				logger.Debug("table filtered", "table", ref.String())
				continue
			}
			if !selected(ref, opts.Tables) {
				continue
			}
			jobs = append(jobs, job{ref: ref, ds: ds})
		}
	}
	return jobs, nil
}

// generate fetches and builds one table.
func (e *Engine) generate(ctx context.Context, logger *slog.Logger, j job) (res TableResult) {
	start := time.Now()
	res.Ref = j.ref
	defer func() { res.Duration = time.Since(start) }()

	fctx, cancel := context.WithTimeout(ctx, e.fetchTimeout)
	raw, err := e.source.FetchTable(fctx, j.ref)
	cancel()
	if err != nil {
		if degraded(err) && ctx.Err() == nil {
			logger.Warn("table skipped", "table", j.ref.String(), "error", err)
			res.Status = StatusSkipped
			res.Reason = err.Error()
			return res
		}
		logger.Error("table failed", "table", j.ref.String(), "error", err)
		res.Status = StatusFailed
		res.Err = fmt.Errorf("failed to fetch schema: %w", err)
		return res
	}

	if err := e.build(raw, j.ds, &res); err != nil {
		logger.Error("table failed", "table", j.ref.String(), "error", err)
		res.Status = StatusFailed
		res.Err = err
		return res
	}
	for _, w := range res.Warnings {
		logger.Warn("recipe warning", "table", j.ref.String(), "warning", w.Error())
	}
	res.Status = StatusGenerated
	logger.Debug("table generated", "table", j.ref.String(), "views", len(res.Views))
	return res
}

// build runs the pure pipeline: normalize, flatten, enrich, split, render.
func (e *Engine) build(raw *core.RawTable, ds *core.DatasetConfig, res *TableResult) error {
	table, err := schema.Normalize(raw, e.dialect)
	if err != nil {
		return err
	}
	mix, err := e.mixer.Mixturize(schema.Flatten(table), ds)
	if err != nil {
		return err
	}
	views, explore, err := splitter.Split(mix, ds)
	if err != nil {
		return err
	}
	res.Views = views
	res.Explore = explore
	res.Warnings = mix.Warnings
	res.Files = lookml.Files(raw.Ref.Table, views, explore, ds)
	return nil
}

// dataset returns the configured dataset holding ref, or a default one.
func (e *Engine) dataset(ref core.TableRef) *core.DatasetConfig {
	for i := range e.datasets {
		ds := &e.datasets[i]
		if ds.ProjectID == ref.Project && ds.DatasetID == ref.Dataset {
			return ds
		}
	}
	return &core.DatasetConfig{ProjectID: ref.Project, DatasetID: ref.Dataset}
}

// degraded reports whether a fetch error only empties one table's result.
func degraded(err error) bool {
	return errors.Is(err, warehouse.ErrTableNotFound) ||
		errors.Is(err, warehouse.ErrDatasetNotFound) ||
		errors.Is(err, context.DeadlineExceeded)
}

func compileFilters(ds *core.DatasetConfig) (include, exclude *regexp.Regexp, err error) {
	if ds.RegexInclude != "" {
		if include, err = regexp.Compile(ds.RegexInclude); err != nil {
			return nil, nil, fmt.Errorf("regex_include: %w", err)
		}
	}
	if ds.RegexExclude != "" {
		if exclude, err = regexp.Compile(ds.RegexExclude); err != nil {
			return nil, nil, fmt.Errorf("regex_exclude: %w", err)
		}
	}
	return include, exclude, nil
}

func selected(ref core.TableRef, filter []string) bool {
	if len(filter) == 0 {
		return true
	}
	for _, f := range filter {
		if f == ref.Table || f == ref.Dataset+"."+ref.Table || f == ref.String() {
			return true
		}
	}
	return false
}

// ParseRef parses a project.dataset.table reference.
func ParseRef(s string) (core.TableRef, error) {
	parts := strings.Split(s, ".")
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return core.TableRef{}, fmt.Errorf("invalid table reference %q: expected project.dataset.table", s)
	}
	return core.TableRef{Project: parts[0], Dataset: parts[1], Table: parts[2]}, nil
}
