package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/leapstack-labs/leaplook/internal/lookml"
	"github.com/leapstack-labs/leaplook/pkg/core"
)

// Status is the outcome of one table in a run.
type Status string

// Table statuses.
const (
	StatusGenerated Status = "generated"
	StatusSkipped   Status = "skipped"
	StatusFailed    Status = "failed"
)

// TableResult is the outcome of one table. A dataset that could not be
// listed appears as a result with an empty table name.
type TableResult struct {
	Ref    core.TableRef
	Status Status

	Views   []core.View
	Explore *core.Explore
	Files   []lookml.File
	// Paths are the files written; empty on dry runs.
	Paths []string
	// Warnings are recoverable problems, such as unresolved placeholders.
	Warnings []error

	// Reason explains a skip.
	Reason   string
	Err      error
	Duration time.Duration
}

// Report summarizes a run.
type Report struct {
	RunID     string
	StartedAt time.Time
	Duration  time.Duration
	DryRun    bool
	Tables    []TableResult
}

// Counts returns the number of generated, skipped and failed tables.
func (r *Report) Counts() (generated, skipped, failed int) {
	for i := range r.Tables {
		switch r.Tables[i].Status {
		case StatusGenerated:
			generated++
		case StatusSkipped:
			skipped++
		case StatusFailed:
			failed++
		}
	}
	return generated, skipped, failed
}

// Warnings returns the total warning count.
func (r *Report) Warnings() int {
	n := 0
	for i := range r.Tables {
		n += len(r.Tables[i].Warnings)
	}
	return n
}

// Err joins the errors of every failed table, or returns nil.
func (r *Report) Err() error {
	var errs []error
	for i := range r.Tables {
		if t := &r.Tables[i]; t.Status == StatusFailed {
			errs = append(errs, fmt.Errorf("%s: %w", t.Ref, t.Err))
		}
	}
	return errors.Join(errs...)
}
