package commands

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/leapstack-labs/leaplook/internal/cli/output"
	"github.com/leapstack-labs/leaplook/internal/engine"
	"github.com/spf13/cobra"
)

// GenerateOptions holds options for the generate command.
type GenerateOptions struct {
	Watch  bool
	DryRun bool
	Tables []string
}

// NewGenerateCommand creates the generate command.
func NewGenerateCommand() *cobra.Command {
	opts := &GenerateOptions{}

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate LookML for the configured datasets",
		Long: `Fetch table schemas, apply the cookbook and write LookML view and explore files.

Each table is generated independently: a table whose schema cannot be fetched
is skipped, and a table whose schema or recipes are invalid fails without
stopping the others. The command exits non-zero when any table failed.

With --watch, the full generation reruns whenever the config file, the
cookbook, the lexicon or a schema file changes.`,
		Example: `  # Generate every configured dataset
  leaplook generate

  # Preview without writing files
  leaplook generate --dry-run

  # Generate two tables only
  leaplook generate --table orders --table shop.customers

  # Regenerate on change
  leaplook generate --watch`,
		Aliases: []string{"gen"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runGenerate(cmd, opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.Watch, "watch", "w", false, "Regenerate when inputs change")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "Generate without writing files")
	cmd.Flags().StringSliceVar(&opts.Tables, "table", nil, "Restrict to tables (name, dataset.table or project.dataset.table)")

	return cmd
}

func runGenerate(cmd *cobra.Command, opts *GenerateOptions) error {
	cmdCtx, err := NewCommandContextWithoutEngine(cmd)
	if err != nil {
		return err
	}

	report, watched, err := generateOnce(cmd.Context(), cmdCtx, opts)
	if !opts.Watch {
		if err != nil {
			return err
		}
		if _, _, failed := report.Counts(); failed > 0 {
			return fmt.Errorf("%d table(s) failed", failed)
		}
		return nil
	}
	if err != nil {
		cmdCtx.Renderer.Error(err.Error())
	}
	return watch(cmd, cmdCtx, opts, watched)
}

// generateOnce runs one full generation and renders its report. It also
// returns the schema directory of file-backed sources, for watch mode.
func generateOnce(ctx context.Context, cmdCtx *CommandContext, opts *GenerateOptions) (*engine.Report, string, error) {
	eng, err := createEngine(cmdCtx.Cfg, cmdCtx.Logger)
	if err != nil {
		return nil, "", err
	}
	defer func() { _ = eng.Close() }()

	var watched string
	if w, ok := eng.Source().(interface{ Watched() string }); ok {
		watched = w.Watched()
	}

	report, err := eng.Run(ctx, engine.Options{DryRun: opts.DryRun, Tables: opts.Tables})
	if err != nil {
		return report, watched, err
	}
	return report, watched, renderReport(cmdCtx.Renderer, report)
}

func renderReport(r *output.Renderer, report *engine.Report) error {
	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(buildGenerateOutput(report))
	case output.ModeMarkdown:
		renderReportMarkdown(r, report)
	default:
		renderReportText(r, report)
	}
	return nil
}

func buildGenerateOutput(report *engine.Report) output.GenerateOutput {
	generated, skipped, failed := report.Counts()
	out := output.GenerateOutput{
		RunID:      report.RunID,
		DryRun:     report.DryRun,
		DurationMS: report.Duration.Milliseconds(),
		Summary: output.GenerateSummary{
			Generated: generated,
			Skipped:   skipped,
			Failed:    failed,
			Warnings:  report.Warnings(),
		},
		Tables: make([]output.TableOutput, 0, len(report.Tables)),
	}
	for i := range report.Tables {
		t := &report.Tables[i]
		to := output.TableOutput{
			Table:    t.Ref.String(),
			Status:   string(t.Status),
			Views:    len(t.Views),
			Files:    t.Paths,
			Warnings: errorStrings(t.Warnings),
			Reason:   t.Reason,
		}
		if t.Err != nil {
			to.Error = t.Err.Error()
		}
		out.Tables = append(out.Tables, to)
	}
	return out
}

func renderReportText(r *output.Renderer, report *engine.Report) {
	styles := r.Styles()
	for i := range report.Tables {
		t := &report.Tables[i]
		switch t.Status {
		case engine.StatusGenerated:
			detail := fmt.Sprintf("%d view(s)", len(t.Views))
			if len(t.Paths) > 0 {
				detail += ", " + strings.Join(t.Paths, ", ")
			}
			r.Println(styles.Success.Render("✓") + " " + t.Ref.String() + " " + styles.Muted.Render(detail))
		case engine.StatusSkipped:
			r.Println(styles.Warning.Render("-") + " " + t.Ref.String() + " " + styles.Muted.Render("skipped: "+t.Reason))
		case engine.StatusFailed:
			r.Error(fmt.Sprintf("%s: %v", t.Ref, t.Err))
		}
		for _, w := range t.Warnings {
			r.Warning(fmt.Sprintf("%s: %v", t.Ref, w))
		}
	}

	generated, skipped, failed := report.Counts()
	summary := fmt.Sprintf("%d generated, %d skipped, %d failed in %dms", generated, skipped, failed, report.Duration.Milliseconds())
	if report.DryRun {
		summary += " (dry run, nothing written)"
	}
	r.Println("")
	if failed > 0 {
		r.Println(styles.Error.Render(summary))
	} else {
		r.Println(styles.Bold.Render(summary))
	}
	r.Muted("run " + report.RunID)
}

func renderReportMarkdown(r *output.Renderer, report *engine.Report) {
	generated, skipped, failed := report.Counts()

	r.Println(output.FormatHeader(1, "Generate Results"))
	r.Println("")
	r.Println(output.FormatKeyValue("Run ID", report.RunID))
	r.Println(output.FormatKeyValue("Generated", strconv.Itoa(generated)))
	r.Println(output.FormatKeyValue("Skipped", strconv.Itoa(skipped)))
	r.Println(output.FormatKeyValue("Failed", strconv.Itoa(failed)))
	r.Println(output.FormatKeyValue("Warnings", strconv.Itoa(report.Warnings())))
	r.Println(output.FormatKeyValue("Dry Run", strconv.FormatBool(report.DryRun)))
	r.Println("")

	if len(report.Tables) == 0 {
		return
	}
	r.Println(output.FormatHeader(2, "Tables"))
	r.Println("")
	rows := make([][]string, 0, len(report.Tables))
	for i := range report.Tables {
		t := &report.Tables[i]
		detail := strings.Join(t.Paths, ", ")
		switch t.Status {
		case engine.StatusSkipped:
			detail = t.Reason
		case engine.StatusFailed:
			detail = t.Err.Error()
		}
		rows = append(rows, []string{t.Ref.String(), string(t.Status), strconv.Itoa(len(t.Views)), detail})
	}
	r.Table([]string{"Table", "Status", "Views", "Detail"}, rows)
}

func errorStrings(errs []error) []string {
	if len(errs) == 0 {
		return nil
	}
	out := make([]string, len(errs))
	for i, err := range errs {
		out[i] = err.Error()
	}
	return out
}
