package commands

import (
	"errors"
	"fmt"

	"github.com/leapstack-labs/leaplook/internal/cli/output"
	"github.com/leapstack-labs/leaplook/internal/recipe"
	"github.com/leapstack-labs/leaplook/internal/typemap"
	"github.com/leapstack-labs/leaplook/internal/warehouse"
	"github.com/spf13/cobra"
)

// errValidationFailed is returned after the report when a check fails.
var errValidationFailed = errors.New("validation failed")

// check is one validation step.
type check struct {
	Name   string
	Detail string
	Err    error
}

// NewValidateCommand creates the validate command.
func NewValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the config, cookbook and lexicon",
		Long: `Load the project configuration, the cookbook and the lexicon, resolve the
type dialect and open the schema source, reporting every problem found.

No schema is fetched and nothing is written.`,
		Example: `  # Validate the project in the current directory
  leaplook validate

  # Validate another config file, as JSON
  leaplook validate --config ci/leaplook.yaml -o json`,
		RunE: runValidate,
	}
}

func runValidate(cmd *cobra.Command, _ []string) error {
	cmdCtx, err := NewCommandContextWithoutEngine(cmd)
	if err != nil {
		return err
	}
	cfg := cmdCtx.Cfg

	out := output.ValidateOutput{
		ConfigFile: cfg.File,
		Source:     cfg.Source.Type,
		Dialect:    cfg.Dialect,
		Cookbook:   cfg.Cookbook,
	}
	for i := range cfg.Datasets {
		out.Datasets = append(out.Datasets, cfg.Datasets[i].Name())
	}

	configDetail := cfg.File
	if configDetail == "" {
		configDetail = "defaults and environment"
	}
	checks := []check{{Name: "config", Detail: configDetail}}

	cb, err := recipe.LoadCookbook(cfg.Cookbook)
	if err == nil {
		out.Recipes = cb.Names()
		checks = append(checks, check{Name: "cookbook", Detail: fmt.Sprintf("%d recipe(s)", len(cb.Recipes))})
	} else {
		checks = append(checks, check{Name: "cookbook", Err: err})
	}

	if cfg.Lexicon != "" {
		lex, err := recipe.LoadLexicon(cfg.Lexicon)
		out.LexiconEntries = len(lex)
		checks = append(checks, check{Name: "lexicon", Detail: fmt.Sprintf("%d entr(ies)", len(lex)), Err: err})
	}

	_, err = typemap.Lookup(cfg.Dialect)
	checks = append(checks, check{Name: "dialect", Detail: cfg.Dialect, Err: err})

	src, err := warehouse.Open(cfg.Source, cmdCtx.Logger)
	if err == nil {
		_ = src.Close()
	}
	checks = append(checks, check{Name: "source", Detail: cfg.Source.Type, Err: err})

	out.Valid = true
	for _, c := range checks {
		if c.Err != nil {
			out.Valid = false
			out.Errors = append(out.Errors, fmt.Sprintf("%s: %v", c.Name, c.Err))
		}
	}

	r := cmdCtx.Renderer
	switch r.EffectiveMode() {
	case output.ModeJSON:
		if err := r.JSON(out); err != nil {
			return err
		}
	case output.ModeMarkdown:
		renderValidateMarkdown(r, checks, &out)
	default:
		renderValidateText(r, checks, &out)
	}

	if !out.Valid {
		return errValidationFailed
	}
	return nil
}

func renderValidateText(r *output.Renderer, checks []check, out *output.ValidateOutput) {
	styles := r.Styles()
	r.Header(1, "leaplook project check")
	for _, c := range checks {
		if c.Err != nil {
			r.Println("  " + styles.Error.Render("✗") + " " + styles.Bold.Render(c.Name) + " " + styles.Error.Render(c.Err.Error()))
			continue
		}
		r.Println("  " + styles.Success.Render("✓") + " " + styles.Bold.Render(c.Name) + " " + styles.Muted.Render(c.Detail))
	}
	r.Println("")
	if out.Valid {
		r.Success(fmt.Sprintf("Project is valid (%d dataset(s))", len(out.Datasets)))
	} else {
		r.Error(fmt.Sprintf("%d check(s) failed", len(out.Errors)))
	}
}

func renderValidateMarkdown(r *output.Renderer, checks []check, out *output.ValidateOutput) {
	r.Println(output.FormatHeader(1, "Project Check"))
	r.Println("")
	rows := make([][]string, 0, len(checks))
	for _, c := range checks {
		status, detail := "ok", c.Detail
		if c.Err != nil {
			status, detail = "failed", c.Err.Error()
		}
		rows = append(rows, []string{c.Name, status, detail})
	}
	r.Table([]string{"Check", "Status", "Detail"}, rows)
	r.Println("")
	r.Println(output.FormatKeyValue("Valid", fmt.Sprintf("%t", out.Valid)))
}
