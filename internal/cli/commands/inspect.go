package commands

import (
	"strconv"
	"strings"

	"github.com/leapstack-labs/leaplook/internal/cli/output"
	"github.com/leapstack-labs/leaplook/internal/engine"
	"github.com/leapstack-labs/leaplook/pkg/core"
	"github.com/spf13/cobra"
)

// InspectOptions holds options for the inspect command.
type InspectOptions struct {
	LookML bool
}

// NewInspectCommand creates the inspect command.
func NewInspectCommand() *cobra.Command {
	opts := &InspectOptions{}

	cmd := &cobra.Command{
		Use:   "inspect <project.dataset.table>",
		Short: "Show the views and joins generated for one table",
		Long: `Run the generation pipeline for a single table and show the result
without writing any files.

The table's dataset options apply when the dataset is configured; otherwise
defaults are used.`,
		Example: `  # Show views, fields and joins
  leaplook inspect my-project.shop.orders

  # Print the LookML that generate would write
  leaplook inspect my-project.shop.orders --lookml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(cmd, args[0], opts)
		},
	}

	cmd.Flags().BoolVar(&opts.LookML, "lookml", false, "Print generated LookML instead of a summary")

	return cmd
}

func runInspect(cmd *cobra.Command, arg string, opts *InspectOptions) error {
	ref, err := engine.ParseRef(arg)
	if err != nil {
		return err
	}

	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	res, err := cmdCtx.Engine.Inspect(cmd.Context(), ref)
	if err != nil {
		return err
	}

	r := cmdCtx.Renderer
	for _, w := range res.Warnings {
		r.Warning(w.Error())
	}

	if opts.LookML {
		renderLookML(r, res)
		return nil
	}

	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(buildInspectOutput(res))
	default:
		renderInspect(r, res)
	}
	return nil
}

func renderLookML(r *output.Renderer, res *engine.TableResult) {
	markdown := r.EffectiveMode() == output.ModeMarkdown
	for i, f := range res.Files {
		if i > 0 {
			r.Println("")
		}
		if markdown {
			r.Println(output.FormatHeader(2, f.Path))
			r.Println("")
			r.Println(output.FormatCodeBlock("lookml", f.Content))
			continue
		}
		r.Muted("# " + f.Path)
		r.Printf("%s", f.Content)
	}
}

func renderInspect(r *output.Renderer, res *engine.TableResult) {
	r.Header(1, res.Ref.String())
	r.Println("")

	rows := make([][]string, 0, len(res.Views))
	for _, v := range res.Views {
		rows = append(rows, []string{v.Name, v.Parent, strconv.Itoa(len(v.Dimensions)), strconv.Itoa(len(v.Measures))})
	}
	r.Table([]string{"View", "Parent", "Dimensions", "Measures"}, rows)

	for _, v := range res.Views {
		r.Println("")
		r.Header(2, v.Name)
		fields := make([][]string, 0, len(v.Dimensions)+len(v.Measures))
		for _, d := range v.Dimensions {
			fields = append(fields, []string{d.Name, "dimension", string(d.Type), d.Label, yesNo(d.Hidden)})
		}
		for _, m := range v.Measures {
			fields = append(fields, []string{m.Name, "measure", string(m.Type), m.Label, yesNo(m.Hidden)})
		}
		r.Table([]string{"Field", "Kind", "Type", "Label", "Hidden"}, fields)
	}

	if res.Explore == nil || len(res.Explore.Joins) == 0 {
		return
	}
	r.Println("")
	r.Header(2, "Joins")
	joins := make([][]string, 0, len(res.Explore.Joins))
	for _, j := range res.Explore.Joins {
		joins = append(joins, []string{j.Name, j.Relationship, strings.Join(j.RequiredJoins, ", "), j.SQL})
	}
	r.Table([]string{"Join", "Relationship", "Requires", "SQL"}, joins)
}

func buildInspectOutput(res *engine.TableResult) output.InspectOutput {
	out := output.InspectOutput{
		Table:    res.Ref.String(),
		Views:    make([]output.ViewOutput, 0, len(res.Views)),
		Warnings: errorStrings(res.Warnings),
	}
	for _, v := range res.Views {
		vo := output.ViewOutput{
			Name:         v.Name,
			SQLTableName: v.SQLTableName,
			Dimensions:   make([]output.FieldOutput, 0, len(v.Dimensions)),
			Measures:     make([]output.FieldOutput, 0, len(v.Measures)),
		}
		for _, d := range v.Dimensions {
			vo.Dimensions = append(vo.Dimensions, output.FieldOutput{
				Name: d.Name, Type: string(d.Type), Label: d.Label, SQL: d.SQL, Hidden: isTrue(d.Hidden),
			})
		}
		for _, m := range v.Measures {
			vo.Measures = append(vo.Measures, output.FieldOutput{
				Name: m.Name, Type: string(m.Type), Label: m.Label, SQL: m.SQL, Hidden: isTrue(m.Hidden),
			})
		}
		out.Views = append(out.Views, vo)
	}
	if res.Explore != nil {
		out.Explore = res.Explore.Name
		for _, j := range res.Explore.Joins {
			out.Joins = append(out.Joins, joinOutput(j))
		}
	}
	return out
}

func joinOutput(j core.Join) output.JoinOutput {
	return output.JoinOutput{Name: j.Name, SQL: j.SQL, Relationship: j.Relationship, RequiredJoins: j.RequiredJoins}
}

func isTrue(b *bool) bool { return b != nil && *b }

func yesNo(b *bool) string {
	if isTrue(b) {
		return "yes"
	}
	return ""
}
