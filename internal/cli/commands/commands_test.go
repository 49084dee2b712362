package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	clitestutil "github.com/leapstack-labs/leaplook/internal/cli/testutil"
	"github.com/leapstack-labs/leaplook/internal/cli/output"
	"github.com/leapstack-labs/leaplook/internal/config"
	"github.com/leapstack-labs/leaplook/internal/testutil"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type result struct {
	stdout string
	stderr string
	err    error
}

// execute runs cmd with a config loaded from cfgPath and the given output mode.
func execute(t *testing.T, cmd *cobra.Command, cfgPath string, mode output.Mode, args ...string) result {
	t.Helper()
	cfg, err := config.Load(cfgPath, nil)
	require.NoError(t, err)
	cfg.OutputFormat = string(mode)

	ctx := context.WithValue(context.Background(), config.ConfigKey(), cfg)
	ctx = context.WithValue(ctx, config.LoggerKey(), testutil.NewTestLogger(t))

	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	err = cmd.ExecuteContext(ctx)
	return result{stdout: out.String(), stderr: errOut.String(), err: err}
}

func TestCommandMetadata(t *testing.T) {
	gen := NewGenerateCommand()
	assert.Equal(t, "generate", gen.Use)
	assert.NotEmpty(t, gen.Example)
	for _, flag := range []string{"watch", "dry-run", "table"} {
		assert.NotNil(t, gen.Flags().Lookup(flag), "flag %q should exist", flag)
	}

	inspect := NewInspectCommand()
	assert.Equal(t, "inspect <project.dataset.table>", inspect.Use)
	assert.NotNil(t, inspect.Flags().Lookup("lookml"))

	validate := NewValidateCommand()
	assert.Equal(t, "validate", validate.Use)
	assert.NotEmpty(t, validate.Short)
}

func TestVersionCommand(t *testing.T) {
	cmd := NewVersionCommand("1.2.3")
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "leaplook v1.2.3")
}

func TestCommandsRequireConfig(t *testing.T) {
	cmd := NewValidateCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	err := cmd.ExecuteContext(context.Background())
	assert.ErrorContains(t, err, "configuration not loaded")
}

func TestGenerate_JSON(t *testing.T) {
	cfgPath := clitestutil.SetupTestProject(t)
	root := filepath.Dir(cfgPath)

	res := execute(t, NewGenerateCommand(), cfgPath, output.ModeJSON)
	require.NoError(t, res.err, res.stderr)

	var out output.GenerateOutput
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &out))
	assert.NotEmpty(t, out.RunID)
	assert.Equal(t, output.GenerateSummary{Generated: 1}, out.Summary)
	require.Len(t, out.Tables, 1)
	assert.Equal(t, "p.shop.orders", out.Tables[0].Table)
	assert.Equal(t, 2, out.Tables[0].Views)
	assert.Len(t, out.Tables[0].Files, 2)

	view, err := os.ReadFile(filepath.Join(root, "output", "shop", "orders.view.lkml"))
	require.NoError(t, err)
	assert.Contains(t, string(view), `label: "Order Amount"`)
	assert.Contains(t, string(view), "measure: m_sum_amount {")
}

func TestGenerate_DryRunMarkdown(t *testing.T) {
	cfgPath := clitestutil.SetupTestProject(t)

	res := execute(t, NewGenerateCommand(), cfgPath, output.ModeMarkdown, "--dry-run")
	require.NoError(t, res.err)

	clitestutil.AssertNoANSI(t, res.stdout)
	clitestutil.AssertValidMarkdown(t, res.stdout)
	assert.Contains(t, res.stdout, "# Generate Results")
	assert.Contains(t, res.stdout, "- **Dry Run:** true")
	assert.Contains(t, res.stdout, "| p.shop.orders | generated | 2 |")
	assert.NoDirExists(t, filepath.Join(filepath.Dir(cfgPath), "output"))
}

func TestGenerate_FailedTableExitsNonZero(t *testing.T) {
	cfgPath := clitestutil.SetupTestProject(t)
	broken := `{"tableReference": {"tableId": "broken"}, "schema": {"fields": [{"name": "x", "type": "WIDGET"}]}}`
	require.NoError(t, os.WriteFile(filepath.Join(filepath.Dir(cfgPath), "schemas", "p.shop.broken.json"), []byte(broken), 0o600))

	res := execute(t, NewGenerateCommand(), cfgPath, output.ModeText)
	require.EqualError(t, res.err, "1 table(s) failed")
	assert.Contains(t, res.stderr, "p.shop.broken")
	assert.Contains(t, res.stdout, "✓ p.shop.orders")
	assert.Contains(t, res.stdout, "1 generated, 0 skipped, 1 failed")
}

func TestGenerate_TableFilter(t *testing.T) {
	cfgPath := clitestutil.SetupTestProject(t)

	res := execute(t, NewGenerateCommand(), cfgPath, output.ModeJSON, "--dry-run", "--table", "customers")
	require.NoError(t, res.err)

	var out output.GenerateOutput
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &out))
	assert.Empty(t, out.Tables)
	assert.True(t, out.DryRun)
}

func TestInspect_JSON(t *testing.T) {
	cfgPath := clitestutil.SetupTestProject(t)

	res := execute(t, NewInspectCommand(), cfgPath, output.ModeJSON, "p.shop.orders")
	require.NoError(t, res.err)

	var out output.InspectOutput
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &out))
	require.Len(t, out.Views, 2)
	assert.Equal(t, "orders", out.Views[0].Name)
	assert.Equal(t, "orders__items", out.Views[1].Name)
	assert.Equal(t, "orders", out.Explore)
	require.Len(t, out.Joins, 1)
	assert.Equal(t, "one_to_many", out.Joins[0].Relationship)
	assert.NoDirExists(t, filepath.Join(filepath.Dir(cfgPath), "output"))
}

func TestInspect_Text(t *testing.T) {
	cfgPath := clitestutil.SetupTestProject(t)

	res := execute(t, NewInspectCommand(), cfgPath, output.ModeText, "p.shop.orders")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "p.shop.orders")
	assert.Contains(t, res.stdout, "orders__items")
	assert.Contains(t, res.stdout, "m_count_distinct_id")
	assert.Contains(t, res.stdout, "Joins")
}

func TestInspect_LookML(t *testing.T) {
	cfgPath := clitestutil.SetupTestProject(t)

	res := execute(t, NewInspectCommand(), cfgPath, output.ModeMarkdown, "p.shop.orders", "--lookml")
	require.NoError(t, res.err)
	clitestutil.AssertValidMarkdown(t, res.stdout)
	assert.Contains(t, res.stdout, "```lookml\nview: orders {")
	assert.Contains(t, res.stdout, "explore: orders {")
}

func TestInspect_Errors(t *testing.T) {
	cfgPath := clitestutil.SetupTestProject(t)

	res := execute(t, NewInspectCommand(), cfgPath, output.ModeText, "orders")
	assert.ErrorContains(t, res.err, "expected project.dataset.table")

	res = execute(t, NewInspectCommand(), cfgPath, output.ModeText, "p.shop.ghost")
	assert.ErrorContains(t, res.err, "table not found")
}

func TestValidate(t *testing.T) {
	cfgPath := clitestutil.SetupTestProject(t)

	res := execute(t, NewValidateCommand(), cfgPath, output.ModeJSON)
	require.NoError(t, res.err)

	var out output.ValidateOutput
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &out))
	assert.True(t, out.Valid)
	assert.Equal(t, []string{"ids", "money"}, out.Recipes)
	assert.Equal(t, 1, out.LexiconEntries)
	assert.Equal(t, []string{"p.shop"}, out.Datasets)
	assert.Equal(t, "bigquery", out.Dialect)
}

func TestValidate_ReportsFailures(t *testing.T) {
	cfgPath := clitestutil.SetupTestProject(t)
	cookbook := filepath.Join(filepath.Dir(cfgPath), "loader_recipe.yml")
	require.NoError(t, os.WriteFile(cookbook, []byte("recipes:\n  - name: bad\n    filters: {}\n"), 0o600))

	res := execute(t, NewValidateCommand(), cfgPath, output.ModeText)
	assert.ErrorIs(t, res.err, errValidationFailed)
	assert.Contains(t, res.stdout, "✗ cookbook")
	assert.Contains(t, res.stdout, "✓ lexicon")
	assert.Contains(t, res.stderr, "1 check(s) failed")
}
