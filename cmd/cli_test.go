package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/reconcile-cli/internal/manifest"
	"github.com/KaramelBytes/reconcile-cli/internal/reconcile"
)

// resetFlags clears sticky flag values and Changed state left by a previous
// invocation of the shared command tree.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// executeCLI executes the root command with args and returns its output.
func executeCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	resetFlags(rootCmd)
	cfg = nil
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

const sourceHeader = "Name of the Unit,District,Investment ,Employees,Date of Establishment,Unnamed: 5\n"

func writeFile(t *testing.T, path, body string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestCLI_RunWritesCanonicalOutputs(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, filepath.Join(dir, "in", "units_2019.csv"), sourceHeader+
		"Acme Foods,Rangareddy,\"₹1,00,000\",10,01/04/2015,\n"+
		"Beta Tools,ranga reddy,,5,2016-07-01,\n"+
		"Beta Tools,ranga reddy,,5,2016-07-01,\n")
	missing := filepath.Join(dir, "in", "units_2020.csv")
	c := writeFile(t, filepath.Join(dir, "in", "units_2021.csv"), sourceHeader+
		"Gamma Steel,Hyderabad,\"₹50,000\",4,2010-01-01,\n")

	outCSV := filepath.Join(dir, "out", "canonical.csv")
	logFile := filepath.Join(dir, "out", "audit.log")
	mf := filepath.Join(dir, "out", "run.json")
	db := filepath.Join(dir, "out", "canonical.db")
	stdout, err := executeCLI(t, "run", a, missing, c,
		"-o", outCSV, "--sqlite", db, "--manifest", mf,
		"--log-file", logFile, "--processing-date", "2024-01-01")
	require.NoError(t, err, stdout)

	assert.Contains(t, stdout, "⚠ source unavailable")
	assert.Contains(t, stdout, "✓ reconciled 2 source(s) into 3 row(s)")

	got, err := os.ReadFile(outCSV)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(got)), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "unit_name,district,investment,employment,date_of_establishment,source_year,investment_per_employee,years_in_operation", lines[0])
	assert.True(t, strings.HasPrefix(lines[2], "Beta Tools,Ranga Reddy,100000,5,2016-07-01,2019,20000,"), lines[2])
	assert.FileExists(t, db)

	m, err := manifest.Load(mf)
	require.NoError(t, err)
	assert.Equal(t, reconcile.StatusOK, m.Status)
	assert.Equal(t, 3, m.Rows)
	assert.Equal(t, []string{outCSV, db}, m.Outputs)
	require.Len(t, m.Sources, 3)
	assert.Equal(t, reconcile.SourceSkipped, m.Sources[1].Status)

	logged, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(logged), `"action":"drop_blank_columns"`)
	assert.Contains(t, string(logged), `"action":"drop_duplicates"`)
	assert.Contains(t, string(logged), `"run_id":"`+m.RunID+`"`)
}

func TestCLI_RunFatalWritesNoOutput(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, filepath.Join(dir, "units_2019.csv"), sourceHeader+
		"Acme Foods,Hyderabad,N/A,10,2015-01-01,\n")
	outCSV := filepath.Join(dir, "out", "canonical.csv")
	mf := filepath.Join(dir, "out", "run.json")

	_, err := executeCLI(t, "run", a, "-o", outCSV, "--manifest", mf, "--log-file", filepath.Join(dir, "audit.log"))
	require.Error(t, err)
	assert.True(t, reconcile.IsFatal(err))
	assert.NoFileExists(t, outCSV)

	m, err := manifest.Load(mf)
	require.NoError(t, err)
	assert.Equal(t, reconcile.StatusFailed, m.Status)
	assert.Contains(t, m.Message, "undefined statistic")
	assert.Empty(t, m.Outputs)
}

func TestCLI_RunFailingSinkLeavesNoOutputs(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, filepath.Join(dir, "units_2019.csv"), sourceHeader+
		"Acme Foods,Hyderabad,100,10,2015-01-01,\n")
	outCSV := filepath.Join(dir, "out", "canonical.csv")
	stage := filepath.Join(dir, "stage")
	db := filepath.Join(dir, "out", "canonical.db")
	writeFile(t, filepath.Join(db, "occupied.txt"), "x")
	mf := filepath.Join(dir, "run.json")

	_, err := executeCLI(t, "run", a, "-o", outCSV, "--sqlite", db, "--stage-dir", stage,
		"--manifest", mf, "--log-file", filepath.Join(dir, "audit.log"))
	require.Error(t, err)
	assert.NoFileExists(t, outCSV)
	assert.NoFileExists(t, filepath.Join(stage, "canonical_units_2019.csv"))

	entries, err := os.ReadDir(filepath.Join(dir, "out"))
	require.NoError(t, err)
	require.Len(t, entries, 1, "temp files must be cleaned up")
	assert.Equal(t, "canonical.db", entries[0].Name())

	m, err := manifest.Load(mf)
	require.NoError(t, err)
	assert.Equal(t, reconcile.StatusFailed, m.Status)
	assert.Empty(t, m.Outputs)
}

func TestCLI_StageThenCombine(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, filepath.Join(dir, "units_2019.csv"), sourceHeader+
		"Acme Foods,Hyderabad,100,10,2015-01-01,\n")
	c := writeFile(t, filepath.Join(dir, "units_2021.csv"), sourceHeader+
		"Gamma Steel,Hyderabad,200,4,2010-01-01,\n"+
		"Delta Mills,Warangal - Rural,300,6,2011-01-01,\n")
	stage := filepath.Join(dir, "stage")
	logFile := filepath.Join(dir, "audit.log")

	_, err := executeCLI(t, "run", a, c, "-o", filepath.Join(dir, "all.csv"), "--stage-dir", stage, "--log-file", logFile)
	require.NoError(t, err)
	staged := []string{filepath.Join(stage, "canonical_units_2019.csv"), filepath.Join(stage, "canonical_units_2021.csv")}
	for _, p := range staged {
		assert.FileExists(t, p)
	}

	combined := filepath.Join(dir, "combined.csv")
	stdout, err := executeCLI(t, "combine", staged[0], staged[1], "-o", combined, "--log-file", logFile)
	require.NoError(t, err, stdout)
	assert.Contains(t, stdout, "✓ combined 2 file(s) into 3 row(s)")

	want, err := os.ReadFile(filepath.Join(dir, "all.csv"))
	require.NoError(t, err)
	got, err := os.ReadFile(combined)
	require.NoError(t, err)
	assert.Equal(t, string(want), string(got))
}

func TestCLI_SchemaExportAndCustomSchema(t *testing.T) {
	dir := t.TempDir()
	schemaPath := filepath.Join(dir, "schema.yaml")
	_, err := executeCLI(t, "schema", "export", "-o", schemaPath)
	require.NoError(t, err)

	body, err := os.ReadFile(schemaPath)
	require.NoError(t, err)
	assert.Contains(t, string(body), "provenance_column: source_year")

	stdout, err := executeCLI(t, "schema", "show", "--schema", schemaPath)
	require.NoError(t, err)
	assert.Contains(t, stdout, "investment")
	assert.Contains(t, stdout, "investment_per_employee: ratio(investment, employment)")
}

func TestCLI_ConfigSetAndShow(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	_, err := executeCLI(t, "config", "set", "workers", "7", "--config", cfgPath)
	require.NoError(t, err)

	stdout, err := executeCLI(t, "config", "show", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, stdout, "workers: 7")
	assert.Contains(t, stdout, "schema_file: (built-in)")

	_, err = executeCLI(t, "config", "set", "nope", "1", "--config", cfgPath)
	assert.Error(t, err)
}

func TestCLI_Profile(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, filepath.Join(dir, "canonical.csv"),
		"unit_name,district,investment\nAcme,Hyderabad,100\nBeta,Hyderabad,300\n")
	stdout, err := executeCLI(t, "profile", p, "--group-by", "district")
	require.NoError(t, err)
	assert.Contains(t, stdout, "[DATASET SUMMARY]")
	assert.Contains(t, stdout, "- investment: numeric")
	assert.Contains(t, stdout, "- Hyderabad (n=2)")
}
