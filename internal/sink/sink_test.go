package sink_test

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/reconcile-cli/internal/dataset"
	"github.com/KaramelBytes/reconcile-cli/internal/schema"
	"github.com/KaramelBytes/reconcile-cli/internal/sink"
)

func sampleBatch() *dataset.Batch {
	b := dataset.NewBatch("units_2019", []string{"unit_name", "investment", "source_year", "investment_per_employee"})
	b.Append(dataset.Row{
		"unit_name":               dataset.Text("Acme, Foods"),
		"investment":              dataset.Number(75000),
		"source_year":             dataset.Text("2019"),
		"investment_per_employee": dataset.Number(7500.5),
	})
	b.Append(dataset.Row{
		"unit_name":               dataset.Text("Beta"),
		"investment":              dataset.Text("1200"),
		"source_year":             dataset.Text("2019"),
		"investment_per_employee": dataset.Missing(),
	})
	return b
}

func TestWriteCSV(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "out", "canonical.csv")
	require.NoError(t, sink.WriteCSV(p, sampleBatch()))

	got, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Equal(t, "unit_name,investment,source_year,investment_per_employee\n"+
		"\"Acme, Foods\",75000,2019,7500.5\n"+
		"Beta,1200,2019,\n", string(got))
}

func TestWriteStaged(t *testing.T) {
	dir := t.TempDir()
	paths, err := sink.WriteStaged(dir, []*dataset.Batch{sampleBatch()})
	require.NoError(t, err)
	require.Len(t, paths, 1)
	assert.Equal(t, filepath.Join(dir, "canonical_units_2019.csv"), paths[0])
	assert.FileExists(t, paths[0])
}

func TestWriteSQLite(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "canonical.db")
	require.NoError(t, sink.WriteSQLite(context.Background(), p, "", sampleBatch(), schema.Default()))

	db, err := sql.Open("sqlite", p)
	require.NoError(t, err)
	defer db.Close()

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM canonical`).Scan(&n))
	assert.Equal(t, 2, n)

	var total float64
	require.NoError(t, db.QueryRow(`SELECT SUM(investment) FROM canonical`).Scan(&total))
	assert.Equal(t, 76200.0, total)

	var nulls int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM canonical WHERE investment_per_employee IS NULL`).Scan(&nulls))
	assert.Equal(t, 1, nulls)

	types := map[string]string{}
	rows, err := db.Query(`SELECT name, type FROM pragma_table_info('canonical')`)
	require.NoError(t, err)
	defer rows.Close()
	for rows.Next() {
		var name, typ string
		require.NoError(t, rows.Scan(&name, &typ))
		types[name] = typ
	}
	require.NoError(t, rows.Err())
	assert.Equal(t, "REAL", types["investment"])
	assert.Equal(t, "REAL", types["investment_per_employee"])
	assert.Equal(t, "TEXT", types["source_year"])
}

func TestWriteSQLiteReplacesExisting(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "canonical.db")
	ctx := context.Background()
	require.NoError(t, sink.WriteSQLite(ctx, p, "units", sampleBatch(), schema.Default()))
	require.NoError(t, sink.WriteSQLite(ctx, p, "units", sampleBatch(), schema.Default()))

	db, err := sql.Open("sqlite", p)
	require.NoError(t, err)
	defer db.Close()
	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM units`).Scan(&n))
	assert.Equal(t, 2, n)
}

func TestOutputsCommitNothingWhenOneTargetFails(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "canonical.csv")
	dbPath := filepath.Join(dir, "canonical.db")
	require.NoError(t, os.MkdirAll(filepath.Join(dbPath, "occupied"), 0o755))

	var o sink.Outputs
	require.NoError(t, o.CSV(csvPath, sampleBatch()))
	require.NoError(t, o.SQLite(context.Background(), dbPath, "", sampleBatch(), schema.Default()))
	_, err := o.Staged(filepath.Join(dir, "stage"), []*dataset.Batch{sampleBatch()})
	require.NoError(t, err)
	assert.NoFileExists(t, csvPath, "nothing is visible before commit")

	written, err := o.Commit()
	require.Error(t, err)
	assert.Empty(t, written)
	assert.NoFileExists(t, csvPath)
	assert.NoFileExists(t, filepath.Join(dir, "stage", sink.StagedName(sampleBatch())))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.Contains(t, []string{"canonical.db", "stage"}, e.Name())
	}
}
