package parser_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/KaramelBytes/reconcile-cli/internal/parser"
)

func TestLoadFileCSV(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "industries_2019.csv")
	content := "\ufeffUnit Name,District,Investment \n" +
		"Acme Foods,Rangareddy,\"₹1,00,000\"\n" +
		"Beta Tools, ,\n"
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))

	b, err := parser.LoadFile(p, parser.Options{})
	require.NoError(t, err)
	assert.Equal(t, "industries_2019", b.Name)
	assert.Equal(t, p, b.Path)
	assert.Equal(t, []string{"Unit Name", "District", "Investment "}, b.Columns)
	require.Equal(t, 2, b.Len())
	assert.Equal(t, "₹1,00,000", b.Get(0, "Investment ").String())
	assert.True(t, b.Get(1, "District").IsMissing())
	assert.True(t, b.Get(1, "Investment ").IsMissing())
}

func TestLoadFileTSV(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "units.tsv")
	require.NoError(t, os.WriteFile(p, []byte("a\tb\n1\t2\n"), 0o644))

	b, err := parser.LoadFile(p, parser.Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, b.Columns)
	assert.Equal(t, "2", b.Get(0, "b").String())
}

func TestLoadFileExplicitDelimiter(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "units.csv")
	require.NoError(t, os.WriteFile(p, []byte("a;b\n1;2\n"), 0o644))

	b, err := parser.LoadFile(p, parser.Options{Delimiter: ';'})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, b.Columns)
}

func writeWorkbook(t *testing.T, path, sheet string, rows [][]interface{}) {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	if sheet != "Sheet1" {
		_, err := f.NewSheet(sheet)
		require.NoError(t, err)
	}
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &r))
	}
	require.NoError(t, f.SaveAs(path))
}

func TestLoadFileXLSX(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "units_2021.xlsx")
	writeWorkbook(t, p, "Sheet1", [][]interface{}{
		{"Unit Name", "Employement", "District"},
		{"Acme Foods", 12, "Hyderabad"},
		{"Beta Tools", "", "warangal - rural"},
	})

	b, err := parser.LoadFile(p, parser.Options{})
	require.NoError(t, err)
	assert.Equal(t, "units_2021", b.Name)
	assert.Equal(t, []string{"Unit Name", "Employement", "District"}, b.Columns)
	require.Equal(t, 2, b.Len())
	assert.Equal(t, "12", b.Get(0, "Employement").String())
	assert.True(t, b.Get(1, "Employement").IsMissing())
}

func TestLoadFileXLSXNamedSheet(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "book.xlsx")
	writeWorkbook(t, p, "Data", [][]interface{}{{"x"}, {"1"}})

	b, err := parser.LoadFile(p, parser.Options{SheetName: "data"})
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, b.Columns)

	_, err = parser.LoadFile(p, parser.Options{SheetName: "missing"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Available sheets")
}

func TestLoadFileErrors(t *testing.T) {
	dir := t.TempDir()
	_, err := parser.LoadFile(filepath.Join(dir, "nope.csv"), parser.Options{})
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)

	p := filepath.Join(dir, "notes.docx")
	require.NoError(t, os.WriteFile(p, []byte("x"), 0o644))
	_, err = parser.LoadFile(p, parser.Options{})
	assert.ErrorIs(t, err, parser.ErrUnsupported)
	assert.False(t, parser.Supported("notes.docx"))
	assert.True(t, parser.Supported("a.XLSX"))
}
