package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	c, err := Load("")
	require.NoError(t, err)
	assert.True(t, c.StrictSchema)
	assert.Equal(t, 4, c.Workers)
	assert.Equal(t, "output", c.OutputDir)
	assert.Equal(t, filepath.Join("output", "reconcile.log"), c.LogFile)
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte("strict_schema: false\nworkers: 2\nprocessing_date: \"2024-01-01\"\n"), 0o644))
	t.Setenv("RECONCILE_WORKERS", "8")

	c, err := Load(p)
	require.NoError(t, err)
	assert.False(t, c.StrictSchema)
	assert.Equal(t, 8, c.Workers)

	asOf, err := c.AsOf()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), asOf)
}

func TestSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "config.yaml")
	in := &Global{SchemaFile: "schema.yaml", StrictSchema: true, Workers: 3, OutputDir: "out", Delimiter: ";"}
	require.NoError(t, Save(in, p))

	c, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, "schema.yaml", c.SchemaFile)
	assert.Equal(t, 3, c.Workers)
	r, err := c.DelimiterRune()
	require.NoError(t, err)
	assert.Equal(t, ';', r)
}

func TestDelimiterRune(t *testing.T) {
	for in, want := range map[string]rune{"": 0, "tab": '\t', `\t`: '\t', "|": '|'} {
		r, err := (&Global{Delimiter: in}).DelimiterRune()
		require.NoError(t, err, in)
		assert.Equal(t, want, r, in)
	}
	_, err := (&Global{Delimiter: ";;"}).DelimiterRune()
	assert.Error(t, err)
	_, err = (&Global{ProcessingDate: "01/01/2024"}).AsOf()
	assert.Error(t, err)
}
