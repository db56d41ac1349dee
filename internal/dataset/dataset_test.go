package dataset

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueKinds(t *testing.T) {
	assert.True(t, Missing().IsMissing())
	assert.True(t, Number(math.NaN()).IsMissing())
	assert.Equal(t, "", Missing().String())
	assert.Equal(t, "75000", Number(75000).String())
	assert.Equal(t, "0.1", Number(0.1).String())

	f, ok := Number(2.5).Float()
	assert.True(t, ok)
	assert.Equal(t, 2.5, f)
	_, ok = Text("2.5").Float()
	assert.False(t, ok)

	assert.True(t, Text("a").Equal(Text("a")))
	assert.False(t, Text("a").Equal(Text("A")))
	assert.False(t, Text("1").Equal(Number(1)))
}

func TestReadCSV(t *testing.T) {
	in := "\ufeffa,a,b\n1, ,x\n2\n"
	b, err := ReadCSV(strings.NewReader(in), "src", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "a.1", "b"}, b.Columns)
	require.Equal(t, 2, b.Len())
	assert.True(t, b.Get(0, "a.1").IsMissing())
	assert.True(t, b.Get(1, "b").IsMissing())
	assert.Equal(t, "2", b.Get(1, "a").String())
}

func TestReadCSVDuplicateHeaderNeverCollides(t *testing.T) {
	b, err := ReadCSV(strings.NewReader("a,a,a.1,a\n1,2,3,4\n"), "src", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "a.2", "a.1", "a.3"}, b.Columns)
	assert.Equal(t, "1", b.Get(0, "a").String())
	assert.Equal(t, "2", b.Get(0, "a.2").String())
	assert.Equal(t, "3", b.Get(0, "a.1").String())
	assert.Equal(t, "4", b.Get(0, "a.3").String())
}

func TestReadCSVEmpty(t *testing.T) {
	b, err := ReadCSV(strings.NewReader(""), "src", 0)
	require.NoError(t, err)
	assert.Equal(t, 0, b.Len())
	assert.Empty(t, b.Columns)
}

func TestFromRecordsSkipsEmptyRows(t *testing.T) {
	b := FromRecords("sheet", [][]string{{"x", "y"}, {"1"}, {"", " "}, {"3", "4"}})
	assert.Equal(t, 2, b.Len())
	assert.True(t, b.Get(0, "y").IsMissing())
}

func TestWriteCSVRoundTrip(t *testing.T) {
	b := NewBatch("out", []string{"name", "n"})
	b.Append(Row{"name": Text("a, b"), "n": Number(1.5)})
	b.Append(Row{"name": Missing(), "n": Number(2)})

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, b))
	assert.Equal(t, "name,n\n\"a, b\",1.5\n,2\n", buf.String())

	back, err := ReadCSV(&buf, "out", ',')
	require.NoError(t, err)
	assert.Equal(t, "a, b", back.Get(0, "name").String())
	assert.True(t, back.Get(1, "name").IsMissing())
}

func TestBatchColumnsAndClone(t *testing.T) {
	b := NewBatch("b", []string{"x", "blank"})
	b.Append(Row{"x": Text("1"), "blank": Text("  ")})
	b.Append(Row{"x": Missing()})

	assert.True(t, b.IsBlankColumn("blank"))
	assert.False(t, b.IsBlankColumn("x"))

	c := b.Clone()
	c.Rows[0]["x"] = Text("changed")
	c.DropColumn("blank")
	c.AddColumn("y")
	c.AddColumn("y")

	assert.Equal(t, "1", b.Get(0, "x").String())
	assert.Equal(t, []string{"x", "blank"}, b.Columns)
	assert.Equal(t, []string{"x", "y"}, c.Columns)
	assert.Equal(t, []string{"changed", ""}, c.Record(0))
}
