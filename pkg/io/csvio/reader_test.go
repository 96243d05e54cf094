package csvio

import (
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wdm0006/csv2parquet/pkg/table"
)

func TestInferAndRead(t *testing.T) {
	p := filepath.FromSlash("testdata/sample.csv")
	r, c, err := Open(p, DefaultReaderOptions())
	require.NoError(t, err)
	defer func() { _ = c.Close() }()

	schema, names, err := r.InferSchema()
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name", "score", "active", "joined"}, names)

	kinds := make([]table.Kind, len(schema.Columns))
	for i, cs := range schema.Columns {
		kinds[i] = cs.Type
	}
	assert.Equal(t, []table.Kind{table.KindInt, table.KindString, table.KindFloat, table.KindBool, table.KindTime}, kinds)

	tb, err := r.ReadAll(schema)
	require.NoError(t, err)
	assert.Equal(t, 5, tb.Rows())
	assert.Equal(t, 5, tb.Cols())

	score, _ := tb.ColumnByName("score")
	assert.True(t, score.IsNull(2))
	v, ok := score.(*table.FloatColumn).Get(3)
	assert.True(t, ok)
	assert.Equal(t, 66.25, v)

	active, _ := tb.ColumnByName("active")
	assert.True(t, active.IsNull(4))
	b, _ := active.(*table.BoolColumn).Get(2)
	assert.True(t, b)

	joined, _ := tb.ColumnByName("joined")
	ts, ok := joined.(*table.TimeColumn).Get(0)
	assert.True(t, ok)
	assert.Equal(t, time.Date(2023, 1, 15, 0, 0, 0, 0, time.UTC), ts)
	assert.True(t, joined.IsNull(3))
}

func TestIDNameExample(t *testing.T) {
	r := NewReaderFrom(strings.NewReader("id,name\n1,Alice\n"), DefaultReaderOptions())
	schema, _, err := r.InferSchema()
	require.NoError(t, err)
	require.Len(t, schema.Columns, 2)
	assert.Equal(t, "id", schema.Columns[0].Name)
	assert.Equal(t, table.KindInt, schema.Columns[0].Type)
	assert.Equal(t, "name", schema.Columns[1].Name)
	assert.Equal(t, table.KindString, schema.Columns[1].Type)

	tb, err := r.ReadAll(schema)
	require.NoError(t, err)
	assert.Equal(t, 1, tb.Rows())
}

func TestShortRecordIsParseError(t *testing.T) {
	r := NewReaderFrom(strings.NewReader("a,b,c\n1,2,3\n4,5\n"), DefaultReaderOptions())
	_, _, err := r.InferSchema()
	require.Error(t, err)
	var pe *csv.ParseError
	require.True(t, errors.As(err, &pe))
	assert.ErrorIs(t, err, csv.ErrFieldCount)
	assert.Equal(t, 3, pe.Line)
}

func TestEmptyInput(t *testing.T) {
	r := NewReaderFrom(strings.NewReader(""), DefaultReaderOptions())
	_, _, err := r.InferSchema()
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestHeaderOnly(t *testing.T) {
	r := NewReaderFrom(strings.NewReader("a,b\n"), DefaultReaderOptions())
	schema, _, err := r.InferSchema()
	require.NoError(t, err)
	tb, err := r.ReadAll(schema)
	require.NoError(t, err)
	assert.Equal(t, 0, tb.Rows())
	assert.Equal(t, 2, tb.Cols())
	assert.Equal(t, table.KindString, schema.Columns[0].Type)
}

func TestHeaderNormalization(t *testing.T) {
	r := NewReaderFrom(strings.NewReader("\ufeffa,,a,a.1,a\n1,2,3,4,5\n"), DefaultReaderOptions())
	_, names, err := r.InferSchema()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "Unnamed: 1", "a.1", "a.1.1", "a.2"}, names)
}

func TestNoHeader(t *testing.T) {
	opt := DefaultReaderOptions()
	opt.HasHeader = false
	r := NewReaderFrom(strings.NewReader("1,x\n2,y\n"), opt)
	schema, names, err := r.InferSchema()
	require.NoError(t, err)
	assert.Equal(t, []string{"col_0", "col_1"}, names)
	tb, err := r.ReadAll(schema)
	require.NoError(t, err)
	assert.Equal(t, 2, tb.Rows())
}

func TestDelimiterAndNullValues(t *testing.T) {
	opt := DefaultReaderOptions()
	opt.Delimiter = ';'
	opt.NullValues = []string{"-"}
	r := NewReaderFrom(strings.NewReader("x;y\n1;-\n-;NA\n"), opt)
	schema, _, err := r.InferSchema()
	require.NoError(t, err)
	assert.Equal(t, table.KindInt, schema.Columns[0].Type)
	assert.Equal(t, table.KindString, schema.Columns[1].Type)

	tb, err := r.ReadAll(schema)
	require.NoError(t, err)
	y, _ := tb.ColumnByName("y")
	assert.True(t, y.IsNull(0))
	v, _ := y.(*table.StringColumn).Get(1)
	assert.Equal(t, "NA", v)
}

func TestReadFileMissing(t *testing.T) {
	_, err := ReadFile(filepath.Join(t.TempDir(), "missing.csv"), DefaultReaderOptions())
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestInvalidUTF8IsParseError(t *testing.T) {
	r := NewReaderFrom(strings.NewReader("s,t\nok,fine\nx,\xff\xfeab\n"), DefaultReaderOptions())
	_, _, err := r.InferSchema()
	require.Error(t, err)
	var pe *csv.ParseError
	require.True(t, errors.As(err, &pe))
	assert.ErrorIs(t, err, ErrInvalidUTF8)
	assert.Equal(t, 3, pe.Line)
	assert.Equal(t, 3, pe.Column)
}

func TestInvalidUTF8Header(t *testing.T) {
	r := NewReaderFrom(strings.NewReader("a\xff\n1\n"), DefaultReaderOptions())
	_, _, err := r.InferSchema()
	assert.ErrorIs(t, err, ErrInvalidUTF8)
}
