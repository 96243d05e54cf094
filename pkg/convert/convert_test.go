package convert

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/wdm0006/csv2parquet/pkg/io/csvio"
	"github.com/wdm0006/csv2parquet/pkg/io/parquetio"
	"github.com/wdm0006/csv2parquet/pkg/table"
)

func writeCSV(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestFileShapeAndRoundTrip(t *testing.T) {
	for _, eng := range []parquetio.Engine{parquetio.EngineParquetGo, parquetio.EngineArrow} {
		t.Run(string(eng), func(t *testing.T) {
			dir := t.TempDir()
			var sb strings.Builder
			sb.WriteString("n,label,ratio,flag,at\n")
			for i := 0; i < 25; i++ {
				fmt.Fprintf(&sb, "%d,row %d,%d.25,%t,2024-03-%02d 12:00:00\n", i, i, i, i%2 == 0, i%28+1)
			}
			src := writeCSV(t, dir, "in.csv", sb.String())
			dst := filepath.Join(dir, "out.parquet")

			opt := DefaultOptions()
			opt.Parquet.Engine = eng
			res, err := File(context.Background(), src, dst, opt)
			require.NoError(t, err)
			assert.Equal(t, 25, res.Rows)
			assert.Equal(t, 5, res.Columns)

			want, err := csvio.ReadFile(src, csvio.DefaultReaderOptions())
			require.NoError(t, err)
			got, err := parquetio.ReadAll(context.Background(), dst)
			require.NoError(t, err)
			assert.Equal(t, []string{"n", "label", "ratio", "flag", "at"}, got.Schema().Names())
			assert.True(t, table.Equal(want, got), "parquet content differs from parsed source")

			md, err := parquetio.ReadMetadata(dst)
			require.NoError(t, err)
			assert.Equal(t, int64(25), md.Rows)
			assert.Len(t, md.Columns, 5, "no index column")
		})
	}
}

func TestFileIdempotent(t *testing.T) {
	dir := t.TempDir()
	src := writeCSV(t, dir, "in.csv", "a,b\n1,x\n2,\n")
	dst := filepath.Join(dir, "out.parquet")

	_, err := File(context.Background(), src, dst, DefaultOptions())
	require.NoError(t, err)
	first, err := parquetio.ReadAll(context.Background(), dst)
	require.NoError(t, err)

	_, err = File(context.Background(), src, dst, DefaultOptions())
	require.NoError(t, err)
	second, err := parquetio.ReadAll(context.Background(), dst)
	require.NoError(t, err)
	assert.True(t, table.Equal(first, second))
}

func TestIDNameExample(t *testing.T) {
	dir := t.TempDir()
	src := writeCSV(t, dir, "in.csv", "id,name\n1,Alice\n")
	dst := filepath.Join(dir, "out.parquet")

	res, err := File(context.Background(), src, dst, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Rows)
	assert.Equal(t, table.KindInt, res.Schema.Columns[0].Type)
	assert.Equal(t, table.KindString, res.Schema.Columns[1].Type)

	got, err := parquetio.ReadAll(context.Background(), dst)
	require.NoError(t, err)
	id, _ := got.ColumnByName("id")
	v, ok := id.(*table.IntColumn).Get(0)
	assert.True(t, ok)
	assert.Equal(t, int64(1), v)
	name, _ := got.ColumnByName("name")
	s, _ := name.(*table.StringColumn).Get(0)
	assert.Equal(t, "Alice", s)
}

func TestMissingSourceLeavesNoDestination(t *testing.T) {
	dir := t.TempDir()
	dst := filepath.Join(dir, "out.parquet")
	_, err := File(context.Background(), filepath.Join(dir, "missing.csv"), dst, DefaultOptions())
	require.Error(t, err)
	assert.True(t, IsType(err, ErrorIO))
	assert.True(t, errors.Is(err, os.ErrNotExist))

	_, statErr := os.Stat(dst)
	assert.True(t, os.IsNotExist(statErr))
}

func TestMissingSourceKeepsExistingDestination(t *testing.T) {
	dir := t.TempDir()
	dst := writeCSV(t, dir, "out.parquet", "previous")
	_, err := File(context.Background(), filepath.Join(dir, "missing.csv"), dst, DefaultOptions())
	require.Error(t, err)
	b, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "previous", string(b))
}

func TestShortRowIsParseError(t *testing.T) {
	dir := t.TempDir()
	src := writeCSV(t, dir, "in.csv", "a,b,c\n1,2\n")
	dst := filepath.Join(dir, "out.parquet")

	_, err := File(context.Background(), src, dst, DefaultOptions())
	require.Error(t, err)
	assert.True(t, IsType(err, ErrorParse))
	var pe *csv.ParseError
	assert.True(t, errors.As(err, &pe))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "only the source should exist")
}

func TestEmptySourceIsParseError(t *testing.T) {
	dir := t.TempDir()
	src := writeCSV(t, dir, "in.csv", "")
	_, err := File(context.Background(), src, filepath.Join(dir, "out.parquet"), DefaultOptions())
	assert.True(t, IsType(err, ErrorParse))
	assert.ErrorIs(t, err, csvio.ErrEmpty)
}

func TestMissingDestinationDirIsIOError(t *testing.T) {
	dir := t.TempDir()
	src := writeCSV(t, dir, "in.csv", "a\n1\n")
	_, err := File(context.Background(), src, filepath.Join(dir, "no", "out.parquet"), DefaultOptions())
	require.Error(t, err)
	assert.True(t, IsType(err, ErrorIO))
	var ce *Error
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "write", ce.Op)
}

func TestUnsupportedNameIsConfigError(t *testing.T) {
	dir := t.TempDir()
	src := writeCSV(t, dir, "in.csv", "\"a=b\",c\n1,2\n")
	_, err := File(context.Background(), src, filepath.Join(dir, "out.parquet"), DefaultOptions())
	assert.True(t, IsType(err, ErrorConfig))

	opt := DefaultOptions()
	opt.Parquet.Engine = parquetio.EngineArrow
	_, err = File(context.Background(), src, filepath.Join(dir, "out.parquet"), opt)
	assert.NoError(t, err)
}

type stubSource struct {
	t   *table.Table
	err error
}

func (s stubSource) Read(context.Context) (*table.Table, error) { return s.t, s.err }

type recordingSink struct{ calls int }

func (s *recordingSink) Write(context.Context, *table.Table) error {
	s.calls++
	return nil
}

func TestRunDoesNotWriteOnSourceFailure(t *testing.T) {
	sink := &recordingSink{}
	_, err := New(stubSource{err: errors.New("boom")}, sink).Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, 0, sink.calls)
}

func TestRunHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sink := &recordingSink{}
	tb := table.MustNew(table.Schema{Columns: []table.ColumnSchema{{Name: "a", Type: table.KindString}}})
	_, err := New(stubSource{t: tb}, sink).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, sink.calls)
}

func TestRunLogsSummary(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	tb := table.MustNew(table.Schema{Columns: []table.ColumnSchema{{Name: "a", Type: table.KindString}}})
	tb.AppendNullRow()
	_, err := New(stubSource{t: tb}, &recordingSink{}, WithLogger(zap.New(core)), WithPaths("in.csv", "out.parquet")).Run(context.Background())
	require.NoError(t, err)
	entries := logs.FilterMessage("converted").All()
	require.Len(t, entries, 1)
	assert.Equal(t, int64(1), entries[0].ContextMap()["rows"])
}

func TestInvalidUTF8LeavesNoDestination(t *testing.T) {
	for _, eng := range []parquetio.Engine{parquetio.EngineParquetGo, parquetio.EngineArrow} {
		t.Run(string(eng), func(t *testing.T) {
			dir := t.TempDir()
			src := writeCSV(t, dir, "in.csv", "s\n\xff\xfeab\n")
			dst := filepath.Join(dir, "out.parquet")

			opt := DefaultOptions()
			opt.Parquet.Engine = eng
			_, err := File(context.Background(), src, dst, opt)
			require.Error(t, err)
			assert.True(t, IsType(err, ErrorParse))
			assert.ErrorIs(t, err, csvio.ErrInvalidUTF8)

			_, statErr := os.Stat(dst)
			assert.True(t, os.IsNotExist(statErr))
		})
	}
}
