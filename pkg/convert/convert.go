// Package convert runs the read, infer and write pipeline that turns a
// delimited text file into a Parquet file.
package convert

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/wdm0006/csv2parquet/pkg/io/csvio"
	"github.com/wdm0006/csv2parquet/pkg/io/parquetio"
	"github.com/wdm0006/csv2parquet/pkg/logging"
	"github.com/wdm0006/csv2parquet/pkg/table"
)

// Source loads a complete Table with inferred column kinds.
type Source interface {
	Read(ctx context.Context) (*table.Table, error)
}

// Sink persists a Table.
type Sink interface {
	Write(ctx context.Context, t *table.Table) error
}

// Result summarises a finished conversion.
type Result struct {
	Rows     int
	Columns  int
	Schema   table.Schema
	Duration time.Duration
}

type Converter struct {
	src     Source
	sink    Sink
	log     *zap.Logger
	srcName string
	dstName string
}

type Option func(*Converter)

func WithLogger(l *zap.Logger) Option {
	return func(c *Converter) { c.log = l }
}

// WithPaths sets the paths reported in errors and log lines.
func WithPaths(src, dst string) Option {
	return func(c *Converter) { c.srcName, c.dstName = src, dst }
}

func New(src Source, sink Sink, opts ...Option) *Converter {
	c := &Converter{src: src, sink: sink}
	for _, o := range opts {
		o(c)
	}
	c.log = logging.OrNop(c.log)
	return c
}

// Run reads the whole source and writes it to the sink. The sink is not
// touched unless the source was read successfully. ctx is checked between
// stages only.
func (c *Converter) Run(ctx context.Context) (Result, error) {
	start := time.Now()
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	t, err := c.src.Read(ctx)
	if err != nil {
		return Result{}, wrap("read", c.srcName, err)
	}
	c.log.Debug("source loaded",
		zap.String("path", c.srcName),
		zap.Int("rows", t.Rows()),
		zap.Int("columns", t.Cols()),
		zap.Duration("elapsed", time.Since(start)))

	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	ws := time.Now()
	if err := c.sink.Write(ctx, t); err != nil {
		return Result{}, wrap("write", c.dstName, err)
	}
	c.log.Debug("destination written", zap.String("path", c.dstName), zap.Duration("elapsed", time.Since(ws)))

	res := Result{Rows: t.Rows(), Columns: t.Cols(), Schema: t.Schema(), Duration: time.Since(start)}
	c.log.Info("converted",
		zap.String("src", c.srcName),
		zap.String("dst", c.dstName),
		zap.Int("rows", res.Rows),
		zap.Int("columns", res.Columns),
		zap.Duration("duration", res.Duration))
	return res, nil
}

// Options configures File.
type Options struct {
	CSV     csvio.ReaderOptions
	Parquet parquetio.WriterOptions
	Logger  *zap.Logger
}

// DefaultOptions reads comma-delimited input with a header and writes
// snappy-compressed Parquet with the parquet-go engine.
func DefaultOptions() Options {
	return Options{
		CSV:     csvio.DefaultReaderOptions(),
		Parquet: parquetio.WriterOptions{Engine: parquetio.EngineParquetGo, Compression: parquetio.CompressionSnappy},
	}
}

// File converts the CSV file at src into a Parquet file at dst.
func File(ctx context.Context, src, dst string, opt Options) (Result, error) {
	c := New(
		csvio.FileSource{Path: src, Options: opt.CSV},
		parquetio.FileSink{Path: dst, Options: opt.Parquet},
		WithLogger(opt.Logger),
		WithPaths(src, dst),
	)
	return c.Run(ctx)
}
