package parquetio

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/wdm0006/csv2parquet/pkg/table"
)

// Engine selects the Parquet library used to encode a table.
type Engine string

const (
	EngineParquetGo Engine = "parquet-go"
	EngineArrow     Engine = "arrow"
)

// Compression names a page compression codec supported by both engines.
type Compression string

const (
	CompressionNone   Compression = "none"
	CompressionSnappy Compression = "snappy"
	CompressionGzip   Compression = "gzip"
	CompressionZstd   Compression = "zstd"
)

// ParseEngine accepts "" as the default engine.
func ParseEngine(s string) (Engine, error) {
	switch Engine(strings.ToLower(s)) {
	case "", EngineParquetGo:
		return EngineParquetGo, nil
	case EngineArrow:
		return EngineArrow, nil
	}
	return "", fmt.Errorf("unknown parquet engine %q (want %s or %s)", s, EngineParquetGo, EngineArrow)
}

// ParseCompression accepts "" as snappy and "uncompressed" as none.
func ParseCompression(s string) (Compression, error) {
	switch c := Compression(strings.ToLower(s)); c {
	case "":
		return CompressionSnappy, nil
	case "uncompressed":
		return CompressionNone, nil
	case CompressionNone, CompressionSnappy, CompressionGzip, CompressionZstd:
		return c, nil
	}
	return "", fmt.Errorf("unknown compression %q (want none, snappy, gzip or zstd)", s)
}

type WriterOptions struct {
	Engine       Engine
	Compression  Compression
	RowGroupSize int64 // bytes for parquet-go, rows for arrow; 0 = library default
	PageSize     int64 // bytes; 0 = library default
}

// UnsupportedNameError reports a column name the selected engine cannot encode.
type UnsupportedNameError struct {
	Engine Engine
	Name   string
	Reason string
}

func (e *UnsupportedNameError) Error() string {
	return fmt.Sprintf("%s engine cannot encode column %q: %s; use the %s engine", e.Engine, e.Name, e.Reason, EngineArrow)
}

// Write encodes t as Parquet to w.
func Write(w io.Writer, t *table.Table, opt WriterOptions) error {
	switch opt.Engine {
	case "", EngineParquetGo:
		return writeParquetGo(w, t, opt)
	case EngineArrow:
		return writeArrow(w, t, opt)
	}
	return fmt.Errorf("unknown parquet engine %q", opt.Engine)
}

// WriteAll writes t to path. The file is written under a temporary name in the
// same directory and renamed over path once complete, so a failed write never
// leaves a truncated file at path.
func WriteAll(path string, t *table.Table, opt WriterOptions) (err error) {
	dir := filepath.Dir(path)
	tmp := filepath.Join(dir, "."+filepath.Base(path)+"."+uuid.NewString()+".tmp")
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = f.Close()
			_ = os.Remove(tmp)
		}
	}()

	bw := bufio.NewWriter(f)
	if err = Write(bw, t, opt); err != nil {
		return err
	}
	if err = bw.Flush(); err != nil {
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// FileSink writes a Table to a Parquet file, replacing it atomically.
type FileSink struct {
	Path    string
	Options WriterOptions
}

func (s FileSink) Write(ctx context.Context, t *table.Table) error {
	return WriteAll(s.Path, t, s.Options)
}
