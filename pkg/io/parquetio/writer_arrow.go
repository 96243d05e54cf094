package parquetio

import (
	"fmt"
	"io"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/memory"
	"github.com/apache/arrow/go/v17/parquet"
	"github.com/apache/arrow/go/v17/parquet/compress"
	"github.com/apache/arrow/go/v17/parquet/pqarrow"

	"github.com/wdm0006/csv2parquet/pkg/table"
)

func arrowSchema(s table.Schema) (*arrow.Schema, error) {
	fields := make([]arrow.Field, len(s.Columns))
	for i, cs := range s.Columns {
		var dt arrow.DataType
		switch cs.Type {
		case table.KindInt:
			dt = arrow.PrimitiveTypes.Int64
		case table.KindFloat:
			dt = arrow.PrimitiveTypes.Float64
		case table.KindBool:
			dt = arrow.FixedWidthTypes.Boolean
		case table.KindTime:
			dt = arrow.FixedWidthTypes.Timestamp_ms
		case table.KindString:
			dt = arrow.BinaryTypes.String
		default:
			return nil, fmt.Errorf("column %q: unsupported kind %v", cs.Name, cs.Type)
		}
		fields[i] = arrow.Field{Name: cs.Name, Type: dt, Nullable: true}
	}
	return arrow.NewSchema(fields, nil), nil
}

func arrowCodec(c Compression) compress.Compression {
	switch c {
	case CompressionNone:
		return compress.Codecs.Uncompressed
	case CompressionGzip:
		return compress.Codecs.Gzip
	case CompressionZstd:
		return compress.Codecs.Zstd
	default:
		return compress.Codecs.Snappy
	}
}

// buildRecord copies every column of t into a single arrow record.
func buildRecord(s *arrow.Schema, t *table.Table) (arrow.Record, error) {
	b := array.NewRecordBuilder(memory.DefaultAllocator, s)
	defer b.Release()
	n := t.Rows()
	for i := 0; i < t.Cols(); i++ {
		fb := b.Field(i)
		fb.Reserve(n)
		switch col := t.Column(i).(type) {
		case *table.IntColumn:
			ib := fb.(*array.Int64Builder)
			for r := 0; r < n; r++ {
				if v, ok := col.Get(r); ok {
					ib.Append(v)
				} else {
					ib.AppendNull()
				}
			}
		case *table.FloatColumn:
			flb := fb.(*array.Float64Builder)
			for r := 0; r < n; r++ {
				if v, ok := col.Get(r); ok {
					flb.Append(v)
				} else {
					flb.AppendNull()
				}
			}
		case *table.BoolColumn:
			bb := fb.(*array.BooleanBuilder)
			for r := 0; r < n; r++ {
				if v, ok := col.Get(r); ok {
					bb.Append(v)
				} else {
					bb.AppendNull()
				}
			}
		case *table.TimeColumn:
			tb := fb.(*array.TimestampBuilder)
			for r := 0; r < n; r++ {
				if v, ok := col.Get(r); ok {
					tb.Append(arrow.Timestamp(v.UnixMilli()))
				} else {
					tb.AppendNull()
				}
			}
		case *table.StringColumn:
			sb := fb.(*array.StringBuilder)
			for r := 0; r < n; r++ {
				if v, ok := col.Get(r); ok {
					sb.Append(v)
				} else {
					sb.AppendNull()
				}
			}
		default:
			return nil, fmt.Errorf("column %q: unsupported column type %T", col.Name(), col)
		}
	}
	return b.NewRecord(), nil
}

// writeArrow writes a Table through pqarrow. Any UTF-8 column name is accepted.
func writeArrow(w io.Writer, t *table.Table, opt WriterOptions) error {
	s, err := arrowSchema(t.Schema())
	if err != nil {
		return err
	}
	props := []parquet.WriterProperty{parquet.WithCompression(arrowCodec(opt.Compression))}
	if opt.RowGroupSize > 0 {
		props = append(props, parquet.WithMaxRowGroupLength(opt.RowGroupSize))
	}
	if opt.PageSize > 0 {
		props = append(props, parquet.WithDataPageSize(opt.PageSize))
	}
	fw, err := pqarrow.NewFileWriter(s, w, parquet.NewWriterProperties(props...), pqarrow.DefaultWriterProps())
	if err != nil {
		return fmt.Errorf("arrow writer init: %w", err)
	}
	defer func() { _ = fw.Close() }()

	if t.Rows() > 0 {
		rec, err := buildRecord(s, t)
		if err != nil {
			return err
		}
		defer rec.Release()
		if err := fw.Write(rec); err != nil {
			return fmt.Errorf("arrow write: %w", err)
		}
	}
	if err := fw.Close(); err != nil {
		return fmt.Errorf("arrow write footer: %w", err)
	}
	return nil
}
