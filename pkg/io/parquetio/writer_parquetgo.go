package parquetio

import (
	"fmt"
	"io"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/xitongsys/parquet-go/common"
	"github.com/xitongsys/parquet-go/parquet"
	pw "github.com/xitongsys/parquet-go/writer"

	"github.com/wdm0006/csv2parquet/pkg/table"
)

func parquetSchemaJSON(s table.Schema) (string, error) {
	// Build a minimal JSON schema for parquet-go JSONWriter
	type field struct {
		Tag string `json:"Tag"`
	}
	type schema struct {
		Tag    string  `json:"Tag"`
		Fields []field `json:"Fields"`
	}
	if err := checkParquetGoNames(s); err != nil {
		return "", err
	}
	sc := schema{Tag: "name=parquet_go_root, repetitiontype=REQUIRED"}
	for _, cs := range s.Columns {
		tag := "name=" + cs.Name + ", repetitiontype=OPTIONAL, type="
		switch cs.Type {
		case table.KindFloat:
			tag += "DOUBLE"
		case table.KindInt:
			tag += "INT64"
		case table.KindBool:
			tag += "BOOLEAN"
		case table.KindTime:
			tag += "INT64, convertedtype=TIMESTAMP_MILLIS"
		case table.KindString:
			tag += "BYTE_ARRAY, convertedtype=UTF8"
		default:
			return "", fmt.Errorf("column %q: unsupported kind %v", cs.Name, cs.Type)
		}
		sc.Fields = append(sc.Fields, field{Tag: tag})
	}
	b, err := json.Marshal(sc)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// checkParquetGoNames rejects names that do not survive parquet-go's tag syntax
// or that map to the same internal field name.
func checkParquetGoNames(s table.Schema) error {
	internal := make(map[string]string, len(s.Columns))
	for _, cs := range s.Columns {
		switch {
		case strings.ContainsAny(cs.Name, ",=\t"+common.PAR_GO_PATH_DELIMITER):
			return &UnsupportedNameError{Engine: EngineParquetGo, Name: cs.Name, Reason: "contains a reserved character"}
		case strings.TrimSpace(cs.Name) != cs.Name:
			return &UnsupportedNameError{Engine: EngineParquetGo, Name: cs.Name, Reason: "has surrounding whitespace"}
		}
		in := common.StringToVariableName(cs.Name)
		if other, ok := internal[in]; ok {
			return &UnsupportedNameError{Engine: EngineParquetGo, Name: cs.Name, Reason: fmt.Sprintf("collides with column %q", other)}
		}
		internal[in] = cs.Name
	}
	return nil
}

func parquetGoCodec(c Compression) parquet.CompressionCodec {
	switch c {
	case CompressionNone:
		return parquet.CompressionCodec_UNCOMPRESSED
	case CompressionGzip:
		return parquet.CompressionCodec_GZIP
	case CompressionZstd:
		return parquet.CompressionCodec_ZSTD
	default:
		return parquet.CompressionCodec_SNAPPY
	}
}

// writeParquetGo writes a Table using parquet-go's JSONWriter, one JSON object per row.
func writeParquetGo(w io.Writer, t *table.Table, opt WriterOptions) error {
	schema, err := parquetSchemaJSON(t.Schema())
	if err != nil {
		return err
	}
	writer, err := pw.NewJSONWriterFromWriter(schema, w, 1)
	if err != nil {
		return fmt.Errorf("parquet writer init: %w", err)
	}
	writer.CompressionType = parquetGoCodec(opt.Compression)
	if opt.RowGroupSize > 0 {
		writer.RowGroupSize = opt.RowGroupSize
	}
	if opt.PageSize > 0 {
		writer.PageSize = opt.PageSize
	}

	cols := t.Schema().Columns
	rec := make(map[string]any, len(cols))
	for r := 0; r < t.Rows(); r++ {
		clear(rec)
		for i, cs := range cols {
			switch col := t.Column(i).(type) {
			case *table.TimeColumn:
				if v, ok := col.Get(r); ok {
					rec[cs.Name] = v.UnixMilli()
				}
			default:
				if v, ok := col.Value(r); ok {
					rec[cs.Name] = v
				}
			}
		}
		b, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("parquet encode row %d: %w", r, err)
		}
		if err := writer.Write(b); err != nil {
			return fmt.Errorf("parquet write row %d: %w", r, err)
		}
	}
	if err := writer.WriteStop(); err != nil {
		return fmt.Errorf("parquet write footer: %w", err)
	}
	return nil
}
