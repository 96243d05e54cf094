package parquetio

import (
	"context"
	"fmt"
	"math"
	"os"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/memory"
	"github.com/apache/arrow/go/v17/parquet"
	"github.com/apache/arrow/go/v17/parquet/file"
	"github.com/apache/arrow/go/v17/parquet/pqarrow"

	"github.com/wdm0006/csv2parquet/pkg/table"
)

// ReadAll loads the Parquet file at path into a Table.
func ReadAll(ctx context.Context, path string) (*table.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	tbl, err := pqarrow.ReadTable(ctx, f, parquet.NewReaderProperties(memory.DefaultAllocator),
		pqarrow.ArrowReadProperties{}, memory.DefaultAllocator)
	if err != nil {
		return nil, fmt.Errorf("read parquet %s: %w", path, err)
	}
	defer tbl.Release()
	return fromArrow(tbl)
}

func kindOf(dt arrow.DataType) (table.Kind, error) {
	switch dt.ID() {
	case arrow.STRING, arrow.LARGE_STRING, arrow.BINARY:
		return table.KindString, nil
	case arrow.INT8, arrow.INT16, arrow.INT32, arrow.INT64,
		arrow.UINT8, arrow.UINT16, arrow.UINT32, arrow.UINT64:
		return table.KindInt, nil
	case arrow.FLOAT32, arrow.FLOAT64:
		return table.KindFloat, nil
	case arrow.BOOL:
		return table.KindBool, nil
	case arrow.TIMESTAMP, arrow.DATE32, arrow.DATE64:
		return table.KindTime, nil
	}
	return table.KindInvalid, fmt.Errorf("unsupported parquet column type %s", dt)
}

func fromArrow(tbl arrow.Table) (*table.Table, error) {
	sc := tbl.Schema()
	s := table.Schema{Columns: make([]table.ColumnSchema, sc.NumFields())}
	for i, f := range sc.Fields() {
		k, err := kindOf(f.Type)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", f.Name, err)
		}
		s.Columns[i] = table.ColumnSchema{Name: f.Name, Type: k, Nullable: true}
	}
	t, err := table.New(s)
	if err != nil {
		return nil, err
	}
	for r := int64(0); r < tbl.NumRows(); r++ {
		t.AppendNullRow()
	}
	for i := 0; i < int(tbl.NumCols()); i++ {
		name := s.Columns[i].Name
		row := 0
		for _, chunk := range tbl.Column(i).Data().Chunks() {
			for j := 0; j < chunk.Len(); j, row = j+1, row+1 {
				if chunk.IsNull(j) {
					continue
				}
				v, err := arrowValue(chunk, j)
				if err != nil {
					return nil, fmt.Errorf("column %q row %d: %w", name, row, err)
				}
				if err := t.SetCell(row, name, v); err != nil {
					return nil, err
				}
			}
		}
	}
	return t, nil
}

func arrowValue(a arrow.Array, i int) (any, error) {
	switch a := a.(type) {
	case *array.String:
		return a.Value(i), nil
	case *array.LargeString:
		return a.Value(i), nil
	case *array.Binary:
		return string(a.Value(i)), nil
	case *array.Int8:
		return int64(a.Value(i)), nil
	case *array.Int16:
		return int64(a.Value(i)), nil
	case *array.Int32:
		return int64(a.Value(i)), nil
	case *array.Int64:
		return a.Value(i), nil
	case *array.Uint8:
		return int64(a.Value(i)), nil
	case *array.Uint16:
		return int64(a.Value(i)), nil
	case *array.Uint32:
		return int64(a.Value(i)), nil
	case *array.Uint64:
		v := a.Value(i)
		if v > math.MaxInt64 {
			return nil, fmt.Errorf("value %d overflows int64", v)
		}
		return int64(v), nil
	case *array.Float32:
		return float64(a.Value(i)), nil
	case *array.Float64:
		return a.Value(i), nil
	case *array.Boolean:
		return a.Value(i), nil
	case *array.Timestamp:
		unit := a.DataType().(*arrow.TimestampType).Unit
		return a.Value(i).ToTime(unit).UTC(), nil
	case *array.Date32:
		return a.Value(i).ToTime().UTC(), nil
	case *array.Date64:
		return a.Value(i).ToTime().UTC(), nil
	}
	return nil, fmt.Errorf("unsupported arrow array %T", a)
}

// ColumnInfo describes one leaf column of a Parquet file.
type ColumnInfo struct {
	Name         string `json:"name"`
	PhysicalType string `json:"physical_type"`
	LogicalType  string `json:"logical_type,omitempty"`
}

// Metadata is the footer summary of a Parquet file.
type Metadata struct {
	Rows      int64        `json:"rows"`
	RowGroups int          `json:"row_groups"`
	CreatedBy string       `json:"created_by,omitempty"`
	Columns   []ColumnInfo `json:"columns"`
}

// ReadMetadata reads the footer of the Parquet file at path without decoding any pages.
func ReadMetadata(path string) (Metadata, error) {
	rdr, err := file.OpenParquetFile(path, false)
	if err != nil {
		return Metadata{}, err
	}
	defer func() { _ = rdr.Close() }()

	md := rdr.MetaData()
	m := Metadata{
		Rows:      rdr.NumRows(),
		RowGroups: rdr.NumRowGroups(),
		CreatedBy: md.GetCreatedBy(),
	}
	for i := 0; i < md.Schema.NumColumns(); i++ {
		c := md.Schema.Column(i)
		ci := ColumnInfo{Name: c.Name(), PhysicalType: c.PhysicalType().String()}
		if lt := c.LogicalType(); lt != nil && lt.IsValid() && !lt.IsNone() {
			ci.LogicalType = lt.String()
		}
		m.Columns = append(m.Columns, ci)
	}
	return m, nil
}
