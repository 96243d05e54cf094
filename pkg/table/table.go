// Package table holds the in-memory columnar representation of a parsed dataset.
package table

import (
	"fmt"
	"time"
)

// Schema describes the logical shape of a dataset.
type Schema struct {
	Columns []ColumnSchema
}

type ColumnSchema struct {
	Name     string
	Type     Kind
	Nullable bool
}

// Names returns the column names in order.
func (s Schema) Names() []string {
	out := make([]string, len(s.Columns))
	for i, cs := range s.Columns {
		out[i] = cs.Name
	}
	return out
}

// Column is a typed, nullable column abstraction.
type Column interface {
	Name() string
	Kind() Kind
	Len() int
	IsNull(i int) bool
	SetNull(i int)
	// Value returns the cell as a Go value; ok is false for nulls.
	Value(i int) (any, bool)
}

type BoolColumn struct {
	name  string
	data  []bool
	nulls []bool
}

func NewBoolColumn(name string, n int) *BoolColumn {
	return &BoolColumn{name: name, data: make([]bool, n), nulls: make([]bool, n)}
}
func (c *BoolColumn) Name() string            { return c.name }
func (c *BoolColumn) Kind() Kind              { return KindBool }
func (c *BoolColumn) Len() int                { return len(c.data) }
func (c *BoolColumn) IsNull(i int) bool       { return c.nulls[i] }
func (c *BoolColumn) SetNull(i int)           { c.nulls[i] = true }
func (c *BoolColumn) Get(i int) (bool, bool)  { return c.data[i], !c.nulls[i] }
func (c *BoolColumn) Value(i int) (any, bool) { return c.data[i], !c.nulls[i] }
func (c *BoolColumn) Set(i int, v bool)       { c.data[i] = v; c.nulls[i] = false }
func (c *BoolColumn) AppendNull()             { c.data = append(c.data, false); c.nulls = append(c.nulls, true) }
func (c *BoolColumn) Append(v bool)           { c.data = append(c.data, v); c.nulls = append(c.nulls, false) }

type IntColumn struct {
	name  string
	data  []int64
	nulls []bool
}

func NewIntColumn(name string, n int) *IntColumn {
	return &IntColumn{name: name, data: make([]int64, n), nulls: make([]bool, n)}
}
func (c *IntColumn) Name() string            { return c.name }
func (c *IntColumn) Kind() Kind              { return KindInt }
func (c *IntColumn) Len() int                { return len(c.data) }
func (c *IntColumn) IsNull(i int) bool       { return c.nulls[i] }
func (c *IntColumn) SetNull(i int)           { c.nulls[i] = true }
func (c *IntColumn) Get(i int) (int64, bool) { return c.data[i], !c.nulls[i] }
func (c *IntColumn) Value(i int) (any, bool) { return c.data[i], !c.nulls[i] }
func (c *IntColumn) Set(i int, v int64)      { c.data[i] = v; c.nulls[i] = false }
func (c *IntColumn) AppendNull()             { c.data = append(c.data, 0); c.nulls = append(c.nulls, true) }
func (c *IntColumn) Append(v int64)          { c.data = append(c.data, v); c.nulls = append(c.nulls, false) }

type FloatColumn struct {
	name  string
	data  []float64
	nulls []bool
}

func NewFloatColumn(name string, n int) *FloatColumn {
	return &FloatColumn{name: name, data: make([]float64, n), nulls: make([]bool, n)}
}
func (c *FloatColumn) Name() string              { return c.name }
func (c *FloatColumn) Kind() Kind                { return KindFloat }
func (c *FloatColumn) Len() int                  { return len(c.data) }
func (c *FloatColumn) IsNull(i int) bool         { return c.nulls[i] }
func (c *FloatColumn) SetNull(i int)             { c.nulls[i] = true }
func (c *FloatColumn) Get(i int) (float64, bool) { return c.data[i], !c.nulls[i] }
func (c *FloatColumn) Value(i int) (any, bool)   { return c.data[i], !c.nulls[i] }
func (c *FloatColumn) Set(i int, v float64)      { c.data[i] = v; c.nulls[i] = false }
func (c *FloatColumn) AppendNull()               { c.data = append(c.data, 0); c.nulls = append(c.nulls, true) }
func (c *FloatColumn) Append(v float64)          { c.data = append(c.data, v); c.nulls = append(c.nulls, false) }

type StringColumn struct {
	name  string
	data  []string
	nulls []bool
}

func NewStringColumn(name string, n int) *StringColumn {
	return &StringColumn{name: name, data: make([]string, n), nulls: make([]bool, n)}
}
func (c *StringColumn) Name() string             { return c.name }
func (c *StringColumn) Kind() Kind               { return KindString }
func (c *StringColumn) Len() int                 { return len(c.data) }
func (c *StringColumn) IsNull(i int) bool        { return c.nulls[i] }
func (c *StringColumn) SetNull(i int)            { c.nulls[i] = true }
func (c *StringColumn) Get(i int) (string, bool) { return c.data[i], !c.nulls[i] }
func (c *StringColumn) Value(i int) (any, bool)  { return c.data[i], !c.nulls[i] }
func (c *StringColumn) Set(i int, v string)      { c.data[i] = v; c.nulls[i] = false }
func (c *StringColumn) AppendNull()              { c.data = append(c.data, ""); c.nulls = append(c.nulls, true) }
func (c *StringColumn) Append(v string)          { c.data = append(c.data, v); c.nulls = append(c.nulls, false) }

type TimeColumn struct {
	name  string
	data  []time.Time
	nulls []bool
}

func NewTimeColumn(name string, n int) *TimeColumn {
	return &TimeColumn{name: name, data: make([]time.Time, n), nulls: make([]bool, n)}
}
func (c *TimeColumn) Name() string                { return c.name }
func (c *TimeColumn) Kind() Kind                  { return KindTime }
func (c *TimeColumn) Len() int                    { return len(c.data) }
func (c *TimeColumn) IsNull(i int) bool           { return c.nulls[i] }
func (c *TimeColumn) SetNull(i int)               { c.nulls[i] = true }
func (c *TimeColumn) Get(i int) (time.Time, bool) { return c.data[i], !c.nulls[i] }
func (c *TimeColumn) Value(i int) (any, bool)     { return c.data[i], !c.nulls[i] }
func (c *TimeColumn) Set(i int, v time.Time)      { c.data[i] = v; c.nulls[i] = false }
func (c *TimeColumn) AppendNull() {
	c.data = append(c.data, time.Time{})
	c.nulls = append(c.nulls, true)
}
func (c *TimeColumn) Append(v time.Time) {
	c.data = append(c.data, v)
	c.nulls = append(c.nulls, false)
}

// Table is a columnar container for tabular data. All columns have Rows() cells.
type Table struct {
	schema Schema
	cols   []Column
	index  map[string]int // name -> col index
	nrows  int
}

// New returns an empty table for s. Column names must be unique.
func New(s Schema) (*Table, error) {
	t := &Table{schema: s, cols: make([]Column, len(s.Columns)), index: make(map[string]int, len(s.Columns))}
	for i, cs := range s.Columns {
		if _, dup := t.index[cs.Name]; dup {
			return nil, fmt.Errorf("duplicate column name %q", cs.Name)
		}
		switch cs.Type {
		case KindBool:
			t.cols[i] = NewBoolColumn(cs.Name, 0)
		case KindInt:
			t.cols[i] = NewIntColumn(cs.Name, 0)
		case KindFloat:
			t.cols[i] = NewFloatColumn(cs.Name, 0)
		case KindString:
			t.cols[i] = NewStringColumn(cs.Name, 0)
		case KindTime:
			t.cols[i] = NewTimeColumn(cs.Name, 0)
		default:
			return nil, fmt.Errorf("column %q: invalid kind %v", cs.Name, cs.Type)
		}
		t.index[cs.Name] = i
	}
	return t, nil
}

// MustNew is New for schemas known to be valid, such as test fixtures.
func MustNew(s Schema) *Table {
	t, err := New(s)
	if err != nil {
		panic(err)
	}
	return t
}

func (t *Table) Schema() Schema     { return t.schema }
func (t *Table) Rows() int          { return t.nrows }
func (t *Table) Cols() int          { return len(t.cols) }
func (t *Table) Column(i int) Column { return t.cols[i] }

func (t *Table) ColumnByName(name string) (Column, bool) {
	i, ok := t.index[name]
	if !ok {
		return nil, false
	}
	return t.cols[i], true
}

// AppendNullRow appends a row with all-null values.
func (t *Table) AppendNullRow() {
	for _, c := range t.cols {
		switch col := c.(type) {
		case *BoolColumn:
			col.AppendNull()
		case *IntColumn:
			col.AppendNull()
		case *FloatColumn:
			col.AppendNull()
		case *StringColumn:
			col.AppendNull()
		case *TimeColumn:
			col.AppendNull()
		default:
			panic("unknown column type")
		}
	}
	t.nrows++
}

// SetCell sets a single cell value by name (row must exist). A nil value sets null.
func (t *Table) SetCell(row int, name string, v any) error {
	i, ok := t.index[name]
	if !ok {
		return fmt.Errorf("unknown column: %s", name)
	}
	if v == nil {
		t.cols[i].SetNull(row)
		return nil
	}
	switch col := t.cols[i].(type) {
	case *BoolColumn:
		b, ok := v.(bool)
		if !ok {
			return fmt.Errorf("column %s expects bool, got %T", name, v)
		}
		col.Set(row, b)
	case *IntColumn:
		switch x := v.(type) {
		case int:
			col.Set(row, int64(x))
		case int32:
			col.Set(row, int64(x))
		case int64:
			col.Set(row, x)
		default:
			return fmt.Errorf("column %s expects int64, got %T", name, v)
		}
	case *FloatColumn:
		switch x := v.(type) {
		case float32:
			col.Set(row, float64(x))
		case float64:
			col.Set(row, x)
		case int:
			col.Set(row, float64(x))
		case int64:
			col.Set(row, float64(x))
		default:
			return fmt.Errorf("column %s expects float64, got %T", name, v)
		}
	case *StringColumn:
		s, ok := v.(string)
		if !ok {
			return fmt.Errorf("column %s expects string, got %T", name, v)
		}
		col.Set(row, s)
	case *TimeColumn:
		ts, ok := v.(time.Time)
		if !ok {
			return fmt.Errorf("column %s expects time.Time, got %T", name, v)
		}
		col.Set(row, ts)
	default:
		return fmt.Errorf("unknown column kind")
	}
	return nil
}

// Equal reports whether a and b have the same schema and cell values.
// Times compare with time.Time.Equal.
func Equal(a, b *Table) bool {
	if a.Rows() != b.Rows() || a.Cols() != b.Cols() {
		return false
	}
	for i, ca := range a.schema.Columns {
		cb := b.schema.Columns[i]
		if ca.Name != cb.Name || ca.Type != cb.Type {
			return false
		}
		for r := 0; r < a.Rows(); r++ {
			va, oka := a.cols[i].Value(r)
			vb, okb := b.cols[i].Value(r)
			if oka != okb {
				return false
			}
			if !oka {
				continue
			}
			if ta, ok := va.(time.Time); ok {
				if !ta.Equal(vb.(time.Time)) {
					return false
				}
				continue
			}
			if va != vb {
				return false
			}
		}
	}
	return true
}
