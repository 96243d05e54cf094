// Package profile computes per-column statistics over a Table.
package profile

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"github.com/wdm0006/csv2parquet/pkg/table"
)

type NumStats struct {
	Count int     `json:"count"`
	Nulls int     `json:"nulls"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Sum   float64 `json:"sum"`
}

// Mean is 0 for a column with no values.
func (n *NumStats) Mean() float64 {
	if n.Count == 0 {
		return 0
	}
	return n.Sum / float64(n.Count)
}

type BoolStats struct {
	Count int `json:"count"`
	Nulls int `json:"nulls"`
	True  int `json:"true"`
	False int `json:"false"`
}

type StringStats struct {
	Count int
	Nulls int
	Freqs map[string]int
}

// Freq is one entry of a top-k list.
type Freq struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

type ColumnProfile struct {
	Name string
	Kind table.Kind
	Num  *NumStats
	Bool *BoolStats
	Str  *StringStats
}

type Collector struct {
	cols  []ColumnProfile
	index map[string]int
	topK  int
	rows  int
}

// NewCollector prepares statistics for every column in schema. topK bounds the
// frequency lists of text and time columns; 0 disables them.
func NewCollector(schema table.Schema, topK int) *Collector {
	c := &Collector{index: make(map[string]int), topK: topK}
	c.cols = make([]ColumnProfile, len(schema.Columns))
	for i, cs := range schema.Columns {
		cp := ColumnProfile{Name: cs.Name, Kind: cs.Type}
		switch cs.Type {
		case table.KindFloat, table.KindInt:
			cp.Num = &NumStats{Min: math.Inf(1), Max: math.Inf(-1)}
		case table.KindBool:
			cp.Bool = &BoolStats{}
		default:
			cp.Str = &StringStats{Freqs: make(map[string]int)}
		}
		c.cols[i] = cp
		c.index[cs.Name] = i
	}
	return c
}

// Consume adds every row of t. Columns not present in the collector's schema
// are ignored.
func (c *Collector) Consume(t *table.Table) {
	c.rows += t.Rows()
	for i := 0; i < t.Cols(); i++ {
		idx, ok := c.index[t.Column(i).Name()]
		if !ok {
			continue
		}
		cp := &c.cols[idx]
		switch col := t.Column(i).(type) {
		case *table.FloatColumn:
			for r := 0; r < col.Len(); r++ {
				v, ok := col.Get(r)
				cp.Num.add(v, ok)
			}
		case *table.IntColumn:
			for r := 0; r < col.Len(); r++ {
				v, ok := col.Get(r)
				cp.Num.add(float64(v), ok)
			}
		case *table.BoolColumn:
			for r := 0; r < col.Len(); r++ {
				v, ok := col.Get(r)
				if !ok {
					cp.Bool.Nulls++
					continue
				}
				cp.Bool.Count++
				if v {
					cp.Bool.True++
				} else {
					cp.Bool.False++
				}
			}
		case *table.StringColumn:
			for r := 0; r < col.Len(); r++ {
				v, ok := col.Get(r)
				c.addStr(cp.Str, v, ok)
			}
		case *table.TimeColumn:
			for r := 0; r < col.Len(); r++ {
				v, ok := col.Get(r)
				c.addStr(cp.Str, v.Format(time.RFC3339Nano), ok)
			}
		}
	}
}

func (n *NumStats) add(v float64, ok bool) {
	if !ok {
		n.Nulls++
		return
	}
	n.Count++
	if v < n.Min {
		n.Min = v
	}
	if v > n.Max {
		n.Max = v
	}
	n.Sum += v
}

func (c *Collector) addStr(s *StringStats, v string, ok bool) {
	if !ok {
		s.Nulls++
		return
	}
	s.Count++
	if c.topK > 0 {
		s.Freqs[v]++
	}
}

// Rows is the number of rows consumed so far.
func (c *Collector) Rows() int { return c.rows }

// Columns returns the collected profiles in schema order.
func (c *Collector) Columns() []ColumnProfile { return c.cols }

// Top returns the k most frequent values, most frequent first, ties by value.
func (s *StringStats) Top(k int) []Freq {
	arr := make([]Freq, 0, len(s.Freqs))
	for v, n := range s.Freqs {
		arr = append(arr, Freq{Value: v, Count: n})
	}
	sort.Slice(arr, func(i, j int) bool {
		if arr[i].Count != arr[j].Count {
			return arr[i].Count > arr[j].Count
		}
		return arr[i].Value < arr[j].Value
	})
	if k > 0 && k < len(arr) {
		arr = arr[:k]
	}
	return arr
}

func (c *Collector) ReportText() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Profile Summary (%d rows)\n", c.rows)
	for _, cp := range c.cols {
		fmt.Fprintf(&b, "- %s (%v): ", cp.Name, cp.Kind)
		switch {
		case cp.Num != nil:
			if cp.Num.Count == 0 {
				fmt.Fprintf(&b, "count=0 nulls=%d\n", cp.Num.Nulls)
				continue
			}
			fmt.Fprintf(&b, "count=%d nulls=%d min=%.6g max=%.6g mean=%.6g\n", cp.Num.Count, cp.Num.Nulls, cp.Num.Min, cp.Num.Max, cp.Num.Mean())
		case cp.Bool != nil:
			fmt.Fprintf(&b, "count=%d nulls=%d true=%d false=%d\n", cp.Bool.Count, cp.Bool.Nulls, cp.Bool.True, cp.Bool.False)
		default:
			fmt.Fprintf(&b, "count=%d nulls=%d\n", cp.Str.Count, cp.Str.Nulls)
			for _, f := range cp.Str.Top(c.topK) {
				fmt.Fprintf(&b, "  * %q: %d\n", f.Value, f.Count)
			}
		}
	}
	return b.String()
}

type JSONProfile struct {
	Rows    int          `json:"rows"`
	Columns []JSONColumn `json:"columns"`
}

type JSONColumn struct {
	Name  string     `json:"name"`
	Kind  string     `json:"kind"`
	Count int        `json:"count"`
	Nulls int        `json:"nulls"`
	Min   *float64   `json:"min,omitempty"`
	Max   *float64   `json:"max,omitempty"`
	Mean  *float64   `json:"mean,omitempty"`
	Bool  *BoolStats `json:"bool,omitempty"`
	Top   []Freq     `json:"top,omitempty"`
}

// Report builds the JSON-ready profile.
func (c *Collector) Report() JSONProfile {
	out := JSONProfile{Rows: c.rows, Columns: make([]JSONColumn, 0, len(c.cols))}
	for _, cp := range c.cols {
		jc := JSONColumn{Name: cp.Name, Kind: cp.Kind.String()}
		switch {
		case cp.Num != nil:
			jc.Count, jc.Nulls = cp.Num.Count, cp.Num.Nulls
			if cp.Num.Count > 0 {
				lo, hi, mean := cp.Num.Min, cp.Num.Max, cp.Num.Mean()
				jc.Min, jc.Max, jc.Mean = &lo, &hi, &mean
			}
		case cp.Bool != nil:
			jc.Count, jc.Nulls = cp.Bool.Count, cp.Bool.Nulls
			jc.Bool = cp.Bool
		default:
			jc.Count, jc.Nulls = cp.Str.Count, cp.Str.Nulls
			if c.topK > 0 {
				jc.Top = cp.Str.Top(c.topK)
			}
		}
		out.Columns = append(out.Columns, jc)
	}
	return out
}

// ReportJSON encodes Report as indented JSON.
func (c *Collector) ReportJSON() ([]byte, error) {
	return json.MarshalIndent(c.Report(), "", "  ")
}
