package csvio

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	iox "github.com/wdm0006/csv2parquet/pkg/io/ioutils"
	"github.com/wdm0006/csv2parquet/pkg/table"
)

// ErrEmpty is returned when the input holds no header line.
var ErrEmpty = errors.New("csv: empty input")

// ErrInvalidUTF8 is wrapped in a *csv.ParseError for fields that are not valid UTF-8.
var ErrInvalidUTF8 = errors.New("invalid UTF-8")

type ReaderOptions struct {
	HasHeader  bool
	Delimiter  rune     // default ','
	NullValues []string // nil = table.DefaultNullValues
	LazyQuotes bool
}

// DefaultReaderOptions reads comma-delimited input with a header row.
func DefaultReaderOptions() ReaderOptions {
	return ReaderOptions{HasHeader: true, Delimiter: ','}
}

type Reader struct {
	r       *csv.Reader
	opt     ReaderOptions
	in      *table.Inferrer
	buf     [][]string
	layouts []string // per-column time layout from inference
}

// Open opens a CSV file (or stdin for "-") and returns a Reader plus the closer
// that releases the underlying file.
func Open(path string, opt ReaderOptions) (*Reader, io.Closer, error) {
	rc, err := iox.OpenMaybeCompressed(path)
	if err != nil {
		return nil, nil, err
	}
	return NewReaderFrom(rc, opt), rc, nil
}

// NewReaderFrom constructs a Reader from an arbitrary io.Reader (stdin, pipe).
func NewReaderFrom(r io.Reader, opt ReaderOptions) *Reader {
	rr := csv.NewReader(r)
	if opt.Delimiter != 0 {
		rr.Comma = opt.Delimiter
	}
	rr.LazyQuotes = opt.LazyQuotes
	// every record must match the field count of the first one
	rr.FieldsPerRecord = 0
	return &Reader{r: rr, opt: opt, in: table.NewInferrer(opt.NullValues)}
}

// InferSchema reads the header (if present) and every remaining record, then
// determines each column's kind from all of its values. Records are retained
// for ReadAll.
func (r *Reader) InferSchema() (table.Schema, []string, error) {
	rec, err := r.r.Read()
	if err == io.EOF {
		return table.Schema{}, nil, ErrEmpty
	}
	if err != nil {
		return table.Schema{}, nil, err
	}
	if err := r.checkUTF8(rec); err != nil {
		return table.Schema{}, nil, err
	}
	var names []string
	if r.opt.HasHeader {
		names = normalizeHeader(rec)
	} else {
		names = make([]string, len(rec))
		for i := range names {
			names[i] = "col_" + strconv.Itoa(i)
		}
		r.buf = append(r.buf, rec)
	}

	for {
		rec, err := r.r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return table.Schema{}, nil, err
		}
		if err := r.checkUTF8(rec); err != nil {
			return table.Schema{}, nil, err
		}
		r.buf = append(r.buf, rec)
	}

	schema := table.Schema{Columns: make([]table.ColumnSchema, len(names))}
	r.layouts = make([]string, len(names))
	for i := range names {
		kind, layout := r.in.Infer(r.buf, i)
		schema.Columns[i] = table.ColumnSchema{Name: names[i], Type: kind, Nullable: true}
		r.layouts[i] = layout
	}
	return schema, names, nil
}

// checkUTF8 reports the first field of the last read record that is not valid UTF-8.
func (r *Reader) checkUTF8(rec []string) error {
	for i, f := range rec {
		if utf8.ValidString(f) {
			continue
		}
		start, _ := r.r.FieldPos(0)
		line, col := r.r.FieldPos(i)
		return &csv.ParseError{StartLine: start, Line: line, Column: col, Err: ErrInvalidUTF8}
	}
	return nil
}

// ReadAll builds a Table from the records buffered by InferSchema.
func (r *Reader) ReadAll(schema table.Schema) (*table.Table, error) {
	t, err := table.New(schema)
	if err != nil {
		return nil, err
	}
	for n, rec := range r.buf {
		if len(rec) != len(schema.Columns) {
			return nil, fmt.Errorf("csv record %d: need %d fields, got %d", n+1, len(schema.Columns), len(rec))
		}
		t.AppendNullRow()
		row := t.Rows() - 1
		for i, cs := range schema.Columns {
			layout := ""
			if i < len(r.layouts) {
				layout = r.layouts[i]
			}
			v, err := r.in.Convert(rec[i], cs.Type, layout)
			if err != nil {
				return nil, fmt.Errorf("csv record %d column %q: %w", n+1, cs.Name, err)
			}
			if v == nil {
				continue
			}
			if err := t.SetCell(row, cs.Name, v); err != nil {
				return nil, err
			}
		}
	}
	r.buf = nil
	return t, nil
}

// ReadFile opens path, infers its schema and loads it into a Table.
func ReadFile(path string, opt ReaderOptions) (*table.Table, error) {
	r, c, err := Open(path, opt)
	if err != nil {
		return nil, err
	}
	defer func() { _ = c.Close() }()
	schema, _, err := r.InferSchema()
	if err != nil {
		return nil, err
	}
	return r.ReadAll(schema)
}

// normalizeHeader strips a BOM, names blank cells "Unnamed: i" and suffixes
// repeated names with ".1", ".2", ...
func normalizeHeader(rec []string) []string {
	names := make([]string, len(rec))
	seen := make(map[string]struct{}, len(rec))
	counts := make(map[string]int)
	for i := range rec {
		name := rec[i]
		if i == 0 {
			name = strings.TrimPrefix(name, "\ufeff")
		}
		if strings.TrimSpace(name) == "" {
			name = "Unnamed: " + strconv.Itoa(i)
		}
		base := name
		for {
			if _, dup := seen[name]; !dup {
				break
			}
			counts[base]++
			name = base + "." + strconv.Itoa(counts[base])
		}
		seen[name] = struct{}{}
		names[i] = name
	}
	return names
}

// FileSource reads a whole CSV file into a Table.
type FileSource struct {
	Path    string
	Options ReaderOptions
}

func (s FileSource) Read(ctx context.Context) (*table.Table, error) {
	return ReadFile(s.Path, s.Options)
}
