package table

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// DefaultNullValues mirrors the NA tokens dataframe readers treat as missing.
var DefaultNullValues = []string{
	"", "#N/A", "#N/A N/A", "#NA", "-1.#IND", "-1.#QNAN", "-NaN", "-nan",
	"1.#IND", "1.#QNAN", "<NA>", "N/A", "NA", "NULL", "NaN", "None", "n/a", "nan", "null",
}

// TimeLayouts are tried in order; a time column uses the first layout every value parses with.
var TimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// Inferrer decides column kinds from raw string cells and converts cells to typed values.
type Inferrer struct {
	nulls map[string]struct{}
}

// NewInferrer builds an Inferrer. A nil nullValues uses DefaultNullValues.
func NewInferrer(nullValues []string) *Inferrer {
	if nullValues == nil {
		nullValues = DefaultNullValues
	}
	m := make(map[string]struct{}, len(nullValues)+1)
	m[""] = struct{}{}
	for _, v := range nullValues {
		m[v] = struct{}{}
	}
	return &Inferrer{nulls: m}
}

// IsNull reports whether a raw cell is a null token. Tokens match the
// untrimmed cell, so "  " and " NA " are values.
func (in *Inferrer) IsNull(raw string) bool {
	_, ok := in.nulls[raw]
	return ok
}

// Infer returns the kind of column c across every row. Rows shorter than c are skipped.
// It also returns the time layout when the kind is KindTime.
func (in *Inferrer) Infer(rows [][]string, c int) (Kind, string) {
	isInt, isFloat, isBool := true, true, true
	layouts := append([]string(nil), TimeLayouts...)
	seen := 0
	for _, row := range rows {
		if c >= len(row) || in.IsNull(row[c]) {
			continue
		}
		v := strings.TrimSpace(row[c])
		seen++
		if isInt {
			if _, err := strconv.ParseInt(v, 10, 64); err != nil {
				isInt = false
			}
		}
		if isFloat && !isInt {
			if !parseFinite(v) {
				isFloat = false
			}
		}
		if isBool {
			lv := strings.ToLower(v)
			isBool = lv == "true" || lv == "false"
		}
		if len(layouts) > 0 {
			kept := layouts[:0]
			for _, l := range layouts {
				if _, err := time.Parse(l, v); err == nil {
					kept = append(kept, l)
				}
			}
			layouts = kept
		}
		if !isInt && !isFloat && !isBool && len(layouts) == 0 {
			return KindString, ""
		}
	}
	switch {
	case seen == 0:
		return KindString, ""
	case isInt:
		return KindInt, ""
	case isFloat:
		return KindFloat, ""
	case isBool:
		return KindBool, ""
	case len(layouts) > 0:
		return KindTime, layouts[0]
	}
	return KindString, ""
}

func parseFinite(v string) bool {
	x, err := strconv.ParseFloat(v, 64)
	return err == nil && !math.IsInf(x, 0) && !math.IsNaN(x)
}

// Convert parses raw into the Go value for kind k. Null tokens return nil.
// Text cells keep their raw value.
func (in *Inferrer) Convert(raw string, k Kind, layout string) (any, error) {
	if in.IsNull(raw) {
		return nil, nil
	}
	v := strings.TrimSpace(raw)
	switch k {
	case KindInt:
		return strconv.ParseInt(v, 10, 64)
	case KindFloat:
		return strconv.ParseFloat(v, 64)
	case KindBool:
		return strconv.ParseBool(strings.ToLower(v))
	case KindTime:
		if layout != "" {
			ts, err := time.Parse(layout, v)
			if err != nil {
				return nil, err
			}
			return ts.UTC(), nil
		}
		for _, l := range TimeLayouts {
			if ts, err := time.Parse(l, v); err == nil {
				return ts.UTC(), nil
			}
		}
		return nil, fmt.Errorf("parsing time %q: no known layout matches", v)
	default:
		return raw, nil
	}
}
