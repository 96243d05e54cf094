package convert

import (
	"encoding/csv"
	"errors"
	"fmt"

	"github.com/wdm0006/csv2parquet/pkg/io/csvio"
	"github.com/wdm0006/csv2parquet/pkg/io/parquetio"
)

// ErrorType classifies conversion failures.
type ErrorType string

const (
	ErrorIO     ErrorType = "io"
	ErrorParse  ErrorType = "parse"
	ErrorConfig ErrorType = "config"
)

// Error is returned by every failing conversion. It wraps the cause so
// errors.Is / errors.As reach through it.
type Error struct {
	Type ErrorType
	Op   string // read or write
	Path string
	Err  error
}

func (e *Error) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s: %s error: %v", e.Op, e.Type, e.Err)
	}
	return fmt.Sprintf("%s %s: %s error: %v", e.Op, e.Path, e.Type, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// IsType reports whether err is, or wraps, an *Error of type t.
func IsType(err error, t ErrorType) bool {
	var ce *Error
	return errors.As(err, &ce) && ce.Type == t
}

func classify(err error) ErrorType {
	var pe *csv.ParseError
	var une *parquetio.UnsupportedNameError
	switch {
	case errors.As(err, &pe), errors.Is(err, csvio.ErrEmpty):
		return ErrorParse
	case errors.As(err, &une):
		return ErrorConfig
	}
	return ErrorIO
}

func wrap(op, path string, err error) error {
	if err == nil {
		return nil
	}
	var ce *Error
	if errors.As(err, &ce) {
		return err
	}
	return &Error{Type: classify(err), Op: op, Path: path, Err: err}
}
