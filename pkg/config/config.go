// Package config loads conversion settings from YAML, TOML or JSON files.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	json "github.com/goccy/go-json"
	toml "github.com/pelletier/go-toml/v2"
	yaml "gopkg.in/yaml.v3"

	"github.com/wdm0006/csv2parquet/pkg/io/csvio"
	iox "github.com/wdm0006/csv2parquet/pkg/io/ioutils"
	"github.com/wdm0006/csv2parquet/pkg/io/parquetio"
	"github.com/wdm0006/csv2parquet/pkg/logging"
)

const (
	DefaultInput  = "data/sample.csv"
	DefaultOutput = "data/sample.parquet"
)

type Input struct {
	Path       string   `json:"path" yaml:"path" toml:"path"`
	HasHeader  bool     `json:"has_header" yaml:"has_header" toml:"has_header"`
	Delimiter  string   `json:"delimiter" yaml:"delimiter" toml:"delimiter"`
	NullValues []string `json:"null_values" yaml:"null_values" toml:"null_values"`
	LazyQuotes bool     `json:"lazy_quotes" yaml:"lazy_quotes" toml:"lazy_quotes"`
}

type Output struct {
	Path         string `json:"path" yaml:"path" toml:"path"`
	Engine       string `json:"engine" yaml:"engine" toml:"engine"`
	Compression  string `json:"compression" yaml:"compression" toml:"compression"`
	RowGroupSize int64  `json:"row_group_size" yaml:"row_group_size" toml:"row_group_size"`
	PageSize     int64  `json:"page_size" yaml:"page_size" toml:"page_size"`
}

type Log struct {
	Level  string `json:"level" yaml:"level" toml:"level"`
	Format string `json:"format" yaml:"format" toml:"format"`
}

type Config struct {
	Input  Input  `json:"input" yaml:"input" toml:"input"`
	Output Output `json:"output" yaml:"output" toml:"output"`
	Log    Log    `json:"log" yaml:"log" toml:"log"`
}

// Default returns the settings used when no file or flag overrides them.
// Output.Path is left empty and derived from Input.Path by Resolve.
func Default() Config {
	return Config{
		Input:  Input{Path: DefaultInput, HasHeader: true, Delimiter: ","},
		Output: Output{Engine: string(parquetio.EngineParquetGo), Compression: string(parquetio.CompressionSnappy)},
		Log:    Log{Level: "info", Format: "console"},
	}
}

// Load reads path on top of Default. The format follows the file extension
// and ${VAR} references are expanded from the environment before decoding.
func Load(path string) (Config, error) {
	cfg := Default()
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	b = []byte(os.ExpandEnv(string(b)))

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, &cfg)
	case ".toml":
		err = toml.Unmarshal(b, &cfg)
	case ".json":
		err = json.Unmarshal(b, &cfg)
	default:
		return cfg, fmt.Errorf("config %s: unsupported extension %q (want .yaml, .yml, .toml or .json)", path, ext)
	}
	if err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Resolve fills Output.Path from Input.Path when it is empty.
func (c *Config) Resolve() {
	if c.Output.Path == "" {
		c.Output.Path = OutputPathFor(c.Input.Path)
	}
}

// OutputPathFor returns src with any compression suffix dropped and its
// extension replaced by .parquet.
func OutputPathFor(src string) string {
	if src == "" || src == "-" {
		return DefaultOutput
	}
	p := iox.TrimCompressionExt(src)
	return strings.TrimSuffix(p, filepath.Ext(p)) + ".parquet"
}

func (c Config) Validate() error {
	var errs []error
	if c.Input.Path == "" {
		errs = append(errs, errors.New("input.path is required"))
	}
	if utf8.RuneCountInString(c.Input.Delimiter) != 1 {
		errs = append(errs, fmt.Errorf("input.delimiter must be a single character, got %q", c.Input.Delimiter))
	} else if r, _ := utf8.DecodeRuneInString(c.Input.Delimiter); r == '"' || r == '\r' || r == '\n' || r == utf8.RuneError {
		errs = append(errs, fmt.Errorf("input.delimiter %q is not allowed", c.Input.Delimiter))
	}
	if _, err := parquetio.ParseEngine(c.Output.Engine); err != nil {
		errs = append(errs, err)
	}
	if _, err := parquetio.ParseCompression(c.Output.Compression); err != nil {
		errs = append(errs, err)
	}
	if c.Output.RowGroupSize < 0 {
		errs = append(errs, fmt.Errorf("output.row_group_size must not be negative, got %d", c.Output.RowGroupSize))
	}
	if c.Output.PageSize < 0 {
		errs = append(errs, fmt.Errorf("output.page_size must not be negative, got %d", c.Output.PageSize))
	}
	if c.Output.Path != "" && c.Output.Path == c.Input.Path {
		errs = append(errs, errors.New("output.path must differ from input.path"))
	}
	if err := c.LogConfig().Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// ReaderOptions maps the input section onto csvio options. Call Validate first.
func (c Config) ReaderOptions() csvio.ReaderOptions {
	r, _ := utf8.DecodeRuneInString(c.Input.Delimiter)
	return csvio.ReaderOptions{
		HasHeader:  c.Input.HasHeader,
		Delimiter:  r,
		NullValues: c.Input.NullValues,
		LazyQuotes: c.Input.LazyQuotes,
	}
}

// WriterOptions maps the output section onto parquetio options.
func (c Config) WriterOptions() (parquetio.WriterOptions, error) {
	eng, err := parquetio.ParseEngine(c.Output.Engine)
	if err != nil {
		return parquetio.WriterOptions{}, err
	}
	comp, err := parquetio.ParseCompression(c.Output.Compression)
	if err != nil {
		return parquetio.WriterOptions{}, err
	}
	return parquetio.WriterOptions{
		Engine:       eng,
		Compression:  comp,
		RowGroupSize: c.Output.RowGroupSize,
		PageSize:     c.Output.PageSize,
	}, nil
}

// LogConfig maps the log section onto a logging.Config.
func (c Config) LogConfig() logging.Config {
	return logging.Config{Level: c.Log.Level, Encoding: c.Log.Format}
}
