package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wdm0006/csv2parquet/pkg/io/parquetio"
)

func write(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestLoadFormats(t *testing.T) {
	t.Setenv("C2P_DATA", "/srv/data")
	files := map[string]string{
		"c.yaml": `
input:
  path: ${C2P_DATA}/in.csv
  delimiter: ";"
  null_values: ["-", "?"]
output:
  engine: arrow
  compression: zstd
  row_group_size: 1000
`,
		"c.toml": `
[input]
path = "${C2P_DATA}/in.csv"
delimiter = ";"
null_values = ["-", "?"]

[output]
engine = "arrow"
compression = "zstd"
row_group_size = 1000
`,
		"c.json": `{
  "input": {"path": "${C2P_DATA}/in.csv", "delimiter": ";", "null_values": ["-", "?"]},
  "output": {"engine": "arrow", "compression": "zstd", "row_group_size": 1000}
}`,
	}
	for name, body := range files {
		t.Run(name, func(t *testing.T) {
			cfg, err := Load(write(t, name, body))
			require.NoError(t, err)
			require.NoError(t, cfg.Validate())

			assert.Equal(t, "/srv/data/in.csv", cfg.Input.Path)
			assert.True(t, cfg.Input.HasHeader, "default kept")
			assert.Equal(t, "info", cfg.Log.Level, "default kept")

			ro := cfg.ReaderOptions()
			assert.Equal(t, ';', ro.Delimiter)
			assert.Equal(t, []string{"-", "?"}, ro.NullValues)

			wo, err := cfg.WriterOptions()
			require.NoError(t, err)
			assert.Equal(t, parquetio.EngineArrow, wo.Engine)
			assert.Equal(t, parquetio.CompressionZstd, wo.Compression)
			assert.Equal(t, int64(1000), wo.RowGroupSize)

			cfg.Resolve()
			assert.Equal(t, "/srv/data/in.parquet", cfg.Output.Path)
		})
	}
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
	_, err = Load(write(t, "c.ini", "x=1"))
	assert.ErrorContains(t, err, "unsupported extension")
	_, err = Load(write(t, "c.yaml", "input: [1, 2"))
	assert.Error(t, err)
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	cfg.Resolve()
	assert.Equal(t, DefaultOutput, cfg.Output.Path)
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*Config){
		"delimiter":   func(c *Config) { c.Input.Delimiter = ";;" },
		"quote":       func(c *Config) { c.Input.Delimiter = `"` },
		"engine":      func(c *Config) { c.Output.Engine = "duckdb" },
		"compression": func(c *Config) { c.Output.Compression = "lz4" },
		"row group":   func(c *Config) { c.Output.RowGroupSize = -1 },
		"same path":   func(c *Config) { c.Output.Path = c.Input.Path },
		"log level":   func(c *Config) { c.Log.Level = "chatty" },
		"log format":  func(c *Config) { c.Log.Format = "xml" },
		"no input":    func(c *Config) { c.Input.Path = "" },
	}
	for name, mut := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mut(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestOutputPathFor(t *testing.T) {
	assert.Equal(t, "data/x.parquet", OutputPathFor("data/x.csv"))
	assert.Equal(t, "data/x.parquet", OutputPathFor("data/x.csv.gz"))
	assert.Equal(t, "x.parquet", OutputPathFor("x"))
	assert.Equal(t, DefaultOutput, OutputPathFor("-"))
}
