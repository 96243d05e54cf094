package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/wdm0006/csv2parquet/pkg/config"
	"github.com/wdm0006/csv2parquet/pkg/convert"
	"github.com/wdm0006/csv2parquet/pkg/io/parquetio"
	"github.com/wdm0006/csv2parquet/pkg/logging"
	"github.com/wdm0006/csv2parquet/pkg/profile"
)

var version = "0.1.0-dev"

const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

// usageError marks errors caused by bad arguments, flags or configuration.
type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

func usagef(format string, args ...any) error {
	return usageError{fmt.Errorf(format, args...)}
}

func run(args []string) int {
	return execute(context.Background(), args, os.Stdout, os.Stderr)
}

func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := newRootCmd(stdout, stderr)
	if args == nil {
		// cobra falls back to os.Args when given nil
		args = []string{}
	}
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if err == nil {
		return exitOK
	}
	fmt.Fprintln(stderr, "error:", err)
	var ue usageError
	if errors.As(err, &ue) || convert.IsType(err, convert.ErrorConfig) {
		return exitUsage
	}
	return exitFailure
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	var f convertFlags
	root := &cobra.Command{
		Use:           "csv2parquet [SRC [DST]]",
		Short:         "Convert delimited text files to Parquet",
		Long:          convertLong,
		Args:          convertArgs,
		RunE:          runConvert(&f, stderr),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	f.bind(root.Flags())
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error { return usageError{err} })

	root.AddCommand(newConvertCmd(stderr), newInspectCmd(), &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "csv2parquet %s\n", version)
			fmt.Fprintf(cmd.OutOrStdout(), "Go version: %s\n", runtime.Version())
			fmt.Fprintf(cmd.OutOrStdout(), "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	})
	return root
}

type convertFlags struct {
	configPath   string
	delimiter    string
	nullValues   []string
	noHeader     bool
	engine       string
	compression  string
	rowGroupSize int64
	logLevel     string
	logFormat    string
}

func (f *convertFlags) bind(fs *pflag.FlagSet) {
	fs.StringVar(&f.configPath, "config", "", "config file (.yaml, .yml, .toml or .json)")
	fs.StringVarP(&f.delimiter, "delimiter", "d", ",", "field delimiter")
	fs.StringSliceVar(&f.nullValues, "null-values", nil, "cell values read as null (default: common NA tokens)")
	fs.BoolVar(&f.noHeader, "no-header", false, "first line is data; columns are named col_0, col_1, ...")
	fs.StringVar(&f.engine, "engine", string(parquetio.EngineParquetGo), "parquet engine: parquet-go or arrow")
	fs.StringVar(&f.compression, "compression", string(parquetio.CompressionSnappy), "compression: none, snappy, gzip or zstd")
	fs.Int64Var(&f.rowGroupSize, "row-group-size", 0, "row group size (bytes for parquet-go, rows for arrow; 0 = default)")
	fs.StringVar(&f.logLevel, "log-level", "info", "log level: debug, info, warn or error")
	fs.StringVar(&f.logFormat, "log-format", "console", "log format: console or json")
}

// apply overlays explicitly set flags on cfg.
func (f *convertFlags) apply(fs *pflag.FlagSet, cfg *config.Config) {
	if fs.Changed("delimiter") {
		cfg.Input.Delimiter = f.delimiter
	}
	if fs.Changed("null-values") {
		cfg.Input.NullValues = f.nullValues
	}
	if fs.Changed("no-header") {
		cfg.Input.HasHeader = !f.noHeader
	}
	if fs.Changed("engine") {
		cfg.Output.Engine = f.engine
	}
	if fs.Changed("compression") {
		cfg.Output.Compression = f.compression
	}
	if fs.Changed("row-group-size") {
		cfg.Output.RowGroupSize = f.rowGroupSize
	}
	if fs.Changed("log-level") {
		cfg.Log.Level = f.logLevel
	}
	if fs.Changed("log-format") {
		cfg.Log.Format = f.logFormat
	}
}

const convertLong = `Read the whole CSV source, infer a type for every column and write it as Parquet.

SRC defaults to ` + config.DefaultInput + `. DST defaults to SRC with a .parquet extension.
Flags override values from --config.`

func convertArgs(cmd *cobra.Command, args []string) error {
	if len(args) > 2 {
		return usagef("%s takes at most 2 arguments, got %d", cmd.Name(), len(args))
	}
	return nil
}

// runConvert is shared by the root command and its convert alias.
func runConvert(f *convertFlags, stderr io.Writer) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd.Flags(), f, args)
		if err != nil {
			return err
		}
		log, err := logging.NewWriter(cfg.LogConfig(), stderr)
		if err != nil {
			return usageError{err}
		}
		defer func() { _ = log.Sync() }()

		wo, err := cfg.WriterOptions()
		if err != nil {
			return usageError{err}
		}
		opt := convert.Options{CSV: cfg.ReaderOptions(), Parquet: wo, Logger: log}
		_, err = convert.File(cmd.Context(), cfg.Input.Path, cfg.Output.Path, opt)
		return err
	}
}

func newConvertCmd(stderr io.Writer) *cobra.Command {
	var f convertFlags
	cmd := &cobra.Command{
		Use:   "convert [SRC [DST]]",
		Short: "Convert a CSV file to Parquet (same as running csv2parquet without a command)",
		Long:  convertLong,
		Args:  convertArgs,
		RunE:  runConvert(&f, stderr),
	}
	f.bind(cmd.Flags())
	return cmd
}

func loadConfig(fs *pflag.FlagSet, f *convertFlags, args []string) (config.Config, error) {
	cfg := config.Default()
	if f.configPath != "" {
		var err error
		if cfg, err = config.Load(f.configPath); err != nil {
			return cfg, usageError{err}
		}
	}
	f.apply(fs, &cfg)
	if len(args) > 0 {
		cfg.Input.Path = args[0]
		cfg.Output.Path = ""
	}
	if len(args) > 1 {
		cfg.Output.Path = args[1]
	}
	cfg.Resolve()
	if err := cfg.Validate(); err != nil {
		return cfg, usageError{err}
	}
	return cfg, nil
}

func newInspectCmd() *cobra.Command {
	var asJSON bool
	var top int
	cmd := &cobra.Command{
		Use:   "inspect FILE",
		Short: "Print the shape, schema and column profile of a Parquet file",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return usagef("inspect takes exactly 1 argument, got %d", len(args))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			md, err := parquetio.ReadMetadata(path)
			if err != nil {
				return fmt.Errorf("inspect %s: %w", path, err)
			}
			t, err := parquetio.ReadAll(cmd.Context(), path)
			if err != nil {
				return fmt.Errorf("inspect %s: %w", path, err)
			}
			c := profile.NewCollector(t.Schema(), top)
			c.Consume(t)

			out := cmd.OutOrStdout()
			if asJSON {
				doc := struct {
					File     string              `json:"file"`
					Metadata parquetio.Metadata  `json:"metadata"`
					Profile  profile.JSONProfile `json:"profile"`
				}{path, md, c.Report()}
				b, err := json.MarshalIndent(doc, "", "  ")
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(out, string(b))
				return err
			}

			fmt.Fprintf(out, "File: %s\n", path)
			fmt.Fprintf(out, "Rows: %d  Columns: %d  Row groups: %d\n", md.Rows, len(md.Columns), md.RowGroups)
			if md.CreatedBy != "" {
				fmt.Fprintf(out, "Created by: %s\n", md.CreatedBy)
			}
			fmt.Fprintln(out, "Schema:")
			for i, ci := range md.Columns {
				typ := ci.PhysicalType
				if ci.LogicalType != "" {
					typ += " " + ci.LogicalType
				}
				fmt.Fprintf(out, "  %-*s %s (%s)\n", width(md.Columns), ci.Name, t.Schema().Columns[i].Type, typ)
			}
			fmt.Fprint(out, c.ReportText())
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of text")
	cmd.Flags().IntVar(&top, "top", 5, "most frequent values to list for text and time columns")
	return cmd
}

func width(cols []parquetio.ColumnInfo) int {
	w := 0
	for _, c := range cols {
		if n := len(c.Name); n > w {
			w = n
		}
	}
	return w
}
