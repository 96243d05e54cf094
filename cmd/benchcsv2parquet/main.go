package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"time"

	json "github.com/goccy/go-json"
	"github.com/spf13/pflag"

	"github.com/wdm0006/csv2parquet/pkg/convert"
	"github.com/wdm0006/csv2parquet/pkg/io/parquetio"
)

type genOptions struct {
	rows    int
	fcols   int
	icols   int
	bcols   int
	scols   int
	tcols   int
	missing float64
	seed    int64
}

// generate writes a header and o.rows random records to w. Missing cells are left empty.
func generate(w io.Writer, o genOptions) error {
	bw := bufio.NewWriter(w)
	rnd := rand.New(rand.NewSource(o.seed))
	groups := []struct {
		prefix string
		n      int
		cell   func() string
	}{
		{"f", o.fcols, func() string { return strconv.FormatFloat(rnd.Float64()*100, 'f', 3, 64) }},
		{"i", o.icols, func() string { return strconv.Itoa(rnd.Intn(100000)) }},
		{"b", o.bcols, func() string { return strconv.FormatBool(rnd.Intn(2) == 0) }},
		{"s", o.scols, func() string { return "Alpha " + strconv.Itoa(rnd.Intn(1000)) }},
		{"t", o.tcols, func() string {
			return time.Unix(1_600_000_000+rnd.Int63n(100_000_000), 0).UTC().Format("2006-01-02 15:04:05")
		}},
	}

	first := true
	for _, g := range groups {
		for i := 0; i < g.n; i++ {
			if !first {
				_ = bw.WriteByte(',')
			}
			first = false
			fmt.Fprintf(bw, "%s%d", g.prefix, i)
		}
	}
	_ = bw.WriteByte('\n')

	for r := 0; r < o.rows; r++ {
		first = true
		for _, g := range groups {
			for i := 0; i < g.n; i++ {
				if !first {
					_ = bw.WriteByte(',')
				}
				first = false
				if rnd.Float64() < o.missing {
					continue
				}
				_, _ = bw.WriteString(g.cell())
			}
		}
		if err := bw.WriteByte('\n'); err != nil {
			return err
		}
	}
	return bw.Flush()
}

type runSummary struct {
	Engine             string  `json:"engine"`
	Rows               int     `json:"rows"`
	ElapsedMS          int64   `json:"elapsed_ms"`
	RowsPerSec         float64 `json:"rows_per_sec"`
	OutputBytes        int64   `json:"output_bytes"`
	MemTotalAllocBytes uint64  `json:"mem_total_alloc_bytes"`
	GCNum              uint32  `json:"gc_num"`
}

func bench(ctx context.Context, src, dst string, eng parquetio.Engine, comp parquetio.Compression) (runSummary, error) {
	opt := convert.DefaultOptions()
	opt.Parquet.Engine = eng
	opt.Parquet.Compression = comp

	runtime.GC()
	var before, after runtime.MemStats
	runtime.ReadMemStats(&before)
	start := time.Now()
	res, err := convert.File(ctx, src, dst, opt)
	if err != nil {
		return runSummary{}, err
	}
	elapsed := time.Since(start)
	runtime.ReadMemStats(&after)

	st, err := os.Stat(dst)
	if err != nil {
		return runSummary{}, err
	}
	return runSummary{
		Engine:             string(eng),
		Rows:               res.Rows,
		ElapsedMS:          elapsed.Milliseconds(),
		RowsPerSec:         float64(res.Rows) / elapsed.Seconds(),
		OutputBytes:        st.Size(),
		MemTotalAllocBytes: after.TotalAlloc - before.TotalAlloc,
		GCNum:              after.NumGC - before.NumGC,
	}, nil
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run returns the process exit code so deferred cleanup happens before exit.
func run(args []string, stdout, stderr io.Writer) int {
	var (
		o       genOptions
		engines []string
		comp    string
		jsonOut bool
		keep    bool
	)
	fs := pflag.NewFlagSet("benchcsv2parquet", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.IntVar(&o.rows, "rows", 500_000, "total rows to generate")
	fs.IntVar(&o.fcols, "float-cols", 4, "number of float columns")
	fs.IntVar(&o.icols, "int-cols", 2, "number of int columns")
	fs.IntVar(&o.bcols, "bool-cols", 1, "number of bool columns")
	fs.IntVar(&o.scols, "string-cols", 2, "number of string columns")
	fs.IntVar(&o.tcols, "time-cols", 1, "number of time columns")
	fs.Float64Var(&o.missing, "missing", 0.05, "probability of a missing value in each cell")
	fs.Int64Var(&o.seed, "seed", 42, "random seed")
	fs.StringSliceVar(&engines, "engine", []string{string(parquetio.EngineParquetGo), string(parquetio.EngineArrow)}, "engines to run")
	fs.StringVar(&comp, "compression", string(parquetio.CompressionSnappy), "compression codec")
	fs.BoolVar(&jsonOut, "json", false, "emit JSON summary")
	fs.BoolVar(&keep, "keep", false, "keep the generated files")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		return 2
	}

	c, err := parquetio.ParseCompression(comp)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}
	engs := make([]parquetio.Engine, 0, len(engines))
	for _, name := range engines {
		eng, err := parquetio.ParseEngine(name)
		if err != nil {
			fmt.Fprintln(stderr, err)
			return 2
		}
		engs = append(engs, eng)
	}

	dir, err := os.MkdirTemp("", "benchcsv2parquet")
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	if !keep {
		defer os.RemoveAll(dir)
	}

	src := filepath.Join(dir, "bench.csv")
	f, err := os.Create(src)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	if err := generate(f, o); err != nil {
		_ = f.Close()
		fmt.Fprintln(stderr, err)
		return 1
	}
	if err := f.Close(); err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}

	var results []runSummary
	for _, eng := range engs {
		s, err := bench(context.Background(), src, filepath.Join(dir, "bench-"+string(eng)+".parquet"), eng, c)
		if err != nil {
			fmt.Fprintln(stderr, err)
			return 1
		}
		results = append(results, s)
	}

	if jsonOut {
		b, err := json.MarshalIndent(map[string]any{
			"rows":         o.rows,
			"missing_prob": o.missing,
			"compression":  c,
			"cols":         map[string]int{"float": o.fcols, "int": o.icols, "bool": o.bcols, "string": o.scols, "time": o.tcols},
			"runs":         results,
		}, "", "  ")
		if err != nil {
			fmt.Fprintln(stderr, err)
			return 1
		}
		fmt.Fprintln(stdout, string(b))
		return 0
	}
	for _, s := range results {
		fmt.Fprintf(stdout, "Engine: %s\n", s.Engine)
		fmt.Fprintf(stdout, "  Rows: %d\n", s.Rows)
		fmt.Fprintf(stdout, "  Elapsed: %s\n", time.Duration(s.ElapsedMS)*time.Millisecond)
		fmt.Fprintf(stdout, "  Throughput: %.0f rows/s\n", s.RowsPerSec)
		fmt.Fprintf(stdout, "  Output: %d KB\n", s.OutputBytes/1024)
		fmt.Fprintf(stdout, "  Total Alloc (delta): %d MB\n", s.MemTotalAllocBytes/1024/1024)
		fmt.Fprintf(stdout, "  GC cycles (delta): %d\n", s.GCNum)
	}
	if keep {
		fmt.Fprintf(stdout, "Files kept in %s\n", dir)
	}
	return 0
}
