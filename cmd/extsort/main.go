// Command extsort sorts a fixed-width unsigned integer record file that
// does not fit comfortably in memory.
//
// Usage:
//
//	extsort -in records.bin -out sorted.bin -record-size 4 -memory 256MiB
//
// Flags:
//
//	-in             input file path (required)
//	-out            output file path (required)
//	-record-size    record width in bytes: 1, 2, 4, or 8 (default 4)
//	-memory         total memory budget, e.g. "256MiB" (default 64MiB)
//	-workers        worker count, 0 = auto-detect (default 0)
//	-fan-in         merge fan-in, 0 = auto from tree height (default 0)
//	-tree-height    target merge tree height for auto fan-in (default 2)
//	-algo           sort algorithm: comparison or radix (default comparison)
//	-backend        chunk I/O backend: mapped, buffered, or native (default mapped)
//	-chunk-dir      directory for intermediate chunk files (default "chunks")
//	-keep-temp      keep intermediate chunk files after the run (default false)
//	-config         optional YAML file whose settings override the flags above
//	                (all except -in and -out)
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"gopkg.in/yaml.v2"

	"github.com/tamirms/extsort"
)

// fileConfig mirrors the subset of extsort.Option settings that can be
// overridden from a YAML file, the same narrow serializable-config shape
// distributed-net-packages-sorting's ServerConfigs uses for its own
// yaml.Unmarshal target.
type fileConfig struct {
	RecordSize int     `yaml:"recordSize"`
	Memory     string  `yaml:"memory"`
	Workers    int     `yaml:"workers"`
	FanIn      int     `yaml:"fanIn"`
	TreeHeight int     `yaml:"treeHeight"`
	Algorithm  string  `yaml:"algorithm"`
	Backend    string  `yaml:"backend"`
	ChunkDir   string  `yaml:"chunkDir"`
	KeepTemp   bool    `yaml:"keepTemp"`
	IOSplit    float64 `yaml:"ioSplitRatio"`
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "extsort:", err)
		os.Exit(exitCode(err))
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("extsort", flag.ContinueOnError)
	in := fs.String("in", "", "input file path")
	out := fs.String("out", "", "output file path")
	recordSize := fs.Int("record-size", 4, "record width in bytes (1, 2, 4, or 8)")
	memory := fs.String("memory", "64MiB", "total memory budget")
	workers := fs.Int("workers", 0, "worker count, 0 = auto-detect")
	fanIn := fs.Int("fan-in", 0, "merge fan-in, 0 = auto")
	treeHeight := fs.Int("tree-height", 2, "target merge tree height for auto fan-in")
	algo := fs.String("algo", "comparison", "sort algorithm: comparison or radix")
	backend := fs.String("backend", "mapped", "chunk I/O backend: mapped, buffered, or native")
	chunkDir := fs.String("chunk-dir", "chunks", "directory for intermediate chunk files")
	keepTemp := fs.Bool("keep-temp", false, "keep intermediate chunk files after the run")
	configPath := fs.String("config", "", "optional YAML config file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	// A bare positional argument names the input file, for the minimal
	// "extsort input.bin" invocation that takes every other setting from
	// defaults or -config.
	if *in == "" && fs.NArg() > 0 {
		*in = fs.Arg(0)
	}

	fc := fileConfig{
		RecordSize: *recordSize,
		Memory:     *memory,
		Workers:    *workers,
		FanIn:      *fanIn,
		TreeHeight: *treeHeight,
		Algorithm:  *algo,
		Backend:    *backend,
		ChunkDir:   *chunkDir,
		KeepTemp:   *keepTemp,
	}
	if *configPath != "" {
		if err := loadConfigFile(*configPath, &fc); err != nil {
			return err
		}
	}

	if *in == "" || *out == "" {
		return errors.New("both -in and -out are required")
	}

	opts, err := fc.toOptions()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stats, err := extsort.Sort(ctx, *in, *out, opts...)
	if err != nil {
		return err
	}

	fmt.Printf("sorted %d bytes across %d chunks with %d workers in %s\n",
		stats.BytesWritten, stats.ChunksCreated, stats.Workers, stats.SortDuration+stats.MergeDuration)
	return nil
}

// loadConfigFile unmarshals path into fc, letting any fields present in the
// file override the flag values already stored there, whether those came
// from defaults or were set explicitly on the command line.
func loadConfigFile(path string, fc *fileConfig) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, fc); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}

func (fc fileConfig) toOptions() ([]extsort.Option, error) {
	memBytes, err := parseByteSize(fc.Memory)
	if err != nil {
		return nil, fmt.Errorf("invalid -memory %q: %w", fc.Memory, err)
	}

	algo, err := parseAlgorithm(fc.Algorithm)
	if err != nil {
		return nil, err
	}
	backend, err := parseBackend(fc.Backend)
	if err != nil {
		return nil, err
	}

	opts := []extsort.Option{
		extsort.WithRecordSize(fc.RecordSize),
		extsort.WithMemoryBudget(memBytes),
		extsort.WithWorkers(fc.Workers),
		extsort.WithFanIn(fc.FanIn),
		extsort.WithTreeHeight(fc.TreeHeight),
		extsort.WithSortAlgorithm(algo),
		extsort.WithStreamBackend(backend),
		extsort.WithChunkDir(fc.ChunkDir),
		extsort.WithRemoveTemporaries(!fc.KeepTemp),
	}
	if fc.IOSplit > 0 {
		opts = append(opts, extsort.WithIOSplitRatio(fc.IOSplit))
	}
	return opts, nil
}

func parseAlgorithm(s string) (extsort.SortAlgorithm, error) {
	switch strings.ToLower(s) {
	case "", "comparison":
		return extsort.SortComparison, nil
	case "radix":
		return extsort.SortRadix, nil
	default:
		return 0, fmt.Errorf("unknown -algo %q", s)
	}
}

func parseBackend(s string) (extsort.StreamBackend, error) {
	switch strings.ToLower(s) {
	case "", "mapped":
		return extsort.BackendMapped, nil
	case "buffered":
		return extsort.BackendBuffered, nil
	case "native":
		return extsort.BackendNative, nil
	default:
		return 0, fmt.Errorf("unknown -backend %q", s)
	}
}

// parseByteSize parses sizes like "64MiB", "1GiB", or a bare byte count.
func parseByteSize(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("empty size")
	}

	units := []struct {
		suffix string
		mult   int64
	}{
		{"GiB", 1 << 30},
		{"MiB", 1 << 20},
		{"KiB", 1 << 10},
		{"B", 1},
	}
	for _, u := range units {
		if strings.HasSuffix(s, u.suffix) {
			n, err := strconv.ParseInt(strings.TrimSuffix(s, u.suffix), 10, 64)
			if err != nil {
				return 0, err
			}
			return n * u.mult, nil
		}
	}
	return strconv.ParseInt(s, 10, 64)
}

// exitCode maps an error to a process exit status: 0 for a -h/-help
// request, 2 for bad configuration, 1 for everything else.
func exitCode(err error) int {
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	var msg string
	if err != nil {
		msg = err.Error()
	}
	if strings.Contains(msg, "required") || strings.Contains(msg, "unknown") || strings.Contains(msg, "invalid") {
		return 2
	}
	return 1
}
