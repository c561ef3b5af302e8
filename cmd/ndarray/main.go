// Package main provides the ndarray command line tool.
package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/born-ml/ndarray/internal/arena"
	"github.com/born-ml/ndarray/internal/backend/cpu"
	"github.com/born-ml/ndarray/internal/logging"
	"github.com/born-ml/ndarray/internal/parallel"
	"github.com/born-ml/ndarray/internal/serialization"
	"github.com/born-ml/ndarray/internal/tensor"
)

const version = "v" + serialization.Version

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "ndarray - N-dimensional arrays for Go")
	fmt.Fprintf(w, "Version: %s\n\n", version)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  version                                   Show version")
	fmt.Fprintln(w, "  info                                      Show CPU features and defaults")
	fmt.Fprintln(w, "  fill [-codec c] <file> <dtype> <shape> <value>  Write a filled array")
	fmt.Fprintln(w, "  inspect [-skip-checksum] [-v] [-print] <file> Decode a file and print statistics")
	fmt.Fprintln(w, "  header [-q expr] <file>                   Print the file header, filtered by a jq expression")
}

// run executes one command and returns the process exit code.
func run(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		usage(stdout)
		return 0
	}

	var err error
	switch args[0] {
	case "version":
		fmt.Fprintf(stdout, "ndarray %s\n", version)
	case "info":
		info(stdout)
	case "fill":
		err = fill(args[1:], stdout, stderr)
	case "inspect":
		err = inspect(args[1:], stdout, stderr)
	case "header":
		err = header(args[1:], stdout, stderr)
	case "help", "-h", "--help":
		usage(stdout)
	default:
		usage(stderr)
		err = fmt.Errorf("unknown command %q", args[0])
	}
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

func info(w io.Writer) {
	r := cpu.Capabilities()
	cfg := parallel.DefaultConfig()

	fmt.Fprintf(w, "Arch:            %s\n", r.Arch)
	if r.Brand != "" {
		fmt.Fprintf(w, "CPU:             %s\n", r.Brand)
	}
	fmt.Fprintf(w, "Logical CPUs:    %d\n", r.NumCPU)
	if r.PhysicalCores > 0 {
		fmt.Fprintf(w, "Physical cores:  %d\n", r.PhysicalCores)
	}
	fmt.Fprintf(w, "Cache line:      %d bytes\n", r.CacheLineSize)
	if r.L1D > 0 {
		fmt.Fprintf(w, "Caches:          L1d %d KiB, L2 %d KiB, L3 %d KiB\n", r.L1D>>10, r.L2>>10, r.L3>>10)
	}
	fmt.Fprintf(w, "Features:        %s\n", r.Features())
	fmt.Fprintf(w, "Parallel:        %t (%d workers, %d KiB minimum chunk)\n",
		cfg.Enabled, cfg.NumWorkers, cfg.MinChunkBytes>>10)
	fmt.Fprintf(w, "Arena block:     %d MiB\n", arena.DefaultBlockSize>>20)
	fmt.Fprintf(w, "Alignment:       %d bytes\n", tensor.DefaultAlignment)
}

func parseShape(s string) (tensor.Shape, error) {
	parts := strings.Split(s, ",")
	shape := make(tensor.Shape, len(parts))
	for i, p := range parts {
		d, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("bad shape %q: %w", s, err)
		}
		shape[i] = d
	}
	return shape, shape.Validate()
}

func fill(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("fill", flag.ContinueOnError)
	fs.SetOutput(stderr)
	codec := fs.String("codec", "zstd", "block compression: none, lz4 or zstd")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 4 {
		return fmt.Errorf("usage: fill [-codec c] <file> <dtype> <shape> <value>")
	}

	path := fs.Arg(0)
	dt, ok := tensor.ParseDataType(fs.Arg(1))
	if !ok {
		return fmt.Errorf("unknown dtype %q", fs.Arg(1))
	}
	shape, err := parseShape(fs.Arg(2))
	if err != nil {
		return err
	}
	value, err := strconv.ParseFloat(fs.Arg(3), 64)
	if err != nil {
		return fmt.Errorf("bad value %q: %w", fs.Arg(3), err)
	}
	c, err := serialization.ParseCompression(*codec)
	if err != nil {
		return err
	}

	ctx, err := tensor.NewContext()
	if err != nil {
		return err
	}
	defer ctx.Free()

	a, err := tensor.Fill(ctx, shape, dt, value)
	if err != nil {
		return err
	}
	if err := serialization.WriteFile(path, a, serialization.WriterOptions{Compression: c}); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "wrote %s %v to %s\n", dt, []int(shape), path)
	return nil
}

// decodeBudget bounds the arena for a file of n bytes: the largest array its
// payload may expand to, plus two blocks for the statistics outputs.
func decodeBudget(n int64) int64 {
	return (n+1)*serialization.MaxDecompressionRatio + 2*arena.DefaultBlockSize
}

func inspect(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("inspect", flag.ContinueOnError)
	fs.SetOutput(stderr)
	skip := fs.Bool("skip-checksum", false, "do not verify the payload checksum")
	verbose := fs.Bool("v", false, "log arena activity to stderr")
	show := fs.Bool("print", false, "print the elements after the statistics")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: inspect [-skip-checksum] [-v] [-print] <file>")
	}

	logger := logging.NoopLogger()
	if *verbose {
		logger = logging.NewTextLogger(stderr, slog.LevelDebug)
	}
	fi, err := os.Stat(fs.Arg(0))
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	ctx, err := tensor.NewContext(tensor.WithLogger(logger), tensor.WithMemoryLimit(decodeBudget(fi.Size())))
	if err != nil {
		return err
	}
	defer ctx.Free()

	a, h, err := serialization.ReadFile(fs.Arg(0), ctx, serialization.ReaderOptions{SkipChecksumValidation: *skip})
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout, "File:        %s\n", fs.Arg(0))
	fmt.Fprintf(stdout, "ID:          %s\n", h.ID)
	fmt.Fprintf(stdout, "Written by:  ndarray %s at %s\n", h.Library, h.CreatedAt.Format("2006-01-02 15:04:05Z07:00"))
	fmt.Fprintf(stdout, "DType:       %s\n", a.DType())
	fmt.Fprintf(stdout, "Shape:       %v (%d elements, %d bytes)\n", []int(a.Shape()), a.Size(), a.ByteSize())
	fmt.Fprintf(stdout, "Compression: %s, %d KiB blocks\n", h.Compression, h.BlockSize>>10)
	for k, v := range h.Metadata {
		fmt.Fprintf(stdout, "Meta:        %s=%s\n", k, v)
	}

	b := cpu.New(cpu.WithLogger(logger))
	stats := []struct {
		name  string
		dtype tensor.DataType
		f     func(out, a *tensor.Array) error
	}{
		{"Sum", a.DType(), b.Sum},
		{"Mean", a.DType(), b.Mean},
		{"Min", a.DType(), b.Min},
		{"Max", a.DType(), b.Max},
		{"Argmin", tensor.Int64, b.Argmin},
		{"Argmax", tensor.Int64, b.Argmax},
	}
	for _, s := range stats {
		out, err := tensor.Zeros(ctx, tensor.Shape{1}, s.dtype)
		if err != nil {
			return err
		}
		if err := s.f(out, a); err != nil {
			return err
		}
		v, err := out.At(0)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "%-12s %s\n", s.name+":", strconv.FormatFloat(v, 'g', -1, 64))
	}
	if *show {
		return a.Fprint(stdout)
	}
	return nil
}
