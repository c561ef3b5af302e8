package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/itchyny/gojq"

	"github.com/born-ml/ndarray/internal/serialization"
)

// header prints the JSON header of a file, optionally filtered by a jq query.
func header(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("header", flag.ContinueOnError)
	fs.SetOutput(stderr)
	expr := fs.String("q", ".", "jq expression applied to the header")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: header [-q expr] <file>")
	}

	q, err := gojq.Parse(*expr)
	if err != nil {
		return fmt.Errorf("invalid query %q: %w", *expr, err)
	}

	f, err := os.Open(fs.Arg(0))
	if err != nil {
		return err
	}
	defer f.Close()
	h, err := serialization.ReadHeader(f)
	if err != nil {
		return err
	}

	// gojq works on the generic decoding of the header.
	raw, err := json.Marshal(h)
	if err != nil {
		return err
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return err
	}

	iter := q.Run(doc)
	for {
		v, ok := iter.Next()
		if !ok {
			return nil
		}
		if err, ok := v.(error); ok {
			return fmt.Errorf("query %q: %w", *expr, err)
		}
		out, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(stdout, string(out))
	}
}
