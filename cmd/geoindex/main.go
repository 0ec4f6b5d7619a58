package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/go-sod/geoindex/internal/buildinfo"
	"github.com/go-sod/geoindex/internal/logging"
	"github.com/go-sod/geoindex/internal/shutdown"
)

const usage = `usage: geoindex <command> [flags]

commands:
  import <file.toml>  load features from a TOML file into the store
  bench               build a random tree and time queries
`

func main() {
	_, _ = fmt.Fprintln(os.Stderr, buildinfo.Info.String())
	if len(os.Args) < 2 {
		_, _ = fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	ctx, done := shutdown.New()
	defer done()
	logger := logging.FromContext(ctx)

	var err error
	switch os.Args[1] {
	case "import":
		err = runImport(ctx, os.Args[2:])
	case "bench":
		err = runBench(ctx, os.Args[2:])
	default:
		_, _ = fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		logger.Fatal(err)
	}
}

func runImport(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	batch := fs.Int("batch", 500, "features per store write")
	workers := fs.Int("workers", 4, "concurrent store writes")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("import: expected one feature file, got %d args", fs.NArg())
	}

	features, err := loadFeatureFile(fs.Arg(0), time.Now().UTC())
	if err != nil {
		return err
	}
	n, err := importFeatures(ctx, features, *batch, *workers)
	if err != nil {
		return err
	}
	logging.FromContext(ctx).Infof("imported %d features from %s", n, fs.Arg(0))
	return nil
}

func runBench(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("bench", flag.ExitOnError)
	opts := benchOptions{}
	fs.IntVar(&opts.points, "points", 100000, "points to insert")
	fs.IntVar(&opts.queries, "queries", 10000, "nearest queries to run")
	fs.IntVar(&opts.maxItems, "max-items", 32, "bucket capacity")
	fs.IntVar(&opts.k, "k", 10, "neighbours per k nearest query")
	if err := fs.Parse(args); err != nil {
		return err
	}
	res, err := bench(ctx, opts)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(os.Stdout, res)
	return nil
}
