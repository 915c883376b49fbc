package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"carbonequip/internal"
	"carbonequip/internal/config"
	"carbonequip/internal/dataset"
	"carbonequip/internal/extract"
	"carbonequip/internal/pipeline"
	"carbonequip/internal/server"
	"carbonequip/internal/storage"
)

// listFlag collects a repeatable string flag.
type listFlag []string

func (f *listFlag) String() string { return strings.Join(*f, ",") }

func (f *listFlag) Set(v string) error {
	*f = append(*f, v)
	return nil
}

func main() {
	cfg, err := config.Load()
	must(err)

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	switch cmd {
	case "serve":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		addr := fs.String("addr", cfg.HTTPAddr, "listen address")
		source := fs.String("source", cfg.DataSource, "dataset URL or file path")
		_ = fs.Parse(os.Args[2:])

		logger := server.Logger(cfg)
		metrics := server.NewMetrics()
		catalog := dataset.NewCatalog(dataset.NewLoader(cfg), *source, logger)
		catalog.SetObserver(metrics)

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()
		must(server.New(cfg, catalog, metrics, logger).ListenAndServe(ctx, *addr))
	case "export:csv", "export:xlsx":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		var types, powers listFlag
		fs.Var(&types, "type", "type label to keep (repeatable)")
		fs.Var(&powers, "power", "power category to keep (repeatable)")
		source := fs.String("source", cfg.DataSource, "dataset URL or file path")
		full := fs.Bool("full", cfg.ExportScope == config.ExportScopeFull, "export every row, ignoring filters")
		out := fs.String("out", "", "output path")
		_ = fs.Parse(os.Args[2:])

		rows := loadRows(cfg, *source)
		if !*full {
			rows = pipeline.NewFilterSelection(types, powers).Apply(rows)
		}
		if cmd == "export:csv" {
			path := outputPath(cfg, *out, pipeline.CSVFileName)
			must(pipeline.ExportRowsToCSV(rows, path))
			fmt.Printf("exported %d rows to %s\n", len(rows), path)
			return
		}
		path := outputPath(cfg, *out, pipeline.XLSXFileName)
		must(pipeline.ExportRowsToXLSX(rows, path))
		fmt.Printf("exported %d rows to %s\n", len(rows), path)
	case "rows":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		var types, powers listFlag
		fs.Var(&types, "type", "type label to keep (repeatable)")
		fs.Var(&powers, "power", "power category to keep (repeatable)")
		source := fs.String("source", cfg.DataSource, "dataset URL or file path")
		_ = fs.Parse(os.Args[2:])

		rows := pipeline.NewFilterSelection(types, powers).Apply(loadRows(cfg, *source))
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		must(enc.Encode(rows))
	case "extract":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		seedsPath := fs.String("seeds", cfg.SeedsPath, "sources YAML with seeds")
		input := fs.String("input", "", "local html/pdf/text file to extract instead of crawling")
		inType := fs.String("type", "", "html|pdf|text (default: from extension)")
		oem := fs.String("oem", "", "OEM for --input")
		country := fs.String("country", "", "country for --input")
		typeHint := fs.String("type-hint", "", "equipment type hint for --input")
		status := fs.String("status", "", "development status for --input")
		dataDir := fs.String("data", cfg.DataDir, "dataset directory")
		_ = fs.Parse(os.Args[2:])

		store, err := storage.Open(*dataDir)
		must(err)

		if strings.TrimSpace(*input) != "" {
			kind := *inType
			if kind == "" {
				kind = extract.InputTypeFromPath(*input)
			}
			seed := extract.Seed{OEM: *oem, Country: *country, TypeHint: *typeHint, DevelopmentStatus: *status}
			rec, err := extract.ExtractFromInput(kind, *input, seed)
			must(err)
			res, err := store.Merge([]internal.RawRecord{rec})
			must(err)
			fmt.Printf("extracted %s: added=%d updated=%d total=%d\n", *input, res.Added, res.Updated, res.Total)
			return
		}

		seeds, err := extract.LoadSeeds(*seedsPath)
		must(err)
		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()
		svc := extract.NewService(cfg, store, server.Logger(cfg))
		res, err := svc.Run(ctx, seeds)
		must(err)
		fmt.Printf("extract done pages=%d relevant=%d failed=%d saved=%d rows to %s\n",
			res.Pages, res.Relevant, res.Failed, res.Merge.Total, store.JSONPath())
	default:
		usage()
		os.Exit(1)
	}
}

// loadRows loads and normalizes the dataset once; load and shape failures
// are fatal on the command line.
func loadRows(cfg config.Config, source string) []internal.CanonicalRow {
	records, err := dataset.NewLoader(cfg).Load(context.Background(), source)
	must(err)
	return pipeline.NormalizeRecords(records)
}

func outputPath(cfg config.Config, out, name string) string {
	if strings.TrimSpace(out) != "" {
		return out
	}
	return filepath.Join(cfg.OutputDir, name)
}

func usage() {
	fmt.Println("usage: carbonequip <command>")
	fmt.Println("commands:")
	fmt.Println("  serve [--addr=127.0.0.1:8080] [--source=data/machines.json]")
	fmt.Println("  export:csv [--type=Excavator]... [--power=battery]... [--full] [--out=./out/machines.csv]")
	fmt.Println("  export:xlsx [--type=Excavator]... [--power=battery]... [--full] [--out=./out/machines.xlsx]")
	fmt.Println("  rows [--type=Excavator]... [--power=battery]...")
	fmt.Println("  extract [--seeds=./data/sources.yaml] [--data=./data]")
	fmt.Println("  extract --input=brochure.pdf [--type=html|pdf|text] --oem=Volvo [--country=...] [--type-hint=...] [--status=...]")
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
