// Package main implements the gridframe CLI: validating JSON tables against
// declared schemas, filling periodic index gaps, summing aligned tables,
// and storing/fetching frames through the catalog-backed store.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/gridframe/gridframe/internal/aggregate"
	"github.com/gridframe/gridframe/internal/config"
	"github.com/gridframe/gridframe/internal/container"
	"github.com/gridframe/gridframe/internal/interval"
	"github.com/gridframe/gridframe/internal/storage"
	"github.com/gridframe/gridframe/internal/store"
	"github.com/gridframe/gridframe/internal/tableio"
	"github.com/gridframe/gridframe/pkg/types"
)

func main() {
	var (
		configFile  string
		dataDir     string
		mode        string
		schemaFile  string
		tableFile   string
		outFile     string
		template    string
		frameID     string
		frameList   string
		period      time.Duration
		tzRequired  bool
		fillDefault string
		showHelp    bool
	)

	flag.StringVar(&configFile, "config", "", "Path to configuration file (YAML or JSON)")
	flag.StringVar(&dataDir, "data-dir", "", "Base directory for catalog and storage")
	flag.StringVar(&mode, "mode", "validate", "Operation: validate, fill, sum, put, get")
	flag.StringVar(&schemaFile, "schema", "", "Path to schema JSON file")
	flag.StringVar(&tableFile, "table", "", "Path to table JSON file (sum takes tables as positional args)")
	flag.StringVar(&outFile, "out", "", "Output path (default stdout)")
	flag.StringVar(&template, "template", "", "Template name in the catalog (put/get)")
	flag.StringVar(&frameID, "frame", "", "Frame ID to fetch (get)")
	flag.StringVar(&frameList, "frames", "", "Comma-separated frame IDs to sum from the store (sum)")
	flag.DurationVar(&period, "period", 0, "Periodic index period (e.g. 15m); 0 disables index checks")
	flag.BoolVar(&tzRequired, "tz-required", false, "Require explicit timezone offsets on index values")
	flag.StringVar(&fillDefault, "fill-defaults", "", "JSON object of per-column defaults for synthesized rows")
	flag.BoolVar(&showHelp, "help", false, "Show help message")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Gridframe - schema-governed periodic tables\n\n")
		fmt.Fprintf(os.Stderr, "Usage: gridframe -mode <op> [options] [tables...]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  gridframe -mode validate -schema meter.json -table day.json -period 15m -tz-required\n")
		fmt.Fprintf(os.Stderr, "  gridframe -mode fill -schema meter.json -table day.json -period 15m -out filled.json\n")
		fmt.Fprintf(os.Stderr, "  gridframe -mode sum -schema meter.json -period 15m site-a.json site-b.json\n")
		fmt.Fprintf(os.Stderr, "  gridframe -mode sum -schema meter.json -period 15m -template meter -frames <id>,<id>\n")
		fmt.Fprintf(os.Stderr, "  gridframe -mode put -schema meter.json -table day.json -template meter -period 15m\n")
		fmt.Fprintf(os.Stderr, "  gridframe -mode get -schema meter.json -template meter -frame <id>\n")
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  GRIDFRAME_DATA_DIR       Base directory for data files\n")
		fmt.Fprintf(os.Stderr, "  GRIDFRAME_STORAGE_TYPE   Storage type (local, s3)\n")
		fmt.Fprintf(os.Stderr, "  GRIDFRAME_S3_BUCKET      S3 bucket for frame blobs\n")
	}

	flag.Parse()

	if showHelp {
		flag.Usage()
		os.Exit(0)
	}

	schema := loadSchema(schemaFile)
	policy := loadPolicy(period, tzRequired)

	switch mode {
	case "validate":
		runValidate(schema, policy, tableFile)
	case "fill":
		runFill(schema, policy, tableFile, fillDefault, outFile)
	case "sum":
		if frameList != "" {
			runSumStored(loadStoreConfig(configFile, dataDir), schema, policy, template, frameList, outFile)
		} else {
			runSum(schema, policy, flag.Args(), outFile)
		}
	case "put":
		runPut(loadStoreConfig(configFile, dataDir), schema, policy, template, tableFile)
	case "get":
		runGet(loadStoreConfig(configFile, dataDir), schema, template, frameID, outFile)
	default:
		log.Fatalf("Unknown mode %q (want validate, fill, sum, put, get)", mode)
	}
}

// loadSchema reads and validates a schema JSON file.
func loadSchema(path string) *types.Schema {
	if path == "" {
		log.Fatalf("-schema is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("Failed to read schema file: %v", err)
	}
	schema := &types.Schema{}
	if err := json.Unmarshal(data, schema); err != nil {
		log.Fatalf("Failed to parse schema: %v", err)
	}
	return schema
}

func loadPolicy(period time.Duration, tzRequired bool) *interval.Policy {
	if period <= 0 {
		return nil
	}
	policy, err := interval.NewPolicy(period, tzRequired)
	if err != nil {
		log.Fatalf("Invalid period: %v", err)
	}
	return &policy
}

func loadTable(schema *types.Schema, path string) *types.Table {
	if path == "" {
		log.Fatalf("-table is required")
	}
	f, err := os.Open(path)
	if err != nil {
		log.Fatalf("Failed to open table file: %v", err)
	}
	defer f.Close()

	table, err := tableio.ReadTable(schema, f)
	if err != nil {
		log.Fatalf("Failed to read table %s: %v", path, err)
	}
	return table
}

func writeTable(table *types.Table, outFile string) {
	w := os.Stdout
	if outFile != "" {
		f, err := os.Create(outFile)
		if err != nil {
			log.Fatalf("Failed to create output file: %v", err)
		}
		defer f.Close()
		w = f
	}
	if err := tableio.WriteTable(table, w); err != nil {
		log.Fatalf("Failed to write table: %v", err)
	}
}

// newContainer loads a raw table into a fresh container.
func newContainer(schema *types.Schema, policy *interval.Policy, table *types.Table) *container.Container {
	c := container.New(schema, policy)
	if err := c.Load(table); err != nil {
		log.Fatalf("Failed to load table: %v", err)
	}
	return c
}

func runValidate(schema *types.Schema, policy *interval.Policy, tableFile string) {
	c := newContainer(schema, policy, loadTable(schema, tableFile))

	if err := c.Validate(); err != nil {
		for _, v := range c.Violations() {
			fmt.Fprintf(os.Stderr, "violation: %s\n", v)
		}
		report := c.IndexReport()
		for _, f := range report.Faults {
			fmt.Fprintf(os.Stderr, "index fault: %s\n", f)
		}
		for _, g := range report.Gaps {
			fmt.Fprintf(os.Stderr, "gap: %d missing after %s\n", g.MissingCount, g.After)
		}
		os.Exit(1)
	}
	fmt.Println("ok")
}

func runFill(schema *types.Schema, policy *interval.Policy, tableFile, fillDefault, outFile string) {
	if policy == nil {
		log.Fatalf("-period is required for fill")
	}

	defaults := interval.Defaults{}
	if fillDefault != "" {
		var raw map[string]interface{}
		if err := json.Unmarshal([]byte(fillDefault), &raw); err != nil {
			log.Fatalf("Failed to parse -fill-defaults: %v", err)
		}
		for name, rv := range raw {
			col, ok := schema.Column(name)
			if !ok {
				log.Fatalf("Default for unknown column %q", name)
			}
			v, err := types.DecodeRaw(col.Type, rv)
			if err != nil {
				log.Fatalf("Bad default for column %q: %v", name, err)
			}
			defaults[name] = v
		}
	}

	table := loadTable(schema, tableFile)
	report := interval.VerifyIndex(*policy, table.Index)
	if len(report.Faults) > 0 {
		for _, f := range report.Faults {
			fmt.Fprintf(os.Stderr, "index fault: %s\n", f)
		}
		os.Exit(1)
	}

	filled, err := interval.Fill(*policy, table, report.Gaps, defaults)
	if err != nil {
		log.Fatalf("Fill failed: %v", err)
	}
	log.Printf("Filled %d missing slots across %d gaps", report.MissingTotal(), len(report.Gaps))
	writeTable(filled, outFile)
}

func runSum(schema *types.Schema, policy *interval.Policy, paths []string, outFile string) {
	if policy == nil {
		log.Fatalf("-period is required for sum")
	}
	if len(paths) < 2 {
		log.Fatalf("sum needs at least two table files")
	}

	tables := make([]*types.Table, 0, len(paths))
	for _, path := range paths {
		table := loadTable(schema, path)
		c := newContainer(schema, policy, table)
		if err := c.Validate(); err != nil {
			log.Fatalf("Input %s is invalid: %v", path, err)
		}
		validated, err := c.Export()
		if err != nil {
			log.Fatalf("Export failed for %s: %v", path, err)
		}
		tables = append(tables, validated)
	}

	out, err := aggregate.SumAligned(tables, schema, *policy, aggregate.Options{})
	if err != nil {
		log.Fatalf("Aggregation failed: %v", err)
	}
	writeTable(out, outFile)
}

// runSumStored sums frames pulled from the store instead of table files.
// Every frame is re-validated through a container before aggregation, the
// same as file inputs.
func runSumStored(cfg *config.Config, schema *types.Schema, policy *interval.Policy, template, frameList, outFile string) {
	if policy == nil {
		log.Fatalf("-period is required for sum")
	}
	if template == "" {
		log.Fatalf("-template is required when summing stored frames")
	}

	frameIDs := strings.Split(frameList, ",")
	if len(frameIDs) < 2 {
		log.Fatalf("sum needs at least two frame IDs")
	}

	frames, catalog := openStore(cfg)
	defer catalog.Close()

	fetcher := store.NewFrameFetcher(frames, 4)
	raw, err := fetcher.FetchOrdered(context.Background(), template, frameIDs)
	if err != nil {
		log.Fatalf("Failed to fetch frames: %v", err)
	}

	tables := make([]*types.Table, 0, len(raw))
	for i, table := range raw {
		c := newContainer(schema, policy, table)
		if err := c.Validate(); err != nil {
			log.Fatalf("Frame %s is invalid: %v", frameIDs[i], err)
		}
		validated, err := c.Export()
		if err != nil {
			log.Fatalf("Export failed for frame %s: %v", frameIDs[i], err)
		}
		tables = append(tables, validated)
	}

	out, err := aggregate.SumAligned(tables, schema, *policy, aggregate.Options{})
	if err != nil {
		log.Fatalf("Aggregation failed: %v", err)
	}
	writeTable(out, outFile)
}

func loadStoreConfig(configFile, dataDir string) *config.Config {
	var cfg *config.Config
	if configFile != "" {
		loaded, err := config.LoadFromFile(configFile)
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}
		cfg = loaded
	} else {
		cfg = config.DefaultConfig()
	}
	config.LoadFromEnv(cfg)
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	cfg.Resolve()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatalf("Failed to create data directories: %v", err)
	}
	return cfg
}

func openStore(cfg *config.Config) (*store.FrameStore, *store.SQLiteCatalog) {
	catalog, err := store.NewCatalog(cfg.CatalogPath())
	if err != nil {
		log.Fatalf("Failed to open catalog: %v", err)
	}

	var objects storage.ObjectStorage
	switch cfg.Storage.Type {
	case "s3":
		s3cfg := storage.S3Config{
			Region:       cfg.Storage.S3.Region,
			Endpoint:     cfg.Storage.S3.Endpoint,
			UsePathStyle: cfg.Storage.S3.UsePathStyle,
		}
		objects, err = storage.NewS3Storage(context.Background(), cfg.Storage.S3.Bucket, s3cfg)
	default:
		objects, err = storage.NewLocalStorage(cfg.Storage.Path)
	}
	if err != nil {
		catalog.Close()
		log.Fatalf("Failed to initialize storage: %v", err)
	}

	return store.NewFrameStore(catalog, objects, cfg.Storage.Prefix), catalog
}

func runPut(cfg *config.Config, schema *types.Schema, policy *interval.Policy, template, tableFile string) {
	if template == "" {
		log.Fatalf("-template is required for put")
	}

	frames, catalog := openStore(cfg)
	defer catalog.Close()

	ctx := context.Background()
	if _, err := catalog.RegisterTemplate(ctx, template, schema); err != nil {
		log.Fatalf("Failed to register template: %v", err)
	}

	c := newContainer(schema, policy, loadTable(schema, tableFile))
	if err := c.Validate(); err != nil {
		log.Fatalf("Table is invalid, refusing to persist: %v", err)
	}

	persister := &store.TemplatePersister{Store: frames, Template: template, Ctx: ctx}
	if err := c.Persist(persister); err != nil {
		log.Fatalf("Persist failed: %v", err)
	}
	fmt.Println(persister.LastRecord.FrameID)
}

func runGet(cfg *config.Config, schema *types.Schema, template, frameID, outFile string) {
	if template == "" || frameID == "" {
		log.Fatalf("-template and -frame are required for get")
	}

	frames, catalog := openStore(cfg)
	defer catalog.Close()

	raw, err := frames.Load(context.Background(), template, frameID)
	if err != nil {
		log.Fatalf("Failed to load frame: %v", err)
	}

	// Stored data is never trusted as pre-validated.
	c := container.New(schema, nil)
	if err := c.Load(raw); err != nil {
		log.Fatalf("Failed to load frame into container: %v", err)
	}
	if err := c.Validate(); err != nil {
		log.Fatalf("Stored frame failed validation: %v", err)
	}
	validated, err := c.Export()
	if err != nil {
		log.Fatalf("Export failed: %v", err)
	}
	writeTable(validated, outFile)
}
