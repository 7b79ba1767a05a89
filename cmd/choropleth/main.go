package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/spektr-org/choropleth/config"
	"github.com/spektr-org/choropleth/engine"
	"github.com/spektr-org/choropleth/helpers"
	"github.com/spektr-org/choropleth/schema"
	"github.com/spektr-org/choropleth/server"
	"github.com/spektr-org/choropleth/store"
)

// ============================================================================
// CHOROPLETH CLI — Region indicator maps from CSV / JSON estimates
// ============================================================================

const version = "0.3.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]

	switch command {
	case "discover":
		runDiscover(os.Args[2:])
	case "indicators":
		runIndicators(os.Args[2:])
	case "load":
		runLoad(os.Args[2:])
	case "server":
		runServer(os.Args[2:])
	case "version", "--version", "-v":
		fmt.Printf("choropleth %s\n", version)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `Usage: choropleth <command> [options]

Commands:
  discover      Print filter options and indicators detected in a data file
  indicators    Colour every area for one indicator and selection
  load          Store a data file (and metadata) in the data directory
  server        Start the HTTP API over the data directory
  version       Print version and exit

Examples:
  choropleth discover --file survey.csv --type survey --format pretty
  choropleth indicators --file survey.csv --type survey --indicator prevalence \
      --sex female --age Y015_049 --survey MWI2016PHIA --region MWI_1_1 --format csv
  choropleth load --data-dir ./data --type survey --file survey.csv --metadata metadata.json
  choropleth server --data-dir ./data --port 8080`)
}

// ── Shared flags ──────────────────────────────────────────────────────────

type logFlags struct {
	level  string
	format string
}

func addLogFlags(flags *pflag.FlagSet) *logFlags {
	lf := &logFlags{}
	flags.StringVar(&lf.level, "log-level", "info", "Log level: debug, info, warn, error")
	flags.StringVar(&lf.format, "log-format", "text", "Log format: text, json")
	return lf
}

func (lf *logFlags) setup() *slog.Logger {
	conf := config.Config{LogLevel: lf.level}
	opts := &slog.HandlerOptions{Level: conf.SlogLevel()}
	var handler slog.Handler
	if lf.format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

func parseDataTypeFlag(value string) engine.DataType {
	dt, err := engine.ParseDataType(value)
	if err != nil {
		fatalf("--type: %v (want one of survey, program, anc, output)", err)
	}
	return dt
}

func readRows(path string) []engine.Row {
	if path == "" {
		fatalf("--file is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		fatalf("Failed to read file: %v", err)
	}
	rows, err := helpers.ParseRows(path, data)
	if err != nil {
		fatalf("Failed to parse rows: %v", err)
	}
	slog.Info("parsed rows", "file", path, "rows", len(rows))
	return rows
}

func readMetadata(path string) *schema.Metadata {
	f, err := os.Open(path)
	if err != nil {
		fatalf("Failed to open metadata: %v", err)
	}
	defer f.Close()
	m, err := schema.LoadMetadata(f)
	if err != nil {
		fatalf("Invalid metadata: %v", err)
	}
	return m
}

func outputWriter(path string) (io.Writer, func()) {
	if path == "" {
		return os.Stdout, func() {}
	}
	f, err := os.Create(path)
	if err != nil {
		fatalf("Failed to create output file: %v", err)
	}
	return f, func() { f.Close() }
}

// ── discover ──────────────────────────────────────────────────────────────

func runDiscover(args []string) {
	flags := pflag.NewFlagSet("discover", pflag.ExitOnError)
	var filePath, dataType, name, format, outFile string
	flags.StringVarP(&filePath, "file", "f", "", "CSV or JSON data file (required)")
	flags.StringVarP(&dataType, "type", "t", "", "Data type: survey, program, anc, output (required)")
	flags.StringVar(&name, "name", "", "Metadata name")
	flags.StringVar(&format, "format", "pretty", "Output format: json, pretty")
	flags.StringVarP(&outFile, "out", "o", "", "Write output to file instead of stdout")
	lf := addLogFlags(flags)
	flags.Parse(args)
	lf.setup()

	dt := parseDataTypeFlag(dataType)
	rows := readRows(filePath)

	opts := schema.DefaultDiscoverOptions()
	opts.Name = name
	meta, err := schema.Discover(engine.NewSliceView(rows), dt, opts)
	if err != nil {
		fatalf("Discovery failed: %v", err)
	}
	slog.Info("discovered metadata",
		"data_type", dt.String(),
		"indicators", len(meta.Indicators[dt]),
		"regions", len(meta.Regions))

	w, done := outputWriter(outFile)
	defer done()
	writeJSON(w, meta, format)
}

// ── indicators ────────────────────────────────────────────────────────────

type cliOutput struct {
	File   string         `json:"file"`
	Result *engine.Result `json:"result"`
}

func runIndicators(args []string) {
	flags := pflag.NewFlagSet("indicators", pflag.ExitOnError)
	var filePath, metaPath, dataType, indicator, format, outFile string
	var selected engine.SelectedFilters
	var legendSteps int
	flags.StringVarP(&filePath, "file", "f", "", "CSV or JSON data file (required)")
	flags.StringVarP(&metaPath, "metadata", "m", "", "metadata.json (default: auto-discover)")
	flags.StringVarP(&dataType, "type", "t", "", "Data type: survey, program, anc, output (required)")
	flags.StringVarP(&indicator, "indicator", "i", "", "Indicator id (required)")
	flags.StringVar(&selected.Sex, "sex", "", "Selected sex")
	flags.StringVar(&selected.Age, "age", "", "Selected age group id")
	flags.StringVar(&selected.Survey, "survey", "", "Selected survey id")
	flags.StringVar(&selected.Year, "year", "", "Selected year (carried in the selection, no rows are filtered by it)")
	flags.StringVar(&selected.Quarter, "quarter", "", "Selected quarter id")
	flags.StringSliceVar(&selected.Regions, "region", nil, "Selected region ids (repeat or comma separate)")
	flags.IntVar(&legendSteps, "legend-steps", 6, "Number of legend stops")
	flags.StringVar(&format, "format", "json", "Output format: json, pretty, text, csv")
	flags.StringVarP(&outFile, "out", "o", "", "Write output to file instead of stdout")
	lf := addLogFlags(flags)
	flags.Parse(args)
	logger := lf.setup()

	if indicator == "" {
		fatalf("--indicator is required")
	}
	dt := parseDataTypeFlag(dataType)
	rows := readRows(filePath)
	view := engine.NewSliceView(rows)

	var meta *schema.Metadata
	if metaPath != "" {
		meta = readMetadata(metaPath)
	}
	discovered, err := schema.Discover(view, dt)
	switch {
	case err != nil && meta == nil:
		fatalf("Discovery failed: %v", err)
	case err != nil:
		slog.Warn("discovery skipped", "err", err)
	case meta == nil:
		meta = discovered
	default:
		meta.Merge(discovered)
	}

	ind, err := meta.Indicator(dt, indicator)
	if err != nil {
		fatalf("%v", err)
	}

	result := engine.Execute(engine.Request{DataType: dt, Indicator: ind, Selected: selected}, view,
		engine.WithLogger(logger),
		engine.WithRegions(engine.FlattenOptions(meta.Regions)),
		engine.WithLegendSteps(legendSteps),
	)

	w, done := outputWriter(outFile)
	defer done()

	switch format {
	case "csv":
		writeCSV(w, result)
	case "text":
		fmt.Fprintln(w, result.Reply)
	default:
		writeJSON(w, cliOutput{File: filePath, Result: result}, format)
	}
}

// ── load ──────────────────────────────────────────────────────────────────

func runLoad(args []string) {
	flags := pflag.NewFlagSet("load", pflag.ExitOnError)
	var dataDir, dataType, filePath, metaPath string
	flags.StringVarP(&dataDir, "data-dir", "d", "", "Data directory holding choropleth.db (required)")
	flags.StringVarP(&dataType, "type", "t", "", "Data type of the file")
	flags.StringVarP(&filePath, "file", "f", "", "CSV or JSON data file")
	flags.StringVarP(&metaPath, "metadata", "m", "", "metadata.json to store")
	lf := addLogFlags(flags)
	flags.Parse(args)
	lf.setup()

	if dataDir == "" {
		fatalf("--data-dir is required")
	}
	if filePath == "" && metaPath == "" {
		fatalf("nothing to load: give --file and --type, or --metadata")
	}

	conf, err := config.Load(dataDir)
	if err != nil {
		fatalf("%v", err)
	}
	db, err := store.NewSQLiteDB(dataDir, false)
	if err != nil {
		fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	s := store.NewSQLiteStore(db, conf.CacheTTL())
	if err := s.Init(); err != nil {
		fatalf("%v", err)
	}

	ctx := context.Background()
	if metaPath != "" {
		if err := s.PutMetadata(ctx, readMetadata(metaPath)); err != nil {
			fatalf("Failed to store metadata: %v", err)
		}
		slog.Info("metadata stored", "file", metaPath)
	}
	if filePath != "" {
		dt := parseDataTypeFlag(dataType)
		if err := s.PutDataset(ctx, dt, readRows(filePath)); err != nil {
			fatalf("Failed to store dataset: %v", err)
		}
	}
}

// ── server ────────────────────────────────────────────────────────────────

func runServer(args []string) {
	flags := pflag.NewFlagSet("server", pflag.ExitOnError)
	var address, dataDir string
	var port int
	flags.StringVarP(&address, "address", "a", "localhost", "Server address to bind")
	flags.IntVarP(&port, "port", "p", 8080, "Server port to bind")
	flags.StringVarP(&dataDir, "data-dir", "d", "",
		"data directory to read config.json and choropleth.db")
	lf := addLogFlags(flags)
	flags.Parse(args)

	if dataDir == "" {
		slog.Error("--data-dir not provided, stopping")
		os.Exit(1)
	}
	conf, err := config.Load(dataDir)
	if err != nil {
		slog.Error("error while reading config.json", "err", err)
		os.Exit(1)
	}
	if flags.Changed("address") {
		conf.Address = address
	}
	if flags.Changed("port") {
		conf.Port = port
	}
	if !flags.Changed("log-level") {
		lf.level = conf.LogLevel
	}
	logger := lf.setup()

	db, err := store.NewSQLiteDB(dataDir, false)
	if err != nil {
		slog.Error("error while opening database", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	s := store.NewSQLiteStore(db, conf.CacheTTL())
	if err := s.Init(); err != nil {
		slog.Error("error while initializing DB", "err", err)
		os.Exit(1)
	}

	cs := server.NewChoroplethService(s, conf.CacheTTL(), conf.LegendSteps)
	e := server.NewEcho(server.NewChoroplethController(cs), conf, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := server.StartServer(ctx, e, conf); err != nil {
		slog.Error("server stopped", "err", err)
		os.Exit(1)
	}
}

// ============================================================================
// CSV OUTPUT — area table ready for Sheets/Excel
// ============================================================================

func writeCSV(w io.Writer, result *engine.Result) {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if result == nil || result.Table == nil {
		cw.Write([]string{"Result", "No data"})
		return
	}

	headers := make([]string, len(result.Table.Columns))
	for i, col := range result.Table.Columns {
		headers[i] = col.Label
	}
	cw.Write(headers)
	for _, row := range result.Table.Rows {
		cw.Write(row)
	}
}

// ============================================================================
// JSON OUTPUT
// ============================================================================

func writeJSON(w io.Writer, v any, format string) {
	var out []byte
	var err error

	if format == "pretty" {
		out, err = json.MarshalIndent(v, "", "  ")
	} else {
		out, err = json.Marshal(v)
	}

	if err != nil {
		fatalf("Failed to marshal output: %v", err)
	}
	fmt.Fprintln(w, string(out))
}

// ============================================================================
// HELPERS
// ============================================================================

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
