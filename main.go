package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"hotelimages/config"
	"hotelimages/database"
	"hotelimages/imageprocessor"
	"hotelimages/imageprocessor/vipscodec"
	"hotelimages/importer"
	"hotelimages/logging"
	"hotelimages/manifest"
	"hotelimages/optimizer"
	"hotelimages/signalhandler"
	"hotelimages/utils"
	"hotelimages/watcher"
)

// Exit codes
const (
	exitOK      = 0
	exitFatal   = 1
	exitPartial = 2
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(argv []string) int {
	// Parse command line arguments into a map
	args := utils.ParseArguments(argv)

	command, hasCommand := args["command"]
	if !hasCommand {
		utils.PrintUsage()
		return exitFatal
	}

	// Set default database path
	dbPath := utils.GetDefaultDatabasePath()
	if customDB, ok := args["database"]; ok && customDB != "" {
		dbPath = customDB
	} else if customDB, ok := args["db"]; ok && customDB != "" {
		// Allow --db as an alias for --database
		dbPath = customDB
	}

	// Setup debug logging if enabled
	debugMode := false
	if _, ok := args["debug"]; ok {
		debugMode = true
		logPath := "image-pipeline.log"
		if customLogPath, ok := args["logfile"]; ok && customLogPath != "" {
			logPath = customLogPath
		}
		if err := logging.SetupLogger(logPath); err != nil {
			fmt.Printf("Warning: Failed to setup logging: %v\n", err)
		} else {
			fmt.Printf("Debug mode enabled. Logging to: %s\n", logPath)
			defer logging.CloseLogger()
		}
	}

	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		fmt.Printf("Error: invalid configuration: %v\n", err)
		return exitFatal
	}

	ctx, stop := signalhandler.SetupHandler(context.Background())
	defer stop()

	switch command {
	case "import":
		return handleImportCommand(ctx, args, cfg)
	case "optimize":
		return handleOptimizeCommand(ctx, args, cfg, dbPath, debugMode)
	case "placeholders":
		return handlePlaceholdersCommand(cfg)
	case "lookup":
		return handleLookupCommand(args, cfg)
	case "report":
		return handleReportCommand(args, dbPath)
	default:
		fmt.Printf("Unknown command: %s\n", command)
		utils.PrintUsage()
		return exitFatal
	}
}

func handleImportCommand(ctx context.Context, args map[string]string, cfg *config.Config) int {
	var mapping *config.Mapping
	var err error
	if mappingPath, ok := args["mapping"]; ok && mappingPath != "" {
		mapping, err = config.LoadMapping(mappingPath)
	} else {
		mapping, err = config.DefaultMapping()
	}
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return exitFatal
	}

	result, err := importer.New(cfg.Import, mapping).Run(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			fmt.Println("\nImport interrupted.")
		} else {
			fmt.Printf("Error: %v\n", err)
		}
		return exitFatal
	}
	if result.Failed > 0 {
		return exitPartial
	}
	return exitOK
}

func handleOptimizeCommand(ctx context.Context, args map[string]string, cfg *config.Config, dbPath string, debugMode bool) int {
	workers := signalhandler.GetOptimalProcs()
	if value, ok := args["workers"]; ok {
		n, err := utils.ParsePositiveInt("workers", value, workers)
		if err != nil {
			fmt.Printf("Warning: %v\n", err)
		}
		workers = n
	}

	vipscodec.Startup(0)
	defer vipscodec.Shutdown()
	encoder := vipscodec.New()

	registry := imageprocessor.NewProberRegistry("vips", encoder)
	proberName := args["prober"]
	if strings.EqualFold(proberName, "exiftool") {
		registry.RegisterExiftool()
	}
	prober, err := registry.GetProber(proberName)
	if err != nil {
		fmt.Printf("Warning: %v (available: %s)\n", err, strings.Join(registry.Names(), ", "))
	}
	if closer, ok := prober.(io.Closer); ok {
		defer closer.Close()
	}

	db := openLedger(dbPath)
	if db != nil {
		defer db.Close()
	}

	opt := optimizer.New(cfg, imageprocessor.WithProber(prober, encoder), optimizer.Options{
		Workers:   workers,
		DebugMode: debugMode,
	})

	session := &optimizeSession{
		run:    opt.Run,
		record: func(report *optimizer.Report) { recordRun(db, report) },
	}

	if err := session.runOnce(ctx); err != nil {
		return fatalRunError(err)
	}

	if _, watch := args["watch"]; watch {
		if err := os.MkdirAll(cfg.SourcePath(), 0755); err != nil {
			fmt.Printf("Error: %v\n", err)
			return exitFatal
		}
		w, err := watcher.New(cfg.SourcePath(), cfg.SupportedExtensions, session.runOnce)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			return exitFatal
		}
		fmt.Printf("\nWatching %s for changes (Ctrl+C to stop)...\n", cfg.SourcePath())
		if err := w.Watch(ctx); err != nil {
			fmt.Printf("Error: %v\n", err)
			return exitFatal
		}
		fmt.Println("Watch stopped.")
	}

	return session.exitCode()
}

// optimizeSession tracks the outcome of the most recent optimizer run so that
// a watch loop stopped mid-run exits like an interrupted single run.
type optimizeSession struct {
	run    func(context.Context) (*optimizer.Report, error)
	record func(*optimizer.Report)

	last        *optimizer.Report
	interrupted bool
}

func (s *optimizeSession) runOnce(ctx context.Context) error {
	report, err := s.run(ctx)
	if err != nil {
		s.interrupted = ctx.Err() != nil
		return err
	}
	s.interrupted = false
	s.last = report
	if s.record != nil {
		s.record(report)
	}
	return nil
}

func (s *optimizeSession) exitCode() int {
	switch {
	case s.interrupted:
		fmt.Println("Optimization interrupted, manifest not written.")
		return exitFatal
	case s.last != nil && s.last.Failed > 0:
		return exitPartial
	default:
		return exitOK
	}
}

func fatalRunError(err error) int {
	if errors.Is(err, context.Canceled) {
		fmt.Println("\nOptimization interrupted, manifest not written.")
	} else {
		fmt.Printf("Error: %v\n", err)
	}
	return exitFatal
}

// openLedger opens the run ledger. Failures only disable run history.
func openLedger(dbPath string) *sql.DB {
	const maxRetries = 3
	var err error
	for i := 0; i < maxRetries; i++ {
		var db *sql.DB
		db, err = database.InitDatabase(dbPath)
		if err == nil {
			return db
		}
		if i < maxRetries-1 {
			logging.LogWarning("Error initializing ledger (attempt %d/%d): %v - retrying...", i+1, maxRetries, err)
			time.Sleep(time.Second * time.Duration(i+1))
		}
	}
	fmt.Printf("Warning: run ledger unavailable: %v\n", err)
	return nil
}

// recordRun stores a finished run and prints how it compares to the previous
// one
func recordRun(db *sql.DB, report *optimizer.Report) {
	if db == nil {
		return
	}

	prev, err := database.LastRun(db, "")
	if err != nil {
		logging.LogWarning("Cannot read previous run: %v", err)
	}

	id, err := database.RecordRun(db, report.RunRecord(database.NewRunID()))
	if err != nil {
		fmt.Printf("Warning: failed to record run: %v\n", err)
		return
	}
	logging.DebugLog("Recorded run %s", id)

	if prev != nil {
		fmt.Printf("Compared to previous run (%s): WebP %s, AVIF %s\n",
			prev.FinishedAt.Local().Format(time.DateTime),
			signedBytes(report.TotalWebp-prev.TotalWebp),
			signedBytes(report.TotalAvif-prev.TotalAvif))
	}
}

func signedBytes(delta int64) string {
	if delta < 0 {
		return "-" + utils.FormatBytes(-delta)
	}
	return "+" + utils.FormatBytes(delta)
}

func handlePlaceholdersCommand(cfg *config.Config) int {
	failed := 0
	for _, p := range cfg.Placeholders {
		out := filepath.Join(cfg.SourcePath(), filepath.FromSlash(p.Name))
		err := imageprocessor.GeneratePlaceholder(out, imageprocessor.PlaceholderOptions{
			Width:   p.Width,
			Height:  p.Height,
			Color:   p.Color,
			Label:   p.Label,
			Quality: 90,
		})
		if err != nil {
			failed++
			logging.LogError("Failed to create placeholder %s: %v", p.Name, err)
			fmt.Printf("  Failed to create %s: %v\n", p.Name, err)
			continue
		}
		fmt.Printf("  Created: %s (%dx%d)\n", p.Name, p.Width, p.Height)
	}

	fmt.Printf("\nPlaceholders complete. Success: %d, Errors: %d\n", len(cfg.Placeholders)-failed, failed)
	if failed > 0 {
		return exitPartial
	}
	return exitOK
}

func handleLookupCommand(args map[string]string, cfg *config.Config) int {
	_, list := args["list"]
	key := args["key"]
	if !list && (key == "" || key == "true") {
		fmt.Println("Error: Missing manifest key (use --key=REL_PATH or --list)")
		return exitFatal
	}

	m, err := manifest.Load(cfg.ManifestFile())
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return exitFatal
	}

	if list {
		printManifestKeys(os.Stdout, m)
		return exitOK
	}

	data, err := json.MarshalIndent(m.Resolve(key, cfg.SourcePublicPrefix()), "", "  ")
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return exitFatal
	}
	fmt.Println(string(data))
	return exitOK
}

func printManifestKeys(w io.Writer, m manifest.Manifest) {
	for _, key := range m.Keys() {
		fmt.Fprintln(w, key)
	}
	fmt.Fprintf(w, "%d entries\n", len(m))
}

func handleReportCommand(args map[string]string, dbPath string) int {
	limit := 10
	if value, ok := args["limit"]; ok {
		n, err := utils.ParsePositiveInt("limit", value, limit)
		if err != nil {
			fmt.Printf("Warning: %v\n", err)
		}
		limit = n
	}

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		fmt.Printf("Ledger does not exist: %s. Run optimize first.\n", dbPath)
		return exitFatal
	}

	db, err := database.OpenDatabase(dbPath)
	if err != nil {
		fmt.Printf("Error opening ledger: %v\n", err)
		return exitFatal
	}
	defer db.Close()

	runs, err := database.ListRuns(db, limit)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return exitFatal
	}

	if len(runs) == 0 {
		fmt.Println("No runs recorded.")
		return exitOK
	}

	fmt.Printf("Last %d runs:\n", len(runs))
	for i, r := range runs {
		fmt.Printf("%d. %s  (%s)\n", i+1, r.FinishedAt.Local().Format(time.DateTime), r.ID)
		fmt.Printf("   Processed: %d, Failed: %d, Duration: %v\n",
			r.Processed, r.Failed, r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond))
		fmt.Printf("   Original: %s, WebP: %s (%.1f%% reduction), AVIF: %s (%.1f%% reduction)\n",
			utils.FormatBytes(r.TotalOriginal),
			utils.FormatBytes(r.TotalWebp), optimizer.Reduction(r.TotalOriginal, r.TotalWebp),
			utils.FormatBytes(r.TotalAvif), optimizer.Reduction(r.TotalOriginal, r.TotalAvif))
	}

	if stats, err := database.GetLedgerStats(db); err == nil {
		fmt.Printf("\nSummary:\n")
		fmt.Printf("- Total runs: %d\n", stats.TotalRuns)
		fmt.Printf("- Failed images across runs: %d\n", stats.FailedImages)
		fmt.Printf("- Distinct source images: %d\n", stats.UniquePaths)
	}

	if images, err := database.RunImages(db, runs[0].ID); err == nil && runs[0].Failed > 0 {
		fmt.Printf("\nFailures in latest run:\n")
		for _, img := range images {
			if img.Error != "" {
				fmt.Printf("- %s: %s\n", img.Path, img.Error)
			}
		}
	}
	return exitOK
}
