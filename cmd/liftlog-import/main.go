package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/claude/liftlog/internal/config"
	"github.com/claude/liftlog/internal/importer"
	"github.com/claude/liftlog/internal/storage"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	logPath := flag.String("path", "", "path to a strength log export file or directory (required)")
	userID := flag.Int("user", 1, "user ID to import sessions for")
	stateDir := flag.String("state-dir", ".liftlog-import", "directory for the import resume state")
	dryRun := flag.Bool("dry-run", false, "report counts without inserting into database")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if *logPath == "" {
		fmt.Fprintf(os.Stderr, "Usage: liftlog-import -config config.yaml -path /path/to/export.txt [-user 1] [-dry-run]\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	info, err := os.Stat(*logPath)
	if err != nil {
		log.Error("export path does not exist", "path", *logPath, "error", err)
		os.Exit(1)
	}

	// Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	dsn := cfg.Database.DSN()

	// Run migrations
	if err := storage.RunMigrations(dsn, "migrations"); err != nil {
		log.Error("migration failed", "error", err)
		os.Exit(1)
	}
	log.Info("migrations applied")

	ctx := context.Background()

	if *dryRun {
		log.Info("DRY RUN mode: no data will be written to the database")
	}

	// Connect database
	db, err := storage.New(ctx, dsn)
	if err != nil {
		log.Error("failed to connect database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	log.Info("database connected")

	// Resume state keeps re-runs from re-reading files already imported.
	state, err := importer.OpenStateDB(*stateDir)
	if err != nil {
		log.Error("failed to open import state", "dir", *stateDir, "error", err)
		os.Exit(1)
	}
	defer state.Close()

	// Run import
	imp := importer.New(db, log, *dryRun)
	if info.IsDir() {
		_, err = imp.ImportDir(ctx, state, *logPath, *userID)
	} else {
		err = imp.ImportFile(ctx, state, *logPath, *userID)
	}
	if err != nil {
		log.Error("import failed", "error", err)
		printStats(log, imp.Stats())
		os.Exit(1)
	}

	printStats(log, imp.Stats())
	log.Info("import complete")
}

func printStats(log *slog.Logger, stats *importer.Result) {
	log.Info("import stats",
		"files_processed", stats.FilesProcessed,
		"files_skipped", stats.FilesSkipped,
		"sessions_parsed", stats.SessionsParsed,
		"sessions_imported", stats.SessionsImported,
		"sessions_skipped", stats.SessionsSkipped,
		"sets_imported", stats.SetsImported,
		"exercises_created", stats.ExercisesCreated,
	)
}
