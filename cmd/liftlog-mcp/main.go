package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"github.com/mark3labs/mcp-go/server"

	"github.com/claude/liftlog/internal/config"
	"github.com/claude/liftlog/internal/export"
	liftlogmcp "github.com/claude/liftlog/internal/mcp"
	"github.com/claude/liftlog/internal/session"
	"github.com/claude/liftlog/internal/storage"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file (local mode)")
	remote := flag.String("remote", "", "base URL of a running liftlog server (remote mode)")
	apiKey := flag.String("api-key", "", "API key for the remote server")
	userID := flag.Int("user", 1, "user ID tools operate as")
	flag.Parse()

	// stdout carries the MCP protocol; all logging goes to stderr.
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	var ds liftlogmcp.DataSource
	if *remote != "" {
		ds = liftlogmcp.NewHTTPClient(*remote, *apiKey)
		log.Info("MCP server starting", "mode", "remote", "url", *remote)
	} else {
		cfg, err := config.Load(*configPath)
		if err != nil {
			log.Error("failed to load config", "error", err)
			os.Exit(1)
		}

		db, err := storage.New(context.Background(), cfg.Database.DSN())
		if err != nil {
			log.Error("failed to connect database", "error", err)
			os.Exit(1)
		}
		defer db.Close()

		// The sink mirror belongs to the main server; tool calls here
		// never export.
		ds = session.New(db, db, db, export.Noop{}, session.Options{
			Warmup:           cfg.Warmup.WarmupSettings(),
			Strategies:       cfg.Warmup.WarmupStrategies(),
			NoteMaxLen:       cfg.Session.NoteMaxLen,
			EnergyKcalPerMin: cfg.Session.EnergyKcalPerMin,
		}, log)
		log.Info("MCP server starting", "mode", "local", "database", cfg.Database.Name)
	}

	s := liftlogmcp.New(ds, Version, log)

	err := server.ServeStdio(s, server.WithStdioContextFunc(func(ctx context.Context) context.Context {
		return liftlogmcp.WithUserID(ctx, *userID)
	}))
	if err != nil {
		log.Error("MCP server error", "error", err)
		os.Exit(1)
	}
}
