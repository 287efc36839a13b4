package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alejandrodnm/tacbot/config"
	"github.com/alejandrodnm/tacbot/internal/adapters/notify"
	"github.com/alejandrodnm/tacbot/internal/adapters/storage"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	games := flag.Int("games", 1, "number of games to play")
	parallel := flag.Int("parallel", 1, "games played at the same time")
	dryRun := flag.Bool("dry-run", false, "keep price history in memory only")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	fast := flag.Bool("fast", false, "ignore tick_ms and play as fast as possible")
	table := flag.Bool("table", false, "print a full table per game (default: compact 1-line)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}

	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	if *fast {
		cfg.Sim.TickMillis = 0
	}
	if *dryRun {
		cfg.Storage.DSN = ":memory:"
	}
	setupLogger(cfg.Log)

	slog.Info("tacbot starting",
		"config", *configPath,
		"games", *games,
		"parallel", *parallel,
		"tick", cfg.TickInterval(),
		"seed", cfg.Sim.Seed,
		"dsn", cfg.Storage.DSN,
	)

	store, err := storage.NewHistoryStore(cfg.Storage.DSN)
	if err != nil {
		slog.Error("failed to open storage", "err", err, "dsn", cfg.Storage.DSN)
		os.Exit(1)
	}
	defer store.Close()

	reporter := notify.NewConsole(*table)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	p := newPlayer(cfg, store, reporter)
	summaries, err := p.playAll(ctx, *games, *parallel)
	reporter.PrintTotals(summaries)
	if err != nil {
		slog.Error("tacbot exited with error", "err", err)
		os.Exit(1)
	}

	slog.Info("tacbot stopped cleanly", "games", len(summaries))
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
