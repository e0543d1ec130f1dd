package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/spf13/pflag"

	"github.com/memodeck/memodeck/internal/config"
	"github.com/memodeck/memodeck/internal/ingest"
	"github.com/memodeck/memodeck/internal/scheduler"
	"github.com/memodeck/memodeck/internal/storage"
	"github.com/memodeck/memodeck/internal/web"
)

func main() {
	defaults := config.Default()

	flags := pflag.NewFlagSet("memodeck", pflag.ExitOnError)
	configPath := flags.String("config", "memodeck.yml", "path to the YAML config file")
	// Flag defaults must match config.Default so that unset flags do not
	// override file or environment values.
	flags.String("db", defaults.DBPath, "path to the SQLite collection file")
	flags.String("listen", defaults.Listen, "web UI listen address")
	flags.Int("rollover-hour", defaults.RolloverHour, "hour at which a new study day begins")
	flags.Int("look-ahead-mins", defaults.LookAheadMins, "learn-ahead window in minutes")
	flags.String("log-level", defaults.LogLevel, "log level: debug, info, warn or error")

	runSync := flags.Bool("sync", false, "sync all sources and exit")
	addSource := flags.String("add-source", "", "register a note source (path or git URL) and exit")
	reposDir := flags.String("repos-dir", "repos", "directory for mirrored git sources")

	if err := flags.Parse(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath, flags)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	setupLogging(cfg.LogLevel)

	db, err := storage.Open(cfg.DBPath)
	if err != nil {
		slog.Error("failed to open database", "path", cfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("database opened", "path", cfg.DBPath)

	switch {
	case *addSource != "":
		if err := registerSource(db, *addSource); err != nil {
			slog.Error("failed to add source", "path", *addSource, "error", err)
			os.Exit(1)
		}

	case *runSync:
		if err := ingest.Run(db, *reposDir); err != nil {
			slog.Error("sync failed", "error", err)
			os.Exit(1)
		}

	default:
		sched := scheduler.New(db, scheduler.Options{
			Created:      db.Created(),
			RolloverHour: cfg.RolloverHour,
			LookAhead:    cfg.LookAhead(),
		})
		srv, err := web.NewServer(db, sched, *reposDir)
		if err != nil {
			slog.Error("failed to create server", "error", err)
			os.Exit(1)
		}
		slog.Info("listening", "addr", cfg.Listen)
		if err := http.ListenAndServe(cfg.Listen, srv); err != nil {
			slog.Error("server stopped", "error", err)
			os.Exit(1)
		}
	}
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))
}

func registerSource(db *storage.DB, path string) error {
	existing, err := db.FindSourceByPath(path)
	if err != nil {
		return err
	}
	if existing != nil {
		slog.Info("source already registered", "path", path, "id", existing.ID)
		return nil
	}
	id, err := db.InsertSource(path)
	if err != nil {
		return err
	}
	slog.Info("source added", "path", path, "id", id)
	return nil
}
