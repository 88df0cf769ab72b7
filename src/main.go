package main

import (
	// stdlib
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	// internal
	"github.com/Robogera/trackassign/pkg/config"
	"github.com/Robogera/trackassign/pkg/enums"
	"github.com/Robogera/trackassign/pkg/rpath"
	"github.com/Robogera/trackassign/pkg/tracker"

	// external
	"github.com/lmittmann/tint"
	"golang.org/x/sync/errgroup"
)

const (
	default_cfg_path string = "../cfg/config.default.toml"
)

var cfg_path string
var create_default bool

func init() {
	flag.StringVar(
		&cfg_path, "config",
		default_cfg_path,
		"Path to config file, relative to the executable unless absolute")
	flag.BoolVar(
		&create_default, "create-default", false,
		"Write the default config to -config and exit")
}

func logLevel(value string) (slog.Level, bool) {
	level := enums.LoggingLevels.Parse(value)
	if level == nil {
		return slog.LevelError, false
	}
	switch *level {
	case enums.LoggingLevelDebug:
		return slog.LevelDebug, true
	case enums.LoggingLevelInfo:
		return slog.LevelInfo, true
	case enums.LoggingLevelWarn:
		return slog.LevelWarn, true
	default:
		return slog.LevelError, true
	}
}

func main() {

	// Configuration init

	flag.Parse()

	exe_dir, err := rpath.ExecutableDir()
	if err != nil {
		slog.Error("Can't find the executable's location", "error", err)
		os.Exit(1)
	}
	full_cfg_path := rpath.Convert(exe_dir, cfg_path)

	if create_default {
		if err := config.CreateDefault(full_cfg_path); err != nil {
			slog.Error("Can't create default config", "path", full_cfg_path, "error", err)
			os.Exit(1)
		}
		slog.Info("Default config created", "path", full_cfg_path)
		return
	}

	cfg, err := config.Unmarshal(full_cfg_path)
	if err != nil {
		slog.Error("Config file not loaded. Shutting down...", "provided path", full_cfg_path, "error", err)
		os.Exit(1)
	}

	log_level, ok := logLevel(cfg.Logging.Level)
	if !ok {
		slog.Warn(
			"No valid logging level provided. Defaulting to LevelError",
			"provided value", cfg.Logging.Level)
	}

	// stdout may carry the snapshots
	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      log_level,
		TimeFormat: time.RFC3339,
	}))

	tr, err := tracker.New(&cfg.Tracker, logger.With("coroutine", "tracker"))
	if err != nil {
		logger.Error("Can't build tracker", "error", err)
		os.Exit(1)
	}

	paths := Paths{
		Input:     rpath.NextTo(full_cfg_path, cfg.Input.Path),
		Snapshots: rpath.NextTo(full_cfg_path, cfg.Output.SnapshotPath),
		Tracks:    rpath.NextTo(full_cfg_path, cfg.Output.TracksPath),
	}

	logger.Info("Starting...", "input", paths.Input)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	eg, child_ctx := errgroup.WithContext(ctx)

	stats_chan := make(chan Statistics, 16)

	eg.Go(func() error {
		defer cancel()
		return pipeline(child_ctx, logger, cfg, paths, tr, stats_chan)
	})

	eg.Go(func() error {
		return stat(child_ctx, logger, stats_chan, cfg.Logging.StatPeriodSec)
	})

	eg.Go(func() error {
		return control(child_ctx, logger)
	})

	err = eg.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Stopped with error", "error", err)
		os.Exit(1)
	}

	logger.Info("Stopped")
}

func control(ctx context.Context, logger *slog.Logger) error {
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt,
		os.Interrupt,
		syscall.SIGTERM,
		syscall.SIGINT)
	defer signal.Stop(interrupt)

	select {
	case <-ctx.Done():
		logger.Debug("Control cancelled by context")
		return context.Canceled
	case <-interrupt:
		logger.Info("Cancelled by user")
		return ERR_INTERRUPTED_BY_USER
	}
}
