// Command fleetcore runs the coordination core as a single long-lived
// process: the mission reminder loop, the monthly order cycle engine, and
// the profile sync queue, each a cooperative task supervised by one
// errgroup. SIGINT/SIGTERM cancels the shared context; every loop persists
// its state before exiting.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"fleetcore/internal/config"
	"fleetcore/internal/cycle"
	"fleetcore/internal/external"
	"fleetcore/internal/profilesync"
	"fleetcore/internal/scheduler"
	"fleetcore/internal/store"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fleetcore: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := newLogger(cfg.App.LogLevel)
	slog.SetDefault(logger)

	st, err := store.New(cfg.Store.DataDir, logger.With("component", "store"))
	if err != nil {
		return err
	}

	httpClient := &http.Client{Timeout: cfg.Bridge.HTTPTimeout}

	sheetClient := external.NewBaseClient(httpClient, "sheet-bridge",
		external.DefaultRetryPolicy(), cfg.Bridge.UserAgent)
	sheets, err := external.NewSheetStore(sheetClient, cfg.Bridge.SheetBaseURL)
	if err != nil {
		return err
	}

	webhookClient := external.NewBaseClient(httpClient, "webhooks",
		external.DefaultRetryPolicy(), cfg.Bridge.UserAgent)
	notifier := external.NewWebhookNotifier(webhookClient,
		cfg.Bridge.MissionWebhookURL, cfg.Bridge.OrderWebhookURL)

	queue := profilesync.New(profilesync.Config{
		Writer:        sheets,
		Roles:         sheets,
		Logger:        logger.With("component", "profilesync"),
		FlushInterval: cfg.Sync.FlushInterval,
		ChunkSize:     cfg.Sync.ChunkSize,
		ChunkPacing:   cfg.Sync.ChunkPacing,
	})

	missionLoop, err := scheduler.New(scheduler.Config{
		Store:        st,
		Notifier:     notifier,
		Events:       queue,
		Logger:       logger.With("component", "scheduler"),
		TickInterval: cfg.Scheduler.TickInterval,
	})
	if err != nil {
		return err
	}

	library, err := cycle.LoadLibrary(cfg.Cycle.TemplatePath)
	if err != nil {
		return err
	}
	engine, err := cycle.New(cycle.Config{
		Store:            st,
		Library:          library,
		Notifier:         notifier,
		Logger:           logger.With("component", "cycle"),
		GoalThreshold:    cfg.Cycle.GoalThreshold,
		ExpiredRetention: cfg.Cycle.ExpiredRetention,
		Interval:         cfg.Cycle.Interval,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return missionLoop.Run(ctx) })
	g.Go(func() error { return engine.Run(ctx) })
	g.Go(func() error { return queue.Run(ctx) })

	logger.Info("fleetcore started",
		"env", cfg.App.Environment,
		"data_dir", cfg.Store.DataDir,
	)

	return g.Wait()
}

func newLogger(level string) *slog.Logger {
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
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}
