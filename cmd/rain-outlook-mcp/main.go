package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/miyamo2/qilin"

	"github.com/i474232898/rain-outlook/internal/app"
	"github.com/i474232898/rain-outlook/internal/config"
	"github.com/i474232898/rain-outlook/internal/logging"
	"github.com/i474232898/rain-outlook/internal/mcp"
	"github.com/i474232898/rain-outlook/internal/scheduler"
)

const appName = "rain-outlook-mcp"

// Default version is "dev" if not set with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	// stdout carries the protocol.
	log := logging.NewStderr(cfg, version, appName)
	slog.SetDefault(log)

	service, cleanup, err := app.Build(cfg, log)
	if err != nil {
		log.Error("failed to assemble service", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.InitialLoad(ctx, cfg, service, log); err != nil {
		log.Error("failed to load history", "error", err)
		cleanup()
		os.Exit(1)
	}

	sched := scheduler.New(cfg.ReloadInterval, service, log)
	if err := sched.Start(); err != nil {
		log.Error("failed to start scheduler", "error", err)
		cleanup()
		os.Exit(1)
	}
	defer sched.Stop()

	q := qilin.New("rain-outlook", qilin.WithVersion(version))
	mcp.NewTools(service, cfg.DefaultLocation).Register(q)

	log.Info("mcp serving on stdio")
	if err := q.Start(qilin.StartWithContext(ctx)); err != nil {
		log.Error("mcp server stopped", "error", err)
	}
}
