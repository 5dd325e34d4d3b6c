package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/felixgeelhaar/subledger/adapter/cli"
	"github.com/felixgeelhaar/subledger/internal/app"
	"github.com/felixgeelhaar/subledger/pkg/config"
	"github.com/felixgeelhaar/subledger/pkg/observability"
)

func main() {
	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		cancel()
	}()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.LoggerFromEnv()
	cli.SetLogger(logger)

	container, err := app.NewContainer(ctx, cfg, logger)
	if err != nil {
		if cfg.IsDevelopment() {
			// In development, allow the CLI to run without storage so
			// version and help still work.
			logger.Warn("failed to initialize container, running in limited mode", "error", err)
			cli.SetApp(nil)
		} else {
			logger.Error("failed to initialize container", "error", err)
			os.Exit(1)
		}
	} else {
		defer container.Close()
		cli.SetApp(cli.NewApp(container.LedgerService, container.LedgerService.Owner()))
	}

	// Execute CLI
	cli.Execute()
}
