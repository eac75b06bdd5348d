// recurring-worker posts due scheduled transactions without serving HTTP.
// It is meant for deployments where the API runs elsewhere against the same
// SQLite database with RECURRING_INTERVAL=0, so only one process posts.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"financehub/internal/amqp"
	"financehub/internal/cli"
	"financehub/internal/ledger"
	"financehub/internal/log"
	"financehub/internal/services"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cli.LoadEnvFile()

	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger := cli.SetupLogger(cfg, os.Stdout).WithComponent(log.ComponentRecurring)
	logger.Info("Starting recurring-worker")

	if cfg.DataBackend != "sqlite" {
		logger.Error("recurring-worker needs the sqlite backend", "backend", cfg.DataBackend)
		os.Exit(1)
	}
	if !cfg.RecurringEnabled() {
		logger.Error("recurring-worker needs a positive RECURRING_INTERVAL")
		os.Exit(1)
	}

	ctx, stop := cli.SignalContext(context.Background(), logger)
	defer stop()

	backend, err := cli.OpenBackend(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to open backend", log.FieldError, err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer backend.Close()

	// Posted occurrences are published so running servers merge them.
	var publisher ledger.ChangePublisher
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, cfg.UserID, cfg.DeviceID, logger)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, posting locally only", log.FieldError, err)
		} else {
			defer client.Close()
			publisher = client
		}
	}

	coord, err := cli.NewLedger(ctx, cfg, backend, publisher, logger)
	if err != nil {
		logger.Error("Failed to load ledger", log.FieldError, err)
		os.Exit(1)
	}
	defer coord.Close()

	processor := services.NewRecurringProcessor(coord, services.RecurringConfig{
		Interval:   cfg.RecurringInterval,
		MaxCatchUp: cfg.RecurringMaxCatchUp,
	}, logger)
	if err := processor.Start(ctx); err != nil {
		logger.Error("Failed to start recurring processor", log.FieldError, err)
		os.Exit(1)
	}

	<-ctx.Done()

	shutdownCtx, cancel := cli.ShutdownContext(shutdownTimeout)
	defer cancel()
	if err := processor.Stop(shutdownCtx); err != nil {
		logger.Warn("Shutdown timeout reached", log.FieldError, err)
		return
	}
	logger.Info("Recurring-worker shutdown complete")
}
