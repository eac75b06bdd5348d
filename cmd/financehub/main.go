package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"financehub/internal/amqp"
	"financehub/internal/cache"
	"financehub/internal/cli"
	"financehub/internal/config"
	apphttp "financehub/internal/http"
	"financehub/internal/ledger"
	"financehub/internal/log"
	"financehub/internal/middleware/ratelimit"
	"financehub/internal/services"

	"golang.org/x/sync/errgroup"
)

const cacheCleanupInterval = time.Minute

func main() {
	cli.LoadEnvFile()

	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger := cli.SetupLogger(cfg, os.Stdout)

	if err := run(cfg, logger); err != nil {
		logger.Error("financehub stopped", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}

func run(cfg *config.Config, logger *log.Logger) error {
	ctx, stop := cli.SignalContext(context.Background(), logger)
	defer stop()

	backend, err := cli.OpenBackend(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer backend.Close()

	// The change feed is optional: without a broker every device is standalone.
	var (
		publisher ledger.ChangePublisher
		feed      *amqp.Client
	)
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, cfg.UserID, cfg.DeviceID, logger)
		if err != nil {
			logger.Warn("Change feed unavailable, continuing without it", log.FieldError, err)
		} else {
			defer client.Close()
			publisher, feed = client, client
		}
	} else {
		logger.Info("AMQP disabled, changes stay on this device")
	}

	coord, err := cli.NewLedger(ctx, cfg, backend, publisher, logger)
	if err != nil {
		return err
	}
	// Runs before the feed client and the database close so background
	// audit and publish writes finish first.
	defer coord.Close()

	dashCache := cache.NewLRUCache[*services.Dashboard](cfg.DashboardCacheSize, cfg.DashboardCacheTTL)
	caches := cache.NewManager(logger)
	caches.Register(dashCache)

	limiter := ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: cfg.RateLimitPerMinute})
	recurring := services.NewRecurringProcessor(coord, services.RecurringConfig{
		Interval:   cfg.RecurringInterval,
		MaxCatchUp: cfg.RecurringMaxCatchUp,
	}, logger)

	deps := apphttp.Dependencies{
		Ledger:    coord,
		Dashboard: services.NewDashboardService(coord, dashCache, logger),
		Storage:   backend,
		Limiter:   limiter,
		Logger:    logger,

		TrustedProxies: cfg.TrustedProxies,
	}
	if backend.SQLite != nil {
		deps.Reports = backend.SQLite
	}
	var feedProcessor *services.FeedProcessor
	if feed != nil {
		feedProcessor = services.NewFeedProcessor(coord.Store(), cfg.UserID, cfg.DeviceID, logger)
		deps.FeedStats = feedProcessor.Stats
	}
	srv := apphttp.NewServer(":"+cfg.Port, cfg.UserID, deps)

	logger.Info("Starting financehub",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		log.FieldUserID, cfg.UserID,
		"device_id", cfg.DeviceID)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Run(gctx) })
	if cfg.RecurringEnabled() {
		g.Go(func() error { return recurring.Run(gctx) })
	} else {
		logger.Info("Recurring posting disabled, expecting a recurring-worker")
	}
	g.Go(func() error { return caches.Run(gctx, cacheCleanupInterval) })
	g.Go(func() error { return limiter.Run(gctx) })
	if feedProcessor != nil {
		g.Go(func() error { return feedProcessor.Run(gctx, feed) })
	}
	return g.Wait()
}
