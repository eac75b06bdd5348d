// Package cli provides the initialization shared by cmd/financehub,
// cmd/recurring-worker and the financehubctl maintenance commands.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"financehub/internal/config"
	"financehub/internal/core"
	"financehub/internal/ledger"
	"financehub/internal/log"
	"financehub/internal/seed"
	"financehub/internal/storage"
	"financehub/internal/storage/memory"

	"github.com/joho/godotenv"
)

// SetupLogger builds the process logger from the configured level and
// format and installs it as slog's default.
func SetupLogger(cfg *config.Config, out io.Writer) *log.Logger {
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = slog.LevelInfo
	}
	if out == nil {
		out = os.Stdout
	}
	logger := log.New(log.Config{Level: level, Format: cfg.LogFormat, Output: out, Component: log.ComponentApp})
	slog.SetDefault(logger.Logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration from the environment and
// validates it.
func LoadAndValidateConfig() (*config.Config, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Backend is the opened persistence layer. Exactly one of SQLite and Memory
// is set.
type Backend struct {
	Persistence ledger.Persistence
	Audit       ledger.AuditSink
	SQLite      *storage.SQLiteRepository
	Memory      *memory.Store
	// Categories comes from the seed fixture; nil means the built-in set.
	Categories *core.CategoryRegistry
}

// OpenBackend opens the configured data backend. The memory backend is
// seeded from cfg.SeedFile when one is set.
func OpenBackend(ctx context.Context, cfg *config.Config, logger *log.Logger) (*Backend, error) {
	switch cfg.DataBackend {
	case "sqlite":
		repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath, logger)
		if err != nil {
			return nil, fmt.Errorf("open sqlite backend: %w", err)
		}
		return &Backend{Persistence: repo, Audit: repo, SQLite: repo}, nil
	case "memory":
		store := memory.New()
		if cfg.SeedFile != "" {
			fixture, err := LoadFixture(cfg.SeedFile)
			if err != nil {
				return nil, err
			}
			reg, err := fixture.Registry()
			if err != nil {
				return nil, err
			}
			records, err := fixture.Records(seed.Options{Categories: reg})
			if err != nil {
				return nil, err
			}
			if err := store.Seed(ctx, cfg.UserID, records); err != nil {
				return nil, err
			}
			logger.InfoContext(ctx, "Memory backend seeded", "seed", cfg.SeedFile, "records", len(records))
			return &Backend{Persistence: store, Audit: store, Memory: store, Categories: reg}, nil
		}
		return &Backend{Persistence: store, Audit: store, Memory: store}, nil
	}
	return nil, fmt.Errorf("unknown data backend %q", cfg.DataBackend)
}

// LoadFixture reads a fixture file; "demo" selects the built-in one.
func LoadFixture(path string) (*seed.Fixture, error) {
	if path == "demo" {
		return seed.Demo(), nil
	}
	return seed.LoadFile(path)
}

// Ping reports whether the backend is reachable. The memory backend always is.
func (b *Backend) Ping(ctx context.Context) error {
	if b.SQLite != nil {
		return b.SQLite.Ping(ctx)
	}
	return nil
}

// LoadAudit returns the persisted audit trail of a user.
func (b *Backend) LoadAudit(ctx context.Context, userID string) ([]core.AuditEntry, error) {
	if b.SQLite != nil {
		return b.SQLite.LoadAudit(ctx, userID)
	}
	return b.Memory.Audit(userID), nil
}

func (b *Backend) Close() error {
	if b.SQLite != nil {
		return b.SQLite.Close()
	}
	return nil
}

// NewLedger builds a coordinator over the backend and hydrates it together
// with its audit trail. publisher may be nil.
func NewLedger(ctx context.Context, cfg *config.Config, b *Backend, publisher ledger.ChangePublisher, logger *log.Logger) (*ledger.Coordinator, error) {
	coord := ledger.NewCoordinator(ledger.NewStore(), b.Persistence, ledger.Config{
		UserID:           cfg.UserID,
		DefaultAccountID: cfg.DefaultAccountID,
		MutationTimeout:  cfg.MutationTimeout,
		Logger:           logger,
		Categories:       b.Categories,
		Audit:            b.Audit,
		Publisher:        publisher,
	})
	if err := coord.Hydrate(ctx); err != nil {
		return nil, err
	}
	entries, err := b.LoadAudit(ctx, cfg.UserID)
	if err != nil {
		return nil, fmt.Errorf("load audit log: %w", err)
	}
	coord.AuditLog().Load(entries)
	return coord, nil
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM. The
// received signal is logged.
func SignalContext(parent context.Context, logger *log.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}

// ShutdownContext bounds the cleanup that runs after the signal context is
// done.
func ShutdownContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), timeout)
}
