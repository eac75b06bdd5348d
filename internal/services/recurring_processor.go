// Package services runs the background processes around the ledger: the
// recurring-bill poster, the change feed merger and the dashboard read model.
package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"financehub/internal/core"
	"financehub/internal/ledger"
	"financehub/internal/log"
)

type RecurringConfig struct {
	// Interval is how often due bills are checked (default: 1h)
	Interval time.Duration

	// MaxCatchUp caps the occurrences posted per schedule per run (default: 12)
	MaxCatchUp int
}

func DefaultRecurringConfig() RecurringConfig {
	return RecurringConfig{
		Interval:   time.Hour,
		MaxCatchUp: 12,
	}
}

// Materializer posts scheduled occurrences. *ledger.Coordinator satisfies it.
type Materializer interface {
	Snapshot() ledger.Snapshot
	Today() core.Date
	MaterializeOccurrence(ctx context.Context, id string, due core.Date) (core.Transaction, error)
}

// RecurringProcessor posts every scheduled occurrence that has come due,
// dated on the occurrence date.
type RecurringProcessor struct {
	ledger Materializer
	config RecurringConfig
	logger *log.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	doneCh  chan struct{}
}

func NewRecurringProcessor(l Materializer, config RecurringConfig, logger *log.Logger) *RecurringProcessor {
	if config.Interval <= 0 {
		config.Interval = DefaultRecurringConfig().Interval
	}
	if config.MaxCatchUp <= 0 {
		config.MaxCatchUp = DefaultRecurringConfig().MaxCatchUp
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &RecurringProcessor{
		ledger: l,
		config: config,
		logger: logger.WithComponent(log.ComponentRecurring),
	}
}

// ProcessDue materializes the occurrences due on or before today and returns
// how many transactions were posted. Persistence failures stop the run.
func (p *RecurringProcessor) ProcessDue(ctx context.Context, today core.Date) (int, error) {
	snap := p.ledger.Snapshot()
	schedules := snap.ScheduledList()

	p.logger.DebugContext(ctx, "Processing scheduled transactions",
		"total", len(schedules),
		"processing_date", today.String())

	posted := 0
	for _, st := range schedules {
		n, err := p.catchUp(ctx, st.ID, today)
		posted += n
		if err != nil {
			return posted, err
		}
	}

	if posted > 0 {
		p.logger.InfoContext(ctx, "Recurring processing complete",
			"posted", posted,
			"total_checked", len(schedules))
	}
	return posted, nil
}

func (p *RecurringProcessor) catchUp(ctx context.Context, id string, today core.Date) (int, error) {
	posted := 0
	for posted < p.config.MaxCatchUp {
		if err := ctx.Err(); err != nil {
			return posted, err
		}
		snap := p.ledger.Snapshot()
		st, ok := snap.Scheduled[id]
		if !ok || st.NextDueDate.After(today) {
			return posted, nil
		}

		tx, err := p.ledger.MaterializeOccurrence(ctx, id, st.NextDueDate)
		switch {
		case err == nil:
			posted++
			p.logger.InfoContext(ctx, "Posted scheduled occurrence",
				log.FieldEntityID, id,
				"transaction_id", tx.ID,
				log.FieldDueDate, st.NextDueDate.String(),
				log.FieldAmountCents, tx.Amount.Cents)
		case ledger.IsConsistency(err) && p.advancedPast(id, st.NextDueDate):
			// Posted concurrently by another caller.
			continue
		case ledger.IsPersistence(err):
			return posted, fmt.Errorf("materialize %s on %s: %w", id, st.NextDueDate, err)
		default:
			p.logger.ErrorContext(ctx, "Failed to post scheduled occurrence",
				log.FieldEntityID, id,
				log.FieldError, err)
			return posted, nil
		}
	}
	p.logger.WarnContext(ctx, "Catch-up limit reached",
		log.FieldEntityID, id,
		"max_catch_up", p.config.MaxCatchUp)
	return posted, nil
}

func (p *RecurringProcessor) advancedPast(id string, due core.Date) bool {
	snap := p.ledger.Snapshot()
	st, ok := snap.Scheduled[id]
	return !ok || st.NextDueDate.After(due)
}

// Start runs the processing loop in the background. Returns an error if
// already running.
func (p *RecurringProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return errors.New("recurring processor is already running")
	}
	ctx, cancel := context.WithCancel(ctx)
	p.running = true
	p.cancel = cancel
	p.doneCh = make(chan struct{})

	go func(done chan struct{}) {
		defer close(done)
		p.Run(ctx)
	}(p.doneCh)
	return nil
}

// Stop cancels the loop and waits for it to finish or for ctx to expire.
func (p *RecurringProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	cancel, done := p.cancel, p.doneCh
	p.running = false
	p.mu.Unlock()

	cancel()

	select {
	case <-done:
		p.logger.InfoContext(ctx, "Recurring processor stopped gracefully")
		return nil
	case <-ctx.Done():
		p.logger.WarnContext(ctx, "Recurring processor stop timed out")
		return ctx.Err()
	}
}

func (p *RecurringProcessor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Run processes immediately and then on every tick until ctx is done.
func (p *RecurringProcessor) Run(ctx context.Context) error {
	p.logger.InfoContext(ctx, "Recurring processor started",
		"interval", p.config.Interval,
		"max_catch_up", p.config.MaxCatchUp)

	ticker := time.NewTicker(p.config.Interval)
	defer ticker.Stop()

	for {
		if _, err := p.ProcessDue(ctx, p.ledger.Today()); err != nil && ctx.Err() == nil {
			p.logger.ErrorContext(ctx, "Recurring run failed", log.FieldError, err)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
