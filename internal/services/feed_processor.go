package services

import (
	"context"
	"fmt"
	"sync/atomic"

	"financehub/internal/amqp"
	"financehub/internal/ledger"
	"financehub/internal/log"
)

// ChangeMerger applies changes committed on another device.
type ChangeMerger interface {
	MergeRemote(changes []ledger.Change) (applied, stashed int)
}

// FeedConsumer delivers change messages until ctx is done.
type FeedConsumer interface {
	Consume(ctx context.Context, handler amqp.Handler) error
}

// FeedStats counts handled messages since start.
type FeedStats struct {
	Merged  uint64 `json:"merged"`
	Skipped uint64 `json:"skipped"`
	Dropped uint64 `json:"dropped"`
	Applied uint64 `json:"applied"`
	Stashed uint64 `json:"stashed"`
}

// FeedProcessor merges the change feed into the local store. Messages the
// local device published are ignored; they are already applied.
type FeedProcessor struct {
	store    ChangeMerger
	userID   string
	deviceID string
	logger   *log.Logger

	merged, skipped, dropped atomic.Uint64
	applied, stashed         atomic.Uint64
}

func NewFeedProcessor(store ChangeMerger, userID, deviceID string, logger *log.Logger) *FeedProcessor {
	if logger == nil {
		logger = log.Discard()
	}
	return &FeedProcessor{
		store:    store,
		userID:   userID,
		deviceID: deviceID,
		logger:   logger.WithComponent(log.ComponentFeed),
	}
}

// Handle implements amqp.Handler.
func (p *FeedProcessor) Handle(ctx context.Context, msg *amqp.ChangeMessage) error {
	if msg.DeviceID == p.deviceID {
		p.skipped.Add(1)
		return nil
	}
	if msg.UserID != p.userID {
		p.skipped.Add(1)
		p.logger.DebugContext(ctx, "Ignoring changes for another user", log.FieldUserID, msg.UserID)
		return nil
	}

	changes, err := msg.LedgerChanges()
	if err != nil {
		p.dropped.Add(1)
		return fmt.Errorf("decode changes from %s: %w: %w", msg.DeviceID, amqp.ErrDiscard, err)
	}

	applied, stashed := p.store.MergeRemote(changes)
	p.merged.Add(1)
	p.applied.Add(uint64(applied))
	p.stashed.Add(uint64(stashed))

	p.logger.InfoContext(ctx, "Merged remote changes",
		"device_id", msg.DeviceID,
		"applied", applied,
		"stashed", stashed)
	return nil
}

// Run consumes the feed until ctx is done.
func (p *FeedProcessor) Run(ctx context.Context, consumer FeedConsumer) error {
	p.logger.InfoContext(ctx, "Change feed processor started", "device_id", p.deviceID)
	err := consumer.Consume(ctx, p.Handle)
	if ctx.Err() != nil {
		return nil
	}
	return err
}

func (p *FeedProcessor) Stats() FeedStats {
	return FeedStats{
		Merged:  p.merged.Load(),
		Skipped: p.skipped.Load(),
		Dropped: p.dropped.Load(),
		Applied: p.applied.Load(),
		Stashed: p.stashed.Load(),
	}
}
