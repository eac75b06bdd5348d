package services_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"financehub/internal/core"
	"financehub/internal/ledger"
	"financehub/internal/log"
	"financehub/internal/storage/memory"

	"github.com/stretchr/testify/require"
)

const userID = "u1"

type device struct {
	t     *testing.T
	ctx   context.Context
	store *ledger.Store
	coord *ledger.Coordinator

	mu    sync.Mutex
	clock time.Time
}

func newDevice(t *testing.T, publisher ledger.ChangePublisher) *device {
	t.Helper()
	d := &device{
		t:     t,
		ctx:   context.Background(),
		store: ledger.NewStore(),
		clock: time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC),
	}
	var seq atomic.Int64
	prefix := fmt.Sprintf("%p", d)
	d.coord = ledger.NewCoordinator(d.store, memory.New(), ledger.Config{
		UserID:          userID,
		MutationTimeout: 5 * time.Second,
		Now:             d.now,
		NewID:           func() string { return fmt.Sprintf("%s-%04d", prefix, seq.Add(1)) },
		Logger:          log.Discard(),
		Publisher:       publisher,
	})
	t.Cleanup(d.coord.Close)

	_, err := d.coord.AddAccount(d.ctx, core.Account{ID: "acc-main", Name: "Conta corrente", Kind: core.AccountChecking})
	require.NoError(t, err)
	return d
}

func (d *device) now() time.Time {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.clock
}

func (d *device) setToday(y, m, day int) {
	d.mu.Lock()
	d.clock = time.Date(y, time.Month(m), day, 9, 0, 0, 0, time.UTC)
	d.mu.Unlock()
}

func (d *device) addTx(desc string, cents int64, category string, date core.Date) core.Transaction {
	d.t.Helper()
	tx, err := d.coord.AddTransaction(d.ctx, core.Transaction{
		Description: desc,
		Amount:      core.Cents(cents),
		Date:        date,
		CategoryID:  category,
	})
	require.NoError(d.t, err)
	return tx
}

func (d *device) snapshot() ledger.Snapshot {
	s := d.store.Snapshot()
	s.Version = 0
	return s
}
