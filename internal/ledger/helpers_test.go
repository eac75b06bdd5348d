package ledger_test

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"financehub/internal/core"
	"financehub/internal/ledger"
	"financehub/internal/log"
	"financehub/internal/storage/memory"

	"github.com/stretchr/testify/require"
)

const (
	userID      = "u1"
	mainAccount = "acc-main"
)

type fixture struct {
	t      *testing.T
	ctx    context.Context
	remote *memory.Store
	store  *ledger.Store
	coord  *ledger.Coordinator
	clock  time.Time
}

type fixtureOption func(*ledger.Config)

func withTimeout(d time.Duration) fixtureOption {
	return func(c *ledger.Config) { c.MutationTimeout = d }
}

func newFixture(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()
	f := &fixture{
		t:      t,
		ctx:    context.Background(),
		remote: memory.New(),
		store:  ledger.NewStore(),
		clock:  time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC),
	}
	var seq atomic.Int64
	cfg := ledger.Config{
		UserID:          userID,
		MutationTimeout: 5 * time.Second,
		Now:             func() time.Time { return f.clock },
		NewID:           func() string { return fmt.Sprintf("id-%04d", seq.Add(1)) },
		Logger:          log.Discard(),
		Audit:           f.remote,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	f.coord = ledger.NewCoordinator(f.store, f.remote, cfg)
	t.Cleanup(f.coord.Close)

	_, err := f.coord.AddAccount(f.ctx, core.Account{ID: mainAccount, Name: "Conta corrente", Kind: core.AccountChecking})
	require.NoError(t, err)
	return f
}

func (f *fixture) setToday(y, m, d int) {
	f.clock = time.Date(y, time.Month(m), d, 12, 0, 0, 0, time.UTC)
}

func (f *fixture) addTx(desc string, cents int64, category string, date core.Date) core.Transaction {
	f.t.Helper()
	tx, err := f.coord.AddTransaction(f.ctx, core.Transaction{
		Description: desc,
		Amount:      core.Cents(cents),
		Date:        date,
		CategoryID:  category,
	})
	require.NoError(f.t, err)
	return tx
}

func (f *fixture) salary(cents int64) core.Transaction {
	return f.addTx("Salário", cents, "salary", core.NewDate(2024, 3, 5))
}

func (f *fixture) snapshot() ledger.Snapshot {
	s := f.store.Snapshot()
	s.Version = 0
	return s
}

// balance is the sum of all live transaction amounts.
func balance(s ledger.Snapshot) int64 {
	var total int64
	for _, t := range s.Transactions {
		if !t.IsDeleted() {
			total += t.Amount.Cents
		}
	}
	return total
}

// requireGoalInvariant checks that a goal's balance mirrors its live linked transactions.
func requireGoalInvariant(t *testing.T, s ledger.Snapshot, goalID string) {
	t.Helper()
	g, ok := s.Goals[goalID]
	require.True(t, ok, "goal %s missing", goalID)
	var linked int64
	for _, tx := range s.Linked(core.GoalContribution(goalID), false) {
		linked += tx.Amount.Cents
	}
	require.Equal(t, -linked, g.CurrentAmount.Cents, "goal %s balance out of sync with linked transactions", goalID)
}

var errRemoteDown = errors.New("remote unavailable")
