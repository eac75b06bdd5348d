package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"financehub/internal/core"
	"financehub/internal/ledger"
	"financehub/internal/storage/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var created = time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)

func sampleTx(id string) core.Transaction {
	return core.Transaction{
		ID:          id,
		Description: "Mercado",
		Amount:      core.Cents(-4590),
		Type:        core.TypeExpense,
		Date:        core.NewDate(2024, 3, 1),
		CategoryID:  "food",
		AccountID:   "acc",
		Status:      core.StatusCompleted,
		Origin:      core.Transfer("pair-1"),
		CreatedAt:   created,
	}
}

func TestCommitReturnsCanonicalRecords(t *testing.T) {
	s := memory.New()
	ctx := context.Background()
	tx := sampleTx("t1")
	acct := core.Account{ID: "acc", Name: "Conta", Kind: core.AccountChecking, CreatedAt: created}

	records, err := s.Commit(ctx, "u1", []ledger.Op{
		{Action: core.ActionCreate, Kind: core.KindAccount, ID: acct.ID, Record: acct},
		{Action: core.ActionCreate, Kind: core.KindTransaction, ID: tx.ID, Record: tx},
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []core.Record{acct, tx}, records)

	loaded, err := s.Load(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []core.Record{acct, tx}, loaded)

	other, err := s.Load(ctx, "u2")
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestCommitIsAllOrNothing(t *testing.T) {
	s := memory.New()
	ctx := context.Background()
	boom := errors.New("boom")

	s.FailNext(boom)
	_, err := s.Commit(ctx, "u1", []ledger.Op{{Kind: core.KindTransaction, ID: "t1", Record: sampleTx("t1")}})
	assert.ErrorIs(t, err, boom)
	loaded, _ := s.Load(ctx, "u1")
	assert.Empty(t, loaded)
	assert.Zero(t, s.Commits())

	_, err = s.Commit(ctx, "u1", []ledger.Op{{Kind: core.KindTransaction, ID: "t1", Record: sampleTx("t1")}})
	require.NoError(t, err, "FailNext only fails once")

	s.FailAlways(boom)
	for range 3 {
		_, err = s.Commit(ctx, "u1", []ledger.Op{{Kind: core.KindTransaction, ID: "t1"}})
		assert.ErrorIs(t, err, boom)
	}
	s.FailAlways(nil)

	_, err = s.Commit(ctx, "u1", []ledger.Op{{Kind: core.KindTransaction, ID: "t1"}})
	require.NoError(t, err)
	loaded, _ = s.Load(ctx, "u1")
	assert.Empty(t, loaded, "a nil record removes the row")
}

func TestHoldAndLatencyRespectContext(t *testing.T) {
	s := memory.New()
	release := s.Hold()
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := s.Commit(ctx, "u1", nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	release()
	s.SetLatency(time.Second)
	ctx2, cancel2 := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel2()
	_, err = s.Commit(ctx2, "u1", nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestAuditSeedAndWipe(t *testing.T) {
	s := memory.New()
	ctx := context.Background()

	require.NoError(t, s.Seed(ctx, "u1", []core.Record{sampleTx("t1"), sampleTx("t2")}))
	require.NoError(t, s.AppendAudit(ctx, "u1", []core.AuditEntry{{ID: "a1", Action: core.ActionCreate, Entity: core.KindTransaction, EntityID: "t1"}}))
	loaded, err := s.Load(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, loaded, 2)
	assert.Len(t, s.Audit("u1"), 1)

	require.NoError(t, s.Wipe(ctx, "u1"))
	loaded, _ = s.Load(ctx, "u1")
	assert.Empty(t, loaded)
	assert.Empty(t, s.Audit("u1"))
}
