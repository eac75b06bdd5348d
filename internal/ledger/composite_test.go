package ledger_test

import (
	"testing"

	"financehub/internal/core"
	"financehub/internal/ledger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (f *fixture) savings() core.Account {
	f.t.Helper()
	a, err := f.coord.AddAccount(f.ctx, core.Account{ID: "acc-savings", Name: "Poupança", Kind: core.AccountSavings})
	require.NoError(f.t, err)
	return a
}

func TestTransferLifecycle(t *testing.T) {
	f := newFixture(t)
	f.salary(100000)
	sav := f.savings()

	_, err := f.coord.AddTransfer(f.ctx, mainAccount, mainAccount, core.Cents(100))
	assert.True(t, ledger.IsValidation(err))

	legs, err := f.coord.AddTransfer(f.ctx, mainAccount, sav.ID, core.Cents(25000))
	require.NoError(t, err)
	require.Len(t, legs, 2)
	out, in := legs[0], legs[1]
	assert.Equal(t, int64(-25000), out.Amount.Cents)
	assert.Equal(t, int64(25000), in.Amount.Cents)
	assert.Equal(t, out.Origin, in.Origin)
	assert.Equal(t, core.TypeTransfer, out.Type)
	assert.Equal(t, "Transferência: Conta corrente → Poupança", out.Description)
	assert.Equal(t, int64(100000), balance(f.store.Snapshot()), "transfers do not change the total")

	changed := out
	changed.Amount = core.Cents(-1)
	_, err = f.coord.UpdateTransaction(f.ctx, changed)
	assert.True(t, ledger.IsConsistency(err))

	changed = out
	changed.Notes = "reserva de emergência"
	changed.Starred = true
	_, err = f.coord.UpdateTransaction(f.ctx, changed)
	require.NoError(t, err)

	require.NoError(t, f.coord.DeleteTransaction(f.ctx, in.ID))
	snap := f.store.Snapshot()
	assert.True(t, snap.Transactions[out.ID].IsDeleted())
	assert.True(t, snap.Transactions[in.ID].IsDeleted())

	require.NoError(t, f.coord.RestoreTransaction(f.ctx, out.ID))
	snap = f.store.Snapshot()
	assert.False(t, snap.Transactions[out.ID].IsDeleted())
	assert.False(t, snap.Transactions[in.ID].IsDeleted())

	entries := f.coord.AuditLog().ForEntity(core.KindTransaction, in.ID)
	require.Len(t, entries, 3)
	assert.Equal(t, core.ActionRestore, entries[2].Action)

	require.NoError(t, f.coord.PermanentDeleteTransaction(f.ctx, out.ID))
	snap = f.store.Snapshot()
	assert.NotContains(t, snap.Transactions, out.ID)
	assert.NotContains(t, snap.Transactions, in.ID)
}

func TestBulkUpdateTransactions(t *testing.T) {
	f := newFixture(t)
	a := f.addTx("Padaria", -900, "food", core.NewDate(2024, 3, 1))
	b := f.addTx("Cinema", -3000, "food", core.NewDate(2024, 3, 2))
	goal, err := f.coord.AddGoal(f.ctx, core.Goal{Name: "Fundo", TargetAmount: core.Cents(1000)})
	require.NoError(t, err)
	contrib, err := f.coord.ContributeToGoal(f.ctx, goal.ID, core.Cents(100))
	require.NoError(t, err)

	leisure, starred := "leisure", true
	updated, err := f.coord.BulkUpdateTransactions(f.ctx, []string{b.ID, a.ID, b.ID},
		ledger.TransactionPatch{CategoryID: &leisure, Starred: &starred})
	require.NoError(t, err)
	require.Len(t, updated, 2)
	for _, tx := range updated {
		assert.Equal(t, "leisure", tx.CategoryID)
		assert.True(t, tx.Starred)
	}
	entries := f.coord.AuditLog().Entries()
	last := entries[len(entries)-2:]
	assert.NotEmpty(t, last[0].GroupID)
	assert.Equal(t, last[0].GroupID, last[1].GroupID)

	before := f.snapshot()
	other := "other"
	_, err = f.coord.BulkUpdateTransactions(f.ctx, []string{a.ID, contrib.ID}, ledger.TransactionPatch{CategoryID: &other})
	assert.True(t, ledger.IsConsistency(err))
	assert.Equal(t, before, f.snapshot(), "a rejected row aborts the whole batch")

	bogus := "nope"
	_, err = f.coord.BulkUpdateTransactions(f.ctx, []string{a.ID}, ledger.TransactionPatch{CategoryID: &bogus})
	assert.ErrorIs(t, err, ledger.ErrNotFound)
	_, err = f.coord.BulkUpdateTransactions(f.ctx, []string{a.ID}, ledger.TransactionPatch{})
	assert.True(t, ledger.IsValidation(err))
}

func TestBulkDeleteTransactions(t *testing.T) {
	f := newFixture(t)
	sav := f.savings()
	a := f.addTx("Uber", -2200, "transport", core.NewDate(2024, 3, 4))
	b := f.addTx("Ônibus", -450, "transport", core.NewDate(2024, 3, 4))
	legs, err := f.coord.AddTransfer(f.ctx, mainAccount, sav.ID, core.Cents(1000))
	require.NoError(t, err)
	require.NoError(t, f.coord.DeleteTransaction(f.ctx, b.ID))

	require.NoError(t, f.coord.BulkDeleteTransactions(f.ctx, []string{a.ID, b.ID, legs[0].ID}))
	snap := f.store.Snapshot()
	for _, id := range []string{a.ID, b.ID, legs[0].ID, legs[1].ID} {
		assert.True(t, snap.Transactions[id].IsDeleted(), id)
	}
	assert.Empty(t, snap.ActiveTransactions())
}

func TestMergeTransactions(t *testing.T) {
	f := newFixture(t)
	late := f.addTx("Mercado 2", -1000, "food", core.NewDate(2024, 3, 10))
	early := f.addTx("Mercado 1", -2500, "bills", core.NewDate(2024, 3, 5))

	_, err := f.coord.MergeTransactions(f.ctx, []string{late.ID}, "")
	assert.True(t, ledger.IsValidation(err))

	merged, err := f.coord.MergeTransactions(f.ctx, []string{late.ID, early.ID}, "Mercado do mês")
	require.NoError(t, err)
	assert.Equal(t, int64(-3500), merged.Amount.Cents)
	assert.Equal(t, core.NewDate(2024, 3, 5), merged.Date)
	assert.Equal(t, "bills", merged.CategoryID)
	assert.Equal(t, "Mercado do mês", merged.Description)

	snap := f.store.Snapshot()
	assert.True(t, snap.Transactions[late.ID].IsDeleted())
	assert.True(t, snap.Transactions[early.ID].IsDeleted())
	assert.Equal(t, int64(-3500), balance(snap))

	income := f.addTx("Reembolso", 3500, "other", core.NewDate(2024, 3, 11))
	_, err = f.coord.MergeTransactions(f.ctx, []string{merged.ID, income.ID}, "")
	assert.True(t, ledger.IsValidation(err), "a zero total cannot be merged")

	sav := f.savings()
	elsewhere, err := f.coord.AddTransaction(f.ctx, core.Transaction{
		Description: "Tarifa", Amount: core.Cents(-300), Date: core.NewDate(2024, 3, 12), CategoryID: "bills", AccountID: sav.ID,
	})
	require.NoError(t, err)
	_, err = f.coord.MergeTransactions(f.ctx, []string{merged.ID, elsewhere.ID}, "")
	assert.True(t, ledger.IsValidation(err))
}

func TestCloneMonth(t *testing.T) {
	f := newFixture(t)
	f.addTx("Aluguel", -150000, "housing", core.NewDate(2024, 1, 31))
	f.addTx("Academia", -9900, "health", core.NewDate(2024, 1, 10))
	f.addTx("Fevereiro", -100, "other", core.NewDate(2024, 2, 1))
	goal, err := f.coord.AddGoal(f.ctx, core.Goal{Name: "Férias", TargetAmount: core.Cents(1000)})
	require.NoError(t, err)
	_, err = f.coord.ContributeToGoal(f.ctx, goal.ID, core.Cents(100), ledger.OnDate(core.NewDate(2024, 1, 20)))
	require.NoError(t, err)

	copies, err := f.coord.CloneMonth(f.ctx, core.NewDate(2024, 1, 1), core.NewDate(2024, 2, 1))
	require.NoError(t, err)
	require.Len(t, copies, 2)
	assert.Equal(t, core.NewDate(2024, 2, 10), copies[0].Date)
	assert.Equal(t, core.NewDate(2024, 2, 29), copies[1].Date)
	for _, c := range copies {
		assert.Equal(t, core.StatusPending, c.Status)
		assert.Equal(t, core.UserEntered(), c.Origin)
		assert.Contains(t, f.store.Snapshot().Transactions, c.ID)
	}

	commits := f.remote.Commits()
	copies, err = f.coord.CloneMonth(f.ctx, core.NewDate(2023, 6, 1), core.NewDate(2024, 2, 1))
	require.NoError(t, err)
	assert.Empty(t, copies)
	assert.Equal(t, commits, f.remote.Commits(), "an empty month commits nothing")

	_, err = f.coord.CloneMonth(f.ctx, core.NewDate(2024, 1, 1), core.NewDate(2024, 1, 20))
	assert.True(t, ledger.IsValidation(err))
}
