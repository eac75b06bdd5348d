package ledger_test

import (
	"testing"

	"financehub/internal/core"
	"financehub/internal/ledger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPayScheduledNowAdvancesDueDate(t *testing.T) {
	f := newFixture(t)
	f.setToday(2024, 1, 15)

	st, err := f.coord.AddScheduled(f.ctx, core.ScheduledTransaction{
		Description: "Aluguel",
		Amount:      core.Cents(-150000),
		Frequency:   core.Monthly,
		StartDate:   core.NewDate(2024, 1, 31),
		NextDueDate: core.NewDate(2030, 1, 1),
		CategoryID:  "housing",
	})
	require.NoError(t, err)
	assert.Equal(t, core.NewDate(2024, 1, 31), st.NextDueDate, "a supplied due date is ignored")

	want := []core.Date{core.NewDate(2024, 2, 29), core.NewDate(2024, 3, 31), core.NewDate(2024, 4, 30)}
	for _, next := range want {
		tx, err := f.coord.PayScheduledNow(f.ctx, st.ID)
		require.NoError(t, err)
		assert.Equal(t, core.NewDate(2024, 1, 15), tx.Date)
		assert.Equal(t, core.Scheduled(st.ID), tx.Origin)
		assert.Equal(t, mainAccount, tx.AccountID)
		assert.Equal(t, next, f.store.Snapshot().Scheduled[st.ID].NextDueDate)
	}
}

func TestMaterializeOccurrenceRejectsStaleDates(t *testing.T) {
	f := newFixture(t)
	f.setToday(2024, 1, 15)
	st, err := f.coord.AddScheduled(f.ctx, core.ScheduledTransaction{
		Description: "Internet",
		Amount:      core.Cents(-9990),
		Frequency:   core.Monthly,
		StartDate:   core.NewDate(2024, 1, 20),
		CategoryID:  "bills",
	})
	require.NoError(t, err)

	tx, err := f.coord.MaterializeOccurrence(f.ctx, st.ID, core.NewDate(2024, 1, 20))
	require.NoError(t, err)
	assert.Equal(t, core.NewDate(2024, 1, 20), tx.Date)

	_, err = f.coord.MaterializeOccurrence(f.ctx, st.ID, core.NewDate(2024, 1, 20))
	assert.True(t, ledger.IsConsistency(err), "the same occurrence cannot be posted twice")
	snap := f.store.Snapshot()
	assert.Len(t, snap.Linked(core.Scheduled(st.ID), false), 1)

	_, err = f.coord.PayScheduledNow(f.ctx, "missing")
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestUpdateScheduledReprojectsOnScheduleChange(t *testing.T) {
	f := newFixture(t)
	f.setToday(2024, 3, 1)
	st, err := f.coord.AddScheduled(f.ctx, core.ScheduledTransaction{
		Description: "Academia",
		Amount:      core.Cents(-9900),
		Frequency:   core.Monthly,
		StartDate:   core.NewDate(2024, 1, 5),
		CategoryID:  "health",
	})
	require.NoError(t, err)
	assert.Equal(t, core.NewDate(2024, 3, 5), st.NextDueDate)

	st.Amount = core.Cents(-11900)
	st.NextDueDate = core.Date{}
	updated, err := f.coord.UpdateScheduled(f.ctx, st)
	require.NoError(t, err)
	assert.Equal(t, core.NewDate(2024, 3, 5), updated.NextDueDate)

	st.Frequency = core.Weekly
	updated, err = f.coord.UpdateScheduled(f.ctx, st)
	require.NoError(t, err)
	assert.Equal(t, core.NewDate(2024, 3, 1), updated.NextDueDate)

	st.Frequency = "Hourly"
	_, err = f.coord.UpdateScheduled(f.ctx, st)
	assert.True(t, ledger.IsValidation(err))

	require.NoError(t, f.coord.DeleteScheduled(f.ctx, st.ID))
	assert.Empty(t, f.store.Snapshot().Scheduled)
}
