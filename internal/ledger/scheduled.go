package ledger

import (
	"context"
	"fmt"

	"financehub/internal/core"
	"financehub/internal/recurrence"
)

func (c *Coordinator) checkScheduled(s *Snapshot, st core.ScheduledTransaction) error {
	if err := st.Validate(); err != nil {
		return invalid("scheduled_transaction", err)
	}
	if err := c.checkCategory(st.CategoryID); err != nil {
		return err
	}
	if st.AccountID != "" {
		if _, ok := s.Accounts[st.AccountID]; !ok {
			return notFound("account", st.AccountID)
		}
	}
	return nil
}

func scheduledDetails(st core.ScheduledTransaction) string {
	return fmt.Sprintf("%s (%s, %s, next %s)", st.Description, st.Amount, st.Frequency, st.NextDueDate)
}

// AddScheduled creates a recurring bill. NextDueDate is always projected
// from the start date and frequency; any value in draft is ignored.
func (c *Coordinator) AddScheduled(ctx context.Context, draft core.ScheduledTransaction) (core.ScheduledTransaction, error) {
	st := draft
	st.ID = c.cfg.NewID()
	err := c.run(ctx, mutation{
		name: "add_scheduled",
		ids:  fixed(st.ID),
		build: func(s *Snapshot) (*plan, error) {
			if err := c.checkScheduled(s, st); err != nil {
				return nil, err
			}
			next, err := recurrence.Refresh(st, c.Today())
			if err != nil {
				return nil, invalid("frequency", err)
			}
			st.NextDueDate = next
			return &plan{ops: []Op{opPut(core.ActionCreate, st, scheduledDetails(st))}}, nil
		},
	})
	if err != nil {
		return core.ScheduledTransaction{}, err
	}
	return st, nil
}

// UpdateScheduled replaces a schedule. The due date is projected again
// when the frequency or start date changed and kept otherwise.
func (c *Coordinator) UpdateScheduled(ctx context.Context, st core.ScheduledTransaction) (core.ScheduledTransaction, error) {
	err := c.run(ctx, mutation{
		name: "update_scheduled",
		ids:  fixed(st.ID),
		build: func(s *Snapshot) (*plan, error) {
			cur, ok := s.Scheduled[st.ID]
			if !ok {
				return nil, notFound("scheduled_transaction", st.ID)
			}
			if err := c.checkScheduled(s, st); err != nil {
				return nil, err
			}
			st.NextDueDate = cur.NextDueDate
			if st.Frequency != cur.Frequency || !st.StartDate.Equal(cur.StartDate) {
				next, err := recurrence.Refresh(st, c.Today())
				if err != nil {
					return nil, invalid("frequency", err)
				}
				st.NextDueDate = next
			}
			return &plan{ops: []Op{opPut(core.ActionUpdate, st, scheduledDetails(st))}}, nil
		},
	})
	if err != nil {
		return core.ScheduledTransaction{}, err
	}
	return st, nil
}

func (c *Coordinator) DeleteScheduled(ctx context.Context, id string) error {
	return c.run(ctx, mutation{
		name: "delete_scheduled",
		ids:  fixed(id),
		build: func(s *Snapshot) (*plan, error) {
			st, ok := s.Scheduled[id]
			if !ok {
				return nil, notFound("scheduled_transaction", id)
			}
			return &plan{ops: []Op{opRemove(core.ActionDelete, core.KindScheduled, id, scheduledDetails(st))}}, nil
		},
	})
}

// PayScheduledNow posts the occurrence due at NextDueDate as a transaction
// dated today and advances the schedule past that occurrence.
func (c *Coordinator) PayScheduledNow(ctx context.Context, id string) (core.Transaction, error) {
	return c.materialize(ctx, "pay_scheduled_now", id, core.Date{}, c.Today())
}

// MaterializeOccurrence posts the occurrence due on due, dated on due. It
// fails with a ConsistencyError when due is no longer the schedule's next
// due date, so a stale caller cannot post the same occurrence twice.
func (c *Coordinator) MaterializeOccurrence(ctx context.Context, id string, due core.Date) (core.Transaction, error) {
	return c.materialize(ctx, "materialize_occurrence", id, due, due)
}

func (c *Coordinator) materialize(ctx context.Context, name, id string, expect, dated core.Date) (core.Transaction, error) {
	txID := c.cfg.NewID()
	err := c.run(ctx, mutation{
		name: name,
		ids:  fixed(id, txID),
		build: func(s *Snapshot) (*plan, error) {
			st, ok := s.Scheduled[id]
			if !ok {
				return nil, notFound("scheduled_transaction", id)
			}
			paid := st.NextDueDate
			if !expect.IsEmpty() && !paid.Equal(expect) {
				return nil, inconsistent(id, "occurrence %s is not due; next due date is %s", expect, paid)
			}
			acct, err := c.resolveAccount(s, st.AccountID)
			if err != nil {
				return nil, err
			}
			tx := core.Transaction{
				ID:          txID,
				Description: st.Description,
				Amount:      st.Amount,
				Type:        core.TypeForAmount(st.Amount),
				Date:        dated,
				CategoryID:  st.CategoryID,
				AccountID:   acct,
				Status:      core.StatusCompleted,
				Origin:      core.Scheduled(st.ID),
				CreatedAt:   c.cfg.Now(),
			}
			if err := c.checkTransaction(s, tx); err != nil {
				return nil, err
			}
			next, err := recurrence.Advance(st, paid)
			if err != nil {
				return nil, invalid("frequency", err)
			}
			st.NextDueDate = next
			return &plan{ops: []Op{
				opPut(core.ActionCreate, tx, describe(tx)),
				opPut(core.ActionUpdate, st, scheduledDetails(st)),
			}}, nil
		},
	})
	if err != nil {
		return core.Transaction{}, err
	}
	return c.storedTransaction(txID), nil
}
