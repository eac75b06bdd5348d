package ledger

import (
	"context"

	"financehub/internal/core"
)

// legIDs resolves a transaction id to itself plus its transfer partner.
func legIDs(id string) func(*Snapshot) []string {
	return func(s *Snapshot) []string {
		ids := []string{id}
		if t, ok := s.Transactions[id]; ok && t.Origin.Kind == core.OriginTransfer {
			for _, leg := range s.Linked(t.Origin, true) {
				if leg.ID != id {
					ids = append(ids, leg.ID)
				}
			}
		}
		return ids
	}
}

// legs returns t, or both legs when t belongs to a transfer.
func legs(s *Snapshot, t core.Transaction) []core.Transaction {
	if t.Origin.Kind != core.OriginTransfer {
		return []core.Transaction{t}
	}
	return s.Linked(t.Origin, true)
}

func (c *Coordinator) transaction(s *Snapshot, id string) (core.Transaction, error) {
	t, ok := s.Transactions[id]
	if !ok {
		return core.Transaction{}, notFound("transaction", id)
	}
	return t, nil
}

func (c *Coordinator) storedTransaction(id string) core.Transaction {
	var t core.Transaction
	c.store.read(func(s *Snapshot) { t = s.Transactions[id] })
	return t
}

// AddTransaction records a user-entered transaction. The id, creation time
// and origin are assigned here; an empty type is derived from the amount's
// sign, an empty status means completed and an empty account means the
// default account.
func (c *Coordinator) AddTransaction(ctx context.Context, draft core.Transaction) (core.Transaction, error) {
	tx := draft
	tx.ID = c.cfg.NewID()
	tx.CreatedAt = c.cfg.Now()
	tx.Origin = core.UserEntered()
	tx.DeletedAt = nil
	if tx.Type == "" {
		tx.Type = core.TypeForAmount(tx.Amount)
	}
	if tx.Status == "" {
		tx.Status = core.StatusCompleted
	}
	err := c.run(ctx, mutation{
		name: "add_transaction",
		ids:  fixed(tx.ID),
		build: func(s *Snapshot) (*plan, error) {
			if tx.Type == core.TypeTransfer {
				return nil, invalidf("type", "transfers are created with AddTransfer")
			}
			acct, err := c.resolveAccount(s, tx.AccountID)
			if err != nil {
				return nil, err
			}
			tx.AccountID = acct
			if err := c.checkTransaction(s, tx); err != nil {
				return nil, err
			}
			return &plan{ops: []Op{opPut(core.ActionCreate, tx, describe(tx))}}, nil
		},
	})
	if err != nil {
		return core.Transaction{}, err
	}
	return c.storedTransaction(tx.ID), nil
}

// UpdateTransaction replaces the editable fields of a live transaction.
// Goal and debt transactions cannot be edited; transfer legs only accept
// changes to description, notes, starred, status and date.
func (c *Coordinator) UpdateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	err := c.run(ctx, mutation{
		name: "update_transaction",
		ids:  fixed(tx.ID),
		build: func(s *Snapshot) (*plan, error) {
			cur, err := c.transaction(s, tx.ID)
			if err != nil {
				return nil, err
			}
			if cur.IsDeleted() {
				return nil, inconsistent(cur.ID, "transaction is deleted; restore it before editing")
			}
			if cur.Origin.SystemOwned() {
				return nil, inconsistent(cur.ID, "%s transactions are managed by their %s", cur.Origin.Kind, ownerName(cur.Origin))
			}
			next := tx
			next.Origin = cur.Origin
			next.CreatedAt = cur.CreatedAt
			next.DeletedAt = nil
			if next.Type == "" {
				next.Type = cur.Type
			}
			if cur.Origin.Kind == core.OriginTransfer {
				if next.Amount != cur.Amount || next.AccountID != cur.AccountID ||
					next.Type != cur.Type || next.CategoryID != cur.CategoryID {
					return nil, inconsistent(cur.ID, "only description, notes, starred, status and date of a transfer leg can change")
				}
			} else if next.Type == core.TypeTransfer {
				return nil, invalidf("type", "a transaction cannot become a transfer")
			}
			if err := c.checkTransaction(s, next); err != nil {
				return nil, err
			}
			return &plan{ops: []Op{opPut(core.ActionUpdate, next, describe(next))}}, nil
		},
	})
	if err != nil {
		return core.Transaction{}, err
	}
	return c.storedTransaction(tx.ID), nil
}

// DeleteTransaction soft-deletes a user transaction, or both legs of a transfer.
func (c *Coordinator) DeleteTransaction(ctx context.Context, id string) error {
	return c.run(ctx, mutation{
		name: "delete_transaction",
		ids:  legIDs(id),
		build: func(s *Snapshot) (*plan, error) {
			cur, err := c.transaction(s, id)
			if err != nil {
				return nil, err
			}
			if cur.Origin.SystemOwned() {
				return nil, inconsistent(id, "%s transactions are reversed through ReverseLinkedTransaction", cur.Origin.Kind)
			}
			if cur.IsDeleted() {
				return nil, inconsistent(id, "transaction is already deleted")
			}
			return &plan{ops: c.softDelete(legs(s, cur))}, nil
		},
	})
}

func (c *Coordinator) softDelete(txs []core.Transaction) []Op {
	now := c.cfg.Now()
	ops := make([]Op, 0, len(txs))
	for _, t := range txs {
		if t.IsDeleted() {
			continue
		}
		at := now
		t.DeletedAt = &at
		ops = append(ops, opPut(core.ActionDelete, t, describe(t)))
	}
	return ops
}

// RestoreTransaction undoes a soft delete of a user transaction or transfer.
func (c *Coordinator) RestoreTransaction(ctx context.Context, id string) error {
	return c.run(ctx, mutation{
		name: "restore_transaction",
		ids:  legIDs(id),
		build: func(s *Snapshot) (*plan, error) {
			cur, err := c.transaction(s, id)
			if err != nil {
				return nil, err
			}
			if cur.Origin.SystemOwned() {
				return nil, inconsistent(id, "reversed %s transactions cannot be restored", cur.Origin.Kind)
			}
			if !cur.IsDeleted() {
				return nil, inconsistent(id, "transaction is not deleted")
			}
			var ops []Op
			for _, t := range legs(s, cur) {
				if !t.IsDeleted() {
					continue
				}
				t.DeletedAt = nil
				ops = append(ops, opPut(core.ActionRestore, t, describe(t)))
			}
			return &plan{ops: ops}, nil
		},
	})
}

// PermanentDeleteTransaction removes a transaction (both legs of a
// transfer) for good. Goal and debt transactions must have been reversed
// first so their parent's balance is already corrected.
func (c *Coordinator) PermanentDeleteTransaction(ctx context.Context, id string) error {
	return c.run(ctx, mutation{
		name: "permanent_delete_transaction",
		ids:  legIDs(id),
		build: func(s *Snapshot) (*plan, error) {
			cur, err := c.transaction(s, id)
			if err != nil {
				return nil, err
			}
			if cur.Origin.SystemOwned() && !cur.IsDeleted() {
				return nil, inconsistent(id, "reverse the %s before deleting it permanently", cur.Origin.Kind)
			}
			var ops []Op
			for _, t := range legs(s, cur) {
				ops = append(ops, opRemove(core.ActionPermanentDelete, core.KindTransaction, t.ID, describe(t)))
			}
			return &plan{ops: ops}, nil
		},
	})
}

func ownerName(o core.Origin) string {
	switch o.Kind {
	case core.OriginGoalContribution:
		return "goal"
	case core.OriginDebtPayment:
		return "debt"
	case core.OriginTransfer:
		return "transfer"
	case core.OriginScheduled:
		return "schedule"
	}
	return "user"
}
