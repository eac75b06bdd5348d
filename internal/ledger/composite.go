package ledger

import (
	"context"
	"slices"
	"strings"

	"financehub/internal/core"
)

// AddTransfer moves amount between two accounts as a pair of transfer legs
// sharing one pair id: -amount on from, +amount on to.
func (c *Coordinator) AddTransfer(ctx context.Context, fromID, toID string, amount core.Money, opts ...LinkOption) ([]core.Transaction, error) {
	lo := c.linkOpts(opts)
	pairID := c.cfg.NewID()
	outID, inID := c.cfg.NewID(), c.cfg.NewID()
	err := c.run(ctx, mutation{
		name: "add_transfer",
		ids:  fixed(outID, inID),
		build: func(s *Snapshot) (*plan, error) {
			if err := amount.Validate(); err != nil {
				return nil, invalid("amount", err)
			}
			if fromID == toID {
				return nil, invalidf("to_account_id", "source and destination accounts must differ")
			}
			from, ok := s.Accounts[fromID]
			if !ok {
				return nil, notFound("account", fromID)
			}
			to, ok := s.Accounts[toID]
			if !ok {
				return nil, notFound("account", toID)
			}
			desc := lo.description
			if desc == "" {
				desc = "Transferência: " + from.Name + " → " + to.Name
			}
			now := c.cfg.Now()
			leg := func(id, account string, amt core.Money) core.Transaction {
				return core.Transaction{
					ID:          id,
					Description: desc,
					Amount:      amt,
					Type:        core.TypeTransfer,
					Date:        lo.date,
					CategoryID:  core.CategoryTransfer,
					AccountID:   account,
					Status:      core.StatusCompleted,
					Origin:      core.Transfer(pairID),
					CreatedAt:   now,
				}
			}
			out, in := leg(outID, fromID, amount.Neg()), leg(inID, toID, amount)
			for _, t := range []core.Transaction{out, in} {
				if err := c.checkTransaction(s, t); err != nil {
					return nil, err
				}
			}
			return &plan{ops: []Op{
				opPut(core.ActionCreate, out, describe(out)),
				opPut(core.ActionCreate, in, describe(in)),
			}}, nil
		},
	})
	if err != nil {
		return nil, err
	}
	return []core.Transaction{c.storedTransaction(outID), c.storedTransaction(inID)}, nil
}

// TransactionPatch lists the fields a bulk update sets; nil fields are left alone.
type TransactionPatch struct {
	CategoryID *string
	AccountID  *string
	Status     *core.TransactionStatus
	Starred    *bool
	Date       *core.Date
}

func (p TransactionPatch) empty() bool {
	return p.CategoryID == nil && p.AccountID == nil && p.Status == nil && p.Starred == nil && p.Date == nil
}

func (p TransactionPatch) structural() bool {
	return p.CategoryID != nil || p.AccountID != nil
}

func (p TransactionPatch) apply(t core.Transaction) core.Transaction {
	if p.CategoryID != nil {
		t.CategoryID = *p.CategoryID
	}
	if p.AccountID != nil {
		t.AccountID = *p.AccountID
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.Starred != nil {
		t.Starred = *p.Starred
	}
	if p.Date != nil {
		t.Date = *p.Date
	}
	return t
}

func distinct(ids []string) []string {
	out := slices.Clone(ids)
	slices.Sort(out)
	return slices.Compact(out)
}

// BulkUpdateTransactions applies patch to every listed transaction in one
// commit. Any rejected transaction aborts the whole batch.
func (c *Coordinator) BulkUpdateTransactions(ctx context.Context, ids []string, patch TransactionPatch) ([]core.Transaction, error) {
	ids = distinct(ids)
	err := c.run(ctx, mutation{
		name: "bulk_update_transactions",
		ids:  fixed(ids...),
		build: func(s *Snapshot) (*plan, error) {
			if len(ids) == 0 {
				return nil, invalidf("ids", "no transactions selected")
			}
			if patch.empty() {
				return nil, invalidf("patch", "nothing to update")
			}
			ops := make([]Op, 0, len(ids))
			for _, id := range ids {
				cur, err := c.transaction(s, id)
				if err != nil {
					return nil, err
				}
				switch {
				case cur.IsDeleted():
					return nil, inconsistent(id, "transaction is deleted")
				case cur.Origin.SystemOwned():
					return nil, inconsistent(id, "%s transactions are managed by their %s", cur.Origin.Kind, ownerName(cur.Origin))
				case cur.Origin.Kind == core.OriginTransfer && patch.structural():
					return nil, inconsistent(id, "category and account of a transfer leg cannot change")
				}
				next := patch.apply(cur)
				if err := c.checkTransaction(s, next); err != nil {
					return nil, err
				}
				ops = append(ops, opPut(core.ActionUpdate, next, describe(next)))
			}
			return &plan{ops: ops}, nil
		},
	})
	if err != nil {
		return nil, err
	}
	out := make([]core.Transaction, 0, len(ids))
	for _, id := range ids {
		out = append(out, c.storedTransaction(id))
	}
	return out, nil
}

// BulkDeleteTransactions soft-deletes the listed transactions, and the
// partner legs of listed transfers, in one commit. Already deleted ones
// are skipped; goal and debt transactions abort the batch.
func (c *Coordinator) BulkDeleteTransactions(ctx context.Context, ids []string) error {
	ids = distinct(ids)
	return c.run(ctx, mutation{
		name: "bulk_delete_transactions",
		ids: func(s *Snapshot) []string {
			var all []string
			for _, id := range ids {
				all = append(all, legIDs(id)(s)...)
			}
			return all
		},
		build: func(s *Snapshot) (*plan, error) {
			if len(ids) == 0 {
				return nil, invalidf("ids", "no transactions selected")
			}
			seen := make(map[string]bool)
			var targets []core.Transaction
			for _, id := range ids {
				cur, err := c.transaction(s, id)
				if err != nil {
					return nil, err
				}
				if cur.Origin.SystemOwned() {
					return nil, inconsistent(id, "%s transactions are reversed through ReverseLinkedTransaction", cur.Origin.Kind)
				}
				for _, t := range legs(s, cur) {
					if !seen[t.ID] {
						seen[t.ID] = true
						targets = append(targets, t)
					}
				}
			}
			return &plan{ops: c.softDelete(targets)}, nil
		},
	})
}

func mergeable(t core.Transaction) bool {
	return t.Origin.Kind == core.OriginUser || t.Origin.Kind == core.OriginScheduled
}

// MergeTransactions replaces two or more live user transactions of the same
// account with one transaction carrying their total. The merged entry takes
// the earliest date and that entry's category; description defaults to the
// earliest entry's. The originals are soft-deleted.
func (c *Coordinator) MergeTransactions(ctx context.Context, ids []string, description string) (core.Transaction, error) {
	ids = distinct(ids)
	mergedID := c.cfg.NewID()
	err := c.run(ctx, mutation{
		name: "merge_transactions",
		ids:  fixed(append(slices.Clone(ids), mergedID)...),
		build: func(s *Snapshot) (*plan, error) {
			if len(ids) < 2 {
				return nil, invalidf("ids", "at least two transactions are needed to merge")
			}
			sources := make([]core.Transaction, 0, len(ids))
			var total core.Money
			var notes []string
			for _, id := range ids {
				t, err := c.transaction(s, id)
				if err != nil {
					return nil, err
				}
				if t.IsDeleted() {
					return nil, inconsistent(id, "transaction is deleted")
				}
				if !mergeable(t) {
					return nil, inconsistent(id, "%s transactions cannot be merged", t.Origin.Kind)
				}
				if len(sources) > 0 && t.AccountID != sources[0].AccountID {
					return nil, invalidf("ids", "transactions belong to different accounts")
				}
				sources = append(sources, t)
				total = total.Add(t.Amount)
				if t.Notes != "" {
					notes = append(notes, t.Notes)
				}
			}
			if total.IsZero() {
				return nil, invalidf("ids", "merged amount would be zero")
			}
			first := slices.MinFunc(sources, func(a, b core.Transaction) int {
				if d := a.Date.Compare(b.Date.Time); d != 0 {
					return d
				}
				return strings.Compare(a.ID, b.ID)
			})
			if description == "" {
				description = first.Description
			}
			merged := core.Transaction{
				ID:          mergedID,
				Description: description,
				Amount:      total,
				Type:        core.TypeForAmount(total),
				Date:        first.Date,
				CategoryID:  first.CategoryID,
				AccountID:   first.AccountID,
				Status:      first.Status,
				Origin:      core.UserEntered(),
				Notes:       strings.Join(notes, "\n"),
				CreatedAt:   c.cfg.Now(),
			}
			if err := c.checkTransaction(s, merged); err != nil {
				return nil, err
			}
			ops := []Op{opPut(core.ActionCreate, merged, describe(merged))}
			ops = append(ops, c.softDelete(sources)...)
			return &plan{ops: ops}, nil
		},
	})
	if err != nil {
		return core.Transaction{}, err
	}
	return c.storedTransaction(mergedID), nil
}

// cloneSources lists the live user transactions dated in month's calendar month.
func cloneSources(s *Snapshot, month core.Date) []core.Transaction {
	var out []core.Transaction
	for _, t := range s.ActiveTransactions() {
		if mergeable(t) && t.Date.SameMonth(month) {
			out = append(out, t)
		}
	}
	slices.SortFunc(out, func(a, b core.Transaction) int {
		if c := a.Date.Compare(b.Date.Time); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out
}

// CloneMonth copies the user transactions of from's month into to's month
// as pending entries, shifting each date by whole months with the day
// clamped. Goal, debt and transfer transactions are not copied. An empty
// source month is a no-op.
func (c *Coordinator) CloneMonth(ctx context.Context, from, to core.Date) ([]core.Transaction, error) {
	shift := from.FirstOfMonth().MonthsUntil(to.FirstOfMonth())
	var copies []core.Transaction
	err := c.run(ctx, mutation{
		name: "clone_month",
		ids: func(s *Snapshot) []string {
			var ids []string
			for _, t := range cloneSources(s, from) {
				ids = append(ids, t.ID)
			}
			return ids
		},
		build: func(s *Snapshot) (*plan, error) {
			if from.IsEmpty() || to.IsEmpty() {
				return nil, invalidf("month", "source and target months are required")
			}
			if shift == 0 {
				return nil, invalidf("month", "source and target months must differ")
			}
			copies = nil
			now := c.cfg.Now()
			var ops []Op
			for _, t := range cloneSources(s, from) {
				cp := t
				cp.ID = c.cfg.NewID()
				cp.Date = t.Date.AddMonthsClamped(shift)
				cp.Status = core.StatusPending
				cp.Origin = core.UserEntered()
				cp.CreatedAt = now
				copies = append(copies, cp)
				ops = append(ops, opPut(core.ActionCreate, cp, describe(cp)))
			}
			return &plan{ops: ops}, nil
		},
	})
	if err != nil {
		return nil, err
	}
	return copies, nil
}
