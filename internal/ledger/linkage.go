package ledger

import (
	"context"

	"financehub/internal/core"
)

// LinkOption customizes the transaction created by a goal or debt operation.
type LinkOption func(*linkOptions)

type linkOptions struct {
	accountID   string
	date        core.Date
	description string
}

// FromAccount debits (or credits) the given account instead of the default one.
func FromAccount(id string) LinkOption {
	return func(o *linkOptions) { o.accountID = id }
}

// OnDate dates the linked transaction; the default is today.
func OnDate(d core.Date) LinkOption {
	return func(o *linkOptions) { o.date = d }
}

func WithDescription(s string) LinkOption {
	return func(o *linkOptions) { o.description = s }
}

func (c *Coordinator) linkOpts(opts []LinkOption) linkOptions {
	lo := linkOptions{date: c.Today()}
	for _, opt := range opts {
		opt(&lo)
	}
	return lo
}

// linkedTransaction builds the system-owned side of a goal or debt mutation.
func (c *Coordinator) linkedTransaction(s *Snapshot, id string, origin core.Origin, amount core.Money,
	category, description string, lo linkOptions) (core.Transaction, error) {
	acct, err := c.resolveAccount(s, lo.accountID)
	if err != nil {
		return core.Transaction{}, err
	}
	if lo.description != "" {
		description = lo.description
	}
	tx := core.Transaction{
		ID:          id,
		Description: description,
		Amount:      amount,
		Type:        core.TypeForAmount(amount),
		Date:        lo.date,
		CategoryID:  category,
		AccountID:   acct,
		Status:      core.StatusCompleted,
		Origin:      origin,
		CreatedAt:   c.cfg.Now(),
	}
	return tx, c.checkTransaction(s, tx)
}

// goalStatus re-evaluates completion after a reversal, which may reopen the goal.
func goalStatus(g core.Goal) core.GoalStatus {
	if g.Reached() {
		return core.GoalCompleted
	}
	return core.GoalInProgress
}

func debtStatus(d core.Debt) core.DebtStatus {
	if d.Settled() {
		return core.DebtPaid
	}
	return core.DebtActive
}

// ContributeToGoal moves amount from an account into a goal: one negative
// transaction linked to the goal and the same credit on its balance,
// committed together.
func (c *Coordinator) ContributeToGoal(ctx context.Context, goalID string, amount core.Money, opts ...LinkOption) (core.Transaction, error) {
	lo := c.linkOpts(opts)
	txID := c.cfg.NewID()
	err := c.run(ctx, mutation{
		name: "contribute_to_goal",
		ids:  fixed(goalID, txID),
		build: func(s *Snapshot) (*plan, error) {
			if err := amount.Validate(); err != nil {
				return nil, invalid("amount", err)
			}
			g, ok := s.Goals[goalID]
			if !ok {
				return nil, notFound("goal", goalID)
			}
			tx, err := c.linkedTransaction(s, txID, core.GoalContribution(goalID), amount.Neg(),
				core.CategoryGoals, "Contribuição: "+g.Name, lo)
			if err != nil {
				return nil, err
			}
			p := &plan{}
			g.CurrentAmount = g.CurrentAmount.Add(amount)
			if g.Status != core.GoalCompleted && g.Reached() {
				g.Status = core.GoalCompleted
				p.completed = append(p.completed, g.ID)
			}
			p.ops = []Op{
				opPut(core.ActionCreate, tx, describe(tx)),
				opPut(core.ActionUpdate, g, "contribution "+amount.String()),
			}
			return p, nil
		},
	})
	if err != nil {
		return core.Transaction{}, err
	}
	return c.storedTransaction(txID), nil
}

// WithdrawFromGoal moves amount from a goal back to an account. The goal
// status is left as it is: completion never reverts on a withdrawal.
func (c *Coordinator) WithdrawFromGoal(ctx context.Context, goalID string, amount core.Money, opts ...LinkOption) (core.Transaction, error) {
	lo := c.linkOpts(opts)
	txID := c.cfg.NewID()
	err := c.run(ctx, mutation{
		name: "withdraw_from_goal",
		ids:  fixed(goalID, txID),
		build: func(s *Snapshot) (*plan, error) {
			if err := amount.Validate(); err != nil {
				return nil, invalid("amount", err)
			}
			g, ok := s.Goals[goalID]
			if !ok {
				return nil, notFound("goal", goalID)
			}
			if amount.GreaterThan(g.CurrentAmount) {
				return nil, invalidf("amount", "withdrawal of %s exceeds goal balance %s", amount, g.CurrentAmount)
			}
			tx, err := c.linkedTransaction(s, txID, core.GoalContribution(goalID), amount,
				core.CategoryGoals, "Resgate: "+g.Name, lo)
			if err != nil {
				return nil, err
			}
			g.CurrentAmount = g.CurrentAmount.Sub(amount)
			return &plan{ops: []Op{
				opPut(core.ActionCreate, tx, describe(tx)),
				opPut(core.ActionUpdate, g, "withdrawal "+amount.String()),
			}}, nil
		},
	})
	if err != nil {
		return core.Transaction{}, err
	}
	return c.storedTransaction(txID), nil
}

// PayDebt records a payment: one negative transaction linked to the debt
// and the same amount added to its paid balance.
func (c *Coordinator) PayDebt(ctx context.Context, debtID string, amount core.Money, opts ...LinkOption) (core.Transaction, error) {
	lo := c.linkOpts(opts)
	txID := c.cfg.NewID()
	err := c.run(ctx, mutation{
		name: "pay_debt",
		ids:  fixed(debtID, txID),
		build: func(s *Snapshot) (*plan, error) {
			if err := amount.Validate(); err != nil {
				return nil, invalid("amount", err)
			}
			d, ok := s.Debts[debtID]
			if !ok {
				return nil, notFound("debt", debtID)
			}
			if d.Settled() {
				return nil, inconsistent(debtID, "debt is already paid off")
			}
			if amount.GreaterThan(d.Remaining()) {
				return nil, invalidf("amount", "payment of %s exceeds outstanding balance %s", amount, d.Remaining())
			}
			tx, err := c.linkedTransaction(s, txID, core.DebtPayment(debtID), amount.Neg(),
				d.Category, "Pagamento: "+d.Name, lo)
			if err != nil {
				return nil, err
			}
			d.PaidAmount = d.PaidAmount.Add(amount)
			if d.Status != core.DebtPaid && d.Settled() {
				d.Status = core.DebtPaid
			}
			return &plan{ops: []Op{
				opPut(core.ActionCreate, tx, describe(tx)),
				opPut(core.ActionUpdate, d, "payment "+amount.String()),
			}}, nil
		},
	})
	if err != nil {
		return core.Transaction{}, err
	}
	return c.storedTransaction(txID), nil
}

// ReverseLinkedTransaction soft-deletes a goal or debt transaction and
// undoes its effect on the parent, whose status is evaluated again. When
// the parent no longer exists only the transaction is deleted.
func (c *Coordinator) ReverseLinkedTransaction(ctx context.Context, txID string) error {
	return c.run(ctx, mutation{
		name: "reverse_linked_transaction",
		ids: func(s *Snapshot) []string {
			if t, ok := s.Transactions[txID]; ok && t.Origin.SystemOwned() {
				return []string{txID, t.Origin.RefID}
			}
			return []string{txID}
		},
		build: func(s *Snapshot) (*plan, error) {
			t, err := c.transaction(s, txID)
			if err != nil {
				return nil, err
			}
			if !t.Origin.SystemOwned() {
				return nil, inconsistent(txID, "not a goal or debt transaction; use DeleteTransaction")
			}
			if t.IsDeleted() {
				return nil, inconsistent(txID, "transaction is already reversed")
			}
			p := &plan{ops: c.softDelete([]core.Transaction{t})}

			switch t.Origin.Kind {
			case core.OriginGoalContribution:
				g, ok := s.Goals[t.Origin.RefID]
				if !ok {
					break
				}
				// t.Amount is negative for contributions and positive for withdrawals.
				next := g.CurrentAmount.Add(t.Amount)
				if next.IsNegative() {
					return nil, inconsistent(txID, "reversal would leave goal %s below zero; reverse its withdrawals first", g.ID)
				}
				g.CurrentAmount = next
				status := goalStatus(g)
				if status == core.GoalCompleted && g.Status != core.GoalCompleted {
					p.completed = append(p.completed, g.ID)
				}
				g.Status = status
				p.ops = append(p.ops, opPut(core.ActionUpdate, g, "reversal "+t.Amount.Abs().String()))
			case core.OriginDebtPayment:
				d, ok := s.Debts[t.Origin.RefID]
				if !ok {
					break
				}
				d.PaidAmount = d.PaidAmount.Add(t.Amount).Floor()
				d.Status = debtStatus(d)
				p.ops = append(p.ops, opPut(core.ActionUpdate, d, "reversal "+t.Amount.Abs().String()))
			}
			return p, nil
		},
	})
}

// linkedIDs resolves a parent id to itself plus its live linked transactions.
func linkedIDs(id string, origin core.Origin) func(*Snapshot) []string {
	return func(s *Snapshot) []string {
		ids := []string{id}
		for _, t := range s.Linked(origin, false) {
			ids = append(ids, t.ID)
		}
		return ids
	}
}

// DeleteGoal soft-deletes every live transaction linked to the goal, which
// returns the money to the accounts it came from, then removes the goal.
func (c *Coordinator) DeleteGoal(ctx context.Context, id string) error {
	origin := core.GoalContribution(id)
	return c.run(ctx, mutation{
		name: "delete_goal",
		ids:  linkedIDs(id, origin),
		build: func(s *Snapshot) (*plan, error) {
			g, ok := s.Goals[id]
			if !ok {
				return nil, notFound("goal", id)
			}
			ops := c.softDelete(s.Linked(origin, false))
			ops = append(ops, opRemove(core.ActionDelete, core.KindGoal, id, g.Name))
			return &plan{ops: ops}, nil
		},
	})
}

// DeleteDebt mirrors DeleteGoal for debt payments.
func (c *Coordinator) DeleteDebt(ctx context.Context, id string) error {
	origin := core.DebtPayment(id)
	return c.run(ctx, mutation{
		name: "delete_debt",
		ids:  linkedIDs(id, origin),
		build: func(s *Snapshot) (*plan, error) {
			d, ok := s.Debts[id]
			if !ok {
				return nil, notFound("debt", id)
			}
			ops := c.softDelete(s.Linked(origin, false))
			ops = append(ops, opRemove(core.ActionDelete, core.KindDebt, id, d.Name))
			return &plan{ops: ops}, nil
		},
	})
}
