package ledger

import (
	"context"
	"errors"
	"fmt"

	"financehub/internal/core"
)

// stored returns the reconciled row of a mutation that just committed, or
// fallback when a later mutation already removed it.
func stored[T core.Record](c *Coordinator, kind core.Kind, id string, fallback T) T {
	var r core.Record
	c.store.read(func(s *Snapshot) { r, _ = s.Get(kind, id) })
	if v, ok := r.(T); ok {
		return v
	}
	return fallback
}

// AddGoal creates a goal. Its balance starts at zero and only moves
// through contributions and withdrawals.
func (c *Coordinator) AddGoal(ctx context.Context, draft core.Goal) (core.Goal, error) {
	g := draft
	g.ID = c.cfg.NewID()
	g.CreatedAt = c.cfg.Now()
	g.Status = core.GoalInProgress
	err := c.run(ctx, mutation{
		name: "add_goal",
		ids:  fixed(g.ID),
		build: func(*Snapshot) (*plan, error) {
			if !g.CurrentAmount.IsZero() {
				return nil, invalidf("current_amount", "a new goal starts at zero; use ContributeToGoal")
			}
			if err := g.Validate(); err != nil {
				return nil, invalid("goal", err)
			}
			return &plan{ops: []Op{opPut(core.ActionCreate, g, g.Name)}}, nil
		},
	})
	if err != nil {
		return core.Goal{}, err
	}
	return stored(c, core.KindGoal, g.ID, g), nil
}

// UpdateGoal changes name, target and deadline. Completion is one-way: a
// goal whose balance now covers the target completes, but raising the
// target above the balance does not reopen a completed goal.
func (c *Coordinator) UpdateGoal(ctx context.Context, g core.Goal) (core.Goal, error) {
	err := c.run(ctx, mutation{
		name: "update_goal",
		ids:  fixed(g.ID),
		build: func(s *Snapshot) (*plan, error) {
			cur, ok := s.Goals[g.ID]
			if !ok {
				return nil, notFound("goal", g.ID)
			}
			next := cur
			next.Name = g.Name
			next.TargetAmount = g.TargetAmount
			next.Deadline = g.Deadline
			p := &plan{}
			if next.Status != core.GoalCompleted && next.Reached() {
				next.Status = core.GoalCompleted
				p.completed = append(p.completed, next.ID)
			}
			if err := next.Validate(); err != nil {
				return nil, invalid("goal", err)
			}
			p.ops = []Op{opPut(core.ActionUpdate, next, next.Name)}
			return p, nil
		},
	})
	if err != nil {
		return core.Goal{}, err
	}
	return stored(c, core.KindGoal, g.ID, g), nil
}

// AddDebt creates a debt with nothing paid yet.
func (c *Coordinator) AddDebt(ctx context.Context, draft core.Debt) (core.Debt, error) {
	d := draft
	d.ID = c.cfg.NewID()
	d.CreatedAt = c.cfg.Now()
	d.Status = core.DebtActive
	if d.Category == "" {
		d.Category = core.CategoryDebts
	}
	err := c.run(ctx, mutation{
		name: "add_debt",
		ids:  fixed(d.ID),
		build: func(*Snapshot) (*plan, error) {
			if !d.PaidAmount.IsZero() {
				return nil, invalidf("paid_amount", "a new debt starts unpaid; use PayDebt")
			}
			if err := d.Validate(); err != nil {
				return nil, invalid("debt", err)
			}
			if err := c.checkCategory(d.Category); err != nil {
				return nil, err
			}
			return &plan{ops: []Op{opPut(core.ActionCreate, d, d.Name)}}, nil
		},
	})
	if err != nil {
		return core.Debt{}, err
	}
	return stored(c, core.KindDebt, d.ID, d), nil
}

// UpdateDebt changes name, total, interest rate and category. Like goals,
// settling is one-way.
func (c *Coordinator) UpdateDebt(ctx context.Context, d core.Debt) (core.Debt, error) {
	err := c.run(ctx, mutation{
		name: "update_debt",
		ids:  fixed(d.ID),
		build: func(s *Snapshot) (*plan, error) {
			cur, ok := s.Debts[d.ID]
			if !ok {
				return nil, notFound("debt", d.ID)
			}
			next := cur
			next.Name = d.Name
			next.TotalAmount = d.TotalAmount
			next.InterestRate = d.InterestRate
			if d.Category != "" {
				next.Category = d.Category
			}
			if next.Status != core.DebtPaid && next.Settled() {
				next.Status = core.DebtPaid
			}
			if err := next.Validate(); err != nil {
				return nil, invalid("debt", err)
			}
			if err := c.checkCategory(next.Category); err != nil {
				return nil, err
			}
			return &plan{ops: []Op{opPut(core.ActionUpdate, next, next.Name)}}, nil
		},
	})
	if err != nil {
		return core.Debt{}, err
	}
	return stored(c, core.KindDebt, d.ID, d), nil
}

var errDuplicateBudget = errors.New("a budget for this category and period already exists")

func (c *Coordinator) checkBudget(s *Snapshot, b core.Budget) error {
	if err := b.Validate(); err != nil {
		return invalid("budget", err)
	}
	if err := c.checkCategory(b.CategoryID); err != nil {
		return err
	}
	for _, other := range s.Budgets {
		if other.ID != b.ID && other.CategoryID == b.CategoryID && other.Period == b.Period {
			return invalid("category_id", errDuplicateBudget)
		}
	}
	return nil
}

func budgetDetails(b core.Budget) string {
	return fmt.Sprintf("%s %s %s", b.CategoryID, b.Period, b.Amount)
}

func (c *Coordinator) AddBudget(ctx context.Context, draft core.Budget) (core.Budget, error) {
	b := draft
	b.ID = c.cfg.NewID()
	if b.Period == "" {
		b.Period = core.PeriodMonthly
	}
	err := c.run(ctx, mutation{
		name: "add_budget",
		ids:  fixed(b.ID),
		build: func(s *Snapshot) (*plan, error) {
			if err := c.checkBudget(s, b); err != nil {
				return nil, err
			}
			return &plan{ops: []Op{opPut(core.ActionCreate, b, budgetDetails(b))}}, nil
		},
	})
	if err != nil {
		return core.Budget{}, err
	}
	return stored(c, core.KindBudget, b.ID, b), nil
}

func (c *Coordinator) UpdateBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	err := c.run(ctx, mutation{
		name: "update_budget",
		ids:  fixed(b.ID),
		build: func(s *Snapshot) (*plan, error) {
			if _, ok := s.Budgets[b.ID]; !ok {
				return nil, notFound("budget", b.ID)
			}
			if err := c.checkBudget(s, b); err != nil {
				return nil, err
			}
			return &plan{ops: []Op{opPut(core.ActionUpdate, b, budgetDetails(b))}}, nil
		},
	})
	if err != nil {
		return core.Budget{}, err
	}
	return stored(c, core.KindBudget, b.ID, b), nil
}

func (c *Coordinator) DeleteBudget(ctx context.Context, id string) error {
	return c.run(ctx, mutation{
		name: "delete_budget",
		ids:  fixed(id),
		build: func(s *Snapshot) (*plan, error) {
			b, ok := s.Budgets[id]
			if !ok {
				return nil, notFound("budget", id)
			}
			return &plan{ops: []Op{opRemove(core.ActionDelete, core.KindBudget, id, budgetDetails(b))}}, nil
		},
	})
}

func (c *Coordinator) AddInvestment(ctx context.Context, draft core.Investment) (core.Investment, error) {
	inv := draft
	inv.ID = c.cfg.NewID()
	inv.CreatedAt = c.cfg.Now()
	err := c.run(ctx, mutation{
		name: "add_investment",
		ids:  fixed(inv.ID),
		build: func(*Snapshot) (*plan, error) {
			if err := inv.Validate(); err != nil {
				return nil, invalid("investment", err)
			}
			return &plan{ops: []Op{opPut(core.ActionCreate, inv, inv.Name)}}, nil
		},
	})
	if err != nil {
		return core.Investment{}, err
	}
	return stored(c, core.KindInvestment, inv.ID, inv), nil
}

func (c *Coordinator) UpdateInvestment(ctx context.Context, inv core.Investment) (core.Investment, error) {
	err := c.run(ctx, mutation{
		name: "update_investment",
		ids:  fixed(inv.ID),
		build: func(s *Snapshot) (*plan, error) {
			cur, ok := s.Investments[inv.ID]
			if !ok {
				return nil, notFound("investment", inv.ID)
			}
			inv.CreatedAt = cur.CreatedAt
			if err := inv.Validate(); err != nil {
				return nil, invalid("investment", err)
			}
			return &plan{ops: []Op{opPut(core.ActionUpdate, inv, inv.Name)}}, nil
		},
	})
	if err != nil {
		return core.Investment{}, err
	}
	return stored(c, core.KindInvestment, inv.ID, inv), nil
}

func (c *Coordinator) DeleteInvestment(ctx context.Context, id string) error {
	return c.run(ctx, mutation{
		name: "delete_investment",
		ids:  fixed(id),
		build: func(s *Snapshot) (*plan, error) {
			inv, ok := s.Investments[id]
			if !ok {
				return nil, notFound("investment", id)
			}
			return &plan{ops: []Op{opRemove(core.ActionDelete, core.KindInvestment, id, inv.Name)}}, nil
		},
	})
}

func (c *Coordinator) AddAccount(ctx context.Context, draft core.Account) (core.Account, error) {
	a := draft
	if a.ID == "" {
		a.ID = c.cfg.NewID()
	}
	a.CreatedAt = c.cfg.Now()
	if a.Kind == "" {
		a.Kind = core.AccountChecking
	}
	err := c.run(ctx, mutation{
		name: "add_account",
		ids:  fixed(a.ID),
		build: func(s *Snapshot) (*plan, error) {
			if _, exists := s.Accounts[a.ID]; exists {
				return nil, invalidf("id", "account %q already exists", a.ID)
			}
			if err := a.Validate(); err != nil {
				return nil, invalid("account", err)
			}
			return &plan{ops: []Op{opPut(core.ActionCreate, a, a.Name)}}, nil
		},
	})
	if err != nil {
		return core.Account{}, err
	}
	return stored(c, core.KindAccount, a.ID, a), nil
}

func (c *Coordinator) UpdateAccount(ctx context.Context, a core.Account) (core.Account, error) {
	err := c.run(ctx, mutation{
		name: "update_account",
		ids:  fixed(a.ID),
		build: func(s *Snapshot) (*plan, error) {
			cur, ok := s.Accounts[a.ID]
			if !ok {
				return nil, notFound("account", a.ID)
			}
			a.CreatedAt = cur.CreatedAt
			if err := a.Validate(); err != nil {
				return nil, invalid("account", err)
			}
			return &plan{ops: []Op{opPut(core.ActionUpdate, a, a.Name)}}, nil
		},
	})
	if err != nil {
		return core.Account{}, err
	}
	return stored(c, core.KindAccount, a.ID, a), nil
}

// DeleteAccount removes an account that no transaction or schedule references.
func (c *Coordinator) DeleteAccount(ctx context.Context, id string) error {
	return c.run(ctx, mutation{
		name: "delete_account",
		ids:  fixed(id),
		build: func(s *Snapshot) (*plan, error) {
			a, ok := s.Accounts[id]
			if !ok {
				return nil, notFound("account", id)
			}
			for _, t := range s.Transactions {
				if t.AccountID == id {
					return nil, inconsistent(id, "account is referenced by transaction %s", t.ID)
				}
			}
			for _, st := range s.Scheduled {
				if st.AccountID == id {
					return nil, inconsistent(id, "account is referenced by scheduled transaction %s", st.ID)
				}
			}
			return &plan{ops: []Op{opRemove(core.ActionDelete, core.KindAccount, id, a.Name)}}, nil
		},
	})
}
