// Package aggregate derives read models from ledger snapshots: balances,
// monthly series, budget usage, the health score and gamification progress.
// Every function is pure over its inputs and tolerates empty snapshots.
package aggregate

import (
	"cmp"
	"slices"

	"financehub/internal/core"
	"financehub/internal/ledger"
)

// DefaultChartMonths is the window used when MonthlyChartData gets months <= 0.
const DefaultChartMonths = 6

type Summary struct {
	TotalBalance    core.Money `json:"total_balance"`
	MonthlyIncome   core.Money `json:"monthly_income"`
	MonthlyExpenses core.Money `json:"monthly_expenses"` // positive magnitude
}

// ComputeSummary sums every live transaction into the balance. Income and
// expenses only count receita and despesa dated in today's month; transfer
// legs move money between accounts and only affect the balance.
func ComputeSummary(s *ledger.Snapshot, today core.Date) Summary {
	var out Summary
	for _, t := range s.Transactions {
		if t.IsDeleted() {
			continue
		}
		out.TotalBalance = out.TotalBalance.Add(t.Amount)
		if !t.Date.SameMonth(today) {
			continue
		}
		switch t.Type {
		case core.TypeIncome:
			out.MonthlyIncome = out.MonthlyIncome.Add(t.Amount)
		case core.TypeExpense:
			out.MonthlyExpenses = out.MonthlyExpenses.Add(t.Amount.Abs())
		}
	}
	return out
}

type AccountBalance struct {
	AccountID string     `json:"account_id"`
	Name      string     `json:"name"`
	Balance   core.Money `json:"balance"`
}

// AccountBalances returns the balance of every account, in account creation
// order. Transactions pointing at unknown accounts are ignored.
func AccountBalances(s *ledger.Snapshot) []AccountBalance {
	sums := make(map[string]core.Money, len(s.Accounts))
	for _, t := range s.Transactions {
		if !t.IsDeleted() {
			sums[t.AccountID] = sums[t.AccountID].Add(t.Amount)
		}
	}
	accounts := s.AccountList()
	out := make([]AccountBalance, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, AccountBalance{AccountID: a.ID, Name: a.Name, Balance: sums[a.ID]})
	}
	return out
}

// MonthlyChartData returns income and expense totals for the trailing months
// ending with today's month, oldest first. Months without activity are
// present with zero totals.
func MonthlyChartData(s *ledger.Snapshot, today core.Date, months int) []core.MonthOverview {
	if months <= 0 {
		months = DefaultChartMonths
	}
	first := today.FirstOfMonth().AddMonthsClamped(-(months - 1))
	out := make([]core.MonthOverview, months)
	for i := range out {
		m := first.AddMonthsClamped(i)
		out[i] = core.MonthOverview{Year: m.Year(), Month: m.Month()}
	}
	for _, t := range s.Transactions {
		if t.IsDeleted() {
			continue
		}
		i := first.MonthsUntil(t.Date.FirstOfMonth())
		if i < 0 || i >= months {
			continue
		}
		switch t.Type {
		case core.TypeIncome:
			out[i].Income = out[i].Income.Add(t.Amount)
		case core.TypeExpense:
			out[i].Expenses = out[i].Expenses.Add(t.Amount.Abs())
		}
	}
	return out
}

// CategoryBreakdown returns the month's expenses per category, largest first.
func CategoryBreakdown(s *ledger.Snapshot, month core.Date) []core.CategoryAmount {
	sums := make(map[string]core.Money)
	for _, t := range s.Transactions {
		if t.IsDeleted() || t.Type != core.TypeExpense || !t.Date.SameMonth(month) {
			continue
		}
		sums[t.CategoryID] = sums[t.CategoryID].Add(t.Amount.Abs())
	}
	out := make([]core.CategoryAmount, 0, len(sums))
	for id, amount := range sums {
		out = append(out, core.CategoryAmount{CategoryID: id, Amount: amount})
	}
	slices.SortFunc(out, func(a, b core.CategoryAmount) int {
		if c := cmp.Compare(b.Amount.Cents, a.Amount.Cents); c != 0 {
			return c
		}
		return cmp.Compare(a.CategoryID, b.CategoryID)
	})
	return out
}
