package aggregate

import (
	"cmp"
	"slices"

	"financehub/internal/core"
	"financehub/internal/ledger"
	"financehub/internal/recurrence"
)

type BudgetStatus struct {
	Budget    core.Budget `json:"budget"`
	Spent     core.Money  `json:"spent"`
	Remaining core.Money  `json:"remaining"` // negative once over budget
	Percent   int         `json:"percent"`
	Over      bool        `json:"over"`
}

// BudgetUsage compares the monthly budgets with the expenses of today's
// month in each category. Budgets of other periods are not evaluated.
func BudgetUsage(s *ledger.Snapshot, today core.Date) []BudgetStatus {
	spent := make(map[string]core.Money)
	for _, c := range CategoryBreakdown(s, today) {
		spent[c.CategoryID] = c.Amount
	}
	var out []BudgetStatus
	for _, b := range s.BudgetList() {
		if b.Period != core.PeriodMonthly {
			continue
		}
		st := BudgetStatus{Budget: b, Spent: spent[b.CategoryID]}
		st.Remaining = b.Amount.Sub(st.Spent)
		st.Over = st.Remaining.IsNegative()
		if b.Amount.IsPositive() {
			st.Percent = int(st.Spent.Cents * 100 / b.Amount.Cents)
		}
		out = append(out, st)
	}
	return out
}

type UpcomingBill struct {
	ScheduledID string     `json:"scheduled_id"`
	Description string     `json:"description"`
	Amount      core.Money `json:"amount"`
	DueDate     core.Date  `json:"due_date"`
	DaysUntil   int        `json:"days_until"` // negative when overdue
}

// Upcoming lists every unpaid occurrence due up to days from today, overdue
// ones included, earliest first.
func Upcoming(s *ledger.Snapshot, today core.Date, days int) []UpcomingBill {
	if days < 0 {
		days = 0
	}
	until := today.AddDays(days)
	var out []UpcomingBill
	for _, st := range s.ScheduledList() {
		dates, err := recurrence.OccurrencesBetween(st.StartDate, st.Frequency, st.NextDueDate, until)
		if err != nil {
			continue
		}
		for _, d := range dates {
			out = append(out, UpcomingBill{
				ScheduledID: st.ID,
				Description: st.Description,
				Amount:      st.Amount,
				DueDate:     d,
				DaysUntil:   today.DaysUntil(d),
			})
		}
	}
	slices.SortStableFunc(out, func(a, b UpcomingBill) int {
		if c := a.DueDate.Compare(b.DueDate.Time); c != 0 {
			return c
		}
		return cmp.Compare(a.Description, b.Description)
	})
	return out
}
