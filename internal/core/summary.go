package core

// CategoryAmount represents an amount aggregated by category id.
type CategoryAmount struct {
	CategoryID string `json:"category_id"`
	Amount     Money  `json:"amount"`
}

// MonthOverview is a compact summary for a specific year+month.
type MonthOverview struct {
	Year       int              `json:"year"`
	Month      int              `json:"month"` // 1-12
	Income     Money            `json:"income"`
	Expenses   Money            `json:"expenses"` // positive magnitude
	ByCategory []CategoryAmount `json:"by_category,omitempty"`
}

// Label returns the YYYY-MM key of the month.
func (m MonthOverview) Label() string {
	return NewDate(m.Year, m.Month, 1).Format("2006-01")
}

// Net is income minus expenses.
func (m MonthOverview) Net() Money {
	return m.Income.Sub(m.Expenses)
}
