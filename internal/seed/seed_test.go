package seed

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"financehub/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("seed-%03d", n)
	}
}

func kinds(records []core.Record) map[core.Kind]int {
	out := make(map[core.Kind]int)
	for _, r := range records {
		out[r.RecordKind()]++
	}
	return out
}

func TestDemoFixture(t *testing.T) {
	f := Demo()
	records, err := f.Records(Options{
		Now:   time.Date(2024, 5, 21, 10, 0, 0, 0, time.UTC),
		NewID: sequentialIDs(),
	})
	require.NoError(t, err)

	assert.Equal(t, map[core.Kind]int{
		core.KindAccount:     3,
		core.KindTransaction: 7,
		core.KindGoal:        2,
		core.KindDebt:        1,
		core.KindBudget:      3,
		core.KindScheduled:   2,
		core.KindInvestment:  2,
	}, kinds(records))

	for _, r := range records {
		switch v := r.(type) {
		case core.Transaction:
			if v.Description == "Feira" {
				assert.Equal(t, "acc-wallet", v.AccountID)
				assert.Equal(t, int64(-5840), v.Amount.Cents)
			}
			if v.Description == "Salário" {
				assert.Equal(t, core.TypeIncome, v.Type)
				assert.Equal(t, "acc-main", v.AccountID)
			}
		case core.ScheduledTransaction:
			if v.ID == "sched-internet" {
				assert.Equal(t, "2024-06-10", v.NextDueDate.String())
			}
		case core.Investment:
			if v.Name == "Fundo imobiliário" {
				assert.Equal(t, v.InvestedAmount, v.CurrentValue)
			}
		case core.Debt:
			assert.Equal(t, core.CategoryDebts, v.Category)
			assert.Equal(t, core.DebtActive, v.Status)
		}
	}
}

func TestParseRejectsUnknownFields(t *testing.T) {
	_, err := Parse(strings.NewReader(`
accounts:
  - id: a
    name: A
transactionz: []
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "transactionz")
}

func TestParseRequiresAccounts(t *testing.T) {
	_, err := Parse(strings.NewReader("goals: []\n"))
	assert.ErrorContains(t, err, "at least one account")

	_, err = Parse(strings.NewReader(""))
	assert.ErrorContains(t, err, "empty")
}

func TestRecordsCollectsEveryProblem(t *testing.T) {
	f, err := Parse(strings.NewReader(`
accounts:
  - id: a
    name: A
  - id: a
    name: Again
transactions:
  - description: Lunch
    amount: "12.x"
    date: "2024-01-01"
    category: food
  - description: Taxi
    amount: "-10"
    category: nope
    account: ghost
budgets:
  - category: food
    amount: "100"
  - category: food
    amount: "200"
scheduled:
  - description: Rent
    amount: "-1000"
    frequency: Fortnightly
    start: "2024-01-01"
    category: housing
`))
	require.NoError(t, err)

	_, err = f.Records(Options{NewID: sequentialIDs()})
	require.Error(t, err)
	msg := err.Error()
	for _, want := range []string{
		`accounts[1]: duplicate account id "a"`,
		`transactions[0]: amount "12.x"`,
		`transactions[1]: unknown account "ghost"`,
		`transactions[1]: unknown category "nope"`,
		`budgets[1]: duplicate budget for food|monthly`,
		`scheduled[0]`,
	} {
		assert.Contains(t, msg, want)
	}
}

func TestCustomCategories(t *testing.T) {
	f, err := Parse(strings.NewReader(`
categories:
  - id: pets
    name: Pets
    kind: expense
accounts:
  - name: Main
transactions:
  - description: Ração
    amount: "-80"
    date: "2024-03-01"
    category: pets
  - description: Mercado
    amount: "-80"
    date: "2024-03-01"
    category: food
`))
	require.NoError(t, err)

	reg, err := f.Registry()
	require.NoError(t, err)
	assert.True(t, reg.Has("pets"))
	assert.True(t, reg.Has(core.CategoryGoals))
	assert.False(t, reg.Has("food"))

	_, err = f.Records(Options{NewID: sequentialIDs()})
	assert.ErrorContains(t, err, `unknown category "food"`)
}

func TestRecordsDefaults(t *testing.T) {
	f, err := Parse(strings.NewReader(`
accounts:
  - name: Main
transactions:
  - description: Café
    amount: "-5"
    category: food
goals:
  - name: Done
    target: "100"
    current: "150"
`))
	require.NoError(t, err)

	now := time.Date(2024, 8, 3, 9, 0, 0, 0, time.UTC)
	records, err := f.Records(Options{Now: now, NewID: sequentialIDs()})
	require.NoError(t, err)
	require.Len(t, records, 3)

	acct := records[0].(core.Account)
	assert.Equal(t, "seed-001", acct.ID)
	assert.Equal(t, core.AccountChecking, acct.Kind)

	tx := records[1].(core.Transaction)
	assert.Equal(t, acct.ID, tx.AccountID)
	assert.Equal(t, "2024-08-03", tx.Date.String())
	assert.Equal(t, core.StatusCompleted, tx.Status)
	assert.Equal(t, core.UserEntered(), tx.Origin)

	goal := records[2].(core.Goal)
	assert.Equal(t, core.GoalCompleted, goal.Status)
}
