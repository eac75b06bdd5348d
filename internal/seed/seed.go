// Package seed loads YAML fixtures into ledger records: demo data for the
// memory backend and the input of the seed command.
package seed

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"financehub/internal/core"
	"financehub/internal/recurrence"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

//go:embed demo.yaml
var demoFixture []byte

// Fixture is the YAML document. Amounts are decimal strings with a leading
// minus for outflows, in the same grammar the API accepts.
type Fixture struct {
	Categories   []core.Category `yaml:"categories,omitempty"`
	Accounts     []Account       `yaml:"accounts"`
	Transactions []Transaction   `yaml:"transactions,omitempty"`
	Goals        []Goal          `yaml:"goals,omitempty"`
	Debts        []Debt          `yaml:"debts,omitempty"`
	Budgets      []Budget        `yaml:"budgets,omitempty"`
	Scheduled    []Scheduled     `yaml:"scheduled,omitempty"`
	Investments  []Investment    `yaml:"investments,omitempty"`
}

type Account struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
	Kind string `yaml:"kind,omitempty"`
}

type Transaction struct {
	ID          string `yaml:"id,omitempty"`
	Description string `yaml:"description"`
	Amount      string `yaml:"amount"`
	Date        string `yaml:"date"`
	Category    string `yaml:"category"`
	Account     string `yaml:"account,omitempty"`
	Status      string `yaml:"status,omitempty"`
	Starred     bool   `yaml:"starred,omitempty"`
	Notes       string `yaml:"notes,omitempty"`
}

type Goal struct {
	ID       string `yaml:"id,omitempty"`
	Name     string `yaml:"name"`
	Target   string `yaml:"target"`
	Current  string `yaml:"current,omitempty"`
	Deadline string `yaml:"deadline,omitempty"`
}

type Debt struct {
	ID           string  `yaml:"id,omitempty"`
	Name         string  `yaml:"name"`
	Total        string  `yaml:"total"`
	Paid         string  `yaml:"paid,omitempty"`
	InterestRate float64 `yaml:"interest_rate,omitempty"`
	Category     string  `yaml:"category,omitempty"`
}

type Budget struct {
	ID       string `yaml:"id,omitempty"`
	Category string `yaml:"category"`
	Amount   string `yaml:"amount"`
	Period   string `yaml:"period,omitempty"`
}

type Scheduled struct {
	ID          string `yaml:"id,omitempty"`
	Description string `yaml:"description"`
	Amount      string `yaml:"amount"`
	Frequency   string `yaml:"frequency"`
	Start       string `yaml:"start"`
	Category    string `yaml:"category"`
	Account     string `yaml:"account,omitempty"`
}

type Investment struct {
	ID       string `yaml:"id,omitempty"`
	Name     string `yaml:"name"`
	Kind     string `yaml:"kind,omitempty"`
	Invested string `yaml:"invested"`
	Current  string `yaml:"current,omitempty"`
}

// Parse decodes a fixture, rejecting unknown keys so typos fail loudly.
func Parse(r io.Reader) (*Fixture, error) {
	var f Fixture
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("fixture is empty")
		}
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if len(f.Accounts) == 0 {
		return nil, errors.New("fixture must declare at least one account")
	}
	return &f, nil
}

func LoadFile(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture file: %w", err)
	}
	return Parse(bytes.NewReader(data))
}

// Demo returns the built-in demo fixture.
func Demo() *Fixture {
	f, err := Parse(bytes.NewReader(demoFixture))
	if err != nil {
		panic(err)
	}
	return f
}

// Registry returns the fixture's categories, or the built-in set when it
// declares none.
func (f *Fixture) Registry() (*core.CategoryRegistry, error) {
	if len(f.Categories) == 0 {
		return core.DefaultCategories(), nil
	}
	return core.NewCategoryRegistry(f.Categories...)
}

// Options controls how fixture rows become records.
type Options struct {
	Now   time.Time
	NewID func() string
	// Categories validates category references; nil uses Registry().
	Categories *core.CategoryRegistry
}

type builder struct {
	opts     Options
	today    core.Date
	accounts map[string]bool
	first    string
	errs     []string
}

func (b *builder) fail(format string, args ...any) {
	b.errs = append(b.errs, fmt.Sprintf(format, args...))
}

func (b *builder) id(given string) string {
	if id := strings.TrimSpace(given); id != "" {
		return id
	}
	return b.opts.NewID()
}

func (b *builder) account(ref, where string) string {
	if ref == "" {
		return b.first
	}
	if !b.accounts[ref] {
		b.fail("%s: unknown account %q", where, ref)
	}
	return ref
}

func (b *builder) category(ref, where string) {
	if !b.opts.Categories.Has(ref) {
		b.fail("%s: unknown category %q", where, ref)
	}
}

func (b *builder) money(s, where string, signed bool) core.Money {
	var (
		m   core.Money
		err error
	)
	switch {
	case signed:
		m, err = core.ParseSignedAmount(s)
	case strings.Trim(strings.TrimSpace(s), "0.,") == "":
		return core.Money{}
	default:
		var cents int64
		cents, err = core.ParseDecimalToCents(s)
		m = core.Cents(cents)
	}
	if err != nil {
		b.fail("%s: amount %q: %v", where, s, err)
	}
	return m
}

func (b *builder) date(s, where string) core.Date {
	if strings.TrimSpace(s) == "" {
		return core.Date{}
	}
	d, err := core.ParseDate(s)
	if err != nil {
		b.fail("%s: %v", where, err)
	}
	return d
}

func (b *builder) validate(r core.Record, err error, where string) core.Record {
	if err != nil {
		b.fail("%s: %v", where, err)
	}
	return r
}

// Records converts the fixture into validated records. Every problem found
// is reported in one error.
func (f *Fixture) Records(opts Options) ([]core.Record, error) {
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	if opts.Categories == nil {
		reg, err := f.Registry()
		if err != nil {
			return nil, err
		}
		opts.Categories = reg
	}
	b := &builder{opts: opts, today: core.DateOf(opts.Now), accounts: make(map[string]bool)}
	var out []core.Record

	for i, a := range f.Accounts {
		where := fmt.Sprintf("accounts[%d]", i)
		acct := core.Account{ID: b.id(a.ID), Name: a.Name, Kind: core.AccountKind(a.Kind), CreatedAt: opts.Now}
		if acct.Kind == "" {
			acct.Kind = core.AccountChecking
		}
		if b.accounts[acct.ID] {
			b.fail("%s: duplicate account id %q", where, acct.ID)
		}
		b.accounts[acct.ID] = true
		if b.first == "" {
			b.first = acct.ID
		}
		out = append(out, b.validate(acct, acct.Validate(), where))
	}

	for i, t := range f.Transactions {
		where := fmt.Sprintf("transactions[%d]", i)
		tx := core.Transaction{
			ID:          b.id(t.ID),
			Description: t.Description,
			Amount:      b.money(t.Amount, where, true),
			Date:        b.date(t.Date, where),
			CategoryID:  t.Category,
			AccountID:   b.account(t.Account, where),
			Status:      core.TransactionStatus(t.Status),
			Origin:      core.UserEntered(),
			Starred:     t.Starred,
			Notes:       t.Notes,
			CreatedAt:   opts.Now,
		}
		tx.Type = core.TypeForAmount(tx.Amount)
		if tx.Status == "" {
			tx.Status = core.StatusCompleted
		}
		if tx.Date.IsEmpty() {
			tx.Date = b.today
		}
		b.category(t.Category, where)
		out = append(out, b.validate(tx, tx.Validate(), where))
	}

	for i, g := range f.Goals {
		where := fmt.Sprintf("goals[%d]", i)
		goal := core.Goal{
			ID:            b.id(g.ID),
			Name:          g.Name,
			TargetAmount:  b.money(g.Target, where, false),
			CurrentAmount: b.money(g.Current, where, false),
			Deadline:      b.date(g.Deadline, where),
			Status:        core.GoalInProgress,
			CreatedAt:     opts.Now,
		}
		if goal.Reached() {
			goal.Status = core.GoalCompleted
		}
		out = append(out, b.validate(goal, goal.Validate(), where))
	}

	for i, d := range f.Debts {
		where := fmt.Sprintf("debts[%d]", i)
		debt := core.Debt{
			ID:           b.id(d.ID),
			Name:         d.Name,
			TotalAmount:  b.money(d.Total, where, false),
			PaidAmount:   b.money(d.Paid, where, false),
			InterestRate: d.InterestRate,
			Category:     d.Category,
			Status:       core.DebtActive,
			CreatedAt:    opts.Now,
		}
		if debt.Category == "" {
			debt.Category = core.CategoryDebts
		}
		if debt.Settled() {
			debt.Status = core.DebtPaid
		}
		b.category(debt.Category, where)
		out = append(out, b.validate(debt, debt.Validate(), where))
	}

	seenBudget := make(map[string]bool)
	for i, bd := range f.Budgets {
		where := fmt.Sprintf("budgets[%d]", i)
		budget := core.Budget{
			ID:         b.id(bd.ID),
			CategoryID: bd.Category,
			Amount:     b.money(bd.Amount, where, false),
			Period:     core.BudgetPeriod(bd.Period),
		}
		if budget.Period == "" {
			budget.Period = core.PeriodMonthly
		}
		key := budget.CategoryID + "|" + string(budget.Period)
		if seenBudget[key] {
			b.fail("%s: duplicate budget for %s", where, key)
		}
		seenBudget[key] = true
		b.category(bd.Category, where)
		out = append(out, b.validate(budget, budget.Validate(), where))
	}

	for i, s := range f.Scheduled {
		where := fmt.Sprintf("scheduled[%d]", i)
		st := core.ScheduledTransaction{
			ID:          b.id(s.ID),
			Description: s.Description,
			Amount:      b.money(s.Amount, where, true),
			Frequency:   core.Frequency(s.Frequency),
			StartDate:   b.date(s.Start, where),
			CategoryID:  s.Category,
		}
		if s.Account != "" {
			st.AccountID = b.account(s.Account, where)
		}
		b.category(s.Category, where)
		if err := st.Validate(); err != nil {
			b.fail("%s: %v", where, err)
			continue
		}
		next, err := recurrence.Refresh(st, b.today)
		if err != nil {
			b.fail("%s: %v", where, err)
			continue
		}
		st.NextDueDate = next
		out = append(out, st)
	}

	for i, inv := range f.Investments {
		where := fmt.Sprintf("investments[%d]", i)
		in := core.Investment{
			ID:             b.id(inv.ID),
			Name:           inv.Name,
			Kind:           inv.Kind,
			InvestedAmount: b.money(inv.Invested, where, false),
			CurrentValue:   b.money(inv.Current, where, false),
			CreatedAt:      opts.Now,
		}
		if inv.Current == "" {
			in.CurrentValue = in.InvestedAmount
		}
		out = append(out, b.validate(in, in.Validate(), where))
	}

	if len(b.errs) > 0 {
		return nil, fmt.Errorf("invalid fixture:\n  %s", strings.Join(b.errs, "\n  "))
	}
	return out, nil
}
