package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	Daily    Frequency = "Diario"
	Weekly   Frequency = "Semanal"
	Biweekly Frequency = "Quinzenal"
	Monthly  Frequency = "Mensal"
	Yearly   Frequency = "Anual"
)

const (
	TypeIncome   TransactionType = "receita"
	TypeExpense  TransactionType = "despesa"
	TypeTransfer TransactionType = "transfer"
)

const (
	StatusPending   TransactionStatus = "pending"
	StatusCompleted TransactionStatus = "completed"
	StatusScheduled TransactionStatus = "scheduled"
)

const (
	GoalInProgress GoalStatus = "EM_ANDAMENTO"
	GoalCompleted  GoalStatus = "CONCLUIDO"
)

const (
	DebtActive DebtStatus = "ATIVA"
	DebtPaid   DebtStatus = "PAGA"
)

// Only PeriodMonthly is evaluated by aggregates; the other periods are stored as-is.
const (
	PeriodMonthly BudgetPeriod = "monthly"
	PeriodWeekly  BudgetPeriod = "weekly"
	PeriodYearly  BudgetPeriod = "yearly"
)

const (
	AccountChecking AccountKind = "checking"
	AccountSavings  AccountKind = "savings"
	AccountWallet   AccountKind = "wallet"
	AccountCredit   AccountKind = "credit"
)

const maxDescriptionLen = 200

type (
	Frequency         string
	TransactionType   string
	TransactionStatus string
	GoalStatus        string
	DebtStatus        string
	BudgetPeriod      string
	AccountKind       string

	Transaction struct {
		ID          string
		Description string
		Amount      Money // signed; negative is money leaving the account
		Type        TransactionType
		Date        Date
		CategoryID  string
		AccountID   string
		Status      TransactionStatus
		Origin      Origin
		Starred     bool
		Notes       string
		CreatedAt   time.Time
		DeletedAt   *time.Time
	}

	Goal struct {
		ID            string     `json:"id"`
		Name          string     `json:"name"`
		TargetAmount  Money      `json:"target_amount"`
		CurrentAmount Money      `json:"current_amount"`
		Deadline      Date       `json:"deadline"`
		Status        GoalStatus `json:"status"`
		CreatedAt     time.Time  `json:"created_at"`
	}

	Debt struct {
		ID           string     `json:"id"`
		Name         string     `json:"name"`
		TotalAmount  Money      `json:"total_amount"`
		PaidAmount   Money      `json:"paid_amount"`
		InterestRate float64    `json:"interest_rate"` // yearly percentage
		Category     string     `json:"category"`
		Status       DebtStatus `json:"status"`
		CreatedAt    time.Time  `json:"created_at"`
	}

	Budget struct {
		ID         string       `json:"id"`
		CategoryID string       `json:"category_id"`
		Amount     Money        `json:"amount"`
		Period     BudgetPeriod `json:"period"`
	}

	ScheduledTransaction struct {
		ID          string    `json:"id"`
		Description string    `json:"description"`
		Amount      Money     `json:"amount"` // signed like Transaction.Amount
		Frequency   Frequency `json:"frequency"`
		StartDate   Date      `json:"start_date"`
		NextDueDate Date      `json:"next_due_date"`
		CategoryID  string    `json:"category_id"`
		AccountID   string    `json:"account_id,omitempty"`
	}

	Investment struct {
		ID             string    `json:"id"`
		Name           string    `json:"name"`
		Kind           string    `json:"kind"`
		InvestedAmount Money     `json:"invested_amount"`
		CurrentValue   Money     `json:"current_value"`
		CreatedAt      time.Time `json:"created_at"`
	}

	Account struct {
		ID        string      `json:"id"`
		Name      string      `json:"name"`
		Kind      AccountKind `json:"kind"`
		CreatedAt time.Time   `json:"created_at"`
	}
)

var (
	ErrInvalidDay         = errors.New("invalid day")
	ErrInvalidMonth       = errors.New("invalid month")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrAmountSign         = errors.New("amount sign does not match transaction type")
	ErrEmptyDescription   = errors.New("empty description")
	ErrDescriptionTooLong = fmt.Errorf("description too long (max %d characters)", maxDescriptionLen)
	ErrEmptyName          = errors.New("empty name")
	ErrEmptyCategory      = errors.New("empty category")
	ErrEmptyAccount       = errors.New("empty account")
	ErrInvalidType        = errors.New("invalid transaction type")
	ErrInvalidStatus      = errors.New("invalid status")
	ErrInvalidFrequency   = errors.New("invalid frequency")
	ErrInvalidPeriod      = errors.New("invalid budget period")
)

func (f Frequency) Valid() bool {
	switch f {
	case Daily, Weekly, Biweekly, Monthly, Yearly:
		return true
	}
	return false
}

func (p BudgetPeriod) Valid() bool {
	switch p {
	case PeriodMonthly, PeriodWeekly, PeriodYearly:
		return true
	}
	return false
}

// TypeForAmount returns the non-transfer type implied by the sign of amount.
func TypeForAmount(m Money) TransactionType {
	if m.IsNegative() {
		return TypeExpense
	}
	return TypeIncome
}

func validateDescription(s string) error {
	if len(strings.TrimSpace(s)) == 0 {
		return ErrEmptyDescription
	}
	if len(s) > maxDescriptionLen {
		return ErrDescriptionTooLong
	}
	return nil
}

// IsDeleted reports whether the transaction is soft-deleted.
func (t Transaction) IsDeleted() bool { return t.DeletedAt != nil }

// Validate checks the shape of a transaction. Referential checks (category,
// account) are done by the ledger against its current state.
func (t Transaction) Validate() error {
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if err := validateDescription(t.Description); err != nil {
		return err
	}
	if t.Amount.IsZero() {
		return ErrInvalidAmount
	}
	switch t.Type {
	case TypeIncome:
		if t.Amount.IsNegative() {
			return ErrAmountSign
		}
	case TypeExpense:
		if !t.Amount.IsNegative() {
			return ErrAmountSign
		}
	case TypeTransfer:
	default:
		return ErrInvalidType
	}
	switch t.Status {
	case StatusPending, StatusCompleted, StatusScheduled:
	default:
		return ErrInvalidStatus
	}
	if strings.TrimSpace(t.CategoryID) == "" {
		return ErrEmptyCategory
	}
	if strings.TrimSpace(t.AccountID) == "" {
		return ErrEmptyAccount
	}
	return t.Origin.Validate()
}

func (g Goal) Validate() error {
	if strings.TrimSpace(g.Name) == "" {
		return ErrEmptyName
	}
	if err := g.TargetAmount.Validate(); err != nil {
		return fmt.Errorf("target amount: %w", err)
	}
	if g.CurrentAmount.IsNegative() {
		return fmt.Errorf("current amount: %w", ErrInvalidAmount)
	}
	if !g.Deadline.IsEmpty() {
		if err := g.Deadline.Validate(); err != nil {
			return fmt.Errorf("deadline: %w", err)
		}
	}
	switch g.Status {
	case GoalInProgress, GoalCompleted:
	default:
		return ErrInvalidStatus
	}
	return nil
}

// Reached reports whether the goal's balance covers its target.
func (g Goal) Reached() bool { return g.CurrentAmount.Cents >= g.TargetAmount.Cents }

// Remaining is the amount still missing to reach the target, never negative.
func (g Goal) Remaining() Money {
	if g.Reached() {
		return Money{}
	}
	return g.TargetAmount.Sub(g.CurrentAmount)
}

func (d Debt) Validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return ErrEmptyName
	}
	if err := d.TotalAmount.Validate(); err != nil {
		return fmt.Errorf("total amount: %w", err)
	}
	if d.PaidAmount.IsNegative() {
		return fmt.Errorf("paid amount: %w", ErrInvalidAmount)
	}
	if d.InterestRate < 0 {
		return errors.New("interest rate cannot be negative")
	}
	switch d.Status {
	case DebtActive, DebtPaid:
	default:
		return ErrInvalidStatus
	}
	return nil
}

// Settled reports whether the paid amount covers the total.
func (d Debt) Settled() bool { return d.PaidAmount.Cents >= d.TotalAmount.Cents }

// Remaining is the outstanding balance, never negative.
func (d Debt) Remaining() Money {
	if d.Settled() {
		return Money{}
	}
	return d.TotalAmount.Sub(d.PaidAmount)
}

func (b Budget) Validate() error {
	if strings.TrimSpace(b.CategoryID) == "" {
		return ErrEmptyCategory
	}
	if err := b.Amount.Validate(); err != nil {
		return err
	}
	if !b.Period.Valid() {
		return ErrInvalidPeriod
	}
	return nil
}

func (s ScheduledTransaction) Validate() error {
	if err := s.StartDate.Validate(); err != nil {
		return errors.New("invalid start date: " + err.Error())
	}
	if !s.Frequency.Valid() {
		return ErrInvalidFrequency
	}
	if err := validateDescription(s.Description); err != nil {
		return err
	}
	if s.Amount.IsZero() {
		return ErrInvalidAmount
	}
	if strings.TrimSpace(s.CategoryID) == "" {
		return ErrEmptyCategory
	}
	return nil
}

func (i Investment) Validate() error {
	if strings.TrimSpace(i.Name) == "" {
		return ErrEmptyName
	}
	if i.InvestedAmount.IsNegative() {
		return fmt.Errorf("invested amount: %w", ErrInvalidAmount)
	}
	if i.CurrentValue.IsNegative() {
		return fmt.Errorf("current value: %w", ErrInvalidAmount)
	}
	return nil
}

func (a Account) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return ErrEmptyName
	}
	switch a.Kind {
	case AccountChecking, AccountSavings, AccountWallet, AccountCredit:
	default:
		return fmt.Errorf("invalid account kind %q", a.Kind)
	}
	return nil
}
