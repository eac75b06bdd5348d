package core

import (
	"errors"
	"testing"
	"time"
)

func TestDateValidate(t *testing.T) {
	cases := []struct {
		d  Date
		ok bool
	}{
		{NewDate(2025, 1, 1), true},
		{NewDate(2025, 12, 31), true},
		{Date{Time: time.Time{}}, false}, // zero time
	}
	for i, tc := range cases {
		err := tc.d.Validate()
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestMoneyValidate(t *testing.T) {
	if err := (Money{Cents: 1}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (Money{Cents: 0}).Validate(); err == nil {
		t.Fatalf("expected error for zero")
	}
}

func validTransaction() Transaction {
	return Transaction{
		ID:          "t1",
		Description: "Mercado",
		Amount:      Cents(-5000),
		Type:        TypeExpense,
		Date:        NewDate(2025, 1, 1),
		CategoryID:  "food",
		AccountID:   "acc",
		Status:      StatusCompleted,
	}
}

func TestTransactionValidate(t *testing.T) {
	if err := validTransaction().Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Transaction)
		want   error
	}{
		{"zero date", func(tx *Transaction) { tx.Date = Date{} }, nil},
		{"empty description", func(tx *Transaction) { tx.Description = "  " }, ErrEmptyDescription},
		{"zero amount", func(tx *Transaction) { tx.Amount = Money{} }, ErrInvalidAmount},
		{"positive expense", func(tx *Transaction) { tx.Amount = Cents(10) }, ErrAmountSign},
		{"negative income", func(tx *Transaction) { tx.Type = TypeIncome }, ErrAmountSign},
		{"unknown type", func(tx *Transaction) { tx.Type = "x" }, ErrInvalidType},
		{"unknown status", func(tx *Transaction) { tx.Status = "x" }, ErrInvalidStatus},
		{"no category", func(tx *Transaction) { tx.CategoryID = "" }, ErrEmptyCategory},
		{"no account", func(tx *Transaction) { tx.AccountID = "" }, ErrEmptyAccount},
		{"origin without ref", func(tx *Transaction) { tx.Origin = Origin{Kind: OriginGoalContribution} }, ErrInvalidOrigin},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := validTransaction()
			tt.mutate(&tx)
			err := tx.Validate()
			if err == nil {
				t.Fatalf("expected error")
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestTransferAllowsEitherSign(t *testing.T) {
	tx := validTransaction()
	tx.Type = TypeTransfer
	tx.Origin = Transfer("pair")
	if err := tx.Validate(); err != nil {
		t.Fatalf("negative leg: %v", err)
	}
	tx.Amount = Cents(5000)
	if err := tx.Validate(); err != nil {
		t.Fatalf("positive leg: %v", err)
	}
}

func TestGoalAndDebtHelpers(t *testing.T) {
	g := Goal{Name: "Viagem", TargetAmount: Cents(1000), CurrentAmount: Cents(400), Status: GoalInProgress}
	if err := g.Validate(); err != nil {
		t.Fatalf("goal: %v", err)
	}
	if g.Reached() || g.Remaining().Cents != 600 {
		t.Fatalf("unexpected goal progress: reached=%v remaining=%d", g.Reached(), g.Remaining().Cents)
	}
	g.CurrentAmount = Cents(1100)
	if !g.Reached() || !g.Remaining().IsZero() {
		t.Fatalf("expected goal reached")
	}

	d := Debt{Name: "Cartão", TotalAmount: Cents(500), PaidAmount: Cents(500), Status: DebtActive}
	if err := d.Validate(); err != nil {
		t.Fatalf("debt: %v", err)
	}
	if !d.Settled() {
		t.Fatalf("expected debt settled")
	}
	d.InterestRate = -1
	if err := d.Validate(); err == nil {
		t.Fatalf("expected negative interest error")
	}
}

func TestScheduledAndBudgetValidate(t *testing.T) {
	s := ScheduledTransaction{
		Description: "Aluguel",
		Amount:      Cents(-150000),
		Frequency:   Monthly,
		StartDate:   NewDate(2024, 1, 31),
		CategoryID:  "housing",
	}
	if err := s.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	s.Frequency = "Mensalmente"
	if !errors.Is(s.Validate(), ErrInvalidFrequency) {
		t.Fatalf("expected invalid frequency")
	}

	b := Budget{CategoryID: "food", Amount: Cents(100), Period: PeriodWeekly}
	if err := b.Validate(); err != nil {
		t.Fatalf("weekly budgets are stored: %v", err)
	}
	b.Period = "daily"
	if !errors.Is(b.Validate(), ErrInvalidPeriod) {
		t.Fatalf("expected invalid period")
	}
}
