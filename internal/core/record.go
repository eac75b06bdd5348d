package core

import (
	"encoding/json"
	"fmt"
	"time"
)

// Kind names an entity collection. The values double as audit entity names.
type Kind string

const (
	KindTransaction Kind = "transaction"
	KindGoal        Kind = "goal"
	KindDebt        Kind = "debt"
	KindBudget      Kind = "budget"
	KindScheduled   Kind = "scheduled_transaction"
	KindInvestment  Kind = "investment"
	KindAccount     Kind = "account"
)

// Kinds lists every entity collection held by the ledger.
var Kinds = []Kind{KindAccount, KindTransaction, KindGoal, KindDebt, KindBudget, KindScheduled, KindInvestment}

// Record is implemented by every ledger entity.
type Record interface {
	RecordKind() Kind
	RecordID() string
}

func (t Transaction) RecordKind() Kind          { return KindTransaction }
func (t Transaction) RecordID() string          { return t.ID }
func (g Goal) RecordKind() Kind                 { return KindGoal }
func (g Goal) RecordID() string                 { return g.ID }
func (d Debt) RecordKind() Kind                 { return KindDebt }
func (d Debt) RecordID() string                 { return d.ID }
func (b Budget) RecordKind() Kind               { return KindBudget }
func (b Budget) RecordID() string               { return b.ID }
func (s ScheduledTransaction) RecordKind() Kind { return KindScheduled }
func (s ScheduledTransaction) RecordID() string { return s.ID }
func (i Investment) RecordKind() Kind           { return KindInvestment }
func (i Investment) RecordID() string           { return i.ID }
func (a Account) RecordKind() Kind              { return KindAccount }
func (a Account) RecordID() string              { return a.ID }

// transactionJSON is the remote-schema shape of a Transaction.
type transactionJSON struct {
	ID                     string            `json:"id"`
	Description            string            `json:"description"`
	Amount                 Money             `json:"amount"`
	Type                   TransactionType   `json:"type"`
	Date                   Date              `json:"date"`
	CategoryID             string            `json:"category_id"`
	AccountID              string            `json:"account_id"`
	Status                 TransactionStatus `json:"status"`
	GoalContributionID     string            `json:"goal_contribution_id,omitempty"`
	DebtPaymentID          string            `json:"debt_payment_id,omitempty"`
	TransferPairID         string            `json:"transfer_pair_id,omitempty"`
	ScheduledTransactionID string            `json:"scheduled_transaction_id,omitempty"`
	Starred                bool              `json:"starred,omitempty"`
	Notes                  string            `json:"notes,omitempty"`
	CreatedAt              time.Time         `json:"created_at"`
	DeletedAt              *time.Time        `json:"deleted_at,omitempty"`
}

func (t Transaction) MarshalJSON() ([]byte, error) {
	cols := t.Origin.Columns()
	return json.Marshal(transactionJSON{
		ID:                     t.ID,
		Description:            t.Description,
		Amount:                 t.Amount,
		Type:                   t.Type,
		Date:                   t.Date,
		CategoryID:             t.CategoryID,
		AccountID:              t.AccountID,
		Status:                 t.Status,
		GoalContributionID:     cols.GoalContributionID,
		DebtPaymentID:          cols.DebtPaymentID,
		TransferPairID:         cols.TransferPairID,
		ScheduledTransactionID: cols.ScheduledTransactionID,
		Starred:                t.Starred,
		Notes:                  t.Notes,
		CreatedAt:              t.CreatedAt,
		DeletedAt:              t.DeletedAt,
	})
}

func (t *Transaction) UnmarshalJSON(data []byte) error {
	var raw transactionJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	origin, err := OriginFromColumns(OriginColumns{
		GoalContributionID:     raw.GoalContributionID,
		DebtPaymentID:          raw.DebtPaymentID,
		TransferPairID:         raw.TransferPairID,
		ScheduledTransactionID: raw.ScheduledTransactionID,
	})
	if err != nil {
		return err
	}
	*t = Transaction{
		ID:          raw.ID,
		Description: raw.Description,
		Amount:      raw.Amount,
		Type:        raw.Type,
		Date:        raw.Date,
		CategoryID:  raw.CategoryID,
		AccountID:   raw.AccountID,
		Status:      raw.Status,
		Origin:      origin,
		Starred:     raw.Starred,
		Notes:       raw.Notes,
		CreatedAt:   raw.CreatedAt,
		DeletedAt:   raw.DeletedAt,
	}
	return nil
}

// EncodeRecord serializes a record in the remote-schema JSON shape.
func EncodeRecord(r Record) ([]byte, error) {
	switch v := r.(type) {
	case Transaction, Goal, Debt, Budget, ScheduledTransaction, Investment, Account:
		return json.Marshal(v)
	default:
		return nil, fmt.Errorf("encode record: unsupported type %T", r)
	}
}

// DecodeRecord parses the JSON produced by EncodeRecord for the given kind.
func DecodeRecord(kind Kind, data []byte) (Record, error) {
	switch kind {
	case KindTransaction:
		return decodeAs[Transaction](data)
	case KindGoal:
		return decodeAs[Goal](data)
	case KindDebt:
		return decodeAs[Debt](data)
	case KindBudget:
		return decodeAs[Budget](data)
	case KindScheduled:
		return decodeAs[ScheduledTransaction](data)
	case KindInvestment:
		return decodeAs[Investment](data)
	case KindAccount:
		return decodeAs[Account](data)
	default:
		return nil, fmt.Errorf("decode record: unknown kind %q", kind)
	}
}

func decodeAs[T Record](data []byte) (Record, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("decode %T: %w", v, err)
	}
	return v, nil
}
