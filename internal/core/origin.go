package core

import (
	"errors"
	"fmt"
)

// OriginKind tags why a transaction exists.
type OriginKind uint8

const (
	OriginUser OriginKind = iota
	OriginGoalContribution
	OriginDebtPayment
	OriginTransfer
	OriginScheduled
)

// Origin links a transaction to the entity whose mutation produced it.
// RefID is empty for OriginUser and required for every other kind.
type Origin struct {
	Kind  OriginKind
	RefID string
}

func UserEntered() Origin                   { return Origin{Kind: OriginUser} }
func GoalContribution(goalID string) Origin { return Origin{Kind: OriginGoalContribution, RefID: goalID} }
func DebtPayment(debtID string) Origin      { return Origin{Kind: OriginDebtPayment, RefID: debtID} }
func Transfer(pairID string) Origin         { return Origin{Kind: OriginTransfer, RefID: pairID} }
func Scheduled(scheduledID string) Origin   { return Origin{Kind: OriginScheduled, RefID: scheduledID} }

var ErrInvalidOrigin = errors.New("invalid origin")

// SystemOwned reports whether the transaction is a side effect of a goal or
// debt mutation and therefore not directly editable.
func (o Origin) SystemOwned() bool {
	return o.Kind == OriginGoalContribution || o.Kind == OriginDebtPayment
}

// Linked reports whether the transaction belongs to a goal or debt, or is a transfer leg.
func (o Origin) Linked() bool {
	return o.SystemOwned() || o.Kind == OriginTransfer
}

func (o Origin) Validate() error {
	switch o.Kind {
	case OriginUser:
		if o.RefID != "" {
			return fmt.Errorf("%w: user origin cannot carry a reference", ErrInvalidOrigin)
		}
	case OriginGoalContribution, OriginDebtPayment, OriginTransfer, OriginScheduled:
		if o.RefID == "" {
			return fmt.Errorf("%w: %s origin requires a reference", ErrInvalidOrigin, o.Kind)
		}
	default:
		return fmt.Errorf("%w: unknown kind %d", ErrInvalidOrigin, o.Kind)
	}
	return nil
}

func (k OriginKind) String() string {
	switch k {
	case OriginUser:
		return "user"
	case OriginGoalContribution:
		return "goal_contribution"
	case OriginDebtPayment:
		return "debt_payment"
	case OriginTransfer:
		return "transfer"
	case OriginScheduled:
		return "scheduled"
	}
	return fmt.Sprintf("origin(%d)", uint8(k))
}

// OriginColumns is the flat persisted shape of an Origin.
type OriginColumns struct {
	GoalContributionID     string
	DebtPaymentID          string
	TransferPairID         string
	ScheduledTransactionID string
}

func (o Origin) Columns() OriginColumns {
	var c OriginColumns
	switch o.Kind {
	case OriginGoalContribution:
		c.GoalContributionID = o.RefID
	case OriginDebtPayment:
		c.DebtPaymentID = o.RefID
	case OriginTransfer:
		c.TransferPairID = o.RefID
	case OriginScheduled:
		c.ScheduledTransactionID = o.RefID
	}
	return c
}

// OriginFromColumns rebuilds an Origin. At most one column may be set.
func OriginFromColumns(c OriginColumns) (Origin, error) {
	var out Origin
	set := 0
	for _, f := range []struct {
		id   string
		kind OriginKind
	}{
		{c.GoalContributionID, OriginGoalContribution},
		{c.DebtPaymentID, OriginDebtPayment},
		{c.TransferPairID, OriginTransfer},
		{c.ScheduledTransactionID, OriginScheduled},
	} {
		if f.id == "" {
			continue
		}
		set++
		out = Origin{Kind: f.kind, RefID: f.id}
	}
	if set > 1 {
		return Origin{}, fmt.Errorf("%w: more than one link column set", ErrInvalidOrigin)
	}
	return out, nil
}
