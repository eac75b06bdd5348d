// Package http serves the ledger as a JSON API.
//
// This file implements request decoding: bounded JSON bodies, query
// parameters and the wire shapes clients send. Amounts arrive as decimal
// strings ("-12,50" or "12.50") and are converted to cents here.
package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"financehub/internal/core"
	"financehub/internal/ledger"
)

const maxBodyBytes = 1 << 20

var errEmptyBody = errors.New("request body is empty")

// decodeJSON reads a single JSON document into dst. Unknown fields are
// rejected so typos surface as 400s instead of silently ignored input.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errEmptyBody
		}
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	if dec.More() {
		return errors.New("request body must contain a single JSON document")
	}
	return nil
}

// ParseMonthParam reads a YYYY-MM query value, falling back to the month
// containing today.
func ParseMonthParam(query url.Values, key string, today core.Date) (core.Date, error) {
	v := strings.TrimSpace(query.Get(key))
	if v == "" {
		return today.FirstOfMonth(), nil
	}
	d, err := core.ParseDate(v + "-01")
	if err != nil {
		return core.Date{}, fmt.Errorf("%s: expected YYYY-MM, got %q", key, v)
	}
	return d, nil
}

// ParseIntParam reads a positive integer query value with a default and an
// upper bound.
func ParseIntParam(query url.Values, key string, def, max int) (int, error) {
	v := strings.TrimSpace(query.Get(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%s: expected a positive integer, got %q", key, v)
	}
	if n > max {
		n = max
	}
	return n, nil
}

// ParseBoolParam reads a boolean query value; absent means false.
func ParseBoolParam(query url.Values, key string) (bool, error) {
	v := strings.TrimSpace(query.Get(key))
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: expected a boolean, got %q", key, v)
	}
	return b, nil
}

func parseOptionalDate(field, s string) (core.Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return core.Date{}, nil
	}
	d, err := core.ParseDate(s)
	if err != nil {
		return core.Date{}, fmt.Errorf("%s: %w", field, err)
	}
	return d, nil
}

func parseAmount(field, s string) (core.Money, error) {
	m, err := core.ParseSignedAmount(s)
	if err != nil {
		return core.Money{}, fmt.Errorf("%s: %w", field, err)
	}
	return m, nil
}

// parsePositive reads an amount that must be strictly positive.
func parsePositive(field, s string) (core.Money, error) {
	cents, err := core.ParseDecimalToCents(s)
	if err != nil {
		return core.Money{}, fmt.Errorf("%s: %w", field, err)
	}
	return core.Cents(cents), nil
}

// parseNonNegative reads an amount that may be zero, as goal balances and
// investment values can be.
func parseNonNegative(field, s string) (core.Money, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.Trim(s, "0.,") == "" {
		return core.Money{}, nil
	}
	return parsePositive(field, s)
}

// TransactionRequest is the body of create and update transaction calls.
type TransactionRequest struct {
	Description string `json:"description"`
	Amount      string `json:"amount"`
	Type        string `json:"type,omitempty"`
	Date        string `json:"date"`
	CategoryID  string `json:"category_id"`
	AccountID   string `json:"account_id,omitempty"`
	Status      string `json:"status,omitempty"`
	Starred     bool   `json:"starred,omitempty"`
	Notes       string `json:"notes,omitempty"`
}

func (req TransactionRequest) Transaction(id string) (core.Transaction, error) {
	amount, err := parseAmount("amount", req.Amount)
	if err != nil {
		return core.Transaction{}, err
	}
	date, err := parseOptionalDate("date", req.Date)
	if err != nil {
		return core.Transaction{}, err
	}
	return core.Transaction{
		ID:          id,
		Description: strings.TrimSpace(req.Description),
		Amount:      amount,
		Type:        core.TransactionType(req.Type),
		Date:        date,
		CategoryID:  strings.TrimSpace(req.CategoryID),
		AccountID:   strings.TrimSpace(req.AccountID),
		Status:      core.TransactionStatus(req.Status),
		Starred:     req.Starred,
		Notes:       strings.TrimSpace(req.Notes),
	}, nil
}

// LinkRequest carries the optional arguments shared by transfers, goal
// contributions and debt payments.
type LinkRequest struct {
	Amount      string `json:"amount"`
	AccountID   string `json:"account_id,omitempty"`
	Date        string `json:"date,omitempty"`
	Description string `json:"description,omitempty"`
}

func (req LinkRequest) Parse() (core.Money, []ledger.LinkOption, error) {
	amount, err := parsePositive("amount", req.Amount)
	if err != nil {
		return core.Money{}, nil, err
	}
	date, err := parseOptionalDate("date", req.Date)
	if err != nil {
		return core.Money{}, nil, err
	}
	var opts []ledger.LinkOption
	if req.AccountID != "" {
		opts = append(opts, ledger.FromAccount(req.AccountID))
	}
	if !date.IsEmpty() {
		opts = append(opts, ledger.OnDate(date))
	}
	if req.Description != "" {
		opts = append(opts, ledger.WithDescription(req.Description))
	}
	return amount, opts, nil
}

type TransferRequest struct {
	FromAccountID string `json:"from_account_id"`
	ToAccountID   string `json:"to_account_id"`
	Amount        string `json:"amount"`
	Date          string `json:"date,omitempty"`
	Description   string `json:"description,omitempty"`
}

func (req TransferRequest) Parse() (core.Money, []ledger.LinkOption, error) {
	return LinkRequest{Amount: req.Amount, Date: req.Date, Description: req.Description}.Parse()
}

// BulkUpdateRequest lists the fields to set on every selected transaction.
// Absent fields are left unchanged.
type BulkUpdateRequest struct {
	IDs        []string `json:"ids"`
	CategoryID *string  `json:"category_id,omitempty"`
	AccountID  *string  `json:"account_id,omitempty"`
	Status     *string  `json:"status,omitempty"`
	Starred    *bool    `json:"starred,omitempty"`
	Date       *string  `json:"date,omitempty"`
}

func (req BulkUpdateRequest) Patch() (ledger.TransactionPatch, error) {
	patch := ledger.TransactionPatch{
		CategoryID: req.CategoryID,
		AccountID:  req.AccountID,
		Starred:    req.Starred,
	}
	if req.Status != nil {
		st := core.TransactionStatus(*req.Status)
		patch.Status = &st
	}
	if req.Date != nil {
		d, err := core.ParseDate(*req.Date)
		if err != nil {
			return ledger.TransactionPatch{}, fmt.Errorf("date: %w", err)
		}
		patch.Date = &d
	}
	return patch, nil
}

type IDsRequest struct {
	IDs []string `json:"ids"`
}

type MergeRequest struct {
	IDs         []string `json:"ids"`
	Description string   `json:"description"`
}

type CloneMonthRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
}

func (req CloneMonthRequest) Months() (core.Date, core.Date, error) {
	from, err := core.ParseDate(strings.TrimSpace(req.From) + "-01")
	if err != nil {
		return core.Date{}, core.Date{}, fmt.Errorf("from: expected YYYY-MM, got %q", req.From)
	}
	to, err := core.ParseDate(strings.TrimSpace(req.To) + "-01")
	if err != nil {
		return core.Date{}, core.Date{}, fmt.Errorf("to: expected YYYY-MM, got %q", req.To)
	}
	return from, to, nil
}

type GoalRequest struct {
	Name          string `json:"name"`
	TargetAmount  string `json:"target_amount"`
	CurrentAmount string `json:"current_amount,omitempty"`
	Deadline      string `json:"deadline"`
}

func (req GoalRequest) Goal(id string) (core.Goal, error) {
	target, err := parsePositive("target_amount", req.TargetAmount)
	if err != nil {
		return core.Goal{}, err
	}
	current, err := parseNonNegative("current_amount", req.CurrentAmount)
	if err != nil {
		return core.Goal{}, err
	}
	deadline, err := parseOptionalDate("deadline", req.Deadline)
	if err != nil {
		return core.Goal{}, err
	}
	return core.Goal{
		ID:            id,
		Name:          strings.TrimSpace(req.Name),
		TargetAmount:  target,
		CurrentAmount: current,
		Deadline:      deadline,
	}, nil
}

type DebtRequest struct {
	Name         string  `json:"name"`
	TotalAmount  string  `json:"total_amount"`
	PaidAmount   string  `json:"paid_amount,omitempty"`
	InterestRate float64 `json:"interest_rate"`
	Category     string  `json:"category"`
}

func (req DebtRequest) Debt(id string) (core.Debt, error) {
	total, err := parsePositive("total_amount", req.TotalAmount)
	if err != nil {
		return core.Debt{}, err
	}
	paid, err := parseNonNegative("paid_amount", req.PaidAmount)
	if err != nil {
		return core.Debt{}, err
	}
	return core.Debt{
		ID:           id,
		Name:         strings.TrimSpace(req.Name),
		TotalAmount:  total,
		PaidAmount:   paid,
		InterestRate: req.InterestRate,
		Category:     strings.TrimSpace(req.Category),
	}, nil
}

type BudgetRequest struct {
	CategoryID string `json:"category_id"`
	Amount     string `json:"amount"`
	Period     string `json:"period,omitempty"`
}

func (req BudgetRequest) Budget(id string) (core.Budget, error) {
	amount, err := parsePositive("amount", req.Amount)
	if err != nil {
		return core.Budget{}, err
	}
	period := core.BudgetPeriod(req.Period)
	if period == "" {
		period = core.PeriodMonthly
	}
	return core.Budget{ID: id, CategoryID: strings.TrimSpace(req.CategoryID), Amount: amount, Period: period}, nil
}

type InvestmentRequest struct {
	Name           string `json:"name"`
	Kind           string `json:"kind"`
	InvestedAmount string `json:"invested_amount"`
	CurrentValue   string `json:"current_value"`
}

func (req InvestmentRequest) Investment(id string) (core.Investment, error) {
	invested, err := parseNonNegative("invested_amount", req.InvestedAmount)
	if err != nil {
		return core.Investment{}, err
	}
	current, err := parseNonNegative("current_value", req.CurrentValue)
	if err != nil {
		return core.Investment{}, err
	}
	return core.Investment{
		ID:             id,
		Name:           strings.TrimSpace(req.Name),
		Kind:           strings.TrimSpace(req.Kind),
		InvestedAmount: invested,
		CurrentValue:   current,
	}, nil
}

type AccountRequest struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
}

func (req AccountRequest) Account(id string) core.Account {
	return core.Account{ID: id, Name: strings.TrimSpace(req.Name), Kind: core.AccountKind(req.Kind)}
}

type ScheduledRequest struct {
	Description string `json:"description"`
	Amount      string `json:"amount"`
	Frequency   string `json:"frequency"`
	StartDate   string `json:"start_date"`
	CategoryID  string `json:"category_id"`
	AccountID   string `json:"account_id,omitempty"`
}

func (req ScheduledRequest) Scheduled(id string) (core.ScheduledTransaction, error) {
	amount, err := parseAmount("amount", req.Amount)
	if err != nil {
		return core.ScheduledTransaction{}, err
	}
	start, err := parseOptionalDate("start_date", req.StartDate)
	if err != nil {
		return core.ScheduledTransaction{}, err
	}
	return core.ScheduledTransaction{
		ID:          id,
		Description: strings.TrimSpace(req.Description),
		Amount:      amount,
		Frequency:   core.Frequency(req.Frequency),
		StartDate:   start,
		CategoryID:  strings.TrimSpace(req.CategoryID),
		AccountID:   strings.TrimSpace(req.AccountID),
	}, nil
}
