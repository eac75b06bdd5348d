package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"financehub/internal/cache"
	"financehub/internal/core"
	"financehub/internal/ledger"
	"financehub/internal/log"
	"financehub/internal/middleware/ratelimit"
	"financehub/internal/services"
	"financehub/internal/storage/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	t     *testing.T
	srv   *Server
	coord *ledger.Coordinator
}

type envOption func(*Dependencies)

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()
	var seq atomic.Int64
	clock := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	coord := ledger.NewCoordinator(ledger.NewStore(), memory.New(), ledger.Config{
		UserID:           "u1",
		DefaultAccountID: "acc-main",
		MutationTimeout:  5 * time.Second,
		Now:              func() time.Time { return clock },
		NewID:            func() string { return fmt.Sprintf("id-%04d", seq.Add(1)) },
		Logger:           log.Discard(),
	})
	t.Cleanup(coord.Close)

	_, err := coord.AddAccount(context.Background(), core.Account{ID: "acc-main", Name: "Conta corrente"})
	require.NoError(t, err)
	_, err = coord.AddAccount(context.Background(), core.Account{ID: "acc-savings", Name: "Poupança", Kind: core.AccountSavings})
	require.NoError(t, err)

	deps := Dependencies{
		Ledger:    coord,
		Dashboard: services.NewDashboardService(coord, cache.NewLRUCache[*services.Dashboard](8, time.Minute), log.Discard()),
		Limiter:   ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: 1000, CleanupInterval: time.Minute}),
		Logger:    log.Discard(),
	}
	for _, opt := range opts {
		opt(&deps)
	}
	return &testEnv{t: t, srv: NewServer(":0", "u1", deps), coord: coord}
}

func (e *testEnv) do(method, path string, body any) *httptest.ResponseRecorder {
	e.t.Helper()
	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = strings.NewReader(b)
	default:
		buf, err := json.Marshal(b)
		require.NoError(e.t, err)
		r = bytes.NewReader(buf)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	e.srv.Handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

func (e *testEnv) createTx(desc, amount, category, date string) core.Transaction {
	e.t.Helper()
	rr := e.do(http.MethodPost, "/api/transactions", TransactionRequest{
		Description: desc, Amount: amount, CategoryID: category, Date: date,
	})
	require.Equal(e.t, http.StatusCreated, rr.Code, rr.Body.String())
	return decode[core.Transaction](e.t, rr)
}

func TestHealthReadyAndMetrics(t *testing.T) {
	env := newTestEnv(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		rr := env.do(http.MethodGet, path, nil)
		assert.Equal(t, http.StatusOK, rr.Code, path)
		assert.Contains(t, rr.Header().Get("Content-Type"), "application/json")
	}

	rr := env.do(http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, "http_requests_total")
	assert.Contains(t, body, `ledger_records{kind="transaction"} 0`)
	assert.NotContains(t, body, "feed_messages_total")
}

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("database is locked") }

func TestReadyReportsStorageFailure(t *testing.T) {
	env := newTestEnv(t, func(d *Dependencies) { d.Storage = failingPinger{} })

	rr := env.do(http.MethodGet, "/readyz", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Contains(t, rr.Body.String(), "database is locked")
}

func TestResponsesCarryRequestIDAndSecurityHeaders(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(http.MethodGet, "/api/accounts", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))
	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))

	accounts := decode[[]core.Account](t, rr)
	require.Len(t, accounts, 2)
	assert.Equal(t, "acc-main", accounts[0].ID)
}

func TestTransactionLifecycle(t *testing.T) {
	env := newTestEnv(t)

	tx := env.createTx("Mercado", "-45,90", "food", "2024-03-09")
	assert.Equal(t, int64(-4590), tx.Amount.Cents)
	assert.Equal(t, core.TypeExpense, tx.Type)
	assert.Equal(t, "acc-main", tx.AccountID)
	assert.Equal(t, core.StatusCompleted, tx.Status)

	rr := env.do(http.MethodGet, "/api/transactions/"+tx.ID, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Mercado", decode[core.Transaction](t, rr).Description)

	rr = env.do(http.MethodPut, "/api/transactions/"+tx.ID, TransactionRequest{
		Description: "Mercado da esquina", Amount: "-50.00", CategoryID: "food", Date: "2024-03-09", Starred: true,
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	updated := decode[core.Transaction](t, rr)
	assert.Equal(t, int64(-5000), updated.Amount.Cents)
	assert.True(t, updated.Starred)
	assert.Equal(t, tx.CreatedAt, updated.CreatedAt)

	rr = env.do(http.MethodDelete, "/api/transactions/"+tx.ID, nil)
	require.Equal(t, http.StatusNoContent, rr.Code)

	rr = env.do(http.MethodGet, "/api/transactions", nil)
	assert.Empty(t, decode[[]core.Transaction](t, rr))
	rr = env.do(http.MethodGet, "/api/transactions?deleted=true", nil)
	require.Len(t, decode[[]core.Transaction](t, rr), 1)

	rr = env.do(http.MethodPost, "/api/transactions/"+tx.ID+"/restore", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Nil(t, decode[core.Transaction](t, rr).DeletedAt)

	rr = env.do(http.MethodDelete, "/api/transactions/"+tx.ID+"?permanent=true", nil)
	require.Equal(t, http.StatusNoContent, rr.Code)
	rr = env.do(http.MethodGet, "/api/transactions/"+tx.ID, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestTransactionListFilters(t *testing.T) {
	env := newTestEnv(t)
	env.createTx("Padaria São João", "-12.00", "food", "2024-03-02")
	env.createTx("Salário", "5000", "salary", "2024-03-05")
	env.createTx("Padaria", "-8.50", "food", "2024-02-20")

	rr := env.do(http.MethodGet, "/api/transactions?q=padaria", nil)
	assert.Len(t, decode[[]core.Transaction](t, rr), 2)

	rr = env.do(http.MethodGet, "/api/transactions?q=sao+joao", nil)
	assert.Len(t, decode[[]core.Transaction](t, rr), 1)

	rr = env.do(http.MethodGet, "/api/transactions?month=2024-03", nil)
	txs := decode[[]core.Transaction](t, rr)
	require.Len(t, txs, 2)
	assert.Equal(t, "Salário", txs[0].Description)

	rr = env.do(http.MethodGet, "/api/transactions?month=march", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestRequestErrorsMapToStatusCodes(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name     string
		method   string
		path     string
		body     any
		wantCode int
		wantType string
	}{
		{
			name: "malformed json", method: http.MethodPost, path: "/api/transactions",
			body: `{"description":`, wantCode: http.StatusBadRequest, wantType: "bad_request",
		},
		{
			name: "unknown field", method: http.MethodPost, path: "/api/transactions",
			body: `{"descripton":"typo","amount":"-1"}`, wantCode: http.StatusBadRequest, wantType: "bad_request",
		},
		{
			name: "empty body", method: http.MethodPost, path: "/api/goals",
			body: "", wantCode: http.StatusBadRequest, wantType: "bad_request",
		},
		{
			name: "unparseable amount", method: http.MethodPost, path: "/api/transactions",
			body:     TransactionRequest{Description: "x", Amount: "abc", CategoryID: "food"},
			wantCode: http.StatusBadRequest, wantType: "bad_request",
		},
		{
			name: "unknown category", method: http.MethodPost, path: "/api/transactions",
			body:     TransactionRequest{Description: "x", Amount: "-1", CategoryID: "nope"},
			wantCode: http.StatusUnprocessableEntity, wantType: log.ErrorTypeValidation,
		},
		{
			name: "missing transaction", method: http.MethodPut, path: "/api/transactions/missing",
			body:     TransactionRequest{Description: "x", Amount: "-1", CategoryID: "food"},
			wantCode: http.StatusNotFound, wantType: log.ErrorTypeNotFound,
		},
		{
			name: "missing goal", method: http.MethodPost, path: "/api/goals/missing/contributions",
			body: LinkRequest{Amount: "10"}, wantCode: http.StatusNotFound, wantType: log.ErrorTypeNotFound,
		},
		{
			name: "transfer to same account", method: http.MethodPost, path: "/api/transfers",
			body:     TransferRequest{FromAccountID: "acc-main", ToAccountID: "acc-main", Amount: "10"},
			wantCode: http.StatusUnprocessableEntity, wantType: log.ErrorTypeValidation,
		},
		{
			name: "dangling account in body", method: http.MethodPost, path: "/api/transactions",
			body:     TransactionRequest{Description: "x", Amount: "-1", CategoryID: "food", AccountID: "nope"},
			wantCode: http.StatusUnprocessableEntity, wantType: log.ErrorTypeValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := env.do(tt.method, tt.path, tt.body)
			require.Equal(t, tt.wantCode, rr.Code, rr.Body.String())
			if tt.wantType != "" {
				assert.Equal(t, tt.wantType, decode[ErrorBody](t, rr).Type)
			}
		})
	}
}

func TestDeleteReferencedAccountConflicts(t *testing.T) {
	env := newTestEnv(t)
	env.createTx("Mercado", "-10", "food", "2024-03-01")

	rr := env.do(http.MethodDelete, "/api/accounts/acc-main", nil)
	require.Equal(t, http.StatusConflict, rr.Code)
	body := decode[ErrorBody](t, rr)
	assert.Equal(t, log.ErrorTypeConsistency, body.Type)
	assert.Equal(t, "acc-main", body.ID)
}

func TestGoalContributionAndReversal(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(http.MethodPost, "/api/goals", GoalRequest{Name: "Viagem", TargetAmount: "100", Deadline: "2024-12-31"})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	goal := decode[core.Goal](t, rr)
	assert.Equal(t, core.GoalInProgress, goal.Status)

	rr = env.do(http.MethodPost, "/api/goals/"+goal.ID+"/contributions", LinkRequest{Amount: "100", Description: "Reserva"})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	contribution := decode[core.Transaction](t, rr)
	assert.Equal(t, int64(-10000), contribution.Amount.Cents)
	assert.Equal(t, core.GoalContribution(goal.ID), contribution.Origin)

	rr = env.do(http.MethodGet, "/api/goals", nil)
	goals := decode[[]core.Goal](t, rr)
	require.Len(t, goals, 1)
	assert.Equal(t, core.GoalCompleted, goals[0].Status)

	rr = env.do(http.MethodGet, "/api/session", nil)
	session := decode[ledger.Session](t, rr)
	assert.Equal(t, []string{goal.ID}, session.Celebrations)

	rr = env.do(http.MethodPost, "/api/celebrations/"+goal.ID+"/ack", nil)
	require.Equal(t, http.StatusNoContent, rr.Code)
	rr = env.do(http.MethodGet, "/api/session", nil)
	assert.Empty(t, decode[ledger.Session](t, rr).Celebrations)

	rr = env.do(http.MethodPost, "/api/goals/"+goal.ID+"/withdrawals", LinkRequest{Amount: "150"})
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	rr = env.do(http.MethodPut, "/api/transactions/"+contribution.ID, TransactionRequest{
		Description: "edit", Amount: "-1", CategoryID: "goals",
	})
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = env.do(http.MethodPost, "/api/transactions/"+contribution.ID+"/reverse", nil)
	require.Equal(t, http.StatusNoContent, rr.Code, rr.Body.String())
	rr = env.do(http.MethodPost, "/api/transactions/"+contribution.ID+"/reverse", nil)
	assert.Equal(t, http.StatusConflict, rr.Code)

	snap := env.coord.Snapshot()
	assert.True(t, snap.Goals[goal.ID].CurrentAmount.IsZero())
}

func TestDebtPayment(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(http.MethodPost, "/api/debts", DebtRequest{Name: "Cartão", TotalAmount: "300", InterestRate: 12.5, Category: "bills"})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	debt := decode[core.Debt](t, rr)

	rr = env.do(http.MethodPost, "/api/debts/"+debt.ID+"/payments", LinkRequest{Amount: "300", AccountID: "acc-savings", Date: "2024-03-08"})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	payment := decode[core.Transaction](t, rr)
	assert.Equal(t, "acc-savings", payment.AccountID)
	assert.Equal(t, "2024-03-08", payment.Date.String())

	rr = env.do(http.MethodGet, "/api/debts", nil)
	debts := decode[[]core.Debt](t, rr)
	require.Len(t, debts, 1)
	assert.Equal(t, core.DebtPaid, debts[0].Status)

	rr = env.do(http.MethodPost, "/api/debts/"+debt.ID+"/payments", LinkRequest{Amount: "1"})
	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestTransferAndBulkOperations(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(http.MethodPost, "/api/transfers", TransferRequest{FromAccountID: "acc-main", ToAccountID: "acc-savings", Amount: "250"})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	legs := decode[[]core.Transaction](t, rr)
	require.Len(t, legs, 2)
	assert.Equal(t, int64(0), legs[0].Amount.Cents+legs[1].Amount.Cents)

	a := env.createTx("Uber", "-20", "transport", "2024-03-01")
	b := env.createTx("Uber", "-15", "transport", "2024-03-02")

	rr = env.do(http.MethodPost, "/api/transactions/bulk-update", map[string]any{
		"ids": []string{a.ID, b.ID}, "category_id": "leisure", "starred": true,
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	for _, tx := range decode[[]core.Transaction](t, rr) {
		assert.Equal(t, "leisure", tx.CategoryID)
		assert.True(t, tx.Starred)
	}

	rr = env.do(http.MethodPost, "/api/transactions/merge", MergeRequest{IDs: []string{a.ID, b.ID}, Description: "Uber março"})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	merged := decode[core.Transaction](t, rr)
	assert.Equal(t, int64(-3500), merged.Amount.Cents)

	rr = env.do(http.MethodPost, "/api/transactions/bulk-delete", IDsRequest{IDs: []string{merged.ID}})
	require.Equal(t, http.StatusNoContent, rr.Code)

	rr = env.do(http.MethodPost, "/api/transactions/bulk-update", BulkUpdateRequest{IDs: []string{a.ID}})
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}

func TestCloneMonth(t *testing.T) {
	env := newTestEnv(t)
	env.createTx("Aluguel", "-1500", "housing", "2024-02-05")
	env.createTx("Internet", "-99.90", "bills", "2024-02-10")

	rr := env.do(http.MethodPost, "/api/transactions/clone-month", CloneMonthRequest{From: "2024-02", To: "2024-03"})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	clones := decode[[]core.Transaction](t, rr)
	require.Len(t, clones, 2)
	for _, c := range clones {
		assert.Equal(t, 3, c.Date.Month())
		assert.Equal(t, core.StatusPending, c.Status)
	}

	rr = env.do(http.MethodPost, "/api/transactions/clone-month", CloneMonthRequest{From: "2024-02", To: "2024/03"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestScheduledAndUpcoming(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(http.MethodPost, "/api/scheduled", ScheduledRequest{
		Description: "Academia", Amount: "-120", Frequency: string(core.Monthly), StartDate: "2024-03-20", CategoryID: "health",
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	st := decode[core.ScheduledTransaction](t, rr)
	assert.Equal(t, "2024-03-20", st.NextDueDate.String())

	rr = env.do(http.MethodGet, "/api/upcoming?days=15", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decode[[]json.RawMessage](t, rr), 1)

	rr = env.do(http.MethodGet, "/api/upcoming?days=5", nil)
	assert.Empty(t, decode[[]json.RawMessage](t, rr))

	rr = env.do(http.MethodPost, "/api/scheduled/"+st.ID+"/pay", nil)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	paid := decode[core.Transaction](t, rr)
	assert.Equal(t, core.Scheduled(st.ID), paid.Origin)
	assert.Equal(t, "2024-03-10", paid.Date.String())

	rr = env.do(http.MethodGet, "/api/scheduled", nil)
	list := decode[[]core.ScheduledTransaction](t, rr)
	require.Len(t, list, 1)
	assert.Equal(t, "2024-04-20", list[0].NextDueDate.String())

	rr = env.do(http.MethodGet, "/api/upcoming?days=zero", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestBudgetsAndUsage(t *testing.T) {
	env := newTestEnv(t)
	env.createTx("Mercado", "-300", "food", "2024-03-03")

	rr := env.do(http.MethodPost, "/api/budgets", BudgetRequest{CategoryID: "food", Amount: "1000"})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	budget := decode[core.Budget](t, rr)
	assert.Equal(t, core.PeriodMonthly, budget.Period)

	rr = env.do(http.MethodPost, "/api/budgets", BudgetRequest{CategoryID: "food", Amount: "500"})
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	rr = env.do(http.MethodGet, "/api/budgets/usage", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"category_id":"food"`)

	rr = env.do(http.MethodDelete, "/api/budgets/"+budget.ID, nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)
}

func TestDashboardAndMonthReport(t *testing.T) {
	env := newTestEnv(t)
	env.createTx("Salário", "4000", "salary", "2024-03-05")
	env.createTx("Aluguel", "-1500", "housing", "2024-03-06")

	rr := env.do(http.MethodGet, "/api/dashboard?months=3", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	d := decode[services.Dashboard](t, rr)
	assert.Len(t, d.Chart, 3)
	assert.Equal(t, env.coord.Store().Version(), d.Version)

	rr = env.do(http.MethodGet, "/api/reports/month?month=2024-03", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	report := decode[MonthReport](t, rr)
	assert.Equal(t, "snapshot", report.Source)
	assert.Equal(t, int64(400000), report.Income.Cents)
	assert.Equal(t, int64(150000), report.Expenses.Cents)
	assert.Equal(t, int64(250000), report.Net.Cents)
	assert.Equal(t, "2024-03", report.Label)
}

type fixedReports struct {
	ov  core.MonthOverview
	err error
}

func (f fixedReports) ReadMonthOverview(_ context.Context, _ string, year, month int) (core.MonthOverview, error) {
	ov := f.ov
	ov.Year, ov.Month = year, month
	return ov, f.err
}

func TestMonthReportPrefersStorage(t *testing.T) {
	env := newTestEnv(t, func(d *Dependencies) {
		d.Reports = fixedReports{ov: core.MonthOverview{Income: core.Cents(100)}}
	})
	rr := env.do(http.MethodGet, "/api/reports/month?month=2023-11", nil)
	report := decode[MonthReport](t, rr)
	assert.Equal(t, "storage", report.Source)
	assert.Equal(t, "2023-11", report.Label)

	env = newTestEnv(t, func(d *Dependencies) {
		d.Reports = fixedReports{err: errors.New("no such table")}
	})
	rr = env.do(http.MethodGet, "/api/reports/month?month=2023-11", nil)
	assert.Equal(t, "snapshot", decode[MonthReport](t, rr).Source)
}

func TestAuditTrail(t *testing.T) {
	env := newTestEnv(t)
	tx := env.createTx("Mercado", "-10", "food", "2024-03-01")
	require.Equal(t, http.StatusNoContent, env.do(http.MethodDelete, "/api/transactions/"+tx.ID, nil).Code)

	rr := env.do(http.MethodGet, "/api/audit?entity=transaction&id="+tx.ID, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	entries := decode[[]core.AuditEntry](t, rr)
	require.Len(t, entries, 2)
	assert.Equal(t, core.ActionDelete, entries[0].Action)
	assert.Equal(t, core.ActionCreate, entries[1].Action)

	rr = env.do(http.MethodGet, "/api/audit?limit=1", nil)
	assert.Len(t, decode[[]core.AuditEntry](t, rr), 1)

	rr = env.do(http.MethodGet, "/api/audit?entity=transaction", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestMutationsAreRateLimited(t *testing.T) {
	env := newTestEnv(t, func(d *Dependencies) {
		d.Limiter = ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: 2, CleanupInterval: time.Minute})
	})

	for range 2 {
		rr := env.do(http.MethodPost, "/api/accounts", AccountRequest{Name: "Carteira", Kind: string(core.AccountWallet)})
		require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	}
	rr := env.do(http.MethodPost, "/api/accounts", AccountRequest{Name: "Outra"})
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "rate_limited", decode[ErrorBody](t, rr).Type)

	// Reads are never limited.
	assert.Equal(t, http.StatusOK, env.do(http.MethodGet, "/api/accounts", nil).Code)
}

func TestRateLimitKeysOnForwardedClientBehindTrustedProxy(t *testing.T) {
	env := newTestEnv(t, func(d *Dependencies) {
		d.Limiter = ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: 1, CleanupInterval: time.Minute})
		d.TrustedProxies = []string{"192.0.2.0/24", "not-a-cidr"}
	})

	post := func(client string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/accounts", strings.NewReader(`{"name":"Carteira"}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Forwarded-For", client)
		rr := httptest.NewRecorder()
		env.srv.Handler.ServeHTTP(rr, req)
		return rr.Code
	}

	assert.Equal(t, http.StatusCreated, post("203.0.113.5"))
	assert.Equal(t, http.StatusTooManyRequests, post("203.0.113.5"))
	assert.Equal(t, http.StatusCreated, post("203.0.113.6"))
}

func TestScannerRequestsAreBlocked(t *testing.T) {
	env := newTestEnv(t)
	rr := env.do(http.MethodGet, "/.env", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, int64(1), env.srv.securityDetector.GetMetrics().BlockedRequests)
}

func TestSessionErrorCanBeCleared(t *testing.T) {
	env := newTestEnv(t)
	rr := env.do(http.MethodDelete, "/api/session/error", nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Empty(t, decode[ledger.Session](t, env.do(http.MethodGet, "/api/session", nil)).Error)
}
