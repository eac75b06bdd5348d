package http

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"financehub/internal/core"
	"financehub/internal/ledger"
	"financehub/internal/log"
	"financehub/internal/middleware/ratelimit"
	"financehub/internal/middleware/security"
	"financehub/internal/middleware/trace"
	"financehub/internal/services"
)

// MonthOverviewReader answers month reports from persisted rows. The SQLite
// repository satisfies it; without one, reports are computed from the
// in-memory snapshot.
type MonthOverviewReader interface {
	ReadMonthOverview(ctx context.Context, userID string, year, month int) (core.MonthOverview, error)
}

// Pinger is checked by the readiness check.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Dependencies wires the server to the ledger and its supporting services.
// Ledger and Dashboard are required; everything else is optional.
type Dependencies struct {
	Ledger    *ledger.Coordinator
	Dashboard *services.DashboardService
	Reports   MonthOverviewReader
	Storage   Pinger
	FeedStats func() services.FeedStats
	Limiter   *ratelimit.Limiter
	Logger    *log.Logger
	// TrustedProxies are CIDRs whose X-Forwarded-For header is believed.
	TrustedProxies []string
}

type Server struct {
	http.Server
	ledger    *ledger.Coordinator
	dashboard *services.DashboardService
	reports   MonthOverviewReader
	storage   Pinger
	feedStats func() services.FeedStats
	userID    string

	rateLimiter      *ratelimit.Limiter
	securityDetector *security.Detector
	traceMiddleware  *trace.Middleware
	logger           *log.Logger
	sl               *log.StructuredLogger

	started      time.Time
	shutdownOnce sync.Once
}

func NewServer(addr, userID string, deps Dependencies) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	limiter := deps.Limiter
	if limiter == nil {
		limiter = ratelimit.NewLimiter(ratelimit.DefaultConfig())
	}

	mux := http.NewServeMux()
	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadTimeout:       10 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
			MaxHeaderBytes:    1 << 20,
		},
		ledger:           deps.Ledger,
		dashboard:        deps.Dashboard,
		reports:          deps.Reports,
		storage:          deps.Storage,
		feedStats:        deps.FeedStats,
		userID:           userID,
		rateLimiter:      limiter,
		securityDetector: security.NewDetector(),
		logger:           logger,
		sl:               log.NewStructuredLogger(logger),
		started:          time.Now(),
	}
	for _, cidr := range deps.TrustedProxies {
		if err := s.securityDetector.AddTrustedProxy(cidr); err != nil {
			logger.Warn("Ignoring trusted proxy", log.FieldError, err)
		}
	}
	s.traceMiddleware = trace.NewMiddleware(s.securityDetector.ExtractClientIP, logger)

	s.routes(mux)

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	limitLog := logger.WithComponent(log.ComponentRateLimit)
	limit := limiter.Middleware(s.securityDetector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		limitLog.WarnContext(r.Context(), "Rate limit exceeded", log.FieldClientIP, s.securityDetector.ExtractClientIP(r))
		ErrorResponse(http.StatusTooManyRequests, "rate_limited", "rate limit exceeded, try again later").Write(w)
	})

	// Outermost first: every request gets an id and a completion log line.
	s.Handler = s.traceMiddleware.Middleware(
		headers.Middleware(
			s.securityDetector.Middleware(
				limit(mux))))

	return s
}

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	mux.HandleFunc("GET /api/session", s.handleSession)
	mux.HandleFunc("DELETE /api/session/error", s.handleClearError)
	mux.HandleFunc("POST /api/celebrations/{id}/ack", s.handleAckCelebration)
	mux.HandleFunc("GET /api/categories", s.handleCategories)

	mux.HandleFunc("GET /api/transactions", s.handleListTransactions)
	mux.HandleFunc("POST /api/transactions", s.handleCreateTransaction)
	mux.HandleFunc("GET /api/transactions/{id}", s.handleGetTransaction)
	mux.HandleFunc("PUT /api/transactions/{id}", s.handleUpdateTransaction)
	mux.HandleFunc("DELETE /api/transactions/{id}", s.handleDeleteTransaction)
	mux.HandleFunc("POST /api/transactions/{id}/restore", s.handleRestoreTransaction)
	mux.HandleFunc("POST /api/transactions/{id}/reverse", s.handleReverseTransaction)
	mux.HandleFunc("POST /api/transactions/bulk-update", s.handleBulkUpdate)
	mux.HandleFunc("POST /api/transactions/bulk-delete", s.handleBulkDelete)
	mux.HandleFunc("POST /api/transactions/merge", s.handleMerge)
	mux.HandleFunc("POST /api/transactions/clone-month", s.handleCloneMonth)
	mux.HandleFunc("POST /api/transfers", s.handleTransfer)

	mux.HandleFunc("GET /api/goals", s.handleListGoals)
	mux.HandleFunc("POST /api/goals", s.handleCreateGoal)
	mux.HandleFunc("PUT /api/goals/{id}", s.handleUpdateGoal)
	mux.HandleFunc("DELETE /api/goals/{id}", s.handleDeleteGoal)
	mux.HandleFunc("POST /api/goals/{id}/contributions", s.handleContribute)
	mux.HandleFunc("POST /api/goals/{id}/withdrawals", s.handleWithdraw)

	mux.HandleFunc("GET /api/debts", s.handleListDebts)
	mux.HandleFunc("POST /api/debts", s.handleCreateDebt)
	mux.HandleFunc("PUT /api/debts/{id}", s.handleUpdateDebt)
	mux.HandleFunc("DELETE /api/debts/{id}", s.handleDeleteDebt)
	mux.HandleFunc("POST /api/debts/{id}/payments", s.handlePayDebt)

	mux.HandleFunc("GET /api/budgets", s.handleListBudgets)
	mux.HandleFunc("POST /api/budgets", s.handleCreateBudget)
	mux.HandleFunc("PUT /api/budgets/{id}", s.handleUpdateBudget)
	mux.HandleFunc("DELETE /api/budgets/{id}", s.handleDeleteBudget)

	mux.HandleFunc("GET /api/investments", s.handleListInvestments)
	mux.HandleFunc("POST /api/investments", s.handleCreateInvestment)
	mux.HandleFunc("PUT /api/investments/{id}", s.handleUpdateInvestment)
	mux.HandleFunc("DELETE /api/investments/{id}", s.handleDeleteInvestment)

	mux.HandleFunc("GET /api/accounts", s.handleListAccounts)
	mux.HandleFunc("POST /api/accounts", s.handleCreateAccount)
	mux.HandleFunc("PUT /api/accounts/{id}", s.handleUpdateAccount)
	mux.HandleFunc("DELETE /api/accounts/{id}", s.handleDeleteAccount)

	mux.HandleFunc("GET /api/scheduled", s.handleListScheduled)
	mux.HandleFunc("POST /api/scheduled", s.handleCreateScheduled)
	mux.HandleFunc("PUT /api/scheduled/{id}", s.handleUpdateScheduled)
	mux.HandleFunc("DELETE /api/scheduled/{id}", s.handleDeleteScheduled)
	mux.HandleFunc("POST /api/scheduled/{id}/pay", s.handlePayScheduled)
	mux.HandleFunc("GET /api/upcoming", s.handleUpcoming)

	mux.HandleFunc("GET /api/dashboard", s.handleDashboard)
	mux.HandleFunc("GET /api/reports/month", s.handleMonthReport)
	mux.HandleFunc("GET /api/budgets/usage", s.handleBudgetUsage)
	mux.HandleFunc("GET /api/audit", s.handleAudit)
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", "addr", s.Addr)
		if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.Shutdown(shutdownCtx)
}

// Shutdown stops accepting requests and waits for in-flight handlers.
// Pending background commits are flushed before it returns.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.logger.Info("Shutting down HTTP server")
		err = s.Server.Shutdown(ctx)
		if s.ledger != nil {
			s.ledger.Close()
		}
	})
	return err
}
