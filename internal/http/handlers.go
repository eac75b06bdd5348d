package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"financehub/internal/ledger"
	"financehub/internal/log"
)

// fail writes the response for a ledger error and logs it with the
// request-scoped logger. Client errors log at warn, the rest at error.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	logger := log.FromContext(r.Context())
	switch {
	case errors.Is(err, ledger.ErrNotFound), ledger.IsValidation(err), ledger.IsConsistency(err):
		logger.WarnContext(r.Context(), "Ledger operation rejected",
			log.FieldOperation, op,
			log.FieldError, err.Error())
	default:
		log.NewStructuredLogger(logger).LogError(r.Context(), "Ledger operation failed", err, log.ComponentHTTP, op, nil)
	}
	LedgerError(err, resourceOf(r)).Write(w)
}

// collections maps URL collections to the entity kind the ledger names in
// not-found errors.
var collections = map[string]string{
	"transactions": "transaction",
	"goals":        "goal",
	"debts":        "debt",
	"budgets":      "budget",
	"investments":  "investment",
	"accounts":     "account",
	"scheduled":    "scheduled_transaction",
}

// resourceOf returns the entity kind addressed by the matched route's {id},
// or "" for collection routes.
func resourceOf(r *http.Request) string {
	_, path, _ := strings.Cut(r.Pattern, " ")
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) < 3 || parts[2] != "{id}" {
		return ""
	}
	return collections[parts[1]]
}

func (s *Server) badRequest(w http.ResponseWriter, r *http.Request, err error) {
	log.FromContext(r.Context()).DebugContext(r.Context(), "Bad request", log.FieldError, err.Error())
	BadRequestError(err.Error()).Write(w)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	NewJSONResponse().Status(status).Data(v).Write(w)
}

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).String(),
	})
}

// handleReady performs readiness check with dependency verification
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]any)

	if s.storage != nil {
		if err := s.storage.Ping(ctx); err != nil {
			checks["storage"] = fmt.Sprintf("failed: %v", err)
			status = "not_ready"
			httpStatus = http.StatusServiceUnavailable
		} else {
			checks["storage"] = "ok"
		}
	} else {
		checks["storage"] = "memory"
	}

	// A failed background commit leaves the session in an error state
	// until it is cleared; the service still answers reads.
	if err := s.ledger.Err(); err != nil {
		checks["ledger"] = fmt.Sprintf("degraded: %v", err)
	} else {
		checks["ledger"] = "ok"
	}

	checks["rate_limiter"] = map[string]any{
		"active_clients": s.rateLimiter.ActiveClients(),
		"status":         "ok",
	}

	writeJSON(w, httpStatus, map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"version":   s.ledger.Store().Version(),
		"checks":    checks,
	})
}

// handleMetrics provides application and security metrics in plain text format
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	securityMetrics := s.securityDetector.GetMetrics()
	rateLimitMetrics := s.rateLimiter.GetMetrics()
	traceMetrics := s.traceMiddleware.GetMetrics()
	snap := s.ledger.Snapshot()

	w.WriteHeader(http.StatusOK)

	fmt.Fprintf(w, "# HELP http_requests_total Total number of HTTP requests\n")
	fmt.Fprintf(w, "# TYPE http_requests_total counter\n")
	fmt.Fprintf(w, "http_requests_total %d\n\n", traceMetrics.TotalRequests)

	fmt.Fprintf(w, "# HELP http_server_errors_total Responses with a 5xx status\n")
	fmt.Fprintf(w, "# TYPE http_server_errors_total counter\n")
	fmt.Fprintf(w, "http_server_errors_total %d\n\n", traceMetrics.ServerErrors)

	fmt.Fprintf(w, "# HELP ledger_version Current store version\n")
	fmt.Fprintf(w, "# TYPE ledger_version gauge\n")
	fmt.Fprintf(w, "ledger_version %d\n\n", snap.Version)

	fmt.Fprintf(w, "# HELP ledger_records Records held by the store\n")
	fmt.Fprintf(w, "# TYPE ledger_records gauge\n")
	fmt.Fprintf(w, "ledger_records{kind=\"transaction\"} %d\n", len(snap.Transactions))
	fmt.Fprintf(w, "ledger_records{kind=\"goal\"} %d\n", len(snap.Goals))
	fmt.Fprintf(w, "ledger_records{kind=\"debt\"} %d\n", len(snap.Debts))
	fmt.Fprintf(w, "ledger_records{kind=\"scheduled\"} %d\n\n", len(snap.Scheduled))

	fmt.Fprintf(w, "# HELP ledger_mutations_in_flight Records with an unsettled mutation\n")
	fmt.Fprintf(w, "# TYPE ledger_mutations_in_flight gauge\n")
	fmt.Fprintf(w, "ledger_mutations_in_flight %d\n\n", len(s.ledger.MutatingIDs()))

	if s.feedStats != nil {
		fs := s.feedStats()
		fmt.Fprintf(w, "# HELP feed_messages_total Change feed messages by outcome\n")
		fmt.Fprintf(w, "# TYPE feed_messages_total counter\n")
		fmt.Fprintf(w, "feed_messages_total{outcome=\"merged\"} %d\n", fs.Merged)
		fmt.Fprintf(w, "feed_messages_total{outcome=\"skipped\"} %d\n", fs.Skipped)
		fmt.Fprintf(w, "feed_messages_total{outcome=\"dropped\"} %d\n\n", fs.Dropped)
	}

	fmt.Fprintf(w, "# HELP rate_limit_hits_total Total rate limit hits\n")
	fmt.Fprintf(w, "# TYPE rate_limit_hits_total counter\n")
	fmt.Fprintf(w, "rate_limit_hits_total %d\n\n", rateLimitMetrics.TotalHits)

	fmt.Fprintf(w, "# HELP suspicious_requests_total Total suspicious requests detected\n")
	fmt.Fprintf(w, "# TYPE suspicious_requests_total counter\n")
	fmt.Fprintf(w, "suspicious_requests_total %d\n\n", securityMetrics.SuspiciousRequests)

	fmt.Fprintf(w, "# HELP active_rate_limit_clients Currently tracked rate limit clients\n")
	fmt.Fprintf(w, "# TYPE active_rate_limit_clients gauge\n")
	fmt.Fprintf(w, "active_rate_limit_clients %d\n\n", rateLimitMetrics.ClientCount)

	fmt.Fprintf(w, "# HELP uptime_seconds Application uptime in seconds\n")
	fmt.Fprintf(w, "# TYPE uptime_seconds gauge\n")
	fmt.Fprintf(w, "uptime_seconds %.0f\n\n", time.Since(s.started).Seconds())
}

// handleSession reports the ledger's UI-facing session state: the records
// with unsettled writes, the last background failure and pending goal
// celebrations.
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ledger.Session())
}

func (s *Server) handleClearError(w http.ResponseWriter, r *http.Request) {
	s.ledger.ClearError()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAckCelebration(w http.ResponseWriter, r *http.Request) {
	s.ledger.AckCelebration(r.PathValue("id"))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ledger.Categories().All())
}
