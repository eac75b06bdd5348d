package http

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"financehub/internal/aggregate"
	"financehub/internal/core"
	"financehub/internal/log"
)

const (
	maxChartMonths = 36
	maxAuditLimit  = 1000
)

// handleDashboard returns every dashboard figure computed from one snapshot.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	months, err := ParseIntParam(r.URL.Query(), "months", aggregate.DefaultChartMonths, maxChartMonths)
	if err != nil {
		s.badRequest(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 7*time.Second)
	defer cancel()

	d, err := s.dashboard.Get(ctx, months)
	if err != nil {
		log.FromContext(ctx).ErrorContext(ctx, "Dashboard computation failed", log.FieldError, err.Error())
		if errors.Is(err, context.DeadlineExceeded) {
			ErrorResponse(http.StatusServiceUnavailable, log.ErrorTypeTimeout, "dashboard computation timed out").Write(w)
			return
		}
		InternalServerError("dashboard unavailable").Write(w)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// MonthReport is a month's totals plus where they were read from.
type MonthReport struct {
	core.MonthOverview
	Label  string     `json:"label"`
	Net    core.Money `json:"net"`
	Source string     `json:"source"`
}

// handleMonthReport answers from storage when a reader is configured and
// falls back to the in-memory snapshot otherwise or on failure.
func (s *Server) handleMonthReport(w http.ResponseWriter, r *http.Request) {
	month, err := ParseMonthParam(r.URL.Query(), "month", s.ledger.Today())
	if err != nil {
		s.badRequest(w, r, err)
		return
	}

	if s.reports != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 7*time.Second)
		defer cancel()
		ov, err := s.reports.ReadMonthOverview(ctx, s.userID, month.Year(), month.Month())
		if err == nil {
			writeJSON(w, http.StatusOK, MonthReport{MonthOverview: ov, Label: ov.Label(), Net: ov.Net(), Source: "storage"})
			return
		}
		log.FromContext(ctx).WarnContext(ctx, "Month overview read failed, using snapshot",
			log.FieldError, err.Error(),
			log.FieldComponent, log.ComponentStorage)
	}

	snap := s.ledger.Snapshot()
	ov := aggregate.MonthlyChartData(&snap, month, 1)[0]
	ov.ByCategory = aggregate.CategoryBreakdown(&snap, month)
	writeJSON(w, http.StatusOK, MonthReport{MonthOverview: ov, Label: ov.Label(), Net: ov.Net(), Source: "snapshot"})
}

func (s *Server) handleBudgetUsage(w http.ResponseWriter, r *http.Request) {
	snap := s.ledger.Snapshot()
	writeJSON(w, http.StatusOK, emptyList(aggregate.BudgetUsage(&snap, s.ledger.Today())))
}

// handleAudit lists audit entries newest first. entity and id narrow the
// list to one record's history; group returns one composite operation.
func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	limit, err := ParseIntParam(query, "limit", 100, maxAuditLimit)
	if err != nil {
		s.badRequest(w, r, err)
		return
	}

	audit := s.ledger.AuditLog()
	entity := strings.TrimSpace(query.Get("entity"))
	id := strings.TrimSpace(query.Get("id"))
	group := strings.TrimSpace(query.Get("group"))

	var entries []core.AuditEntry
	switch {
	case group != "":
		entries = audit.Group(group)
	case entity != "" && id != "":
		entries = audit.ForEntity(core.Kind(entity), id)
	case entity != "" || id != "":
		BadRequestError("entity and id must be given together").Write(w)
		return
	default:
		entries = audit.Entries()
	}

	// Entries are kept in append order.
	out := make([]core.AuditEntry, 0, min(limit, len(entries)))
	for i := len(entries) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, entries[i])
	}
	writeJSON(w, http.StatusOK, out)
}
