package http

import (
	"net/http"

	"financehub/internal/aggregate"
	"financehub/internal/services"
)

const maxUpcomingDays = 366

func (s *Server) handleListScheduled(w http.ResponseWriter, r *http.Request) {
	snap := s.ledger.Snapshot()
	writeJSON(w, http.StatusOK, emptyList(snap.ScheduledList()))
}

func (s *Server) handleCreateScheduled(w http.ResponseWriter, r *http.Request) {
	var req ScheduledRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.badRequest(w, r, err)
		return
	}
	draft, err := req.Scheduled("")
	if err != nil {
		s.badRequest(w, r, err)
		return
	}
	if draft.StartDate.IsEmpty() {
		draft.StartDate = s.ledger.Today()
	}
	st, err := s.ledger.AddScheduled(r.Context(), draft)
	if err != nil {
		s.fail(w, r, "add_scheduled", err)
		return
	}
	writeJSON(w, http.StatusCreated, st)
}

// handleUpdateScheduled replaces the schedule's fields. Changing frequency
// or start date re-projects the next due date; other edits keep it.
func (s *Server) handleUpdateScheduled(w http.ResponseWriter, r *http.Request) {
	var req ScheduledRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.badRequest(w, r, err)
		return
	}
	next, err := req.Scheduled(r.PathValue("id"))
	if err != nil {
		s.badRequest(w, r, err)
		return
	}
	st, err := s.ledger.UpdateScheduled(r.Context(), next)
	if err != nil {
		s.fail(w, r, "update_scheduled", err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleDeleteScheduled(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.DeleteScheduled(r.Context(), r.PathValue("id")); err != nil {
		s.fail(w, r, "delete_scheduled", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handlePayScheduled posts the next occurrence today and advances the
// schedule by one period.
func (s *Server) handlePayScheduled(w http.ResponseWriter, r *http.Request) {
	tx, err := s.ledger.PayScheduledNow(r.Context(), r.PathValue("id"))
	if err != nil {
		s.fail(w, r, "pay_scheduled_now", err)
		return
	}
	writeJSON(w, http.StatusCreated, tx)
}

// handleUpcoming lists occurrences due within days (default 30), overdue
// ones included.
func (s *Server) handleUpcoming(w http.ResponseWriter, r *http.Request) {
	days, err := ParseIntParam(r.URL.Query(), "days", services.UpcomingWindowDays, maxUpcomingDays)
	if err != nil {
		s.badRequest(w, r, err)
		return
	}
	snap := s.ledger.Snapshot()
	writeJSON(w, http.StatusOK, emptyList(aggregate.Upcoming(&snap, s.ledger.Today(), days)))
}
