package http

import (
	"net/http"
	"strings"

	"financehub/internal/aggregate"
	"financehub/internal/core"
)

// handleListTransactions lists transactions newest first. q filters by
// words in the description or notes; deleted=true includes the trash.
func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	includeDeleted, err := ParseBoolParam(query, "deleted")
	if err != nil {
		s.badRequest(w, r, err)
		return
	}
	snap := s.ledger.Snapshot()

	var txs []core.Transaction
	switch q := strings.TrimSpace(query.Get("q")); {
	case q != "":
		txs = aggregate.SearchTransactions(&snap, q)
	case includeDeleted:
		txs = snap.TransactionList()
	default:
		txs = snap.ActiveTransactions()
	}

	if month := query.Get("month"); month != "" {
		m, err := ParseMonthParam(query, "month", s.ledger.Today())
		if err != nil {
			s.badRequest(w, r, err)
			return
		}
		filtered := txs[:0:0]
		for _, t := range txs {
			if t.Date.SameMonth(m) {
				filtered = append(filtered, t)
			}
		}
		txs = filtered
	}
	if txs == nil {
		txs = []core.Transaction{}
	}
	writeJSON(w, http.StatusOK, txs)
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	snap := s.ledger.Snapshot()
	t, ok := snap.Transactions[r.PathValue("id")]
	if !ok {
		NotFoundError("transaction not found").Write(w)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req TransactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.badRequest(w, r, err)
		return
	}
	draft, err := req.Transaction("")
	if err != nil {
		s.badRequest(w, r, err)
		return
	}
	if draft.Date.IsEmpty() {
		draft.Date = s.ledger.Today()
	}
	tx, err := s.ledger.AddTransaction(r.Context(), draft)
	if err != nil {
		s.fail(w, r, "add_transaction", err)
		return
	}
	s.sl.LogMutation(r.Context(), "add_transaction", string(core.KindTransaction), tx.ID, tx.Amount.Cents)
	writeJSON(w, http.StatusCreated, tx)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	var req TransactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.badRequest(w, r, err)
		return
	}
	next, err := req.Transaction(r.PathValue("id"))
	if err != nil {
		s.badRequest(w, r, err)
		return
	}
	// Omitted account, status and date keep their stored values.
	snap := s.ledger.Snapshot()
	if cur, ok := snap.Transactions[next.ID]; ok {
		if next.AccountID == "" {
			next.AccountID = cur.AccountID
		}
		if next.Status == "" {
			next.Status = cur.Status
		}
		if next.Date.IsEmpty() {
			next.Date = cur.Date
		}
	}
	tx, err := s.ledger.UpdateTransaction(r.Context(), next)
	if err != nil {
		s.fail(w, r, "update_transaction", err)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

// handleDeleteTransaction moves a transaction to the trash, or removes it for
// good with permanent=true.
func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	permanent, err := ParseBoolParam(r.URL.Query(), "permanent")
	if err != nil {
		s.badRequest(w, r, err)
		return
	}
	id := r.PathValue("id")
	op := "delete_transaction"
	if permanent {
		op = "permanent_delete_transaction"
		err = s.ledger.PermanentDeleteTransaction(r.Context(), id)
	} else {
		err = s.ledger.DeleteTransaction(r.Context(), id)
	}
	if err != nil {
		s.fail(w, r, op, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRestoreTransaction(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.ledger.RestoreTransaction(r.Context(), id); err != nil {
		s.fail(w, r, "restore_transaction", err)
		return
	}
	snap := s.ledger.Snapshot()
	writeJSON(w, http.StatusOK, snap.Transactions[id])
}

// handleReverseTransaction undoes a goal contribution, goal withdrawal or
// debt payment together with its effect on the owner.
func (s *Server) handleReverseTransaction(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.ReverseLinkedTransaction(r.Context(), r.PathValue("id")); err != nil {
		s.fail(w, r, "reverse_linked_transaction", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleTransfer(w http.ResponseWriter, r *http.Request) {
	var req TransferRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.badRequest(w, r, err)
		return
	}
	amount, opts, err := req.Parse()
	if err != nil {
		s.badRequest(w, r, err)
		return
	}
	legs, err := s.ledger.AddTransfer(r.Context(), req.FromAccountID, req.ToAccountID, amount, opts...)
	if err != nil {
		s.fail(w, r, "add_transfer", err)
		return
	}
	writeJSON(w, http.StatusCreated, legs)
}

func (s *Server) handleBulkUpdate(w http.ResponseWriter, r *http.Request) {
	var req BulkUpdateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.badRequest(w, r, err)
		return
	}
	patch, err := req.Patch()
	if err != nil {
		s.badRequest(w, r, err)
		return
	}
	txs, err := s.ledger.BulkUpdateTransactions(r.Context(), req.IDs, patch)
	if err != nil {
		s.fail(w, r, "bulk_update_transactions", err)
		return
	}
	writeJSON(w, http.StatusOK, txs)
}

func (s *Server) handleBulkDelete(w http.ResponseWriter, r *http.Request) {
	var req IDsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.badRequest(w, r, err)
		return
	}
	if err := s.ledger.BulkDeleteTransactions(r.Context(), req.IDs); err != nil {
		s.fail(w, r, "bulk_delete_transactions", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMerge(w http.ResponseWriter, r *http.Request) {
	var req MergeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.badRequest(w, r, err)
		return
	}
	tx, err := s.ledger.MergeTransactions(r.Context(), req.IDs, req.Description)
	if err != nil {
		s.fail(w, r, "merge_transactions", err)
		return
	}
	writeJSON(w, http.StatusCreated, tx)
}

func (s *Server) handleCloneMonth(w http.ResponseWriter, r *http.Request) {
	var req CloneMonthRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.badRequest(w, r, err)
		return
	}
	from, to, err := req.Months()
	if err != nil {
		s.badRequest(w, r, err)
		return
	}
	txs, err := s.ledger.CloneMonth(r.Context(), from, to)
	if err != nil {
		s.fail(w, r, "clone_month", err)
		return
	}
	if txs == nil {
		txs = []core.Transaction{}
	}
	writeJSON(w, http.StatusCreated, txs)
}

