package http

import (
	"net/http"

	"financehub/internal/core"
)

// emptyList keeps list endpoints answering [] rather than null.
func emptyList[T any](xs []T) []T {
	if xs == nil {
		return []T{}
	}
	return xs
}

func (s *Server) handleListGoals(w http.ResponseWriter, r *http.Request) {
	snap := s.ledger.Snapshot()
	writeJSON(w, http.StatusOK, emptyList(snap.GoalList()))
}

func (s *Server) handleCreateGoal(w http.ResponseWriter, r *http.Request) {
	var req GoalRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.badRequest(w, r, err)
		return
	}
	draft, err := req.Goal("")
	if err != nil {
		s.badRequest(w, r, err)
		return
	}
	g, err := s.ledger.AddGoal(r.Context(), draft)
	if err != nil {
		s.fail(w, r, "add_goal", err)
		return
	}
	writeJSON(w, http.StatusCreated, g)
}

// handleUpdateGoal edits name, target and deadline. The balance only moves
// through contributions and withdrawals, so current_amount is ignored.
func (s *Server) handleUpdateGoal(w http.ResponseWriter, r *http.Request) {
	var req GoalRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.badRequest(w, r, err)
		return
	}
	next, err := req.Goal(r.PathValue("id"))
	if err != nil {
		s.badRequest(w, r, err)
		return
	}
	g, err := s.ledger.UpdateGoal(r.Context(), next)
	if err != nil {
		s.fail(w, r, "update_goal", err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (s *Server) handleDeleteGoal(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.DeleteGoal(r.Context(), r.PathValue("id")); err != nil {
		s.fail(w, r, "delete_goal", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleContribute(w http.ResponseWriter, r *http.Request) {
	var req LinkRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.badRequest(w, r, err)
		return
	}
	amount, opts, err := req.Parse()
	if err != nil {
		s.badRequest(w, r, err)
		return
	}
	tx, err := s.ledger.ContributeToGoal(r.Context(), r.PathValue("id"), amount, opts...)
	if err != nil {
		s.fail(w, r, "contribute_to_goal", err)
		return
	}
	s.sl.LogMutation(r.Context(), "contribute_to_goal", string(core.KindGoal), r.PathValue("id"), amount.Cents)
	writeJSON(w, http.StatusCreated, tx)
}

func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	var req LinkRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.badRequest(w, r, err)
		return
	}
	amount, opts, err := req.Parse()
	if err != nil {
		s.badRequest(w, r, err)
		return
	}
	tx, err := s.ledger.WithdrawFromGoal(r.Context(), r.PathValue("id"), amount, opts...)
	if err != nil {
		s.fail(w, r, "withdraw_from_goal", err)
		return
	}
	writeJSON(w, http.StatusCreated, tx)
}

func (s *Server) handleListDebts(w http.ResponseWriter, r *http.Request) {
	snap := s.ledger.Snapshot()
	writeJSON(w, http.StatusOK, emptyList(snap.DebtList()))
}

func (s *Server) handleCreateDebt(w http.ResponseWriter, r *http.Request) {
	var req DebtRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.badRequest(w, r, err)
		return
	}
	draft, err := req.Debt("")
	if err != nil {
		s.badRequest(w, r, err)
		return
	}
	d, err := s.ledger.AddDebt(r.Context(), draft)
	if err != nil {
		s.fail(w, r, "add_debt", err)
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

func (s *Server) handleUpdateDebt(w http.ResponseWriter, r *http.Request) {
	var req DebtRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.badRequest(w, r, err)
		return
	}
	next, err := req.Debt(r.PathValue("id"))
	if err != nil {
		s.badRequest(w, r, err)
		return
	}
	d, err := s.ledger.UpdateDebt(r.Context(), next)
	if err != nil {
		s.fail(w, r, "update_debt", err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleDeleteDebt(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.DeleteDebt(r.Context(), r.PathValue("id")); err != nil {
		s.fail(w, r, "delete_debt", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePayDebt(w http.ResponseWriter, r *http.Request) {
	var req LinkRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.badRequest(w, r, err)
		return
	}
	amount, opts, err := req.Parse()
	if err != nil {
		s.badRequest(w, r, err)
		return
	}
	tx, err := s.ledger.PayDebt(r.Context(), r.PathValue("id"), amount, opts...)
	if err != nil {
		s.fail(w, r, "pay_debt", err)
		return
	}
	s.sl.LogMutation(r.Context(), "pay_debt", string(core.KindDebt), r.PathValue("id"), amount.Cents)
	writeJSON(w, http.StatusCreated, tx)
}

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	snap := s.ledger.Snapshot()
	writeJSON(w, http.StatusOK, emptyList(snap.BudgetList()))
}

func (s *Server) handleCreateBudget(w http.ResponseWriter, r *http.Request) {
	var req BudgetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.badRequest(w, r, err)
		return
	}
	draft, err := req.Budget("")
	if err != nil {
		s.badRequest(w, r, err)
		return
	}
	b, err := s.ledger.AddBudget(r.Context(), draft)
	if err != nil {
		s.fail(w, r, "add_budget", err)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

func (s *Server) handleUpdateBudget(w http.ResponseWriter, r *http.Request) {
	var req BudgetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.badRequest(w, r, err)
		return
	}
	next, err := req.Budget(r.PathValue("id"))
	if err != nil {
		s.badRequest(w, r, err)
		return
	}
	b, err := s.ledger.UpdateBudget(r.Context(), next)
	if err != nil {
		s.fail(w, r, "update_budget", err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.DeleteBudget(r.Context(), r.PathValue("id")); err != nil {
		s.fail(w, r, "delete_budget", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListInvestments(w http.ResponseWriter, r *http.Request) {
	snap := s.ledger.Snapshot()
	writeJSON(w, http.StatusOK, emptyList(snap.InvestmentList()))
}

func (s *Server) handleCreateInvestment(w http.ResponseWriter, r *http.Request) {
	var req InvestmentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.badRequest(w, r, err)
		return
	}
	draft, err := req.Investment("")
	if err != nil {
		s.badRequest(w, r, err)
		return
	}
	inv, err := s.ledger.AddInvestment(r.Context(), draft)
	if err != nil {
		s.fail(w, r, "add_investment", err)
		return
	}
	writeJSON(w, http.StatusCreated, inv)
}

func (s *Server) handleUpdateInvestment(w http.ResponseWriter, r *http.Request) {
	var req InvestmentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.badRequest(w, r, err)
		return
	}
	next, err := req.Investment(r.PathValue("id"))
	if err != nil {
		s.badRequest(w, r, err)
		return
	}
	inv, err := s.ledger.UpdateInvestment(r.Context(), next)
	if err != nil {
		s.fail(w, r, "update_investment", err)
		return
	}
	writeJSON(w, http.StatusOK, inv)
}

func (s *Server) handleDeleteInvestment(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.DeleteInvestment(r.Context(), r.PathValue("id")); err != nil {
		s.fail(w, r, "delete_investment", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	snap := s.ledger.Snapshot()
	writeJSON(w, http.StatusOK, emptyList(snap.AccountList()))
}

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var req AccountRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.badRequest(w, r, err)
		return
	}
	a, err := s.ledger.AddAccount(r.Context(), req.Account(""))
	if err != nil {
		s.fail(w, r, "add_account", err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

func (s *Server) handleUpdateAccount(w http.ResponseWriter, r *http.Request) {
	var req AccountRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.badRequest(w, r, err)
		return
	}
	a, err := s.ledger.UpdateAccount(r.Context(), req.Account(r.PathValue("id")))
	if err != nil {
		s.fail(w, r, "update_account", err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// handleDeleteAccount refuses while any transaction or schedule still
// references the account.
func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.DeleteAccount(r.Context(), r.PathValue("id")); err != nil {
		s.fail(w, r, "delete_account", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
