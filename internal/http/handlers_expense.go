package http

import (
	"net/http"

	"finman/internal/amqp"
	"finman/internal/core"
)

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	month, err := parseDate(req.Month)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	expense := core.Expense{
		UserID:      req.UserID,
		Month:       month,
		Category:    sanitizeInput(req.Category),
		Amount:      core.FromRupees(req.Amount),
		Description: sanitizeInput(req.Description),
	}
	if err := expense.Validate(); err != nil {
		respondValidationError(w, r, err)
		return
	}

	created, err := s.deps.Storage.CreateExpense(r.Context(), expense)
	if err != nil {
		respondStorageError(w, r, err)
		return
	}

	s.invalidateHistory(created.UserID)
	s.publishJob(r.Context(), amqp.NewSnapshotJob(created.UserID, created.Month))
	respondJSON(w, r, http.StatusCreated, toExpenseResponse(created))
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "user")
	if err != nil {
		respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	expenses, err := s.deps.Storage.ListExpenses(r.Context(), userID)
	if err != nil {
		respondStorageError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, toExpenseResponses(expenses))
}

func (s *Server) handleListExpensesForMonth(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "user")
	if err != nil {
		respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	month, err := parseMonthPath(r)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	expenses, err := s.deps.Storage.ListExpensesForMonth(r.Context(), userID, month)
	if err != nil {
		respondStorageError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, toExpenseResponses(expenses))
}

// anomalyResponse reports one month whose spending exceeded the
// detection threshold.
type anomalyResponse struct {
	Month     string  `json:"month"`
	Total     float64 `json:"total"`
	Mean      float64 `json:"mean"`
	Threshold float64 `json:"threshold"`
}

func (s *Server) handleExpenseAnomalies(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "user")
	if err != nil {
		respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	anomalies, err := s.deps.Anomalies.Detect(r.Context(), userID)
	if err != nil {
		respondStorageError(w, r, err)
		return
	}
	out := make([]anomalyResponse, 0, len(anomalies))
	for _, a := range anomalies {
		out = append(out, anomalyResponse{
			Month:     a.Month.String(),
			Total:     a.Total.Rupees(),
			Mean:      a.Mean.Rupees(),
			Threshold: a.Threshold.Rupees(),
		})
	}
	respondJSON(w, r, http.StatusOK, out)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	s.deleteByID(w, r, s.deps.Storage.DeleteExpense)
}

func toExpenseResponses(expenses []core.Expense) []expenseResponse {
	out := make([]expenseResponse, 0, len(expenses))
	for _, e := range expenses {
		out = append(out, toExpenseResponse(e))
	}
	return out
}
