package http

import (
	"net/http"

	"finman/internal/amqp"
	"finman/internal/core"
)

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req userRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	user := core.User{
		Name:  sanitizeInput(req.Name),
		Email: sanitizeInput(req.Email),
	}
	if user.Name == "" || user.Email == "" {
		respondError(w, r, http.StatusUnprocessableEntity, "name and email are required")
		return
	}

	created, err := s.deps.Storage.CreateUser(r.Context(), user)
	if err != nil {
		respondStorageError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusCreated, toUserResponse(created))
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	user, err := s.deps.Storage.GetUser(r.Context(), id)
	if err != nil {
		respondStorageError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, toUserResponse(user))
}

func (s *Server) handleCreateIncome(w http.ResponseWriter, r *http.Request) {
	var req incomeRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	month, err := parseDate(req.Month)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	income := core.Income{
		UserID:            req.UserID,
		Month:             month,
		Salary:            core.FromRupees(req.Salary),
		OtherIncome:       core.FromRupees(req.OtherIncome),
		OtherIncomeSource: sanitizeInput(req.OtherIncomeSource),
	}
	if err := income.Validate(); err != nil {
		respondValidationError(w, r, err)
		return
	}

	created, err := s.deps.Storage.CreateIncome(r.Context(), income)
	if err != nil {
		respondStorageError(w, r, err)
		return
	}

	s.invalidateHistory(created.UserID)
	s.publishJob(r.Context(), amqp.NewSnapshotJob(created.UserID, created.Month))
	respondJSON(w, r, http.StatusCreated, toIncomeResponse(created))
}

func (s *Server) handleListIncomes(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "user")
	if err != nil {
		respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	incomes, err := s.deps.Storage.ListIncomes(r.Context(), userID)
	if err != nil {
		respondStorageError(w, r, err)
		return
	}
	out := make([]incomeResponse, 0, len(incomes))
	for _, i := range incomes {
		out = append(out, toIncomeResponse(i))
	}
	respondJSON(w, r, http.StatusOK, out)
}

func (s *Server) handleGetIncomeForMonth(w http.ResponseWriter, r *http.Request) {
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
	income, err := s.deps.Storage.GetIncomeForMonth(r.Context(), userID, month)
	if err != nil {
		respondStorageError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, toIncomeResponse(income))
}

func (s *Server) handleDeleteIncome(w http.ResponseWriter, r *http.Request) {
	s.deleteByID(w, r, s.deps.Storage.DeleteIncome)
}
