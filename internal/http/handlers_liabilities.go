package http

import (
	"errors"
	"net/http"
	"time"

	"finman/internal/amqp"
	"finman/internal/calc"
	"finman/internal/core"
	"finman/internal/services"
)

func (s *Server) handleCreateLoan(w http.ResponseWriter, r *http.Request) {
	var req loanRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	startDate, err := parseDate(req.StartDate)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	loan := core.Loan{
		UserID:       req.UserID,
		LoanType:     sanitizeInput(req.LoanType),
		Principal:    core.FromRupees(req.Principal),
		RatePct:      req.RatePct,
		TenureMonths: req.TenureMonths,
		StartDate:    startDate,
		Active:       true,
	}
	if err := loan.Validate(); err != nil {
		respondValidationError(w, r, err)
		return
	}

	created, err := s.deps.Storage.CreateLoan(r.Context(), loan)
	if err != nil {
		respondStorageError(w, r, err)
		return
	}

	s.invalidateHistory(created.UserID)
	s.publishJob(r.Context(), amqp.NewSnapshotJob(created.UserID, core.Date{Time: time.Now()}))
	respondJSON(w, r, http.StatusCreated, toLoanResponse(created))
}

func (s *Server) handleListLoans(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "user")
	if err != nil {
		respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	loans, err := s.deps.Storage.ListLoans(r.Context(), userID)
	if err != nil {
		respondStorageError(w, r, err)
		return
	}
	out := make([]loanResponse, 0, len(loans))
	for _, l := range loans {
		out = append(out, toLoanResponse(l))
	}
	respondJSON(w, r, http.StatusOK, out)
}

type loanPaymentRequest struct {
	Payment float64 `json:"payment"`
}

// handleLoanPayment reduces a loan's outstanding by the payment amount.
// The loan deactivates automatically when the balance reaches zero.
func (s *Server) handleLoanPayment(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "user")
	if err != nil {
		respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	var req loanPaymentRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.Payment <= 0 {
		respondError(w, r, http.StatusUnprocessableEntity, "payment must be positive")
		return
	}

	loan, err := s.deps.Storage.ApplyLoanPayment(r.Context(), userID, id, core.FromRupees(req.Payment))
	if err != nil {
		respondStorageError(w, r, err)
		return
	}
	s.invalidateHistory(userID)
	respondJSON(w, r, http.StatusOK, toLoanResponse(loan))
}

type scheduleRowResponse struct {
	Month     int     `json:"month"`
	EMI       float64 `json:"emi"`
	Interest  float64 `json:"interest"`
	Principal float64 `json:"principal"`
	Balance   float64 `json:"balance"`
}

func (s *Server) handleLoanSchedule(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "user")
	if err != nil {
		respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	loan, err := s.deps.Storage.GetLoan(r.Context(), userID, id)
	if err != nil {
		respondStorageError(w, r, err)
		return
	}

	rows := calc.AmortizationSchedule(loan.Principal, loan.RatePct, loan.TenureMonths, loan.EMI)
	out := make([]scheduleRowResponse, 0, len(rows))
	for _, row := range rows {
		out = append(out, scheduleRowResponse{
			Month:     row.Month,
			EMI:       row.EMI.Rupees(),
			Interest:  row.Interest.Rupees(),
			Principal: row.Principal.Rupees(),
			Balance:   row.Balance.Rupees(),
		})
	}
	respondJSON(w, r, http.StatusOK, out)
}

func (s *Server) handleDeleteLoan(w http.ResponseWriter, r *http.Request) {
	s.deleteByID(w, r, s.deps.Storage.DeleteLoan)
}

func (s *Server) handleCreateInsurance(w http.ResponseWriter, r *http.Request) {
	var req insuranceRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	startDate, err := parseDate(req.StartDate)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	ins := core.Insurance{
		UserID:       req.UserID,
		Type:         sanitizeInput(req.Type),
		PolicyName:   sanitizeInput(req.PolicyName),
		PolicyNumber: sanitizeInput(req.PolicyNumber),
		Premium:      core.FromRupees(req.Premium),
		Frequency:    core.PremiumFrequency(sanitizeInput(req.Frequency)),
		Coverage:     core.FromRupees(req.Coverage),
		TenureYears:  req.TenureYears,
		StartDate:    startDate,
		Active:       true,
	}
	if err := ins.Validate(); err != nil {
		respondValidationError(w, r, err)
		return
	}

	created, err := s.deps.Storage.CreateInsurance(r.Context(), ins)
	if err != nil {
		respondStorageError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusCreated, toInsuranceResponse(created))
}

func (s *Server) handleListInsurances(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "user")
	if err != nil {
		respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	policies, err := s.deps.Storage.ListInsurances(r.Context(), userID)
	if err != nil {
		respondStorageError(w, r, err)
		return
	}
	out := make([]insuranceResponse, 0, len(policies))
	for _, p := range policies {
		out = append(out, toInsuranceResponse(p))
	}
	respondJSON(w, r, http.StatusOK, out)
}

func (s *Server) handleDeleteInsurance(w http.ResponseWriter, r *http.Request) {
	s.deleteByID(w, r, s.deps.Storage.DeleteInsurance)
}

func (s *Server) handleCreateCreditCard(w http.ResponseWriter, r *http.Request) {
	var req creditCardRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	card := core.CreditCard{
		UserID:   req.UserID,
		CardName: sanitizeInput(req.CardName),
		Last4:    sanitizeInput(req.Last4),
		Limit:    core.FromRupees(req.Limit),
		DueDay:   req.DueDay,
	}
	if err := card.Validate(); err != nil {
		respondValidationError(w, r, err)
		return
	}

	created, err := s.deps.Storage.CreateCreditCard(r.Context(), card)
	if err != nil {
		respondStorageError(w, r, err)
		return
	}
	s.invalidateHistory(created.UserID)
	respondJSON(w, r, http.StatusCreated, toCreditCardResponse(created))
}

func (s *Server) handleListCreditCards(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "user")
	if err != nil {
		respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	cards, err := s.deps.Storage.ListCreditCards(r.Context(), userID)
	if err != nil {
		respondStorageError(w, r, err)
		return
	}
	out := make([]creditCardResponse, 0, len(cards))
	for _, c := range cards {
		out = append(out, toCreditCardResponse(c))
	}
	respondJSON(w, r, http.StatusOK, out)
}

type cardOutstandingRequest struct {
	Outstanding float64 `json:"outstanding"`
}

func (s *Server) handleUpdateCardOutstanding(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "user")
	if err != nil {
		respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	var req cardOutstandingRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.Outstanding < 0 {
		respondError(w, r, http.StatusUnprocessableEntity, "outstanding cannot be negative")
		return
	}
	if err := s.deps.Storage.UpdateCreditCardOutstanding(r.Context(), userID, id, core.FromRupees(req.Outstanding)); err != nil {
		respondStorageError(w, r, err)
		return
	}
	s.invalidateHistory(userID)
	respondJSON(w, r, http.StatusOK, map[string]string{"status": "updated"})
}

func (s *Server) handleDeleteCreditCard(w http.ResponseWriter, r *http.Request) {
	s.deleteByID(w, r, s.deps.Storage.DeleteCreditCard)
}

func (s *Server) handleCreateSWP(w http.ResponseWriter, r *http.Request) {
	var req swpRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	startDate, err := parseDate(req.StartDate)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	swp := core.SWP{
		UserID:            req.UserID,
		SourceType:        sanitizeInput(req.SourceType),
		SourceID:          req.SourceID,
		MonthlyWithdrawal: core.FromRupees(req.MonthlyWithdrawal),
		StartDate:         startDate,
		Active:            true,
		LinkedLoanID:      req.LinkedLoanID,
	}
	if err := swp.Validate(); err != nil {
		respondValidationError(w, r, err)
		return
	}

	created, err := s.deps.Storage.CreateSWP(r.Context(), swp)
	if err != nil {
		respondStorageError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusCreated, toSWPResponse(created))
}

func (s *Server) handleListSWPs(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "user")
	if err != nil {
		respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	swps, err := s.deps.Storage.ListSWPs(r.Context(), userID)
	if err != nil {
		respondStorageError(w, r, err)
		return
	}
	out := make([]swpResponse, 0, len(swps))
	for _, sw := range swps {
		out = append(out, toSWPResponse(sw))
	}
	respondJSON(w, r, http.StatusOK, out)
}

// handleApplySWPToLoan routes one monthly withdrawal to the linked
// loan's outstanding and returns the reduced loan.
func (s *Server) handleApplySWPToLoan(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "user")
	if err != nil {
		respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	loan, err := s.deps.SWPLoans.ApplyToLoan(r.Context(), userID, id)
	if err != nil {
		if errors.Is(err, services.ErrSWPNotLinked) || errors.Is(err, services.ErrSWPInactive) {
			respondError(w, r, http.StatusUnprocessableEntity, err.Error())
			return
		}
		respondStorageError(w, r, err)
		return
	}
	s.invalidateHistory(userID)
	respondJSON(w, r, http.StatusOK, toLoanResponse(loan))
}

func (s *Server) handleDeleteSWP(w http.ResponseWriter, r *http.Request) {
	s.deleteByID(w, r, s.deps.Storage.DeleteSWP)
}
