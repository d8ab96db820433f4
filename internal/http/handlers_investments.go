package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"finman/internal/amqp"
	"finman/internal/core"
	"finman/internal/market"
)

func (s *Server) handleCreateStock(w http.ResponseWriter, r *http.Request) {
	var req stockRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	purchaseDate, err := parseDate(req.PurchaseDate)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	stock := core.Stock{
		UserID:        req.UserID,
		CompanyName:   sanitizeInput(req.CompanyName),
		Symbol:        sanitizeInput(req.Symbol),
		Quantity:      req.Quantity,
		PurchasePrice: core.FromRupees(req.PurchasePrice),
		PurchaseDate:  purchaseDate,
	}
	if err := stock.Validate(); err != nil {
		respondValidationError(w, r, err)
		return
	}

	created, err := s.deps.Storage.CreateStock(r.Context(), stock)
	if err != nil {
		respondStorageError(w, r, err)
		return
	}

	s.invalidateHistory(created.UserID)
	s.publishJob(r.Context(), amqp.NewPriceRefreshJob(created.UserID, created.ID))
	respondJSON(w, r, http.StatusCreated, toStockResponse(created))
}

func (s *Server) handleListStocks(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "user")
	if err != nil {
		respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	stocks, err := s.deps.Storage.ListStocks(r.Context(), userID)
	if err != nil {
		respondStorageError(w, r, err)
		return
	}
	out := make([]stockResponse, 0, len(stocks))
	for _, st := range stocks {
		out = append(out, toStockResponse(st))
	}
	respondJSON(w, r, http.StatusOK, out)
}

type stockPriceRequest struct {
	Price float64 `json:"price"`
}

func (s *Server) handleUpdateStockPrice(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	var req stockPriceRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.Price <= 0 {
		respondError(w, r, http.StatusUnprocessableEntity, "price must be positive")
		return
	}
	if err := s.deps.Storage.UpdateStockPrice(r.Context(), id, core.FromRupees(req.Price)); err != nil {
		respondStorageError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, map[string]string{"status": "updated"})
}

func (s *Server) handleRefreshStock(w http.ResponseWriter, r *http.Request) {
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

	stock, err := s.deps.Storage.GetStock(r.Context(), userID, id)
	if err != nil {
		respondStorageError(w, r, err)
		return
	}
	if err := s.deps.Prices.RefreshStock(r.Context(), stock); err != nil {
		if errors.Is(err, market.ErrNoQuote) {
			respondError(w, r, http.StatusNotFound, "no quote available for "+stock.Symbol)
			return
		}
		respondStorageError(w, r, err)
		return
	}

	refreshed, err := s.deps.Storage.GetStock(r.Context(), userID, id)
	if err != nil {
		respondStorageError(w, r, err)
		return
	}
	s.invalidateHistory(userID)
	respondJSON(w, r, http.StatusOK, toStockResponse(refreshed))
}

func (s *Server) handleDeleteStock(w http.ResponseWriter, r *http.Request) {
	s.deleteByID(w, r, s.deps.Storage.DeleteStock)
}

func (s *Server) handleCreateSIP(w http.ResponseWriter, r *http.Request) {
	var req sipRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	startDate, err := parseDate(req.StartDate)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	sip := core.SIP{
		UserID:        req.UserID,
		FundName:      sanitizeInput(req.FundName),
		MonthlyAmount: core.FromRupees(req.MonthlyAmount),
		StartDate:     startDate,
		ReturnRatePct: req.ReturnRatePct,
		Active:        true,
	}
	if err := sip.Validate(); err != nil {
		respondValidationError(w, r, err)
		return
	}

	created, err := s.deps.Storage.CreateSIP(r.Context(), sip)
	if err != nil {
		respondStorageError(w, r, err)
		return
	}

	s.invalidateHistory(created.UserID)
	s.publishJob(r.Context(), amqp.NewSnapshotJob(created.UserID, core.Date{Time: time.Now()}))
	respondJSON(w, r, http.StatusCreated, toSIPResponse(created))
}

func (s *Server) handleListSIPs(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "user")
	if err != nil {
		respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	sips, err := s.deps.Storage.ListSIPs(r.Context(), userID)
	if err != nil {
		respondStorageError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, toSIPResponses(sips))
}

// handleRefreshSIPValues reprojects invested and current values for all
// of the user's SIPs from months elapsed, then returns the fresh list.
func (s *Server) handleRefreshSIPValues(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "user")
	if err != nil {
		respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.deps.Storage.RefreshSIPValues(r.Context(), userID, time.Now().UTC()); err != nil {
		respondStorageError(w, r, err)
		return
	}
	sips, err := s.deps.Storage.ListSIPs(r.Context(), userID)
	if err != nil {
		respondStorageError(w, r, err)
		return
	}
	s.invalidateHistory(userID)
	respondJSON(w, r, http.StatusOK, toSIPResponses(sips))
}

func (s *Server) handleDeleteSIP(w http.ResponseWriter, r *http.Request) {
	s.deleteByID(w, r, s.deps.Storage.DeleteSIP)
}

func (s *Server) handleCreateMutualFund(w http.ResponseWriter, r *http.Request) {
	var req mutualFundRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	investDate, err := parseDate(req.InvestDate)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	mf := core.MutualFund{
		UserID:        req.UserID,
		FundName:      sanitizeInput(req.FundName),
		Amount:        core.FromRupees(req.Amount),
		InvestDate:    investDate,
		ReturnRatePct: req.ReturnRatePct,
	}
	if err := mf.Validate(); err != nil {
		respondValidationError(w, r, err)
		return
	}

	created, err := s.deps.Storage.CreateMutualFund(r.Context(), mf)
	if err != nil {
		respondStorageError(w, r, err)
		return
	}
	s.invalidateHistory(created.UserID)
	respondJSON(w, r, http.StatusCreated, toMutualFundResponse(created))
}

func (s *Server) handleListMutualFunds(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "user")
	if err != nil {
		respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	funds, err := s.deps.Storage.ListMutualFunds(r.Context(), userID)
	if err != nil {
		respondStorageError(w, r, err)
		return
	}
	out := make([]mutualFundResponse, 0, len(funds))
	for _, mf := range funds {
		out = append(out, toMutualFundResponse(mf))
	}
	respondJSON(w, r, http.StatusOK, out)
}

func (s *Server) handleDeleteMutualFund(w http.ResponseWriter, r *http.Request) {
	s.deleteByID(w, r, s.deps.Storage.DeleteMutualFund)
}

func (s *Server) handleCreateLumpSum(w http.ResponseWriter, r *http.Request) {
	var req lumpSumRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	startDate, err := parseDate(req.StartDate)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	ls := core.LumpSum{
		UserID:       req.UserID,
		Name:         sanitizeInput(req.Name),
		Principal:    core.FromRupees(req.Principal),
		RatePct:      req.RatePct,
		TenureMonths: req.TenureMonths,
		StartDate:    startDate,
		Active:       true,
	}
	if err := ls.Validate(); err != nil {
		respondValidationError(w, r, err)
		return
	}

	created, err := s.deps.Storage.CreateLumpSum(r.Context(), ls)
	if err != nil {
		respondStorageError(w, r, err)
		return
	}
	s.invalidateHistory(created.UserID)
	respondJSON(w, r, http.StatusCreated, toLumpSumResponse(created))
}

func (s *Server) handleListLumpSums(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "user")
	if err != nil {
		respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	sums, err := s.deps.Storage.ListLumpSums(r.Context(), userID)
	if err != nil {
		respondStorageError(w, r, err)
		return
	}
	out := make([]lumpSumResponse, 0, len(sums))
	for _, ls := range sums {
		out = append(out, toLumpSumResponse(ls))
	}
	respondJSON(w, r, http.StatusOK, out)
}

func (s *Server) handleDeleteLumpSum(w http.ResponseWriter, r *http.Request) {
	s.deleteByID(w, r, s.deps.Storage.DeleteLumpSum)
}

// deleteByID runs a {user}/{id} delete through the given storage call.
func (s *Server) deleteByID(w http.ResponseWriter, r *http.Request, del func(ctx context.Context, userID, id int64) error) {
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
	if err := del(r.Context(), userID, id); err != nil {
		respondStorageError(w, r, err)
		return
	}
	s.invalidateHistory(userID)
	respondJSON(w, r, http.StatusNoContent, nil)
}

func toSIPResponses(sips []core.SIP) []sipResponse {
	out := make([]sipResponse, 0, len(sips))
	for _, sip := range sips {
		out = append(out, toSIPResponse(sip))
	}
	return out
}
