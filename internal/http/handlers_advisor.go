package http

import (
	"errors"
	"net/http"
	"strconv"

	"finman/internal/advisor"
	"finman/internal/core"
	"finman/internal/market"
	"finman/internal/services"
)

type adviceResponse struct {
	Text   string `json:"text"`
	Source string `json:"source"`
}

func toAdviceResponse(a advisor.Advice) adviceResponse {
	return adviceResponse{Text: a.Text, Source: a.Source}
}

type stockAdviceRequest struct {
	Symbol string  `json:"symbol"`
	Price  float64 `json:"price,omitempty"`
}

type stockAdviceResponse struct {
	Symbol string         `json:"symbol"`
	Price  float64        `json:"price"`
	Advice adviceResponse `json:"advice"`
}

// handleAdvisorStock comments on a holding. When the request carries no
// price the current market quote is used instead.
func (s *Server) handleAdvisorStock(w http.ResponseWriter, r *http.Request) {
	var req stockAdviceRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	req.Symbol = sanitizeInput(req.Symbol)
	if req.Symbol == "" {
		respondValidationError(w, r, errors.New("symbol is required"))
		return
	}
	if req.Price < 0 {
		respondValidationError(w, r, errors.New("price must not be negative"))
		return
	}

	price := core.FromRupees(req.Price)
	if req.Price == 0 {
		quote, err := s.deps.Market.GetQuote(r.Context(), req.Symbol)
		if err != nil {
			if errors.Is(err, market.ErrNoQuote) {
				respondError(w, r, http.StatusNotFound, "no quote available for "+req.Symbol)
				return
			}
			s.logger.ErrorContext(r.Context(), "Quote lookup failed", "error", err)
			respondError(w, r, http.StatusInternalServerError, "internal error")
			return
		}
		price = quote.Price
	}

	advice := s.deps.Advisor.AnalyzeStock(r.Context(), req.Symbol, price)
	respondJSON(w, r, http.StatusOK, stockAdviceResponse{
		Symbol: req.Symbol,
		Price:  price.Rupees(),
		Advice: toAdviceResponse(advice),
	})
}

type riskProfileRequest struct {
	Age           int     `json:"age"`
	MonthlyIncome float64 `json:"monthly_income"`
	MonthlySpend  float64 `json:"monthly_spend"`
	Dependents    int     `json:"dependents"`
	Appetite      string  `json:"appetite,omitempty"`
}

type riskProfileResponse struct {
	RiskLevel core.RiskLevel `json:"risk_level"`
	Advice    adviceResponse `json:"advice"`
}

func (s *Server) handleAdvisorRiskProfile(w http.ResponseWriter, r *http.Request) {
	var req riskProfileRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.Age <= 0 {
		respondValidationError(w, r, errors.New("age must be positive"))
		return
	}
	if req.MonthlyIncome < 0 || req.MonthlySpend < 0 {
		respondValidationError(w, r, errors.New("amounts must not be negative"))
		return
	}
	appetite, err := parseRiskLevel(req.Appetite)
	if err != nil {
		respondValidationError(w, r, err)
		return
	}

	level, advice := s.deps.Advisor.RiskProfile(r.Context(), advisor.RiskInput{
		Age:           req.Age,
		MonthlyIncome: core.FromRupees(req.MonthlyIncome),
		MonthlySpend:  core.FromRupees(req.MonthlySpend),
		Dependents:    req.Dependents,
		Appetite:      appetite,
	})
	respondJSON(w, r, http.StatusOK, riskProfileResponse{
		RiskLevel: level,
		Advice:    toAdviceResponse(advice),
	})
}

type investRequest struct {
	Amount        float64 `json:"amount"`
	Risk          string  `json:"risk"`
	Goal          string  `json:"goal,omitempty"`
	TimelineYears int     `json:"timeline_years,omitempty"`
	UserID        int64   `json:"user_id,omitempty"`
}

func (s *Server) handleAdvisorInvest(w http.ResponseWriter, r *http.Request) {
	var req investRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.Amount <= 0 {
		respondValidationError(w, r, errors.New("amount must be positive"))
		return
	}
	risk, err := parseRiskLevel(req.Risk)
	if err != nil {
		respondValidationError(w, r, err)
		return
	}

	var trend float64
	if req.UserID > 0 {
		trend, err = s.netWorthTrend(r, req.UserID)
		if err != nil {
			s.logger.ErrorContext(r.Context(), "Trend lookup failed", "error", err)
			respondError(w, r, http.StatusInternalServerError, "internal error")
			return
		}
	}

	advice := s.deps.Advisor.RecommendInvestment(r.Context(), advisor.InvestInput{
		Amount:        core.FromRupees(req.Amount),
		Risk:          risk,
		Goal:          sanitizeInput(req.Goal),
		TimelineYears: req.TimelineYears,
		TrendPct:      trend,
	})
	respondJSON(w, r, http.StatusOK, toAdviceResponse(advice))
}

type loanAdviceRequest struct {
	LoanType    string  `json:"loan_type"`
	Principal   float64 `json:"principal"`
	EMI         float64 `json:"emi"`
	Outstanding float64 `json:"outstanding"`
	Surplus     float64 `json:"surplus"`
	RatePct     float64 `json:"rate_pct"`
}

func (s *Server) handleAdvisorLoan(w http.ResponseWriter, r *http.Request) {
	var req loanAdviceRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.Outstanding <= 0 {
		respondValidationError(w, r, errors.New("outstanding must be positive"))
		return
	}
	if req.Surplus < 0 {
		respondValidationError(w, r, errors.New("surplus must not be negative"))
		return
	}

	advice := s.deps.Advisor.OptimizeLoan(r.Context(), advisor.LoanInput{
		LoanType:    sanitizeInput(req.LoanType),
		Principal:   core.FromRupees(req.Principal),
		EMI:         core.FromRupees(req.EMI),
		Outstanding: core.FromRupees(req.Outstanding),
		Surplus:     core.FromRupees(req.Surplus),
		RatePct:     req.RatePct,
	})
	respondJSON(w, r, http.StatusOK, toAdviceResponse(advice))
}

type allocationResponse struct {
	RiskLevel         core.RiskLevel     `json:"risk_level"`
	Allocation        map[string]float64 `json:"allocation"`
	ExpectedReturnPct float64            `json:"expected_return_pct"`
	TrendPct          float64            `json:"trend_pct"`
}

// handleAdvisorAllocation returns the split for a risk level. A `user`
// query parameter pulls that user's net worth trend into the expected
// return; without it the estimate assumes a flat market.
func (s *Server) handleAdvisorAllocation(w http.ResponseWriter, r *http.Request) {
	risk, err := parseRiskLevel(r.URL.Query().Get("risk"))
	if err != nil {
		respondValidationError(w, r, err)
		return
	}

	var trend float64
	if raw := r.URL.Query().Get("user"); raw != "" {
		userID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || userID <= 0 {
			respondValidationError(w, r, errors.New("user must be a positive id"))
			return
		}
		trend, err = s.netWorthTrend(r, userID)
		if err != nil {
			s.logger.ErrorContext(r.Context(), "Trend lookup failed", "error", err)
			respondError(w, r, http.StatusInternalServerError, "internal error")
			return
		}
	}

	respondJSON(w, r, http.StatusOK, allocationResponse{
		RiskLevel:         risk,
		Allocation:        advisor.Allocation(risk),
		ExpectedReturnPct: advisor.ExpectedReturnPct(risk, trend),
		TrendPct:          trend,
	})
}

// netWorthTrend is the user's recent month-over-month net worth change in
// percent per month. Users with under two snapshots read as flat.
func (s *Server) netWorthTrend(r *http.Request, userID int64) (float64, error) {
	history, err := s.netWorthHistory(r, userID)
	if err != nil {
		return 0, err
	}
	series := make([]core.Money, len(history))
	for i, h := range history {
		series[i] = h.NetWorth
	}
	return services.PredictNext(series).TrendPct, nil
}

// parseRiskLevel maps the wire value onto a known level. The empty
// string means the caller expressed no preference and defaults to Medium.
func parseRiskLevel(s string) (core.RiskLevel, error) {
	switch core.RiskLevel(s) {
	case "":
		return core.RiskMedium, nil
	case core.RiskLow, core.RiskMedium, core.RiskHigh:
		return core.RiskLevel(s), nil
	default:
		return "", errors.New("risk must be one of Low, Medium, High")
	}
}
