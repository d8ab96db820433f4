package http

import (
	"time"

	"finman/internal/core"
)

// Wire types carry amounts in rupees and dates as YYYY-MM-DD strings.
// Conversion to paise happens at this boundary only.

type userRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type userResponse struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	CreatedAt string `json:"created_at"`
}

func toUserResponse(u core.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		CreatedAt: u.CreatedAt.Format(time.RFC3339),
	}
}

type incomeRequest struct {
	UserID            int64   `json:"user_id"`
	Month             string  `json:"month"`
	Salary            float64 `json:"salary"`
	OtherIncome       float64 `json:"other_income"`
	OtherIncomeSource string  `json:"other_income_source"`
}

type incomeResponse struct {
	ID                int64   `json:"id"`
	UserID            int64   `json:"user_id"`
	Month             string  `json:"month"`
	Salary            float64 `json:"salary"`
	OtherIncome       float64 `json:"other_income"`
	OtherIncomeSource string  `json:"other_income_source,omitempty"`
	Total             float64 `json:"total"`
}

func toIncomeResponse(i core.Income) incomeResponse {
	return incomeResponse{
		ID:                i.ID,
		UserID:            i.UserID,
		Month:             i.Month.String(),
		Salary:            i.Salary.Rupees(),
		OtherIncome:       i.OtherIncome.Rupees(),
		OtherIncomeSource: i.OtherIncomeSource,
		Total:             i.Total.Rupees(),
	}
}

type expenseRequest struct {
	UserID      int64   `json:"user_id"`
	Month       string  `json:"month"`
	Category    string  `json:"category"`
	Amount      float64 `json:"amount"`
	Description string  `json:"description"`
}

type expenseResponse struct {
	ID          int64   `json:"id"`
	UserID      int64   `json:"user_id"`
	Month       string  `json:"month"`
	Category    string  `json:"category"`
	Amount      float64 `json:"amount"`
	Description string  `json:"description,omitempty"`
	IsAnomaly   bool    `json:"is_anomaly"`
}

func toExpenseResponse(e core.Expense) expenseResponse {
	return expenseResponse{
		ID:          e.ID,
		UserID:      e.UserID,
		Month:       e.Month.String(),
		Category:    e.Category,
		Amount:      e.Amount.Rupees(),
		Description: e.Description,
		IsAnomaly:   e.IsAnomaly,
	}
}

type stockRequest struct {
	UserID        int64   `json:"user_id"`
	CompanyName   string  `json:"company_name"`
	Symbol        string  `json:"symbol"`
	Quantity      int64   `json:"quantity"`
	PurchasePrice float64 `json:"purchase_price"`
	PurchaseDate  string  `json:"purchase_date"`
}

type stockResponse struct {
	ID            int64   `json:"id"`
	UserID        int64   `json:"user_id"`
	CompanyName   string  `json:"company_name"`
	Symbol        string  `json:"symbol"`
	Quantity      int64   `json:"quantity"`
	PurchasePrice float64 `json:"purchase_price"`
	PurchaseDate  string  `json:"purchase_date"`
	CurrentPrice  float64 `json:"current_price"`
	CurrentValue  float64 `json:"current_value"`
	LastUpdated   string  `json:"last_updated,omitempty"`
}

func toStockResponse(s core.Stock) stockResponse {
	resp := stockResponse{
		ID:            s.ID,
		UserID:        s.UserID,
		CompanyName:   s.CompanyName,
		Symbol:        s.Symbol,
		Quantity:      s.Quantity,
		PurchasePrice: s.PurchasePrice.Rupees(),
		PurchaseDate:  s.PurchaseDate.String(),
		CurrentPrice:  s.CurrentPrice.Rupees(),
		CurrentValue:  s.CurrentValue.Rupees(),
	}
	if !s.LastUpdated.IsZero() {
		resp.LastUpdated = s.LastUpdated.Format(time.RFC3339)
	}
	return resp
}

type sipRequest struct {
	UserID        int64   `json:"user_id"`
	FundName      string  `json:"fund_name"`
	MonthlyAmount float64 `json:"monthly_amount"`
	StartDate     string  `json:"start_date"`
	ReturnRatePct float64 `json:"return_rate_pct"`
}

type sipResponse struct {
	ID            int64   `json:"id"`
	UserID        int64   `json:"user_id"`
	FundName      string  `json:"fund_name"`
	MonthlyAmount float64 `json:"monthly_amount"`
	StartDate     string  `json:"start_date"`
	ReturnRatePct float64 `json:"return_rate_pct"`
	TotalInvested float64 `json:"total_invested"`
	CurrentValue  float64 `json:"current_value"`
	Active        bool    `json:"active"`
}

func toSIPResponse(s core.SIP) sipResponse {
	return sipResponse{
		ID:            s.ID,
		UserID:        s.UserID,
		FundName:      s.FundName,
		MonthlyAmount: s.MonthlyAmount.Rupees(),
		StartDate:     s.StartDate.String(),
		ReturnRatePct: s.ReturnRatePct,
		TotalInvested: s.TotalInvested.Rupees(),
		CurrentValue:  s.CurrentValue.Rupees(),
		Active:        s.Active,
	}
}

type mutualFundRequest struct {
	UserID        int64   `json:"user_id"`
	FundName      string  `json:"fund_name"`
	Amount        float64 `json:"amount"`
	InvestDate    string  `json:"invest_date"`
	ReturnRatePct float64 `json:"return_rate_pct"`
}

type mutualFundResponse struct {
	ID            int64   `json:"id"`
	UserID        int64   `json:"user_id"`
	FundName      string  `json:"fund_name"`
	Amount        float64 `json:"amount"`
	InvestDate    string  `json:"invest_date"`
	ReturnRatePct float64 `json:"return_rate_pct"`
	CurrentValue  float64 `json:"current_value"`
}

func toMutualFundResponse(m core.MutualFund) mutualFundResponse {
	return mutualFundResponse{
		ID:            m.ID,
		UserID:        m.UserID,
		FundName:      m.FundName,
		Amount:        m.Amount.Rupees(),
		InvestDate:    m.InvestDate.String(),
		ReturnRatePct: m.ReturnRatePct,
		CurrentValue:  m.CurrentValue.Rupees(),
	}
}

type swpRequest struct {
	UserID            int64   `json:"user_id"`
	SourceType        string  `json:"source_type"`
	SourceID          int64   `json:"source_id"`
	MonthlyWithdrawal float64 `json:"monthly_withdrawal"`
	StartDate         string  `json:"start_date"`
	LinkedLoanID      int64   `json:"linked_loan_id,omitempty"`
}

type swpResponse struct {
	ID                int64   `json:"id"`
	UserID            int64   `json:"user_id"`
	SourceType        string  `json:"source_type"`
	SourceID          int64   `json:"source_id"`
	MonthlyWithdrawal float64 `json:"monthly_withdrawal"`
	StartDate         string  `json:"start_date"`
	Active            bool    `json:"active"`
	LinkedLoanID      int64   `json:"linked_loan_id,omitempty"`
	LastProcessed     string  `json:"last_processed,omitempty"`
}

func toSWPResponse(s core.SWP) swpResponse {
	resp := swpResponse{
		ID:                s.ID,
		UserID:            s.UserID,
		SourceType:        s.SourceType,
		SourceID:          s.SourceID,
		MonthlyWithdrawal: s.MonthlyWithdrawal.Rupees(),
		StartDate:         s.StartDate.String(),
		Active:            s.Active,
		LinkedLoanID:      s.LinkedLoanID,
	}
	if !s.LastProcessed.IsZero() {
		resp.LastProcessed = s.LastProcessed.String()
	}
	return resp
}

type loanRequest struct {
	UserID       int64   `json:"user_id"`
	LoanType     string  `json:"loan_type"`
	Principal    float64 `json:"principal"`
	RatePct      float64 `json:"rate_pct"`
	TenureMonths int     `json:"tenure_months"`
	StartDate    string  `json:"start_date"`
}

type loanResponse struct {
	ID           int64   `json:"id"`
	UserID       int64   `json:"user_id"`
	LoanType     string  `json:"loan_type"`
	Principal    float64 `json:"principal"`
	RatePct      float64 `json:"rate_pct"`
	TenureMonths int     `json:"tenure_months"`
	EMI          float64 `json:"emi"`
	Outstanding  float64 `json:"outstanding"`
	StartDate    string  `json:"start_date"`
	Active       bool    `json:"active"`
}

func toLoanResponse(l core.Loan) loanResponse {
	return loanResponse{
		ID:           l.ID,
		UserID:       l.UserID,
		LoanType:     l.LoanType,
		Principal:    l.Principal.Rupees(),
		RatePct:      l.RatePct,
		TenureMonths: l.TenureMonths,
		EMI:          l.EMI.Rupees(),
		Outstanding:  l.Outstanding.Rupees(),
		StartDate:    l.StartDate.String(),
		Active:       l.Active,
	}
}

type insuranceRequest struct {
	UserID       int64   `json:"user_id"`
	Type         string  `json:"type"`
	PolicyName   string  `json:"policy_name"`
	PolicyNumber string  `json:"policy_number"`
	Premium      float64 `json:"premium"`
	Frequency    string  `json:"frequency"`
	Coverage     float64 `json:"coverage"`
	TenureYears  int     `json:"tenure_years"`
	StartDate    string  `json:"start_date"`
}

type insuranceResponse struct {
	ID           int64   `json:"id"`
	UserID       int64   `json:"user_id"`
	Type         string  `json:"type"`
	PolicyName   string  `json:"policy_name"`
	PolicyNumber string  `json:"policy_number"`
	Premium      float64 `json:"premium"`
	Frequency    string  `json:"frequency"`
	Coverage     float64 `json:"coverage"`
	TenureYears  int     `json:"tenure_years"`
	StartDate    string  `json:"start_date"`
	MaturityDate string  `json:"maturity_date"`
	Active       bool    `json:"active"`
}

func toInsuranceResponse(i core.Insurance) insuranceResponse {
	return insuranceResponse{
		ID:           i.ID,
		UserID:       i.UserID,
		Type:         i.Type,
		PolicyName:   i.PolicyName,
		PolicyNumber: i.PolicyNumber,
		Premium:      i.Premium.Rupees(),
		Frequency:    string(i.Frequency),
		Coverage:     i.Coverage.Rupees(),
		TenureYears:  i.TenureYears,
		StartDate:    i.StartDate.String(),
		MaturityDate: i.MaturityDate.String(),
		Active:       i.Active,
	}
}

type creditCardRequest struct {
	UserID   int64   `json:"user_id"`
	CardName string  `json:"card_name"`
	Last4    string  `json:"last4"`
	Limit    float64 `json:"limit"`
	DueDay   int     `json:"due_day"`
}

type creditCardResponse struct {
	ID          int64   `json:"id"`
	UserID      int64   `json:"user_id"`
	CardName    string  `json:"card_name"`
	Last4       string  `json:"last4"`
	Limit       float64 `json:"limit"`
	Outstanding float64 `json:"outstanding"`
	DueDay      int     `json:"due_day"`
}

func toCreditCardResponse(c core.CreditCard) creditCardResponse {
	return creditCardResponse{
		ID:          c.ID,
		UserID:      c.UserID,
		CardName:    c.CardName,
		Last4:       c.Last4,
		Limit:       c.Limit.Rupees(),
		Outstanding: c.Outstanding.Rupees(),
		DueDay:      c.DueDay,
	}
}

type lumpSumRequest struct {
	UserID       int64   `json:"user_id"`
	Name         string  `json:"name"`
	Principal    float64 `json:"principal"`
	RatePct      float64 `json:"rate_pct"`
	TenureMonths int     `json:"tenure_months"`
	StartDate    string  `json:"start_date"`
}

type lumpSumResponse struct {
	ID            int64   `json:"id"`
	UserID        int64   `json:"user_id"`
	Name          string  `json:"name"`
	Principal     float64 `json:"principal"`
	RatePct       float64 `json:"rate_pct"`
	TenureMonths  int     `json:"tenure_months"`
	StartDate     string  `json:"start_date"`
	MaturityValue float64 `json:"maturity_value"`
	MaturityDate  string  `json:"maturity_date"`
	Active        bool    `json:"active"`
}

func toLumpSumResponse(l core.LumpSum) lumpSumResponse {
	return lumpSumResponse{
		ID:            l.ID,
		UserID:        l.UserID,
		Name:          l.Name,
		Principal:     l.Principal.Rupees(),
		RatePct:       l.RatePct,
		TenureMonths:  l.TenureMonths,
		StartDate:     l.StartDate.String(),
		MaturityValue: l.MaturityValue.Rupees(),
		MaturityDate:  l.MaturityDate.String(),
		Active:        l.Active,
	}
}

type snapshotResponse struct {
	ID            int64   `json:"id"`
	UserID        int64   `json:"user_id"`
	Month         string  `json:"month"`
	StocksValue   float64 `json:"stocks_value"`
	SIPValue      float64 `json:"sip_value"`
	MutualFunds   float64 `json:"mutual_funds"`
	LumpSums      float64 `json:"lump_sums"`
	Savings       float64 `json:"savings"`
	TotalAssets   float64 `json:"total_assets"`
	LoanDebt      float64 `json:"loan_debt"`
	CardDebt      float64 `json:"card_debt"`
	TotalDebt     float64 `json:"total_debt"`
	NetWorth      float64 `json:"net_worth"`
	PredictedNext float64 `json:"predicted_next,omitempty"`
	HasPrediction bool    `json:"has_prediction"`
}

func toSnapshotResponse(s core.NetWorthSnapshot) snapshotResponse {
	resp := snapshotResponse{
		ID:            s.ID,
		UserID:        s.UserID,
		Month:         s.Month.String(),
		StocksValue:   s.StocksValue.Rupees(),
		SIPValue:      s.SIPValue.Rupees(),
		MutualFunds:   s.MutualFunds.Rupees(),
		LumpSums:      s.LumpSums.Rupees(),
		Savings:       s.Savings.Rupees(),
		TotalAssets:   s.TotalAssets.Rupees(),
		LoanDebt:      s.LoanDebt.Rupees(),
		CardDebt:      s.CardDebt.Rupees(),
		TotalDebt:     s.TotalDebt.Rupees(),
		NetWorth:      s.NetWorth.Rupees(),
		HasPrediction: s.HasPrediction,
	}
	if s.HasPrediction {
		resp.PredictedNext = s.PredictedNext.Rupees()
	}
	return resp
}
