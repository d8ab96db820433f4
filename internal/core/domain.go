package core

import (
	"errors"
	"strings"
	"time"
)

// RiskLevel classifies an investor's risk appetite.
type RiskLevel string

const (
	RiskLow    RiskLevel = "Low"
	RiskMedium RiskLevel = "Medium"
	RiskHigh   RiskLevel = "High"
)

// PremiumFrequency is how often an insurance premium is paid.
type PremiumFrequency string

const (
	PremiumMonthly   PremiumFrequency = "Monthly"
	PremiumQuarterly PremiumFrequency = "Quarterly"
	PremiumAnnual    PremiumFrequency = "Annual"
)

// Product classes and expense categories the tracker accepts.
var (
	LoanTypes = []string{"Home Loan", "Personal Loan", "Mortgage Loan"}

	InsuranceTypes = []string{
		"Term Insurance",
		"Life Insurance",
		"Health Insurance",
		"Child Insurance",
		"Retirement Insurance",
	}

	ExpenseCategories = []string{
		"Food & Dining",
		"Transportation",
		"Shopping",
		"Entertainment",
		"Bills & Utilities",
		"Healthcare",
		"Education",
		"Travel",
		"EMI Payments",
		"Others",
	}
)

type (
	// Date is a calendar date; the time-of-day component is always midnight UTC.
	Date struct {
		time.Time
	}

	// Money is an amount in paise. All stored amounts are integer paise;
	// conversion to rupees happens only at the display and wire boundaries.
	Money struct {
		Cents int64
	}

	User struct {
		ID        int64
		Email     string
		Name      string
		CreatedAt time.Time
	}

	// Income is one month's income record. (UserID, Month) is unique.
	Income struct {
		ID                int64
		UserID            int64
		Month             Date
		Salary            Money
		OtherIncome       Money
		OtherIncomeSource string
		Total             Money
	}

	Expense struct {
		ID          int64
		UserID      int64
		Month       Date
		Category    string
		Amount      Money
		Description string
		IsAnomaly   bool
	}

	// Stock is an equity holding; CurrentPrice/CurrentValue are refreshed
	// from market data and stay zero until the first refresh.
	Stock struct {
		ID            int64
		UserID        int64
		CompanyName   string
		Symbol        string
		Quantity      int64
		PurchasePrice Money
		PurchaseDate  Date
		CurrentPrice  Money
		CurrentValue  Money
		LastUpdated   time.Time
	}

	SIP struct {
		ID            int64
		UserID        int64
		FundName      string
		MonthlyAmount Money
		StartDate     Date
		ReturnRatePct float64
		TotalInvested Money
		CurrentValue  Money
		Active        bool
	}

	MutualFund struct {
		ID            int64
		UserID        int64
		FundName      string
		Amount        Money
		InvestDate    Date
		ReturnRatePct float64
		CurrentValue  Money
	}

	// SWP withdraws a fixed amount monthly from a source investment.
	// LinkedLoanID, when non-zero, routes withdrawals to that loan's
	// outstanding via the apply-to-loan operation.
	SWP struct {
		ID                int64
		UserID            int64
		SourceType        string
		SourceID          int64
		MonthlyWithdrawal Money
		StartDate         Date
		Active            bool
		LinkedLoanID      int64
		LastProcessed     Date
	}

	Loan struct {
		ID           int64
		UserID       int64
		LoanType     string
		Principal    Money
		RatePct      float64
		TenureMonths int
		EMI          Money
		Outstanding  Money
		StartDate    Date
		Active       bool
	}

	Insurance struct {
		ID           int64
		UserID       int64
		Type         string
		PolicyName   string
		PolicyNumber string
		Premium      Money
		Frequency    PremiumFrequency
		Coverage     Money
		TenureYears  int
		StartDate    Date
		MaturityDate Date
		Active       bool
	}

	CreditCard struct {
		ID          int64
		UserID      int64
		CardName    string
		Last4       string
		Limit       Money
		Outstanding Money
		DueDay      int // day of month
	}

	// LumpSum is a one-off deposit (FD or similar). MaturityValue and
	// MaturityDate are derived on creation.
	LumpSum struct {
		ID            int64
		UserID        int64
		Name          string
		Principal     Money
		RatePct       float64
		TenureMonths  int
		StartDate     Date
		MaturityValue Money
		MaturityDate  Date
		Active        bool
	}

	// NetWorthSnapshot is the monthly aggregate of a user's assets and
	// liabilities. (UserID, Month) is unique; recomputing a month
	// overwrites the previous snapshot.
	NetWorthSnapshot struct {
		ID            int64
		UserID        int64
		Month         Date
		StocksValue   Money
		SIPValue      Money
		MutualFunds   Money
		LumpSums      Money
		Savings       Money
		TotalAssets   Money
		LoanDebt      Money
		CardDebt      Money
		TotalDebt     Money
		NetWorth      Money
		PredictedNext Money
		HasPrediction bool
		CreatedAt     time.Time
	}
)

var (
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrInvalidRate     = errors.New("invalid rate")
	ErrInvalidTenure   = errors.New("invalid tenure")
	ErrInvalidQuantity = errors.New("invalid quantity")
	ErrEmptyName       = errors.New("empty name")
	ErrEmptySymbol     = errors.New("empty symbol")
	ErrNotFound        = errors.New("not found")
	ErrDuplicate       = errors.New("already exists")
)

// NewDate creates a Date from year, month, day.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// MonthStart truncates the date to the first of its month. Monthly records
// (incomes, expenses, snapshots) are always keyed on the month start.
func (d Date) MonthStart() Date {
	y, m, _ := d.Date()
	return Date{Time: time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)}
}

func (d Date) Validate() error {
	if d.IsZero() {
		return errors.New("date cannot be zero")
	}
	return nil
}

func (d Date) String() string {
	return d.Format("2006-01-02")
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func validName(s string) error {
	if strings.TrimSpace(s) == "" {
		return ErrEmptyName
	}
	if len(s) > 255 {
		return errors.New("name too long (max 255 characters)")
	}
	return nil
}

func validRate(pct float64) error {
	if pct < 0 || pct > 100 {
		return ErrInvalidRate
	}
	return nil
}

func (i Income) Validate() error {
	if err := i.Month.Validate(); err != nil {
		return err
	}
	if i.Salary.Cents < 0 || i.OtherIncome.Cents < 0 {
		return ErrInvalidAmount
	}
	if i.Salary.Cents+i.OtherIncome.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (e Expense) Validate() error {
	if err := e.Month.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(e.Category) == "" {
		return errors.New("empty category")
	}
	if len(e.Description) > 500 {
		return errors.New("description too long (max 500 characters)")
	}
	return e.Amount.Validate()
}

func (s Stock) Validate() error {
	if err := validName(s.CompanyName); err != nil {
		return err
	}
	if strings.TrimSpace(s.Symbol) == "" {
		return ErrEmptySymbol
	}
	if s.Quantity <= 0 {
		return ErrInvalidQuantity
	}
	if err := s.PurchasePrice.Validate(); err != nil {
		return err
	}
	return s.PurchaseDate.Validate()
}

func (s SIP) Validate() error {
	if err := validName(s.FundName); err != nil {
		return err
	}
	if err := s.MonthlyAmount.Validate(); err != nil {
		return err
	}
	if err := validRate(s.ReturnRatePct); err != nil {
		return err
	}
	return s.StartDate.Validate()
}

func (m MutualFund) Validate() error {
	if err := validName(m.FundName); err != nil {
		return err
	}
	if err := m.Amount.Validate(); err != nil {
		return err
	}
	if err := validRate(m.ReturnRatePct); err != nil {
		return err
	}
	return m.InvestDate.Validate()
}

func (s SWP) Validate() error {
	if strings.TrimSpace(s.SourceType) == "" {
		return errors.New("empty source investment type")
	}
	if s.SourceID <= 0 {
		return errors.New("invalid source investment id")
	}
	if err := s.MonthlyWithdrawal.Validate(); err != nil {
		return err
	}
	return s.StartDate.Validate()
}

func (l Loan) Validate() error {
	if strings.TrimSpace(l.LoanType) == "" {
		return errors.New("empty loan type")
	}
	if err := l.Principal.Validate(); err != nil {
		return err
	}
	if err := validRate(l.RatePct); err != nil {
		return err
	}
	if l.TenureMonths <= 0 || l.TenureMonths > 600 {
		return ErrInvalidTenure
	}
	return l.StartDate.Validate()
}

func (i Insurance) Validate() error {
	if strings.TrimSpace(i.Type) == "" {
		return errors.New("empty insurance type")
	}
	if err := validName(i.PolicyName); err != nil {
		return err
	}
	if strings.TrimSpace(i.PolicyNumber) == "" {
		return errors.New("empty policy number")
	}
	switch i.Frequency {
	case PremiumMonthly, PremiumQuarterly, PremiumAnnual:
	default:
		return errors.New("invalid premium frequency")
	}
	if err := i.Premium.Validate(); err != nil {
		return err
	}
	if err := i.Coverage.Validate(); err != nil {
		return err
	}
	if i.TenureYears <= 0 || i.TenureYears > 100 {
		return ErrInvalidTenure
	}
	return i.StartDate.Validate()
}

func (c CreditCard) Validate() error {
	if err := validName(c.CardName); err != nil {
		return err
	}
	if len(c.Last4) != 4 {
		return errors.New("card last4 must be exactly 4 digits")
	}
	for _, r := range c.Last4 {
		if r < '0' || r > '9' {
			return errors.New("card last4 must be exactly 4 digits")
		}
	}
	if err := c.Limit.Validate(); err != nil {
		return err
	}
	if c.Outstanding.Cents < 0 {
		return ErrInvalidAmount
	}
	if c.DueDay < 1 || c.DueDay > 31 {
		return errors.New("due day must be between 1 and 31")
	}
	return nil
}

func (l LumpSum) Validate() error {
	if err := validName(l.Name); err != nil {
		return err
	}
	if err := l.Principal.Validate(); err != nil {
		return err
	}
	if err := validRate(l.RatePct); err != nil {
		return err
	}
	if l.TenureMonths <= 0 || l.TenureMonths > 600 {
		return ErrInvalidTenure
	}
	return l.StartDate.Validate()
}
