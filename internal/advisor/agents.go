package advisor

import (
	"context"
	"fmt"
	"strings"

	"finman/internal/core"
	"finman/internal/log"
)

// Advice sources reported to the caller.
const (
	SourceLLM      = "llm"
	SourceFallback = "fallback"
)

// Advice is one generated response, tagged with how it was produced.
type Advice struct {
	Text   string `json:"text"`
	Source string `json:"source"`
}

// Advisor answers financial questions, preferring the model and falling
// back to rules when it is unavailable.
type Advisor struct {
	client *Client // nil means fallback only
	logger *log.Logger
}

func New(client *Client, logger *log.Logger) *Advisor {
	return &Advisor{
		client: client,
		logger: logger.WithComponent(log.ComponentAdvisor),
	}
}

func (a *Advisor) complete(ctx context.Context, agent, system, user, fallback string) Advice {
	if a.client == nil {
		return Advice{Text: fallback, Source: SourceFallback}
	}

	text, err := a.client.Complete(ctx, system, user)
	if err != nil {
		a.logger.WarnContext(ctx, "Model call failed, using fallback",
			log.FieldAgent, agent,
			log.FieldError, err.Error())
		return Advice{Text: fallback, Source: SourceFallback}
	}
	return Advice{Text: text, Source: SourceLLM}
}

// AnalyzeStock comments on a holding at its current price.
func (a *Advisor) AnalyzeStock(ctx context.Context, symbol string, price core.Money) Advice {
	system := "You are an equity analyst for Indian retail investors. Be concise and factual."
	user := fmt.Sprintf("Analyze the stock %s trading at %s. Cover valuation, momentum and one risk.", symbol, price)

	fallback := fmt.Sprintf(
		"%s is trading at %s. Automated analysis is unavailable right now. "+
			"Review the company's recent quarterly results, compare its P/E with sector peers, "+
			"and avoid concentrating more than 10%% of your portfolio in a single stock.",
		symbol, price)
	return a.complete(ctx, "stock", system, user, fallback)
}

// RiskInput describes an investor for risk profiling.
type RiskInput struct {
	Age           int            `json:"age"`
	MonthlyIncome core.Money     `json:"monthly_income"`
	MonthlySpend  core.Money     `json:"monthly_spend"`
	Dependents    int            `json:"dependents"`
	Appetite      core.RiskLevel `json:"appetite"`
}

// SavingsRatePct is the share of income left after spending.
func (in RiskInput) SavingsRatePct() float64 {
	if in.MonthlyIncome.Cents <= 0 {
		return 0
	}
	return float64(in.MonthlyIncome.Cents-in.MonthlySpend.Cents) / float64(in.MonthlyIncome.Cents) * 100
}

// RiskProfile classifies the investor. The rule-based result is always
// computed; the model only adds narrative on top of it.
func (a *Advisor) RiskProfile(ctx context.Context, in RiskInput) (core.RiskLevel, Advice) {
	level := classifyRisk(in)

	system := "You are a financial planner. Explain the risk classification in plain terms."
	user := fmt.Sprintf(
		"Investor: age %d, monthly income %s, monthly spending %s, %d dependents, stated appetite %s. "+
			"Classified as %s risk. Explain why and what it means for their investments.",
		in.Age, in.MonthlyIncome, in.MonthlySpend, in.Dependents, in.Appetite, level)

	alloc := Allocation(level)
	fallback := fmt.Sprintf(
		"Your profile works out to %s risk: savings rate %.0f%%, age %d, %d dependents. "+
			"A %s profile suggests keeping about %.0f%% of new investments in market-linked instruments.",
		level, in.SavingsRatePct(), in.Age, in.Dependents, level,
		alloc["sip"]+alloc["mutual_funds"]+alloc["stocks"])
	return level, a.complete(ctx, "risk", system, user, fallback)
}

func classifyRisk(in RiskInput) core.RiskLevel {
	rate := in.SavingsRatePct()
	switch {
	case in.Age < 30 && rate > 30 && in.Appetite == core.RiskHigh:
		return core.RiskHigh
	case in.Age > 50 || rate < 20:
		return core.RiskLow
	default:
		return core.RiskMedium
	}
}

// InvestInput describes an amount looking for a home. TrendPct is the
// investor's recent net worth trend in percent per month; zero means no
// history to lean on.
type InvestInput struct {
	Amount        core.Money     `json:"amount"`
	Risk          core.RiskLevel `json:"risk"`
	Goal          string         `json:"goal"`
	TimelineYears int            `json:"timeline_years"`
	TrendPct      float64        `json:"trend_pct"`
}

// RecommendInvestment suggests how to deploy an amount at a risk level.
func (a *Advisor) RecommendInvestment(ctx context.Context, in InvestInput) Advice {
	system := "You are an investment advisor for Indian retail investors. Recommend specific instrument classes, not individual securities."
	user := fmt.Sprintf("Recommend how to invest %s for goal %q over %d years at %s risk.",
		in.Amount, in.Goal, in.TimelineYears, in.Risk)

	alloc := Allocation(in.Risk)
	var b strings.Builder
	fmt.Fprintf(&b, "Suggested split for %s at %s risk over %d years:\n", in.Amount, in.Risk, in.TimelineYears)
	for _, class := range allocationOrder {
		pct := alloc[class]
		share := core.Money{Cents: int64(float64(in.Amount.Cents)*pct/100 + 0.5)}
		fmt.Fprintf(&b, "- %s: %.0f%% (%s)\n", classLabel(class), pct, share)
	}
	fmt.Fprintf(&b, "Expected annual return: about %.1f%%. Review the split yearly.", ExpectedReturnPct(in.Risk, in.TrendPct))
	return a.complete(ctx, "invest", system, user, b.String())
}

// LoanInput describes a loan and the investor's monthly surplus.
type LoanInput struct {
	LoanType    string     `json:"loan_type"`
	Principal   core.Money `json:"principal"`
	RatePct     float64    `json:"rate_pct"`
	EMI         core.Money `json:"emi"`
	Outstanding core.Money `json:"outstanding"`
	Surplus     core.Money `json:"surplus"`
}

// OptimizeLoan suggests a repayment strategy.
func (a *Advisor) OptimizeLoan(ctx context.Context, in LoanInput) Advice {
	system := "You are a loan advisor for Indian borrowers. Suggest repayment strategies with concrete numbers."
	user := fmt.Sprintf(
		"Loan: %s, principal %s at %.2f%%, EMI %s, outstanding %s. Monthly surplus after expenses: %s. How to repay faster?",
		in.LoanType, in.Principal, in.RatePct, in.EMI, in.Outstanding, in.Surplus)

	var b strings.Builder
	fmt.Fprintf(&b, "Repayment plan for your %s (outstanding %s at %.2f%%):\n", in.LoanType, in.Outstanding, in.RatePct)
	if in.Surplus.Cents > in.EMI.Cents/2 {
		prepay := core.Money{Cents: in.Surplus.Cents * 60 / 100}
		fmt.Fprintf(&b, "- Prepay about %s each month (60%% of your surplus); even small recurring prepayments cut total interest sharply.\n", prepay)
	} else {
		b.WriteString("- Your surplus is thin; build an emergency buffer of 6 months' expenses before prepaying.\n")
	}
	fmt.Fprintf(&b, "- One extra EMI (%s) per year shortens the tenure by several months.\n", in.EMI)
	if strings.Contains(strings.ToLower(in.LoanType), "home") {
		b.WriteString("- Home loan interest qualifies for deduction under Section 24(b), and principal under Section 80C; factor the tax saving into prepayment decisions.")
	} else {
		b.WriteString("- If the rate is above 12%, check a balance transfer to a cheaper lender.")
	}
	return a.complete(ctx, "loan", system, user, b.String())
}

var allocationOrder = []string{"sip", "mutual_funds", "stocks", "fd", "savings", "insurance"}

func classLabel(class string) string {
	switch class {
	case "sip":
		return "SIPs"
	case "mutual_funds":
		return "Mutual funds"
	case "stocks":
		return "Stocks"
	case "fd":
		return "Fixed deposits"
	case "savings":
		return "Savings account"
	case "insurance":
		return "Insurance"
	default:
		return class
	}
}

// Allocation returns the percentage split across instrument classes for a
// risk level. Percentages sum to 100.
func Allocation(level core.RiskLevel) map[string]float64 {
	switch level {
	case core.RiskLow:
		return map[string]float64{"sip": 30, "mutual_funds": 25, "stocks": 10, "fd": 25, "savings": 10, "insurance": 0}
	case core.RiskHigh:
		return map[string]float64{"sip": 20, "mutual_funds": 25, "stocks": 40, "fd": 5, "savings": 5, "insurance": 5}
	default:
		return map[string]float64{"sip": 25, "mutual_funds": 30, "stocks": 20, "fd": 15, "savings": 5, "insurance": 5}
	}
}

// ExpectedReturnPct estimates an annual return for a risk level, nudged by
// the recent market trend (percent per month).
func ExpectedReturnPct(level core.RiskLevel, trendPct float64) float64 {
	var base float64
	switch level {
	case core.RiskLow:
		base = 6.5
	case core.RiskHigh:
		base = 14
	default:
		base = 10
	}
	return base + 2*trendPct
}
