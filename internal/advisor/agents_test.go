package advisor

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"finman/internal/core"
	"finman/internal/log"
)

func testLogger() *log.Logger {
	return log.New(log.Config{Level: slog.LevelError, Component: "test"})
}

// fallbackAdvisor has no model configured.
func fallbackAdvisor() *Advisor {
	return New(nil, testLogger())
}

func TestClassifyRisk(t *testing.T) {
	tests := []struct {
		name string
		in   RiskInput
		want core.RiskLevel
	}{
		{
			name: "young high saver with high appetite",
			in: RiskInput{
				Age:           26,
				MonthlyIncome: core.Money{Cents: 10000000},
				MonthlySpend:  core.Money{Cents: 5000000},
				Appetite:      core.RiskHigh,
			},
			want: core.RiskHigh,
		},
		{
			name: "over fifty",
			in: RiskInput{
				Age:           55,
				MonthlyIncome: core.Money{Cents: 10000000},
				MonthlySpend:  core.Money{Cents: 4000000},
				Appetite:      core.RiskHigh,
			},
			want: core.RiskLow,
		},
		{
			name: "thin savings rate",
			in: RiskInput{
				Age:           35,
				MonthlyIncome: core.Money{Cents: 10000000},
				MonthlySpend:  core.Money{Cents: 9000000},
				Appetite:      core.RiskMedium,
			},
			want: core.RiskLow,
		},
		{
			name: "middle of the road",
			in: RiskInput{
				Age:           35,
				MonthlyIncome: core.Money{Cents: 10000000},
				MonthlySpend:  core.Money{Cents: 6000000},
				Appetite:      core.RiskMedium,
			},
			want: core.RiskMedium,
		},
		{
			name: "young saver without high appetite stays medium",
			in: RiskInput{
				Age:           26,
				MonthlyIncome: core.Money{Cents: 10000000},
				MonthlySpend:  core.Money{Cents: 5000000},
				Appetite:      core.RiskMedium,
			},
			want: core.RiskMedium,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classifyRisk(tt.in); got != tt.want {
				t.Errorf("classifyRisk() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestRiskProfile_Fallback(t *testing.T) {
	level, advice := fallbackAdvisor().RiskProfile(context.Background(), RiskInput{
		Age:           40,
		MonthlyIncome: core.Money{Cents: 10000000},
		MonthlySpend:  core.Money{Cents: 6000000},
		Appetite:      core.RiskMedium,
	})
	if level != core.RiskMedium {
		t.Errorf("level = %s, want Medium", level)
	}
	if advice.Source != SourceFallback {
		t.Errorf("Source = %s, want fallback", advice.Source)
	}
	if !strings.Contains(advice.Text, "Medium") {
		t.Errorf("fallback text should name the level: %s", advice.Text)
	}
}

func TestAllocation(t *testing.T) {
	tests := []struct {
		level core.RiskLevel
		want  map[string]float64
	}{
		{core.RiskLow, map[string]float64{"sip": 30, "mutual_funds": 25, "stocks": 10, "fd": 25, "savings": 10, "insurance": 0}},
		{core.RiskMedium, map[string]float64{"sip": 25, "mutual_funds": 30, "stocks": 20, "fd": 15, "savings": 5, "insurance": 5}},
		{core.RiskHigh, map[string]float64{"sip": 20, "mutual_funds": 25, "stocks": 40, "fd": 5, "savings": 5, "insurance": 5}},
	}
	for _, tt := range tests {
		got := Allocation(tt.level)
		var sum float64
		for class, pct := range got {
			sum += pct
			if pct != tt.want[class] {
				t.Errorf("Allocation(%s)[%s] = %.0f, want %.0f", tt.level, class, pct, tt.want[class])
			}
		}
		if sum != 100 {
			t.Errorf("Allocation(%s) sums to %.0f, want 100", tt.level, sum)
		}
	}
	if Allocation(core.RiskHigh)["stocks"] <= Allocation(core.RiskLow)["stocks"] {
		t.Error("higher risk should mean a larger stocks share")
	}
}

func TestExpectedReturnPct(t *testing.T) {
	tests := []struct {
		level core.RiskLevel
		trend float64
		want  float64
	}{
		{core.RiskLow, 0, 6.5},
		{core.RiskMedium, 0, 10},
		{core.RiskHigh, 0, 14},
		{core.RiskMedium, 1.5, 13},
		{core.RiskHigh, -1, 12},
	}
	for _, tt := range tests {
		if got := ExpectedReturnPct(tt.level, tt.trend); got != tt.want {
			t.Errorf("ExpectedReturnPct(%s, %.1f) = %.1f, want %.1f", tt.level, tt.trend, got, tt.want)
		}
	}
}

func TestOptimizeLoan_Fallback(t *testing.T) {
	advice := fallbackAdvisor().OptimizeLoan(context.Background(), LoanInput{
		LoanType:    "Home Loan",
		Principal:   core.Money{Cents: 500000000},
		RatePct:     8.5,
		EMI:         core.Money{Cents: 4500000},
		Outstanding: core.Money{Cents: 400000000},
		Surplus:     core.Money{Cents: 3000000},
	})
	if advice.Source != SourceFallback {
		t.Fatalf("Source = %s, want fallback", advice.Source)
	}
	if !strings.Contains(advice.Text, "Prepay") {
		t.Errorf("large surplus should trigger a prepayment suggestion: %s", advice.Text)
	}
	if !strings.Contains(advice.Text, "24(b)") {
		t.Errorf("home loan advice should mention Section 24(b): %s", advice.Text)
	}
}

func TestOptimizeLoan_ThinSurplus(t *testing.T) {
	advice := fallbackAdvisor().OptimizeLoan(context.Background(), LoanInput{
		LoanType:    "Personal Loan",
		Principal:   core.Money{Cents: 50000000},
		RatePct:     13,
		EMI:         core.Money{Cents: 2000000},
		Outstanding: core.Money{Cents: 40000000},
		Surplus:     core.Money{Cents: 500000},
	})
	if !strings.Contains(advice.Text, "emergency buffer") {
		t.Errorf("thin surplus should steer toward a buffer first: %s", advice.Text)
	}
	if !strings.Contains(advice.Text, "balance transfer") {
		t.Errorf("non-home loan advice should mention a balance transfer: %s", advice.Text)
	}
}

func TestRecommendInvestment_Fallback(t *testing.T) {
	advice := fallbackAdvisor().RecommendInvestment(context.Background(), InvestInput{
		Amount:        core.Money{Cents: 10000000},
		Risk:          core.RiskHigh,
		Goal:          "retirement",
		TimelineYears: 20,
	})
	if advice.Source != SourceFallback {
		t.Fatalf("Source = %s, want fallback", advice.Source)
	}
	for _, want := range []string{"Stocks", "40%", "14.0%"} {
		if !strings.Contains(advice.Text, want) {
			t.Errorf("fallback text missing %q:\n%s", want, advice.Text)
		}
	}
}

func TestRecommendInvestment_TrendAdjustsReturn(t *testing.T) {
	advice := fallbackAdvisor().RecommendInvestment(context.Background(), InvestInput{
		Amount:        core.Money{Cents: 10000000},
		Risk:          core.RiskHigh,
		Goal:          "retirement",
		TimelineYears: 20,
		TrendPct:      1.5,
	})
	// 14 base plus twice the trend.
	if !strings.Contains(advice.Text, "17.0%") {
		t.Errorf("fallback text should carry the trend-adjusted return:\n%s", advice.Text)
	}
}

func TestAdvisor_UsesModelWhenAvailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q", got)
		}
		fmt.Fprint(w, `{"choices":[{"message":{"role":"assistant","content":"Model answer."}}]}`)
	}))
	defer srv.Close()

	a := New(NewClient("test-key", srv.URL, "test-model"), testLogger())
	advice := a.AnalyzeStock(context.Background(), "INFY.NS", core.Money{Cents: 150000})
	if advice.Source != SourceLLM {
		t.Errorf("Source = %s, want llm", advice.Source)
	}
	if advice.Text != "Model answer." {
		t.Errorf("Text = %q", advice.Text)
	}
}

func TestAdvisor_FallsBackOnServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	a := New(NewClient("test-key", srv.URL, "test-model"), testLogger())
	advice := a.AnalyzeStock(context.Background(), "INFY.NS", core.Money{Cents: 150000})
	if advice.Source != SourceFallback {
		t.Errorf("Source = %s, want fallback on upstream failure", advice.Source)
	}
}
