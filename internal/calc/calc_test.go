package calc

import (
	"math"
	"testing"
	"time"

	"finman/internal/core"
)

func TestEMI(t *testing.T) {
	cases := []struct {
		name      string
		principal int64
		rate      float64
		months    int
		want      int64
	}{
		// ₹1000 at 12% for 12 months is the textbook ₹88.85 EMI.
		{"standard", 100000, 12.0, 12, 8885},
		{"zero rate", 120000, 0, 12, 10000},
		{"single month zero rate", 50000, 0, 1, 50000},
		{"zero tenure", 100000, 10, 0, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := EMI(core.Money{Cents: tc.principal}, tc.rate, tc.months)
			if got.Cents != tc.want {
				t.Fatalf("EMI = %d, want %d", got.Cents, tc.want)
			}
		})
	}
}

func TestSIPValue(t *testing.T) {
	// ₹1000/month at 12% annual for 12 months: FV of annuity-due.
	invested, value := SIPValue(core.Money{Cents: 100000}, 12.0, 12)
	if invested.Cents != 1200000 {
		t.Fatalf("invested = %d, want 1200000", invested.Cents)
	}
	if value.Cents != 1280933 {
		t.Fatalf("value = %d, want 1280933", value.Cents)
	}

	// Zero return degrades to plain accumulation.
	invested, value = SIPValue(core.Money{Cents: 100000}, 0, 24)
	if invested.Cents != value.Cents || invested.Cents != 2400000 {
		t.Fatalf("zero-rate SIP invested=%d value=%d", invested.Cents, value.Cents)
	}

	invested, value = SIPValue(core.Money{Cents: 100000}, 12.0, 0)
	if invested.Cents != 0 || value.Cents != 0 {
		t.Fatalf("zero months should produce zero values")
	}
}

func TestLumpSumValue(t *testing.T) {
	// ₹1000 at 10% for 2 years = ₹1210 exactly.
	got := LumpSumValue(core.Money{Cents: 100000}, 10.0, 2)
	if got.Cents != 121000 {
		t.Fatalf("LumpSumValue = %d, want 121000", got.Cents)
	}

	// Fractional years: 18 months at 8%.
	got = LumpSumValue(core.Money{Cents: 100000}, 8.0, 1.5)
	want := int64(math.Floor(100000*math.Pow(1.08, 1.5) + 0.5))
	if got.Cents != want {
		t.Fatalf("LumpSumValue = %d, want %d", got.Cents, want)
	}

	got = LumpSumValue(core.Money{Cents: 100000}, 8.0, 0)
	if got.Cents != 100000 {
		t.Fatalf("zero years should return principal, got %d", got.Cents)
	}
}

func TestAmortizationSchedule(t *testing.T) {
	principal := core.Money{Cents: 120000}
	emi := EMI(principal, 0, 12)
	rows := AmortizationSchedule(principal, 0, 12, emi)
	if len(rows) != 12 {
		t.Fatalf("expected 12 rows, got %d", len(rows))
	}
	for i, row := range rows {
		if row.Month != i+1 {
			t.Fatalf("row %d has month %d", i, row.Month)
		}
		if row.Interest.Cents != 0 {
			t.Fatalf("zero-rate schedule has interest %d at month %d", row.Interest.Cents, row.Month)
		}
		if row.Principal.Cents != 10000 {
			t.Fatalf("principal portion = %d at month %d", row.Principal.Cents, row.Month)
		}
	}
	if last := rows[len(rows)-1]; last.Balance.Cents != 0 {
		t.Fatalf("final balance = %d, want 0", last.Balance.Cents)
	}

	// With interest the balance must decrease monotonically.
	principal = core.Money{Cents: 10000000}
	emi = EMI(principal, 9.0, 24)
	rows = AmortizationSchedule(principal, 9.0, 24, emi)
	prev := principal.Cents
	for _, row := range rows {
		if row.Balance.Cents >= prev {
			t.Fatalf("balance did not decrease at month %d: %d -> %d", row.Month, prev, row.Balance.Cents)
		}
		prev = row.Balance.Cents
	}
	if rows[len(rows)-1].Balance.Cents != 0 {
		t.Fatalf("final balance = %d, want 0", rows[len(rows)-1].Balance.Cents)
	}
}

func TestMonthsBetween(t *testing.T) {
	cases := []struct {
		start, end time.Time
		want       int
	}{
		{time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC), 12},
		{time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC), 1},
		{time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC), 0},
		{time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), 0},
	}
	for _, tc := range cases {
		if got := MonthsBetween(tc.start, tc.end); got != tc.want {
			t.Errorf("MonthsBetween(%s, %s) = %d, want %d", tc.start.Format("2006-01-02"), tc.end.Format("2006-01-02"), got, tc.want)
		}
	}
}

func TestCAGR(t *testing.T) {
	if got := CAGR(core.Money{Cents: 100000}, core.Money{Cents: 200000}, 1); got != 100 {
		t.Fatalf("doubling in one year = %v, want 100", got)
	}
	if got := CAGR(core.Money{Cents: 100000}, core.Money{Cents: 200000}, 2); got != 41.42 {
		t.Fatalf("doubling in two years = %v, want 41.42", got)
	}
	if got := CAGR(core.Money{}, core.Money{Cents: 200000}, 2); got != 0 {
		t.Fatalf("zero initial should yield 0, got %v", got)
	}
}

func TestXIRR(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	flows := []core.Money{{Cents: -1000000}, {Cents: 1100000}}
	dates := []time.Time{start, start.AddDate(1, 0, 0)}

	got, err := XIRR(flows, dates)
	if err != nil {
		t.Fatalf("XIRR: %v", err)
	}
	if math.Abs(got-10.0) > 0.1 {
		t.Fatalf("XIRR = %v, want ~10", got)
	}

	if _, err := XIRR(flows, dates[:1]); err == nil {
		t.Fatal("mismatched series should error")
	}
}

func TestTaxSavings80C(t *testing.T) {
	// ₹2 lakh invested at 30% caps at the ₹1.5 lakh limit: ₹45,000 saved.
	got := TaxSavings80C(core.Money{Cents: 20000000}, 30)
	if got.Cents != 4500000 {
		t.Fatalf("TaxSavings80C = %d, want 4500000", got.Cents)
	}
	got = TaxSavings80C(core.Money{Cents: 10000000}, 30)
	if got.Cents != 3000000 {
		t.Fatalf("TaxSavings80C under cap = %d, want 3000000", got.Cents)
	}
}

func TestEmergencyFund(t *testing.T) {
	if got := EmergencyFund(core.Money{Cents: 500000}, 6); got.Cents != 3000000 {
		t.Fatalf("EmergencyFund = %d, want 3000000", got.Cents)
	}
	// Non-positive months falls back to six.
	if got := EmergencyFund(core.Money{Cents: 500000}, 0); got.Cents != 3000000 {
		t.Fatalf("EmergencyFund default = %d, want 3000000", got.Cents)
	}
}

func TestAllocate(t *testing.T) {
	got := Allocate(core.Money{Cents: 100000}, map[string]float64{"SIP": 50, "Stocks": 25, "FD": 25})
	if got["SIP"].Cents != 50000 || got["Stocks"].Cents != 25000 || got["FD"].Cents != 25000 {
		t.Fatalf("Allocate = %+v", got)
	}
}
