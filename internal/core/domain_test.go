package core

import (
	"testing"
	"time"
)

func TestDateMonthStart(t *testing.T) {
	d := NewDate(2025, 3, 17)
	got := d.MonthStart()
	if got.Year() != 2025 || got.Month() != time.March || got.Day() != 1 {
		t.Fatalf("MonthStart(2025-03-17) = %s", got)
	}
}

func TestIncomeValidate(t *testing.T) {
	valid := Income{
		UserID: 1,
		Month:  NewDate(2025, 1, 1),
		Salary: Money{Cents: 500000},
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid income rejected: %v", err)
	}

	zero := valid
	zero.Salary = Money{}
	if err := zero.Validate(); err == nil {
		t.Fatal("zero income should be rejected")
	}

	negative := valid
	negative.OtherIncome = Money{Cents: -100}
	if err := negative.Validate(); err == nil {
		t.Fatal("negative other income should be rejected")
	}
}

func TestLoanValidate(t *testing.T) {
	valid := Loan{
		UserID:       1,
		LoanType:     "Home Loan",
		Principal:    Money{Cents: 100000000},
		RatePct:      8.5,
		TenureMonths: 240,
		StartDate:    NewDate(2024, 6, 1),
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid loan rejected: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*Loan)
	}{
		{"empty type", func(l *Loan) { l.LoanType = " " }},
		{"zero principal", func(l *Loan) { l.Principal = Money{} }},
		{"negative rate", func(l *Loan) { l.RatePct = -1 }},
		{"zero tenure", func(l *Loan) { l.TenureMonths = 0 }},
		{"absurd tenure", func(l *Loan) { l.TenureMonths = 1000 }},
		{"zero start date", func(l *Loan) { l.StartDate = Date{} }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			l := valid
			tc.mutate(&l)
			if err := l.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestCreditCardValidate(t *testing.T) {
	valid := CreditCard{
		UserID:   1,
		CardName: "Regalia",
		Last4:    "4242",
		Limit:    Money{Cents: 20000000},
		DueDay:   15,
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid card rejected: %v", err)
	}

	bad := valid
	bad.Last4 = "42a2"
	if err := bad.Validate(); err == nil {
		t.Fatal("non-numeric last4 should be rejected")
	}
	bad = valid
	bad.Last4 = "123"
	if err := bad.Validate(); err == nil {
		t.Fatal("short last4 should be rejected")
	}
	bad = valid
	bad.DueDay = 32
	if err := bad.Validate(); err == nil {
		t.Fatal("due day 32 should be rejected")
	}
}

func TestInsuranceValidate(t *testing.T) {
	valid := Insurance{
		UserID:       1,
		Type:         "Term Insurance",
		PolicyName:   "Click 2 Protect",
		PolicyNumber: "TI-100",
		Premium:      Money{Cents: 120000},
		Frequency:    PremiumAnnual,
		Coverage:     Money{Cents: 1000000000},
		TenureYears:  30,
		StartDate:    NewDate(2023, 4, 1),
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid policy rejected: %v", err)
	}

	bad := valid
	bad.Frequency = "Weekly"
	if err := bad.Validate(); err == nil {
		t.Fatal("unknown premium frequency should be rejected")
	}
}

func TestSWPValidate(t *testing.T) {
	valid := SWP{
		UserID:            1,
		SourceType:        "MutualFund",
		SourceID:          3,
		MonthlyWithdrawal: Money{Cents: 1000000},
		StartDate:         NewDate(2025, 2, 1),
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid SWP rejected: %v", err)
	}

	bad := valid
	bad.SourceID = 0
	if err := bad.Validate(); err == nil {
		t.Fatal("zero source id should be rejected")
	}
}
