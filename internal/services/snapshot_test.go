package services

import (
	"context"
	"testing"

	"finman/internal/core"
)

func TestSnapshotCompute_Aggregation(t *testing.T) {
	repo := testStorage(t)
	user := seedUser(t, repo)
	svc := NewSnapshotService(repo, testLogger())
	ctx := context.Background()

	if _, err := repo.CreateIncome(ctx, core.Income{
		UserID: user.ID,
		Month:  core.NewDate(2025, 6, 1),
		Salary: core.Money{Cents: 10000000},
	}); err != nil {
		t.Fatalf("CreateIncome() error: %v", err)
	}
	if _, err := repo.CreateExpense(ctx, core.Expense{
		UserID:   user.ID,
		Month:    core.NewDate(2025, 6, 1),
		Category: "Bills & Utilities",
		Amount:   core.Money{Cents: 4000000},
	}); err != nil {
		t.Fatalf("CreateExpense() error: %v", err)
	}
	if _, err := repo.CreateStock(ctx, core.Stock{
		UserID: user.ID, CompanyName: "Infosys", Symbol: "INFY",
		Quantity: 10, PurchasePrice: core.Money{Cents: 250000},
		PurchaseDate: core.NewDate(2025, 1, 1),
	}); err != nil {
		t.Fatalf("CreateStock() error: %v", err)
	}
	loan, err := repo.CreateLoan(ctx, core.Loan{
		UserID: user.ID, LoanType: "Home Loan",
		Principal: core.Money{Cents: 10000000}, RatePct: 8, TenureMonths: 120,
		StartDate: core.NewDate(2025, 1, 1),
	})
	if err != nil {
		t.Fatalf("CreateLoan() error: %v", err)
	}
	if _, err := repo.CreateCreditCard(ctx, core.CreditCard{
		UserID: user.ID, CardName: "Platinum", Last4: "4242",
		Limit: core.Money{Cents: 20000000}, Outstanding: core.Money{Cents: 500000},
		DueDay: 5,
	}); err != nil {
		t.Fatalf("CreateCreditCard() error: %v", err)
	}

	snap, err := svc.Compute(ctx, user.ID, core.NewDate(2025, 6, 15))
	if err != nil {
		t.Fatalf("Compute() error: %v", err)
	}

	// Stock has no refreshed price, so the cost basis counts.
	if snap.StocksValue.Cents != 2500000 {
		t.Errorf("StocksValue = %d, want 2500000", snap.StocksValue.Cents)
	}
	if snap.Savings.Cents != 6000000 {
		t.Errorf("Savings = %d, want 6000000 (income minus spending)", snap.Savings.Cents)
	}
	if snap.TotalAssets.Cents != 8500000 {
		t.Errorf("TotalAssets = %d, want 8500000", snap.TotalAssets.Cents)
	}
	if snap.LoanDebt.Cents != loan.Outstanding.Cents {
		t.Errorf("LoanDebt = %d, want %d", snap.LoanDebt.Cents, loan.Outstanding.Cents)
	}
	if snap.CardDebt.Cents != 500000 {
		t.Errorf("CardDebt = %d, want 500000", snap.CardDebt.Cents)
	}
	if want := snap.TotalAssets.Cents - snap.TotalDebt.Cents; snap.NetWorth.Cents != want {
		t.Errorf("NetWorth = %d, want %d", snap.NetWorth.Cents, want)
	}
	if snap.HasPrediction {
		t.Error("first snapshot should not carry a prediction")
	}
}

func TestSnapshotCompute_UpsertAndForecast(t *testing.T) {
	repo := testStorage(t)
	user := seedUser(t, repo)
	svc := NewSnapshotService(repo, testLogger())
	ctx := context.Background()

	months := []core.Date{
		core.NewDate(2025, 4, 1),
		core.NewDate(2025, 5, 1),
		core.NewDate(2025, 6, 1),
	}
	for i, m := range months {
		if _, err := repo.CreateIncome(ctx, core.Income{
			UserID: user.ID,
			Month:  m,
			Salary: core.Money{Cents: int64(1000000 * (i + 1))},
		}); err != nil {
			t.Fatalf("CreateIncome() error: %v", err)
		}
		if _, err := svc.Compute(ctx, user.ID, m); err != nil {
			t.Fatalf("Compute() error: %v", err)
		}
	}

	history, err := repo.SnapshotHistory(ctx, user.ID)
	if err != nil {
		t.Fatalf("SnapshotHistory() error: %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("SnapshotHistory() len = %d, want 3", len(history))
	}
	latest := history[2]
	if !latest.HasPrediction {
		t.Error("third snapshot should carry a prediction")
	}
	if latest.PredictedNext.Cents <= latest.NetWorth.Cents {
		t.Errorf("PredictedNext = %d, want above current net worth %d for rising savings",
			latest.PredictedNext.Cents, latest.NetWorth.Cents)
	}

	// Recomputing a month must not add a row.
	if _, err := svc.Compute(ctx, user.ID, core.NewDate(2025, 6, 1)); err != nil {
		t.Fatalf("Compute() recompute error: %v", err)
	}
	history, err = repo.SnapshotHistory(ctx, user.ID)
	if err != nil {
		t.Fatalf("SnapshotHistory() error: %v", err)
	}
	if len(history) != 3 {
		t.Errorf("SnapshotHistory() after recompute len = %d, want 3", len(history))
	}
}

func TestSnapshotCompute_SavingsCoverOneMonth(t *testing.T) {
	repo := testStorage(t)
	user := seedUser(t, repo)
	svc := NewSnapshotService(repo, testLogger())
	ctx := context.Background()

	for _, m := range []core.Date{core.NewDate(2025, 4, 1), core.NewDate(2025, 5, 1)} {
		if _, err := repo.CreateIncome(ctx, core.Income{
			UserID: user.ID,
			Month:  m,
			Salary: core.Money{Cents: 5000000},
		}); err != nil {
			t.Fatalf("CreateIncome() error: %v", err)
		}
	}
	if _, err := repo.CreateExpense(ctx, core.Expense{
		UserID:   user.ID,
		Month:    core.NewDate(2025, 4, 1),
		Category: "Bills & Utilities",
		Amount:   core.Money{Cents: 1000000},
	}); err != nil {
		t.Fatalf("CreateExpense() error: %v", err)
	}

	// May has no expenses; April's income and spending must not leak in.
	snap, err := svc.Compute(ctx, user.ID, core.NewDate(2025, 5, 1))
	if err != nil {
		t.Fatalf("Compute() error: %v", err)
	}
	if snap.Savings.Cents != 5000000 {
		t.Errorf("Savings = %d, want 5000000 (May income only)", snap.Savings.Cents)
	}

	// A month without an income record saves nothing.
	snap, err = svc.Compute(ctx, user.ID, core.NewDate(2025, 6, 1))
	if err != nil {
		t.Fatalf("Compute() error: %v", err)
	}
	if snap.Savings.Cents != 0 {
		t.Errorf("Savings = %d, want 0 for a month with no income", snap.Savings.Cents)
	}
}
