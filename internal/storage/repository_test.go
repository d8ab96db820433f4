package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"finman/internal/core"
)

func testRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "finman.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository() error: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func testUser(t *testing.T, repo *SQLiteRepository) core.User {
	t.Helper()
	u, err := repo.CreateUser(context.Background(), core.User{Email: "dev@example.com", Name: "Dev"})
	if err != nil {
		t.Fatalf("CreateUser() error: %v", err)
	}
	return u
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	if _, err := repo.CreateUser(ctx, core.User{Email: "a@example.com", Name: "A"}); err != nil {
		t.Fatalf("CreateUser() error: %v", err)
	}
	_, err := repo.CreateUser(ctx, core.User{Email: "a@example.com", Name: "B"})
	if !errors.Is(err, core.ErrDuplicate) {
		t.Errorf("CreateUser() duplicate email error = %v, want ErrDuplicate", err)
	}
}

func TestIncome_UniquePerMonth(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()
	user := testUser(t, repo)

	in := core.Income{
		UserID:      user.ID,
		Month:       core.NewDate(2025, 6, 15),
		Salary:      core.Money{Cents: 5000000},
		OtherIncome: core.Money{Cents: 1000000},
	}
	created, err := repo.CreateIncome(ctx, in)
	if err != nil {
		t.Fatalf("CreateIncome() error: %v", err)
	}
	if created.Total.Cents != 6000000 {
		t.Errorf("Total = %d, want 6000000", created.Total.Cents)
	}
	if created.Month.Day() != 1 {
		t.Errorf("Month day = %d, want 1 (normalized to month start)", created.Month.Day())
	}

	// Same month, different day: still a duplicate.
	in.Month = core.NewDate(2025, 6, 20)
	if _, err := repo.CreateIncome(ctx, in); !errors.Is(err, core.ErrDuplicate) {
		t.Errorf("CreateIncome() same month error = %v, want ErrDuplicate", err)
	}

	got, err := repo.GetIncomeForMonth(ctx, user.ID, core.NewDate(2025, 6, 1))
	if err != nil {
		t.Fatalf("GetIncomeForMonth() error: %v", err)
	}
	if got.ID != created.ID {
		t.Errorf("GetIncomeForMonth() id = %d, want %d", got.ID, created.ID)
	}
}

func TestExpense_MonthlyTotals(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()
	user := testUser(t, repo)

	for _, e := range []core.Expense{
		{UserID: user.ID, Month: core.NewDate(2025, 5, 1), Category: "Food & Dining", Amount: core.Money{Cents: 300000}},
		{UserID: user.ID, Month: core.NewDate(2025, 5, 1), Category: "Travel", Amount: core.Money{Cents: 200000}},
		{UserID: user.ID, Month: core.NewDate(2025, 6, 1), Category: "Food & Dining", Amount: core.Money{Cents: 400000}},
	} {
		if _, err := repo.CreateExpense(ctx, e); err != nil {
			t.Fatalf("CreateExpense() error: %v", err)
		}
	}

	months, totals, err := repo.MonthlyExpenseTotals(ctx, user.ID)
	if err != nil {
		t.Fatalf("MonthlyExpenseTotals() error: %v", err)
	}
	if len(months) != 2 {
		t.Fatalf("MonthlyExpenseTotals() months = %d, want 2", len(months))
	}
	if totals[0].Cents != 500000 || totals[1].Cents != 400000 {
		t.Errorf("totals = %d, %d; want 500000, 400000", totals[0].Cents, totals[1].Cents)
	}
}

func TestLoan_PaymentClampAndDeactivate(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()
	user := testUser(t, repo)

	loan, err := repo.CreateLoan(ctx, core.Loan{
		UserID:       user.ID,
		LoanType:     "Home Loan",
		Principal:    core.Money{Cents: 10000000},
		RatePct:      8.5,
		TenureMonths: 240,
		StartDate:    core.NewDate(2024, 1, 1),
	})
	if err != nil {
		t.Fatalf("CreateLoan() error: %v", err)
	}
	if loan.EMI.Cents <= 0 {
		t.Error("CreateLoan() should derive a positive EMI")
	}
	if loan.Outstanding.Cents != 10000000 {
		t.Errorf("Outstanding = %d, want principal", loan.Outstanding.Cents)
	}

	updated, err := repo.ApplyLoanPayment(ctx, user.ID, loan.ID, core.Money{Cents: 4000000})
	if err != nil {
		t.Fatalf("ApplyLoanPayment() error: %v", err)
	}
	if updated.Outstanding.Cents != 6000000 {
		t.Errorf("Outstanding after payment = %d, want 6000000", updated.Outstanding.Cents)
	}
	if !updated.Active {
		t.Error("loan should stay active with a balance remaining")
	}

	// Overpayment clamps at zero and closes the loan.
	updated, err = repo.ApplyLoanPayment(ctx, user.ID, loan.ID, core.Money{Cents: 9000000})
	if err != nil {
		t.Fatalf("ApplyLoanPayment() error: %v", err)
	}
	if updated.Outstanding.Cents != 0 {
		t.Errorf("Outstanding after overpayment = %d, want 0", updated.Outstanding.Cents)
	}
	if updated.Active {
		t.Error("fully repaid loan should be deactivated")
	}
}

func TestInsurance_DuplicatePolicyNumber(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()
	user := testUser(t, repo)

	policy := core.Insurance{
		UserID:       user.ID,
		Type:         "Term Insurance",
		PolicyName:   "Shield",
		PolicyNumber: "POL-123",
		Premium:      core.Money{Cents: 120000},
		Frequency:    core.PremiumAnnual,
		Coverage:     core.Money{Cents: 500000000},
		TenureYears:  20,
		StartDate:    core.NewDate(2024, 4, 1),
	}
	created, err := repo.CreateInsurance(ctx, policy)
	if err != nil {
		t.Fatalf("CreateInsurance() error: %v", err)
	}
	if got := created.MaturityDate.Format("2006-01-02"); got != "2044-04-01" {
		t.Errorf("MaturityDate = %s, want 2044-04-01", got)
	}

	if _, err := repo.CreateInsurance(ctx, policy); !errors.Is(err, core.ErrDuplicate) {
		t.Errorf("CreateInsurance() duplicate policy number error = %v, want ErrDuplicate", err)
	}
}

func TestLumpSum_DerivedMaturity(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()
	user := testUser(t, repo)

	l, err := repo.CreateLumpSum(ctx, core.LumpSum{
		UserID:       user.ID,
		Name:         "FD 2025",
		Principal:    core.Money{Cents: 10000000},
		RatePct:      7,
		TenureMonths: 24,
		StartDate:    core.NewDate(2025, 1, 1),
	})
	if err != nil {
		t.Fatalf("CreateLumpSum() error: %v", err)
	}
	// 100000 * 1.07^2 = 114490 rupees
	if l.MaturityValue.Cents != 11449000 {
		t.Errorf("MaturityValue = %d, want 11449000", l.MaturityValue.Cents)
	}
	if got := l.MaturityDate.Format("2006-01-02"); got != "2027-01-01" {
		t.Errorf("MaturityDate = %s, want 2027-01-01", got)
	}
}

func TestSnapshot_Upsert(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()
	user := testUser(t, repo)

	snap := core.NetWorthSnapshot{
		UserID:      user.ID,
		Month:       core.NewDate(2025, 6, 1),
		TotalAssets: core.Money{Cents: 1000000},
		NetWorth:    core.Money{Cents: 1000000},
	}
	if _, err := repo.UpsertSnapshot(ctx, snap); err != nil {
		t.Fatalf("UpsertSnapshot() error: %v", err)
	}

	snap.NetWorth = core.Money{Cents: 2000000}
	snap.TotalAssets = core.Money{Cents: 2000000}
	if _, err := repo.UpsertSnapshot(ctx, snap); err != nil {
		t.Fatalf("UpsertSnapshot() second write error: %v", err)
	}

	history, err := repo.SnapshotHistory(ctx, user.ID)
	if err != nil {
		t.Fatalf("SnapshotHistory() error: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("SnapshotHistory() len = %d, want 1 (upsert overwrites)", len(history))
	}
	if history[0].NetWorth.Cents != 2000000 {
		t.Errorf("NetWorth = %d, want 2000000", history[0].NetWorth.Cents)
	}

	latest, err := repo.LatestSnapshot(ctx, user.ID)
	if err != nil {
		t.Fatalf("LatestSnapshot() error: %v", err)
	}
	if latest.NetWorth.Cents != 2000000 {
		t.Errorf("LatestSnapshot() NetWorth = %d, want 2000000", latest.NetWorth.Cents)
	}
}

func TestLatestSnapshot_NotFound(t *testing.T) {
	repo := testRepo(t)
	user := testUser(t, repo)

	_, err := repo.LatestSnapshot(context.Background(), user.ID)
	if !errors.Is(err, core.ErrNotFound) {
		t.Errorf("LatestSnapshot() on empty history error = %v, want ErrNotFound", err)
	}
}

func TestSWP_LinkToLoan(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()
	user := testUser(t, repo)

	loan, err := repo.CreateLoan(ctx, core.Loan{
		UserID: user.ID, LoanType: "Personal Loan",
		Principal: core.Money{Cents: 5000000}, RatePct: 11, TenureMonths: 60,
		StartDate: core.NewDate(2025, 1, 1),
	})
	if err != nil {
		t.Fatalf("CreateLoan() error: %v", err)
	}

	swp, err := repo.CreateSWP(ctx, core.SWP{
		UserID: user.ID, SourceType: "mutual_fund", SourceID: 1,
		MonthlyWithdrawal: core.Money{Cents: 100000},
		StartDate:         core.NewDate(2025, 2, 1),
	})
	if err != nil {
		t.Fatalf("CreateSWP() error: %v", err)
	}

	if err := repo.LinkSWPToLoan(ctx, user.ID, swp.ID, loan.ID); err != nil {
		t.Fatalf("LinkSWPToLoan() error: %v", err)
	}
	got, err := repo.GetSWP(ctx, user.ID, swp.ID)
	if err != nil {
		t.Fatalf("GetSWP() error: %v", err)
	}
	if got.LinkedLoanID != loan.ID {
		t.Errorf("LinkedLoanID = %d, want %d", got.LinkedLoanID, loan.ID)
	}
}

func TestStock_UpdatePrice(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()
	user := testUser(t, repo)

	stock, err := repo.CreateStock(ctx, core.Stock{
		UserID: user.ID, CompanyName: "Reliance", Symbol: "RELIANCE",
		Quantity: 10, PurchasePrice: core.Money{Cents: 250000},
		PurchaseDate: core.NewDate(2025, 1, 10),
	})
	if err != nil {
		t.Fatalf("CreateStock() error: %v", err)
	}

	if err := repo.UpdateStockPrice(ctx, stock.ID, core.Money{Cents: 280000}); err != nil {
		t.Fatalf("UpdateStockPrice() error: %v", err)
	}
	got, err := repo.GetStock(ctx, user.ID, stock.ID)
	if err != nil {
		t.Fatalf("GetStock() error: %v", err)
	}
	if got.CurrentValue.Cents != 2800000 {
		t.Errorf("CurrentValue = %d, want 2800000 (quantity * price)", got.CurrentValue.Cents)
	}
	if got.LastUpdated.IsZero() {
		t.Error("LastUpdated should be set after a price refresh")
	}
}
