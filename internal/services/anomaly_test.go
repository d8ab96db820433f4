package services

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"

	"finman/internal/core"
	"finman/internal/log"
	"finman/internal/storage"
)

func testLogger() *log.Logger {
	return log.New(log.Config{Level: slog.LevelError, Component: "test"})
}

func testStorage(t *testing.T) *storage.SQLiteRepository {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "finman.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository() error: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func seedUser(t *testing.T, repo *storage.SQLiteRepository) core.User {
	t.Helper()
	u, err := repo.CreateUser(context.Background(), core.User{Email: "dev@example.com", Name: "Dev"})
	if err != nil {
		t.Fatalf("CreateUser() error: %v", err)
	}
	return u
}

func seedMonthlySpending(t *testing.T, repo *storage.SQLiteRepository, userID int64, totals []int64) {
	t.Helper()
	for i, total := range totals {
		_, err := repo.CreateExpense(context.Background(), core.Expense{
			UserID:   userID,
			Month:    core.NewDate(2025, 1+i, 1),
			Category: "Others",
			Amount:   core.Money{Cents: total},
		})
		if err != nil {
			t.Fatalf("CreateExpense() error: %v", err)
		}
	}
}

func TestAnomalyDetect_TooLittleHistory(t *testing.T) {
	repo := testStorage(t)
	user := seedUser(t, repo)
	svc := NewAnomalyService(repo, testLogger())

	seedMonthlySpending(t, repo, user.ID, []int64{10000, 10000})

	anomalies, err := svc.Detect(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("Detect() error: %v", err)
	}
	if anomalies != nil {
		t.Errorf("Detect() with 2 months = %v, want nil", anomalies)
	}
}

func TestAnomalyDetect_FlagsSpike(t *testing.T) {
	repo := testStorage(t)
	user := seedUser(t, repo)
	svc := NewAnomalyService(repo, testLogger())

	// Five steady months and one twentyfold spike.
	seedMonthlySpending(t, repo, user.ID, []int64{10000, 10000, 10000, 10000, 10000, 200000})

	anomalies, err := svc.Detect(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("Detect() error: %v", err)
	}
	if len(anomalies) != 1 {
		t.Fatalf("Detect() found %d anomalies, want 1", len(anomalies))
	}
	if got := anomalies[0].Month.String(); got != "2025-06-01" {
		t.Errorf("anomaly month = %s, want 2025-06-01", got)
	}
	if anomalies[0].Total.Cents != 200000 {
		t.Errorf("anomaly total = %d, want 200000", anomalies[0].Total.Cents)
	}
	if anomalies[0].Threshold.Cents >= anomalies[0].Total.Cents {
		t.Error("threshold should sit below the anomalous total")
	}
}

func TestAnomalyDetect_SteadySpending(t *testing.T) {
	repo := testStorage(t)
	user := seedUser(t, repo)
	svc := NewAnomalyService(repo, testLogger())

	seedMonthlySpending(t, repo, user.ID, []int64{10000, 11000, 9000, 10500, 9500})

	anomalies, err := svc.Detect(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("Detect() error: %v", err)
	}
	if len(anomalies) != 0 {
		t.Errorf("Detect() on steady spending found %d anomalies, want 0", len(anomalies))
	}
}

func TestAnomalyFlagExpenses(t *testing.T) {
	repo := testStorage(t)
	user := seedUser(t, repo)
	svc := NewAnomalyService(repo, testLogger())
	ctx := context.Background()

	seedMonthlySpending(t, repo, user.ID, []int64{10000, 10000, 10000, 10000, 10000, 200000})

	if err := svc.FlagExpenses(ctx, user.ID); err != nil {
		t.Fatalf("FlagExpenses() error: %v", err)
	}

	expenses, err := repo.ListExpensesForMonth(ctx, user.ID, core.NewDate(2025, 6, 1))
	if err != nil {
		t.Fatalf("ListExpensesForMonth() error: %v", err)
	}
	for _, e := range expenses {
		if !e.IsAnomaly {
			t.Errorf("expense %d in the spike month should be flagged", e.ID)
		}
	}

	expenses, err = repo.ListExpensesForMonth(ctx, user.ID, core.NewDate(2025, 1, 1))
	if err != nil {
		t.Fatalf("ListExpensesForMonth() error: %v", err)
	}
	for _, e := range expenses {
		if e.IsAnomaly {
			t.Errorf("expense %d in a steady month should not be flagged", e.ID)
		}
	}
}
