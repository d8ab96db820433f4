// Command finman-seed fills the database with fake demo data: a few
// users, a year of incomes and expenses, a small product portfolio each,
// and the monthly net worth snapshots derived from them.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/joho/godotenv"

	"finman/internal/config"
	"finman/internal/core"
	"finman/internal/log"
	"finman/internal/services"
	"finman/internal/storage"
)

var stockUniverse = []struct {
	name   string
	symbol string
}{
	{"Reliance Industries", "RELIANCE"},
	{"Tata Consultancy Services", "TCS"},
	{"Infosys", "INFY"},
	{"HDFC Bank", "HDFCBANK"},
	{"ITC", "ITC"},
	{"Larsen & Toubro", "LT"},
}

var fundNames = []string{
	"Nifty 50 Index Fund",
	"Flexi Cap Growth Fund",
	"Balanced Advantage Fund",
	"Small Cap Discovery Fund",
	"Liquid Fund",
}

func main() {
	_ = godotenv.Load()

	users := flag.Int("users", 3, "number of demo users to create")
	months := flag.Int("months", 12, "months of history per user, ending this month")
	seed := flag.Int64("seed", 0, "random seed (0 uses the current time)")
	flag.Parse()

	logger := log.New(log.DefaultConfig())
	log.SetDefault(logger)

	if *seed != 0 {
		gofakeit.Seed(*seed)
		rand.Seed(*seed)
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	ctx := context.Background()
	snapshots := services.NewSnapshotService(repo, logger)

	for i := 0; i < *users; i++ {
		user, err := repo.CreateUser(ctx, core.User{
			Name:  gofakeit.Name(),
			Email: fmt.Sprintf("demo%d_%s", i+1, gofakeit.Email()),
		})
		if err != nil {
			logger.Error("Failed to create user", "error", err)
			os.Exit(1)
		}

		if err := seedUser(ctx, repo, snapshots, user, *months); err != nil {
			logger.Error("Failed to seed user", "error", err, log.FieldUserID, user.ID)
			os.Exit(1)
		}
		logger.Info("Seeded user", log.FieldUserID, user.ID, "email", user.Email, "months", *months)
	}

	logger.Info("Seeding complete", "users", *users)
}

func seedUser(ctx context.Context, repo *storage.SQLiteRepository, snapshots *services.SnapshotService, user core.User, months int) error {
	now := time.Now().UTC()
	start := core.Date{Time: now.AddDate(0, -(months - 1), 0)}.MonthStart()

	salary := core.FromRupees(gofakeit.Float64Range(50000, 250000))

	if err := seedProducts(ctx, repo, user.ID, start); err != nil {
		return err
	}

	for m := 0; m < months; m++ {
		month := core.Date{Time: start.AddDate(0, m, 0)}

		income := core.Income{
			UserID: user.ID,
			Month:  month,
			Salary: salary,
		}
		if rand.Intn(4) == 0 {
			income.OtherIncome = core.FromRupees(gofakeit.Float64Range(2000, 30000))
			income.OtherIncomeSource = gofakeit.RandomString([]string{"Freelance", "Rent", "Dividends", "Interest"})
		}
		if _, err := repo.CreateIncome(ctx, income); err != nil {
			return fmt.Errorf("income for %s: %w", month, err)
		}

		for i := 0; i < 3+rand.Intn(4); i++ {
			expense := core.Expense{
				UserID:      user.ID,
				Month:       month,
				Category:    gofakeit.RandomString(core.ExpenseCategories),
				Amount:      core.FromRupees(gofakeit.Float64Range(500, 25000)),
				Description: gofakeit.ProductName(),
			}
			if _, err := repo.CreateExpense(ctx, expense); err != nil {
				return fmt.Errorf("expense for %s: %w", month, err)
			}
		}

		if _, err := snapshots.Compute(ctx, user.ID, month); err != nil {
			return fmt.Errorf("snapshot for %s: %w", month, err)
		}
	}
	return nil
}

func seedProducts(ctx context.Context, repo *storage.SQLiteRepository, userID int64, start core.Date) error {
	for _, pick := range rand.Perm(len(stockUniverse))[:2] {
		s := stockUniverse[pick]
		_, err := repo.CreateStock(ctx, core.Stock{
			UserID:        userID,
			CompanyName:   s.name,
			Symbol:        s.symbol,
			Quantity:      int64(gofakeit.Number(5, 100)),
			PurchasePrice: core.FromRupees(gofakeit.Float64Range(200, 4000)),
			PurchaseDate:  start,
		})
		if err != nil {
			return fmt.Errorf("stock %s: %w", s.symbol, err)
		}
	}

	_, err := repo.CreateSIP(ctx, core.SIP{
		UserID:        userID,
		FundName:      gofakeit.RandomString(fundNames),
		MonthlyAmount: core.FromRupees(gofakeit.Float64Range(2000, 25000)),
		StartDate:     start,
		ReturnRatePct: gofakeit.Float64Range(8, 14),
		Active:        true,
	})
	if err != nil {
		return fmt.Errorf("sip: %w", err)
	}

	_, err = repo.CreateMutualFund(ctx, core.MutualFund{
		UserID:        userID,
		FundName:      gofakeit.RandomString(fundNames),
		Amount:        core.FromRupees(gofakeit.Float64Range(25000, 500000)),
		InvestDate:    start,
		ReturnRatePct: gofakeit.Float64Range(7, 13),
	})
	if err != nil {
		return fmt.Errorf("mutual fund: %w", err)
	}

	_, err = repo.CreateLumpSum(ctx, core.LumpSum{
		UserID:       userID,
		Name:         "Fixed Deposit",
		Principal:    core.FromRupees(gofakeit.Float64Range(50000, 1000000)),
		RatePct:      gofakeit.Float64Range(5.5, 8),
		TenureMonths: gofakeit.Number(12, 60),
		StartDate:    start,
		Active:       true,
	})
	if err != nil {
		return fmt.Errorf("lump sum: %w", err)
	}

	_, err = repo.CreateLoan(ctx, core.Loan{
		UserID:       userID,
		LoanType:     gofakeit.RandomString(core.LoanTypes),
		Principal:    core.FromRupees(gofakeit.Float64Range(500000, 5000000)),
		RatePct:      gofakeit.Float64Range(7, 12),
		TenureMonths: gofakeit.Number(60, 240),
		StartDate:    start,
	})
	if err != nil {
		return fmt.Errorf("loan: %w", err)
	}

	_, err = repo.CreateCreditCard(ctx, core.CreditCard{
		UserID:      userID,
		CardName:    gofakeit.RandomString([]string{"Platinum Rewards", "Cashback Plus", "Travel Elite"}),
		Last4:       fmt.Sprintf("%04d", gofakeit.Number(0, 9999)),
		Limit:       core.FromRupees(gofakeit.Float64Range(50000, 500000)),
		Outstanding: core.FromRupees(gofakeit.Float64Range(0, 40000)),
		DueDay:      gofakeit.Number(1, 28),
	})
	if err != nil {
		return fmt.Errorf("credit card: %w", err)
	}

	_, err = repo.CreateInsurance(ctx, core.Insurance{
		UserID:       userID,
		Type:         gofakeit.RandomString(core.InsuranceTypes),
		PolicyName:   gofakeit.Company() + " Protect",
		PolicyNumber: fmt.Sprintf("POL-%d-%d", userID, gofakeit.Number(100000, 999999)),
		Premium:      core.FromRupees(gofakeit.Float64Range(5000, 50000)),
		Frequency:    core.PremiumAnnual,
		Coverage:     core.FromRupees(gofakeit.Float64Range(1000000, 20000000)),
		TenureYears:  gofakeit.Number(10, 30),
		StartDate:    start,
	})
	if err != nil {
		return fmt.Errorf("insurance: %w", err)
	}
	return nil
}
