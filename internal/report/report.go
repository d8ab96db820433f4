// Package report renders monthly financial summaries as XLSX workbooks.
package report

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/xuri/excelize/v2"

	"finman/internal/core"
	"finman/internal/log"
	"finman/internal/services"
	"finman/internal/storage"
)

const sheetName = "Monthly Report"

// Builder assembles one user's monthly report. When the month has no
// stored snapshot yet, one is computed on the fly.
type Builder struct {
	storage   *storage.SQLiteRepository
	snapshots *services.SnapshotService
	logger    *log.Logger
}

func NewBuilder(storage *storage.SQLiteRepository, snapshots *services.SnapshotService, logger *log.Logger) *Builder {
	return &Builder{
		storage:   storage,
		snapshots: snapshots,
		logger:    logger.WithComponent(log.ComponentReport),
	}
}

// MonthlyReport carries the data rendered into the workbook.
type MonthlyReport struct {
	User         core.User
	Month        core.Date
	Income       core.Income
	Expenses     []core.Expense
	ByCategory   []CategoryTotal
	ExpenseTotal core.Money
	Snapshot     core.NetWorthSnapshot
}

type CategoryTotal struct {
	Category string
	Total    core.Money
}

// Build gathers the report data and renders it, returning the XLSX bytes.
func (b *Builder) Build(ctx context.Context, userID int64, month core.Date) ([]byte, error) {
	rep, err := b.assemble(ctx, userID, month)
	if err != nil {
		return nil, err
	}

	data, err := render(rep)
	if err != nil {
		return nil, fmt.Errorf("render report: %w", err)
	}

	b.logger.InfoContext(ctx, "Monthly report rendered",
		log.FieldUserID, userID,
		log.FieldMonth, rep.Month.String(),
		"expenses", len(rep.Expenses),
		"bytes", len(data))
	return data, nil
}

func (b *Builder) assemble(ctx context.Context, userID int64, month core.Date) (*MonthlyReport, error) {
	month = month.MonthStart()

	user, err := b.storage.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}

	income, err := b.storage.GetIncomeForMonth(ctx, userID, month)
	if err != nil && !errors.Is(err, core.ErrNotFound) {
		return nil, fmt.Errorf("get income: %w", err)
	}

	expenses, err := b.storage.ListExpensesForMonth(ctx, userID, month)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}

	snap, err := b.snapshotFor(ctx, userID, month)
	if err != nil {
		return nil, err
	}

	rep := &MonthlyReport{
		User:     user,
		Month:    month,
		Income:   income,
		Expenses: expenses,
		Snapshot: snap,
	}
	rep.ByCategory, rep.ExpenseTotal = categoryTotals(expenses)
	return rep, nil
}

func (b *Builder) snapshotFor(ctx context.Context, userID int64, month core.Date) (core.NetWorthSnapshot, error) {
	history, err := b.storage.SnapshotHistory(ctx, userID)
	if err != nil {
		return core.NetWorthSnapshot{}, fmt.Errorf("snapshot history: %w", err)
	}
	for _, snap := range history {
		if snap.Month.Equal(month.Time) {
			return snap, nil
		}
	}
	return b.snapshots.Compute(ctx, userID, month)
}

func categoryTotals(expenses []core.Expense) ([]CategoryTotal, core.Money) {
	byCat := make(map[string]int64)
	var total int64
	for _, e := range expenses {
		byCat[e.Category] += e.Amount.Cents
		total += e.Amount.Cents
	}

	totals := make([]CategoryTotal, 0, len(byCat))
	for cat, cents := range byCat {
		totals = append(totals, CategoryTotal{Category: cat, Total: core.Money{Cents: cents}})
	}
	sort.Slice(totals, func(i, j int) bool {
		if totals[i].Total.Cents != totals[j].Total.Cents {
			return totals[i].Total.Cents > totals[j].Total.Cents
		}
		return totals[i].Category < totals[j].Category
	})
	return totals, core.Money{Cents: total}
}

func render(rep *MonthlyReport) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	row := 1
	setRow := func(values ...any) {
		for i, v := range values {
			cell, _ := excelize.CoordinatesToCellName(i+1, row)
			f.SetCellValue(sheetName, cell, v)
		}
		row++
	}

	setRow(fmt.Sprintf("Financial Report - %s - %s", rep.User.Name, rep.Month.Format("January 2006")))
	row++

	setRow("Summary")
	setRow("Income", rep.Income.Total.Rupees())
	setRow("Expenses", rep.ExpenseTotal.Rupees())
	setRow("Savings", core.Money{Cents: rep.Income.Total.Cents - rep.ExpenseTotal.Cents}.Rupees())
	setRow("Total Assets", rep.Snapshot.TotalAssets.Rupees())
	setRow("Total Debt", rep.Snapshot.TotalDebt.Rupees())
	setRow("Net Worth", rep.Snapshot.NetWorth.Rupees())
	if rep.Snapshot.HasPrediction {
		setRow("Projected Next Month", rep.Snapshot.PredictedNext.Rupees())
	}
	row++

	setRow("Assets")
	setRow("Stocks", rep.Snapshot.StocksValue.Rupees())
	setRow("SIPs", rep.Snapshot.SIPValue.Rupees())
	setRow("Mutual Funds", rep.Snapshot.MutualFunds.Rupees())
	setRow("Fixed Deposits", rep.Snapshot.LumpSums.Rupees())
	setRow("Cash Savings", rep.Snapshot.Savings.Rupees())
	row++

	setRow("Expenses by Category")
	setRow("Category", "Amount")
	for _, ct := range rep.ByCategory {
		setRow(ct.Category, ct.Total.Rupees())
	}
	row++

	if len(rep.Expenses) > 0 {
		setRow("Expense Detail")
		setRow("Category", "Amount", "Description", "Flagged")
		for _, e := range rep.Expenses {
			flagged := ""
			if e.IsAnomaly {
				flagged = "yes"
			}
			setRow(e.Category, e.Amount.Rupees(), e.Description, flagged)
		}
	}

	f.SetColWidth(sheetName, "A", "A", 24)
	f.SetColWidth(sheetName, "B", "B", 14)
	f.SetColWidth(sheetName, "C", "C", 32)
	f.SetColWidth(sheetName, "D", "D", 10)

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// Filename returns the download name for a report.
func Filename(userID int64, month core.Date) string {
	return fmt.Sprintf("finman_%d_%s.xlsx", userID, month.Format("2006-01"))
}
