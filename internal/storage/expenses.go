package storage

import (
	"context"
	"fmt"

	"finman/internal/core"
)

func (r *SQLiteRepository) CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	e.Month = e.Month.MonthStart()

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO expenses (user_id, month, category, amount_paise, description, is_anomaly)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		e.UserID, dateStr(e.Month), e.Category, e.Amount.Cents, e.Description, e.IsAnomaly)
	if err != nil {
		return core.Expense{}, fmt.Errorf("create expense: %w", mapErr(err))
	}
	e.ID, err = res.LastInsertId()
	if err != nil {
		return core.Expense{}, fmt.Errorf("create expense id: %w", err)
	}
	return e, nil
}

// ListExpenses returns all of a user's expenses, oldest month first.
func (r *SQLiteRepository) ListExpenses(ctx context.Context, userID int64) ([]core.Expense, error) {
	return r.queryExpenses(ctx,
		`SELECT id, user_id, month, category, amount_paise, description, is_anomaly
		 FROM expenses WHERE user_id = ? ORDER BY month, id`, userID)
}

// ListExpensesForMonth returns a user's expenses for one month.
func (r *SQLiteRepository) ListExpensesForMonth(ctx context.Context, userID int64, month core.Date) ([]core.Expense, error) {
	return r.queryExpenses(ctx,
		`SELECT id, user_id, month, category, amount_paise, description, is_anomaly
		 FROM expenses WHERE user_id = ? AND month = ? ORDER BY id`,
		userID, dateStr(month.MonthStart()))
}

func (r *SQLiteRepository) queryExpenses(ctx context.Context, query string, args ...any) ([]core.Expense, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	var expenses []core.Expense
	for rows.Next() {
		var e core.Expense
		var monthStr string
		if err := rows.Scan(&e.ID, &e.UserID, &monthStr, &e.Category, &e.Amount.Cents, &e.Description, &e.IsAnomaly); err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		e.Month = parseDate(monthStr)
		expenses = append(expenses, e)
	}
	return expenses, rows.Err()
}

// MonthlyExpenseTotals returns per-month expense sums for a user, oldest
// first. Anomaly detection runs over these totals.
func (r *SQLiteRepository) MonthlyExpenseTotals(ctx context.Context, userID int64) (months []core.Date, totals []core.Money, err error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT month, SUM(amount_paise) FROM expenses
		 WHERE user_id = ? GROUP BY month ORDER BY month`, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("monthly expense totals: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var monthStr string
		var total int64
		if err := rows.Scan(&monthStr, &total); err != nil {
			return nil, nil, fmt.Errorf("scan expense total: %w", err)
		}
		months = append(months, parseDate(monthStr))
		totals = append(totals, core.Money{Cents: total})
	}
	return months, totals, rows.Err()
}

// MarkExpenseAnomaly flags or clears the anomaly marker on an expense.
func (r *SQLiteRepository) MarkExpenseAnomaly(ctx context.Context, id int64, anomaly bool) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE expenses SET is_anomaly = ? WHERE id = ?`, anomaly, id)
	if err != nil {
		return fmt.Errorf("mark expense anomaly: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) DeleteExpense(ctx context.Context, userID, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM expenses WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrNotFound
	}
	return nil
}
