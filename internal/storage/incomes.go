package storage

import (
	"context"
	"fmt"

	"finman/internal/core"
)

// CreateIncome inserts a month's income. Total is computed here; a second
// record for the same (user, month) returns ErrDuplicate.
func (r *SQLiteRepository) CreateIncome(ctx context.Context, in core.Income) (core.Income, error) {
	in.Month = in.Month.MonthStart()
	in.Total = core.Money{Cents: in.Salary.Cents + in.OtherIncome.Cents}

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO incomes (user_id, month, salary_paise, other_income_paise, other_income_source, total_paise)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		in.UserID, dateStr(in.Month), in.Salary.Cents, in.OtherIncome.Cents, in.OtherIncomeSource, in.Total.Cents)
	if err != nil {
		return core.Income{}, fmt.Errorf("create income: %w", mapErr(err))
	}
	in.ID, err = res.LastInsertId()
	if err != nil {
		return core.Income{}, fmt.Errorf("create income id: %w", err)
	}
	return in, nil
}

// GetIncomeForMonth returns the income record for a user's month.
func (r *SQLiteRepository) GetIncomeForMonth(ctx context.Context, userID int64, month core.Date) (core.Income, error) {
	var in core.Income
	var monthStr string
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, month, salary_paise, other_income_paise, other_income_source, total_paise
		 FROM incomes WHERE user_id = ? AND month = ?`,
		userID, dateStr(month.MonthStart())).
		Scan(&in.ID, &in.UserID, &monthStr, &in.Salary.Cents, &in.OtherIncome.Cents, &in.OtherIncomeSource, &in.Total.Cents)
	if err != nil {
		return core.Income{}, fmt.Errorf("get income: %w", mapErr(err))
	}
	in.Month = parseDate(monthStr)
	return in, nil
}

// ListIncomes returns all income records for a user, oldest first.
func (r *SQLiteRepository) ListIncomes(ctx context.Context, userID int64) ([]core.Income, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, month, salary_paise, other_income_paise, other_income_source, total_paise
		 FROM incomes WHERE user_id = ? ORDER BY month`, userID)
	if err != nil {
		return nil, fmt.Errorf("list incomes: %w", err)
	}
	defer rows.Close()

	var incomes []core.Income
	for rows.Next() {
		var in core.Income
		var monthStr string
		if err := rows.Scan(&in.ID, &in.UserID, &monthStr, &in.Salary.Cents, &in.OtherIncome.Cents, &in.OtherIncomeSource, &in.Total.Cents); err != nil {
			return nil, fmt.Errorf("scan income: %w", err)
		}
		in.Month = parseDate(monthStr)
		incomes = append(incomes, in)
	}
	return incomes, rows.Err()
}

// UpdateIncome replaces a record's amounts and recomputes the total.
func (r *SQLiteRepository) UpdateIncome(ctx context.Context, in core.Income) (core.Income, error) {
	in.Total = core.Money{Cents: in.Salary.Cents + in.OtherIncome.Cents}
	res, err := r.db.ExecContext(ctx,
		`UPDATE incomes SET salary_paise = ?, other_income_paise = ?, other_income_source = ?, total_paise = ?
		 WHERE id = ? AND user_id = ?`,
		in.Salary.Cents, in.OtherIncome.Cents, in.OtherIncomeSource, in.Total.Cents, in.ID, in.UserID)
	if err != nil {
		return core.Income{}, fmt.Errorf("update income: %w", mapErr(err))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.Income{}, core.ErrNotFound
	}
	return in, nil
}

// DeleteIncome removes an income record.
func (r *SQLiteRepository) DeleteIncome(ctx context.Context, userID, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM incomes WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete income: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrNotFound
	}
	return nil
}
