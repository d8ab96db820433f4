package storage

import (
	"context"
	"fmt"
	"time"

	"finman/internal/core"
)

// UpsertSnapshot persists a month's snapshot, replacing any previous record
// for the same (user, month).
func (r *SQLiteRepository) UpsertSnapshot(ctx context.Context, s core.NetWorthSnapshot) (core.NetWorthSnapshot, error) {
	s.Month = s.Month.MonthStart()

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO net_worth_history (user_id, month, stocks_value_paise, sip_value_paise, mutual_funds_paise,
		                                lump_sums_paise, savings_paise, total_assets_paise, loan_debt_paise,
		                                card_debt_paise, total_debt_paise, net_worth_paise,
		                                predicted_next_paise, has_prediction)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (user_id, month) DO UPDATE SET
		     stocks_value_paise = excluded.stocks_value_paise,
		     sip_value_paise = excluded.sip_value_paise,
		     mutual_funds_paise = excluded.mutual_funds_paise,
		     lump_sums_paise = excluded.lump_sums_paise,
		     savings_paise = excluded.savings_paise,
		     total_assets_paise = excluded.total_assets_paise,
		     loan_debt_paise = excluded.loan_debt_paise,
		     card_debt_paise = excluded.card_debt_paise,
		     total_debt_paise = excluded.total_debt_paise,
		     net_worth_paise = excluded.net_worth_paise,
		     predicted_next_paise = excluded.predicted_next_paise,
		     has_prediction = excluded.has_prediction`,
		s.UserID, dateStr(s.Month), s.StocksValue.Cents, s.SIPValue.Cents, s.MutualFunds.Cents,
		s.LumpSums.Cents, s.Savings.Cents, s.TotalAssets.Cents, s.LoanDebt.Cents,
		s.CardDebt.Cents, s.TotalDebt.Cents, s.NetWorth.Cents,
		s.PredictedNext.Cents, s.HasPrediction)
	if err != nil {
		return core.NetWorthSnapshot{}, fmt.Errorf("upsert snapshot: %w", mapErr(err))
	}

	if id, err := res.LastInsertId(); err == nil && id > 0 {
		s.ID = id
	}
	s.CreatedAt = time.Now().UTC()
	return s, nil
}

// SnapshotHistory returns a user's snapshots, oldest first.
func (r *SQLiteRepository) SnapshotHistory(ctx context.Context, userID int64) ([]core.NetWorthSnapshot, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, month, stocks_value_paise, sip_value_paise, mutual_funds_paise,
		        lump_sums_paise, savings_paise, total_assets_paise, loan_debt_paise,
		        card_debt_paise, total_debt_paise, net_worth_paise,
		        predicted_next_paise, has_prediction, created_at
		 FROM net_worth_history WHERE user_id = ? ORDER BY month`, userID)
	if err != nil {
		return nil, fmt.Errorf("snapshot history: %w", err)
	}
	defer rows.Close()

	var history []core.NetWorthSnapshot
	for rows.Next() {
		s, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		history = append(history, s)
	}
	return history, rows.Err()
}

// LatestSnapshot returns the most recent snapshot for a user.
func (r *SQLiteRepository) LatestSnapshot(ctx context.Context, userID int64) (core.NetWorthSnapshot, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, month, stocks_value_paise, sip_value_paise, mutual_funds_paise,
		        lump_sums_paise, savings_paise, total_assets_paise, loan_debt_paise,
		        card_debt_paise, total_debt_paise, net_worth_paise,
		        predicted_next_paise, has_prediction, created_at
		 FROM net_worth_history WHERE user_id = ? ORDER BY month DESC LIMIT 1`, userID)
	s, err := scanSnapshot(row)
	if err != nil {
		return core.NetWorthSnapshot{}, fmt.Errorf("latest snapshot: %w", mapErr(err))
	}
	return s, nil
}

func scanSnapshot(row rowScanner) (core.NetWorthSnapshot, error) {
	var s core.NetWorthSnapshot
	var monthStr string
	err := row.Scan(&s.ID, &s.UserID, &monthStr, &s.StocksValue.Cents, &s.SIPValue.Cents, &s.MutualFunds.Cents,
		&s.LumpSums.Cents, &s.Savings.Cents, &s.TotalAssets.Cents, &s.LoanDebt.Cents,
		&s.CardDebt.Cents, &s.TotalDebt.Cents, &s.NetWorth.Cents,
		&s.PredictedNext.Cents, &s.HasPrediction, &s.CreatedAt)
	if err != nil {
		return core.NetWorthSnapshot{}, err
	}
	s.Month = parseDate(monthStr)
	return s, nil
}
