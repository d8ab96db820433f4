package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"finman/internal/calc"
	"finman/internal/core"
)

func (r *SQLiteRepository) CreateStock(ctx context.Context, s core.Stock) (core.Stock, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO stocks (user_id, company_name, symbol, quantity, purchase_price_paise, purchase_date,
		                     current_price_paise, current_value_paise)
		 VALUES (?, ?, ?, ?, ?, ?, 0, 0)`,
		s.UserID, s.CompanyName, s.Symbol, s.Quantity, s.PurchasePrice.Cents, dateStr(s.PurchaseDate))
	if err != nil {
		return core.Stock{}, fmt.Errorf("create stock: %w", mapErr(err))
	}
	s.ID, err = res.LastInsertId()
	if err != nil {
		return core.Stock{}, fmt.Errorf("create stock id: %w", err)
	}
	s.CurrentPrice = core.Money{}
	s.CurrentValue = core.Money{}
	return s, nil
}

func (r *SQLiteRepository) GetStock(ctx context.Context, userID, id int64) (core.Stock, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, company_name, symbol, quantity, purchase_price_paise, purchase_date,
		        current_price_paise, current_value_paise, last_updated
		 FROM stocks WHERE id = ? AND user_id = ?`, id, userID)
	s, err := scanStock(row)
	if err != nil {
		return core.Stock{}, fmt.Errorf("get stock %d: %w", id, mapErr(err))
	}
	return s, nil
}

func (r *SQLiteRepository) ListStocks(ctx context.Context, userID int64) ([]core.Stock, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, company_name, symbol, quantity, purchase_price_paise, purchase_date,
		        current_price_paise, current_value_paise, last_updated
		 FROM stocks WHERE user_id = ? ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list stocks: %w", err)
	}
	defer rows.Close()

	var stocks []core.Stock
	for rows.Next() {
		s, err := scanStock(rows)
		if err != nil {
			return nil, fmt.Errorf("scan stock: %w", err)
		}
		stocks = append(stocks, s)
	}
	return stocks, rows.Err()
}

// ListAllStocks returns every stock across users, for the price refresh pass.
func (r *SQLiteRepository) ListAllStocks(ctx context.Context) ([]core.Stock, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, company_name, symbol, quantity, purchase_price_paise, purchase_date,
		        current_price_paise, current_value_paise, last_updated
		 FROM stocks ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list all stocks: %w", err)
	}
	defer rows.Close()

	var stocks []core.Stock
	for rows.Next() {
		s, err := scanStock(rows)
		if err != nil {
			return nil, fmt.Errorf("scan stock: %w", err)
		}
		stocks = append(stocks, s)
	}
	return stocks, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStock(row rowScanner) (core.Stock, error) {
	var s core.Stock
	var purchaseStr string
	var lastUpdated sql.NullTime
	err := row.Scan(&s.ID, &s.UserID, &s.CompanyName, &s.Symbol, &s.Quantity,
		&s.PurchasePrice.Cents, &purchaseStr, &s.CurrentPrice.Cents, &s.CurrentValue.Cents, &lastUpdated)
	if err != nil {
		return core.Stock{}, err
	}
	s.PurchaseDate = parseDate(purchaseStr)
	if lastUpdated.Valid {
		s.LastUpdated = lastUpdated.Time
	}
	return s, nil
}

// UpdateStockPrice records a refreshed market price and the derived value.
func (r *SQLiteRepository) UpdateStockPrice(ctx context.Context, id int64, price core.Money) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE stocks SET current_price_paise = ?, current_value_paise = quantity * ?, last_updated = ?
		 WHERE id = ?`, price.Cents, price.Cents, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update stock price: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) DeleteStock(ctx context.Context, userID, id int64) error {
	return r.deleteByID(ctx, "stocks", userID, id)
}

// CreateSIP inserts a SIP with invested and current values projected from
// months elapsed since the start date.
func (r *SQLiteRepository) CreateSIP(ctx context.Context, s core.SIP) (core.SIP, error) {
	months := calc.MonthsBetween(s.StartDate.Time, time.Now().UTC())
	s.TotalInvested, s.CurrentValue = calc.SIPValue(s.MonthlyAmount, s.ReturnRatePct, months)
	s.Active = true

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO sips (user_id, fund_name, monthly_amount_paise, start_date, return_rate_pct,
		                   total_invested_paise, current_value_paise, active)
		 VALUES (?, ?, ?, ?, ?, ?, ?, 1)`,
		s.UserID, s.FundName, s.MonthlyAmount.Cents, dateStr(s.StartDate), s.ReturnRatePct,
		s.TotalInvested.Cents, s.CurrentValue.Cents)
	if err != nil {
		return core.SIP{}, fmt.Errorf("create sip: %w", mapErr(err))
	}
	s.ID, err = res.LastInsertId()
	if err != nil {
		return core.SIP{}, fmt.Errorf("create sip id: %w", err)
	}
	return s, nil
}

func (r *SQLiteRepository) GetSIP(ctx context.Context, userID, id int64) (core.SIP, error) {
	var s core.SIP
	var startStr string
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, fund_name, monthly_amount_paise, start_date, return_rate_pct,
		        total_invested_paise, current_value_paise, active
		 FROM sips WHERE id = ? AND user_id = ?`, id, userID).
		Scan(&s.ID, &s.UserID, &s.FundName, &s.MonthlyAmount.Cents, &startStr, &s.ReturnRatePct,
			&s.TotalInvested.Cents, &s.CurrentValue.Cents, &s.Active)
	if err != nil {
		return core.SIP{}, fmt.Errorf("get sip %d: %w", id, mapErr(err))
	}
	s.StartDate = parseDate(startStr)
	return s, nil
}

func (r *SQLiteRepository) ListSIPs(ctx context.Context, userID int64) ([]core.SIP, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, fund_name, monthly_amount_paise, start_date, return_rate_pct,
		        total_invested_paise, current_value_paise, active
		 FROM sips WHERE user_id = ? ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list sips: %w", err)
	}
	defer rows.Close()

	var sips []core.SIP
	for rows.Next() {
		var s core.SIP
		var startStr string
		if err := rows.Scan(&s.ID, &s.UserID, &s.FundName, &s.MonthlyAmount.Cents, &startStr, &s.ReturnRatePct,
			&s.TotalInvested.Cents, &s.CurrentValue.Cents, &s.Active); err != nil {
			return nil, fmt.Errorf("scan sip: %w", err)
		}
		s.StartDate = parseDate(startStr)
		sips = append(sips, s)
	}
	return sips, rows.Err()
}

// RefreshSIPValues recomputes invested and current values for a user's
// active SIPs from months elapsed.
func (r *SQLiteRepository) RefreshSIPValues(ctx context.Context, userID int64, now time.Time) error {
	sips, err := r.ListSIPs(ctx, userID)
	if err != nil {
		return err
	}
	for _, s := range sips {
		if !s.Active {
			continue
		}
		months := calc.MonthsBetween(s.StartDate.Time, now)
		invested, value := calc.SIPValue(s.MonthlyAmount, s.ReturnRatePct, months)
		_, err := r.db.ExecContext(ctx,
			`UPDATE sips SET total_invested_paise = ?, current_value_paise = ? WHERE id = ?`,
			invested.Cents, value.Cents, s.ID)
		if err != nil {
			return fmt.Errorf("refresh sip %d: %w", s.ID, err)
		}
	}
	return nil
}

// SetSIPActive pauses or resumes a SIP.
func (r *SQLiteRepository) SetSIPActive(ctx context.Context, userID, id int64, active bool) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE sips SET active = ? WHERE id = ? AND user_id = ?`, active, id, userID)
	if err != nil {
		return fmt.Errorf("set sip active: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) DeleteSIP(ctx context.Context, userID, id int64) error {
	return r.deleteByID(ctx, "sips", userID, id)
}

// CreateMutualFund inserts a lump mutual fund purchase with current value
// projected from years elapsed.
func (r *SQLiteRepository) CreateMutualFund(ctx context.Context, m core.MutualFund) (core.MutualFund, error) {
	years := float64(calc.MonthsBetween(m.InvestDate.Time, time.Now().UTC())) / 12.0
	m.CurrentValue = calc.LumpSumValue(m.Amount, m.ReturnRatePct, years)

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO mutual_funds (user_id, fund_name, amount_paise, invest_date, return_rate_pct, current_value_paise)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		m.UserID, m.FundName, m.Amount.Cents, dateStr(m.InvestDate), m.ReturnRatePct, m.CurrentValue.Cents)
	if err != nil {
		return core.MutualFund{}, fmt.Errorf("create mutual fund: %w", mapErr(err))
	}
	m.ID, err = res.LastInsertId()
	if err != nil {
		return core.MutualFund{}, fmt.Errorf("create mutual fund id: %w", err)
	}
	return m, nil
}

func (r *SQLiteRepository) ListMutualFunds(ctx context.Context, userID int64) ([]core.MutualFund, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, fund_name, amount_paise, invest_date, return_rate_pct, current_value_paise
		 FROM mutual_funds WHERE user_id = ? ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list mutual funds: %w", err)
	}
	defer rows.Close()

	var funds []core.MutualFund
	for rows.Next() {
		var m core.MutualFund
		var investStr string
		if err := rows.Scan(&m.ID, &m.UserID, &m.FundName, &m.Amount.Cents, &investStr, &m.ReturnRatePct, &m.CurrentValue.Cents); err != nil {
			return nil, fmt.Errorf("scan mutual fund: %w", err)
		}
		m.InvestDate = parseDate(investStr)
		funds = append(funds, m)
	}
	return funds, rows.Err()
}

func (r *SQLiteRepository) DeleteMutualFund(ctx context.Context, userID, id int64) error {
	return r.deleteByID(ctx, "mutual_funds", userID, id)
}

// CreateLumpSum inserts a deposit with maturity value and date derived from
// principal, rate and tenure.
func (r *SQLiteRepository) CreateLumpSum(ctx context.Context, l core.LumpSum) (core.LumpSum, error) {
	l.MaturityValue = calc.LumpSumValue(l.Principal, l.RatePct, float64(l.TenureMonths)/12.0)
	l.MaturityDate = core.Date{Time: l.StartDate.AddDate(0, l.TenureMonths, 0)}
	l.Active = true

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO lump_sums (user_id, name, principal_paise, rate_pct, tenure_months, start_date,
		                        maturity_value_paise, maturity_date, active)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, 1)`,
		l.UserID, l.Name, l.Principal.Cents, l.RatePct, l.TenureMonths, dateStr(l.StartDate),
		l.MaturityValue.Cents, dateStr(l.MaturityDate))
	if err != nil {
		return core.LumpSum{}, fmt.Errorf("create lump sum: %w", mapErr(err))
	}
	l.ID, err = res.LastInsertId()
	if err != nil {
		return core.LumpSum{}, fmt.Errorf("create lump sum id: %w", err)
	}
	return l, nil
}

func (r *SQLiteRepository) ListLumpSums(ctx context.Context, userID int64) ([]core.LumpSum, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, name, principal_paise, rate_pct, tenure_months, start_date,
		        maturity_value_paise, maturity_date, active
		 FROM lump_sums WHERE user_id = ? ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list lump sums: %w", err)
	}
	defer rows.Close()

	var sums []core.LumpSum
	for rows.Next() {
		var l core.LumpSum
		var startStr, maturityStr string
		if err := rows.Scan(&l.ID, &l.UserID, &l.Name, &l.Principal.Cents, &l.RatePct, &l.TenureMonths,
			&startStr, &l.MaturityValue.Cents, &maturityStr, &l.Active); err != nil {
			return nil, fmt.Errorf("scan lump sum: %w", err)
		}
		l.StartDate = parseDate(startStr)
		l.MaturityDate = parseDate(maturityStr)
		sums = append(sums, l)
	}
	return sums, rows.Err()
}

func (r *SQLiteRepository) DeleteLumpSum(ctx context.Context, userID, id int64) error {
	return r.deleteByID(ctx, "lump_sums", userID, id)
}

func (r *SQLiteRepository) deleteByID(ctx context.Context, table string, userID, id int64) error {
	res, err := r.db.ExecContext(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE id = ? AND user_id = ?`, table), id, userID)
	if err != nil {
		return fmt.Errorf("delete from %s: %w", table, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrNotFound
	}
	return nil
}
