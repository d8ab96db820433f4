package storage

import (
	"context"
	"fmt"

	"finman/internal/calc"
	"finman/internal/core"
)

// CreateLoan inserts a loan with the EMI derived from principal, rate and
// tenure; the outstanding balance starts at the principal.
func (r *SQLiteRepository) CreateLoan(ctx context.Context, l core.Loan) (core.Loan, error) {
	l.EMI = calc.EMI(l.Principal, l.RatePct, l.TenureMonths)
	l.Outstanding = l.Principal
	l.Active = true

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO loans (user_id, loan_type, principal_paise, rate_pct, tenure_months,
		                    emi_paise, outstanding_paise, start_date, active)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, 1)`,
		l.UserID, l.LoanType, l.Principal.Cents, l.RatePct, l.TenureMonths,
		l.EMI.Cents, l.Outstanding.Cents, dateStr(l.StartDate))
	if err != nil {
		return core.Loan{}, fmt.Errorf("create loan: %w", mapErr(err))
	}
	l.ID, err = res.LastInsertId()
	if err != nil {
		return core.Loan{}, fmt.Errorf("create loan id: %w", err)
	}
	return l, nil
}

func (r *SQLiteRepository) GetLoan(ctx context.Context, userID, id int64) (core.Loan, error) {
	var l core.Loan
	var startStr string
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, loan_type, principal_paise, rate_pct, tenure_months,
		        emi_paise, outstanding_paise, start_date, active
		 FROM loans WHERE id = ? AND user_id = ?`, id, userID).
		Scan(&l.ID, &l.UserID, &l.LoanType, &l.Principal.Cents, &l.RatePct, &l.TenureMonths,
			&l.EMI.Cents, &l.Outstanding.Cents, &startStr, &l.Active)
	if err != nil {
		return core.Loan{}, fmt.Errorf("get loan %d: %w", id, mapErr(err))
	}
	l.StartDate = parseDate(startStr)
	return l, nil
}

func (r *SQLiteRepository) ListLoans(ctx context.Context, userID int64) ([]core.Loan, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, loan_type, principal_paise, rate_pct, tenure_months,
		        emi_paise, outstanding_paise, start_date, active
		 FROM loans WHERE user_id = ? ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list loans: %w", err)
	}
	defer rows.Close()

	var loans []core.Loan
	for rows.Next() {
		var l core.Loan
		var startStr string
		if err := rows.Scan(&l.ID, &l.UserID, &l.LoanType, &l.Principal.Cents, &l.RatePct, &l.TenureMonths,
			&l.EMI.Cents, &l.Outstanding.Cents, &startStr, &l.Active); err != nil {
			return nil, fmt.Errorf("scan loan: %w", err)
		}
		l.StartDate = parseDate(startStr)
		loans = append(loans, l)
	}
	return loans, rows.Err()
}

// ApplyLoanPayment reduces a loan's outstanding balance. The balance is
// clamped at zero and the loan deactivated once fully repaid. Returns the
// updated loan.
func (r *SQLiteRepository) ApplyLoanPayment(ctx context.Context, userID, id int64, amount core.Money) (core.Loan, error) {
	loan, err := r.GetLoan(ctx, userID, id)
	if err != nil {
		return core.Loan{}, err
	}

	remaining := loan.Outstanding.Cents - amount.Cents
	if remaining < 0 {
		remaining = 0
	}
	active := remaining > 0

	_, err = r.db.ExecContext(ctx,
		`UPDATE loans SET outstanding_paise = ?, active = ? WHERE id = ?`,
		remaining, active, id)
	if err != nil {
		return core.Loan{}, fmt.Errorf("apply loan payment: %w", err)
	}

	loan.Outstanding = core.Money{Cents: remaining}
	loan.Active = active
	return loan, nil
}

func (r *SQLiteRepository) DeleteLoan(ctx context.Context, userID, id int64) error {
	return r.deleteByID(ctx, "loans", userID, id)
}

// CreateInsurance inserts a policy with the maturity date derived from the
// start date and tenure. A duplicate policy number returns ErrDuplicate.
func (r *SQLiteRepository) CreateInsurance(ctx context.Context, i core.Insurance) (core.Insurance, error) {
	i.MaturityDate = core.Date{Time: i.StartDate.AddDate(i.TenureYears, 0, 0)}
	i.Active = true

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO insurances (user_id, insurance_type, policy_name, policy_number, premium_paise,
		                         frequency, coverage_paise, tenure_years, start_date, maturity_date, active)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1)`,
		i.UserID, i.Type, i.PolicyName, i.PolicyNumber, i.Premium.Cents,
		string(i.Frequency), i.Coverage.Cents, i.TenureYears, dateStr(i.StartDate), dateStr(i.MaturityDate))
	if err != nil {
		return core.Insurance{}, fmt.Errorf("create insurance: %w", mapErr(err))
	}
	i.ID, err = res.LastInsertId()
	if err != nil {
		return core.Insurance{}, fmt.Errorf("create insurance id: %w", err)
	}
	return i, nil
}

func (r *SQLiteRepository) ListInsurances(ctx context.Context, userID int64) ([]core.Insurance, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, insurance_type, policy_name, policy_number, premium_paise,
		        frequency, coverage_paise, tenure_years, start_date, maturity_date, active
		 FROM insurances WHERE user_id = ? ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list insurances: %w", err)
	}
	defer rows.Close()

	var policies []core.Insurance
	for rows.Next() {
		var i core.Insurance
		var freq, startStr, maturityStr string
		if err := rows.Scan(&i.ID, &i.UserID, &i.Type, &i.PolicyName, &i.PolicyNumber, &i.Premium.Cents,
			&freq, &i.Coverage.Cents, &i.TenureYears, &startStr, &maturityStr, &i.Active); err != nil {
			return nil, fmt.Errorf("scan insurance: %w", err)
		}
		i.Frequency = core.PremiumFrequency(freq)
		i.StartDate = parseDate(startStr)
		i.MaturityDate = parseDate(maturityStr)
		policies = append(policies, i)
	}
	return policies, rows.Err()
}

func (r *SQLiteRepository) DeleteInsurance(ctx context.Context, userID, id int64) error {
	return r.deleteByID(ctx, "insurances", userID, id)
}

func (r *SQLiteRepository) CreateCreditCard(ctx context.Context, c core.CreditCard) (core.CreditCard, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO credit_cards (user_id, card_name, last4, limit_paise, outstanding_paise, due_day)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		c.UserID, c.CardName, c.Last4, c.Limit.Cents, c.Outstanding.Cents, c.DueDay)
	if err != nil {
		return core.CreditCard{}, fmt.Errorf("create credit card: %w", mapErr(err))
	}
	c.ID, err = res.LastInsertId()
	if err != nil {
		return core.CreditCard{}, fmt.Errorf("create credit card id: %w", err)
	}
	return c, nil
}

func (r *SQLiteRepository) ListCreditCards(ctx context.Context, userID int64) ([]core.CreditCard, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, card_name, last4, limit_paise, outstanding_paise, due_day
		 FROM credit_cards WHERE user_id = ? ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list credit cards: %w", err)
	}
	defer rows.Close()

	var cards []core.CreditCard
	for rows.Next() {
		var c core.CreditCard
		if err := rows.Scan(&c.ID, &c.UserID, &c.CardName, &c.Last4, &c.Limit.Cents, &c.Outstanding.Cents, &c.DueDay); err != nil {
			return nil, fmt.Errorf("scan credit card: %w", err)
		}
		cards = append(cards, c)
	}
	return cards, rows.Err()
}

// UpdateCreditCardOutstanding replaces a card's outstanding balance.
func (r *SQLiteRepository) UpdateCreditCardOutstanding(ctx context.Context, userID, id int64, outstanding core.Money) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE credit_cards SET outstanding_paise = ? WHERE id = ? AND user_id = ?`,
		outstanding.Cents, id, userID)
	if err != nil {
		return fmt.Errorf("update credit card outstanding: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) DeleteCreditCard(ctx context.Context, userID, id int64) error {
	return r.deleteByID(ctx, "credit_cards", userID, id)
}

func (r *SQLiteRepository) CreateSWP(ctx context.Context, s core.SWP) (core.SWP, error) {
	s.Active = true
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO swps (user_id, source_type, source_id, monthly_withdrawal_paise, start_date, active, linked_loan_id)
		 VALUES (?, ?, ?, ?, ?, 1, ?)`,
		s.UserID, s.SourceType, s.SourceID, s.MonthlyWithdrawal.Cents, dateStr(s.StartDate), s.LinkedLoanID)
	if err != nil {
		return core.SWP{}, fmt.Errorf("create swp: %w", mapErr(err))
	}
	s.ID, err = res.LastInsertId()
	if err != nil {
		return core.SWP{}, fmt.Errorf("create swp id: %w", err)
	}
	return s, nil
}

const swpColumns = `id, user_id, source_type, source_id, monthly_withdrawal_paise, start_date, active, linked_loan_id, last_processed`

func scanSWP(row rowScanner) (core.SWP, error) {
	var s core.SWP
	var startStr, processedStr string
	err := row.Scan(&s.ID, &s.UserID, &s.SourceType, &s.SourceID, &s.MonthlyWithdrawal.Cents,
		&startStr, &s.Active, &s.LinkedLoanID, &processedStr)
	if err != nil {
		return core.SWP{}, err
	}
	s.StartDate = parseDate(startStr)
	if processedStr != "" {
		s.LastProcessed = parseDate(processedStr)
	}
	return s, nil
}

func (r *SQLiteRepository) GetSWP(ctx context.Context, userID, id int64) (core.SWP, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+swpColumns+` FROM swps WHERE id = ? AND user_id = ?`, id, userID)
	s, err := scanSWP(row)
	if err != nil {
		return core.SWP{}, fmt.Errorf("get swp %d: %w", id, mapErr(err))
	}
	return s, nil
}

func (r *SQLiteRepository) ListSWPs(ctx context.Context, userID int64) ([]core.SWP, error) {
	return r.querySWPs(ctx, `SELECT `+swpColumns+` FROM swps WHERE user_id = ? ORDER BY id`, userID)
}

// ListLinkedSWPs returns every active SWP with a linked loan, across users,
// for the monthly withdrawal pass.
func (r *SQLiteRepository) ListLinkedSWPs(ctx context.Context) ([]core.SWP, error) {
	return r.querySWPs(ctx,
		`SELECT `+swpColumns+` FROM swps WHERE active = 1 AND linked_loan_id > 0 ORDER BY id`)
}

func (r *SQLiteRepository) querySWPs(ctx context.Context, query string, args ...any) ([]core.SWP, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list swps: %w", err)
	}
	defer rows.Close()

	var swps []core.SWP
	for rows.Next() {
		s, err := scanSWP(rows)
		if err != nil {
			return nil, fmt.Errorf("scan swp: %w", err)
		}
		swps = append(swps, s)
	}
	return swps, rows.Err()
}

// MarkSWPProcessed records the date an SWP's withdrawal was last applied.
func (r *SQLiteRepository) MarkSWPProcessed(ctx context.Context, id int64, on core.Date) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE swps SET last_processed = ? WHERE id = ?`, dateStr(on), id)
	if err != nil {
		return fmt.Errorf("mark swp processed: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrNotFound
	}
	return nil
}

// LinkSWPToLoan records the loan an SWP's withdrawals should pay down.
func (r *SQLiteRepository) LinkSWPToLoan(ctx context.Context, userID, swpID, loanID int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE swps SET linked_loan_id = ? WHERE id = ? AND user_id = ?`, loanID, swpID, userID)
	if err != nil {
		return fmt.Errorf("link swp to loan: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) DeleteSWP(ctx context.Context, userID, id int64) error {
	return r.deleteByID(ctx, "swps", userID, id)
}
