package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"finman/internal/core"
	"finman/internal/log"
	"finman/internal/storage"
)

var (
	ErrSWPNotLinked = errors.New("swp has no linked loan")
	ErrSWPInactive  = errors.New("swp is not active")
)

// SWPLoanService routes SWP withdrawals into linked loan balances.
type SWPLoanService struct {
	storage *storage.SQLiteRepository
	logger  *log.Logger
}

func NewSWPLoanService(storage *storage.SQLiteRepository, logger *log.Logger) *SWPLoanService {
	return &SWPLoanService{
		storage: storage,
		logger:  logger.WithComponent(log.ComponentWorker),
	}
}

// ApplyToLoan applies one monthly withdrawal of the SWP as a payment on its
// linked loan and returns the updated loan.
func (p *SWPLoanService) ApplyToLoan(ctx context.Context, userID, swpID int64) (core.Loan, error) {
	return p.applyToLoanAt(ctx, userID, swpID, time.Now().UTC())
}

func (p *SWPLoanService) applyToLoanAt(ctx context.Context, userID, swpID int64, on time.Time) (core.Loan, error) {
	swp, err := p.storage.GetSWP(ctx, userID, swpID)
	if err != nil {
		return core.Loan{}, err
	}
	if !swp.Active {
		return core.Loan{}, ErrSWPInactive
	}
	if swp.LinkedLoanID == 0 {
		return core.Loan{}, ErrSWPNotLinked
	}

	loan, err := p.storage.ApplyLoanPayment(ctx, userID, swp.LinkedLoanID, swp.MonthlyWithdrawal)
	if err != nil {
		return core.Loan{}, fmt.Errorf("apply swp withdrawal: %w", err)
	}

	if err := p.storage.MarkSWPProcessed(ctx, swp.ID, core.Date{Time: on}); err != nil {
		p.logger.ErrorContext(ctx, "Failed to mark SWP processed",
			log.FieldProductID, swp.ID,
			log.FieldError, err.Error())
		// payment went through, do not fail the call
	}

	p.logger.InfoContext(ctx, "SWP withdrawal applied to loan",
		log.FieldUserID, userID,
		"swp_id", swp.ID,
		"loan_id", loan.ID,
		log.FieldAmountPaise, swp.MonthlyWithdrawal.Cents,
		"outstanding_paise", loan.Outstanding.Cents)
	return loan, nil
}

// ProcessDue applies withdrawals for every linked SWP that is due. An SWP is
// due once per calendar month, on or after its start day.
func (p *SWPLoanService) ProcessDue(ctx context.Context, now time.Time) (int, error) {
	swps, err := p.storage.ListLinkedSWPs(ctx)
	if err != nil {
		return 0, fmt.Errorf("list linked swps: %w", err)
	}

	processed := 0
	for _, swp := range swps {
		if !p.isDue(swp, now) {
			continue
		}
		if _, err := p.applyToLoanAt(ctx, swp.UserID, swp.ID, now); err != nil {
			p.logger.ErrorContext(ctx, "SWP withdrawal failed",
				"swp_id", swp.ID,
				log.FieldError, err.Error())
			continue
		}
		processed++
	}

	p.logger.InfoContext(ctx, "SWP withdrawal pass complete",
		"processed", processed,
		"total_checked", len(swps))
	return processed, nil
}

func (p *SWPLoanService) isDue(swp core.SWP, now time.Time) bool {
	if now.Before(swp.StartDate.Time) {
		return false
	}

	last := swp.LastProcessed
	if !last.IsZero() && last.Year() == now.Year() && last.Month() == now.Month() {
		return false
	}

	// Clamp the target day into months shorter than the start day.
	targetDay := swp.StartDate.Day()
	lastDayOfMonth := time.Date(now.Year(), now.Month()+1, 0, 0, 0, 0, 0, time.UTC).Day()
	if targetDay > lastDayOfMonth {
		targetDay = lastDayOfMonth
	}
	return now.Day() >= targetDay
}
