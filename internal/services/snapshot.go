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

// SnapshotService computes and persists monthly net worth snapshots.
type SnapshotService struct {
	storage *storage.SQLiteRepository
	logger  *log.Logger
}

func NewSnapshotService(storage *storage.SQLiteRepository, logger *log.Logger) *SnapshotService {
	return &SnapshotService{
		storage: storage,
		logger:  logger.WithComponent(log.ComponentSnapshot),
	}
}

// Compute aggregates a user's holdings into a snapshot for the given month,
// attaches a one-step forecast, and upserts it. Recomputing the same month
// overwrites the earlier snapshot.
func (s *SnapshotService) Compute(ctx context.Context, userID int64, month core.Date) (core.NetWorthSnapshot, error) {
	month = month.MonthStart()

	if err := s.storage.RefreshSIPValues(ctx, userID, time.Now().UTC()); err != nil {
		return core.NetWorthSnapshot{}, fmt.Errorf("refresh sip values: %w", err)
	}

	snap := core.NetWorthSnapshot{UserID: userID, Month: month}

	stocks, err := s.storage.ListStocks(ctx, userID)
	if err != nil {
		return core.NetWorthSnapshot{}, err
	}
	for _, st := range stocks {
		value := st.CurrentValue.Cents
		if value == 0 {
			// no price refresh yet, fall back to cost basis
			value = st.Quantity * st.PurchasePrice.Cents
		}
		snap.StocksValue.Cents += value
	}

	sips, err := s.storage.ListSIPs(ctx, userID)
	if err != nil {
		return core.NetWorthSnapshot{}, err
	}
	for _, sip := range sips {
		snap.SIPValue.Cents += sip.CurrentValue.Cents
	}

	funds, err := s.storage.ListMutualFunds(ctx, userID)
	if err != nil {
		return core.NetWorthSnapshot{}, err
	}
	for _, f := range funds {
		snap.MutualFunds.Cents += f.CurrentValue.Cents
	}

	lumpSums, err := s.storage.ListLumpSums(ctx, userID)
	if err != nil {
		return core.NetWorthSnapshot{}, err
	}
	for _, l := range lumpSums {
		if l.Active {
			snap.LumpSums.Cents += l.MaturityValue.Cents
		}
	}

	savings, err := s.monthSavings(ctx, userID, month)
	if err != nil {
		return core.NetWorthSnapshot{}, err
	}
	snap.Savings = savings

	snap.TotalAssets.Cents = snap.StocksValue.Cents + snap.SIPValue.Cents +
		snap.MutualFunds.Cents + snap.LumpSums.Cents + snap.Savings.Cents

	loans, err := s.storage.ListLoans(ctx, userID)
	if err != nil {
		return core.NetWorthSnapshot{}, err
	}
	for _, l := range loans {
		if l.Active {
			snap.LoanDebt.Cents += l.Outstanding.Cents
		}
	}

	cards, err := s.storage.ListCreditCards(ctx, userID)
	if err != nil {
		return core.NetWorthSnapshot{}, err
	}
	for _, c := range cards {
		snap.CardDebt.Cents += c.Outstanding.Cents
	}

	snap.TotalDebt.Cents = snap.LoanDebt.Cents + snap.CardDebt.Cents
	snap.NetWorth.Cents = snap.TotalAssets.Cents - snap.TotalDebt.Cents

	if err := s.attachForecast(ctx, &snap); err != nil {
		return core.NetWorthSnapshot{}, err
	}

	saved, err := s.storage.UpsertSnapshot(ctx, snap)
	if err != nil {
		return core.NetWorthSnapshot{}, fmt.Errorf("persist snapshot: %w", err)
	}

	s.logger.InfoContext(ctx, "Net worth snapshot computed",
		log.FieldUserID, userID,
		log.FieldMonth, month.String(),
		log.FieldNetWorth, saved.NetWorth.Cents)
	return saved, nil
}

// monthSavings is the month's income minus the month's spending, floored
// at zero. Earlier months do not carry over: past surpluses live on in the
// asset balances, and overspending shows up as card or loan debt on the
// liability side.
func (s *SnapshotService) monthSavings(ctx context.Context, userID int64, month core.Date) (core.Money, error) {
	var earned int64
	income, err := s.storage.GetIncomeForMonth(ctx, userID, month)
	switch {
	case err == nil:
		earned = income.Total.Cents
	case !errors.Is(err, core.ErrNotFound):
		return core.Money{}, err
	}

	expenses, err := s.storage.ListExpensesForMonth(ctx, userID, month)
	if err != nil {
		return core.Money{}, err
	}
	var spent int64
	for _, e := range expenses {
		spent += e.Amount.Cents
	}

	savings := earned - spent
	if savings < 0 {
		savings = 0
	}
	return core.Money{Cents: savings}, nil
}

func (s *SnapshotService) attachForecast(ctx context.Context, snap *core.NetWorthSnapshot) error {
	history, err := s.storage.SnapshotHistory(ctx, snap.UserID)
	if err != nil {
		return err
	}

	series := make([]core.Money, 0, len(history)+1)
	for _, h := range history {
		if h.Month.Equal(snap.Month.Time) {
			continue
		}
		series = append(series, h.NetWorth)
	}
	series = append(series, snap.NetWorth)

	if len(series) < 2 {
		return nil
	}

	fc := PredictNext(series)
	snap.PredictedNext = fc.Next
	snap.HasPrediction = true

	s.logger.DebugContext(ctx, "Forecast attached",
		log.FieldUserID, snap.UserID,
		"method", fc.Method,
		"predicted_paise", fc.Next.Cents)
	return nil
}

// ComputeAll runs a snapshot pass for every user, for the scheduled job.
func (s *SnapshotService) ComputeAll(ctx context.Context, month core.Date) error {
	ids, err := s.storage.ListUserIDs(ctx)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if _, err := s.Compute(ctx, id, month); err != nil {
			s.logger.ErrorContext(ctx, "Snapshot failed",
				log.FieldUserID, id,
				log.FieldError, err.Error())
		}
	}
	return nil
}
