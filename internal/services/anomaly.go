package services

import (
	"context"
	"math"

	"finman/internal/core"
	"finman/internal/log"
	"finman/internal/storage"
)

// anomalyMinMonths is the minimum history before anomaly detection runs;
// a mean over fewer months is too noisy to threshold against.
const anomalyMinMonths = 3

// anomalySigma is the number of standard deviations above the mean at
// which a month's spending counts as anomalous.
const anomalySigma = 2.0

// SpendingAnomaly is one month whose total spending crossed the threshold.
type SpendingAnomaly struct {
	Month     core.Date
	Total     core.Money
	Mean      core.Money
	Threshold core.Money
}

// AnomalyService flags months with unusually high spending.
type AnomalyService struct {
	storage *storage.SQLiteRepository
	logger  *log.Logger
}

func NewAnomalyService(storage *storage.SQLiteRepository, logger *log.Logger) *AnomalyService {
	return &AnomalyService{
		storage: storage,
		logger:  logger.WithComponent(log.ComponentAnomaly),
	}
}

// Detect returns the months whose expense totals exceed mean + 2 sigma of
// the user's history. With fewer than three months of data it returns nil.
func (s *AnomalyService) Detect(ctx context.Context, userID int64) ([]SpendingAnomaly, error) {
	months, totals, err := s.storage.MonthlyExpenseTotals(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(totals) < anomalyMinMonths {
		return nil, nil
	}

	mean, stddev := meanStddev(totals)
	threshold := mean + anomalySigma*stddev

	var anomalies []SpendingAnomaly
	for i, total := range totals {
		if float64(total.Cents) > threshold {
			anomalies = append(anomalies, SpendingAnomaly{
				Month:     months[i],
				Total:     total,
				Mean:      core.Money{Cents: int64(math.Round(mean))},
				Threshold: core.Money{Cents: int64(math.Round(threshold))},
			})
		}
	}

	if len(anomalies) > 0 {
		s.logger.InfoContext(ctx, "Spending anomalies detected",
			log.FieldUserID, userID,
			"count", len(anomalies))
	}
	return anomalies, nil
}

// FlagExpenses marks every expense in anomalous months and clears the flag
// elsewhere, so stored flags track the current history.
func (s *AnomalyService) FlagExpenses(ctx context.Context, userID int64) error {
	anomalies, err := s.Detect(ctx, userID)
	if err != nil {
		return err
	}

	anomalous := make(map[string]bool, len(anomalies))
	for _, a := range anomalies {
		anomalous[a.Month.String()] = true
	}

	expenses, err := s.storage.ListExpenses(ctx, userID)
	if err != nil {
		return err
	}
	for _, e := range expenses {
		want := anomalous[e.Month.String()]
		if e.IsAnomaly == want {
			continue
		}
		if err := s.storage.MarkExpenseAnomaly(ctx, e.ID, want); err != nil {
			return err
		}
	}
	return nil
}

func meanStddev(values []core.Money) (mean, stddev float64) {
	n := float64(len(values))
	var sum float64
	for _, v := range values {
		sum += float64(v.Cents)
	}
	mean = sum / n

	var sqDiff float64
	for _, v := range values {
		d := float64(v.Cents) - mean
		sqDiff += d * d
	}
	stddev = math.Sqrt(sqDiff / n)
	return mean, stddev
}
