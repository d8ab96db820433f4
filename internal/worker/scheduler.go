package worker

import (
	"context"
	"time"

	"finman/internal/core"
	"finman/internal/export"
	"finman/internal/log"
	"finman/internal/services"
	"finman/internal/storage"
)

// Scheduler drives the recurring maintenance passes: the daily snapshot
// run, periodic stock price refreshes, SWP withdrawals against linked
// loans, and anomaly flagging on each user's expenses.
type Scheduler struct {
	storage         *storage.SQLiteRepository
	snapshots       *services.SnapshotService
	prices          *services.PriceService
	swps            *services.SWPLoanService
	anomalies       *services.AnomalyService
	exporter        export.SnapshotAppender
	snapshotHour    int
	refreshInterval time.Duration
	priceBatch      int
	logger          *log.Logger
}

func NewScheduler(
	storage *storage.SQLiteRepository,
	snapshots *services.SnapshotService,
	prices *services.PriceService,
	swps *services.SWPLoanService,
	anomalies *services.AnomalyService,
	exporter export.SnapshotAppender,
	snapshotHour int,
	refreshInterval time.Duration,
	priceBatch int,
	logger *log.Logger,
) *Scheduler {
	if priceBatch <= 0 {
		priceBatch = 1
	}
	return &Scheduler{
		storage:         storage,
		snapshots:       snapshots,
		prices:          prices,
		swps:            swps,
		anomalies:       anomalies,
		exporter:        exporter,
		snapshotHour:    snapshotHour,
		refreshInterval: refreshInterval,
		priceBatch:      priceBatch,
		logger:          logger.WithComponent(log.ComponentWorker),
	}
}

// Run blocks until ctx is cancelled, firing the daily pass at the
// configured hour and price refreshes at the configured interval.
func (s *Scheduler) Run(ctx context.Context) error {
	priceTicker := time.NewTicker(s.refreshInterval)
	defer priceTicker.Stop()

	dailyTimer := time.NewTimer(time.Until(nextDailyRun(time.Now(), s.snapshotHour)))
	defer dailyTimer.Stop()

	s.logger.InfoContext(ctx, "Scheduler started",
		"snapshot_hour", s.snapshotHour,
		"refresh_interval", s.refreshInterval.String())

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-priceTicker.C:
			if refreshed, err := s.prices.RefreshAll(ctx, s.priceBatch); err != nil {
				s.logger.ErrorContext(ctx, "Scheduled price refresh failed", "error", err)
			} else {
				s.logger.InfoContext(ctx, "Scheduled price refresh completed", "refreshed", refreshed)
			}
		case <-dailyTimer.C:
			s.DailyPass(ctx, time.Now())
			dailyTimer.Reset(time.Until(nextDailyRun(time.Now(), s.snapshotHour)))
		}
	}
}

// DailyPass runs the once-a-day maintenance work. Failures are logged
// and do not abort the remaining steps.
func (s *Scheduler) DailyPass(ctx context.Context, now time.Time) {
	s.logger.InfoContext(ctx, "Daily pass started")

	processed, err := s.swps.ProcessDue(ctx, now)
	if err != nil {
		s.logger.ErrorContext(ctx, "SWP withdrawal pass failed", "error", err)
	} else if processed > 0 {
		s.logger.InfoContext(ctx, "SWP withdrawals applied", "count", processed)
	}

	month := core.Date{Time: now}.MonthStart()
	if err := s.snapshots.ComputeAll(ctx, month); err != nil {
		s.logger.ErrorContext(ctx, "Daily snapshot pass failed",
			log.FieldMonth, month.String(),
			"error", err)
	}

	userIDs, err := s.storage.ListUserIDs(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "List users for anomaly pass failed", "error", err)
		return
	}
	for _, userID := range userIDs {
		if err := s.anomalies.FlagExpenses(ctx, userID); err != nil {
			s.logger.ErrorContext(ctx, "Anomaly flagging failed",
				log.FieldUserID, userID,
				"error", err)
		}
		s.exportSnapshot(ctx, userID)
	}

	s.logger.InfoContext(ctx, "Daily pass completed", "users", len(userIDs))
}

// exportSnapshot pushes the user's latest snapshot to the configured
// appender, if any.
func (s *Scheduler) exportSnapshot(ctx context.Context, userID int64) {
	if s.exporter == nil {
		return
	}
	user, err := s.storage.GetUser(ctx, userID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Get user for snapshot export failed",
			log.FieldUserID, userID,
			"error", err)
		return
	}
	snap, err := s.storage.LatestSnapshot(ctx, userID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Latest snapshot for export failed",
			log.FieldUserID, userID,
			"error", err)
		return
	}
	ref, err := s.exporter.AppendSnapshot(ctx, user, snap)
	if err != nil {
		s.logger.ErrorContext(ctx, "Snapshot export failed",
			log.FieldUserID, userID,
			log.FieldMonth, snap.Month.String(),
			"error", err)
		return
	}
	s.logger.InfoContext(ctx, "Snapshot exported",
		log.FieldUserID, userID,
		log.FieldMonth, snap.Month.String(),
		"row_ref", ref)
}

// nextDailyRun returns the next occurrence of hour (local time) strictly
// after now.
func nextDailyRun(now time.Time, hour int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
