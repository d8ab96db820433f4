package worker

import (
	"context"
	"fmt"
	"time"

	"finman/internal/amqp"
	"finman/internal/core"
	"finman/internal/log"
	"finman/internal/services"
	"finman/internal/storage"
)

// JobWorker executes queued portfolio jobs consumed from AMQP.
type JobWorker struct {
	storage    *storage.SQLiteRepository
	snapshots  *services.SnapshotService
	prices     *services.PriceService
	priceBatch int
	logger     *log.Logger
}

func NewJobWorker(storage *storage.SQLiteRepository, snapshots *services.SnapshotService, prices *services.PriceService, priceBatch int, logger *log.Logger) *JobWorker {
	if priceBatch <= 0 {
		priceBatch = 1
	}
	return &JobWorker{
		storage:    storage,
		snapshots:  snapshots,
		prices:     prices,
		priceBatch: priceBatch,
		logger:     logger.WithComponent(log.ComponentWorker),
	}
}

// HandleJob dispatches a single job by type. Returned errors cause the
// delivery to be requeued by the consumer.
func (w *JobWorker) HandleJob(ctx context.Context, job *amqp.Job) error {
	w.logger.InfoContext(ctx, "Processing job",
		log.FieldJobID, job.ID,
		log.FieldJobType, string(job.Type))

	switch job.Type {
	case amqp.JobSnapshot:
		return w.handleSnapshot(ctx, job)
	case amqp.JobPriceRefresh:
		return w.handlePriceRefresh(ctx, job)
	default:
		// Unknown types are dropped, not requeued: a newer producer may
		// emit types this worker build does not know about.
		w.logger.WarnContext(ctx, "Skipping unknown job type",
			log.FieldJobID, job.ID,
			log.FieldJobType, string(job.Type))
		return nil
	}
}

func (w *JobWorker) handleSnapshot(ctx context.Context, job *amqp.Job) error {
	month, err := parseJobMonth(job.Month)
	if err != nil {
		w.logger.ErrorContext(ctx, "Snapshot job has invalid month, dropping",
			log.FieldJobID, job.ID,
			log.FieldMonth, job.Month,
			"error", err)
		return nil
	}

	if job.UserID == 0 {
		return w.snapshots.ComputeAll(ctx, month)
	}

	snap, err := w.snapshots.Compute(ctx, job.UserID, month)
	if err != nil {
		return fmt.Errorf("compute snapshot: %w", err)
	}

	w.logger.InfoContext(ctx, "Snapshot computed",
		log.FieldJobID, job.ID,
		log.FieldUserID, job.UserID,
		log.FieldMonth, snap.Month.String(),
		log.FieldNetWorth, snap.NetWorth.Cents)
	return nil
}

func (w *JobWorker) handlePriceRefresh(ctx context.Context, job *amqp.Job) error {
	if job.StockID == 0 {
		refreshed, err := w.prices.RefreshAll(ctx, w.priceBatch)
		if err != nil {
			return fmt.Errorf("refresh all prices: %w", err)
		}
		w.logger.InfoContext(ctx, "Price refresh pass completed",
			log.FieldJobID, job.ID,
			"refreshed", refreshed)
		return nil
	}

	stock, err := w.storage.GetStock(ctx, job.UserID, job.StockID)
	if err != nil {
		return fmt.Errorf("get stock %d: %w", job.StockID, err)
	}
	if err := w.prices.RefreshStock(ctx, stock); err != nil {
		return fmt.Errorf("refresh stock %s: %w", stock.Symbol, err)
	}
	return nil
}

func parseJobMonth(s string) (core.Date, error) {
	if s == "" {
		now := time.Now()
		return core.NewDate(now.Year(), int(now.Month()), 1), nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return core.Date{}, err
	}
	return core.Date{Time: t}.MonthStart(), nil
}
