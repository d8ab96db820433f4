package amqp

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"finman/internal/core"
)

// JobType discriminates the jobs carried on the shared queue.
type JobType string

const (
	JobSnapshot     JobType = "snapshot.compute"
	JobPriceRefresh JobType = "price.refresh"
)

// Job is the wire envelope for background work. It carries ids only; the
// worker loads full records from the database.
type Job struct {
	ID        string    `json:"id"`
	Type      JobType   `json:"type"`
	UserID    int64     `json:"user_id,omitempty"`
	Month     string    `json:"month,omitempty"` // YYYY-MM-DD, snapshot jobs only
	StockID   int64     `json:"stock_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewSnapshotJob creates a snapshot computation job for one user's month.
func NewSnapshotJob(userID int64, month core.Date) *Job {
	return &Job{
		ID:        uuid.NewString(),
		Type:      JobSnapshot,
		UserID:    userID,
		Month:     month.MonthStart().String(),
		Timestamp: time.Now(),
	}
}

// NewPriceRefreshJob creates a price refresh job for one user's stock.
func NewPriceRefreshJob(userID, stockID int64) *Job {
	return &Job{
		ID:        uuid.NewString(),
		Type:      JobPriceRefresh,
		UserID:    userID,
		StockID:   stockID,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the job to JSON bytes
func (j *Job) ToJSON() ([]byte, error) {
	return json.Marshal(j)
}

// JobFromJSON creates a job from JSON bytes
func JobFromJSON(data []byte) (*Job, error) {
	var j Job
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, err
	}
	return &j, nil
}
