package http

import (
	"fmt"
	"net/http"
	"time"

	"finman/internal/core"
	"finman/internal/services"
)

func (s *Server) handleNetWorthHistory(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "user")
	if err != nil {
		respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	limit := queryInt(r, "limit", 12)

	history, err := s.netWorthHistory(r, userID)
	if err != nil {
		respondStorageError(w, r, err)
		return
	}
	if limit > 0 && len(history) > limit {
		history = history[len(history)-limit:]
	}

	out := make([]snapshotResponse, 0, len(history))
	for _, snap := range history {
		out = append(out, toSnapshotResponse(snap))
	}
	respondJSON(w, r, http.StatusOK, out)
}

func (s *Server) handleNetWorthLatest(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "user")
	if err != nil {
		respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	snap, err := s.deps.Storage.LatestSnapshot(r.Context(), userID)
	if err != nil {
		respondStorageError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, toSnapshotResponse(snap))
}

type forecastResponse struct {
	Month    string  `json:"month"`
	NetWorth float64 `json:"net_worth"`
}

// handleNetWorthForecast projects net worth for the months following the
// last snapshot. Up to 24 steps are allowed.
func (s *Server) handleNetWorthForecast(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "user")
	if err != nil {
		respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	months := queryInt(r, "months", 6)
	if months < 1 {
		months = 1
	}
	if months > 24 {
		months = 24
	}

	history, err := s.netWorthHistory(r, userID)
	if err != nil {
		respondStorageError(w, r, err)
		return
	}
	if len(history) < 2 {
		respondError(w, r, http.StatusUnprocessableEntity, "at least two monthly snapshots are required for a forecast")
		return
	}

	series := make([]core.Money, len(history))
	for i, snap := range history {
		series[i] = snap.NetWorth
	}
	predicted := services.PredictAhead(series, months)

	last := history[len(history)-1].Month
	out := make([]forecastResponse, 0, len(predicted))
	for i, value := range predicted {
		month := core.Date{Time: last.AddDate(0, i+1, 0)}
		out = append(out, forecastResponse{
			Month:    month.String(),
			NetWorth: value.Rupees(),
		})
	}
	respondJSON(w, r, http.StatusOK, out)
}

type snapshotRequest struct {
	UserID int64  `json:"user_id"`
	Month  string `json:"month,omitempty"`
}

// handleComputeSnapshot computes (or recomputes) one user's snapshot
// synchronously. Month defaults to the current month.
func (s *Server) handleComputeSnapshot(w http.ResponseWriter, r *http.Request) {
	var req snapshotRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.UserID <= 0 {
		respondError(w, r, http.StatusUnprocessableEntity, "user_id is required")
		return
	}

	month := core.Date{Time: time.Now()}
	if req.Month != "" {
		var err error
		month, err = parseDate(req.Month)
		if err != nil {
			respondError(w, r, http.StatusBadRequest, err.Error())
			return
		}
	}

	snap, err := s.deps.Snapshots.Compute(r.Context(), req.UserID, month)
	if err != nil {
		respondStorageError(w, r, err)
		return
	}
	s.invalidateHistory(req.UserID)
	respondJSON(w, r, http.StatusOK, toSnapshotResponse(snap))
}

// netWorthHistory returns the user's snapshot history through a short
// TTL cache.
func (s *Server) netWorthHistory(r *http.Request, userID int64) ([]core.NetWorthSnapshot, error) {
	key := fmt.Sprintf("%d", userID)
	if history, ok := s.historyCache.Get(key); ok {
		return history, nil
	}
	history, err := s.deps.Storage.SnapshotHistory(r.Context(), userID)
	if err != nil {
		return nil, err
	}
	s.historyCache.Set(key, history)
	return history, nil
}
