// Package http exposes the REST API for the finance tracker.
package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"sync"
	"time"

	"finman/internal/advisor"
	"finman/internal/amqp"
	"finman/internal/cache"
	"finman/internal/core"
	"finman/internal/log"
	"finman/internal/market"
	"finman/internal/report"
	"finman/internal/services"
	"finman/internal/storage"
)

// Deps carries the server's collaborators. Jobs may be nil when no
// message broker is configured; job publishing then becomes a no-op.
type Deps struct {
	Storage   *storage.SQLiteRepository
	Snapshots *services.SnapshotService
	Anomalies *services.AnomalyService
	SWPLoans  *services.SWPLoanService
	Prices    *services.PriceService
	Market    *market.Client
	Advisor   *advisor.Advisor
	Reports   *report.Builder
	Jobs      *amqp.Client
	Logger    *log.Logger
}

type Server struct {
	http.Server
	deps Deps

	rateLimiter  *rateLimiter
	metrics      *securityMetrics
	historyCache *cache.LRUCache[[]core.NetWorthSnapshot]
	httpLog      *log.StructuredLogger
	logger       *log.Logger
	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// server.
func NewServer(addr string, deps Deps) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		deps:         deps,
		rateLimiter:  newRateLimiter(60),
		metrics:      &securityMetrics{},
		historyCache: cache.NewLRUCache[[]core.NetWorthSnapshot](100, 5*time.Minute),
		httpLog:      log.NewStructuredLogger(deps.Logger),
		logger:       deps.Logger.WithComponent(log.ComponentHTTP),
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	route := func(pattern string, h http.HandlerFunc) {
		mux.HandleFunc(pattern, s.with(h))
	}

	route("POST /api/user", s.handleCreateUser)
	route("GET /api/user/{id}", s.handleGetUser)

	route("POST /api/income", s.handleCreateIncome)
	route("GET /api/income/{user}", s.handleListIncomes)
	route("GET /api/income/{user}/{month}", s.handleGetIncomeForMonth)
	route("DELETE /api/income/{user}/{id}", s.handleDeleteIncome)

	route("POST /api/expense", s.handleCreateExpense)
	route("GET /api/expense/{user}", s.handleListExpenses)
	route("GET /api/expense/{user}/anomalies", s.handleExpenseAnomalies)
	route("GET /api/expense/{user}/{month}", s.handleListExpensesForMonth)
	route("DELETE /api/expense/{user}/{id}", s.handleDeleteExpense)

	route("POST /api/stock", s.handleCreateStock)
	route("GET /api/stock/{user}", s.handleListStocks)
	route("PUT /api/stock/{id}/price", s.handleUpdateStockPrice)
	route("POST /api/stock/{user}/{id}/refresh", s.handleRefreshStock)
	route("DELETE /api/stock/{user}/{id}", s.handleDeleteStock)

	route("POST /api/sip", s.handleCreateSIP)
	route("GET /api/sip/{user}", s.handleListSIPs)
	route("PUT /api/sip/{user}/values", s.handleRefreshSIPValues)
	route("DELETE /api/sip/{user}/{id}", s.handleDeleteSIP)

	route("POST /api/mutual-fund", s.handleCreateMutualFund)
	route("GET /api/mutual-fund/{user}", s.handleListMutualFunds)
	route("DELETE /api/mutual-fund/{user}/{id}", s.handleDeleteMutualFund)

	route("POST /api/swp", s.handleCreateSWP)
	route("GET /api/swp/{user}", s.handleListSWPs)
	route("POST /api/swp/{user}/{id}/apply-to-loan", s.handleApplySWPToLoan)
	route("DELETE /api/swp/{user}/{id}", s.handleDeleteSWP)

	route("POST /api/loan", s.handleCreateLoan)
	route("GET /api/loan/{user}", s.handleListLoans)
	route("PUT /api/loan/{user}/{id}/outstanding", s.handleLoanPayment)
	route("GET /api/loan/{user}/{id}/schedule", s.handleLoanSchedule)
	route("DELETE /api/loan/{user}/{id}", s.handleDeleteLoan)

	route("POST /api/insurance", s.handleCreateInsurance)
	route("GET /api/insurance/{user}", s.handleListInsurances)
	route("DELETE /api/insurance/{user}/{id}", s.handleDeleteInsurance)

	route("POST /api/credit-card", s.handleCreateCreditCard)
	route("GET /api/credit-card/{user}", s.handleListCreditCards)
	route("PUT /api/credit-card/{user}/{id}/outstanding", s.handleUpdateCardOutstanding)
	route("DELETE /api/credit-card/{user}/{id}", s.handleDeleteCreditCard)

	route("POST /api/lump-sum", s.handleCreateLumpSum)
	route("GET /api/lump-sum/{user}", s.handleListLumpSums)
	route("DELETE /api/lump-sum/{user}/{id}", s.handleDeleteLumpSum)

	route("GET /api/net-worth/{user}", s.handleNetWorthHistory)
	route("GET /api/net-worth/{user}/latest", s.handleNetWorthLatest)
	route("GET /api/net-worth/{user}/forecast", s.handleNetWorthForecast)
	route("POST /api/net-worth/snapshot", s.handleComputeSnapshot)

	route("POST /api/advisor/stock", s.handleAdvisorStock)
	route("POST /api/advisor/risk-profile", s.handleAdvisorRiskProfile)
	route("POST /api/advisor/invest", s.handleAdvisorInvest)
	route("POST /api/advisor/loan", s.handleAdvisorLoan)
	route("GET /api/advisor/allocation", s.handleAdvisorAllocation)

	route("GET /api/report/{user}/{month}", s.handleMonthlyReport)

	return s
}

// with wraps a handler with request tracing, security headers, logging
// and rate limiting for mutating methods.
func (s *Server) with(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		clientIP := extractClientIP(r, s.metrics)
		requestID := generateRequestID()

		logger := s.logger.With(log.FieldRequestID, requestID)
		ctx := context.WithValue(r.Context(), log.LoggerContextKey, logger)
		r = r.WithContext(ctx)

		s.httpLog.LogHTTPStart(ctx, r, clientIP)

		if mutating(r.Method) && !s.rateLimiter.allow(clientIP, s.metrics) {
			logger.WarnContext(ctx, "Rate limit exceeded",
				log.FieldClientIP, clientIP,
				"method", r.Method,
				"url", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			respondError(w, r, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		setSecurityHeaders(w)

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		s.httpLog.LogHTTPEnd(ctx, r, rw.statusCode, time.Since(start).Milliseconds(), clientIP)
	}
}

func mutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// generateRequestID creates a unique request ID for tracing.
func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.deps.Storage.Ping(ctx); err != nil {
		s.logger.ErrorContext(r.Context(), "Readiness check failed", "error", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("database unavailable"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// publishJob queues a background job if a broker is configured. Publish
// failures are logged, never surfaced to the API caller.
func (s *Server) publishJob(ctx context.Context, job *amqp.Job) {
	if s.deps.Jobs == nil {
		return
	}
	if err := s.deps.Jobs.Publish(ctx, job); err != nil {
		s.logger.ErrorContext(ctx, "Job publish failed",
			log.FieldJobID, job.ID,
			log.FieldJobType, string(job.Type),
			"error", err)
	}
}

// invalidateHistory drops a user's cached net worth history after any
// mutation that changes it.
func (s *Server) invalidateHistory(userID int64) {
	s.historyCache.Delete(fmt.Sprintf("%d", userID))
}

// HistoryCache exposes the cache for cleanup registration.
func (s *Server) HistoryCache() cache.Cleaner {
	return s.historyCache
}

// Shutdown stops the server and its background goroutines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
