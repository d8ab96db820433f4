package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"finman/internal/advisor"
	"finman/internal/core"
	"finman/internal/log"
	"finman/internal/market"
	"finman/internal/report"
	"finman/internal/services"
	"finman/internal/storage"
)

func testLogger() *log.Logger {
	return log.New(log.Config{Level: slog.LevelError, Component: "test"})
}

// newTestServer wires a full server against a temp database. marketURL
// points the quote client at a stub exchange; tests that never fetch
// quotes pass an unreachable address.
func newTestServer(t *testing.T, marketURL string) (*httptest.Server, *storage.SQLiteRepository) {
	t.Helper()

	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "api_test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository() error = %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	logger := testLogger()
	mkt := market.NewClient(2*time.Second, logger, market.WithBaseURL(marketURL))
	snapshots := services.NewSnapshotService(repo, logger)

	srv := NewServer("127.0.0.1:0", Deps{
		Storage:   repo,
		Snapshots: snapshots,
		Anomalies: services.NewAnomalyService(repo, logger),
		SWPLoans:  services.NewSWPLoanService(repo, logger),
		Prices:    services.NewPriceService(repo, mkt, logger),
		Market:    mkt,
		Advisor:   advisor.New(nil, logger),
		Reports:   report.NewBuilder(repo, snapshots, logger),
		Logger:    logger,
	})
	ts := httptest.NewServer(srv.Server.Handler)
	t.Cleanup(func() {
		ts.Close()
		srv.Shutdown(context.Background())
	})
	return ts, repo
}

func seedUser(t *testing.T, repo *storage.SQLiteRepository) core.User {
	t.Helper()
	user, err := repo.CreateUser(context.Background(), core.User{Name: "API Tester", Email: "api@example.com"})
	if err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	return user
}

func doJSON(t *testing.T, method, url string, body any) (*http.Response, []byte) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("NewRequest() error = %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s error = %v", method, url, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, data
}

func decodeBody(t *testing.T, data []byte, dst any) {
	t.Helper()
	if err := json.Unmarshal(data, dst); err != nil {
		t.Fatalf("unmarshal response %s: %v", data, err)
	}
}

func TestHealthEndpoints(t *testing.T) {
	ts, _ := newTestServer(t, "http://127.0.0.1:0")

	resp, body := doJSON(t, http.MethodGet, ts.URL+"/healthz", nil)
	if resp.StatusCode != http.StatusOK || string(body) != "ok" {
		t.Errorf("GET /healthz = %d %q, want 200 ok", resp.StatusCode, body)
	}

	resp, _ = doJSON(t, http.MethodGet, ts.URL+"/readyz", nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("GET /readyz = %d, want 200", resp.StatusCode)
	}
}

func TestCreateUser(t *testing.T) {
	ts, _ := newTestServer(t, "http://127.0.0.1:0")

	resp, body := doJSON(t, http.MethodPost, ts.URL+"/api/user", map[string]any{
		"name":  "Priya",
		"email": "priya@example.com",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("POST /api/user = %d, body %s", resp.StatusCode, body)
	}
	var got userResponse
	decodeBody(t, body, &got)
	if got.ID == 0 || got.Email != "priya@example.com" {
		t.Errorf("user = %+v, want assigned ID and echoed email", got)
	}

	resp, _ = doJSON(t, http.MethodPost, ts.URL+"/api/user", map[string]any{
		"name":  "Priya Again",
		"email": "priya@example.com",
	})
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("duplicate email = %d, want 409", resp.StatusCode)
	}

	resp, _ = doJSON(t, http.MethodPost, ts.URL+"/api/user", map[string]any{"name": "No Email"})
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("missing email = %d, want 422", resp.StatusCode)
	}
}

func TestGetUser_NotFound(t *testing.T) {
	ts, _ := newTestServer(t, "http://127.0.0.1:0")

	resp, _ := doJSON(t, http.MethodGet, ts.URL+"/api/user/42", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("GET missing user = %d, want 404", resp.StatusCode)
	}
}

func TestIncomeLifecycle(t *testing.T) {
	ts, repo := newTestServer(t, "http://127.0.0.1:0")
	user := seedUser(t, repo)

	resp, body := doJSON(t, http.MethodPost, ts.URL+"/api/income", map[string]any{
		"user_id":      user.ID,
		"month":        "2025-06-01",
		"salary":       80000,
		"other_income": 5000,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("POST /api/income = %d, body %s", resp.StatusCode, body)
	}
	var created incomeResponse
	decodeBody(t, body, &created)
	if created.Total != 85000 {
		t.Errorf("Total = %v, want 85000", created.Total)
	}

	resp, _ = doJSON(t, http.MethodPost, ts.URL+"/api/income", map[string]any{
		"user_id": user.ID,
		"month":   "2025-06-01",
		"salary":  90000,
	})
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("same month again = %d, want 409", resp.StatusCode)
	}

	resp, body = doJSON(t, http.MethodGet, fmt.Sprintf("%s/api/income/%d/2025-06", ts.URL, user.ID), nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET month = %d, body %s", resp.StatusCode, body)
	}
	var byMonth incomeResponse
	decodeBody(t, body, &byMonth)
	if byMonth.Salary != 80000 {
		t.Errorf("Salary = %v, want 80000", byMonth.Salary)
	}

	resp, _ = doJSON(t, http.MethodDelete, fmt.Sprintf("%s/api/income/%d/%d", ts.URL, user.ID, created.ID), nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("DELETE income = %d, want 204", resp.StatusCode)
	}

	resp, _ = doJSON(t, http.MethodGet, fmt.Sprintf("%s/api/income/%d/2025-06", ts.URL, user.ID), nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("GET after delete = %d, want 404", resp.StatusCode)
	}
}

func TestCreateIncome_BadJSON(t *testing.T) {
	ts, _ := newTestServer(t, "http://127.0.0.1:0")

	req, _ := http.NewRequest(http.MethodPost, ts.URL+"/api/income", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("POST error = %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("malformed body = %d, want 400", resp.StatusCode)
	}
}

func TestExpenseAnomalies(t *testing.T) {
	ts, repo := newTestServer(t, "http://127.0.0.1:0")
	user := seedUser(t, repo)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		_, err := repo.CreateExpense(ctx, core.Expense{
			UserID:   user.ID,
			Month:    core.NewDate(2025, i, 1),
			Category: "Groceries",
			Amount:   core.Money{Cents: 2000000},
		})
		if err != nil {
			t.Fatalf("CreateExpense() error = %v", err)
		}
	}
	_, err := repo.CreateExpense(ctx, core.Expense{
		UserID:   user.ID,
		Month:    core.NewDate(2025, 6, 1),
		Category: "Electronics",
		Amount:   core.Money{Cents: 20000000},
	})
	if err != nil {
		t.Fatalf("CreateExpense() error = %v", err)
	}

	resp, body := doJSON(t, http.MethodGet, fmt.Sprintf("%s/api/expense/%d/anomalies", ts.URL, user.ID), nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET anomalies = %d, body %s", resp.StatusCode, body)
	}
	var got []anomalyResponse
	decodeBody(t, body, &got)
	if len(got) != 1 {
		t.Fatalf("anomalies = %d, want 1", len(got))
	}
	if got[0].Month != "2025-06-01" {
		t.Errorf("anomaly month = %s, want 2025-06-01", got[0].Month)
	}
}

func TestNetWorthForecast(t *testing.T) {
	ts, repo := newTestServer(t, "http://127.0.0.1:0")
	user := seedUser(t, repo)
	ctx := context.Background()

	resp, _ := doJSON(t, http.MethodGet, fmt.Sprintf("%s/api/net-worth/%d/forecast", ts.URL, user.ID), nil)
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("forecast with no history = %d, want 422", resp.StatusCode)
	}

	logger := testLogger()
	snapshots := services.NewSnapshotService(repo, logger)
	for i := 1; i <= 3; i++ {
		month := core.NewDate(2025, i, 1)
		_, err := repo.CreateIncome(ctx, core.Income{
			UserID: user.ID,
			Month:  month,
			Salary: core.Money{Cents: int64(i) * 1000000},
		})
		if err != nil {
			t.Fatalf("CreateIncome() error = %v", err)
		}
		if _, err := snapshots.Compute(ctx, user.ID, month); err != nil {
			t.Fatalf("Compute() error = %v", err)
		}
	}

	resp, body := doJSON(t, http.MethodGet, fmt.Sprintf("%s/api/net-worth/%d/forecast?months=2", ts.URL, user.ID), nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("forecast = %d, body %s", resp.StatusCode, body)
	}
	var forecast []forecastResponse
	decodeBody(t, body, &forecast)
	if len(forecast) != 2 {
		t.Fatalf("forecast points = %d, want 2", len(forecast))
	}
	if forecast[0].Month != "2025-04-01" {
		t.Errorf("first forecast month = %s, want 2025-04-01", forecast[0].Month)
	}
	if forecast[0].NetWorth >= forecast[1].NetWorth {
		t.Errorf("forecast not increasing: %v then %v", forecast[0].NetWorth, forecast[1].NetWorth)
	}
}

func TestComputeSnapshotEndpoint(t *testing.T) {
	ts, repo := newTestServer(t, "http://127.0.0.1:0")
	user := seedUser(t, repo)

	_, err := repo.CreateIncome(context.Background(), core.Income{
		UserID: user.ID,
		Month:  core.NewDate(2025, 6, 1),
		Salary: core.Money{Cents: 5000000},
	})
	if err != nil {
		t.Fatalf("CreateIncome() error = %v", err)
	}

	resp, body := doJSON(t, http.MethodPost, ts.URL+"/api/net-worth/snapshot", map[string]any{
		"user_id": user.ID,
		"month":   "2025-06-01",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("POST snapshot = %d, body %s", resp.StatusCode, body)
	}
	var snap snapshotResponse
	decodeBody(t, body, &snap)
	if snap.NetWorth != 50000 {
		t.Errorf("NetWorth = %v, want 50000", snap.NetWorth)
	}
	if snap.Month != "2025-06-01" {
		t.Errorf("Month = %s, want 2025-06-01", snap.Month)
	}
}

func TestAdvisorRiskProfile(t *testing.T) {
	ts, _ := newTestServer(t, "http://127.0.0.1:0")

	resp, body := doJSON(t, http.MethodPost, ts.URL+"/api/advisor/risk-profile", map[string]any{
		"age":            30,
		"monthly_income": 100000,
		"monthly_spend":  40000,
		"dependents":     0,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("POST risk-profile = %d, body %s", resp.StatusCode, body)
	}
	var got riskProfileResponse
	decodeBody(t, body, &got)
	if got.RiskLevel == "" {
		t.Error("risk level missing from response")
	}
	if got.Advice.Source != advisor.SourceFallback {
		t.Errorf("Source = %s, want fallback without a model key", got.Advice.Source)
	}
	if got.Advice.Text == "" {
		t.Error("advice text missing from response")
	}
}

func TestAdvisorAllocation(t *testing.T) {
	ts, repo := newTestServer(t, "http://127.0.0.1:0")

	resp, body := doJSON(t, http.MethodGet, ts.URL+"/api/advisor/allocation?risk=High", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET allocation = %d, body %s", resp.StatusCode, body)
	}
	var got allocationResponse
	decodeBody(t, body, &got)
	var sum float64
	for _, pct := range got.Allocation {
		sum += pct
	}
	if sum < 99.9 || sum > 100.1 {
		t.Errorf("allocation sums to %v, want 100", sum)
	}
	if got.ExpectedReturnPct != 14 {
		t.Errorf("ExpectedReturnPct without history = %v, want the 14%% base", got.ExpectedReturnPct)
	}
	if got.Allocation["stocks"] != 40 {
		t.Errorf("High risk stocks share = %v, want 40", got.Allocation["stocks"])
	}

	// A user with a rising net worth lifts the estimate above the base.
	user := seedUser(t, repo)
	ctx := context.Background()
	snapshots := services.NewSnapshotService(repo, testLogger())
	for i := 1; i <= 3; i++ {
		month := core.NewDate(2025, i, 1)
		if _, err := repo.CreateIncome(ctx, core.Income{
			UserID: user.ID,
			Month:  month,
			Salary: core.Money{Cents: int64(i) * 1000000},
		}); err != nil {
			t.Fatalf("CreateIncome() error = %v", err)
		}
		if _, err := snapshots.Compute(ctx, user.ID, month); err != nil {
			t.Fatalf("Compute() error = %v", err)
		}
	}
	resp, body = doJSON(t, http.MethodGet,
		fmt.Sprintf("%s/api/advisor/allocation?risk=High&user=%d", ts.URL, user.ID), nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET allocation with user = %d, body %s", resp.StatusCode, body)
	}
	decodeBody(t, body, &got)
	if got.TrendPct <= 0 {
		t.Errorf("TrendPct = %v, want positive for rising net worth", got.TrendPct)
	}
	if got.ExpectedReturnPct <= 14 {
		t.Errorf("ExpectedReturnPct = %v, want above the 14%% base for a rising trend", got.ExpectedReturnPct)
	}

	resp, _ = doJSON(t, http.MethodGet, ts.URL+"/api/advisor/allocation?risk=Reckless", nil)
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("unknown risk = %d, want 422", resp.StatusCode)
	}
}

func TestAdvisorStock_NoQuote(t *testing.T) {
	stub := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"chart":{"result":[]}}`)
	}))
	defer stub.Close()
	ts, _ := newTestServer(t, stub.URL)

	resp, _ := doJSON(t, http.MethodPost, ts.URL+"/api/advisor/stock", map[string]any{"symbol": "NOPE"})
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("stock advice without quote = %d, want 404", resp.StatusCode)
	}
}

func TestAdvisorStock_WithPrice(t *testing.T) {
	ts, _ := newTestServer(t, "http://127.0.0.1:0")

	resp, body := doJSON(t, http.MethodPost, ts.URL+"/api/advisor/stock", map[string]any{
		"symbol": "INFY",
		"price":  1520.25,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("POST stock advice = %d, body %s", resp.StatusCode, body)
	}
	var got stockAdviceResponse
	decodeBody(t, body, &got)
	if got.Price != 1520.25 {
		t.Errorf("Price = %v, want 1520.25", got.Price)
	}
	if got.Advice.Text == "" {
		t.Error("advice text missing from response")
	}
}

func TestMonthlyReportDownload(t *testing.T) {
	ts, repo := newTestServer(t, "http://127.0.0.1:0")
	user := seedUser(t, repo)

	_, err := repo.CreateIncome(context.Background(), core.Income{
		UserID: user.ID,
		Month:  core.NewDate(2025, 6, 1),
		Salary: core.Money{Cents: 5000000},
	})
	if err != nil {
		t.Fatalf("CreateIncome() error = %v", err)
	}

	resp, body := doJSON(t, http.MethodGet, fmt.Sprintf("%s/api/report/%d/2025-06", ts.URL, user.ID), nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET report = %d, body %s", resp.StatusCode, body)
	}
	if ct := resp.Header.Get("Content-Type"); ct != xlsxContentType {
		t.Errorf("Content-Type = %s, want %s", ct, xlsxContentType)
	}
	if len(body) == 0 {
		t.Error("report body is empty")
	}
	// XLSX files are zip archives.
	if !bytes.HasPrefix(body, []byte("PK")) {
		t.Error("report body is not a zip archive")
	}
}

func TestLoanScheduleEndpoint(t *testing.T) {
	ts, repo := newTestServer(t, "http://127.0.0.1:0")
	user := seedUser(t, repo)

	resp, body := doJSON(t, http.MethodPost, ts.URL+"/api/loan", map[string]any{
		"user_id":       user.ID,
		"loan_type":     "Home",
		"principal":     1000000,
		"rate_pct":      8.5,
		"tenure_months": 120,
		"start_date":    "2024-01-01",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("POST /api/loan = %d, body %s", resp.StatusCode, body)
	}
	var loan loanResponse
	decodeBody(t, body, &loan)
	if loan.EMI <= 0 {
		t.Errorf("EMI = %v, want positive", loan.EMI)
	}

	resp, body = doJSON(t, http.MethodGet, fmt.Sprintf("%s/api/loan/%d/%d/schedule", ts.URL, user.ID, loan.ID), nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET schedule = %d, body %s", resp.StatusCode, body)
	}
	var rows []scheduleRowResponse
	decodeBody(t, body, &rows)
	if len(rows) != 120 {
		t.Errorf("schedule rows = %d, want 120", len(rows))
	}
}

func TestMutatingRateLimit(t *testing.T) {
	ts, _ := newTestServer(t, "http://127.0.0.1:0")

	var limited bool
	for i := 0; i < 70; i++ {
		resp, _ := doJSON(t, http.MethodPost, ts.URL+"/api/user", map[string]any{"name": "x"})
		if resp.StatusCode == http.StatusTooManyRequests {
			limited = true
			break
		}
	}
	if !limited {
		t.Error("no 429 after 70 mutating requests from one client")
	}
}
