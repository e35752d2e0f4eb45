package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"budget/internal/core"
	"budget/internal/log"
	"budget/internal/services"
	"budget/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "budget.db"))
	require.NoError(t, err)

	svc, err := services.NewBudgetService(context.Background(), repo, nil)
	require.NoError(t, err)

	srv := NewServer(":0", svc, log.New(log.DefaultConfig()))
	t.Cleanup(func() {
		srv.rateLimiter.stop()
		svc.Close()
	})

	return srv
}

func doRequest(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}

	rec := httptest.NewRecorder()
	srv.Server.Handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoints(t *testing.T) {
	srv := newTestServer(t)

	assert.Equal(t, http.StatusOK, doRequest(t, srv, "GET", "/healthz", "").Code)
	assert.Equal(t, http.StatusOK, doRequest(t, srv, "GET", "/readyz", "").Code)
}

func TestAddTransactionEndpoint(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(t, srv, "POST", "/api/months/2024-03/transactions",
		`{"name": "Groceries", "amount": "45.50", "type": "expense"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var txn core.Transaction
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &txn))
	assert.NotEmpty(t, txn.ID)
	assert.Equal(t, int64(4550), txn.Amount.Cents)
}

func TestAddTransactionValidationStatus(t *testing.T) {
	srv := newTestServer(t)

	// Empty name -> 422
	rec := doRequest(t, srv, "POST", "/api/months/2024-03/transactions",
		`{"name": "", "amount": "10", "type": "expense"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	// Bad amount -> 422
	rec = doRequest(t, srv, "POST", "/api/months/2024-03/transactions",
		`{"name": "x", "amount": "-3", "type": "expense"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	// Bad type -> 422
	rec = doRequest(t, srv, "POST", "/api/months/2024-03/transactions",
		`{"name": "x", "amount": "10", "type": "transfer"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	// Non-canonical month key -> 422, no shadow bucket
	rec = doRequest(t, srv, "POST", "/api/months/2024-3/transactions",
		`{"name": "x", "amount": "10", "type": "expense"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	// Malformed body -> 400
	rec = doRequest(t, srv, "POST", "/api/months/2024-03/transactions", `{broken`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteTransactionNotFound(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(t, srv, "DELETE", "/api/months/2024-03/transactions/txn-missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPotConflictStatuses(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(t, srv, "POST", "/api/pots", `{"name": "Vacation", "targetAmount": "1000"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var pot core.SavingsPot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &pot))

	// Nothing spendable yet: funding conflicts.
	rec = doRequest(t, srv, "POST", "/api/pots/"+pot.ID+"/fund", `{"amount": "100"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Empty pot: withdrawal conflicts.
	rec = doRequest(t, srv, "POST", "/api/pots/"+pot.ID+"/withdraw", `{"amount": "100"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestLastSalaryEntryConflict(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(t, srv, "POST", "/api/salary", `{"amount": "3000", "startDate": "2024-01-01"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var entry core.SalaryEntry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entry))
	assert.Equal(t, "EUR", entry.Currency)

	rec = doRequest(t, srv, "DELETE", "/api/salary/"+entry.ID, "")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestImportStatusMapping(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(t, srv, "POST", "/api/import", `{"categories": []}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, srv, "POST", "/api/import", `{"monthlyData": {}, "categories": []}`)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestDashboardEndpoint(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(t, srv, "POST", "/api/months/2024-03/transactions",
		`{"name": "Salary", "amount": "3000", "type": "income"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doRequest(t, srv, "GET", "/api/dashboard/2024-03", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp dashboardResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "March 2024", resp.MonthDisplay)
	assert.Equal(t, int64(300_000), resp.Stats.Income.Cents)
	assert.Equal(t, int64(300_000), resp.Balances.NetWorth.Cents)
	require.Len(t, resp.Transactions, 1)

	rec = doRequest(t, srv, "GET", "/api/dashboard/not-a-month", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestNavigateEndpoint(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(t, srv, "POST", "/api/months/2024-03/navigate", `{"direction": "next"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "2024-04", resp["month"])

	rec = doRequest(t, srv, "POST", "/api/months/2024-03/navigate", `{"direction": "sideways"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestCSVExportEndpoint(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(t, srv, "POST", "/api/months/2024-03/transactions",
		`{"name": "Groceries", "amount": "45.50", "type": "expense"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doRequest(t, srv, "GET", "/api/export/csv?month=2024-03", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/csv")
	assert.Contains(t, rec.Body.String(), `"Groceries"`)

	rec = doRequest(t, srv, "GET", "/api/export/csv", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestJSONExportEndpoint(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(t, srv, "GET", "/api/export/json", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "budget-backup.json")

	var doc map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	assert.Contains(t, doc, "monthlyData")
	assert.Contains(t, doc, "categories")
}

func TestClearAllEndpoint(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(t, srv, "POST", "/api/categories", `{"name": "Stuff", "monthlyBudget": "100"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doRequest(t, srv, "DELETE", "/api/state", "")
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doRequest(t, srv, "GET", "/api/categories", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]\n", rec.Body.String())
}

func TestSecurityHeaders(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(t, srv, "GET", "/api/pots", "")
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
}
