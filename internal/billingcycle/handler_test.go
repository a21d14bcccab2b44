package billingcycle

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/hydrobill/hydrobill/internal/rbac"
	"github.com/hydrobill/hydrobill/internal/shared"
)

type stubEnqueuer struct{ calls int }

func (s *stubEnqueuer) EnqueueBillingSync(*http.Request) (string, error) {
	s.calls++
	return "task-1", nil
}

func newTestRouter(t *testing.T, role shared.Role) (http.Handler, *memStore, *stubEnqueuer) {
	t.Helper()
	sync, store, _ := seeded(t)
	enq := &stubEnqueuer{}
	h := NewHandler(testLogger(), sync, rbac.Middleware{}, enq)
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := shared.ContextWithPrincipal(req.Context(), shared.Principal{ID: 7, Role: role})
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	})
	r.Route("/api/billing-cycles", h.MountRoutes)
	return r, store, enq
}

func TestHandlerCreateForAllReturnsSummary(t *testing.T) {
	router, store, enq := newTestRouter(t, shared.RoleBillHandler)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/billing-cycles/createBillingCyclesForAllCustomers", nil))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"created":2`)
	assert.Len(t, store.cycles, 2)
	assert.Zero(t, enq.calls)
}

func TestHandlerCreateForAllAsyncEnqueues(t *testing.T) {
	router, store, enq := newTestRouter(t, shared.RoleAdmin)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/billing-cycles/createBillingCyclesForAllCustomers?async=1", nil))

	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Contains(t, rec.Body.String(), "task-1")
	assert.Equal(t, 1, enq.calls)
	assert.Empty(t, store.cycles)
}

func TestHandlerSyncCustomerNotFound(t *testing.T) {
	router, _, _ := newTestRouter(t, shared.RoleAdmin)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/billing-cycles/syncBillingCycleForCustomer/55", nil))

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), `"success":false`)
}

func TestHandlerCreateAndShow(t *testing.T) {
	router, _, _ := newTestRouter(t, shared.RoleAdmin)
	body := `{"customer_id":1,"billing_start_date":"2025-02-01","billing_end_date":"2025-03-01"}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/billing-cycles", strings.NewReader(body)))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/billing-cycles/1", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"account_number":"ACC-1"`)
}

func TestHandlerMeterHandlerForbidden(t *testing.T) {
	router, _, _ := newTestRouter(t, shared.RoleMeterHandler)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/billing-cycles", nil))
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestHandlerExportWritesWorkbook(t *testing.T) {
	router, _, _ := newTestRouter(t, shared.RoleAdmin)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/billing-cycles/createBillingCyclesForAllCustomers", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/billing-cycles/export?customer_type=residential", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), ".xlsx")

	book, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	defer book.Close()
	rows, err := book.GetRows(exportSheet)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Account Number", rows[0][2])
	assert.Equal(t, "ACC-1", rows[1][2])
	assert.Equal(t, "Residential", rows[1][4])
	assert.Equal(t, "Active", rows[1][7])
}

func TestExportXLSXReportsRowCount(t *testing.T) {
	sync, _, _ := seeded(t)
	ctx := context.Background()
	sync.CreateForAllCustomers(ctx)

	var buf bytes.Buffer
	n, err := sync.ExportXLSX(ctx, Filters{}, &buf)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.NotZero(t, buf.Len())
}
