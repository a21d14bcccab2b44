package payments

import (
	"bytes"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hydrobill/hydrobill/internal/rbac"
	"github.com/hydrobill/hydrobill/internal/shared"
)

func newTestRouter(t *testing.T, role shared.Role) (http.Handler, *memRepo) {
	t.Helper()
	svc, repo, _ := newTestService(t)
	h := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), svc, rbac.Middleware{})
	r := chi.NewRouter()
	r.Route("/api/mobile/payments", h.MountMobileRoutes)
	r.Group(func(r chi.Router) {
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				ctx := shared.ContextWithPrincipal(req.Context(), shared.Principal{ID: 3, Role: role})
				next.ServeHTTP(w, req.WithContext(ctx))
			})
		})
		r.Route("/api/payments", h.MountRoutes)
		r.Route("/api/bill-payment-validation", h.MountValidationRoutes)
	})
	return r, repo
}

func multipartSubmission(t *testing.T, fields map[string]string, proof []byte) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if proof != nil {
		fw, err := mw.CreateFormFile(proofField, "receipt.png")
		require.NoError(t, err)
		_, err = fw.Write(proof)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &body, mw.FormDataContentType()
}

func TestMobileSubmitAndApprove(t *testing.T) {
	router, repo := newTestRouter(t, shared.RoleBillHandler)
	body, ct := multipartSubmission(t, map[string]string{
		"bill_id": "10", "account_number": "ACC-1", "meter_number": "MTR-1", "amount": "500.00", "payment_type": "Full",
	}, pngBytes(t))
	req := httptest.NewRequest(http.MethodPost, "/api/mobile/payments", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.Len(t, repo.payments, 1)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/bill-payment-validation", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"Pending"`)

	req = httptest.NewRequest(http.MethodPost, "/api/bill-payment-validation/1/status", strings.NewReader(`{"status":"Approved"}`))
	req.Header.Set("Content-Type", "application/json")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, StatusApproved, repo.payments[1].Status)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/payments/1/proof", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, pngBytes(t), rec.Body.Bytes())
}

func TestMobileSubmitRejectsNonImageProof(t *testing.T) {
	router, repo := newTestRouter(t, shared.RoleBillHandler)
	body, ct := multipartSubmission(t, map[string]string{
		"bill_id": "10", "account_number": "ACC-1", "meter_number": "MTR-1", "amount": "500.00", "payment_type": "Full",
	}, []byte("%PDF-1.4 not an image"))
	req := httptest.NewRequest(http.MethodPost, "/api/mobile/payments", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), `"proof"`)
	assert.Empty(t, repo.payments)
}

func TestApproveVerificationFailureReturns400WithPayment(t *testing.T) {
	router, repo := newTestRouter(t, shared.RoleAdmin)
	repo.payments[1] = Payment{ID: 1, CustomerID: 1, BillID: 10, AccountNumber: "ACC-1", MeterNumber: "WRONG",
		Amount: d("500.00"), PaymentType: TypeFull, Status: StatusPending}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/payments/1/approve", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), StatusVerificationFailed)
}

func TestPaymentsRequireBillHandler(t *testing.T) {
	router, _ := newTestRouter(t, shared.RoleMeterHandler)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/payments", nil))
	require.Equal(t, http.StatusForbidden, rec.Code)
}
