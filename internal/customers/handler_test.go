package customers

import (
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

func newTestRouter(t *testing.T, role shared.Role) (http.Handler, *mockRepository) {
	t.Helper()
	repo := newMockRepository()
	h := NewHandler(testLogger(), NewService(repo, nil, nil), rbac.Middleware{})
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := shared.ContextWithPrincipal(req.Context(), shared.Principal{ID: 1, Role: role})
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	})
	r.Route("/api/customers", h.MountRoutes)
	return r, repo
}

func TestHandlerCreateReturns201(t *testing.T) {
	router, repo := newTestRouter(t, shared.RoleAdmin)
	body := `{"first_name":"Jose","last_name":"Cruz","account_number":"A-9","meter_number":"M-9","customer_type":"government"}`
	req := httptest.NewRequest(http.MethodPost, "/api/customers", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"success":true`)
	assert.Len(t, repo.customers, 1)
}

func TestHandlerCreateValidationReturns422(t *testing.T) {
	router, _ := newTestRouter(t, shared.RoleAdmin)
	req := httptest.NewRequest(http.MethodPost, "/api/customers", strings.NewReader(`{"first_name":"Jose"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), `"meter_number"`)
}

func TestHandlerRequiresAdmin(t *testing.T) {
	router, _ := newTestRouter(t, shared.RoleMeterHandler)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/customers", nil))
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestHandlerShowMissingReturns404(t *testing.T) {
	router, _ := newTestRouter(t, shared.RoleAdmin)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/customers/44", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}
