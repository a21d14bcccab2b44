package rbac

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hydrobill/hydrobill/internal/platform/httpx"
	"github.com/hydrobill/hydrobill/internal/shared"
)

func staffLoader(staff map[int64]shared.Principal) PrincipalLoader {
	return LoaderFunc(func(ctx context.Context, id int64) (shared.Principal, error) {
		p, ok := staff[id]
		if !ok {
			return shared.Principal{}, fmt.Errorf("staff %d: %w", id, httpx.ErrNotFound)
		}
		return p, nil
	})
}

func serve(t *testing.T, mw Middleware, h http.Handler, req *http.Request, userID string) *httptest.ResponseRecorder {
	t.Helper()
	sess := &shared.Session{ID: "s1"}
	if userID != "" {
		sess.SetUser(userID)
	}
	req = req.WithContext(shared.ContextWithSession(req.Context(), sess))
	rec := httptest.NewRecorder()
	mw.LoadPrincipal(h).ServeHTTP(rec, req)
	return rec
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, _ := shared.PrincipalFromContext(r.Context())
		w.Header().Set("X-Role", string(p.Role))
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestRequireRoleAllowsMatchingRole(t *testing.T) {
	mw := Middleware{Loader: staffLoader(map[int64]shared.Principal{7: {ID: 7, Role: shared.RoleBillHandler}})}
	h := mw.RequireRole(shared.RoleAdmin, shared.RoleBillHandler)(okHandler())

	rec := serve(t, mw, h, httptest.NewRequest(http.MethodGet, "/api/bills", nil), "7")
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "bill_handler", rec.Header().Get("X-Role"))
}

func TestRequireRoleForbidsOtherRoles(t *testing.T) {
	mw := Middleware{Loader: staffLoader(map[int64]shared.Principal{7: {ID: 7, Role: shared.RoleMeterHandler}})}
	h := mw.RequireRole(shared.RoleAdmin)(okHandler())

	rec := serve(t, mw, h, httptest.NewRequest(http.MethodGet, "/api/staff", nil), "7")
	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), `"success":false`)
}

func TestAnonymousAPIRequestGets401(t *testing.T) {
	mw := Middleware{Loader: staffLoader(nil)}
	rec := serve(t, mw, mw.RequireAuth(okHandler()), httptest.NewRequest(http.MethodGet, "/api/tickets", nil), "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAnonymousBrowserIsRedirected(t *testing.T) {
	mw := Middleware{Loader: staffLoader(nil)}
	rec := serve(t, mw, mw.RequireAuth(okHandler()), httptest.NewRequest(http.MethodGet, "/", nil), "")
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, LoginPath, rec.Header().Get("Location"))
}

func TestAcceptHeaderSelectsJSON(t *testing.T) {
	mw := Middleware{Loader: staffLoader(nil)}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept", "application/json")
	rec := serve(t, mw, mw.RequireAuth(okHandler()), req, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestDeletedStaffIsTreatedAsAnonymous(t *testing.T) {
	mw := Middleware{Loader: staffLoader(map[int64]shared.Principal{})}
	rec := serve(t, mw, mw.RequireAuth(okHandler()), httptest.NewRequest(http.MethodGet, "/api/bills", nil), "99")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoaderFailureIsInternalError(t *testing.T) {
	mw := Middleware{Loader: LoaderFunc(func(context.Context, int64) (shared.Principal, error) {
		return shared.Principal{}, errors.New("connection reset")
	})}
	rec := serve(t, mw, mw.RequireAuth(okHandler()), httptest.NewRequest(http.MethodGet, "/api/bills", nil), "1")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "connection reset")
}
