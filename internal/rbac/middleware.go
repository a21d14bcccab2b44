package rbac

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/hydrobill/hydrobill/internal/platform/httpx"
	"github.com/hydrobill/hydrobill/internal/shared"
)

// LoginPath is where browsers without a session are redirected.
const LoginPath = "/auth/login"

// Middleware wires RBAC authorization helpers for HTTP handlers.
type Middleware struct {
	Loader PrincipalLoader
	Logger *slog.Logger
}

// LoadPrincipal resolves the session user into a shared.Principal stored on the
// request context. Anonymous requests pass through untouched.
func (m Middleware) LoadPrincipal(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := m.currentUserID(r)
		if !ok || m.Loader == nil {
			next.ServeHTTP(w, r)
			return
		}
		principal, err := m.Loader.PrincipalByID(r.Context(), userID)
		if err != nil {
			if !errors.Is(err, httpx.ErrNotFound) {
				m.logError("rbac load principal", err)
				httpx.RespondError(w, err)
				return
			}
			// Staff deleted or deactivated since login.
			if sess := shared.SessionFromContext(r.Context()); sess != nil {
				sess.SetUser("")
			}
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(shared.ContextWithPrincipal(r.Context(), principal)))
	})
}

// RequireAuth rejects anonymous requests.
func (m Middleware) RequireAuth(next http.Handler) http.Handler {
	return m.RequireRole()(next)
}

// RequireRole ensures the current staff member holds one of roles. With no roles
// any authenticated staff member is accepted.
func (m Middleware) RequireRole(roles ...shared.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := shared.PrincipalFromContext(r.Context())
			if !ok {
				Unauthenticated(w, r)
				return
			}
			if len(roles) > 0 && !principal.HasRole(roles...) {
				httpx.RespondError(w, httpx.ErrForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Unauthenticated answers API clients with a 401 envelope and sends browsers to
// the login page.
func Unauthenticated(w http.ResponseWriter, r *http.Request) {
	if WantsJSON(r) {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	http.Redirect(w, r, LoginPath, http.StatusSeeOther)
}

// WantsJSON reports whether the client expects a JSON response.
func WantsJSON(r *http.Request) bool {
	return strings.HasPrefix(r.URL.Path, "/api/") || strings.Contains(r.Header.Get("Accept"), "application/json")
}

func (m Middleware) currentUserID(r *http.Request) (int64, bool) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		return 0, false
	}
	raw := strings.TrimSpace(sess.User())
	if raw == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		m.logError("rbac parse user id", err)
		return 0, false
	}
	return id, true
}

func (m Middleware) logError(msg string, err error) {
	if m.Logger != nil {
		m.Logger.Error(msg, slog.Any("error", err))
	}
}
