package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hydrobill/hydrobill/internal/platform/httpx"
	"github.com/hydrobill/hydrobill/internal/shared"
	"github.com/hydrobill/hydrobill/internal/view"
)

const invalidCredentialsMessage = "Invalid email or password"

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger         *slog.Logger
	service        *Service
	templates      *view.Engine
	sessionManager *shared.SessionManager
	csrfManager    *shared.CSRFManager
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, templates *view.Engine, sessions *shared.SessionManager, csrf *shared.CSRFManager) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:         logger,
		service:        service,
		templates:      templates,
		sessionManager: sessions,
		csrfManager:    csrf,
	}
}

// MountRoutes registers auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/login", h.showLogin)
	r.Post("/login", h.handleLogin)
	r.Post("/logout", h.handleLogout)
	r.Get("/csrf", h.csrfToken)
	r.Get("/me", h.me)
}

type loginForm struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type loginPageData struct {
	Form   loginForm
	Errors map[string]string
}

type loginResponse struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	CSRFToken string `json:"csrf_token"`
}

func (h *Handler) showLogin(w http.ResponseWriter, r *http.Request) {
	h.renderLogin(w, r, loginPageData{}, http.StatusOK)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	asJSON := strings.HasPrefix(r.Header.Get("Content-Type"), "application/json")
	var form loginForm
	if asJSON {
		if err := httpx.DecodeJSON(r, &form); err != nil {
			httpx.RespondError(w, err)
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
		form = loginForm{Email: r.PostFormValue("email"), Password: r.PostFormValue("password")}
	}
	form.Email = strings.TrimSpace(form.Email)

	if err := httpx.Validate(form); err != nil {
		if asJSON {
			httpx.RespondError(w, err)
			return
		}
		errs := map[string]string{}
		var verr *httpx.ValidationError
		if errors.As(err, &verr) {
			errs = verr.Fields
		}
		h.renderLogin(w, r, loginPageData{Form: loginForm{Email: form.Email}, Errors: errs}, http.StatusUnprocessableEntity)
		return
	}

	user, err := h.service.Authenticate(r.Context(), form.Email, form.Password)
	if err != nil {
		h.logger.Info("login rejected", slog.String("email", form.Email))
		if asJSON {
			httpx.JSON(w, http.StatusUnauthorized, httpx.Envelope{Success: false, Message: invalidCredentialsMessage})
			return
		}
		h.renderLogin(w, r, loginPageData{Form: loginForm{Email: form.Email}, Errors: map[string]string{"general": invalidCredentialsMessage}}, http.StatusBadRequest)
		return
	}

	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		h.logger.Error("session missing during login")
		httpx.RespondError(w, shared.ErrCSRFTokenMissing)
		return
	}
	sess.SetUser(strconv.FormatInt(user.ID, 10))
	// The CSRF token is bound to the pre-login session ID; issue a fresh one.
	sess.Delete(shared.CSRFSessionKey)
	token, err := h.csrfManager.EnsureToken(sess)
	if err != nil {
		h.logger.Error("issue csrf token", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	expiresAt := time.Now().Add(h.sessionManager.TTL())
	if err := h.service.RegisterSession(r.Context(), sess.ID, user.ID, expiresAt, r.RemoteAddr, r.UserAgent()); err != nil {
		h.logger.Warn("register session", slog.Any("error", err))
	}
	h.logger.Info("staff logged in", slog.Int64("staff_id", user.ID), slog.String("role", string(user.Role)))

	if asJSON {
		httpx.OK(w, "logged in", loginResponse{ID: user.ID, Name: user.Name, Email: user.Email, Role: string(user.Role), CSRFToken: token})
		return
	}
	sess.AddFlash(shared.FlashMessage{Kind: "success", Message: "Welcome back, " + user.Name})
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess != nil {
		if err := h.service.RemoveSession(r.Context(), sess.ID); err != nil {
			h.logger.Warn("remove session", slog.Any("error", err))
		}
		h.sessionManager.Destroy(sess)
	}
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		httpx.OK(w, "logged out", nil)
		return
	}
	http.Redirect(w, r, "/auth/login", http.StatusSeeOther)
}

func (h *Handler) csrfToken(w http.ResponseWriter, r *http.Request) {
	token, err := h.csrfManager.EnsureToken(shared.SessionFromContext(r.Context()))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, "csrf token issued", map[string]string{"csrf_token": token})
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	p, ok := shared.PrincipalFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	httpx.OK(w, "authenticated", loginResponse{ID: p.ID, Name: p.Name, Email: p.Email, Role: string(p.Role)})
}

func (h *Handler) renderLogin(w http.ResponseWriter, r *http.Request, data loginPageData, status int) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrfManager.EnsureToken(sess)
	var flash *shared.FlashMessage
	if sess != nil {
		flash = sess.PopFlash()
	}
	viewData := view.TemplateData{
		Title:       "Sign in",
		CSRFToken:   csrfToken,
		Flash:       flash,
		CurrentPath: r.URL.Path,
		Data:        data,
	}
	if err := h.templates.RenderStatus(w, status, "pages/login.html", viewData); err != nil {
		h.logger.Error("render login", slog.Any("error", err))
	}
}
