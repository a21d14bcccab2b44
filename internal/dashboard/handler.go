package dashboard

import (
	"log/slog"
	"net/http"

	"github.com/hydrobill/hydrobill/internal/platform/httpx"
	"github.com/hydrobill/hydrobill/internal/shared"
	"github.com/hydrobill/hydrobill/internal/view"
)

type Handler struct {
	logger    *slog.Logger
	service   *Service
	templates *view.Engine
	csrf      *shared.CSRFManager
}

func NewHandler(logger *slog.Logger, service *Service, templates *view.Engine, csrf *shared.CSRFManager) *Handler {
	return &Handler{logger: logger, service: service, templates: templates, csrf: csrf}
}

// Home renders the dashboard page for a signed-in staff member.
func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.Summary(r.Context())
	if err != nil {
		h.logger.Error("dashboard summary failed", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	data := view.TemplateData{Title: "Dashboard", CurrentPath: r.URL.Path, Data: summary}
	if p, ok := shared.PrincipalFromContext(r.Context()); ok {
		data.Principal = &p
	}
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		data.Flash = sess.PopFlash()
		data.CSRFToken, _ = h.csrf.EnsureToken(sess)
	}
	if err := h.templates.Render(w, "pages/home.html", data); err != nil {
		h.logger.Error("render dashboard", slog.Any("error", err))
	}
}

// Summary serves the counters as JSON.
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.Summary(r.Context())
	if err != nil {
		h.logger.Error("dashboard summary failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, "dashboard summary", summary)
}
