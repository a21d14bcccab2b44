package announcements

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hydrobill/hydrobill/internal/platform/httpx"
	"github.com/hydrobill/hydrobill/internal/rbac"
	"github.com/hydrobill/hydrobill/internal/shared"
)

type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac}
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAuth)
		r.Get("/", h.List)
		r.Get("/{id}", h.Show)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireRole(shared.RoleAdmin))
		r.Post("/", h.Create)
		r.Put("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
	})
}

func (h *Handler) MountMobileRoutes(r chi.Router) {
	r.Get("/", h.ListPublished)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.List(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		h.fail(w, "list announcements failed", err)
		return
	}
	httpx.OK(w, "announcements retrieved", items)
}

func (h *Handler) ListPublished(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListPublished(r.Context())
	if err != nil {
		h.fail(w, "list published announcements failed", err)
		return
	}
	httpx.OK(w, "announcements retrieved", items)
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	a, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.fail(w, "get announcement failed", err)
		return
	}
	httpx.OK(w, "announcement retrieved", a)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateAnnouncementRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	principal, _ := shared.PrincipalFromContext(r.Context())
	a, err := h.service.Create(r.Context(), req, principal.ID)
	if err != nil {
		h.fail(w, "create announcement failed", err)
		return
	}
	httpx.Created(w, "announcement created", a)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req UpdateAnnouncementRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	a, err := h.service.Update(r.Context(), id, req)
	if err != nil {
		h.fail(w, "update announcement failed", err)
		return
	}
	httpx.OK(w, "announcement updated", a)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.fail(w, "delete announcement failed", err)
		return
	}
	httpx.OK(w, "announcement deleted", nil)
}

func (h *Handler) fail(w http.ResponseWriter, msg string, err error) {
	if httpx.StatusFor(err) == http.StatusInternalServerError {
		h.logger.Error(msg, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
