package readings

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
		r.Use(h.rbac.RequireRole(shared.RoleAdmin, shared.RoleMeterHandler))
		r.Get("/", h.List)
		r.Post("/", h.Record)
		r.Get("/{id}", h.Show)
		r.Delete("/{id}", h.Delete)
	})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	items, err := h.service.List(r.Context(), ListReadingsRequest{
		MeterNumber: q.Get("meter_number"),
		From:        q.Get("from"),
		To:          q.Get("to"),
	})
	if err != nil {
		h.fail(w, "list readings failed", err)
		return
	}
	httpx.OK(w, "readings retrieved", items)
}

func (h *Handler) Record(w http.ResponseWriter, r *http.Request) {
	principal, _ := shared.PrincipalFromContext(r.Context())
	var req RecordReadingRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	reading, err := h.service.Record(r.Context(), req, principal.ID)
	if err != nil {
		h.fail(w, "record reading failed", err)
		return
	}
	httpx.Created(w, "reading recorded", reading)
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	reading, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.fail(w, "get reading failed", err)
		return
	}
	httpx.OK(w, "reading retrieved", reading)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.fail(w, "delete reading failed", err)
		return
	}
	httpx.OK(w, "reading deleted", nil)
}

func (h *Handler) fail(w http.ResponseWriter, msg string, err error) {
	if httpx.StatusFor(err) == http.StatusInternalServerError {
		h.logger.Error(msg, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
