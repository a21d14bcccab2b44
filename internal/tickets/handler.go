package tickets

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
		r.Post("/", h.Create)
		r.Get("/{id}", h.Show)
		r.Put("/{id}/status", h.Update)
		r.Get("/{id}/history", h.History)
	})
	r.With(h.rbac.RequireRole(shared.RoleAdmin)).Delete("/{id}", h.Delete)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	items, err := h.service.List(r.Context(), ListTicketsRequest{Status: q.Get("status"), Search: q.Get("search")})
	if err != nil {
		h.fail(w, "list tickets failed", err)
		return
	}
	httpx.OK(w, "tickets retrieved", items)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateTicketRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	principal, _ := shared.PrincipalFromContext(r.Context())
	t, err := h.service.Create(r.Context(), req, principal)
	if err != nil {
		h.fail(w, "create ticket failed", err)
		return
	}
	httpx.Created(w, "ticket created", t)
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	t, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.fail(w, "get ticket failed", err)
		return
	}
	httpx.OK(w, "ticket retrieved", t)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req UpdateTicketRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	principal, _ := shared.PrincipalFromContext(r.Context())
	t, err := h.service.Update(r.Context(), id, req, principal.Name)
	if err != nil {
		h.fail(w, "update ticket failed", err)
		return
	}
	httpx.OK(w, "ticket updated", t)
}

func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	items, err := h.service.History(r.Context(), id)
	if err != nil {
		h.fail(w, "ticket history failed", err)
		return
	}
	httpx.OK(w, "ticket history retrieved", items)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.fail(w, "delete ticket failed", err)
		return
	}
	httpx.OK(w, "ticket deleted", nil)
}

func (h *Handler) fail(w http.ResponseWriter, msg string, err error) {
	if httpx.StatusFor(err) == http.StatusInternalServerError {
		h.logger.Error(msg, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
