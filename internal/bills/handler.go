package bills

import (
	"log/slog"
	"net/http"
	"strconv"

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
		r.Use(h.rbac.RequireRole(shared.RoleAdmin, shared.RoleBillHandler))
		r.Get("/", h.List)
		r.Post("/from-reading/{readingID}", h.Generate)
		r.Get("/{id}", h.Show)
		r.Post("/{id}/send", h.Send)
		r.Post("/{id}/cancel", h.Cancel)
	})
}

// MountMobileRoutes serves the customer app, which identifies itself by account
// and meter number instead of a session.
func (h *Handler) MountMobileRoutes(r chi.Router) {
	r.Get("/", h.ListForAccount)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := ListBillsRequest{Status: q.Get("status"), Search: q.Get("search")}
	if raw := q.Get("customer_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			httpx.RespondError(w, httpx.Invalid("customer_id", "must be a positive integer"))
			return
		}
		req.CustomerID = id
	}
	items, err := h.service.List(r.Context(), req)
	if err != nil {
		h.fail(w, "list bills failed", err)
		return
	}
	httpx.OK(w, "bills retrieved", items)
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	bill, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.fail(w, "get bill failed", err)
		return
	}
	httpx.OK(w, "bill retrieved", bill)
}

func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	readingID, err := httpx.IDParam(r, "readingID")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	bill, err := h.service.GenerateFromReading(r.Context(), readingID)
	if err != nil {
		h.fail(w, "generate bill failed", err)
		return
	}
	httpx.Created(w, "bill generated", bill)
}

func (h *Handler) Send(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	bill, err := h.service.MarkSent(r.Context(), id)
	if err != nil {
		h.fail(w, "send bill failed", err)
		return
	}
	httpx.OK(w, "bill marked as sent", bill)
}

func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	bill, err := h.service.Cancel(r.Context(), id)
	if err != nil {
		h.fail(w, "cancel bill failed", err)
		return
	}
	httpx.OK(w, "bill cancelled", bill)
}

func (h *Handler) ListForAccount(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	items, err := h.service.ListByAccount(r.Context(), AccountLookup{
		AccountNumber: q.Get("account_number"),
		MeterNumber:   q.Get("meter_number"),
	})
	if err != nil {
		h.fail(w, "list account bills failed", err)
		return
	}
	httpx.OK(w, "bills retrieved", items)
}

func (h *Handler) fail(w http.ResponseWriter, msg string, err error) {
	if httpx.StatusFor(err) == http.StatusInternalServerError {
		h.logger.Error(msg, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
