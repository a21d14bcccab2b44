package billingcycle

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hydrobill/hydrobill/internal/platform/httpx"
	"github.com/hydrobill/hydrobill/internal/rbac"
	"github.com/hydrobill/hydrobill/internal/shared"
)

// BulkEnqueuer schedules a bulk synchronisation on the worker.
type BulkEnqueuer interface {
	EnqueueBillingSync(r *http.Request) (string, error)
}

type Handler struct {
	logger  *slog.Logger
	sync    *Synchronizer
	rbac    rbac.Middleware
	enqueue BulkEnqueuer
}

func NewHandler(logger *slog.Logger, sync *Synchronizer, rbac rbac.Middleware, enqueue BulkEnqueuer) *Handler {
	return &Handler{logger: logger, sync: sync, rbac: rbac, enqueue: enqueue}
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireRole(shared.RoleAdmin, shared.RoleBillHandler))
		r.Get("/", h.List)
		r.Get("/export", h.Export)
		r.Post("/", h.Create)
		r.Post("/createBillingCyclesForAllCustomers", h.CreateForAll)
		r.Post("/syncBillingCycleForCustomer/{id}", h.SyncCustomer)
		r.Get("/{id}", h.Show)
		r.Put("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
	})
}

func filtersFrom(r *http.Request) Filters {
	q := r.URL.Query()
	return Filters{
		CustomerType: q.Get("customer_type"),
		Period:       q.Get("billing_period"),
		Search:       q.Get("search"),
		Status:       q.Get("status"),
	}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	cycles, err := h.sync.ListWithFilters(r.Context(), filtersFrom(r))
	if err != nil {
		h.fail(w, "list billing cycles failed", err)
		return
	}
	httpx.OK(w, "billing cycles retrieved", cycles)
}

func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	n, err := h.sync.ExportXLSX(r.Context(), filtersFrom(r), &buf)
	if err != nil {
		h.fail(w, "export billing cycles failed", err)
		return
	}
	h.logger.Info("billing cycles exported", slog.Int("rows", n))
	name := fmt.Sprintf("billing-cycles-%s.xlsx", time.Now().Format("20060102"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", "attachment; filename="+name)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	cycle, err := h.sync.Get(r.Context(), id)
	if err != nil {
		h.fail(w, "get billing cycle failed", err)
		return
	}
	httpx.OK(w, "billing cycle retrieved", cycle)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateCycleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	cycle, err := h.sync.Create(r.Context(), req)
	if err != nil {
		h.fail(w, "create billing cycle failed", err)
		return
	}
	httpx.Created(w, "billing cycle created", cycle)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req UpdateCycleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	cycle, err := h.sync.Update(r.Context(), id, req)
	if err != nil {
		h.fail(w, "update billing cycle failed", err)
		return
	}
	httpx.OK(w, "billing cycle updated", cycle)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.sync.Delete(r.Context(), id); err != nil {
		h.fail(w, "delete billing cycle failed", err)
		return
	}
	httpx.OK(w, "billing cycle deleted", nil)
}

// CreateForAll runs the bulk synchronisation. With ?async=1 and a configured
// queue the run is handed to the worker instead.
func (h *Handler) CreateForAll(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("async") == "1" && h.enqueue != nil {
		taskID, err := h.enqueue.EnqueueBillingSync(r)
		if err != nil {
			h.fail(w, "enqueue billing sync failed", err)
			return
		}
		httpx.JSON(w, http.StatusAccepted, httpx.Envelope{Success: true, Message: "billing cycle sync queued", Data: map[string]string{"task_id": taskID}})
		return
	}
	summary := h.sync.CreateForAllCustomers(r.Context())
	msg := fmt.Sprintf("billing cycles synced: %d created, %d updated, %d errors", summary.Created, summary.Updated, summary.Errors)
	httpx.OK(w, msg, summary)
}

func (h *Handler) SyncCustomer(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	res := h.sync.SyncForNewCustomer(r.Context(), id)
	if res.Failed() {
		status := http.StatusInternalServerError
		if res.Message == fmt.Sprintf("customer %d not found", id) {
			status = http.StatusNotFound
		}
		httpx.JSON(w, status, httpx.Envelope{Success: false, Message: res.Message, Data: res})
		return
	}
	httpx.OK(w, "billing cycle "+res.Action, res)
}

func (h *Handler) fail(w http.ResponseWriter, msg string, err error) {
	if httpx.StatusFor(err) == http.StatusInternalServerError {
		h.logger.Error(msg, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
