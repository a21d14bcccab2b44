package payments

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/hydrobill/hydrobill/internal/platform/httpx"
	"github.com/hydrobill/hydrobill/internal/platform/upload"
	"github.com/hydrobill/hydrobill/internal/rbac"
	"github.com/hydrobill/hydrobill/internal/shared"
)

const proofField = "proof"

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
		r.Post("/", h.Store)
		r.Get("/{id}", h.Show)
		r.Get("/{id}/proof", h.Proof)
		r.Post("/{id}/approve", h.Approve)
		r.Post("/{id}/reject", h.Reject)
	})
}

// MountValidationRoutes serves the bill-payment validation queue.
func (h *Handler) MountValidationRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireRole(shared.RoleAdmin, shared.RoleBillHandler))
		r.Get("/", h.ListForValidation)
		r.Post("/{id}/status", h.UpdateStatus)
	})
}

// MountMobileRoutes serves the customer app. Submissions are multipart with the
// proof image in the "proof" field.
func (h *Handler) MountMobileRoutes(r chi.Router) {
	r.Get("/", h.ListForAccount)
	r.Post("/", h.Store)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := ListPaymentsRequest{Status: q.Get("status")}
	var err error
	if req.BillID, err = optionalID(q.Get("bill_id"), "bill_id"); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if req.CustomerID, err = optionalID(q.Get("customer_id"), "customer_id"); err != nil {
		httpx.RespondError(w, err)
		return
	}
	items, err := h.service.List(r.Context(), req)
	if err != nil {
		h.fail(w, "list payments failed", err)
		return
	}
	httpx.OK(w, "payments retrieved", items)
}

func optionalID(raw, field string) (int64, error) {
	if raw == "" {
		return 0, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, httpx.Invalid(field, "must be a positive integer")
	}
	return id, nil
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	p, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.fail(w, "get payment failed", err)
		return
	}
	httpx.OK(w, "payment retrieved", p)
}

func (h *Handler) Proof(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	rc, contentType, err := h.service.Proof(r.Context(), id)
	if err != nil {
		h.fail(w, "open payment proof failed", err)
		return
	}
	defer rc.Close()
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "private, max-age=300")
	if _, err := io.Copy(w, rc); err != nil {
		h.logger.Warn("stream payment proof", slog.Int64("payment_id", id), slog.Any("error", err))
	}
}

func (h *Handler) Store(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, upload.MaxImageBytes+(64<<10))
	if err := r.ParseMultipartForm(upload.MaxImageBytes); err != nil {
		httpx.RespondError(w, httpx.Invalid(proofField, "request must be multipart/form-data within 2MB"))
		return
	}
	req, err := storeRequestFromForm(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	proof, err := upload.FormImage(r, proofField)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	p, err := h.service.Store(r.Context(), req, proof)
	if err != nil {
		h.fail(w, "store payment failed", err)
		return
	}
	httpx.Created(w, "payment submitted for validation", p)
}

func storeRequestFromForm(r *http.Request) (StorePaymentRequest, error) {
	fields := httpx.FieldErrors{}
	req := StorePaymentRequest{
		AccountNumber: r.FormValue("account_number"),
		MeterNumber:   r.FormValue("meter_number"),
		PaymentType:   r.FormValue("payment_type"),
	}
	if raw := strings.TrimSpace(r.FormValue("bill_id")); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			fields["bill_id"] = "must be a positive integer"
		}
		req.BillID = id
	}
	if raw := strings.TrimSpace(r.FormValue("amount")); raw != "" {
		amount, err := decimal.NewFromString(raw)
		if err != nil {
			fields["amount"] = "must be a number"
		}
		req.Amount = amount
	}
	if len(fields) > 0 {
		return req, &httpx.ValidationError{Fields: fields}
	}
	return req, nil
}

func (h *Handler) decide(w http.ResponseWriter, r *http.Request, status string) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	principal, _ := shared.PrincipalFromContext(r.Context())
	p, err := h.service.UpdateStatus(r.Context(), id, principal.ID, UpdateStatusRequest{Status: status})
	h.respondDecision(w, p, err)
}

func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) { h.decide(w, r, StatusApproved) }

func (h *Handler) Reject(w http.ResponseWriter, r *http.Request) { h.decide(w, r, StatusRejected) }

func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req UpdateStatusRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	principal, _ := shared.PrincipalFromContext(r.Context())
	p, err := h.service.UpdateStatus(r.Context(), id, principal.ID, req)
	h.respondDecision(w, p, err)
}

func (h *Handler) respondDecision(w http.ResponseWriter, p *Payment, err error) {
	switch {
	case err == nil:
		httpx.OK(w, "payment "+strings.ToLower(p.Status), p)
	case errors.Is(err, httpx.ErrVerification) && p != nil:
		httpx.JSON(w, http.StatusBadRequest, httpx.Envelope{Success: false, Message: "payment verification failed", Data: p})
	default:
		h.fail(w, "update payment status failed", err)
	}
}

func (h *Handler) ListForValidation(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListForValidation(r.Context())
	if err != nil {
		h.fail(w, "list payments for validation failed", err)
		return
	}
	httpx.OK(w, "pending payments retrieved", items)
}

func (h *Handler) ListForAccount(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	items, err := h.service.ListByAccount(r.Context(), AccountLookup{
		AccountNumber: q.Get("account_number"),
		MeterNumber:   q.Get("meter_number"),
	})
	if err != nil {
		h.fail(w, "list account payments failed", err)
		return
	}
	httpx.OK(w, "payments retrieved", items)
}

func (h *Handler) fail(w http.ResponseWriter, msg string, err error) {
	if httpx.StatusFor(err) == http.StatusInternalServerError {
		h.logger.Error(msg, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
