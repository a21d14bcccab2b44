package staff

import (
	"log/slog"
	"net/http"

	"github.com/hydrobill/hydrobill/internal/platform/httpx"
	"github.com/hydrobill/hydrobill/internal/platform/upload"
	"github.com/hydrobill/hydrobill/internal/rbac"
)

type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	items, err := h.service.List(r.Context(), ListStaffRequest{Role: q.Get("role"), Search: q.Get("search")})
	if err != nil {
		h.fail(w, "list staff failed", err)
		return
	}
	httpx.OK(w, "staff retrieved", items)
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	st, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.fail(w, "get staff failed", err)
		return
	}
	httpx.OK(w, "staff retrieved", st)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateStaffRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	st, err := h.service.Create(r.Context(), req)
	if err != nil {
		h.fail(w, "create staff failed", err)
		return
	}
	httpx.Created(w, "staff created", st)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req UpdateStaffRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	st, err := h.service.Update(r.Context(), id, req)
	if err != nil {
		h.fail(w, "update staff failed", err)
		return
	}
	httpx.OK(w, "staff updated", st)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.fail(w, "delete staff failed", err)
		return
	}
	httpx.OK(w, "staff deleted", nil)
}

func (h *Handler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, upload.MaxImageBytes+(64<<10))
	if err := r.ParseMultipartForm(upload.MaxImageBytes); err != nil {
		httpx.RespondError(w, httpx.Invalid("profile_picture", "must be a multipart upload of at most 2MB"))
		return
	}
	img, err := upload.FormImage(r, "profile_picture")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	st, err := h.service.SetProfilePicture(r.Context(), id, img)
	if err != nil {
		h.fail(w, "upload profile picture failed", err)
		return
	}
	httpx.OK(w, "profile picture updated", st)
}

func (h *Handler) fail(w http.ResponseWriter, msg string, err error) {
	if httpx.StatusFor(err) == http.StatusInternalServerError {
		h.logger.Error(msg, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
