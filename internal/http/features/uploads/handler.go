package uploads

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dealerdesk/dealerdesk/internal/httputil"
	"github.com/dealerdesk/dealerdesk/internal/storage"
)

// Handler issues pre-signed upload URLs for listing photos.
type Handler struct {
	logger   *slog.Logger
	uploader *storage.Uploader // nil when S3 is not configured
}

// NewHandler creates a new uploads handler.
func NewHandler(logger *slog.Logger, uploader *storage.Uploader) *Handler {
	return &Handler{logger: logger, uploader: uploader}
}

// PresignRequest represents an upload URL request.
type PresignRequest struct {
	FileName    string `json:"file_name"`
	ContentType string `json:"content_type"`
}

// Presign returns a pre-signed PUT URL.
// POST /v1/uploads/url
func (h *Handler) Presign(w http.ResponseWriter, r *http.Request) {
	if h.uploader == nil {
		httputil.Error(w, http.StatusServiceUnavailable, "uploads are not configured")
		return
	}

	var req PresignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.FileName == "" || req.ContentType == "" {
		httputil.Error(w, http.StatusBadRequest, "file_name and content_type are required")
		return
	}
	if !strings.HasPrefix(req.ContentType, "image/") {
		httputil.Error(w, http.StatusBadRequest, "only image uploads are allowed")
		return
	}

	presigned, err := h.uploader.PresignUpload(r.Context(), req.FileName, req.ContentType)
	if err != nil {
		h.logger.Error("failed to presign upload", "error", err)
		httputil.Error(w, http.StatusInternalServerError, "failed to create upload url")
		return
	}

	httputil.JSON(w, http.StatusOK, presigned)
}
