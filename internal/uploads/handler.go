// Package uploads lets clients send report files straight to object storage through
// presigned URLs and then register them as scans.
package uploads

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"hemotwin-backend/internal/scans"
	"hemotwin-backend/internal/shared/server/middleware"
	"hemotwin-backend/internal/shared/server/respond"
	"hemotwin-backend/internal/shared/telemetry"
	"hemotwin-backend/internal/textsource"
)

const defaultPresignExpiry = 15 * time.Minute

// Presigner issues upload URLs for storage keys.
type Presigner interface {
	PresignPut(ctx context.Context, storageKey, contentType string, expires time.Duration) (string, error)
}

// Handler serves the presign and completion routes.
type Handler struct {
	Presigner Presigner
	Scans     *scans.Handler
	Expiry    time.Duration
}

// NewHandler constructs a Handler. A nil presigner disables presigning.
func NewHandler(presigner Presigner, scanHandler *scans.Handler, expiry time.Duration) *Handler {
	if expiry <= 0 {
		expiry = defaultPresignExpiry
	}
	return &Handler{Presigner: presigner, Scans: scanHandler, Expiry: expiry}
}

type presignRequest struct {
	FileName    string `json:"fileName"`
	ContentType string `json:"contentType"`
	SizeBytes   int64  `json:"sizeBytes"`
}

type presignResponse struct {
	UploadURL        string `json:"uploadUrl"`
	Key              string `json:"key"`
	ScanID           string `json:"scanId"`
	ContentType      string `json:"contentType"`
	ExpiresInSeconds int64  `json:"expiresInSeconds"`
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/uploads/presign", h.presign)
	if h.Scans != nil {
		rg.POST("/uploads/complete", h.Scans.CompleteUpload)
	}
}

func (h *Handler) presign(c *gin.Context) {
	if h.Presigner == nil {
		respond.Error(c, http.StatusNotImplemented, "uploads_disabled", "direct uploads are not configured", nil)
		return
	}

	var req presignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}

	req.FileName = strings.TrimSpace(req.FileName)
	if req.FileName == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "fileName is required", nil)
		return
	}
	contentType := textsource.NormalizeMimeType(req.ContentType, req.FileName)
	if textsource.KindOf(contentType) == textsource.KindUnknown {
		respond.Error(c, http.StatusUnsupportedMediaType, "unsupported_type", scans.ErrUnsupportedType.Error(), nil)
		return
	}
	if req.SizeBytes <= 0 || req.SizeBytes > scans.MaxUploadBytes {
		respond.Error(c, http.StatusBadRequest, "validation_error", "sizeBytes must be between 1 and 10MB", nil)
		return
	}

	scanID, key, err := scans.NewStorageKey(middleware.UserEmailFromContext(c), req.FileName)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid fileName", nil)
		return
	}

	url, err := h.Presigner.PresignPut(c.Request.Context(), key, contentType, h.Expiry)
	if err != nil {
		telemetry.Error("uploads.presign.failed", map[string]any{
			"err":          err.Error(),
			"key":          key,
			"content_type": contentType,
			"size_bytes":   req.SizeBytes,
			"request_id":   middleware.RequestIDFromContext(c),
		})
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to generate upload url", nil)
		return
	}

	c.Set(middleware.ScanIDKey, scanID)
	respond.OK(c, presignResponse{
		UploadURL:        url,
		Key:              key,
		ScanID:           scanID,
		ContentType:      contentType,
		ExpiresInSeconds: int64(h.Expiry.Seconds()),
	})
}
