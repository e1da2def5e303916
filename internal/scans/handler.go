package scans

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"hemotwin-backend/internal/shared/server/middleware"
	"hemotwin-backend/internal/shared/server/respond"
)

// multipart overhead on top of the report itself
const maxRequestBytes = MaxUploadBytes + 1<<20

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches scan routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/scans", h.upload)
	rg.GET("/scans", h.list)
	rg.GET("/scans/:scanId", h.get)
}

func (h *Handler) upload(c *gin.Context) {
	email := middleware.UserEmailFromContext(c)
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxRequestBytes)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			respond.Error(c, http.StatusRequestEntityTooLarge, "file_too_large", ErrTooLarge.Error(), nil)
			return
		}
		respond.Error(c, http.StatusBadRequest, "validation_error", "file is required", nil)
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read file", nil)
		return
	}
	defer file.Close()

	scan, err := h.Svc.Upload(c.Request.Context(), email, fileHeader.Filename, middleware.RequestIDFromContext(c), file)
	if err != nil {
		writeError(c, err, "failed to upload scan")
		return
	}
	c.Set(middleware.ScanIDKey, scan.ID)
	c.Set(middleware.StatusTransitionKey, string(scan.Status))
	respond.Created(c, toResponse(scan))
}

// CompleteUpload registers a presigned upload as a scan. The uploads handler
// mounts it next to the presign route.
func (h *Handler) CompleteUpload(c *gin.Context) {
	email := middleware.UserEmailFromContext(c)

	var req CompleteUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	if strings.TrimSpace(req.Key) == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "key is required", nil)
		return
	}

	scan, err := h.Svc.CreateFromUpload(
		c.Request.Context(),
		email,
		req.Key,
		strings.TrimSpace(req.FileName),
		strings.TrimSpace(req.ContentType),
		req.SizeBytes,
		middleware.RequestIDFromContext(c),
	)
	if err != nil {
		writeError(c, err, "failed to register upload")
		return
	}
	c.Set(middleware.ScanIDKey, scan.ID)
	c.Set(middleware.StatusTransitionKey, string(scan.Status))
	respond.Created(c, toResponse(scan))
}

func (h *Handler) get(c *gin.Context) {
	email := middleware.UserEmailFromContext(c)
	scanID := c.Param("scanId")
	c.Set(middleware.ScanIDKey, scanID)

	scan, err := h.Svc.Get(c.Request.Context(), email, scanID)
	if err != nil {
		writeError(c, err, "failed to load scan")
		return
	}
	respond.OK(c, toResponse(scan))
}

func (h *Handler) list(c *gin.Context) {
	email := middleware.UserEmailFromContext(c)

	limit := 20
	if raw := c.Query("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 || v > 100 {
			respond.Error(c, http.StatusBadRequest, "validation_error", "limit must be between 1 and 100", nil)
			return
		}
		limit = v
	}
	offset := 0
	if raw := c.Query("offset"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			respond.Error(c, http.StatusBadRequest, "validation_error", "offset must be zero or positive", nil)
			return
		}
		offset = v
	}

	scans, err := h.Svc.List(c.Request.Context(), email, limit, offset)
	if err != nil {
		writeError(c, err, "failed to list scans")
		return
	}
	items := make([]ScanResponse, 0, len(scans))
	for _, scan := range scans {
		items = append(items, toResponse(scan))
	}
	respond.OK(c, ListResponse{Items: items, Limit: limit, Offset: offset})
}

func writeError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "scan not found", nil)
	case errors.Is(err, ErrTooLarge):
		respond.Error(c, http.StatusRequestEntityTooLarge, "file_too_large", err.Error(), nil)
	case errors.Is(err, ErrUnsupportedType):
		respond.Error(c, http.StatusUnsupportedMediaType, "unsupported_type", err.Error(), nil)
	case errors.Is(err, ErrForeignKey):
		respond.Error(c, http.StatusForbidden, "forbidden", err.Error(), nil)
	case errors.Is(err, ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", fallback, nil)
	}
}
