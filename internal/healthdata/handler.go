package healthdata

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"hemotwin-backend/internal/bloodtest"
	"hemotwin-backend/internal/shared/server/middleware"
	"hemotwin-backend/internal/shared/server/respond"
)

const maxPreviewText = 256 << 10

// Handler exposes the patient's lab record.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches health data routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/health-data", h.get)
	rg.PUT("/health-data", h.replace)
	rg.POST("/health-data/extract", h.extract)
}

func (h *Handler) get(c *gin.Context) {
	rec, err := h.Svc.Get(c.Request.Context(), middleware.UserEmailFromContext(c))
	if err != nil {
		h.fail(c, err, "failed to load health data")
		return
	}
	respond.OK(c, gin.H{
		"record":  rec,
		"missing": nonNil(rec.Missing(bloodtest.Metrics...)),
	})
}

func (h *Handler) replace(c *gin.Context) {
	var rec bloodtest.LabRecord
	if err := c.ShouldBindJSON(&rec); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	email := middleware.UserEmailFromContext(c)
	if err := h.Svc.Replace(c.Request.Context(), email, rec); err != nil {
		h.fail(c, err, "failed to save health data")
		return
	}
	stored, err := h.Svc.Get(c.Request.Context(), email)
	if err != nil {
		h.fail(c, err, "failed to load health data")
		return
	}
	respond.OK(c, gin.H{"record": stored})
}

type extractRequest struct {
	Text string `json:"text"`
	Save bool   `json:"save"`
}

func (h *Handler) extract(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxPreviewText)
	var req extractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}

	rec := h.Svc.Preview(req.Text)
	resp := gin.H{
		"record":  rec,
		"missing": nonNil(rec.Missing(bloodtest.Metrics...)),
	}
	if req.Save {
		changed, err := h.Svc.ApplyExtraction(c.Request.Context(), middleware.UserEmailFromContext(c), rec)
		if err != nil {
			h.fail(c, err, "failed to save health data")
			return
		}
		resp["changed"] = changed
	}
	respond.OK(c, resp)
}

func (h *Handler) fail(c *gin.Context, err error, message string) {
	var vErr *ValidationError
	if errors.As(err, &vErr) {
		respond.Error(c, http.StatusBadRequest, "validation_error", vErr.Error(), gin.H{"field": vErr.Metric})
		return
	}
	respond.Error(c, http.StatusInternalServerError, "internal_error", message, nil)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
