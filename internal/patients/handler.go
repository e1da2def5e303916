package patients

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"hemotwin-backend/internal/bloodtest"
	"hemotwin-backend/internal/healthdata"
	"hemotwin-backend/internal/shared/server/middleware"
	"hemotwin-backend/internal/shared/server/respond"
)

// Handler exposes patient registration and profile routes.
type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/patients", h.register)
	rg.GET("/patients/me", h.me)
	rg.PATCH("/patients/me", h.update)
}

type registerRequest struct {
	Profile
	HealthData bloodtest.LabRecord `json:"healthData"`
}

func (h *Handler) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}

	p, err := h.Svc.Register(c.Request.Context(), middleware.UserEmailFromContext(c), req.Profile, req.HealthData)
	if err != nil {
		h.fail(c, err)
		return
	}
	respond.Created(c, p)
}

func (h *Handler) me(c *gin.Context) {
	p, err := h.Svc.Get(c.Request.Context(), middleware.UserEmailFromContext(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	respond.OK(c, p)
}

func (h *Handler) update(c *gin.Context) {
	var patch Profile
	if err := c.ShouldBindJSON(&patch); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}

	p, err := h.Svc.Update(c.Request.Context(), middleware.UserEmailFromContext(c), patch)
	if err != nil {
		h.fail(c, err)
		return
	}
	respond.OK(c, p)
}

func (h *Handler) fail(c *gin.Context, err error) {
	var vErr *ValidationError
	var hErr *healthdata.ValidationError
	switch {
	case errors.As(err, &vErr):
		respond.Error(c, http.StatusBadRequest, "validation_error", vErr.Error(), gin.H{"field": vErr.Field})
	case errors.As(err, &hErr):
		respond.Error(c, http.StatusBadRequest, "validation_error", hErr.Error(), gin.H{"field": "healthData." + hErr.Metric})
	case errors.Is(err, ErrAlreadyRegistered):
		respond.Error(c, http.StatusConflict, "already_registered", err.Error(), nil)
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "patient not found", nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to process patient", nil)
	}
}
