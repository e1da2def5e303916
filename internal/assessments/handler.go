package assessments

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"hemotwin-backend/internal/patients"
	"hemotwin-backend/internal/risk"
	"hemotwin-backend/internal/shared/server/middleware"
	"hemotwin-backend/internal/shared/server/respond"
)

// Handler exposes the risk assessment routes.
type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/risk-assessment", h.assess)
	rg.GET("/reference-ranges", h.ranges)
}

func (h *Handler) assess(c *gin.Context) {
	result, err := h.Svc.Assess(c.Request.Context(), middleware.UserEmailFromContext(c))
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, result)
}

func (h *Handler) ranges(c *gin.Context) {
	ranges, err := h.Svc.Ranges(c.Request.Context(), middleware.UserEmailFromContext(c))
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, gin.H{"referenceRanges": ranges})
}

func writeError(c *gin.Context, err error) {
	var missing *risk.MissingDataError
	switch {
	case errors.As(err, &missing):
		respond.Error(c, http.StatusUnprocessableEntity, "missing_data",
			"cannot assess risk until all values are available", gin.H{"fields": missing.Fields})
	case errors.Is(err, risk.ErrInvalidDOB):
		respond.Error(c, http.StatusUnprocessableEntity, "invalid_dob", "date of birth is not valid", nil)
	case errors.Is(err, risk.ErrInvalidSex):
		respond.Error(c, http.StatusUnprocessableEntity, "invalid_sex", "sex must be male or female", nil)
	case errors.Is(err, patients.ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "patient not registered", nil)
	case errors.Is(err, patients.ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to assess risk", nil)
	}
}
