package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"hemotwin-backend/internal/patients"
	"hemotwin-backend/internal/shared/server/middleware"
	"hemotwin-backend/internal/shared/server/respond"
)

// registerMeRoutes attaches the /me endpoint.
func registerMeRoutes(rg *gin.RouterGroup, svc *patients.Service) {
	rg.GET("/me", func(c *gin.Context) {
		meHandler(c, svc)
	})
}

// meHandler reports the caller's identity and whether a profile exists yet, so the
// app can route new users to registration.
func meHandler(c *gin.Context, svc *patients.Service) {
	email := middleware.UserEmailFromContext(c)
	if email == "" {
		respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token", nil)
		return
	}

	response := gin.H{
		"email":      email,
		"registered": false,
	}
	if name := middleware.UserNameFromContext(c); name != "" {
		response["name"] = name
	}

	if svc != nil {
		profile, err := svc.Get(c.Request.Context(), email)
		switch {
		case err == nil:
			response["registered"] = true
			response["patientId"] = profile.PatientID
			response["profile"] = profile
		case errors.Is(err, patients.ErrNotFound):
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to load profile", nil)
			return
		}
	}

	respond.JSON(c, http.StatusOK, response)
}
