package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"hemotwin-backend/internal/assessments"
	"hemotwin-backend/internal/healthdata"
	"hemotwin-backend/internal/patients"
	"hemotwin-backend/internal/scans"
	"hemotwin-backend/internal/services/health"
	"hemotwin-backend/internal/shared/config"
	"hemotwin-backend/internal/shared/metrics"
	"hemotwin-backend/internal/shared/server/middleware"
	"hemotwin-backend/internal/shared/server/respond"
	"hemotwin-backend/internal/uploads"
)

// RouterDeps carries the handlers mounted under /api/v1.
type RouterDeps struct {
	Config            config.Config
	Health            *health.Service
	Patients          *patients.Service
	PatientHandler    *patients.Handler
	HealthHandler     *healthdata.Handler
	ScanHandler       *scans.Handler
	UploadHandler     *uploads.Handler
	AssessmentHandler *assessments.Handler
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	if deps.Config.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
	)

	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api/v1")
	api.GET("/health", func(c *gin.Context) {
		status, ok := deps.Health.Status(c.Request.Context())
		code := http.StatusOK
		if !ok {
			code = http.StatusServiceUnavailable
		}
		respond.JSON(c, code, status)
	})

	authed := api.Group("")
	authed.Use(
		middleware.Auth(deps.Config.Env),
		middleware.RateLimit(middleware.RateLimitConfig{
			Rules: map[string]middleware.RateLimitRule{
				middleware.GroupDefault: middleware.PerMinute(deps.Config.RateLimitPerMinute),
				middleware.GroupScans:   middleware.PerMinute(deps.Config.ScanRateLimitPerMinute),
			},
			GroupFor: rateLimitGroup,
		}),
	)

	registerMeRoutes(authed, deps.Patients)
	if deps.PatientHandler != nil {
		deps.PatientHandler.RegisterRoutes(authed)
	}
	if deps.HealthHandler != nil {
		deps.HealthHandler.RegisterRoutes(authed)
	}
	if deps.ScanHandler != nil {
		deps.ScanHandler.RegisterRoutes(authed)
	}
	if deps.UploadHandler != nil {
		deps.UploadHandler.RegisterRoutes(authed)
	}
	if deps.AssessmentHandler != nil {
		deps.AssessmentHandler.RegisterRoutes(authed)
	}

	return r
}

// rateLimitGroup puts every route that may trigger OCR in the scans budget.
func rateLimitGroup(c *gin.Context) string {
	if c.Request.Method != http.MethodPost {
		return middleware.GroupDefault
	}
	route := c.FullPath()
	if route == "/api/v1/scans" || strings.HasPrefix(route, "/api/v1/uploads/") {
		return middleware.GroupScans
	}
	return middleware.GroupDefault
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
