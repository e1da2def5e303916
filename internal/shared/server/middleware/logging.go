package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"hemotwin-backend/internal/shared/metrics"
	"hemotwin-backend/internal/shared/telemetry"
	"hemotwin-backend/internal/shared/util"
)

// Context keys handlers may set to enrich the request log line.
const (
	ScanIDKey           = "scanId"
	StatusTransitionKey = "statusTransition"
)

// Logging emits a structured log per request and records its latency. Identities
// are logged as short owner keys.
func Logging() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		latency := time.Since(start)
		metrics.ObserveHTTPDurationMs(float64(latency.Microseconds()) / 1000.0)

		fields := map[string]any{
			"request_id":        RequestIDFromContext(c),
			"method":            c.Request.Method,
			"path":              c.Request.URL.Path,
			"route":             c.FullPath(),
			"status":            c.Writer.Status(),
			"status_transition": c.GetString(StatusTransitionKey),
			"duration_ms":       float64(latency.Microseconds()) / 1000.0,
			"scan_id":           c.GetString(ScanIDKey),
			"client_ip":         c.ClientIP(),
			"user_agent":        c.Request.UserAgent(),
		}
		if email := UserEmailFromContext(c); email != "" {
			fields["owner"] = util.ShortOwnerKey(email)
		}
		telemetry.Info("request.complete", fields)
	}
}
