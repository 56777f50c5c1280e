package middleware

import (
	"context"
	"slices"

	"github.com/gin-gonic/gin"
	"github.com/pass-culture/pass-culture-main-sub045/internal/infrastructure/telemetry"
)

// Profiling attaches route and method labels to the profiles sampled while
// the request is handled. Paths in skip (probes) are left unlabelled.
func Profiling(skip ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if slices.Contains(skip, c.Request.URL.Path) {
			c.Next()
			return
		}
		labels := telemetry.HTTPRequestLabels(c.FullPath(), c.Request.Method)
		telemetry.WithProfilingLabels(c.Request.Context(), labels, func(ctx context.Context) {
			c.Request = c.Request.WithContext(ctx)
			c.Next()
		})
	}
}
