package middleware

import (
	"context"

	"github.com/erp/eca/internal/infrastructure/telemetry"
	"github.com/gin-gonic/gin"
)

// Profiling attaches the route pattern and method as profile labels to
// every matched route. Unmatched paths run without labels.
func Profiling(enabled bool) gin.HandlerFunc {
	if !enabled {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			c.Next()
			return
		}
		labels := map[string]string{
			telemetry.ProfileLabelRoute:  route,
			telemetry.ProfileLabelMethod: c.Request.Method,
		}
		telemetry.WithProfileLabels(c.Request.Context(), labels, func(ctx context.Context) {
			c.Request = c.Request.WithContext(ctx)
			c.Next()
		})
	}
}
