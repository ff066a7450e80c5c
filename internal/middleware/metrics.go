package middleware

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mexihaiti/remesa-backend/internal/metrics"
)

// MetricsMiddleware counts requests per route, method and status.
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.RequestsTotal.WithLabelValues(
			route,
			c.Request.Method,
			strconv.Itoa(c.Writer.Status()),
		).Inc()
	}
}
