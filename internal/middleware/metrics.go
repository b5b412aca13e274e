package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/geison-bit/horarios-api/internal/service"
)

// Metrics records request duration and totals per route.
func Metrics(metrics *service.MetricsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		metrics.ObserveRequest(c.Request.Method, path, strconv.Itoa(c.Writer.Status()), time.Since(start))
	}
}
