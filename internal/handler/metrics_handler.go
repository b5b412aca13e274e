package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/geison-bit/horarios-api/internal/service"
)

// MetricsHandler exposes health and the Prometheus endpoint.
type MetricsHandler struct {
	metrics *service.MetricsService
}

func NewMetricsHandler(metrics *service.MetricsService) *MetricsHandler {
	return &MetricsHandler{metrics: metrics}
}

// Health reports liveness in the shape the legacy frontend polls.
func (h *MetricsHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "Backend activo"})
}

// Prometheus serves the metrics exposition.
func (h *MetricsHandler) Prometheus(c *gin.Context) {
	h.metrics.Handler().ServeHTTP(c.Writer, c.Request)
}
