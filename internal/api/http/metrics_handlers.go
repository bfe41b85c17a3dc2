package http

import (
	"net/http"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/metricsvc/internal/infrastructure/monitoring"
)

// MetricsJSON serves the current registry snapshot as JSON
func (h *Handlers) MetricsJSON(c *gin.Context) {
	families, err := h.registry.Snapshot()
	if err != nil && len(families) == 0 {
		h.logger.Error("Failed to gather metrics", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Error gathering metrics: " + err.Error(),
		})
		return
	}
	if err != nil {
		h.logger.Warn("Partial metrics snapshot", zap.Error(err))
	}

	body, err := sonic.Marshal(gin.H{
		"timestamp": h.timestamp(),
		"families":  monitoring.Summarize(families),
	})
	if err != nil {
		h.logger.Error("Failed to encode metrics", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Error encoding metrics: " + err.Error(),
		})
		return
	}

	c.Data(http.StatusOK, "application/json; charset=utf-8", body)
}
