package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mugz-josh/Deliverieseasy/internal/api/dto"
	"github.com/mugz-josh/Deliverieseasy/pkg/logger"
)

// Version is reported by the root banner
const Version = "1.0.0"

// Health handles GET /health
func (h *Handlers) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	resp := dto.HealthResponse{
		Status:    "OK",
		Timestamp: time.Now().UTC(),
		Uptime:    time.Since(h.startTime).Seconds(),
		Database:  "connected",
	}
	if h.Hub != nil {
		resp.Connections = h.Hub.GetActiveConnections()
	}

	if err := h.DB.Ping(ctx); err != nil {
		h.Logger.Error("Health check database ping failed", logger.Err(err))
		resp.Status = "ERROR"
		resp.Database = "disconnected"
		c.JSON(http.StatusServiceUnavailable, resp)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Root handles GET /
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "Welcome to Deliveries App API",
		"version": Version,
		"status":  "running",
	})
}
