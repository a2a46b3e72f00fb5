package handlers

import (
	"github.com/gin-gonic/gin"
	apperrors "github.com/mugz-josh/Deliverieseasy/pkg/errors"
	"github.com/mugz-josh/Deliverieseasy/pkg/logger"
	"github.com/mugz-josh/Deliverieseasy/pkg/websocket"
)

// HandleWebSocket handles GET /api/ws
func (h *Handlers) HandleWebSocket(c *gin.Context) {
	userID := c.Query("user_id")
	userType := c.Query("user_type")
	if userID == "" || userType == "" {
		h.Logger.Warn("Missing user_id or user_type in WebSocket connection")
		h.respondError(c, apperrors.Validation("user_id and user_type are required", nil))
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.Logger.Warn("Failed to upgrade to WebSocket", logger.Err(err))
		return
	}

	client := websocket.NewClient(h.Hub, conn, userID, userType, h.Logger)
	h.Hub.Register(client)

	go client.WritePump()
	go client.ReadPump()
}
