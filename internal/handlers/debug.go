package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"alumni-chat-service/internal/telemetry"
	"alumni-chat-service/internal/ws"
)

// RegisterDebugRoutes wires debug-only endpoints.
func RegisterDebugRoutes(router *gin.Engine, emitter *telemetry.AuditEmitter, notifier ws.Notifier, enabled bool) {
	if !enabled {
		return
	}

	router.GET("/debug/audit-test", func(c *gin.Context) {
		if emitter == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "audit emitter not configured"})
			return
		}
		emitter.Emit(c.Request.Context(), "INFO", "audit test", requestIDFromContext(c), userIDFromContext(c))
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.POST("/debug/notify-test", func(c *gin.Context) {
		var req struct {
			UserID  string `json:"user_id"`
			College string `json:"college"`
			Message string `json:"message"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		payload := map[string]any{"type": "debug", "message": req.Message}
		switch {
		case req.UserID != "":
			notifier.PushToUser(req.UserID, ws.EventNewNotification, payload)
		case req.College != "":
			notifier.BroadcastToCollege(req.College, ws.EventNewNotification, payload)
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "user_id or college is required"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}
