package devserver

import (
	"cherrypick/client/internal/observability"

	"github.com/gin-gonic/gin"
)

// NewRouter wires the REST routes under /api and the gateway at /ws.
func NewRouter(h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery(), observability.HTTPMetricsMiddleware())

	r.GET("/ws", h.ServeWebSocket)

	api := r.Group("/api")
	api.POST("/auth/login", h.Login)

	authed := api.Group("", h.RequireAuth())
	authed.GET("/users/profile", h.Profile)
	authed.GET("/chat/rooms/my", h.MyRooms)
	authed.GET("/chat/unread-count", h.UnreadCount)
	authed.GET("/chat/rooms/:roomId/messages", h.GetMessages)
	authed.POST("/chat/rooms/:roomId/messages", h.PostMessage)
	authed.PUT("/chat/rooms/:roomId/messages/read-all", h.MarkAllRead)
	authed.PUT("/chat/rooms/:roomId/messages/:messageId/read", h.MarkRead)
	authed.POST("/chat/rooms/:roomId/leave", h.LeaveRoom)
	authed.POST("/bids", h.PlaceBid)

	return r
}
