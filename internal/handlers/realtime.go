// internal/handlers/realtime.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/urbanthreads/storefront-backend/internal/models"
	"github.com/urbanthreads/storefront-backend/internal/realtime"
	"github.com/urbanthreads/storefront-backend/internal/utils"
)

type RealtimeHandler struct {
	hub      *realtime.Hub
	upgrader websocket.Upgrader
}

func NewRealtimeHandler(hub *realtime.Hub, allowedOrigin string) *RealtimeHandler {
	return &RealtimeHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				if allowedOrigin == "" || allowedOrigin == "*" {
					return true
				}
				return r.Header.Get("Origin") == allowedOrigin
			},
		},
	}
}

// GET /ws
// Anonymous connections are accepted and receive public events. Admin group
// membership requires a token whose role claim is admin; the token comes
// from the Authorization header or, for browser WebSocket clients that
// cannot set headers, a token query parameter.
func (h *RealtimeHandler) Serve(c *gin.Context) {
	isAdmin := false

	token := extractToken(c)
	if token != "" {
		if claims, err := utils.ValidateJWT(token); err == nil {
			isAdmin = claims.Role == string(models.UserRoleAdmin)
		} else {
			logrus.WithError(err).Debug("WebSocket connection with invalid token")
		}
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logrus.WithError(err).Warn("WebSocket upgrade failed")
		return
	}

	client := realtime.NewClient(h.hub, conn, isAdmin)
	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()
}

func extractToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if len(authHeader) > 7 && authHeader[:7] == "Bearer " {
		return authHeader[7:]
	}
	return c.Query("token")
}
