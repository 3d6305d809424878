package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/qs3c/brevity_server/internal/api/middleware"
	"github.com/qs3c/brevity_server/internal/pkg/pubsub"
	"github.com/qs3c/brevity_server/internal/pkg/response"
	"github.com/qs3c/brevity_server/internal/pkg/ws"
)

type WebSocketHandler struct {
	hub      *ws.Hub
	upgrader websocket.Upgrader
}

// NewWebSocketHandler allowedOrigins 为空时只接受不带 Origin 的连接
func NewWebSocketHandler(hub *ws.Hub, allowedOrigins []string) *WebSocketHandler {
	origins := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		origins[o] = struct{}{}
	}

	return &WebSocketHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				_, ok := origins[origin]
				return ok
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// Handle WebSocket 连接，推送当前会话的发布进度
// GET /api/v1/ws
func (h *WebSocketHandler) Handle(c *gin.Context) {
	sessionID, ok := middleware.GetSessionID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.WithError(err).Warn("failed to upgrade connection")
		return
	}

	client := &ws.Client{
		SessionID: sessionID,
		Conn:      conn,
	}
	h.hub.Register(client)

	// 保持连接，读取消息（主要用于检测断开）
	go func() {
		defer func() {
			h.hub.Unregister(client)
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	}()
}

// Relay 把 Redis 上的进度消息转发给对应会话
func (h *WebSocketHandler) Relay(msg *pubsub.ProgressMessage) {
	sessionID := msg.SessionID
	if sessionID == "" || !h.hub.IsOnline(sessionID) {
		return
	}
	out := *msg
	out.SessionID = ""

	if err := h.hub.SendToSession(sessionID, &ws.Message{Type: out.Type, Data: out}); err != nil {
		log.WithError(err).Warn("failed to relay progress")
	}
}
