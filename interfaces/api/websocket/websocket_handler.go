package websocket

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	websocketManager "criminal-registry/infrastructure/websocket"
	"criminal-registry/pkg/logger"
)

type WebSocketHandler struct {
	hub *websocketManager.Hub
}

func NewWebSocketHandler(hub *websocketManager.Hub) *WebSocketHandler {
	return &WebSocketHandler{hub: hub}
}

func (h *WebSocketHandler) WebSocketUpgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// parseTopics reads ?topics=record:created,search:completed
func parseTopics(raw string) []string {
	if raw == "" {
		return nil
	}
	var topics []string
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			topics = append(topics, t)
		}
	}
	return topics
}

func (h *WebSocketHandler) HandleWebSocket(c *websocket.Conn) {
	clientID := h.hub.RegisterClient(c, parseTopics(c.Query("topics", "")))

	defer func() {
		h.hub.UnregisterClient(c)
	}()

	for {
		_, message, err := c.ReadMessage()
		if err != nil {
			logger.WebSocketError("read_message", "WebSocket read error", err, map[string]interface{}{"client_id": clientID.String()})
			break
		}

		h.hub.HandleMessage(c, message)
	}
}
