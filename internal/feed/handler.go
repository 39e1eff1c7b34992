package feed

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/richyrich98/dotanddot/pkg/logger"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // In production, validate origin properly
	},
}

type Handler struct {
	hub    *Hub
	logger logger.Logger
}

func NewHandler(hub *Hub, log logger.Logger) *Handler {
	return &Handler{
		hub:    hub,
		logger: log,
	}
}

func (h *Handler) HandleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("failed to upgrade feed connection", "error", err)
		return
	}

	client := NewClient(h.hub, conn)
	h.hub.register <- client

	go client.WritePump()
	client.ReadPump()
}
