package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/ydjemai93/test-drive/internal/events"
	"github.com/ydjemai93/test-drive/pkg/logger"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Dashboard is served from a different origin
	},
}

type StreamHandler struct {
	hub *events.Hub
}

func NewStreamHandler(hub *events.Hub) *StreamHandler {
	return &StreamHandler{hub: hub}
}

// StreamCall upgrades to a WebSocket and relays live events for one call
// job until the client disconnects.
func (h *StreamHandler) StreamCall(c *gin.Context) {
	jobID := c.Param("job_id")

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Log.Errorf("WebSocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	ch, cancel := h.hub.Subscribe(jobID)
	defer cancel()

	logger.Log.Infof("Event stream opened for call %s", jobID)

	// Reader goroutine only watches for the client closing the socket.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(30 * time.Second)
	defer ping.Stop()

	for {
		select {
		case <-closed:
			logger.Log.Infof("Event stream closed for call %s", jobID)
			return
		case ev := <-ch:
			if err := conn.WriteJSON(ev); err != nil {
				logger.Log.Warnf("Event stream write failed for call %s: %v", jobID, err)
				return
			}
		case <-ping.C:
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
