package api

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/net/websocket"
)

// HandleWebSocket delivers the same run events as HandleSSE over a
// WebSocket, one JSON message per event. The socket closes after the
// terminal event of the run.
func (h *SSEHub) HandleWebSocket(c *gin.Context) {
	streamID := c.Query("stream_id")
	if streamID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "stream_id parameter required"})
		return
	}

	websocket.Handler(func(ws *websocket.Conn) {
		defer ws.Close()

		events, unsubscribe := h.Subscribe(streamID, 16)
		defer unsubscribe()

		ctx := ws.Request().Context()
		for {
			select {
			case event := <-events:
				if err := websocket.JSON.Send(ws, event); err != nil {
					log.Printf("[WS] Send to stream %s failed: %v", streamID, err)
					return
				}
				if event.EventType != EventProgress {
					return
				}
			case <-ctx.Done():
				return
			case <-h.done:
				return
			}
		}
	}).ServeHTTP(c.Writer, c.Request)
}
