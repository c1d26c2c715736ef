package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/websocket"
)

func TestHandleWebSocket_DeliversUntilTerminalEvent(t *testing.T) {
	hub := NewSSEHub()
	defer hub.Close()
	srv := httptest.NewServer(newTestRouter(t, hub))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/events/ws?stream_id=w1"
	ws, err := websocket.Dial(wsURL, "", srv.URL)
	require.NoError(t, err)
	defer ws.Close()
	require.Eventually(t, func() bool { return hub.ClientCount("w1") == 1 }, time.Second, 5*time.Millisecond)

	hub.Broadcast(RunEvent{StreamID: "w1", EventType: EventProgress, Progress: 0.5})
	hub.Broadcast(RunEvent{StreamID: "w1", EventType: EventCompleted, RunID: "r1", Progress: 1})

	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	var ev RunEvent
	require.NoError(t, websocket.JSON.Receive(ws, &ev))
	assert.Equal(t, EventProgress, ev.EventType)
	assert.Equal(t, 0.5, ev.Progress)

	require.NoError(t, websocket.JSON.Receive(ws, &ev))
	assert.Equal(t, EventCompleted, ev.EventType)
	assert.Equal(t, "r1", ev.RunID)

	assert.Error(t, websocket.JSON.Receive(ws, &ev))
}

func TestHandleWebSocket_RequiresStreamID(t *testing.T) {
	hub := NewSSEHub()
	defer hub.Close()
	w := do(t, newTestRouter(t, hub), http.MethodGet, "/api/events/ws", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
