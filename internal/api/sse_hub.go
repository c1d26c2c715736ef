package api

import (
	"encoding/json"
	"io"
	"log"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// Run event types
const (
	EventProgress  = "progress"
	EventCompleted = "completed"
	EventFailed    = "failed"
)

// terminalSendTimeout bounds how long Broadcast waits to queue a completed
// or failed event when the hub is backed up.
const terminalSendTimeout = 5 * time.Second

// SSEClient represents a connected SSE client
type SSEClient struct {
	StreamID string
	Channel  chan RunEvent
}

// RunEvent reports the progress of a run to clients watching its stream
type RunEvent struct {
	StreamID  string    `json:"stream_id"`
	EventType string    `json:"event_type"`
	RunID     string    `json:"run_id,omitempty"`
	Progress  float64   `json:"progress"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// SSEHub fans run events out to Server-Sent Events clients. A client
// subscribes to a stream ID chosen by the caller and passes the same ID when
// it starts a run.
type SSEHub struct {
	clients    map[string]map[chan RunEvent]bool
	clientsMu  sync.RWMutex
	register   chan SSEClient
	unregister chan SSEClient
	broadcast  chan RunEvent
	done       chan struct{}
	closeOnce  sync.Once
}

// NewSSEHub creates a new SSE hub
func NewSSEHub() *SSEHub {
	hub := &SSEHub{
		clients:    make(map[string]map[chan RunEvent]bool),
		register:   make(chan SSEClient, 10),
		unregister: make(chan SSEClient, 10),
		broadcast:  make(chan RunEvent, 100),
		done:       make(chan struct{}),
	}

	go hub.run()
	return hub
}

// Close stops the hub loop.
func (h *SSEHub) Close() {
	h.closeOnce.Do(func() { close(h.done) })
}

func (h *SSEHub) run() {
	for {
		select {
		case <-h.done:
			return

		case client := <-h.register:
			h.clientsMu.Lock()
			if h.clients[client.StreamID] == nil {
				h.clients[client.StreamID] = make(map[chan RunEvent]bool)
			}
			h.clients[client.StreamID][client.Channel] = true
			h.clientsMu.Unlock()

		case client := <-h.unregister:
			h.clientsMu.Lock()
			if clients, exists := h.clients[client.StreamID]; exists {
				delete(clients, client.Channel)
				if len(clients) == 0 {
					delete(h.clients, client.StreamID)
				}
			}
			h.clientsMu.Unlock()

		case event := <-h.broadcast:
			h.clientsMu.RLock()
			for clientChan := range h.clients[event.StreamID] {
				deliver(clientChan, event)
			}
			h.clientsMu.RUnlock()
		}
	}
}

// deliver queues event on a client channel. Progress events are skipped
// when the client is behind; a terminal event evicts the oldest queued
// event instead, so the stream always sees how the run ended. The hub loop
// is the only sender, so after one eviction there is room.
func deliver(ch chan RunEvent, event RunEvent) {
	for {
		select {
		case ch <- event:
			return
		default:
		}
		if event.EventType == EventProgress {
			log.Printf("[SSE] Client channel full for stream %s, skipping progress event", event.StreamID)
			return
		}
		select {
		case <-ch:
		default:
		}
	}
}

// Subscribe registers a client channel for a stream and returns a function
// that unregisters it. The channel holds at least one event.
func (h *SSEHub) Subscribe(streamID string, buffer int) (<-chan RunEvent, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan RunEvent, buffer)
	select {
	case h.register <- SSEClient{StreamID: streamID, Channel: ch}:
	case <-h.done:
	}
	return ch, func() {
		select {
		case h.unregister <- SSEClient{StreamID: streamID, Channel: ch}:
		case <-h.done:
		}
	}
}

// Broadcast sends an event to all clients listening to a stream
func (h *SSEHub) Broadcast(event RunEvent) {
	if event.StreamID == "" {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.EventType == EventProgress {
		select {
		case h.broadcast <- event:
		default:
			log.Printf("[SSE] Broadcast channel full, dropping progress event")
		}
		return
	}

	timer := time.NewTimer(terminalSendTimeout)
	defer timer.Stop()
	select {
	case h.broadcast <- event:
	case <-h.done:
	case <-timer.C:
		log.Printf("[SSE] Broadcast channel full, dropping %s event for stream %s", event.EventType, event.StreamID)
	}
}

// HandleSSE streams run events for the stream_id query parameter
func (h *SSEHub) HandleSSE(c *gin.Context) {
	streamID := c.Query("stream_id")
	if streamID == "" {
		c.JSON(400, gin.H{"error": "stream_id parameter required"})
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	events, unsubscribe := h.Subscribe(streamID, 16)
	defer unsubscribe()

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case event := <-events:
			eventJSON, err := json.Marshal(event)
			if err != nil {
				log.Printf("[SSE] Failed to marshal event: %v", err)
				return true
			}
			c.SSEvent(event.EventType, string(eventJSON))
			// The stream ends with the run.
			return event.EventType == EventProgress

		case <-time.After(30 * time.Second):
			c.SSEvent("ping", `{"status": "alive", "timestamp": "`+time.Now().Format(time.RFC3339)+`"}`)
			return true

		case <-ctx.Done():
			return false
		}
	})
}

// ClientCount returns the number of active clients for a stream
func (h *SSEHub) ClientCount(streamID string) int {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	return len(h.clients[streamID])
}
