package realtime

import (
	"encoding/json"
	"sync"

	"github.com/gin-gonic/gin"
)

// FleetEvent represents an SSE payload for channel lifecycle updates.
type FleetEvent struct {
	Type      string  `json:"type"`
	ChannelID string  `json:"channel_id"`
	State     string  `json:"state"`
	CycleID   *string `json:"cycle_id,omitempty"`
	Error     *string `json:"error,omitempty"`
}

// Hub maintains operator subscribers listening for fleet events. Every
// subscriber sees every event; the fleet has one shared ops surface.
type Hub struct {
	mu   sync.RWMutex
	subs map[chan FleetEvent]struct{}
}

func NewFleetHub() *Hub {
	return &Hub{subs: make(map[chan FleetEvent]struct{})}
}

// Serve registers an SSE stream for the authenticated operator.
func (h *Hub) Serve(c *gin.Context) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no") // disable nginx buffering

	ch := make(chan FleetEvent, 8)
	h.addSubscriber(ch)
	defer h.removeSubscriber(ch)

	// Initial comment to keep connection open
	c.Writer.Write([]byte(":ok\n\n"))
	c.Writer.Flush()

	notify := c.Writer.CloseNotify()
	for {
		select {
		case <-notify:
			return
		case evt := <-ch:
			data, _ := json.Marshal(evt)
			_, _ = c.Writer.Write([]byte("event: fleet\n"))
			_, _ = c.Writer.Write([]byte("data: "))
			_, _ = c.Writer.Write(data)
			_, _ = c.Writer.Write([]byte("\n\n"))
			c.Writer.Flush()
		case <-c.Request.Context().Done():
			return
		}
	}
}

func (h *Hub) addSubscriber(ch chan FleetEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.subs[ch] = struct{}{}
}

func (h *Hub) removeSubscriber(ch chan FleetEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[ch]; ok {
		delete(h.subs, ch)
		close(ch)
	}
}

// Broadcast fans an event out to every connected subscriber.
func (h *Hub) Broadcast(evt FleetEvent) {
	h.mu.RLock()
	for ch := range h.subs {
		select { // non-blocking
		case ch <- evt:
		default:
		}
	}
	h.mu.RUnlock()
}

// BroadcastStateChange publishes a channel state transition.
func (h *Hub) BroadcastStateChange(channelID, state string) {
	h.Broadcast(FleetEvent{Type: "state_change", ChannelID: channelID, State: state})
}
