package realtime

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"

	"social-ops/domain/model"
)

// PublishStatusEvent represents an SSE payload for publish status updates.
type PublishStatusEvent struct {
	Type        string  `json:"type"`
	TaskID      string  `json:"task_id"`
	Platform    string  `json:"platform,omitempty"`
	Status      string  `json:"status"`
	ExternalURL *string `json:"external_url,omitempty"`
	Error       *string `json:"error,omitempty"`
}

// Hub maintains per-user subscribers listening for publish status events.
type Hub struct {
	mu    sync.RWMutex
	users map[string]map[chan PublishStatusEvent]struct{}
}

func NewPublishHub() *Hub {
	return &Hub{users: make(map[string]map[chan PublishStatusEvent]struct{})}
}

// Serve registers an SSE stream for the authenticated user (user_id set by middleware).
func (h *Hub) Serve(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.Status(http.StatusUnauthorized)
		return
	}
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no") // disable nginx buffering

	ch := make(chan PublishStatusEvent, 8)
	h.addSubscriber(userID, ch)
	defer h.removeSubscriber(userID, ch)

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
			_, _ = c.Writer.Write([]byte("event: publish_status\n"))
			_, _ = c.Writer.Write([]byte("data: "))
			_, _ = c.Writer.Write(data)
			_, _ = c.Writer.Write([]byte("\n\n"))
			c.Writer.Flush()
		case <-c.Request.Context().Done():
			return
		}
	}
}

func (h *Hub) addSubscriber(userID string, ch chan PublishStatusEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.users[userID] == nil {
		h.users[userID] = make(map[chan PublishStatusEvent]struct{})
	}
	h.users[userID][ch] = struct{}{}
}

func (h *Hub) removeSubscriber(userID string, ch chan PublishStatusEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if subs := h.users[userID]; subs != nil {
		delete(subs, ch)
		close(ch)
		if len(subs) == 0 {
			delete(h.users, userID)
		}
	}
}

// BroadcastPlatformResult notifies the task owner's streams about one
// platform's outcome.
func (h *Hub) BroadcastPlatformResult(ownerID string, rec *model.PublishRecord) {
	if rec == nil {
		return
	}
	evt := PublishStatusEvent{
		Type:        "publish_status",
		TaskID:      rec.TaskID,
		Platform:    string(rec.Platform),
		Status:      string(rec.Status),
		ExternalURL: rec.ExternalURL,
		Error:       rec.ErrorMessage,
	}
	h.broadcast(ownerID, evt)
}

// BroadcastTaskStatus notifies the task owner's streams about an aggregate
// status change.
func (h *Hub) BroadcastTaskStatus(ownerID, taskID string, status model.TaskStatus) {
	evt := PublishStatusEvent{
		Type:   "task_status",
		TaskID: taskID,
		Status: string(status),
	}
	h.broadcast(ownerID, evt)
}

func (h *Hub) broadcast(ownerID string, evt PublishStatusEvent) {
	h.mu.RLock()
	subs := h.users[ownerID]
	for ch := range subs {
		select { // non-blocking
		case ch <- evt:
		default:
		}
	}
	h.mu.RUnlock()
}
