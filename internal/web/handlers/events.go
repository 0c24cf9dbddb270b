package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/princesingh-ai-dev/faceauth/internal/constants"
)

// Activity event types.
const (
	EventRegistered = "registered"
	EventDeleted    = "deleted"
	EventVerified   = "verified"
	EventDenied     = "denied"
)

// ActivityEvent is one protocol action streamed to /api/events listeners.
type ActivityEvent struct {
	ID      string    `json:"id"`
	Type    string    `json:"type"`
	Name    string    `json:"name,omitempty"`
	Message string    `json:"message,omitempty"`
	At      time.Time `json:"at"`
}

// ActivityFeed fans activity events out to SSE listeners.
type ActivityFeed struct {
	listeners []chan ActivityEvent
	mu        sync.RWMutex
}

// NewActivityFeed creates a feed without listeners.
func NewActivityFeed() *ActivityFeed {
	return &ActivityFeed{}
}

// AddListener adds an event listener.
func (f *ActivityFeed) AddListener() chan ActivityEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan ActivityEvent, constants.EventChannelBuffer)
	f.listeners = append(f.listeners, ch)
	return ch
}

// RemoveListener removes an event listener.
func (f *ActivityFeed) RemoveListener(ch chan ActivityEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, listener := range f.listeners {
		if listener == ch {
			f.listeners = append(f.listeners[:i], f.listeners[i+1:]...)
			close(ch)
			return
		}
	}
}

// Listeners returns the number of connected listeners.
func (f *ActivityFeed) Listeners() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.listeners)
}

// Publish stamps event and sends it to all listeners. Slow listeners miss events.
func (f *ActivityFeed) Publish(eventType, name, message string) {
	event := ActivityEvent{
		ID:      uuid.NewString(),
		Type:    eventType,
		Name:    name,
		Message: message,
		At:      time.Now().UTC(),
	}

	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, listener := range f.listeners {
		select {
		case listener <- event:
		default:
			// Listener buffer full, skip.
		}
	}
}

// Stream handles GET /api/events, streaming activity until the client disconnects.
func (f *ActivityFeed) Stream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		respondResult(w, http.StatusInternalServerError, false, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	eventCh := f.AddListener()
	defer f.RemoveListener(eventCh)

	sendSSEEvent(w, flusher, "connected", map[string]int{"listeners": f.Listeners()})

	for {
		select {
		case <-r.Context().Done():
			return
		case event, ok := <-eventCh:
			if !ok {
				return
			}
			sendSSEEvent(w, flusher, event.Type, event)
		}
	}
}

func sendSSEEvent(w http.ResponseWriter, flusher http.Flusher, eventType string, data any) {
	jsonData, _ := json.Marshal(data)
	_, _ = io.WriteString(w, "event: "+eventType+"\n")
	_, _ = io.WriteString(w, "data: ")
	_, _ = io.Copy(w, bytes.NewReader(jsonData))
	_, _ = io.WriteString(w, "\n\n")
	flusher.Flush()
}
