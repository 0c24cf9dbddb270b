package session

import (
	"sync"
	"time"

	"github.com/princesingh-ai-dev/faceauth/internal/constants"
)

// StatusKind is the severity of a status message.
type StatusKind string

// StatusKind values mirror how a front end colours the status line.
const (
	StatusInfo    StatusKind = "info"
	StatusError   StatusKind = "error"
	StatusSuccess StatusKind = "success"
)

// Status is one human readable feedback message emitted by a session.
type Status struct {
	Session  string     `json:"session"`
	Kind     StatusKind `json:"kind"`
	Message  string     `json:"message"`
	Progress int        `json:"progress,omitempty"`
	Target   int        `json:"target,omitempty"`
	At       time.Time  `json:"at"`
}

// Notifier receives session feedback. Implementations must not block.
type Notifier interface {
	Notify(Status)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(Status)

// Notify calls f.
func (f NotifierFunc) Notify(s Status) {
	f(s)
}

// Discard drops every status.
var Discard Notifier = NotifierFunc(func(Status) {})

// Broadcaster fans statuses out to any number of listeners.
// Slow listeners lose messages instead of stalling a session.
type Broadcaster struct {
	listeners []chan Status
	mu        sync.RWMutex
}

// NewBroadcaster creates a broadcaster with no listeners.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{}
}

// AddListener adds an event listener.
func (b *Broadcaster) AddListener() chan Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan Status, constants.EventChannelBuffer)
	b.listeners = append(b.listeners, ch)
	return ch
}

// RemoveListener removes and closes an event listener.
func (b *Broadcaster) RemoveListener(ch chan Status) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, listener := range b.listeners {
		if listener == ch {
			b.listeners = append(b.listeners[:i], b.listeners[i+1:]...)
			close(ch)
			return
		}
	}
}

// Notify sends s to all listeners.
func (b *Broadcaster) Notify(s Status) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, listener := range b.listeners {
		select {
		case listener <- s:
		default:
			// Listener buffer full, skip.
		}
	}
}
