// Package feed samples the detection collaborator on a fixed cadence and
// publishes the result into a shared Slot.
package feed

import (
	"context"
	"errors"

	"github.com/princesingh-ai-dev/faceauth/internal/biometric"
)

// StreamState is the playback state of a camera stream.
type StreamState int

const (
	StreamIdle StreamState = iota
	StreamActive
	StreamPaused
	StreamEnded
)

func (s StreamState) String() string {
	switch s {
	case StreamIdle:
		return "idle"
	case StreamActive:
		return "active"
	case StreamPaused:
		return "paused"
	case StreamEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// ErrNoFrame is returned by Stream.Frame before the first frame arrives.
var ErrNoFrame = errors.New("no frame available")

// Stream is a live video source. Frame returns the latest encoded frame.
type Stream interface {
	State() StreamState
	Frame() ([]byte, error)
	Close() error
}

// StreamOpener opens a stream for a device identifier.
type StreamOpener interface {
	Open(ctx context.Context, device string) (Stream, error)
}

// Detector turns one frame into zero or more face observations.
type Detector interface {
	Detect(ctx context.Context, frame []byte) ([]biometric.Observation, error)
}

// DetectorFunc adapts a function to the Detector interface.
type DetectorFunc func(ctx context.Context, frame []byte) ([]biometric.Observation, error)

// Detect calls f.
func (f DetectorFunc) Detect(ctx context.Context, frame []byte) ([]biometric.Observation, error) {
	return f(ctx, frame)
}
