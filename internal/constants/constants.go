// Package constants provides shared constants used across the codebase.
// Centralizing these values ensures consistency and makes them easier to modify.
package constants

import "time"

// Descriptor constants
const (
	// EmbeddingDim is the number of values in a face descriptor
	EmbeddingDim = 128
)

// Capture cadence constants
const (
	// FeedInterval is how often the observation feed samples the detector
	FeedInterval = 100 * time.Millisecond

	// CaptureInterval is how often an enrollment session reads the shared slot.
	// It is slower than FeedInterval so that most reads see a fresh publish.
	CaptureInterval = 200 * time.Millisecond

	// TargetSamples is the number of accepted descriptors averaged into a template
	TargetSamples = 10
)

// Face matching constants
const (
	// MaxImageSize is the maximum dimension (width or height) of a frame sent to the detector
	MaxImageSize = 640
)

// Camera constants
const (
	// DefaultCameraDevice is the capture device used when none is configured
	DefaultCameraDevice = "/dev/video0"

	// CameraLockTimeout bounds how long opening a device waits for another process to release it
	CameraLockTimeout = 2 * time.Second

	// WarmupTimeout bounds how long the verify command waits for the first feed publish
	WarmupTimeout = 10 * time.Second
)
