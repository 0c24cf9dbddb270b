// Package constants provides shared constants used across the codebase.
package constants

// Event channel constants
const (
	// EventChannelBuffer is the buffer size for event channels
	EventChannelBuffer = 100
)

// Request limits
const (
	// MaxRequestBodySize caps protocol request bodies (a 128 float descriptor is a few KB)
	MaxRequestBodySize = 1 << 20

	// MaxResponseBodySize caps how much of a protocol response the client reads
	MaxResponseBodySize = 1 << 20

	// ResponseSnippetLength is how much of an unparseable response is quoted in errors
	ResponseSnippetLength = 50
)
