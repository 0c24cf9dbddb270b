package biometric

import (
	"errors"
	"fmt"
)

var (
	// ErrNoFaceDetected means the slot held no observation when it was sampled.
	ErrNoFaceDetected = errors.New("no face detected")

	// ErrMultipleFacesDetected means the slot held more than one observation.
	ErrMultipleFacesDetected = errors.New("multiple faces detected")

	// ErrEmptyIdentityLabel rejects an enrollment without a name.
	ErrEmptyIdentityLabel = errors.New("identity label is required")

	// ErrNoValidSamples means an enrollment reached finalization without any accepted descriptor.
	ErrNoValidSamples = errors.New("no valid samples")

	// ErrTransport wraps failures to reach the identity server or read its reply.
	ErrTransport = errors.New("transport failure")

	// ErrMalformedResponse means the identity server replied with something that is not the expected JSON.
	ErrMalformedResponse = errors.New("malformed response")

	// ErrDimensionMismatch means a descriptor does not have the expected number of values.
	ErrDimensionMismatch = errors.New("descriptor dimension mismatch")
)

// ServerRejectedError carries the reason the identity server gave for refusing a request.
type ServerRejectedError struct {
	Reason string
}

func (e *ServerRejectedError) Error() string {
	if e.Reason == "" {
		return "server rejected request"
	}
	return fmt.Sprintf("server rejected request: %s", e.Reason)
}

// RejectionReason returns the server supplied reason if err is a rejection.
func RejectionReason(err error) (string, bool) {
	var rejected *ServerRejectedError
	if errors.As(err, &rejected) {
		return rejected.Reason, true
	}
	return "", false
}
