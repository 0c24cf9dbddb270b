package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/princesingh-ai-dev/faceauth/internal/biometric"
)

// Verifier matches a probe descriptor against the enrolled identities.
type Verifier interface {
	Verify(ctx context.Context, descriptor biometric.Embedding) (biometric.Match, error)
}

// VerifyState is the lifecycle state of a verification attempt.
type VerifyState int

const (
	VerifyIdle VerifyState = iota
	VerifyPending
	VerifyGranted
	VerifyDenied
	VerifyFailed
)

func (s VerifyState) String() string {
	switch s {
	case VerifyIdle:
		return "idle"
	case VerifyPending:
		return "verifying"
	case VerifyGranted:
		return "granted"
	case VerifyDenied:
		return "denied"
	case VerifyFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Outcome is the result of one verification attempt.
type Outcome struct {
	State VerifyState
	Name  string
}

// Granted reports whether access was granted.
func (o Outcome) Granted() bool {
	return o.State == VerifyGranted
}

// Verification is a single-shot authentication against one slot snapshot.
type Verification struct {
	id       string
	slot     SlotReader
	verifier Verifier
	notifier Notifier
	logger   *slog.Logger

	mu         sync.Mutex
	state      VerifyState
	descriptor biometric.Embedding
}

// NewVerification creates an idle verification session.
func NewVerification(slot SlotReader, verifier Verifier, notifier Notifier, logger *slog.Logger) *Verification {
	if notifier == nil {
		notifier = Discard
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Verification{
		id:       uuid.NewString(),
		slot:     slot,
		verifier: verifier,
		notifier: notifier,
		logger:   logger,
	}
}

// ID returns the session identifier.
func (v *Verification) ID() string {
	return v.id
}

// State returns the current lifecycle state.
func (v *Verification) State() VerifyState {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

// Descriptor returns the descriptor that was sent, nil if the gate rejected the snapshot.
func (v *Verification) Descriptor() biometric.Embedding {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.descriptor
}

// Attempt gates the current snapshot once and, if a single face is present,
// makes exactly one verify call. A mismatch is a Denied outcome, not an error.
func (v *Verification) Attempt(ctx context.Context) (Outcome, error) {
	v.mu.Lock()
	if v.state != VerifyIdle {
		v.mu.Unlock()
		return Outcome{State: v.state}, ErrSessionStarted
	}
	v.state = VerifyPending
	v.mu.Unlock()

	result := biometric.Gate(v.slot.Load().Observations)
	switch result.Verdict {
	case biometric.RejectedNone:
		return v.finish(VerifyFailed, "", StatusError, msgNoFaceAlert), result.Err()
	case biometric.RejectedMultiple:
		return v.finish(VerifyFailed, "", StatusError, msgMultipleFacesAlert), result.Err()
	}

	v.mu.Lock()
	v.descriptor = result.Embedding
	v.mu.Unlock()
	v.notify(StatusInfo, msgVerifying)

	match, err := v.verifier.Verify(ctx, result.Embedding)
	if err != nil {
		v.logger.Warn("verification failed", "session", v.id, "error", err)
		if reason, ok := biometric.RejectionReason(err); ok {
			return v.finish(VerifyFailed, "", StatusError, msgServerError(reason)), err
		}
		return v.finish(VerifyFailed, "", StatusError, msgVerifyFailed), err
	}

	if !match.Matched {
		v.logger.Info("verification denied", "session", v.id)
		return v.finish(VerifyDenied, "", StatusError, msgMismatch), nil
	}
	v.logger.Info("verification granted", "session", v.id, "name", match.Name)
	return v.finish(VerifyGranted, match.Name, StatusSuccess, msgAccessGranted(match.Name)), nil
}

func (v *Verification) finish(state VerifyState, name string, kind StatusKind, message string) Outcome {
	v.mu.Lock()
	v.state = state
	v.mu.Unlock()
	v.notify(kind, message)
	return Outcome{State: state, Name: name}
}

func (v *Verification) notify(kind StatusKind, message string) {
	v.notifier.Notify(Status{Session: v.id, Kind: kind, Message: message, At: time.Now()})
}
