// Package session implements the enrollment and verification workflows that
// consume the shared detection slot.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/princesingh-ai-dev/faceauth/internal/biometric"
	"github.com/princesingh-ai-dev/faceauth/internal/constants"
	"github.com/princesingh-ai-dev/faceauth/internal/feed"
)

var (
	// ErrSessionStarted is returned when a one-shot session is started twice.
	ErrSessionStarted = errors.New("session already started")

	// ErrSessionCancelled is reported by an enrollment whose capture loop was cancelled.
	ErrSessionCancelled = errors.New("session cancelled")
)

// SlotReader exposes the latest feed snapshot.
type SlotReader interface {
	Load() feed.Snapshot
}

// Registrar stores a finished template under a label.
type Registrar interface {
	Register(ctx context.Context, name string, template biometric.Template) error
}

// State is the lifecycle state of an enrollment session.
type State int

const (
	StateIdle State = iota
	StateCapturing
	StateFinalizing
	StateComplete
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateCapturing:
		return "capturing"
	case StateFinalizing:
		return "finalizing"
	case StateComplete:
		return "complete"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition can happen from s.
func (s State) Terminal() bool {
	return s == StateComplete || s == StateFailed
}

// Options tunes the capture cadence of a session.
type Options struct {
	Interval time.Duration
	Target   int
	Notifier Notifier
	Logger   *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.Interval <= 0 {
		o.Interval = constants.CaptureInterval
	}
	if o.Target <= 0 {
		o.Target = constants.TargetSamples
	}
	if o.Notifier == nil {
		o.Notifier = Discard
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// Enrollment collects Target gated descriptors on its own ticker, averages
// them and registers the template. A session is used once.
type Enrollment struct {
	id        string
	slot      SlotReader
	registrar Registrar
	opts      Options

	mu        sync.Mutex
	label     string
	state     State
	samples   []biometric.Embedding
	template  biometric.Template
	err       error
	cancelled bool
	stopTick  context.CancelFunc
	ticking   chan struct{}
	done      chan struct{}
}

// NewEnrollment creates an idle enrollment session.
func NewEnrollment(slot SlotReader, registrar Registrar, opts Options) *Enrollment {
	opts = opts.withDefaults()
	return &Enrollment{
		id:        uuid.NewString(),
		slot:      slot,
		registrar: registrar,
		opts:      opts,
		state:     StateIdle,
		done:      make(chan struct{}),
	}
}

// ID returns the session identifier.
func (e *Enrollment) ID() string {
	return e.id
}

// Label returns the identity label the session enrolls.
func (e *Enrollment) Label() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.label
}

// State returns the current lifecycle state.
func (e *Enrollment) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Progress returns the accepted sample count and the target.
func (e *Enrollment) Progress() (int, int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.samples), e.opts.Target
}

// Err returns the failure reason once the session failed or was cancelled.
func (e *Enrollment) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.err
}

// Cancelled reports whether the capture loop was cancelled before finishing.
func (e *Enrollment) Cancelled() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cancelled
}

// Template returns a copy of the computed template, nil before finalization.
func (e *Enrollment) Template() biometric.Template {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.template)
}

// Done is closed when the session reaches a terminal state or is cancelled.
func (e *Enrollment) Done() <-chan struct{} {
	return e.done
}

// Wait blocks until the session is done and returns its error.
func (e *Enrollment) Wait(ctx context.Context) error {
	select {
	case <-e.done:
		return e.Err()
	case <-ctx.Done():
		return fmt.Errorf("waiting for enrollment: %w", ctx.Err())
	}
}

// Start validates label and moves the session from Idle to Capturing.
// An empty label leaves the session Idle. ctx bounds the whole session,
// including the registration call.
func (e *Enrollment) Start(ctx context.Context, label string) error {
	label = biometric.CleanLabel(label)
	if label == "" {
		return biometric.ErrEmptyIdentityLabel
	}

	e.mu.Lock()
	if e.state != StateIdle {
		e.mu.Unlock()
		return ErrSessionStarted
	}
	tickCtx, stop := context.WithCancel(ctx)
	e.label = label
	e.state = StateCapturing
	e.stopTick = stop
	e.ticking = make(chan struct{})
	e.mu.Unlock()

	e.opts.Logger.Info("enrollment started", "session", e.id, "label", label, "target", e.opts.Target)
	e.notify(StatusInfo, msgEnrollmentStarted)

	go e.run(ctx, tickCtx)
	return nil
}

// Cancel stops the capture loop and waits for it to exit. No capture tick
// runs after Cancel returns. A registration already in flight is not interrupted.
func (e *Enrollment) Cancel() {
	e.mu.Lock()
	stop, ticking := e.stopTick, e.ticking
	e.mu.Unlock()

	if stop == nil {
		return
	}
	stop()
	<-ticking
	if e.Cancelled() {
		<-e.done
	}
}

func (e *Enrollment) run(ctx, tickCtx context.Context) {
	defer close(e.done)

	if !e.capture(tickCtx) {
		e.opts.Logger.Info("enrollment cancelled", "session", e.id)
		return
	}
	e.finalize(ctx)
}

// capture ticks until the target is reached (true) or the loop is cancelled (false).
func (e *Enrollment) capture(tickCtx context.Context) bool {
	defer close(e.ticking)

	ticker := time.NewTicker(e.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-tickCtx.Done():
			e.markCancelled()
			return false
		case <-ticker.C:
			if tickCtx.Err() != nil {
				e.markCancelled()
				return false
			}
			if e.step() {
				return true
			}
		}
	}
}

func (e *Enrollment) markCancelled() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cancelled = true
	e.err = ErrSessionCancelled
}

// step runs one capture tick and reports whether capturing is over.
func (e *Enrollment) step() bool {
	e.mu.Lock()
	if e.state != StateCapturing {
		e.mu.Unlock()
		return true
	}
	if len(e.samples) >= e.opts.Target {
		e.state = StateFinalizing
		e.mu.Unlock()
		return true
	}
	e.mu.Unlock()

	result := biometric.Gate(e.slot.Load().Observations)
	switch result.Verdict {
	case biometric.RejectedNone:
		e.notify(StatusError, msgHoldStill)
	case biometric.RejectedMultiple:
		e.notify(StatusError, msgOneFaceOnly)
	case biometric.Accepted:
		e.mu.Lock()
		e.samples = append(e.samples, result.Embedding)
		count := len(e.samples)
		e.mu.Unlock()
		e.notifyProgress(count)
	}
	return false
}

func (e *Enrollment) finalize(ctx context.Context) {
	e.mu.Lock()
	e.state = StateFinalizing
	samples := slices.Clone(e.samples)
	label := e.label
	e.mu.Unlock()

	tpl, err := biometric.Average(samples)
	if err != nil {
		e.fail(err, msgNoValidFrames)
		return
	}

	e.mu.Lock()
	e.template = tpl
	e.mu.Unlock()

	if err := e.registrar.Register(ctx, label, tpl); err != nil {
		if reason, ok := biometric.RejectionReason(err); ok {
			e.fail(err, msgServerError(reason))
		} else {
			e.fail(err, msgRegistrationFailed)
		}
		return
	}

	e.mu.Lock()
	e.state = StateComplete
	e.mu.Unlock()
	e.opts.Logger.Info("enrollment complete", "session", e.id, "label", label, "samples", len(samples))
	e.notify(StatusSuccess, msgEnrollmentComplete(label))
}

func (e *Enrollment) fail(err error, message string) {
	e.mu.Lock()
	e.state = StateFailed
	e.err = err
	e.mu.Unlock()
	e.opts.Logger.Warn("enrollment failed", "session", e.id, "error", err)
	e.notify(StatusError, message)
}

func (e *Enrollment) notify(kind StatusKind, message string) {
	e.opts.Notifier.Notify(Status{Session: e.id, Kind: kind, Message: message, At: time.Now()})
}

func (e *Enrollment) notifyProgress(count int) {
	e.opts.Notifier.Notify(Status{
		Session:  e.id,
		Kind:     StatusInfo,
		Message:  msgCapturing(count, e.opts.Target),
		Progress: count,
		Target:   e.opts.Target,
		At:       time.Now(),
	})
}

// Enroller keeps at most one enrollment capturing at a time.
type Enroller struct {
	slot      SlotReader
	registrar Registrar
	opts      Options

	mu      sync.Mutex
	current *Enrollment
}

// NewEnroller creates an enroller reading from slot and registering through registrar.
func NewEnroller(slot SlotReader, registrar Registrar, opts Options) *Enroller {
	return &Enroller{slot: slot, registrar: registrar, opts: opts.withDefaults()}
}

// Start begins a new enrollment for label. The label is validated before the
// current session is touched; a still capturing session is cancelled and its
// loop has exited before the new session starts.
func (r *Enroller) Start(ctx context.Context, label string) (*Enrollment, error) {
	if biometric.CleanLabel(label) == "" {
		return nil, biometric.ErrEmptyIdentityLabel
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.current != nil {
		r.current.Cancel()
	}

	enrollment := NewEnrollment(r.slot, r.registrar, r.opts)
	if err := enrollment.Start(ctx, label); err != nil {
		return nil, err
	}
	r.current = enrollment
	return enrollment, nil
}

// Current returns the most recently started enrollment, or nil.
func (r *Enroller) Current() *Enrollment {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}
