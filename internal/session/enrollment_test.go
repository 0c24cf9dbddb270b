package session

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/princesingh-ai-dev/faceauth/internal/biometric"
)

// capturing returns a session already in Capturing without a running ticker,
// so tests can drive step() one tick at a time.
func capturing(slot SlotReader, reg Registrar, rec Notifier) *Enrollment {
	e := NewEnrollment(slot, reg, Options{Notifier: rec})
	e.label = "Ada"
	e.state = StateCapturing
	return e
}

func TestEnrollmentStart_EmptyLabel(t *testing.T) {
	for _, label := range []string{"", "   ", "\t\n"} {
		t.Run(label, func(t *testing.T) {
			reg := &fakeRegistrar{}
			e := NewEnrollment(&fakeSlot{}, reg, Options{Interval: time.Millisecond})

			err := e.Start(context.Background(), label)
			if !errors.Is(err, biometric.ErrEmptyIdentityLabel) {
				t.Fatalf("Start(%q) error = %v, want %v", label, err, biometric.ErrEmptyIdentityLabel)
			}
			time.Sleep(5 * time.Millisecond)
			if e.State() != StateIdle {
				t.Errorf("State() = %v, want idle", e.State())
			}
			if reg.calls() != 0 {
				t.Errorf("registrar called %d times, want 0", reg.calls())
			}
		})
	}
}

func TestEnrollmentStep_NoFace(t *testing.T) {
	rec := &recorder{}
	e := capturing(&fakeSlot{}, &fakeRegistrar{}, rec)

	if e.step() {
		t.Fatal("step() finished capturing on an empty slot")
	}
	if e.State() != StateCapturing {
		t.Errorf("State() = %v, want capturing", e.State())
	}
	if n, _ := e.Progress(); n != 0 {
		t.Errorf("Progress() = %d, want 0", n)
	}
	if got := rec.last().Message; got != "No Face Detected. Stay still." {
		t.Errorf("status = %q", got)
	}
}

func TestEnrollmentStep_MultipleFaces(t *testing.T) {
	rec := &recorder{}
	slot := &fakeSlot{}
	slot.set(face(1), face(2))
	e := capturing(slot, &fakeRegistrar{}, rec)

	e.step()
	if n, _ := e.Progress(); n != 0 {
		t.Errorf("Progress() = %d, want 0", n)
	}
	if got := rec.last().Message; got != "Multiple Faces Detected. Ensure only one face." {
		t.Errorf("status = %q", got)
	}
}

func TestEnrollment_TenAcceptedSamplesRegisterMean(t *testing.T) {
	rec := &recorder{}
	slot := &fakeSlot{}
	reg := &fakeRegistrar{}
	e := capturing(slot, reg, rec)

	var accepted []biometric.Embedding
	for i := range 10 {
		// rejected ticks in between never count
		slot.set()
		e.step()
		slot.set(face(1), face(2))
		e.step()

		obs := face(float32(i))
		slot.set(obs)
		if e.step() {
			t.Fatalf("step() finished capturing after %d samples", i+1)
		}
		accepted = append(accepted, obs.Embedding)
		if got := rec.last(); got.Progress != i+1 || got.Target != 10 {
			t.Errorf("progress status = %d/%d, want %d/10", got.Progress, got.Target, i+1)
		}
	}
	if got := rec.last().Message; got != "Capturing... 10/10" {
		t.Errorf("status = %q, want %q", got, "Capturing... 10/10")
	}

	slot.set(face(99))
	if !e.step() {
		t.Fatal("step() kept capturing after reaching the target")
	}
	if e.State() != StateFinalizing {
		t.Fatalf("State() = %v, want finalizing", e.State())
	}
	if n, _ := e.Progress(); n != 10 {
		t.Errorf("Progress() = %d, want 10", n)
	}

	e.finalize(context.Background())

	if e.State() != StateComplete {
		t.Fatalf("State() = %v, want complete (err %v)", e.State(), e.Err())
	}
	if reg.calls() != 1 || reg.names[0] != "Ada" {
		t.Fatalf("register calls = %v", reg.names)
	}

	want, _ := biometric.Average(accepted)
	got := reg.templates[0]
	if len(got) != 128 {
		t.Fatalf("template length = %d, want 128", len(got))
	}
	for d := range want {
		if math.Abs(float64(got[d]-want[d])) > 1e-6 {
			t.Fatalf("template[%d] = %v, want %v", d, got[d], want[d])
		}
	}
	if rec.last().Message != "Enrollment Complete for Ada." {
		t.Errorf("status = %q", rec.last().Message)
	}
}

func TestEnrollmentFinalize_NoSamples(t *testing.T) {
	reg := &fakeRegistrar{}
	rec := &recorder{}
	e := capturing(&fakeSlot{}, reg, rec)

	e.finalize(context.Background())

	if e.State() != StateFailed {
		t.Errorf("State() = %v, want failed", e.State())
	}
	if !errors.Is(e.Err(), biometric.ErrNoValidSamples) {
		t.Errorf("Err() = %v, want %v", e.Err(), biometric.ErrNoValidSamples)
	}
	if reg.calls() != 0 {
		t.Errorf("registrar called %d times, want 0", reg.calls())
	}
	if rec.last().Message != "Enrollment Failed. No valid frames." {
		t.Errorf("status = %q", rec.last().Message)
	}
}

func TestEnrollmentFinalize_RegistrationErrors(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		message string
	}{
		{"rejected", &biometric.ServerRejectedError{Reason: "User already exists"}, "Error: User already exists"},
		{"transport", biometric.ErrTransport, "Network error during registration."},
		{"malformed", biometric.ErrMalformedResponse, "Network error during registration."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			slot := &fakeSlot{}
			slot.set(face(1))
			rec := &recorder{}
			e := capturing(slot, &fakeRegistrar{err: tt.err}, rec)
			e.step()

			e.finalize(context.Background())

			if e.State() != StateFailed {
				t.Errorf("State() = %v, want failed", e.State())
			}
			if !errors.Is(e.Err(), tt.err) {
				t.Errorf("Err() = %v, want %v", e.Err(), tt.err)
			}
			if rec.last().Message != tt.message {
				t.Errorf("status = %q, want %q", rec.last().Message, tt.message)
			}
		})
	}
}

func TestEnrollment_RunsToCompletion(t *testing.T) {
	slot := &fakeSlot{}
	slot.set(face(3))
	reg := &fakeRegistrar{}
	e := NewEnrollment(slot, reg, Options{Interval: time.Millisecond})

	if err := e.Start(context.Background(), "  Grace  Hopper "); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := e.Start(context.Background(), "again"); !errors.Is(err, ErrSessionStarted) {
		t.Errorf("second Start() error = %v, want %v", err, ErrSessionStarted)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := e.Wait(ctx); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}

	if e.State() != StateComplete {
		t.Errorf("State() = %v, want complete", e.State())
	}
	if e.Label() != "Grace Hopper" {
		t.Errorf("Label() = %q", e.Label())
	}
	if reg.calls() != 1 {
		t.Errorf("registrar called %d times, want 1", reg.calls())
	}
	if len(e.Template()) != 128 {
		t.Errorf("Template() length = %d, want 128", len(e.Template()))
	}
}

func TestEnrollmentCancel_StopsTicking(t *testing.T) {
	rec := &recorder{}
	reg := &fakeRegistrar{}
	e := NewEnrollment(&fakeSlot{}, reg, Options{Interval: time.Millisecond, Notifier: rec})

	if err := e.Start(context.Background(), "Ada"); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	time.Sleep(10 * time.Millisecond)
	e.Cancel()

	select {
	case <-e.Done():
	case <-time.After(time.Second):
		t.Fatal("Done() not closed after Cancel()")
	}

	seen := len(rec.messages())
	time.Sleep(10 * time.Millisecond)
	if len(rec.messages()) != seen {
		t.Errorf("%d statuses emitted after Cancel()", len(rec.messages())-seen)
	}
	if !e.Cancelled() || !errors.Is(e.Err(), ErrSessionCancelled) {
		t.Errorf("Cancelled() = %v, Err() = %v", e.Cancelled(), e.Err())
	}
	if e.State() != StateCapturing {
		t.Errorf("State() = %v, want capturing", e.State())
	}
	if reg.calls() != 0 {
		t.Errorf("registrar called %d times, want 0", reg.calls())
	}
}

func TestEnroller_SecondStartCancelsFirst(t *testing.T) {
	slot := &fakeSlot{}
	enroller := NewEnroller(slot, &fakeRegistrar{}, Options{Interval: time.Millisecond})

	first, err := enroller.Start(context.Background(), "Ada")
	if err != nil {
		t.Fatalf("Start(Ada) error = %v", err)
	}
	second, err := enroller.Start(context.Background(), "Grace")
	if err != nil {
		t.Fatalf("Start(Grace) error = %v", err)
	}
	defer second.Cancel()

	select {
	case <-first.Done():
	default:
		t.Fatal("first enrollment still running after second Start()")
	}
	if !first.Cancelled() {
		t.Error("first enrollment not cancelled")
	}
	if enroller.Current() != second {
		t.Error("Current() is not the second enrollment")
	}
}

func TestEnroller_EmptyLabelKeepsCurrent(t *testing.T) {
	enroller := NewEnroller(&fakeSlot{}, &fakeRegistrar{}, Options{Interval: time.Millisecond})
	first, err := enroller.Start(context.Background(), "Ada")
	if err != nil {
		t.Fatalf("Start(Ada) error = %v", err)
	}
	defer first.Cancel()

	if _, err := enroller.Start(context.Background(), " "); !errors.Is(err, biometric.ErrEmptyIdentityLabel) {
		t.Fatalf("Start(\" \") error = %v", err)
	}
	if first.Cancelled() || first.State() != StateCapturing {
		t.Error("empty label disturbed the running enrollment")
	}
	if enroller.Current() != first {
		t.Error("Current() changed after a rejected start")
	}
}

func TestStateString(t *testing.T) {
	tests := map[State]string{
		StateIdle:       "idle",
		StateCapturing:  "capturing",
		StateFinalizing: "finalizing",
		StateComplete:   "complete",
		StateFailed:     "failed",
		State(42):       "unknown",
	}
	for state, want := range tests {
		if got := state.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", state, got, want)
		}
	}
	if !StateComplete.Terminal() || !StateFailed.Terminal() || StateCapturing.Terminal() {
		t.Error("unexpected Terminal() results")
	}
}
