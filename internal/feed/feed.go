package feed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/princesingh-ai-dev/faceauth/internal/constants"
)

// Stats counts what the feed loop did since the feed was created.
type Stats struct {
	Ticks          uint64
	SkippedTicks   uint64
	Publishes      uint64
	DetectorErrors uint64
}

// Option configures a Feed.
type Option func(*Feed)

// WithInterval overrides the tick period.
func WithInterval(d time.Duration) Option {
	return func(f *Feed) {
		if d > 0 {
			f.interval = d
		}
	}
}

// WithLogger sets the logger used for detector failures and stream changes.
func WithLogger(l *slog.Logger) Option {
	return func(f *Feed) {
		if l != nil {
			f.logger = l
		}
	}
}

// WithObserver registers a callback invoked after every publish, on the feed goroutine.
func WithObserver(fn func(Snapshot)) Option {
	return func(f *Feed) {
		f.observer = fn
	}
}

// Feed keeps a Slot refreshed from a Detector while a Stream is active.
// At most one loop runs at a time; starting a new stream tears the old one
// down completely first so two loops never write the same slot.
type Feed struct {
	slot     *Slot
	detector Detector
	interval time.Duration
	logger   *slog.Logger
	observer func(Snapshot)

	mu     sync.Mutex
	stream Stream
	cancel context.CancelFunc
	done   chan struct{}

	ticks          atomic.Uint64
	skipped        atomic.Uint64
	publishes      atomic.Uint64
	detectorErrors atomic.Uint64
}

// New creates a stopped feed writing to slot.
func New(slot *Slot, detector Detector, opts ...Option) *Feed {
	f := &Feed{
		slot:     slot,
		detector: detector,
		interval: constants.FeedInterval,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Slot returns the slot the feed publishes into.
func (f *Feed) Slot() *Slot {
	return f.slot
}

// Start begins sampling stream. A previously running loop is stopped and its
// stream closed before the new loop starts.
func (f *Feed) Start(stream Stream) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.stopLocked(); err != nil {
		f.logger.Warn("closing previous stream", "error", err)
	}
	f.startLocked(stream)
}

// Switch releases the current stream, then opens device and starts sampling it.
// The old stream is closed before the new one is opened because camera devices
// are usually exclusive.
func (f *Feed) Switch(ctx context.Context, opener StreamOpener, device string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.stopLocked(); err != nil {
		f.logger.Warn("closing previous stream", "error", err)
	}

	stream, err := opener.Open(ctx, device)
	if err != nil {
		return fmt.Errorf("opening stream %s: %w", device, err)
	}
	f.logger.Info("feed switched stream", "device", device)
	f.startLocked(stream)
	return nil
}

// Stop ends the loop and closes the stream. No tick runs after Stop returns.
// Stop is idempotent.
func (f *Feed) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stopLocked()
}

// Running reports whether a loop is active.
func (f *Feed) Running() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cancel != nil
}

// Stats returns the loop counters.
func (f *Feed) Stats() Stats {
	return Stats{
		Ticks:          f.ticks.Load(),
		SkippedTicks:   f.skipped.Load(),
		Publishes:      f.publishes.Load(),
		DetectorErrors: f.detectorErrors.Load(),
	}
}

func (f *Feed) startLocked(stream Stream) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	f.stream = stream
	f.cancel = cancel
	f.done = done
	go f.loop(ctx, stream, done)
}

func (f *Feed) stopLocked() error {
	if f.cancel == nil {
		return nil
	}
	f.cancel()
	<-f.done

	var err error
	if f.stream != nil {
		err = f.stream.Close()
	}
	f.stream = nil
	f.cancel = nil
	f.done = nil
	if err != nil {
		return fmt.Errorf("closing stream: %w", err)
	}
	return nil
}

func (f *Feed) loop(ctx context.Context, stream Stream, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if ctx.Err() != nil {
				return
			}
			f.tick(ctx, stream)
		}
	}
}

// tick runs one sampling step. It returns true when a publish happened.
func (f *Feed) tick(ctx context.Context, stream Stream) bool {
	f.ticks.Add(1)

	if stream == nil || stream.State() != StreamActive {
		f.skipped.Add(1)
		return false
	}

	frame, err := stream.Frame()
	if err != nil {
		if !errors.Is(err, ErrNoFrame) {
			f.logger.Debug("reading frame", "error", err)
		}
		f.skipped.Add(1)
		return false
	}

	obs, err := f.detector.Detect(ctx, frame)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		// Failed detections publish an empty snapshot, never the previous one.
		f.detectorErrors.Add(1)
		f.logger.Warn("face detection failed", "error", err)
		obs = nil
	}

	snap := f.slot.Publish(obs)
	f.publishes.Add(1)
	if f.observer != nil {
		f.observer(snap)
	}
	return true
}
