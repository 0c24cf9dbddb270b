package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/princesingh-ai-dev/faceauth/internal/biometric"
	"github.com/princesingh-ai-dev/faceauth/internal/camera"
	"github.com/princesingh-ai-dev/faceauth/internal/config"
	"github.com/princesingh-ai-dev/faceauth/internal/detector"
	"github.com/princesingh-ai-dev/faceauth/internal/feed"
	"github.com/princesingh-ai-dev/faceauth/internal/identity"
)

// pipeline is a running camera feed plus the identity client sessions talk to.
type pipeline struct {
	feed   *feed.Feed
	client *identity.Client
	device string
}

func newIdentityClient(cfg *config.Config) (*identity.Client, error) {
	client, err := identity.NewClient(cfg.Server.URL, cfg.Server.HTTPTimeout)
	if err != nil {
		return nil, fmt.Errorf("identity server: %w", err)
	}
	return client, nil
}

func newDetector(cfg *config.Config) *detector.Client {
	return detector.NewClient(cfg.Detector.URL, detector.Options{
		MinScore:     cfg.Detector.MinScore,
		MaxImageSize: cfg.Detector.MaxImageSize,
		Timeout:      cfg.Server.HTTPTimeout,
	})
}

// startPipeline opens the camera and starts the detection feed. A non-nil
// alert is called whenever more than one face comes into view.
func startPipeline(ctx context.Context, cfg *config.Config, device string, alert func(string)) (*pipeline, error) {
	client, err := newIdentityClient(cfg)
	if err != nil {
		return nil, err
	}

	if device == "" {
		device = cfg.Camera.Device
	}
	device, err = camera.PickDevice(device, cfg.Camera.Preferred)
	if err != nil {
		return nil, fmt.Errorf("selecting camera: %w", err)
	}

	provider := camera.NewFFmpegProvider(cfg.Camera.FFmpegPath, slog.Default())
	if cfg.Camera.LockTimeout > 0 {
		provider.LockTimeout = cfg.Camera.LockTimeout
	}

	opts := []feed.Option{
		feed.WithInterval(cfg.Capture.FeedInterval),
		feed.WithLogger(slog.Default()),
	}
	if alert != nil {
		opts = append(opts, feed.WithObserver(multipleFacesObserver(alert)))
	}
	f := feed.New(feed.NewSlot(), newDetector(cfg), opts...)
	if err := f.Switch(ctx, provider, device); err != nil {
		return nil, err
	}
	return &pipeline{feed: f, client: client, device: device}, nil
}

func (p *pipeline) Close() {
	if err := p.feed.Stop(); err != nil {
		slog.Warn("stopping feed", "error", err)
	}
}

// waitForFace polls the slot until it holds exactly one face or timeout elapses.
// It returns false on timeout; the caller still attempts with what the slot holds.
func waitForFace(ctx context.Context, slot *feed.Slot, timeout time.Duration) bool {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		if biometric.Gate(slot.Load().Observations).Verdict == biometric.Accepted {
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
		}
	}
}
