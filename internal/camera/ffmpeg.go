// Package camera opens live video sources through ffmpeg and enumerates the
// V4L2 capture devices present on the host.
package camera

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/princesingh-ai-dev/faceauth/internal/constants"
	"github.com/princesingh-ai-dev/faceauth/internal/feed"
)

// ErrDeviceBusy is returned when another process holds the device lock.
var ErrDeviceBusy = errors.New("camera device is busy")

// maxFrameSize bounds a single buffered MJPEG frame.
const maxFrameSize = 8 << 20

// FFmpegProvider opens streams by piping ffmpeg's MJPEG output.
type FFmpegProvider struct {
	Path        string
	LockTimeout time.Duration
	Logger      *slog.Logger
}

// NewFFmpegProvider creates a provider using the ffmpeg binary at path
// (looked up in PATH when empty).
func NewFFmpegProvider(path string, logger *slog.Logger) *FFmpegProvider {
	if path == "" {
		path = "ffmpeg"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FFmpegProvider{Path: path, LockTimeout: constants.CameraLockTimeout, Logger: logger}
}

// ffmpegArgs builds the decoder command line. V4L2 devices are captured
// directly, anything else is played back in real time.
func ffmpegArgs(device string) []string {
	args := []string{"-hide_banner", "-loglevel", "error"}
	if strings.HasPrefix(device, "/dev/video") {
		args = append(args, "-f", "v4l2", "-i", device)
	} else {
		args = append(args, "-re", "-i", device)
	}
	return append(args, "-f", "image2pipe", "-vcodec", "mjpeg", "-")
}

// Open locks device and starts decoding it. ctx bounds lock acquisition and
// process start only; the stream lives until Close.
func (p *FFmpegProvider) Open(ctx context.Context, device string) (feed.Stream, error) {
	if device == "" {
		device = constants.DefaultCameraDevice
	}
	if _, err := exec.LookPath(p.Path); err != nil {
		return nil, fmt.Errorf("ffmpeg not found: %w", err)
	}

	release, err := acquireDeviceLock(device, p.LockTimeout)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		release()
		return nil, err
	}

	cmd := exec.Command(p.Path, ffmpegArgs(device)...)
	stderr := &bytes.Buffer{}
	cmd.Stderr = stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		release()
		return nil, fmt.Errorf("failed to create ffmpeg pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		release()
		return nil, fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	p.Logger.Info("camera opened", "device", device, "pid", cmd.Process.Pid)

	s := newStream(device, stdout, p.Logger)
	s.cmd = cmd
	s.stderr = stderr
	s.release = release
	return s, nil
}

// FFmpegStream holds the most recent frame decoded from a device.
type FFmpegStream struct {
	device string
	logger *slog.Logger

	cmd     *exec.Cmd
	stderr  *bytes.Buffer
	release func()
	source  io.ReadCloser

	mu     sync.Mutex
	state  feed.StreamState
	frame  []byte
	frames int
	err    error

	closeOnce sync.Once
	readDone  chan struct{}
}

func newStream(device string, source io.ReadCloser, logger *slog.Logger) *FFmpegStream {
	s := &FFmpegStream{
		device:   device,
		logger:   logger,
		source:   source,
		state:    feed.StreamIdle,
		readDone: make(chan struct{}),
	}
	go s.read()
	return s
}

func (s *FFmpegStream) read() {
	defer close(s.readDone)

	scanner := bufio.NewScanner(s.source)
	scanner.Buffer(make([]byte, 0, 512*1024), maxFrameSize)
	scanner.Split(SplitJpeg)

	for scanner.Scan() {
		frame := slices.Clone(scanner.Bytes())
		s.mu.Lock()
		s.frame = frame
		s.frames++
		if s.state == feed.StreamIdle {
			s.state = feed.StreamActive
		}
		s.mu.Unlock()
	}

	s.mu.Lock()
	s.state = feed.StreamEnded
	s.err = scanner.Err()
	s.mu.Unlock()
	if err := scanner.Err(); err != nil {
		s.logger.Warn("camera stream read failed", "device", s.device, "error", err)
	} else {
		s.logger.Info("camera stream ended", "device", s.device)
	}
}

// Device returns the device identifier the stream was opened for.
func (s *FFmpegStream) Device() string {
	return s.device
}

// State returns the current playback state.
func (s *FFmpegStream) State() feed.StreamState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Pause marks an active stream paused. Frames keep being drained.
func (s *FFmpegStream) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == feed.StreamActive {
		s.state = feed.StreamPaused
	}
}

// Resume reactivates a paused stream.
func (s *FFmpegStream) Resume() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == feed.StreamPaused {
		s.state = feed.StreamActive
	}
}

// Frame returns the latest complete frame.
func (s *FFmpegStream) Frame() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.frame == nil {
		if s.err != nil {
			return nil, s.err
		}
		return nil, feed.ErrNoFrame
	}
	return s.frame, nil
}

// Frames returns the number of frames decoded so far.
func (s *FFmpegStream) Frames() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames
}

// Close stops ffmpeg and releases the device lock. It is safe to call twice.
func (s *FFmpegStream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		if s.cmd != nil && s.cmd.Process != nil {
			_ = s.cmd.Process.Kill()
		}
		_ = s.source.Close()
		<-s.readDone
		if s.cmd != nil {
			// Killed processes report a signal exit; only surface start-level failures.
			if waitErr := s.cmd.Wait(); waitErr != nil {
				var exitErr *exec.ExitError
				if !errors.As(waitErr, &exitErr) {
					err = fmt.Errorf("waiting for ffmpeg: %w", waitErr)
				} else if s.stderr != nil && s.stderr.Len() > 0 {
					s.logger.Debug("ffmpeg stderr", "device", s.device, "output", s.stderr.String())
				}
			}
		}
		if s.release != nil {
			s.release()
		}
		s.mu.Lock()
		s.state = feed.StreamEnded
		s.mu.Unlock()
	})
	return err
}
