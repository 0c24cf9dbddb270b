package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/princesingh-ai-dev/faceauth/internal/feed"
	"github.com/princesingh-ai-dev/faceauth/internal/session"
	"github.com/schollz/progressbar/v3"
)

// alertMultipleFaces is shown while the camera sees more than one face.
const alertMultipleFaces = "Alert: Multiple Faces Detected. Retry."

// statusFanout delivers session statuses to several consumers, each draining
// its own broadcaster listener on a separate goroutine.
type statusFanout struct {
	*session.Broadcaster
	listeners []chan session.Status
	wg        sync.WaitGroup
}

func newStatusFanout(consumers ...func(session.Status)) *statusFanout {
	f := &statusFanout{Broadcaster: session.NewBroadcaster()}
	for _, consume := range consumers {
		if consume == nil {
			continue
		}
		ch := f.AddListener()
		f.listeners = append(f.listeners, ch)
		f.wg.Add(1)
		go func() {
			defer f.wg.Done()
			for s := range ch {
				consume(s)
			}
		}()
	}
	return f
}

// Close detaches every consumer and waits until each has drained its queue.
func (f *statusFanout) Close() {
	for _, ch := range f.listeners {
		f.RemoveListener(ch)
	}
	f.listeners = nil
	f.wg.Wait()
}

// logStatus writes statuses to the default logger at debug level.
func logStatus(s session.Status) {
	slog.Debug("session status",
		"session", s.Session, "kind", string(s.Kind), "message", s.Message, "progress", s.Progress)
}

// printStatus returns a consumer that prints each status message on its own line.
func printStatus(w io.Writer) func(session.Status) {
	return func(s session.Status) {
		fmt.Fprintln(w, s.Message)
	}
}

// barStatus returns a consumer that renders progress and messages on bar.
func barStatus(bar *progressbar.ProgressBar) func(session.Status) {
	last := ""
	return func(s session.Status) {
		if s.Progress > 0 {
			_ = bar.Set(s.Progress)
		}
		if s.Message != last {
			bar.Describe(s.Message)
			last = s.Message
		}
	}
}

// verboseConsumer returns logStatus when --verbose is set.
func verboseConsumer() func(session.Status) {
	if verbose {
		return logStatus
	}
	return nil
}

// multipleFacesObserver calls alert once each time the feed starts seeing
// more than one face. It runs on the feed goroutine.
func multipleFacesObserver(alert func(string)) func(feed.Snapshot) {
	crowded := false
	return func(snap feed.Snapshot) {
		now := len(snap.Observations) > 1
		if now && !crowded {
			alert(alertMultipleFaces)
		}
		crowded = now
	}
}
