package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/princesingh-ai-dev/faceauth/internal/biometric"
	"github.com/princesingh-ai-dev/faceauth/internal/config"
	"github.com/princesingh-ai-dev/faceauth/internal/session"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var enrollCmd = &cobra.Command{
	Use:   "enroll",
	Short: "Capture a face and register it under a name",
	Long: `Capture face descriptors from the camera, average them into a template
and register the template with the identity server.

Only frames containing exactly one face are used. Press Ctrl+C to cancel;
nothing is registered for a cancelled enrollment.

Examples:
  # Enroll using the first available camera
  faceauth enroll --name "Jan Novák"

  # Use a specific device and capture more samples
  faceauth enroll --name alice --device /dev/video2 --samples 20`,
	RunE: runEnroll,
}

func init() {
	rootCmd.AddCommand(enrollCmd)

	enrollCmd.Flags().String("name", "", "Name to register the face under (required)")
	enrollCmd.Flags().String("device", "", "Camera device or video source (default: auto-detect)")
	enrollCmd.Flags().Int("samples", 0, "Number of descriptors to average (default from config)")
	enrollCmd.Flags().Bool("json", false, "Output result as JSON")
	_ = enrollCmd.MarkFlagRequired("name")
}

// EnrollResult is the JSON output of the enroll command
type EnrollResult struct {
	Success bool   `json:"success"`
	Name    string `json:"name"`
	Samples int    `json:"samples"`
	Device  string `json:"device"`
	Error   string `json:"error,omitempty"`
}

func runEnroll(cmd *cobra.Command, args []string) error {
	name := biometric.CleanLabel(mustGetString(cmd, "name"))
	if name == "" {
		return biometric.ErrEmptyIdentityLabel
	}
	jsonOutput := mustGetBool(cmd, "json")

	cfg := config.Load()
	samples := cfg.Capture.TargetSamples
	if n := mustGetInt(cmd, "samples"); n > 0 {
		samples = n
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var bar *progressbar.ProgressBar
	var show func(session.Status)
	if !jsonOutput {
		bar = progressbar.NewOptions(samples,
			progressbar.OptionSetDescription("Capturing"),
			progressbar.OptionShowCount(),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionShowElapsedTimeOnFinish(),
			progressbar.OptionFullWidth(),
		)
		show = barStatus(bar)
	}
	statuses := newStatusFanout(show, verboseConsumer())

	p, err := startPipeline(ctx, cfg, mustGetString(cmd, "device"), func(alert string) {
		statuses.Notify(session.Status{Kind: session.StatusError, Message: alert, At: time.Now()})
	})
	if err != nil {
		statuses.Close()
		return err
	}
	defer p.Close()
	if !jsonOutput {
		fmt.Printf("Enrolling %q from %s\n", name, p.device)
	}

	enroller := session.NewEnroller(p.feed.Slot(), p.client, session.Options{
		Interval: cfg.Capture.CaptureInterval,
		Target:   samples,
		Notifier: statuses,
		Logger:   slog.Default(),
	})
	enrollment, err := enroller.Start(ctx, name)
	if err != nil {
		statuses.Close()
		return err
	}

	// Wait ignores ctx so a cancelled session still reports its final state.
	err = enrollment.Wait(context.Background())
	p.Close()
	statuses.Close()
	if bar != nil {
		_ = bar.Finish()
		fmt.Fprintln(os.Stderr)
	}

	if jsonOutput {
		count, _ := enrollment.Progress()
		result := EnrollResult{Success: err == nil, Name: name, Samples: count, Device: p.device}
		if err != nil {
			result.Error = err.Error()
		}
		if jsonErr := outputJSON(result); jsonErr != nil {
			return jsonErr
		}
	}

	switch {
	case errors.Is(err, session.ErrSessionCancelled):
		return errors.New("enrollment cancelled")
	case err != nil:
		if reason, ok := biometric.RejectionReason(err); ok {
			return fmt.Errorf("server refused registration: %s", reason)
		}
		return fmt.Errorf("enrollment failed: %w", err)
	}

	if !jsonOutput {
		fmt.Printf("Enrollment complete for %s\n", name)
	}
	return nil
}
