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
	"github.com/princesingh-ai-dev/faceauth/internal/constants"
	"github.com/princesingh-ai-dev/faceauth/internal/session"
	"github.com/spf13/cobra"
)

// errAccessDenied makes a denied verification exit non-zero.
var errAccessDenied = errors.New("access denied")

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify the face in front of the camera",
	Long: `Take one detection snapshot from the camera and ask the identity server
whether it matches an enrolled identity. Exactly one verify request is sent.

The command exits with status 0 when access is granted and 1 otherwise.

Examples:
  faceauth verify
  faceauth verify --device /dev/video0 --wait 5s --json`,
	RunE: runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)

	verifyCmd.Flags().String("device", "", "Camera device or video source (default: auto-detect)")
	verifyCmd.Flags().Duration("wait", 0, "How long to wait for a single face before attempting (default from config)")
	verifyCmd.Flags().Bool("json", false, "Output result as JSON")
}

// VerifyResult is the JSON output of the verify command
type VerifyResult struct {
	Granted bool   `json:"granted"`
	State   string `json:"state"`
	Name    string `json:"name,omitempty"`
	Error   string `json:"error,omitempty"`
}

func runVerify(cmd *cobra.Command, args []string) error {
	jsonOutput := mustGetBool(cmd, "json")
	cfg := config.Load()

	wait := cfg.Capture.WarmupTimeout
	if d := mustGetDuration(cmd, "wait"); d > 0 {
		wait = d
	}
	if wait <= 0 {
		wait = constants.WarmupTimeout
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var show func(session.Status)
	if !jsonOutput {
		show = printStatus(os.Stdout)
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
		fmt.Printf("Looking for a face on %s...\n", p.device)
	}
	waitForFace(ctx, p.feed.Slot(), wait)
	if ctx.Err() != nil {
		statuses.Close()
		return errors.New("verification cancelled")
	}

	attemptCtx, cancel := context.WithTimeout(ctx, cfg.Server.HTTPTimeout+time.Second)
	defer cancel()
	verification := session.NewVerification(p.feed.Slot(), p.client, statuses, slog.Default())
	outcome, err := verification.Attempt(attemptCtx)
	p.Close()
	statuses.Close()

	if jsonOutput {
		result := VerifyResult{Granted: outcome.Granted(), State: outcome.State.String(), Name: outcome.Name}
		if err != nil {
			result.Error = err.Error()
		}
		if jsonErr := outputJSON(result); jsonErr != nil {
			return jsonErr
		}
	}

	switch {
	case errors.Is(err, biometric.ErrNoFaceDetected), errors.Is(err, biometric.ErrMultipleFacesDetected):
		return err
	case err != nil:
		return fmt.Errorf("verification failed: %w", err)
	case !outcome.Granted():
		return errAccessDenied
	}
	return nil
}
