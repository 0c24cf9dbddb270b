package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/princesingh-ai-dev/faceauth/internal/biometric"
	"github.com/princesingh-ai-dev/faceauth/internal/config"
	"github.com/spf13/cobra"
)

var detectCmd = &cobra.Command{
	Use:   "detect <image>",
	Short: "Run face detection on an image file",
	Long: `Send an image file to the detector and print the faces it reports.
Useful for checking the detector URL and score threshold before enrolling.`,
	Args: cobra.ExactArgs(1),
	RunE: runDetect,
}

func init() {
	rootCmd.AddCommand(detectCmd)
	detectCmd.Flags().Bool("json", false, "Output as JSON")
}

// DetectResult is the JSON output of the detect command
type DetectResult struct {
	File    string                  `json:"file"`
	Faces   []biometric.Observation `json:"faces"`
	Verdict string                  `json:"verdict"`
}

func runDetect(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read image: %w", err)
	}

	faces, err := newDetector(cfg).Detect(context.Background(), data)
	if err != nil {
		return fmt.Errorf("detection failed: %w", err)
	}
	verdict := biometric.Gate(faces).Verdict

	if mustGetBool(cmd, "json") {
		return outputJSON(DetectResult{File: args[0], Faces: faces, Verdict: verdict.String()})
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tSCORE\tBOX")
	fmt.Fprintln(w, "-\t-----\t---")
	for i, f := range faces {
		fmt.Fprintf(w, "%d\t%.3f\t%.0f,%.0f %.0fx%.0f\n", i, f.Score, f.Box.X1, f.Box.Y1, f.Box.Width(), f.Box.Height())
	}
	w.Flush()

	fmt.Printf("\n%d faces, gate: %s\n", len(faces), verdict)
	return nil
}
