package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/princesingh-ai-dev/faceauth/internal/camera"
	"github.com/princesingh-ai-dev/faceauth/internal/config"
	"github.com/spf13/cobra"
)

var camerasCmd = &cobra.Command{
	Use:   "cameras",
	Short: "List video capture devices",
	Long: `List the video capture devices found on this machine, in the order
enroll and verify try them when no --device is given.`,
	Args: cobra.NoArgs,
	RunE: runCameras,
}

func init() {
	rootCmd.AddCommand(camerasCmd)
	camerasCmd.Flags().Bool("json", false, "Output as JSON")
}

func runCameras(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	devices, err := camera.ListDevices()
	if err != nil {
		return fmt.Errorf("failed to list cameras: %w", err)
	}
	devices = camera.SortByPreference(devices, cfg.Camera.Preferred)

	if mustGetBool(cmd, "json") {
		return outputJSON(devices)
	}

	if len(devices) == 0 {
		fmt.Println("No cameras found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "DEVICE\tNAME\tACCESSIBLE")
	fmt.Fprintln(w, "------\t----\t----------")
	for _, d := range devices {
		fmt.Fprintf(w, "%s\t%s\t%t\n", d.Path, d.Name, d.Accessible)
	}
	w.Flush()
	return nil
}
