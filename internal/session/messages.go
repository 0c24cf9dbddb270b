package session

import "fmt"

// User facing status messages.
const (
	msgEnrollmentStarted  = "Enrollment Mode: Capturing Frames..."
	msgHoldStill          = "No Face Detected. Stay still."
	msgOneFaceOnly        = "Multiple Faces Detected. Ensure only one face."
	msgNoValidFrames      = "Enrollment Failed. No valid frames."
	msgRegistrationFailed = "Network error during registration."
	msgVerifying          = "Auth Mode: Verifying..."
	msgNoFaceAlert        = "Alert: No Face Detected."
	msgMultipleFacesAlert = "Alert: Multiple Faces Detected."
	msgMismatch           = "Alert: Face Mismatch. Access Denied."
	msgVerifyFailed       = "Network error during verification."
)

func msgCapturing(count, target int) string {
	return fmt.Sprintf("Capturing... %d/%d", count, target)
}

func msgEnrollmentComplete(label string) string {
	return fmt.Sprintf("Enrollment Complete for %s.", label)
}

func msgServerError(reason string) string {
	return "Error: " + reason
}

func msgAccessGranted(name string) string {
	return "Auth Success: Access Granted. Welcome " + name
}
