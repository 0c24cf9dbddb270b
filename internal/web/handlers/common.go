package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/princesingh-ai-dev/faceauth/internal/identity"
)

// sanitizeForLog removes newlines and carriage returns to prevent log injection.
func sanitizeForLog(s string) string {
	return strings.NewReplacer("\n", "", "\r", "").Replace(s)
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondResult sends the {success, message} reply every protocol endpoint uses.
func respondResult(w http.ResponseWriter, status int, success bool, message string) {
	respondJSON(w, status, identity.Result{Success: &success, Message: message})
}

// HealthCheck handles the health check endpoint.
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}
