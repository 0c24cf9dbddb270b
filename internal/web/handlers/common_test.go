package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRespondJSON_SetsContentTypeAndStatus(t *testing.T) {
	recorder := httptest.NewRecorder()

	respondJSON(recorder, http.StatusCreated, map[string]string{"status": "ok"})

	if recorder.Code != http.StatusCreated {
		t.Errorf("expected status %d, got %d", http.StatusCreated, recorder.Code)
	}
	if ct := recorder.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected Content-Type 'application/json', got '%s'", ct)
	}
}

func TestRespondJSON_NilData(t *testing.T) {
	recorder := httptest.NewRecorder()

	respondJSON(recorder, http.StatusOK, nil)

	if recorder.Body.Len() != 0 {
		t.Errorf("expected empty body for nil data, got '%s'", recorder.Body.String())
	}
}

func TestRespondResult(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		success bool
		message string
	}{
		{"created", http.StatusCreated, true, "User registered successfully"},
		{"conflict", http.StatusConflict, false, "User already exists"},
		{"server error", http.StatusInternalServerError, false, "Failed to fetch users"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			recorder := httptest.NewRecorder()
			respondResult(recorder, tc.status, tc.success, tc.message)

			if recorder.Code != tc.status {
				t.Errorf("expected status %d, got %d", tc.status, recorder.Code)
			}
			success, message := decodeResult(t, recorder)
			if success != tc.success || message != tc.message {
				t.Errorf("got (%v, %q), want (%v, %q)", success, message, tc.success, tc.message)
			}
		})
	}
}

func TestRespondResult_FalseIsSerialized(t *testing.T) {
	recorder := httptest.NewRecorder()
	respondResult(recorder, http.StatusOK, false, "")

	var raw map[string]any
	if err := json.Unmarshal(recorder.Body.Bytes(), &raw); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if v, ok := raw["success"]; !ok || v != false {
		t.Errorf("expected explicit success=false, got %v", raw)
	}
}

func TestSanitizeForLog(t *testing.T) {
	if got := sanitizeForLog("Alice\r\nINFO forged"); got != "AliceINFO forged" {
		t.Errorf("sanitizeForLog = %q", got)
	}
}

func TestHealthCheck(t *testing.T) {
	recorder := httptest.NewRecorder()
	HealthCheck(recorder, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	var result map[string]string
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if result["status"] != "ok" {
		t.Errorf("expected status 'ok', got '%s'", result["status"])
	}
}
