package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/princesingh-ai-dev/faceauth/internal/database/mock"
)

const testThreshold = 0.6

// descriptor returns a 128-dim descriptor with every value set to v.
func descriptor(v float32) []float32 {
	d := make([]float32, 128)
	for i := range d {
		d[i] = v
	}
	return d
}

// newTestHandler creates a handler backed by an in-memory store
func newTestHandler(t *testing.T) (*IdentityHandler, *mock.MockIdentityStore, *ActivityFeed) {
	t.Helper()
	store := mock.NewMockIdentityStore()
	events := NewActivityFeed()
	return NewIdentityHandler(store, testThreshold, events), store, events
}

// jsonRequest creates a request with body encoded as JSON
func jsonRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// requestWithChiParams creates a request with chi URL parameters
func requestWithChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// decodeResult decodes a {success, message} reply
func decodeResult(t *testing.T, recorder *httptest.ResponseRecorder) (bool, string) {
	t.Helper()
	var res struct {
		Success *bool  `json:"success"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(recorder.Body.Bytes(), &res); err != nil {
		t.Fatalf("failed to unmarshal response %q: %v", recorder.Body.String(), err)
	}
	if res.Success == nil {
		t.Fatalf("response %q has no success field", recorder.Body.String())
	}
	return *res.Success, res.Message
}
