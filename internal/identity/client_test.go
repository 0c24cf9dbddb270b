package identity

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/princesingh-ai-dev/faceauth/internal/biometric"
)

func descriptor() biometric.Embedding {
	d := make(biometric.Embedding, 128)
	for i := range d {
		d[i] = float32(i) / 128
	}
	return d
}

func setupMockServer(t *testing.T, handlers map[string]http.HandlerFunc) (*httptest.Server, *Client) {
	t.Helper()

	mux := http.NewServeMux()
	for pattern, handler := range handlers {
		mux.HandleFunc(pattern, handler)
	}
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	client, err := NewClient(server.URL, 0)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	return server, client
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write([]byte(body))
}

func TestNewClient_Validation(t *testing.T) {
	tests := []struct {
		url     string
		wantErr bool
	}{
		{"", true},
		{"ftp://example.com", true},
		{"://bad", true},
		{"http://localhost:8080", false},
		{"https://faces.example.com/", false},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			_, err := NewClient(tt.url, 0)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewClient(%q) error = %v, wantErr %v", tt.url, err, tt.wantErr)
			}
		})
	}
}

func TestRegister_SendsNameAndDescriptor(t *testing.T) {
	var got RegisterRequest
	_, client := setupMockServer(t, map[string]http.HandlerFunc{
		"/api/register": func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				t.Errorf("method = %s, want POST", r.Method)
			}
			if ct := r.Header.Get("Content-Type"); ct != "application/json" {
				t.Errorf("Content-Type = %q", ct)
			}
			if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
				t.Errorf("decoding request: %v", err)
			}
			writeJSON(w, http.StatusOK, `{"success":true,"message":"User registered"}`)
		},
	})

	if err := client.Register(context.Background(), " Ada  Lovelace ", descriptor()); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if got.Name != "Ada Lovelace" {
		t.Errorf("name = %q, want %q", got.Name, "Ada Lovelace")
	}
	if len(got.Descriptor) != 128 || got.Descriptor[127] != descriptor()[127] {
		t.Errorf("descriptor not sent intact: %d values", len(got.Descriptor))
	}
}

func TestRegister_Failures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		check  func(error) bool
	}{
		{"rejected", http.StatusConflict, `{"success":false,"message":"User already exists"}`, func(err error) bool {
			reason, ok := biometric.RejectionReason(err)
			return ok && reason == "User already exists"
		}},
		{"rejected without message", http.StatusOK, `{"success":false}`, func(err error) bool {
			_, ok := biometric.RejectionReason(err)
			return ok
		}},
		{"html page", http.StatusBadGateway, `<html><body>Bad Gateway</body></html>`, func(err error) bool {
			return errors.Is(err, biometric.ErrMalformedResponse) && strings.Contains(err.Error(), "<html>")
		}},
		{"missing success", http.StatusOK, `{"message":"ok"}`, func(err error) bool {
			return errors.Is(err, biometric.ErrMalformedResponse)
		}},
		{"empty body", http.StatusOK, ``, func(err error) bool {
			return errors.Is(err, biometric.ErrMalformedResponse)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, client := setupMockServer(t, map[string]http.HandlerFunc{
				"/api/register": func(w http.ResponseWriter, r *http.Request) {
					writeJSON(w, tt.status, tt.body)
				},
			})

			err := client.Register(context.Background(), "Ada", descriptor())
			if err == nil || !tt.check(err) {
				t.Errorf("Register() error = %v", err)
			}
		})
	}
}

func TestRegister_EmptyNameNeverSent(t *testing.T) {
	called := false
	_, client := setupMockServer(t, map[string]http.HandlerFunc{
		"/api/register": func(w http.ResponseWriter, r *http.Request) {
			called = true
		},
	})

	if err := client.Register(context.Background(), "  ", descriptor()); !errors.Is(err, biometric.ErrEmptyIdentityLabel) {
		t.Errorf("Register() error = %v, want %v", err, biometric.ErrEmptyIdentityLabel)
	}
	if called {
		t.Error("server called with an empty name")
	}
}

func TestRegister_TransportFailure(t *testing.T) {
	server, client := setupMockServer(t, nil)
	server.Close()

	err := client.Register(context.Background(), "Ada", descriptor())
	if !errors.Is(err, biometric.ErrTransport) {
		t.Errorf("Register() error = %v, want %v", err, biometric.ErrTransport)
	}
}

func TestVerify(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		want    biometric.Match
		wantErr error
	}{
		{"match", http.StatusOK, `{"success":true,"user":{"name":"Ada"},"distance":0.31}`, biometric.Match{Matched: true, Name: "Ada"}, nil},
		{"mismatch", http.StatusOK, `{"success":false}`, biometric.Match{}, nil},
		{"success without user", http.StatusOK, `{"success":true}`, biometric.Match{}, biometric.ErrMalformedResponse},
		{"success with empty name", http.StatusOK, `{"success":true,"user":{"name":""}}`, biometric.Match{}, biometric.ErrMalformedResponse},
		{"not json", http.StatusOK, `Internal Server Error`, biometric.Match{}, biometric.ErrMalformedResponse},
		{"null", http.StatusOK, `null`, biometric.Match{}, biometric.ErrMalformedResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, client := setupMockServer(t, map[string]http.HandlerFunc{
				"/api/verify": func(w http.ResponseWriter, r *http.Request) {
					var req VerifyRequest
					if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Descriptor) != 128 {
						t.Errorf("bad verify request: %v (%d values)", err, len(req.Descriptor))
					}
					writeJSON(w, tt.status, tt.body)
				},
			})

			got, err := client.Verify(context.Background(), descriptor())
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Verify() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Verify() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Verify() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestVerify_ServerErrorIsRejection(t *testing.T) {
	_, client := setupMockServer(t, map[string]http.HandlerFunc{
		"/api/verify": func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusBadRequest, `{"success":false,"message":"descriptor must have 128 values"}`)
		},
	})

	_, err := client.Verify(context.Background(), descriptor()[:10])
	reason, ok := biometric.RejectionReason(err)
	if !ok || reason != "descriptor must have 128 values" {
		t.Errorf("Verify() error = %v", err)
	}
}

func TestList(t *testing.T) {
	_, client := setupMockServer(t, map[string]http.HandlerFunc{
		"/api/users": func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				t.Errorf("method = %s, want GET", r.Method)
			}
			writeJSON(w, http.StatusOK, `[{"name":"Ada"},{"name":"Grace"}]`)
		},
	})

	users, err := client.List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(users) != 2 || users[0].Name != "Ada" || users[1].Name != "Grace" {
		t.Errorf("List() = %+v", users)
	}
}

func TestList_Failures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{"object instead of array", http.StatusOK, `{"success":true}`, biometric.ErrMalformedResponse},
		{"garbage", http.StatusOK, `not json`, biometric.ErrMalformedResponse},
		{"server error html", http.StatusInternalServerError, `<h1>oops</h1>`, biometric.ErrMalformedResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, client := setupMockServer(t, map[string]http.HandlerFunc{
				"/api/users": func(w http.ResponseWriter, r *http.Request) {
					writeJSON(w, tt.status, tt.body)
				},
			})
			if _, err := client.List(context.Background()); !errors.Is(err, tt.wantErr) {
				t.Errorf("List() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestList_ServerRejection(t *testing.T) {
	_, client := setupMockServer(t, map[string]http.HandlerFunc{
		"/api/users": func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusInternalServerError, `{"success":false,"message":"database unavailable"}`)
		},
	})
	_, err := client.List(context.Background())
	if reason, ok := biometric.RejectionReason(err); !ok || reason != "database unavailable" {
		t.Errorf("List() error = %v", err)
	}
}

func TestDelete_EscapesName(t *testing.T) {
	tests := []struct {
		name    string
		escaped string
	}{
		{"Ada", "/api/delete/Ada"},
		{"Jan Novák", "/api/delete/Jan%20Nov%C3%A1k"},
		{"a/b", "/api/delete/a%2Fb"},
		{"50%", "/api/delete/50%25"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotPath, gotAccept string
			_, client := setupMockServer(t, map[string]http.HandlerFunc{
				"/api/delete/": func(w http.ResponseWriter, r *http.Request) {
					if r.Method != http.MethodDelete {
						t.Errorf("method = %s, want DELETE", r.Method)
					}
					gotPath = r.URL.EscapedPath()
					gotAccept = r.Header.Get("Accept")
					writeJSON(w, http.StatusOK, `{"success":true,"message":"User deleted"}`)
				},
			})

			if err := client.Delete(context.Background(), tt.name); err != nil {
				t.Fatalf("Delete(%q) error = %v", tt.name, err)
			}
			if gotPath != tt.escaped {
				t.Errorf("path = %q, want %q", gotPath, tt.escaped)
			}
			if gotAccept != "application/json" {
				t.Errorf("Accept = %q", gotAccept)
			}
		})
	}
}

func TestDelete_Failures(t *testing.T) {
	_, client := setupMockServer(t, map[string]http.HandlerFunc{
		"/api/delete/": func(w http.ResponseWriter, r *http.Request) {
			if strings.HasSuffix(r.URL.Path, "/ghost") {
				writeJSON(w, http.StatusNotFound, `{"success":false,"message":"User not found"}`)
				return
			}
			w.Write([]byte("<!DOCTYPE html><html><head><title>Cannot DELETE</title></head></html>"))
		},
	})

	err := client.Delete(context.Background(), "ghost")
	if reason, ok := biometric.RejectionReason(err); !ok || reason != "User not found" {
		t.Errorf("Delete(ghost) error = %v", err)
	}

	err = client.Delete(context.Background(), "Ada")
	if !errors.Is(err, biometric.ErrMalformedResponse) {
		t.Errorf("Delete(Ada) error = %v, want %v", err, biometric.ErrMalformedResponse)
	}
	if !strings.Contains(err.Error(), "<!DOCTYPE html><html><head><title>Cannot DELETE</") {
		t.Errorf("error does not quote the reply: %v", err)
	}
	if strings.Contains(err.Error(), "</html>") {
		t.Errorf("error quotes more than the first 50 characters: %v", err)
	}

	if err := client.Delete(context.Background(), " "); !errors.Is(err, biometric.ErrEmptyIdentityLabel) {
		t.Errorf("Delete(\" \") error = %v", err)
	}
}

func TestSnippet(t *testing.T) {
	long := strings.Repeat("é", 40)
	got := snippet([]byte(long))
	if len(got) > 50 || !strings.HasPrefix(long, got) {
		t.Errorf("snippet() = %q", got)
	}
	if snippet([]byte("short")) != "short" {
		t.Error("short body altered")
	}
}
