package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/princesingh-ai-dev/faceauth/internal/biometric"
	"github.com/princesingh-ai-dev/faceauth/internal/constants"
	"github.com/princesingh-ai-dev/faceauth/internal/database"
	"github.com/princesingh-ai-dev/faceauth/internal/identity"
)

const (
	msgNameRequired       = "Name is required"
	msgInvalidBody        = "Invalid request body"
	msgUserExists         = "User already exists"
	msgUserNotFound       = "User not found"
	msgRegistered         = "User registered successfully"
	msgDeleted            = "User deleted successfully"
	msgAccessGranted      = "Access granted"
	msgFaceNotRecognized  = "Face not recognized"
	msgRegistrationFailed = "Failed to register user"
	msgVerificationFailed = "Verification failed"
	msgListFailed         = "Failed to fetch users"
	msgDeleteFailed       = "Failed to delete user"
)

// IdentityHandler serves the register, verify, list and delete endpoints.
type IdentityHandler struct {
	store     database.IdentityStore
	threshold float64
	events    *ActivityFeed
}

// NewIdentityHandler creates an identity handler. A nil events feed disables activity streaming.
func NewIdentityHandler(store database.IdentityStore, threshold float64, events *ActivityFeed) *IdentityHandler {
	if events == nil {
		events = NewActivityFeed()
	}
	return &IdentityHandler{store: store, threshold: threshold, events: events}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, constants.MaxRequestBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondResult(w, http.StatusBadRequest, false, msgInvalidBody)
		return false
	}
	return true
}

func validDescriptor(w http.ResponseWriter, descriptor biometric.Embedding) bool {
	if err := biometric.ValidateEmbedding(descriptor); err != nil {
		respondResult(w, http.StatusBadRequest, false, "Invalid descriptor: "+err.Error())
		return false
	}
	return true
}

// Register handles POST /api/register.
func (h *IdentityHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req identity.RegisterRequest
	if !decodeBody(w, r, &req) {
		return
	}

	name := biometric.CleanLabel(req.Name)
	if name == "" {
		respondResult(w, http.StatusBadRequest, false, msgNameRequired)
		return
	}
	if !validDescriptor(w, req.Descriptor) {
		return
	}

	created, err := h.store.Create(r.Context(), name, req.Descriptor)
	if errors.Is(err, database.ErrIdentityExists) {
		respondResult(w, http.StatusConflict, false, msgUserExists)
		return
	}
	if err != nil {
		log.Printf("register %q: %v", sanitizeForLog(name), err)
		respondResult(w, http.StatusInternalServerError, false, msgRegistrationFailed)
		return
	}

	log.Printf("Registered identity %q (id=%d)", sanitizeForLog(created.Name), created.ID)
	h.events.Publish(EventRegistered, created.Name, msgRegistered)
	respondResult(w, http.StatusCreated, true, msgRegistered)
}

// Verify handles POST /api/verify. An unknown face is a 200 with success=false.
func (h *IdentityHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req identity.VerifyRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if !validDescriptor(w, req.Descriptor) {
		return
	}

	match, err := h.store.FindNearest(r.Context(), req.Descriptor, h.threshold)
	if err != nil {
		log.Printf("verify: %v", err)
		respondResult(w, http.StatusInternalServerError, false, msgVerificationFailed)
		return
	}

	success := match != nil
	if !success {
		h.events.Publish(EventDenied, "", msgFaceNotRecognized)
		respondJSON(w, http.StatusOK, identity.VerifyResponse{Success: &success, Message: msgFaceNotRecognized})
		return
	}

	h.events.Publish(EventVerified, match.Identity.Name, msgAccessGranted)
	distance := match.Distance
	respondJSON(w, http.StatusOK, identity.VerifyResponse{
		Success:  &success,
		Message:  msgAccessGranted,
		User:     toUser(match.Identity),
		Distance: &distance,
	})
}

// List handles GET /api/users.
func (h *IdentityHandler) List(w http.ResponseWriter, r *http.Request) {
	identities, err := h.store.List(r.Context())
	if err != nil {
		log.Printf("list identities: %v", err)
		respondResult(w, http.StatusInternalServerError, false, msgListFailed)
		return
	}

	users := make([]identity.User, 0, len(identities))
	for _, stored := range identities {
		users = append(users, *toUser(stored))
	}
	respondJSON(w, http.StatusOK, users)
}

// Delete handles DELETE /api/delete/{name}.
func (h *IdentityHandler) Delete(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	// chi routes on RawPath when the request carries one, leaving the parameter escaped.
	if r.URL.RawPath != "" {
		if unescaped, err := url.PathUnescape(name); err == nil {
			name = unescaped
		}
	}
	name = biometric.CleanLabel(name)
	if name == "" {
		respondResult(w, http.StatusBadRequest, false, msgNameRequired)
		return
	}

	err := h.store.Delete(r.Context(), name)
	if errors.Is(err, database.ErrIdentityNotFound) {
		respondResult(w, http.StatusNotFound, false, msgUserNotFound)
		return
	}
	if err != nil {
		log.Printf("delete %q: %v", sanitizeForLog(name), err)
		respondResult(w, http.StatusInternalServerError, false, msgDeleteFailed)
		return
	}

	log.Printf("Deleted identity %q", sanitizeForLog(name))
	h.events.Publish(EventDeleted, name, msgDeleted)
	respondResult(w, http.StatusOK, true, msgDeleted)
}

func toUser(stored database.StoredIdentity) *identity.User {
	user := &identity.User{Name: stored.Name}
	if !stored.CreatedAt.IsZero() {
		user.CreatedAt = stored.CreatedAt.UTC().Format(time.RFC3339)
	}
	return user
}
