package identity

import "github.com/princesingh-ai-dev/faceauth/internal/biometric"

// RegisterRequest is the body of POST /api/register.
type RegisterRequest struct {
	Name       string              `json:"name"`
	Descriptor biometric.Embedding `json:"descriptor"`
}

// VerifyRequest is the body of POST /api/verify.
type VerifyRequest struct {
	Descriptor biometric.Embedding `json:"descriptor"`
}

// User is one enrolled identity as listed by GET /api/users.
type User struct {
	Name      string `json:"name"`
	CreatedAt string `json:"created_at,omitempty"`
}

// Result is the {success, message} reply shared by register and delete.
// Success is a pointer so a reply without the field is detected as malformed.
type Result struct {
	Success *bool  `json:"success"`
	Message string `json:"message,omitempty"`
}

// VerifyResponse is the reply of POST /api/verify.
type VerifyResponse struct {
	Success  *bool    `json:"success"`
	Message  string   `json:"message,omitempty"`
	User     *User    `json:"user,omitempty"`
	Distance *float64 `json:"distance,omitempty"`
}
