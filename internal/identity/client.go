// Package identity is the client side of the identity server protocol:
// register, verify, list and delete enrolled faces.
package identity

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/princesingh-ai-dev/faceauth/internal/biometric"
)

const (
	pathRegister = "api/register"
	pathVerify   = "api/verify"
	pathUsers    = "api/users"
	pathDelete   = "api/delete"
)

// Client talks to an identity server.
type Client struct {
	URL        string
	parsedURL  *url.URL
	httpClient *http.Client
}

// NewClient creates a client for the server at baseURL. A zero timeout leaves
// deadlines entirely to the caller's context.
func NewClient(baseURL string, timeout time.Duration) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("identity server URL is required")
	}
	parsed, err := url.Parse(strings.TrimSuffix(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid identity server URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("invalid identity server URL %q: scheme must be http or https", baseURL)
	}
	return &Client{
		URL:        parsed.String(),
		parsedURL:  parsed,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// resolveURL builds a full URL from the server URL and the given path segments.
func (c *Client) resolveURL(pathSegments ...string) string {
	return c.parsedURL.JoinPath(pathSegments...).String()
}

// resolveNameURL builds a URL whose last segment is an escaped identity name.
func (c *Client) resolveNameURL(prefix, name string) string {
	u := *c.parsedURL
	u.Path = strings.TrimSuffix(u.Path, "/") + "/" + prefix + "/" + name
	u.RawPath = strings.TrimSuffix(c.parsedURL.EscapedPath(), "/") + "/" + prefix + "/" + url.PathEscape(name)
	return u.String()
}

// Register stores template under name. A refusal is returned as *biometric.ServerRejectedError.
func (c *Client) Register(ctx context.Context, name string, template biometric.Template) error {
	name = biometric.CleanLabel(name)
	if name == "" {
		return biometric.ErrEmptyIdentityLabel
	}

	res, status, err := doRequestJSON[Result](ctx, c, http.MethodPost, c.resolveURL(pathRegister), RegisterRequest{
		Name:       name,
		Descriptor: template,
	})
	if err != nil {
		return err
	}
	return res.check(status)
}

// Verify asks the server for the identity nearest to descriptor.
// A reply of success=false on a 2xx status is a mismatch, not an error.
func (c *Client) Verify(ctx context.Context, descriptor biometric.Embedding) (biometric.Match, error) {
	res, status, err := doRequestJSON[VerifyResponse](ctx, c, http.MethodPost, c.resolveURL(pathVerify), VerifyRequest{
		Descriptor: descriptor,
	})
	if err != nil {
		return biometric.Match{}, err
	}

	if res.Success == nil {
		return biometric.Match{}, fmt.Errorf("%w: verify reply has no success field", biometric.ErrMalformedResponse)
	}
	if !*res.Success {
		if !isSuccessStatus(status) {
			return biometric.Match{}, rejection(res.Message, status)
		}
		return biometric.Match{Matched: false}, nil
	}
	if res.User == nil || res.User.Name == "" {
		return biometric.Match{}, fmt.Errorf("%w: verify reply has no user name", biometric.ErrMalformedResponse)
	}
	return biometric.Match{Matched: true, Name: res.User.Name}, nil
}

// List returns all enrolled identities in server order.
func (c *Client) List(ctx context.Context) ([]User, error) {
	body, status, err := doRequestRaw(ctx, c, http.MethodGet, c.resolveURL(pathUsers), nil)
	if err != nil {
		return nil, err
	}

	if !isSuccessStatus(status) {
		var res Result
		if decodeErr := decodeJSON(body, &res); decodeErr != nil {
			return nil, decodeErr
		}
		return nil, rejection(res.Message, status)
	}

	var users []User
	if err := decodeJSON(body, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// Delete removes the identity called name.
func (c *Client) Delete(ctx context.Context, name string) error {
	if strings.TrimSpace(name) == "" {
		return biometric.ErrEmptyIdentityLabel
	}
	res, status, err := doRequestJSON[Result](ctx, c, http.MethodDelete, c.resolveNameURL(pathDelete, name), nil)
	if err != nil {
		return err
	}
	return res.check(status)
}

// check interprets a {success, message} reply.
func (r *Result) check(status int) error {
	if r.Success == nil {
		return fmt.Errorf("%w: reply has no success field", biometric.ErrMalformedResponse)
	}
	if !*r.Success {
		return rejection(r.Message, status)
	}
	return nil
}

func rejection(message string, status int) error {
	if message == "" {
		message = fmt.Sprintf("request failed with status %d", status)
	}
	return &biometric.ServerRejectedError{Reason: message}
}
