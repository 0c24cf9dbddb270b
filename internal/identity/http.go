package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"unicode/utf8"

	"github.com/princesingh-ai-dev/faceauth/internal/biometric"
	"github.com/princesingh-ai-dev/faceauth/internal/constants"
)

// doRequestJSON performs a request with an optional JSON body and decodes the
// JSON reply into T regardless of status code; the protocol carries failures
// in the body. The status code is returned for the caller to interpret.
func doRequestJSON[T any](ctx context.Context, c *Client, method, url string, requestBody any) (*T, int, error) {
	body, status, err := doRequestRaw(ctx, c, method, url, requestBody)
	if err != nil {
		return nil, 0, err
	}

	var result T
	if err := decodeJSON(body, &result); err != nil {
		return nil, status, err
	}
	return &result, status, nil
}

// doRequestRaw performs a request and returns the raw reply body.
func doRequestRaw(ctx context.Context, c *Client, method, url string, requestBody any) ([]byte, int, error) {
	var bodyReader io.Reader
	if requestBody != nil {
		jsonBody, err := json.Marshal(requestBody)
		if err != nil {
			return nil, 0, fmt.Errorf("could not marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, 0, fmt.Errorf("could not create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if requestBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req) //nolint:gosec // URL built from the configured server URL
	if err != nil {
		return nil, 0, fmt.Errorf("%w: could not send request: %w", biometric.ErrTransport, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, constants.MaxResponseBodySize))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("%w: could not read response body: %w", biometric.ErrTransport, err)
	}
	return body, resp.StatusCode, nil
}

// decodeJSON unmarshals body into target, reporting any failure as a malformed response.
func decodeJSON(body []byte, target any) error {
	if err := json.Unmarshal(body, target); err != nil {
		return fmt.Errorf("%w: server returned non-JSON: %q", biometric.ErrMalformedResponse, snippet(body))
	}
	return nil
}

// snippet returns the start of body for error messages.
func snippet(body []byte) string {
	if len(body) <= constants.ResponseSnippetLength {
		return string(body)
	}
	cut := body[:constants.ResponseSnippetLength]
	for len(cut) > 0 && !utf8.Valid(cut) {
		cut = cut[:len(cut)-1]
	}
	return string(cut)
}

func isSuccessStatus(code int) bool {
	return code >= 200 && code < 300
}
