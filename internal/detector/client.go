// Package detector calls the face embedding server that turns a camera frame
// into face observations.
package detector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/princesingh-ai-dev/faceauth/internal/biometric"
	"github.com/princesingh-ai-dev/faceauth/internal/constants"
)

const defaultDetectorURL = "http://localhost:8000"

// Options configures a Client.
type Options struct {
	MinScore     float64
	MaxImageSize int
	Timeout      time.Duration
}

// Client posts frames to the embedding server's face endpoint.
type Client struct {
	baseURL      string
	minScore     float64
	maxImageSize int
	client       *http.Client
}

// NewClient creates a detector client.
func NewClient(baseURL string, opts Options) *Client {
	if baseURL == "" {
		baseURL = defaultDetectorURL
	}
	if opts.MaxImageSize == 0 {
		opts.MaxImageSize = constants.MaxImageSize
	}
	return &Client{
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		minScore:     opts.MinScore,
		maxImageSize: opts.MaxImageSize,
		client:       &http.Client{Timeout: opts.Timeout},
	}
}

// FaceDetection represents a single detected face
type FaceDetection struct {
	FaceIndex int       `json:"face_index"`
	Dim       int       `json:"dim"`
	Embedding []float32 `json:"embedding"`
	BBox      []float64 `json:"bbox"` // [x1, y1, x2, y2]
	DetScore  float64   `json:"det_score"`
}

// FaceResponse represents the response from the face embedding endpoint
type FaceResponse struct {
	FacesCount int             `json:"faces_count"`
	Faces      []FaceDetection `json:"faces"`
	Model      string          `json:"model"`
}

// Detect returns the faces found in frame, in the order the server reports them.
func (c *Client) Detect(ctx context.Context, frame []byte) ([]biometric.Observation, error) {
	data, scale, err := resizeFrame(frame, c.maxImageSize)
	if err != nil {
		return nil, err
	}

	resp, err := c.ComputeFaceEmbeddings(ctx, data)
	if err != nil {
		return nil, err
	}

	obs := make([]biometric.Observation, 0, len(resp.Faces))
	for _, face := range resp.Faces {
		if c.minScore > 0 && face.DetScore < c.minScore {
			continue
		}
		if err := biometric.ValidateEmbedding(face.Embedding); err != nil {
			return nil, fmt.Errorf("face %d: %w", face.FaceIndex, err)
		}
		obs = append(obs, biometric.Observation{
			Box:       toBBox(face.BBox, scale),
			Embedding: face.Embedding,
			Score:     face.DetScore,
		})
	}
	return obs, nil
}

// ComputeFaceEmbeddings posts an image to /embed/face and returns the raw server reply.
func (c *Client) ComputeFaceEmbeddings(ctx context.Context, imageData []byte) (*FaceResponse, error) {
	body, err := c.postMultipartImage(ctx, "/embed/face", imageData)
	if err != nil {
		return nil, err
	}

	var faceResp FaceResponse
	if err := json.Unmarshal(body, &faceResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return &faceResp, nil
}

// postMultipartImage posts the image as the "file" form field with its detected MIME type.
func (c *Client) postMultipartImage(ctx context.Context, endpoint string, imageData []byte) ([]byte, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="frame.jpg"`)
	h.Set("Content-Type", http.DetectContentType(imageData))
	part, err := writer.CreatePart(h)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(imageData); err != nil {
		return nil, fmt.Errorf("failed to write image data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}
	return body, nil
}

func toBBox(box []float64, scale float64) biometric.BBox {
	if len(box) < 4 {
		return biometric.BBox{}
	}
	return biometric.BBox{
		X1: box[0] * scale,
		Y1: box[1] * scale,
		X2: box[2] * scale,
		Y2: box[3] * scale,
	}
}
