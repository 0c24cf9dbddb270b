// Package biometric holds the face data model shared by the capture pipeline,
// the sessions and the identity server.
package biometric

import (
	"fmt"
	"math"

	"github.com/princesingh-ai-dev/faceauth/internal/constants"
)

// Embedding is a face descriptor produced by the detection model.
type Embedding []float32

// Template is the averaged descriptor that represents one enrolled identity.
type Template = Embedding

// BBox is the bounding region of a detected face in frame coordinates.
type BBox struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

// Width returns the box width.
func (b BBox) Width() float64 {
	return b.X2 - b.X1
}

// Height returns the box height.
func (b BBox) Height() float64 {
	return b.Y2 - b.Y1
}

// Observation is one face detected in one frame. Observations are never
// modified after the detector returns them.
type Observation struct {
	Box       BBox      `json:"box"`
	Embedding Embedding `json:"embedding"`
	Score     float64   `json:"score"`
}

// Match is the outcome of a remote verification call.
type Match struct {
	Matched bool
	Name    string
}

// ValidateEmbedding checks that e has the descriptor dimensionality and only finite values.
func ValidateEmbedding(e Embedding) error {
	if len(e) != constants.EmbeddingDim {
		return fmt.Errorf("%w: got %d values, want %d", ErrDimensionMismatch, len(e), constants.EmbeddingDim)
	}
	for i, v := range e {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("descriptor value %d is not a finite number", i)
		}
	}
	return nil
}
