package detector

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
)

// resizeFrame shrinks a frame to fit within maxSize (width or height) keeping
// the aspect ratio. It returns the encoded JPEG and the factor that maps
// coordinates in the resized image back to the original frame.
// Frames that already fit are passed through untouched with factor 1.
func resizeFrame(data []byte, maxSize int) ([]byte, float64, error) {
	if maxSize <= 0 {
		return data, 1, nil
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to decode frame header: %w", err)
	}
	if cfg.Width <= maxSize && cfg.Height <= maxSize {
		return data, 1, nil
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to decode frame: %w", err)
	}

	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	var newWidth, newHeight int
	if width > height {
		newWidth = maxSize
		newHeight = int(float64(height) * float64(maxSize) / float64(width))
	} else {
		newHeight = maxSize
		newWidth = int(float64(width) * float64(maxSize) / float64(height))
	}

	resized := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
	draw.CatmullRom.Scale(resized, resized.Bounds(), img, bounds, draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, resized, &jpeg.Options{Quality: 85}); err != nil {
		return nil, 0, fmt.Errorf("failed to encode resized frame: %w", err)
	}

	return buf.Bytes(), float64(width) / float64(newWidth), nil
}
