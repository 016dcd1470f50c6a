// Package thumbnail derives small JPEG previews from uploaded images.
// Derivation is best-effort by contract: callers log failures and proceed
// without a preview.
package thumbnail

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"

	"golang.org/x/image/draw"
)

// MaxEdge is the bounding box for generated previews: the longer image edge
// is scaled down to this many pixels, preserving aspect ratio.
const MaxEdge = 256

const jpegQuality = 80

// Generator produces preview bytes from original image bytes.
type Generator interface {
	Generate(original []byte) ([]byte, error)
}

// JPEGGenerator decodes PNG/JPEG/GIF originals and re-encodes a scaled JPEG.
type JPEGGenerator struct{}

func NewJPEGGenerator() *JPEGGenerator {
	return &JPEGGenerator{}
}

func (g *JPEGGenerator) Generate(original []byte) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(original))
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}

	bounds := src.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("empty image %dx%d", width, height)
	}

	// Images already inside the bounding box are re-encoded as-is.
	if width > MaxEdge || height > MaxEdge {
		if width >= height {
			height = height * MaxEdge / width
			width = MaxEdge
		} else {
			width = width * MaxEdge / height
			height = MaxEdge
		}
		if width < 1 {
			width = 1
		}
		if height < 1 {
			height = 1
		}

		dst := image.NewRGBA(image.Rect(0, 0, width, height))
		draw.BiLinear.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)
		src = dst
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, src, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("encoding preview: %w", err)
	}

	return buf.Bytes(), nil
}
