package images

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"

	_ "image/gif"
	_ "image/png"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // webp decode support
)

// ErrBudget is returned when no quality level fits the byte budget.
var ErrBudget = errors.New("image cannot be compressed under the byte budget")

const (
	// DefaultMaxBytes matches the platform's attachment budget.
	DefaultMaxBytes = 1 << 20

	maxDimension = 2048
	startQuality = 95
	minQuality   = 10
	qualityStep  = 5
)

// Compress re-encodes an uploaded image as JPEG under maxBytes, stepping the
// quality down until it fits. Oversized images are downscaled first so the
// quality loop starts from a reasonable point. Transparency is flattened
// onto white.
func Compress(data []byte, maxBytes int) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	flattened := flatten(downscale(src))

	var buf bytes.Buffer
	for quality := startQuality; quality > minQuality; quality -= qualityStep {
		buf.Reset()
		if err := jpeg.Encode(&buf, flattened, &jpeg.Options{Quality: quality}); err != nil {
			return nil, fmt.Errorf("encode jpeg: %w", err)
		}
		if buf.Len() <= maxBytes {
			return append([]byte(nil), buf.Bytes()...), nil
		}
	}
	return nil, ErrBudget
}

func downscale(src image.Image) image.Image {
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	longest := max(w, h)
	if longest <= maxDimension {
		return src
	}
	scale := float64(maxDimension) / float64(longest)
	dst := image.NewRGBA(image.Rect(0, 0, int(float64(w)*scale), int(float64(h)*scale)))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)
	return dst
}

func flatten(src image.Image) image.Image {
	bounds := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)
	draw.Draw(dst, dst.Bounds(), src, bounds.Min, draw.Over)
	return dst
}
