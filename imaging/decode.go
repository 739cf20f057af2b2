// Package imaging decodes uploads and applies the geometric transforms the
// inference stages need.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"
)

const (
	MaxImageWidth  = 8000
	MaxImageHeight = 8000
)

var ErrUnsupportedImage = errors.New("unsupported or corrupt image")

// Decode turns raw upload bytes into an upright, opaque RGBA image.
// Transparent areas are flattened onto white.
func Decode(data []byte) (*image.RGBA, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty file", ErrUnsupportedImage)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}
	if cfg.Width > MaxImageWidth || cfg.Height > MaxImageHeight {
		return nil, fmt.Errorf("%w: image too large (max %dx%d)", ErrUnsupportedImage, MaxImageWidth, MaxImageHeight)
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}

	upright := ApplyOrientation(src, Orientation(data))
	return flatten(upright), nil
}

func flatten(src image.Image) *image.RGBA {
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Over)
	return dst
}
