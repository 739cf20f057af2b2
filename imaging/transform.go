package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"

	"github.com/disintegration/gift"
)

const JPEGQuality = 90

func apply(src image.Image, filters ...gift.Filter) *image.RGBA {
	g := gift.New(filters...)
	dst := image.NewRGBA(g.Bounds(src.Bounds()))
	g.Draw(dst, src)
	return dst
}

// Crop returns the part of src inside r, clipped to the image bounds.
func Crop(src image.Image, r image.Rectangle) *image.RGBA {
	return apply(src, gift.Crop(r.Intersect(src.Bounds())))
}

// Resize stretches src to exactly width x height.
func Resize(src image.Image, width, height int) *image.RGBA {
	return apply(src, gift.Resize(width, height, gift.LinearResampling))
}

// ResizeToFill scales the shorter side to fit and center crops the rest.
func ResizeToFill(src image.Image, width, height int) *image.RGBA {
	return apply(src, gift.ResizeToFill(width, height, gift.CubicResampling, gift.CenterAnchor))
}

// EncodeJPEG encodes img at the given quality (1..100).
func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}
