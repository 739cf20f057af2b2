package vision

import (
	"image"
	"image/color"
)

// Normalization maps 8-bit channels to model input values:
// (v*Scale - Mean[c]) / Std[c].
type Normalization struct {
	Scale float32
	Mean  [3]float32
	Std   [3]float32
}

var (
	// ImageNet statistics used by the style classifier.
	ImageNet = Normalization{
		Scale: 1.0 / 255,
		Mean:  [3]float32{0.485, 0.456, 0.406},
		Std:   [3]float32{0.229, 0.224, 0.225},
	}
	// CLIP statistics used by the image encoder of the content gate.
	CLIP = Normalization{
		Scale: 1.0 / 255,
		Mean:  [3]float32{0.48145466, 0.4578275, 0.40821073},
		Std:   [3]float32{0.26862954, 0.26130258, 0.27577711},
	}
	// UnitScale maps pixels to 0..1, as YOLO expects.
	UnitScale = Normalization{Scale: 1.0 / 255, Std: [3]float32{1, 1, 1}}
	// PixelRange keeps raw 0..255 values, as the style transfer nets expect.
	PixelRange = Normalization{Scale: 1, Std: [3]float32{1, 1, 1}}
)

// ToCHW lays img out as a 1x3xHxW RGB tensor.
func ToCHW(img image.Image, n Normalization) ([]float32, []int) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	plane := w * h
	out := make([]float32, 3*plane)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			i := y*w + x
			out[i] = (float32(r>>8)*n.Scale - n.Mean[0]) / n.Std[0]
			out[plane+i] = (float32(g>>8)*n.Scale - n.Mean[1]) / n.Std[1]
			out[2*plane+i] = (float32(bl>>8)*n.Scale - n.Mean[2]) / n.Std[2]
		}
	}
	return out, []int{1, 3, h, w}
}

// FromCHW converts a 1x3xHxW tensor of 0..255 values back to an image,
// clamping out of range values.
func FromCHW(data []float32, shape []int) (*image.RGBA, error) {
	if len(shape) != 4 || shape[0] != 1 || shape[1] != 3 || volume(shape) != len(data) {
		return nil, shapeErr(shape, "[1 3 H W]")
	}
	h, w := shape[2], shape[3]
	plane := w * h
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*w + x
			img.SetRGBA(x, y, color.RGBA{
				R: clamp8(data[i]),
				G: clamp8(data[plane+i]),
				B: clamp8(data[2*plane+i]),
				A: 255,
			})
		}
	}
	return img, nil
}

func clamp8(v float32) uint8 {
	switch {
	case v != v, v <= 0:
		return 0
	case v >= 255:
		return 255
	default:
		return uint8(v + 0.5)
	}
}
