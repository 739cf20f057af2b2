package vision

import (
	"image"

	"github.com/krishkalaria12/art-curator/imaging"
)

// Stylizer applies a fast neural style transfer network.
type Stylizer struct {
	model Model
	size  int
}

func NewStylizer(model Model, size int) *Stylizer {
	return &Stylizer{model: model, size: size}
}

// Apply scales the shorter side of img to the input size, center crops it
// square and runs the transform network.
func (s *Stylizer) Apply(img image.Image) (*image.RGBA, error) {
	prepared := imaging.ResizeToFill(img, s.size, s.size)
	input, shape := ToCHW(prepared, PixelRange)
	out, outShape, err := s.model.Run(input, shape)
	if err != nil {
		return nil, err
	}
	return FromCHW(out, outShape)
}

func (s *Stylizer) Close() error {
	return s.model.Close()
}
