// Package vision holds the model-agnostic half of inference: tensor
// preprocessing, output decoding and the decision rules of the content gate
// and the style classifier. Networks are reached through Model so the rules
// can be exercised without OpenCV.
package vision

import (
	"errors"
	"fmt"
)

// Model runs a network with one float32 input and one float32 output.
// Implementations must be safe for concurrent use.
type Model interface {
	Run(input []float32, shape []int) ([]float32, []int, error)
	Close() error
}

var ErrOutputShape = errors.New("unexpected model output shape")

func shapeErr(got []int, want string) error {
	return fmt.Errorf("%w: got %v, want %s", ErrOutputShape, got, want)
}

func volume(shape []int) int {
	if len(shape) == 0 {
		return 0
	}
	n := 1
	for _, d := range shape {
		n *= d
	}
	return n
}
