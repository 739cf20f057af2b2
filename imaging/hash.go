package imaging

import (
	"fmt"
	"image"

	"github.com/corona10/goimagehash"
)

// AverageHash returns the 64-bit average hash of img as 16 hex digits.
func AverageHash(img image.Image) (string, error) {
	h, err := goimagehash.AverageHash(img)
	if err != nil {
		return "", fmt.Errorf("average hash: %w", err)
	}
	return fmt.Sprintf("%016x", h.GetHash()), nil
}
