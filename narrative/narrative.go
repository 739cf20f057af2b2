// Package narrative writes the curator notes shown next to a classification.
package narrative

import (
	"context"
	"fmt"
)

// Describer produces a short description of a painting of the given style.
type Describer interface {
	Describe(ctx context.Context, style string, jpeg []byte) (string, error)
}

// Fallback is used whenever no generated description is available.
func Fallback(style string) string {
	return fmt.Sprintf("This %s painting showcases unique visual qualities that provoke emotion and insight.", style)
}
