package vision

import (
	"image"
	"sort"

	"github.com/krishkalaria12/art-curator/imaging"
)

const (
	DetectorInputSize = 640
	nmsIoU            = 0.7
)

// Box is a detection in source image pixel coordinates.
type Box struct {
	X1, Y1, X2, Y2 float32
	Confidence     float32
	Class          int
}

func (b Box) Area() float32 {
	w, h := b.X2-b.X1, b.Y2-b.Y1
	if w <= 0 || h <= 0 {
		return 0
	}
	return w * h
}

// Rect truncates the corners to whole pixels.
func (b Box) Rect() image.Rectangle {
	return image.Rect(int(b.X1), int(b.Y1), int(b.X2), int(b.Y2))
}

// Detector finds painting-like regions with a YOLOv8 style network.
type Detector struct {
	model      Model
	confidence float32
}

func NewDetector(model Model, confidence float64) *Detector {
	return &Detector{model: model, confidence: float32(confidence)}
}

// Detect returns the boxes that survive the confidence threshold and
// non-maximum suppression, ordered by confidence.
func (d *Detector) Detect(img image.Image) ([]Box, error) {
	b := img.Bounds()
	resized := imaging.Resize(img, DetectorInputSize, DetectorInputSize)
	input, shape := ToCHW(resized, UnitScale)

	out, outShape, err := d.model.Run(input, shape)
	if err != nil {
		return nil, err
	}

	sx := float32(b.Dx()) / DetectorInputSize
	sy := float32(b.Dy()) / DetectorInputSize
	boxes, err := DecodeYOLO(out, outShape, d.confidence, sx, sy)
	if err != nil {
		return nil, err
	}
	return NMS(boxes, nmsIoU), nil
}

// DecodeYOLO reads a [1, 4+classes, anchors] output (or its transpose) with
// rows cx, cy, w, h followed by per-class scores, and scales the boxes by
// sx, sy back to source pixels.
func DecodeYOLO(out []float32, shape []int, conf, sx, sy float32) ([]Box, error) {
	if len(shape) != 3 || shape[0] != 1 || volume(shape) != len(out) {
		return nil, shapeErr(shape, "[1 4+classes anchors]")
	}

	attrs, anchors := shape[1], shape[2]
	transposed := false
	if attrs > anchors {
		attrs, anchors = anchors, attrs
		transposed = true
	}
	if attrs < 5 {
		return nil, shapeErr(shape, "at least 5 attributes per anchor")
	}

	at := func(attr, anchor int) float32 {
		if transposed {
			return out[anchor*attrs+attr]
		}
		return out[attr*anchors+anchor]
	}

	var boxes []Box
	for i := 0; i < anchors; i++ {
		best, cls := float32(-1), -1
		for c := 4; c < attrs; c++ {
			if s := at(c, i); s > best {
				best, cls = s, c-4
			}
		}
		if best < conf {
			continue
		}
		cx, cy, w, h := at(0, i), at(1, i), at(2, i), at(3, i)
		boxes = append(boxes, Box{
			X1:         (cx - w/2) * sx,
			Y1:         (cy - h/2) * sy,
			X2:         (cx + w/2) * sx,
			Y2:         (cy + h/2) * sy,
			Confidence: best,
			Class:      cls,
		})
	}
	return boxes, nil
}

// NMS keeps the most confident box of every overlapping cluster.
func NMS(boxes []Box, iouThreshold float32) []Box {
	sorted := make([]Box, len(boxes))
	copy(sorted, boxes)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Confidence > sorted[j].Confidence
	})

	var kept []Box
	for _, b := range sorted {
		keep := true
		for _, k := range kept {
			if iou(b, k) > iouThreshold {
				keep = false
				break
			}
		}
		if keep {
			kept = append(kept, b)
		}
	}
	return kept
}

func iou(a, b Box) float32 {
	inter := Box{
		X1: max(a.X1, b.X1),
		Y1: max(a.Y1, b.Y1),
		X2: min(a.X2, b.X2),
		Y2: min(a.Y2, b.Y2),
	}.Area()
	union := a.Area() + b.Area() - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

// LargestBox picks the box with the maximum area; the earliest wins a tie.
func LargestBox(boxes []Box) (Box, bool) {
	if len(boxes) == 0 {
		return Box{}, false
	}
	best := boxes[0]
	for _, b := range boxes[1:] {
		if b.Area() > best.Area() {
			best = b
		}
	}
	return best, true
}
