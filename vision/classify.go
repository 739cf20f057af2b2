package vision

import (
	"errors"
	"fmt"
	"image"
	"math"
	"os"
	"sort"

	"github.com/goccy/go-json"
	"github.com/krishkalaria12/art-curator/imaging"
)

const ClassifierInputSize = 224

// Score is a style label with its probability.
type Score struct {
	Label       string
	Probability float64
}

// LoadLabels reads the ordered class names written during training.
func LoadLabels(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read class names: %w", err)
	}
	var labels []string
	if err := json.Unmarshal(data, &labels); err != nil {
		return nil, fmt.Errorf("parse class names: %w", err)
	}
	if len(labels) == 0 {
		return nil, errors.New("class names file is empty")
	}
	return labels, nil
}

// Classifier assigns a probability to each style label.
type Classifier struct {
	model  Model
	labels []string
}

func NewClassifier(model Model, labels []string) *Classifier {
	return &Classifier{model: model, labels: labels}
}

// Classify returns the k most probable labels, most probable first.
func (c *Classifier) Classify(img image.Image, k int) ([]Score, error) {
	prepared := imaging.Resize(img, ClassifierInputSize, ClassifierInputSize)
	input, shape := ToCHW(prepared, ImageNet)

	logits, outShape, err := c.model.Run(input, shape)
	if err != nil {
		return nil, err
	}
	if len(logits) != len(c.labels) {
		return nil, shapeErr(outShape, fmt.Sprintf("[1 %d]", len(c.labels)))
	}
	return TopK(Softmax(logits), c.labels, k), nil
}

// Softmax converts logits to probabilities.
func Softmax(logits []float32) []float64 {
	if len(logits) == 0 {
		return nil
	}
	maxLogit := float64(logits[0])
	for _, l := range logits[1:] {
		maxLogit = math.Max(maxLogit, float64(l))
	}
	probs := make([]float64, len(logits))
	var sum float64
	for i, l := range logits {
		probs[i] = math.Exp(float64(l) - maxLogit)
		sum += probs[i]
	}
	for i := range probs {
		probs[i] /= sum
	}
	return probs
}

// TopK returns the k highest probabilities in descending order. Equal
// probabilities keep label order.
func TopK(probs []float64, labels []string, k int) []Score {
	idx := make([]int, len(probs))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return probs[idx[a]] > probs[idx[b]]
	})
	if k > len(idx) {
		k = len(idx)
	}
	out := make([]Score, k)
	for i := 0; i < k; i++ {
		out[i] = Score{Label: labels[idx[i]], Probability: probs[idx[i]]}
	}
	return out
}
