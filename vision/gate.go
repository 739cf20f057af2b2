package vision

import (
	"errors"
	"fmt"
	"image"
	"math"
	"os"

	"github.com/goccy/go-json"
	"github.com/krishkalaria12/art-curator/imaging"
)

const EmbedderInputSize = 224

// Prompt is one text prompt with its precomputed text-encoder embedding.
type Prompt struct {
	Text      string    `json:"prompt"`
	Embedding []float32 `json:"embedding"`
}

// PromptSet holds the artwork (positive) and non-artwork (negative) prompts.
type PromptSet struct {
	Positive []Prompt `json:"positive"`
	Negative []Prompt `json:"negative"`
}

// LoadPromptSet reads the JSON artifact written by the offline text encoder
// and L2-normalises every embedding.
func LoadPromptSet(path string) (*PromptSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read prompt embeddings: %w", err)
	}
	var set PromptSet
	if err := json.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("parse prompt embeddings: %w", err)
	}
	if err := set.normalize(); err != nil {
		return nil, err
	}
	return &set, nil
}

func (s *PromptSet) normalize() error {
	if len(s.Positive) == 0 || len(s.Negative) == 0 {
		return errors.New("prompt embeddings need at least one positive and one negative prompt")
	}
	dim := len(s.Positive[0].Embedding)
	for _, group := range [][]Prompt{s.Positive, s.Negative} {
		for i := range group {
			if len(group[i].Embedding) != dim || dim == 0 {
				return fmt.Errorf("prompt %q: embedding has %d dimensions, want %d", group[i].Text, len(group[i].Embedding), dim)
			}
			l2Normalize(group[i].Embedding)
		}
	}
	return nil
}

func (s *PromptSet) Dim() int { return len(s.Positive[0].Embedding) }

// Verdict is the outcome of the content gate.
type Verdict struct {
	Accepted       bool    `json:"accepted"`
	PositiveScore  float64 `json:"positive_score"`
	NegativeScore  float64 `json:"negative_score"`
	PositivePrompt string  `json:"positive_prompt"`
	NegativePrompt string  `json:"negative_prompt"`
}

// Gate decides whether an image plausibly shows an artwork by comparing its
// embedding against both prompt sets.
type Gate struct {
	model   Model
	prompts *PromptSet
}

func NewGate(model Model, prompts *PromptSet) *Gate {
	return &Gate{model: model, prompts: prompts}
}

func (g *Gate) Check(img image.Image) (Verdict, error) {
	emb, err := g.embed(img)
	if err != nil {
		return Verdict{}, err
	}
	return Judge(emb, g.prompts), nil
}

func (g *Gate) embed(img image.Image) ([]float32, error) {
	prepared := imaging.ResizeToFill(img, EmbedderInputSize, EmbedderInputSize)
	input, shape := ToCHW(prepared, CLIP)
	out, outShape, err := g.model.Run(input, shape)
	if err != nil {
		return nil, err
	}
	if len(out) != g.prompts.Dim() {
		return nil, shapeErr(outShape, fmt.Sprintf("[1 %d]", g.prompts.Dim()))
	}
	emb := make([]float32, len(out))
	copy(emb, out)
	l2Normalize(emb)
	return emb, nil
}

// Judge scores a normalised image embedding against the prompt sets.
func Judge(emb []float32, prompts *PromptSet) Verdict {
	pos, posText := maxSimilarity(emb, prompts.Positive)
	neg, negText := maxSimilarity(emb, prompts.Negative)
	return Verdict{
		Accepted:       Accept(pos, neg),
		PositiveScore:  pos,
		NegativeScore:  neg,
		PositivePrompt: posText,
		NegativePrompt: negText,
	}
}

// Accept applies the gate rule: both maxima are rounded to two decimals and
// a tie counts as artwork.
func Accept(positive, negative float64) bool {
	return round2(positive) >= round2(negative)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func maxSimilarity(emb []float32, prompts []Prompt) (float64, string) {
	best, text := math.Inf(-1), ""
	for _, p := range prompts {
		if s := dot(emb, p.Embedding); s > best {
			best, text = s, p.Text
		}
	}
	return best, text
}

func dot(a, b []float32) float64 {
	var s float64
	for i := range a {
		s += float64(a[i]) * float64(b[i])
	}
	return s
}

func l2Normalize(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return
	}
	n := float32(math.Sqrt(sum))
	for i := range v {
		v[i] /= n
	}
}
