package pipeline

import (
	"fmt"
	"math"

	"github.com/goccy/go-json"
)

const (
	LowConfidence        = 0.5
	LowConfidenceWarning = "The style of this artwork couldn't be confidently identified."
	NotArtworkMessage    = "This image doesn't appear to be a painting or artwork."
)

// StyleScore is serialised as a [label, score] pair.
type StyleScore struct {
	Label string
	Score float64
}

func (s StyleScore) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{s.Label, s.Score})
}

func (s *StyleScore) UnmarshalJSON(data []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("style score: want [label, score], got %d elements", len(pair))
	}
	if err := json.Unmarshal(pair[0], &s.Label); err != nil {
		return err
	}
	return json.Unmarshal(pair[1], &s.Score)
}

// Result is the payload returned for a successful prediction.
type Result struct {
	ID            string       `json:"id"`
	Filename      string       `json:"filename"`
	Style         string       `json:"style"`
	Confidence    float64      `json:"confidence"`
	Predictions   []StyleScore `json:"predictions"`
	ImageURL      string       `json:"image_url"`
	Description   string       `json:"description"`
	Base64Preview string       `json:"base64_preview"`
	Timestamp     string       `json:"timestamp"`
	Stages        Stages       `json:"stages"`
	Warning       string       `json:"warning,omitempty"`
}

// Round4 rounds half away from zero to four decimals.
func Round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}
