package narrative

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"
)

var ErrEmptyResponse = errors.New("gemini returned no text")

const curatorPrompt = `You are an experienced art curator. Please analyze and describe the uploaded painting in a human, poetic tone.

The painting is in the %q style. Consider the color composition, emotional depth, and possible narrative.

Your output should be thoughtful, elegant, and rich with interpretation. Limit to 200 words.`

// generator is the subset of *genai.Models used here.
type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Gemini describes paintings with a multimodal Gemini model.
type Gemini struct {
	models  generator
	model   string
	timeout time.Duration
}

func NewGemini(ctx context.Context, apiKey, model string, timeout time.Duration) (*Gemini, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &Gemini{models: client.Models, model: model, timeout: timeout}, nil
}

func (g *Gemini) Describe(ctx context.Context, style string, jpeg []byte) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromBytes(jpeg, "image/jpeg"),
			genai.NewPartFromText(fmt.Sprintf(curatorPrompt, style)),
		}, genai.RoleUser),
	}

	resp, err := g.models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("generate description: %w", err)
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}
