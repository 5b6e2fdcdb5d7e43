package assistant

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

const defaultGeminiModel = "gemini-3-flash-preview"

// Gemini talks to Google's Gemini API.
type Gemini struct {
	client *genai.Client
	model  string
}

// GeminiOption customises NewGemini.
type GeminiOption func(*genai.ClientConfig)

// WithGeminiBaseURL points the client at another endpoint.
func WithGeminiBaseURL(url string) GeminiOption {
	return func(c *genai.ClientConfig) {
		c.HTTPOptions.BaseURL = url
	}
}

// NewGemini creates a Gemini provider. An empty model selects the default.
func NewGemini(ctx context.Context, apiKey, model string, opts ...GeminiOption) (*Gemini, error) {
	if model == "" {
		model = defaultGeminiModel
	}

	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	return &Gemini{client: client, model: model}, nil
}

// Categorize sends the image with the categorisation prompt.
func (g *Gemini) Categorize(ctx context.Context, image []byte, mimeType string) (Suggestion, error) {
	parts := []*genai.Part{
		genai.NewPartFromText(categorizePrompt()),
		genai.NewPartFromBytes(image, mediaType(mimeType)),
	}

	reply, err := g.generate(ctx, parts, categorizeTokens)
	if err != nil {
		return Suggestion{}, err
	}
	return parseSuggestion(reply), nil
}

// Format asks the model to add Markdown structure to text.
func (g *Gemini) Format(ctx context.Context, text string) (string, error) {
	parts := []*genai.Part{
		genai.NewPartFromText(formatPrompt(normalizeInput(text))),
	}

	reply, err := g.generate(ctx, parts, formatTokens)
	if err != nil {
		return "", err
	}
	return finishFormat(reply)
}

func (g *Gemini) generate(ctx context.Context, parts []*genai.Part, maxTokens int32) (string, error) {
	contents := []*genai.Content{
		genai.NewContentFromParts(parts, genai.RoleUser),
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, &genai.GenerateContentConfig{
		Temperature:     genai.Ptr[float32](temperature),
		MaxOutputTokens: maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("%w: gemini: %w", ErrUpstream, err)
	}

	return resp.Text(), nil
}
