// Package assistant asks a language model to categorise gallery images and
// to turn raw text into Markdown for the editor.
package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
)

// ErrUpstream reports a failed or unusable model call.
var ErrUpstream = errors.New("assistant upstream failure")

// ErrNotConfigured is returned by New when the selected provider has no
// API key.
var ErrNotConfigured = errors.New("assistant not configured")

// Uncategorized is the category used when the model's answer is unusable.
const Uncategorized = "Uncategorized"

// Categories are the design categories an image can be filed under.
var Categories = []string{
	"Brand Identity", "Logo Design", "Poster Design", "Typography",
	"UI/UX Design", "Web Design", "Digital Art", "Illustration",
	"Photography", "Motion Graphics", "Packaging Design", "Print Design",
	"Social Media", "Editorial Design", "Icon Design", "Pattern Design",
	"Infographic", "3D Design", "Concept Art", "Character Design",
}

// Suggestion is the model's proposal for a gallery image.
type Suggestion struct {
	Category string `json:"category"`
	Title    string `json:"title"`
}

// Assistant is implemented by every model provider.
type Assistant interface {
	Categorize(ctx context.Context, image []byte, mimeType string) (Suggestion, error)
	Format(ctx context.Context, text string) (string, error)
}

// Config selects and configures a provider.
type Config struct {
	Provider        string // "gemini" or "anthropic"
	GeminiAPIKey    string
	AnthropicAPIKey string
	Model           string
}

// New returns the provider named by cfg.Provider.
func New(ctx context.Context, cfg Config) (Assistant, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", "gemini":
		if cfg.GeminiAPIKey == "" {
			return nil, fmt.Errorf("%w: GEMINI_API_KEY not set", ErrNotConfigured)
		}
		g, err := NewGemini(ctx, cfg.GeminiAPIKey, cfg.Model)
		if err != nil {
			return nil, err
		}
		return g, nil
	case "anthropic":
		if cfg.AnthropicAPIKey == "" {
			return nil, fmt.Errorf("%w: ANTHROPIC_API_KEY not set", ErrNotConfigured)
		}
		return NewAnthropic(cfg.AnthropicAPIKey, cfg.Model), nil
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", ErrNotConfigured, cfg.Provider)
	}
}

const (
	temperature       = 0.1
	categorizeTokens  = 100
	formatTokens      = 8192
	defaultImageMedia = "image/jpeg"
)

func categorizePrompt() string {
	return fmt.Sprintf(`You are a design portfolio categorization expert. Analyze this image and suggest the single most appropriate category from this list: %s.

Also suggest a short, descriptive title for this image (2-5 words).

Respond in this exact JSON format only, no other text:
{"category": "Category Name", "title": "Short Title"}`, strings.Join(Categories, ", "))
}

func formatPrompt(text string) string {
	var sb strings.Builder

	sb.WriteString(`You are a markdown formatting expert. Take the following raw/unformatted text and convert it into clean, well-structured markdown.

RULES:
- Do NOT change the actual content, words, or meaning. Only add proper markdown formatting
- Add appropriate headings (## and ###) to section the content logically
- Format lists as bullet points (- ) or numbered lists (1. ) where appropriate
- Add **bold** for key terms, important words, or emphasis
- Add *italic* where appropriate for subtle emphasis
- If there is tabular data, format it as a proper markdown table
- Add blockquotes (> ) for quotes or notable statements
- Add horizontal rules (---) between major sections if it improves readability
- Clean up extra whitespace and line breaks
- Keep paragraphs properly separated with blank lines
- Do NOT add any content that wasn't in the original text
- Do NOT wrap the output in a code block, return raw markdown only
- Do NOT add a title/heading for the overall content if one isn't clearly present in the text

Here is the raw text to format:

`)
	sb.WriteString(text)

	return sb.String()
}

var jsonObject = regexp.MustCompile(`\{[\s\S]*\}`)

// parseSuggestion extracts the first JSON object from a reply. Anything
// unusable degrades to Uncategorized with an empty title.
func parseSuggestion(reply string) Suggestion {
	fallback := Suggestion{Category: Uncategorized}

	match := jsonObject.FindString(reply)
	if match == "" {
		return fallback
	}

	var s Suggestion
	if err := json.Unmarshal([]byte(match), &s); err != nil {
		return fallback
	}

	s.Title = strings.TrimSpace(s.Title)
	i := slices.IndexFunc(Categories, func(c string) bool { return strings.EqualFold(c, strings.TrimSpace(s.Category)) })
	if i < 0 {
		s.Category = Uncategorized
	} else {
		s.Category = Categories[i]
	}
	return s
}

// stripFences removes a code block wrapped around the whole reply.
func stripFences(reply string) string {
	reply = strings.TrimSpace(reply)
	for _, open := range []string{"```markdown\n", "```md\n", "```\n"} {
		if strings.HasPrefix(reply, open) {
			reply = strings.TrimPrefix(reply, open)
			break
		}
	}
	reply = strings.TrimSuffix(reply, "```")
	return strings.TrimSpace(reply)
}

func finishFormat(reply string) (string, error) {
	out := stripFences(reply)
	if out == "" {
		return "", fmt.Errorf("%w: empty response", ErrUpstream)
	}
	return out, nil
}

var htmlTag = regexp.MustCompile(`(?i)<(p|div|h[1-6]|ul|ol|li|table|br|strong|em|a)\b[^>]*>`)

var mdConverter = htmltomarkdown.NewConverter(
	htmltomarkdown.WithPlugins(
		base.NewBasePlugin(),
		commonmark.NewCommonmarkPlugin(),
		table.NewTablePlugin(),
	),
)

// normalizeInput converts pasted HTML into Markdown so the model only ever
// sees text. Plain text is returned unchanged.
func normalizeInput(text string) string {
	if !htmlTag.MatchString(text) {
		return text
	}
	md, err := mdConverter.ConvertString(text)
	if err != nil || strings.TrimSpace(md) == "" {
		return text
	}
	return md
}

func mediaType(mimeType string) string {
	if mimeType == "" {
		return defaultImageMedia
	}
	return mimeType
}
