package categorize

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"fintrack/internal/core"
	"fintrack/internal/log"

	glang "google.golang.org/api/generativelanguage/v1beta"
	goption "google.golang.org/api/option"
)

// DefaultModel is the Gemini model asked for suggestions.
const DefaultModel = "gemini-2.5-flash"

var (
	// ErrMissingAPIKey is returned when no Gemini key is configured.
	ErrMissingAPIKey = errors.New("missing GEMINI_API_KEY")

	// ErrEmptyAnswer is returned when the model produced no text.
	ErrEmptyAnswer = errors.New("empty answer from model")
)

// Suggester proposes a category for a transaction description. The answer
// is free text; callers map it onto the category enumeration.
type Suggester interface {
	Suggest(ctx context.Context, description string) (string, error)
}

// GeminiSuggester asks the Generative Language API for a category.
type GeminiSuggester struct {
	svc    *glang.Service
	model  string
	logger *log.Logger
}

var _ Suggester = (*GeminiSuggester)(nil)

// NewGeminiSuggester creates a suggester authenticated with apiKey. Extra
// options are applied after the key.
func NewGeminiSuggester(ctx context.Context, apiKey, model string, logger *log.Logger, opts ...goption.ClientOption) (*GeminiSuggester, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	if strings.TrimSpace(model) == "" {
		model = DefaultModel
	}
	if logger == nil {
		logger = log.Discard()
	}

	all := append([]goption.ClientOption{goption.WithAPIKey(apiKey)}, opts...)
	svc, err := glang.NewService(ctx, all...)
	if err != nil {
		return nil, fmt.Errorf("create generative language service: %w", err)
	}
	return &GeminiSuggester{
		svc:    svc,
		model:  model,
		logger: logger.WithComponent(log.ComponentCategorize),
	}, nil
}

// Prompt is the instruction sent for description.
func Prompt(description string) string {
	return fmt.Sprintf(
		"Categorize the following expense description into one of these categories: %s. "+
			"Description: %q. Answer only with the category name. If unsure, answer %q.",
		strings.Join(core.ExpenseCategories(), ", "), description, core.CategoryOther)
}

// Suggest returns the raw text of the first candidate.
func (g *GeminiSuggester) Suggest(ctx context.Context, description string) (string, error) {
	req := &glang.GenerateContentRequest{
		Contents: []*glang.Content{{
			Role:  "user",
			Parts: []*glang.Part{{Text: Prompt(description)}},
		}},
	}
	resp, err := g.svc.Models.GenerateContent("models/"+g.model, req).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	var b strings.Builder
	for _, c := range resp.Candidates {
		if c == nil || c.Content == nil {
			continue
		}
		for _, p := range c.Content.Parts {
			if p != nil {
				b.WriteString(p.Text)
			}
		}
		break
	}
	text := strings.TrimSpace(b.String())
	if text == "" {
		return "", ErrEmptyAnswer
	}
	g.logger.DebugContext(ctx, "Model answered", log.FieldCategory, text)
	return text, nil
}
