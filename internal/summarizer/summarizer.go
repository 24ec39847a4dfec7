package summarizer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/ryosukesatoh/channel-digest/internal/config"
	"github.com/ryosukesatoh/channel-digest/internal/store"
)

// NewGenerator creates the generation backend named by the configuration.
func NewGenerator(ctx context.Context, cfg config.SummarizerConfig) (Generator, error) {
	switch cfg.Type {
	case "gemini":
		return NewGeminiGenerator(ctx, cfg.APIKey, cfg.Model, cfg.MaxTokens, genai.HTTPOptions{})
	case "anthropic":
		return NewAnthropicGenerator(cfg.APIKey, cfg.Model, cfg.MaxTokens), nil
	case "openai":
		return NewOpenAIGenerator(cfg.APIKey, cfg.Model, cfg.MaxTokens), nil
	default:
		return nil, fmt.Errorf("%w %q", ErrUnsupportedSummarizerType, cfg.Type)
	}
}

// ErrUnsupportedSummarizerType is returned when an unsupported summarizer type is specified
var ErrUnsupportedSummarizerType = fmt.Errorf("unsupported summarizer type")

// PromptSummarizer builds a news digest prompt and hands it to a Generator.
type PromptSummarizer struct {
	gen      Generator
	language string
	period   time.Duration
	timeout  time.Duration
	now      func() time.Time
}

func New(gen Generator, language string, period, timeout time.Duration) *PromptSummarizer {
	return &PromptSummarizer{
		gen:      gen,
		language: language,
		period:   period,
		timeout:  timeout,
		now:      time.Now,
	}
}

// Summarize makes exactly one generation call. Its failure, including the
// timeout, fails the whole digest.
func (s *PromptSummarizer) Summarize(ctx context.Context, records []store.Record) (*Digest, error) {
	if len(records) == 0 {
		return nil, ErrEmptyWindow
	}

	generatedAt := s.now().UTC()
	prompt := s.buildPrompt(records, generatedAt)

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	body, err := s.gen.Generate(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("summarizer: generate: %w", err)
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, fmt.Errorf("summarizer: empty response")
	}

	return &Digest{GeneratedAt: generatedAt, Body: body}, nil
}

func (s *PromptSummarizer) buildPrompt(records []store.Record, at time.Time) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Please write a short news summary of the following Telegram channel messages collected over the last %d minutes.\n", int(s.period.Minutes())))
	sb.WriteString("Focus on the most important news items and group them by topic where possible.\n\n")
	sb.WriteString("Messages:\n")

	for _, r := range records {
		sb.WriteString(fmt.Sprintf("Channel: %s\n", r.Source))
		sb.WriteString(fmt.Sprintf("Time: %s\n", r.Timestamp.UTC().Format(time.RFC3339)))
		sb.WriteString(fmt.Sprintf("Message: %s\n\n", r.Text))
	}

	sb.WriteString(fmt.Sprintf(`Provide a structured summary in exactly this format:
📰 **News Summary - %s**

**Main Headlines:**
• [short summary of the main news items]

**Additional Updates:**
• [other noteworthy items]

Keep it concise but informative. Write the entire summary, headings included, in %s.`, at.Format("15:04 UTC"), s.language))

	return sb.String()
}
