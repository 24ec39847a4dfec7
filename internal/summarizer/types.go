package summarizer

import (
	"context"
	"errors"
	"time"

	"github.com/ryosukesatoh/channel-digest/internal/store"
)

// ErrEmptyWindow is returned when there is nothing to summarize.
var ErrEmptyWindow = errors.New("summarizer: no records to summarize")

// Digest is the generated summary of one window.
type Digest struct {
	GeneratedAt time.Time `json:"generated_at"`
	Body        string    `json:"body"`
}

// Summarizer condenses a window of records into a digest.
type Summarizer interface {
	Summarize(ctx context.Context, records []store.Record) (*Digest, error)
}

// Generator is a text generation backend: one prompt in, one response out.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}
