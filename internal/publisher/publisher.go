package publisher

import (
	"context"
	"fmt"
	"strings"

	"github.com/ryosukesatoh/channel-digest/internal/summarizer"
)

// Publisher delivers a digest to its destination. A failed delivery is
// final; nothing is retried or kept for later.
type Publisher interface {
	Publish(ctx context.Context, digest *summarizer.Digest) error
}

// DeliveryError reports a destination that refused or never received a
// message. Status is zero when no response arrived.
type DeliveryError struct {
	Status int
	Body   string
	Err    error
}

func (e *DeliveryError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("delivery failed: %v", e.Err)
	}
	return fmt.Sprintf("delivery failed: status %d: %s", e.Status, e.Body)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// splitMessage cuts text into chunks of at most max bytes, preferring
// paragraph breaks, then newlines, and never splitting a UTF-8 sequence.
// Markdown entities stay whole unless one line is longer than max.
func splitMessage(text string, max int) []string {
	var chunks []string
	for len(text) > max {
		cut := strings.LastIndex(text[:max], "\n\n")
		if cut < max/2 {
			cut = strings.LastIndex(text[:max], "\n")
		}
		if cut < max/2 {
			cut = max
			for cut > 0 && !utf8RuneStart(text[cut]) {
				cut--
			}
		}
		chunks = append(chunks, text[:cut])
		text = strings.TrimLeft(text[cut:], "\n")
	}
	if text != "" {
		chunks = append(chunks, text)
	}
	return chunks
}

func utf8RuneStart(b byte) bool { return b&0xC0 != 0x80 }
