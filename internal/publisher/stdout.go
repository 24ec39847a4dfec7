package publisher

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ryosukesatoh/channel-digest/internal/summarizer"
)

// StdoutPublisher prints the digest to stdout.
type StdoutPublisher struct {
	out io.Writer
}

func NewStdoutPublisher() *StdoutPublisher {
	return &StdoutPublisher{out: os.Stdout}
}

func (p *StdoutPublisher) Publish(_ context.Context, digest *summarizer.Digest) error {
	fmt.Fprintln(p.out, strings.Repeat("=", 72))
	fmt.Fprintf(p.out, "Channel Digest: %s\n", digest.GeneratedAt.UTC().Format("2006-01-02 15:04 UTC"))
	fmt.Fprintln(p.out, strings.Repeat("=", 72))
	fmt.Fprintln(p.out)
	fmt.Fprintln(p.out, digest.Body)
	fmt.Fprintln(p.out)
	fmt.Fprintln(p.out, strings.Repeat("=", 72))
	return nil
}
