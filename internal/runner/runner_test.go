package runner

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ryosukesatoh/channel-digest/internal/store"
	"github.com/ryosukesatoh/channel-digest/internal/summarizer"
)

// Mock implementations

type mockSelector struct {
	records []store.Record
	now     time.Time
	period  time.Duration
}

func (m *mockSelector) Select(now time.Time, period time.Duration) []store.Record {
	m.now, m.period = now, period
	return m.records
}

type mockSummarizer struct {
	calls  int
	digest *summarizer.Digest
	err    error
}

func (m *mockSummarizer) Summarize(ctx context.Context, records []store.Record) (*summarizer.Digest, error) {
	m.calls++
	return m.digest, m.err
}

type mockPublisher struct {
	calls    int
	deadline bool
	err      error
}

func (m *mockPublisher) Publish(ctx context.Context, digest *summarizer.Digest) error {
	m.calls++
	_, m.deadline = ctx.Deadline()
	return m.err
}

func sampleRecords() []store.Record {
	return []store.Record{
		{Timestamp: time.Date(2025, 3, 10, 11, 0, 0, 0, time.UTC), Source: "amitsegal", Text: "update"},
	}
}

func sampleDigest() *summarizer.Digest {
	return &summarizer.Digest{GeneratedAt: time.Now(), Body: "📰 digest"}
}

func newTestRunner(sel Selector, s summarizer.Summarizer, pub *mockPublisher) *Runner {
	r := New(3*time.Hour, time.Second, sel, s, pub, zerolog.Nop())
	r.now = func() time.Time { return time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC) }
	return r
}

func TestRunSuccess(t *testing.T) {
	sel := &mockSelector{records: sampleRecords()}
	sum := &mockSummarizer{digest: sampleDigest()}
	pub := &mockPublisher{}

	require.NoError(t, newTestRunner(sel, sum, pub).Run(context.Background()))
	assert.Equal(t, time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC), sel.now)
	assert.Equal(t, 3*time.Hour, sel.period)
	assert.Equal(t, 1, sum.calls)
	assert.Equal(t, 1, pub.calls)
	assert.True(t, pub.deadline, "publish should be bounded by a timeout")
}

func TestRunEmptyWindowIsNoop(t *testing.T) {
	sum := &mockSummarizer{digest: sampleDigest()}
	pub := &mockPublisher{}

	require.NoError(t, newTestRunner(&mockSelector{}, sum, pub).Run(context.Background()))
	assert.Zero(t, sum.calls, "summarizer must not be called for an empty window")
	assert.Zero(t, pub.calls)
}

func TestRunSummarizeError(t *testing.T) {
	sum := &mockSummarizer{err: errors.New("summarize failed")}
	pub := &mockPublisher{}

	err := newTestRunner(&mockSelector{records: sampleRecords()}, sum, pub).Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, 1, sum.calls)
	assert.Zero(t, pub.calls, "no partial digest is published")
}

func TestRunPublishErrorIsNotRetried(t *testing.T) {
	sum := &mockSummarizer{digest: sampleDigest()}
	pub := &mockPublisher{err: errors.New("status 502")}

	err := newTestRunner(&mockSelector{records: sampleRecords()}, sum, pub).Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, 1, pub.calls)
}
