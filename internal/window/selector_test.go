package window

import (
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ryosukesatoh/channel-digest/internal/store"
)

func texts(recs []store.Record) []string {
	out := make([]string, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.Text)
	}
	return out
}

func TestSelectWindowBoundaries(t *testing.T) {
	s := store.New(t.TempDir(), "", zerolog.Nop())
	now := time.Date(2025, 3, 10, 18, 0, 0, 0, time.UTC)

	for _, rec := range []store.Record{
		{Timestamp: now.Add(-200 * time.Minute), Source: "a", Text: "too old"},
		{Timestamp: now.Add(-180*time.Minute - time.Nanosecond), Source: "a", Text: "just outside"},
		{Timestamp: now.Add(-180 * time.Minute), Source: "a", Text: "at start"},
		{Timestamp: now.Add(-170 * time.Minute), Source: "b", Text: "inside"},
		{Timestamp: now.Add(-10 * time.Minute), Source: "c", Text: "recent"},
		{Timestamp: now, Source: "c", Text: "at end"},
		{Timestamp: now.Add(time.Second), Source: "c", Text: "future"},
	} {
		require.NoError(t, s.Append(rec))
	}

	got := NewSelector(s, zerolog.Nop()).Select(now, 180*time.Minute)
	assert.Equal(t, []string{"at start", "inside", "recent", "at end"}, texts(got))
}

func TestSelectDropsRecordsBeforeWindow(t *testing.T) {
	s := store.New(t.TempDir(), "", zerolog.Nop())
	now := time.Date(2025, 3, 10, 18, 0, 0, 0, time.UTC)

	for _, offset := range []time.Duration{200, 170, 10} {
		require.NoError(t, s.Append(store.Record{Timestamp: now.Add(-offset * time.Minute), Text: "t-" + (offset * time.Minute).String()}))
	}

	got := NewSelector(s, zerolog.Nop()).Select(now, 180*time.Minute)
	assert.Equal(t, []string{"t-2h50m0s", "t-10m0s"}, texts(got))
}

func TestSelectMergesPartitionsAcrossMidnight(t *testing.T) {
	s := store.New(t.TempDir(), "", zerolog.Nop())
	now := time.Date(2025, 3, 11, 0, 5, 0, 0, time.UTC)

	require.NoError(t, s.Append(store.Record{Timestamp: time.Date(2025, 3, 10, 23, 50, 0, 0, time.UTC), Text: "before window"}))
	require.NoError(t, s.Append(store.Record{Timestamp: time.Date(2025, 3, 10, 23, 58, 0, 0, time.UTC), Text: "yesterday"}))
	require.NoError(t, s.Append(store.Record{Timestamp: time.Date(2025, 3, 11, 0, 1, 0, 0, time.UTC), Text: "today"}))

	got := NewSelector(s, zerolog.Nop()).Select(now, 10*time.Minute)
	assert.Equal(t, []string{"yesterday", "today"}, texts(got))
}

func TestSelectSkipsMalformedTimestamps(t *testing.T) {
	s := store.New(t.TempDir(), "", zerolog.Nop())
	now := time.Date(2025, 3, 10, 18, 0, 0, 0, time.UTC)

	content := strings.Join([]string{
		"timestamp,channel,message",
		"2025-03-10T17:00:00Z,a,one",
		"garbage,b,bad",
		"2025-03-10T17:30:00Z,c,two",
	}, "\n") + "\n"
	require.NoError(t, os.WriteFile(s.Path("2025-03-10"), []byte(content), 0o644))

	got := NewSelector(s, zerolog.Nop()).Select(now, 180*time.Minute)
	assert.Equal(t, []string{"one", "two"}, texts(got))
}

func TestSelectEmptyWhenNoPartition(t *testing.T) {
	s := store.New(t.TempDir(), "", zerolog.Nop())

	got := NewSelector(s, zerolog.Nop()).Select(time.Now(), time.Hour)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

type failingReader struct {
	failKey string
	recs    map[string][]store.Record
}

func (f failingReader) Read(key string) ([]store.Record, error) {
	if key == f.failKey {
		return nil, errors.New("permission denied")
	}
	return f.recs[key], nil
}

func TestSelectTreatsReadFailureAsNoData(t *testing.T) {
	now := time.Date(2025, 3, 11, 0, 30, 0, 0, time.UTC)
	r := failingReader{
		failKey: "2025-03-10",
		recs: map[string][]store.Record{
			"2025-03-11": {{Timestamp: now.Add(-time.Minute), Text: "kept"}},
		},
	}

	got := NewSelector(r, zerolog.Nop()).Select(now, time.Hour)
	assert.Equal(t, []string{"kept"}, texts(got))
}

func TestDateKeys(t *testing.T) {
	tests := []struct {
		name   string
		now    time.Time
		period time.Duration
		want   []string
	}{
		{"same day", time.Date(2025, 3, 10, 18, 0, 0, 0, time.UTC), 3 * time.Hour, []string{"2025-03-10"}},
		{"crosses midnight", time.Date(2025, 3, 11, 1, 0, 0, 0, time.UTC), 3 * time.Hour, []string{"2025-03-10", "2025-03-11"}},
		{"starts at midnight", time.Date(2025, 3, 11, 3, 0, 0, 0, time.UTC), 3 * time.Hour, []string{"2025-03-11"}},
		{"full day", time.Date(2025, 3, 11, 12, 0, 0, 0, time.UTC), 24 * time.Hour, []string{"2025-03-10", "2025-03-11"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Bounds(tt.now, tt.period).DateKeys())
		})
	}
}
