package store

import (
	"fmt"
	"time"
)

// Record is one captured channel message.
type Record struct {
	Timestamp time.Time
	Source    string
	Text      string
}

const dateKeyLayout = "2006-01-02"

// legacyLayout is the zone-less ISO form written by earlier collectors.
// Values in it are UTC.
const legacyLayout = "2006-01-02T15:04:05.999999999"

// DateKey returns the partition key (YYYY-MM-DD) for the UTC date of t.
func DateKey(t time.Time) string {
	return t.UTC().Format(dateKeyLayout)
}

// ParseDateKey parses a partition key back into midnight UTC of that date.
func ParseDateKey(key string) (time.Time, error) {
	t, err := time.ParseInLocation(dateKeyLayout, key, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("store: invalid date key %q: %w", key, err)
	}
	return t, nil
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTimestamp(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.ParseInLocation(legacyLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("store: unparsable timestamp %q", s)
	}
	return t, nil
}
