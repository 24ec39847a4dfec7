package window

import (
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/ryosukesatoh/channel-digest/internal/store"
)

// Window is the closed interval of record timestamps covered by one cycle.
type Window struct {
	Start time.Time
	End   time.Time
}

// Bounds returns the window ending at now and spanning period.
func Bounds(now time.Time, period time.Duration) Window {
	now = now.UTC()
	return Window{Start: now.Add(-period), End: now}
}

// Contains reports whether ts falls inside the window, both ends inclusive.
func (w Window) Contains(ts time.Time) bool {
	return !ts.Before(w.Start) && !ts.After(w.End)
}

// DateKeys returns the partition keys touched by the window, oldest first.
func (w Window) DateKeys() []string {
	var keys []string
	day := w.Start.UTC().Truncate(24 * time.Hour)
	for !day.After(w.End) {
		keys = append(keys, store.DateKey(day))
		day = day.AddDate(0, 0, 1)
	}
	return keys
}

// PartitionReader reads one day's records.
type PartitionReader interface {
	Read(dateKey string) ([]store.Record, error)
}

// Selector picks the records of a window out of the date partitions.
type Selector struct {
	store  PartitionReader
	logger zerolog.Logger
}

func NewSelector(r PartitionReader, logger zerolog.Logger) *Selector {
	return &Selector{
		store:  r,
		logger: logger.With().Str("component", "selector").Logger(),
	}
}

// Select returns the records with now-period <= timestamp <= now. A
// partition that cannot be read contributes nothing.
func (s *Selector) Select(now time.Time, period time.Duration) []store.Record {
	w := Bounds(now, period)

	var all []store.Record
	for _, key := range w.DateKeys() {
		recs, err := s.store.Read(key)
		if err != nil {
			s.logger.Error().Err(err).Str("partition", key).Msg("failed to read partition")
			continue
		}
		all = append(all, recs...)
	}

	selected := lo.Filter(all, func(r store.Record, _ int) bool {
		return w.Contains(r.Timestamp)
	})
	s.logger.Debug().
		Time("start", w.Start).
		Time("end", w.End).
		Int("scanned", len(all)).
		Int("selected", len(selected)).
		Msg("window selected")
	return selected
}
