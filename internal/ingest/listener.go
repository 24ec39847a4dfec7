package ingest

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/ryosukesatoh/channel-digest/internal/metrics"
	"github.com/ryosukesatoh/channel-digest/internal/store"
)

// UnknownSource is recorded when an event's chat cannot be resolved.
const UnknownSource = "unknown"

// Chat is the metadata of the channel an event was posted to.
type Chat struct {
	ID       int64
	Username string
	Title    string
}

// Event is one inbound message. Chat is nil when the source could not
// provide chat metadata.
type Event struct {
	Chat *Chat
	Text string
}

// Appender persists records.
type Appender interface {
	Append(rec store.Record) error
}

// Listener turns inbound events into records.
type Listener struct {
	store  Appender
	now    func() time.Time
	logger zerolog.Logger
}

func NewListener(s Appender, logger zerolog.Logger) *Listener {
	return &Listener{
		store:  s,
		now:    time.Now,
		logger: logger.With().Str("component", "listener").Logger(),
	}
}

// Run appends one record per event until ctx is done or events is closed.
// Failures are confined to the event that caused them.
func (l *Listener) Run(ctx context.Context, events <-chan Event) error {
	l.logger.Info().Msg("listening for channel messages")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				l.logger.Info().Msg("event source closed")
				return nil
			}
			l.handle(ev)
		}
	}
}

func (l *Listener) handle(ev Event) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error().Interface("panic", r).Msg("event handler panicked")
		}
	}()

	rec := store.Record{
		Timestamp: l.now().UTC(),
		Source:    resolveSource(ev.Chat),
		Text:      ev.Text,
	}
	if err := l.store.Append(rec); err != nil {
		metrics.AppendFailures.Inc()
		l.logger.Error().Err(err).Str("channel", rec.Source).Msg("failed to store message")
		return
	}
	metrics.RecordsIngested.WithLabelValues(rec.Source).Inc()
	l.logger.Debug().Str("channel", rec.Source).Int("text_len", len(rec.Text)).Msg("message stored")
}

func resolveSource(chat *Chat) string {
	if chat == nil || chat.Username == "" {
		return UnknownSource
	}
	return chat.Username
}
