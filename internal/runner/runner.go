package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ryosukesatoh/channel-digest/internal/metrics"
	"github.com/ryosukesatoh/channel-digest/internal/publisher"
	"github.com/ryosukesatoh/channel-digest/internal/store"
	"github.com/ryosukesatoh/channel-digest/internal/summarizer"
)

// Selector returns the records of the window ending at now.
type Selector interface {
	Select(now time.Time, period time.Duration) []store.Record
}

// Runner orchestrates the select -> summarize -> publish cycle.
type Runner struct {
	period         time.Duration
	publishTimeout time.Duration
	selector       Selector
	summarizer     summarizer.Summarizer
	publisher      publisher.Publisher
	now            func() time.Time
	logger         zerolog.Logger
}

func New(period, publishTimeout time.Duration, sel Selector, s summarizer.Summarizer, pub publisher.Publisher, logger zerolog.Logger) *Runner {
	return &Runner{
		period:         period,
		publishTimeout: publishTimeout,
		selector:       sel,
		summarizer:     s,
		publisher:      pub,
		now:            time.Now,
		logger:         logger.With().Str("component", "runner").Logger(),
	}
}

// Run executes one cycle. An empty window ends the cycle without calling
// the summarizer.
func (r *Runner) Run(ctx context.Context) error {
	start := time.Now()
	defer func() { metrics.CycleDuration.Observe(time.Since(start).Seconds()) }()

	now := r.now().UTC()
	log := r.logger.With().Str("cycle", uuid.NewString()).Logger()
	log.Info().Time("window_end", now).Dur("period", r.period).Msg("starting cycle")

	// Step 1: Select the window
	records := r.selector.Select(now, r.period)
	metrics.WindowRecords.Observe(float64(len(records)))
	if len(records) == 0 {
		metrics.Cycles.WithLabelValues(metrics.OutcomeEmpty).Inc()
		log.Info().Msg("no records in window, skipping digest")
		return nil
	}
	log.Info().Int("records", len(records)).Msg("window selected")

	// Step 2: Summarize
	digest, err := r.summarizer.Summarize(ctx, records)
	if err != nil {
		metrics.Cycles.WithLabelValues(metrics.OutcomeSummarizeFailed).Inc()
		return fmt.Errorf("runner: summarize failed: %w", err)
	}
	log.Info().Int("digest_len", len(digest.Body)).Msg("digest generated")

	// Step 3: Publish, once
	pubCtx := ctx
	if r.publishTimeout > 0 {
		var cancel context.CancelFunc
		pubCtx, cancel = context.WithTimeout(ctx, r.publishTimeout)
		defer cancel()
	}
	if err := r.publisher.Publish(pubCtx, digest); err != nil {
		metrics.Cycles.WithLabelValues(metrics.OutcomePublishFailed).Inc()
		return fmt.Errorf("runner: publish via %T failed, digest dropped: %w", r.publisher, err)
	}

	metrics.Cycles.WithLabelValues(metrics.OutcomePublished).Inc()
	log.Info().Msg("digest published")
	return nil
}
