package scheduler

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// State is the scheduler's position in its Idle/Running cycle.
type State int32

const (
	Idle State = iota
	Running
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Job is one cycle of work.
type Job func(ctx context.Context) error

// Scheduler fires a job on a schedule, one run at a time. Each fire arms a
// single timer for the next one; a run that outlasts its successor's fire
// time delays that fire rather than queuing it.
type Scheduler struct {
	schedule cron.Schedule
	job      Job
	clock    clockwork.Clock
	logger   zerolog.Logger

	state atomic.Int32
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock replaces the wall clock.
func WithClock(c clockwork.Clock) Option {
	return func(s *Scheduler) { s.clock = c }
}

// New returns a scheduler running job on schedule.
func New(schedule cron.Schedule, job Job, logger zerolog.Logger, opts ...Option) *Scheduler {
	s := &Scheduler{
		schedule: schedule,
		job:      job,
		clock:    clockwork.NewRealClock(),
		logger:   logger.With().Str("component", "scheduler").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Every is a fixed-interval schedule counted from the previous fire.
func Every(period time.Duration) cron.Schedule {
	return cron.Every(period)
}

// Parse accepts a standard five-field cron expression or a descriptor
// such as "@every 3h".
func Parse(spec string) (cron.Schedule, error) {
	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("scheduler: invalid schedule %q: %w", spec, err)
	}
	return sched, nil
}

// State reports whether a run is in progress.
func (s *Scheduler) State() State {
	return State(s.state.Load())
}

// Run blocks, firing the job until ctx is done.
func (s *Scheduler) Run(ctx context.Context) error {
	last := s.clock.Now()
	for {
		next := s.schedule.Next(last)
		if now := s.clock.Now(); next.Before(now) {
			next = now
		}
		s.logger.Info().Time("next_run", next).Msg("next cycle scheduled")

		timer := s.clock.NewTimer(next.Sub(s.clock.Now()))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.Chan():
		}

		s.fire(ctx)
		last = next
	}
}

func (s *Scheduler) fire(ctx context.Context) {
	s.state.Store(int32(Running))
	defer s.state.Store(int32(Idle))
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().Interface("panic", r).Msg("cycle panicked")
		}
	}()

	start := s.clock.Now()
	if err := s.job(ctx); err != nil {
		s.logger.Error().Err(err).Dur("elapsed", s.clock.Since(start)).Msg("cycle failed")
		return
	}
	s.logger.Info().Dur("elapsed", s.clock.Since(start)).Msg("cycle finished")
}
