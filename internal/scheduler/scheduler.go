package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// TickFunc is invoked on every aligned interval.
type TickFunc func(ctx context.Context, runAt time.Time) error

// Options tune scheduler behaviour.
type Options struct {
	Interval       time.Duration
	AlignToStart   bool
	StartupDelay   time.Duration
	RunImmediately bool
}

// Scheduler drives aligned execution of fetch runs.
type Scheduler struct {
	opts   Options
	logger zerolog.Logger
}

// New constructs a Scheduler instance.
func New(opts Options, logger zerolog.Logger) *Scheduler {
	if opts.Interval <= 0 {
		panic("scheduler interval must be positive")
	}
	return &Scheduler{opts: opts, logger: logger.With().Str("component", "scheduler").Logger()}
}

// Run blocks, invoking the tick function at each aligned interval until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context, tick TickFunc) error {
	if s.opts.StartupDelay > 0 {
		timer := time.NewTimer(s.opts.StartupDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	if s.opts.RunImmediately {
		runAt := time.Now().UTC()
		s.logger.Info().Time("run_at", runAt).Msg("executing startup run")
		if err := tick(ctx, runAt); err != nil {
			s.logger.Error().Err(err).Time("run_at", runAt).Msg("startup run failed")
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}

	next := s.nextTick(time.Now().UTC())
	for {
		delay := time.Until(next)
		if delay < 0 {
			next = s.nextTick(time.Now().UTC())
			delay = time.Until(next)
		}

		timer := time.NewTimer(delay)
		s.logger.Debug().Time("next_run", next).Msg("waiting for next run")

		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
			timer.Stop()
		}

		runAt := s.runStart(next)
		s.logger.Info().Time("run_at", runAt).Msg("executing scheduled run")

		if err := tick(ctx, runAt); err != nil {
			s.logger.Error().Err(err).Time("run_at", runAt).Msg("scheduled run failed")
		}

		next = next.Add(s.opts.Interval)
	}
}

func (s *Scheduler) nextTick(now time.Time) time.Time {
	if !s.opts.AlignToStart {
		return now.Add(s.opts.Interval)
	}
	run := now.Truncate(s.opts.Interval)
	if !run.After(now) {
		run = run.Add(s.opts.Interval)
	}
	return run
}

func (s *Scheduler) runStart(t time.Time) time.Time {
	if !s.opts.AlignToStart {
		return t
	}
	return t.Truncate(s.opts.Interval)
}
