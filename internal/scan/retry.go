package scan

import (
	"context"
	"math/rand"
	"time"

	"github.com/rs/zerolog"

	"rsiwatch/internal/fetcher"
)

// DefaultFailureReason is recorded when every attempt came back empty without
// a harder diagnostic.
const DefaultFailureReason = "no timeframes successful"

// RetrierOptions tune the per-symbol retry loop.
type RetrierOptions struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

// Retrier wraps a Fetcher with bounded retries and jittered backoff. It never
// returns an error: every failure mode collapses into a failed Outcome.
type Retrier struct {
	fetcher fetcher.Fetcher
	opts    RetrierOptions
	logger  zerolog.Logger

	sleep  func(ctx context.Context, d time.Duration) error
	jitter func() float64
	now    func() time.Time
}

// NewRetrier constructs a Retrier.
func NewRetrier(f fetcher.Fetcher, opts RetrierOptions, logger zerolog.Logger) *Retrier {
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}
	if opts.BaseDelay < 0 {
		opts.BaseDelay = 0
	}
	return &Retrier{
		fetcher: f,
		opts:    opts,
		logger:  logger.With().Str("component", "retrier").Logger(),
		sleep:   sleepContext,
		jitter:  defaultJitter,
		now:     time.Now,
	}
}

// FetchWithRetry attempts the symbol up to MaxAttempts times, sleeping a
// jittered base delay between failed attempts. The first attempt with at
// least one reading wins.
func (r *Retrier) FetchWithRetry(ctx context.Context, symbol string) Outcome {
	reason := DefaultFailureReason
	attempts := 0

	for attempt := 1; attempt <= r.opts.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			reason = err.Error()
			break
		}
		attempts = attempt

		readings, err := r.fetcher.FetchAllTimeframes(ctx, symbol)
		if err == nil && len(readings) > 0 {
			return Outcome{
				Symbol:    symbol,
				Readings:  readings,
				Status:    StatusSuccess,
				Attempts:  attempt,
				FetchedAt: r.now().UTC(),
			}
		}

		if err != nil {
			reason = err.Error()
			r.logger.Debug().Str("symbol", symbol).Int("attempt", attempt).Err(err).Msg("fetch attempt failed")
		} else {
			reason = DefaultFailureReason
			r.logger.Debug().Str("symbol", symbol).Int("attempt", attempt).Msg("fetch attempt returned no readings")
		}

		if attempt == r.opts.MaxAttempts {
			break
		}
		if err := r.sleep(ctx, r.backoff()); err != nil {
			reason = err.Error()
			break
		}
	}

	return Outcome{
		Symbol:    symbol,
		Readings:  fetcher.Readings{},
		Status:    StatusFailed,
		Attempts:  attempts,
		Reason:    reason,
		FetchedAt: r.now().UTC(),
	}
}

func (r *Retrier) backoff() time.Duration {
	if r.opts.BaseDelay <= 0 {
		return 0
	}
	return time.Duration(float64(r.opts.BaseDelay) * r.jitter())
}

// defaultJitter spreads delays across [0.8, 1.3) of the base.
func defaultJitter() float64 {
	return 0.8 + rand.Float64()*0.5
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
