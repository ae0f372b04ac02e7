package scan

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Config captures the pacing knobs actually used for a run. Workers is
// accepted for forward compatibility but the runner is strictly sequential.
type Config struct {
	BatchSize       int
	PerItemDelay    time.Duration
	InterBatchDelay time.Duration
	MaxAttempts     int
	Workers         int
}

// Runner walks the universe in fixed-size batches, applying per-item and
// inter-batch delays. One symbol failing never aborts the run.
type Runner struct {
	retrier *Retrier
	cfg     Config
	logger  zerolog.Logger

	// OnOutcome, when set, observes each outcome as it lands. processed is
	// 1-based across the whole run.
	OnOutcome func(processed, total int, outcome Outcome)

	sleep  func(ctx context.Context, d time.Duration) error
	jitter func() float64
}

// NewRunner constructs a Runner.
func NewRunner(retrier *Retrier, cfg Config, logger zerolog.Logger) *Runner {
	if cfg.BatchSize < 1 {
		cfg.BatchSize = 1
	}
	return &Runner{
		retrier: retrier,
		cfg:     cfg,
		logger:  logger.With().Str("component", "runner").Logger(),
		sleep:   sleepContext,
		jitter:  defaultJitter,
	}
}

// Partition splits symbols into consecutive batches of at most size elements.
// Concatenating the batches reproduces the input exactly.
func Partition(symbols []string, size int) [][]string {
	if len(symbols) == 0 {
		return nil
	}
	if size <= 0 {
		size = 1
	}
	batches := make([][]string, 0, (len(symbols)+size-1)/size)
	for start := 0; start < len(symbols); start += size {
		end := start + size
		if end > len(symbols) {
			end = len(symbols)
		}
		batches = append(batches, symbols[start:end])
	}
	return batches
}

// RunAll fetches every symbol and returns one outcome per symbol in input
// order. On cancellation it returns the outcomes gathered so far together
// with the context error.
func (r *Runner) RunAll(ctx context.Context, symbols []string) ([]Outcome, error) {
	if len(symbols) == 0 {
		return nil, ErrNoData
	}

	if r.cfg.Workers > 1 {
		r.logger.Warn().Int("workers", r.cfg.Workers).Msg("concurrent fetching not supported; running sequentially")
	}

	batches := Partition(symbols, r.cfg.BatchSize)
	r.logger.Info().
		Int("symbols", len(symbols)).
		Int("batches", len(batches)).
		Int("batch_size", r.cfg.BatchSize).
		Msg("starting scan")

	outcomes := make([]Outcome, 0, len(symbols))
	processed := 0

	for bi, batch := range batches {
		batchSuccess := 0

		for ii, symbol := range batch {
			if err := ctx.Err(); err != nil {
				return outcomes, err
			}

			outcome := r.retrier.FetchWithRetry(ctx, symbol)
			outcomes = append(outcomes, outcome)
			processed++
			if outcome.Succeeded() {
				batchSuccess++
			}

			if r.OnOutcome != nil {
				r.OnOutcome(processed, len(symbols), outcome)
			}

			if ii < len(batch)-1 {
				if err := r.sleep(ctx, r.itemDelay()); err != nil {
					return outcomes, err
				}
			}
		}

		r.logger.Info().
			Int("batch", bi+1).
			Int("batches", len(batches)).
			Int("success", batchSuccess).
			Int("size", len(batch)).
			Msg("batch complete")

		if bi < len(batches)-1 {
			if err := r.sleep(ctx, r.cfg.InterBatchDelay); err != nil {
				return outcomes, err
			}
		}
	}

	return outcomes, nil
}

func (r *Runner) itemDelay() time.Duration {
	if r.cfg.PerItemDelay <= 0 {
		return 0
	}
	return time.Duration(float64(r.cfg.PerItemDelay) * r.jitter())
}
