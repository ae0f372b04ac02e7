package app

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"rsiwatch/internal/alerting"
	"rsiwatch/internal/metrics"
	"rsiwatch/internal/report"
	"rsiwatch/internal/scan"
	"rsiwatch/internal/storage"
	"rsiwatch/internal/universe"
)

// Fetch executes one complete run: fetch every symbol, aggregate, emit the
// report artifacts, persist, and alert. The returned error is non-nil when
// nothing was retrieved, the run was cancelled, or the success rate fell
// below the critical tier.
func (a *App) Fetch(ctx context.Context, opts FetchOptions) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var store storage.RunStore
	if !opts.NoStore {
		s, closeStore, err := a.openStore(ctx)
		if err != nil {
			return err
		}
		if s == nil {
			a.Logger.Debug().Msg("database.dsn not configured; persistence disabled")
		} else {
			defer closeStore()
			store = s
		}
	}

	var notifier alerting.Notifier
	if !opts.NoAlert {
		notifier = a.newNotifier()
	}

	result, err := a.executeRun(ctx, opts, store, notifier, nil)
	if err != nil {
		return err
	}

	switch result.Severity {
	case scan.SeverityCritical:
		return fmt.Errorf("run degraded: success rate %.1f%% below %.0f%%",
			result.Snapshot.SuccessRate, scan.CriticalBelowPct)
	case scan.SeverityWarning:
		a.Logger.Warn().
			Float64("success_rate", result.Snapshot.SuccessRate).
			Msg("run completed with degraded success rate")
	}
	return nil
}

// runResult carries what one completed run produced.
type runResult struct {
	Snapshot scan.Snapshot
	Severity scan.Severity
	Paths    []string
}

func (a *App) executeRun(ctx context.Context, opts FetchOptions, store storage.RunStore, notifier alerting.Notifier, mgr *metrics.Manager) (runResult, error) {
	uni, err := universe.Load(a.Config.Universe)
	if err != nil {
		return runResult{}, err
	}
	uni = uni.Slice(opts.Offset, opts.MaxSymbols)

	tv, timeframes, err := a.newFetcher()
	if err != nil {
		return runResult{}, err
	}

	scanCfg := a.resolveScanConfig(opts)
	retrier := scan.NewRetrier(tv, scan.RetrierOptions{
		MaxAttempts: scanCfg.MaxAttempts,
		BaseDelay:   scanCfg.PerItemDelay,
	}, a.Logger)

	runner := scan.NewRunner(retrier, scanCfg, a.Logger)
	runner.OnOutcome = func(processed, total int, outcome scan.Outcome) {
		event := a.Logger.Info()
		if !outcome.Succeeded() {
			event = a.Logger.Warn().Str("reason", outcome.Reason)
		}
		event.
			Str("symbol", outcome.Symbol).
			Str("status", string(outcome.Status)).
			Int("attempts", outcome.Attempts).
			Str("progress", fmt.Sprintf("%d/%d", processed, total)).
			Msg("symbol processed")
		if mgr != nil {
			mgr.ObserveOutcome(outcome)
		}
	}

	info := scan.RunInfo{
		ID:        uuid.NewString(),
		StartedAt: time.Now().UTC(),
		Config:    scanCfg,
	}

	a.Logger.Info().
		Str("run_id", info.ID).
		Int("symbols", len(uni)).
		Int("batch_size", scanCfg.BatchSize).
		Int("timeframes", len(timeframes)).
		Msg("starting fetch run")

	outcomes, runErr := runner.RunAll(ctx, uni.Tickers())
	info.FinishedAt = time.Now().UTC()

	// A cancelled run leaves no artifacts behind: whatever landed before the
	// interrupt is discarded rather than persisted as a partial snapshot.
	if runErr != nil {
		return runResult{}, runErr
	}
	if len(outcomes) == 0 {
		return runResult{}, scan.ErrNoData
	}

	snap := scan.Aggregate(info, outcomes, timeframes)
	severity := scan.ClassifySeverity(snap.SuccessRate)
	if mgr != nil {
		mgr.ObserveRun(snap)
	}

	paths := a.emitReports(snap, uni, opts)
	a.persistRun(ctx, store, opts, snap, severity)
	a.dispatchDigest(ctx, notifier, opts, snap)

	a.Logger.Info().
		Str("run_id", snap.RunID).
		Str("date", snap.Date).
		Int("total", snap.Total).
		Int("succeeded", snap.Succeeded).
		Int("failed", snap.Failed).
		Float64("success_rate", snap.SuccessRate).
		Str("severity", severity.String()).
		Msg("fetch run complete")

	return runResult{Snapshot: snap, Severity: severity, Paths: paths}, nil
}

func (a *App) resolveScanConfig(opts FetchOptions) scan.Config {
	cfg := scan.Config{
		BatchSize:       a.Config.Scan.BatchSize,
		PerItemDelay:    a.Config.Scan.PerItemDelay,
		InterBatchDelay: a.Config.Scan.InterBatchDelay,
		MaxAttempts:     a.Config.Scan.MaxAttempts,
		Workers:         a.Config.Scan.Workers,
	}
	if opts.BatchSize > 0 {
		cfg.BatchSize = opts.BatchSize
	}
	if opts.RateLimit > 0 {
		cfg.PerItemDelay = opts.RateLimit
	}
	if opts.Retries > 0 {
		cfg.MaxAttempts = opts.Retries
	}
	if opts.Workers > 0 {
		cfg.Workers = opts.Workers
	}
	if opts.Conservative {
		if cfg.BatchSize > 3 {
			cfg.BatchSize = 3
		}
		if cfg.PerItemDelay < 5*time.Second {
			cfg.PerItemDelay = 5 * time.Second
		}
		if cfg.InterBatchDelay < time.Minute {
			cfg.InterBatchDelay = time.Minute
		}
	}
	return cfg
}

func (a *App) emitReports(snap scan.Snapshot, uni universe.Universe, opts FetchOptions) []string {
	outDir := opts.OutDir
	if outDir == "" {
		outDir = a.Config.Report.OutputDir
	}

	emitter := report.NewEmitter(report.Options{
		OutputDir:      outDir,
		Title:          a.Config.Report.Title,
		ExchangePrefix: a.Config.Universe.ExchangePrefix,
	}, a.Logger)

	doc := report.BuildDocument(snap, uni)

	paths := make([]string, 0, 3)
	if path, err := emitter.WriteSnapshot(doc); err != nil {
		a.Logger.Error().Err(err).Msg("failed to write snapshot document")
	} else {
		paths = append(paths, path)
	}
	if path, err := emitter.WriteLatest(doc); err != nil {
		a.Logger.Error().Err(err).Msg("failed to write latest document")
	} else {
		paths = append(paths, path)
	}
	if a.Config.Report.HTML && !opts.NoHTML {
		if path, err := emitter.WriteHTML(doc); err != nil {
			a.Logger.Error().Err(err).Msg("failed to write html report")
		} else {
			paths = append(paths, path)
		}
	}
	return paths
}

func (a *App) persistRun(ctx context.Context, store storage.RunStore, opts FetchOptions, snap scan.Snapshot, severity scan.Severity) {
	if store == nil || opts.NoStore {
		return
	}

	if err := store.EnsureSchema(ctx); err != nil {
		a.Logger.Error().Err(err).Msg("failed to ensure storage schema")
		return
	}

	run, readings := runRecords(snap, severity)
	if err := store.UpsertRun(ctx, run, readings); err != nil {
		a.Logger.Error().Err(err).Str("run_id", snap.RunID).Msg("failed to persist run")
		return
	}
	a.Logger.Info().Str("run_id", snap.RunID).Int("readings", len(readings)).Msg("run persisted")
}

func (a *App) dispatchDigest(ctx context.Context, notifier alerting.Notifier, opts FetchOptions, snap scan.Snapshot) {
	if notifier == nil || opts.NoAlert || !a.Config.Alerting.Enabled {
		return
	}

	digest := alerting.BuildDigest(snap, a.thresholds(), a.Config.Universe.ExchangePrefix)
	if !digest.Noteworthy(a.Config.Alerting.MinSuccessRate) {
		a.Logger.Debug().Str("date", digest.RunDate).Msg("digest not noteworthy; skipping notification")
		return
	}
	if err := notifier.Notify(ctx, digest); err != nil {
		a.Logger.Error().Err(err).Msg("failed to dispatch digest")
	}
}

func runRecords(snap scan.Snapshot, severity scan.Severity) (storage.RunRecord, []storage.ReadingRecord) {
	year, month, day := snap.StartedAt.Date()
	runDate := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)

	run := storage.RunRecord{
		RunID:         snap.RunID,
		RunDate:       runDate,
		StartedAt:     snap.StartedAt,
		FinishedAt:    snap.FinishedAt,
		TotalSymbols:  snap.Total,
		Successful:    snap.Succeeded,
		Failed:        snap.Failed,
		SuccessRate:   decimal.NewFromFloat(snap.SuccessRate),
		Severity:      severity.String(),
		FailedSymbols: snap.FailedSymbols,
	}

	readings := make([]storage.ReadingRecord, 0, snap.Succeeded*len(snap.Timeframes))
	for _, outcome := range snap.Outcomes {
		if !outcome.Succeeded() {
			continue
		}
		for _, tf := range snap.Timeframes {
			value, ok := outcome.Readings[tf]
			if !ok {
				continue
			}
			readings = append(readings, storage.ReadingRecord{
				RunDate:   runDate,
				Symbol:    outcome.Symbol,
				Timeframe: string(tf),
				RSI:       decimal.NewFromFloat(value),
				FetchedAt: outcome.FetchedAt,
			})
		}
	}
	return run, readings
}
