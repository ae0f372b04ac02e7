package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"rsiwatch/internal/alerting"
	"rsiwatch/internal/fetcher"
	"rsiwatch/internal/scan"
)

// SimulateDigest 构造两条合成读数并走一遍真实的告警流程。
func (a *App) SimulateDigest(ctx context.Context, oversold, overbought float64) error {
	if !a.Config.Alerting.Enabled {
		return errors.New("alerting 未启用")
	}

	notifier := a.newNotifier()
	if notifier == nil {
		return errors.New("未配置任何告警通道")
	}

	prefix := a.Config.Universe.ExchangePrefix
	symbols := []string{prefix + "OVERSOLD.TEST", prefix + "OVERBOUGHT.TEST"}
	static := &staticFetcher{readings: map[string]fetcher.Readings{
		symbols[0]: {fetcher.TimeframeDaily: oversold},
		symbols[1]: {fetcher.TimeframeDaily: overbought},
	}}

	retrier := scan.NewRetrier(static, scan.RetrierOptions{MaxAttempts: 1}, a.Logger)
	runner := scan.NewRunner(retrier, scan.Config{BatchSize: len(symbols)}, a.Logger)

	started := time.Now().UTC()
	outcomes, err := runner.RunAll(ctx, symbols)
	if err != nil {
		return err
	}

	info := scan.RunInfo{ID: uuid.NewString(), StartedAt: started, FinishedAt: time.Now().UTC()}
	snap := scan.Aggregate(info, outcomes, []fetcher.Timeframe{fetcher.TimeframeDaily})

	digest := alerting.BuildDigest(snap, a.thresholds(), prefix)
	if len(digest.Oversold) == 0 && len(digest.Overbought) == 0 {
		return fmt.Errorf("给定读数 %.1f/%.1f 未越过任何阈值", oversold, overbought)
	}
	return notifier.Notify(ctx, digest)
}

type staticFetcher struct {
	readings map[string]fetcher.Readings
}

func (s *staticFetcher) FetchAllTimeframes(ctx context.Context, symbol string) (fetcher.Readings, error) {
	return s.readings[symbol], nil
}

var _ fetcher.Fetcher = (*staticFetcher)(nil)
