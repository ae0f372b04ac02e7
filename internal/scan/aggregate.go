package scan

import (
	"time"

	"github.com/shopspring/decimal"

	"rsiwatch/internal/fetcher"
)

// RunInfo carries the identifying metadata stamped into a snapshot.
type RunInfo struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Config     Config
}

// TimeframeStat summarises reading coverage for one timeframe. Total is the
// number of successful outcomes considered, not the whole universe.
type TimeframeStat struct {
	Successful  int
	Total       int
	SuccessRate float64
}

// Snapshot aggregates every outcome of one run plus derived statistics.
// Rates are percentages rounded to one decimal place.
type Snapshot struct {
	RunID          string
	Date           string
	StartedAt      time.Time
	FinishedAt     time.Time
	Timeframes     []fetcher.Timeframe
	Outcomes       []Outcome
	Total          int
	Succeeded      int
	Failed         int
	SuccessRate    float64
	TimeframeStats map[fetcher.Timeframe]TimeframeStat
	FailedSymbols  []string
	Config         Config
}

// Aggregate derives run statistics from outcomes. It is pure and
// deterministic: the same inputs always produce the same snapshot.
func Aggregate(info RunInfo, outcomes []Outcome, timeframes []fetcher.Timeframe) Snapshot {
	snap := Snapshot{
		RunID:          info.ID,
		Date:           info.StartedAt.UTC().Format("2006-01-02"),
		StartedAt:      info.StartedAt.UTC(),
		FinishedAt:     info.FinishedAt.UTC(),
		Timeframes:     append([]fetcher.Timeframe(nil), timeframes...),
		Outcomes:       append([]Outcome(nil), outcomes...),
		Total:          len(outcomes),
		TimeframeStats: make(map[fetcher.Timeframe]TimeframeStat, len(timeframes)),
		Config:         info.Config,
	}

	for _, outcome := range snap.Outcomes {
		if outcome.Succeeded() {
			snap.Succeeded++
		} else {
			snap.Failed++
			snap.FailedSymbols = append(snap.FailedSymbols, outcome.Symbol)
		}
	}

	if snap.Total > 0 {
		snap.SuccessRate = percentage(snap.Succeeded, snap.Total)
	}

	for _, tf := range timeframes {
		stat := TimeframeStat{Total: snap.Succeeded}
		for _, outcome := range snap.Outcomes {
			if !outcome.Succeeded() {
				continue
			}
			if _, ok := outcome.Readings[tf]; ok {
				stat.Successful++
			}
		}
		if stat.Total > 0 {
			stat.SuccessRate = percentage(stat.Successful, stat.Total)
		}
		snap.TimeframeStats[tf] = stat
	}

	return snap
}

// percentage computes part/whole as a percentage rounded to one decimal.
func percentage(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	ratio := decimal.NewFromInt(int64(part)).
		Div(decimal.NewFromInt(int64(whole))).
		Mul(decimal.NewFromInt(100)).
		Round(1)
	value, _ := ratio.Float64()
	return value
}
