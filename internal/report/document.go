package report

import (
	"time"

	"rsiwatch/internal/scan"
	"rsiwatch/internal/universe"
)

// RSI signal thresholds. Shared with alerting defaults so the report and the
// digests never disagree about what counts as oversold.
const (
	OversoldThreshold   = 30.0
	OverboughtThreshold = 70.0
)

// Document is the persisted snapshot contract: a dated rsi_data file, the
// latest_rsi reduction, and the HTML report all derive from it.
type Document struct {
	Metadata      Metadata         `json:"metadata"`
	Data          map[string]Entry `json:"data"`
	FailedSymbols []string         `json:"failed_symbols,omitempty"`
}

// Metadata identifies a run and carries its derived statistics.
type Metadata struct {
	RunID             string                   `json:"run_id"`
	Date              string                   `json:"date"`
	Timestamp         string                   `json:"timestamp"`
	Timeframes        []string                 `json:"timeframes"`
	TotalSymbols      int                      `json:"total_symbols"`
	SuccessfulFetches int                      `json:"successful_fetches"`
	FailedFetches     int                      `json:"failed_fetches"`
	SuccessRate       float64                  `json:"success_rate"`
	TimeframeStats    map[string]TimeframeStat `json:"timeframe_stats"`
	Config            RunConfig                `json:"config"`
}

// TimeframeStat mirrors scan.TimeframeStat on the wire.
type TimeframeStat struct {
	Successful  int     `json:"successful"`
	Total       int     `json:"total"`
	SuccessRate float64 `json:"success_rate"`
}

// RunConfig records the scheduler knobs the run actually used.
type RunConfig struct {
	BatchSize      int     `json:"batch_size"`
	RateLimitDelay float64 `json:"rate_limit_delay"`
	RetryCount     int     `json:"retry_count"`
}

// Entry is one symbol's result. Every configured timeframe appears in RSIData;
// absent readings are null, never zero.
type Entry struct {
	Company   string              `json:"company,omitempty"`
	RSIData   map[string]*float64 `json:"rsi_data"`
	Status    string              `json:"status"`
	Timestamp string              `json:"timestamp"`
	Attempts  int                 `json:"attempts"`
	Error     string              `json:"error,omitempty"`
}

// BuildDocument converts a snapshot into the wire document, resolving company
// names from the universe.
func BuildDocument(snap scan.Snapshot, uni universe.Universe) Document {
	timeframes := make([]string, len(snap.Timeframes))
	for i, tf := range snap.Timeframes {
		timeframes[i] = string(tf)
	}

	stats := make(map[string]TimeframeStat, len(snap.TimeframeStats))
	for tf, stat := range snap.TimeframeStats {
		stats[string(tf)] = TimeframeStat{
			Successful:  stat.Successful,
			Total:       stat.Total,
			SuccessRate: stat.SuccessRate,
		}
	}

	data := make(map[string]Entry, len(snap.Outcomes))
	for _, outcome := range snap.Outcomes {
		rsi := make(map[string]*float64, len(snap.Timeframes))
		for _, tf := range snap.Timeframes {
			if value, ok := outcome.Readings[tf]; ok {
				v := value
				rsi[string(tf)] = &v
			} else {
				rsi[string(tf)] = nil
			}
		}

		entry := Entry{
			Company:   uni.CompanyFor(outcome.Symbol),
			RSIData:   rsi,
			Status:    string(outcome.Status),
			Timestamp: outcome.FetchedAt.UTC().Format(time.RFC3339),
			Attempts:  outcome.Attempts,
		}
		if !outcome.Succeeded() {
			entry.Error = outcome.Reason
		}
		data[outcome.Symbol] = entry
	}

	return Document{
		Metadata: Metadata{
			RunID:             snap.RunID,
			Date:              snap.Date,
			Timestamp:         snap.FinishedAt.UTC().Format(time.RFC3339),
			Timeframes:        timeframes,
			TotalSymbols:      snap.Total,
			SuccessfulFetches: snap.Succeeded,
			FailedFetches:     snap.Failed,
			SuccessRate:       snap.SuccessRate,
			TimeframeStats:    stats,
			Config: RunConfig{
				BatchSize:      snap.Config.BatchSize,
				RateLimitDelay: snap.Config.PerItemDelay.Seconds(),
				RetryCount:     snap.Config.MaxAttempts,
			},
		},
		Data:          data,
		FailedSymbols: append([]string(nil), snap.FailedSymbols...),
	}
}

// Latest reduces the document to successful entries only, the shape consumers
// poll for current values.
func (d Document) Latest() Document {
	data := make(map[string]Entry, len(d.Data))
	for symbol, entry := range d.Data {
		if entry.Status != string(scan.StatusSuccess) {
			continue
		}
		data[symbol] = entry
	}
	return Document{Metadata: d.Metadata, Data: data}
}
