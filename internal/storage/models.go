package storage

import (
	"time"

	"github.com/shopspring/decimal"
)

// RunRecord is one persisted fetch run, keyed by its calendar date.
// Re-running the same day replaces the previous row and its readings.
type RunRecord struct {
	RunID         string
	RunDate       time.Time
	StartedAt     time.Time
	FinishedAt    time.Time
	TotalSymbols  int
	Successful    int
	Failed        int
	SuccessRate   decimal.Decimal
	Severity      string
	FailedSymbols []string
	CreatedAt     time.Time
}

// ReadingRecord is a single RSI observation: one symbol, one timeframe,
// one run. Absent readings are never stored.
type ReadingRecord struct {
	RunDate   time.Time
	Symbol    string
	Timeframe string
	RSI       decimal.Decimal
	FetchedAt time.Time
}
