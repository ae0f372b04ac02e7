package scan

import (
	"errors"
	"time"

	"rsiwatch/internal/fetcher"
)

// ErrNoData signals that a run produced no outcomes at all.
var ErrNoData = errors.New("no data retrieved")

// Status reflects whether a symbol produced at least one reading.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// Outcome records the result of fetching one symbol during a run. A symbol
// succeeds as soon as any timeframe carries a valid reading; partial coverage
// is still success.
type Outcome struct {
	Symbol    string
	Readings  fetcher.Readings
	Status    Status
	Attempts  int
	Reason    string
	FetchedAt time.Time
}

// Succeeded reports whether the outcome carries usable readings.
func (o Outcome) Succeeded() bool {
	return o.Status == StatusSuccess
}
