package fetcher

import (
	"context"
	"fmt"
)

// Timeframe identifies a chart resolution understood by the scanner API.
type Timeframe string

const (
	TimeframeDaily   Timeframe = "1D"
	TimeframeWeekly  Timeframe = "1W"
	TimeframeMonthly Timeframe = "1M"
)

// Readings maps timeframes to RSI values for a single symbol. A timeframe
// without a valid reading is simply absent from the map; absent is not zero.
type Readings map[Timeframe]float64

// Fetcher retrieves RSI readings for one symbol across the configured timeframes.
// Implementations return a short diagnostic error when nothing could be fetched;
// a partially populated (or empty) Readings map with a nil error is also valid.
type Fetcher interface {
	FetchAllTimeframes(ctx context.Context, symbol string) (Readings, error)
}

// ParseTimeframes validates configured timeframe labels.
func ParseTimeframes(values []string) ([]Timeframe, error) {
	if len(values) == 0 {
		return nil, fmt.Errorf("at least one timeframe required")
	}
	parsed := make([]Timeframe, 0, len(values))
	for _, v := range values {
		tf := Timeframe(v)
		switch tf {
		case TimeframeDaily, TimeframeWeekly, TimeframeMonthly:
			parsed = append(parsed, tf)
		default:
			return nil, fmt.Errorf("unsupported timeframe %q", v)
		}
	}
	return parsed, nil
}
