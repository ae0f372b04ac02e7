package alerting

import (
	"strings"

	"github.com/shopspring/decimal"

	"rsiwatch/internal/scan"
)

// Thresholds 定义超卖/超买判定边界。
type Thresholds struct {
	OversoldBelow   float64
	OverboughtAbove float64
}

// SymbolReading is one signal line in the digest.
type SymbolReading struct {
	Symbol    string
	Timeframe string
	RSI       decimal.Decimal
}

// Digest 封装一次运行的告警摘要。
type Digest struct {
	RunDate     string
	Oversold    []SymbolReading
	Overbought  []SymbolReading
	SuccessRate decimal.Decimal
	Total       int
	Failed      int
	Severity    string
}

// BuildDigest extracts the oversold and overbought signals from a run
// snapshot. Symbols keep outcome order; the display prefix is stripped.
func BuildDigest(snap scan.Snapshot, thresholds Thresholds, displayPrefix string) Digest {
	digest := Digest{
		RunDate:     snap.Date,
		SuccessRate: decimal.NewFromFloat(snap.SuccessRate),
		Total:       snap.Total,
		Failed:      snap.Failed,
		Severity:    scan.ClassifySeverity(snap.SuccessRate).String(),
	}

	for _, outcome := range snap.Outcomes {
		if !outcome.Succeeded() {
			continue
		}
		symbol := strings.TrimPrefix(outcome.Symbol, displayPrefix)
		for _, tf := range snap.Timeframes {
			value, ok := outcome.Readings[tf]
			if !ok {
				continue
			}
			reading := SymbolReading{
				Symbol:    symbol,
				Timeframe: string(tf),
				RSI:       decimal.NewFromFloat(value),
			}
			switch {
			case value < thresholds.OversoldBelow:
				digest.Oversold = append(digest.Oversold, reading)
			case value > thresholds.OverboughtAbove:
				digest.Overbought = append(digest.Overbought, reading)
			}
		}
	}

	return digest
}

// Noteworthy reports whether the digest warrants a notification: any signal,
// any failures once the success rate drops below the configured floor, or a
// degraded run.
func (d Digest) Noteworthy(minSuccessRate float64) bool {
	if len(d.Oversold) > 0 || len(d.Overbought) > 0 {
		return true
	}
	if rate, _ := d.SuccessRate.Float64(); rate < minSuccessRate {
		return true
	}
	return d.Severity != scan.SeverityNormal.String()
}
