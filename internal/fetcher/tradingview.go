package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"
	"resty.dev/v3"
)

const defaultBaseURL = "https://scanner.tradingview.com"

var decHundred = decimal.NewFromInt(100)

// TradingViewOptions parameterise the scanner client.
type TradingViewOptions struct {
	BaseURL           string
	Market            string
	Timeframes        []Timeframe
	Timeout           time.Duration
	UserAgent         string
	RequestsPerSecond float64
	Burst             int
}

// TradingView fetches RSI readings from the TradingView scanner API.
type TradingView struct {
	opts    TradingViewOptions
	client  *resty.Client
	limiter *rate.Limiter
	logger  zerolog.Logger
}

// NewTradingView constructs a scanner client.
func NewTradingView(opts TradingViewOptions, logger zerolog.Logger) *TradingView {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	ua := strings.TrimSpace(opts.UserAgent)
	if ua == "" {
		ua = "rsiwatch/1.0"
	}

	rps := opts.RequestsPerSecond
	if rps <= 0 {
		rps = 0.5
	}
	burst := opts.Burst
	if burst < 1 {
		burst = 1
	}

	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", ua)

	return &TradingView{
		opts:    opts,
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		logger:  logger.With().Str("component", "tradingview_fetcher").Logger(),
	}
}

type scanRequest struct {
	Symbols scanSymbols `json:"symbols"`
	Columns []string    `json:"columns"`
}

type scanSymbols struct {
	Tickers []string `json:"tickers"`
}

type scanResponse struct {
	Data []struct {
		Symbol string        `json:"s"`
		Values []json.Number `json:"d"`
	} `json:"data"`
	TotalCount int `json:"totalCount"`
}

// FetchAllTimeframes queries the scanner for one symbol and returns whatever
// valid readings came back. A response without a single valid value yields an
// empty map and a nil error.
func (t *TradingView) FetchAllTimeframes(ctx context.Context, symbol string) (Readings, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	columns := make([]string, len(t.opts.Timeframes))
	for i, tf := range t.opts.Timeframes {
		columns[i] = columnFor(tf)
	}

	body := scanRequest{
		Symbols: scanSymbols{Tickers: []string{scannerTicker(symbol)}},
		Columns: columns,
	}

	var result scanResponse
	resp, err := t.client.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&result).
		Post(fmt.Sprintf("/%s/scan", t.opts.Market))
	if err != nil {
		return nil, classifyTransport(err)
	}

	if !resp.IsSuccess() {
		return nil, classifyStatus(resp.StatusCode())
	}

	if len(result.Data) == 0 {
		return nil, &FetchError{Type: ErrorTypeValidation, Message: fmt.Sprintf("symbol %s not present in scanner response", symbol)}
	}

	row := result.Data[0]
	readings := make(Readings, len(t.opts.Timeframes))
	for i, tf := range t.opts.Timeframes {
		if i >= len(row.Values) {
			break
		}
		value, ok := parseReading(row.Values[i])
		if !ok {
			continue
		}
		readings[tf] = value
	}

	t.logger.Debug().
		Str("symbol", symbol).
		Int("timeframes_requested", len(t.opts.Timeframes)).
		Int("readings", len(readings)).
		Msg("scanner response parsed")

	return readings, nil
}

// parseReading validates one scanner value. Nulls arrive as empty numbers and
// anything outside [0,100] is not a plausible RSI, so both count as absent.
func parseReading(raw json.Number) (float64, bool) {
	if raw.String() == "" {
		return 0, false
	}
	value, err := decimal.NewFromString(raw.String())
	if err != nil {
		return 0, false
	}
	if value.IsNegative() || value.GreaterThan(decHundred) {
		return 0, false
	}
	return value.InexactFloat64(), true
}

// scannerTicker converts the universe form CSELK-ABAN.N0000 into the
// EXCHANGE:TICKER form the scanner expects.
func scannerTicker(symbol string) string {
	return strings.Replace(symbol, "-", ":", 1)
}

func columnFor(tf Timeframe) string {
	if tf == TimeframeDaily {
		return "RSI"
	}
	return "RSI|" + string(tf)
}

var _ Fetcher = (*TradingView)(nil)
