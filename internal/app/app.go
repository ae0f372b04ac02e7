package app

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"rsiwatch/internal/alerting"
	"rsiwatch/internal/config"
	"rsiwatch/internal/fetcher"
	"rsiwatch/internal/storage"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

func (a *App) newFetcher() (fetcher.Fetcher, []fetcher.Timeframe, error) {
	timeframes, err := fetcher.ParseTimeframes(a.Config.Fetch.Timeframes)
	if err != nil {
		return nil, nil, err
	}

	tv := fetcher.NewTradingView(fetcher.TradingViewOptions{
		BaseURL:           a.Config.Fetch.BaseURL,
		Market:            a.Config.Fetch.Market,
		Timeframes:        timeframes,
		Timeout:           a.Config.Fetch.RequestTimeout,
		UserAgent:         a.Config.Fetch.UserAgent,
		RequestsPerSecond: a.Config.Fetch.RequestsPerSecond,
		Burst:             a.Config.Fetch.Burst,
	}, a.Logger)

	return tv, timeframes, nil
}

func (a *App) newNotifier() alerting.Notifier {
	if a.Config.Alerting.Telegram.Enabled {
		cfg := a.Config.Alerting.Telegram
		return alerting.NewTelegramNotifier(cfg.BotToken, cfg.ChatID, cfg.APIBase, a.thresholds(), 10*time.Second, a.Logger)
	}
	return nil
}

func (a *App) thresholds() alerting.Thresholds {
	return alerting.Thresholds{
		OversoldBelow:   a.Config.Alerting.OversoldBelow,
		OverboughtAbove: a.Config.Alerting.OverboughtAbove,
	}
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	if a.Config.Database.DSN == "" {
		return nil, nil, nil
	}

	pool, err := storage.NewPool(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}

	store := storage.NewStore(pool)
	closer := func() {
		store.Close()
	}
	return store, closer, nil
}

// FetchOptions carry CLI overrides for a single fetch run.
type FetchOptions struct {
	BatchSize    int
	Workers      int
	RateLimit    time.Duration
	Retries      int
	MaxSymbols   int
	Offset       int
	Conservative bool
	OutDir       string
	NoHTML       bool
	NoStore      bool
	NoAlert      bool
}

// ScheduleOptions configure the long-running daemon.
type ScheduleOptions struct {
	RunImmediately bool
}

// ShowOptions configure the show command.
type ShowOptions struct {
	Limit int
}

// ExportOptions hold parameters for exporting reading history.
type ExportOptions struct {
	Symbol    string
	Timeframe string
	From      *time.Time
	To        *time.Time
	PNGPath   string
	CSVPath   string
	MaxPoints int
}

// PublishOptions configure report publishing.
type PublishOptions struct {
	Dir string
}
