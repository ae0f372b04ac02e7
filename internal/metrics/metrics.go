package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"rsiwatch/internal/scan"
)

// Manager owns the Prometheus collectors for the fetch pipeline. Collectors
// live on a private registry so the scrape carries only rsiwatch series.
type Manager struct {
	registry *prometheus.Registry

	runsTotal        *prometheus.CounterVec
	symbolsProcessed prometheus.Counter
	symbolFailures   prometheus.Counter
	fetchAttempts    prometheus.Counter
	runSuccessRate   prometheus.Gauge
	lastRunUnix      prometheus.Gauge
	runDuration      prometheus.Histogram
}

// NewManager registers all collectors on a fresh registry.
func NewManager() *Manager {
	registry := prometheus.NewRegistry()
	auto := promauto.With(registry)

	return &Manager{
		registry: registry,
		runsTotal: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rsiwatch",
			Name:      "runs_total",
			Help:      "Completed fetch runs by severity tier",
		}, []string{"severity"}),
		symbolsProcessed: auto.NewCounter(prometheus.CounterOpts{
			Namespace: "rsiwatch",
			Name:      "symbols_processed_total",
			Help:      "Symbols processed across all runs",
		}),
		symbolFailures: auto.NewCounter(prometheus.CounterOpts{
			Namespace: "rsiwatch",
			Name:      "symbol_failures_total",
			Help:      "Symbols whose retries were exhausted",
		}),
		fetchAttempts: auto.NewCounter(prometheus.CounterOpts{
			Namespace: "rsiwatch",
			Name:      "fetch_attempts_total",
			Help:      "Individual fetch attempts including retries",
		}),
		runSuccessRate: auto.NewGauge(prometheus.GaugeOpts{
			Namespace: "rsiwatch",
			Name:      "run_success_rate",
			Help:      "Success rate of the most recent run (percent)",
		}),
		lastRunUnix: auto.NewGauge(prometheus.GaugeOpts{
			Namespace: "rsiwatch",
			Name:      "last_run_unix",
			Help:      "Unix timestamp of the most recent completed run",
		}),
		runDuration: auto.NewHistogram(prometheus.HistogramOpts{
			Namespace: "rsiwatch",
			Name:      "run_duration_seconds",
			Help:      "Wall-clock duration of fetch runs",
			Buckets:   []float64{30, 60, 120, 300, 600, 1200, 1800, 3600},
		}),
	}
}

// ObserveOutcome records one symbol outcome.
func (m *Manager) ObserveOutcome(outcome scan.Outcome) {
	m.symbolsProcessed.Inc()
	m.fetchAttempts.Add(float64(outcome.Attempts))
	if !outcome.Succeeded() {
		m.symbolFailures.Inc()
	}
}

// ObserveRun records a completed run snapshot.
func (m *Manager) ObserveRun(snap scan.Snapshot) {
	m.runsTotal.WithLabelValues(scan.ClassifySeverity(snap.SuccessRate).String()).Inc()
	m.runSuccessRate.Set(snap.SuccessRate)
	m.lastRunUnix.Set(float64(snap.FinishedAt.Unix()))
	m.runDuration.Observe(snap.FinishedAt.Sub(snap.StartedAt).Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Manager) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve runs the metrics listener until ctx is cancelled.
func (m *Manager) Serve(ctx context.Context, addr string, logger zerolog.Logger) error {
	log := logger.With().Str("component", "metrics").Logger()

	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("metrics listener started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("metrics shutdown failed")
		}
		<-errCh
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}
