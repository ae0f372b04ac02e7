package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"rsiwatch/internal/fetcher"
	"rsiwatch/internal/scan"
)

func TestManagerExposition(t *testing.T) {
	manager := NewManager()

	manager.ObserveOutcome(scan.Outcome{
		Symbol:   "CSELK-ABAN.N0000",
		Readings: fetcher.Readings{fetcher.TimeframeDaily: 45.0},
		Status:   scan.StatusSuccess,
		Attempts: 1,
	})
	manager.ObserveOutcome(scan.Outcome{
		Symbol:   "CSELK-JKH.N0000",
		Status:   scan.StatusFailed,
		Attempts: 3,
		Reason:   "timeout",
	})

	started := time.Date(2026, 8, 21, 10, 30, 0, 0, time.UTC)
	manager.ObserveRun(scan.Snapshot{
		SuccessRate: 50.0,
		StartedAt:   started,
		FinishedAt:  started.Add(2 * time.Minute),
	})

	srv := httptest.NewServer(manager.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	if err != nil {
		t.Fatalf("scrape: %v", err)
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	body := string(payload)

	for _, want := range []string{
		`rsiwatch_runs_total{severity="warning"} 1`,
		"rsiwatch_symbols_processed_total 2",
		"rsiwatch_symbol_failures_total 1",
		"rsiwatch_fetch_attempts_total 4",
		"rsiwatch_run_success_rate 50",
		"rsiwatch_run_duration_seconds_count 1",
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("exposition missing %q:\n%s", want, body)
		}
	}

	if strings.Contains(body, "go_goroutines") {
		t.Fatal("private registry must not expose default Go collectors")
	}
}
