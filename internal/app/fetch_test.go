package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"rsiwatch/internal/config"
	"rsiwatch/internal/fetcher"
	"rsiwatch/internal/scan"
	"rsiwatch/internal/storage"
)

type stubRunStore struct {
	ensured   bool
	upserts   int
	upsertErr error
	run       storage.RunRecord
	readings  []storage.ReadingRecord

	runs  []storage.RunRecord
	count int64
}

func (s *stubRunStore) EnsureSchema(ctx context.Context) error {
	s.ensured = true
	return nil
}

func (s *stubRunStore) UpsertRun(ctx context.Context, run storage.RunRecord, readings []storage.ReadingRecord) error {
	s.upserts++
	if s.upsertErr != nil {
		return s.upsertErr
	}
	s.run = run
	s.readings = readings
	return nil
}

func (s *stubRunStore) ListRecentRuns(ctx context.Context, limit int) ([]storage.RunRecord, error) {
	if limit > 0 && limit < len(s.runs) {
		return s.runs[:limit], nil
	}
	return s.runs, nil
}

func (s *stubRunStore) CountRuns(ctx context.Context) (int64, error) {
	return s.count, nil
}

func newTestApp() *App {
	return &App{Config: &config.Config{}, Logger: zerolog.Nop()}
}

func sampleSnapshot() scan.Snapshot {
	started := time.Date(2026, 8, 21, 10, 30, 0, 0, time.UTC)
	info := scan.RunInfo{ID: "run-1", StartedAt: started, FinishedAt: started.Add(time.Minute)}
	outcomes := []scan.Outcome{
		{
			Symbol:    "CSELK-ABAN.N0000",
			Status:    scan.StatusSuccess,
			Attempts:  1,
			FetchedAt: started,
			Readings:  fetcher.Readings{fetcher.TimeframeDaily: 27.4},
		},
		{
			Symbol:    "CSELK-JKH.N0000",
			Status:    scan.StatusFailed,
			Attempts:  3,
			Reason:    "no timeframes successful",
			FetchedAt: started,
		},
	}
	return scan.Aggregate(info, outcomes, []fetcher.Timeframe{fetcher.TimeframeDaily})
}

func TestPersistRunStoresRecords(t *testing.T) {
	a := newTestApp()
	store := &stubRunStore{}

	a.persistRun(context.Background(), store, FetchOptions{}, sampleSnapshot(), scan.SeverityWarning)

	if !store.ensured {
		t.Fatal("schema was not ensured before the upsert")
	}
	if store.upserts != 1 {
		t.Fatalf("upserts = %d, want 1", store.upserts)
	}

	wantDate := time.Date(2026, 8, 21, 0, 0, 0, 0, time.UTC)
	if !store.run.RunDate.Equal(wantDate) {
		t.Fatalf("run date = %v, want %v", store.run.RunDate, wantDate)
	}
	if store.run.Severity != "warning" {
		t.Fatalf("severity = %q", store.run.Severity)
	}
	if store.run.TotalSymbols != 2 || store.run.Successful != 1 || store.run.Failed != 1 {
		t.Fatalf("counts = %d/%d/%d", store.run.TotalSymbols, store.run.Successful, store.run.Failed)
	}
	if len(store.readings) != 1 {
		t.Fatalf("readings = %#v", store.readings)
	}
	if store.readings[0].Symbol != "CSELK-ABAN.N0000" || store.readings[0].Timeframe != "1D" {
		t.Fatalf("unexpected reading: %#v", store.readings[0])
	}
	if got := store.readings[0].RSI.String(); got != "27.4" {
		t.Fatalf("rsi = %q", got)
	}
}

func TestPersistRunSkipsWithoutStore(t *testing.T) {
	a := newTestApp()
	a.persistRun(context.Background(), nil, FetchOptions{}, sampleSnapshot(), scan.SeverityNormal)
}

func TestPersistRunToleratesUpsertError(t *testing.T) {
	a := newTestApp()
	store := &stubRunStore{upsertErr: errors.New("connection reset")}

	a.persistRun(context.Background(), store, FetchOptions{}, sampleSnapshot(), scan.SeverityNormal)

	if store.upserts != 1 {
		t.Fatalf("upsert not attempted: %d", store.upserts)
	}
}
