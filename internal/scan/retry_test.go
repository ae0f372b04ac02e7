package scan

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"rsiwatch/internal/fetcher"
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

type stubCall struct {
	readings fetcher.Readings
	err      error
}

// stubFetcher plays back a script of responses, then repeats the fallback.
type stubFetcher struct {
	script   []stubCall
	fallback stubCall
	calls    int
}

func (s *stubFetcher) FetchAllTimeframes(ctx context.Context, symbol string) (fetcher.Readings, error) {
	idx := s.calls
	s.calls++
	if idx < len(s.script) {
		call := s.script[idx]
		return call.readings, call.err
	}
	return s.fallback.readings, s.fallback.err
}

func newTestRetrier(f fetcher.Fetcher, opts RetrierOptions) (*Retrier, *[]time.Duration) {
	r := NewRetrier(f, opts, testLogger())
	slept := &[]time.Duration{}
	r.sleep = func(ctx context.Context, d time.Duration) error {
		*slept = append(*slept, d)
		return ctx.Err()
	}
	r.jitter = func() float64 { return 1.0 }
	return r, slept
}

func TestFetchWithRetryPartialCoverageIsSuccess(t *testing.T) {
	f := &stubFetcher{script: []stubCall{
		{readings: fetcher.Readings{fetcher.TimeframeDaily: 45.0}},
	}}
	r, slept := newTestRetrier(f, RetrierOptions{MaxAttempts: 3, BaseDelay: time.Second})

	outcome := r.FetchWithRetry(context.Background(), "CSELK-X.N0000")

	if !outcome.Succeeded() {
		t.Fatalf("one valid timeframe must be success: %+v", outcome)
	}
	if outcome.Attempts != 1 {
		t.Fatalf("attempts = %d, want 1", outcome.Attempts)
	}
	if f.calls != 1 {
		t.Fatalf("fetcher invoked %d times, want 1", f.calls)
	}
	if len(*slept) != 0 {
		t.Fatalf("no backoff expected on first-attempt success, slept %v", *slept)
	}
	if v, ok := outcome.Readings[fetcher.TimeframeDaily]; !ok || v != 45.0 {
		t.Fatalf("daily reading lost: %#v", outcome.Readings)
	}
	if _, ok := outcome.Readings[fetcher.TimeframeWeekly]; ok {
		t.Fatal("weekly reading must stay absent")
	}
}

func TestFetchWithRetryExhaustsAttempts(t *testing.T) {
	f := &stubFetcher{fallback: stubCall{readings: fetcher.Readings{}}}
	r, slept := newTestRetrier(f, RetrierOptions{MaxAttempts: 3, BaseDelay: time.Second})

	outcome := r.FetchWithRetry(context.Background(), "CSELK-Y.N0000")

	if outcome.Succeeded() {
		t.Fatalf("expected failure: %+v", outcome)
	}
	if f.calls != 3 {
		t.Fatalf("fetcher invoked %d times, want exactly 3", f.calls)
	}
	if outcome.Attempts != 3 {
		t.Fatalf("attempts = %d, want 3", outcome.Attempts)
	}
	if outcome.Reason != DefaultFailureReason {
		t.Fatalf("reason = %q, want %q", outcome.Reason, DefaultFailureReason)
	}
	if len(*slept) != 2 {
		t.Fatalf("expected 2 backoffs between 3 attempts, got %v", *slept)
	}
	for _, d := range *slept {
		if d != time.Second {
			t.Fatalf("with unit jitter backoff must equal base delay, got %s", d)
		}
	}
}

func TestFetchWithRetryRecoversAfterError(t *testing.T) {
	f := &stubFetcher{script: []stubCall{
		{err: errors.New("network error: request failed")},
		{readings: fetcher.Readings{fetcher.TimeframeWeekly: 62.5}},
	}}
	r, _ := newTestRetrier(f, RetrierOptions{MaxAttempts: 3, BaseDelay: time.Millisecond})

	outcome := r.FetchWithRetry(context.Background(), "CSELK-Z.N0000")

	if !outcome.Succeeded() {
		t.Fatalf("expected recovery on second attempt: %+v", outcome)
	}
	if outcome.Attempts != 2 {
		t.Fatalf("attempts = %d, want 2", outcome.Attempts)
	}
}

func TestFetchWithRetryCapturesErrorReason(t *testing.T) {
	f := &stubFetcher{fallback: stubCall{err: errors.New("scanner exploded")}}
	r, _ := newTestRetrier(f, RetrierOptions{MaxAttempts: 2, BaseDelay: 0})

	outcome := r.FetchWithRetry(context.Background(), "CSELK-Q.N0000")

	if outcome.Succeeded() {
		t.Fatal("expected failure")
	}
	if !strings.Contains(outcome.Reason, "scanner exploded") {
		t.Fatalf("reason should carry the last error, got %q", outcome.Reason)
	}
	if outcome.Attempts != 2 {
		t.Fatalf("attempts = %d, want 2", outcome.Attempts)
	}
}

func TestFetchWithRetryStopsWhenCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	f := &stubFetcher{fallback: stubCall{readings: fetcher.Readings{}}}
	r := NewRetrier(f, RetrierOptions{MaxAttempts: 5, BaseDelay: time.Second}, testLogger())
	r.jitter = func() float64 { return 1.0 }
	r.sleep = func(ctx context.Context, d time.Duration) error {
		cancel()
		return context.Canceled
	}

	outcome := r.FetchWithRetry(ctx, "CSELK-C.N0000")

	if outcome.Succeeded() {
		t.Fatal("expected failure")
	}
	if f.calls != 1 {
		t.Fatalf("fetcher invoked %d times after cancel, want 1", f.calls)
	}
	if !strings.Contains(outcome.Reason, "context canceled") {
		t.Fatalf("reason = %q, want context cancellation", outcome.Reason)
	}
}

func TestRetrierNormalisesAttempts(t *testing.T) {
	f := &stubFetcher{fallback: stubCall{readings: fetcher.Readings{}}}
	r, _ := newTestRetrier(f, RetrierOptions{MaxAttempts: 0})

	outcome := r.FetchWithRetry(context.Background(), "CSELK-N.N0000")

	if f.calls != 1 || outcome.Attempts != 1 {
		t.Fatalf("zero max attempts must clamp to one: calls=%d attempts=%d", f.calls, outcome.Attempts)
	}
}

func TestDefaultJitterBounds(t *testing.T) {
	for i := 0; i < 500; i++ {
		factor := defaultJitter()
		if factor < 0.8 || factor >= 1.3 {
			t.Fatalf("jitter factor %f outside [0.8, 1.3)", factor)
		}
	}
}
