package report

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"rsiwatch/internal/fetcher"
	"rsiwatch/internal/scan"
	"rsiwatch/internal/universe"
)

func testSnapshot() scan.Snapshot {
	started := time.Date(2026, 8, 21, 10, 30, 0, 0, time.UTC)
	info := scan.RunInfo{
		ID:         "0d140be6-13a5-4c82-8a65-3c2b45c9a1fe",
		StartedAt:  started,
		FinishedAt: started.Add(3 * time.Minute),
		Config: scan.Config{
			BatchSize:       5,
			PerItemDelay:    2 * time.Second,
			InterBatchDelay: 30 * time.Second,
			MaxAttempts:     3,
		},
	}
	outcomes := []scan.Outcome{
		{
			Symbol:    "CSELK-ABAN.N0000",
			Readings:  fetcher.Readings{fetcher.TimeframeDaily: 25.5, fetcher.TimeframeMonthly: 71.2},
			Status:    scan.StatusSuccess,
			Attempts:  1,
			FetchedAt: started.Add(10 * time.Second),
		},
		{
			Symbol:    "CSELK-JKH.N0000",
			Readings:  fetcher.Readings{fetcher.TimeframeDaily: 48.0, fetcher.TimeframeWeekly: 52.3},
			Status:    scan.StatusSuccess,
			Attempts:  2,
			FetchedAt: started.Add(30 * time.Second),
		},
		{
			Symbol:    "CSELK-LOLC.N0000",
			Status:    scan.StatusFailed,
			Attempts:  3,
			Reason:    "server error: status 502",
			FetchedAt: started.Add(50 * time.Second),
		},
	}
	timeframes := []fetcher.Timeframe{fetcher.TimeframeDaily, fetcher.TimeframeWeekly, fetcher.TimeframeMonthly}
	return scan.Aggregate(info, outcomes, timeframes)
}

func testUniverse() universe.Universe {
	return universe.Universe{
		{Ticker: "CSELK-ABAN.N0000", Company: "Abans Electricals PLC"},
		{Ticker: "CSELK-JKH.N0000", Company: "John Keells Holdings PLC"},
		{Ticker: "CSELK-LOLC.N0000", Company: "LOLC Holdings PLC"},
	}
}

func TestBuildDocument(t *testing.T) {
	doc := BuildDocument(testSnapshot(), testUniverse())

	meta := doc.Metadata
	if meta.RunID != "0d140be6-13a5-4c82-8a65-3c2b45c9a1fe" {
		t.Fatalf("run_id = %s", meta.RunID)
	}
	if meta.Date != "2026-08-21" {
		t.Fatalf("date = %s", meta.Date)
	}
	if meta.TotalSymbols != 3 || meta.SuccessfulFetches != 2 || meta.FailedFetches != 1 {
		t.Fatalf("counts = %d/%d/%d", meta.TotalSymbols, meta.SuccessfulFetches, meta.FailedFetches)
	}
	if meta.SuccessRate != 66.7 {
		t.Fatalf("success_rate = %v", meta.SuccessRate)
	}
	if meta.Config.BatchSize != 5 || meta.Config.RateLimitDelay != 2.0 || meta.Config.RetryCount != 3 {
		t.Fatalf("config = %+v", meta.Config)
	}

	weekly := meta.TimeframeStats["1W"]
	if weekly.Successful != 1 || weekly.Total != 2 || weekly.SuccessRate != 50.0 {
		t.Fatalf("weekly stat = %+v", weekly)
	}

	entry, ok := doc.Data["CSELK-ABAN.N0000"]
	if !ok {
		t.Fatal("缺少 ABAN 条目")
	}
	if entry.Company != "Abans Electricals PLC" {
		t.Fatalf("company = %s", entry.Company)
	}
	if len(entry.RSIData) != 3 {
		t.Fatalf("rsi_data keys = %d, want 3", len(entry.RSIData))
	}
	if entry.RSIData["1D"] == nil || *entry.RSIData["1D"] != 25.5 {
		t.Fatalf("1D reading = %v", entry.RSIData["1D"])
	}
	if entry.RSIData["1W"] != nil {
		t.Fatalf("1W should be null, got %v", *entry.RSIData["1W"])
	}
	if entry.Error != "" {
		t.Fatalf("success entry should have no error, got %q", entry.Error)
	}

	failed := doc.Data["CSELK-LOLC.N0000"]
	if failed.Status != "failed" || failed.Attempts != 3 {
		t.Fatalf("failed entry = %+v", failed)
	}
	if failed.Error != "server error: status 502" {
		t.Fatalf("failed entry error = %q", failed.Error)
	}

	if len(doc.FailedSymbols) != 1 || doc.FailedSymbols[0] != "CSELK-LOLC.N0000" {
		t.Fatalf("failed_symbols = %v", doc.FailedSymbols)
	}
}

func TestDocumentJSONKeepsNulls(t *testing.T) {
	doc := BuildDocument(testSnapshot(), testUniverse())

	payload, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	body := string(payload)

	if !strings.Contains(body, `"1W":null`) {
		t.Fatal("missing readings must serialize as null")
	}
	if !strings.Contains(body, `"failed_symbols"`) {
		t.Fatal("failed_symbols missing from document")
	}

	var decoded Document
	if err := json.Unmarshal(payload, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.Data["CSELK-ABAN.N0000"].RSIData["1W"] != nil {
		t.Fatal("null reading should decode to nil pointer")
	}
}

func TestLatestKeepsOnlySuccesses(t *testing.T) {
	doc := BuildDocument(testSnapshot(), testUniverse())
	latest := doc.Latest()

	if len(latest.Data) != 2 {
		t.Fatalf("latest entries = %d, want 2", len(latest.Data))
	}
	if _, ok := latest.Data["CSELK-LOLC.N0000"]; ok {
		t.Fatal("failed symbol must not appear in latest document")
	}
	if latest.Metadata.FailedFetches != 1 {
		t.Fatal("latest keeps the full run metadata")
	}

	payload, err := json.Marshal(latest)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(payload), "failed_symbols") {
		t.Fatal("latest document must omit failed_symbols")
	}
}
