package universe

import (
	"os"
	"path/filepath"
	"testing"

	"rsiwatch/internal/config"
)

func TestLoadInlineSymbols(t *testing.T) {
	u, err := Load(config.UniverseConfig{Symbols: []string{" cselk-aban.n0000 ", "CSELK-JKH.N0000", "CSELK-ABAN.N0000"}})
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if len(u) != 2 {
		t.Fatalf("expected duplicates removed, got %#v", u)
	}
	if u[0].Ticker != "CSELK-ABAN.N0000" || u[1].Ticker != "CSELK-JKH.N0000" {
		t.Fatalf("order not preserved: %#v", u)
	}
}

func TestLoadFileWithCompanies(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "universe.csv")
	content := "# ticker,company\nCSELK-ABAN.N0000,Abans Electricals PLC\nCSELK-JKH.N0000,John Keells Holdings PLC\n\nCSELK-LOLC.N0000\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	u, err := Load(config.UniverseConfig{File: path})
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if len(u) != 3 {
		t.Fatalf("expected 3 symbols, got %#v", u)
	}
	if got := u.CompanyFor("CSELK-ABAN.N0000"); got != "Abans Electricals PLC" {
		t.Fatalf("company lookup = %q", got)
	}
	if got := u.CompanyFor("CSELK-LOLC.N0000"); got != "" {
		t.Fatalf("expected empty company, got %q", got)
	}
}

func TestLoadFileFillsCompanyForInline(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "universe.csv")
	if err := os.WriteFile(path, []byte("CSELK-ABAN.N0000,Abans Electricals PLC\n"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	u, err := Load(config.UniverseConfig{
		Symbols: []string{"CSELK-ABAN.N0000"},
		File:    path,
	})
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if len(u) != 1 {
		t.Fatalf("expected merged entry, got %#v", u)
	}
	if u[0].Company != "Abans Electricals PLC" {
		t.Fatalf("company not merged: %#v", u[0])
	}
}

func TestDedupeKeepsFirstCompany(t *testing.T) {
	u := dedupe([]Symbol{
		{Ticker: "CSELK-ABAN.N0000", Company: "Abans Electricals PLC"},
		{Ticker: "CSELK-ABAN.N0000", Company: "Renamed PLC"},
	})

	if len(u) != 1 {
		t.Fatalf("expected single entry, got %#v", u)
	}
	if u[0].Company != "Abans Electricals PLC" {
		t.Fatalf("first company must win: %#v", u[0])
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(config.UniverseConfig{File: "does-not-exist.csv"}); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestSlice(t *testing.T) {
	u := Universe{{Ticker: "A"}, {Ticker: "B"}, {Ticker: "C"}, {Ticker: "D"}}

	if got := u.Slice(0, 0); len(got) != 4 {
		t.Fatalf("no-op slice changed length: %d", len(got))
	}
	if got := u.Slice(1, 2); len(got) != 2 || got[0].Ticker != "B" || got[1].Ticker != "C" {
		t.Fatalf("offset+cap slice wrong: %#v", got)
	}
	if got := u.Slice(10, 0); len(got) != 0 {
		t.Fatalf("offset beyond end must be empty, got %#v", got)
	}
	if got := u.Slice(-1, 1); len(got) != 1 || got[0].Ticker != "A" {
		t.Fatalf("negative offset should clamp to start: %#v", got)
	}
}

func TestDisplay(t *testing.T) {
	if got := Display("CSELK-ABAN.N0000", "CSELK-"); got != "ABAN.N0000" {
		t.Fatalf("Display = %q", got)
	}
	if got := Display("ABAN.N0000", "CSELK-"); got != "ABAN.N0000" {
		t.Fatalf("Display without prefix = %q", got)
	}
}
