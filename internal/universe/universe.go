package universe

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"

	"rsiwatch/internal/config"
)

// Symbol pairs a raw exchange ticker with optional display metadata.
type Symbol struct {
	Ticker  string
	Company string
}

// Universe is the ordered list of symbols a run monitors.
type Universe []Symbol

// Load assembles the universe from the inline config list and/or a CSV file.
// When both name the same ticker the first occurrence wins; later duplicates
// only fill in a missing company name.
func Load(cfg config.UniverseConfig) (Universe, error) {
	var symbols []Symbol
	for _, raw := range cfg.Symbols {
		symbols = append(symbols, Symbol{Ticker: normalizeTicker(raw)})
	}

	if cfg.File != "" {
		fromFile, err := loadFile(cfg.File)
		if err != nil {
			return nil, err
		}
		symbols = append(symbols, fromFile...)
	}

	return dedupe(symbols), nil
}

// loadFile reads a ticker[,company] CSV. Blank lines and lines starting with
// '#' are skipped.
func loadFile(path string) ([]Symbol, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open universe file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	reader.Comment = '#'

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse universe file: %w", err)
	}

	symbols := make([]Symbol, 0, len(records))
	for _, record := range records {
		if len(record) == 0 {
			continue
		}
		ticker := normalizeTicker(record[0])
		if ticker == "" {
			continue
		}
		sym := Symbol{Ticker: ticker}
		if len(record) > 1 {
			sym.Company = strings.TrimSpace(record[1])
		}
		symbols = append(symbols, sym)
	}
	return symbols, nil
}

func normalizeTicker(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

// dedupe keeps the first occurrence order but lets a later entry fill in a
// missing company name.
func dedupe(symbols []Symbol) Universe {
	seen := make(map[string]int, len(symbols))
	out := make(Universe, 0, len(symbols))
	for _, sym := range symbols {
		if sym.Ticker == "" {
			continue
		}
		if idx, ok := seen[sym.Ticker]; ok {
			if out[idx].Company == "" && sym.Company != "" {
				out[idx].Company = sym.Company
			}
			continue
		}
		seen[sym.Ticker] = len(out)
		out = append(out, sym)
	}
	return out
}

// Tickers returns the raw tickers in universe order.
func (u Universe) Tickers() []string {
	tickers := make([]string, len(u))
	for i, sym := range u {
		tickers[i] = sym.Ticker
	}
	return tickers
}

// CompanyFor resolves the display name for a ticker, empty when unknown.
func (u Universe) CompanyFor(ticker string) string {
	for _, sym := range u {
		if sym.Ticker == ticker {
			return sym.Company
		}
	}
	return ""
}

// Slice applies a resume offset and an optional cap, preserving order.
func (u Universe) Slice(offset, max int) Universe {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(u) {
		return Universe{}
	}
	sliced := u[offset:]
	if max > 0 && max < len(sliced) {
		sliced = sliced[:max]
	}
	return sliced
}

// Display strips the exchange prefix for human-facing output, e.g.
// CSELK-ABAN.N0000 -> ABAN.N0000.
func Display(ticker, prefix string) string {
	if prefix == "" {
		return ticker
	}
	return strings.TrimPrefix(ticker, prefix)
}
