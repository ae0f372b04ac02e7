package report

import (
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"rsiwatch/internal/scan"
	"rsiwatch/internal/universe"
)

const (
	latestFileName = "latest_rsi.json"
	htmlFileName   = "index.html"
)

//go:embed templates/report.html.tmpl
var templateFS embed.FS

var reportTemplate = template.Must(template.ParseFS(templateFS, "templates/report.html.tmpl"))

// Options parameterise the emitter.
type Options struct {
	OutputDir      string
	Title          string
	ExchangePrefix string
}

// Emitter persists run documents and renders the static HTML report.
type Emitter struct {
	opts   Options
	logger zerolog.Logger
}

// NewEmitter constructs an Emitter.
func NewEmitter(opts Options, logger zerolog.Logger) *Emitter {
	if opts.OutputDir == "" {
		opts.OutputDir = "."
	}
	if opts.Title == "" {
		opts.Title = "Multi-Timeframe RSI Monitor"
	}
	return &Emitter{
		opts:   opts,
		logger: logger.With().Str("component", "report_emitter").Logger(),
	}
}

// WriteSnapshot persists the dated document and returns its path.
func (e *Emitter) WriteSnapshot(doc Document) (string, error) {
	name := fmt.Sprintf("rsi_data_%s.json", strings.ReplaceAll(doc.Metadata.Date, "-", "_"))
	path := filepath.Join(e.opts.OutputDir, name)
	if err := e.writeJSON(path, doc); err != nil {
		return "", err
	}
	e.logger.Info().
		Str("path", path).
		Int("symbols", doc.Metadata.TotalSymbols).
		Float64("success_rate", doc.Metadata.SuccessRate).
		Msg("snapshot written")
	return path, nil
}

// WriteLatest persists the reduced latest document next to the dated files.
func (e *Emitter) WriteLatest(doc Document) (string, error) {
	path := filepath.Join(e.opts.OutputDir, latestFileName)
	if err := e.writeJSON(path, doc.Latest()); err != nil {
		return "", err
	}
	return path, nil
}

func (e *Emitter) writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	payload, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}
	payload = append(payload, '\n')
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}

// stockEntry is the per-symbol shape embedded into the HTML page.
type stockEntry struct {
	Symbol  string              `json:"symbol"`
	Company string              `json:"company,omitempty"`
	RSI     map[string]*float64 `json:"rsi"`
}

type htmlData struct {
	Title        string
	Date         string
	GeneratedAt  string
	Timeframes   []string
	TotalSymbols int
	SuccessRate  float64
	Oversold     float64
	Overbought   float64
	StockJSON    template.JS
}

// WriteHTML renders index.html from the embedded template. Only successful
// symbols appear in the table; the exchange prefix is stripped for display.
func (e *Emitter) WriteHTML(doc Document) (string, error) {
	stocks := make([]stockEntry, 0, len(doc.Data))
	for symbol, entry := range doc.Data {
		if entry.Status != string(scan.StatusSuccess) {
			continue
		}
		stocks = append(stocks, stockEntry{
			Symbol:  universe.Display(symbol, e.opts.ExchangePrefix),
			Company: entry.Company,
			RSI:     entry.RSIData,
		})
	}
	sort.Slice(stocks, func(i, j int) bool { return stocks[i].Symbol < stocks[j].Symbol })

	payload, err := json.Marshal(stocks)
	if err != nil {
		return "", fmt.Errorf("marshal stock data: %w", err)
	}

	data := htmlData{
		Title:        e.opts.Title,
		Date:         doc.Metadata.Date,
		GeneratedAt:  doc.Metadata.Timestamp,
		Timeframes:   doc.Metadata.Timeframes,
		TotalSymbols: doc.Metadata.TotalSymbols,
		SuccessRate:  doc.Metadata.SuccessRate,
		Oversold:     OversoldThreshold,
		Overbought:   OverboughtThreshold,
		StockJSON:    template.JS(payload),
	}

	path := filepath.Join(e.opts.OutputDir, htmlFileName)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", htmlFileName, err)
	}
	defer file.Close()

	if err := reportTemplate.Execute(file, data); err != nil {
		return "", fmt.Errorf("render report: %w", err)
	}

	e.logger.Info().Str("path", path).Int("listed", len(stocks)).Msg("html report written")
	return path, nil
}
