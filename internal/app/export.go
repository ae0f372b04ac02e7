package app

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	chart "github.com/wcharczuk/go-chart/v2"

	"rsiwatch/internal/fetcher"
	"rsiwatch/internal/report"
	"rsiwatch/internal/storage"
)

// Export renders one symbol's RSI history as CSV and/or PNG.
func (a *App) Export(ctx context.Context, opts ExportOptions) error {
	if opts.CSVPath == "" && opts.PNGPath == "" {
		return errors.New("at least one of --csv or --png must be provided")
	}
	if opts.Symbol == "" {
		return errors.New("--symbol must be provided")
	}

	timeframe := opts.Timeframe
	if timeframe == "" {
		timeframe = string(fetcher.TimeframeDaily)
	}
	if _, err := fetcher.ParseTimeframes([]string{timeframe}); err != nil {
		return err
	}
	opts.Timeframe = timeframe

	opts.MaxPoints = a.Config.ResolveMaxPoints(opts.MaxPoints)

	to := time.Now().UTC()
	if opts.To != nil {
		to = opts.To.UTC()
	}

	from := to.Add(-time.Duration(opts.MaxPoints) * a.Config.Scheduler.Interval)
	if opts.From != nil {
		from = opts.From.UTC()
	}

	if !from.Before(to) {
		return errors.New("from must be before to")
	}

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot export")
	}
	if closeStore != nil {
		defer closeStore()
	}

	return a.exportHistory(ctx, store, opts, from, to)
}

func (a *App) exportHistory(ctx context.Context, store storage.HistoryStore, opts ExportOptions, from, to time.Time) error {
	readings, err := store.SymbolHistory(ctx, opts.Symbol, opts.Timeframe, from, to)
	if err != nil {
		return err
	}
	if len(readings) == 0 {
		a.Logger.Info().Str("symbol", opts.Symbol).Str("timeframe", opts.Timeframe).Msg("no readings found for export window")
		return nil
	}

	downsampled := downsampleReadings(readings, opts.MaxPoints)
	a.Logger.Info().Int("total", len(readings)).Int("exported", len(downsampled)).Msg("exporting readings")

	if opts.CSVPath != "" {
		if err := writeReadingsCSV(opts.CSVPath, downsampled); err != nil {
			return err
		}
	}

	if opts.PNGPath != "" {
		if err := writeReadingsPNG(opts.PNGPath, opts.Symbol, opts.Timeframe, downsampled); err != nil {
			return err
		}
	}

	return nil
}

func downsampleReadings(readings []storage.ReadingRecord, max int) []storage.ReadingRecord {
	if max <= 0 || len(readings) <= max {
		return readings
	}

	result := make([]storage.ReadingRecord, 0, max)
	step := float64(len(readings)-1) / float64(max-1)
	for i := 0; i < max; i++ {
		idx := int(math.Round(step * float64(i)))
		if idx >= len(readings) {
			idx = len(readings) - 1
		}
		result = append(result, readings[idx])
	}
	return result
}

func writeReadingsCSV(path string, readings []storage.ReadingRecord) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{"run_date", "symbol", "timeframe", "rsi", "fetched_at"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, reading := range readings {
		record := []string{
			reading.RunDate.Format("2006-01-02"),
			reading.Symbol,
			reading.Timeframe,
			reading.RSI.String(),
			reading.FetchedAt.UTC().Format(time.RFC3339),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	return writer.Error()
}

func writeReadingsPNG(path, symbol, timeframe string, readings []storage.ReadingRecord) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	x := make([]time.Time, len(readings))
	values := make([]float64, len(readings))
	for i, reading := range readings {
		x[i] = reading.FetchedAt
		values[i] = reading.RSI.InexactFloat64()
	}

	guideX := []time.Time{x[0], x[len(x)-1]}

	graph := chart.Chart{
		Title:  fmt.Sprintf("%s RSI (%s)", symbol, timeframe),
		Width:  1280,
		Height: 720,
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeValueFormatter,
		},
		YAxis: chart.YAxis{
			Name:  "RSI",
			Range: &chart.ContinuousRange{Min: 0, Max: 100},
		},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    "RSI",
				XValues: x,
				YValues: values,
			},
			chart.TimeSeries{
				Name:    "Oversold",
				XValues: guideX,
				YValues: []float64{report.OversoldThreshold, report.OversoldThreshold},
				Style: chart.Style{
					StrokeColor:     chart.ColorGreen,
					StrokeDashArray: []float64{5.0, 5.0},
				},
			},
			chart.TimeSeries{
				Name:    "Overbought",
				XValues: guideX,
				YValues: []float64{report.OverboughtThreshold, report.OverboughtThreshold},
				Style: chart.Style{
					StrokeColor:     chart.ColorRed,
					StrokeDashArray: []float64{5.0, 5.0},
				},
			},
		},
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return graph.Render(chart.PNG, file)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
