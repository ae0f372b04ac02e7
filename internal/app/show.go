package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"rsiwatch/internal/storage"
)

// Show prints recent runs.
func (a *App) Show(ctx context.Context, opts ShowOptions) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot show runs")
	}
	if closeStore != nil {
		defer closeStore()
	}

	return a.renderRuns(ctx, store, os.Stdout, opts)
}

// renderRuns writes the run table. The trailing totals line counts every
// stored run, not just the rows shown.
func (a *App) renderRuns(ctx context.Context, store storage.RunStore, w io.Writer, opts ShowOptions) error {
	runs, err := store.ListRecentRuns(ctx, opts.Limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(w, "no runs found")
		return nil
	}

	total, err := store.CountRuns(ctx)
	if err != nil {
		return err
	}

	writer := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Date\tRun ID\tSymbols\tOK\tFailed\tRate%\tSeverity\tFailed Symbols")

	for _, run := range runs {
		fmt.Fprintf(
			writer,
			"%s\t%s\t%d\t%d\t%d\t%s\t%s\t%s\n",
			run.RunDate.Format("2006-01-02"),
			shortID(run.RunID),
			run.TotalSymbols,
			run.Successful,
			run.Failed,
			run.SuccessRate.StringFixed(1),
			run.Severity,
			summarizeSymbols(run.FailedSymbols, 3),
		)
	}

	writer.Flush()
	fmt.Fprintf(w, "showing %d of %d runs\n", len(runs), total)
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func summarizeSymbols(symbols []string, max int) string {
	if len(symbols) == 0 {
		return ""
	}
	if len(symbols) <= max {
		return strings.Join(symbols, ",")
	}
	return fmt.Sprintf("%s +%d more", strings.Join(symbols[:max], ","), len(symbols)-max)
}
