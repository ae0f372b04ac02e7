package cli

import (
	"time"

	"github.com/spf13/cobra"

	"rsiwatch/internal/app"
)

var (
	fetchBatchSize    int
	fetchWorkers      int
	fetchRateLimit    time.Duration
	fetchRetries      int
	fetchMaxSymbols   int
	fetchOffset       int
	fetchConservative bool
	fetchOutDir       string
	fetchNoHTML       bool
	fetchNoStore      bool
	fetchNoAlert      bool
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Run one fetch pass over the configured symbol universe",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.FetchOptions{
			BatchSize:    fetchBatchSize,
			Workers:      fetchWorkers,
			RateLimit:    fetchRateLimit,
			Retries:      fetchRetries,
			MaxSymbols:   fetchMaxSymbols,
			Offset:       fetchOffset,
			Conservative: fetchConservative,
			OutDir:       fetchOutDir,
			NoHTML:       fetchNoHTML,
			NoStore:      fetchNoStore,
			NoAlert:      fetchNoAlert,
		}

		return getApp().Fetch(cmd.Context(), opts)
	},
}

func init() {
	fetchCmd.Flags().IntVar(&fetchBatchSize, "batch-size", 0, "Symbols per batch (defaults to config)")
	fetchCmd.Flags().IntVar(&fetchWorkers, "workers", 0, "Reserved for future concurrent fetching; runs are sequential")
	fetchCmd.Flags().DurationVar(&fetchRateLimit, "rate-limit", 0, "Delay between symbols within a batch (defaults to config)")
	fetchCmd.Flags().IntVar(&fetchRetries, "retries", 0, "Fetch attempts per symbol (defaults to config)")
	fetchCmd.Flags().IntVar(&fetchMaxSymbols, "max-symbols", 0, "Cap the number of symbols fetched (0 = all)")
	fetchCmd.Flags().IntVar(&fetchOffset, "offset", 0, "Skip this many symbols from the start of the universe")
	fetchCmd.Flags().BoolVar(&fetchConservative, "conservative", false, "Slow pacing profile: small batches, longer delays")
	fetchCmd.Flags().StringVar(&fetchOutDir, "out-dir", "", "Report output directory (defaults to config)")
	fetchCmd.Flags().BoolVar(&fetchNoHTML, "no-html", false, "Skip writing the HTML report")
	fetchCmd.Flags().BoolVar(&fetchNoStore, "no-store", false, "Skip database persistence")
	fetchCmd.Flags().BoolVar(&fetchNoAlert, "no-alert", false, "Skip the alert digest")
}
