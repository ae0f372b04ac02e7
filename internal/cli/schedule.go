package cli

import (
	"github.com/spf13/cobra"

	"rsiwatch/internal/app"
)

var scheduleRunNow bool

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run fetch passes on the configured interval",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Schedule(cmd.Context(), app.ScheduleOptions{RunImmediately: scheduleRunNow})
	},
}

func init() {
	scheduleCmd.Flags().BoolVar(&scheduleRunNow, "run-now", false, "Execute one fetch pass immediately on startup")
}
