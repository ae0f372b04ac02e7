package cli

import (
	"github.com/spf13/cobra"

	"rsiwatch/internal/app"
)

var publishDir string

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Upload report artifacts to the configured S3 bucket",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Publish(cmd.Context(), app.PublishOptions{Dir: publishDir})
	},
}

func init() {
	publishCmd.Flags().StringVar(&publishDir, "dir", "", "Directory containing report artifacts (defaults to config)")
}
