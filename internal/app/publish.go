package app

import (
	"context"
	"fmt"
	"path/filepath"

	"rsiwatch/internal/publish"
)

// Publish uploads the report artifacts in the output directory to S3.
func (a *App) Publish(ctx context.Context, opts PublishOptions) error {
	dir := opts.Dir
	if dir == "" {
		dir = a.Config.Report.OutputDir
	}

	paths := make([]string, 0, 8)
	for _, pattern := range []string{"*.json", "*.html"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return fmt.Errorf("scan artifacts: %w", err)
		}
		paths = append(paths, matches...)
	}
	if len(paths) == 0 {
		return fmt.Errorf("no report artifacts found in %s", dir)
	}

	uploader, err := publish.NewUploader(ctx, a.Config.Publish, a.Logger)
	if err != nil {
		return err
	}

	a.Logger.Info().Int("files", len(paths)).Str("bucket", a.Config.Publish.Bucket).Msg("publishing report artifacts")
	return uploader.UploadFiles(ctx, paths)
}
