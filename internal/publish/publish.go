package publish

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"

	"rsiwatch/internal/config"
)

// Uploader copies report artifacts to an S3 bucket so the HTML report can be
// served as a static site.
type Uploader struct {
	client *s3.Client
	bucket string
	prefix string
	logger zerolog.Logger
}

// NewUploader builds an S3 client from publish settings. Static credentials
// take precedence; otherwise the default AWS provider chain applies.
func NewUploader(ctx context.Context, cfg config.PublishConfig, logger zerolog.Logger) (*Uploader, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("publish.bucket is required")
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws configuration: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.PathStyle
	})

	return &Uploader{
		client: client,
		bucket: cfg.Bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
		logger: logger.With().Str("component", "publisher").Logger(),
	}, nil
}

// UploadFiles uploads each local file under the configured prefix, keyed by
// base name. Empty paths are skipped so callers can pass optional artifacts.
func (u *Uploader) UploadFiles(ctx context.Context, paths []string) error {
	for _, local := range paths {
		if local == "" {
			continue
		}
		data, err := os.ReadFile(local)
		if err != nil {
			return fmt.Errorf("read %s: %w", local, err)
		}
		if err := u.upload(ctx, objectKey(u.prefix, local), data, contentTypeFor(local)); err != nil {
			return err
		}
	}
	return nil
}

func (u *Uploader) upload(ctx context.Context, key string, data []byte, contentType string) error {
	input := &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	}

	if _, err := u.client.PutObject(ctx, input); err != nil {
		return fmt.Errorf("upload s3://%s/%s: %w", u.bucket, key, err)
	}

	u.logger.Info().
		Str("bucket", u.bucket).
		Str("key", key).
		Int("size", len(data)).
		Msg("uploaded report artifact")
	return nil
}

func objectKey(prefix, local string) string {
	return path.Join(prefix, filepath.Base(local))
}

func contentTypeFor(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json":
		return "application/json"
	case ".html":
		return "text/html; charset=utf-8"
	case ".csv":
		return "text/csv"
	case ".png":
		return "image/png"
	default:
		return "application/octet-stream"
	}
}
