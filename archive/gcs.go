package archive

import (
	"context"
	"errors"
	"fmt"
	"io"

	"jxlpress/config"
	"jxlpress/encoder"
	"jxlpress/logger"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// GCS uploads artifacts to a Google Cloud Storage bucket.
type GCS struct {
	bucket string
	prefix string
	client *storage.Client
}

// NewGCS builds a GCS backend. Without a credentials file the client falls
// back to application default credentials.
func NewGCS(ctx context.Context, cfg config.Archive) (*GCS, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("archive gcs backend needs a bucket")
	}

	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("storage.NewClient: %w", err)
	}
	return &GCS{bucket: cfg.Bucket, prefix: cfg.Prefix, client: client}, nil
}

func (b *GCS) Name() string { return "gcs" }

func (b *GCS) Close() error { return b.client.Close() }

func (b *GCS) Put(ctx context.Context, name string, r io.Reader) error {
	objectName := objectKey(b.prefix, name)
	wc := b.client.Bucket(b.bucket).Object(objectName).NewWriter(ctx)
	wc.ContentType = encoder.OutputContentType

	if _, err := io.Copy(wc, r); err != nil {
		wc.Close()
		return fmt.Errorf("io.Copy: %w", err)
	}
	// Close completes the upload.
	if err := wc.Close(); err != nil {
		return fmt.Errorf("Writer.Close: %w", err)
	}

	logger.Infof("Successfully uploaded object '%s' to bucket '%s'", objectName, b.bucket)
	return nil
}
