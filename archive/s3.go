package archive

import (
	"context"
	"errors"
	"fmt"
	"io"

	"jxlpress/config"
	"jxlpress/encoder"
	"jxlpress/logger"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3 uploads artifacts to an S3 bucket with static credentials.
type S3 struct {
	bucket   string
	prefix   string
	uploader *manager.Uploader
}

// NewS3 builds an S3 backend from bucket, region and key pair.
func NewS3(cfg config.Archive) (*S3, error) {
	if cfg.Bucket == "" || cfg.Region == "" {
		return nil, errors.New("archive s3 backend needs bucket and region")
	}
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, errors.New("archive s3 backend needs access and secret key")
	}

	creds := credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")
	client := s3.New(s3.Options{
		Region:      cfg.Region,
		Credentials: creds,
	})
	return &S3{
		bucket:   cfg.Bucket,
		prefix:   cfg.Prefix,
		uploader: manager.NewUploader(client),
	}, nil
}

func (b *S3) Name() string { return "s3" }

func (b *S3) Close() error { return nil }

func (b *S3) Put(ctx context.Context, name string, r io.Reader) error {
	key := objectKey(b.prefix, name)
	_, err := b.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(b.bucket),
		Key:         aws.String(key),
		Body:        r,
		ContentType: aws.String(encoder.OutputContentType),
	})
	if err != nil {
		return fmt.Errorf("failed to upload object %s to bucket %s: %w", key, b.bucket, err)
	}

	logger.Infof("Successfully uploaded object '%s' to bucket '%s'", key, b.bucket)
	return nil
}
