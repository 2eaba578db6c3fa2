// Package archive mirrors encoded artifacts to durable storage.
package archive

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"jxlpress/config"
)

// Backend receives a copy of an encoded artifact.
type Backend interface {
	// Put stores the content of r under name, relative to the backend root.
	Put(ctx context.Context, name string, r io.Reader) error
	// Name identifies the backend in logs.
	Name() string
	Close() error
}

// New builds the backend selected by cfg.Backend. An empty backend returns
// nil, nil so callers can treat archiving as disabled.
func New(ctx context.Context, cfg config.Archive) (Backend, error) {
	var (
		b   Backend
		err error
	)
	switch cfg.Backend {
	case "":
		return nil, nil
	case "dir":
		b, err = NewDir(cfg.Dir, cfg.Prefix)
	case "s3":
		b, err = NewS3(cfg)
	case "gcs":
		b, err = NewGCS(ctx, cfg)
	case "sftp":
		b, err = NewSFTP(cfg)
	default:
		return nil, fmt.Errorf("unknown archive backend: %s", cfg.Backend)
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

// objectKey joins prefix and name with forward slashes, the way object
// stores and SFTP servers expect.
func objectKey(prefix, name string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return name
	}
	return path.Join(prefix, name)
}
