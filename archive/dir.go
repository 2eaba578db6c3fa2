package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"jxlpress/logger"
)

// Dir writes artifacts below a local directory.
type Dir struct {
	root string
}

// NewDir returns a Dir rooted at root/prefix.
func NewDir(root, prefix string) (*Dir, error) {
	if root == "" {
		return nil, errors.New("archive dir backend needs JXLPRESS_ARCHIVE_DIR")
	}
	return &Dir{root: filepath.Join(root, filepath.FromSlash(prefix))}, nil
}

func (d *Dir) Name() string { return "dir" }

func (d *Dir) Close() error { return nil }

func (d *Dir) Put(ctx context.Context, name string, r io.Reader) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	fullPath := filepath.Join(d.root, filepath.Base(name))

	if err := os.MkdirAll(d.root, 0o755); err != nil {
		return fmt.Errorf("failed to create directories: %w", err)
	}

	// Write under a temporary name so a half-written copy is never visible.
	tmp, err := os.CreateTemp(d.root, ".partial-*")
	if err != nil {
		return fmt.Errorf("failed to create file in %s: %w", d.root, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write to file %s: %w", fullPath, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close file %s: %w", fullPath, err)
	}
	if err := os.Rename(tmp.Name(), fullPath); err != nil {
		return fmt.Errorf("failed to move file into %s: %w", fullPath, err)
	}

	logger.Infof("Successfully saved archive copy '%s' to '%s'", name, fullPath)
	return nil
}
