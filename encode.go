package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"jxlpress/artifacts"
	"jxlpress/compress"
	"jxlpress/config"
	"jxlpress/encoder"
	"jxlpress/process"
)

func newEncodeCommand(configValue func() *config.Config) *cobra.Command {
	opts := encoder.DefaultOptions()
	var (
		colorTransform int
		out            string
	)

	cmd := &cobra.Command{
		Use:   "encode <file>",
		Short: "Compress one image to JPEG XL without starting the server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ct := encoder.ColorTransform(colorTransform)
			if !ct.Valid() {
				return fmt.Errorf("invalid --color-transform %d (want 0=XYB, 1=YCbCr, 2=None)", colorTransform)
			}
			opts.ColorTransform = ct
			return encodeFile(cmd, configValue(), args[0], out, opts)
		},
	}

	flags := cmd.Flags()
	flags.IntVarP(&opts.Quality, "quality", "q", opts.Quality, "Lossy quality 0-100")
	flags.IntVarP(&opts.Effort, "effort", "e", opts.Effort, "Encoder effort 1-9")
	flags.BoolVar(&opts.Lossless, "lossless", opts.Lossless, "Encode losslessly")
	flags.BoolVar(&opts.Progressive, "progressive", opts.Progressive, "Progressive decoding")
	flags.BoolVar(&opts.JpegReconstruction, "jpeg-reconstruction", opts.JpegReconstruction, "Keep JPEG reconstruction data (lossless JPEG input only)")
	flags.IntVar(&colorTransform, "color-transform", int(encoder.ColorXYB), "Color transform: 0=XYB, 1=YCbCr, 2=None")
	flags.StringVarP(&out, "out", "o", "", "Output path (default: input name with .jxl)")
	return cmd
}

func encodeFile(cmd *cobra.Command, cfg *config.Config, input, out string, opts encoder.Options) error {
	f, err := os.Open(input)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("file does not exist: %s", input)
		}
		return fmt.Errorf("open input: %w", err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("inspect input: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", input)
	}

	store := artifacts.NewMemoryStore()
	runner := process.NewRunner(process.WithMaxConcurrent(1), process.WithTimeout(cfg.ProcessTimeout))
	svc := compress.NewService(serviceConfig(cfg), runner, store)

	outcome, err := svc.Compress(cmd.Context(), compress.Request{
		File:      f,
		FileName:  filepath.Base(input),
		MediaType: mediaTypeForExt(filepath.Ext(input)),
		Size:      info.Size(),
		Options:   opts,
	})
	if err != nil {
		return errors.New(outcome.ErrorMessage)
	}

	a, found, err := store.Get(outcome.Token)
	if err != nil || !found {
		return fmt.Errorf("encoded artifact missing")
	}
	defer os.Remove(a.Path)
	if out == "" {
		out = filepath.Join(filepath.Dir(input), outcome.FileName)
	}
	if err := copyFile(a.Path, out); err != nil {
		return err
	}

	reduction := 0.0
	if outcome.OriginalSize > 0 {
		reduction = float64(outcome.OriginalSize-outcome.NewSize) / float64(outcome.OriginalSize) * 100
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %s -> %s (%.1f%% saved)\n",
		out, humanize.Bytes(uint64(outcome.OriginalSize)), humanize.Bytes(uint64(outcome.NewSize)), reduction)
	return nil
}

// mediaTypeForExt covers the natively supported inputs; everything else is
// left blank so the content is sniffed.
func mediaTypeForExt(ext string) string {
	switch strings.ToLower(ext) {
	case ".jpg", ".jpeg":
		return encoder.MediaJPEG
	case ".png":
		return encoder.MediaPNG
	case ".gif":
		return encoder.MediaGIF
	case ".exr":
		return encoder.MediaEXR
	}
	return ""
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open artifact: %w", err)
	}
	defer in.Close()
	w, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	if _, err := io.Copy(w, in); err != nil {
		w.Close()
		return fmt.Errorf("write output: %w", err)
	}
	return w.Close()
}
