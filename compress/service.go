// Package compress turns an uploaded image into a downloadable JPEG XL
// artifact: optional pre-conversion with ffmpeg, encoding with cjxl, a single
// fallback retry when JPEG reconstruction fails, and cleanup of every
// transient file.
package compress

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"jxlpress/archive"
	"jxlpress/artifacts"
	"jxlpress/encoder"
	"jxlpress/history"
	"jxlpress/logger"
	"jxlpress/metrics"
	"jxlpress/process"

	"github.com/dustin/go-humanize"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// Request is one upload to compress.
type Request struct {
	File      io.Reader
	FileName  string
	MediaType string // declared by the client; sniffed when empty or generic
	Size      int64  // declared length, reported as the original size
	encoder.Options
}

// Outcome describes a finished compress request.
type Outcome struct {
	Success      bool
	OriginalSize int64
	NewSize      int64
	ErrorMessage string
	Token        string // download token, success only
	FileName     string // suggested download name
	JobID        string // history key
	UsedFallback bool
}

// Runner launches an external program and waits for it.
type Runner interface {
	Run(ctx context.Context, executable string, args []string, extraEnv map[string]string) (process.Result, error)
}

// Recorder persists a summary of every finished request.
type Recorder interface {
	Put(r history.Record) error
}

// Config locates the external tools and the scratch directory.
type Config struct {
	ScratchDir      string
	CjxlPath        string
	CjxlLibraryPath string
	FfmpegPath      string
}

// Service runs compress requests. It is safe for concurrent use; the only
// state shared between requests is the artifact store.
type Service struct {
	cfg      Config
	runner   Runner
	store    artifacts.Store
	recorder Recorder
	archive  archive.Backend
	metrics  metrics.Metrics
	newID    func() string
	now      func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithRecorder stores a history record for every request.
func WithRecorder(r Recorder) Option { return func(s *Service) { s.recorder = r } }

// WithArchive mirrors every successful artifact to b.
func WithArchive(b archive.Backend) Option { return func(s *Service) { s.archive = b } }

// WithMetrics reports encode results to m.
func WithMetrics(m metrics.Metrics) Option { return func(s *Service) { s.metrics = m } }

// NewService wires a Service.
func NewService(cfg Config, runner Runner, store artifacts.Store, opts ...Option) *Service {
	if cfg.ScratchDir == "" {
		cfg.ScratchDir = os.TempDir()
	}
	if abs, err := filepath.Abs(cfg.ScratchDir); err == nil {
		cfg.ScratchDir = abs
	}
	s := &Service{
		cfg:     cfg,
		runner:  runner,
		store:   store,
		metrics: metrics.Noop{},
		newID:   uuid.NewString,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// job is the per-request state; nothing in it is shared.
type job struct {
	id        string
	req       Request
	mediaType string

	inputPath        string
	intermediatePath string
	outputPath       string

	converted    bool
	usedFallback bool
	lastArgs     []string
}

// Compress runs req to completion. On failure the returned Outcome carries
// the client-facing message and the error is a *Error.
func (s *Service) Compress(ctx context.Context, req Request) (Outcome, error) {
	j := &job{id: s.newID(), req: req}
	out := Outcome{JobID: j.id, OriginalSize: req.Size, FileName: OutputFileName(req.FileName)}

	err := s.run(ctx, j, &out)
	if err != nil {
		var cerr *Error
		if !errors.As(err, &cerr) {
			cerr = unexpectedError(err)
		}
		if cerr.Kind == KindUnexpected {
			logger.Errorf("Unexpected error compressing %q (job %s): %v", req.FileName, j.id, cerr.Err)
		}
		out = Outcome{JobID: j.id, OriginalSize: req.Size, FileName: out.FileName, ErrorMessage: cerr.Message, UsedFallback: j.usedFallback}
		s.metrics.EncodeCompleted(resultLabel(cerr.Kind), req.Size, 0)
		s.record(j, out)
		return out, cerr
	}

	s.metrics.EncodeCompleted(metrics.ResultSuccess, out.OriginalSize, out.NewSize)
	s.record(j, out)
	logger.Infof("Compressed %q: %s -> %s (job %s, fallback=%v)",
		req.FileName, humanize.Bytes(uint64(out.OriginalSize)), humanize.Bytes(uint64(out.NewSize)), j.id, out.UsedFallback)
	return out, nil
}

func (s *Service) run(ctx context.Context, j *job, out *Outcome) error {
	if j.req.File == nil || j.req.Size <= 0 {
		return validationError()
	}

	base := s.newID()
	j.inputPath = filepath.Join(s.cfg.ScratchDir, base+"-input"+filepath.Ext(filepath.Base(j.req.FileName)))
	j.outputPath = filepath.Join(s.cfg.ScratchDir, base+encoder.OutputExtension)

	registered := false
	defer func() {
		removeIfExists(j.inputPath)
		if j.intermediatePath != "" {
			removeIfExists(j.intermediatePath)
		}
		if !registered {
			removeIfExists(j.outputPath)
		}
	}()

	// Received
	if err := writeScratch(j.inputPath, j.req.File); err != nil {
		return err
	}
	j.mediaType = encoder.NormalizeMediaType(j.req.MediaType)
	if j.mediaType == "" || j.mediaType == "application/octet-stream" {
		mt, err := mimetype.DetectFile(j.inputPath)
		if err != nil {
			return fmt.Errorf("detect media type: %w", err)
		}
		j.mediaType = encoder.NormalizeMediaType(mt.String())
		logger.Debugf("Sniffed media type %s for %q", j.mediaType, j.req.FileName)
	}

	// PreConvert
	encodeInput := j.inputPath
	if !encoder.IsNative(j.mediaType) {
		logger.Infof("Unsupported format '%s'. Converting to PNG with ffmpeg.", j.mediaType)
		j.intermediatePath = filepath.Join(s.cfg.ScratchDir, base+"-intermediate"+encoder.IntermediateExtension)
		res, err := s.runner.Run(ctx, s.cfg.FfmpegPath, encoder.ConverterArgs(j.inputPath, j.intermediatePath), nil)
		if err != nil {
			return fmt.Errorf("ffmpeg: %w", err)
		}
		if res.ExitCode != 0 {
			logger.Errorf("ffmpeg conversion failed. Exit Code: %d. Error: %s", res.ExitCode, res.Stderr)
			return conversionError(res.Stderr)
		}
		j.converted = true
		encodeInput = j.intermediatePath
		logger.Infof("Successfully converted to PNG: %s", encodeInput)
	}

	// Encoding
	res, err := s.encode(ctx, j, encodeInput, false)
	if err != nil {
		return err
	}
	if res.ExitCode != 0 && encoder.IsReconstructionFailure(res.Stderr) {
		// FallbackEncoding, at most once
		logger.Warnf("Optimal cjxl failed. Retrying with fallback arguments.")
		j.usedFallback = true
		s.metrics.FallbackAttempted()
		if res, err = s.encode(ctx, j, encodeInput, true); err != nil {
			return err
		}
	}
	if res.ExitCode != 0 {
		logger.Errorf("cjxl final attempt failed. Exit Code: %d. Error: %s", res.ExitCode, res.Stderr)
		return encodeError(res.Stderr)
	}

	// Done
	info, err := os.Stat(j.outputPath)
	if err != nil {
		return fmt.Errorf("stat encoder output: %w", err)
	}
	token := s.newID()
	if err := s.store.Add(token, artifacts.Artifact{Path: j.outputPath, FileName: out.FileName, CreatedAt: s.now()}); err != nil {
		return fmt.Errorf("register artifact: %w", err)
	}
	registered = true

	out.Success = true
	out.NewSize = info.Size()
	out.Token = token
	out.UsedFallback = j.usedFallback

	s.mirror(ctx, j, out.FileName)
	return nil
}

func (s *Service) encode(ctx context.Context, j *job, input string, fallback bool) (process.Result, error) {
	args := encoder.BuildArgs(j.req.Options, j.mediaType, input, j.outputPath, fallback)
	j.lastArgs = args
	if fallback {
		logger.Infof("Retrying cjxl with fallback arguments: %s", strings.Join(args, " "))
	} else {
		logger.Infof("Attempting cjxl with arguments: %s", strings.Join(args, " "))
	}

	var env map[string]string
	if s.cfg.CjxlLibraryPath != "" {
		env = map[string]string{"LD_LIBRARY_PATH": s.cfg.CjxlLibraryPath}
	}
	res, err := s.runner.Run(ctx, s.cfg.CjxlPath, args, env)
	if err != nil {
		return res, fmt.Errorf("cjxl: %w", err)
	}
	return res, nil
}

// mirror copies a registered artifact to the archive backend. Failures are
// logged and never fail the request.
func (s *Service) mirror(ctx context.Context, j *job, fileName string) {
	if s.archive == nil {
		return
	}
	f, err := os.Open(j.outputPath)
	if err != nil {
		logger.Errorf("Failed to open %s for archiving: %v", j.outputPath, err)
		return
	}
	defer f.Close()

	name := j.id + "_" + fileName
	if err := s.archive.Put(ctx, name, f); err != nil {
		logger.Errorf("Failed to archive %s to %s: %v", name, s.archive.Name(), err)
	}
}

func (s *Service) record(j *job, out Outcome) {
	if s.recorder == nil {
		return
	}
	rec := history.Record{
		ID:           j.id,
		Timestamp:    s.now(),
		Status:       history.StatusFailed,
		FileName:     j.req.FileName,
		MediaType:    j.mediaType,
		Converted:    j.converted,
		UsedFallback: out.UsedFallback,
		OriginalSize: out.OriginalSize,
		NewSize:      out.NewSize,
		Error:        out.ErrorMessage,
		Arguments:    j.lastArgs,
	}
	if out.Success {
		rec.Status = history.StatusSuccess
	}
	if err := s.recorder.Put(rec); err != nil {
		logger.Errorf("Failed to store history record for job %s: %v", j.id, err)
	}
}

// OutputFileName replaces the extension of the uploaded name with .jxl.
func OutputFileName(uploaded string) string {
	base := filepath.Base(strings.ReplaceAll(uploaded, "\\", "/"))
	if base == "." || base == "/" || base == "" {
		base = "image"
	}
	return strings.TrimSuffix(base, filepath.Ext(base)) + encoder.OutputExtension
}

func writeScratch(path string, r io.Reader) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create scratch file: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return fmt.Errorf("write scratch file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close scratch file: %w", err)
	}
	return nil
}

func removeIfExists(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warnf("Failed to remove transient file %s: %v", path, err)
	}
}

func resultLabel(k Kind) string {
	switch k {
	case KindValidation:
		return metrics.ResultValidationError
	case KindConversion:
		return metrics.ResultConversionError
	case KindEncode:
		return metrics.ResultEncodeError
	default:
		return metrics.ResultUnexpectedError
	}
}
