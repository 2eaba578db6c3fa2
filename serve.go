package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"jxlpress/archive"
	"jxlpress/artifacts"
	"jxlpress/compress"
	"jxlpress/config"
	"jxlpress/encoder"
	"jxlpress/history"
	"jxlpress/logger"
	"jxlpress/metrics"
	"jxlpress/process"
	"jxlpress/routes"
)

func newServeCommand(configValue func() *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, configValue())
		},
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	logger.Info("Starting jxlpress server initialization")

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	if err := os.MkdirAll(cfg.ScratchDir, 0o755); err != nil {
		return fmt.Errorf("create scratch dir: %w", err)
	}

	store, err := openArtifactStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	var hist *history.Store
	if cfg.HistoryEnabled {
		logger.Debug("Initializing history database")
		if hist, err = history.Open(config.GetHistoryDBPath()); err != nil {
			return err
		}
		defer hist.Close()
		logger.Info("History database initialized successfully")
	}

	backend, err := archive.New(ctx, cfg.Archive)
	if err != nil {
		return fmt.Errorf("failed to initialize archive backend: %w", err)
	}
	if backend != nil {
		defer backend.Close()
		logger.Infof("Archiving artifacts to %s", backend.Name())
	}

	prom := metrics.NewProm("jxlpress")
	runner := process.NewRunner(
		process.WithMaxConcurrent(cfg.MaxProcesses),
		process.WithTimeout(cfg.ProcessTimeout),
		process.WithObserver(prom),
	)
	logger.Infof("Subprocess limit %d, timeout %v", runner.Limit(), cfg.ProcessTimeout)

	tools := []encoder.Tool{{Name: "cjxl", Path: cfg.CjxlPath}, {Name: "ffmpeg", Path: cfg.FfmpegPath}}
	encoder.Lookup(tools...)

	opts := []compress.Option{compress.WithMetrics(prom)}
	if hist != nil {
		opts = append(opts, compress.WithRecorder(hist))
	}
	if backend != nil {
		opts = append(opts, compress.WithArchive(backend))
	}
	svc := compress.NewService(serviceConfig(cfg), runner, store, opts...)

	claims := artifacts.NewClaims()
	go artifacts.RunSweeper(ctx, store, claims, cfg.ArtifactTTL, cfg.SweepInterval, prom)
	if hist != nil {
		logger.Info("Starting cleanup routine (runs every 24 hours)")
		go cleanupRoutine(ctx, hist, cfg.HistoryMaxAge)
	}

	h := &routes.Handlers{
		Compressor:     svc,
		Artifacts:      store,
		Claims:         claims,
		Metrics:        prom.Handler(),
		Tools:          tools,
		MaxUploadBytes: cfg.MaxUploadBytes,
	}
	if hist != nil {
		h.History = hist
	}
	mux := http.NewServeMux()
	h.Register(mux)
	logger.Info("HTTP routes registered successfully")

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Infof("jxlpress server listening on %s", cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func openArtifactStore(cfg *config.Config) (artifacts.Store, error) {
	if cfg.ArtifactStore == "pebble" {
		logger.Debug("Initializing artifacts database")
		s, err := artifacts.OpenPebble(config.GetArtifactsDBPath())
		if err != nil {
			return nil, err
		}
		logger.Info("Artifacts database initialized successfully")
		return s, nil
	}
	return artifacts.NewMemoryStore(), nil
}

func serviceConfig(cfg *config.Config) compress.Config {
	return compress.Config{
		ScratchDir:      cfg.ScratchDir,
		CjxlPath:        cfg.CjxlPath,
		CjxlLibraryPath: cfg.CjxlLibraryPath,
		FfmpegPath:      cfg.FfmpegPath,
	}
}

// cleanupRoutine periodically removes old history records
func cleanupRoutine(ctx context.Context, hist *history.Store, maxAge time.Duration) {
	if maxAge <= 0 {
		logger.Info("History cleanup disabled")
		return
	}
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Cleanup routine stopped due to context cancellation")
			return
		case <-ticker.C:
			logger.Debugf("Cleaning up history records older than %v", maxAge)
			n, err := hist.CleanupOldRecords(maxAge)
			if err != nil {
				logger.Errorf("Failed to cleanup old history records: %v", err)
				continue
			}
			logger.Infof("Scheduled cleanup removed %d history records", n)
		}
	}
}
