package config

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is the resolved runtime configuration of the server.
type Config struct {
	Addr     string
	LogLevel string
	LogFile  string

	DataDir    string
	ScratchDir string

	// CjxlPath is the JPEG XL encoder binary; CjxlLibraryPath is exported to it
	// as LD_LIBRARY_PATH when non-empty.
	CjxlPath        string
	CjxlLibraryPath string
	FfmpegPath      string

	MaxProcesses   int
	ProcessTimeout time.Duration
	MaxUploadBytes int64

	ArtifactStore  string // "memory" or "pebble"
	ArtifactTTL    time.Duration
	SweepInterval  time.Duration
	HistoryMaxAge  time.Duration
	HistoryEnabled bool

	Archive Archive
}

// Archive selects an optional backend that receives a copy of every
// successfully encoded artifact. Backend is one of "", "dir", "s3", "gcs", "sftp".
type Archive struct {
	Backend string
	Prefix  string

	Dir string

	Bucket          string
	Region          string
	AccessKey       string
	SecretKey       string
	CredentialsFile string

	Host       string
	Port       string
	User       string
	Password   string
	PrivateKey string
	RemoteDir  string
}

// Load reads an optional .env file and then the environment.
// A missing .env file is not an error.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv builds a Config from the process environment alone.
func FromEnv() (*Config, error) {
	cfg := &Config{
		Addr:            envString("JXLPRESS_ADDR", ":8080"),
		LogLevel:        envString("JXLPRESS_LOG_LEVEL", "info"),
		LogFile:         os.Getenv("JXLPRESS_LOG_FILE"),
		DataDir:         GetDataDir(),
		ScratchDir:      GetScratchDir(),
		CjxlPath:        envString("JXLPRESS_CJXL_PATH", "/usr/local/bin/cjxl"),
		CjxlLibraryPath: envString("JXLPRESS_CJXL_LIBRARY_PATH", "/usr/local/lib"),
		FfmpegPath:      envString("JXLPRESS_FFMPEG_PATH", "ffmpeg"),
		ArtifactStore:   strings.ToLower(envString("JXLPRESS_ARTIFACT_STORE", "memory")),
		Archive: Archive{
			Backend:         strings.ToLower(os.Getenv("JXLPRESS_ARCHIVE_BACKEND")),
			Prefix:          os.Getenv("JXLPRESS_ARCHIVE_PREFIX"),
			Dir:             os.Getenv("JXLPRESS_ARCHIVE_DIR"),
			Bucket:          os.Getenv("JXLPRESS_ARCHIVE_BUCKET"),
			Region:          os.Getenv("JXLPRESS_ARCHIVE_REGION"),
			AccessKey:       os.Getenv("JXLPRESS_ARCHIVE_ACCESS_KEY"),
			SecretKey:       os.Getenv("JXLPRESS_ARCHIVE_SECRET_KEY"),
			CredentialsFile: os.Getenv("JXLPRESS_ARCHIVE_CREDENTIALS_FILE"),
			Host:            os.Getenv("JXLPRESS_ARCHIVE_HOST"),
			Port:            envString("JXLPRESS_ARCHIVE_PORT", "22"),
			User:            os.Getenv("JXLPRESS_ARCHIVE_USER"),
			Password:        os.Getenv("JXLPRESS_ARCHIVE_PASSWORD"),
			PrivateKey:      os.Getenv("JXLPRESS_ARCHIVE_PRIVATE_KEY"),
			RemoteDir:       os.Getenv("JXLPRESS_ARCHIVE_REMOTE_DIR"),
		},
	}

	var err error
	if cfg.MaxProcesses, err = envInt("JXLPRESS_MAX_PROCESSES", runtime.NumCPU()); err != nil {
		return nil, err
	}
	if cfg.MaxProcesses < 1 {
		return nil, fmt.Errorf("JXLPRESS_MAX_PROCESSES must be at least 1, got %d", cfg.MaxProcesses)
	}
	maxUpload, err := envInt("JXLPRESS_MAX_UPLOAD_BYTES", 250*1024*1024)
	if err != nil {
		return nil, err
	}
	cfg.MaxUploadBytes = int64(maxUpload)
	if cfg.ProcessTimeout, err = envDuration("JXLPRESS_PROCESS_TIMEOUT", 5*time.Minute); err != nil {
		return nil, err
	}
	if cfg.ArtifactTTL, err = envDuration("JXLPRESS_ARTIFACT_TTL", time.Hour); err != nil {
		return nil, err
	}
	if cfg.SweepInterval, err = envDuration("JXLPRESS_SWEEP_INTERVAL", 5*time.Minute); err != nil {
		return nil, err
	}
	if cfg.HistoryMaxAge, err = envDuration("JXLPRESS_HISTORY_MAX_AGE", 30*24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.HistoryEnabled, err = envBool("JXLPRESS_HISTORY_ENABLED", true); err != nil {
		return nil, err
	}

	switch cfg.ArtifactStore {
	case "memory", "pebble":
	default:
		return nil, fmt.Errorf("unknown JXLPRESS_ARTIFACT_STORE %q (want memory or pebble)", cfg.ArtifactStore)
	}
	return cfg, nil
}

func envString(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid %s: negative duration %s", key, d)
	}
	return d, nil
}

func envBool(key string, def bool) (bool, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}
