package config

import (
	"os"
	"path/filepath"
)

// getDataDir determines the data directory path from environment or default.
// Priority: JXLPRESS_DATA_DIR environment variable > "./data" default
func getDataDir() string {
	if dir := os.Getenv("JXLPRESS_DATA_DIR"); dir != "" {
		return dir
	}
	return "./data"
}

// GetDataDir returns the current data directory path.
// The environment is read on every call so tests can point it elsewhere.
func GetDataDir() string {
	return getDataDir()
}

// GetHistoryDBPath returns the full path to the encode history database.
// Path: {DATA_DIR}/history.db
func GetHistoryDBPath() string {
	return filepath.Join(GetDataDir(), "history.db")
}

// GetArtifactsDBPath returns the full path to the pending artifact database,
// used only when the pebble artifact store is selected.
// Path: {DATA_DIR}/artifacts.db
func GetArtifactsDBPath() string {
	return filepath.Join(GetDataDir(), "artifacts.db")
}

// GetScratchDir returns the directory for uploads, intermediates and outputs.
// Configurable via JXLPRESS_SCRATCH_DIR; defaults to the OS temp directory.
func GetScratchDir() string {
	if dir := os.Getenv("JXLPRESS_SCRATCH_DIR"); dir != "" {
		return dir
	}
	return os.TempDir()
}
