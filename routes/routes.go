package routes

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"jxlpress/artifacts"
	"jxlpress/compress"
	"jxlpress/encoder"
	"jxlpress/history"
	"jxlpress/logger"
)

// Compressor runs one compress request.
type Compressor interface {
	Compress(ctx context.Context, req compress.Request) (compress.Outcome, error)
}

// HistoryReader is the read side of the history store.
type HistoryReader interface {
	Get(id string) (*history.Record, error)
	List(status string) ([]history.Record, error)
	CheckHealth() error
}

// Handlers serves the HTTP API. History and Metrics are optional. Claims is
// shared with the artifact sweeper; a private set is created when nil.
type Handlers struct {
	Compressor     Compressor
	Artifacts      artifacts.Store
	Claims         *artifacts.Claims
	History        HistoryReader
	Metrics        http.Handler
	Tools          []encoder.Tool
	MaxUploadBytes int64

	once sync.Once
}

// Register mounts every endpoint on mux.
func (h *Handlers) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/compress", h.CompressHandler)
	mux.HandleFunc("GET /api/download/{id}", h.DownloadHandler)
	mux.HandleFunc("GET /api/history", h.HistoryListHandler)
	mux.HandleFunc("GET /api/history/{id}", h.HistoryQueryHandler)
	mux.HandleFunc("GET /health", h.HealthHandler)
	mux.HandleFunc("GET /version", VersionHandler)
	if h.Metrics != nil {
		mux.Handle("GET /metrics", h.Metrics)
	}
}

type messageResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Errorf("Failed to encode response: %v", err)
	}
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, messageResponse{Message: msg})
}
