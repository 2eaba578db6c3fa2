package routes

import (
	"errors"
	"mime"
	"net/http"
	"os"
	"strconv"

	"jxlpress/artifacts"
	"jxlpress/encoder"
	"jxlpress/logger"
)

const (
	msgNotFound = "File not found or link has expired."
	msgRemoved  = "File has been removed from the server."
)

// DownloadHandler serves an artifact once. The record and the file are both
// gone by the time the body is written.
func (h *Handlers) DownloadHandler(w http.ResponseWriter, r *http.Request) {
	token := r.PathValue("id")
	claims := h.claims()
	if !claims.Claim(token) {
		http.Error(w, msgNotFound, http.StatusNotFound)
		return
	}
	defer claims.Release(token)

	a, found, err := h.Artifacts.Get(token)
	if err != nil {
		logger.Errorf("Failed to look up artifact %s: %v", token, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if !found {
		http.Error(w, msgNotFound, http.StatusNotFound)
		return
	}

	data, err := os.ReadFile(a.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Warnf("Artifact %s points at missing file %s", token, a.Path)
			if err := h.Artifacts.Remove(token); err != nil {
				logger.Errorf("Failed to remove stale artifact %s: %v", token, err)
			}
			http.Error(w, msgRemoved, http.StatusNotFound)
			return
		}
		logger.Errorf("Failed to read artifact %s: %v", a.Path, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	if err := h.Artifacts.Remove(token); err != nil {
		logger.Errorf("Failed to remove artifact %s: %v", token, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if err := os.Remove(a.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warnf("Failed to delete downloaded artifact %s: %v", a.Path, err)
	}

	w.Header().Set("Content-Type", encoder.OutputContentType)
	w.Header().Set("Content-Disposition", attachment(a.FileName))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		logger.Debugf("Client went away during download %s: %v", token, err)
		return
	}
	logger.Infof("Served artifact %s (%s, %d bytes)", token, a.FileName, len(data))
}

func (h *Handlers) claims() *artifacts.Claims {
	h.once.Do(func() {
		if h.Claims == nil {
			h.Claims = artifacts.NewClaims()
		}
	})
	return h.Claims
}

// attachment formats a Content-Disposition value, switching to the RFC 2231
// filename* form for names that are not plain ASCII.
func attachment(fileName string) string {
	if v := mime.FormatMediaType("attachment", map[string]string{"filename": fileName}); v != "" {
		return v
	}
	return "attachment"
}
