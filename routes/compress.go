package routes

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"jxlpress/compress"
	"jxlpress/encoder"
	"jxlpress/logger"

	"github.com/dustin/go-humanize"
)

// multipart parts above this size spill to temporary files
const maxMemory = 32 << 20

// CompressResponse is the body of a successful compress call.
type CompressResponse struct {
	OriginalSize        int64  `json:"originalSize"`
	NewSize             int64  `json:"newSize"`
	ReductionPercentage string `json:"reductionPercentage"`
	DownloadURL         string `json:"downloadUrl"`
	NewFileName         string `json:"newFileName"`
}

// CompressHandler accepts a multipart upload and encodes it to JPEG XL.
func (h *Handlers) CompressHandler(w http.ResponseWriter, r *http.Request) {
	if h.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.MaxUploadBytes)
	}
	if err := r.ParseMultipartForm(maxMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			logger.Warnf("Rejected upload from %s: over %s", r.RemoteAddr, humanize.IBytes(uint64(tooLarge.Limit)))
			writeMessage(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("File exceeds the upload limit of %s.", humanize.IBytes(uint64(tooLarge.Limit))))
			return
		}
		logger.Debugf("Invalid compress form from %s: %v", r.RemoteAddr, err)
		writeMessage(w, http.StatusBadRequest, compress.MsgNoFile)
		return
	}
	defer r.MultipartForm.RemoveAll()

	header := formFile(r.MultipartForm, "File")
	if header == nil || header.Size == 0 {
		writeMessage(w, http.StatusBadRequest, compress.MsgNoFile)
		return
	}
	file, err := header.Open()
	if err != nil {
		logger.Errorf("Failed to open uploaded part %q: %v", header.Filename, err)
		writeMessage(w, http.StatusInternalServerError, compress.MsgUnexpected)
		return
	}
	defer file.Close()

	req := compress.Request{
		File:      file,
		FileName:  header.Filename,
		MediaType: header.Header.Get("Content-Type"),
		Size:      header.Size,
		Options:   parseOptions(r.MultipartForm),
	}
	logger.Infof("Compress request: file=%q type=%s size=%s lossless=%v quality=%d effort=%d",
		req.FileName, req.MediaType, humanize.Bytes(uint64(req.Size)), req.Lossless, req.Quality, req.Effort)

	out, err := h.Compressor.Compress(r.Context(), req)
	if err != nil {
		status := http.StatusInternalServerError
		var cerr *compress.Error
		if errors.As(err, &cerr) && cerr.Kind == compress.KindValidation {
			status = http.StatusBadRequest
		}
		writeMessage(w, status, out.ErrorMessage)
		return
	}

	writeJSON(w, http.StatusOK, CompressResponse{
		OriginalSize:        out.OriginalSize,
		NewSize:             out.NewSize,
		ReductionPercentage: reductionPercentage(out.OriginalSize, out.NewSize),
		DownloadURL:         "/api/download/" + out.Token,
		NewFileName:         out.FileName,
	})
}

// parseOptions reads the encoder settings from the form. Missing or
// unparseable values keep their defaults.
func parseOptions(form *multipart.Form) encoder.Options {
	opts := encoder.DefaultOptions()
	value := func(key string) string {
		if v := lookupFold(form.Value, key); len(v) > 0 {
			return strings.TrimSpace(v[0])
		}
		return ""
	}
	if n, err := strconv.Atoi(value("Quality")); err == nil {
		opts.Quality = n
	}
	if n, err := strconv.Atoi(value("Effort")); err == nil {
		opts.Effort = n
	}
	if b, err := strconv.ParseBool(value("Lossless")); err == nil {
		opts.Lossless = b
	}
	if b, err := strconv.ParseBool(value("Progressive")); err == nil {
		opts.Progressive = b
	}
	if b, err := strconv.ParseBool(value("JpegReconstruction")); err == nil {
		opts.JpegReconstruction = b
	}
	if n, err := strconv.Atoi(value("ColorTransform")); err == nil {
		if ct := encoder.ColorTransform(n); ct.Valid() {
			opts.ColorTransform = ct
		}
	}
	return opts
}

// formFile returns the first upload under key. Field names match
// case-insensitively, so "file" and "File" are the same field.
func formFile(form *multipart.Form, key string) *multipart.FileHeader {
	if fhs := lookupFold(form.File, key); len(fhs) > 0 {
		return fhs[0]
	}
	return nil
}

// lookupFold prefers an exact key and falls back to a case-insensitive scan.
func lookupFold[V any](m map[string][]V, key string) []V {
	if v, ok := m[key]; ok {
		return v
	}
	for k, v := range m {
		if strings.EqualFold(k, key) {
			return v
		}
	}
	return nil
}

func reductionPercentage(original, compressed int64) string {
	if original <= 0 {
		return "0.0"
	}
	return strconv.FormatFloat(float64(original-compressed)/float64(original)*100, 'f', 1, 64)
}
