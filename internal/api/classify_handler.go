package api

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/phrazzld/vision-gateway/internal/api/shared"
	"github.com/phrazzld/vision-gateway/internal/platform/logger"
	"github.com/phrazzld/vision-gateway/internal/service"
)

const (
	// FileField is the multipart form field carrying the upload
	FileField = "inputFile"

	// DefaultMaxUploadBytes caps request bodies when no limit is configured
	DefaultMaxUploadBytes int64 = 32 << 20
)

// ClassifyHandler serves the synchronous classification endpoint.
type ClassifyHandler struct {
	service        service.ClassificationService
	maxUploadBytes int64
	logger         *slog.Logger
}

// NewClassifyHandler creates a ClassifyHandler. A non-positive maxUploadBytes
// falls back to DefaultMaxUploadBytes.
func NewClassifyHandler(
	svc service.ClassificationService,
	maxUploadBytes int64,
	logger *slog.Logger,
) *ClassifyHandler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = DefaultMaxUploadBytes
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ClassifyHandler{
		service:        svc,
		maxUploadBytes: maxUploadBytes,
		logger:         logger.With("component", "classify_handler"),
	}
}

// Classify handles POST / with a multipart upload in the inputFile field and
// responds with "{jobID}: {result}" once the worker pipeline has answered.
func (h *ClassifyHandler) Classify(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	if r.ContentLength > h.maxUploadBytes {
		shared.RespondWithErrorAndLog(w, r, http.StatusRequestEntityTooLarge, "File too large", nil)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			shared.RespondWithErrorAndLog(w, r, http.StatusRequestEntityTooLarge, "File too large", err)
			return
		}
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "File not found", err)
		return
	}
	defer func() {
		if err := r.MultipartForm.RemoveAll(); err != nil {
			log.Debug("failed to remove multipart temp files", "error", err)
		}
	}()

	file, header, err := r.FormFile(FileField)
	if err != nil {
		// A part submitted without a filename is parsed as a plain value
		if _, ok := r.MultipartForm.Value[FileField]; ok {
			shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "No selected file", err)
			return
		}
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "File not found", err)
		return
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(file)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "File not found", err)
		return
	}

	result, err := h.service.Submit(r.Context(), header.Filename, data)
	if err != nil {
		status := MapErrorToStatusCode(err)
		if status == StatusClientClosedRequest {
			log.Info("client went away before result arrived",
				"filename", header.Filename,
				"error", err)
			return
		}
		shared.RespondWithErrorAndLog(w, r, status, GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithText(w, r, http.StatusOK, result)
}

// Health reports liveness.
func (h *ClassifyHandler) Health(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithText(w, r, http.StatusOK, "OK")
}
