// Package handler exposes the import pipeline over HTTP.
package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/campaignops/mediaplanner/internal/domain/import/committer"
	"github.com/campaignops/mediaplanner/internal/domain/import/service"
	"github.com/campaignops/mediaplanner/internal/domain/import/session"
	"github.com/campaignops/mediaplanner/pkg/httpx"
)

var supportedExtensions = map[string]struct{}{
	".csv":  {},
	".xlsx": {},
	".xlsm": {},
}

// Handler serves the import endpoints
type Handler struct {
	service     *service.Service
	maxFileSize int64
	logger      *slog.Logger
}

// New creates an import handler. maxFileSize is in bytes.
func New(svc *service.Service, maxFileSize int64, logger *slog.Logger) *Handler {
	return &Handler{service: svc, maxFileSize: maxFileSize, logger: logger}
}

// RegisterRoutes mounts the import endpoints on the router
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/imports", func(r chi.Router) {
		r.Post("/upload", h.Upload)
		r.Get("/{sessionID}/validation", h.GetValidation)
		r.Post("/{sessionID}/commit", h.Commit)
		r.Get("/{sessionID}/progress", h.GetProgress)
		r.Delete("/{sessionID}", h.Cancel)
	})
}

// Upload accepts a multipart game-plan file and returns validation results
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	if !strings.HasPrefix(strings.ToLower(r.Header.Get("Content-Type")), "multipart/form-data") {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_content_type", "Content-Type must be multipart/form-data", nil)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxFileSize)
	if err := r.ParseMultipartForm(h.maxFileSize); err != nil {
		httpx.WriteError(w, http.StatusRequestEntityTooLarge, "file_too_large", "Uploaded file exceeds the size limit", nil)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "missing_file", "file is required", nil)
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if _, ok := supportedExtensions[ext]; !ok {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_file_type", "Only .csv, .xlsx and .xlsm uploads are supported", nil)
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_file", "Failed to read uploaded file", nil)
		return
	}

	input := service.UploadInput{
		FileName:       header.Filename,
		Data:           data,
		Country:        strings.TrimSpace(r.FormValue("country")),
		FinancialCycle: strings.TrimSpace(r.FormValue("financialCycle")),
		BusinessUnit:   strings.TrimSpace(r.FormValue("businessUnit")),
	}
	if input.Country == "" || input.FinancialCycle == "" {
		httpx.WriteError(w, http.StatusBadRequest, "validation_error", "country and financialCycle are required", nil)
		return
	}

	result, err := h.service.Upload(r.Context(), input)
	if err != nil {
		h.logger.Warn("upload failed", slog.String("file", header.Filename), slog.Any("error", err))
		httpx.WriteError(w, http.StatusUnprocessableEntity, "upload_failed", err.Error(), nil)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, result)
}

// GetValidation returns stored validation results for a session
func (h *Handler) GetValidation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")

	result, err := h.service.GetValidation(id)
	if err != nil {
		h.writeSessionError(w, id, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, result)
}

// Commit starts the background import and returns immediately
func (h *Handler) Commit(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")

	if err := h.service.StartImport(id); err != nil {
		var critical *committer.ErrCriticalIssues
		if errors.As(err, &critical) {
			httpx.WriteError(w, http.StatusConflict, "critical_issues", critical.Error(),
				map[string]any{"criticalCount": critical.Count})
			return
		}
		h.writeSessionError(w, id, err)
		return
	}

	httpx.WriteJSON(w, http.StatusAccepted, map[string]string{
		"sessionId": id,
		"status":    string(session.StatusImporting),
	})
}

// GetProgress reports commit progress for polling clients
func (h *Handler) GetProgress(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")

	result, err := h.service.GetProgress(id)
	if err != nil {
		h.writeSessionError(w, id, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, result)
}

// Cancel discards a pending session
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")

	if err := h.service.Cancel(r.Context(), id); err != nil {
		h.writeSessionError(w, id, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeSessionError(w http.ResponseWriter, id string, err error) {
	if errors.Is(err, session.ErrNotFound) {
		httpx.WriteError(w, http.StatusNotFound, "session_not_found", "Import session not found or expired", nil)
		return
	}
	h.logger.Error("session operation failed", slog.String("session", id), slog.Any("error", err))
	httpx.WriteError(w, http.StatusInternalServerError, "internal_error", "Internal server error", nil)
}
