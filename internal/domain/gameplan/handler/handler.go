// Package handler exposes game-plan CRUD and exports over HTTP.
package handler

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/campaignops/mediaplanner/internal/domain/gameplan/repository"
	"github.com/campaignops/mediaplanner/internal/domain/gameplan/service"
	"github.com/campaignops/mediaplanner/pkg/httpx"
)

// Handler serves the game-plan endpoints
type Handler struct {
	service *service.Service
	logger  *slog.Logger
}

// New creates a game-plan handler
func New(svc *service.Service, logger *slog.Logger) *Handler {
	return &Handler{service: svc, logger: logger}
}

// RegisterRoutes mounts the game-plan endpoints on the router
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/gameplans", func(r chi.Router) {
		r.Get("/", h.List)
		r.Get("/export/csv", h.ExportCSV)
		r.Get("/export/xlsx", h.ExportXLSX)
		r.Get("/{id}", h.Get)
		r.Put("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
	})
	r.Get("/campaigns", h.ListCampaigns)
}

// List returns game plans matching query filters
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "validation_error", err.Error(), nil)
		return
	}

	plans, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("failed to list game plans", slog.Any("error", err))
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error", "Internal server error", nil)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{"gamePlans": plans, "count": len(plans)})
}

// Get returns one game plan
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "validation_error", "invalid game plan id", nil)
		return
	}

	plan, err := h.service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			httpx.WriteError(w, http.StatusNotFound, "not_found", "Game plan not found", nil)
			return
		}
		h.logger.Error("failed to get game plan", slog.String("id", id.String()), slog.Any("error", err))
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error", "Internal server error", nil)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, plan)
}

// Update edits one game plan
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "validation_error", "invalid game plan id", nil)
		return
	}

	var plan repository.GamePlan
	if err := json.NewDecoder(r.Body).Decode(&plan); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_body", "Request body must be valid JSON", nil)
		return
	}
	plan.ID = id

	if err := h.service.Update(r.Context(), &plan); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			httpx.WriteError(w, http.StatusNotFound, "not_found", "Game plan not found", nil)
			return
		}
		h.logger.Error("failed to update game plan", slog.String("id", id.String()), slog.Any("error", err))
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error", "Internal server error", nil)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, plan)
}

// Delete removes one game plan
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "validation_error", "invalid game plan id", nil)
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			httpx.WriteError(w, http.StatusNotFound, "not_found", "Game plan not found", nil)
			return
		}
		h.logger.Error("failed to delete game plan", slog.String("id", id.String()), slog.Any("error", err))
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error", "Internal server error", nil)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListCampaigns returns campaigns for listing pages
func (h *Handler) ListCampaigns(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	campaigns, err := h.service.ListCampaigns(r.Context(), limit, offset)
	if err != nil {
		h.logger.Error("failed to list campaigns", slog.Any("error", err))
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error", "Internal server error", nil)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{"campaigns": campaigns, "count": len(campaigns)})
}

// ExportCSV streams the filtered game plans as a CSV download
func (h *Handler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "validation_error", err.Error(), nil)
		return
	}

	data, err := h.service.ExportCSV(r.Context(), filter)
	if err != nil {
		h.logger.Error("failed to export CSV", slog.Any("error", err))
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error", "Failed to generate export", nil)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"gameplans-%s.csv\"", time.Now().Format("2006-01-02")))
	_, _ = w.Write(data)
}

// ExportXLSX streams the filtered game plans as an Excel download
func (h *Handler) ExportXLSX(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "validation_error", err.Error(), nil)
		return
	}

	data, err := h.service.ExportXLSX(r.Context(), filter)
	if err != nil {
		h.logger.Error("failed to export XLSX", slog.Any("error", err))
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error", "Failed to generate export", nil)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"gameplans-%s.xlsx\"", time.Now().Format("2006-01-02")))
	_, _ = w.Write(data)
}

func parseFilter(r *http.Request) (repository.GamePlanFilter, error) {
	filter := repository.GamePlanFilter{
		FinancialCycle: r.URL.Query().Get("financialCycle"),
	}

	if raw := r.URL.Query().Get("countryId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return filter, errors.New("invalid countryId")
		}
		filter.CountryID = &id
	}
	if raw := r.URL.Query().Get("year"); raw != "" {
		year, err := strconv.Atoi(raw)
		if err != nil {
			return filter, errors.New("invalid year")
		}
		filter.Year = year
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			return filter, errors.New("invalid limit")
		}
		filter.Limit = limit
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil {
			return filter, errors.New("invalid offset")
		}
		filter.Offset = offset
	}

	return filter, nil
}
