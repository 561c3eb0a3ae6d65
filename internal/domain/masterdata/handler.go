package masterdata

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/campaignops/mediaplanner/pkg/httpx"
)

// Handler serves reference-data lists for admin dropdowns
type Handler struct {
	repo   Repository
	logger *slog.Logger
}

// NewHandler creates a master-data handler
func NewHandler(repo Repository, logger *slog.Logger) *Handler {
	return &Handler{repo: repo, logger: logger}
}

// RegisterRoutes mounts the master-data endpoints on the router
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/masterdata", func(r chi.Router) {
		r.Get("/countries", h.listEntities("countries", h.repo.ListCountries))
		r.Get("/categories", h.listEntities("categories", h.repo.ListCategories))
		r.Get("/ranges", h.listEntities("ranges", h.repo.ListRanges))
		r.Get("/media-types", h.listEntities("media types", h.repo.ListMediaTypes))
		r.Get("/media-subtypes", h.ListMediaSubTypes)
		r.Get("/business-units", h.listEntities("business units", h.repo.ListBusinessUnits))
		r.Get("/pm-types", h.listEntities("pm types", h.repo.ListPMTypes))
	})
}

func (h *Handler) listEntities(name string, list func(ctx context.Context) ([]Entity, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entities, err := list(r.Context())
		if err != nil {
			h.logger.Error("failed to list "+name, slog.Any("error", err))
			httpx.WriteError(w, http.StatusInternalServerError, "internal_error", "Internal server error", nil)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, map[string]any{"items": entities, "count": len(entities)})
	}
}

// ListMediaSubTypes returns media subtypes with their parent type ids
func (h *Handler) ListMediaSubTypes(w http.ResponseWriter, r *http.Request) {
	subtypes, err := h.repo.ListMediaSubTypes(r.Context())
	if err != nil {
		h.logger.Error("failed to list media subtypes", slog.Any("error", err))
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error", "Internal server error", nil)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"items": subtypes, "count": len(subtypes)})
}
