// Package app assembles the HTTP router.
package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	gameplanhandler "github.com/campaignops/mediaplanner/internal/domain/gameplan/handler"
	importhandler "github.com/campaignops/mediaplanner/internal/domain/import/handler"
	"github.com/campaignops/mediaplanner/internal/domain/masterdata"
	"github.com/campaignops/mediaplanner/internal/middleware"
	"github.com/campaignops/mediaplanner/pkg/httpx"
)

// RouterConfig carries the handlers and cross-cutting settings the router needs
type RouterConfig struct {
	ImportHandler     *importhandler.Handler
	GamePlanHandler   *gameplanhandler.Handler
	MasterDataHandler *masterdata.Handler
	AllowedOrigins    []string
	RateLimitRPS      float64
	RateLimitBurst    int
	Logger            *slog.Logger
}

// NewRouter builds the chi router with middleware and all route groups
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(cfg.Logger))
	r.Use(chimiddleware.Recoverer)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "Authorization"},
		AllowCredentials: true,
	})
	r.Use(corsHandler.Handler)

	if cfg.RateLimitRPS > 0 {
		limiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
		r.Use(limiter.Middleware)
	}

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		cfg.ImportHandler.RegisterRoutes(r)
		cfg.GamePlanHandler.RegisterRoutes(r)
		cfg.MasterDataHandler.RegisterRoutes(r)
	})

	return r
}
