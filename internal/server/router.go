package server

import (
	"context"
	"encoding/json"
	"html/template"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"carbonequip/internal/config"
	"carbonequip/internal/dataset"
)

// Catalog is the cached dataset the handlers read from.
type Catalog interface {
	Ensure(ctx context.Context) dataset.State
	Reload(ctx context.Context) dataset.State
	Snapshot() dataset.State
}

type Server struct {
	cfg     config.Config
	catalog Catalog
	metrics *Metrics
	logger  *zerolog.Logger
	pages   *template.Template
}

func Logger(cfg config.Config) *zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339
	logger := log.Logger.Level(cfg.LogLevel).With().Timestamp().Logger()
	return &logger
}

func New(cfg config.Config, catalog Catalog, metrics *Metrics, logger *zerolog.Logger) *Server {
	if metrics == nil {
		metrics = NewMetrics()
	}
	if logger == nil {
		logger = Logger(cfg)
	}
	return &Server{cfg: cfg, catalog: catalog, metrics: metrics, logger: logger, pages: pageTemplates}
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(zerologMiddleware(s.logger))

	r.Get("/", s.handlePage)
	r.Get("/export.csv", s.handleExportCSV)
	r.Get("/export.xlsx", s.handleExportXLSX)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/rows", s.handleRows)
		r.Post("/reload", s.handleReload)
	})

	r.Handle("/metrics", s.metrics.Handler())
	return r
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
