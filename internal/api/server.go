package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/edvin/healops/internal/api/handler"
	mw "github.com/edvin/healops/internal/api/middleware"
	"github.com/edvin/healops/internal/core"
	"github.com/edvin/healops/internal/event"
)

type Server struct {
	router     chi.Router
	logger     zerolog.Logger
	pool       *pgxpool.Pool
	projector  *core.Projector
	engine     *core.Engine
	normalizer *event.Normalizer
}

func NewServer(logger zerolog.Logger, pool *pgxpool.Pool, projector *core.Projector, engine *core.Engine, normalizer *event.Normalizer) *Server {
	s := &Server{
		router:     chi.NewRouter(),
		logger:     logger,
		pool:       pool,
		projector:  projector,
		engine:     engine,
		normalizer: normalizer,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(mw.RequestLogger(s.logger))
	s.router.Use(middleware.Recoverer)
	s.router.Use(mw.Metrics)
}

func (s *Server) setupRoutes() {
	// Prometheus metrics endpoint
	s.router.Handle("/metrics", promhttp.Handler())

	// Health check endpoints
	s.router.Get("/healthz", s.handleHealthz)
	s.router.Get("/readyz", s.handleReadyz)

	s.router.Route("/api/v1", func(r chi.Router) {
		incidents := handler.NewIncident(s.projector)
		r.Get("/incidents", incidents.List)
		r.Get("/summary", incidents.Summary)

		events := handler.NewEvent(s.normalizer, s.engine)
		r.Post("/events", events.Ingest)
	})

	// Fault-injection endpoints exercise the external detection pipeline
	// end to end; they carry no business logic.
	inject := handler.NewInject(s.logger)
	s.router.Post("/inject/crash", inject.Crash)
	s.router.Post("/inject/burn-cpu", inject.BurnCPU)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if err := s.pool.Ping(r.Context()); err != nil {
		http.Error(w, "store unavailable", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}
