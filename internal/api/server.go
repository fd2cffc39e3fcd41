// Package api provides the local control API for the sync daemon. UIs and
// scripts drive the library and sync engine through it.
package api

import (
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/Duke0404/readersync/internal/probe"
	"github.com/Duke0404/readersync/internal/ratelimit"
	"github.com/Duke0404/readersync/internal/remote"
	"github.com/Duke0404/readersync/internal/service"
	"github.com/Duke0404/readersync/internal/sse"
	"github.com/Duke0404/readersync/internal/store"
)

// Services groups the business logic the API server fronts.
type Services struct {
	Library   *service.LibraryService
	Sync      *service.SyncService
	Scheduler *service.SyncScheduler
	Remote    *remote.Client
	Poller    *probe.Poller
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	store      *store.Store
	services   *Services
	sseHandler *sse.Handler
	router     *chi.Mux
	api        huma.API
	logger     *slog.Logger
}

// NewServer creates the control API server with all routes configured.
// allowedOrigin is the reader UI origin permitted by CORS.
func NewServer(st *store.Store, services *Services, sseHandler *sse.Handler, allowedOrigin string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Compress(5))
	router.Use(authRateLimit(ratelimit.New(1, 5)))
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{allowedOrigin},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	humaConfig := huma.DefaultConfig("ReaderSync API", "1.0.0")
	humaAPI := humachi.New(router, humaConfig)
	RegisterErrorHandler()

	s := &Server{
		store:      st,
		services:   services,
		sseHandler: sseHandler,
		router:     router,
		api:        humaAPI,
		logger:     logger,
	}

	s.registerHealthRoutes()
	s.registerBookRoutes()
	s.registerSyncRoutes()
	s.registerAuthRoutes()
	s.registerProxyRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
