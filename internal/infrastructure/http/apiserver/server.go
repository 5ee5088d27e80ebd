// Package apiserver provides the JSON API HTTP server
package apiserver

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/alchemorsel/intake/internal/infrastructure/config"
	"github.com/alchemorsel/intake/internal/infrastructure/http/handlers"
	"github.com/alchemorsel/intake/internal/infrastructure/http/middleware"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

// Handlers groups the route handlers mounted by the server
type Handlers struct {
	Imports      *handlers.ImportHandlers
	Nutrition    *handlers.NutritionHandlers
	ShoppingList *handlers.ShoppingListHandlers
	Health       *handlers.HealthHandler
	// Metrics serves /metrics when non-nil
	Metrics http.Handler
	// Observer receives per-request metrics when non-nil
	Observer middleware.RequestObserver
}

// Server represents the API HTTP server
type Server struct {
	config   *config.Config
	logger   *zap.Logger
	server   *http.Server
	router   *chi.Mux
	handlers Handlers
	openAPI  *OpenAPIHandler
}

// NewServer creates a new API server instance
func NewServer(cfg *config.Config, log *zap.Logger, h Handlers) *Server {
	s := &Server{
		config:   cfg,
		logger:   log.Named("apiserver"),
		handlers: h,
		openAPI:  NewOpenAPIHandler(log),
	}

	s.router = s.setupRoutes()
	s.server = &http.Server{
		Addr:         cfg.Addr(),
		Handler:      otelhttp.NewHandler(s.router, "intake-api"),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return s
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	if s.handlers.Observer != nil {
		r.Use(middleware.Instrument(s.handlers.Observer))
	}
	r.Use(middleware.Logger(s.logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.Security())
	r.Use(middleware.CORS(s.config.Server.AllowedOrigins))

	r.Get("/health", s.handlers.Health.HealthCheck)
	if s.handlers.Metrics != nil {
		r.Handle("/metrics", s.handlers.Metrics)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/openapi.yaml", s.openAPI.ServeOpenAPISpec)
		r.Get("/openapi.json", s.openAPI.ServeOpenAPIIndex)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Identity(middleware.IdentityConfig{
				JWTSecret:     s.config.Auth.JWTSecret,
				Issuer:        s.config.Auth.Issuer,
				SessionHeader: s.config.Auth.SessionHeader,
			}))

			// The stream outlives the request timeout and must not be compressed
			r.Get("/imports/stream", s.handlers.Imports.StreamImport)

			r.Group(func(r chi.Router) {
				if s.config.Server.RequestTimeout > 0 {
					r.Use(chimiddleware.Timeout(s.config.Server.RequestTimeout))
				}
				r.Use(middleware.BodyLimit(s.config.Server.MaxBodyBytes))
				r.Use(chimiddleware.Compress(5))

				r.Post("/imports", s.handlers.Imports.CreateImport)
				r.Get("/quota", s.handlers.Imports.GetQuota)
				r.Post("/nutrition", s.handlers.Nutrition.Estimate)
				r.Post("/shopping-list", s.handlers.ShoppingList.Stage)
				r.Get("/shopping-list/{handle}", s.handlers.ShoppingList.Render)
			})
		})
	})

	return r
}

// Router returns the route tree, used by tests
func (s *Server) Router() http.Handler {
	return s.router
}

// Start starts the HTTP server; it returns nil after a graceful shutdown
func (s *Server) Start() error {
	s.logger.Info("Starting API server", zap.String("address", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Serve serves on an existing listener
func (s *Server) Serve(l net.Listener) error {
	if err := s.server.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the API server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down API server")
	return s.server.Shutdown(ctx)
}
