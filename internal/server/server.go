// Package server wires the HTTP router, middleware and handlers together and
// runs the HTTP server.
//
// DEPENDENCY INJECTION FLOW:
// main.go loads config and builds a logger, then calls New, which creates:
//
//	sqlstore.DB → ContactService → ContactHandler
//
// This is the composition root: every dependency is wired here, in one
// place, rather than scattered across packages.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/address-book/internal/handler"
	"github.com/sakif/address-book/internal/middleware"
	"github.com/sakif/address-book/internal/repository/sqlstore"
	"github.com/sakif/address-book/internal/service"
	"github.com/sakif/address-book/internal/validation"
)

const shutdownGrace = 30 * time.Second

// Config holds server configuration.
type Config struct {
	Port     int
	Database sqlstore.Config
}

// Server represents the HTTP server and all its dependencies.
//
// The Server owns the database pool and closes it on shutdown.
type Server struct {
	router *chi.Mux
	config Config
	logger *slog.Logger
	db     *sqlstore.DB
}

// New opens the database (running pending migrations) and wires the
// routes.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Server, error) {
	db, err := sqlstore.New(ctx, cfg.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}
	s.setupRoutes()

	return s, nil
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTES:
//
//	GET    /v1/contacts       → list
//	GET    /v1/contacts/{id}  → show
//	POST   /v1/contacts       → create (create schema)
//	PATCH  /v1/contacts/{id}  → update (update schema)
//	DELETE /v1/contacts/{id}  → delete
//	GET    /healthz           → readiness (database ping)
//
// MIDDLEWARE ORDER MATTERS:
// 1. RequestID: tags the request so every log line can be correlated
// 2. RealIP: client IP from X-Forwarded-For / X-Real-IP
// 3. Recoverer: a panic becomes a 500 instead of a dropped connection
// 4. Logger: one line per completed request
//
// Schema validation is per-route (chi's With), so only the two write
// routes pay for reading the body.
func (s *Server) setupRoutes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	healthHandler := handler.NewHealthHandler(s.db, s.logger)
	s.router.Get("/healthz", healthHandler.HandleReady)

	contactService := service.NewContactService(s.db, s.logger)
	contactHandler := handler.NewContactHandler(contactService, s.logger)

	s.router.Route("/v1/contacts", func(r chi.Router) {
		r.Get("/", contactHandler.HandleList)
		r.With(middleware.Validate(validation.CreateContact)).Post("/", contactHandler.HandleCreate)
		r.Get("/{id}", contactHandler.HandleGet)
		r.With(middleware.Validate(validation.UpdateContact)).Patch("/{id}", contactHandler.HandleUpdate)
		r.Delete("/{id}", contactHandler.HandleDelete)
	})
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the database pool. Start calls it on the way out; tests
// that never Start call it directly.
func (s *Server) Close() error {
	return s.db.Close()
}

// Start runs the HTTP server until SIGINT/SIGTERM, then shuts down
// gracefully:
//  1. stop accepting new connections
//  2. give in-flight requests up to 30s to finish
//  3. close the database pool
func (s *Server) Start() error {
	defer s.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d/v1/contacts", s.config.Port)),
			slog.String("driver", s.config.Database.Driver),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
