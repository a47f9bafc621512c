// Package server sets up the HTTP server, router, and all route definitions.
//
// This is the "composition root": storage is selected, services are built on
// repository interfaces, handlers receive services, and everything is wired
// to routes in one place. Handlers never touch the store directly; services
// never touch HTTP.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/tictactoe/internal/config"
	"github.com/sakif/tictactoe/internal/handler"
	"github.com/sakif/tictactoe/internal/middleware"
	"github.com/sakif/tictactoe/internal/realtime"
	"github.com/sakif/tictactoe/internal/repository"
	"github.com/sakif/tictactoe/internal/repository/memory"
	"github.com/sakif/tictactoe/internal/repository/sqlite"
	"github.com/sakif/tictactoe/internal/service"
)

// Server represents the HTTP server and all its dependencies.
type Server struct {
	router *chi.Mux
	cfg    *config.Config
	logger *slog.Logger
	store  repository.Store
	hub    *realtime.Hub
}

// New assembles the full dependency chain: store → services → handlers →
// routes.
//
// Storage selection degrades gracefully: if the SQLite database can't be
// opened, the server runs on the transient in-memory store instead of
// refusing to start. Games and players then live only as long as the
// process, which the log states loudly.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	var store repository.Store
	db, err := sqlite.New(cfg.Database.Path)
	if err != nil {
		logger.Warn("sqlite unavailable, falling back to in-memory storage — all data is lost on restart",
			slog.String("path", cfg.Database.Path),
			slog.String("error", err.Error()),
		)
		store = memory.New()
	} else {
		logger.Info("sqlite storage ready", slog.String("path", cfg.Database.Path))
		store = db
	}

	s := &Server{
		router: chi.NewRouter(),
		cfg:    cfg,
		logger: logger,
		store:  store,
		hub:    realtime.NewHub(logger),
	}

	s.setupRoutes()

	return s, nil
}

// setupRoutes configures all middleware and route handlers.
func (s *Server) setupRoutes() {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(middleware.CORS(s.cfg.Server.Origins))

	playerService := service.NewPlayerService(s.store.Players(), s.store.Games(), s.logger)
	gameService := service.NewGameService(s.store.Players(), s.store.Games(), s.hub, s.logger)

	playerHandler := handler.NewPlayerHandler(playerService, s.logger)
	gameHandler := handler.NewGameHandler(gameService, s.logger)
	wsHandler := handler.NewWSHandler(gameService, s.hub, s.logger)

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"message":"Tic-Tac-Toe API running"}`))
		})

		r.Post("/players", playerHandler.HandleCreate)
		r.Get("/players/search/{query}", playerHandler.HandleSearch)
		r.Get("/players/{id}", playerHandler.HandleGet)
		r.Put("/players/{id}/username", playerHandler.HandleRename)
		r.Get("/players/{id}/stats", playerHandler.HandleStats)
		r.Get("/players/{id}/history", playerHandler.HandleHistory)
		r.Get("/players/{username}/games", playerHandler.HandleGamesByUsername)

		r.Post("/games", gameHandler.HandleCreate)
		r.Get("/games/waiting", gameHandler.HandleListWaiting)
		r.Get("/games/by-code/{code}", gameHandler.HandleGetByCode)
		r.Post("/games/join-by-code", gameHandler.HandleJoinByCode)
		r.Get("/games/{id}", gameHandler.HandleGet)
		r.Post("/games/{id}/join", gameHandler.HandleJoin)
		r.Post("/games/{id}/move", gameHandler.HandleMove)
		r.Post("/games/{id}/rematch", gameHandler.HandleRematch)
		r.Get("/games/{id}/replay", gameHandler.HandleReplay)
		r.Get("/games/{id}/qr", gameHandler.HandleQR)

		r.Get("/ws/{game_id}/{player_id}", wsHandler.HandleWS)
	})
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server and handles graceful shutdown:
// stop accepting connections, give in-flight requests 30 seconds, then
// close the store (flushes the SQLite WAL and releases the file lock).
func (s *Server) Start() error {
	defer s.store.Close()

	srv := &http.Server{
		Addr:        fmt.Sprintf(":%d", s.cfg.Server.Port),
		Handler:     s.router,
		ReadTimeout: 15 * time.Second,
		// No WriteTimeout: it would sever long-lived WebSocket connections.
		IdleTimeout: 60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.cfg.Server.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d/api", s.cfg.Server.Port)),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
