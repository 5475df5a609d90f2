// Package server is the composition root: it opens the entity store, builds
// services and handlers on top of it, mounts the routes and runs the HTTP
// server until a shutdown signal arrives.
//
// DEPENDENCY FLOW:
//
//	config.Config → repository.Store (sqlite or mongostore)
//	             → service.{Deck,Folder,Card,Auth}Service
//	             → handler.{Deck,Folder,Card,Auth}Handler → chi routes
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/flashdeck/internal/auth"
	"github.com/sakif/flashdeck/internal/config"
	"github.com/sakif/flashdeck/internal/handler"
	"github.com/sakif/flashdeck/internal/middleware"
	"github.com/sakif/flashdeck/internal/repository"
	"github.com/sakif/flashdeck/internal/repository/mongostore"
	sqliteRepo "github.com/sakif/flashdeck/internal/repository/sqlite"
	"github.com/sakif/flashdeck/internal/service"
)

// connectTimeout bounds the initial MongoDB dial and index creation.
const connectTimeout = 10 * time.Second

// Server owns the router and the store. The store is closed when Start
// returns.
type Server struct {
	router *chi.Mux
	config *config.Config
	logger *slog.Logger
	store  repository.Store
	tokens *auth.TokenService
}

// OpenStore opens the store selected by cfg.StoreDriver and brings its
// schema or indexes up to date.
func OpenStore(ctx context.Context, cfg *config.Config) (repository.Store, error) {
	switch cfg.StoreDriver {
	case config.DriverSQLite:
		if cfg.DBPath != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
				return nil, fmt.Errorf("creating database directory: %w", err)
			}
		}
		return sqliteRepo.New(cfg.DBPath)
	case config.DriverMongo:
		ctx, cancel := context.WithTimeout(ctx, connectTimeout)
		defer cancel()
		return mongostore.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase)
	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.StoreDriver)
	}
}

// New opens the configured store and builds a Server on it.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Server, error) {
	store, err := OpenStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("opening %s store: %w", cfg.StoreDriver, err)
	}
	s, err := NewWithStore(cfg, store, logger)
	if err != nil {
		store.Close()
		return nil, err
	}
	return s, nil
}

// NewWithStore builds a Server on an already open store. Tests use it with
// an in-memory SQLite store.
func NewWithStore(cfg *config.Config, store repository.Store, logger *slog.Logger) (*Server, error) {
	tokens, err := auth.NewTokenService(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		return nil, fmt.Errorf("creating token service: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		store:  store,
		tokens: tokens,
	}
	s.setupRoutes()
	return s, nil
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes mounts middleware and routes.
//
// MIDDLEWARE ORDER:
//  1. RequestID: tags the request, picked up by the logger
//  2. RealIP: client address from proxy headers
//  3. Logger
//  4. Recoverer: panics become 500s and still get logged
//
// Reads use OptionalAuth so public decks work without a session. Every
// write goes through RequireAuth.
func (s *Server) setupRoutes() {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)

	passwords := auth.NewPasswordService()
	decks := handler.NewDeckHandler(service.NewDeckService(s.store, passwords, s.logger), s.logger)
	folders := handler.NewFolderHandler(service.NewFolderService(s.store, passwords, s.logger), s.logger)
	cards := handler.NewCardHandler(service.NewCardService(s.store, passwords, s.logger), s.logger)
	authService := service.NewAuthService(s.store.Users(), s.tokens, s.logger)

	var github handler.OAuthProvider
	if s.config.GitHubEnabled() {
		github = auth.NewGitHubProvider(s.config.GitHubClientID, s.config.GitHubClientSecret, s.config.GitHubCallbackURL)
	}
	authHandler := handler.NewAuthHandler(github, authService, s.tokens.TTL(), s.config.SecureCookies, s.logger)

	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	s.router.Route("/auth", func(r chi.Router) {
		if github != nil {
			r.Get("/github/login", authHandler.HandleGitHubLogin)
			r.Get("/github/callback", authHandler.HandleGitHubCallback)
		}
		r.Post("/logout", authHandler.HandleLogout)
	})

	s.router.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(auth.OptionalAuth(s.tokens))

			r.Get("/decks", decks.HandleList)
			r.Get("/decks/{deckID}", decks.HandleGet)
			r.Get("/cards/{cardID}", cards.HandleGet)
			r.Get("/folders", folders.HandleList)
			r.Get("/folders/{folderID}", folders.HandleGet)
		})

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(s.tokens))

			r.Get("/me", authHandler.HandleMe)

			r.Post("/decks", decks.HandleCreate)
			r.Patch("/decks/{deckID}", decks.HandleUpdate)
			r.Delete("/decks/{deckID}", decks.HandleDelete)
			r.Post("/decks/{deckID}/reorder", decks.HandleReorder)
			r.Post("/decks/{deckID}/cards", cards.HandleCreate)
			r.Delete("/decks/{deckID}/cards/{cardID}", cards.HandleDelete)

			r.Post("/folders", folders.HandleCreate)
			r.Patch("/folders/{folderID}", folders.HandleUpdate)
			r.Delete("/folders/{folderID}", folders.HandleDelete)
			r.Post("/folders/{folderID}/decks", folders.HandleAddDeck)
			r.Delete("/folders/{folderID}/decks/{deckID}", folders.HandleRemoveDeck)
		})
	})
}

// Start serves until SIGINT or SIGTERM, then drains in-flight requests for
// up to the configured shutdown timeout and closes the store.
func (s *Server) Start() error {
	defer func() {
		if err := s.store.Close(); err != nil {
			s.logger.Error("closing store", slog.String("error", err.Error()))
		}
	}()

	srv := &http.Server{
		Addr:         s.config.Addr(),
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
			slog.String("store", s.config.StoreDriver),
			slog.Bool("githubLogin", s.config.GitHubEnabled()),
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

		ctx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
