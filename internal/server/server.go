// Package server is the wiring layer: it assembles the dependency graph,
// maps routes to handlers, and runs the HTTP server with graceful
// shutdown. main.go stays minimal; everything composition-related lives
// here so tests can stand up a server without running main.
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

	"github.com/wikireview/wikireview/internal/auth"
	"github.com/wikireview/wikireview/internal/handler"
	"github.com/wikireview/wikireview/internal/middleware"
	sqliteRepo "github.com/wikireview/wikireview/internal/repository/sqlite"
	"github.com/wikireview/wikireview/internal/service"
	"github.com/wikireview/wikireview/internal/wiki"
)

// Config holds server configuration, loaded from the environment in main.
type Config struct {
	Port         int
	DBPath       string
	SecureCookie bool // Secure flag on session cookies; on behind HTTPS

	// WikiAPIURL points at the external wiki engine. Empty disables the
	// page pass-through and protection propagation.
	WikiAPIURL string

	// GitHub OAuth app credentials. Empty disables the social-login routes.
	GitHubClientID     string
	GitHubClientSecret string
	GitHubCallbackURL  string
}

// Server owns the router and the database handle. The handle is the
// process-wide store connection: opened here, injected into the
// repositories, closed during graceful shutdown.
type Server struct {
	router *chi.Mux
	config Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New opens the database and wires the whole dependency chain:
// stores → services → handlers → routes.
func New(cfg Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
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

func (s *Server) setupRoutes() {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	// The wiki engine client is optional; without it the site still serves
	// comments and ratings, and protection is tracked locally only.
	var engine *wiki.Client
	if s.config.WikiAPIURL != "" {
		engine = wiki.New(s.config.WikiAPIURL)
	} else {
		s.logger.Warn("WIKI_API_URL not set; article pass-through and protection propagation disabled")
	}

	var github *auth.GitHubProvider
	if s.config.GitHubClientID != "" && s.config.GitHubClientSecret != "" {
		github = auth.NewGitHubProvider(
			s.config.GitHubClientID,
			s.config.GitHubClientSecret,
			s.config.GitHubCallbackURL,
		)
	}

	authService := service.NewAuthService(s.db.Users(), s.db.Sessions(), auth.NewPasswordService(), s.logger)
	commentService := service.NewCommentService(s.db.Comments(), s.db.Votes(), s.logger)
	voteService := service.NewVoteService(s.db.Comments(), s.db.Votes(), s.logger)
	ratingService := service.NewRatingService(s.db.Ratings(), s.logger)
	protectionService := service.NewProtectionService(s.db.Protections(), engine, s.logger)

	authHandler := handler.NewAuthHandler(authService, github, s.config.SecureCookie, s.logger)
	commentHandler := handler.NewCommentHandler(commentService, voteService, s.logger)
	ratingHandler := handler.NewRatingHandler(ratingService, s.logger)
	pageHandler := handler.NewPageHandler(engine, protectionService, s.logger)

	requireAuth := auth.RequireAuth(authService)
	optionalAuth := auth.OptionalAuth(authService)

	s.router.Route("/api", func(r chi.Router) {
		r.Post("/register", authHandler.HandleRegister)
		r.Post("/login", authHandler.HandleLogin)
		r.Post("/logout", authHandler.HandleLogout)

		r.Group(func(r chi.Router) {
			r.Use(optionalAuth)
			r.Get("/comments", commentHandler.HandleList)
			r.Post("/comments", commentHandler.HandleAdd)
			r.Get("/ratings", ratingHandler.HandleGet)
			r.Post("/ratings", ratingHandler.HandleSubmit)
			r.Get("/pages/{id}", pageHandler.HandleGetPage)
			r.Get("/pages/{id}/protection", pageHandler.HandleGetProtection)
		})

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Get("/me", authHandler.HandleMe)
			r.Post("/sessions/purge", authHandler.HandlePurgeSessions)
			r.Delete("/comments/{id}", commentHandler.HandleDelete)
			r.Post("/comments/{id}/vote", commentHandler.HandleVote)
			r.Put("/pages/{id}/protection", pageHandler.HandleSetProtection)
		})
	})

	if github != nil {
		s.router.Get("/auth/github/login", authHandler.HandleGitHubLogin)
		s.router.Get("/auth/github/callback", authHandler.HandleGitHubCallback)
	} else {
		s.logger.Warn("GitHub OAuth not configured; social login routes disabled")
	}
}

// Start runs the server until SIGINT/SIGTERM, then shuts down gracefully:
// stop accepting connections, drain in-flight requests for up to 30s, close
// the database.
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("database", s.config.DBPath),
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
