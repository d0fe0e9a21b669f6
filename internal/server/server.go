// Package server is the composition root: it opens the database, builds the
// services and handlers, mounts the routes and runs the HTTP server with
// graceful shutdown.
//
//	sqlite.DB → MemoService / AuthService → handlers → chi router
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
	"github.com/go-chi/cors"
	"github.com/goodsign/monday"

	"github.com/sakif/memopad/internal/auth"
	"github.com/sakif/memopad/internal/executor"
	"github.com/sakif/memopad/internal/handler"
	"github.com/sakif/memopad/internal/middleware"
	sqliteRepo "github.com/sakif/memopad/internal/repository/sqlite"
	"github.com/sakif/memopad/internal/service"
)

// DefaultPruneInterval is how often expired sign-in codes are deleted.
const DefaultPruneInterval = 10 * time.Minute

// Config holds server configuration.
type Config struct {
	Port   int
	DBPath string

	// JWTSecret enables authentication. Without it only the public routes
	// (pages, /api/render, /health) are mounted.
	JWTSecret string

	GitHubClientID     string
	GitHubClientSecret string
	GitHubCallbackURL  string

	// CORSOrigins are the browser origins allowed to call the API with
	// credentials. Empty disables CORS headers.
	CORSOrigins []string

	// PublicURL is the externally reachable base URL used in sign-in links.
	PublicURL string

	// Locale picks the day labels of the HTML memo list.
	Locale monday.Locale

	// Mailer delivers sign-in links; nil logs them instead.
	Mailer service.Mailer

	PruneInterval time.Duration
}

// Server owns the database, the router and the optional executor.
type Server struct {
	router *chi.Mux
	config Config
	logger *slog.Logger
	db     *sqliteRepo.DB
	auth   *service.AuthService // nil when authentication is disabled
}

// New opens the database and wires every route. exec may be nil, in which
// case code-block runs answer 503.
func New(cfg Config, logger *slog.Logger, exec executor.Executor) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if cfg.PruneInterval <= 0 {
		cfg.PruneInterval = DefaultPruneInterval
	}
	if cfg.Locale == "" {
		cfg.Locale = monday.LocaleEnUS
	}
	if cfg.PublicURL == "" {
		cfg.PublicURL = fmt.Sprintf("http://localhost:%d", cfg.Port)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}

	if err := s.setupRoutes(exec); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}
	return s, nil
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes mounts middleware and routes.
//
//	GET    /health
//	GET    /                               memo list page
//	GET    /memos/{id}                     memo preview page
//	POST   /api/render                     render markdown
//	GET    /auth/github/login              (GitHub configured)
//	GET    /auth/github/callback           (GitHub configured)
//	POST   /auth/email                     request a sign-in code
//	POST   /auth/email/verify              exchange a code for a token
//	GET    /auth/email/verify              emailed sign-in link
//	POST   /auth/logout
//	GET    /api/me                         RequireAuth from here down
//	GET    /api/memos
//	POST   /api/memos
//	GET    /api/memos/{id}
//	PATCH  /api/memos/{id}
//	DELETE /api/memos/{id}
//	GET    /api/memos/{id}/html
//	POST   /api/memos/{id}/blocks/{n}/run
//
// Middleware runs in the order added. OptionalAuth comes before Logger so
// request lines carry the user id.
func (s *Server) setupRoutes(exec executor.Executor) error {
	var tokens *auth.TokenService
	if s.config.JWTSecret != "" {
		var err error
		tokens, err = auth.NewTokenService(s.config.JWTSecret)
		if err != nil {
			return fmt.Errorf("creating token service: %w", err)
		}
	}

	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	if tokens != nil {
		s.router.Use(auth.OptionalAuth(tokens))
	}
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)
	if len(s.config.CORSOrigins) > 0 {
		s.router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   s.config.CORSOrigins,
			AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	s.router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}` + "\n"))
	})

	memoService := service.NewMemoService(s.db, s.logger)

	pages, err := handler.NewPageHandler(memoService, s.config.Locale, s.logger)
	if err != nil {
		return fmt.Errorf("creating page handler: %w", err)
	}
	s.router.Get("/", pages.HandleIndex)
	s.router.Get("/memos/{id}", pages.HandleMemo)
	s.router.Post("/api/render", handler.HandleRender)

	if tokens == nil {
		s.logger.Warn("authentication disabled: memo API not mounted")
		return nil
	}

	mailer := s.config.Mailer
	if mailer == nil {
		mailer = service.LogMailer{Logger: s.logger}
	}
	s.auth = service.NewAuthService(
		s.db.Users(),
		s.db.SignInCodes(),
		tokens,
		auth.NewCodeService(),
		mailer,
		s.config.PublicURL,
		s.logger,
	)

	var github *auth.GitHubProvider
	if s.config.GitHubClientID != "" && s.config.GitHubClientSecret != "" {
		github = auth.NewGitHubProvider(s.config.GitHubClientID, s.config.GitHubClientSecret, s.config.GitHubCallbackURL)
	} else {
		s.logger.Info("GitHub sign-in not configured")
	}

	authHandler := handler.NewAuthHandler(github, s.auth, tokens.TTL(), s.logger)
	memoHandler := handler.NewMemoHandler(memoService, s.logger)
	executeHandler := handler.NewExecuteHandler(memoService, exec, s.logger)

	s.router.Route("/auth", func(r chi.Router) {
		if github != nil {
			r.Get("/github/login", authHandler.HandleGitHubLogin)
			r.Get("/github/callback", authHandler.HandleGitHubCallback)
		}
		r.Post("/email", authHandler.HandleEmailRequest)
		r.Post("/email/verify", authHandler.HandleEmailVerify)
		r.Get("/email/verify", authHandler.HandleEmailLink)
		r.Post("/logout", authHandler.HandleLogout)
	})

	s.router.Route("/api", func(r chi.Router) {
		r.Use(auth.RequireAuth(tokens))

		r.Get("/me", authHandler.HandleMe)
		r.Get("/memos", memoHandler.HandleList)
		r.Post("/memos", memoHandler.HandleCreate)
		r.Get("/memos/{id}", memoHandler.HandleGetByID)
		r.Patch("/memos/{id}", memoHandler.HandleUpdate)
		r.Delete("/memos/{id}", memoHandler.HandleDelete)
		r.Get("/memos/{id}/html", memoHandler.HandleHTML)
		r.Post("/memos/{id}/blocks/{n}/run", executeHandler.HandleRun)
	})

	return nil
}

// pruneLoop deletes expired sign-in codes every PruneInterval until ctx is
// done.
func (s *Server) pruneLoop(ctx context.Context) {
	ticker := time.NewTicker(s.config.PruneInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.auth.PruneExpiredCodes(ctx); err != nil && ctx.Err() == nil {
				s.logger.Error("failed to prune sign-in codes", slog.String("error", err.Error()))
			}
		}
	}
}

// Close releases the database.
func (s *Server) Close() error {
	return s.db.Close()
}

// Start serves until SIGINT or SIGTERM, then drains in-flight requests for
// up to 30 seconds and closes the database.
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second, // code-block runs included
		IdleTimeout:  60 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if s.auth != nil {
		go s.pruneLoop(ctx)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", s.config.PublicURL),
			slog.String("database", s.config.DBPath),
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
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}
	return nil
}
