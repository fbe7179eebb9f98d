// Package server is the wiring layer: it assembles the database, the
// blob store, the services, and the handlers, and maps routes to them.
// All dependencies are constructed here, the composition root, rather
// than scattered across the codebase.
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

	"github.com/sakif/imagevault/internal/auth"
	"github.com/sakif/imagevault/internal/handler"
	"github.com/sakif/imagevault/internal/middleware"
	sqliteRepo "github.com/sakif/imagevault/internal/repository/sqlite"
	"github.com/sakif/imagevault/internal/service"
	"github.com/sakif/imagevault/internal/storage/minio"
)

// Config holds everything the server needs to start. main.go fills it
// from the environment.
type Config struct {
	Port          int
	DBPath        string
	JWTSecret     string
	PublicBaseURL string
	// AllowedOrigins is the CORS allow-list; empty means any origin.
	AllowedOrigins []string
	Minio          minio.Config
}

// Server owns the router plus the resources that need closing on
// shutdown.
type Server struct {
	router *chi.Mux
	config Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New wires the full dependency chain:
//
//	sqlite.DB + minio.Store → services → handlers → routes
//
// Each layer receives only the interfaces it needs; handlers never touch
// the database and services never see HTTP.
func New(cfg Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Bucket existence is checked up front so a misconfigured store
	// fails at startup, not on the first upload.
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	blobs, err := minio.New(ctx, cfg.Minio, logger)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to blob store: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}

	if err := s.setupRoutes(blobs); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

func (s *Server) setupRoutes(blobs *minio.Store) error {
	tokens, err := auth.NewTokenService(s.config.JWTSecret)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}
	passwords := auth.NewPasswordService()

	authService := service.NewAuthService(s.db, passwords, tokens, s.logger)
	userService := service.NewUserService(s.db, s.logger)
	folderService := service.NewFolderService(s.db, s.db, s.logger)
	imageService := service.NewImageService(s.db, s.db, blobs, s.config.PublicBaseURL, s.logger)

	authHandler := handler.NewAuthHandler(authService)
	userHandler := handler.NewUserHandler(userService)
	folderHandler := handler.NewFolderHandler(folderService)
	imageHandler := handler.NewImageHandler(imageService)

	// Middleware order matters: request ID first so the logger can read
	// it, recoverer before the handlers so panics become 500s.
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.CORS(s.config.AllowedOrigins))
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)

	s.router.Get("/health", handler.Health)

	s.router.Route("/auth", func(r chi.Router) {
		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
	})

	requireAuth := auth.RequireAuth(tokens)

	s.router.Route("/user", func(r chi.Router) {
		r.Use(requireAuth)
		r.Get("/profile", userHandler.Profile)
		r.Put("/update", userHandler.Update)
	})

	s.router.Route("/image", func(r chi.Router) {
		r.Use(requireAuth)
		r.Post("/upload", imageHandler.Upload)
		r.Post("/list", imageHandler.List)
		r.Delete("/delete", imageHandler.Delete)
		r.Put("/rename", imageHandler.Rename)
		r.Put("/note", imageHandler.Note)
		r.Put("/move", imageHandler.Move)
		r.Get("/storage", imageHandler.Storage)
	})

	s.router.Route("/folder", func(r chi.Router) {
		r.Use(requireAuth)
		r.Post("/create", folderHandler.Create)
		r.Get("/list", folderHandler.List)
		r.Delete("/delete", folderHandler.Delete)
	})

	return nil
}

// Start runs the HTTP server until SIGINT/SIGTERM, then drains in-flight
// requests and closes the database so the WAL is flushed.
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  60 * time.Second, // uploads can be slow on bad links
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("database", s.config.DBPath),
			slog.String("bucket", s.config.Minio.Bucket),
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
