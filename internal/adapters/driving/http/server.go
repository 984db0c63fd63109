package http

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/custodia-labs/docquiz-core/internal/core/ports/driven"
	"github.com/custodia-labs/docquiz-core/internal/core/ports/driving"
)

// Pinger is a simple health check interface
type Pinger interface {
	Ping(ctx context.Context) error
}

// SignedFileStore serves stored files behind HMAC-signed URLs
type SignedFileStore interface {
	Download(ctx context.Context, path string) ([]byte, error)
	VerifySignature(path string, expires int64, signature string) error
}

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	router     *http.ServeMux
	version    string

	// Services
	docService        driving.DocumentService
	processingService driving.ProcessingService
	quizService       driving.QuizService

	// Auth
	verifier    driven.TokenVerifier
	permissions driven.PermissionChecker

	// Infrastructure
	taskQueue   driven.TaskQueue
	signedFiles SignedFileStore // nil when no file serving is configured
	db          Pinger          // PostgreSQL health check
	redisClient Pinger          // Redis health check (optional)
}

// Config holds server configuration
type Config struct {
	Host    string
	Port    int
	Version string
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Host:    "0.0.0.0",
		Port:    8080,
		Version: "dev",
	}
}

// NewServer creates a new HTTP server
func NewServer(
	cfg Config,
	docService driving.DocumentService,
	processingService driving.ProcessingService,
	quizService driving.QuizService,
	verifier driven.TokenVerifier,
	permissions driven.PermissionChecker,
	taskQueue driven.TaskQueue,
	signedFiles SignedFileStore, // can be nil
	db Pinger,
	redisClient Pinger, // can be nil
) *Server {
	s := &Server{
		router:            http.NewServeMux(),
		version:           cfg.Version,
		docService:        docService,
		processingService: processingService,
		quizService:       quizService,
		verifier:          verifier,
		permissions:       permissions,
		taskQueue:         taskQueue,
		signedFiles:       signedFiles,
		db:                db,
		redisClient:       redisClient,
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second, // quiz generation runs inline
		IdleTimeout:  60 * time.Second,
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	authMiddleware := NewAuthMiddleware(s.verifier)

	// Health endpoints (no auth)
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.HandleFunc("GET /ready", s.handleReady)
	s.router.HandleFunc("GET /version", s.handleVersion)

	// Document endpoints (authenticated)
	s.router.Handle("POST /api/v1/documents",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleUploadDocument)))
	s.router.Handle("GET /api/v1/documents",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleListDocuments)))
	s.router.Handle("GET /api/v1/documents/{slug}",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleGetDocument)))
	s.router.Handle("GET /api/v1/documents/{slug}/chunks",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleGetDocumentChunks)))
	s.router.Handle("PUT /api/v1/documents/{slug}/file",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleReplaceFile)))

	// Processing endpoints (authenticated, owner or admin)
	s.router.Handle("POST /api/v1/documents/{slug}/process",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleProcessDocument)))
	s.router.Handle("GET /api/v1/documents/{slug}/status",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleProcessingStatus)))

	// Quiz endpoints; taking a quiz and recording attempts allow anonymous
	s.router.Handle("POST /api/v1/documents/{slug}/quiz",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleGenerateQuiz)))
	s.router.Handle("GET /api/v1/documents/{slug}/quiz",
		authMiddleware.AuthenticateOptional(http.HandlerFunc(s.handleGetQuiz)))
	s.router.Handle("POST /api/v1/documents/{slug}/quiz/attempts",
		authMiddleware.AuthenticateOptional(http.HandlerFunc(s.handleRecordAttempt)))
	s.router.Handle("GET /api/v1/documents/{slug}/quiz/statistics",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleQuizStatistics)))

	// Signed file serving (signature is the auth)
	if s.signedFiles != nil {
		s.router.HandleFunc("GET /files/{path...}", s.handleServeFile)
	}
}

// Start starts the HTTP server with graceful shutdown
func (s *Server) Start() error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Printf("Starting server on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-stop
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Println("Server stopped")
	return nil
}

// Stop stops the server
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Handler returns the root handler, used by tests
func (s *Server) Handler() http.Handler {
	return s.router
}
