// Package server provides the HTTP REST API for the document-to-spreadsheet
// service.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/nathan/docsheet/internal/config"
	"github.com/nathan/docsheet/internal/db"
	"github.com/nathan/docsheet/internal/extraction"
	"github.com/nathan/docsheet/internal/llm"
	"github.com/nathan/docsheet/internal/names"
	"github.com/nathan/docsheet/internal/ocr"
	"github.com/nathan/docsheet/internal/pipeline"
	"github.com/nathan/docsheet/internal/server/middleware"
	"github.com/nathan/docsheet/internal/server/ratelimit"
	"github.com/nathan/docsheet/internal/sheets"
	"github.com/nathan/docsheet/internal/speech"
	"github.com/nathan/docsheet/internal/storage"
	"github.com/nathan/docsheet/internal/synthesis"
)

// Database is the persistence surface the handlers need. *db.DB satisfies it.
type Database interface {
	CreateProject(ctx context.Context, userID uuid.UUID, name string, fileURLs []string) (*db.Project, error)
	GetProjectForUser(ctx context.Context, projectID, userID uuid.UUID) (*db.Project, error)
	ListProjects(ctx context.Context, userID uuid.UUID, limit int) ([]db.ProjectSummary, error)
	DeleteProject(ctx context.Context, projectID, userID uuid.UUID) error
	ListStateVersions(ctx context.Context, projectID uuid.UUID) ([]db.ProjectState, error)
	GetLatestState(ctx context.Context, projectID uuid.UUID) (*db.ProjectState, error)
	LatestStateVersion(ctx context.Context, projectID uuid.UUID) (int, error)
	CreateConnectedSheet(ctx context.Context, userID uuid.UUID, projectID *uuid.UUID, spreadsheetID, spreadsheetURL, title string) (*db.ConnectedSheet, error)
	GetSheetForProject(ctx context.Context, projectID uuid.UUID) (*db.ConnectedSheet, error)
	GetSheetBySpreadsheetID(ctx context.Context, userID uuid.UUID, spreadsheetID string) (*db.ConnectedSheet, error)
	LinkSheetToProject(ctx context.Context, sheetID, projectID uuid.UUID) error
}

// Runner is the ingestion pipeline surface. *pipeline.Pipeline satisfies it.
type Runner interface {
	Process(ctx context.Context, projectID uuid.UUID, opts pipeline.Options) error
	AddFiles(ctx context.Context, projectID uuid.UUID, fileURLs []string, opts pipeline.Options) error
	Sync(ctx context.Context, projectID uuid.UUID) (*pipeline.SyncSummary, error)
	Analyze(ctx context.Context, projectID uuid.UUID) (string, error)
	Close()
}

// SheetAPI is the external spreadsheet surface. *sheets.Client satisfies it.
type SheetAPI interface {
	CheckAccess(ctx context.Context, spreadsheetURL string) sheets.AccessResult
	Create(ctx context.Context, title string) (string, string, error)
}

// ObjectStore uploads source files. *storage.Store satisfies it.
type ObjectStore interface {
	Put(ctx context.Context, key string, body []byte, contentType string) (string, error)
	SignedDownloadURL(ctx context.Context, key string) (string, error)
}

// Server represents the HTTP server
type Server struct {
	httpServer  *http.Server
	db          Database
	runner      Runner
	sheetAPI    SheetAPI
	objects     ObjectStore
	nameGen     *names.Generator
	rateLimiter *ratelimit.Limiter
	jwtService  *JWTService
	validate    *validator.Validate

	closeDB func()
}

// New creates a server wired to real backends from the given configuration.
func New(ctx context.Context, cfg *config.Config) (*Server, error) {
	database, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	model, err := llm.NewClient(ctx, nil, cfg.GeminiAPIKey)
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to create model client: %w", err)
	}

	extractor := extraction.NewService(speech.NewClient(cfg.SpeechAPIKey), ocr.NewClient(cfg.OCRAPIKey))
	synthesizer := synthesis.New(model)

	var sheetClient *sheets.Client
	if cfg.GoogleCredentialsFile != "" {
		credentials, err := os.ReadFile(cfg.GoogleCredentialsFile)
		if err != nil {
			database.Close()
			return nil, fmt.Errorf("failed to read google credentials: %w", err)
		}
		sheetClient, err = sheets.NewClient(ctx, credentials, cfg.ServiceAccountEmail)
		if err != nil {
			database.Close()
			return nil, fmt.Errorf("failed to create sheets client: %w", err)
		}
	}

	var objects ObjectStore
	if cfg.S3Bucket != "" {
		store, err := storage.New(ctx, storage.Config{Region: cfg.AWSRegion, Bucket: cfg.S3Bucket})
		if err != nil {
			database.Close()
			return nil, fmt.Errorf("failed to create object store: %w", err)
		}
		objects = store
	}

	jwtConfig, err := config.NewJWTConfig()
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to create JWT config: %w", err)
	}

	var sheetSvc pipeline.SheetService
	var sheetAPI SheetAPI
	if sheetClient != nil {
		sheetSvc = sheetClient
		sheetAPI = sheetClient
	}

	s := newServer(serverDeps{
		db:       database,
		runner:   pipeline.New(database, extractor, synthesizer, sheetSvc, model),
		sheetAPI: sheetAPI,
		objects:  objects,
		jwt:      NewJWTService(jwtConfig),
		port:     cfg.Port,
	})
	s.closeDB = database.Close
	return s, nil
}

// serverDeps bundles the constructed backends; tests supply mocks here.
type serverDeps struct {
	db       Database
	runner   Runner
	sheetAPI SheetAPI
	objects  ObjectStore
	jwt      *JWTService
	port     string
}

func newServer(deps serverDeps) *Server {
	s := &Server{
		db:          deps.db,
		runner:      deps.runner,
		sheetAPI:    deps.sheetAPI,
		objects:     deps.objects,
		nameGen:     names.New(),
		rateLimiter: ratelimit.NewLimiter(ratelimit.LoadConfig()),
		jwtService:  deps.jwt,
		validate:    validator.New(),
	}

	s.httpServer = &http.Server{
		Addr:         ":" + deps.port,
		Handler:      s.withRateLimit(s.withLogging(s.withCORS(s.routes()))),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 300 * time.Second, // Long timeout for ingestion runs
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// routes builds the router: public endpoints plus a token-protected API.
func (s *Server) routes() http.Handler {
	public := http.NewServeMux()
	public.HandleFunc("GET /health", s.handleHealth)
	public.HandleFunc("GET /project-names/random", s.handleRandomProjectName)

	api := http.NewServeMux()
	api.HandleFunc("POST /projects", s.handleCreateProject)
	api.HandleFunc("GET /projects", s.handleListProjects)
	api.HandleFunc("GET /projects/{id}", s.handleGetProject)
	api.HandleFunc("DELETE /projects/{id}", s.handleDeleteProject)
	api.HandleFunc("GET /projects/{id}/versions", s.handleListVersions)
	api.HandleFunc("GET /projects/{id}/versions/latest", s.handleLatestVersion)
	api.HandleFunc("POST /projects/{id}/files", s.handleAddFiles)
	api.HandleFunc("POST /projects/{id}/sync", s.handleSyncProject)
	api.HandleFunc("POST /projects/{id}/analysis", s.handleAnalyzeProject)
	api.HandleFunc("GET /projects/{id}/download/{format}", s.handleDownload)
	api.HandleFunc("POST /projects/{id}/sheet", s.handleCreateProjectSheet)
	api.HandleFunc("POST /sheets/access-check", s.handleSheetAccessCheck)
	api.HandleFunc("POST /uploads", s.handleUpload)
	api.HandleFunc("GET /uploads/{key...}", s.handleUploadDownloadURL)

	authed := middleware.AuthMiddleware(s.jwtService.AsTokenValidator())(api)

	root := http.NewServeMux()
	root.Handle("/health", public)
	root.Handle("/project-names/", public)
	root.Handle("/", authed)
	return root
}

// Start begins listening for requests and blocks until shutdown
func (s *Server) Start() error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Printf("Server starting on %s", s.httpServer.Addr)
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

	if s.runner != nil {
		s.runner.Close()
	}
	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
	}
	if s.closeDB != nil {
		s.closeDB()
	}
	log.Println("Server stopped")
	return nil
}

// withCORS adds CORS headers
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// withRateLimit adds rate limiting middleware
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientID := s.extractClientID(r)

		allowed, info := s.rateLimiter.Allow(clientID, r.URL.Path, r.Method)
		if !allowed {
			s.setRateLimitHeaders(w, info)
			s.rateLimitResponse(w, info)
			return
		}

		s.setRateLimitHeaders(w, info)
		next.ServeHTTP(w, r)
	})
}

// withLogging adds request logging
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		log.Printf("[%s] %s %s", r.Method, r.URL.Path, r.RemoteAddr)
		next.ServeHTTP(w, r)
		log.Printf("[%s] %s completed in %v", r.Method, r.URL.Path, time.Since(start))
	})
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleRandomProjectName suggests a default name for a new project
func (s *Server) handleRandomProjectName(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"name": s.nameGen.Generate()})
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Error encoding JSON response: %v", err)
	}
}

// errorResponse writes an error JSON response
func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"error": message})
}

// extractClientID extracts the client identifier from the request.
// For now this is the IP address from RemoteAddr.
func (s *Server) extractClientID(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// setRateLimitHeaders sets standard rate limit headers on the response.
func (s *Server) setRateLimitHeaders(w http.ResponseWriter, info ratelimit.Info) {
	if info.Limit > 0 {
		w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", info.Limit))
		w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", info.Remaining))
		w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", info.ResetTime.Unix()))
	}
}

// rateLimitResponse writes a 429 Too Many Requests response with rate limit information.
func (s *Server) rateLimitResponse(w http.ResponseWriter, info ratelimit.Info) {
	response := map[string]interface{}{
		"error":     "rate_limit_exceeded",
		"message":   "Rate limit exceeded. Please try again later.",
		"limit":     info.Limit,
		"remaining": info.Remaining,
		"reset_at":  info.ResetTime.Format(time.RFC3339),
	}

	if info.RetryAfter > 0 {
		response["retry_after"] = int(info.RetryAfter.Seconds())
		w.Header().Set("Retry-After", fmt.Sprintf("%d", int(info.RetryAfter.Seconds())))
	}

	log.Printf("[rate-limit] Rate limit exceeded: Limit=%d Remaining=%d Reset=%s",
		info.Limit, info.Remaining, info.ResetTime.Format(time.RFC3339))

	s.jsonResponse(w, http.StatusTooManyRequests, response)
}
