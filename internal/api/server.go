// Package api provides the JSON HTTP API for FeedBot.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/RobinCoderZhao/feedbot/internal/feedbot/catalog"
	"github.com/RobinCoderZhao/feedbot/internal/feedbot/ingest"
	"github.com/RobinCoderZhao/feedbot/internal/feedbot/store"
)

// Ingester runs ingestion requests.
type Ingester interface {
	Ingest(ctx context.Context, category string, maxArticles int) (*ingest.Result, error)
}

// RunArchive reads archived runs.
type RunArchive interface {
	Recent(ctx context.Context, category string, limit int) ([]store.Run, error)
	Run(ctx context.Context, id int64) (*store.Run, error)
}

// Server holds the dependencies for the API.
type Server struct {
	ingester      Ingester
	catalog       *catalog.Catalog
	runs          RunArchive
	allowedOrigin string
	logger        *slog.Logger
}

// Option customizes a Server.
type Option func(*Server)

// WithRuns enables the run history endpoints.
func WithRuns(r RunArchive) Option {
	return func(s *Server) { s.runs = r }
}

// WithAllowedOrigin enables CORS for origin.
func WithAllowedOrigin(origin string) Option {
	return func(s *Server) { s.allowedOrigin = origin }
}

// NewServer creates a new API Server instance.
func NewServer(ing Ingester, cat *catalog.Catalog, opts ...Option) *Server {
	s := &Server{
		ingester: ing,
		catalog:  cat,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Routes returns the configured http.Handler (ServeMux) for the API.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealth())
	mux.HandleFunc("GET /api/categories", s.handleCategories())
	mux.HandleFunc("GET /api/ingest", s.handleIngest())
	mux.HandleFunc("GET /api/runs", s.handleListRuns())
	mux.HandleFunc("GET /api/runs/{id}", s.handleGetRun())

	if s.allowedOrigin == "" {
		return mux
	}
	return s.cors(mux)
}

func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", s.allowedOrigin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// --- Helpers ---

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
