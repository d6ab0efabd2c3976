// Package httpserver provides the HTTP REST API for the researcher profile
// service.
package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/scholarmap/researcher-profile-service/internal/compare"
	"github.com/scholarmap/researcher-profile-service/internal/database"
	"github.com/scholarmap/researcher-profile-service/internal/enrichment"
	"github.com/scholarmap/researcher-profile-service/internal/identity"
	"github.com/scholarmap/researcher-profile-service/internal/observability"
	"github.com/scholarmap/researcher-profile-service/internal/profile"
	"github.com/scholarmap/researcher-profile-service/internal/repository"
	"github.com/scholarmap/researcher-profile-service/internal/sources/dblp"
	"github.com/scholarmap/researcher-profile-service/internal/sources/github"
	"github.com/scholarmap/researcher-profile-service/internal/sources/huggingface"
	"github.com/scholarmap/researcher-profile-service/internal/sources/semanticscholar"
)

// ProfileService reconciles and serves researcher profiles.
type ProfileService interface {
	FetchProfile(ctx context.Context, pid string, withMetrics bool) (*profile.View, error)
}

// IdentitySearcher runs cross-source author searches.
type IdentitySearcher interface {
	Search(ctx context.Context, query string) ([]identity.Match, error)
}

// CandidateSearcher is the slice of the DBLP client the search endpoint needs.
type CandidateSearcher interface {
	SearchAuthors(ctx context.Context, query string) ([]dblp.AuthorCandidate, error)
}

// ScholarReader is the slice of the Semantic Scholar client the author and
// paper endpoints need.
type ScholarReader interface {
	GetAuthor(ctx context.Context, authorID string) (*semanticscholar.Author, error)
	AuthorPapers(ctx context.Context, authorID string) ([]semanticscholar.Paper, error)
	GetPaper(ctx context.Context, paperID string) (*semanticscholar.Paper, error)
}

// Enricher fetches supplementary publication data keyed by DOI.
type Enricher interface {
	FetchSupplementary(ctx context.Context, dois []string) (map[string]enrichment.Supplement, error)
}

// CodePresenceSource looks up a researcher's code-hosting profile.
type CodePresenceSource interface {
	UserProfile(ctx context.Context, username string) (*github.Profile, error)
}

// ModelHubSource looks up a researcher's published models and datasets.
type ModelHubSource interface {
	UserResources(ctx context.Context, username string) (*huggingface.Resources, error)
}

// HealthChecker reports database health for the probe endpoints.
type HealthChecker interface {
	Health(ctx context.Context) database.HealthStatus
}

// Server is the HTTP REST API server.
type Server struct {
	router     chi.Router
	httpServer *http.Server
	profiles   ProfileService
	identity   IdentitySearcher
	candidates CandidateSearcher
	scholar    ScholarReader
	enricher   Enricher
	code       CodePresenceSource
	modelHub   ModelHubSource
	repo       repository.ProfileRepository
	sessions   *compare.SessionStore
	db         HealthChecker
	logger     zerolog.Logger
}

// Config holds HTTP server configuration.
type Config struct {
	Address         string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// NewServer creates a new HTTP server with all dependencies.
func NewServer(
	cfg Config,
	profiles ProfileService,
	identitySearcher IdentitySearcher,
	candidates CandidateSearcher,
	scholar ScholarReader,
	enricher Enricher,
	code CodePresenceSource,
	modelHub ModelHubSource,
	repo repository.ProfileRepository,
	sessions *compare.SessionStore,
	db HealthChecker,
	logger zerolog.Logger,
) *Server {
	s := &Server{
		profiles:   profiles,
		identity:   identitySearcher,
		candidates: candidates,
		scholar:    scholar,
		enricher:   enricher,
		code:       code,
		modelHub:   modelHub,
		repo:       repo,
		sessions:   sessions,
		db:         db,
		logger:     logger.With().Str("component", "http-server").Logger(),
	}

	s.router = s.buildRouter()

	s.httpServer = &http.Server{
		Addr:         cfg.Address,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return s
}

// Router exposes the chi router, primarily for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// buildRouter creates the chi router with all middleware and routes.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestContextMiddleware)
	r.Use(s.logRequests)
	r.Use(jsonContentTypeMiddleware)

	r.Get("/healthz", s.healthHandler)
	r.Get("/readyz", s.readinessHandler)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/researchers/search", s.searchResearchers)
		r.Get("/researchers/dblp-search", s.searchDBLPAuthors)
		r.Get("/researchers/profile", s.getProfile)
		r.Get("/researchers/presence", s.getPresence)

		r.Get("/authors/{authorID}", s.getAuthor)
		r.Get("/authors/{authorID}/papers", s.getAuthorPapers)
		r.Get("/papers/{paperID}", s.getPaper)

		// pid is a query parameter because DBLP PIDs contain a slash.
		r.Post("/profiles/enrich", s.enrichProfile)

		r.Route("/compare/{sessionID}", func(r chi.Router) {
			r.Use(sessionContextMiddleware)
			r.Post("/", s.addToComparison)
			r.Get("/", s.listComparison)
			r.Delete("/", s.removeFromComparison)
		})
	})

	return r
}

// logRequests emits one debug line per handled request.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r)
		s.logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("request_id", observability.RequestIDFromContext(r.Context())).
			Msg("request handled")
	})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.Info().Str("address", s.httpServer.Addr).Msg("HTTP server starting")
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen on HTTP address: %w", err)
	}
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// healthHandler returns basic liveness status.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if s.db == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}
	health := s.db.Health(r.Context())
	if health.Status == "healthy" {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "database": health.Status})
		return
	}
	writeJSON(w, http.StatusServiceUnavailable, map[string]string{
		"status":   "unhealthy",
		"database": health.Status,
		"error":    health.Error,
	})
}

// readinessHandler reports whether the service can reach its database.
func (s *Server) readinessHandler(w http.ResponseWriter, r *http.Request) {
	if s.db != nil {
		health := s.db.Health(r.Context())
		if health.Status != "healthy" {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status":   "not_ready",
				"database": health.Status,
				"error":    health.Error,
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ready",
	})
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Best-effort; headers already sent.
		_ = err
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{
		"error": message,
	})
}
