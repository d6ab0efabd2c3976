package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/scholarmap/researcher-profile-service/internal/domain"
	"github.com/scholarmap/researcher-profile-service/internal/enrichment"
	"github.com/scholarmap/researcher-profile-service/internal/identity"
	"github.com/scholarmap/researcher-profile-service/internal/observability"
	"github.com/scholarmap/researcher-profile-service/internal/sources"
)

// Validation constants.
const (
	minQueryLength     = 2
	maxQueryLength     = 500
	maxRequestBodySize = 1 << 20 // 1 MB limit for request bodies

	// defaultRetryAfter is advertised when an upstream throttles us without
	// saying for how long.
	defaultRetryAfter = 60
)

// searchResearchers handles GET /researchers/search?query=.
// It fuses Semantic Scholar author hits with their best-matching DBLP identity.
func (s *Server) searchResearchers(w http.ResponseWriter, r *http.Request) {
	query, ok := parseQueryParam(w, r)
	if !ok {
		return
	}

	matches, err := s.identity.Search(r.Context(), query)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	if matches == nil {
		matches = []identity.Match{}
	}

	writeJSON(w, http.StatusOK, searchResearchersResponse{
		Query:   query,
		Matches: matches,
	})
}

// searchDBLPAuthors handles GET /researchers/dblp-search?query=.
func (s *Server) searchDBLPAuthors(w http.ResponseWriter, r *http.Request) {
	query, ok := parseQueryParam(w, r)
	if !ok {
		return
	}

	candidates, err := s.candidates.SearchAuthors(r.Context(), query)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dblpSearchResponse{
		Query:      query,
		Candidates: candidatesToResponse(candidates),
	})
}

// getProfile handles GET /researchers/profile?pid=.
// With metrics=true the response carries the bibliometric snapshot.
func (s *Server) getProfile(w http.ResponseWriter, r *http.Request) {
	pid := strings.TrimSpace(r.URL.Query().Get("pid"))
	if pid == "" {
		writeError(w, http.StatusBadRequest, "pid is required")
		return
	}
	withMetrics := r.URL.Query().Get("metrics") == "true"

	view, err := s.profiles.FetchProfile(r.Context(), pid, withMetrics)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, view)
}

// getAuthor handles GET /authors/{authorID}.
func (s *Server) getAuthor(w http.ResponseWriter, r *http.Request) {
	authorID := chi.URLParam(r, "authorID")

	author, err := s.scholar.GetAuthor(r.Context(), authorID)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, author)
}

// getAuthorPapers handles GET /authors/{authorID}/papers.
func (s *Server) getAuthorPapers(w http.ResponseWriter, r *http.Request) {
	authorID := chi.URLParam(r, "authorID")

	papers, err := s.scholar.AuthorPapers(r.Context(), authorID)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"author_id": authorID,
		"papers":    papers,
	})
}

// getPaper handles GET /papers/{paperID}.
func (s *Server) getPaper(w http.ResponseWriter, r *http.Request) {
	paperID := chi.URLParam(r, "paperID")

	paper, err := s.scholar.GetPaper(r.Context(), paperID)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, paper)
}

// getPresence handles GET /researchers/presence?username=.
// Lookups are best-effort: a failed source is omitted rather than failing
// the request, since the username-to-researcher association is only a guess
// the caller has already made.
func (s *Server) getPresence(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	username := strings.TrimSpace(r.URL.Query().Get("username"))
	if username == "" {
		writeError(w, http.StatusBadRequest, "username is required")
		return
	}

	resp := presenceResponse{Username: username}

	if s.code != nil {
		codeProfile, err := s.code.UserProfile(ctx, username)
		if err != nil {
			s.logger.Warn().Err(err).Str("username", username).Msg("code hub lookup failed")
		} else {
			resp.GitHub = codeProfile
		}
	}

	if s.modelHub != nil {
		resources, err := s.modelHub.UserResources(ctx, username)
		if err != nil {
			s.logger.Warn().Err(err).Str("username", username).Msg("model hub lookup failed")
		} else {
			resp.HuggingFace = resources
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// enrichProfile handles POST /profiles/enrich?pid=.
// It runs one enrichment pass over the DOIs found in the stored profile's
// publication links, folding citation counts and abstracts back into the
// persisted record. An upstream throttle aborts the pass with 503.
func (s *Server) enrichProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	pid := strings.TrimSpace(r.URL.Query().Get("pid"))
	if pid == "" {
		writeError(w, http.StatusBadRequest, "pid is required")
		return
	}

	stored, err := s.repo.GetByPID(ctx, pid)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	// Map each DOI back to the publications that carry it.
	doiToPubs := make(map[string][]int)
	var dois []string
	for i := range stored.Publications {
		for _, doi := range enrichment.ExtractDOIs(stored.Publications[i].Links) {
			if _, seen := doiToPubs[doi]; !seen {
				dois = append(dois, doi)
			}
			doiToPubs[doi] = append(doiToPubs[doi], i)
		}
	}

	if len(dois) == 0 {
		writeJSON(w, http.StatusOK, enrichProfileResponse{PID: pid})
		return
	}

	supplements, err := s.enricher.FetchSupplementary(ctx, dois)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	enriched := 0
	for doi, supplement := range supplements {
		for _, i := range doiToPubs[doi] {
			pub := &stored.Publications[i]
			pub.CitationCount = supplement.CitedByCount
			if pub.Abstract == "" {
				pub.Abstract = supplement.Abstract
			}
			enriched++
		}
	}

	if enriched > 0 {
		if _, err := s.repo.Upsert(ctx, stored); err != nil {
			s.writeDomainError(w, fmt.Errorf("persisting enriched profile: %w", err))
			return
		}
	}

	writeJSON(w, http.StatusOK, enrichProfileResponse{
		PID:            pid,
		DOIsConsidered: len(dois),
		WorksEnriched:  enriched,
	})
}

// addToComparisonRequest is the JSON body for adding a researcher to a
// comparison session.
type addToComparisonRequest struct {
	PID string `json:"pid"`
}

// addToComparison handles POST /compare/{sessionID}.
func (s *Server) addToComparison(w http.ResponseWriter, r *http.Request) {
	sessionID := observability.SessionIDFromContext(r.Context())

	defer r.Body.Close()
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBodySize))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}
	var req addToComparisonRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON request body")
		return
	}

	if err := s.sessions.Add(sessionID, req.PID); err != nil {
		s.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, comparisonResponse{
		SessionID: sessionID,
		PIDs:      s.sessions.List(sessionID),
	})
}

// listComparison handles GET /compare/{sessionID}.
func (s *Server) listComparison(w http.ResponseWriter, r *http.Request) {
	sessionID := observability.SessionIDFromContext(r.Context())

	pids := s.sessions.List(sessionID)
	if pids == nil {
		pids = []string{}
	}

	writeJSON(w, http.StatusOK, comparisonResponse{
		SessionID: sessionID,
		PIDs:      pids,
	})
}

// removeFromComparison handles DELETE /compare/{sessionID}.
// With ?pid= one researcher is removed; without it the session is cleared.
func (s *Server) removeFromComparison(w http.ResponseWriter, r *http.Request) {
	sessionID := observability.SessionIDFromContext(r.Context())

	if pid := r.URL.Query().Get("pid"); pid != "" {
		s.sessions.Remove(sessionID, pid)
	} else {
		s.sessions.Clear(sessionID)
	}

	pids := s.sessions.List(sessionID)
	if pids == nil {
		pids = []string{}
	}
	writeJSON(w, http.StatusOK, comparisonResponse{
		SessionID: sessionID,
		PIDs:      pids,
	})
}

// writeDomainError maps domain errors to HTTP status codes and writes a JSON
// error response. Internal error details are not leaked to clients.
func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	if err == nil {
		return
	}

	var rateErr *domain.RateLimitError
	var retryErr *sources.RetryExhaustedError

	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "resource not found")
	case errors.Is(err, domain.ErrSourceEmpty):
		writeError(w, http.StatusNotFound, "no records for the requested identity")
	case errors.Is(err, domain.ErrInvalidInput):
		var ve *domain.ValidationError
		if errors.As(err, &ve) {
			writeError(w, http.StatusBadRequest, ve.Error())
		} else {
			writeError(w, http.StatusBadRequest, "invalid input")
		}
	case errors.As(err, &rateErr):
		retryAfter := defaultRetryAfter
		if rateErr.RetryAfter > 0 {
			retryAfter = int(rateErr.RetryAfter.Seconds())
		}
		w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
		writeError(w, http.StatusServiceUnavailable, "upstream rate limited, retry later")
	case errors.Is(err, domain.ErrRateLimited):
		w.Header().Set("Retry-After", strconv.Itoa(defaultRetryAfter))
		writeError(w, http.StatusServiceUnavailable, "upstream rate limited, retry later")
	case errors.Is(err, domain.ErrServiceUnavailable):
		writeError(w, http.StatusServiceUnavailable, "service unavailable")
	case errors.As(err, &retryErr):
		writeError(w, http.StatusBadGateway, "upstream source unavailable")
	default:
		var apiErr *domain.ExternalAPIError
		if errors.As(err, &apiErr) {
			writeError(w, http.StatusBadGateway, "upstream source error")
			return
		}
		s.logger.Error().Err(err).Msg("unhandled error")
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// parseQueryParam extracts and validates the query search parameter, writing
// a 400 response when it is missing or out of bounds.
func parseQueryParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	query := strings.TrimSpace(r.URL.Query().Get("query"))
	if query == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return "", false
	}
	if len(query) < minQueryLength {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("query must be at least %d characters", minQueryLength))
		return "", false
	}
	if len(query) > maxQueryLength {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("query must be at most %d characters", maxQueryLength))
		return "", false
	}
	return query, true
}
