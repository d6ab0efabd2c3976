package httpserver

import (
	"github.com/scholarmap/researcher-profile-service/internal/identity"
	"github.com/scholarmap/researcher-profile-service/internal/sources/dblp"
	"github.com/scholarmap/researcher-profile-service/internal/sources/github"
	"github.com/scholarmap/researcher-profile-service/internal/sources/huggingface"
)

// searchResearchersResponse wraps cross-source identity matches.
type searchResearchersResponse struct {
	Query   string           `json:"query"`
	Matches []identity.Match `json:"matches"`
}

// candidateResponse is one DBLP author search hit.
type candidateResponse struct {
	Name         string   `json:"name"`
	PID          string   `json:"pid"`
	URL          string   `json:"url"`
	Affiliations []string `json:"affiliations,omitempty"`
}

type dblpSearchResponse struct {
	Query      string              `json:"query"`
	Candidates []candidateResponse `json:"candidates"`
}

// enrichProfileResponse summarizes one enrichment pass.
type enrichProfileResponse struct {
	PID            string `json:"pid"`
	DOIsConsidered int    `json:"dois_considered"`
	WorksEnriched  int    `json:"works_enriched"`
}

// presenceResponse reports a researcher's footprint on code and model hubs.
// A nil section means the lookup failed or found nothing.
type presenceResponse struct {
	Username    string                 `json:"username"`
	GitHub      *github.Profile        `json:"github,omitempty"`
	HuggingFace *huggingface.Resources `json:"huggingface,omitempty"`
}

// comparisonResponse is the state of one comparison session.
type comparisonResponse struct {
	SessionID string   `json:"session_id"`
	PIDs      []string `json:"pids"`
}

func candidatesToResponse(candidates []dblp.AuthorCandidate) []candidateResponse {
	out := make([]candidateResponse, len(candidates))
	for i, c := range candidates {
		out[i] = candidateResponse{
			Name:         c.Name,
			PID:          c.PID,
			URL:          c.URL,
			Affiliations: c.Affiliations,
		}
	}
	return out
}
