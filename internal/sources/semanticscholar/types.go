package semanticscholar

// Author is one researcher record from the graph API. PaperTitles is
// populated only by SearchAuthors, which requests paper titles for
// cross-source identity matching.
type Author struct {
	AuthorID      string   `json:"authorId"`
	Name          string   `json:"name"`
	URL           string   `json:"url"`
	Affiliations  []string `json:"affiliations"`
	PaperCount    int      `json:"paperCount"`
	HIndex        int      `json:"hIndex"`
	CitationCount int      `json:"citationCount"`
	PaperTitles   []string `json:"paperTitles,omitempty"`
}

// Paper is one publication record from the graph API.
type Paper struct {
	PaperID       string        `json:"paperId"`
	URL           string        `json:"url"`
	Title         string        `json:"title"`
	Year          int           `json:"year"`
	Authors       []PaperAuthor `json:"authors"`
	Abstract      string        `json:"abstract,omitempty"`
	Venue         string        `json:"venue"`
	CitationCount int           `json:"citationCount"`
	FieldsOfStudy []string      `json:"fieldsOfStudy,omitempty"`
}

// PaperAuthor is an author reference on a paper record.
type PaperAuthor struct {
	AuthorID string `json:"id,omitempty"`
	Name     string `json:"name"`
}

// PaperCandidate is one hit from the paper search endpoint. Year and
// CitationCount stay pointers because the API reports them as null when
// unknown, and scoring treats "unknown" differently from zero.
type PaperCandidate struct {
	PaperID       string
	Title         string
	Year          *int
	Authors       []string
	CitationCount *int
}

// Wire types below mirror the graph API responses.

type paperSearchResponse struct {
	Total int           `json:"total"`
	Data  []paperResult `json:"data"`
}

type authorSearchResponse struct {
	Data []authorResult `json:"data"`
}

type authorPapersResponse struct {
	Data []paperResult `json:"data"`
}

type paperResult struct {
	PaperID       string      `json:"paperId"`
	URL           string      `json:"url"`
	Title         string      `json:"title"`
	Year          *int        `json:"year"`
	Abstract      *string     `json:"abstract"`
	Venue         string      `json:"venue"`
	CitationCount *int        `json:"citationCount"`
	FieldsOfStudy []string    `json:"fieldsOfStudy"`
	Authors       []apiAuthor `json:"authors"`
}

type apiAuthor struct {
	AuthorID string `json:"authorId"`
	Name     string `json:"name"`
}

type authorResult struct {
	AuthorID      string   `json:"authorId"`
	Name          string   `json:"name"`
	URL           string   `json:"url"`
	Affiliations  []string `json:"affiliations"`
	PaperCount    *int     `json:"paperCount"`
	HIndex        *int     `json:"hIndex"`
	CitationCount *int     `json:"citationCount"`
	Papers        []struct {
		Title string `json:"title"`
		Year  *int   `json:"year"`
	} `json:"papers"`
}

type batchResult struct {
	PaperID       string `json:"paperId"`
	CitationCount *int   `json:"citationCount"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
