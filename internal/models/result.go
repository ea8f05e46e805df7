package models

// ResultOrigin names the index a retrieval result came from.
type ResultOrigin string

const (
	OriginVector  ResultOrigin = "vector"
	OriginKeyword ResultOrigin = "keyword"
	OriginWeb     ResultOrigin = "web"
)

// RetrievalResult is one scored hit from a single index. Ephemeral, produced
// per query, never persisted.
type RetrievalResult struct {
	ChunkID string
	Score   float64
	Origin  ResultOrigin
}

// ScoredChunk is a fused, ranked chunk returned to the caller.
type ScoredChunk struct {
	Chunk        *Chunk  `json:"chunk"`
	Score        float64 `json:"score"`
	VectorScore  float64 `json:"vector_score"`
	KeywordScore float64 `json:"keyword_score"`
	WebScore     float64 `json:"web_score,omitempty"`
}

// Citation maps an answer back to a source document and the pages that
// informed it. Web sources carry a URL and no pages.
type Citation struct {
	URL      string `json:"url,omitempty"`
	Filename string `json:"filename,omitempty"`
	Pages    []int  `json:"pages"`
}

// ChatResponse is the answer to a ChatRequest.
type ChatResponse struct {
	Answer    string         `json:"answer"`
	Context   []*ScoredChunk `json:"context"`
	Citations []Citation     `json:"sources"`
	SessionID string         `json:"session_id"`
	Query     string         `json:"query"`
	// Warnings lists retrieval signals that failed while the query still
	// answered from the remaining ones (degraded mode).
	Warnings []string `json:"warnings,omitempty"`
}
