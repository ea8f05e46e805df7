package models

import "fmt"

// SearchMode selects which retrieval signals a query uses.
type SearchMode string

const (
	ModeVector  SearchMode = "vector"
	ModeKeyword SearchMode = "keyword"
	ModeHybrid  SearchMode = "hybrid"
)

// ParseSearchMode validates a mode string at the boundary. Unknown values are
// rejected here rather than deep in the ranker. Empty selects hybrid.
func ParseSearchMode(s string) (SearchMode, error) {
	switch SearchMode(s) {
	case ModeVector:
		return ModeVector, nil
	case ModeKeyword:
		return ModeKeyword, nil
	case ModeHybrid, "":
		return ModeHybrid, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrModeUnsupported, s)
	}
}

// ChatRequest is a question against a session's indexed document.
type ChatRequest struct {
	Query           string `json:"query"`
	SessionID       string `json:"session_id"`
	TopK            int    `json:"top_k,omitempty"`
	SearchMode      string `json:"search_mode,omitempty"`
	EnableWebSearch bool   `json:"enable_web_search,omitempty"`
}

// Validate checks required fields and normalizes TopK against the given bounds.
func (r *ChatRequest) Validate(defaultTopK, maxTopK int) error {
	if r.Query == "" {
		return fmt.Errorf("query cannot be empty")
	}
	if r.SessionID == "" {
		return fmt.Errorf("session_id cannot be empty")
	}
	if r.TopK <= 0 {
		r.TopK = defaultTopK
	}
	if r.TopK > maxTopK {
		r.TopK = maxTopK
	}
	return nil
}
