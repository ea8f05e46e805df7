// Package websearch provides the optional web-search augmentation collaborators.
package websearch

import (
	"context"
	"fmt"
)

// Result is one web search hit.
type Result struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// Searcher issues one external web-search call.
type Searcher interface {
	Search(ctx context.Context, query string, k int) ([]Result, error)
}

// Provider names a supported web-search backend.
type Provider string

const (
	ProviderSerper Provider = "serper"
	ProviderBrave  Provider = "brave"
)

// ErrUnsupportedProvider is returned for unknown provider names.
var ErrUnsupportedProvider = fmt.Errorf("unsupported web search provider")

// New returns a Searcher for the given provider.
func New(provider Provider, apiKey string) (Searcher, error) {
	switch provider {
	case ProviderSerper:
		return &Serper{APIKey: apiKey}, nil
	case ProviderBrave:
		return &Brave{APIKey: apiKey}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedProvider, provider)
	}
}
