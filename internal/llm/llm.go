// Package llm provides the external language-model collaborators: text
// embedding and answer generation.
package llm

import "context"

// Embedder produces fixed-size vector embeddings for text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
}

// Generator synthesizes an answer from an assembled prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}
