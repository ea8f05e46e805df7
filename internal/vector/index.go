// Package vector provides nearest-neighbor lookup over chunk embeddings.
// The retrieval core only consumes the Index interface; implementations may
// be in-process or remote.
package vector

import "context"

// Index defines vector storage and similarity search for one index generation.
// Entries are immutable once written; a re-upload builds a fresh Index.
type Index interface {
	Add(ctx context.Context, ids []string, vectors [][]float32) error
	Search(ctx context.Context, query []float32, k int) ([]*Result, error)
	Size() int
	Close() error
}

// Result is a single vector search hit. ID is the chunk ID.
type Result struct {
	ID    string
	Score float64 // inner product; equals cosine similarity for normalized vectors
}
