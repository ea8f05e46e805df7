// Package keyword provides a per-session in-memory BM25 index over chunk text.
package keyword

import (
	"context"
	"fmt"
	"sort"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"

	"github.com/hyperjump/kotae/internal/models"
)

// Index is an inverted index over one generation's chunks. It is built once
// per upload and never mutated; a re-upload builds a fresh Index.
type Index struct {
	index bleve.Index
}

// Result is a single keyword search hit.
type Result struct {
	ID    string
	Score float64
}

type chunkDoc struct {
	Text string `json:"text"`
}

// NewIndex builds a memory-only BM25 index over the chunks.
func NewIndex(chunks []*models.Chunk) (*Index, error) {
	im := bleve.NewIndexMapping()
	chunkMapping := bleve.NewDocumentMapping()
	textField := bleve.NewTextFieldMapping()
	// Standard analyzer (lowercase + tokenize, no stemming) keeps query terms
	// matching the exact words that appear in the document.
	textField.Analyzer = standard.Name
	chunkMapping.AddFieldMappingsAt("text", textField)
	im.DefaultMapping = chunkMapping

	idx, err := bleve.NewMemOnly(im)
	if err != nil {
		return nil, fmt.Errorf("create keyword index: %w", err)
	}
	batch := idx.NewBatch()
	for _, ch := range chunks {
		if err := batch.Index(ch.ID, chunkDoc{Text: ch.Text}); err != nil {
			return nil, fmt.Errorf("index chunk %s: %w", ch.ID, err)
		}
	}
	if err := idx.Batch(batch); err != nil {
		return nil, fmt.Errorf("commit keyword batch: %w", err)
	}
	return &Index{index: idx}, nil
}

// Search runs a match query and returns up to limit hits, score descending,
// ties broken by chunk ID ascending (chunk IDs sort in chunk order). Chunks
// with no matching terms are never returned.
func (i *Index) Search(ctx context.Context, query string, limit int) ([]*Result, error) {
	if limit <= 0 {
		return nil, nil
	}
	q := bleve.NewMatchQuery(query)
	q.SetField("text")
	req := bleve.NewSearchRequest(q)
	// Over-fetch so ties straddling the cutoff are resolved deterministically.
	req.Size = limit * 2
	res, err := i.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("keyword search: %w", err)
	}
	out := make([]*Result, 0, len(res.Hits))
	for _, hit := range res.Hits {
		out = append(out, &Result{ID: hit.ID, Score: hit.Score})
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].Score != out[b].Score {
			return out[a].Score > out[b].Score
		}
		return out[a].ID < out[b].ID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// DocCount returns the number of indexed chunks.
func (i *Index) DocCount() (uint64, error) {
	return i.index.DocCount()
}

// Close releases the underlying index.
func (i *Index) Close() error {
	return i.index.Close()
}
