// Package chunker splits extracted document pages into retrievable chunks.
package chunker

import (
	"fmt"
	"strings"

	"github.com/hyperjump/kotae/internal/models"
)

// Options tunes the smart strategy. The fast strategy ignores everything
// except text normalization.
type Options struct {
	// MaxChunkTokens caps the target chunk size, in approximate tokens.
	MaxChunkTokens int
	// MinChunkChars is the page length below which a page becomes a single chunk.
	MinChunkChars int
	// OverlapSentences is the number of trailing sentences of a chunk repeated
	// at the start of the next chunk on the same page.
	OverlapSentences int
	// MinPerPage and MaxPerPage bound the smart chunk count per non-empty page.
	MinPerPage int
	MaxPerPage int
}

// DefaultOptions mirrors the config defaults.
func DefaultOptions() Options {
	return Options{
		MaxChunkTokens:   400,
		MinChunkChars:    300,
		OverlapSentences: 1,
		MinPerPage:       3,
		MaxPerPage:       5,
	}
}

// approximate characters per token for budget math
const charsPerToken = 4

// Chunker splits document pages under a chosen strategy.
type Chunker struct {
	opts Options
}

// NewChunker creates a chunker. Zero fields in opts fall back to defaults.
func NewChunker(opts Options) *Chunker {
	def := DefaultOptions()
	if opts.MaxChunkTokens <= 0 {
		opts.MaxChunkTokens = def.MaxChunkTokens
	}
	if opts.MinChunkChars <= 0 {
		opts.MinChunkChars = def.MinChunkChars
	}
	if opts.OverlapSentences < 0 {
		opts.OverlapSentences = def.OverlapSentences
	}
	if opts.MinPerPage <= 0 {
		opts.MinPerPage = def.MinPerPage
	}
	if opts.MaxPerPage < opts.MinPerPage {
		opts.MaxPerPage = def.MaxPerPage
	}
	return &Chunker{opts: opts}
}

// Chunk splits a document's pages into ordered chunks. Empty pages yield no
// chunks. Chunk IDs are zero-padded so lexicographic ID order equals chunk order.
func (c *Chunker) Chunk(doc *models.Document, strategy models.ChunkStrategy) ([]*models.Chunk, error) {
	switch strategy {
	case models.StrategyFast:
		return c.pageWise(doc), nil
	case models.StrategySmart:
		return c.semantic(doc), nil
	default:
		return nil, fmt.Errorf("unknown chunk strategy %q", strategy)
	}
}

// pageWise produces exactly one chunk per non-empty page.
func (c *Chunker) pageWise(doc *models.Document) []*models.Chunk {
	chunks := make([]*models.Chunk, 0, len(doc.Pages))
	for _, page := range doc.Pages {
		text := Normalize(page.Text)
		if text == "" {
			continue
		}
		chunks = append(chunks, c.newChunk(doc.ID, page.Number, text, 0, models.StrategyFast, len(chunks)))
	}
	return chunks
}

// semantic splits each non-empty page into MinPerPage..MaxPerPage chunks along
// sentence boundaries. A page shorter than MinChunkChars yields one chunk.
// Adjacent chunks within a page overlap by OverlapSentences sentences; the
// overlap run length is recorded so the page text stays reconstructible.
func (c *Chunker) semantic(doc *models.Document) []*models.Chunk {
	var chunks []*models.Chunk
	for _, page := range doc.Pages {
		text := Normalize(page.Text)
		if text == "" {
			continue
		}
		sentences := SplitSentences(text)
		if len(text) < c.opts.MinChunkChars || len(sentences) < c.opts.MinPerPage {
			chunks = append(chunks, c.newChunk(doc.ID, page.Number, text, 0, models.StrategySmart, len(chunks)))
			continue
		}
		groups := c.groupSentences(sentences)
		for gi, group := range groups {
			core := strings.Join(group, " ")
			overlap := ""
			if gi > 0 && c.opts.OverlapSentences > 0 {
				prev := groups[gi-1]
				from := len(prev) - c.opts.OverlapSentences
				if from < 0 {
					from = 0
				}
				overlap = strings.Join(prev[from:], " ") + " "
			}
			chunks = append(chunks, c.newChunk(doc.ID, page.Number, overlap+core, len(overlap), models.StrategySmart, len(chunks)))
		}
	}
	return chunks
}

// groupSentences partitions sentences into n contiguous groups of roughly
// equal character length, where n is derived from the token budget and
// clamped to [MinPerPage, MaxPerPage] and the sentence count.
func (c *Chunker) groupSentences(sentences []string) [][]string {
	total := 0
	for _, s := range sentences {
		total += len(s) + 1
	}
	budget := c.opts.MaxChunkTokens * charsPerToken
	n := (total + budget - 1) / budget
	if n < c.opts.MinPerPage {
		n = c.opts.MinPerPage
	}
	if n > c.opts.MaxPerPage {
		n = c.opts.MaxPerPage
	}
	if n > len(sentences) {
		n = len(sentences)
	}

	groups := make([][]string, 0, n)
	idx := 0
	remainingLen := total
	for g := 0; g < n; g++ {
		groupsLeft := n - g
		// The target tracks what is actually left, so one oversized sentence
		// cannot starve the groups after it.
		target := remainingLen / groupsLeft
		var cur []string
		curLen := 0
		for idx < len(sentences) {
			// Keep one sentence behind for each group still to come.
			if len(cur) > 0 && len(sentences)-idx <= groupsLeft-1 {
				break
			}
			cur = append(cur, sentences[idx])
			curLen += len(sentences[idx]) + 1
			idx++
			if groupsLeft > 1 && curLen >= target && len(sentences)-idx >= groupsLeft-1 {
				break
			}
		}
		remainingLen -= curLen
		groups = append(groups, cur)
	}
	return groups
}

func (c *Chunker) newChunk(docID string, page int, text string, overlap int, strategy models.ChunkStrategy, index int) *models.Chunk {
	return &models.Chunk{
		ID:         ChunkID(docID, index),
		DocumentID: docID,
		Page:       page,
		Text:       text,
		Overlap:    overlap,
		Strategy:   strategy,
		Index:      index,
	}
}

// ChunkID builds a chunk identifier whose lexicographic order matches chunk order.
func ChunkID(docID string, index int) string {
	return fmt.Sprintf("%s_%04d", docID, index)
}
