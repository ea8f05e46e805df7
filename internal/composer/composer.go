// Package composer turns ranked chunks into a grounded answer with citations.
package composer

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/llm"
	"github.com/hyperjump/kotae/internal/models"
)

const systemInstruction = `You are a helpful assistant that answers questions based on the provided document context.

IMPORTANT INSTRUCTIONS:
- Answer based ONLY on the information in the context below
- If the context doesn't contain relevant information, say "I don't have enough information to answer that question based on the provided documents."
- Cite sources by mentioning page numbers and document names when possible
- Be concise but comprehensive
- If there's conversation history, use it to understand context but prioritize the latest question`

// Options tunes prompt assembly.
type Options struct {
	// MaxContextChars caps the context section. Chunks are included whole;
	// the first chunk that would overflow the budget stops assembly.
	MaxContextChars int
	// HistoryMessages is how many trailing transcript entries to include.
	HistoryMessages int
}

// Composer assembles prompts and calls the generator.
type Composer struct {
	gen    llm.Generator
	opts   Options
	logger *zap.Logger
}

// New creates a composer. Zero option fields take defaults.
func New(gen llm.Generator, opts Options, logger *zap.Logger) *Composer {
	if opts.MaxContextChars <= 0 {
		opts.MaxContextChars = 8000
	}
	if opts.HistoryMessages <= 0 {
		opts.HistoryMessages = 10
	}
	return &Composer{gen: gen, opts: opts, logger: logger}
}

// Compose builds the prompt from the ranked chunks and recent history, asks
// the generator, and derives citations from the chunks that made it into the
// context. doc may be nil when every chunk is a web pseudo-chunk.
func (c *Composer) Compose(ctx context.Context, query string, doc *models.Document, chunks []*models.ScoredChunk, history []models.ChatMessage) (string, []models.Citation, error) {
	used, contextText := c.buildContext(doc, chunks)
	prompt := c.buildPrompt(query, contextText, history)

	if c.logger != nil {
		c.logger.Debug("composing answer",
			zap.Int("context_chunks", len(used)),
			zap.Int("history_messages", len(history)),
			zap.Int("prompt_chars", len(prompt)))
	}

	answer, err := c.gen.Generate(ctx, prompt)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", models.ErrGeneration, err)
	}
	return answer, c.citations(doc, used), nil
}

// buildContext formats chunks under the character budget and returns the ones
// that were included.
func (c *Composer) buildContext(doc *models.Document, chunks []*models.ScoredChunk) ([]*models.ScoredChunk, string) {
	var parts []string
	var used []*models.ScoredChunk
	total := 0
	for i, sc := range chunks {
		var header string
		if sc.Chunk.SourceURL != "" {
			header = fmt.Sprintf("[Source %d] (Web, %s, Relevance: %.2f)", i+1, sc.Chunk.SourceURL, sc.Score)
		} else {
			filename := "unknown"
			if doc != nil {
				filename = doc.Filename
			}
			header = fmt.Sprintf("[Source %d] (Page %d, %s, Relevance: %.2f)", i+1, sc.Chunk.Page, filename, sc.Score)
		}
		part := "\n" + header + "\n" + sc.Chunk.Text + "\n"
		if total+len(part) > c.opts.MaxContextChars {
			break
		}
		parts = append(parts, part)
		used = append(used, sc)
		total += len(part)
	}
	return used, strings.Join(parts, "\n")
}

func (c *Composer) buildPrompt(query, contextText string, history []models.ChatMessage) string {
	var b strings.Builder
	b.WriteString(systemInstruction)
	b.WriteString("\n")

	if len(history) > 0 {
		if n := c.opts.HistoryMessages; len(history) > n {
			history = history[len(history)-n:]
		}
		b.WriteString("\nPrevious conversation:\n")
		for _, m := range history {
			if m.Role == "user" {
				b.WriteString("User: ")
			} else {
				b.WriteString("Assistant: ")
			}
			b.WriteString(m.Content)
			b.WriteString("\n")
		}
	}

	b.WriteString("\nRELEVANT CONTEXT FROM DOCUMENTS:\n")
	b.WriteString(contextText)
	b.WriteString("\n\nCURRENT QUESTION: ")
	b.WriteString(query)
	b.WriteString("\n\nANSWER:")
	return b.String()
}

// citations groups included chunks by source in first-appearance order.
// Document chunks contribute distinct page numbers, sorted ascending; web
// chunks contribute their URL only.
func (c *Composer) citations(doc *models.Document, used []*models.ScoredChunk) []models.Citation {
	var order []string
	pages := make(map[string]map[int]bool)
	urls := make(map[string]bool)

	for _, sc := range used {
		if sc.Chunk.SourceURL != "" {
			key := "web:" + sc.Chunk.SourceURL
			if !urls[key] {
				urls[key] = true
				order = append(order, key)
			}
			continue
		}
		key := "doc:" + sc.Chunk.DocumentID
		if pages[key] == nil {
			pages[key] = make(map[int]bool)
			order = append(order, key)
		}
		pages[key][sc.Chunk.Page] = true
	}

	out := make([]models.Citation, 0, len(order))
	for _, key := range order {
		if strings.HasPrefix(key, "web:") {
			out = append(out, models.Citation{URL: strings.TrimPrefix(key, "web:")})
			continue
		}
		cit := models.Citation{}
		if doc != nil {
			cit.Filename = doc.Filename
			cit.URL = doc.URL
		}
		for p := range pages[key] {
			cit.Pages = append(cit.Pages, p)
		}
		sort.Ints(cit.Pages)
		out = append(out, cit)
	}
	return out
}
