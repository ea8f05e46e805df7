// Package models defines core data structures for documents, chunks, queries, and answers.
package models

import "time"

// Document is an uploaded document owned by a session. Pages are ordered 1..N.
type Document struct {
	ID       string    `json:"id"`
	Filename string    `json:"filename"`
	URL      string    `json:"url,omitempty"`
	Pages    []Page    `json:"pages"`
	Uploaded time.Time `json:"uploaded_at"`
}

// Page is one page of a document: raw text plus any extracted image descriptors.
// Images are citation targets but are never chunked into text.
type Page struct {
	Number int        `json:"page_num"`
	Text   string     `json:"text"`
	Images []ImageRef `json:"images,omitempty"`
}

// ImageRef describes an image found on a page.
type ImageRef struct {
	BBox   [4]float64 `json:"bbox"`
	Width  int        `json:"width"`
	Height int        `json:"height"`
	Type   string     `json:"type"` // chart, diagram, photo, or unknown
}

// ChunkStrategy selects how a document is split into chunks.
type ChunkStrategy string

const (
	// StrategyFast produces one chunk per non-empty page. No external calls.
	StrategyFast ChunkStrategy = "fast"
	// StrategySmart splits pages along sentence boundaries into 3-5 chunks per page.
	StrategySmart ChunkStrategy = "smart"
)

// ParseChunkStrategy validates a strategy string at the boundary.
// An empty string selects the fast path.
func ParseChunkStrategy(s string) (ChunkStrategy, bool) {
	switch ChunkStrategy(s) {
	case StrategyFast, "":
		return StrategyFast, true
	case StrategySmart:
		return StrategySmart, true
	default:
		return "", false
	}
}

// Chunk is the minimal retrievable unit of document text. Every chunk maps to
// exactly one page of exactly one document.
type Chunk struct {
	ID         string `json:"id"`
	DocumentID string `json:"document_id"`
	Page       int    `json:"page_num"`
	Text       string `json:"text"`
	// Overlap is the length in bytes of the leading run of Text repeated from
	// the tail of the previous chunk. Stripping it from every chunk but a
	// page's first reconstructs the page text.
	Overlap  int           `json:"-"`
	Strategy ChunkStrategy `json:"strategy"`
	Index    int           `json:"chunk_index"`
	// SourceURL is set on web pseudo-chunks (no document, no page).
	SourceURL string `json:"source_url,omitempty"`
}

// Core returns the chunk text without its leading overlap run.
func (c *Chunk) Core() string {
	if c.Overlap <= 0 || c.Overlap > len(c.Text) {
		return c.Text
	}
	return c.Text[c.Overlap:]
}

// UploadStats summarizes an index build, returned by the upload boundary.
type UploadStats struct {
	SessionID  string        `json:"session_id"`
	DocumentID string        `json:"doc_id"`
	Filename   string        `json:"filename"`
	Pages      int           `json:"total_pages"`
	Images     int           `json:"total_images"`
	Chunks     int           `json:"total_chunks"`
	Strategy   ChunkStrategy `json:"chunk_strategy"`
}
