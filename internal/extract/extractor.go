// Package extract turns uploaded files into page-ordered documents.
package extract

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hyperjump/kotae/internal/models"
)

// Extractor extracts text and image descriptors from document files.
type Extractor struct{}

// NewExtractor returns a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract builds a Document from file content. PDFs keep their page structure;
// DOCX, ODT, and plain text become single-page documents. The extension is
// taken from filename and should include the leading dot.
func (e *Extractor) Extract(content []byte, filename string) (*models.Document, error) {
	var (
		pages []models.Page
		err   error
	)
	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".pdf":
		pages, err = extractPDF(content)
	case ".docx":
		pages, err = singlePage(extractDOCX(content))
	case ".odt":
		pages, err = singlePage(extractODT(content))
	case ".txt", ".md", ".rst", "":
		pages, err = singlePage(extractPlain(content))
	default:
		return nil, fmt.Errorf("unsupported file type: %q", ext)
	}
	if err != nil {
		return nil, err
	}
	return &models.Document{
		ID:       uuid.New().String(),
		Filename: filename,
		Pages:    pages,
		Uploaded: time.Now().UTC(),
	}, nil
}

func singlePage(text string, err error) ([]models.Page, error) {
	if err != nil {
		return nil, err
	}
	return []models.Page{{Number: 1, Text: text}}, nil
}
