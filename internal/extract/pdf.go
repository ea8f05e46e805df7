package extract

import (
	"bytes"
	"fmt"

	"github.com/ledongthuc/pdf"

	"github.com/hyperjump/kotae/internal/models"
)

// extractPDF returns one Page per PDF page, in order, with image descriptors
// taken from the page's XObject resources. Pages that fail text extraction
// fail the whole document; a partially indexed document would silently lose
// coverage.
func extractPDF(content []byte) ([]models.Page, error) {
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("open PDF: %w", err)
	}
	numPages := r.NumPage()
	pages := make([]models.Page, 0, numPages)
	for i := 1; i <= numPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			pages = append(pages, models.Page{Number: i})
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("extract page %d: %w", i, err)
		}
		pages = append(pages, models.Page{
			Number: i,
			Text:   text,
			Images: pageImages(page),
		})
	}
	return pages, nil
}

// pageImages lists the image XObjects referenced by a page. Placement on the
// page is not resolved; the descriptor carries intrinsic dimensions only.
func pageImages(page pdf.Page) []models.ImageRef {
	xobjects := page.V.Key("Resources").Key("XObject")
	if xobjects.IsNull() {
		return nil
	}
	var images []models.ImageRef
	for _, name := range xobjects.Keys() {
		xo := xobjects.Key(name)
		if xo.IsNull() || xo.Key("Subtype").Name() != "Image" {
			continue
		}
		images = append(images, models.ImageRef{
			Width:  int(xo.Key("Width").Int64()),
			Height: int(xo.Key("Height").Int64()),
			Type:   "unknown",
		})
	}
	return images
}
