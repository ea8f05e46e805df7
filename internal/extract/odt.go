package extract

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// odtContentPath is the main content inside an .odt zip (OpenDocument Text).
const odtContentPath = "content.xml"

var odtTextP = regexp.MustCompile(`<text:p[^>]*>([^<]*)</text:p>`)

// extractODT extracts text from .odt bytes. ODT is a ZIP containing
// content.xml; paragraph elements carry the text.
func extractODT(content []byte) (string, error) {
	contentXML, err := zipEntry(content, odtContentPath)
	if err != nil {
		return "", fmt.Errorf("extract ODT: %w", err)
	}
	parts := odtTextP.FindAllStringSubmatch(string(contentXML), -1)
	var b strings.Builder
	for i, p := range parts {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(strings.TrimSpace(p[1]))
	}
	return strings.TrimSpace(b.String()), nil
}

// extractPlain returns content as a string, replacing invalid UTF-8 sequences
// with the replacement character.
func extractPlain(content []byte) (string, error) {
	if !utf8.Valid(content) {
		return strings.ToValidUTF8(string(content), "�"), nil
	}
	return string(content), nil
}
