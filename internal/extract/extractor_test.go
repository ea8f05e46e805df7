package extract

import (
	"archive/zip"
	"bytes"
	"strings"
	"testing"
)

func zipBytes(t *testing.T, name, content string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create(name)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestExtract_plain(t *testing.T) {
	e := NewExtractor()
	doc, err := e.Extract([]byte("Hello world\nLine 2"), "notes.txt")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if doc.ID == "" {
		t.Error("document ID not assigned")
	}
	if doc.Filename != "notes.txt" {
		t.Errorf("filename = %q", doc.Filename)
	}
	if len(doc.Pages) != 1 {
		t.Fatalf("expected 1 page, got %d", len(doc.Pages))
	}
	if doc.Pages[0].Number != 1 || doc.Pages[0].Text != "Hello world\nLine 2" {
		t.Errorf("page = %+v", doc.Pages[0])
	}
}

func TestExtract_plainInvalidUTF8(t *testing.T) {
	e := NewExtractor()
	doc, err := e.Extract([]byte("hello\x80world"), "raw.md")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if doc.Pages[0].Text != "hello�world" {
		t.Errorf("got %q", doc.Pages[0].Text)
	}
}

func TestExtract_unsupportedType(t *testing.T) {
	e := NewExtractor()
	for _, name := range []string{"archive.tar.gz", "letter.rtf"} {
		_, err := e.Extract([]byte(`{\rtf1 hello}`), name)
		if err == nil {
			t.Fatalf("%s: expected error for unsupported extension", name)
		}
		if !strings.Contains(err.Error(), "unsupported file type") {
			t.Errorf("%s: err = %v, want unsupported file type", name, err)
		}
	}
}

func TestExtractDOCX(t *testing.T) {
	docXML := `<?xml version="1.0"?>
<w:document><w:body>
<w:p w:rsidR="00A"><w:r><w:t>First paragraph.</w:t></w:r></w:p>
<w:p><w:r><w:t xml:space="preserve">Second </w:t></w:r><w:r><w:t>run.</w:t></w:r></w:p>
</w:body></w:document>`
	content := zipBytes(t, "word/document.xml", docXML)

	got, err := extractDOCX(content)
	if err != nil {
		t.Fatalf("extractDOCX: %v", err)
	}
	if got != "First paragraph. Second run." {
		t.Errorf("got %q", got)
	}
}

func TestExtractDOCX_notAZip(t *testing.T) {
	if _, err := extractDOCX([]byte("plain text")); err == nil {
		t.Fatal("expected error for non-zip input")
	}
}

func TestExtractODT(t *testing.T) {
	contentXML := `<?xml version="1.0"?>
<office:document-content>
<text:p text:style-name="P1">Opening line.</text:p>
<text:p>Closing line.</text:p>
</office:document-content>`
	content := zipBytes(t, "content.xml", contentXML)

	got, err := extractODT(content)
	if err != nil {
		t.Fatalf("extractODT: %v", err)
	}
	if got != "Opening line. Closing line." {
		t.Errorf("got %q", got)
	}
}

func TestExtractPDF_invalid(t *testing.T) {
	if _, err := extractPDF([]byte("not a pdf")); err == nil {
		t.Fatal("expected error for invalid PDF bytes")
	}
}
