// Package document holds clients for the services that turn raw
// statement bytes into something the extraction engine can consume:
// plain text, positioned tokens, and decrypted content. All I/O happens
// here, before the engine runs.
package document

import (
	"fmt"
	"strings"

	"github.com/gen2brain/go-fitz"
)

// TextExtractor pulls the embedded text layer out of a document using
// MuPDF. Scanned documents come back (near) empty; the caller decides
// whether to fall back to OCR.
type TextExtractor struct{}

// NewTextExtractor creates a new TextExtractor.
func NewTextExtractor() *TextExtractor {
	return &TextExtractor{}
}

// ExtractText returns the text of all pages joined by newlines.
func (e *TextExtractor) ExtractText(data []byte) (string, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return "", fmt.Errorf("opening document: %w", err)
	}
	defer doc.Close()

	var pages []string
	for n := 0; n < doc.NumPage(); n++ {
		text, err := doc.Text(n)
		if err != nil {
			return "", fmt.Errorf("extracting text from page %d: %w", n, err)
		}
		if strings.TrimSpace(text) != "" {
			pages = append(pages, text)
		}
	}
	return strings.Join(pages, "\n"), nil
}
