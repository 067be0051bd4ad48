// Package ocr transcribes scanned statements with a vision model. It is
// the last resort for documents without an embedded text layer; the
// transcript feeds the extraction engine's text strategy.
package ocr

import "strings"

// Reader transcribes a statement document into plain text.
type Reader interface {
	// ReadDocument transcribes every page of the document.
	ReadDocument(data []byte, contentType string) (string, error)
	// Close closes the reader and releases resources.
	Close() error
}

// pageTranscriptionPrompt is shared by all vision-model providers.
const pageTranscriptionPrompt = `You are transcribing one page of a bank statement. Read every piece of text on the page and reproduce it as plain text.

Rules:
- Output one printed line of the statement per output line.
- Preserve the left-to-right order of values within each line: date first, then narration, then amounts, with the running balance last.
- Reproduce numbers exactly as printed, including thousands separators and decimal points (e.g. 29,862.82).
- Include header and footer lines such as column headings and "Total Dr Count" / "Total Cr Count" summaries.
- Do not summarize, annotate, translate, or add any text of your own.
- Do not use markdown code blocks.`

// cleanModelText strips the markdown fences models sometimes wrap their
// output in despite instructions.
func cleanModelText(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```text")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}
