package document

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/zombor/statement-extractor/internal/extraction"
)

// Tokenizer calls an external document-to-tokens service that returns
// positioned word boxes per page, running OCR itself for scanned pages.
// The extraction engine only ever sees the resulting token stream.
type Tokenizer struct {
	baseURL string
	client  *http.Client
}

// NewTokenizer creates a new Tokenizer client.
func NewTokenizer(baseURL string) (*Tokenizer, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("tokenizer base URL is required")
	}

	return &Tokenizer{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 120 * time.Second, // OCR of long scanned statements is slow
		},
	}, nil
}

// tokenizeResponse is the wire format of the tokenization service.
type tokenizeResponse struct {
	Tokens []extraction.Token `json:"tokens"`
}

// Tokenize sends the document bytes to the service and returns the
// token stream in reading order.
func (t *Tokenizer) Tokenize(data []byte) ([]extraction.Token, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	url := fmt.Sprintf("%s/tokenize", t.baseURL)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling tokenizer service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("tokenizer service error (status %d): %s", resp.StatusCode, string(body))
	}

	var tr tokenizeResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return tr.Tokens, nil
}
