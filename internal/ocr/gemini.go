package ocr

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// Gemini implements the Reader interface using Google Gemini.
type Gemini struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// NewGemini creates a new Gemini Reader instance.
func NewGemini(apiKey string, modelName string) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if modelName == "" {
		modelName = "gemini-2.5-pro"
	}

	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	return &Gemini{
		client: client,
		model:  client.GenerativeModel(modelName),
	}, nil
}

// ReadDocument transcribes every page of the document and joins the
// page transcripts with newlines.
func (g *Gemini) ReadDocument(data []byte, contentType string) (string, error) {
	pages, err := documentToImages(data, contentType)
	if err != nil {
		return "", err
	}

	var transcripts []string
	for n, page := range pages {
		text, err := g.readPage(page)
		if err != nil {
			return "", fmt.Errorf("transcribing page %d: %w", n, err)
		}
		transcripts = append(transcripts, text)
	}
	return strings.Join(transcripts, "\n"), nil
}

func (g *Gemini) readPage(pngData []byte) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	// documentToImages always yields PNG, and genai.ImageData expects
	// just the format suffix.
	parts := []genai.Part{
		genai.ImageData("png", pngData),
		genai.Text(pageTranscriptionPrompt),
	}

	resp, err := g.model.GenerateContent(ctx, parts...)
	if err != nil {
		return "", fmt.Errorf("generating content: %w", err)
	}
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no response from gemini")
	}

	var responseText strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			responseText.WriteString(string(text))
		}
	}
	return cleanModelText(responseText.String()), nil
}

// Close closes the Gemini client.
func (g *Gemini) Close() error {
	return g.client.Close()
}
