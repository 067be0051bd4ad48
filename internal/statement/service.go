// Package statement ties the pieces together: it accepts uploaded bank
// statements, runs them through the extraction engine, and persists the
// results alongside the original document.
package statement

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/zombor/statement-extractor/internal/extraction"
	"github.com/zombor/statement-extractor/internal/ocr"
)

// minTextLength is the threshold below which an extracted text layer is
// treated as absent (scanned document) and OCR kicks in.
const minTextLength = 100

// ErrDecryptFailed wraps decryption failures, usually a wrong password.
var ErrDecryptFailed = errors.New("decryption failed")

// Extractor runs the transaction extraction chain over a document's
// tokens and text.
type Extractor interface {
	Extract(in extraction.Input) (*extraction.Result, error)
}

// Tokenizer turns document bytes into positioned word tokens.
type Tokenizer interface {
	Tokenize(data []byte) ([]extraction.Token, error)
}

// TextExtractor pulls the embedded text layer out of a document.
type TextExtractor interface {
	ExtractText(data []byte) (string, error)
}

// Decrypter removes password protection from document bytes.
type Decrypter interface {
	Decrypt(data []byte, password string) ([]byte, error)
}

// IDGenerator generates unique IDs for statements
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

// defaultIDGenerator generates IDs using UnixNano timestamp
type defaultIDGenerator struct{}

func (g *defaultIDGenerator) Generate() string {
	return fmt.Sprintf("%d", time.Now().UnixNano())
}

// defaultTimeSource provides the current time
type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Service handles statement operations
type Service struct {
	db          DB
	storage     Storage
	extractor   Extractor
	tokenizer   Tokenizer
	text        TextExtractor
	decrypter   Decrypter
	reader      ocr.Reader // optional OCR fallback, may be nil
	idGenerator IDGenerator
	timeSource  TimeSource
}

// NewService creates a new Service with default ID generator and time source
func NewService(db DB, storage Storage, extractor Extractor, tokenizer Tokenizer, text TextExtractor, decrypter Decrypter, reader ocr.Reader) *Service {
	return &Service{
		db:          db,
		storage:     storage,
		extractor:   extractor,
		tokenizer:   tokenizer,
		text:        text,
		decrypter:   decrypter,
		reader:      reader,
		idGenerator: &defaultIDGenerator{},
		timeSource:  &defaultTimeSource{},
	}
}

// NewServiceWithDeps creates a new Service with custom dependencies for testing
func NewServiceWithDeps(db DB, storage Storage, extractor Extractor, tokenizer Tokenizer, text TextExtractor, decrypter Decrypter, reader ocr.Reader, idGen IDGenerator, timeSrc TimeSource) *Service {
	return &Service{
		db:          db,
		storage:     storage,
		extractor:   extractor,
		tokenizer:   tokenizer,
		text:        text,
		decrypter:   decrypter,
		reader:      reader,
		idGenerator: idGen,
		timeSource:  timeSrc,
	}
}

// sanitizeFilename cleans up a filename by removing special characters and truncating length
func sanitizeFilename(filename string) string {
	// Get the extension
	ext := filepath.Ext(filename)
	base := strings.TrimSuffix(filename, ext)

	// Remove special characters, keep only alphanumeric, spaces, hyphens, and underscores
	reg := regexp.MustCompile(`[^a-zA-Z0-9\s\-_]`)
	base = reg.ReplaceAllString(base, "")

	// Replace multiple spaces with single space
	reg = regexp.MustCompile(`\s+`)
	base = reg.ReplaceAllString(base, " ")

	// Trim spaces
	base = strings.TrimSpace(base)

	// Truncate to reasonable length (50 chars for base, plus extension)
	maxLen := 50
	if len(base) > maxLen {
		base = base[:maxLen]
	}

	// If base is empty after sanitization, use a default
	if base == "" {
		base = "statement"
	}

	return base + ext
}

// ProcessStatement uploads a statement, extracts its transactions, and
// saves both. Password-protected documents are decrypted first so the
// stored file is readable later.
func (s *Service) ProcessStatement(filename string, data []byte, contentType string, password string) (*Statement, error) {
	id := s.idGenerator.Generate()
	now := s.timeSource.Now()

	if password != "" {
		decrypted, err := s.decrypter.Decrypt(data, password)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDecryptFailed, err)
		}
		data = decrypted
	}

	// Sanitize filename to clean up bank-portal download names
	cleanFilename := sanitizeFilename(filename)

	savedPath, err := s.storage.Save(fmt.Sprintf("%s_%s", id, cleanFilename), data)
	if err != nil {
		return nil, fmt.Errorf("saving file: %w", err)
	}

	result, err := s.extract(filename, data, contentType)
	if err != nil {
		slog.Error("Failed to extract transactions",
			"filename", filename,
			"content_type", contentType,
			"file_size", len(data),
			"error", err,
		)
		// Clean up the saved file since extraction failed
		s.storage.Delete(savedPath)
		return nil, err
	}

	method := ""
	if len(result.Attempts) > 0 {
		method = result.Attempts[len(result.Attempts)-1].Method
	}

	statement := &Statement{
		ID:           id,
		Filename:     savedPath,
		ContentType:  contentType,
		Method:       method,
		Transactions: result.Transactions,
		Validation:   result.Validation,
		Attempts:     result.Attempts,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.db.SaveStatement(statement); err != nil {
		// Clean up file if database save fails
		s.storage.Delete(savedPath)
		return nil, fmt.Errorf("saving statement to database: %w", err)
	}

	return statement, nil
}

// extract gathers tokens and text for the document and runs the engine.
// Token and text gathering are each best-effort: a strategy that cannot
// run on partial input fails over to the next one.
func (s *Service) extract(filename string, data []byte, contentType string) (*extraction.Result, error) {
	var tokens []extraction.Token
	if s.tokenizer != nil {
		var err error
		tokens, err = s.tokenizer.Tokenize(data)
		if err != nil {
			slog.Warn("Tokenization failed, layout strategies unavailable", "filename", filename, "error", err)
		}
	}

	text := ""
	if s.text != nil {
		var err error
		text, err = s.text.ExtractText(data)
		if err != nil {
			slog.Warn("Text extraction failed", "filename", filename, "error", err)
		}
	}

	// A (near) empty text layer means a scanned document: transcribe it
	// with the vision model when one is configured.
	if len(strings.TrimSpace(text)) < minTextLength && s.reader != nil {
		transcript, err := s.reader.ReadDocument(data, contentType)
		if err != nil {
			slog.Warn("OCR transcription failed", "filename", filename, "error", err)
		} else {
			text = transcript
		}
	}

	return s.extractor.Extract(extraction.Input{Tokens: tokens, Text: text})
}

// OCRConfigured reports whether an OCR reader is wired in, so scanned
// statements can be processed.
func (s *Service) OCRConfigured() bool {
	return s.reader != nil
}

// GetStatement retrieves a statement by ID
func (s *Service) GetStatement(id string) (*Statement, error) {
	statement, err := s.db.GetStatement(id)
	if err != nil {
		return nil, fmt.Errorf("getting statement: %w", err)
	}
	return statement, nil
}

// ListStatements returns all statements
func (s *Service) ListStatements() ([]*Statement, error) {
	statements, err := s.db.ListStatements()
	if err != nil {
		return nil, fmt.Errorf("listing statements: %w", err)
	}
	return statements, nil
}

// DeleteStatement removes a statement and its file
func (s *Service) DeleteStatement(id string) error {
	statement, err := s.db.GetStatement(id)
	if err != nil {
		return fmt.Errorf("getting statement for deletion: %w", err)
	}

	// Delete file
	if err := s.storage.Delete(statement.Filename); err != nil {
		// Log error but continue with database deletion
		slog.Warn("Failed to delete file", "filename", statement.Filename, "error", err)
	}

	// Delete from database
	if err := s.db.DeleteStatement(id); err != nil {
		return fmt.Errorf("deleting statement from database: %w", err)
	}
	return nil
}

// GetStatementFile retrieves the file data for a statement
func (s *Service) GetStatementFile(id string) ([]byte, string, error) {
	statement, err := s.db.GetStatement(id)
	if err != nil {
		return nil, "", fmt.Errorf("getting statement: %w", err)
	}

	data, err := s.storage.Get(statement.Filename)
	if err != nil {
		return nil, "", fmt.Errorf("getting statement file: %w", err)
	}

	return data, statement.ContentType, nil
}
