package main

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"
	"github.com/zombor/statement-extractor/internal/document"
	"github.com/zombor/statement-extractor/internal/extraction"
	"github.com/zombor/statement-extractor/internal/ocr"
	"github.com/zombor/statement-extractor/internal/statement"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-version" || arg == "-v" {
			fmt.Println(version)
			os.Exit(0)
		}
	}

	fs := ff.NewFlagSet("statement-extractor")
	var (
		port         = fs.IntLong("port", 8080, "HTTP server port")
		dbPath       = fs.StringLong("db", "statement-extractor.db", "Database file path")
		storagePath  = fs.StringLong("storage", "./statements", "Storage directory path")
		tokenizerURL = fs.StringLong("tokenizer-url", "", "Document tokenization service base URL (optional)")
		decryptURL   = fs.StringLong("decrypt-url", "", "Document decryption service base URL (optional)")
		ocrType      = fs.StringLong("ocr", "off", "OCR fallback for scanned statements: 'gemini', 'ollama' or 'off'")
		geminiKey    = fs.StringLong("gemini-key", "", "Google Gemini API key (or set GEMINI_API_KEY env var)")
		geminiModel  = fs.StringLong("gemini-model", "gemini-2.5-pro", "Google Gemini model name")
		ollamaURL    = fs.StringLong("ollama-url", "http://localhost:11434", "Ollama API base URL")
		ollamaModel  = fs.StringLong("ollama-model", "llava", "Ollama model name (e.g., llava, llava-phi3, bakllava, qwen2-vl)")
		authUser     = fs.StringLong("auth-user", "", "Basic auth username (optional)")
		authPass     = fs.StringLong("auth-pass", "", "Basic auth password (optional)")
		showVersion  = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("STATEMENT_EXTRACTOR"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	// Check version flag after parsing
	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	// Initialize database
	slog.Info("Initializing database...")
	db, err := statement.NewBoltDB(*dbPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Initialize OCR reader based on type
	var reader ocr.Reader
	switch *ocrType {
	case "gemini":
		// Get Gemini API key from flag or environment
		apiKey := *geminiKey
		if apiKey == "" {
			apiKey = os.Getenv("GEMINI_API_KEY")
		}
		if apiKey == "" {
			slog.Error("Gemini API key is required. Set --gemini-key flag or GEMINI_API_KEY environment variable")
			os.Exit(1)
		}
		slog.Info("Initializing Gemini OCR...", "model", *geminiModel)
		reader, err = ocr.NewGemini(apiKey, *geminiModel)
		if err != nil {
			slog.Error("Failed to initialize Gemini", "error", err)
			os.Exit(1)
		}
		defer reader.Close()
	case "ollama":
		slog.Info("Initializing Ollama OCR...", "url", *ollamaURL, "model", *ollamaModel)
		reader, err = ocr.NewOllama(*ollamaURL, *ollamaModel)
		if err != nil {
			slog.Error("Failed to initialize Ollama", "error", err)
			os.Exit(1)
		}
		defer reader.Close()
	case "off":
		slog.Info("OCR fallback disabled, scanned statements rely on the tokenizer")
	default:
		slog.Error("Invalid OCR type", "type", *ocrType, "valid", "gemini, ollama or off")
		os.Exit(1)
	}

	// Initialize tokenizer client (layout strategies need positioned tokens)
	var tokenizer statement.Tokenizer
	if *tokenizerURL != "" {
		t, err := document.NewTokenizer(*tokenizerURL)
		if err != nil {
			slog.Error("Failed to initialize tokenizer client", "error", err)
			os.Exit(1)
		}
		tokenizer = t
	} else {
		slog.Info("No tokenizer configured, layout strategies disabled")
	}

	// Initialize decrypter client
	var decrypter statement.Decrypter
	if *decryptURL != "" {
		d, err := document.NewDecrypter(*decryptURL)
		if err != nil {
			slog.Error("Failed to initialize decrypter client", "error", err)
			os.Exit(1)
		}
		decrypter = d
	} else {
		decrypter = passwordRejectingDecrypter{}
	}

	// Initialize storage
	slog.Info("Initializing storage...")
	store, err := statement.NewLocalStorage(*storagePath)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}

	// Initialize service
	engine := extraction.NewEngine()
	statementService := statement.NewService(db, store, engine, tokenizer, document.NewTextExtractor(), decrypter, reader)

	// Initialize server
	basicAuth := statement.BasicAuth{
		Username: *authUser,
		Password: *authPass,
	}
	server := statement.NewServer(statementService, basicAuth, version)

	// Start server in goroutine
	addr := fmt.Sprintf(":%d", *port)
	go func() {
		if err := server.Start(addr); err != nil {
			slog.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("Server started", "address", fmt.Sprintf("http://localhost%s", addr))
	if *authUser != "" || *authPass != "" {
		slog.Info("Basic auth enabled", "user", *authUser)
	}

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	slog.Info("Shutting down...")
}

// passwordRejectingDecrypter stands in when no decrypt service is
// configured: uploads with a password are rejected instead of silently
// processed as garbage.
type passwordRejectingDecrypter struct{}

func (passwordRejectingDecrypter) Decrypt(data []byte, password string) ([]byte, error) {
	return nil, fmt.Errorf("no decryption service configured")
}
