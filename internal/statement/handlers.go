package statement

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/zombor/statement-extractor/internal/extraction"
)

// corsError writes an error response with CORS headers set
func corsError(w http.ResponseWriter, message string, code int) {
	setCORSHeaders(w)
	http.Error(w, message, code)
}

// jsonError writes a JSON error response with CORS headers set
func jsonError(w http.ResponseWriter, message string, code int) {
	setCORSHeaders(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{
		"error": message,
	})
}

// setCORSHeaders sets CORS headers on a response
func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.Header().Set("Access-Control-Max-Age", "3600")
}

// handleHealth reports service liveness, the running version and
// whether scanned statements can be OCRed
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	setCORSHeaders(w)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":         "ok",
		"version":        s.version,
		"ocr_configured": s.service.OCRConfigured(),
	})
}

// handleListStatements returns a list of all statements
func (s *Server) handleListStatements(w http.ResponseWriter, r *http.Request) {
	statements, err := s.service.ListStatements()
	if err != nil {
		slog.Error("Error listing statements", "error", err)
		corsError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(statements); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// handleUploadStatement handles statement upload
func (s *Server) handleUploadStatement(w http.ResponseWriter, r *http.Request) {
	// Parse multipart form (max 50MB, scanned statements run large)
	maxFormSize := int64(50 << 20) // 50MB
	if err := r.ParseMultipartForm(maxFormSize); err != nil {
		slog.Error("Error parsing multipart form", "error", err)
		errorMsg := "Error parsing form"
		if err.Error() == "http: request body too large" {
			errorMsg = "File is too large. Maximum size is 50MB."
		}
		jsonError(w, errorMsg, http.StatusBadRequest)
		return
	}

	f, header, err := r.FormFile("file")
	if err != nil {
		slog.Error("Error getting file from form", "error", err)
		errorMsg := "No file provided"
		if err.Error() == "http: no such file" {
			errorMsg = "No file was selected. Please choose a file to upload."
		}
		jsonError(w, errorMsg, http.StatusBadRequest)
		return
	}
	defer f.Close()

	// Check file size before reading
	if header.Size > maxFormSize {
		jsonError(w, "File is too large. Maximum size is 50MB.", http.StatusBadRequest)
		return
	}

	// Read file data
	data, err := io.ReadAll(f)
	if err != nil {
		slog.Error("Error reading file data", "error", err, "filename", header.Filename)
		jsonError(w, "Error reading file. Please try again.", http.StatusInternalServerError)
		return
	}

	// Optional password for protected statements
	password := r.FormValue("password")

	// Determine content type
	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		ext := strings.ToLower(filepath.Ext(header.Filename))
		switch ext {
		case ".jpg", ".jpeg":
			contentType = "image/jpeg"
		case ".png":
			contentType = "image/png"
		case ".pdf":
			contentType = "application/pdf"
		case ".heic":
			contentType = "image/heic"
		case ".heif":
			contentType = "image/heif"
		default:
			contentType = "application/octet-stream"
		}
	}
	contentType = strings.ToLower(strings.TrimSpace(contentType))

	// Process statement
	statement, err := s.service.ProcessStatement(header.Filename, data, contentType, password)
	if err != nil {
		slog.Error("Error processing statement", "filename", header.Filename, "error", err)
		switch {
		case errors.Is(err, ErrDecryptFailed):
			jsonError(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, extraction.ErrNoTransactions):
			jsonError(w, err.Error(), http.StatusUnprocessableEntity)
		default:
			jsonError(w, err.Error(), http.StatusBadRequest)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(statement); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// handleGetStatement returns a single statement
func (s *Server) handleGetStatement(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		corsError(w, "Statement ID required", http.StatusBadRequest)
		return
	}
	statement, err := s.service.GetStatement(id)
	if err != nil {
		corsError(w, "Statement not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(statement); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// handleGetStatementFile returns the file for a statement
func (s *Server) handleGetStatementFile(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		corsError(w, "Statement ID required", http.StatusBadRequest)
		return
	}
	data, contentType, err := s.service.GetStatementFile(id)
	if err != nil {
		corsError(w, "File not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Write(data)
}

// handleExportCSV returns a statement's transactions as a CSV download
func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		corsError(w, "Statement ID required", http.StatusBadRequest)
		return
	}
	data, err := s.service.ExportCSV(id)
	if err != nil {
		corsError(w, "Statement not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="statement_%s.csv"`, id))
	w.Write(data)
}

// handleDeleteStatement deletes a statement
func (s *Server) handleDeleteStatement(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		corsError(w, "Statement ID required", http.StatusBadRequest)
		return
	}
	if err := s.service.DeleteStatement(id); err != nil {
		corsError(w, "Error deleting statement", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
