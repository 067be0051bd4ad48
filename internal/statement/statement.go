package statement

import (
	"time"

	"github.com/zombor/statement-extractor/internal/extraction"
)

// Statement represents a processed bank statement with its extraction
// results and upload metadata
type Statement struct {
	ID           string                   `json:"id"`
	Filename     string                   `json:"filename"`
	ContentType  string                   `json:"content_type"`
	Method       string                   `json:"method"` // strategy that produced the transactions
	Transactions []extraction.Transaction `json:"transactions"`
	Validation   extraction.Validation    `json:"validation"`
	Attempts     []extraction.Attempt     `json:"attempts"`
	CreatedAt    time.Time                `json:"created_at"`
	UpdatedAt    time.Time                `json:"updated_at"`
}
