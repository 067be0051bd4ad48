package statement

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
)

// ExportCSV renders a statement's transactions as CSV, one row per
// transaction in stored (date) order.
func (s *Service) ExportCSV(id string) ([]byte, error) {
	statement, err := s.db.GetStatement(id)
	if err != nil {
		return nil, fmt.Errorf("getting statement: %w", err)
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write([]string{"Date", "Merchant", "Amount", "Type", "Balance", "Confidence"}); err != nil {
		return nil, fmt.Errorf("writing header: %w", err)
	}

	for _, txn := range statement.Transactions {
		row := []string{
			txn.Date,
			txn.MerchantRaw,
			strconv.FormatFloat(txn.Amount, 'f', 2, 64),
			txn.Type,
			strconv.FormatFloat(txn.ClosingBalance, 'f', 2, 64),
			strconv.Itoa(txn.ConfidenceScore),
		}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("writing row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flushing csv: %w", err)
	}
	return buf.Bytes(), nil
}
