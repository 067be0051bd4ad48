package extraction

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// The visual strategy reconstructs the statement table without a grid:
// tokens are grouped into printed rows by vertical proximity, rows are
// mapped onto the detected column layout, and dated rows become
// transactions while undated rows extend the previous narration.

const (
	visualRowTolerance = 5.0
	footerDefaultY     = 10000.0
	footerScanWords    = 50
	narrationMaxLen    = 100
)

type layoutStrategy struct{}

func (layoutStrategy) Name() string { return "visual_layout" }

func (s layoutStrategy) Extract(in Input) ([]Transaction, error) {
	if len(in.Tokens) == 0 {
		return nil, errors.New("no tokens available")
	}

	columns, headerBottom := detectHeaderLayout(in.Tokens)

	maxPage := 0
	for _, t := range in.Tokens {
		if t.Page > maxPage {
			maxPage = t.Page
		}
	}

	var rows [][]Token
	for page := 0; page <= maxPage; page++ {
		pageTokens := tokensOnPage(in.Tokens, page)
		if len(pageTokens) == 0 {
			continue
		}
		footerY := findFooterY(pageTokens)

		for _, row := range assembleVisualRows(pageTokens) {
			rowY := row[0].Top
			if page == 0 && headerBottom > 0 && rowY < headerBottom {
				continue // letterhead above the table
			}
			if rowY > footerY {
				continue
			}
			rows = append(rows, row)
		}
	}

	txns := refineCandidates(collectCandidates(rows, columns))
	if len(txns) == 0 {
		return nil, errors.New("visual layout yielded no transactions")
	}
	return txns, nil
}

// findFooterY locates the summary block near the bottom of a page so
// rows below it are excluded. Returns a large sentinel when the page has
// no footer.
func findFooterY(pageTokens []Token) float64 {
	sorted := append([]Token(nil), pageTokens...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Top != sorted[j].Top {
			return sorted[i].Top < sorted[j].Top
		}
		return sorted[i].X0 < sorted[j].X0
	})

	parts := make([]string, len(sorted))
	for i, t := range sorted {
		parts[i] = t.Text
	}
	if !strings.Contains(strings.Join(parts, " "), "Total Dr Count") {
		return footerDefaultY
	}

	for i := len(sorted) - 1; i >= 0 && i >= len(sorted)-footerScanWords; i-- {
		if strings.Contains(sorted[i].Text, "Total") {
			return sorted[i].Top
		}
	}
	return footerDefaultY
}

// assembleVisualRows groups a page's tokens into printed rows by
// vertical proximity to a running row top.
func assembleVisualRows(pageTokens []Token) [][]Token {
	sorted := append([]Token(nil), pageTokens...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Top < sorted[j].Top })

	var rows [][]Token
	var current []Token
	lastTop := 0.0

	for _, w := range sorted {
		if len(current) == 0 {
			current = append(current, w)
			lastTop = w.Top
			continue
		}
		if math.Abs(w.Top-lastTop) < visualRowTolerance {
			current = append(current, w)
		} else {
			rows = append(rows, current)
			current = []Token{w}
			lastTop = w.Top
		}
	}
	if len(current) > 0 {
		rows = append(rows, current)
	}
	return rows
}

var lineDatePattern = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{2,4})`)

// rowCandidate is a raw transaction assembled from mapped column text,
// before amounts are parsed and the direction is resolved.
type rowCandidate struct {
	date       string
	narration  string
	withdrawal string
	deposit    string
	balance    string
}

// collectCandidates walks the filtered rows in document order. A row
// whose Date column carries a date starts a new candidate; undated rows
// extend the previous candidate's narration.
func collectCandidates(rows [][]Token, columns ColumnMap) []rowCandidate {
	var out []rowCandidate
	var current *rowCandidate

	for _, row := range rows {
		mapped := mapRowToColumns(row, columns)

		var dateStr string
		if d := strings.TrimSpace(mapped["Date"]); len(d) > 5 {
			dateStr = lineDatePattern.FindString(d)
		}
		// Without a column map the best signal left is the row's first token.
		if dateStr == "" && len(columns) == 0 && len(row) > 0 {
			dateStr = lineDatePattern.FindString(row[0].Text)
		}

		if dateStr != "" {
			if current != nil {
				out = append(out, *current)
			}
			current = &rowCandidate{
				date:       isoFromSlashDate(dateStr),
				narration:  mapped["Narration"],
				withdrawal: mapped["Withdrawal"],
				deposit:    mapped["Deposit"],
				balance:    mapped["Balance"],
			}
		} else if current != nil && mapped["Narration"] != "" {
			current.narration += " " + mapped["Narration"]
		}
	}
	if current != nil {
		out = append(out, *current)
	}
	return out
}

// mapRowToColumns assigns each token to the column containing its
// horizontal midpoint and concatenates the text per column.
func mapRowToColumns(row []Token, columns ColumnMap) map[string]string {
	mapped := map[string]string{}

	if len(columns) == 0 {
		parts := make([]string, len(row))
		for i, w := range row {
			parts[i] = w.Text
		}
		mapped["Narration"] = strings.Join(parts, " ")
		return mapped
	}

	for _, w := range row {
		if name, ok := columns.columnFor(w.midX()); ok {
			mapped[name] += w.Text + " "
		}
	}
	for k, v := range mapped {
		mapped[k] = strings.TrimSpace(v)
	}
	return mapped
}

// isoFromSlashDate converts DD/MM/YY(YY) to ISO 8601; 2-digit years are
// 2000s here.
func isoFromSlashDate(dateStr string) string {
	m := lineDatePattern.FindStringSubmatch(dateStr)
	if m == nil {
		return time.Now().Format("2006-01-02")
	}
	day, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	year, _ := strconv.Atoi(m[3])
	if year < 100 {
		year += 2000
	}
	return fmt.Sprintf("%04d-%02d-%02d", year, month, day)
}

var noiseNarrationPatterns = []*regexp.Regexp{
	regexp.MustCompile(`BROUGHT\s+FORWARD`),
	regexp.MustCompile(`CARRIED\s+FORWARD`),
	regexp.MustCompile(`OPENING\s+BALANCE`),
	regexp.MustCompile(`CLOSING\s+BALANCE`),
	regexp.MustCompile(`TOTAL\s+`),
}

var narrationCleanPattern = regexp.MustCompile(`[^\w\s\-\./]`)

// refineCandidates drops non-transaction rows, parses the amount columns
// and resolves the transaction direction.
func refineCandidates(candidates []rowCandidate) []Transaction {
	var out []Transaction
	for _, c := range candidates {
		if isNoiseNarration(c.narration) {
			continue
		}

		wVal := parseAmount(c.withdrawal)
		dVal := parseAmount(c.deposit)
		bVal := parseAmount(c.balance)

		txType := TypeDebit
		amount := 0.0
		switch {
		case wVal > 0 && dVal == 0:
			txType = TypeDebit
			amount = wVal
		case dVal > 0 && wVal == 0:
			txType = TypeCredit
			amount = dVal
		case wVal > 0 && dVal > 0:
			// Both columns populated: keep the larger side
			amount = math.Max(wVal, dVal)
			if wVal > dVal {
				txType = TypeDebit
			} else {
				txType = TypeCredit
			}
		}

		confidence := 50
		if wVal > 0 || dVal > 0 {
			confidence = 95
		}

		narration := strings.TrimSpace(narrationCleanPattern.ReplaceAllString(c.narration, " "))
		out = append(out, Transaction{
			Date:            c.date,
			MerchantRaw:     truncate(narration, narrationMaxLen),
			Amount:          amount,
			Type:            txType,
			ClosingBalance:  bVal,
			ConfidenceScore: confidence,
		})
	}
	return out
}

func isNoiseNarration(narration string) bool {
	upper := strings.ToUpper(narration)
	for _, p := range noiseNarrationPatterns {
		if p.MatchString(upper) {
			return true
		}
	}
	return false
}

// parseAmount parses a column's text as a currency value; empty or
// unparseable text is zero.
func parseAmount(s string) float64 {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

func truncate(s string, max int) string {
	if len(s) > max {
		return s[:max]
	}
	return s
}
