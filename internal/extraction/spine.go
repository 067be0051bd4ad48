package extraction

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// The fast strategy never names columns. The running balance is the one
// numeric column that appears exactly once per transaction row and in
// nearly every row, so the densest X-cluster of currency-shaped tokens is
// taken as the balance spine and transactions are reconstructed from
// successive differences. Correctness over completeness.

const (
	clusterXTolerance = 20.0 // two balances printed within this X distance share a column
	spineRowTolerance = 5.0  // same-page tokens closer than this vertically share a row
	rowYTolerance     = 10.0 // vertical midpoint tolerance when scanning a balance's row
	minClusterSize    = 5
	minSpineLength    = 3
	negligibleDelta   = 0.01
)

type spineStrategy struct{}

func (spineStrategy) Name() string { return "fast_balance_spine" }

func (s spineStrategy) Extract(in Input) ([]Transaction, error) {
	if len(in.Tokens) == 0 {
		return nil, errors.New("no tokens available")
	}

	numerics := filterNumericTokens(in.Tokens)
	spine := findBestSpine(numerics)
	if len(spine) < minSpineLength {
		return nil, fmt.Errorf("no valid balance spine found among %d numeric tokens", len(numerics))
	}

	txns := inferFromDeltas(spine, in.Tokens)
	if len(txns) == 0 {
		return nil, errors.New("balance spine yielded no dated transactions")
	}
	return txns, nil
}

type xCluster struct {
	centerX float64
	tokens  []NumericToken
}

// findBestSpine clusters numeric tokens by left edge and returns the
// cluster with the most surviving rows. Clusters below the density
// threshold are never balance columns; a value echoed twice on the same
// printed line is collapsed so it cannot produce a phantom delta.
func findBestSpine(numerics []NumericToken) []NumericToken {
	var clusters []*xCluster
	for _, n := range numerics {
		var home *xCluster
		for _, c := range clusters {
			if math.Abs(n.X0-c.centerX) < clusterXTolerance {
				home = c
				break
			}
		}
		if home == nil {
			home = &xCluster{centerX: n.X0}
			clusters = append(clusters, home)
		}
		home.tokens = append(home.tokens, n)
	}

	var best []NumericToken
	for _, c := range clusters {
		if len(c.tokens) < minClusterSize {
			continue
		}
		sortByPosition(c.tokens)

		var filtered []NumericToken
		lastTop := -100.0
		lastPage := -1
		for _, t := range c.tokens {
			if t.Page == lastPage && math.Abs(t.Top-lastTop) < spineRowTolerance {
				continue
			}
			filtered = append(filtered, t)
			lastTop = t.Top
			lastPage = t.Page
		}
		if len(filtered) > len(best) {
			best = filtered
		}
	}
	return best
}

func sortByPosition(tokens []NumericToken) {
	sort.SliceStable(tokens, func(i, j int) bool {
		if tokens[i].Page != tokens[j].Page {
			return tokens[i].Page < tokens[j].Page
		}
		return tokens[i].Top < tokens[j].Top
	})
}

// inferFromDeltas converts the spine into transactions via successive
// differences. A negligible delta is a repeated balance line (brought
// forward vs. opening balance) and is skipped. A delta whose row carries
// no recognizable date is dropped entirely; see DESIGN.md.
func inferFromDeltas(spine []NumericToken, all []Token) []Transaction {
	sortByPosition(spine)

	var txns []Transaction
	for i := 1; i < len(spine); i++ {
		prev := spine[i-1]
		curr := spine[i]

		delta := round2(curr.Value - prev.Value)
		if math.Abs(delta) < negligibleDelta {
			continue
		}

		txType := TypeCredit
		amount := delta
		if delta < 0 {
			txType = TypeDebit
			amount = -delta
		}

		date := findRowDate(curr.Token, all)
		if date == "" {
			continue
		}

		txns = append(txns, Transaction{
			Date:            date,
			Amount:          amount,
			Type:            txType,
			MerchantRaw:     rowTextLeftOf(curr.Token, all),
			ClosingBalance:  curr.Value,
			ConfidenceScore: 100, // consistent with the balance sequence by construction
		})
	}
	return txns
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

var rowDatePattern = regexp.MustCompile(`(\d{1,2})[/\-\.]([A-Za-z]{3}|\d{1,2})[/\-\.](\d{2,4})`)

var monthAbbrev = map[string]int{
	"jan": 1, "feb": 2, "mar": 3, "apr": 4, "may": 5, "jun": 6,
	"jul": 7, "aug": 8, "sep": 9, "oct": 10, "nov": 11, "dec": 12,
}

// findRowDate scans the balance token's row for date-shaped tokens left of
// the balance and returns the left-most one as ISO 8601. The date is
// conventionally the first column.
func findRowDate(anchor Token, all []Token) string {
	type candidate struct {
		x0  float64
		iso string
	}
	anchorY := anchor.midY()

	var candidates []candidate
	for _, w := range all {
		if w.Page != anchor.Page {
			continue
		}
		if math.Abs(w.midY()-anchorY) >= rowYTolerance {
			continue
		}
		if w.X1 >= anchor.X0 {
			continue
		}
		m := rowDatePattern.FindStringSubmatch(w.Text)
		if m == nil {
			continue
		}
		if iso, ok := normalizeDate(m[1], m[2], m[3]); ok {
			candidates = append(candidates, candidate{x0: w.X0, iso: iso})
		}
	}
	if len(candidates) == 0 {
		return ""
	}
	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].x0 < candidates[j].x0 })
	return candidates[0].iso
}

// normalizeDate converts day/month/year fragments into ISO 8601. Months
// may be numeric or 3-letter abbreviations; 2-digit years are 2000s.
func normalizeDate(dayStr, monthStr, yearStr string) (string, bool) {
	day, err := strconv.Atoi(dayStr)
	if err != nil {
		return "", false
	}
	month, ok := monthAbbrev[strings.ToLower(monthStr)]
	if !ok {
		month, err = strconv.Atoi(monthStr)
		if err != nil {
			return "", false
		}
	}
	year, err := strconv.Atoi(yearStr)
	if err != nil {
		return "", false
	}
	if year < 100 {
		year += 2000
	}
	return fmt.Sprintf("%04d-%02d-%02d", year, month, day), true
}

// rowTextLeftOf joins, left to right, every token on the balance token's
// row that sits left of the balance. The date token is deliberately kept.
func rowTextLeftOf(anchor Token, all []Token) string {
	anchorY := anchor.midY()

	var row []Token
	for _, w := range all {
		if w.Page != anchor.Page {
			continue
		}
		if math.Abs(w.midY()-anchorY) >= rowYTolerance {
			continue
		}
		if w.X1 < anchor.X0 {
			row = append(row, w)
		}
	}
	sort.SliceStable(row, func(i, j int) bool { return row[i].X0 < row[j].X0 })

	parts := make([]string, len(row))
	for i, w := range row {
		parts[i] = w.Text
	}
	return strings.TrimSpace(strings.Join(parts, " "))
}
