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

// Last-resort strategy: no positions, no layout, just already-linearized
// text. A line starting with a date opens a transaction; the remaining
// decimal amounts on the line are collected and the debit/credit
// direction is resolved afterwards by testing each amount against the
// neighboring closing balances.

const (
	textNarrationMaxLen     = 100
	textContinuationMaxLen  = 150
	textContinuationCapLen  = 50
	textConfidence          = 85
	minLineLen              = 5
	minTransactionAmount    = 0.01
	balanceContinuityEps    = 1.0
)

// statementNoiseKeywords mark letterhead, account-detail and column
// header lines that must never seed or extend a transaction.
var statementNoiseKeywords = []string{
	"hdfc bank", "statement of account", "page no", "account branch",
	"address", "city", "state", "phone", "email", "cust id",
	"account no", "account status", "branch code", "nomination",
	"joint holders", "od limit", "currency", "micr", "ifsc",
	"we understand your world", "from :", "to :", "registered",
	"narration", "chq./ref.no", "value dt", "withdrawal amt",
	"deposit amt", "closing balance", "opening balance", "product code",
}

var (
	textDatePattern     = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{2,4})`)
	embeddedDatePattern = regexp.MustCompile(`\d{1,2}/\d{1,2}/\d{2,4}`)
	lineAmountPattern   = regexp.MustCompile(`[\d,]+\.\d{1,2}`)
)

type textStrategy struct{}

func (textStrategy) Name() string { return "text_regex" }

func (s textStrategy) Extract(in Input) ([]Transaction, error) {
	if strings.TrimSpace(in.Text) == "" {
		return nil, errors.New("no text available")
	}

	candidates := parseTextLines(in.Text)
	if len(candidates) == 0 {
		return nil, errors.New("text parser yielded no transactions")
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].tx.Date < candidates[j].tx.Date
	})
	resolveTypes(candidates)

	txns := make([]Transaction, len(candidates))
	for i, c := range candidates {
		txns[i] = c.tx
	}
	return txns, nil
}

// textCandidate carries the raw amounts alongside the transaction until
// the direction has been resolved; they are dropped from the output.
type textCandidate struct {
	tx         Transaction
	rawAmounts []float64
}

func parseTextLines(text string) []*textCandidate {
	var candidates []*textCandidate
	var current *textCandidate

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if len(line) < minLineLen {
			continue
		}
		lower := strings.ToLower(line)
		if containsAnyKeyword(lower, statementNoiseKeywords) {
			continue
		}

		m := textDatePattern.FindStringSubmatch(line)
		if m != nil {
			if current != nil {
				candidates = append(candidates, current)
			}
			current = newTextCandidate(line, m)
			continue
		}

		if current == nil {
			continue
		}
		// Continuation line: extend the narration, filtered again for
		// page furniture that slipped past the keyword list.
		if containsAnyKeyword(lower, []string{"page", "hdfc", "statement", "closing balance"}) {
			continue
		}
		clean := strings.Join(strings.Fields(narrationCleanPattern.ReplaceAllString(line, " ")), " ")
		if len(clean) > 2 {
			current.tx.MerchantRaw += " " + truncate(clean, textContinuationCapLen)
			current.tx.MerchantRaw = truncate(current.tx.MerchantRaw, textContinuationMaxLen)
		}
	}
	if current != nil {
		candidates = append(candidates, current)
	}
	return candidates
}

func newTextCandidate(line string, dateMatch []string) *textCandidate {
	day, _ := strconv.Atoi(dateMatch[1])
	month, _ := strconv.Atoi(dateMatch[2])
	year, _ := strconv.Atoi(dateMatch[3])
	if year < 100 {
		if year < 50 {
			year += 2000
		} else {
			year += 1900
		}
	}
	isoDate := fmt.Sprintf("%04d-%02d-%02d", year, month, day)

	rest := strings.TrimSpace(line[len(dateMatch[0]):])
	// A second date on the line is the value date; it is not narration.
	rest = embeddedDatePattern.ReplaceAllString(rest, " ")

	var amountStrs []string
	var rawAmounts []float64
	for _, a := range lineAmountPattern.FindAllString(rest, -1) {
		v, err := strconv.ParseFloat(strings.ReplaceAll(a, ",", ""), 64)
		if err != nil || v < minTransactionAmount {
			continue
		}
		amountStrs = append(amountStrs, a)
		rawAmounts = append(rawAmounts, v)
	}

	closingBalance := 0.0
	amount := 0.0
	if len(rawAmounts) >= 2 {
		closingBalance = rawAmounts[len(rawAmounts)-1]
	}
	if len(rawAmounts) >= 1 {
		amount = rawAmounts[0]
	}

	narration := rest
	for _, a := range amountStrs {
		narration = strings.ReplaceAll(narration, a, "")
	}
	narration = strings.Join(strings.Fields(narrationCleanPattern.ReplaceAllString(narration, " ")), " ")
	narration = truncate(narration, textNarrationMaxLen)
	if len(narration) < 3 {
		narration = "Transaction"
	}

	paymentMethod := "Other"
	if strings.Contains(strings.ToLower(narration), "upi") {
		paymentMethod = "UPI"
	}

	return &textCandidate{
		tx: Transaction{
			Date:            isoDate,
			MerchantRaw:     narration,
			Amount:          amount,
			ClosingBalance:  closingBalance,
			ConfidenceScore: textConfidence,
			PaymentMethod:   paymentMethod,
		},
		rawAmounts: rawAmounts,
	}
}

// resolveTypes determines debit/credit per transaction. From the second
// transaction on, each raw amount except the trailing balance is tested
// against the neighboring closing balances; the first arithmetic match
// wins and also fixes the amount. Without a match the narration keywords
// decide. The first transaction has no predecessor and uses keywords
// only.
func resolveTypes(candidates []*textCandidate) {
	if len(candidates) == 0 {
		return
	}

	if len(candidates) > 1 {
		for i := 1; i < len(candidates); i++ {
			prevBal := candidates[i-1].tx.ClosingBalance
			currBal := candidates[i].tx.ClosingBalance
			raw := candidates[i].rawAmounts

			found := false
			for j := 0; j+1 < len(raw); j++ {
				amt := raw[j]
				if math.Abs(prevBal-amt-currBal) < balanceContinuityEps {
					candidates[i].tx.Amount = amt
					candidates[i].tx.Type = TypeDebit
					found = true
					break
				}
				if math.Abs(prevBal+amt-currBal) < balanceContinuityEps {
					candidates[i].tx.Amount = amt
					candidates[i].tx.Type = TypeCredit
					found = true
					break
				}
			}
			if !found {
				candidates[i].tx.Type = narrationType(candidates[i].tx.MerchantRaw)
			}
		}
	}

	first := candidates[0]
	if first.tx.Type == "" {
		first.tx.Type = firstTransactionType(first.tx.MerchantRaw)
	}
	if first.tx.Amount == 0 && len(first.rawAmounts) >= 2 {
		first.tx.Amount = first.rawAmounts[0]
	}
}

// narrationType infers the direction from narration keywords when the
// balance arithmetic is inconclusive.
func narrationType(narration string) string {
	n := strings.ToLower(narration)
	if strings.Contains(n, " cr ") || strings.HasSuffix(n, " cr") || strings.Contains(n, "credit") {
		return TypeCredit
	}
	if strings.Contains(n, " dr ") || strings.HasSuffix(n, " dr") || strings.Contains(n, "debit") {
		return TypeDebit
	}
	for _, kw := range []string{"deposit", "imps", "neft cr", "upi cr"} {
		if strings.Contains(n, kw) {
			return TypeCredit
		}
	}
	return TypeDebit
}

func firstTransactionType(narration string) string {
	n := strings.ToLower(narration)
	for _, kw := range []string{"deposit", "imps", "neft cr", "upi cr", "credit"} {
		if strings.Contains(n, kw) {
			return TypeCredit
		}
	}
	return TypeDebit
}

func containsAnyKeyword(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
