package extraction

import (
	"regexp"
	"strconv"
)

// Validation cross-checks extracted transaction counts against the
// debit/credit totals the issuer prints in the statement footer. It is
// advisory: a mismatch is surfaced to the caller but never triggers
// fallback to the next strategy; only an empty transaction list does.
type Validation struct {
	ExpectedDrCount int    `json:"expectedDrCount"`
	ExpectedCrCount int    `json:"expectedCrCount"`
	ActualDrCount   int    `json:"actualDrCount"`
	ActualCrCount   int    `json:"actualCrCount"`
	FoundFooter     bool   `json:"foundFooter"`
	Matches         *bool  `json:"matches"` // nil when no footer was found
	Method          string `json:"method"`
}

var (
	footerDrPattern = regexp.MustCompile(`(?i)Total\s+Dr\s+Count\s*[:\-\.]?\s*(\d+)`)
	footerCrPattern = regexp.MustCompile(`(?i)Total\s+Cr\s+Count\s*[:\-\.]?\s*(\d+)`)
)

// validateAgainstFooter searches the full document text for the footer
// summary. The last match of each pattern is taken: earlier ones are
// per-page subtotals, the final one is the statement summary.
func validateAgainstFooter(fullText string, txns []Transaction, method string) Validation {
	v := Validation{Method: method}

	if ms := footerDrPattern.FindAllStringSubmatch(fullText, -1); len(ms) > 0 {
		v.ExpectedDrCount, _ = strconv.Atoi(ms[len(ms)-1][1])
		v.FoundFooter = true
	}
	if ms := footerCrPattern.FindAllStringSubmatch(fullText, -1); len(ms) > 0 {
		v.ExpectedCrCount, _ = strconv.Atoi(ms[len(ms)-1][1])
		v.FoundFooter = true
	}

	for _, t := range txns {
		switch t.Type {
		case TypeDebit:
			v.ActualDrCount++
		case TypeCredit:
			v.ActualCrCount++
		}
	}

	if v.FoundFooter {
		matches := v.ExpectedDrCount == v.ActualDrCount && v.ExpectedCrCount == v.ActualCrCount
		v.Matches = &matches
	}
	return v
}
