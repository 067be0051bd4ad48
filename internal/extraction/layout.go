package extraction

import (
	"sort"
	"strings"
)

// headerCategory is one semantic column together with the header
// spellings that identify it across issuers.
type headerCategory struct {
	name       string
	variations []string
}

var headerCategories = []headerCategory{
	{"Date", []string{"Date", "Txn Date"}},
	{"Narration", []string{"Narration", "Description", "Particulars"}},
	{"Chq", []string{"Chq./Ref.No.", "Ref No", "Cheque", "Chq"}},
	{"ValueDate", []string{"Value Dt", "Value Date"}},
	{"Withdrawal", []string{"Withdrawal", "Debit", "Dr Amt"}},
	{"Deposit", []string{"Deposit", "Credit", "Cr Amt"}},
	{"Balance", []string{"Closing Balance", "Balance"}},
}

// Column maps one semantic field to a horizontal interval.
type Column struct {
	Name string
	X0   float64
	X1   float64
}

// ColumnMap is the horizontal partition of a page into semantic fields,
// ordered left to right. Adjacent intervals are contiguous: each column
// ends where the next begins, the first is padded left and the last runs
// to a sentinel.
type ColumnMap []Column

// columnFor returns the first column whose interval contains x.
func (m ColumnMap) columnFor(x float64) (string, bool) {
	for _, c := range m {
		if c.X0 <= x && x < c.X1 {
			return c.Name, true
		}
	}
	return "", false
}

const (
	headerScanPages     = 2
	headerMinMatches    = 3
	headerEnoughColumns = 4
	columnLeftPadding   = 20.0
	columnRightSentinel = 1000.0
	headerBottomBuffer  = 2.0
)

// detectHeaderLayout scans the first pages for the header row and derives
// the column map from the matched header tokens. The second return value
// is the Y coordinate below which page-one content starts, 0 when no
// header row was found.
func detectHeaderLayout(tokens []Token) (ColumnMap, float64) {
	type span struct{ x0, x1 float64 }
	found := map[string]span{}
	var headerBottom float64

	for page := 0; page < headerScanPages; page++ {
		pageTokens := tokensOnPage(tokens, page)
		if len(pageTokens) == 0 {
			continue
		}

		// Group tokens into horizontal lines by integer-rounded top.
		lines := map[int][]Token{}
		for _, t := range pageTokens {
			y := int(t.Top)
			lines[y] = append(lines[y], t)
		}
		ys := make([]int, 0, len(lines))
		for y := range lines {
			ys = append(ys, y)
		}
		sort.Ints(ys)

		var best []Token
		maxMatches := 0
		for _, y := range ys {
			lineWords := lines[y]
			parts := make([]string, len(lineWords))
			for i, w := range lineWords {
				parts[i] = w.Text
			}
			lineText := strings.ToLower(strings.Join(parts, " "))

			matches := 0
			for _, cat := range headerCategories {
				if containsAny(lineText, cat.variations) {
					matches++
				}
			}
			if matches >= headerMinMatches && matches > maxMatches {
				maxMatches = matches
				best = lineWords
				headerBottom = lineWords[0].Bottom + headerBottomBuffer
			}
		}

		if best != nil {
			for _, w := range best {
				txt := strings.ToLower(w.Text)
				for _, cat := range headerCategories {
					if !containsAny(txt, cat.variations) {
						continue
					}
					if _, ok := found[cat.name]; !ok {
						found[cat.name] = span{x0: w.X0, x1: w.X1}
					}
				}
			}
			if len(found) >= headerEnoughColumns {
				break
			}
		}
	}

	if len(found) == 0 {
		return nil, headerBottom
	}

	names := make([]string, 0, len(found))
	for name := range found {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if found[names[i]].x0 != found[names[j]].x0 {
			return found[names[i]].x0 < found[names[j]].x0
		}
		return names[i] < names[j]
	})

	columns := make(ColumnMap, 0, len(names))
	for i, name := range names {
		x0 := found[name].x0
		if i == 0 {
			x0 -= columnLeftPadding
		}
		x1 := columnRightSentinel
		if i+1 < len(names) {
			x1 = found[names[i+1]].x0
		}
		columns = append(columns, Column{Name: name, X0: x0, X1: x1})
	}
	return columns, headerBottom
}

func containsAny(text string, variations []string) bool {
	for _, v := range variations {
		if strings.Contains(text, strings.ToLower(v)) {
			return true
		}
	}
	return false
}
