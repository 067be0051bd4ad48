package extraction

import (
	"strconv"
	"strings"
)

// Token is a positioned text token produced by the document-to-tokens
// service. Coordinates share one space per page, origin at the top-left
// with Y increasing downward. Tokens are never mutated by the engine.
type Token struct {
	Text   string  `json:"text"`
	X0     float64 `json:"x0"`
	X1     float64 `json:"x1"`
	Top    float64 `json:"top"`
	Bottom float64 `json:"bottom"`
	Page   int     `json:"page"`
}

func (t Token) midX() float64 { return (t.X0 + t.X1) / 2 }
func (t Token) midY() float64 { return (t.Top + t.Bottom) / 2 }

// NumericToken is a token classified as a currency amount.
type NumericToken struct {
	Token
	Value float64
}

// maxPlausibleAmount caps parsed values so that reference numbers,
// account numbers and page numbers never classify as amounts.
const maxPlausibleAmount = 100_000_000

// filterNumericTokens classifies tokens as currency-shaped numbers.
// Thousands separators and a trailing Cr/Dr suffix are stripped before
// parsing. The original text must carry a decimal point: balances always
// do, reference numbers are long digit strings that don't. Tokens that
// fail to parse are plain text, not errors.
func filterNumericTokens(tokens []Token) []NumericToken {
	var numerics []NumericToken
	for _, t := range tokens {
		text := strings.TrimSpace(strings.ReplaceAll(t.Text, ",", ""))
		text = strings.TrimSuffix(text, "Cr")
		text = strings.TrimSuffix(text, "Dr")

		val, err := strconv.ParseFloat(text, 64)
		if err != nil {
			continue
		}
		if strings.Contains(t.Text, ".") && val < maxPlausibleAmount {
			numerics = append(numerics, NumericToken{Token: t, Value: val})
		}
	}
	return numerics
}

// tokensOnPage filters tokens to a single page, preserving order.
func tokensOnPage(tokens []Token, page int) []Token {
	var out []Token
	for _, t := range tokens {
		if t.Page == page {
			out = append(out, t)
		}
	}
	return out
}
