package extraction

// Transaction types.
const (
	TypeDebit  = "debit"
	TypeCredit = "credit"
)

// Transaction is one extracted statement entry. A transaction is created
// by exactly one strategy and never mutated after it is returned.
type Transaction struct {
	Date            string  `json:"date"` // ISO 8601 (YYYY-MM-DD)
	Amount          float64 `json:"amount"`
	Type            string  `json:"transactionType"`
	MerchantRaw     string  `json:"merchantRaw"`
	ClosingBalance  float64 `json:"closingBalance"`
	ConfidenceScore int     `json:"confidenceScore"`
	PaymentMethod   string  `json:"paymentMethod,omitempty"`
	Description     *string `json:"description"`
}
