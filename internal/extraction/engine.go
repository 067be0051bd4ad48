// Package extraction reconstructs structured transactions from
// semi-structured bank statements. Three independent strategies are
// tried in priority order: balance-spine delta inference over positioned
// tokens, visual column-layout mapping, and a line-oriented regex parser
// over plain text. Whatever a strategy returns is cross-checked against
// the debit/credit counts the statement itself declares in its footer.
package extraction

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
)

// Input carries everything a strategy may consume. Tokens feed the two
// layout-based strategies; Text feeds the regex fallback and the footer
// validation. Either may be empty.
type Input struct {
	Tokens []Token
	Text   string
}

// Strategy is one extraction approach. Returning an error or an empty
// list both mean "try the next strategy"; neither is terminal on its
// own.
type Strategy interface {
	Name() string
	Extract(in Input) ([]Transaction, error)
}

// Attempt records one step of the fallback chain, making the chain's
// progression visible to callers instead of burying it in control flow.
type Attempt struct {
	Method string `json:"method"`
	Error  string `json:"error,omitempty"`
	Count  int    `json:"count"`
}

// Result is the output of a successful extraction.
type Result struct {
	Transactions []Transaction `json:"transactions"`
	Validation   Validation    `json:"validation"`
	Attempts     []Attempt     `json:"attempts"`
}

// ErrNoTransactions is returned once every strategy has been exhausted.
var ErrNoTransactions = errors.New("no transactions extracted")

// Engine runs the strategies in priority order and accepts the first
// non-empty result. Extraction is pure given its input: the engine holds
// no per-document state and is safe for concurrent use across documents.
type Engine struct {
	strategies []Strategy
}

// NewEngine creates an Engine with the standard strategy chain.
func NewEngine() *Engine {
	return &Engine{
		strategies: []Strategy{
			spineStrategy{},
			layoutStrategy{},
			textStrategy{},
		},
	}
}

// NewEngineWithStrategies creates an Engine with a custom chain.
func NewEngineWithStrategies(strategies ...Strategy) *Engine {
	return &Engine{strategies: strategies}
}

// Extract runs the fallback chain over the input. The first strategy
// producing at least one transaction wins; its output is sorted by date
// and validated against the footer. When the chain is exhausted the
// error wraps ErrNoTransactions together with the last failure reason.
func (e *Engine) Extract(in Input) (*Result, error) {
	var attempts []Attempt
	var lastErr error

	for _, s := range e.strategies {
		txns, err := s.Extract(in)
		if err == nil && len(txns) == 0 {
			err = errors.New("strategy returned no transactions")
		}
		if err != nil {
			slog.Info("Extraction strategy failed", "method", s.Name(), "error", err)
			attempts = append(attempts, Attempt{Method: s.Name(), Error: err.Error()})
			lastErr = err
			continue
		}

		sortTransactionsByDate(txns)
		attempts = append(attempts, Attempt{Method: s.Name(), Count: len(txns)})
		slog.Info("Extraction succeeded", "method", s.Name(), "count", len(txns))

		return &Result{
			Transactions: txns,
			Validation:   validateAgainstFooter(in.Text, txns, s.Name()),
			Attempts:     attempts,
		}, nil
	}

	if lastErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoTransactions, lastErr)
	}
	return nil, ErrNoTransactions
}

// sortTransactionsByDate orders transactions ascending by date. ISO 8601
// dates sort lexicographically; ties keep discovery order.
func sortTransactionsByDate(txns []Transaction) {
	sort.SliceStable(txns, func(i, j int) bool { return txns[i].Date < txns[j].Date })
}
