// Package beancount renders transactions in Beancount syntax and appends
// them to monthly archive files.
package beancount

import "github.com/shopspring/decimal"

// Transaction represents a Beancount transaction.
type Transaction struct {
	Date      string            // YYYY-MM-DD
	Payee     string            // optional
	Narration string
	Tags      []string          // without the leading '#'
	Links     []string          // without the leading '^'
	Metadata  map[string]string // lower-case keys
	Postings  []Posting
}

// Posting represents a posting in a Beancount transaction.
type Posting struct {
	Account  string          // e.g. "Income:Sales:Frames"
	Amount   decimal.Decimal // positive for debit, negative for credit
	Currency string          // e.g. "AUD"
	Comment  string          // optional
}

// Balance returns the sum of all posting amounts.
func (t Transaction) Balance() decimal.Decimal {
	total := decimal.Zero
	for _, p := range t.Postings {
		total = total.Add(p.Amount)
	}
	return total
}
