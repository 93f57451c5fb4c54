package beancount

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// amountColumn is the column at which posting amounts start.
const amountColumn = 60

// Format renders a transaction in Beancount syntax.
func Format(txn Transaction) string {
	var sb strings.Builder

	sb.WriteString(txn.Date)
	sb.WriteString(" *")
	if txn.Payee != "" {
		sb.WriteString(" " + strconv.Quote(txn.Payee))
	}
	sb.WriteString(" " + strconv.Quote(txn.Narration))
	for _, tag := range txn.Tags {
		sb.WriteString(" #" + tag)
	}
	for _, link := range txn.Links {
		sb.WriteString(" ^" + link)
	}
	sb.WriteString("\n")

	keys := make([]string, 0, len(txn.Metadata))
	for k := range txn.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		sb.WriteString(fmt.Sprintf("  %s: %s\n", k, strconv.Quote(txn.Metadata[k])))
	}

	for _, posting := range txn.Postings {
		sb.WriteString("  ")
		sb.WriteString(posting.Account)

		spaces := amountColumn - len(posting.Account)
		if spaces < 1 {
			spaces = 1
		}
		sb.WriteString(strings.Repeat(" ", spaces))
		sb.WriteString(formatAmount(posting.Amount) + " " + posting.Currency)

		if posting.Comment != "" {
			sb.WriteString(" ; " + posting.Comment)
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

// formatAmount pads to two decimals without dropping extra precision.
func formatAmount(d decimal.Decimal) string {
	if d.Exponent() >= -2 {
		return d.StringFixed(2)
	}
	return d.String()
}
