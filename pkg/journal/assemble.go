package journal

import (
	"time"

	"github.com/shopspring/decimal"
)

// Assemble wraps invoice lines followed by receipt lines into a draft manual
// journal. It returns false when there is nothing to post.
func Assemble(date time.Time, invoiceLines, receiptLines []Line) (*ManualJournal, bool) {
	if len(invoiceLines)+len(receiptLines) == 0 {
		return nil, false
	}

	lines := make([]Line, 0, len(invoiceLines)+len(receiptLines))
	lines = append(lines, invoiceLines...)
	lines = append(lines, receiptLines...)

	return &ManualJournal{
		Date:                   time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC),
		Status:                 StatusDraft,
		Narration:              Narration,
		LineAmountTypes:        LineAmountInclusive,
		ShowOnCashBasisReports: false,
		Lines:                  lines,
	}, true
}

// DayInput is one branch's raw records for one trading day.
type DayInput struct {
	BranchName string
	Date       time.Time
	Invoices   []Record
	Receipts   []Record
}

// DayResult is the outcome of BuildDaily. Journal is nil when there is
// nothing to post.
type DayResult struct {
	Journal    *ManualJournal
	Categories map[int]CategoryNet
	Payments   map[string]decimal.Decimal
	Warnings   []Warning
}

// BuildDaily runs the whole pipeline for one branch and day.
func (b *Builder) BuildDaily(in DayInput) DayResult {
	categories := AggregateInvoices(in.Invoices)
	payments := AggregateReceipts(in.Receipts)

	invoiceLines, warnings := b.InvoiceLines(categories, in.BranchName)
	receiptLines, receiptWarnings := b.ReceiptLines(payments, in.BranchName)
	warnings = append(warnings, receiptWarnings...)

	mj, _ := Assemble(in.Date, invoiceLines, receiptLines)

	return DayResult{
		Journal:    mj,
		Categories: categories,
		Payments:   payments,
		Warnings:   warnings,
	}
}
