package journal

import (
	"testing"

	"github.com/pigeonworks-llc/pos-journal-sync/pkg/reference"
	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func invoiceItem(stockType any, total, gst any) Record {
	return Record{"STOCK_TYPE_ID": stockType, "TOTAL": total, "GST_AMOUNT": gst}
}

func invoice(items ...Record) Record {
	list := make([]any, len(items))
	for i, it := range items {
		list[i] = map[string]any(it)
	}
	return Record{"ITEMS": list}
}

func receiptItem(code string, amount any) Record {
	return Record{"PAYMENT_TYPE_CODE": code, "AMOUNT": amount}
}

func receipt(items ...Record) Record {
	list := make([]any, len(items))
	for i, it := range items {
		list[i] = map[string]any(it)
	}
	return Record{"RECEIPT_ITEMS": list}
}

func newTestBuilder(t *testing.T) *Builder {
	t.Helper()
	return NewBuilder(reference.Default())
}

// stageSums splits lines at each clearing line and returns the sum of every
// stage including its clearing line.
func stageSums(lines []Line) []decimal.Decimal {
	var sums []decimal.Decimal
	current := decimal.Zero
	for _, l := range lines {
		current = current.Add(l.LineAmount)
		if l.Description == ClearingDescription {
			sums = append(sums, current)
			current = decimal.Zero
		}
	}
	return sums
}
