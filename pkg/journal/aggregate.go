package journal

import (
	"github.com/shopspring/decimal"
)

// bucket accumulates positive and negative amounts separately.
type bucket struct {
	positive decimal.Decimal
	negative decimal.Decimal
}

func (b *bucket) add(v decimal.Decimal) {
	switch {
	case v.IsPositive():
		b.positive = b.positive.Add(v)
	case v.IsNegative():
		b.negative = b.negative.Add(v.Abs())
	}
}

func (b bucket) net() decimal.Decimal {
	return b.positive.Sub(b.negative)
}

// CategoryNet is the net sale total and net GST of one stock category.
type CategoryNet struct {
	Total decimal.Decimal
	GST   decimal.Decimal
}

// AggregateInvoices nets invoice line items per stock type id.
//
// Items without a resolvable stock type id, and items where neither the
// total nor the GST amount parses, are skipped. Categories whose net total
// and net GST are both within 0.01 of zero are dropped.
func AggregateInvoices(invoices []Record) map[int]CategoryNet {
	type accum struct {
		total bucket
		gst   bucket
	}
	byType := make(map[int]*accum)

	for _, invoice := range invoices {
		for _, item := range invoice.Items(InvoiceItemsField) {
			id, ok := item.stockTypeID()
			if !ok {
				continue
			}

			total, totalOK := item.amount(TotalField)
			gst, gstOK := item.amount(GSTAmountField)
			if !totalOK && !gstOK {
				continue
			}

			a := byType[id]
			if a == nil {
				a = &accum{}
				byType[id] = a
			}
			// An unparseable field contributes nothing.
			if totalOK {
				a.total.add(total)
			}
			if gstOK {
				a.gst.add(gst)
			}
		}
	}

	result := make(map[int]CategoryNet, len(byType))
	for id, a := range byType {
		net := CategoryNet{Total: a.total.net(), GST: a.gst.net()}
		if significant(net.Total) || significant(net.GST) {
			result[id] = net
		}
	}
	return result
}

// AggregateReceipts nets receipt line items per payment type code.
//
// Items without a payment type code or with an unparseable amount are
// skipped. Codes whose net amount is within 0.01 of zero are dropped.
func AggregateReceipts(receipts []Record) map[string]decimal.Decimal {
	byCode := make(map[string]*bucket)

	for _, receipt := range receipts {
		for _, item := range receipt.Items(ReceiptItemsField) {
			code, ok := item.paymentTypeCode()
			if !ok {
				continue
			}

			amount, ok := item.amount(AmountField)
			if !ok {
				continue
			}

			b := byCode[code]
			if b == nil {
				b = &bucket{}
				byCode[code] = b
			}
			b.add(amount)
		}
	}

	result := make(map[string]decimal.Decimal, len(byCode))
	for code, b := range byCode {
		if net := b.net(); significant(net) {
			result[code] = net
		}
	}
	return result
}

// TaxSplit is a category's net sale value divided into taxable and
// tax-exempt income.
type TaxSplit struct {
	Taxable decimal.Decimal
	Exempt  decimal.Decimal
}

// SplitTax derives taxable income from the GST amount and treats the rest of
// the net total as exempt income.
func SplitTax(net CategoryNet, multiplier decimal.Decimal) TaxSplit {
	taxable := net.GST.Mul(multiplier)
	return TaxSplit{
		Taxable: taxable,
		Exempt:  net.Total.Sub(taxable),
	}
}
