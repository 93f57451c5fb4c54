package journal

import (
	"fmt"
	"sort"

	"github.com/pigeonworks-llc/pos-journal-sync/pkg/reference"
	"github.com/shopspring/decimal"
)

// WarningKind classifies a Warning.
type WarningKind string

const (
	WarnUnknownStockType   WarningKind = "unknown_stock_type"
	WarnUnknownPaymentType WarningKind = "unknown_payment_type"
)

// Warning reports a non-fatal problem found while building lines.
type Warning struct {
	Kind WarningKind
	Key  string
	Net  decimal.Decimal
}

func (w Warning) String() string {
	switch w.Kind {
	case WarnUnknownStockType:
		return fmt.Sprintf("no reference entry for STOCK_TYPE_ID %s (net %s skipped)", w.Key, w.Net)
	case WarnUnknownPaymentType:
		return fmt.Sprintf("no reference entry for PAYMENT_TYPE_CODE %q (net %s skipped)", w.Key, w.Net)
	}
	return fmt.Sprintf("%s: %s", w.Kind, w.Key)
}

// Builder builds journal lines against a set of reference tables.
type Builder struct {
	tables *reference.Tables
}

// NewBuilder creates a new Builder.
func NewBuilder(tables *reference.Tables) *Builder {
	return &Builder{tables: tables}
}

// stage collects content lines and closes them with a clearing line.
type stage struct {
	lines []Line
	total decimal.Decimal
}

func (s *stage) credit(description, accountCode string, taxType TaxType, amount decimal.Decimal, branch string) {
	if !significant(amount) {
		return
	}
	// The clearing line sums the rounded amounts so the stage balances at cent precision.
	abs := amount.Abs().Round(amountPlaces)
	s.lines = append(s.lines, Line{
		Description: description,
		LineAmount:  abs.Neg(),
		AccountCode: accountCode,
		TaxType:     taxType,
		Branch:      branch,
	})
	s.total = s.total.Add(abs)
}

func (s *stage) close(clearingAccount, branch string) []Line {
	if len(s.lines) > 0 {
		s.lines = append(s.lines, Line{
			Description: ClearingDescription,
			LineAmount:  s.total,
			AccountCode: clearingAccount,
			TaxType:     TaxNone,
			Branch:      branch,
		})
	}
	return s.lines
}

// InvoiceLines builds the taxable-income stage followed by the
// exempt-income stage. Each stage ends with its own clearing line.
func (b *Builder) InvoiceLines(nets map[int]CategoryNet, branch string) ([]Line, []Warning) {
	ids := make([]int, 0, len(nets))
	for id := range nets {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	type resolved struct {
		stockType reference.StockType
		split     TaxSplit
	}
	var (
		known    []resolved
		warnings []Warning
	)
	for _, id := range ids {
		st, ok := b.tables.StockType(id)
		if !ok {
			warnings = append(warnings, Warning{
				Kind: WarnUnknownStockType,
				Key:  fmt.Sprintf("%d", id),
				Net:  nets[id].Total,
			})
			continue
		}
		known = append(known, resolved{stockType: st, split: SplitTax(nets[id], b.tables.GSTMultiplier())})
	}

	clearing := b.tables.ClearingAccountCode()

	var taxable stage
	for _, r := range known {
		taxable.credit(r.stockType.Description, r.stockType.AccountCode, TaxOutput, r.split.Taxable, branch)
	}

	var exempt stage
	for _, r := range known {
		exempt.credit(r.stockType.Description, r.stockType.AccountCode, TaxExemptOutput, r.split.Exempt, branch)
	}

	lines := taxable.close(clearing, branch)
	lines = append(lines, exempt.close(clearing, branch)...)
	return lines, warnings
}

// ReceiptLines builds one credit line per payment type, in code order,
// followed by a single clearing line.
func (b *Builder) ReceiptLines(nets map[string]decimal.Decimal, branch string) ([]Line, []Warning) {
	codes := make([]string, 0, len(nets))
	for code := range nets {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	var (
		payments stage
		warnings []Warning
	)
	for _, code := range codes {
		pt, ok := b.tables.PaymentType(code)
		if !ok {
			warnings = append(warnings, Warning{Kind: WarnUnknownPaymentType, Key: code, Net: nets[code]})
			continue
		}
		payments.credit(pt.Description, pt.AccountCode, TaxNone, nets[code], branch)
	}

	return payments.close(b.tables.ClearingAccountCode(), branch), warnings
}
