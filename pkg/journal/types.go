// Package journal turns a branch's daily POS invoices and receipts into a
// balanced manual journal.
//
// Everything in this package is a pure function of its inputs: there is no
// I/O, no shared state and no error path. Malformed records are skipped and
// unresolvable reference codes are reported as Warning values.
package journal

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// TaxType is the ledger tax treatment of a journal line.
type TaxType string

const (
	TaxNone         TaxType = "NONE"
	TaxOutput       TaxType = "OUTPUT"
	TaxExemptOutput TaxType = "EXEMPTOUTPUT"
)

// Fixed values of the manual journal document.
const (
	StatusDraft         = "DRAFT"
	Narration           = "Daily Trading Sales and receipt"
	LineAmountInclusive = "Inclusive"
	ClearingDescription = "POS Clearing"
	TrackingName        = "Store"
	DateLayout          = "2006-01-02"
)

// amountPlaces is the precision of a posted line amount.
const amountPlaces = 2

// epsilon is the largest absolute amount treated as zero.
var epsilon = decimal.New(1, -amountPlaces)

// significant reports whether an amount is large enough to produce a line.
func significant(d decimal.Decimal) bool {
	return d.Abs().GreaterThan(epsilon)
}

// Line is a single journal line. Negative amounts are credits (income),
// positive amounts are debits (clearing).
type Line struct {
	Description string
	LineAmount  decimal.Decimal
	AccountCode string
	TaxType     TaxType
	Branch      string
}

// Tracking is a tracking category option attached to a line.
type Tracking struct {
	Name   string `json:"Name"`
	Option string `json:"Option"`
}

// MarshalJSON encodes the line in the ledger API shape.
func (l Line) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Description string      `json:"Description"`
		LineAmount  json.Number `json:"LineAmount"`
		AccountCode string      `json:"AccountCode"`
		TaxType     TaxType     `json:"TaxType"`
		Tracking    []Tracking  `json:"Tracking"`
	}{
		Description: l.Description,
		LineAmount:  json.Number(l.LineAmount.String()),
		AccountCode: l.AccountCode,
		TaxType:     l.TaxType,
		Tracking:    []Tracking{{Name: TrackingName, Option: l.Branch}},
	})
}

// ManualJournal is the document handed to the ledger.
type ManualJournal struct {
	Date                   time.Time
	Status                 string
	Narration              string
	LineAmountTypes        string
	ShowOnCashBasisReports bool
	Lines                  []Line
}

// DateString returns the journal date as YYYY-MM-DD.
func (j *ManualJournal) DateString() string {
	return j.Date.Format(DateLayout)
}

// MarshalJSON encodes the journal in the ledger API shape.
func (j ManualJournal) MarshalJSON() ([]byte, error) {
	lines := j.Lines
	if lines == nil {
		lines = []Line{}
	}
	return json.Marshal(struct {
		Date                   string `json:"Date"`
		Status                 string `json:"Status"`
		Narration              string `json:"Narration"`
		LineAmountTypes        string `json:"LineAmountTypes"`
		ShowOnCashBasisReports bool   `json:"ShowOnCashBasisReports"`
		JournalLines           []Line `json:"JournalLines"`
	}{
		Date:                   j.DateString(),
		Status:                 j.Status,
		Narration:              j.Narration,
		LineAmountTypes:        j.LineAmountTypes,
		ShowOnCashBasisReports: j.ShowOnCashBasisReports,
		JournalLines:           lines,
	})
}

// Debits returns the sum of positive line amounts.
func (j *ManualJournal) Debits() decimal.Decimal {
	total := decimal.Zero
	for _, l := range j.Lines {
		if l.LineAmount.IsPositive() {
			total = total.Add(l.LineAmount)
		}
	}
	return total
}

// Balance returns the signed sum of all line amounts. It is zero for every
// journal produced by this package.
func (j *ManualJournal) Balance() decimal.Decimal {
	total := decimal.Zero
	for _, l := range j.Lines {
		total = total.Add(l.LineAmount)
	}
	return total
}
