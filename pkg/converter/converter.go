package converter

import (
	"strings"

	"github.com/pigeonworks-llc/pos-journal-sync/pkg/beancount"
	"github.com/pigeonworks-llc/pos-journal-sync/pkg/journal"
)

// Converter converts manual journals to Beancount transactions.
type Converter struct {
	mapper *Mapper
}

// NewConverter creates a new Converter.
func NewConverter(mapper *Mapper) *Converter {
	return &Converter{mapper: mapper}
}

// PostedJournal carries a journal with the identifiers known after posting.
type PostedJournal struct {
	Journal    *journal.ManualJournal
	BranchCode string
	BranchName string
	JournalID  string // empty for dry runs
	RunID      string
}

// ConvertJournal converts a journal to a Beancount transaction. Lines keep
// their order; each becomes one posting.
func (c *Converter) ConvertJournal(p PostedJournal) beancount.Transaction {
	postings := make([]beancount.Posting, 0, len(p.Journal.Lines))
	for _, line := range p.Journal.Lines {
		postings = append(postings, beancount.Posting{
			Account:  c.mapper.BeancountAccountWithFallback(line.AccountCode, fallbackAccount(line)),
			Amount:   line.LineAmount,
			Currency: c.mapper.Currency(),
			Comment:  lineComment(line),
		})
	}

	metadata := map[string]string{
		"branch": p.BranchCode,
	}
	if p.RunID != "" {
		metadata["run_id"] = p.RunID
	}

	var links []string
	if p.JournalID != "" {
		links = []string{"xero-" + p.JournalID}
	}

	return beancount.Transaction{
		Date:      p.Journal.DateString(),
		Payee:     p.BranchName,
		Narration: p.Journal.Narration,
		Tags:      []string{"pos-" + sanitizeComponent(p.BranchCode)},
		Links:     links,
		Metadata:  metadata,
		Postings:  postings,
	}
}

// fallbackAccount derives an account for unmapped codes from the line kind.
func fallbackAccount(line journal.Line) string {
	code := sanitizeComponent(line.AccountCode)
	switch {
	case line.Description == journal.ClearingDescription:
		return "Assets:Clearing:" + code
	case line.TaxType == journal.TaxNone:
		return "Assets:Receipts:" + code
	default:
		return "Income:Sales:" + code
	}
}

func lineComment(line journal.Line) string {
	if line.TaxType == journal.TaxNone {
		return line.Description
	}
	return line.Description + " " + string(line.TaxType)
}

// sanitizeComponent makes s usable as an account component or tag.
func sanitizeComponent(s string) string {
	s = strings.ReplaceAll(s, " ", "")
	if s == "" {
		return "Unknown"
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
