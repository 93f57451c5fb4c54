package reconcile

import (
	"github.com/shopspring/decimal"

	"github.com/pigeonworks-llc/pos-journal-sync/pkg/db"
	"github.com/pigeonworks-llc/pos-journal-sync/pkg/journal"
	"github.com/pigeonworks-llc/pos-journal-sync/pkg/reference"
)

// Outcome is the result of one branch in a run.
type Outcome string

const (
	OutcomePosted        Outcome = "posted"
	OutcomeDryRun        Outcome = "dry_run"
	OutcomeEmpty         Outcome = "empty"
	OutcomeAlreadyPosted Outcome = "already_posted"
	OutcomeFailed        Outcome = "failed"
)

func (o Outcome) postingStatus() db.PostingStatus {
	switch o {
	case OutcomePosted:
		return db.StatusPosted
	case OutcomeDryRun:
		return db.StatusDryRun
	case OutcomeEmpty:
		return db.StatusEmpty
	}
	return db.StatusFailed
}

// BranchResult is the outcome of one branch.
type BranchResult struct {
	Branch      reference.Branch
	Outcome     Outcome
	Journal     *journal.ManualJournal // nil when nothing was built
	JournalID   string
	ArchivePath string
	Warnings    []journal.Warning
	Err         error
}

func (r BranchResult) fail(err error) BranchResult {
	r.Outcome = OutcomeFailed
	r.Err = err
	return r
}

// Summary is the outcome of a run.
type Summary struct {
	RunID   string
	Date    string
	DryRun  bool
	Results []BranchResult
}

// Succeeded counts branches whose journal was posted or built in a dry run.
func (s *Summary) Succeeded() int {
	return s.count(OutcomePosted, OutcomeDryRun)
}

// Failed counts branches that failed.
func (s *Summary) Failed() int {
	return s.count(OutcomeFailed)
}

// Skipped counts branches with nothing to post or already posted.
func (s *Summary) Skipped() int {
	return s.count(OutcomeEmpty, OutcomeAlreadyPosted)
}

// Total returns the sum of debits over all built journals.
func (s *Summary) Total() decimal.Decimal {
	total := decimal.Zero
	for _, r := range s.Results {
		if r.Journal != nil && r.Outcome != OutcomeFailed {
			total = total.Add(r.Journal.Debits())
		}
	}
	return total
}

func (s *Summary) count(outcomes ...Outcome) int {
	n := 0
	for _, r := range s.Results {
		for _, o := range outcomes {
			if r.Outcome == o {
				n++
				break
			}
		}
	}
	return n
}
