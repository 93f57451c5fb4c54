package reconcile

import (
	"fmt"

	"github.com/pigeonworks-llc/pos-journal-sync/pkg/beancount"
	"github.com/pigeonworks-llc/pos-journal-sync/pkg/converter"
	"github.com/pigeonworks-llc/pos-journal-sync/pkg/journal"
	"github.com/pigeonworks-llc/pos-journal-sync/pkg/pathutil"
	"github.com/pigeonworks-llc/pos-journal-sync/pkg/reference"
)

// Archive appends posted journals to the Beancount archive.
type Archive struct {
	converter *converter.Converter
	repo      beancount.Repository
}

// NewArchive creates an Archive rooted at root using the account mapping
// file at accountsPath (optional).
func NewArchive(root, accountsPath string) (*Archive, error) {
	mapper, err := converter.LoadMapper(accountsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load archive account mapping: %w", err)
	}

	return &Archive{
		converter: converter.NewConverter(mapper),
		repo:      beancount.NewFileSystemRepository(pathutil.New(root)),
	}, nil
}

// Append writes one journal and returns the file it was written to.
func (a *Archive) Append(runID string, branch reference.Branch, journalID string, mj *journal.ManualJournal) (string, error) {
	txn := a.converter.ConvertJournal(converter.PostedJournal{
		Journal:    mj,
		BranchCode: branch.Code,
		BranchName: branch.Name,
		JournalID:  journalID,
		RunID:      runID,
	})

	path, err := a.repo.AppendTransaction(txn)
	if err != nil {
		return "", fmt.Errorf("failed to append to archive: %w", err)
	}
	return path, nil
}
