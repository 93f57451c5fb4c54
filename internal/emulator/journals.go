package emulator

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// JournalLine is a manual journal line as received.
type JournalLine struct {
	Description string          `json:"Description"`
	LineAmount  decimal.Decimal `json:"LineAmount"`
	AccountCode string          `json:"AccountCode"`
	TaxType     string          `json:"TaxType"`
	Tracking    []Tracking      `json:"Tracking,omitempty"`
}

// Tracking is a tracking category option.
type Tracking struct {
	Name   string `json:"Name"`
	Option string `json:"Option"`
}

// ManualJournal is a stored manual journal.
type ManualJournal struct {
	ManualJournalID        string        `json:"ManualJournalID"`
	Date                   string        `json:"Date"`
	Status                 string        `json:"Status"`
	Narration              string        `json:"Narration"`
	LineAmountTypes        string        `json:"LineAmountTypes"`
	ShowOnCashBasisReports bool          `json:"ShowOnCashBasisReports"`
	JournalLines           []JournalLine `json:"JournalLines"`
	TenantID               string        `json:"-"`
	UpdatedDateUTC         time.Time     `json:"UpdatedDateUTC"`
}

// ValidationError is a rejected journal, reported as HTTP 400.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Validate applies the ledger's acceptance rules.
func (mj *ManualJournal) Validate() error {
	if _, err := time.Parse("2006-01-02", mj.Date); err != nil {
		return &ValidationError{Message: fmt.Sprintf("Date %q is not a valid date", mj.Date)}
	}
	if mj.Narration == "" {
		return &ValidationError{Message: "Narration is required"}
	}
	if len(mj.JournalLines) < 2 {
		return &ValidationError{Message: "A manual journal needs at least two lines"}
	}

	total := decimal.Zero
	for i, line := range mj.JournalLines {
		if line.AccountCode == "" {
			return &ValidationError{Message: fmt.Sprintf("JournalLines[%d]: AccountCode is required", i)}
		}
		total = total.Add(line.LineAmount)
	}
	if !total.IsZero() {
		return &ValidationError{Message: fmt.Sprintf("The total debits must equal the total credits (off by %s)", total)}
	}

	return nil
}

// CreateManualJournal validates and stores a journal, assigning its ID.
func (s *Store) CreateManualJournal(mj ManualJournal) (*ManualJournal, error) {
	if err := mj.Validate(); err != nil {
		return nil, err
	}

	mj.ManualJournalID = uuid.NewString()
	if mj.Status == "" {
		mj.Status = "DRAFT"
	}
	mj.UpdatedDateUTC = time.Now().UTC()

	if err := s.put(BucketJournals, mj.ManualJournalID, storedJournal{ManualJournal: mj, TenantID: mj.TenantID}); err != nil {
		return nil, fmt.Errorf("failed to save manual journal: %w", err)
	}
	return &mj, nil
}

// GetManualJournal retrieves a journal by ID.
func (s *Store) GetManualJournal(id string) (*ManualJournal, error) {
	var stored storedJournal
	if err := s.get(BucketJournals, id, &stored); err != nil {
		return nil, err
	}
	return stored.journal(), nil
}

// ListManualJournals returns all stored journals of a tenant.
func (s *Store) ListManualJournals(tenantID string) ([]ManualJournal, error) {
	rows, err := s.list(BucketJournals)
	if err != nil {
		return nil, fmt.Errorf("failed to list manual journals: %w", err)
	}

	journals := []ManualJournal{}
	for _, row := range rows {
		var stored storedJournal
		if err := json.Unmarshal(row, &stored); err != nil {
			return nil, fmt.Errorf("failed to decode manual journal: %w", err)
		}
		if stored.TenantID == tenantID {
			journals = append(journals, *stored.journal())
		}
	}
	return journals, nil
}

// storedJournal keeps the tenant alongside the public fields.
type storedJournal struct {
	ManualJournal
	TenantID string `json:"TenantID"`
}

func (s storedJournal) journal() *ManualJournal {
	mj := s.ManualJournal
	mj.TenantID = s.TenantID
	return &mj
}
