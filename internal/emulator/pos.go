package emulator

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"
)

// posTimeLayout is the timestamp format used in OData filters.
const posTimeLayout = "2006-01-02T15:04:05Z"

// Fixtures is the on-disk format of seeded POS data.
type Fixtures struct {
	Invoices []map[string]any `json:"invoices"`
	Receipts []map[string]any `json:"receipts"`
}

// posQuery is a parsed OData $filter of the form
// BRANCH_IDENTIFIER eq 'X' and F ge S and F le E.
type posQuery struct {
	branch    string
	dateField string
	start     time.Time
	end       time.Time
}

var filterPattern = regexp.MustCompile(
	`^BRANCH_IDENTIFIER eq '((?:[^']|'')*)' and (\w+) ge (\S+) and (\w+) le (\S+)$`)

func parseFilter(filter string) (*posQuery, error) {
	m := filterPattern.FindStringSubmatch(strings.TrimSpace(filter))
	if m == nil {
		return nil, fmt.Errorf("unsupported $filter: %q", filter)
	}
	if m[2] != m[4] {
		return nil, fmt.Errorf("$filter compares different fields: %s, %s", m[2], m[4])
	}

	start, err := time.Parse(posTimeLayout, m[3])
	if err != nil {
		return nil, fmt.Errorf("invalid start %q: %w", m[3], err)
	}
	end, err := time.Parse(posTimeLayout, m[5])
	if err != nil {
		return nil, fmt.Errorf("invalid end %q: %w", m[5], err)
	}

	return &posQuery{
		branch:    strings.ReplaceAll(m[1], "''", "'"),
		dateField: m[2],
		start:     start,
		end:       end,
	}, nil
}

func (q *posQuery) matches(record map[string]any) bool {
	if branch, _ := record["BRANCH_IDENTIFIER"].(string); branch != q.branch {
		return false
	}

	raw, _ := record[q.dateField].(string)
	at, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return false
	}
	return !at.Before(q.start) && !at.After(q.end)
}

// AddInvoices seeds PatientInvoices records.
func (s *Store) AddInvoices(records ...map[string]any) error {
	return s.addRecords(BucketInvoices, records)
}

// AddReceipts seeds PatientReceipts records.
func (s *Store) AddReceipts(records ...map[string]any) error {
	return s.addRecords(BucketReceipts, records)
}

func (s *Store) addRecords(bucket string, records []map[string]any) error {
	for _, record := range records {
		if err := s.append(bucket, record); err != nil {
			return fmt.Errorf("failed to seed %s: %w", bucket, err)
		}
	}
	return nil
}

// LoadFixtures seeds invoices and receipts from a JSON file.
func (s *Store) LoadFixtures(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read fixtures: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var fx Fixtures
	if err := dec.Decode(&fx); err != nil {
		return 0, fmt.Errorf("failed to parse fixtures: %w", err)
	}

	if err := s.AddInvoices(fx.Invoices...); err != nil {
		return 0, err
	}
	if err := s.AddReceipts(fx.Receipts...); err != nil {
		return 0, err
	}
	return len(fx.Invoices) + len(fx.Receipts), nil
}

// queryRecords returns the records of bucket matching q.
func (s *Store) queryRecords(bucket string, q *posQuery) ([]json.RawMessage, error) {
	rows, err := s.list(bucket)
	if err != nil {
		return nil, err
	}

	out := []json.RawMessage{}
	for _, row := range rows {
		var record map[string]any
		if err := json.Unmarshal(row, &record); err != nil {
			return nil, fmt.Errorf("failed to decode %s record: %w", bucket, err)
		}
		if q.matches(record) {
			out = append(out, json.RawMessage(row))
		}
	}
	return out, nil
}
