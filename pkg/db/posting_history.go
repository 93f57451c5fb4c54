package db

import (
	"database/sql"
	"fmt"
	"time"
)

// PostingStatus is the outcome of one branch/day.
type PostingStatus string

const (
	StatusPosted PostingStatus = "posted"
	StatusEmpty  PostingStatus = "empty"
	StatusFailed PostingStatus = "failed"
	StatusDryRun PostingStatus = "dry_run"
)

// PostingRecord represents a posting history row.
type PostingRecord struct {
	ID          int64
	RunID       string
	BranchCode  string
	TradingDate string
	Status      PostingStatus
	JournalID   string
	LineCount   int
	Total       string
	Error       string
	RecordedAt  time.Time
}

// PostingHistory manages posting history operations.
type PostingHistory struct {
	conn *Connection
}

// NewPostingHistory creates a new PostingHistory instance.
func NewPostingHistory(conn *Connection) *PostingHistory {
	return &PostingHistory{conn: conn}
}

// Record inserts a posting history row.
func (h *PostingHistory) Record(rec PostingRecord) error {
	query := `
		INSERT INTO posting_history
			(run_id, branch_code, trading_date, status, journal_id, line_count, total, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	total := rec.Total
	if total == "" {
		total = "0"
	}

	_, err := h.conn.Exec(query,
		rec.RunID,
		rec.BranchCode,
		rec.TradingDate,
		string(rec.Status),
		nullString(rec.JournalID),
		rec.LineCount,
		total,
		nullString(rec.Error),
	)
	if err != nil {
		return fmt.Errorf("failed to record posting: %w", err)
	}

	return nil
}

// IsPosted reports whether a journal has already been posted for a branch and day.
func (h *PostingHistory) IsPosted(branchCode, tradingDate string) (bool, error) {
	query := `
		SELECT COUNT(*) FROM posting_history
		WHERE branch_code = ? AND trading_date = ? AND status = ?
	`

	var count int
	if err := h.conn.QueryRow(query, branchCode, tradingDate, string(StatusPosted)).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check posting history: %w", err)
	}

	return count > 0, nil
}

// Recent returns the most recent rows, newest first. A non-empty branchCode
// restricts the result to that branch.
func (h *PostingHistory) Recent(branchCode string, limit int) ([]PostingRecord, error) {
	query := `
		SELECT id, run_id, branch_code, trading_date, status, journal_id, line_count, total, error, recorded_at
		FROM posting_history
		WHERE (? = '' OR branch_code = ?)
		ORDER BY id DESC
		LIMIT ?
	`

	rows, err := h.conn.Query(query, branchCode, branchCode, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query posting history: %w", err)
	}
	defer rows.Close()

	var records []PostingRecord
	for rows.Next() {
		var (
			rec       PostingRecord
			status    string
			journalID sql.NullString
			errText   sql.NullString
		)

		if err := rows.Scan(
			&rec.ID,
			&rec.RunID,
			&rec.BranchCode,
			&rec.TradingDate,
			&status,
			&journalID,
			&rec.LineCount,
			&rec.Total,
			&errText,
			&rec.RecordedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan posting record: %w", err)
		}

		rec.Status = PostingStatus(status)
		rec.JournalID = journalID.String
		rec.Error = errText.String
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate posting history: %w", err)
	}

	return records, nil
}

// Stats represents posting statistics.
type Stats struct {
	Posted   int
	Failed   int
	Empty    int
	LastPost sql.NullString
}

// GetStats retrieves posting statistics.
func (h *PostingHistory) GetStats() (*Stats, error) {
	var stats Stats

	query := `
		SELECT
			COALESCE(SUM(CASE WHEN status = 'posted' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'failed' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'empty' THEN 1 ELSE 0 END), 0)
		FROM posting_history
	`
	if err := h.conn.QueryRow(query).Scan(&stats.Posted, &stats.Failed, &stats.Empty); err != nil {
		return nil, fmt.Errorf("failed to get posting counts: %w", err)
	}

	err := h.conn.QueryRow(`SELECT MAX(recorded_at) FROM posting_history WHERE status = 'posted'`).Scan(&stats.LastPost)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to get last posting time: %w", err)
	}

	return &stats, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
