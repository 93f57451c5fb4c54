// Package db provides SQLite storage for the Xero refresh token and the
// history of posted journals.
package db

// Schema defines the SQL statements to create database tables.
const Schema = `
-- Single-row store for the rotating Xero refresh token
CREATE TABLE IF NOT EXISTS xero_tokens (
    id INTEGER PRIMARY KEY,
    refresh_token TEXT NOT NULL,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

-- One row per branch/trading day attempt
CREATE TABLE IF NOT EXISTS posting_history (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id TEXT NOT NULL,
    branch_code TEXT NOT NULL,
    trading_date TEXT NOT NULL,        -- YYYY-MM-DD
    status TEXT NOT NULL,              -- 'posted', 'empty', 'failed', 'dry_run'
    journal_id TEXT,                   -- ManualJournalID returned by Xero
    line_count INTEGER NOT NULL DEFAULT 0,
    total TEXT NOT NULL DEFAULT '0',   -- sum of debits, decimal string
    error TEXT,
    recorded_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_posting_history_branch_date
    ON posting_history(branch_code, trading_date);

CREATE INDEX IF NOT EXISTS idx_posting_history_run
    ON posting_history(run_id);
`

// InitializeSchema creates all tables if they don't exist.
func InitializeSchema(conn *Connection) error {
	if _, err := conn.Exec(Schema); err != nil {
		return err
	}
	return nil
}
