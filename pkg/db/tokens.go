package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ErrNoRefreshToken is returned when no refresh token has been stored yet.
var ErrNoRefreshToken = errors.New("no refresh token stored; run init-token first")

const tokenRowID = 1

// TokenStore persists the Xero refresh token.
type TokenStore struct {
	conn *Connection
}

// NewTokenStore creates a new TokenStore.
func NewTokenStore(conn *Connection) *TokenStore {
	return &TokenStore{conn: conn}
}

// RefreshToken returns the stored refresh token.
func (s *TokenStore) RefreshToken(ctx context.Context) (string, error) {
	var token string
	err := s.conn.db.QueryRowContext(ctx,
		`SELECT refresh_token FROM xero_tokens WHERE id = ?`, tokenRowID,
	).Scan(&token)

	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNoRefreshToken
	}
	if err != nil {
		return "", fmt.Errorf("failed to get refresh token: %w", err)
	}

	return token, nil
}

// SaveRefreshToken inserts or replaces the stored refresh token.
func (s *TokenStore) SaveRefreshToken(ctx context.Context, token string) error {
	if token == "" {
		return fmt.Errorf("refusing to store empty refresh token")
	}

	query := `
		INSERT INTO xero_tokens (id, refresh_token, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
			refresh_token = excluded.refresh_token,
			updated_at = CURRENT_TIMESTAMP
	`

	if _, err := s.conn.db.ExecContext(ctx, query, tokenRowID, token); err != nil {
		return fmt.Errorf("failed to save refresh token: %w", err)
	}

	return nil
}
