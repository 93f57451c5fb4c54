package emulator

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"time"
)

const (
	tokenLength     = 32
	tokenTTL        = 1800          // seconds, as issued by Xero
	refreshTokenTTL = 60 * 24 * 3600 // 60 days
	refreshPrefix   = "refresh:"
)

// TokenManager issues and validates emulator tokens.
type TokenManager struct {
	store *Store
	now   func() time.Time
}

// NewTokenManager creates a new TokenManager.
func NewTokenManager(s *Store) *TokenManager {
	return &TokenManager{store: s, now: time.Now}
}

// IssueAccessToken generates a new access token and stores it.
func (tm *TokenManager) IssueAccessToken() (string, error) {
	token, err := generateRandomToken(tokenLength)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}

	if err := tm.store.putString(BucketTokens, token, tm.expiry(tokenTTL)); err != nil {
		return "", fmt.Errorf("failed to store token: %w", err)
	}
	return token, nil
}

// IssueRefreshToken generates a new refresh token and stores it.
func (tm *TokenManager) IssueRefreshToken() (string, error) {
	token, err := generateRandomToken(tokenLength)
	if err != nil {
		return "", fmt.Errorf("failed to generate refresh token: %w", err)
	}

	if err := tm.SeedRefreshToken(token); err != nil {
		return "", err
	}
	return token, nil
}

// SeedRefreshToken registers a known refresh token, e.g. for tests.
func (tm *TokenManager) SeedRefreshToken(token string) error {
	if err := tm.store.putString(BucketTokens, refreshPrefix+token, tm.expiry(refreshTokenTTL)); err != nil {
		return fmt.Errorf("failed to store refresh token: %w", err)
	}
	return nil
}

// RedeemRefreshToken consumes a refresh token. Each refresh token can be
// used once.
func (tm *TokenManager) RedeemRefreshToken(token string) (bool, error) {
	expiresAt, err := tm.store.takeString(BucketTokens, refreshPrefix+token)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get refresh token: %w", err)
	}
	return tm.unexpired(expiresAt)
}

// ValidateAccessToken validates an access token.
func (tm *TokenManager) ValidateAccessToken(token string) (bool, error) {
	expiresAt, err := tm.store.getString(BucketTokens, token)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get token: %w", err)
	}

	ok, err := tm.unexpired(expiresAt)
	if err == nil && !ok {
		_ = tm.store.deleteString(BucketTokens, token)
	}
	return ok, err
}

func (tm *TokenManager) expiry(ttl int) string {
	return strconv.FormatInt(tm.now().Add(time.Duration(ttl)*time.Second).Unix(), 10)
}

func (tm *TokenManager) unexpired(expiresAt string) (bool, error) {
	unix, err := strconv.ParseInt(expiresAt, 10, 64)
	if err != nil {
		return false, fmt.Errorf("failed to parse expiration time: %w", err)
	}
	return tm.now().Unix() <= unix, nil
}

func generateRandomToken(length int) (string, error) {
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
