package xero

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/oauth2"
)

// RefreshTokenStore persists the rotating refresh token between runs.
type RefreshTokenStore interface {
	RefreshToken(ctx context.Context) (string, error)
	SaveRefreshToken(ctx context.Context, token string) error
}

// saveTimeout bounds the write of a rotated refresh token.
const saveTimeout = 10 * time.Second

// rotatingSource wraps an oauth2 refresh source and writes every new
// refresh token back to the store. Xero invalidates the previous refresh
// token as soon as a new one is issued.
//
// Saves use ctx without its cancellation: once Xero has issued a new refresh
// token the old one is dead, so the write must finish even when the run is
// being cancelled. saveTimeout still bounds it.
type rotatingSource struct {
	mu    sync.Mutex
	ctx   context.Context
	src   oauth2.TokenSource
	store RefreshTokenStore
	last  string
}

func (s *rotatingSource) Token() (*oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tok, err := s.src.Token()
	if err != nil {
		return nil, err
	}

	if tok.RefreshToken != "" && tok.RefreshToken != s.last {
		ctx, cancel := context.WithTimeout(s.ctx, saveTimeout)
		defer cancel()

		if err := s.store.SaveRefreshToken(ctx, tok.RefreshToken); err != nil {
			return nil, fmt.Errorf("failed to save rotated refresh token: %w", err)
		}
		s.last = tok.RefreshToken
	}

	return tok, nil
}

// tokenSource returns the cached token source, creating it from the stored
// refresh token on first use.
func (c *Client) tokenSource(ctx context.Context) (oauth2.TokenSource, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.source != nil {
		return c.source, nil
	}

	refresh, err := c.store.RefreshToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load refresh token: %w", err)
	}

	// The access token is empty, so the first Token call performs the grant.
	seed := &oauth2.Token{RefreshToken: refresh}
	c.source = oauth2.ReuseTokenSource(nil, &rotatingSource{
		ctx:   context.WithoutCancel(ctx),
		src:   c.oauth.TokenSource(c.oauthCtx, seed),
		store: c.store,
		last:  refresh,
	})

	return c.source, nil
}

// AccessToken exchanges the stored refresh token for an access token.
func (c *Client) AccessToken(ctx context.Context) (string, error) {
	src, err := c.tokenSource(ctx)
	if err != nil {
		return "", err
	}

	tok, err := src.Token()
	if err != nil {
		return "", tokenError(err)
	}

	return tok.AccessToken, nil
}
