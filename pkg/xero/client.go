// Package xero provides a minimal Xero Accounting API client for posting
// manual journals.
package xero

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/pigeonworks-llc/pos-journal-sync/pkg/journal"
)

const (
	opToken        = "token refresh"
	opOrganisation = "organisation lookup"
	opJournal      = "manual journal create"
)

// ClientConfig represents the configuration for the Xero API client.
type ClientConfig struct {
	APIURL       string
	TokenURL     string
	ClientID     string
	ClientSecret string
	TenantID     string
	Timeout      time.Duration // Default: 30 seconds
	HTTPClient   *http.Client  // optional, used for both the token and API calls
}

// Client is a Xero Accounting API client.
type Client struct {
	httpClient *http.Client
	apiURL     string
	tenantID   string

	oauth    *oauth2.Config
	oauthCtx context.Context
	store    RefreshTokenStore

	mu     sync.Mutex
	source oauth2.TokenSource
}

// Organisation is the subset of the Organisation resource we report.
type Organisation struct {
	OrganisationID string `json:"OrganisationID"`
	Name           string `json:"Name"`
	BaseCurrency   string `json:"BaseCurrency"`
	CountryCode    string `json:"CountryCode"`
}

type organisationsResponse struct {
	Organisations []Organisation `json:"Organisations"`
}

// CreatedJournal is the subset of the ManualJournals response we keep.
type CreatedJournal struct {
	ManualJournalID string `json:"ManualJournalID"`
	Status          string `json:"Status"`
	Date            string `json:"Date"`
}

type manualJournalsRequest struct {
	ManualJournals []*journal.ManualJournal `json:"ManualJournals"`
}

type manualJournalsResponse struct {
	ManualJournals []CreatedJournal `json:"ManualJournals"`
}

// NewClient creates a new Xero API client. Refresh tokens are read from and
// rotated into store.
func NewClient(config ClientConfig, store RefreshTokenStore) *Client {
	httpClient := config.HTTPClient
	if httpClient == nil {
		timeout := config.Timeout
		if timeout == 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{
		httpClient: httpClient,
		apiURL:     strings.TrimRight(config.APIURL, "/"),
		tenantID:   config.TenantID,
		oauth: &oauth2.Config{
			ClientID:     config.ClientID,
			ClientSecret: config.ClientSecret,
			Endpoint: oauth2.Endpoint{
				TokenURL:  config.TokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		oauthCtx: context.WithValue(context.Background(), oauth2.HTTPClient, httpClient),
		store:    store,
	}
}

// TestConnection verifies the token and tenant by fetching the organisation.
func (c *Client) TestConnection(ctx context.Context) (*Organisation, error) {
	var resp organisationsResponse
	if err := c.do(ctx, http.MethodGet, "/Organisation", nil, opOrganisation, &resp); err != nil {
		return nil, err
	}

	if len(resp.Organisations) == 0 {
		return nil, fmt.Errorf("xero %s returned no organisations", opOrganisation)
	}

	return &resp.Organisations[0], nil
}

// CreateManualJournal posts one journal and returns the created resource.
func (c *Client) CreateManualJournal(ctx context.Context, mj *journal.ManualJournal) (*CreatedJournal, error) {
	body := manualJournalsRequest{ManualJournals: []*journal.ManualJournal{mj}}

	var resp manualJournalsResponse
	if err := c.do(ctx, http.MethodPost, "/ManualJournals", body, opJournal, &resp); err != nil {
		return nil, err
	}

	if len(resp.ManualJournals) == 0 {
		return nil, fmt.Errorf("xero %s returned no journals", opJournal)
	}

	return &resp.ManualJournals[0], nil
}

func (c *Client) do(ctx context.Context, method, path string, in any, op string, out any) error {
	accessToken, err := c.AccessToken(ctx)
	if err != nil {
		return err
	}

	var reader io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.apiURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Xero-tenant-id", c.tenantID)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 8192))
		return &APIError{Operation: op, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}
