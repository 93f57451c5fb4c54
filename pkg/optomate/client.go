// Package optomate provides a client for the Optomate OData API that serves
// the POS invoices and receipts of each branch.
package optomate

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pigeonworks-llc/pos-journal-sync/pkg/journal"
	"github.com/pigeonworks-llc/pos-journal-sync/pkg/tradingday"
)

// ClientConfig represents the configuration for the Optomate API client.
type ClientConfig struct {
	BaseURL    string
	Username   string
	Password   string
	Timeout    time.Duration // Default: 30 seconds
	HTTPClient *http.Client  // optional, overrides Timeout
}

// Client is an Optomate OData API client.
type Client struct {
	httpClient *http.Client
	baseURL    string
	username   string
	password   string
}

// APIError is returned for non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("optomate API error (status %d): %s", e.StatusCode, e.Body)
}

// listResponse is an OData collection page.
type listResponse struct {
	Value    []journal.Record `json:"value"`
	NextLink string           `json:"@odata.nextLink"`
}

// query describes one entity set request.
type query struct {
	entity    string
	expand    string
	dateField string
}

var (
	invoicesQuery = query{entity: "PatientInvoices", expand: "ITEMS", dateField: "SALE_DATE"}
	receiptsQuery = query{entity: "PatientReceipts", expand: "RECEIPT_ITEMS", dateField: "RECEIPT_DATE"}
)

// NewClient creates a new Optomate API client.
func NewClient(config ClientConfig) *Client {
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
		baseURL:    strings.TrimRight(config.BaseURL, "/"),
		username:   config.Username,
		password:   config.Password,
	}
}

// FetchInvoices returns the branch's invoices, with their ITEMS expanded,
// whose sale date falls inside the window.
func (c *Client) FetchInvoices(ctx context.Context, branchCode string, w tradingday.Window) ([]journal.Record, error) {
	records, err := c.fetchAll(ctx, invoicesQuery, branchCode, w)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch invoices for %s: %w", branchCode, err)
	}
	return records, nil
}

// FetchReceipts returns the branch's receipts, with their RECEIPT_ITEMS
// expanded, whose receipt date falls inside the window.
func (c *Client) FetchReceipts(ctx context.Context, branchCode string, w tradingday.Window) ([]journal.Record, error) {
	records, err := c.fetchAll(ctx, receiptsQuery, branchCode, w)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch receipts for %s: %w", branchCode, err)
	}
	return records, nil
}

// fetchAll follows @odata.nextLink until the collection is exhausted.
func (c *Client) fetchAll(ctx context.Context, q query, branchCode string, w tradingday.Window) ([]journal.Record, error) {
	records := []journal.Record{}
	next := c.buildURL(q, branchCode, w)

	for next != "" {
		page, err := c.get(ctx, next)
		if err != nil {
			return nil, err
		}
		records = append(records, page.Value...)
		next = page.NextLink
	}

	return records, nil
}

// buildURL builds the entity set URL with $expand and $filter.
func (c *Client) buildURL(q query, branchCode string, w tradingday.Window) string {
	filter := fmt.Sprintf("BRANCH_IDENTIFIER eq '%s' and %s ge %s and %s le %s",
		strings.ReplaceAll(branchCode, "'", "''"),
		q.dateField, w.StartString(),
		q.dateField, w.EndString(),
	)

	return fmt.Sprintf("%s/%s?$expand=%s&$filter=%s", c.baseURL, q.entity, q.expand, encodeComponent(filter))
}

func (c *Client) get(ctx context.Context, rawURL string) (*listResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.SetBasicAuth(c.username, c.password)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()

	var page listResponse
	if err := dec.Decode(&page); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &page, nil
}

// encodeComponent percent-encodes s for use as a query value, encoding
// spaces as %20 rather than '+'.
func encodeComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
