package xero

import (
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
)

// APIError is a non-2xx response from the Xero API or identity server.
type APIError struct {
	Operation  string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("xero %s failed (status %d): %s", e.Operation, e.StatusCode, e.Body)
	if hint := e.Hint(); hint != "" {
		msg += " (" + hint + ")"
	}
	return msg
}

// Hint returns a remediation hint for common failure statuses.
func (e *APIError) Hint() string {
	if e.Operation == opToken && (e.StatusCode == http.StatusBadRequest || e.StatusCode == http.StatusUnauthorized) {
		return "refresh token expired or client credentials wrong; issue a new refresh token and run init-token"
	}

	switch e.StatusCode {
	case http.StatusUnauthorized:
		return "access token rejected; check XERO_TENANT_ID and the accounting.transactions scope"
	case http.StatusForbidden:
		return "the app is not allowed to create manual journals; check its scopes"
	case http.StatusNotFound:
		return "check XERO_API_URL and XERO_TENANT_ID"
	}
	return ""
}

// IsUnauthorized reports whether err is a 401 from Xero.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized
}

// tokenError converts an oauth2 retrieve error into an APIError.
func tokenError(err error) error {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) && re.Response != nil {
		return &APIError{
			Operation:  opToken,
			StatusCode: re.Response.StatusCode,
			Body:       string(re.Body),
		}
	}
	return fmt.Errorf("failed to refresh access token: %w", err)
}
