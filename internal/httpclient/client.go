package httpclient

import (
	"fmt"
	"net/http"
	"time"
)

// NewDefaultHTTPClient creates a simple HTTP client with a timeout
func NewDefaultHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
	}
}

// APIError represents an error response from a remote service. The status
// code lets retry logic distinguish transient failures from permanent ones.
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (status %d) on %s: %s", e.StatusCode, e.Endpoint, e.Message)
}
