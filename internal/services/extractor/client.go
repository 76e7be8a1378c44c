package extractor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/ternarybob/impensa/internal/common"
	"github.com/ternarybob/impensa/internal/httpclient"
	"github.com/ternarybob/impensa/internal/models"
)

const (
	// DefaultBaseURL is the base URL for the Tika extraction service.
	DefaultBaseURL = "http://localhost:9998"

	// DefaultMetadataTimeout bounds the metadata call.
	DefaultMetadataTimeout = 120 * time.Second

	// DefaultTextTimeout bounds the text call; OCR of large scans is slow.
	DefaultTextTimeout = 300 * time.Second

	// DefaultMaxExtractMB is the size threshold above which extraction is
	// skipped and the file is indexed with a filename-derived title only.
	DefaultMaxExtractMB = 30

	metadataEndpoint = "/meta"
	textEndpoint     = "/tika"
)

// Client calls the Tika extraction service. Each extraction is two PUTs
// of the raw file bytes: one for structured metadata, one for plain text.
// Both must succeed; failures retry as a unit under the retry policy.
type Client struct {
	baseURL         string
	httpClient      *http.Client
	metadataTimeout time.Duration
	textTimeout     time.Duration
	maxExtractBytes int64
	limiter         *rate.Limiter
	retryPolicy     *httpclient.RetryPolicy
	logger          arbor.ILogger
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithBaseURL sets a custom base URL.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithLogger sets a logger.
func WithLogger(logger arbor.ILogger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithTimeouts sets the per-call timeouts for the metadata and text requests.
func WithTimeouts(metadata, text time.Duration) ClientOption {
	return func(c *Client) {
		if metadata > 0 {
			c.metadataTimeout = metadata
		}
		if text > 0 {
			c.textTimeout = text
		}
	}
}

// WithMaxExtractMB sets the size threshold in megabytes above which
// extraction is skipped. Zero disables the threshold.
func WithMaxExtractMB(megabytes int) ClientOption {
	return func(c *Client) {
		c.maxExtractBytes = int64(megabytes) * 1024 * 1024
	}
}

// WithRateLimit sets a client-side rate limit in requests per second.
// Zero or negative disables limiting.
func WithRateLimit(requestsPerSecond float64) ClientOption {
	return func(c *Client) {
		if requestsPerSecond > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), 1)
		} else {
			c.limiter = nil
		}
	}
}

// WithRetryPolicy sets a custom retry policy.
func WithRetryPolicy(policy *httpclient.RetryPolicy) ClientOption {
	return func(c *Client) {
		c.retryPolicy = policy
	}
}

// NewClient creates a new extraction service client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		// No client-level timeout: the metadata and text calls carry their
		// own context deadlines, and the text call can legitimately run for
		// minutes on scanned documents.
		httpClient:      &http.Client{},
		metadataTimeout: DefaultMetadataTimeout,
		textTimeout:     DefaultTextTimeout,
		maxExtractBytes: int64(DefaultMaxExtractMB) * 1024 * 1024,
		retryPolicy:     httpclient.NewRetryPolicy(),
		logger:          common.GetLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Extract runs the metadata and text calls for the file at path. Oversized
// files skip the remote calls entirely and come back with the filename stem
// as title and Skipped set, so the caller can still index a usable record
// without mistaking it for a real extraction.
func (c *Client) Extract(ctx context.Context, path string) (*models.Extraction, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file for extraction: %w", err)
	}

	stem := fileStem(filepath.Base(path))

	if c.maxExtractBytes > 0 && info.Size() > c.maxExtractBytes {
		if c.logger != nil {
			c.logger.Info().
				Str("path", path).
				Int64("size_bytes", info.Size()).
				Int64("max_bytes", c.maxExtractBytes).
				Msg("File exceeds extraction size threshold, indexing without content")
		}
		return &models.Extraction{Title: stem, Skipped: true}, nil
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter wait aborted: %w", err)
		}
	}

	var extraction *models.Extraction
	_, err = c.retryPolicy.ExecuteWithRetry(ctx, c.logger, func() (int, error) {
		result, status, extractErr := c.extractOnce(ctx, path, stem)
		if extractErr != nil {
			return status, extractErr
		}
		extraction = result
		return status, nil
	})
	if err != nil {
		return nil, fmt.Errorf("extraction failed for %s: %w", path, err)
	}

	return extraction, nil
}

// extractOnce performs one metadata+text round trip. The file is re-read
// on every attempt so a partially written file settles between retries.
func (c *Client) extractOnce(ctx context.Context, path, stem string) (*models.Extraction, int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read file for extraction: %w", err)
	}

	metadata, status, err := c.fetchMetadata(ctx, data)
	if err != nil {
		return nil, status, err
	}

	text, status, err := c.fetchText(ctx, data)
	if err != nil {
		return nil, status, err
	}

	title := strings.TrimSpace(metadataString(metadata, "title"))
	if title == "" {
		title = strings.TrimSpace(metadataString(metadata, "dc:title"))
	}
	if title == "" {
		title = stem
	}

	mediaType := metadataString(metadata, "Content-Type")
	if mediaType == "" {
		mediaType = metadataString(metadata, "Content-Type-Parsed")
	}

	return &models.Extraction{
		Title:     title,
		Content:   text,
		MediaType: mediaType,
	}, status, nil
}

// fetchMetadata PUTs the file bytes to /meta and decodes the JSON response.
// An unparsable body degrades to empty metadata rather than failing the
// extraction; the title then falls back to the filename stem.
func (c *Client) fetchMetadata(ctx context.Context, data []byte) (map[string]interface{}, int, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.metadataTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPut, c.baseURL+metadataEndpoint, bytes.NewReader(data))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create metadata request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("metadata request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to read metadata response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, resp.StatusCode, &httpclient.APIError{
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(body)),
			Endpoint:   metadataEndpoint,
		}
	}

	metadata := make(map[string]interface{})
	if err := json.Unmarshal(body, &metadata); err != nil {
		metadata = map[string]interface{}{}
	}
	return metadata, resp.StatusCode, nil
}

// fetchText PUTs the file bytes to /tika and returns the plain text body.
func (c *Client) fetchText(ctx context.Context, data []byte) (string, int, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.textTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPut, c.baseURL+textEndpoint, bytes.NewReader(data))
	if err != nil {
		return "", 0, fmt.Errorf("failed to create text request: %w", err)
	}
	req.Header.Set("Accept", "text/plain")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("text request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", resp.StatusCode, fmt.Errorf("failed to read text response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", resp.StatusCode, &httpclient.APIError{
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(body)),
			Endpoint:   textEndpoint,
		}
	}

	return string(body), resp.StatusCode, nil
}

// metadataString reads a string value from Tika metadata, which may hold
// strings or string arrays per key. Arrays yield their first element.
func metadataString(metadata map[string]interface{}, key string) string {
	switch v := metadata[key].(type) {
	case string:
		return v
	case []interface{}:
		if len(v) > 0 {
			if s, ok := v[0].(string); ok {
				return s
			}
		}
	}
	return ""
}

// fileStem returns the file name without its extension.
func fileStem(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name))
}
