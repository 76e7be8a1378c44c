package opensearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/impensa/internal/common"
	"github.com/ternarybob/impensa/internal/httpclient"
	"github.com/ternarybob/impensa/internal/interfaces"
	"github.com/ternarybob/impensa/internal/models"
)

const (
	// DefaultBaseURL is the base URL for the OpenSearch service.
	DefaultBaseURL = "http://localhost:9200"

	// DefaultIndexName is the target index.
	DefaultIndexName = "ndf-docs"

	// DefaultRequestTimeout bounds reads (search, get, aggregations).
	DefaultRequestTimeout = 30 * time.Second

	// DefaultUpsertTimeout bounds writes (document upsert, index creation).
	DefaultUpsertTimeout = 60 * time.Second

	// settingsTimeout bounds the best-effort settings push.
	settingsTimeout = 5 * time.Second

	// highlightMaxAnalyzedOffset raises the per-field analysis limit so
	// highlighting keeps working on large extracted documents.
	highlightMaxAnalyzedOffset = 5000000
)

// aggregation bucket sizes for category counts
const (
	level1BucketSize = 500
	level2BucketSize = 1000
)

// Client talks to the OpenSearch index holding document records.
// Upserts are keyed by content hash and retried under the shared policy;
// read paths fail fast so API callers can surface upstream errors.
type Client struct {
	baseURL        string
	index          string
	mappingFile    string
	httpClient     *http.Client
	requestTimeout time.Duration
	upsertTimeout  time.Duration
	retryPolicy    *httpclient.RetryPolicy
	logger         arbor.ILogger
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithBaseURL sets a custom base URL.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithIndexName sets the target index name.
func WithIndexName(name string) ClientOption {
	return func(c *Client) {
		c.index = name
	}
}

// WithMappingFile sets the JSON index definition used at creation time.
func WithMappingFile(path string) ClientOption {
	return func(c *Client) {
		c.mappingFile = path
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithTimeouts sets the read and write timeouts.
func WithTimeouts(request, upsert time.Duration) ClientOption {
	return func(c *Client) {
		if request > 0 {
			c.requestTimeout = request
		}
		if upsert > 0 {
			c.upsertTimeout = upsert
		}
	}
}

// WithRetryPolicy sets a custom retry policy for upserts.
func WithRetryPolicy(policy *httpclient.RetryPolicy) ClientOption {
	return func(c *Client) {
		c.retryPolicy = policy
	}
}

// WithLogger sets a logger.
func WithLogger(logger arbor.ILogger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a new OpenSearch client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL:        DefaultBaseURL,
		index:          DefaultIndexName,
		httpClient:     &http.Client{},
		requestTimeout: DefaultRequestTimeout,
		upsertTimeout:  DefaultUpsertTimeout,
		retryPolicy:    httpclient.NewRetryPolicy(),
		logger:         common.GetLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// EnsureIndex checks the index exists and creates it from the configured
// mapping when absent. Not retried: a failure here means the service is
// misconfigured or down, and startup should fail loudly.
func (c *Client) EnsureIndex(ctx context.Context) error {
	status, _, err := c.do(ctx, http.MethodGet, "/"+c.index, nil, c.requestTimeout, "")
	if err != nil {
		return fmt.Errorf("index existence check failed: %w", err)
	}

	switch {
	case status == http.StatusOK:
		c.logger.Debug().Str("index", c.index).Msg("Index already exists")
		return nil
	case status == http.StatusNotFound:
		return c.createIndex(ctx)
	default:
		return fmt.Errorf("unexpected status %d checking index %s", status, c.index)
	}
}

// createIndex PUTs the index mapping. The mapping file is read fresh on
// every create so operators can adjust it without rebuilding.
func (c *Client) createIndex(ctx context.Context) error {
	body := c.loadMapping()

	status, respBody, err := c.do(ctx, http.MethodPut, "/"+c.index, body, c.upsertTimeout, "application/json")
	if err != nil {
		return fmt.Errorf("index creation failed: %w", err)
	}
	if status < 200 || status >= 300 {
		return &httpclient.APIError{
			StatusCode: status,
			Message:    strings.TrimSpace(string(respBody)),
			Endpoint:   "/" + c.index,
		}
	}

	c.logger.Info().Str("index", c.index).Msg("Created index")
	return nil
}

// loadMapping reads the index definition file, falling back to a minimal
// content-only mapping when the file is missing or not valid JSON.
func (c *Client) loadMapping() []byte {
	fallback := []byte(`{"mappings":{"properties":{"content":{"type":"text"}}}}`)

	if c.mappingFile == "" {
		return fallback
	}

	data, err := os.ReadFile(c.mappingFile)
	if err != nil {
		c.logger.Warn().Err(err).Str("file", c.mappingFile).Msg("Mapping file unreadable, using minimal mapping")
		return fallback
	}
	if !json.Valid(data) {
		c.logger.Warn().Str("file", c.mappingFile).Msg("Mapping file is not valid JSON, using minimal mapping")
		return fallback
	}
	return data
}

// UpsertDocument writes the record under its content hash, retrying
// transient failures. Because the identifier is derived from the file
// bytes, replays of the same content always converge to one record.
func (c *Client) UpsertDocument(ctx context.Context, doc *models.Document) error {
	id := doc.SHA256
	if id == "" {
		id = doc.ID
	}
	if id == "" {
		return fmt.Errorf("document has no identifier")
	}

	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}

	endpoint := fmt.Sprintf("/%s/_doc/%s", c.index, url.PathEscape(id))

	_, err = c.retryPolicy.ExecuteWithRetry(ctx, c.logger, func() (int, error) {
		status, respBody, reqErr := c.do(ctx, http.MethodPut, endpoint, payload, c.upsertTimeout, "application/json")
		if reqErr != nil {
			return status, reqErr
		}
		if status < 200 || status >= 300 {
			return status, &httpclient.APIError{
				StatusCode: status,
				Message:    strings.TrimSpace(string(respBody)),
				Endpoint:   endpoint,
			}
		}
		return status, nil
	})
	if err != nil {
		return fmt.Errorf("upsert failed for document %s: %w", id, err)
	}
	return nil
}

// GetDocument fetches one record's stored source by id.
func (c *Client) GetDocument(ctx context.Context, id string) (json.RawMessage, error) {
	endpoint := fmt.Sprintf("/%s/_doc/%s", c.index, url.PathEscape(id))

	status, body, err := c.do(ctx, http.MethodGet, endpoint, nil, c.requestTimeout, "")
	if err != nil {
		return nil, fmt.Errorf("document fetch failed: %w", err)
	}
	if status == http.StatusNotFound {
		return nil, interfaces.ErrDocumentNotFound
	}
	if status < 200 || status >= 300 {
		return nil, &httpclient.APIError{StatusCode: status, Message: strings.TrimSpace(string(body)), Endpoint: endpoint}
	}

	var envelope struct {
		Source json.RawMessage `json:"_source"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("failed to decode document envelope: %w", err)
	}
	return envelope.Source, nil
}

// Search executes a query body against the index and returns the raw
// response. Callers own the body shape; this keeps the index service a
// pass-through black box.
func (c *Client) Search(ctx context.Context, body map[string]interface{}) (json.RawMessage, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal search body: %w", err)
	}

	endpoint := fmt.Sprintf("/%s/_search", c.index)

	status, respBody, err := c.do(ctx, http.MethodPost, endpoint, payload, c.requestTimeout, "application/json")
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	if status < 200 || status >= 300 {
		return nil, &httpclient.APIError{StatusCode: status, Message: strings.TrimSpace(string(respBody)), Endpoint: endpoint}
	}

	return respBody, nil
}

// CategoryCounts aggregates document counts per category bucket.
func (c *Client) CategoryCounts(ctx context.Context) (*models.IndexStats, error) {
	body := map[string]interface{}{
		"size": 0,
		"aggs": map[string]interface{}{
			"by_level1": map[string]interface{}{
				"terms": map[string]interface{}{"field": "level1", "size": level1BucketSize},
			},
			"by_level2": map[string]interface{}{
				"terms": map[string]interface{}{"field": "level2", "size": level2BucketSize},
			},
		},
	}

	raw, err := c.Search(ctx, body)
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Hits struct {
			Total json.RawMessage `json:"total"`
		} `json:"hits"`
		Aggregations map[string]struct {
			Buckets []struct {
				Key      string `json:"key"`
				DocCount int    `json:"doc_count"`
			} `json:"buckets"`
		} `json:"aggregations"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode aggregation response: %w", err)
	}

	stats := models.NewIndexStats()
	stats.Total = decodeHitsTotal(parsed.Hits.Total)
	for _, bucket := range parsed.Aggregations["by_level1"].Buckets {
		stats.ByLevel1[bucket.Key] = bucket.DocCount
	}
	for _, bucket := range parsed.Aggregations["by_level2"].Buckets {
		stats.ByLevel2[bucket.Key] = bucket.DocCount
	}
	return stats, nil
}

// ApplyHighlightSettings raises the highlight analysis limit on the index.
// Failures are returned for the caller to log; they never block startup.
func (c *Client) ApplyHighlightSettings(ctx context.Context) error {
	payload := []byte(fmt.Sprintf(`{"index.highlight.max_analyzed_offset": %d}`, highlightMaxAnalyzedOffset))
	endpoint := fmt.Sprintf("/%s/_settings", c.index)

	status, body, err := c.do(ctx, http.MethodPut, endpoint, payload, settingsTimeout, "application/json")
	if err != nil {
		return fmt.Errorf("settings update failed: %w", err)
	}
	if status < 200 || status >= 300 {
		return &httpclient.APIError{StatusCode: status, Message: strings.TrimSpace(string(body)), Endpoint: endpoint}
	}
	return nil
}

// do performs one request with a per-call timeout and returns the status
// code and body. Transport failures return status 0.
func (c *Client) do(ctx context.Context, method, endpoint string, body []byte, timeout time.Duration, contentType string) (int, []byte, error) {
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(reqCtx, method, c.baseURL+endpoint, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return resp.StatusCode, respBody, nil
}

// decodeHitsTotal handles both the object form {"value": N} and the
// bare integer form older engines return.
func decodeHitsTotal(raw json.RawMessage) int {
	if len(raw) == 0 {
		return 0
	}
	var obj struct {
		Value int `json:"value"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return obj.Value
	}
	var n int
	if err := json.Unmarshal(raw, &n); err == nil {
		return n
	}
	return 0
}
