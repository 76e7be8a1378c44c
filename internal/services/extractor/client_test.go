package extractor

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/impensa/internal/httpclient"
)

func fastRetryPolicy() *httpclient.RetryPolicy {
	return &httpclient.RetryPolicy{
		MaxAttempts:       5,
		InitialBackoff:    time.Millisecond,
		MaxBackoff:        4 * time.Millisecond,
		BackoffMultiplier: 2.0,
	}
}

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func newTikaServer(t *testing.T, metaJSON string, text string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("method = %s, want PUT", r.Method)
		}
		switch r.URL.Path {
		case "/meta":
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(metaJSON))
		case "/tika":
			w.Header().Set("Content-Type", "text/plain")
			w.Write([]byte(text))
		default:
			http.NotFound(w, r)
		}
	}))
}

func TestExtractHappyPath(t *testing.T) {
	server := newTikaServer(t, `{"title":"Note de frais mars","Content-Type":"application/pdf"}`, "contenu extrait")
	defer server.Close()

	client := NewClient(
		WithBaseURL(server.URL),
		WithLogger(arbor.NewLogger()),
		WithRetryPolicy(fastRetryPolicy()),
	)

	path := writeTempFile(t, "mars.pdf", "fake pdf bytes")
	extraction, err := client.Extract(context.Background(), path)
	if err != nil {
		t.Fatalf("Extract() error: %v", err)
	}

	if extraction.Title != "Note de frais mars" {
		t.Errorf("title = %q", extraction.Title)
	}
	if extraction.Content != "contenu extrait" {
		t.Errorf("content = %q", extraction.Content)
	}
	if extraction.MediaType != "application/pdf" {
		t.Errorf("media type = %q", extraction.MediaType)
	}
}

func TestExtractTitleFallsBackToDCTitle(t *testing.T) {
	server := newTikaServer(t, `{"dc:title":"Justificatifs avril"}`, "texte")
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL), WithRetryPolicy(fastRetryPolicy()))

	extraction, err := client.Extract(context.Background(), writeTempFile(t, "avril.pdf", "bytes"))
	if err != nil {
		t.Fatal(err)
	}
	if extraction.Title != "Justificatifs avril" {
		t.Errorf("title = %q, want dc:title value", extraction.Title)
	}
}

func TestExtractTitleFallsBackToFilenameStem(t *testing.T) {
	server := newTikaServer(t, `{"title":"   "}`, "texte")
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL), WithRetryPolicy(fastRetryPolicy()))

	extraction, err := client.Extract(context.Background(), writeTempFile(t, "recu-taxi.pdf", "bytes"))
	if err != nil {
		t.Fatal(err)
	}
	if extraction.Title != "recu-taxi" {
		t.Errorf("title = %q, want filename stem", extraction.Title)
	}
}

func TestExtractToleratesBadMetadataJSON(t *testing.T) {
	server := newTikaServer(t, `<?xml not json`, "texte")
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL), WithRetryPolicy(fastRetryPolicy()))

	extraction, err := client.Extract(context.Background(), writeTempFile(t, "note.pdf", "bytes"))
	if err != nil {
		t.Fatalf("bad metadata JSON should not fail extraction: %v", err)
	}
	if extraction.Title != "note" {
		t.Errorf("title = %q, want stem fallback", extraction.Title)
	}
	if extraction.Content != "texte" {
		t.Errorf("content = %q", extraction.Content)
	}
}

func TestExtractSkipsOversizedFiles(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer server.Close()

	client := NewClient(
		WithBaseURL(server.URL),
		WithMaxExtractMB(1),
		WithRetryPolicy(fastRetryPolicy()),
	)

	path := filepath.Join(t.TempDir(), "gros-scan.pdf")
	if err := os.WriteFile(path, make([]byte, 2*1024*1024), 0644); err != nil {
		t.Fatal(err)
	}

	extraction, err := client.Extract(context.Background(), path)
	if err != nil {
		t.Fatalf("Extract() error: %v", err)
	}

	if got := atomic.LoadInt32(&calls); got != 0 {
		t.Errorf("extraction service received %d calls, want 0", got)
	}
	if extraction.Title != "gros-scan" {
		t.Errorf("title = %q, want filename stem", extraction.Title)
	}
	if extraction.Content != "" || extraction.MediaType != "" {
		t.Errorf("extraction = %+v, want empty content and media type", extraction)
	}
	if !extraction.Skipped {
		t.Error("oversized result should be marked skipped")
	}
}

func TestExtractAtThresholdStillExtracts(t *testing.T) {
	server := newTikaServer(t, `{"title":"Exact"}`, "texte")
	defer server.Close()

	client := NewClient(
		WithBaseURL(server.URL),
		WithMaxExtractMB(1),
		WithRetryPolicy(fastRetryPolicy()),
	)

	path := filepath.Join(t.TempDir(), "exact.pdf")
	if err := os.WriteFile(path, make([]byte, 1024*1024), 0644); err != nil {
		t.Fatal(err)
	}

	extraction, err := client.Extract(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	if extraction.Title != "Exact" {
		t.Errorf("title = %q, file at threshold should extract", extraction.Title)
	}
	if extraction.Skipped {
		t.Error("file at threshold should not be marked skipped")
	}
}

func TestExtractRetriesUntilExhaustion(t *testing.T) {
	var metaCalls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/meta" {
			atomic.AddInt32(&metaCalls, 1)
		}
		http.Error(w, "tika overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewClient(
		WithBaseURL(server.URL),
		WithLogger(arbor.NewLogger()),
		WithRetryPolicy(fastRetryPolicy()),
	)

	_, err := client.Extract(context.Background(), writeTempFile(t, "note.pdf", "bytes"))
	if err == nil {
		t.Fatal("expected error after retry exhaustion")
	}
	if got := atomic.LoadInt32(&metaCalls); got != 5 {
		t.Errorf("metadata attempts = %d, want 5", got)
	}
}

func TestExtractRetriesTextFailureAsUnit(t *testing.T) {
	// Text failing retries the whole metadata+text pair
	var metaCalls, textCalls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/meta":
			atomic.AddInt32(&metaCalls, 1)
			w.Write([]byte(`{"title":"T"}`))
		case "/tika":
			if atomic.AddInt32(&textCalls, 1) < 3 {
				http.Error(w, "busy", http.StatusServiceUnavailable)
				return
			}
			w.Write([]byte("texte"))
		}
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL), WithRetryPolicy(fastRetryPolicy()))

	extraction, err := client.Extract(context.Background(), writeTempFile(t, "note.pdf", "bytes"))
	if err != nil {
		t.Fatalf("Extract() error: %v", err)
	}
	if extraction.Content != "texte" {
		t.Errorf("content = %q", extraction.Content)
	}
	if got := atomic.LoadInt32(&metaCalls); got != 3 {
		t.Errorf("metadata attempts = %d, want 3 (re-run per retry)", got)
	}
}

func TestExtractMissingFile(t *testing.T) {
	client := NewClient(WithRetryPolicy(fastRetryPolicy()))
	_, err := client.Extract(context.Background(), filepath.Join(t.TempDir(), "ghost.pdf"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}
