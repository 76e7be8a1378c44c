package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ternarybob/impensa/internal/interfaces"
)

func TestGetDocumentHandler_ReturnsStoredSource(t *testing.T) {
	source := `{"title":"Note taxi","level1":"Frais","sha256":"abc123"}`
	var requestedID string
	index := &mockIndex{
		getDocumentFunc: func(ctx context.Context, id string) (json.RawMessage, error) {
			requestedID = id
			return json.RawMessage(source), nil
		},
	}
	handler := NewDocumentHandler(index, nil)

	req := httptest.NewRequest("GET", "/api/document/abc123", nil)
	rec := httptest.NewRecorder()
	handler.GetDocumentHandler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}
	if requestedID != "abc123" {
		t.Errorf("Expected lookup for abc123, got %q", requestedID)
	}
	if rec.Body.String() != source {
		t.Errorf("Expected stored source passthrough, got %s", rec.Body.String())
	}
}

func TestGetDocumentHandler_NotFound(t *testing.T) {
	index := &mockIndex{
		getDocumentFunc: func(ctx context.Context, id string) (json.RawMessage, error) {
			return nil, interfaces.ErrDocumentNotFound
		},
	}
	handler := NewDocumentHandler(index, nil)

	req := httptest.NewRequest("GET", "/api/document/deadbeef", nil)
	rec := httptest.NewRecorder()
	handler.GetDocumentHandler(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("Expected status 404, got %d", rec.Code)
	}

	var response map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if response["error"] != "Not found" {
		t.Errorf("Expected 'Not found', got %v", response)
	}
}

func TestGetDocumentHandler_EmptyID(t *testing.T) {
	handler := NewDocumentHandler(&mockIndex{}, nil)

	req := httptest.NewRequest("GET", "/api/document/", nil)
	rec := httptest.NewRecorder()
	handler.GetDocumentHandler(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", rec.Code)
	}
}

func TestGetDocumentHandler_IndexUnavailable(t *testing.T) {
	index := &mockIndex{
		getDocumentFunc: func(ctx context.Context, id string) (json.RawMessage, error) {
			return nil, context.DeadlineExceeded
		},
	}
	handler := NewDocumentHandler(index, nil)

	req := httptest.NewRequest("GET", "/api/document/abc123", nil)
	rec := httptest.NewRecorder()
	handler.GetDocumentHandler(rec, req)

	if rec.Code != http.StatusBadGateway {
		t.Errorf("Expected status 502, got %d", rec.Code)
	}
}
