package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ternarybob/impensa/internal/models"
)

// mockReconcileService implements interfaces.ReconcileService for testing
type mockReconcileService struct {
	reportFunc func(ctx context.Context) (*models.StatsReport, error)
}

func (m *mockReconcileService) Report(ctx context.Context) (*models.StatsReport, error) {
	if m.reportFunc != nil {
		return m.reportFunc(ctx)
	}
	return nil, nil
}

func TestGetStatsHandler_Success(t *testing.T) {
	disk := models.NewDiskStats("/data/Note de frais")
	disk.Total = 5
	disk.ByLevel1["Frais"] = 5
	index := models.NewIndexStats()
	index.Total = 4
	index.ByLevel1["Frais"] = 4

	service := &mockReconcileService{
		reportFunc: func(ctx context.Context) (*models.StatsReport, error) {
			return &models.StatsReport{
				DocRoot: disk.Root,
				Disk:    disk,
				Index:   index,
				Diff: &models.StatsDiff{
					TotalMissing:    1,
					ByLevel1Missing: map[string]int{"Frais": 1},
					ByLevel2Missing: map[string]int{},
				},
			}, nil
		},
	}
	handler := NewStatsHandler(service, nil)

	req := httptest.NewRequest("GET", "/api/stats", nil)
	rec := httptest.NewRecorder()
	handler.GetStatsHandler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}

	var response map[string]interface{}
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if response["doc_root"] != "/data/Note de frais" {
		t.Errorf("Unexpected doc_root: %v", response["doc_root"])
	}
	diff, ok := response["diff"].(map[string]interface{})
	if !ok {
		t.Fatalf("Expected diff object, got %v", response["diff"])
	}
	if int(diff["total_missing"].(float64)) != 1 {
		t.Errorf("Expected total_missing 1, got %v", diff["total_missing"])
	}
}

func TestGetStatsHandler_IndexUnavailable(t *testing.T) {
	service := &mockReconcileService{
		reportFunc: func(ctx context.Context) (*models.StatsReport, error) {
			return nil, errors.New("failed to fetch index stats: connection refused")
		},
	}
	handler := NewStatsHandler(service, nil)

	req := httptest.NewRequest("GET", "/api/stats", nil)
	rec := httptest.NewRecorder()
	handler.GetStatsHandler(rec, req)

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("Expected status 502, got %d", rec.Code)
	}

	var response map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if response["error"] != "Search index unavailable" {
		t.Errorf("Unexpected error message: %v", response)
	}
}
