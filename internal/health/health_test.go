package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/imedwei/backup-retention/internal/storage"
)

type mockStorage struct {
	listErr    error
	listBucket string
}

func (m *mockStorage) ListPage(ctx context.Context, bucket, prefix, token string) (*storage.Page, error) {
	m.listBucket = bucket
	if m.listErr != nil {
		return nil, m.listErr
	}
	return &storage.Page{}, nil
}

func (m *mockStorage) DeleteObjects(ctx context.Context, bucket string, keys []string) ([]storage.DeleteError, error) {
	return nil, errors.New("health checks must not delete")
}

func TestChecker(t *testing.T) {
	checker := NewChecker()

	checker.RegisterCheck("test-healthy", func(ctx context.Context) Check {
		return Check{
			Status:    StatusHealthy,
			Timestamp: time.Now(),
			Details:   map[string]any{"test": "value"},
		}
	})

	checker.RegisterCheck("test-unhealthy", func(ctx context.Context) Check {
		return Check{
			Status:    StatusUnhealthy,
			Timestamp: time.Now(),
			Details:   map[string]any{"error": "test error"},
		}
	})

	results := checker.CheckHealth(context.Background())

	if len(results) != 2 {
		t.Errorf("Expected 2 results, got %d", len(results))
	}

	if results["test-healthy"].Status != StatusHealthy {
		t.Errorf("Expected test-healthy to be healthy")
	}

	if results["test-unhealthy"].Status != StatusUnhealthy {
		t.Errorf("Expected test-unhealthy to be unhealthy")
	}
}

func TestHealthHandler(t *testing.T) {
	checker := NewChecker()

	checker.RegisterCheck("healthy", func(ctx context.Context) Check {
		return Check{Status: StatusHealthy, Timestamp: time.Now()}
	})

	checker.RegisterCheck("unhealthy", func(ctx context.Context) Check {
		return Check{Status: StatusUnhealthy, Timestamp: time.Now()}
	})

	req, err := http.NewRequest("GET", "/health", nil)
	if err != nil {
		t.Fatal(err)
	}

	rr := httptest.NewRecorder()
	checker.Handler().ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusServiceUnavailable {
		t.Errorf("handler returned wrong status code: got %v want %v",
			status, http.StatusServiceUnavailable)
	}

	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("handler returned Content-Type %q, want application/json", ct)
	}

	var response struct {
		Status    Status           `json:"status"`
		Checks    map[string]Check `json:"checks"`
		Timestamp time.Time        `json:"timestamp"`
	}

	if err := json.NewDecoder(rr.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if response.Status != StatusUnhealthy {
		t.Errorf("Expected overall status to be unhealthy")
	}

	if len(response.Checks) != 2 {
		t.Errorf("Expected 2 checks in response, got %d", len(response.Checks))
	}
}

func TestStorageCheck(t *testing.T) {
	tests := []struct {
		name       string
		listErr    error
		wantStatus Status
	}{
		{
			name:       "listing succeeds",
			wantStatus: StatusHealthy,
		},
		{
			name:       "listing fails",
			listErr:    errors.New("AccessDenied"),
			wantStatus: StatusUnhealthy,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &mockStorage{listErr: tt.listErr}
			check := StorageCheck(store, "DB_backups", "", time.Second)(context.Background())

			if check.Status != tt.wantStatus {
				t.Errorf("StorageCheck() status = %v, want %v", check.Status, tt.wantStatus)
			}
			if store.listBucket != "DB_backups" {
				t.Errorf("StorageCheck() listed bucket %q, want DB_backups", store.listBucket)
			}
			if tt.listErr != nil && check.Details["error"] != tt.listErr.Error() {
				t.Errorf("StorageCheck() error detail = %v, want %v", check.Details["error"], tt.listErr)
			}
		})
	}
}

func TestSweepTracker(t *testing.T) {
	tracker := &SweepTracker{}

	if got := tracker.Check(context.Background()).Status; got != StatusPending {
		t.Errorf("Check() before any sweep = %v, want %v", got, StatusPending)
	}

	tracker.Record(12, 3, nil)
	check := tracker.Check(context.Background())
	if check.Status != StatusHealthy {
		t.Errorf("Check() after success = %v, want %v", check.Status, StatusHealthy)
	}
	if check.Details["deleted"] != 3 {
		t.Errorf("Check() deleted detail = %v, want 3", check.Details["deleted"])
	}

	tracker.Record(12, 0, errors.New("batch delete failed"))
	if got := tracker.Check(context.Background()).Status; got != StatusUnhealthy {
		t.Errorf("Check() after failure = %v, want %v", got, StatusUnhealthy)
	}
}

func TestReadinessHandler(t *testing.T) {
	req, err := http.NewRequest("GET", "/ready", nil)
	if err != nil {
		t.Fatal(err)
	}

	rr := httptest.NewRecorder()
	ReadinessHandler().ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusOK {
		t.Errorf("handler returned wrong status code: got %v want %v",
			status, http.StatusOK)
	}

	if rr.Body.String() != "ready\n" {
		t.Errorf("handler returned unexpected body: got %v want %v",
			rr.Body.String(), "ready\n")
	}
}

func TestLivenessHandler(t *testing.T) {
	req, err := http.NewRequest("GET", "/live", nil)
	if err != nil {
		t.Fatal(err)
	}

	rr := httptest.NewRecorder()
	LivenessHandler().ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusOK {
		t.Errorf("handler returned wrong status code: got %v want %v",
			status, http.StatusOK)
	}

	if rr.Body.String() != "alive\n" {
		t.Errorf("handler returned unexpected body: got %v want %v",
			rr.Body.String(), "alive\n")
	}
}
