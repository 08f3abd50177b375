package server

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/imedwei/backup-retention/internal/health"
	"github.com/imedwei/backup-retention/internal/metrics"
)

func TestNewMux(t *testing.T) {
	checker := health.NewChecker()
	checker.RegisterCheck("sweep", func(ctx context.Context) health.Check {
		return health.Check{Status: health.StatusHealthy, Timestamp: time.Now()}
	})
	metrics.ObjectsDeleted.Add(0)

	srv := httptest.NewServer(NewMux(checker))
	defer srv.Close()

	tests := []struct {
		path     string
		wantCode int
		wantBody string
	}{
		{"/health", http.StatusOK, `"sweep"`},
		{"/ready", http.StatusOK, "ready"},
		{"/live", http.StatusOK, "alive"},
		{"/metrics", http.StatusOK, "backup_retention_deleted_total"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, err := http.Get(srv.URL + tt.path)
			if err != nil {
				t.Fatalf("GET %s: %v", tt.path, err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != tt.wantCode {
				t.Errorf("GET %s status = %d, want %d", tt.path, resp.StatusCode, tt.wantCode)
			}

			body, err := io.ReadAll(resp.Body)
			if err != nil {
				t.Fatalf("read %s: %v", tt.path, err)
			}
			if !strings.Contains(string(body), tt.wantBody) {
				t.Errorf("GET %s body does not contain %q", tt.path, tt.wantBody)
			}
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Port != 8080 {
		t.Errorf("Port = %v, want 8080", cfg.Port)
	}
	if cfg.ShutdownTimeout != 10*time.Second {
		t.Errorf("ShutdownTimeout = %v, want 10s", cfg.ShutdownTimeout)
	}
}
