// Package health provides health checks for the retention service.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/imedwei/backup-retention/internal/storage"
)

// Status represents the health status of a component.
type Status string

const (
	// StatusHealthy indicates the component is healthy.
	StatusHealthy Status = "healthy"
	// StatusUnhealthy indicates the component is unhealthy.
	StatusUnhealthy Status = "unhealthy"
	// StatusPending indicates the component has not reported yet.
	StatusPending Status = "pending"
)

// Check represents a health check result.
type Check struct {
	Status    Status         `json:"status"`
	Timestamp time.Time      `json:"timestamp"`
	Details   map[string]any `json:"details,omitempty"`
}

// CheckFunc produces one health check result.
type CheckFunc func(context.Context) Check

// Checker performs health checks.
type Checker struct {
	mu     sync.RWMutex
	checks map[string]CheckFunc
}

// NewChecker creates a new health checker.
func NewChecker() *Checker {
	return &Checker{
		checks: make(map[string]CheckFunc),
	}
}

// RegisterCheck registers a health check function.
func (c *Checker) RegisterCheck(name string, checkFunc CheckFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = checkFunc
}

// CheckHealth performs all registered health checks.
func (c *Checker) CheckHealth(ctx context.Context) map[string]Check {
	c.mu.RLock()
	defer c.mu.RUnlock()

	results := make(map[string]Check, len(c.checks))
	for name, checkFunc := range c.checks {
		results[name] = checkFunc(ctx)
	}
	return results
}

// Handler returns an HTTP handler for health checks.
func (c *Checker) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		results := c.CheckHealth(r.Context())

		overallStatus := StatusHealthy
		for _, check := range results {
			if check.Status == StatusUnhealthy {
				overallStatus = StatusUnhealthy
				break
			}
		}

		response := struct {
			Status    Status           `json:"status"`
			Checks    map[string]Check `json:"checks"`
			Timestamp time.Time        `json:"timestamp"`
		}{
			Status:    overallStatus,
			Checks:    results,
			Timestamp: time.Now(),
		}

		w.Header().Set("Content-Type", "application/json")
		if overallStatus == StatusUnhealthy {
			w.WriteHeader(http.StatusServiceUnavailable)
		} else {
			w.WriteHeader(http.StatusOK)
		}

		// Headers are already sent; nothing useful to do on encode failure.
		_ = json.NewEncoder(w).Encode(response)
	}
}

// StorageCheck reports whether the first page of bucket can be listed.
func StorageCheck(store storage.Storage, bucket, prefix string, timeout time.Duration) CheckFunc {
	return func(ctx context.Context) Check {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		check := Check{
			Status:    StatusHealthy,
			Timestamp: time.Now(),
			Details:   map[string]any{"bucket": bucket},
		}
		if _, err := store.ListPage(ctx, bucket, prefix, ""); err != nil {
			check.Status = StatusUnhealthy
			check.Details["error"] = err.Error()
		}
		return check
	}
}

// SweepTracker remembers the outcome of the last sweep.
type SweepTracker struct {
	mu       sync.RWMutex
	finished time.Time
	err      error
	kept     int
	deleted  int
}

// Record stores the outcome of a finished sweep.
func (s *SweepTracker) Record(kept, deleted int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finished = time.Now()
	s.kept = kept
	s.deleted = deleted
	s.err = err
}

// Check implements CheckFunc.
func (s *SweepTracker) Check(ctx context.Context) Check {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.finished.IsZero() {
		return Check{Status: StatusPending, Timestamp: time.Now()}
	}

	check := Check{
		Status:    StatusHealthy,
		Timestamp: s.finished,
		Details:   map[string]any{"kept": s.kept, "deleted": s.deleted},
	}
	if s.err != nil {
		check.Status = StatusUnhealthy
		check.Details["error"] = s.err.Error()
	}
	return check
}

// ReadinessHandler returns a simple readiness check handler.
func ReadinessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready\n"))
	}
}

// LivenessHandler returns a simple liveness check handler.
func LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("alive\n"))
	}
}
