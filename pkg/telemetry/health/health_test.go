package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		timeout time.Duration
		want    time.Duration
	}{
		{"default timeout", 0, 5 * time.Second},
		{"custom timeout", 10 * time.Second, 10 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker := New(tt.timeout)
			if checker.checkTimeout != tt.want {
				t.Errorf("checkTimeout = %v, want %v", checker.checkTimeout, tt.want)
			}
			if len(checker.Names()) != 0 {
				t.Errorf("Names() = %v, want empty", checker.Names())
			}
		})
	}
}

func TestChecker_Readiness(t *testing.T) {
	tests := []struct {
		name       string
		checks     map[string]CheckFunc
		wantStatus string
	}{
		{
			name:       "no checks",
			checks:     nil,
			wantStatus: StatusReady,
		},
		{
			name: "all passing",
			checks: map[string]CheckFunc{
				"providers": func(context.Context) error { return nil },
				"selection": func(context.Context) error { return nil },
			},
			wantStatus: StatusReady,
		},
		{
			name: "one failing",
			checks: map[string]CheckFunc{
				"providers": func(context.Context) error { return nil },
				"selection": func(context.Context) error { return errors.New("no provider selected") },
			},
			wantStatus: StatusDegraded,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker := New(time.Second)
			for name, check := range tt.checks {
				checker.Register(name, check)
			}

			got := checker.Readiness(context.Background())
			if got.Status != tt.wantStatus {
				t.Errorf("Status = %q, want %q", got.Status, tt.wantStatus)
			}
			if len(got.Checks) != len(tt.checks) {
				t.Errorf("len(Checks) = %d, want %d", len(got.Checks), len(tt.checks))
			}
		})
	}
}

func TestChecker_Timeout(t *testing.T) {
	checker := New(20 * time.Millisecond)
	checker.Register("slow", func(ctx context.Context) error {
		<-ctx.Done()
		time.Sleep(50 * time.Millisecond)
		return nil
	})

	got := checker.Readiness(context.Background())
	if got.Checks["slow"].Status != StatusUnhealthy {
		t.Errorf("slow check status = %q, want %q", got.Checks["slow"].Status, StatusUnhealthy)
	}
	if got.Checks["slow"].Message != "health check timeout" {
		t.Errorf("slow check message = %q", got.Checks["slow"].Message)
	}
}

func TestChecker_RegisterReplaces(t *testing.T) {
	checker := New(time.Second)
	checker.Register("a", func(context.Context) error { return errors.New("old") })
	checker.Register("a", func(context.Context) error { return nil })
	checker.Register("b", func(context.Context) error { return nil })

	if names := checker.Names(); len(names) != 2 || names[0] != "a" || names[1] != "b" {
		t.Errorf("Names() = %v, want [a b]", names)
	}
	if got := checker.Readiness(context.Background()); got.Status != StatusReady {
		t.Errorf("Status = %q, want ready", got.Status)
	}
}

func TestHandlers(t *testing.T) {
	failing := New(time.Second)
	failing.Register("selection", func(context.Context) error { return errors.New("none") })

	tests := []struct {
		name     string
		handler  http.HandlerFunc
		method   string
		wantCode int
	}{
		{"liveness", New(0).LivenessHandler(), http.MethodGet, http.StatusOK},
		{"liveness head", New(0).LivenessHandler(), http.MethodHead, http.StatusOK},
		{"liveness post", New(0).LivenessHandler(), http.MethodPost, http.StatusMethodNotAllowed},
		{"ready", New(0).ReadinessHandler(), http.MethodGet, http.StatusOK},
		{"ready degraded", failing.ReadinessHandler(), http.MethodGet, http.StatusServiceUnavailable},
		{"version", VersionHandler("1.0.0", "abc", "now"), http.MethodGet, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tt.handler(rec, httptest.NewRequest(tt.method, "/", nil))

			if rec.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			if tt.method == http.MethodHead && rec.Body.Len() != 0 {
				t.Errorf("HEAD returned a body: %q", rec.Body.String())
			}
		})
	}
}

func TestVersionHandler_Body(t *testing.T) {
	rec := httptest.NewRecorder()
	VersionHandler("1.2.3", "deadbeef", "2026-01-01").ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/version", nil))

	var info VersionInfo
	if err := json.Unmarshal(rec.Body.Bytes(), &info); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if info.Version != "1.2.3" || info.Commit != "deadbeef" || info.GoVersion == "" {
		t.Errorf("info = %+v", info)
	}
}
