package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"ccproxy-hq/ccproxy/pkg/config"
)

func TestCORSMiddleware(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	tests := []struct {
		name       string
		cfg        config.CORSConfig
		method     string
		origin     string
		preflight  bool
		wantOrigin string
		wantStatus int
	}{
		{
			name:       "allowed origin",
			cfg:        config.CORSConfig{Enabled: true, AllowedOrigins: []string{"https://example.com"}},
			method:     http.MethodGet,
			origin:     "https://example.com",
			wantOrigin: "https://example.com",
			wantStatus: http.StatusOK,
		},
		{
			name:       "wildcard",
			cfg:        config.CORSConfig{Enabled: true, AllowedOrigins: []string{"*"}},
			method:     http.MethodGet,
			origin:     "https://any-origin.com",
			wantOrigin: "*",
			wantStatus: http.StatusOK,
		},
		{
			name:       "disallowed origin",
			cfg:        config.CORSConfig{Enabled: true, AllowedOrigins: []string{"https://example.com"}},
			method:     http.MethodGet,
			origin:     "https://evil.com",
			wantStatus: http.StatusOK,
		},
		{
			name:       "disabled",
			cfg:        config.CORSConfig{AllowedOrigins: []string{"*"}},
			method:     http.MethodGet,
			origin:     "https://example.com",
			wantStatus: http.StatusOK,
		},
		{
			name: "preflight",
			cfg: config.CORSConfig{
				Enabled:        true,
				AllowedOrigins: []string{"*"},
				AllowedMethods: []string{"GET", "POST"},
				AllowedHeaders: []string{"Content-Type", "X-Api-Key"},
				MaxAge:         3600,
			},
			method:     http.MethodOptions,
			origin:     "https://example.com",
			preflight:  true,
			wantOrigin: "*",
			wantStatus: http.StatusNoContent,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := CORSMiddleware(tt.cfg)(handler)

			req := httptest.NewRequest(tt.method, "/api/state", nil)
			req.Header.Set("Origin", tt.origin)
			if tt.preflight {
				req.Header.Set("Access-Control-Request-Method", http.MethodPost)
			}
			w := httptest.NewRecorder()

			wrapped.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if got := w.Header().Get("Access-Control-Allow-Origin"); got != tt.wantOrigin {
				t.Errorf("Access-Control-Allow-Origin = %q, want %q", got, tt.wantOrigin)
			}
			if tt.preflight {
				if got := w.Header().Get("Access-Control-Allow-Methods"); got != "GET, POST" {
					t.Errorf("Access-Control-Allow-Methods = %q", got)
				}
				if got := w.Header().Get("Access-Control-Max-Age"); got != "3600" {
					t.Errorf("Access-Control-Max-Age = %q, want 3600", got)
				}
			}
		})
	}
}
