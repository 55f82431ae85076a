package handlers

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"ccproxy-hq/ccproxy/pkg/config"
	"ccproxy-hq/ccproxy/pkg/registry"
	"ccproxy-hq/ccproxy/pkg/relay"
	"ccproxy-hq/ccproxy/pkg/security/auth"
)

const clientKey = "client-key"

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func newRegistry(t *testing.T, loader config.Loader, providers ...config.Provider) *registry.Registry {
	t.Helper()
	cfg := &config.Config{Providers: providers}
	cfg.Proxy.APIKey = clientKey
	config.ApplyDefaults(cfg)
	return registry.New(cfg, loader, nil, discardLogger())
}

// newMessagesServer serves the relay handler on a real listener so an
// aborted handler closes the connection the way it does in production.
func newMessagesServer(t *testing.T, reg *registry.Registry) *httptest.Server {
	t.Helper()
	opts := relay.Options{Logger: discardLogger()}
	a := auth.NewAuthenticator(auth.NewAPIKeyValidator(func() string { return reg.Settings().APIKey }), discardLogger())
	h := NewMessagesHandler(reg, a, relay.NewForwarder(reg, opts), relay.NewRelay(reg, opts), nil, discardLogger())

	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv
}

func post(t *testing.T, url, key, body string) (*http.Response, error) {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, url+"/v1/messages", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	if key != "" {
		req.Header.Set("X-Api-Key", key)
	}
	req.Header.Set("Content-Type", "application/json")
	return http.DefaultClient.Do(req)
}

func readError(t *testing.T, resp *http.Response) map[string]string {
	t.Helper()
	defer resp.Body.Close()
	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return body
}

func TestMessages_Errors(t *testing.T) {
	gone := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	goneURL := gone.URL
	gone.Close()

	tests := []struct {
		name       string
		providers  []config.Provider
		reset      bool
		key        string
		wantStatus int
		wantError  string
	}{
		{
			name:       "no providers",
			key:        clientKey,
			wantStatus: http.StatusServiceUnavailable,
			wantError:  "no_provider_selected",
		},
		{
			name:       "selection required is checked before auth",
			providers:  []config.Provider{{Name: "p", BaseURL: "http://127.0.0.1:1"}},
			reset:      true,
			wantStatus: http.StatusServiceUnavailable,
			wantError:  "no_provider_selected",
		},
		{
			name:       "missing key",
			providers:  []config.Provider{{Name: "p", BaseURL: "http://127.0.0.1:1"}},
			wantStatus: http.StatusUnauthorized,
			wantError:  "unauthorized",
		},
		{
			name:       "wrong key",
			providers:  []config.Provider{{Name: "p", BaseURL: "http://127.0.0.1:1"}},
			key:        "nope",
			wantStatus: http.StatusUnauthorized,
			wantError:  "unauthorized",
		},
		{
			name:       "provider without url",
			providers:  []config.Provider{{Name: "p"}},
			key:        clientKey,
			wantStatus: http.StatusBadGateway,
			wantError:  "provider_url_missing",
		},
		{
			name:       "unreachable upstream",
			providers:  []config.Provider{{Name: "p", BaseURL: goneURL + "/v1/messages"}},
			key:        clientKey,
			wantStatus: http.StatusBadGateway,
			wantError:  "upstream_error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := newRegistry(t, nil, tt.providers...)
			if tt.reset {
				reg.Reset()
			}
			srv := newMessagesServer(t, reg)

			resp, err := post(t, srv.URL, tt.key, `{"model":"m"}`)
			if err != nil {
				t.Fatalf("request failed: %v", err)
			}
			if resp.StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
			if got := resp.Header.Get("Content-Type"); got != "application/json; charset=utf-8" {
				t.Errorf("Content-Type = %q", got)
			}
			body := readError(t, resp)
			if body["error"] != tt.wantError {
				t.Errorf("error = %q, want %q", body["error"], tt.wantError)
			}
			if tt.wantError == "upstream_error" && body["detail"] == "" {
				t.Error("upstream_error without detail")
			}
		})
	}
}

func TestMessages_Relays(t *testing.T) {
	var gotKey, gotBody string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("X-Api-Key")
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = io.WriteString(w, "event: message_stop\ndata: {\"type\":\"message_stop\"}\n\n")
	}))
	defer upstream.Close()

	reg := newRegistry(t, nil, config.Provider{Name: "up", BaseURL: upstream.URL + "/v1/messages", Token: "provider-token"})
	srv := newMessagesServer(t, reg)

	resp, err := post(t, srv.URL, clientKey, `{"model":"m","messages":[]}`)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q", ct)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "message_stop") {
		t.Errorf("body = %q", body)
	}
	if gotKey != "provider-token" {
		t.Errorf("upstream x-api-key = %q, want provider token", gotKey)
	}
	if gotBody != `{"model":"m","messages":[]}` {
		t.Errorf("upstream body = %q", gotBody)
	}
}

func TestMessages_DropsBelowThreshold(t *testing.T) {
	var hits atomic.Int32
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = io.WriteString(w, `{"error":"rate limited"}`)
	}))
	defer upstream.Close()

	reg := newRegistry(t, nil, config.Provider{Name: "flaky", BaseURL: upstream.URL + "/v1/messages", Token: "t"})
	srv := newMessagesServer(t, reg)

	// Threshold 3: the first two errors drop the connection
	for i := 1; i <= 2; i++ {
		resp, err := post(t, srv.URL, clientKey, `{}`)
		if err == nil {
			resp.Body.Close()
			t.Fatalf("request %d: got status %d, want a dropped connection", i, resp.StatusCode)
		}
	}

	resp, err := post(t, srv.URL, clientKey, `{}`)
	if err != nil {
		t.Fatalf("request 3 failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429 relayed", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != `{"error":"rate limited"}` {
		t.Errorf("body = %q", body)
	}
	if reg.ErrorCount("flaky") != 3 {
		t.Errorf("error count = %d, want 3", reg.ErrorCount("flaky"))
	}
}
