package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"ccproxy-hq/ccproxy/pkg/config"
	"ccproxy-hq/ccproxy/pkg/discovery"
	"ccproxy-hq/ccproxy/pkg/registry"
	"ccproxy-hq/ccproxy/pkg/relay"
)

type fakeDiscoverer struct {
	mu      sync.Mutex
	filter  string
	prompts []string
	results []discovery.RefreshResult
}

func (f *fakeDiscoverer) RefreshAll(_ context.Context, filter string) []discovery.RefreshResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.filter = filter
	return f.results
}

func (f *fakeDiscoverer) RefreshAndTest(_ context.Context, prompt string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompt)
}

type recordingProber struct {
	provider, model, prompt string
	result                  relay.TestResult
}

func (p *recordingProber) Probe(_ context.Context, provider config.Provider, model, prompt string) relay.TestResult {
	p.provider, p.model, p.prompt = provider.Name, model, prompt
	return p.result
}

func testProviders() []config.Provider {
	return []config.Provider{
		{Name: "alpha", BaseURL: "https://alpha.example/v1/messages", Token: "a"},
		{Name: "beta", BaseURL: "https://beta.example/v1/messages", Token: "b"},
	}
}

type controlFixture struct {
	reg    *registry.Registry
	disc   *fakeDiscoverer
	prober *recordingProber
	h      *ControlHandler
}

func newControlFixture(t *testing.T, loader config.Loader) *controlFixture {
	t.Helper()
	reg := newRegistry(t, loader, testProviders()...)
	disc := &fakeDiscoverer{}
	prober := &recordingProber{result: relay.TestResult{Success: true, Status: 200}}
	return &controlFixture{
		reg:    reg,
		disc:   disc,
		prober: prober,
		h:      NewControlHandler(reg, disc, prober, discardLogger()),
	}
}

func call(h http.HandlerFunc, method, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, "/api/x", strings.NewReader(body))
	w := httptest.NewRecorder()
	h(w, req)
	return w
}

func decodeMap(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &m); err != nil {
		t.Fatalf("response is not a JSON object: %v: %s", err, w.Body.String())
	}
	return m
}

func TestControl_State(t *testing.T) {
	f := newControlFixture(t, nil)
	f.reg.IncrementError("beta")

	w := call(f.h.State, http.MethodGet, "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Errorf("Content-Type = %q", ct)
	}

	var state StateResponse
	if err := json.Unmarshal(w.Body.Bytes(), &state); err != nil {
		t.Fatal(err)
	}
	if state.SelectedProvider != "alpha" {
		t.Errorf("selected_provider = %q, want first provider", state.SelectedProvider)
	}
	if len(state.Providers) != 2 {
		t.Errorf("providers = %d", len(state.Providers))
	}
	if state.ErrorCounts["beta"] != 1 {
		t.Errorf("error_counts = %v", state.ErrorCounts)
	}

	raw := decodeMap(t, w)
	for _, key := range []string{"selected_override", "header_overrides", "request_overrides", "global_env_models"} {
		if raw[key] == nil {
			t.Errorf("%s missing or null", key)
		}
	}
}

func TestControl_Select(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
		want       string
	}{
		{"known provider", `{"provider":"beta"}`, http.StatusOK, `{"selected_provider":"beta"}`},
		{"unknown provider", `{"provider":"gamma"}`, http.StatusBadRequest, `{"error":"unknown_provider"}`},
		{"empty body", ``, http.StatusBadRequest, `{"error":"unknown_provider"}`},
		{"malformed json", `{"provider":`, http.StatusBadRequest, `{"error":"invalid_json"}`},
		{"not an object", `["beta"]`, http.StatusBadRequest, `{"error":"invalid_json"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newControlFixture(t, nil)
			w := call(f.h.Select, http.MethodPost, tt.body)
			if w.Code != tt.wantStatus || w.Body.String() != tt.want {
				t.Errorf("got %d %s, want %d %s", w.Code, w.Body.String(), tt.wantStatus, tt.want)
			}
		})
	}
}

func TestControl_RefreshModels(t *testing.T) {
	f := newControlFixture(t, nil)
	f.disc.results = []discovery.RefreshResult{{Provider: "beta", Updated: true, Count: 2}}

	w := call(f.h.RefreshModels, http.MethodPost, `{"provider":"beta"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if f.disc.filter != "beta" {
		t.Errorf("filter = %q", f.disc.filter)
	}

	var resp RefreshResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.SelectedProvider != "alpha" || len(resp.Providers) != 2 {
		t.Errorf("response = %+v", resp)
	}
	if len(resp.RefreshResults) != 1 || resp.RefreshResults[0] != f.disc.results[0] {
		t.Errorf("refresh_results = %+v", resp.RefreshResults)
	}

	f.disc.results = nil
	w = call(f.h.RefreshModels, http.MethodPost, "")
	if !strings.Contains(w.Body.String(), `"refresh_results":[]`) {
		t.Errorf("empty results not rendered as []: %s", w.Body.String())
	}
}

func TestControl_Reload(t *testing.T) {
	t.Run("failure keeps state", func(t *testing.T) {
		f := newControlFixture(t, func() (*config.Config, error) {
			return nil, errors.New("bad yaml")
		})
		f.reg.Select("beta")

		w := call(f.h.Reload, http.MethodPost, "")
		if w.Code != http.StatusInternalServerError {
			t.Fatalf("status = %d", w.Code)
		}
		body := decodeMap(t, w)
		if body["error"] != "reload_failed" || !strings.Contains(body["detail"].(string), "bad yaml") {
			t.Errorf("body = %v", body)
		}
		if f.reg.SelectedName() != "beta" || len(f.reg.Providers()) != 2 {
			t.Error("state changed after failed reload")
		}
	})

	t.Run("success", func(t *testing.T) {
		f := newControlFixture(t, func() (*config.Config, error) {
			cfg := &config.Config{Providers: []config.Provider{{Name: "gamma", BaseURL: "https://g.example"}}}
			config.ApplyDefaults(cfg)
			return cfg, nil
		})

		w := call(f.h.Reload, http.MethodPost, "")
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d: %s", w.Code, w.Body.String())
		}
		var resp ProvidersResponse
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatal(err)
		}
		if resp.SelectedProvider != "gamma" || len(resp.Providers) != 1 {
			t.Errorf("response = %+v", resp)
		}
	})
}

func TestControl_Reset(t *testing.T) {
	f := newControlFixture(t, nil)
	f.reg.Select("beta")

	w := call(f.h.Reset, http.MethodPost, "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp ProvidersResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.SelectedProvider != "" || len(resp.Providers) != 2 {
		t.Errorf("response = %+v", resp)
	}
	if _, ok := f.reg.Selected(); ok {
		t.Error("provider still selected after reset")
	}
}

func TestControl_ProviderAuth(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
		want       string
		wantTokIn  string
	}{
		{
			name:       "sets shared override",
			body:       `{"provider":"alpha","override":{"token_in":"query","token_param":"key"}}`,
			wantStatus: http.StatusOK,
			want:       `{"ok":true}`,
			wantTokIn:  "query",
		},
		{
			name:       "missing override clears it",
			body:       `{"provider":"alpha"}`,
			wantStatus: http.StatusOK,
			want:       `{"ok":true}`,
		},
		{
			name:       "override not an object",
			body:       `{"provider":"alpha","override":"query"}`,
			wantStatus: http.StatusBadRequest,
			want:       `{"error":"invalid_payload"}`,
		},
		{
			name:       "null override",
			body:       `{"provider":"alpha","override":null}`,
			wantStatus: http.StatusBadRequest,
			want:       `{"error":"invalid_payload"}`,
		},
		{
			name:       "missing provider",
			body:       `{"override":{}}`,
			wantStatus: http.StatusBadRequest,
			want:       `{"error":"invalid_payload"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newControlFixture(t, nil)
			w := call(f.h.ProviderAuth, http.MethodPost, tt.body)
			if w.Code != tt.wantStatus || w.Body.String() != tt.want {
				t.Fatalf("got %d %s, want %d %s", w.Code, w.Body.String(), tt.wantStatus, tt.want)
			}
			if got := f.reg.OverrideFor("beta").TokenIn; got != tt.wantTokIn {
				t.Errorf("shared override token_in = %q, want %q", got, tt.wantTokIn)
			}
		})
	}
}

func TestControl_TestProvider(t *testing.T) {
	t.Run("defaults and stores result", func(t *testing.T) {
		f := newControlFixture(t, nil)
		w := call(f.h.TestProvider, http.MethodPost, `{"provider":"beta"}`)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d", w.Code)
		}
		if w.Body.String() != `{"success":true,"status":200}` {
			t.Errorf("body = %s", w.Body.String())
		}
		if f.prober.provider != "beta" || f.prober.model != config.DefaultTestModel || f.prober.prompt != "hi" {
			t.Errorf("probe = %s/%s/%s", f.prober.provider, f.prober.model, f.prober.prompt)
		}
		p, _ := f.reg.Provider("beta")
		if p.TestResult == nil || !*p.TestResult {
			t.Error("test_result not stored")
		}
		if f.reg.SelectedName() == "beta" {
			t.Error("testing a provider changed the selection")
		}
	})

	t.Run("explicit model", func(t *testing.T) {
		f := newControlFixture(t, nil)
		f.prober.result = relay.TestResult{Success: false, Status: 401, Error: "denied"}
		_ = call(f.h.TestProvider, http.MethodPost, `{"provider":"alpha","model":"glm-4.6","prompt":"ping"}`)
		if f.prober.model != "glm-4.6" || f.prober.prompt != "ping" {
			t.Errorf("probe = %s/%s", f.prober.model, f.prober.prompt)
		}
		p, _ := f.reg.Provider("alpha")
		if p.TestResult == nil || *p.TestResult {
			t.Error("failed test not stored as false")
		}
	})

	t.Run("unknown provider", func(t *testing.T) {
		f := newControlFixture(t, nil)
		w := call(f.h.TestProvider, http.MethodPost, `{"provider":"nope"}`)
		if w.Code != http.StatusBadRequest || w.Body.String() != `{"error":"provider_not_found"}` {
			t.Errorf("got %d %s", w.Code, w.Body.String())
		}
	})
}

func TestControl_RefreshAndTest(t *testing.T) {
	f := newControlFixture(t, nil)
	w := call(f.h.RefreshAndTest, http.MethodPost, `{"prompt":"ping"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	body := decodeMap(t, w)
	if body["status"] != "started" {
		t.Errorf("body = %v", body)
	}
	if len(f.disc.prompts) != 1 || f.disc.prompts[0] != "ping" {
		t.Errorf("prompts = %v", f.disc.prompts)
	}

	w = call(f.h.RefreshAndTest, http.MethodPost, `not json`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("malformed body status = %d", w.Code)
	}
}
