package config

import (
	"reflect"
	"testing"
)

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"server.host", cfg.Server.Host, DefaultHost},
		{"server.port", cfg.Server.Port, DefaultPort},
		{"server.read_header_timeout", cfg.Server.ReadHeaderTimeout, DefaultReadHeaderTimeout},
		{"server.shutdown_timeout", cfg.Server.ShutdownTimeout, DefaultShutdownTimeout},
		{"server.web_dir", cfg.Server.WebDir, DefaultWebDir},
		{"server.docs_dir", cfg.Server.DocsDir, DefaultDocsDir},
		{"proxy.token_param", cfg.Proxy.TokenParam, DefaultTokenParam},
		{"proxy.api_timeout", cfg.Proxy.APITimeout, DefaultAPITimeout},
		{"proxy.connect_timeout", cfg.Proxy.ConnectTimeout, DefaultConnectTimeout},
		{"proxy.error_threshold", cfg.Proxy.ErrorThreshold, DefaultErrorThreshold},
		{"proxy.max_body_bytes", cfg.Proxy.MaxBodyBytes, DefaultMaxBodyBytes},
		{"proxy.state_file", cfg.Proxy.StateFile, DefaultStateFile},
		{"discovery.concurrency", cfg.Discovery.Concurrency, DefaultDiscoveryConcurrency},
		{"discovery.timeout", cfg.Discovery.Timeout, DefaultDiscoveryTimeout},
		{"telemetry.logging.level", cfg.Telemetry.Logging.Level, DefaultLoggingLevel},
		{"telemetry.logging.format", cfg.Telemetry.Logging.Format, DefaultLoggingFormat},
		{"telemetry.metrics.path", cfg.Telemetry.Metrics.Path, DefaultMetricsPath},
		{"telemetry.tracing.service_name", cfg.Telemetry.Tracing.ServiceName, DefaultTracingServiceName},
		{"watch.debounce", cfg.Watch.Debounce, DefaultWatchDebounce},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !reflect.DeepEqual(tt.got, tt.want) {
				t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
			}
		})
	}

	if !cfg.Discovery.StartupRefresh() {
		t.Error("startup refresh should default to true")
	}
	if !cfg.Telemetry.Logging.IsEnabled() {
		t.Error("logging should default to enabled")
	}
	if !cfg.Telemetry.Logging.RedactEnabled() {
		t.Error("redaction should default to enabled")
	}
	if !cfg.Telemetry.Metrics.IsEnabled() {
		t.Error("metrics should default to enabled")
	}
	if cfg.Telemetry.Tracing.Enabled {
		t.Error("tracing should default to disabled")
	}
}

func TestApplyDefaults_PreservesExplicitValues(t *testing.T) {
	cfg := &Config{
		Server: ServerConfig{Port: 8080},
		Proxy:  ProxyConfig{ErrorThreshold: 5, TokenParam: "key"},
	}
	ApplyDefaults(cfg)

	if cfg.Server.Port != 8080 {
		t.Errorf("port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Proxy.ErrorThreshold != 5 {
		t.Errorf("error threshold = %d, want 5", cfg.Proxy.ErrorThreshold)
	}
	if cfg.Proxy.TokenParam != "key" {
		t.Errorf("token param = %q, want key", cfg.Proxy.TokenParam)
	}
}

func TestApplyDefaults_LegacyBaseURL(t *testing.T) {
	tests := []struct {
		name      string
		provider  Provider
		wantURL   string
		wantExtra map[string]any
	}{
		{
			name:     "legacy key folded",
			provider: Provider{Name: "a", Extra: map[string]any{"api_base_url": "https://a.example.com"}},
			wantURL:  "https://a.example.com",
		},
		{
			name: "base_url wins over legacy key",
			provider: Provider{
				Name:    "b",
				BaseURL: "https://b.example.com",
				Extra:   map[string]any{"api_base_url": "https://old.example.com", "region": "eu"},
			},
			wantURL:   "https://b.example.com",
			wantExtra: map[string]any{"region": "eu"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Providers: []Provider{tt.provider}}
			ApplyDefaults(cfg)

			got := cfg.Providers[0]
			if got.BaseURL != tt.wantURL {
				t.Errorf("BaseURL = %q, want %q", got.BaseURL, tt.wantURL)
			}
			if !reflect.DeepEqual(got.Extra, tt.wantExtra) {
				t.Errorf("Extra = %v, want %v", got.Extra, tt.wantExtra)
			}
		})
	}
}

func TestApplyDefaults_Idempotent(t *testing.T) {
	first := &Config{}
	ApplyDefaults(first)

	second := first.Clone()
	ApplyDefaults(second)

	if !reflect.DeepEqual(first, second) {
		t.Error("ApplyDefaults is not idempotent")
	}
}
