package config

import (
	"errors"
	"strings"
	"testing"
)

func validConfig() *Config {
	cfg := &Config{
		Providers: []Provider{
			{Name: "relay", BaseURL: "https://relay.example.com/v1/messages", Token: "t"},
			{Name: NoteProviderName, BaseURL: "free text, not a url"},
		},
		HeaderOverrides:  map[string]map[string]string{"browser": {"User-Agent": "x"}},
		RequestOverrides: map[string]map[string]any{"thinking": {"thinking": map[string]any{"type": "enabled"}}},
	}
	ApplyDefaults(cfg)
	return cfg
}

func TestValidate_ValidConfig(t *testing.T) {
	if err := Validate(validConfig()); err != nil {
		t.Errorf("Validate() error = %v, want nil", err)
	}
}

func TestValidate_EmptyProviders(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		t.Errorf("Validate() error = %v, want nil for empty provider list", err)
	}
}

func TestValidate_Rules(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantField string
	}{
		{"port too high", func(c *Config) { c.Server.Port = 70000 }, "server.port"},
		{"empty host", func(c *Config) { c.Server.Host = "" }, "server.host"},
		{"threshold zero", func(c *Config) { c.Proxy.ErrorThreshold = 0 }, "proxy.error_threshold"},
		{"negative api timeout", func(c *Config) { c.Proxy.APITimeout = -1 }, "proxy.api_timeout"},
		{"negative first byte timeout", func(c *Config) { c.Proxy.FirstByteTimeout = -1 }, "proxy.first_byte_timeout"},
		{"empty state file", func(c *Config) { c.Proxy.StateFile = "" }, "proxy.state_file"},
		{"bad schedule", func(c *Config) { c.Discovery.Schedule = "every day" }, "discovery.schedule"},
		{"zero concurrency", func(c *Config) { c.Discovery.Concurrency = 0 }, "discovery.concurrency"},
		{"missing name", func(c *Config) { c.Providers[0].Name = "" }, "providers[0].name"},
		{"duplicate name", func(c *Config) { c.Providers[1].Name = "relay" }, "providers[1].name"},
		{"bad token_in", func(c *Config) { c.Providers[0].TokenIn = "cookie" }, "providers[0].token_in"},
		{"bad base_url", func(c *Config) { c.Providers[0].BaseURL = "relay.example.com" }, "providers[0].base_url"},
		{"unknown header set", func(c *Config) { c.Providers[0].HeaderOverride = "nope" }, "providers[0].header_override"},
		{"unknown request set", func(c *Config) { c.Providers[0].RequestOverride = "nope" }, "providers[0].request_override"},
		{"bad log level", func(c *Config) { c.Telemetry.Logging.Level = "verbose" }, "telemetry.logging.level"},
		{"bad log format", func(c *Config) { c.Telemetry.Logging.Format = "xml" }, "telemetry.logging.format"},
		{"bad metrics path", func(c *Config) { c.Telemetry.Metrics.Path = "metrics" }, "telemetry.metrics.path"},
		{"bad sample ratio", func(c *Config) { c.Telemetry.Tracing.SampleRatio = 2 }, "telemetry.tracing.sample_ratio"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := Validate(cfg)
			if err == nil {
				t.Fatal("Validate() error = nil, want error")
			}

			var verr ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("error type = %T, want ValidationError", err)
			}

			found := false
			for _, fe := range verr.Errors {
				if fe.Field == tt.wantField {
					found = true
				}
			}
			if !found {
				t.Errorf("no error for field %q in %v", tt.wantField, verr.Errors)
			}
		})
	}
}

func TestValidTokenIn(t *testing.T) {
	for _, v := range []string{"", "header", "query", "both", "HEADER", "Both"} {
		if !ValidTokenIn(v) {
			t.Errorf("ValidTokenIn(%q) = false, want true", v)
		}
	}
	for _, v := range []string{"cookie", "headers", " "} {
		if ValidTokenIn(v) {
			t.Errorf("ValidTokenIn(%q) = true, want false", v)
		}
	}
}

func TestValidationError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  ValidationError
		want string
	}{
		{
			name: "no errors",
			err:  ValidationError{},
			want: "configuration validation failed",
		},
		{
			name: "single error",
			err:  ValidationError{Errors: []FieldError{{Field: "server.port", Message: "bad"}}},
			want: "configuration validation failed: server.port: bad",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}

	multi := ValidationError{Errors: []FieldError{
		{Field: "a", Message: "x"},
		{Field: "b", Message: "y"},
	}}
	if !strings.Contains(multi.Error(), "2 errors") {
		t.Errorf("Error() = %q, want mention of 2 errors", multi.Error())
	}
}
