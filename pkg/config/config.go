package config

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/tidwall/sjson"
)

// Config is the root configuration structure for ccproxy.
// It contains the listener settings, relay behavior, the provider registry
// seed, the named override sets, and telemetry settings.
type Config struct {
	// Server contains HTTP listener configuration including host, port,
	// timeouts, and static asset locations.
	Server ServerConfig `yaml:"server"`

	// Proxy contains relay configuration: the client API key, credential
	// defaults, upstream timeouts, the error threshold, and the state file.
	Proxy ProxyConfig `yaml:"proxy"`

	// Discovery contains model discovery configuration.
	Discovery DiscoveryConfig `yaml:"discovery"`

	// Providers is the ordered list of upstream provider profiles.
	// The first provider is selected when no explicit selection exists.
	Providers []Provider `yaml:"providers"`

	// HeaderOverrides contains named header sets. A provider or the shared
	// override selects one by name via header_override.
	HeaderOverrides map[string]map[string]string `yaml:"header_overrides"`

	// RequestOverrides contains named body field sets. A provider or the
	// shared override selects one by name via request_override.
	RequestOverrides map[string]map[string]any `yaml:"request_overrides"`

	// EnvModels is an opaque map handed to the UI as global_env_models.
	EnvModels map[string]any `yaml:"env_models"`

	// Telemetry contains configuration for logging, metrics, and tracing.
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// Watch controls hot reload of the configuration file.
	Watch WatchConfig `yaml:"watch"`

	// Secrets controls resolution of ${secret:name} references in
	// credential fields.
	Secrets SecretsConfig `yaml:"secrets"`
}

// ServerConfig contains configuration for the HTTP listener.
type ServerConfig struct {
	// Host is the interface to bind.
	// Default: "127.0.0.1"
	Host string `yaml:"host"`

	// Port is the TCP port to bind.
	// Default: 3456
	Port int `yaml:"port"`

	// ReadHeaderTimeout bounds reading request headers. Bodies and
	// responses are not bounded here because responses are long streams.
	// Default: 30s
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`

	// IdleTimeout is the keep-alive idle timeout.
	// Default: 120s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout is the maximum duration to wait for in-flight
	// requests during graceful shutdown.
	// Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// MaxHeaderBytes limits the size of request headers.
	// Default: 1048576 (1MB)
	MaxHeaderBytes int `yaml:"max_header_bytes"`

	// WebDir holds index.html, app.js and styles.css for the UI.
	// Default: "web"
	WebDir string `yaml:"web_dir"`

	// DocsDir holds index.html served at /docs.
	// Default: "docs"
	DocsDir string `yaml:"docs_dir"`

	// CORS contains Cross-Origin Resource Sharing configuration for the
	// control plane. Disabled by default since the UI is same-origin.
	CORS CORSConfig `yaml:"cors"`
}

// Address returns host:port for the listener.
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// CORSConfig contains CORS (Cross-Origin Resource Sharing) configuration.
type CORSConfig struct {
	// Enabled controls whether CORS headers are emitted.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// AllowedOrigins is a list of allowed origins for CORS requests.
	// Default: ["*"]
	AllowedOrigins []string `yaml:"allowed_origins"`

	// AllowedMethods is a list of allowed HTTP methods for CORS requests.
	// Default: ["GET", "POST", "OPTIONS"]
	AllowedMethods []string `yaml:"allowed_methods"`

	// AllowedHeaders is a list of allowed HTTP headers for CORS requests.
	// Default: ["Authorization", "Content-Type", "X-Api-Key", "X-Request-ID"]
	AllowedHeaders []string `yaml:"allowed_headers"`

	// MaxAge is the preflight cache duration in seconds.
	// Default: 3600
	MaxAge int `yaml:"max_age"`
}

// ProxyConfig contains relay configuration.
type ProxyConfig struct {
	// APIKey is the key clients must present. Empty disables client auth.
	// In passthrough mode any header or query value containing this key is
	// rewritten to the provider token.
	APIKey string `yaml:"api_key"`

	// TokenParam is the default query parameter name for query-placed
	// provider credentials.
	// Default: "token"
	TokenParam string `yaml:"token_param"`

	// APITimeout bounds a whole upstream exchange including the streamed
	// body. It also caps the model discovery timeout.
	// Default: 600s
	APITimeout time.Duration `yaml:"api_timeout"`

	// ConnectTimeout bounds dialing and the TLS handshake to an upstream.
	// Default: 10s
	ConnectTimeout time.Duration `yaml:"connect_timeout"`

	// FirstByteTimeout bounds the wait for upstream response headers once
	// the request is written. Non-streaming completions send headers only
	// after generation, so zero leaves the wait to api_timeout.
	// Default: 0 (disabled)
	FirstByteTimeout time.Duration `yaml:"first_byte_timeout"`

	// ErrorThreshold is the consecutive non-2xx count at which upstream
	// errors are relayed to the client instead of dropping the connection.
	// Default: 3
	ErrorThreshold int `yaml:"error_threshold"`

	// MaxBodyBytes limits the client request body.
	// Default: 33554432 (32MB)
	MaxBodyBytes int64 `yaml:"max_body_bytes"`

	// DiagnosticCaptureBytes caps how much of a relayed response is kept
	// for post-stream diagnostic logging.
	// Default: 4194304 (4MB)
	DiagnosticCaptureBytes int `yaml:"diagnostic_capture_bytes"`

	// StateFile is the JSON file holding the persisted selection and the
	// shared override.
	// Default: "proxy_state.json"
	StateFile string `yaml:"state_file"`
}

// DiscoveryConfig contains model discovery configuration.
type DiscoveryConfig struct {
	// OnStartup runs a background refresh of every provider's model list
	// when the server starts.
	// Default: true
	OnStartup *bool `yaml:"on_startup"`

	// Schedule is an optional standard cron expression for periodic refresh.
	// Example: "0 */6 * * *"
	Schedule string `yaml:"schedule"`

	// Concurrency is the number of providers queried in parallel.
	// Default: 4
	Concurrency int `yaml:"concurrency"`

	// Timeout is the per-provider listing timeout. The effective timeout is
	// the smaller of this and proxy.api_timeout.
	// Default: 10s
	Timeout time.Duration `yaml:"timeout"`

	// SDKFallback retries a failed listing through the OpenAI-compatible
	// client library before reporting failure.
	// Default: false
	SDKFallback bool `yaml:"sdk_fallback"`
}

// StartupRefresh reports whether discovery runs at startup.
func (d DiscoveryConfig) StartupRefresh() bool {
	return d.OnStartup == nil || *d.OnStartup
}

// Provider is one upstream target. Known keys are typed; anything else in
// the provider block is kept verbatim in Extra.
type Provider struct {
	// Name is the unique provider key.
	Name string `yaml:"name" json:"name"`

	// BaseURL is the full upstream endpoint, e.g.
	// "https://api.example.com/anthropic/v1/messages". The legacy key
	// api_base_url is accepted.
	BaseURL string `yaml:"base_url" json:"base_url"`

	// Token is the provider credential. APIKey is accepted as an alias.
	Token  string `yaml:"token" json:"token,omitempty"`
	APIKey string `yaml:"api_key" json:"api_key,omitempty"`

	// TokenIn selects credential placement: "header", "query", "both".
	// Empty means passthrough of the client's own credential.
	TokenIn string `yaml:"token_in" json:"token_in,omitempty"`

	// TokenParam names the query parameter for query placement.
	TokenParam string `yaml:"token_param" json:"token_param,omitempty"`

	// TokenHeader names the header for header placement.
	// Default: "Authorization"
	TokenHeader string `yaml:"token_header" json:"token_header,omitempty"`

	// TokenHeaderFormat is the header value template with a {token}
	// placeholder.
	// Default: "Bearer {token}"
	TokenHeaderFormat string `yaml:"token_header_format" json:"token_header_format,omitempty"`

	// HeaderOverride names a header override set.
	HeaderOverride string `yaml:"header_override" json:"header_override,omitempty"`

	// RequestOverride names a request override set.
	RequestOverride string `yaml:"request_override" json:"request_override,omitempty"`

	// RequestInject is an inline body field set used when no named set
	// is configured.
	RequestInject map[string]any `yaml:"request_inject" json:"request_inject,omitempty"`

	// Models is the discovered or configured model list.
	Models []string `yaml:"models" json:"models,omitempty"`

	// TestResult is the outcome of the last provider test, nil if never tested.
	TestResult *bool `yaml:"test_result" json:"test_result,omitempty"`

	Comment    string `yaml:"comment" json:"comment,omitempty"`
	WebsiteURL string `yaml:"website_url" json:"website_url,omitempty"`

	// Extra holds provider keys not modeled above.
	Extra map[string]any `yaml:",inline" json:"-"`
}

// Credential returns the provider token, falling back to APIKey.
func (p Provider) Credential() string {
	if p.Token != "" {
		return p.Token
	}
	return p.APIKey
}

// Clone returns a deep copy of the provider so callers cannot alias
// registry-owned slices and maps.
func (p Provider) Clone() Provider {
	c := p
	if p.Models != nil {
		c.Models = append([]string(nil), p.Models...)
	}
	if p.TestResult != nil {
		v := *p.TestResult
		c.TestResult = &v
	}
	c.RequestInject = CloneMap(p.RequestInject)
	c.Extra = CloneMap(p.Extra)
	return c
}

// MarshalJSON flattens Extra into the provider object so the UI sees the
// provider block as it was written.
func (p Provider) MarshalJSON() ([]byte, error) {
	type plain Provider
	data, err := json.Marshal(plain(p))
	if err != nil {
		return nil, err
	}
	for k, v := range p.Extra {
		if strings.ContainsAny(k, ".*?|#@\\") {
			continue
		}
		if _, exists := knownProviderKeys[k]; exists {
			continue
		}
		data, err = sjson.SetBytes(data, k, v)
		if err != nil {
			return nil, fmt.Errorf("provider %q extra key %q: %w", p.Name, k, err)
		}
	}
	return data, nil
}

var knownProviderKeys = map[string]struct{}{
	"name": {}, "base_url": {}, "token": {}, "api_key": {}, "token_in": {},
	"token_param": {}, "token_header": {}, "token_header_format": {},
	"header_override": {}, "request_override": {}, "request_inject": {},
	"models": {}, "test_result": {}, "comment": {}, "website_url": {},
}

// Override is the shared credential and shaping override applied to
// whichever provider is selected. Its values take precedence over the
// provider's own.
type Override struct {
	TokenIn           string         `json:"token_in,omitempty" yaml:"token_in"`
	TokenParam        string         `json:"token_param,omitempty" yaml:"token_param"`
	TokenHeader       string         `json:"token_header,omitempty" yaml:"token_header"`
	TokenHeaderFormat string         `json:"token_header_format,omitempty" yaml:"token_header_format"`
	QueryParams       string         `json:"query_params,omitempty" yaml:"query_params"`
	HeaderOverride    string         `json:"header_override,omitempty" yaml:"header_override"`
	RequestOverride   string         `json:"request_override,omitempty" yaml:"request_override"`
	RequestInject     map[string]any `json:"request_inject,omitempty" yaml:"request_inject"`
}

// IsZero reports whether no override field is set.
func (o Override) IsZero() bool {
	return o.TokenIn == "" && o.TokenParam == "" && o.TokenHeader == "" &&
		o.TokenHeaderFormat == "" && o.QueryParams == "" && o.HeaderOverride == "" &&
		o.RequestOverride == "" && len(o.RequestInject) == 0
}

// Clone returns a deep copy of the override.
func (o Override) Clone() Override {
	c := o
	c.RequestInject = CloneMap(o.RequestInject)
	return c
}

// TelemetryConfig contains configuration for observability.
type TelemetryConfig struct {
	// Logging contains logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains metrics collection configuration.
	Metrics MetricsConfig `yaml:"metrics"`

	// Tracing contains distributed tracing configuration.
	Tracing TracingConfig `yaml:"tracing"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Enabled turns logging on or off entirely.
	// Default: true
	Enabled *bool `yaml:"enabled"`

	// Level is the minimum log level to emit. Relayed request and response
	// bodies are only reconstructed at "debug".
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level"`

	// Format controls the log output format.
	// Options: "json", "text"
	// Default: "text"
	Format string `yaml:"format"`

	// AddSource includes file and line number in log entries.
	// Default: false
	AddSource bool `yaml:"add_source"`

	// Redact masks credentials in log attributes.
	// Default: true
	Redact *bool `yaml:"redact"`
}

// IsEnabled reports whether logging is on.
func (l LoggingConfig) IsEnabled() bool {
	return l.Enabled == nil || *l.Enabled
}

// RedactEnabled reports whether credential redaction is on.
func (l LoggingConfig) RedactEnabled() bool {
	return l.Redact == nil || *l.Redact
}

// MetricsConfig contains Prometheus metrics configuration.
type MetricsConfig struct {
	// Enabled controls whether metrics are collected and exposed.
	// Default: true
	Enabled *bool `yaml:"enabled"`

	// Path is the HTTP path for the metrics endpoint.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// Namespace is the metric name prefix.
	// Default: "ccproxy"
	Namespace string `yaml:"namespace"`

	// Subsystem is the metric subsystem name.
	// Default: "relay"
	Subsystem string `yaml:"subsystem"`

	// LatencyBuckets defines histogram buckets for upstream latency (seconds).
	// Default: [0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600]
	LatencyBuckets []float64 `yaml:"latency_buckets"`
}

// IsEnabled reports whether metrics are on.
func (m MetricsConfig) IsEnabled() bool {
	return m.Enabled == nil || *m.Enabled
}

// TracingConfig contains distributed tracing configuration.
type TracingConfig struct {
	// Enabled controls whether spans are exported.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Endpoint is the OTLP gRPC collector endpoint.
	// Default: "localhost:4317"
	Endpoint string `yaml:"endpoint"`

	// Insecure disables TLS for the collector connection.
	// Default: false
	Insecure bool `yaml:"insecure"`

	// SampleRatio is the fraction of traces to sample (0.0 to 1.0).
	// Default: 1.0
	SampleRatio float64 `yaml:"sample_ratio"`

	// ServiceName is the service name in traces.
	// Default: "ccproxy"
	ServiceName string `yaml:"service_name"`
}

// WatchConfig controls configuration file watching.
type WatchConfig struct {
	// Enabled reloads the registry when the configuration file changes.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Debounce is the quiet period before a reload fires.
	// Default: 250ms
	Debounce time.Duration `yaml:"debounce"`
}

// SecretsConfig controls where ${secret:name} references are looked up.
// The environment is tried first, then Dir when set.
type SecretsConfig struct {
	// EnvPrefix is prepended to the upper-cased secret name.
	// Default: "CCPROXY_SECRET_"
	EnvPrefix string `yaml:"env_prefix"`

	// Dir holds one file per secret, mode 0600 or 0400.
	// Default: "" (no file lookup)
	Dir string `yaml:"dir"`
}

// CloneMap deep-copies a decoded document map.
func CloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return CloneMap(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	out := *c
	out.Providers = make([]Provider, len(c.Providers))
	for i, p := range c.Providers {
		out.Providers[i] = p.Clone()
	}
	if c.HeaderOverrides != nil {
		out.HeaderOverrides = make(map[string]map[string]string, len(c.HeaderOverrides))
		for name, set := range c.HeaderOverrides {
			cp := make(map[string]string, len(set))
			for k, v := range set {
				cp[k] = v
			}
			out.HeaderOverrides[name] = cp
		}
	}
	if c.RequestOverrides != nil {
		out.RequestOverrides = make(map[string]map[string]any, len(c.RequestOverrides))
		for name, set := range c.RequestOverrides {
			out.RequestOverrides[name] = CloneMap(set)
		}
	}
	out.EnvModels = CloneMap(c.EnvModels)
	out.Server.CORS.AllowedOrigins = append([]string(nil), c.Server.CORS.AllowedOrigins...)
	out.Server.CORS.AllowedMethods = append([]string(nil), c.Server.CORS.AllowedMethods...)
	out.Server.CORS.AllowedHeaders = append([]string(nil), c.Server.CORS.AllowedHeaders...)
	out.Telemetry.Metrics.LatencyBuckets = append([]float64(nil), c.Telemetry.Metrics.LatencyBuckets...)
	return &out
}
