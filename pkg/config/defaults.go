package config

import "time"

// Default values for configuration fields.
const (
	// Server defaults
	DefaultHost              = "127.0.0.1"
	DefaultPort              = 3456
	DefaultReadHeaderTimeout = 30 * time.Second
	DefaultIdleTimeout       = 120 * time.Second
	DefaultShutdownTimeout   = 30 * time.Second
	DefaultMaxHeaderBytes    = 1048576 // 1MB
	DefaultWebDir            = "web"
	DefaultDocsDir           = "docs"
	DefaultCORSMaxAge        = 3600

	// Proxy defaults
	DefaultTokenParam             = "token"
	DefaultAPITimeout             = 600 * time.Second
	DefaultConnectTimeout         = 10 * time.Second
	DefaultErrorThreshold         = 3
	DefaultMaxBodyBytes           = int64(32 << 20)
	DefaultDiagnosticCaptureBytes = 4 << 20
	DefaultStateFile              = "proxy_state.json"

	// Credential defaults
	DefaultTokenHeader       = "Authorization"
	DefaultTokenHeaderFormat = "Bearer {token}"

	// Discovery defaults
	DefaultDiscoveryConcurrency = 4
	DefaultDiscoveryTimeout     = 10 * time.Second

	// Telemetry defaults
	DefaultLoggingLevel       = "info"
	DefaultLoggingFormat      = "text"
	DefaultMetricsPath        = "/metrics"
	DefaultMetricsNamespace   = "ccproxy"
	DefaultMetricsSubsystem   = "relay"
	DefaultTracingEndpoint    = "localhost:4317"
	DefaultTracingSampleRatio = 1.0
	DefaultTracingServiceName = "ccproxy"
	DefaultWatchDebounce      = 250 * time.Millisecond

	// Secrets defaults
	DefaultSecretsEnvPrefix = "CCPROXY_SECRET_"

	// Control plane defaults
	NoteProviderName     = "Note"
	DefaultTestModel     = "claude-sonnet-4-5-20250929"
	DefaultTestPrompt    = "hi"
	DefaultTestMaxTokens = 100

	legacyProviderBaseURLKey = "api_base_url"
)

// DefaultLatencyBuckets are histogram buckets tuned for long LLM streams.
var DefaultLatencyBuckets = []float64{0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600}

// ApplyDefaults applies default values to a Config struct.
// It sets defaults for any fields that have zero values.
// This function is idempotent and safe to call multiple times.
func ApplyDefaults(cfg *Config) {
	// Server defaults
	if cfg.Server.Host == "" {
		cfg.Server.Host = DefaultHost
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultPort
	}
	if cfg.Server.ReadHeaderTimeout == 0 {
		cfg.Server.ReadHeaderTimeout = DefaultReadHeaderTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.Server.MaxHeaderBytes == 0 {
		cfg.Server.MaxHeaderBytes = DefaultMaxHeaderBytes
	}
	if cfg.Server.WebDir == "" {
		cfg.Server.WebDir = DefaultWebDir
	}
	if cfg.Server.DocsDir == "" {
		cfg.Server.DocsDir = DefaultDocsDir
	}
	applyCORSDefaults(&cfg.Server.CORS)

	// Proxy defaults
	if cfg.Proxy.TokenParam == "" {
		cfg.Proxy.TokenParam = DefaultTokenParam
	}
	if cfg.Proxy.APITimeout == 0 {
		cfg.Proxy.APITimeout = DefaultAPITimeout
	}
	if cfg.Proxy.ConnectTimeout == 0 {
		cfg.Proxy.ConnectTimeout = DefaultConnectTimeout
	}
	if cfg.Proxy.ErrorThreshold == 0 {
		cfg.Proxy.ErrorThreshold = DefaultErrorThreshold
	}
	if cfg.Proxy.MaxBodyBytes == 0 {
		cfg.Proxy.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if cfg.Proxy.DiagnosticCaptureBytes == 0 {
		cfg.Proxy.DiagnosticCaptureBytes = DefaultDiagnosticCaptureBytes
	}
	if cfg.Proxy.StateFile == "" {
		cfg.Proxy.StateFile = DefaultStateFile
	}

	// Discovery defaults
	if cfg.Discovery.Concurrency == 0 {
		cfg.Discovery.Concurrency = DefaultDiscoveryConcurrency
	}
	if cfg.Discovery.Timeout == 0 {
		cfg.Discovery.Timeout = DefaultDiscoveryTimeout
	}

	// Provider defaults - legacy keys are folded into typed fields
	for i := range cfg.Providers {
		applyProviderDefaults(&cfg.Providers[i])
	}

	// Telemetry defaults
	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLoggingFormat
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = DefaultMetricsPath
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Telemetry.Metrics.Subsystem == "" {
		cfg.Telemetry.Metrics.Subsystem = DefaultMetricsSubsystem
	}
	if len(cfg.Telemetry.Metrics.LatencyBuckets) == 0 {
		cfg.Telemetry.Metrics.LatencyBuckets = append([]float64(nil), DefaultLatencyBuckets...)
	}
	if cfg.Telemetry.Tracing.Endpoint == "" {
		cfg.Telemetry.Tracing.Endpoint = DefaultTracingEndpoint
	}
	if cfg.Telemetry.Tracing.SampleRatio == 0 {
		cfg.Telemetry.Tracing.SampleRatio = DefaultTracingSampleRatio
	}
	if cfg.Telemetry.Tracing.ServiceName == "" {
		cfg.Telemetry.Tracing.ServiceName = DefaultTracingServiceName
	}

	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = DefaultWatchDebounce
	}
	if cfg.Secrets.EnvPrefix == "" {
		cfg.Secrets.EnvPrefix = DefaultSecretsEnvPrefix
	}
}

func applyCORSDefaults(cors *CORSConfig) {
	if len(cors.AllowedOrigins) == 0 {
		cors.AllowedOrigins = []string{"*"}
	}
	if len(cors.AllowedMethods) == 0 {
		cors.AllowedMethods = []string{"GET", "POST", "OPTIONS"}
	}
	if len(cors.AllowedHeaders) == 0 {
		cors.AllowedHeaders = []string{"Authorization", "Content-Type", "X-Api-Key", "X-Request-ID"}
	}
	if cors.MaxAge == 0 {
		cors.MaxAge = DefaultCORSMaxAge
	}
}

func applyProviderDefaults(p *Provider) {
	if p.BaseURL == "" {
		if legacy, ok := p.Extra[legacyProviderBaseURLKey].(string); ok {
			p.BaseURL = legacy
		}
	}
	delete(p.Extra, legacyProviderBaseURLKey)
	if len(p.Extra) == 0 {
		p.Extra = nil
	}
}
