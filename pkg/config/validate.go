package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/robfig/cron/v3"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "server.port").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
// It implements the error interface and provides access to all field errors.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate validates the entire configuration and returns a ValidationError
// if any validation rules fail. It returns nil if the configuration is valid.
// All validation errors are collected and returned together.
//
// An empty provider list is valid: the proxy then answers 503 until a
// reload brings providers in.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateServer(&cfg.Server)...)
	errs = append(errs, validateProxy(&cfg.Proxy)...)
	errs = append(errs, validateDiscovery(&cfg.Discovery)...)
	errs = append(errs, validateProviders(cfg)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}

	return nil
}

// validateServer validates listener configuration.
func validateServer(cfg *ServerConfig) []FieldError {
	var errs []FieldError

	if cfg.Host == "" {
		errs = append(errs, FieldError{
			Field:   "server.host",
			Message: "host is required",
		})
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		errs = append(errs, FieldError{
			Field:   "server.port",
			Message: fmt.Sprintf("port %d out of range (1-65535)", cfg.Port),
		})
	}
	if cfg.ReadHeaderTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "server.read_header_timeout",
			Message: "read header timeout must be positive",
		})
	}
	if cfg.IdleTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "server.idle_timeout",
			Message: "idle timeout must be positive",
		})
	}
	if cfg.MaxHeaderBytes < 0 || cfg.MaxHeaderBytes > 10*1024*1024 {
		errs = append(errs, FieldError{
			Field:   "server.max_header_bytes",
			Message: "max header bytes must be between 0 and 10MB",
		})
	}

	return errs
}

// validateProxy validates relay configuration.
func validateProxy(cfg *ProxyConfig) []FieldError {
	var errs []FieldError

	if cfg.ErrorThreshold < 1 {
		errs = append(errs, FieldError{
			Field:   "proxy.error_threshold",
			Message: "error threshold must be at least 1",
		})
	}
	if cfg.APITimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "proxy.api_timeout",
			Message: "api timeout must be positive",
		})
	}
	if cfg.ConnectTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "proxy.connect_timeout",
			Message: "connect timeout must be positive",
		})
	}
	if cfg.FirstByteTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "proxy.first_byte_timeout",
			Message: "first byte timeout must be non-negative",
		})
	}
	if cfg.MaxBodyBytes < 0 {
		errs = append(errs, FieldError{
			Field:   "proxy.max_body_bytes",
			Message: "max body bytes must be non-negative",
		})
	}
	if cfg.StateFile == "" {
		errs = append(errs, FieldError{
			Field:   "proxy.state_file",
			Message: "state file path is required",
		})
	}

	return errs
}

// validateDiscovery validates model discovery configuration.
func validateDiscovery(cfg *DiscoveryConfig) []FieldError {
	var errs []FieldError

	if cfg.Concurrency < 1 {
		errs = append(errs, FieldError{
			Field:   "discovery.concurrency",
			Message: "concurrency must be at least 1",
		})
	}
	if cfg.Schedule != "" {
		if _, err := cron.ParseStandard(cfg.Schedule); err != nil {
			errs = append(errs, FieldError{
				Field:   "discovery.schedule",
				Message: fmt.Sprintf("invalid cron schedule %q: %v", cfg.Schedule, err),
			})
		}
	}

	return errs
}

// validateProviders validates provider profiles and their references to
// named override sets.
func validateProviders(cfg *Config) []FieldError {
	var errs []FieldError
	seen := make(map[string]bool, len(cfg.Providers))

	for i, p := range cfg.Providers {
		field := fmt.Sprintf("providers[%d]", i)

		if p.Name == "" {
			errs = append(errs, FieldError{
				Field:   field + ".name",
				Message: "provider name is required",
			})
		} else if seen[p.Name] {
			errs = append(errs, FieldError{
				Field:   field + ".name",
				Message: fmt.Sprintf("duplicate provider name %q", p.Name),
			})
		}
		seen[p.Name] = true

		if !ValidTokenIn(p.TokenIn) {
			errs = append(errs, FieldError{
				Field:   field + ".token_in",
				Message: fmt.Sprintf("invalid token_in %q (must be header, query, or both)", p.TokenIn),
			})
		}

		// The Note sentinel carries free text and no endpoint
		if p.BaseURL != "" && p.Name != NoteProviderName {
			if u, err := url.Parse(p.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
				errs = append(errs, FieldError{
					Field:   field + ".base_url",
					Message: fmt.Sprintf("invalid URL %q", p.BaseURL),
				})
			}
		}

		if p.HeaderOverride != "" {
			if _, ok := cfg.HeaderOverrides[p.HeaderOverride]; !ok {
				errs = append(errs, FieldError{
					Field:   field + ".header_override",
					Message: fmt.Sprintf("unknown header override set %q", p.HeaderOverride),
				})
			}
		}
		if p.RequestOverride != "" {
			if _, ok := cfg.RequestOverrides[p.RequestOverride]; !ok {
				errs = append(errs, FieldError{
					Field:   field + ".request_override",
					Message: fmt.Sprintf("unknown request override set %q", p.RequestOverride),
				})
			}
		}
	}

	return errs
}

// validateTelemetry validates telemetry configuration.
func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	switch strings.ToLower(cfg.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("invalid log level %q (must be debug, info, warn, or error)", cfg.Logging.Level),
		})
	}

	switch strings.ToLower(cfg.Logging.Format) {
	case "json", "text":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("invalid log format %q (must be json or text)", cfg.Logging.Format),
		})
	}

	if !strings.HasPrefix(cfg.Metrics.Path, "/") {
		errs = append(errs, FieldError{
			Field:   "telemetry.metrics.path",
			Message: "metrics path must start with /",
		})
	}

	if cfg.Tracing.SampleRatio < 0 || cfg.Tracing.SampleRatio > 1 {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.sample_ratio",
			Message: "sample ratio must be between 0.0 and 1.0",
		})
	}

	return errs
}

// ValidTokenIn reports whether v is an accepted credential placement.
// Matching is case-insensitive; empty means passthrough.
func ValidTokenIn(v string) bool {
	switch strings.ToLower(v) {
	case "", "header", "query", "both":
		return true
	}
	return false
}
