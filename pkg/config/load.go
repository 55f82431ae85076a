package config

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// utf8BOM is stripped before parsing; editors on Windows like to add it.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// envPattern matches ${VAR_NAME} and ${VAR_NAME:-default}.
var envPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// Loader produces a fresh, validated configuration. The registry calls it
// on reload.
type Loader func() (*Config, error)

// FileLoader returns a Loader that reads path with environment overrides.
func FileLoader(path string) Loader {
	return func() (*Config, error) {
		return LoadConfigWithEnvOverrides(path)
	}
}

// LoadConfig loads configuration from a YAML file at the specified path.
// JSON files are accepted as well. ${VAR} references are expanded from the
// process environment before parsing. It applies default values, validates
// the configuration, and returns any errors.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Parse decodes configuration bytes and applies defaults. It does not validate.
func Parse(data []byte) (*Config, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	expanded := substituteEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, err
	}

	ApplyDefaults(&cfg)
	return &cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a file and applies
// environment variable overrides. Environment variables follow the naming
// convention CCPROXY_SECTION_FIELD (e.g., CCPROXY_SERVER_PORT).
//
// The loading sequence is:
// 1. Load YAML from file (expanding ${VAR} references)
// 2. Apply default values
// 3. Apply environment variable overrides
// 4. Resolve ${secret:name} references in credential fields
// 5. Validate final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	applyEnvOverrides(cfg)

	if err := ResolveSecrets(context.Background(), cfg); err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// LoadEnvFiles loads KEY=VALUE pairs from each existing file into the
// process environment. Variables already set are not overwritten.
// Missing files are skipped silently.
func LoadEnvFiles(files ...string) {
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			slog.Warn("failed to load env file", "path", f, "error", err)
			continue
		}
		slog.Debug("loaded env file", "path", f)
	}
}

// substituteEnvVars replaces ${VAR_NAME} and ${VAR_NAME:-default} patterns
// with environment variable values.
func substituteEnvVars(content string) string {
	return envPattern.ReplaceAllStringFunc(content, func(match string) string {
		sub := envPattern.FindStringSubmatch(match)
		if len(sub) < 2 {
			return match
		}
		if value := os.Getenv(sub[1]); value != "" {
			return value
		}
		if len(sub) > 2 {
			return sub[2]
		}
		return ""
	})
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables use the format CCPROXY_SECTION_FIELD.
func applyEnvOverrides(cfg *Config) {
	// Server overrides
	if val := os.Getenv("CCPROXY_SERVER_HOST"); val != "" {
		cfg.Server.Host = val
	}
	if val := os.Getenv("CCPROXY_SERVER_PORT"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Server.Port = i
		}
	}

	// Proxy overrides
	if val := os.Getenv("CCPROXY_API_KEY"); val != "" {
		cfg.Proxy.APIKey = val
	}
	if val := os.Getenv("CCPROXY_TOKEN_PARAM"); val != "" {
		cfg.Proxy.TokenParam = val
	}
	if val := os.Getenv("CCPROXY_API_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Proxy.APITimeout = d
		}
	}
	if val := os.Getenv("CCPROXY_FIRST_BYTE_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Proxy.FirstByteTimeout = d
		}
	}
	if val := os.Getenv("CCPROXY_ERROR_THRESHOLD"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Proxy.ErrorThreshold = i
		}
	}
	if val := os.Getenv("CCPROXY_STATE_FILE"); val != "" {
		cfg.Proxy.StateFile = val
	}

	// Telemetry overrides
	if val := os.Getenv("CCPROXY_LOG_LEVEL"); val != "" {
		cfg.Telemetry.Logging.Level = strings.ToLower(val)
	}
	if val := os.Getenv("CCPROXY_LOG_FORMAT"); val != "" {
		cfg.Telemetry.Logging.Format = strings.ToLower(val)
	}
	if val := os.Getenv("CCPROXY_METRICS_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Telemetry.Metrics.Enabled = &b
		}
	}
	if val := os.Getenv("CCPROXY_TRACING_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Telemetry.Tracing.Enabled = b
		}
	}
	if val := os.Getenv("CCPROXY_TRACING_ENDPOINT"); val != "" {
		cfg.Telemetry.Tracing.Endpoint = val
	}
}
