package secrets

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// DefaultEnvPrefix namespaces secret environment variables.
const DefaultEnvPrefix = "CCPROXY_SECRET_"

// EnvSource loads secrets from environment variables. The secret name is
// upper-cased with hyphens and dots turned into underscores, then prefixed.
//
//	"kimi-token" -> "CCPROXY_SECRET_KIMI_TOKEN"
type EnvSource struct {
	Prefix string
}

// NewEnvSource creates an environment source. An empty prefix reads the
// variable name as is.
func NewEnvSource(prefix string) *EnvSource {
	return &EnvSource{Prefix: prefix}
}

// Lookup reads the variable for name. Empty values count as missing.
func (s *EnvSource) Lookup(ctx context.Context, name string) (string, error) {
	envVar := s.EnvVar(name)
	value := os.Getenv(envVar)
	if value == "" {
		return "", fmt.Errorf("%w in environment: %s (env var: %s)", ErrNotFound, name, envVar)
	}
	return value, nil
}

// Name returns "env".
func (s *EnvSource) Name() string {
	return "env"
}

// EnvVar returns the environment variable consulted for name.
func (s *EnvSource) EnvVar(name string) string {
	r := strings.NewReplacer("-", "_", ".", "_")
	return s.Prefix + strings.ToUpper(r.Replace(name))
}
