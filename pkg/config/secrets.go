package config

import (
	"context"
	"fmt"

	"ccproxy-hq/ccproxy/pkg/security/secrets"
)

// ResolveSecrets replaces ${secret:name} references in the client API key
// and in every provider credential. Sources are built from cfg.Secrets and
// are only consulted when a reference is present.
func ResolveSecrets(ctx context.Context, cfg *Config) error {
	fields := credentialFields(cfg)

	needed := false
	for _, f := range fields {
		if secrets.HasReference(*f.value) {
			needed = true
			break
		}
	}
	if !needed {
		return nil
	}

	sources := []secrets.Source{secrets.NewEnvSource(cfg.Secrets.EnvPrefix)}
	if cfg.Secrets.Dir != "" {
		files, err := secrets.NewFileSource(cfg.Secrets.Dir)
		if err != nil {
			return fmt.Errorf("secrets.dir: %w", err)
		}
		sources = append(sources, files)
	}
	resolver := secrets.NewResolver(nil, sources...)

	var errs []FieldError
	for _, f := range fields {
		if !secrets.HasReference(*f.value) {
			continue
		}
		v, err := resolver.Expand(ctx, *f.value)
		if err != nil {
			errs = append(errs, FieldError{Field: f.name, Message: err.Error()})
			continue
		}
		*f.value = v
	}
	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}

type credentialField struct {
	name  string
	value *string
}

func credentialFields(cfg *Config) []credentialField {
	fields := []credentialField{{name: "proxy.api_key", value: &cfg.Proxy.APIKey}}
	for i := range cfg.Providers {
		p := &cfg.Providers[i]
		fields = append(fields,
			credentialField{name: fmt.Sprintf("providers[%d].token", i), value: &p.Token},
			credentialField{name: fmt.Sprintf("providers[%d].api_key", i), value: &p.APIKey},
		)
	}
	return fields
}
