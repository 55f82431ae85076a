// Package config provides configuration management for ccproxy.
//
// This package handles loading, validating, and watching the configuration
// file. The file is YAML; JSON files parse as well since YAML is a superset.
//
// # Configuration Loading
//
// Configuration can be loaded in two ways:
//
//  1. From a file only:
//     cfg, err := config.LoadConfig("config.yaml")
//
//  2. From a file with environment variable overrides:
//     cfg, err := config.LoadConfigWithEnvOverrides("config.yaml")
//
// References of the form ${VAR} or ${VAR:-default} anywhere in the file are
// expanded from the process environment before parsing. LoadEnvFiles can be
// used beforehand to populate the environment from .env files.
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention CCPROXY_SECTION_FIELD.
// For example:
//
//   - CCPROXY_SERVER_PORT overrides server.port
//   - CCPROXY_API_KEY overrides proxy.api_key
//   - CCPROXY_LOG_LEVEL overrides telemetry.logging.level
//
// # Configuration Precedence
//
// Configuration values are applied in the following order (later overrides earlier):
//
//  1. Values from the file
//  2. Default values for anything left unset (defined in defaults.go)
//  3. Environment variable overrides
//  4. Validation (fails fast if invalid)
//
// # Providers
//
// Providers are an ordered list. Keys the proxy understands are decoded into
// typed fields of Provider; every other key is preserved in Provider.Extra and
// written back out when the provider is rendered as JSON.
//
//	providers:
//	  - name: relay-a
//	    base_url: https://relay-a.example.com/anthropic/v1/messages
//	    token: ${RELAY_A_TOKEN}
//	    token_in: header
//	    models: [claude-sonnet-4-5-20250929]
//
// # Secrets
//
// Credential fields (proxy.api_key, provider token and api_key) may hold
// ${secret:name} references. They are resolved after env overrides from
// CCPROXY_SECRET_<NAME> variables, then from files in secrets.dir.
//
// # Hot Reload
//
// Watcher observes the configuration file and invokes a callback, normally
// the registry's Reload, after writes settle.
package config
