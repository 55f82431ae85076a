// Package logging builds the process logger for ccproxy.
//
// # Overview
//
// The logging package wraps Go's standard log/slog package to provide:
//   - Structured logging with JSON and text formats
//   - Credential redaction for attribute values
//   - Request IDs attached from the context automatically
//   - A discard logger when logging is disabled
//
// # Usage
//
//	logger, err := logging.New(logging.FromConfig(cfg.Telemetry.Logging))
//	if err != nil {
//	    return err
//	}
//	slog.SetDefault(logger)
//
//	ctx = logging.WithRequestID(ctx, "req-123")
//	logger.InfoContext(ctx, "relay finished",
//	    "provider", "relay-a",
//	    "x-api-key", "sk-abc123", // redacted
//	)
//
// # Redaction
//
// Attribute values are redacted when the key names a credential
// (authorization, x-api-key, token, api_key, password, secret and their
// suffixed forms such as auth_token), and any string value has bearer
// tokens and sk- style keys masked:
//
//   - Bearer abc.def → Bearer ***
//   - sk-abc123xyz → sk-***
package logging
