// Package secrets resolves ${secret:name} references in credential fields.
//
// Provider tokens and the client API key may name a secret instead of
// carrying it inline:
//
//	providers:
//	  - name: kimi
//	    base_url: https://api.moonshot.cn/anthropic/v1/messages
//	    token: ${secret:kimi-token}
//
// A Resolver tries its sources in order. EnvSource maps the name to an
// environment variable ("kimi-token" with prefix "CCPROXY_SECRET_" reads
// CCPROXY_SECRET_KIMI_TOKEN). FileSource reads a file of that name from a
// directory, the layout used by Docker and Kubernetes secret mounts; files
// must be mode 0600 or 0400.
//
// Values are read on every resolution, so a configuration reload picks up
// rotated secrets.
package secrets
