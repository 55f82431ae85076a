/*
Package auth checks the client key that protects ccproxy.

One key protects everything. It is configured as proxy.api_key, and an
empty value turns authentication off. The key is looked up on each request
in this order, and the first non-empty value wins:

	X-Api-Key: <key>
	Authorization: Bearer <key>
	Anthropic-Auth-Token: <key>
	?token=<key>  ?key=<key>  ?api_key=<key>

# Relay

The /v1/messages handler calls Authorize itself. This lets it answer 503
no_provider_selected before it answers 401.

# UI and Control Plane

RequireUI wraps the static UI and the /api endpoints. It also accepts
HTTP Basic, comparing only the password. A failed check gets this reply:

	HTTP/1.1 401 Unauthorized
	WWW-Authenticate: Basic realm="ccproxy"

	{"error":"unauthorized"}

The browser's password prompt therefore works with no login page.

Key comparison is constant time.
*/
package auth
