// Package transform builds the outbound request for a provider from an
// inbound client request.
//
// Build is pure: it reads the provider profile, the shared override, and the
// resolved override sets, and returns the upstream URL, headers, and body.
// It performs no I/O and never fails; inputs it cannot interpret pass
// through unchanged.
//
// # Modes
//
// The effective token_in (override first, then provider) selects the mode.
// Empty means passthrough: any header or query value carrying the configured
// client key is replaced outright by the provider token. Any other value means override: client credentials are
// stripped and the provider token is placed in the query, a header, or both.
//
// # Header and Body Shaping
//
// A named header set replaces matching headers and strips browser
// identification headers. A request field set adds system, tools or metadata
// to the body when the client left them out, keeping model and messages
// first.
package transform
