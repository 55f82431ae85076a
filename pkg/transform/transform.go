package transform

import (
	"net/http"
	"strings"

	"ccproxy-hq/ccproxy/pkg/config"
)

// Mode is the credential strategy chosen for a request.
type Mode string

const (
	// ModePassthrough rewrites the client's credential in place.
	ModePassthrough Mode = "passthrough"

	// ModeOverride strips client credentials and injects the provider's.
	ModeOverride Mode = "override"
)

// Token placements accepted for token_in.
const (
	TokenInHeader = "header"
	TokenInQuery  = "query"
	TokenInBoth   = "both"
)

// OverrideSets resolves named header and request field sets.
type OverrideSets interface {
	HeaderOverride(name string) map[string]string
	RequestOverride(name string) map[string]any
}

// Input is everything Build needs for one request.
type Input struct {
	Provider config.Provider
	Override config.Override

	// Header and RawQuery are the client's request headers and raw query.
	Header   http.Header
	RawQuery string
	Body     []byte

	// ClientAPIKey is the key clients authenticate with.
	ClientAPIKey string

	// TokenParam is the configured default query parameter name.
	TokenParam string

	// Sets resolves header_override and request_override names. Nil means
	// no sets are configured.
	Sets OverrideSets
}

// Output is the upstream request.
type Output struct {
	URL    string
	Header http.Header
	Body   []byte
	Mode   Mode
}

// Build computes the upstream URL, headers, and body.
func Build(in Input) Output {
	tokenIn := EffectiveTokenIn(in.Provider, in.Override)
	token := in.Provider.Credential()

	out := Output{Mode: ModePassthrough}
	if tokenIn != "" {
		out.Mode = ModeOverride
	}

	if out.Mode == ModePassthrough {
		out.URL = passthroughURL(in.Provider.BaseURL, in.RawQuery, in.ClientAPIKey, token)
		out.Header = passthroughHeaders(in.Header, in.ClientAPIKey, token)
	} else {
		out.URL = overrideURL(in, tokenIn, token)
		out.Header = overrideHeaders(in, tokenIn, token)
	}

	if name := HeaderOverrideName(in.Provider, in.Override); name != "" && in.Sets != nil {
		applyHeaderSet(out.Header, in.Sets.HeaderOverride(name))
	}

	out.Body = injectBody(in.Body, injectFields(in))
	return out
}

// EffectiveTokenIn returns the lowercased token_in, override first.
func EffectiveTokenIn(p config.Provider, o config.Override) string {
	return strings.ToLower(firstNonEmpty(o.TokenIn, p.TokenIn))
}

// TokenParamName returns the query parameter carrying the provider token.
func TokenParamName(p config.Provider, o config.Override, fallback string) string {
	return firstNonEmpty(o.TokenParam, p.TokenParam, fallback, config.DefaultTokenParam)
}

// TokenHeader returns the credential header name and its value for token.
func TokenHeader(p config.Provider, o config.Override, token string) (string, string) {
	name := firstNonEmpty(o.TokenHeader, p.TokenHeader, config.DefaultTokenHeader)
	format := firstNonEmpty(o.TokenHeaderFormat, p.TokenHeaderFormat, config.DefaultTokenHeaderFormat)
	return name, strings.ReplaceAll(format, "{token}", token)
}

// HeaderOverrideName returns the header set name in effect.
func HeaderOverrideName(p config.Provider, o config.Override) string {
	return firstNonEmpty(o.HeaderOverride, p.HeaderOverride)
}

// PlacesInQuery reports whether tokenIn puts the credential in the query.
func PlacesInQuery(tokenIn string) bool {
	return tokenIn == TokenInQuery || tokenIn == TokenInBoth
}

// PlacesInHeader reports whether tokenIn puts the credential in a header.
func PlacesInHeader(tokenIn string) bool {
	return tokenIn == TokenInHeader || tokenIn == TokenInBoth
}

func injectFields(in Input) map[string]any {
	name := firstNonEmpty(in.Override.RequestOverride, in.Provider.RequestOverride)
	if name != "" && in.Sets != nil {
		if fields := in.Sets.RequestOverride(name); len(fields) > 0 {
			return fields
		}
	}
	if len(in.Override.RequestInject) > 0 {
		return in.Override.RequestInject
	}
	return in.Provider.RequestInject
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
