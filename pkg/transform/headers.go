package transform

import (
	"net/http"
	"strings"
)

var hopByHop = map[string]struct{}{
	"connection":          {},
	"keep-alive":          {},
	"proxy-authenticate":  {},
	"proxy-authorization": {},
	"te":                  {},
	"trailers":            {},
	"transfer-encoding":   {},
	"upgrade":             {},
	"host":                {},
	"content-length":      {},
	"accept-encoding":     {},
}

var clientAuthHeaders = map[string]struct{}{
	"authorization":        {},
	"x-api-key":            {},
	"anthropic-auth-token": {},
}

var clientAuthParams = map[string]struct{}{
	"token":   {},
	"key":     {},
	"api_key": {},
	"apikey":  {},
}

var browserHeaders = map[string]struct{}{
	"http-referer": {},
	"referer":      {},
	"x-title":      {},
	"origin":       {},
	"priority":     {},
}

// IsHopByHop reports whether name is stripped in both directions.
func IsHopByHop(name string) bool {
	_, ok := hopByHop[strings.ToLower(name)]
	return ok
}

func isClientAuthHeader(name string) bool {
	_, ok := clientAuthHeaders[strings.ToLower(name)]
	return ok
}

func isBrowserHeader(name string) bool {
	lower := strings.ToLower(name)
	if _, ok := browserHeaders[lower]; ok {
		return true
	}
	return strings.HasPrefix(lower, "sec-ch-") || strings.HasPrefix(lower, "sec-fetch-")
}

// CopyHeaders copies src into dst without hop-by-hop headers.
func CopyHeaders(dst, src http.Header) {
	for k, vv := range src {
		if IsHopByHop(k) {
			continue
		}
		dst[k] = append([]string(nil), vv...)
	}
}

func passthroughHeaders(src http.Header, apiKey, token string) http.Header {
	out := make(http.Header, len(src))
	for k, vv := range src {
		if IsHopByHop(k) {
			continue
		}
		vals := make([]string, len(vv))
		for i, v := range vv {
			vals[i] = swapKey(v, apiKey, token)
		}
		out[k] = vals
	}
	return out
}

func overrideHeaders(in Input, tokenIn, token string) http.Header {
	out := make(http.Header, len(in.Header)+1)
	for k, vv := range in.Header {
		if IsHopByHop(k) || isClientAuthHeader(k) {
			continue
		}
		out[k] = append([]string(nil), vv...)
	}

	if PlacesInHeader(tokenIn) {
		name, value := TokenHeader(in.Provider, in.Override, token)
		deleteFold(out, name)
		out[name] = []string{value}
	}
	return out
}

// applyHeaderSet replaces headers named in set, strips browser
// identification headers, then writes set verbatim. An empty set is a no-op.
func applyHeaderSet(h http.Header, set map[string]string) {
	if len(set) == 0 {
		return
	}

	for name := range set {
		deleteFold(h, name)
	}
	for k := range h {
		if isBrowserHeader(k) {
			delete(h, k)
		}
	}
	for name, value := range set {
		h[name] = []string{value}
	}
}

// deleteFold removes every key equal to name ignoring case. Keys written
// verbatim are not canonicalized, so Header.Del alone is not enough.
func deleteFold(h http.Header, name string) {
	for k := range h {
		if strings.EqualFold(k, name) {
			delete(h, k)
		}
	}
}

// swapKey returns token in place of any value that carries the client key,
// so "Bearer <key>" becomes "<token>". An empty key never matches.
func swapKey(v, apiKey, token string) string {
	if apiKey == "" || !strings.Contains(v, apiKey) {
		return v
	}
	return token
}
