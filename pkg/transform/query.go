package transform

import (
	"net/url"
	"strings"
)

// Pair is one query parameter.
type Pair struct {
	Key   string
	Value string
}

// Pairs is an ordered query. Unlike url.Values it keeps parameter order and
// duplicate keys, both of which some upstreams are sensitive to.
type Pairs []Pair

// ParseQuery splits a raw query on '&'. Parameters without '=' get an empty
// value and blank values are kept. Malformed escapes are kept verbatim.
func ParseQuery(raw string) Pairs {
	if raw == "" {
		return nil
	}

	var out Pairs
	for _, part := range strings.Split(raw, "&") {
		if part == "" {
			continue
		}
		k, v, _ := strings.Cut(part, "=")
		out = append(out, Pair{Key: unescape(k), Value: unescape(v)})
	}
	return out
}

// Encode renders the pairs in order.
func (p Pairs) Encode() string {
	var sb strings.Builder
	for i, kv := range p {
		if i > 0 {
			sb.WriteByte('&')
		}
		sb.WriteString(url.QueryEscape(kv.Key))
		sb.WriteByte('=')
		sb.WriteString(url.QueryEscape(kv.Value))
	}
	return sb.String()
}

// Filter returns the pairs for which keep returns true.
func (p Pairs) Filter(keep func(Pair) bool) Pairs {
	var out Pairs
	for _, kv := range p {
		if keep(kv) {
			out = append(out, kv)
		}
	}
	return out
}

// MergeQuery appends extra after the existing query of rawURL. Existing
// pairs are never replaced or deduplicated. With nothing to append rawURL is
// returned unchanged.
func MergeQuery(rawURL string, extra Pairs) string {
	if len(extra) == 0 {
		return rawURL
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		sep := "?"
		if strings.Contains(rawURL, "?") {
			sep = "&"
		}
		return rawURL + sep + extra.Encode()
	}

	merged := append(ParseQuery(u.RawQuery), extra...)
	u.RawQuery = merged.Encode()
	return u.String()
}

func unescape(s string) string {
	if v, err := url.QueryUnescape(s); err == nil {
		return v
	}
	return s
}

func passthroughURL(base, rawQuery, apiKey, token string) string {
	pairs := ParseQuery(rawQuery)
	for i := range pairs {
		pairs[i].Value = swapKey(pairs[i].Value, apiKey, token)
	}
	return MergeQuery(base, pairs)
}

func overrideURL(in Input, tokenIn, token string) string {
	pairs := ParseQuery(in.RawQuery).Filter(func(kv Pair) bool {
		_, auth := clientAuthParams[strings.ToLower(kv.Key)]
		return !auth
	})
	pairs = append(pairs, ParseQuery(in.Override.QueryParams)...)

	if PlacesInQuery(tokenIn) && token != "" {
		pairs = append(pairs, Pair{Key: TokenParamName(in.Provider, in.Override, in.TokenParam), Value: token})
	}
	return MergeQuery(in.Provider.BaseURL, pairs)
}
