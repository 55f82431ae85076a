package export

import (
	"net/url"
	"regexp"
	"strings"

	"ccproxy-hq/ccproxy/pkg/config"
)

// claudeSuffixes are the endpoint paths stripped from base_url to get a
// cc-switch ANTHROPIC_BASE_URL. The first match wins.
var claudeSuffixes = []string{
	"/anthropic/v1/messages",
	"/v1/chat/completions",
	"/v1/messages",
}

// openAISuffixes additionally strip a bare /v1, since CLIProxyAPI appends
// its own version prefix.
var openAISuffixes = append(append([]string(nil), claudeSuffixes...), "/v1")

var (
	invalidIDChars = regexp.MustCompile(`[^A-Za-z0-9_-]`)
	repeatedUnders = regexp.MustCompile(`_+`)
)

// StripEndpoint removes the first suffix contained in baseURL. Providers
// whose URL contains none are returned unchanged.
func StripEndpoint(baseURL string, suffixes []string) string {
	for _, s := range suffixes {
		if strings.Contains(baseURL, s) {
			return strings.Replace(baseURL, s, "", 1)
		}
	}
	return baseURL
}

// SanitizeID turns a provider name into a cc-switch id:
// "runanytime.hxi.me" becomes "runanytime_hxi_me".
func SanitizeID(name string) string {
	id := invalidIDChars.ReplaceAllString(name, "_")
	id = repeatedUnders.ReplaceAllString(id, "_")
	return strings.ToLower(strings.Trim(id, "_"))
}

// siteURL returns scheme://host of u, or u itself if it does not parse.
func siteURL(u string) string {
	parsed, err := url.Parse(u)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return u
	}
	return parsed.Scheme + "://" + parsed.Host
}

// exportable returns the providers that represent real endpoints.
func exportable(providers []config.Provider) []config.Provider {
	out := make([]config.Provider, 0, len(providers))
	for _, p := range providers {
		if p.Name == config.NoteProviderName {
			continue
		}
		out = append(out, p)
	}
	return out
}
