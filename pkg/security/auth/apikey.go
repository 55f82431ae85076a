package auth

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// APIKeyValidator checks presented keys against the configured client key.
// An empty configured key authorizes every request.
type APIKeyValidator struct {
	key KeyFunc
}

// NewAPIKeyValidator creates a validator reading the configured key from key.
func NewAPIKeyValidator(key KeyFunc) *APIKeyValidator {
	return &APIKeyValidator{key: key}
}

// Enabled reports whether a client key is configured.
func (v *APIKeyValidator) Enabled() bool {
	return v.configured() != ""
}

// Validate reports whether presented matches the configured key.
func (v *APIKeyValidator) Validate(presented string) bool {
	want := v.configured()
	if want == "" {
		return true
	}
	if presented == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(presented), []byte(want)) == 1
}

func (v *APIKeyValidator) configured() string {
	if v == nil || v.key == nil {
		return ""
	}
	return v.key()
}

// ExtractAPIKey returns the first non-empty key found in sources, in order.
func ExtractAPIKey(r *http.Request, sources []APIKeySource) string {
	var query map[string][]string
	for _, source := range sources {
		switch source.Type {
		case SourceHeader:
			value := strings.TrimSpace(r.Header.Get(source.Name))
			if value == "" {
				continue
			}
			if source.Scheme == "" {
				return value
			}
			// Scheme match is case-insensitive: "bearer x" is accepted
			prefix := source.Scheme + " "
			if len(value) > len(prefix) && strings.EqualFold(value[:len(prefix)], prefix) {
				if key := strings.TrimSpace(value[len(prefix):]); key != "" {
					return key
				}
			}

		case SourceQuery:
			if query == nil {
				query = r.URL.Query()
			}
			if vals := query[source.Name]; len(vals) > 0 && vals[0] != "" {
				return vals[0]
			}
		}
	}
	return ""
}
