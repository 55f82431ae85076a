package auth

// APIKeySource defines where to extract a client key from.
type APIKeySource struct {
	Type   string // header, query
	Name   string // Header name or query param
	Scheme string // "Bearer", etc. (optional)
}

// Source types.
const (
	SourceHeader = "header"
	SourceQuery  = "query"
)

// ClientKeySources is the lookup order for the client key on every
// authenticated route. The first non-empty value wins.
var ClientKeySources = []APIKeySource{
	{Type: SourceHeader, Name: "X-Api-Key"},
	{Type: SourceHeader, Name: "Authorization", Scheme: "Bearer"},
	{Type: SourceHeader, Name: "Anthropic-Auth-Token"},
	{Type: SourceQuery, Name: "token"},
	{Type: SourceQuery, Name: "key"},
	{Type: SourceQuery, Name: "api_key"},
}

// KeyFunc returns the configured client key. It is consulted per request
// so a reload that changes proxy.api_key takes effect immediately.
type KeyFunc func() string
