package types

// ErrorBody is the JSON error payload of every ccproxy endpoint:
//
//	{"error":"upstream_error","detail":"dial tcp: connection refused"}
type ErrorBody struct {
	// Error is a machine-readable error code.
	Error string `json:"error"`

	// Detail is an optional human-readable explanation.
	Detail string `json:"detail,omitempty"`
}

// Error codes returned by the proxy and the control plane.
const (
	// CodeNoProviderSelected indicates no provider is selected (503).
	CodeNoProviderSelected = "no_provider_selected"

	// CodeUnauthorized indicates a missing or wrong client key (401).
	CodeUnauthorized = "unauthorized"

	// CodeProviderURLMissing indicates the selected provider has no base_url (502).
	CodeProviderURLMissing = "provider_url_missing"

	// CodeUpstreamError indicates the upstream could not be reached (502).
	CodeUpstreamError = "upstream_error"

	// CodeInvalidJSON indicates a malformed request body (400).
	CodeInvalidJSON = "invalid_json"

	// CodeInvalidBody indicates the request body could not be read (400).
	CodeInvalidBody = "invalid_body"

	// CodeRequestTooLarge indicates the body exceeded proxy.max_body_bytes (413).
	CodeRequestTooLarge = "request_too_large"

	// CodeUnknownProvider indicates a select for a provider that does not exist (400).
	CodeUnknownProvider = "unknown_provider"

	// CodeProviderNotFound indicates a test for a provider that does not exist (400).
	CodeProviderNotFound = "provider_not_found"

	// CodeInvalidPayload indicates a structurally wrong control payload (400).
	CodeInvalidPayload = "invalid_payload"

	// CodeReloadFailed indicates the configuration could not be reloaded (500).
	CodeReloadFailed = "reload_failed"


	// CodeNotFound indicates an unknown path or a missing static file (404).
	CodeNotFound = "not_found"

	// CodeInternalError indicates a recovered handler fault (500).
	CodeInternalError = "internal_error"
)

// NewError returns an ErrorBody with no detail.
func NewError(code string) ErrorBody {
	return ErrorBody{Error: code}
}

// NewErrorDetail returns an ErrorBody with a detail message.
func NewErrorDetail(code, detail string) ErrorBody {
	return ErrorBody{Error: code, Detail: detail}
}
