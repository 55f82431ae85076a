// Package proxy holds the HTTP plumbing shared by the ccproxy handlers:
// request body reading, JSON responses and the mapping of relay errors to
// client responses.
//
// # Request Bodies
//
// ReadBody reads a client body up to proxy.max_body_bytes. Bodies that
// still carry chunked framing are decoded leniently with DecodeChunked.
//
// # Responses
//
// All JSON responses use the content type
//
//	application/json; charset=utf-8
//
// and errors are written as types.ErrorBody:
//
//	{"error":"upstream_error","detail":"dial tcp 127.0.0.1:9: connect: connection refused"}
//
// # Error Mapping
//
// HandleError converts relay errors:
//
//	relay.ErrProviderURLMissing  502  provider_url_missing
//	*relay.UpstreamError         502  upstream_error (+ detail)
//	ErrBodyTooLarge              413  request_too_large
//	other                        500  internal_error
//
// Subpackages:
//   - handlers: the /v1/messages relay, the /api control plane, static
//     assets and health endpoints
//   - middleware: request ID, logging, recovery and CORS
//   - types: JSON payloads
package proxy
