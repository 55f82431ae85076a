package proxy

import (
	"errors"
	"net/http"

	"ccproxy-hq/ccproxy/pkg/proxy/types"
	"ccproxy-hq/ccproxy/pkg/relay"
)

// HandleError maps an error from the relay path to the status and body
// returned to the client.
//
//	relay.ErrProviderURLMissing -> 502 provider_url_missing
//	*relay.UpstreamError        -> 502 upstream_error with detail
//	ErrBodyTooLarge             -> 413 request_too_large
//	anything else               -> 500 internal_error
func HandleError(err error) (int, types.ErrorBody) {
	if errors.Is(err, relay.ErrProviderURLMissing) {
		return http.StatusBadGateway, types.NewError(types.CodeProviderURLMissing)
	}

	var upstreamErr *relay.UpstreamError
	if errors.As(err, &upstreamErr) {
		detail := upstreamErr.Error()
		if upstreamErr.Cause != nil {
			detail = upstreamErr.Cause.Error()
		}
		return http.StatusBadGateway, types.NewErrorDetail(types.CodeUpstreamError, detail)
	}

	if errors.Is(err, ErrBodyTooLarge) {
		return http.StatusRequestEntityTooLarge, types.NewError(types.CodeRequestTooLarge)
	}

	return http.StatusInternalServerError, types.NewError(types.CodeInternalError)
}
