package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"ccproxy-hq/ccproxy/pkg/proxy"
	"ccproxy-hq/ccproxy/pkg/proxy/types"
	"ccproxy-hq/ccproxy/pkg/relay"
	"ccproxy-hq/ccproxy/pkg/security/auth"
	"ccproxy-hq/ccproxy/pkg/telemetry/logging"
	"ccproxy-hq/ccproxy/pkg/telemetry/metrics"
)

// MessagesHandler relays POST /v1/messages to the selected provider.
type MessagesHandler struct {
	src       SelectionSource
	auth      *auth.Authenticator
	forwarder Forwarder
	relay     *relay.Relay
	metrics   *metrics.Collector
	logger    *slog.Logger
}

// NewMessagesHandler creates the relay handler. m may be nil.
func NewMessagesHandler(src SelectionSource, a *auth.Authenticator, f Forwarder, rl *relay.Relay, m *metrics.Collector, logger *slog.Logger) *MessagesHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &MessagesHandler{
		src:       src,
		auth:      a,
		forwarder: f,
		relay:     rl,
		metrics:   m,
		logger:    logger.With("component", "handlers.messages"),
	}
}

// ServeHTTP implements http.Handler.
//
// The provider is captured once, before anything else, so a concurrent
// select only affects later requests. A response dropped by the error
// threshold policy aborts the connection with http.ErrAbortHandler.
func (h *MessagesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	provider, ok := h.src.Selected()
	if !ok {
		h.logger.WarnContext(r.Context(), "no provider selected")
		h.writeError(w, r, "", http.StatusServiceUnavailable, types.NewError(types.CodeNoProviderSelected), start)
		return
	}

	ctx := logging.WithProvider(r.Context(), provider.Name)
	r = r.WithContext(ctx)

	if !h.auth.Authorize(r) {
		h.logger.WarnContext(ctx, "unauthorized client request", "remote_addr", r.RemoteAddr)
		h.writeError(w, r, provider.Name, http.StatusUnauthorized, types.NewError(types.CodeUnauthorized), start)
		return
	}

	settings := h.src.Settings()
	body, err := proxy.ReadBody(r, settings.MaxBodyBytes)
	if err != nil {
		status, errBody := proxy.HandleError(err)
		if status == http.StatusInternalServerError {
			// A failed read means the client went away mid-upload
			status, errBody = http.StatusBadRequest, types.NewErrorDetail(types.CodeInvalidBody, err.Error())
		}
		h.logger.WarnContext(ctx, "failed to read request body", "error", err)
		h.writeError(w, r, provider.Name, status, errBody, start)
		return
	}

	resp, err := h.forwarder.Forward(ctx, relay.Request{
		Provider: provider,
		Override: h.src.OverrideFor(provider.Name),
		Header:   r.Header,
		RawQuery: r.URL.RawQuery,
		Body:     body,
	})
	if err != nil {
		status, errBody := proxy.HandleError(err)
		h.writeError(w, r, provider.Name, status, errBody, start)
		return
	}

	res := h.relay.Stream(w, resp, provider.Name)
	h.metrics.RecordRequest(provider.Name, string(res.Outcome), res.Status, time.Since(start), res.Bytes)

	if res.Outcome == relay.OutcomeDropped {
		h.logger.InfoContext(ctx, "dropping client connection",
			"status", res.Status,
			"consecutive_errors", res.ConsecutiveErrors,
		)
		panic(http.ErrAbortHandler)
	}
}

func (h *MessagesHandler) writeError(w http.ResponseWriter, r *http.Request, provider string, status int, body types.ErrorBody, start time.Time) {
	h.metrics.RecordRequest(provider, string(relay.OutcomeFailed), status, time.Since(start), 0)
	if err := proxy.WriteErrorResponse(w, status, body); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to write error response", "error", err)
	}
}
