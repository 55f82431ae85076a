package relay

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"ccproxy-hq/ccproxy/pkg/config"
	"ccproxy-hq/ccproxy/pkg/registry"
	"ccproxy-hq/ccproxy/pkg/telemetry/metrics"
	"ccproxy-hq/ccproxy/pkg/telemetry/tracing"
	"ccproxy-hq/ccproxy/pkg/transform"

	"go.opentelemetry.io/otel/attribute"
)

// Source is the registry view used by the relay.
type Source interface {
	transform.OverrideSets
	Settings() registry.Settings
	OverrideFor(name string) config.Override
	IncrementError(name string) int
	ResetError(name string)
	ErrorThreshold() int
}

// Options carries the optional collaborators of a Forwarder or Relay.
type Options struct {
	Logger  *slog.Logger
	Metrics *metrics.Collector
	Tracer  *tracing.Tracer
}

func (o Options) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.Default()
	}
	return o.Logger
}

// Request is one client request captured at dispatch time.
type Request struct {
	Provider config.Provider
	Override config.Override
	Header   http.Header
	RawQuery string
	Body     []byte
}

// Forwarder sends transformed requests upstream.
type Forwarder struct {
	src     Source
	client  *http.Client
	logger  *slog.Logger
	metrics *metrics.Collector
	tracer  *tracing.Tracer
}

// NewForwarder creates a forwarder. Dialing and the TLS handshake are
// bounded by the connect timeout in effect at construction, and the wait for
// response headers by the first byte timeout when one is set.
func NewForwarder(src Source, opts Options) *Forwarder {
	settings := src.Settings()
	connectTimeout := settings.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = config.DefaultConnectTimeout
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   connectTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   connectTimeout,
		ResponseHeaderTimeout: settings.FirstByteTimeout,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		// Upstream bytes are relayed as sent
		DisableCompression: true,
		ForceAttemptHTTP2:  true,
	}

	return &Forwarder{
		src: src,
		client: &http.Client{
			Transport: transport,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		logger:  opts.logger().With("component", "relay.forwarder"),
		metrics: opts.Metrics,
		tracer:  opts.Tracer,
	}
}

// Forward builds the upstream request for req and sends it. The whole
// exchange, including reading the response body, is bounded by api_timeout;
// the deadline is released when the response body is closed.
func (f *Forwarder) Forward(ctx context.Context, req Request) (*http.Response, error) {
	name := req.Provider.Name
	if strings.TrimSpace(req.Provider.BaseURL) == "" {
		f.metrics.RecordUpstreamError(name, "url_missing")
		return nil, ErrProviderURLMissing
	}

	settings := f.src.Settings()
	out := transform.Build(transform.Input{
		Provider:     req.Provider,
		Override:     req.Override,
		Header:       req.Header,
		RawQuery:     req.RawQuery,
		Body:         req.Body,
		ClientAPIKey: settings.APIKey,
		TokenParam:   settings.TokenParam,
		Sets:         f.src,
	})

	ctx, span := f.tracer.Start(ctx, "relay.forward")
	defer span.End()
	tracing.SetProviderAttributes(span, name, string(out.Mode))

	timeout := settings.APITimeout
	if timeout <= 0 {
		timeout = config.DefaultAPITimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, out.URL, bytes.NewReader(out.Body))
	if err != nil {
		cancel()
		tracing.SetError(span, err)
		return nil, &UpstreamError{Provider: name, Op: "forward", Cause: err}
	}
	httpReq.Header = out.Header
	tracing.Inject(ctx, httpReq.Header)

	if f.logger.Enabled(ctx, slog.LevelDebug) {
		f.logRequest(ctx, httpReq, out)
	}

	start := time.Now()
	resp, err := f.client.Do(httpReq)
	elapsed := time.Since(start)
	if err != nil {
		cancel()
		f.logger.ErrorContext(ctx, "upstream request failed",
			"provider", name,
			"url", redactURL(out.URL),
			"error", err,
			"latency_ms", elapsed.Milliseconds(),
		)
		f.metrics.RecordUpstreamError(name, "network")
		tracing.SetError(span, err)
		return nil, &UpstreamError{Provider: name, Op: "forward", Cause: err}
	}

	f.logger.InfoContext(ctx, "upstream responded",
		"provider", name,
		"status", resp.StatusCode,
		"mode", string(out.Mode),
		"latency_ms", elapsed.Milliseconds(),
	)
	f.metrics.RecordUpstreamLatency(name, elapsed)
	span.SetAttributes(attribute.Int(tracing.AttrHTTPStatus, resp.StatusCode))
	resp.Body = &cancelBody{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

func (f *Forwarder) logRequest(ctx context.Context, req *http.Request, out transform.Output) {
	params := transform.ParseQuery(req.URL.RawQuery)
	names := make([]string, 0, len(params))
	for _, p := range params {
		names = append(names, p.Key)
	}

	headers := make([]any, 0, len(out.Header))
	for k := range out.Header {
		headers = append(headers, slog.String(k, out.Header.Get(k)))
	}

	f.logger.DebugContext(ctx, "upstream request",
		"url", redactURL(out.URL),
		"query_params", names,
		slog.Group("headers", headers...),
	)
	logBody(ctx, f.logger, "upstream request body", out.Body, 200)
}

// cancelBody releases the exchange deadline when the body is closed.
type cancelBody struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (b *cancelBody) Close() error {
	err := b.ReadCloser.Close()
	b.cancel()
	return err
}

// redactURL drops the query from a URL for logging.
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	u.RawQuery = ""
	return u.String()
}
