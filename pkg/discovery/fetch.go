package discovery

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"ccproxy-hq/ccproxy/pkg/config"
	"ccproxy-hq/ccproxy/pkg/registry"
	"ccproxy-hq/ccproxy/pkg/telemetry/metrics"
	"ccproxy-hq/ccproxy/pkg/telemetry/tracing"
	"ccproxy-hq/ccproxy/pkg/transform"

	"github.com/tidwall/gjson"
	"go.opentelemetry.io/otel/attribute"
)

// maxListingBytes bounds a model listing response.
const maxListingBytes = 8 << 20

// endpointPaths are removed from base_url wherever they appear, first match wins.
var endpointPaths = []string{
	"/anthropic/v1/messages",
	"/v1/chat/completions",
	"/v1/messages",
}

// SettingsSource supplies the timeouts and discovery options in effect.
type SettingsSource interface {
	Settings() registry.Settings
}

// Options carries the optional collaborators of a Fetcher or Service.
type Options struct {
	Logger  *slog.Logger
	Metrics *metrics.Collector
	Tracer  *tracing.Tracer

	// HTTPClient is used for listings. Nil means a default client.
	HTTPClient *http.Client
}

func (o Options) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.Default()
	}
	return o.Logger
}

// Fetcher lists the models of a single provider.
type Fetcher struct {
	src     SettingsSource
	client  *http.Client
	logger  *slog.Logger
	metrics *metrics.Collector
	tracer  *tracing.Tracer
}

// NewFetcher creates a fetcher.
func NewFetcher(src SettingsSource, opts Options) *Fetcher {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	return &Fetcher{
		src:     src,
		client:  client,
		logger:  opts.logger().With("component", "discovery.fetcher"),
		metrics: opts.Metrics,
		tracer:  opts.Tracer,
	}
}

// ModelsBase returns the API root of a provider endpoint URL.
//
//	https://h/anthropic/v1/messages -> https://h
//	https://h/api/v1/chat/completions -> https://h/api
//	https://h/v1/messages/ -> https://h
//	https://h/v1/messages?beta=true -> https://h
//	https://h/ -> https://h
//
// Query and fragment belong to the messages endpoint and are dropped.
func ModelsBase(baseURL string) string {
	if i := strings.IndexAny(baseURL, "?#"); i >= 0 {
		baseURL = baseURL[:i]
	}
	for _, path := range endpointPaths {
		if strings.Contains(baseURL, path) {
			baseURL = strings.ReplaceAll(baseURL, path, "")
			break
		}
	}
	return strings.TrimRight(baseURL, "/")
}

// Fetch lists the models of p. tokenParam is the default query parameter
// name for query placement. Failures are returned as *FetchError.
func (f *Fetcher) Fetch(ctx context.Context, p config.Provider, o config.Override, tokenParam string) ([]string, error) {
	ctx, span := f.tracer.Start(ctx, "discovery.fetch")
	defer span.End()
	span.SetAttributes(attribute.String(tracing.AttrProvider, p.Name))

	settings := f.src.Settings()
	timeout := listingTimeout(settings)
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	models, err := f.fetchRaw(ctx, p, o, tokenParam)

	var fe *FetchError
	if err != nil && settings.Discovery.SDKFallback && errors.As(err, &fe) && fe.Reason != ReasonURLMissing {
		f.logger.DebugContext(ctx, "model listing failed, retrying through SDK", "provider", p.Name, "error", err)
		if sdkModels, sdkErr := f.fetchSDK(ctx, p, o, tokenParam); sdkErr == nil {
			models, err = sdkModels, nil
		}
	}

	f.metrics.RecordDiscovery(p.Name, err == nil, len(models), time.Since(start))
	if err != nil {
		tracing.SetError(span, err)
		return nil, err
	}
	span.SetAttributes(attribute.Int(tracing.AttrModels, len(models)))
	return models, nil
}

func (f *Fetcher) fetchRaw(ctx context.Context, p config.Provider, o config.Override, tokenParam string) ([]string, error) {
	if p.BaseURL == "" {
		return nil, &FetchError{Provider: p.Name, Reason: ReasonURLMissing}
	}

	tokenIn := listingTokenIn(p, o)
	token := p.Credential()
	target := ModelsBase(p.BaseURL) + "/v1/models"
	if transform.PlacesInQuery(tokenIn) && token != "" {
		target = transform.MergeQuery(target, transform.Pairs{
			{Key: transform.TokenParamName(p, o, tokenParam), Value: token},
		})
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, &FetchError{Provider: p.Name, Reason: ReasonRequest, Cause: err}
	}
	if transform.PlacesInHeader(tokenIn) && token != "" {
		name, value := transform.TokenHeader(p, o, token)
		req.Header.Set(name, value)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &FetchError{Provider: p.Name, Reason: ReasonRequest, Cause: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxListingBytes))
	if err != nil {
		return nil, &FetchError{Provider: p.Name, Reason: ReasonRequest, Cause: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &FetchError{Provider: p.Name, Reason: ReasonStatus, Cause: fmt.Errorf("status %d", resp.StatusCode)}
	}

	return parseModelIDs(p.Name, body)
}

// parseModelIDs extracts the non-empty data[].id values of a listing.
func parseModelIDs(provider string, body []byte) ([]string, error) {
	if !gjson.ValidBytes(body) {
		return nil, &FetchError{Provider: provider, Reason: ReasonDecode}
	}

	var models []string
	for _, id := range gjson.GetBytes(body, "data.#.id").Array() {
		if id.Type == gjson.String && id.String() != "" {
			models = append(models, id.String())
		}
	}
	if len(models) == 0 {
		return nil, &FetchError{Provider: provider, Reason: ReasonEmpty}
	}
	return models, nil
}

// listingTokenIn is the effective token_in for listings, which default to
// header placement.
func listingTokenIn(p config.Provider, o config.Override) string {
	if tokenIn := transform.EffectiveTokenIn(p, o); tokenIn != "" {
		return tokenIn
	}
	return transform.TokenInHeader
}

// listingTimeout is the smaller of api_timeout and the discovery timeout.
func listingTimeout(s registry.Settings) time.Duration {
	timeout := s.Discovery.Timeout
	if timeout <= 0 {
		timeout = config.DefaultDiscoveryTimeout
	}
	if s.APITimeout > 0 && s.APITimeout < timeout {
		timeout = s.APITimeout
	}
	return timeout
}
