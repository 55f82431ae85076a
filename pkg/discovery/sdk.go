package discovery

import (
	"context"

	"ccproxy-hq/ccproxy/pkg/config"
	"ccproxy-hq/ccproxy/pkg/transform"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
)

// fetchSDK lists models through the OpenAI-compatible client library. Some
// gateways only answer requests shaped exactly like the SDK's.
func (f *Fetcher) fetchSDK(ctx context.Context, p config.Provider, o config.Override, tokenParam string) ([]string, error) {
	tokenIn := listingTokenIn(p, o)
	token := p.Credential()

	opts := []option.RequestOption{
		option.WithBaseURL(ModelsBase(p.BaseURL) + "/v1/"),
		option.WithHTTPClient(f.client),
		option.WithMaxRetries(0),
		// The SDK picks up OPENAI_API_KEY from the environment
		option.WithHeaderDel("Authorization"),
	}
	if transform.PlacesInHeader(tokenIn) && token != "" {
		name, value := transform.TokenHeader(p, o, token)
		opts = append(opts, option.WithHeader(name, value))
	}
	if transform.PlacesInQuery(tokenIn) && token != "" {
		opts = append(opts, option.WithQuery(transform.TokenParamName(p, o, tokenParam), token))
	}

	client := openai.NewClient(opts...)
	page, err := client.Models.List(ctx)
	if err != nil {
		return nil, &FetchError{Provider: p.Name, Reason: ReasonRequest, Cause: err}
	}

	var models []string
	for _, m := range page.Data {
		if m.ID != "" {
			models = append(models, m.ID)
		}
	}
	if len(models) == 0 {
		return nil, &FetchError{Provider: p.Name, Reason: ReasonEmpty}
	}
	return models, nil
}
