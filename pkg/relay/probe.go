package relay

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"ccproxy-hq/ccproxy/pkg/config"
	"ccproxy-hq/ccproxy/pkg/telemetry/tracing"
)

// probeErrorLimit bounds the error text of a TestResult.
const probeErrorLimit = 200

// probeBodyLimit bounds how much of a probe response is read.
const probeBodyLimit = 1 << 20

// TestResult is the outcome of a provider probe.
type TestResult struct {
	Success bool   `json:"success"`
	Status  int    `json:"status,omitempty"`
	Error   string `json:"error,omitempty"`
}

type probeMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type probeRequest struct {
	Model     string         `json:"model"`
	Messages  []probeMessage `json:"messages"`
	MaxTokens int            `json:"max_tokens"`
}

// Probe sends a minimal completion to provider through the normal transform
// path using the shared override. It succeeds iff the status is 2xx and
// never touches error counters.
func (f *Forwarder) Probe(ctx context.Context, provider config.Provider, model, prompt string) TestResult {
	if model == "" {
		model = config.DefaultTestModel
	}
	if prompt == "" {
		prompt = config.DefaultTestPrompt
	}

	ctx, span := f.tracer.Start(ctx, "relay.probe")
	defer span.End()

	body, err := json.Marshal(probeRequest{
		Model:     model,
		Messages:  []probeMessage{{Role: "user", Content: prompt}},
		MaxTokens: config.DefaultTestMaxTokens,
	})
	if err != nil {
		return f.probeFailed(provider.Name, TestResult{Error: truncate(err.Error(), probeErrorLimit, "")})
	}

	f.logger.InfoContext(ctx, "testing provider",
		"provider", provider.Name,
		"model", model,
		"prompt", truncate(prompt, 50, ""),
	)

	resp, err := f.Forward(ctx, Request{
		Provider: provider,
		Override: f.src.OverrideFor(provider.Name),
		Header:   http.Header{"Content-Type": []string{"application/json"}},
		Body:     body,
	})
	if err != nil {
		tracing.SetError(span, err)
		f.logger.ErrorContext(ctx, "provider test failed", "provider", provider.Name, "error", err)
		return f.probeFailed(provider.Name, TestResult{Error: truncate(err.Error(), probeErrorLimit, "")})
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(io.LimitReader(resp.Body, probeBodyLimit))
	logBody(ctx, f.logger, "provider test response", data, probeErrorLimit)

	if !isSuccess(resp.StatusCode) {
		f.logger.WarnContext(ctx, "provider test failed", "provider", provider.Name, "status", resp.StatusCode)
		return f.probeFailed(provider.Name, TestResult{
			Status: resp.StatusCode,
			Error:  truncate(string(data), probeErrorLimit, ""),
		})
	}

	f.logger.InfoContext(ctx, "provider test passed", "provider", provider.Name, "status", resp.StatusCode)
	f.metrics.RecordProbe(provider.Name, true)
	return TestResult{Success: true, Status: resp.StatusCode}
}

func (f *Forwarder) probeFailed(provider string, res TestResult) TestResult {
	f.metrics.RecordProbe(provider, false)
	return res
}
