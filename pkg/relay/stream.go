package relay

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"ccproxy-hq/ccproxy/pkg/telemetry/metrics"
	"ccproxy-hq/ccproxy/pkg/telemetry/tracing"
	"ccproxy-hq/ccproxy/pkg/transform"
)

// chunkSize is the largest write between flushes.
const chunkSize = 8192

// Outcome is the terminal state of a relayed response.
type Outcome string

const (
	// OutcomeRelayed means the response was streamed to completion.
	OutcomeRelayed Outcome = "relayed"

	// OutcomeDropped means a non-2xx response was suppressed; the caller
	// must abort the client connection without writing.
	OutcomeDropped Outcome = "dropped"

	// OutcomeClientGone means the client stopped reading mid-stream.
	OutcomeClientGone Outcome = "client_gone"

	// OutcomeFailed means the upstream failed mid-stream or never answered.
	OutcomeFailed Outcome = "failed"
)

// Result describes a finished Stream call.
type Result struct {
	Outcome Outcome
	Status  int
	Bytes   int64

	// ConsecutiveErrors is the provider's error count after this response.
	ConsecutiveErrors int
}

// Relay applies the error threshold policy and streams upstream responses.
type Relay struct {
	src     Source
	logger  *slog.Logger
	metrics *metrics.Collector
	tracer  *tracing.Tracer
}

// NewRelay creates a relay.
func NewRelay(src Source, opts Options) *Relay {
	return &Relay{
		src:     src,
		logger:  opts.logger().With("component", "relay.stream"),
		metrics: opts.Metrics,
		tracer:  opts.Tracer,
	}
}

// Stream writes resp to w and closes resp.Body.
//
// A 2xx response resets the provider's error counter. A non-2xx response
// increments it; below the threshold nothing is written and OutcomeDropped
// is returned, at or above it the error is relayed like any response.
func (r *Relay) Stream(w http.ResponseWriter, resp *http.Response, provider string) Result {
	defer resp.Body.Close()

	ctx := context.Background()
	if resp.Request != nil {
		ctx = resp.Request.Context()
	}
	ctx, span := r.tracer.Start(ctx, "relay.stream")
	defer span.End()

	res := Result{Status: resp.StatusCode}
	defer func() {
		tracing.SetResponseAttributes(span, res.Status, string(res.Outcome), res.ConsecutiveErrors)
	}()

	if isSuccess(resp.StatusCode) {
		r.src.ResetError(provider)
	} else {
		res.ConsecutiveErrors = r.src.IncrementError(provider)
		threshold := r.src.ErrorThreshold()
		r.metrics.RecordUpstreamError(provider, statusErrorType(resp.StatusCode))
		r.metrics.SetConsecutiveErrors(provider, res.ConsecutiveErrors)

		head, _ := io.ReadAll(io.LimitReader(resp.Body, errorPreviewBytes))
		r.logger.ErrorContext(ctx, "upstream error response",
			"provider", provider,
			"status", resp.StatusCode,
			"error_count", res.ConsecutiveErrors,
			"threshold", threshold,
			"response_preview", string(head),
		)

		if res.ConsecutiveErrors < threshold {
			r.logger.WarnContext(ctx, "dropping client connection to trigger retry",
				"provider", provider,
			)
			res.Outcome = OutcomeDropped
			return res
		}
		return r.copy(ctx, w, resp, io.MultiReader(bytes.NewReader(head), resp.Body), res)
	}
	r.metrics.SetConsecutiveErrors(provider, 0)

	return r.copy(ctx, w, resp, resp.Body, res)
}

func (r *Relay) copy(ctx context.Context, w http.ResponseWriter, resp *http.Response, body io.Reader, res Result) Result {
	start := time.Now()
	transform.CopyHeaders(w.Header(), resp.Header)
	w.WriteHeader(resp.StatusCode)

	rc := http.NewResponseController(w)
	_ = rc.Flush()

	var diag *capture
	if r.logger.Enabled(ctx, slog.LevelDebug) {
		limit := r.src.Settings().DiagnosticCaptureBytes
		if limit > 0 {
			diag = newCapture(limit)
			defer diag.release()
		}
	}

	buf := make([]byte, chunkSize)
	res.Outcome = OutcomeRelayed
	for {
		n, readErr := body.Read(buf)
		if n > 0 {
			if _, err := w.Write(buf[:n]); err != nil {
				r.logger.WarnContext(ctx, "client disconnected", "error", err, "bytes", res.Bytes)
				res.Outcome = OutcomeClientGone
				return res
			}
			_ = rc.Flush()
			res.Bytes += int64(n)
			diag.write(buf[:n])
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			if errors.Is(ctx.Err(), context.Canceled) {
				r.logger.WarnContext(ctx, "client disconnected", "error", readErr, "bytes", res.Bytes)
				res.Outcome = OutcomeClientGone
				return res
			}
			r.logger.ErrorContext(ctx, "upstream stream error", "error", readErr, "bytes", res.Bytes)
			res.Outcome = OutcomeFailed
			break
		}
	}

	if diag != nil && res.Outcome == OutcomeRelayed {
		logResponse(ctx, r.logger, diag.buf.B)
		if diag.truncated {
			r.logger.DebugContext(ctx, "response diagnostics truncated", "limit", diag.limit)
		}
	}

	r.logger.InfoContext(ctx, "relay completed",
		"status", res.Status,
		"outcome", string(res.Outcome),
		"bytes", res.Bytes,
		"stream_ms", time.Since(start).Milliseconds(),
	)
	return res
}
