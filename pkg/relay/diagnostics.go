package relay

import (
	"bytes"
	"context"
	"log/slog"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/valyala/bytebufferpool"
)

const (
	// previewHalf is the head and tail length of a response preview.
	previewHalf = 500

	// errorPreviewBytes is how much of a suppressed error body is logged.
	errorPreviewBytes = 1000

	textDeltaEvent = "content_block_delta"
)

// capture tees relayed bytes into a pooled buffer up to a limit.
type capture struct {
	buf       *bytebufferpool.ByteBuffer
	limit     int
	truncated bool
}

func newCapture(limit int) *capture {
	return &capture{buf: bytebufferpool.Get(), limit: limit}
}

func (c *capture) write(p []byte) {
	if c == nil {
		return
	}
	room := c.limit - c.buf.Len()
	if room <= 0 {
		c.truncated = len(p) > 0 || c.truncated
		return
	}
	if len(p) > room {
		p = p[:room]
		c.truncated = true
	}
	_, _ = c.buf.Write(p)
}

func (c *capture) release() {
	if c == nil {
		return
	}
	bytebufferpool.Put(c.buf)
	c.buf = nil
}

// logResponse reconstructs a relayed response body for the debug log.
// A JSON object is logged field by field, an SSE stream event by event with
// text deltas joined, anything else as a head and tail preview.
// Faults never reach the caller.
func logResponse(ctx context.Context, logger *slog.Logger, body []byte) {
	defer func() {
		if r := recover(); r != nil {
			logger.DebugContext(ctx, "response diagnostics failed", "panic", r)
		}
	}()

	switch {
	case isJSONObject(body):
		logJSONFields(ctx, logger, "upstream response body", body)
	case isSSE(body):
		logSSE(ctx, logger, body)
	default:
		logger.DebugContext(ctx, "upstream response preview", "preview", preview(string(body), previewHalf))
	}
}

// logBody logs a request or probe body as JSON fields, or a prefix of at
// most limit runes.
func logBody(ctx context.Context, logger *slog.Logger, msg string, body []byte, limit int) {
	if isJSONObject(body) {
		logJSONFields(ctx, logger, msg, body)
		return
	}
	logger.DebugContext(ctx, msg, "preview", truncate(string(body), limit, "..."))
}

func isJSONObject(body []byte) bool {
	return gjson.ValidBytes(body) && gjson.ParseBytes(body).IsObject()
}

func isSSE(body []byte) bool {
	return bytes.HasPrefix(body, []byte("event:")) || bytes.Contains(body, []byte("data:"))
}

func logJSONFields(ctx context.Context, logger *slog.Logger, msg string, body []byte) {
	var fields []any
	gjson.ParseBytes(body).ForEach(func(key, value gjson.Result) bool {
		fields = append(fields, slog.String(key.String(), compact(value.Raw)))
		return true
	})
	logger.DebugContext(ctx, msg, slog.Group("fields", fields...))
}

// logSSE walks "\n\n"-separated events. Consecutive text_delta payloads of
// content_block_delta events are accumulated and logged as one message when
// any other JSON event arrives or the stream ends.
func logSSE(ctx context.Context, logger *slog.Logger, body []byte) {
	var text strings.Builder
	flush := func() {
		if text.Len() == 0 {
			return
		}
		logger.DebugContext(ctx, "sse text", "event", textDeltaEvent, "text", text.String())
		text.Reset()
	}

	normalized := strings.ReplaceAll(string(body), "\r\n", "\n")
	for _, event := range strings.Split(normalized, "\n\n") {
		event = strings.TrimSpace(event)
		if event == "" {
			continue
		}

		eventType := ""
		for _, line := range strings.Split(event, "\n") {
			switch {
			case strings.HasPrefix(line, "event:"):
				eventType = strings.TrimSpace(line[len("event:"):])

			case strings.HasPrefix(line, "data:"):
				data := strings.TrimSpace(line[len("data:"):])
				label := eventType
				if label == "" {
					label = "data"
				}
				// Unparseable lines are logged raw and do not interrupt accumulated text.
				if !gjson.Valid(data) {
					logger.DebugContext(ctx, "sse event", "event", label, "data", data)
					continue
				}
				if eventType == textDeltaEvent && gjson.Get(data, "delta.type").String() == "text_delta" {
					text.WriteString(gjson.Get(data, "delta.text").String())
					continue
				}

				flush()
				logger.DebugContext(ctx, "sse event", "event", label, "data", compact(data))
			}
		}
	}
	flush()
}

func compact(raw string) string {
	return gjson.Get(raw, "@ugly").Raw
}

// preview keeps the first and last half runes of long text joined by
// " ... ", with newlines escaped and carriage returns removed.
func preview(text string, half int) string {
	r := []rune(text)
	if len(r) > half*2 {
		text = string(r[:half]) + " ... " + string(r[len(r)-half:])
	}
	text = strings.ReplaceAll(text, "\n", `\n`)
	return strings.ReplaceAll(text, "\r", "")
}

// truncate returns at most limit runes of s, appending suffix when cut.
func truncate(s string, limit int, suffix string) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit]) + suffix
}
