// Package upstreamtest provides a fake Claude-compatible upstream for tests.
package upstreamtest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"time"
)

// Response defines how the upstream answers one path.
type Response struct {
	StatusCode int
	Body       any
	Headers    map[string]string
	Delay      time.Duration

	// Events are written as an SSE stream when set. Body is ignored.
	Events []Event
}

// Event is one server-sent event.
type Event struct {
	Type string
	Data any
}

// Request is a recorded inbound request.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Body   []byte
}

// Server is a fake upstream. Unconfigured paths answer 404.
type Server struct {
	server *httptest.Server

	mu        sync.Mutex
	responses map[string]Response
	requests  []Request
}

// New starts a fake upstream.
func New() *Server {
	s := &Server{responses: make(map[string]Response)}
	s.server = httptest.NewServer(http.HandlerFunc(s.handle))
	return s
}

// URL returns the upstream root, e.g. "http://127.0.0.1:41234".
func (s *Server) URL() string {
	return s.server.URL
}

// MessagesURL returns the endpoint a provider base_url points at.
func (s *Server) MessagesURL() string {
	return s.server.URL + "/v1/messages"
}

// Close shuts the upstream down.
func (s *Server) Close() {
	s.server.Close()
}

// Respond sets the response for path.
func (s *Server) Respond(path string, r Response) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.responses[path] = r
}

// Requests returns the requests received so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// Last returns the most recent request, or false when none arrived.
func (s *Server) Last() (Request, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.requests) == 0 {
		return Request{}, false
	}
	return s.requests[len(s.requests)-1], true
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	s.mu.Lock()
	s.requests = append(s.requests, Request{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.Query(),
		Header: r.Header.Clone(),
		Body:   body,
	})
	resp, ok := s.responses[r.URL.Path]
	s.mu.Unlock()

	if !ok {
		http.NotFound(w, r)
		return
	}

	if resp.Delay > 0 {
		select {
		case <-time.After(resp.Delay):
		case <-r.Context().Done():
			return
		}
	}

	for k, v := range resp.Headers {
		w.Header().Set(k, v)
	}
	status := resp.StatusCode
	if status == 0 {
		status = http.StatusOK
	}

	if len(resp.Events) > 0 {
		writeStream(w, status, resp.Events)
		return
	}

	switch v := resp.Body.(type) {
	case nil:
		w.WriteHeader(status)
	case string:
		w.WriteHeader(status)
		_, _ = io.WriteString(w, v)
	case []byte:
		w.WriteHeader(status)
		_, _ = w.Write(v)
	default:
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(v)
	}
}

func writeStream(w http.ResponseWriter, status int, events []Event) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(status)

	flusher, _ := w.(http.Flusher)
	for _, ev := range events {
		data, _ := json.Marshal(ev.Data)
		fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, data)
		if flusher != nil {
			flusher.Flush()
		}
	}
}

// Message is a non-streaming Messages API response.
func Message(text, model string) map[string]any {
	return map[string]any{
		"id":          "msg_test",
		"type":        "message",
		"role":        "assistant",
		"model":       model,
		"content":     []map[string]any{{"type": "text", "text": text}},
		"stop_reason": "end_turn",
		"usage":       map[string]any{"input_tokens": 10, "output_tokens": 20},
	}
}

// TextStream is a minimal streamed reply whose deltas concatenate to the
// given pieces.
func TextStream(model string, pieces ...string) []Event {
	events := []Event{
		{Type: "message_start", Data: map[string]any{
			"type":    "message_start",
			"message": map[string]any{"id": "msg_test", "model": model, "role": "assistant"},
		}},
		{Type: "content_block_start", Data: map[string]any{
			"type":          "content_block_start",
			"index":         0,
			"content_block": map[string]any{"type": "text", "text": ""},
		}},
	}
	for _, p := range pieces {
		events = append(events, Event{Type: "content_block_delta", Data: map[string]any{
			"type":  "content_block_delta",
			"index": 0,
			"delta": map[string]any{"type": "text_delta", "text": p},
		}})
	}
	return append(events,
		Event{Type: "content_block_stop", Data: map[string]any{"type": "content_block_stop", "index": 0}},
		Event{Type: "message_stop", Data: map[string]any{"type": "message_stop"}},
	)
}

// Models is a /v1/models listing.
func Models(ids ...string) map[string]any {
	data := make([]map[string]any, 0, len(ids))
	for _, id := range ids {
		data = append(data, map[string]any{"id": id, "type": "model"})
	}
	return map[string]any{"data": data}
}

// Error is an Anthropic-style error body with the given status.
func Error(status int, message string) Response {
	return Response{
		StatusCode: status,
		Body: map[string]any{
			"type":  "error",
			"error": map[string]any{"type": "api_error", "message": message},
		},
	}
}
